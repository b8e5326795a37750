package sources

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/datadeck-labs/datadeck/internal/backend"
	"github.com/datadeck-labs/datadeck/internal/store"
	"github.com/datadeck-labs/datadeck/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFileService fails uploads whose filename is listed in failing.
type fakeFileService struct {
	failing  map[string]bool
	uploaded []string
}

func (f *fakeFileService) Upload(_ context.Context, filename string, _ io.Reader) (*backend.UploadResult, error) {
	f.uploaded = append(f.uploaded, filename)
	if f.failing[filename] {
		return nil, errors.New("upload rejected")
	}
	return &backend.UploadResult{FileID: "id-" + filename, Filename: filename, Status: backend.FilePending}, nil
}

func TestUploadBatch_Resilience(t *testing.T) {
	st := store.New(store.Options{SkipDemoSeed: true})
	svc := &fakeFileService{failing: map[string]bool{"f2.csv": true}}
	u := NewUploader(st, svc, testutil.NewTestLogger(t))

	items := []UploadItem{
		{Filename: "f1.csv", Content: strings.NewReader("a")},
		{Filename: "f2.csv", Content: strings.NewReader("b")},
		{Filename: "f3.csv", Content: strings.NewReader("c")},
	}

	outcomes := u.UploadBatch(context.Background(), items)

	// All three files were attempted, in order, despite f2 failing.
	assert.Equal(t, []string{"f1.csv", "f2.csv", "f3.csv"}, svc.uploaded)
	require.Len(t, outcomes, 3)

	assert.NoError(t, outcomes[0].Err)
	assert.Error(t, outcomes[1].Err)
	assert.NoError(t, outcomes[2].Err)

	// Every attempt produced a data source entry; the failure is marked.
	sources := st.DataSources()
	require.Len(t, sources, 3)
	assert.Equal(t, store.SourceConnected, sources[0].Status)
	assert.Equal(t, store.SourceError, sources[1].Status)
	assert.Equal(t, store.SourceConnected, sources[2].Status)
}

func TestKindForFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     store.SourceKind
	}{
		{"sales.csv", store.SourceTabularFile},
		{"metrics.TSV", store.SourceTabularFile},
		{"book.xlsx", store.SourceSpreadsheetFile},
		{"legacy.xls", store.SourceSpreadsheetFile},
		{"payload.json", store.SourceStructuredFile},
		{"readme", store.SourceStructuredFile},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindForFilename(tt.filename), tt.filename)
	}
}
