package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/datadeck-labs/datadeck/internal/store"
	"github.com/datadeck-labs/datadeck/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandlerRouter(t *testing.T, svc FileService, checker ConnectionChecker) (*chi.Mux, *store.Store) {
	t.Helper()

	st := store.New(store.Options{SkipDemoSeed: true})
	r := chi.NewRouter()
	SetupRoutes(r, st, NewUploader(st, svc, testutil.NewTestLogger(t)), checker, testutil.NewTestLogger(t))
	return r, st
}

func multipartUpload(t *testing.T, filenames ...string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range filenames {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("a,b\n1,2\n"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sources/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadEndpointBatch(t *testing.T) {
	svc := &fakeFileService{failing: map[string]bool{"f2.csv": true}}
	r, st := newHandlerRouter(t, svc, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartUpload(t, "f1.csv", "f2.csv", "f3.csv"))
	require.Equal(t, http.StatusOK, w.Code)

	var results []struct {
		Source store.DataSource `json:"source"`
		Error  string           `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Len(t, results, 3)

	assert.Empty(t, results[0].Error)
	assert.NotEmpty(t, results[1].Error, "the failed file carries its error")
	assert.Empty(t, results[2].Error, "the batch continues past the failure")

	assert.Equal(t, []string{"f1.csv", "f2.csv", "f3.csv"}, svc.uploaded, "uploads stay in order")
	assert.Len(t, st.DataSources(), 3)
}

func TestUploadEndpointNoFiles(t *testing.T) {
	r, _ := newHandlerRouter(t, &fakeFileService{}, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/sources/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestConnectRecordsSource(t *testing.T) {
	checked := ""
	checker := func(_ context.Context, dsn string) error {
		checked = dsn
		return nil
	}
	r, st := newHandlerRouter(t, &fakeFileService{}, checker)

	w := doJSON(t, r, http.MethodPost, "/api/sources/connect", connectRequest{
		Name: "warehouse", DSN: "postgres://localhost/wh",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "postgres://localhost/wh", checked)

	sources := st.DataSources()
	require.Len(t, sources, 1)
	assert.Equal(t, store.SourceDatabase, sources[0].Kind)
	assert.Equal(t, store.SourceConnected, sources[0].Status)
}

func TestConnectFailedCheckStillRecorded(t *testing.T) {
	checker := func(context.Context, string) error { return errors.New("connection refused") }
	r, st := newHandlerRouter(t, &fakeFileService{}, checker)

	w := doJSON(t, r, http.MethodPost, "/api/sources/connect", connectRequest{
		Name: "warehouse", DSN: "postgres://nowhere/wh",
	})
	require.Equal(t, http.StatusBadGateway, w.Code)

	sources := st.DataSources()
	require.Len(t, sources, 1)
	assert.Equal(t, store.SourceError, sources[0].Status)
}

func TestConnectValidation(t *testing.T) {
	r, _ := newHandlerRouter(t, &fakeFileService{}, func(context.Context, string) error { return nil })

	w := doJSON(t, r, http.MethodPost, "/api/sources/connect", connectRequest{Name: "no-dsn"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRemoveSource(t *testing.T) {
	r, st := newHandlerRouter(t, &fakeFileService{}, nil)
	src := st.AddDataSource("sales.csv", store.SourceTabularFile, store.SourceConnected)

	w := doJSON(t, r, http.MethodDelete, "/api/sources/"+src.ID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, st.DataSources())

	// Absent ids are a no-op, not an error.
	w = doJSON(t, r, http.MethodDelete, "/api/sources/"+src.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
