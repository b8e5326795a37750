package sources

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/datadeck-labs/datadeck/internal/backend"
	"github.com/datadeck-labs/datadeck/internal/store"
)

// FileService is the slice of the file backend the uploader needs.
// backend.FileClient satisfies it.
type FileService interface {
	Upload(ctx context.Context, filename string, content io.Reader) (*backend.UploadResult, error)
}

// UploadItem is one file queued for upload.
type UploadItem struct {
	Filename string
	Content  io.Reader
}

// UploadOutcome pairs the data source created for a file with the upload
// error, if any. A failed upload still produces a source, marked error.
type UploadOutcome struct {
	Source store.DataSource
	FileID string
	Err    error
}

// Uploader pushes files to the indexing backend and records each attempt as
// a data source. Both the HTTP upload handler and the drop-directory watcher
// go through it.
type Uploader struct {
	store  *store.Store
	files  FileService
	logger *slog.Logger
}

// NewUploader creates an Uploader.
func NewUploader(st *store.Store, files FileService, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{store: st, files: files, logger: logger}
}

// UploadBatch processes items strictly one at a time, in order. A failed
// upload records an error source and the batch moves on to the next file;
// store updates stay deterministic because nothing runs concurrently.
func (u *Uploader) UploadBatch(ctx context.Context, items []UploadItem) []UploadOutcome {
	outcomes := make([]UploadOutcome, 0, len(items))

	for _, item := range items {
		kind := KindForFilename(item.Filename)

		result, err := u.files.Upload(ctx, item.Filename, item.Content)
		if err != nil {
			u.logger.Warn("file upload failed", "filename", item.Filename, "error", err)
			src := u.store.AddDataSource(item.Filename, kind, store.SourceError)
			outcomes = append(outcomes, UploadOutcome{Source: src, Err: err})
			continue
		}

		src := u.store.AddDataSource(item.Filename, kind, store.SourceConnected)
		outcomes = append(outcomes, UploadOutcome{Source: src, FileID: result.FileID})
	}

	return outcomes
}

// KindForFilename classifies an uploaded file by extension.
func KindForFilename(filename string) store.SourceKind {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case "csv", "tsv":
		return store.SourceTabularFile
	case "xlsx", "xls":
		return store.SourceSpreadsheetFile
	default:
		return store.SourceStructuredFile
	}
}
