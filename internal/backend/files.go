package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

// FileStatus is the indexing pipeline state of an uploaded file.
type FileStatus string

// File pipeline states. Files move pending -> processing -> indexed, or end
// in failed.
const (
	FilePending    FileStatus = "pending"
	FileProcessing FileStatus = "processing"
	FileIndexed    FileStatus = "indexed"
	FileFailed     FileStatus = "failed"
)

// FileClient talks to the file upload and indexing service.
type FileClient struct {
	rest *restClient
}

// NewFileClient creates a file client.
func NewFileClient(cfg Config) *FileClient {
	return &FileClient{rest: newRESTClient(cfg)}
}

// FileInfo describes one uploaded file and its indexing progress.
type FileInfo struct {
	ID            string     `json:"id"`
	Filename      string     `json:"filename"`
	FileType      string     `json:"file_type"`
	Size          int64      `json:"size"`
	UploadedAt    time.Time  `json:"uploaded_at"`
	Status        FileStatus `json:"status"`
	ChunksIndexed *int       `json:"chunks_indexed,omitempty"`
}

// UploadResult is the immediate response to an upload; indexing continues
// asynchronously on the backend.
type UploadResult struct {
	Message  string     `json:"message"`
	FileID   string     `json:"file_id"`
	Filename string     `json:"filename"`
	Status   FileStatus `json:"status"`
}

// StatusResult reports current indexing progress for one file.
type StatusResult struct {
	Status        FileStatus `json:"status"`
	ChunksIndexed *int       `json:"chunks_indexed,omitempty"`
}

// Upload sends one file as a multipart request. The caller owns batch
// semantics: a failed upload must not stop the remaining files of a batch.
func (c *FileClient) Upload(ctx context.Context, filename string, content io.Reader) (*UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to read upload content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rest.base+"/files/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var result UploadResult
	if err := c.rest.do(req, "/files/upload", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// List returns all files known to the indexing service.
func (c *FileClient) List(ctx context.Context) ([]FileInfo, error) {
	var files []FileInfo
	if err := c.rest.doJSON(ctx, http.MethodGet, "/files/list", nil, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// Status reports indexing progress for one file.
func (c *FileClient) Status(ctx context.Context, id string) (*StatusResult, error) {
	var result StatusResult
	path := "/files/" + url.PathEscape(id) + "/status"
	if err := c.rest.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes a file and its index entries.
func (c *FileClient) Delete(ctx context.Context, id string) error {
	path := "/files/" + url.PathEscape(id)
	return c.rest.doJSON(ctx, http.MethodDelete, path, nil, nil)
}
