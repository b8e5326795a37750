// Package sources serves the upload zone and connection management: file
// uploads into the indexing backend, live database connections, and data
// source removal.
package sources

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/datadeck-labs/datadeck/internal/connect"
	"github.com/datadeck-labs/datadeck/internal/store"
	"github.com/datadeck-labs/datadeck/internal/ui/features/common"
	"github.com/go-chi/chi/v5"
)

// maxUploadBytes caps one multipart upload request.
const maxUploadBytes = 256 << 20 // 256 MiB

// ConnectionChecker validates a live database connection.
type ConnectionChecker func(ctx context.Context, dsn string) error

// Handlers provides HTTP handlers for the sources feature.
type Handlers struct {
	store    *store.Store
	uploader *Uploader
	checker  ConnectionChecker
	logger   *slog.Logger
}

// NewHandlers creates a Handlers instance. A nil checker defaults to a
// Postgres ping.
func NewHandlers(st *store.Store, uploader *Uploader, checker ConnectionChecker, logger *slog.Logger) *Handlers {
	if checker == nil {
		checker = connect.CheckPostgres
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{store: st, uploader: uploader, checker: checker, logger: logger}
}

// List returns all data sources.
func (h *Handlers) List(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, h.store.DataSources())
}

// Upload accepts one or more files under the multipart field "files" and
// pushes them through the sequential batch uploader. Every file yields a
// data source entry; failed files are marked error but never abort the
// batch.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		common.Error(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		common.Error(w, http.StatusBadRequest, "no files in request")
		return
	}

	items := make([]UploadItem, 0, len(headers))
	var closers []func() error
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			common.Error(w, http.StatusBadRequest, "unreadable file part: "+header.Filename)
			return
		}
		closers = append(closers, f.Close)
		items = append(items, UploadItem{Filename: header.Filename, Content: f})
	}
	defer func() {
		for _, c := range closers {
			_ = c()
		}
	}()

	outcomes := h.uploader.UploadBatch(r.Context(), items)

	type result struct {
		Source store.DataSource `json:"source"`
		FileID string           `json:"fileId,omitempty"`
		Error  string           `json:"error,omitempty"`
	}
	results := make([]result, 0, len(outcomes))
	for _, o := range outcomes {
		res := result{Source: o.Source, FileID: o.FileID}
		if o.Err != nil {
			res.Error = o.Err.Error()
		}
		results = append(results, res)
	}
	common.JSON(w, http.StatusOK, results)
}

type connectRequest struct {
	Name string `json:"name"`
	DSN  string `json:"dsn"`
}

// Connect validates a database DSN and records it as a data source. A
// failed check still records the source, marked error, mirroring failed
// uploads.
func (h *Handlers) Connect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := common.Decode(r, &req); err != nil {
		common.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.DSN == "" {
		common.Error(w, http.StatusBadRequest, "name and dsn are required")
		return
	}

	if err := h.checker(r.Context(), req.DSN); err != nil {
		h.logger.Warn("connection check failed", "name", req.Name, "error", err)
		src := h.store.AddDataSource(req.Name, store.SourceDatabase, store.SourceError)
		common.JSON(w, http.StatusBadGateway, map[string]any{"source": src, "error": err.Error()})
		return
	}

	src := h.store.AddDataSource(req.Name, store.SourceDatabase, store.SourceConnected)
	common.JSON(w, http.StatusOK, map[string]any{"source": src})
}

// Remove deletes a data source; absent ids are a no-op.
func (h *Handlers) Remove(w http.ResponseWriter, r *http.Request) {
	h.store.RemoveDataSource(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}
