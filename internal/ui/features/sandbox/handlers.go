// Package sandbox serves the notebook: cell management, single-cell and
// run-all execution, and cluster lifecycle operations.
package sandbox

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/datadeck-labs/datadeck/internal/backend"
	"github.com/datadeck-labs/datadeck/internal/notebook"
	"github.com/datadeck-labs/datadeck/internal/ui/features/common"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"
)

// sessionName is the cookie session remembering the selected cluster.
const sessionName = "datadeck-sandbox"

// ClusterService is the slice of the execution backend the handlers need
// beyond what the notebook controller already holds.
type ClusterService interface {
	List(ctx context.Context) ([]backend.Cluster, error)
	Start(ctx context.Context, clusterID string) error
	Stop(ctx context.Context, clusterID string) error
}

// Handlers provides HTTP handlers for the sandbox feature.
type Handlers struct {
	nb           *notebook.Controller
	clusters     ClusterService
	sessionStore sessions.Store
	logger       *slog.Logger
}

// NewHandlers creates a Handlers instance.
func NewHandlers(nb *notebook.Controller, clusters ClusterService, sessionStore sessions.Store, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{nb: nb, clusters: clusters, sessionStore: sessionStore, logger: logger}
}

type cellView struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Source string `json:"source"`
	Output string `json:"output,omitempty"`
	Status string `json:"status"`
}

type notebookView struct {
	Cells     []cellView `json:"cells"`
	ClusterID string     `json:"clusterId,omitempty"`
}

func (h *Handlers) view() notebookView {
	cells := h.nb.Cells()
	views := make([]cellView, len(cells))
	for i, c := range cells {
		views[i] = cellView{
			ID:     c.ID,
			Type:   string(c.Type),
			Source: c.Source,
			Output: c.Output,
			Status: string(c.Status),
		}
	}
	return notebookView{Cells: views, ClusterID: h.nb.Cluster()}
}

// Cells returns the notebook state. When no cluster is selected yet, the
// one remembered in the browser session is restored first.
func (h *Handlers) Cells(w http.ResponseWriter, r *http.Request) {
	if h.nb.Cluster() == "" {
		if remembered := h.sessionCluster(r); remembered != "" {
			h.nb.SetCluster(remembered)
		}
	}
	common.JSON(w, http.StatusOK, h.view())
}

type addCellRequest struct {
	Type string `json:"type"`
}

// AddCell appends a new cell.
func (h *Handlers) AddCell(w http.ResponseWriter, r *http.Request) {
	var req addCellRequest
	if err := common.Decode(r, &req); err != nil {
		common.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t := notebook.CellType(req.Type)
	if t != notebook.CellCode && t != notebook.CellMarkdown {
		common.Error(w, http.StatusBadRequest, "type must be code or markdown")
		return
	}

	h.nb.AddCell(t)
	common.JSON(w, http.StatusOK, h.view())
}

type changeCellRequest struct {
	Source string `json:"source"`
}

// ChangeCell updates a cell's source text.
func (h *Handlers) ChangeCell(w http.ResponseWriter, r *http.Request) {
	var req changeCellRequest
	if err := common.Decode(r, &req); err != nil {
		common.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.nb.ChangeCell(chi.URLParam(r, "id"), req.Source); err != nil {
		common.Error(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type moveCellRequest struct {
	Direction string `json:"direction"`
}

// MoveCell swaps a cell with its neighbor; boundary moves are no-ops.
func (h *Handlers) MoveCell(w http.ResponseWriter, r *http.Request) {
	var req moveCellRequest
	if err := common.Decode(r, &req); err != nil {
		common.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := chi.URLParam(r, "id")
	var err error
	switch req.Direction {
	case "up":
		err = h.nb.MoveUp(id)
	case "down":
		err = h.nb.MoveDown(id)
	default:
		common.Error(w, http.StatusBadRequest, "direction must be up or down")
		return
	}
	if err != nil {
		common.Error(w, http.StatusNotFound, err.Error())
		return
	}
	common.JSON(w, http.StatusOK, h.view())
}

// DeleteCell removes a cell.
func (h *Handlers) DeleteCell(w http.ResponseWriter, r *http.Request) {
	if err := h.nb.DeleteCell(chi.URLParam(r, "id")); err != nil {
		common.Error(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RunCell executes one cell. Selecting a cluster first is a precondition;
// without one nothing changes and the client gets a conflict.
func (h *Handlers) RunCell(w http.ResponseWriter, r *http.Request) {
	err := h.nb.RunCell(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, notebook.ErrNoCluster):
		common.Error(w, http.StatusConflict, "select a cluster before running code")
		return
	case errors.Is(err, notebook.ErrCellNotFound):
		common.Error(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		common.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	common.JSON(w, http.StatusOK, h.view())
}

// RunAll executes the whole notebook over SSE so the browser sees the
// in-flight state. Execution is strictly sequential and stops at the first
// failing code cell.
func (h *Handlers) RunAll(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	_ = sse.MarshalAndPatchSignals(map[string]any{"running": true})

	err := h.nb.RunAll(r.Context())

	signals := map[string]any{"running": false, "notebook": h.view()}
	if errors.Is(err, notebook.ErrNoCluster) {
		signals["runError"] = "select a cluster before running code"
	} else if err != nil {
		signals["runError"] = err.Error()
	}
	_ = sse.MarshalAndPatchSignals(signals)
}

// Restart resets every cell and asks the backend to discard the remote
// execution context. The local reset is optimistic and has already happened
// even when the remote call fails.
func (h *Handlers) Restart(w http.ResponseWriter, r *http.Request) {
	if err := h.nb.RestartContext(r.Context()); err != nil {
		if errors.Is(err, notebook.ErrNoCluster) {
			common.Error(w, http.StatusConflict, "select a cluster first")
			return
		}
		common.JSON(w, http.StatusBadGateway, map[string]any{
			"notebook": h.view(),
			"error":    err.Error(),
		})
		return
	}
	common.JSON(w, http.StatusOK, h.view())
}

// ClearOutputs resets every cell locally.
func (h *Handlers) ClearOutputs(w http.ResponseWriter, _ *http.Request) {
	h.nb.ClearOutputs()
	common.JSON(w, http.StatusOK, h.view())
}

type selectClusterRequest struct {
	ClusterID string `json:"clusterId"`
}

// SelectCluster picks the cluster executions run against and remembers it
// in the browser session.
func (h *Handlers) SelectCluster(w http.ResponseWriter, r *http.Request) {
	var req selectClusterRequest
	if err := common.Decode(r, &req); err != nil || req.ClusterID == "" {
		common.Error(w, http.StatusBadRequest, "clusterId is required")
		return
	}

	h.nb.SetCluster(req.ClusterID)

	session, _ := h.sessionStore.Get(r, sessionName)
	session.Values["cluster_id"] = req.ClusterID
	if err := session.Save(r, w); err != nil {
		h.logger.Warn("failed to save session", "error", err)
	}

	common.JSON(w, http.StatusOK, h.view())
}

// ListClusters proxies the cluster list from the execution backend.
func (h *Handlers) ListClusters(w http.ResponseWriter, r *http.Request) {
	clusters, err := h.clusters.List(r.Context())
	if err != nil {
		common.Error(w, http.StatusBadGateway, "failed to fetch clusters")
		return
	}
	common.JSON(w, http.StatusOK, clusters)
}

// StartCluster requests a cluster start. The response reports PENDING
// optimistically; the real transition is asynchronous and not rolled back
// here if it later fails.
func (h *Handlers) StartCluster(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.clusters.Start(r.Context(), id); err != nil {
		common.Error(w, http.StatusBadGateway, "failed to start cluster")
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{"clusterId": id, "state": backend.ClusterPending})
}

// StopCluster requests cluster termination, reporting TERMINATING
// optimistically.
func (h *Handlers) StopCluster(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.clusters.Stop(r.Context(), id); err != nil {
		common.Error(w, http.StatusBadGateway, "failed to stop cluster")
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{"clusterId": id, "state": backend.ClusterTerminating})
}

func (h *Handlers) sessionCluster(r *http.Request) string {
	session, err := h.sessionStore.Get(r, sessionName)
	if err != nil {
		return ""
	}
	id, _ := session.Values["cluster_id"].(string)
	return id
}
