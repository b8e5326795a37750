// Package canvas serves the visualization surface: the query history, the
// active query, artifact selection, and the layout toggles around the canvas.
package canvas

import (
	"log/slog"
	"net/http"

	"github.com/datadeck-labs/datadeck/internal/notebook"
	"github.com/datadeck-labs/datadeck/internal/store"
	"github.com/datadeck-labs/datadeck/internal/ui/features/common"
	"github.com/go-chi/chi/v5"
)

// Handlers provides HTTP handlers for the canvas feature.
type Handlers struct {
	store   *store.Store
	sandbox *notebook.Controller
	logger  *slog.Logger
}

// NewHandlers creates a Handlers instance.
func NewHandlers(st *store.Store, sandbox *notebook.Controller, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{store: st, sandbox: sandbox, logger: logger}
}

// canvasView is the canvas state the front end renders from.
type canvasView struct {
	Queries        []store.Query   `json:"queries"`
	ActiveQueryID  string          `json:"activeQueryId,omitempty"`
	ActiveArtifact *store.Artifact `json:"activeArtifact,omitempty"`
	ArtifactCode   string          `json:"artifactCode,omitempty"`
	SidebarOpen    bool            `json:"sidebarOpen"`
	PanelOpen      bool            `json:"panelOpen"`
}

func (h *Handlers) view() canvasView {
	v := canvasView{
		Queries:     h.store.Queries(),
		SidebarOpen: h.store.SidebarOpen(),
		PanelOpen:   h.store.AIPanelOpen(),
	}
	if q, ok := h.store.ActiveQuery(); ok {
		v.ActiveQueryID = q.ID
	}
	v.ActiveArtifact, v.ArtifactCode = h.store.ActiveArtifact()
	return v
}

// Queries returns the full canvas state.
func (h *Handlers) Queries(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, h.view())
}

// Activate makes a query the active one and seeds the sandbox from it, so
// opening a past result drops its prompt and code into the notebook.
func (h *Handlers) Activate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.store.SetActiveQuery(id)
	q, ok := h.store.ActiveQuery()
	if !ok || q.ID != id {
		common.Error(w, http.StatusNotFound, "query not found")
		return
	}

	h.sandbox.SeedFromQuery(q)
	common.JSON(w, http.StatusOK, h.view())
}

// Remove deletes a query from the history. Remaining queries keep their
// numbers, so deletions leave visible gaps.
func (h *Handlers) Remove(w http.ResponseWriter, r *http.Request) {
	h.store.RemoveQuery(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

type artifactRequest struct {
	QueryID    string `json:"queryId"`
	ArtifactID string `json:"artifactId"`
}

// SetArtifact selects the artifact shown in the detail view, paired with the
// code that produced it. An empty request clears the selection.
func (h *Handlers) SetArtifact(w http.ResponseWriter, r *http.Request) {
	var req artifactRequest
	if err := common.Decode(r, &req); err != nil {
		common.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.QueryID == "" && req.ArtifactID == "" {
		h.store.SetActiveArtifact(nil, "")
		common.JSON(w, http.StatusOK, h.view())
		return
	}

	for _, q := range h.store.Queries() {
		if q.ID != req.QueryID {
			continue
		}
		for i := range q.Artifacts {
			if q.Artifacts[i].ID == req.ArtifactID {
				h.store.SetActiveArtifact(&q.Artifacts[i], q.Code)
				common.JSON(w, http.StatusOK, h.view())
				return
			}
		}
	}
	common.Error(w, http.StatusNotFound, "artifact not found")
}

// ToggleSidebar flips the data source sidebar.
func (h *Handlers) ToggleSidebar(w http.ResponseWriter, _ *http.Request) {
	h.store.ToggleSidebar()
	common.JSON(w, http.StatusOK, map[string]bool{"sidebarOpen": h.store.SidebarOpen()})
}

// TogglePanel flips the assistant panel.
func (h *Handlers) TogglePanel(w http.ResponseWriter, _ *http.Request) {
	h.store.ToggleAIPanel()
	common.JSON(w, http.StatusOK, map[string]bool{"panelOpen": h.store.AIPanelOpen()})
}
