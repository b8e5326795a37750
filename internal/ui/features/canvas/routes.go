package canvas

import (
	"log/slog"

	"github.com/datadeck-labs/datadeck/internal/notebook"
	"github.com/datadeck-labs/datadeck/internal/store"
	"github.com/go-chi/chi/v5"
)

// SetupRoutes mounts the canvas feature under /api/canvas.
func SetupRoutes(r chi.Router, st *store.Store, sandbox *notebook.Controller, logger *slog.Logger) {
	h := NewHandlers(st, sandbox, logger)

	r.Route("/api/canvas", func(r chi.Router) {
		r.Get("/queries", h.Queries)
		r.Post("/queries/{id}/activate", h.Activate)
		r.Delete("/queries/{id}", h.Remove)
		r.Put("/active-artifact", h.SetArtifact)
		r.Post("/sidebar/toggle", h.ToggleSidebar)
		r.Post("/panel/toggle", h.TogglePanel)
	})
}
