package sandbox

import (
	"log/slog"

	"github.com/datadeck-labs/datadeck/internal/notebook"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
)

// SetupRoutes mounts the sandbox feature under /api/sandbox and the cluster
// lifecycle endpoints under /api/clusters.
func SetupRoutes(r chi.Router, nb *notebook.Controller, clusters ClusterService, sessionStore sessions.Store, logger *slog.Logger) {
	h := NewHandlers(nb, clusters, sessionStore, logger)

	r.Route("/api/sandbox", func(r chi.Router) {
		r.Get("/cells", h.Cells)
		r.Post("/cells", h.AddCell)
		r.Put("/cells/{id}", h.ChangeCell)
		r.Post("/cells/{id}/move", h.MoveCell)
		r.Delete("/cells/{id}", h.DeleteCell)
		r.Post("/cells/{id}/run", h.RunCell)
		r.Post("/run-all", h.RunAll)
		r.Post("/restart", h.Restart)
		r.Post("/clear-outputs", h.ClearOutputs)
		r.Put("/cluster", h.SelectCluster)
	})

	r.Route("/api/clusters", func(r chi.Router) {
		r.Get("/", h.ListClusters)
		r.Post("/{id}/start", h.StartCluster)
		r.Post("/{id}/stop", h.StopCluster)
	})
}
