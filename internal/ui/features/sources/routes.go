package sources

import (
	"log/slog"

	"github.com/datadeck-labs/datadeck/internal/store"
	"github.com/go-chi/chi/v5"
)

// SetupRoutes mounts the sources feature under /api/sources.
func SetupRoutes(r chi.Router, st *store.Store, uploader *Uploader, checker ConnectionChecker, logger *slog.Logger) {
	h := NewHandlers(st, uploader, checker, logger)

	r.Route("/api/sources", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/upload", h.Upload)
		r.Post("/connect", h.Connect)
		r.Delete("/{id}", h.Remove)
	})
}
