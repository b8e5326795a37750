package assistant

import (
	"log/slog"

	"github.com/datadeck-labs/datadeck/internal/chatpanel"
	"github.com/datadeck-labs/datadeck/internal/notebook"
	"github.com/datadeck-labs/datadeck/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
)

// SetupRoutes mounts the assistant feature under /api/assistant.
func SetupRoutes(r chi.Router, st *store.Store, panel *chatpanel.Panel, sandbox *notebook.Controller, sessionStore sessions.Store, logger *slog.Logger) {
	h := NewHandlers(st, panel, sandbox, sessionStore, logger)

	r.Route("/api/assistant", func(r chi.Router) {
		r.Get("/messages", h.Messages)
		r.Post("/send", h.Send)
		r.Post("/clear", h.Clear)
		r.Put("/scroll", h.Scroll)
		r.Post("/messages/{id}/sandbox", h.ToSandbox)
		r.Get("/agent", h.Agent)
		r.Put("/agent", h.SetAgent)
	})
}
