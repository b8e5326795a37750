// Package router sets up HTTP routes for the dashboard server.
package router

import (
	"log/slog"
	"net/http"

	"github.com/datadeck-labs/datadeck/internal/chatpanel"
	"github.com/datadeck-labs/datadeck/internal/notebook"
	"github.com/datadeck-labs/datadeck/internal/store"
	assistantFeature "github.com/datadeck-labs/datadeck/internal/ui/features/assistant"
	canvasFeature "github.com/datadeck-labs/datadeck/internal/ui/features/canvas"
	sandboxFeature "github.com/datadeck-labs/datadeck/internal/ui/features/sandbox"
	sourcesFeature "github.com/datadeck-labs/datadeck/internal/ui/features/sources"
	"github.com/datadeck-labs/datadeck/internal/ui/notifier"
	"github.com/datadeck-labs/datadeck/internal/ui/resources"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"
)

// Deps carries everything the feature routes need.
type Deps struct {
	Store        *store.Store
	Panel        *chatpanel.Panel
	Notebook     *notebook.Controller
	Clusters     sandboxFeature.ClusterService
	Uploader     *sourcesFeature.Uploader
	Checker      sourcesFeature.ConnectionChecker
	SessionStore *sessions.CookieStore
	Notifier     *notifier.Notifier
	BackendURL   string
	Logger       *slog.Logger
}

// SetupRoutes configures all routes for the dashboard server.
func SetupRoutes(r chi.Router, deps Deps) {
	r.Handle("/static/*", resources.Handler())

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		_ = resources.RenderIndex(w, resources.IndexData{
			Title:      "DataDeck",
			BackendURL: deps.BackendURL,
		})
	})

	setupUpdates(r, deps.Notifier)

	sourcesFeature.SetupRoutes(r, deps.Store, deps.Uploader, deps.Checker, deps.Logger)
	assistantFeature.SetupRoutes(r, deps.Store, deps.Panel, deps.Notebook, deps.SessionStore, deps.Logger)
	sandboxFeature.SetupRoutes(r, deps.Notebook, deps.Clusters, deps.SessionStore, deps.Logger)
	canvasFeature.SetupRoutes(r, deps.Store, deps.Notebook, deps.Logger)
}

// setupUpdates serves the store change stream: every mutation bumps a
// revision signal and the browser re-fetches whatever views it renders.
func setupUpdates(r chi.Router, notify *notifier.Notifier) {
	r.Get("/updates", func(w http.ResponseWriter, req *http.Request) {
		sse := datastar.NewSSE(w, req)

		ch := notify.Subscribe()
		defer notify.Unsubscribe(ch)

		rev := 0
		for {
			select {
			case <-req.Context().Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				rev++
				if err := sse.MarshalAndPatchSignals(map[string]any{"rev": rev}); err != nil {
					return
				}
			}
		}
	})
}
