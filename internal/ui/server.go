// Package ui provides the web dashboard server.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/datadeck-labs/datadeck/internal/chatpanel"
	"github.com/datadeck-labs/datadeck/internal/notebook"
	"github.com/datadeck-labs/datadeck/internal/store"
	"github.com/datadeck-labs/datadeck/internal/ui/features/sandbox"
	"github.com/datadeck-labs/datadeck/internal/ui/features/sources"
	"github.com/datadeck-labs/datadeck/internal/ui/notifier"
	"github.com/datadeck-labs/datadeck/internal/ui/router"
	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"
)

// Server is the dashboard server.
type Server struct {
	store        *store.Store
	panel        *chatpanel.Panel
	notebook     *notebook.Controller
	clusters     sandbox.ClusterService
	uploader     *sources.Uploader
	checker      sources.ConnectionChecker
	sessionStore *sessions.CookieStore
	port         int
	dropDir      string
	backendURL   string
	logger       *slog.Logger
	notifier     *notifier.Notifier
}

// Config holds configuration for the dashboard server.
type Config struct {
	Store    *store.Store
	Panel    *chatpanel.Panel
	Notebook *notebook.Controller
	Clusters sandbox.ClusterService
	Uploader *sources.Uploader
	// Checker validates live database connections; nil uses the default.
	Checker sources.ConnectionChecker
	Port    int
	// DropDir, when set, is watched for new files which are auto-uploaded.
	DropDir       string
	BackendURL    string
	SessionSecret string
	Logger        *slog.Logger
}

// NewServer creates a dashboard server instance.
func NewServer(cfg Config) *Server {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		store:        cfg.Store,
		panel:        cfg.Panel,
		notebook:     cfg.Notebook,
		clusters:     cfg.Clusters,
		uploader:     cfg.Uploader,
		checker:      cfg.Checker,
		sessionStore: sessionStore,
		port:         cfg.Port,
		dropDir:      cfg.DropDir,
		backendURL:   cfg.BackendURL,
		logger:       logger,
		notifier:     notifier.New(),
	}
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// Serve starts the dashboard server and blocks until the context is
// cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting dashboard", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	router.SetupRoutes(r, router.Deps{
		Store:        s.store,
		Panel:        s.panel,
		Notebook:     s.notebook,
		Clusters:     s.clusters,
		Uploader:     s.uploader,
		Checker:      s.checker,
		SessionStore: s.sessionStore,
		Notifier:     s.notifier,
		BackendURL:   s.backendURL,
		Logger:       s.logger,
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Every store mutation becomes one SSE ping to connected browsers.
	eg.Go(func() error {
		return s.bridgeStoreChanges(egctx)
	})

	if s.dropDir != "" {
		eg.Go(func() error {
			return s.watchDropDir(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down dashboard...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// bridgeStoreChanges forwards store change pings to the SSE notifier.
func (s *Server) bridgeStoreChanges(ctx context.Context) error {
	ch, cancel := s.store.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			s.notifier.Broadcast()
		}
	}
}

// watchDropDir watches the drop directory and auto-uploads files created or
// written there, debounced per burst of filesystem events.
func (s *Server) watchDropDir(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.dropDir); err != nil {
		s.logger.Error("failed to watch drop directory", "dir", s.dropDir, "error", err)
		// Keep serving without the watcher.
		<-ctx.Done()
		return nil
	}

	var mu sync.Mutex
	pending := make(map[string]struct{})
	var debounceTimer *time.Timer

	flush := func() {
		mu.Lock()
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		clear(pending)
		mu.Unlock()

		if len(paths) > 0 {
			s.uploadDropped(ctx, paths)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			mu.Lock()
			pending[event.Name] = struct{}{}
			mu.Unlock()

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(500*time.Millisecond, flush)

		case err := <-watcher.Errors:
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// uploadDropped pushes files from the drop directory through the batch
// uploader.
func (s *Server) uploadDropped(ctx context.Context, paths []string) {
	items := make([]sources.UploadItem, 0, len(paths))
	var closers []func() error
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			s.logger.Warn("skipping unreadable dropped file", "path", path, "error", err)
			continue
		}
		closers = append(closers, f.Close)
		items = append(items, sources.UploadItem{Filename: filepath.Base(path), Content: f})
	}
	defer func() {
		for _, c := range closers {
			_ = c()
		}
	}()

	if len(items) == 0 {
		return
	}

	s.logger.Info("uploading dropped files", "count", len(items))
	s.uploader.UploadBatch(ctx, items)
}
