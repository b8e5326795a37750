package commands

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/datadeck-labs/datadeck/internal/backend"
	"github.com/datadeck-labs/datadeck/internal/chatpanel"
	"github.com/datadeck-labs/datadeck/internal/notebook"
	"github.com/datadeck-labs/datadeck/internal/state"
	"github.com/datadeck-labs/datadeck/internal/store"
	"github.com/datadeck-labs/datadeck/internal/ui"
	"github.com/datadeck-labs/datadeck/internal/ui/features/sources"
	"github.com/spf13/cobra"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Port      int
	NoBrowser bool
	DropDir   string
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the DataDeck dashboard",
		Long: `Start a local web server providing the analysis dashboard.

The dashboard provides:
- Data source sidebar with file upload and database connections
- AI assistant panel backed by the chat API
- Code sandbox executing against remote compute clusters
- Visualization canvas with query history`,
		Example: `  # Start dashboard on default port
  datadeck serve

  # Start on custom port
  datadeck serve --port 3000

  # Auto-upload files dropped into a directory
  datadeck serve --drop-dir ./incoming`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: 8787)")
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Don't auto-open browser")
	cmd.Flags().StringVar(&opts.DropDir, "drop-dir", "", "Directory watched for files to auto-upload")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cfg := getConfig()
	logger := getLogger(cmd)

	uiCfg := cfg.GetUIConfig()
	port := uiCfg.Port
	if opts.Port != 0 {
		port = opts.Port
	}
	dropDir := uiCfg.DropDir
	if opts.DropDir != "" {
		dropDir = opts.DropDir
	}

	// Ensure state directory exists
	stateDir := filepath.Dir(cfg.StatePath)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0750); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	stateDB, err := state.Open(cfg.StatePath)
	if err != nil {
		return err
	}
	defer func() { _ = stateDB.Close() }()

	if err := stateDB.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate state database: %w", err)
	}

	st := store.New(store.Options{
		Persister: state.NewSnapshotPersister(stateDB),
		Logger:    logger,
	})

	clientCfg := backendClientConfig(cfg)
	chatClient := backend.NewChatClient(clientCfg)
	fileClient := backend.NewFileClient(clientCfg)
	clusterClient := backend.NewClusterClient(clientCfg)

	panel := chatpanel.New(chatpanel.Options{
		Store:      st,
		Chat:       chatClient,
		Agent:      cfg.GetBackendConfig().Agent,
		BackendURL: clientCfg.BaseURL,
		Logger:     logger,
	})

	nb := notebook.New(notebook.Options{
		Executor: clusterClient,
		Logger:   logger,
	})

	server := ui.NewServer(ui.Config{
		Store:         st,
		Panel:         panel,
		Notebook:      nb,
		Clusters:      clusterClient,
		Uploader:      sources.NewUploader(st, fileClient, logger),
		Port:          port,
		DropDir:       dropDir,
		BackendURL:    clientCfg.BaseURL,
		SessionSecret: sessionSecret(uiCfg.SessionSecret),
		Logger:        logger,
	})

	if !opts.NoBrowser {
		go openBrowser(fmt.Sprintf("http://localhost:%d", port))
	}

	fmt.Printf("Starting dashboard on http://localhost:%d\n", port)
	fmt.Println("Press Ctrl+C to stop")

	return server.Serve(cmd.Context())
}

// sessionSecret prefers the environment over the config file so the secret
// can stay out of checked-in YAML.
func sessionSecret(fromConfig string) string {
	if secret := os.Getenv("DATADECK_SESSION_SECRET"); secret != "" {
		return secret
	}
	return fromConfig
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return
	}

	_ = cmd.Start()
}
