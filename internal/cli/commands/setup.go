package commands

import (
	"log/slog"
	"time"

	"github.com/datadeck-labs/datadeck/internal/backend"
	"github.com/datadeck-labs/datadeck/internal/cli/config"
	"github.com/spf13/cobra"
)

// getConfig returns the current configuration, falling back to defaults when
// no config was loaded (e.g. in tests that call commands directly).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{StatePath: config.DefaultStateFile}
}

// getLogger returns the logger from the command context.
func getLogger(cmd *cobra.Command) *slog.Logger {
	return config.GetLogger(cmd.Context())
}

// backendClientConfig builds the REST client config from the CLI config.
func backendClientConfig(cfg *config.Config) backend.Config {
	b := cfg.GetBackendConfig()
	return backend.Config{
		BaseURL: b.URL,
		Timeout: time.Duration(b.TimeoutSeconds) * time.Second,
	}
}
