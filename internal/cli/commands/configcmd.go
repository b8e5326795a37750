package commands

import (
	"fmt"

	"github.com/datadeck-labs/datadeck/internal/cli/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Print the effective configuration after merging defaults, the config
file, environment variables, and flags.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig()

			backend := cfg.GetBackendConfig()
			ui := cfg.GetUIConfig()

			// Resolve defaults so the dump shows what commands will use.
			// The session secret is deliberately omitted.
			effective := struct {
				Backend struct {
					URL            string `yaml:"url"`
					Agent          string `yaml:"agent"`
					TimeoutSeconds int    `yaml:"timeout_seconds"`
				} `yaml:"backend"`
				UI struct {
					Port    int    `yaml:"port"`
					DropDir string `yaml:"drop_dir,omitempty"`
				} `yaml:"ui"`
				StatePath string `yaml:"state_path"`
				Output    string `yaml:"output"`
			}{
				StatePath: cfg.StatePath,
				Output:    cfg.OutputFormat,
			}
			effective.Backend.URL = backend.URL
			effective.Backend.Agent = backend.Agent
			effective.Backend.TimeoutSeconds = backend.TimeoutSeconds
			effective.UI.Port = ui.Port
			effective.UI.DropDir = ui.DropDir

			if file := config.GetConfigFileUsed(); file != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "# config file: %s\n", file)
			}

			out, err := yaml.Marshal(effective)
			if err != nil {
				return err
			}
			_, _ = cmd.OutOrStdout().Write(out)
			return nil
		},
	}
}
