// Package config provides configuration management for the DataDeck CLI.
package config

// BackendConfig holds the connection settings for the assistant API server.
type BackendConfig struct {
	// URL is the base URL of the API, including the version prefix.
	URL string `koanf:"url"`
	// Agent is the default agent chat messages are routed to.
	Agent string `koanf:"agent"`
	// TimeoutSeconds bounds each request to the backend.
	TimeoutSeconds int `koanf:"timeout_seconds"`
}

// UIConfig holds configuration for the dashboard server.
type UIConfig struct {
	Port          int    `koanf:"port"`
	SessionSecret string `koanf:"session_secret"`
	// DropDir, when set, is watched for files to auto-upload.
	DropDir string `koanf:"drop_dir"`
}

// Config holds all CLI configuration options.
type Config struct {
	Backend      *BackendConfig `koanf:"backend"`
	UI           *UIConfig      `koanf:"ui"`
	StatePath    string         `koanf:"state_path"`
	Verbose      bool           `koanf:"verbose"`
	OutputFormat string         `koanf:"output"`

	// ProjectRoot is the directory the config file was found in (or the
	// working directory); relative paths resolve against it.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultBackendURL     = "http://localhost:8000/api/v1"
	DefaultAgent          = "orchestrator"
	DefaultTimeoutSeconds = 60
	DefaultUIPort         = 8787
	DefaultStateFile      = ".datadeck/state.db"
	DefaultOutput         = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// GetBackendConfig returns the backend config with defaults applied for any
// unset values.
func (c *Config) GetBackendConfig() *BackendConfig {
	b := c.Backend
	if b == nil {
		b = &BackendConfig{}
	}
	if b.URL == "" {
		b.URL = DefaultBackendURL
	}
	if b.Agent == "" {
		b.Agent = DefaultAgent
	}
	if b.TimeoutSeconds == 0 {
		b.TimeoutSeconds = DefaultTimeoutSeconds
	}
	return b
}

// GetUIConfig returns the UI config with defaults applied for any unset
// values.
func (c *Config) GetUIConfig() *UIConfig {
	ui := c.UI
	if ui == nil {
		ui = &UIConfig{}
	}
	if ui.Port == 0 {
		ui.Port = DefaultUIPort
	}
	if ui.SessionSecret == "" {
		ui.SessionSecret = "datadeck-dev-secret"
	}
	return ui
}
