package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/datadeck-labs/datadeck/internal/backend"
	"github.com/datadeck-labs/datadeck/internal/reply"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

// ChatOptions holds options for the chat command.
type ChatOptions struct {
	Interactive bool
	Format      string
}

// NewChatCommand creates the chat command.
func NewChatCommand() *cobra.Command {
	opts := &ChatOptions{}

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Talk to the assistant from the terminal",
		Long: `Send a message to the assistant backend and print the parsed reply:
the prose, any extracted code block, and suggested follow-ups.

Without a message (or with --interactive) an interactive session opens.`,
		Example: `  # One-shot question
  datadeck chat "plot revenue by region"

  # Route to a specific agent
  datadeck chat --agent sql_expert "top customers by order count"

  # Interactive session
  datadeck chat -i`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Interactive || len(args) == 0 {
				return runChatTUI(cmd)
			}
			return runChatOnce(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Interactive, "interactive", "i", false, "Open an interactive session")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, json")

	return cmd
}

func runChatOnce(cmd *cobra.Command, message string, opts *ChatOptions) error {
	cfg := getConfig()

	client := backend.NewChatClient(backendClientConfig(cfg))
	resp, err := client.Send(cmd.Context(), message, cfg.GetBackendConfig().Agent)
	if err != nil {
		return fmt.Errorf("chat backend unreachable at %s: %w", cfg.GetBackendConfig().URL, err)
	}

	parsed := reply.Parse(resp.Response)

	if opts.Format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Agent       string   `json:"agent"`
			SessionID   string   `json:"session_id"`
			Content     string   `json:"content"`
			Code        string   `json:"code,omitempty"`
			Suggestions []string `json:"suggestions,omitempty"`
		}{resp.Agent, resp.SessionID, parsed.Content, parsed.Code, parsed.Suggestions})
	}

	printParsedReply(cmd, resp.Agent, parsed)
	return nil
}

var (
	agentStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	codeStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).PaddingLeft(2)
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// styled reports whether the terminal supports colored output.
func styled() bool {
	return termenv.EnvColorProfile() != termenv.Ascii
}

func printParsedReply(cmd *cobra.Command, agent string, parsed reply.Reply) {
	out := cmd.OutOrStdout()

	header := agent
	if styled() {
		header = agentStyle.Render(agent)
	}
	_, _ = fmt.Fprintf(out, "%s:\n", header)

	if content := strings.TrimSpace(parsed.Content); content != "" {
		_, _ = fmt.Fprintln(out, content)
	}

	if parsed.Code != "" {
		_, _ = fmt.Fprintln(out)
		code := parsed.Code
		if styled() {
			code = codeStyle.Render(code)
		}
		_, _ = fmt.Fprintln(out, code)
	}

	if len(parsed.Suggestions) > 0 {
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, "Suggestions:")
		for _, s := range parsed.Suggestions {
			line := "  - " + s
			if styled() {
				line = suggestionStyle.Render(line)
			}
			_, _ = fmt.Fprintln(out, line)
		}
	}
}
