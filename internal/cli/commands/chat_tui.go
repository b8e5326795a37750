package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/datadeck-labs/datadeck/internal/backend"
	"github.com/datadeck-labs/datadeck/internal/reply"
	"github.com/spf13/cobra"
)

// nearBottomLines is how close (in lines) to the transcript bottom the
// viewport must be for new replies to scroll it. A reader who has scrolled
// further up keeps their place.
const nearBottomLines = 4

var (
	userLabelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	replyLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type chatTurn struct {
	role    string // "you" or the agent name
	content string
	code    string
	err     bool
}

type replyMsg struct {
	resp *backend.ChatResponse
	err  error
}

type chatModel struct {
	ctx    context.Context
	client *backend.ChatClient
	agent  string

	viewport viewport.Model
	input    textarea.Model
	spin     spinner.Model

	turns   []chatTurn
	waiting bool
	ready   bool
}

func newChatModel(ctx context.Context, client *backend.ChatClient, agent string) chatModel {
	input := textarea.New()
	input.Placeholder = "Ask about your data..."
	input.SetHeight(2)
	input.CharLimit = 4000
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return chatModel{
		ctx:    ctx,
		client: client,
		agent:  agent,
		input:  input,
		spin:   spin,
	}
}

func (m chatModel) Init() tea.Cmd {
	return textarea.Blink
}

func (m chatModel) send(text string) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.client.Send(m.ctx, text, m.agent)
		return replyMsg{resp: resp, err: err}
	}
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		inputHeight := m.input.Height() + 2
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-inputHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - inputHeight
		}
		m.input.SetWidth(msg.Width)
		m.refreshTranscript(true)

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlL:
			m.turns = nil
			m.client.ResetSession()
			m.refreshTranscript(true)
			return m, nil
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.waiting {
				return m, nil
			}
			m.turns = append(m.turns, chatTurn{role: "you", content: text})
			m.input.Reset()
			m.waiting = true
			m.refreshTranscript(true)
			return m, tea.Batch(m.send(text), m.spin.Tick)
		}

	case replyMsg:
		m.waiting = false
		atBottom := m.nearBottom()
		if msg.err != nil {
			m.turns = append(m.turns, chatTurn{
				role:    m.agent,
				content: "Backend unreachable: " + msg.err.Error(),
				err:     true,
			})
		} else {
			parsed := reply.Parse(msg.resp.Response)
			m.turns = append(m.turns, chatTurn{
				role:    msg.resp.Agent,
				content: renderTurnContent(parsed),
				code:    parsed.Code,
			})
		}
		// Only follow the transcript if the reader was already at the
		// bottom; otherwise keep their scroll position.
		m.refreshTranscript(atBottom)
		return m, nil

	case spinner.TickMsg:
		if m.waiting {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// nearBottom reports whether the viewport sits within a few lines of the
// transcript bottom.
func (m chatModel) nearBottom() bool {
	total := m.viewport.TotalLineCount()
	visible := m.viewport.Height
	return m.viewport.YOffset >= total-visible-nearBottomLines
}

func (m *chatModel) refreshTranscript(follow bool) {
	if !m.ready {
		return
	}

	var b strings.Builder
	for i, turn := range m.turns {
		if i > 0 {
			b.WriteString("\n")
		}
		label := replyLabelStyle.Render(turn.role)
		if turn.role == "you" {
			label = userLabelStyle.Render("you")
		}
		b.WriteString(label + "\n")
		if turn.err {
			b.WriteString(errorStyle.Render(turn.content) + "\n")
			continue
		}
		b.WriteString(turn.content + "\n")
	}

	m.viewport.SetContent(b.String())
	if follow {
		m.viewport.GotoBottom()
	}
}

func renderTurnContent(parsed reply.Reply) string {
	var b strings.Builder
	if content := strings.TrimSpace(parsed.Content); content != "" {
		b.WriteString(content)
	}
	if parsed.Code != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(codeStyle.Render(parsed.Code))
	}
	if len(parsed.Suggestions) > 0 {
		b.WriteString("\n")
		for _, s := range parsed.Suggestions {
			b.WriteString("\n" + suggestionStyle.Render("  - "+s))
		}
	}
	return b.String()
}

func (m chatModel) View() string {
	if !m.ready {
		return "loading..."
	}

	status := hintStyle.Render("enter to send, ctrl+l to clear, esc to quit")
	if m.waiting {
		status = m.spin.View() + " thinking..."
	}

	return fmt.Sprintf("%s\n%s\n%s", m.viewport.View(), m.input.View(), status)
}

func runChatTUI(cmd *cobra.Command) error {
	cfg := getConfig()
	client := backend.NewChatClient(backendClientConfig(cfg))

	model := newChatModel(cmd.Context(), client, cfg.GetBackendConfig().Agent)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	_, err := p.Run()
	return err
}
