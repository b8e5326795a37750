// Package chatpanel drives the assistant panel: it owns the send flow, the
// typing indicator, transcript scroll behavior, and the hand-off of
// extracted code into the sandbox.
package chatpanel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/datadeck-labs/datadeck/internal/backend"
	"github.com/datadeck-labs/datadeck/internal/reply"
	"github.com/datadeck-labs/datadeck/internal/store"
)

// NearBottomThreshold is how close (in pixels) to the transcript bottom the
// view must be for new messages to auto-scroll it. A reader who has scrolled
// further up is never interrupted.
const NearBottomThreshold = 120

// ErrEmptyMessage rejects whitespace-only input before any state changes.
var ErrEmptyMessage = errors.New("message is empty")

// ErrMessageNotFound is returned when an operation names an unknown message.
var ErrMessageNotFound = errors.New("message not found")

// ErrNoCode is returned when a message without extracted code is sent to the
// sandbox.
var ErrNoCode = errors.New("message has no extracted code")

// Sender submits one message to the chat backend. backend.ChatClient
// satisfies it.
type Sender interface {
	Send(ctx context.Context, message, agent string) (*backend.ChatResponse, error)
}

// Panel is the chat panel controller. Ephemeral view state (typing flag,
// near-bottom tracking) lives here; everything durable lives in the store.
type Panel struct {
	store      *store.Store
	chat       Sender
	agent      string
	backendURL string
	logger     *slog.Logger

	mu         sync.Mutex
	typing     bool
	nearBottom bool
}

// Options configures a Panel.
type Options struct {
	Store *store.Store
	Chat  Sender
	// Agent is the agent identifier messages are routed to.
	Agent string
	// BackendURL is named in the error message shown when the backend is
	// unreachable.
	BackendURL string
	Logger     *slog.Logger
}

// New creates a Panel. A fresh panel is considered scrolled to the bottom.
func New(opts Options) *Panel {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	agent := opts.Agent
	if agent == "" {
		agent = backend.DefaultAgent
	}
	return &Panel{
		store:      opts.Store,
		chat:       opts.Chat,
		agent:      agent,
		backendURL: opts.BackendURL,
		logger:     logger,
		nearBottom: true,
	}
}

// Typing reports whether a send is in flight. Advisory only: a second send
// while one is outstanding is allowed.
func (p *Panel) Typing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.typing
}

func (p *Panel) setTyping(v bool) {
	p.mu.Lock()
	p.typing = v
	p.mu.Unlock()
}

// Send runs the full send flow against the panel's default agent.
func (p *Panel) Send(ctx context.Context, text string) error {
	return p.SendAs(ctx, text, p.agent)
}

// SendAs runs the full send flow: optimistic user append, typing indicator,
// backend call, parse, assistant append. Backend failures degrade to a
// fixed assistant-style message; they are never returned. The typing
// indicator is cleared on every path out.
func (p *Panel) SendAs(ctx context.Context, text, agent string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if agent == "" {
		agent = p.agent
	}

	p.store.AddAIMessage(store.RoleUser, text, "", nil)

	p.setTyping(true)
	defer p.setTyping(false)

	resp, err := p.chat.Send(ctx, text, agent)
	if err != nil {
		p.logger.Warn("chat backend unreachable", "error", err)
		p.store.AddAIMessage(store.RoleAssistant, p.unreachableMessage(), "", nil)
		return nil
	}

	parsed := reply.Parse(resp.Response)
	p.store.AddAIMessage(store.RoleAssistant, parsed.Content, parsed.Code, parsed.Suggestions)
	return nil
}

func (p *Panel) unreachableMessage() string {
	return fmt.Sprintf(
		"I couldn't reach the assistant backend at %s. Make sure the API server is running, then try again.",
		p.backendURL,
	)
}

// TrackScroll records the transcript scroll offset (persisted for continuity
// across reloads) and whether the view sits near the bottom.
func (p *Panel) TrackScroll(offset, viewportHeight, contentHeight int) {
	distanceFromBottom := contentHeight - (offset + viewportHeight)

	p.mu.Lock()
	p.nearBottom = distanceFromBottom <= NearBottomThreshold
	p.mu.Unlock()

	p.store.SetAIScrollPosition(offset)
}

// ShouldAutoScroll reports whether an appended message may scroll the
// transcript into view.
func (p *Panel) ShouldAutoScroll() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nearBottom
}

// ScrollAfterAppend returns the scroll offset the transcript should adopt
// after a new message: the bottom when the reader was already near it, the
// unchanged persisted offset otherwise.
func (p *Panel) ScrollAfterAppend(viewportHeight, contentHeight int) int {
	if !p.ShouldAutoScroll() {
		return p.store.AIScrollPosition()
	}

	bottom := contentHeight - viewportHeight
	if bottom < 0 {
		bottom = 0
	}
	p.store.SetAIScrollPosition(bottom)
	return bottom
}

// SendToSandbox creates a Query from a message's extracted code and its
// originating prompt (the nearest preceding user message), and makes it the
// active query so the sandbox seeds from it.
func (p *Panel) SendToSandbox(messageID string) (store.Query, error) {
	messages := p.store.AIMessages()

	idx := -1
	for i := range messages {
		if messages[i].ID == messageID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return store.Query{}, ErrMessageNotFound
	}
	if messages[idx].Code == "" {
		return store.Query{}, ErrNoCode
	}

	prompt := messages[idx].Content
	for i := idx - 1; i >= 0; i-- {
		if messages[i].Role == store.RoleUser {
			prompt = messages[i].Content
			break
		}
	}

	return p.store.AddQuery(prompt, messages[idx].Code), nil
}

// ClearTranscript empties the transcript. Queries and data sources are
// untouched.
func (p *Panel) ClearTranscript() {
	p.store.ClearAIMessages()
}
