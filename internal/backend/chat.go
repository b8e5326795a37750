package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// DefaultAgent is the agent queries are routed to when none is named.
const DefaultAgent = "orchestrator"

// ChatClient talks to the chat agents service. It remembers the session
// identifier returned by the first send so the conversation continues across
// calls; only one conversation is tracked at a time.
type ChatClient struct {
	rest *restClient

	mu        sync.Mutex
	sessionID string
}

// NewChatClient creates a chat client.
func NewChatClient(cfg Config) *ChatClient {
	return &ChatClient{rest: newRESTClient(cfg)}
}

// ChatResponse is one completed agent turn.
type ChatResponse struct {
	SessionID string    `json:"session_id"`
	Agent     string    `json:"agent"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
	Sources   []string  `json:"sources,omitempty"`
}

// ChatHistoryMessage is one stored turn in a session transcript.
type ChatHistoryMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Agent     string    `json:"agent,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	Sources   []string  `json:"sources,omitempty"`
}

// ChatHistory is the server-side transcript for a session.
type ChatHistory struct {
	SessionID    string               `json:"session_id"`
	Messages     []ChatHistoryMessage `json:"messages"`
	MessageCount int                  `json:"message_count"`
}

type chatSendRequest struct {
	Message   string `json:"message"`
	Agent     string `json:"agent"`
	SessionID string `json:"session_id,omitempty"`
}

// Send submits a message to the named agent and returns the completed
// response. The returned session identifier is kept for subsequent calls.
func (c *ChatClient) Send(ctx context.Context, message, agent string) (*ChatResponse, error) {
	if agent == "" {
		agent = DefaultAgent
	}

	c.mu.Lock()
	session := c.sessionID
	c.mu.Unlock()

	var resp ChatResponse
	req := chatSendRequest{Message: message, Agent: agent, SessionID: session}
	if err := c.rest.doJSON(ctx, http.MethodPost, "/chat/send", req, &resp); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.sessionID = resp.SessionID
	c.mu.Unlock()

	return &resp, nil
}

// SessionID returns the current session identifier, empty before the first
// successful send.
func (c *ChatClient) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// ResetSession forgets the local session identifier. The next send starts a
// fresh conversation.
func (c *ChatClient) ResetSession() {
	c.mu.Lock()
	c.sessionID = ""
	c.mu.Unlock()
}

// History fetches the server-side transcript for the current session.
func (c *ChatClient) History(ctx context.Context) (*ChatHistory, error) {
	c.mu.Lock()
	session := c.sessionID
	c.mu.Unlock()

	if session == "" {
		return nil, fmt.Errorf("no active chat session")
	}

	var hist ChatHistory
	path := "/chat/history/" + url.PathEscape(session)
	if err := c.rest.doJSON(ctx, http.MethodGet, path, nil, &hist); err != nil {
		return nil, err
	}
	return &hist, nil
}

// ClearHistory deletes the server-side transcript for the current session
// and resets the local session identifier.
func (c *ChatClient) ClearHistory(ctx context.Context) error {
	c.mu.Lock()
	session := c.sessionID
	c.mu.Unlock()

	if session == "" {
		return nil
	}

	path := "/chat/history/" + url.PathEscape(session)
	if err := c.rest.doJSON(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return err
	}

	c.ResetSession()
	return nil
}
