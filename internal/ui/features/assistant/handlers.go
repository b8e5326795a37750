// Package assistant serves the chat panel: the transcript, the send flow
// with its typing indicator, scroll tracking, and the send-to-sandbox
// hand-off.
package assistant

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/datadeck-labs/datadeck/internal/chatpanel"
	"github.com/datadeck-labs/datadeck/internal/notebook"
	"github.com/datadeck-labs/datadeck/internal/store"
	"github.com/datadeck-labs/datadeck/internal/ui/features/common"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"
)

// sessionName is the cookie session holding per-browser assistant prefs.
const sessionName = "datadeck-assistant"

// Handlers provides HTTP handlers for the assistant feature.
type Handlers struct {
	store        *store.Store
	panel        *chatpanel.Panel
	sandbox      *notebook.Controller
	sessionStore sessions.Store
	logger       *slog.Logger
}

// NewHandlers creates a Handlers instance.
func NewHandlers(st *store.Store, panel *chatpanel.Panel, sandbox *notebook.Controller, sessionStore sessions.Store, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		store:        st,
		panel:        panel,
		sandbox:      sandbox,
		sessionStore: sessionStore,
		logger:       logger,
	}
}

// transcriptView is the panel state the front end renders from.
type transcriptView struct {
	Messages       []store.AIMessage `json:"messages"`
	Typing         bool              `json:"typing"`
	ScrollPosition int               `json:"scrollPosition"`
	PanelOpen      bool              `json:"panelOpen"`
}

func (h *Handlers) view() transcriptView {
	return transcriptView{
		Messages:       h.store.AIMessages(),
		Typing:         h.panel.Typing(),
		ScrollPosition: h.store.AIScrollPosition(),
		PanelOpen:      h.store.AIPanelOpen(),
	}
}

// Messages returns the transcript and panel state.
func (h *Handlers) Messages(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, h.view())
}

type sendSignals struct {
	Message string `json:"message"`
}

// Send runs the chat send flow over SSE: the typing indicator is patched on
// before the backend call and off after, so the browser renders the
// in-flight state without polling. Backend failures show up as an assistant
// message, never as a failed request.
func (h *Handlers) Send(w http.ResponseWriter, r *http.Request) {
	// Signals must be read before the SSE stream consumes the body.
	var signals sendSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		common.Error(w, http.StatusBadRequest, "failed to read signals")
		return
	}

	sse := datastar.NewSSE(w, r)

	if strings.TrimSpace(signals.Message) == "" {
		_ = sse.MarshalAndPatchSignals(map[string]any{"inputError": "Type a message first"})
		return
	}

	agent := h.sessionAgent(r)

	_ = sse.MarshalAndPatchSignals(map[string]any{"typing": true, "inputError": ""})

	if err := h.panel.SendAs(r.Context(), signals.Message, agent); err != nil {
		// Only validation errors reach here; backend failures were already
		// converted into an assistant message by the panel.
		_ = sse.MarshalAndPatchSignals(map[string]any{"typing": false, "inputError": err.Error()})
		return
	}

	_ = sse.MarshalAndPatchSignals(map[string]any{"typing": false, "message": ""})
}

// Clear empties the transcript.
func (h *Handlers) Clear(w http.ResponseWriter, _ *http.Request) {
	h.panel.ClearTranscript()
	w.WriteHeader(http.StatusNoContent)
}

type scrollRequest struct {
	Offset         int `json:"offset"`
	ViewportHeight int `json:"viewportHeight"`
	ContentHeight  int `json:"contentHeight"`
}

// Scroll records the transcript scroll position and the near-bottom state
// that decides whether new messages auto-scroll.
func (h *Handlers) Scroll(w http.ResponseWriter, r *http.Request) {
	var req scrollRequest
	if err := common.Decode(r, &req); err != nil {
		common.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.panel.TrackScroll(req.Offset, req.ViewportHeight, req.ContentHeight)
	common.JSON(w, http.StatusOK, map[string]bool{"autoScroll": h.panel.ShouldAutoScroll()})
}

// ToSandbox creates a query from a message's extracted code and seeds the
// sandbox with it.
func (h *Handlers) ToSandbox(w http.ResponseWriter, r *http.Request) {
	q, err := h.panel.SendToSandbox(chi.URLParam(r, "id"))
	switch err {
	case nil:
	case chatpanel.ErrMessageNotFound:
		common.Error(w, http.StatusNotFound, err.Error())
		return
	case chatpanel.ErrNoCode:
		common.Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	default:
		common.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.sandbox.SeedFromQuery(q)
	common.JSON(w, http.StatusOK, q)
}

type agentRequest struct {
	Agent string `json:"agent"`
}

// Agent returns the agent this browser routes messages to.
func (h *Handlers) Agent(w http.ResponseWriter, r *http.Request) {
	common.JSON(w, http.StatusOK, agentRequest{Agent: h.sessionAgent(r)})
}

// SetAgent stores the agent choice in the browser session.
func (h *Handlers) SetAgent(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if err := common.Decode(r, &req); err != nil || req.Agent == "" {
		common.Error(w, http.StatusBadRequest, "agent is required")
		return
	}

	session, _ := h.sessionStore.Get(r, sessionName)
	session.Values["agent"] = req.Agent
	if err := session.Save(r, w); err != nil {
		h.logger.Warn("failed to save session", "error", err)
	}
	common.JSON(w, http.StatusOK, req)
}

func (h *Handlers) sessionAgent(r *http.Request) string {
	session, err := h.sessionStore.Get(r, sessionName)
	if err != nil {
		return ""
	}
	agent, _ := session.Values["agent"].(string)
	return agent
}
