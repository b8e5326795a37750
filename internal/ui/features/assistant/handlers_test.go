package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/datadeck-labs/datadeck/internal/backend"
	"github.com/datadeck-labs/datadeck/internal/chatpanel"
	"github.com/datadeck-labs/datadeck/internal/notebook"
	"github.com/datadeck-labs/datadeck/internal/store"
	"github.com/datadeck-labs/datadeck/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	response *backend.ChatResponse
	err      error
	agents   []string
}

func (f *fakeSender) Send(_ context.Context, _, agent string) (*backend.ChatResponse, error) {
	f.agents = append(f.agents, agent)
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

type noopExecutor struct{}

func (noopExecutor) Execute(context.Context, string, string, string) (*backend.ExecutionResult, error) {
	return &backend.ExecutionResult{Status: "success"}, nil
}

func (noopExecutor) DestroyContext(context.Context, string) error { return nil }

func newTestRouter(t *testing.T, sender chatpanel.Sender) (*chi.Mux, *store.Store, *notebook.Controller) {
	t.Helper()

	st := store.New(store.Options{SkipDemoSeed: true})
	panel := chatpanel.New(chatpanel.Options{
		Store:      st,
		Chat:       sender,
		BackendURL: "http://localhost:8000/api/v1",
	})
	nb := notebook.New(notebook.Options{Executor: noopExecutor{}, MarkdownDelay: -1})

	r := chi.NewRouter()
	SetupRoutes(r, st, panel, nb, sessions.NewCookieStore([]byte("test-key")), testutil.NewTestLogger(t))
	return r, st, nb
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSendAppendsBothSides(t *testing.T) {
	sender := &fakeSender{response: &backend.ChatResponse{
		SessionID: "sess-1",
		Agent:     "orchestrator",
		Response:  "Try this:\n```python\ndf.head()\n```",
	}}
	r, st, _ := newTestRouter(t, sender)

	w := doJSON(t, r, http.MethodPost, "/api/assistant/send", map[string]string{"message": "show data"})
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `"typing":true`)
	assert.Contains(t, body, `"typing":false`)

	msgs := st.AIMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, store.RoleUser, msgs[0].Role)
	assert.Equal(t, "show data", msgs[0].Content)
	assert.Equal(t, store.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "df.head()", msgs[1].Code)
}

func TestSendEmptyMessage(t *testing.T) {
	sender := &fakeSender{}
	r, st, _ := newTestRouter(t, sender)

	w := doJSON(t, r, http.MethodPost, "/api/assistant/send", map[string]string{"message": "   "})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Contains(t, w.Body.String(), "inputError")
	assert.Empty(t, st.AIMessages(), "nothing should be appended for blank input")
	assert.Empty(t, sender.agents, "the backend should not be called")
}

func TestSendBackendDown(t *testing.T) {
	sender := &fakeSender{err: errors.New("connection refused")}
	r, st, _ := newTestRouter(t, sender)

	w := doJSON(t, r, http.MethodPost, "/api/assistant/send", map[string]string{"message": "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"typing":false`)

	msgs := st.AIMessages()
	require.Len(t, msgs, 2, "the user message stays, a failure notice is appended")
	assert.Equal(t, store.RoleAssistant, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "http://localhost:8000/api/v1")
}

func TestClearEmptiesTranscript(t *testing.T) {
	r, st, _ := newTestRouter(t, &fakeSender{})
	st.AddAIMessage(store.RoleUser, "hello", "", nil)

	w := doJSON(t, r, http.MethodPost, "/api/assistant/clear", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, st.AIMessages())
}

func TestScrollTracksNearBottom(t *testing.T) {
	r, st, _ := newTestRouter(t, &fakeSender{})

	// 100px from the bottom: inside the threshold, auto-scroll stays on.
	w := doJSON(t, r, http.MethodPut, "/api/assistant/scroll", scrollRequest{
		Offset: 500, ViewportHeight: 400, ContentHeight: 1000,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp["autoScroll"])
	assert.Equal(t, 500, st.AIScrollPosition())

	// Scrolled far up: appends must not move the view.
	w = doJSON(t, r, http.MethodPut, "/api/assistant/scroll", scrollRequest{
		Offset: 0, ViewportHeight: 400, ContentHeight: 1000,
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp["autoScroll"])
}

func TestToSandboxSeedsNotebook(t *testing.T) {
	r, st, nb := newTestRouter(t, &fakeSender{})
	st.AddAIMessage(store.RoleUser, "show revenue", "", nil)
	msg := st.AddAIMessage(store.RoleAssistant, "Here you go", "df.plot()", nil)

	w := doJSON(t, r, http.MethodPost, "/api/assistant/messages/"+msg.ID+"/sandbox", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var q store.Query
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))
	assert.Equal(t, "show revenue", q.Prompt)
	assert.Equal(t, "df.plot()", q.Code)

	cells := nb.Cells()
	require.NotEmpty(t, cells)

	var sources []string
	for _, c := range cells {
		sources = append(sources, c.Source)
	}
	assert.Contains(t, sources, "df.plot()")
}

func TestToSandboxErrors(t *testing.T) {
	r, st, _ := newTestRouter(t, &fakeSender{})
	noCode := st.AddAIMessage(store.RoleAssistant, "just prose", "", nil)

	w := doJSON(t, r, http.MethodPost, "/api/assistant/messages/missing/sandbox", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/assistant/messages/"+noCode.ID+"/sandbox", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAgentPreferenceRoundTrip(t *testing.T) {
	sender := &fakeSender{response: &backend.ChatResponse{Response: "ok"}}
	r, _, _ := newTestRouter(t, sender)

	w := doJSON(t, r, http.MethodPut, "/api/assistant/agent", agentRequest{Agent: "sql_expert"})
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	// A send from the same browser session routes to the stored agent.
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(map[string]string{"message": "hi"}))
	req := httptest.NewRequest(http.MethodPost, "/api/assistant/send", &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, sender.agents, 1)
	assert.Equal(t, "sql_expert", sender.agents[0])
}

func TestAgentRequired(t *testing.T) {
	r, _, _ := newTestRouter(t, &fakeSender{})

	w := doJSON(t, r, http.MethodPut, "/api/assistant/agent", agentRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
