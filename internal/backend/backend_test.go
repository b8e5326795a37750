package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatClient_SessionContinuity(t *testing.T) {
	var gotSessions []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/send", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		session, _ := req["session_id"].(string)
		gotSessions = append(gotSessions, session)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"session_id": "sess-1",
			"agent":      req["agent"],
			"response":   "hello",
		})
	}))
	defer srv.Close()

	client := NewChatClient(Config{BaseURL: srv.URL})

	resp, err := client.Send(context.Background(), "hi", "")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", resp.SessionID)
	assert.Equal(t, DefaultAgent, resp.Agent)

	_, err = client.Send(context.Background(), "again", "sql_agent")
	require.NoError(t, err)

	// First send carries no session, second send reuses the returned one.
	assert.Equal(t, []string{"", "sess-1"}, gotSessions)
	assert.Equal(t, "sess-1", client.SessionID())

	client.ResetSession()
	assert.Empty(t, client.SessionID())
}

func TestChatClient_ErrorSurfacesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "agent exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewChatClient(Config{BaseURL: srv.URL})

	_, err := client.Send(context.Background(), "hi", "orchestrator")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "/chat/send", apiErr.Endpoint)
	assert.Contains(t, apiErr.Body, "agent exploded")
}

func TestChatClient_HistoryRequiresSession(t *testing.T) {
	client := NewChatClient(Config{BaseURL: "http://127.0.0.1:0"})
	_, err := client.History(context.Background())
	require.Error(t, err)
}

func TestFileClient_UploadMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/files/upload", r.URL.Path)

		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "sales.csv", header.Filename)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"message":  "File uploaded",
			"file_id":  "f-1",
			"filename": header.Filename,
			"status":   "pending",
		})
	}))
	defer srv.Close()

	client := NewFileClient(Config{BaseURL: srv.URL})

	result, err := client.Upload(context.Background(), "sales.csv", strings.NewReader("a,b\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, "f-1", result.FileID)
	assert.Equal(t, FilePending, result.Status)
}

func TestFileClient_ListAndStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/files/list":
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"id": "f-1", "filename": "sales.csv", "file_type": "csv", "size": 128, "status": "indexed", "chunks_indexed": 4},
			})
		case "/files/f-1/status":
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "indexed", "chunks_indexed": 4})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewFileClient(Config{BaseURL: srv.URL})

	files, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, FileIndexed, files[0].Status)
	require.NotNil(t, files[0].ChunksIndexed)
	assert.Equal(t, 4, *files[0].ChunksIndexed)

	status, err := client.Status(context.Background(), "f-1")
	require.NoError(t, err)
	assert.Equal(t, FileIndexed, status.Status)
}

func TestClusterClient_ExecuteDefaultsLanguage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/databricks/execute", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "python", req["language"])
		assert.Equal(t, "c-1", req["cluster_id"])

		_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "output": "42"})
	}))
	defer srv.Close()

	client := NewClusterClient(Config{BaseURL: srv.URL})

	result, err := client.Execute(context.Background(), "c-1", "print(42)", "")
	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, "42", result.Output)
}

func TestClusterClient_Lifecycle(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.RequestURI())
		if r.URL.Path == "/databricks/clusters" {
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"cluster_id": "c-1", "cluster_name": "analytics", "state": "RUNNING", "num_workers": 2},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	}))
	defer srv.Close()

	client := NewClusterClient(Config{BaseURL: srv.URL})
	ctx := context.Background()

	clusters, err := client.List(ctx)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, ClusterRunning, clusters[0].State)

	require.NoError(t, client.Start(ctx, "c-1"))
	require.NoError(t, client.Stop(ctx, "c-1"))
	require.NoError(t, client.DestroyContext(ctx, "c-1"))

	assert.Equal(t, []string{
		"GET /databricks/clusters",
		"POST /databricks/clusters/c-1/start",
		"POST /databricks/clusters/c-1/stop",
		"POST /databricks/context/destroy?cluster_id=c-1",
	}, paths)
}
