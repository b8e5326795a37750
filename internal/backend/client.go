// Package backend provides typed clients for the three remote services the
// dashboard consumes: the chat agents, the file indexing pipeline, and the
// Databricks-style code execution service.
//
// The clients are thin request/response wrappers. None of them retries;
// failures surface to the caller, which decides how to degrade. The only
// client-side state is the chat session identifier.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds every backend request unless the config overrides it.
// A stalled backend must not pin the UI in a running state forever.
const DefaultTimeout = 60 * time.Second

// Config holds shared client configuration.
type Config struct {
	// BaseURL is the backend root including the API prefix,
	// e.g. "http://localhost:8000/api/v1".
	BaseURL string
	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration
}

// APIError reports a non-2xx backend response.
type APIError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend request %s failed with status %d: %s", e.Endpoint, e.Status, e.Body)
}

// restClient is the shared HTTP plumbing under the typed clients.
type restClient struct {
	base string
	http *http.Client
}

func newRESTClient(cfg Config) *restClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &restClient{
		base: cfg.BaseURL,
		http: &http.Client{Timeout: timeout},
	}
}

// doJSON performs a request with an optional JSON body and decodes a JSON
// response into out (which may be nil to discard the body).
func (c *restClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request %s: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, path, out)
}

// do sends a prepared request and decodes the JSON response into out.
func (c *restClient) do(req *http.Request, path string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Endpoint: path, Status: resp.StatusCode, Body: string(bytes.TrimSpace(detail))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}
