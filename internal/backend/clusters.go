package backend

import (
	"context"
	"net/http"
	"net/url"
)

// Cluster lifecycle states reported by the execution service.
const (
	ClusterRunning     = "RUNNING"
	ClusterPending     = "PENDING"
	ClusterTerminated  = "TERMINATED"
	ClusterTerminating = "TERMINATING"
)

// DefaultLanguage is used when Execute is called with an empty language.
const DefaultLanguage = "python"

// ClusterClient talks to the Databricks-style code execution service.
type ClusterClient struct {
	rest *restClient
}

// NewClusterClient creates a cluster execution client.
func NewClusterClient(cfg Config) *ClusterClient {
	return &ClusterClient{rest: newRESTClient(cfg)}
}

// Cluster describes one remote compute cluster.
type Cluster struct {
	ClusterID   string `json:"cluster_id"`
	ClusterName string `json:"cluster_name"`
	State       string `json:"state"`
	DriverType  string `json:"driver_type,omitempty"`
	NumWorkers  int    `json:"num_workers,omitempty"`
}

// ExecutionResult is the outcome of running a code string on a cluster.
// Status is "success" or "error"; Error carries the failure text when set.
type ExecutionResult struct {
	Status string `json:"status"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

type executeRequest struct {
	ClusterID string `json:"cluster_id"`
	Code      string `json:"code"`
	Language  string `json:"language"`
}

// List returns all clusters visible to the execution service.
func (c *ClusterClient) List(ctx context.Context) ([]Cluster, error) {
	var clusters []Cluster
	if err := c.rest.doJSON(ctx, http.MethodGet, "/databricks/clusters", nil, &clusters); err != nil {
		return nil, err
	}
	return clusters, nil
}

// Start requests a cluster start. The state transition is asynchronous on
// the remote side.
func (c *ClusterClient) Start(ctx context.Context, clusterID string) error {
	path := "/databricks/clusters/" + url.PathEscape(clusterID) + "/start"
	return c.rest.doJSON(ctx, http.MethodPost, path, nil, nil)
}

// Stop requests cluster termination.
func (c *ClusterClient) Stop(ctx context.Context, clusterID string) error {
	path := "/databricks/clusters/" + url.PathEscape(clusterID) + "/stop"
	return c.rest.doJSON(ctx, http.MethodPost, path, nil, nil)
}

// Execute runs a code string in the execution context tied to the cluster.
// An empty language defaults to python.
func (c *ClusterClient) Execute(ctx context.Context, clusterID, code, language string) (*ExecutionResult, error) {
	if language == "" {
		language = DefaultLanguage
	}

	var result ExecutionResult
	req := executeRequest{ClusterID: clusterID, Code: code, Language: language}
	if err := c.rest.doJSON(ctx, http.MethodPost, "/databricks/execute", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DestroyContext discards the remote execution context for a cluster, so
// the next execution starts from a clean interpreter.
func (c *ClusterClient) DestroyContext(ctx context.Context, clusterID string) error {
	path := "/databricks/context/destroy?cluster_id=" + url.QueryEscape(clusterID)
	return c.rest.doJSON(ctx, http.MethodPost, path, nil, nil)
}
