package store

import (
	"encoding/json"
	"time"
)

// SourceKind classifies a connected data input.
type SourceKind string

// Source kinds.
const (
	SourceTabularFile     SourceKind = "tabular-file"
	SourceSpreadsheetFile SourceKind = "spreadsheet-file"
	SourceStructuredFile  SourceKind = "structured-file"
	SourceDatabase        SourceKind = "database-connection"
	SourceAPI             SourceKind = "api-connection"
)

// SourceStatus represents the connection state of a data source.
type SourceStatus string

// Source status constants.
const (
	SourceConnected    SourceStatus = "connected"
	SourceDisconnected SourceStatus = "disconnected"
	SourceError        SourceStatus = "error"
)

// DataSource is a connected input: an uploaded file or a live connection.
type DataSource struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Kind        SourceKind   `json:"kind"`
	Status      SourceStatus `json:"status"`
	ConnectedAt time.Time    `json:"connectedAt"`
}

// ArtifactKind classifies a query result rendering.
type ArtifactKind string

// Artifact kinds.
const (
	ArtifactChart ArtifactKind = "chart"
	ArtifactTable ArtifactKind = "table"
	ArtifactKPI   ArtifactKind = "kpi"
	ArtifactModel ArtifactKind = "model"
)

// Artifact is a renderable result attached to a Query. The payload is opaque
// to the store; views interpret it per kind.
type Artifact struct {
	ID     string          `json:"id"`
	Kind   ArtifactKind    `json:"kind"`
	Title  string          `json:"title,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// Query pairs a natural-language prompt with generated code and its result.
// Number is a display label assigned at creation time; it is not reassigned
// on deletion, so gaps can appear and it must not be used as a key.
type Query struct {
	ID        string     `json:"id"`
	Number    int        `json:"number"`
	Prompt    string     `json:"prompt"`
	Code      string     `json:"code"`
	Output    string     `json:"output"`
	Artifacts []Artifact `json:"artifacts"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Role identifies the author of a transcript message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// AIMessage is one immutable turn in the assistant transcript. Code is set
// only when a fenced block was successfully extracted from the raw response;
// Content for such a message has had the fenced block and any suggestions
// section removed. A nil Suggestions slice means none were offered.
type AIMessage struct {
	ID          string    `json:"id"`
	Role        Role      `json:"role"`
	Content     string    `json:"content"`
	Code        string    `json:"code,omitempty"`
	Suggestions []string  `json:"suggestions,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Snapshot is the persisted subset of the store. UI toggles and the active
// artifact are deliberately excluded; they reset to defaults on restore.
type Snapshot struct {
	DataSources      []DataSource `json:"dataSources"`
	Queries          []Query      `json:"queries"`
	AIMessages       []AIMessage  `json:"aiMessages"`
	IsConnected      bool         `json:"isConnected"`
	AIScrollPosition int          `json:"aiScrollPosition"`
}

// QueryPatch holds optional field updates for UpdateQuery. Nil fields are
// left unchanged.
type QueryPatch struct {
	Prompt    *string
	Code      *string
	Output    *string
	Artifacts []Artifact
}
