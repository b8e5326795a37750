// Package store holds the authoritative application state for the dashboard:
// data sources, query history, the assistant transcript, and UI flags.
//
// The store is an explicit context object passed to controllers and serving
// surfaces; there is no package-level singleton. All mutations go through its
// methods, execute synchronously under one mutex, and are atomic. Views read
// via the accessor methods and react to change pings from Subscribe.
package store

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Persister saves and restores the durable snapshot subset. Implementations
// must tolerate missing data on Load (ok=false) rather than erroring.
type Persister interface {
	Save(snap Snapshot) error
	Load() (snap Snapshot, ok bool, err error)
}

// Store is the single source of truth for dashboard state.
type Store struct {
	mu sync.Mutex

	dataSources []DataSource
	queries     []Query
	messages    []AIMessage
	isConnected bool

	activeQueryID string // empty = none

	sidebarOpen        bool
	aiPanelOpen        bool
	aiScrollPosition   int
	activeArtifact     *Artifact
	activeArtifactCode string

	persister Persister
	logger    *slog.Logger

	listenerMu sync.Mutex
	listeners  map[chan struct{}]struct{}
}

// Options configures a new Store.
type Options struct {
	// Persister is optional; a nil persister makes the store memory-only.
	Persister Persister
	// Logger is optional and defaults to slog.Default().
	Logger *slog.Logger
	// SkipDemoSeed suppresses the built-in demo queries when no persisted
	// snapshot exists. Used by tests that need a clean slate.
	SkipDemoSeed bool
}

// New creates a Store, restoring the persisted snapshot if one exists.
// Corrupt or missing persisted data never fails startup; the store falls
// back to its built-in defaults.
func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		sidebarOpen: true,
		aiPanelOpen: true,
		persister:   opts.Persister,
		logger:      logger,
		listeners:   make(map[chan struct{}]struct{}),
	}

	restored := false
	if opts.Persister != nil {
		snap, ok, err := opts.Persister.Load()
		if err != nil {
			logger.Warn("discarding unreadable persisted state", "error", err)
		} else if ok {
			s.applySnapshot(snap)
			restored = true
		}
	}

	if !restored && !opts.SkipDemoSeed {
		s.queries = demoQueries()
		s.isConnected = false
	}

	return s
}

// applySnapshot replaces the persisted subset. Ephemeral fields (UI toggles,
// active query, active artifact) keep their defaults regardless of what was
// stored.
func (s *Store) applySnapshot(snap Snapshot) {
	s.dataSources = snap.DataSources
	s.queries = snap.Queries
	s.messages = snap.AIMessages
	s.isConnected = snap.IsConnected
	s.aiScrollPosition = snap.AIScrollPosition
}

// Subscribe returns a channel receiving a ping after every mutation, and a
// cancel function that must be called to release the listener.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.listenerMu.Lock()
	s.listeners[ch] = struct{}{}
	s.listenerMu.Unlock()

	cancel := func() {
		s.listenerMu.Lock()
		if _, ok := s.listeners[ch]; ok {
			delete(s.listeners, ch)
			close(ch)
		}
		s.listenerMu.Unlock()
	}
	return ch, cancel
}

// commit persists the durable subset and pings listeners. Called with s.mu
// held by every mutation; the snapshot is taken under the lock, the persist
// and notify happen against that consistent copy.
func (s *Store) commit() {
	snap := s.snapshotLocked()

	if s.persister != nil {
		if err := s.persister.Save(snap); err != nil {
			s.logger.Warn("failed to persist state", "error", err)
		}
	}

	s.listenerMu.Lock()
	for ch := range s.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	s.listenerMu.Unlock()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		DataSources:      append([]DataSource(nil), s.dataSources...),
		Queries:          cloneQueries(s.queries),
		AIMessages:       cloneMessages(s.messages),
		IsConnected:      s.isConnected,
		AIScrollPosition: s.aiScrollPosition,
	}
}

// Snapshot returns a copy of the persisted subset.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// --- Data source mutations ---

// AddDataSource appends a new data source and returns it. Always succeeds.
func (s *Store) AddDataSource(name string, kind SourceKind, status SourceStatus) DataSource {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds := DataSource{
		ID:          uuid.New().String(),
		Name:        name,
		Kind:        kind,
		Status:      status,
		ConnectedAt: time.Now().UTC(),
	}
	s.dataSources = append(s.dataSources, ds)
	s.isConnected = true
	s.commit()
	return ds
}

// RemoveDataSource removes the matching source; no-op if absent. The
// connected flag is recomputed from the remaining count.
func (s *Store) RemoveDataSource(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.dataSources[:0]
	for _, ds := range s.dataSources {
		if ds.ID != id {
			kept = append(kept, ds)
		}
	}
	s.dataSources = kept
	s.isConnected = len(s.dataSources) > 0
	s.commit()
}

// MarkDataSourceError transitions a source to the error status. Sources never
// move back to connected automatically.
func (s *Store) MarkDataSourceError(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.dataSources {
		if s.dataSources[i].ID == id {
			s.dataSources[i].Status = SourceError
			break
		}
	}
	s.commit()
}

// --- Query mutations ---

// AddQuery creates a Query numbered count+1, makes it active, and returns it
// by value.
func (s *Store) AddQuery(prompt, code string) Query {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	q := Query{
		ID:        uuid.New().String(),
		Number:    len(s.queries) + 1,
		Prompt:    prompt,
		Code:      code,
		Artifacts: []Artifact{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.queries = append(s.queries, q)
	s.activeQueryID = q.ID
	s.commit()
	return q
}

// UpdateQuery merges the patch into the matching query and refreshes its
// updated timestamp; no-op if absent.
func (s *Store) UpdateQuery(id string, patch QueryPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.queries {
		if s.queries[i].ID != id {
			continue
		}
		if patch.Prompt != nil {
			s.queries[i].Prompt = *patch.Prompt
		}
		if patch.Code != nil {
			s.queries[i].Code = *patch.Code
		}
		if patch.Output != nil {
			s.queries[i].Output = *patch.Output
		}
		if patch.Artifacts != nil {
			s.queries[i].Artifacts = append([]Artifact(nil), patch.Artifacts...)
		}
		s.queries[i].UpdatedAt = time.Now().UTC()
		s.commit()
		return
	}
}

// RemoveQuery deletes the matching query. If it was active, the active query
// becomes none.
func (s *Store) RemoveQuery(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.queries[:0]
	for _, q := range s.queries {
		if q.ID != id {
			kept = append(kept, q)
		}
	}
	s.queries = kept
	if s.activeQueryID == id {
		s.activeQueryID = ""
	}
	s.commit()
}

// SetActiveQuery designates the active query. An empty id clears it; an id
// not present in the store is ignored to keep the active reference valid.
func (s *Store) SetActiveQuery(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" && s.findQueryLocked(id) == nil {
		return
	}
	s.activeQueryID = id
	s.commit()
}

func (s *Store) findQueryLocked(id string) *Query {
	for i := range s.queries {
		if s.queries[i].ID == id {
			return &s.queries[i]
		}
	}
	return nil
}

// --- Transcript mutations ---

// AddAIMessage appends an immutable transcript message and returns it.
// Suggestions may be nil, meaning none were offered.
func (s *Store) AddAIMessage(role Role, content, code string, suggestions []string) AIMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := AIMessage{
		ID:          uuid.New().String(),
		Role:        role,
		Content:     content,
		Code:        code,
		Suggestions: append([]string(nil), suggestions...),
		Timestamp:   time.Now().UTC(),
	}
	s.messages = append(s.messages, msg)
	s.commit()
	return msg
}

// ClearAIMessages empties the transcript. Queries and data sources are
// unaffected.
func (s *Store) ClearAIMessages() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil
	s.commit()
}

// --- UI state mutations ---

// ToggleSidebar flips the sidebar flag.
func (s *Store) ToggleSidebar() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sidebarOpen = !s.sidebarOpen
	s.commit()
}

// ToggleAIPanel flips the assistant panel flag.
func (s *Store) ToggleAIPanel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aiPanelOpen = !s.aiPanelOpen
	s.commit()
}

// SetAIScrollPosition records the transcript scroll offset so it survives
// reloads.
func (s *Store) SetAIScrollPosition(px int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aiScrollPosition = px
	s.commit()
}

// SetActiveArtifact designates the artifact shown in the detail view along
// with its originating code. A nil artifact clears the selection.
func (s *Store) SetActiveArtifact(a *Artifact, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a == nil {
		s.activeArtifact = nil
		s.activeArtifactCode = ""
	} else {
		cp := *a
		s.activeArtifact = &cp
		s.activeArtifactCode = code
	}
	s.commit()
}

// --- Accessors (all return copies) ---

// DataSources returns the current data sources.
func (s *Store) DataSources() []DataSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DataSource(nil), s.dataSources...)
}

// Queries returns the current queries in creation order.
func (s *Store) Queries() []Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneQueries(s.queries)
}

// ActiveQuery returns the active query, if any.
func (s *Store) ActiveQuery() (Query, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeQueryID == "" {
		return Query{}, false
	}
	q := s.findQueryLocked(s.activeQueryID)
	if q == nil {
		return Query{}, false
	}
	return cloneQuery(*q), true
}

// AIMessages returns the transcript.
func (s *Store) AIMessages() []AIMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneMessages(s.messages)
}

// IsConnected reports whether any data source is present.
func (s *Store) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isConnected
}

// SidebarOpen reports the sidebar flag.
func (s *Store) SidebarOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sidebarOpen
}

// AIPanelOpen reports the assistant panel flag.
func (s *Store) AIPanelOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aiPanelOpen
}

// AIScrollPosition returns the recorded transcript scroll offset.
func (s *Store) AIScrollPosition() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aiScrollPosition
}

// ActiveArtifact returns the artifact in the detail view and its code, or
// nil when none is selected.
func (s *Store) ActiveArtifact() (*Artifact, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeArtifact == nil {
		return nil, ""
	}
	cp := *s.activeArtifact
	return &cp, s.activeArtifactCode
}

func cloneQuery(q Query) Query {
	q.Artifacts = append([]Artifact(nil), q.Artifacts...)
	return q
}

func cloneQueries(in []Query) []Query {
	out := make([]Query, len(in))
	for i, q := range in {
		out[i] = cloneQuery(q)
	}
	return out
}

func cloneMessages(in []AIMessage) []AIMessage {
	out := make([]AIMessage, len(in))
	for i, m := range in {
		m.Suggestions = append([]string(nil), m.Suggestions...)
		out[i] = m
	}
	return out
}
