package state

import (
	"encoding/json"
	"fmt"

	"github.com/datadeck-labs/datadeck/internal/store"
)

// SnapshotNamespace is the fixed key the dashboard snapshot is stored under.
const SnapshotNamespace = "datadeck.app.v1"

// SnapshotPersister adapts DB to the store.Persister interface.
type SnapshotPersister struct {
	db *DB
}

// NewSnapshotPersister returns a persister writing snapshots to db.
func NewSnapshotPersister(db *DB) *SnapshotPersister {
	return &SnapshotPersister{db: db}
}

// Save serializes the snapshot and writes it under the fixed namespace.
func (p *SnapshotPersister) Save(snap store.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return p.db.SaveRecord(SnapshotNamespace, payload)
}

// Load reads the persisted snapshot. ok is false when none has been saved.
// A record that no longer decodes is reported as an error; callers fall back
// to defaults rather than failing startup.
func (p *SnapshotPersister) Load() (store.Snapshot, bool, error) {
	var snap store.Snapshot

	payload, ok, err := p.db.LoadRecord(SnapshotNamespace)
	if err != nil || !ok {
		return snap, false, err
	}

	if err := json.Unmarshal(payload, &snap); err != nil {
		return snap, false, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, true, nil
}
