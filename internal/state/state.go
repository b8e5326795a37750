// Package state persists dashboard snapshots to a local SQLite database.
// Snapshots are stored as JSON records keyed by namespace, so the schema
// stays stable while the snapshot shape evolves.
package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection holding persisted dashboard state.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens the state database at path, creating it if needed.
// Use ":memory:" for an in-memory database.
func Open(path string) (*DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping state database: %w", err)
	}

	return &DB{db: db, path: path}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// SaveRecord upserts a JSON payload under the given namespace.
func (d *DB) SaveRecord(namespace string, payload []byte) error {
	_, err := d.db.Exec(
		`INSERT INTO app_state (namespace, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(namespace) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		namespace, string(payload), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save record %q: %w", namespace, err)
	}
	return nil
}

// LoadRecord reads the payload stored under namespace. ok is false when no
// record exists.
func (d *DB) LoadRecord(namespace string) (payload []byte, ok bool, err error) {
	var raw string
	err = d.db.QueryRow(`SELECT payload FROM app_state WHERE namespace = ?`, namespace).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load record %q: %w", namespace, err)
	}
	if !json.Valid([]byte(raw)) {
		return nil, false, fmt.Errorf("record %q holds malformed JSON", namespace)
	}
	return []byte(raw), true, nil
}

// DeleteRecord removes the record under namespace; no-op if absent.
func (d *DB) DeleteRecord(namespace string) error {
	if _, err := d.db.Exec(`DELETE FROM app_state WHERE namespace = ?`, namespace); err != nil {
		return fmt.Errorf("failed to delete record %q: %w", namespace, err)
	}
	return nil
}
