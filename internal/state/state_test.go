package state

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/datadeck-labs/datadeck/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDB_OpenMigrateClose(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())

	version, err := db.MigrationVersion()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, version, int64(1))

	require.NoError(t, db.Close())
}

func TestDB_RecordRoundTrip(t *testing.T) {
	db := setupTestDB(t)

	_, ok, err := db.LoadRecord("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.SaveRecord("ns", []byte(`{"a":1}`)))
	payload, ok, err := db.LoadRecord("ns")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(payload))

	// Upsert replaces the previous payload.
	require.NoError(t, db.SaveRecord("ns", []byte(`{"a":2}`)))
	payload, ok, err = db.LoadRecord("ns")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"a":2}`, string(payload))

	require.NoError(t, db.DeleteRecord("ns"))
	_, ok, err = db.LoadRecord("ns")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDB_MalformedRecordIsAnError(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.db.Exec(
		`INSERT INTO app_state (namespace, payload, updated_at) VALUES (?, ?, ?)`,
		"broken", "{not json", time.Now().UTC(),
	)
	require.NoError(t, err)

	_, ok, err := db.LoadRecord("broken")
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestSnapshotPersister_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	p := NewSnapshotPersister(db)

	chunks := json.RawMessage(`{"series":[1,2,3]}`)
	now := time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)

	original := store.Snapshot{
		DataSources: []store.DataSource{
			{ID: "ds-1", Name: "sales.csv", Kind: store.SourceTabularFile, Status: store.SourceConnected, ConnectedAt: now},
		},
		Queries: []store.Query{
			{
				ID: "q-1", Number: 1, Prompt: "revenue", Code: "df.plot()", Output: "done",
				Artifacts: []store.Artifact{{Kind: store.ArtifactChart, Title: "rev", Result: chunks}},
				CreatedAt: now, UpdatedAt: now,
			},
		},
		AIMessages: []store.AIMessage{
			{ID: "m-1", Role: store.RoleUser, Content: "hi", Timestamp: now},
			{ID: "m-2", Role: store.RoleAssistant, Content: "hello", Code: "print(1)", Suggestions: []string{"try X"}, Timestamp: now},
		},
		IsConnected:      true,
		AIScrollPosition: 640,
	}

	require.NoError(t, p.Save(original))

	restored, ok, err := p.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, original, restored)
}

func TestSnapshotPersister_NoRecord(t *testing.T) {
	db := setupTestDB(t)
	p := NewSnapshotPersister(db)

	_, ok, err := p.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSnapshotPersister_CorruptRecord(t *testing.T) {
	db := setupTestDB(t)
	// Valid JSON, wrong shape for the snapshot.
	require.NoError(t, db.SaveRecord(SnapshotNamespace, []byte(`{"queries":"not-a-list"}`)))

	p := NewSnapshotPersister(db)
	_, ok, err := p.Load()
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestStoreWithSQLitePersister_SurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Migrate())

	s := store.New(store.Options{Persister: NewSnapshotPersister(db), SkipDemoSeed: true})
	s.AddDataSource("sales.csv", store.SourceTabularFile, store.SourceConnected)
	q := s.AddQuery("revenue", "df.plot()")
	require.NoError(t, db.Close())

	db2, err := Open(path)
	require.NoError(t, err)
	defer db2.Close()
	require.NoError(t, db2.Migrate())

	s2 := store.New(store.Options{Persister: NewSnapshotPersister(db2)})
	require.Len(t, s2.Queries(), 1)
	assert.Equal(t, q.ID, s2.Queries()[0].ID)
	assert.True(t, s2.IsConnected())

	// Active query is ephemeral and not restored.
	_, ok := s2.ActiveQuery()
	assert.False(t, ok)
}
