package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sourcish/ServiceNow-Agent/internal/logging"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	log := logging.New(nil, "silent")
	db, err := Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// --- DB/Migration tests ---

func TestOpen_InMemory(t *testing.T) {
	db := testDB(t)
	assert.NotNil(t, db)
	assert.NotNil(t, db.SQL())
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "snowagent.db")
	db, err := Open(path, logging.New(nil, "silent"))
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, path)
}

func TestMigrations_Applied(t *testing.T) {
	db := testDB(t)

	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestMigrations_Idempotent(t *testing.T) {
	db := testDB(t)

	// Running migrate again should be a no-op
	err := db.migrate()
	require.NoError(t, err)

	var count int
	err = db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestSchema_TablesExist(t *testing.T) {
	db := testDB(t)

	tables := []string{"sessions", "messages"}
	for _, table := range tables {
		var name string
		err := db.sql.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

// --- Session Store tests ---

func TestSessionStore_Get_Miss(t *testing.T) {
	ss := NewSessionStore(testDB(t))

	_, ok := ss.Get("19:meeting_x@thread.v2")
	assert.False(t, ok)
}

func TestSessionStore_PutGet(t *testing.T) {
	ss := NewSessionStore(testDB(t))

	ss.Put("19:meeting_x@thread.v2", "sess-123")

	got, ok := ss.Get("19:meeting_x@thread.v2")
	require.True(t, ok)
	assert.Equal(t, "sess-123", got)
}

func TestSessionStore_Put_Replaces(t *testing.T) {
	ss := NewSessionStore(testDB(t))

	ss.Put("conv-1", "sess-old")
	ss.Put("conv-1", "sess-new")

	got, ok := ss.Get("conv-1")
	require.True(t, ok)
	assert.Equal(t, "sess-new", got)
	assert.Equal(t, 1, ss.Len())
}

func TestSessionStore_Len(t *testing.T) {
	ss := NewSessionStore(testDB(t))
	assert.Equal(t, 0, ss.Len())

	ss.Put("conv-1", "sess-1")
	ss.Put("conv-2", "sess-2")
	assert.Equal(t, 2, ss.Len())
}

func TestSessionStore_Conversations(t *testing.T) {
	ss := NewSessionStore(testDB(t))

	ss.Put("conv-1", "sess-1")
	ss.Put("conv-2", "sess-2")

	assert.ElementsMatch(t, []string{"conv-1", "conv-2"}, ss.Conversations())
}

func TestSessionStore_Conversations_Empty(t *testing.T) {
	ss := NewSessionStore(testDB(t))
	assert.Nil(t, ss.Conversations())
}

func TestSessionStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snowagent.db")
	log := logging.New(nil, "silent")

	db, err := Open(path, log)
	require.NoError(t, err)
	NewSessionStore(db).Put("conv-1", "sess-1")
	require.NoError(t, db.Close())

	db, err = Open(path, log)
	require.NoError(t, err)
	defer db.Close()

	got, ok := NewSessionStore(db).Get("conv-1")
	require.True(t, ok)
	assert.Equal(t, "sess-1", got)
}

// --- Audit log tests ---

func TestAuditLog_RecentMessages(t *testing.T) {
	db := testDB(t)
	NewSessionStore(db).Put("conv-1", "sess-1")

	al := NewAuditLog(db)
	al.LogMessage("conv-1", DirectionInbound, "Show me all open incidents")
	al.LogMessage("conv-1", DirectionReply, "Here are your incidents.")

	entries, err := al.RecentMessages("conv-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first
	assert.Equal(t, DirectionReply, entries[0].Direction)
	assert.Equal(t, "Here are your incidents.", entries[0].Content)
	assert.Equal(t, DirectionInbound, entries[1].Direction)
	assert.False(t, entries[1].CreatedAt.IsZero())
}

func TestAuditLog_Limit(t *testing.T) {
	db := testDB(t)
	NewSessionStore(db).Put("conv-1", "sess-1")

	al := NewAuditLog(db)
	al.LogMessage("conv-1", DirectionInbound, "one")
	al.LogMessage("conv-1", DirectionInbound, "two")
	al.LogMessage("conv-1", DirectionInbound, "three")

	entries, err := al.RecentMessages("conv-1", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "three", entries[0].Content)
	assert.Equal(t, "two", entries[1].Content)
}

func TestAuditLog_DefaultLimit(t *testing.T) {
	db := testDB(t)
	NewSessionStore(db).Put("conv-1", "sess-1")

	al := NewAuditLog(db)
	al.LogMessage("conv-1", DirectionInbound, "hello")

	entries, err := al.RecentMessages("conv-1", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAuditLog_UnknownConversation(t *testing.T) {
	al := NewAuditLog(testDB(t))

	entries, err := al.RecentMessages("missing", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAuditLog_BeforeSessionMapped(t *testing.T) {
	al := NewAuditLog(testDB(t))

	// Dispatch audits the inbound text before the session row exists.
	al.LogMessage("conv-1", DirectionInbound, "hello")

	entries, err := al.RecentMessages("conv-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "hello", entries[0].Content)
}
