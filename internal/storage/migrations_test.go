package storage

import (
	"database/sql"
	"encoding/json"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrationRunner_FreshDB(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)

	err := runner.Run()
	require.NoError(t, err)

	expectedTables := []string{
		"history",
		"sites",
		"pages",
		"hourly_stats",
		"meta",
		"schema_migrations",
	}
	for _, table := range expectedTables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrationRunner_IndexesCreated(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, NewMigrationRunner(db).Run())

	expectedIndexes := []string{
		"idx_history_date",
		"idx_history_date_hostname",
		"idx_history_start_time",
		"idx_history_hostname",
		"idx_sites_duration",
		"idx_sites_hostname",
		"idx_pages_date_hostname",
		"idx_pages_hostname",
	}
	for _, idx := range expectedIndexes {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='index' AND name=?", idx,
		).Scan(&name)
		require.NoError(t, err, "index %s should exist", idx)
		assert.Equal(t, idx, name)
	}
}

func TestMigrationRunner_SeedsBlocklist(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db).WithBlocklistSeed([]string{"accounts.google.com", "*.okta.com"})
	require.NoError(t, runner.Run())

	var raw string
	require.NoError(t, db.QueryRow("SELECT value FROM meta WHERE key = ?", metaKeyBlocklist).Scan(&raw))

	var list []string
	require.NoError(t, json.Unmarshal([]byte(raw), &list))
	assert.Equal(t, []string{"accounts.google.com", "*.okta.com"}, list)
}

func TestMigrationRunner_NilSeedWritesEmptyList(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, NewMigrationRunner(db).Run())

	var raw string
	require.NoError(t, db.QueryRow("SELECT value FROM meta WHERE key = ?", metaKeyBlocklist).Scan(&raw))
	assert.Equal(t, "[]", raw)
}

func TestMigrationRunner_Idempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, NewMigrationRunner(db).WithBlocklistSeed([]string{"a.com"}).Run())

	_, err := db.Exec("UPDATE meta SET value = '[\"edited.com\"]' WHERE key = ?", metaKeyBlocklist)
	require.NoError(t, err)

	// A second run must not reseed over the edited list.
	require.NoError(t, NewMigrationRunner(db).WithBlocklistSeed([]string{"a.com"}).Run())

	var raw string
	require.NoError(t, db.QueryRow("SELECT value FROM meta WHERE key = ?", metaKeyBlocklist).Scan(&raw))
	assert.Equal(t, `["edited.com"]`, raw)
}

func TestMigrationRunner_SchemaMigrationsTracking(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, NewMigrationRunner(db).Run())

	var version int
	var name string
	err := db.QueryRow("SELECT version, name FROM schema_migrations WHERE version = 1").Scan(&version, &name)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.Equal(t, "initial_schema", name)
}

func TestMigrationRunner_WALMode(t *testing.T) {
	// WAL needs a file; in-memory databases report "memory".
	path := t.TempDir() + "/test.db"
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, NewMigrationRunner(db).Run())

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestMigrationRunner_JournalModeOverride(t *testing.T) {
	path := t.TempDir() + "/test.db"
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, NewMigrationRunner(db).WithJournalMode("delete").Run())

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "delete", mode)
}

func TestMigrationRunner_HistoryRejectsZeroDuration(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, NewMigrationRunner(db).Run())

	_, err := db.Exec(`INSERT INTO history (date, hostname, path, start_time, duration) VALUES ('2025-06-01', 'a.com', '/', 0, 0)`)
	assert.Error(t, err)
}

func TestMigrationRunner_HourlyStatsHourRange(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, NewMigrationRunner(db).Run())

	_, err := db.Exec(`INSERT INTO hourly_stats (date, hour, duration) VALUES ('2025-06-01', 24, 10)`)
	assert.Error(t, err)

	_, err = db.Exec(`INSERT INTO hourly_stats (date, hour, duration) VALUES ('2025-06-01', 23, 10)`)
	assert.NoError(t, err)
}

func TestMigrationRunner_HistoryColumns(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, NewMigrationRunner(db).Run())

	rows, err := db.Query("PRAGMA table_info(history)")
	require.NoError(t, err)
	defer rows.Close()

	columns := map[string]bool{}
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dflt sql.NullString
		var pk int
		require.NoError(t, rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk))
		columns[name] = true
	}
	require.NoError(t, rows.Err())

	for _, col := range []string{"id", "date", "hostname", "path", "start_time", "duration", "title", "event_source"} {
		assert.True(t, columns[col], "history should have column %s", col)
	}
}
