package cli

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/dwell/internal/storage"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// fixedNow is Sunday 2025-06-15 12:00 local time.
var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local)

func testGlobals(json bool) *GlobalFlags {
	return &GlobalFlags{JSON: json, now: func() time.Time { return fixedNow }}
}

// setupStore creates a migrated in-memory store seeded with blocklist.
func setupStore(t *testing.T, blocklist ...string) *storage.SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.NewMigrationRunner(db).WithBlocklistSeed(blocklist).Run())

	store, err := storage.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func recordAt(t *testing.T, store *storage.SQLiteStore, url, title string, start time.Time, d time.Duration) {
	t.Helper()
	require.NoError(t, store.RecordActivity(context.Background(), storage.Activity{
		URL:       url,
		Title:     title,
		StartTime: start,
		Duration:  d,
		Source:    "tab_activated",
	}))
}

// writeConfig writes a config file pointing storage at dir and returns its path.
func writeConfig(t *testing.T, dir string, extra string) string {
	t.Helper()
	path := dir + "/config.yaml"
	body := "storage:\n  path: " + dir + "\n  sqlite_journal_mode: delete\n" + extra
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func errorIsValidation(err error) bool {
	return errors.Is(err, storage.ErrValidation)
}
