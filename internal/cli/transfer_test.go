package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/dwell/internal/storage"
)

func TestExportImport_File(t *testing.T) {
	ctx := context.Background()
	src := setupStore(t)
	recordAt(t, src, "https://a.com/x", "X", fixedNow.Add(-2*time.Hour), 10*time.Minute)
	recordAt(t, src, "https://b.com/", "B", fixedNow.Add(-time.Hour), 5*time.Minute)

	path := filepath.Join(t.TempDir(), "snap.json")
	export := &ExportCommand{globals: testGlobals(false), Output: path}
	require.NoError(t, export.executeWithStore(ctx, src))

	dst := setupStore(t)
	imp := &ImportCommand{globals: testGlobals(false), Input: path}
	output := captureOutput(t, func() {
		require.NoError(t, imp.executeWithStore(ctx, dst))
	})
	assert.Contains(t, output, "Imported 2 history, 2 site and 2 page rows")

	want, err := src.ExportAll(ctx)
	require.NoError(t, err)
	got, err := dst.ExportAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.History, got.History)
	assert.Equal(t, want.Sites, got.Sites)
	assert.Equal(t, want.Pages, got.Pages)
}

func TestExport_Stdout(t *testing.T) {
	store := setupStore(t)
	recordAt(t, store, "https://a.com/", "", fixedNow.Add(-time.Hour), time.Minute)

	output := captureOutput(t, func() {
		require.NoError(t, (&ExportCommand{globals: testGlobals(false)}).executeWithStore(context.Background(), store))
	})

	snap, err := storage.ParseSnapshot([]byte(output))
	require.NoError(t, err)
	assert.Equal(t, storage.SnapshotVersion, snap.Version)
	assert.Len(t, snap.History, 1)
}

func TestImport_Rejects(t *testing.T) {
	store := setupStore(t)
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"history":[],"sites":[]}`), 0644))

	err := (&ImportCommand{globals: testGlobals(false), Input: bad}).executeWithStore(context.Background(), store)
	assert.ErrorIs(t, err, storage.ErrValidation)

	err = (&ImportCommand{globals: testGlobals(false), Input: filepath.Join(dir, "missing.json")}).executeWithStore(context.Background(), store)
	assert.Error(t, err)

	assert.Error(t, (&ImportCommand{globals: testGlobals(false)}).Execute(nil))
}
