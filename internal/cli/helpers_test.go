package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStore_FromConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "retention:\n  raw_days: 5\n")

	cfg, err := loadConfig(&GlobalFlags{Config: path})
	require.NoError(t, err)

	store, db, err := openStore(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	days, err := store.RawRetentionDays(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, days)

	list, err := store.Blocklist(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, list, "default blocklist is seeded on a fresh database")

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "delete", mode)

	store.Close()
	db.Close()
	assert.FileExists(t, filepath.Join(dir, "dwell.db"))
}

func TestOpenStore_KeepsStoredRetention(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "retention:\n  raw_days: 5\n")

	cfg, err := loadConfig(&GlobalFlags{Config: path})
	require.NoError(t, err)
	store, db, err := openStore(cfg)
	require.NoError(t, err)
	require.NoError(t, store.SetRawRetentionDays(context.Background(), 12))
	store.Close()
	db.Close()

	cfg.Retention.RawDays = 9
	store, db, err = openStore(cfg)
	require.NoError(t, err)
	defer db.Close()
	defer store.Close()

	days, err := store.RawRetentionDays(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, days)
}

func TestOpenStore_NoSeedWhenDisabled(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "blocklist:\n  seed_defaults: false\n")

	cfg, err := loadConfig(&GlobalFlags{Config: path})
	require.NoError(t, err)
	store, db, err := openStore(cfg)
	require.NoError(t, err)
	defer db.Close()
	defer store.Close()

	list, err := store.Blocklist(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := loadConfig(&GlobalFlags{Config: filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}

func TestWithStore_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	globals := testGlobals(false)
	globals.Config = writeConfig(t, dir, "")

	add := &AddCommand{globals: globals, URL: "https://a.com/", Duration: "2m"}
	captureOutput(t, func() { require.NoError(t, add.Execute(nil)) })

	sites := &SitesCommand{globals: globals, Limit: 5}
	output := captureOutput(t, func() { require.NoError(t, sites.Execute(nil)) })
	assert.Contains(t, output, "a.com")
	assert.Contains(t, output, "2m 00s")
}

func TestBar(t *testing.T) {
	assert.Equal(t, "", bar(0, 10, 10))
	assert.Equal(t, "", bar(5, 0, 10))
	assert.Equal(t, "#", bar(1, 1000, 10))
	assert.Equal(t, "#####", bar(5, 10, 10))
	assert.Equal(t, "##########", bar(10, 10, 10))
}
