package storage

import (
	"context"
	"database/sql"
	"encoding/json"
)

// migrateV001 creates the three-tier activity schema (raw history, site-day
// and page-day rollups), the hourly rollup written by retention, and the
// key/value meta table.
func migrateV001(ctx context.Context, tx *sql.Tx, seed *seedData) error {
	stmts := []string{
		// ── Tables ──────────────────────────────────────────────

		`CREATE TABLE IF NOT EXISTS history (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			date         TEXT    NOT NULL,
			hostname     TEXT    NOT NULL,
			path         TEXT    NOT NULL,
			start_time   INTEGER NOT NULL,
			duration     INTEGER NOT NULL CHECK (duration > 0),
			title        TEXT    NOT NULL DEFAULT '',
			event_source TEXT    NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS sites (
			date       TEXT    NOT NULL,
			hostname   TEXT    NOT NULL,
			duration   INTEGER NOT NULL DEFAULT 0,
			last_visit INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (date, hostname)
		)`,

		`CREATE TABLE IF NOT EXISTS pages (
			date      TEXT    NOT NULL,
			hostname  TEXT    NOT NULL,
			path      TEXT    NOT NULL,
			full_path TEXT    NOT NULL DEFAULT '',
			duration  INTEGER NOT NULL DEFAULT 0,
			title     TEXT    NOT NULL DEFAULT '',
			PRIMARY KEY (date, hostname, path)
		)`,

		`CREATE TABLE IF NOT EXISTS hourly_stats (
			date     TEXT    NOT NULL,
			hour     INTEGER NOT NULL CHECK (hour BETWEEN 0 AND 23),
			duration INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (date, hour)
		)`,

		`CREATE TABLE IF NOT EXISTS meta (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// ── Indexes ────────────────────────────────────────────

		`CREATE INDEX IF NOT EXISTS idx_history_date          ON history(date)`,
		`CREATE INDEX IF NOT EXISTS idx_history_date_hostname ON history(date, hostname)`,
		`CREATE INDEX IF NOT EXISTS idx_history_start_time    ON history(start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_history_hostname      ON history(hostname)`,
		`CREATE INDEX IF NOT EXISTS idx_sites_duration        ON sites(duration)`,
		`CREATE INDEX IF NOT EXISTS idx_sites_hostname        ON sites(hostname)`,
		`CREATE INDEX IF NOT EXISTS idx_pages_date_hostname   ON pages(date, hostname)`,
		`CREATE INDEX IF NOT EXISTS idx_pages_hostname        ON pages(hostname)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return seedBlocklist(ctx, tx, seed.Blocklist)
}

// seedBlocklist writes the initial blocklist. Uses INSERT OR IGNORE so a
// list the user already edited is never replaced.
func seedBlocklist(ctx context.Context, tx *sql.Tx, hostnames []string) error {
	if hostnames == nil {
		hostnames = []string{}
	}
	raw, err := json.Marshal(hostnames)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO meta (key, value) VALUES (?, ?)`,
		metaKeyBlocklist, string(raw),
	)
	return err
}
