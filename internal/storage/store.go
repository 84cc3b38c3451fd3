package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	metaKeyRawRetention = "retention.rawDays"
	metaKeyBlocklist    = "blocklist.hostnames"

	// DefaultRawRetentionDays is used until a value is written to meta.
	DefaultRawRetentionDays = 7

	// maxHistoryDays caps the per-day lookups of a hostname history query.
	maxHistoryDays = 200

	// maxTrendDays caps the span of a zero-filled per-day range.
	maxTrendDays = 3660

	defaultSitesLimit   = 50
	defaultHistoryLimit = 2000
)

// SQLiteStore implements the activity storage engine on SQLite.
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time

	// Prepared statements for the write path
	insertHistory *sqlx.Stmt
	upsertSite    *sqlx.Stmt
	upsertPage    *sqlx.Stmt
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{
		db:  sqlx.NewDb(db, "sqlite3"),
		now: time.Now,
	}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

// SetClock replaces the time source used to default activity start times.
func (s *SQLiteStore) SetClock(now func() time.Time) {
	s.now = now
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.insertHistory, err = s.db.Preparex(`
		INSERT INTO history (date, hostname, path, start_time, duration, title, event_source)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	s.upsertSite, err = s.db.Preparex(`
		INSERT INTO sites (date, hostname, duration, last_visit)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (date, hostname) DO UPDATE SET
			duration   = sites.duration + excluded.duration,
			last_visit = MAX(sites.last_visit, excluded.last_visit)
	`)
	if err != nil {
		return err
	}

	s.upsertPage, err = s.db.Preparex(`
		INSERT INTO pages (date, hostname, path, full_path, duration, title)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (date, hostname, path) DO UPDATE SET
			duration = pages.duration + excluded.duration,
			title    = CASE WHEN excluded.title <> '' THEN excluded.title ELSE pages.title END
	`)
	if err != nil {
		return err
	}

	return nil
}

// getMeta decodes the JSON value stored under key into dest. It reports
// false when the key is absent.
func (s *SQLiteStore) getMeta(ctx context.Context, key string, dest interface{}) (bool, error) {
	var raw string
	err := s.db.QueryRowxContext(ctx, "SELECT value FROM meta WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get meta %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("decode meta %s: %w", key, err)
	}
	return true, nil
}

func (s *SQLiteStore) setMeta(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode meta %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO meta (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(raw))
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

// RawRetentionDays returns how many trailing days of history stay raw.
// Missing or non-numeric values fall back to the default; anything below
// one is clamped to one.
func (s *SQLiteStore) RawRetentionDays(ctx context.Context) (int, error) {
	var days int
	ok, err := s.getMeta(ctx, metaKeyRawRetention, &days)
	if err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			return DefaultRawRetentionDays, nil
		}
		return 0, err
	}
	if !ok {
		return DefaultRawRetentionDays, nil
	}
	if days < 1 {
		days = 1
	}
	return days, nil
}

// SetRawRetentionDays persists the raw retention window.
func (s *SQLiteStore) SetRawRetentionDays(ctx context.Context, days int) error {
	if days < 1 {
		return invalid("rawRetentionDays", "must be at least 1, got %d", days)
	}
	return s.setMeta(ctx, metaKeyRawRetention, days)
}

// HasRawRetentionDays reports whether a retention window was ever stored.
func (s *SQLiteStore) HasRawRetentionDays(ctx context.Context) (bool, error) {
	var days int
	return s.getMeta(ctx, metaKeyRawRetention, &days)
}

// Blocklist returns the stored blocklist patterns.
func (s *SQLiteStore) Blocklist(ctx context.Context) ([]string, error) {
	var list []string
	if _, err := s.getMeta(ctx, metaKeyBlocklist, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}

// SetBlocklist replaces the stored blocklist patterns.
func (s *SQLiteStore) SetBlocklist(ctx context.Context, patterns []string) error {
	if patterns == nil {
		patterns = []string{}
	}
	return s.setMeta(ctx, metaKeyBlocklist, patterns)
}

// GetStats returns row counts and storage diagnostics.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{TopSites: []SiteStat{}}

	counts := []struct {
		table string
		dest  *int64
	}{
		{"history", &stats.HistoryCount},
		{"sites", &stats.SitesCount},
		{"pages", &stats.PagesCount},
		{"hourly_stats", &stats.HourlyCount},
	}
	for _, c := range counts {
		if err := s.db.GetContext(ctx, c.dest, "SELECT COUNT(*) FROM "+c.table); err != nil {
			return nil, fmt.Errorf("count %s: %w", c.table, err)
		}
	}

	// Oldest and newest (handle empty DB)
	if stats.SitesCount > 0 {
		err := s.db.QueryRowxContext(ctx, "SELECT MIN(date), MAX(date) FROM sites").
			Scan(&stats.OldestDate, &stats.NewestDate)
		if err != nil {
			return nil, fmt.Errorf("date range: %w", err)
		}
	}

	var pageCount, pageSize int64
	if err := s.db.GetContext(ctx, &pageCount, "PRAGMA page_count"); err == nil {
		if err := s.db.GetContext(ctx, &pageSize, "PRAGMA page_size"); err == nil {
			stats.DatabaseSizeBytes = pageCount * pageSize
		}
	}

	days, err := s.RawRetentionDays(ctx)
	if err != nil {
		return nil, err
	}
	stats.RawRetentionDays = days

	err = s.db.SelectContext(ctx, &stats.TopSites, `
		SELECT '' AS date, hostname, SUM(duration) AS duration, MAX(last_visit) AS last_visit
		FROM sites GROUP BY hostname ORDER BY SUM(duration) DESC, hostname ASC LIMIT 10
	`)
	if err != nil {
		return nil, fmt.Errorf("top sites: %w", err)
	}

	return stats, nil
}

// PurgeAll deletes every activity row. Meta (blocklist, retention) is kept.
func (s *SQLiteStore) PurgeAll(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"history", "sites", "pages", "hourly_stats"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("purge %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sqlx.Stmt{s.insertHistory, s.upsertSite, s.upsertPage}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
