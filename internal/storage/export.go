package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// SnapshotVersion is written into every export.
const SnapshotVersion = 1

// Snapshot is the export/import document.
type Snapshot struct {
	Version    int          `json:"version"`
	ExportedAt time.Time    `json:"exportedAt"`
	History    []HistoryLog `json:"history"`
	Sites      []SiteStat   `json:"sites"`
	Pages      []PageStat   `json:"pages"`
}

// ParseSnapshot decodes an export document. The history, sites and pages
// members must all be present and be JSON arrays.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, invalid("snapshot", "not a JSON object: %v", err)
	}
	for _, member := range []string{"history", "sites", "pages"} {
		raw, ok := envelope[member]
		if !ok {
			return nil, invalid("snapshot", "missing %q", member)
		}
		if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '[' {
			return nil, invalid("snapshot", "%q must be an array", member)
		}
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, invalid("snapshot", "%v", err)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Validate checks every row against the constraints the tables enforce, so
// a bad document is rejected before anything is written.
func (snap *Snapshot) Validate() error {
	if snap == nil || snap.History == nil || snap.Sites == nil || snap.Pages == nil {
		return invalid("snapshot", "history, sites and pages are required")
	}
	for i, h := range snap.History {
		if err := validateRow("history", i, h.Date, h.Hostname); err != nil {
			return err
		}
		if h.Duration <= 0 {
			return invalid("snapshot", "history[%d]: duration must be positive", i)
		}
		if h.StartTime < 0 {
			return invalid("snapshot", "history[%d]: startTime must not be negative", i)
		}
	}
	for i, st := range snap.Sites {
		if err := validateRow("sites", i, st.Date, st.Hostname); err != nil {
			return err
		}
		if st.Duration < 0 {
			return invalid("snapshot", "sites[%d]: duration must not be negative", i)
		}
	}
	for i, p := range snap.Pages {
		if err := validateRow("pages", i, p.Date, p.Hostname); err != nil {
			return err
		}
		if p.Path == "" {
			return invalid("snapshot", "pages[%d]: path is required", i)
		}
		if p.Duration < 0 {
			return invalid("snapshot", "pages[%d]: duration must not be negative", i)
		}
	}
	return nil
}

func validateRow(member string, i int, date, hostname string) error {
	if _, err := ParseDate(date); err != nil {
		return invalid("snapshot", "%s[%d]: date %q is not YYYY-MM-DD", member, i, date)
	}
	if hostname == "" {
		return invalid("snapshot", "%s[%d]: hostname is required", member, i)
	}
	return nil
}

// ExportAll reads every history, site and page row inside one read
// transaction.
func (s *SQLiteStore) ExportAll(ctx context.Context) (*Snapshot, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	snap := &Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.now().UTC(),
		History:    []HistoryLog{},
		Sites:      []SiteStat{},
		Pages:      []PageStat{},
	}

	if err := tx.SelectContext(ctx, &snap.History,
		"SELECT id, date, hostname, path, start_time, duration, title, event_source FROM history ORDER BY id",
	); err != nil {
		return nil, fmt.Errorf("export history: %w", err)
	}
	if err := tx.SelectContext(ctx, &snap.Sites,
		"SELECT date, hostname, duration, last_visit FROM sites ORDER BY date, hostname",
	); err != nil {
		return nil, fmt.Errorf("export sites: %w", err)
	}
	if err := tx.SelectContext(ctx, &snap.Pages,
		"SELECT date, hostname, path, full_path, duration, title FROM pages ORDER BY date, hostname, path",
	); err != nil {
		return nil, fmt.Errorf("export pages: %w", err)
	}

	return snap, nil
}

// Import bulk-upserts a snapshot. Rows whose primary key already exists are
// overwritten. History rows without an id get a fresh one. The whole
// snapshot is validated before the transaction starts.
func (s *SQLiteStore) Import(ctx context.Context, snap *Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, h := range snap.History {
		if h.ID > 0 {
			_, err = tx.NamedExecContext(ctx, `
				INSERT OR REPLACE INTO history (id, date, hostname, path, start_time, duration, title, event_source)
				VALUES (:id, :date, :hostname, :path, :start_time, :duration, :title, :event_source)
			`, h)
		} else {
			_, err = tx.NamedExecContext(ctx, `
				INSERT INTO history (date, hostname, path, start_time, duration, title, event_source)
				VALUES (:date, :hostname, :path, :start_time, :duration, :title, :event_source)
			`, h)
		}
		if err != nil {
			return fmt.Errorf("import history: %w", err)
		}
	}

	for _, st := range snap.Sites {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT OR REPLACE INTO sites (date, hostname, duration, last_visit)
			VALUES (:date, :hostname, :duration, :last_visit)
		`, st); err != nil {
			return fmt.Errorf("import sites: %w", err)
		}
	}

	for _, p := range snap.Pages {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT OR REPLACE INTO pages (date, hostname, path, full_path, duration, title)
			VALUES (:date, :hostname, :path, :full_path, :duration, :title)
		`, p); err != nil {
			return fmt.Errorf("import pages: %w", err)
		}
	}

	return tx.Commit()
}
