package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/dwell/internal/urlnorm"
)

// SplitByMidnight cuts [start, start+d) at the next local midnight. It
// returns one segment when the interval stays within a day, two when it
// crosses midnight, and none for a non-positive duration.
func SplitByMidnight(start time.Time, d time.Duration) []Segment {
	if d <= 0 {
		return nil
	}

	start = start.In(time.Local)
	end := start.Add(d)
	y, m, day := start.Date()
	midnight := time.Date(y, m, day+1, 0, 0, 0, 0, time.Local)

	if !end.After(midnight) {
		return []Segment{{Date: FormatDate(start), Start: start, Duration: d}}
	}

	return []Segment{
		{Date: FormatDate(start), Start: start, Duration: midnight.Sub(start)},
		{Date: FormatDate(midnight), Start: midnight, Duration: end.Sub(midnight)},
	}
}

// RecordActivity folds one closed session into the raw log and both daily
// rollups. All segments are written in a single transaction, so a failed
// sub-write leaves no partial rows behind.
func (s *SQLiteStore) RecordActivity(ctx context.Context, a Activity) error {
	if a.Duration <= 0 {
		return invalid("duration", "must be positive, got %s", a.Duration)
	}
	if !urlnorm.IsTrackable(a.URL) {
		return invalid("url", "%q is not a trackable web URL", a.URL)
	}

	norm := urlnorm.Normalize(a.URL)
	start := a.StartTime
	if start.IsZero() {
		start = s.now().Add(-a.Duration)
	}

	segments := SplitByMidnight(start, a.Duration)
	if len(segments) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	insertHistory := tx.StmtxContext(ctx, s.insertHistory)
	upsertSite := tx.StmtxContext(ctx, s.upsertSite)
	upsertPage := tx.StmtxContext(ctx, s.upsertPage)

	for _, seg := range segments {
		startMs := seg.Start.UnixMilli()
		durMs := seg.Duration.Milliseconds()
		if durMs <= 0 {
			continue
		}

		if _, err := insertHistory.ExecContext(ctx,
			seg.Date, norm.Hostname, norm.Path, startMs, durMs, a.Title, a.Source,
		); err != nil {
			return fmt.Errorf("insert history: %w", err)
		}

		if _, err := upsertSite.ExecContext(ctx,
			seg.Date, norm.Hostname, durMs, startMs+durMs,
		); err != nil {
			return fmt.Errorf("upsert site: %w", err)
		}

		if _, err := upsertPage.ExecContext(ctx,
			seg.Date, norm.Hostname, norm.Path, norm.FullPath, durMs, a.Title,
		); err != nil {
			return fmt.Errorf("upsert page: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteSiteData removes every history, site and page row for hostname.
func (s *SQLiteStore) DeleteSiteData(ctx context.Context, hostname string) error {
	if hostname == "" {
		return invalid("hostname", "must not be empty")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"history", "sites", "pages"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE hostname = ?", hostname); err != nil {
			return fmt.Errorf("delete %s rows: %w", table, err)
		}
	}

	return tx.Commit()
}
