package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// OldestHistoryDate returns the earliest date that still has raw history.
func (s *SQLiteStore) OldestHistoryDate(ctx context.Context) (string, bool, error) {
	var date string
	err := s.db.GetContext(ctx, &date, "SELECT date FROM history ORDER BY date ASC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("oldest history date: %w", err)
	}
	return date, true, nil
}

// AggregateOneDay folds every history row of date into hour-of-day rollups
// and deletes the rows. Any earlier rollup for the date is replaced rather
// than added to, so re-running after a crash cannot double count. A date
// with no raw rows left is already folded and is not touched. It returns the
// number of history rows folded.
func (s *SQLiteStore) AggregateOneDay(ctx context.Context, date string) (int, error) {
	if _, err := ParseDate(date); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var rows []struct {
		StartTime int64 `db:"start_time"`
		Duration  int64 `db:"duration"`
	}
	if err := tx.SelectContext(ctx, &rows,
		"SELECT start_time, duration FROM history WHERE date = ?", date,
	); err != nil {
		return 0, fmt.Errorf("scan history: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	var hours [24]int64
	for _, r := range rows {
		hours[time.UnixMilli(r.StartTime).Hour()] += r.Duration
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM hourly_stats WHERE date = ?", date); err != nil {
		return 0, fmt.Errorf("clear hourly stats: %w", err)
	}

	for hour, d := range hours {
		if d <= 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO hourly_stats (date, hour, duration) VALUES (?, ?, ?)", date, hour, d,
		); err != nil {
			return 0, fmt.Errorf("insert hourly stat: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM history WHERE date = ?", date); err != nil {
		return 0, fmt.Errorf("delete history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(rows), nil
}

// HourlyStats returns the compacted rollup rows of date, ordered by hour.
func (s *SQLiteStore) HourlyStats(ctx context.Context, date string) ([]HourlyStat, error) {
	stats := []HourlyStat{}
	if err := s.db.SelectContext(ctx, &stats,
		"SELECT date, hour, duration FROM hourly_stats WHERE date = ? ORDER BY hour", date,
	); err != nil {
		return nil, fmt.Errorf("hourly stats: %w", err)
	}
	return stats, nil
}

// CountHistoryBefore returns how many raw rows are older than date.
func (s *SQLiteStore) CountHistoryBefore(ctx context.Context, date string) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM history WHERE date < ?", date); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return n, nil
}
