package storage

import (
	"context"
	"fmt"
	"sort"
)

// validRange checks both date keys and reports whether start <= end.
func validRange(start, end string) (bool, error) {
	from, err := ParseDate(start)
	if err != nil {
		return false, err
	}
	to, err := ParseDate(end)
	if err != nil {
		return false, err
	}
	return !from.After(to), nil
}

// GetAggregatedSites sums site durations per hostname over [start, end] and
// returns the top limit hostnames by duration. Ties keep the order in which
// hostnames first appear in the range.
func (s *SQLiteStore) GetAggregatedSites(ctx context.Context, startDate, endDate string, limit int) ([]SiteStat, error) {
	if _, err := validRange(startDate, endDate); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultSitesLimit
	}

	sites := []SiteStat{}
	err := s.db.SelectContext(ctx, &sites, `
		SELECT '' AS date, hostname, SUM(duration) AS duration, MAX(last_visit) AS last_visit
		FROM sites
		WHERE date BETWEEN ? AND ?
		GROUP BY hostname
		ORDER BY SUM(duration) DESC, MIN(date) ASC, hostname ASC
		LIMIT ?
	`, startDate, endDate, limit)
	if err != nil {
		return nil, fmt.Errorf("aggregate sites: %w", err)
	}
	return sites, nil
}

// GetDailyTrend returns one total per date in [start, end], ascending, with
// zero entries for days without activity.
func (s *SQLiteStore) GetDailyTrend(ctx context.Context, startDate, endDate string) ([]DailyTotal, error) {
	dates, err := dateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	var rows []DailyTotal
	err = s.db.SelectContext(ctx, &rows, `
		SELECT date, SUM(duration) AS duration
		FROM sites
		WHERE date BETWEEN ? AND ?
		GROUP BY date
	`, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("daily trend: %w", err)
	}

	byDate := make(map[string]int64, len(rows))
	for _, r := range rows {
		byDate[r.Date] = r.Duration
	}

	trend := make([]DailyTotal, 0, len(dates))
	for _, d := range dates {
		trend = append(trend, DailyTotal{Date: d, Duration: byDate[d]})
	}
	return trend, nil
}

// GetRangeStats returns the top sites and the daily trend of one range.
func (s *SQLiteStore) GetRangeStats(ctx context.Context, startDate, endDate string, limit int) (*RangeStats, error) {
	sites, err := s.GetAggregatedSites(ctx, startDate, endDate, limit)
	if err != nil {
		return nil, err
	}
	trend, err := s.GetDailyTrend(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}
	return &RangeStats{Sites: sites, Trend: trend}, nil
}

// GetHourlyTrend returns 24 hour-of-day buckets for date. Compacted hourly
// rollups and still-raw history rows are both counted, since a date can be
// partially retained.
func (s *SQLiteStore) GetHourlyTrend(ctx context.Context, date string) ([]HourBucket, error) {
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}

	hours := make([]HourBucket, 24)
	for h := range hours {
		hours[h].Hour = h
	}

	var compacted []HourlyStat
	if err := s.db.SelectContext(ctx, &compacted,
		"SELECT date, hour, duration FROM hourly_stats WHERE date = ?", date,
	); err != nil {
		return nil, fmt.Errorf("hourly stats: %w", err)
	}
	for _, st := range compacted {
		if st.Hour >= 0 && st.Hour < 24 {
			hours[st.Hour].Duration += st.Duration
		}
	}

	var raw []HistoryLog
	if err := s.db.SelectContext(ctx, &raw,
		"SELECT id, date, hostname, path, start_time, duration, title, event_source FROM history WHERE date = ?", date,
	); err != nil {
		return nil, fmt.Errorf("hourly history: %w", err)
	}
	for _, r := range raw {
		hours[r.Start().Hour()].Duration += r.Duration
	}

	return hours, nil
}

// GetAggregatedPages sums page durations per path for one hostname over
// [start, end], sorted by duration descending. The title and full path come
// from the most recent date that has them.
func (s *SQLiteStore) GetAggregatedPages(ctx context.Context, hostname, startDate, endDate string) ([]PageStat, error) {
	if _, err := validRange(startDate, endDate); err != nil {
		return nil, err
	}

	var rows []PageStat
	err := s.db.SelectContext(ctx, &rows, `
		SELECT date, hostname, path, full_path, duration, title
		FROM pages
		WHERE date BETWEEN ? AND ? AND hostname = ?
		ORDER BY date ASC, path ASC
	`, startDate, endDate, hostname)
	if err != nil {
		return nil, fmt.Errorf("aggregate pages: %w", err)
	}

	pages := []PageStat{}
	index := make(map[string]int)
	for _, r := range rows {
		i, ok := index[r.Path]
		if !ok {
			index[r.Path] = len(pages)
			pages = append(pages, r)
			continue
		}
		p := &pages[i]
		p.Duration += r.Duration
		p.Date = r.Date
		if r.Title != "" {
			p.Title = r.Title
		}
		if r.FullPath != "" {
			p.FullPath = r.FullPath
		}
	}

	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].Duration > pages[j].Duration
	})
	return pages, nil
}

// GetHistoryLogs returns raw segments newest first. Without a hostname the
// global start-time index is scanned; with one, each day is looked up by
// (date, hostname), newest day first, up to maxHistoryDays days.
func (s *SQLiteStore) GetHistoryLogs(ctx context.Context, q HistoryQuery) ([]HistoryLog, error) {
	if q.Limit <= 0 {
		q.Limit = defaultHistoryLimit
	}

	if q.Hostname == "" {
		return s.historyByTime(ctx, q)
	}

	dates, err := dateRangeDescending(q.StartDate, q.EndDate, maxHistoryDays)
	if err != nil {
		return nil, err
	}

	logs := []HistoryLog{}
	for _, date := range dates {
		var day []HistoryLog
		err := s.db.SelectContext(ctx, &day, `
			SELECT id, date, hostname, path, start_time, duration, title, event_source
			FROM history
			WHERE date = ? AND hostname = ?
			ORDER BY start_time DESC, id DESC
		`, date, q.Hostname)
		if err != nil {
			return nil, fmt.Errorf("history for %s: %w", date, err)
		}

		for _, h := range day {
			if q.Path != "" && h.Path != q.Path {
				continue
			}
			logs = append(logs, h)
		}
		if len(logs) >= q.Limit {
			return logs[:q.Limit], nil
		}
	}
	return logs, nil
}

func (s *SQLiteStore) historyByTime(ctx context.Context, q HistoryQuery) ([]HistoryLog, error) {
	from, err := ParseDate(q.StartDate)
	if err != nil {
		return nil, err
	}
	to, err := ParseDate(q.EndDate)
	if err != nil {
		return nil, err
	}
	startTs := from.UnixMilli()
	endTs := to.AddDate(0, 0, 1).UnixMilli() - 1

	query := `
		SELECT id, date, hostname, path, start_time, duration, title, event_source
		FROM history
		WHERE start_time BETWEEN ? AND ?`
	args := []interface{}{startTs, endTs}
	if q.Path != "" {
		query += " AND path = ?"
		args = append(args, q.Path)
	}
	query += " ORDER BY start_time DESC, id DESC LIMIT ?"
	args = append(args, q.Limit)

	logs := []HistoryLog{}
	if err := s.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("history by time: %w", err)
	}
	return logs, nil
}
