package storage

import (
	"context"
	"fmt"
)

const insightsTopSites = 5

// SiteComparison compares one hostname's total with the previous week.
type SiteComparison struct {
	Hostname      string  `json:"hostname"`
	ThisWeek      int64   `json:"thisWeek"`
	LastWeek      int64   `json:"lastWeek"`
	ChangePercent float64 `json:"changePercent"`
}

// WeeklyInsights summarises one week against the week before it.
type WeeklyInsights struct {
	ThisWeekTotal      int64            `json:"thisWeekTotal"`
	LastWeekTotal      int64            `json:"lastWeekTotal"`
	ChangePercent      float64          `json:"changePercent"`
	DailyTrend         []DailyTotal     `json:"dailyTrend"`
	Heatmap            [7][24]int64     `json:"heatmap"`
	TopSitesComparison []SiteComparison `json:"topSitesComparison"`
}

// GetWeeklyInsights builds the insights for [weekStart, weekEnd]. The
// previous week is the same range shifted back seven days. Heatmap rows are
// days offset from weekStart, columns are local hours.
func (s *SQLiteStore) GetWeeklyInsights(ctx context.Context, weekStart, weekEnd string) (*WeeklyInsights, error) {
	if _, err := validRange(weekStart, weekEnd); err != nil {
		return nil, err
	}
	lastStart, err := AddDays(weekStart, -7)
	if err != nil {
		return nil, err
	}
	lastEnd, err := AddDays(weekEnd, -7)
	if err != nil {
		return nil, err
	}

	out := &WeeklyInsights{TopSitesComparison: []SiteComparison{}}

	if out.ThisWeekTotal, err = s.rangeTotal(ctx, weekStart, weekEnd); err != nil {
		return nil, err
	}
	if out.LastWeekTotal, err = s.rangeTotal(ctx, lastStart, lastEnd); err != nil {
		return nil, err
	}
	out.ChangePercent = percentChange(out.ThisWeekTotal, out.LastWeekTotal)

	if out.DailyTrend, err = s.GetDailyTrend(ctx, weekStart, weekEnd); err != nil {
		return nil, err
	}
	if err := s.fillHeatmap(ctx, &out.Heatmap, weekStart, weekEnd); err != nil {
		return nil, err
	}

	top, err := s.GetAggregatedSites(ctx, weekStart, weekEnd, insightsTopSites)
	if err != nil {
		return nil, err
	}
	var previous []SiteStat
	if err := s.db.SelectContext(ctx, &previous, `
		SELECT hostname, SUM(duration) AS duration
		FROM sites
		WHERE date BETWEEN ? AND ?
		GROUP BY hostname
	`, lastStart, lastEnd); err != nil {
		return nil, fmt.Errorf("previous week sites: %w", err)
	}
	lastByHost := make(map[string]int64, len(previous))
	for _, p := range previous {
		lastByHost[p.Hostname] = p.Duration
	}
	for _, site := range top {
		last := lastByHost[site.Hostname]
		out.TopSitesComparison = append(out.TopSitesComparison, SiteComparison{
			Hostname:      site.Hostname,
			ThisWeek:      site.Duration,
			LastWeek:      last,
			ChangePercent: percentChange(site.Duration, last),
		})
	}

	return out, nil
}

func (s *SQLiteStore) rangeTotal(ctx context.Context, start, end string) (int64, error) {
	var total int64
	if err := s.db.GetContext(ctx, &total,
		"SELECT COALESCE(SUM(duration), 0) FROM sites WHERE date BETWEEN ? AND ?", start, end,
	); err != nil {
		return 0, fmt.Errorf("range total: %w", err)
	}
	return total, nil
}

func (s *SQLiteStore) fillHeatmap(ctx context.Context, m *[7][24]int64, start, end string) error {
	dates, err := dateRange(start, end)
	if err != nil {
		return err
	}
	dayIndex := make(map[string]int, 7)
	for i, d := range dates {
		if i == 7 {
			break
		}
		dayIndex[d] = i
	}

	var compacted []HourlyStat
	if err := s.db.SelectContext(ctx, &compacted,
		"SELECT date, hour, duration FROM hourly_stats WHERE date BETWEEN ? AND ?", start, end,
	); err != nil {
		return fmt.Errorf("heatmap hourly stats: %w", err)
	}
	for _, st := range compacted {
		if i, ok := dayIndex[st.Date]; ok && st.Hour >= 0 && st.Hour < 24 {
			m[i][st.Hour] += st.Duration
		}
	}

	var raw []HistoryLog
	if err := s.db.SelectContext(ctx, &raw,
		"SELECT id, date, hostname, path, start_time, duration, title, event_source FROM history WHERE date BETWEEN ? AND ?",
		start, end,
	); err != nil {
		return fmt.Errorf("heatmap history: %w", err)
	}
	for _, r := range raw {
		if i, ok := dayIndex[r.Date]; ok {
			m[i][r.Start().Hour()] += r.Duration
		}
	}
	return nil
}

func percentChange(current, previous int64) float64 {
	if previous <= 0 {
		return 0
	}
	return float64(current-previous) / float64(previous) * 100
}
