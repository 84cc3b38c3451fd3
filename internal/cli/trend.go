package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/dwell/internal/storage"
)

// Execute implements the go-flags Commander interface for TrendCommand.
func (c *TrendCommand) Execute(args []string) error {
	return withStore(c.globals, c.executeWithStore)
}

func (c *TrendCommand) executeWithStore(ctx context.Context, store *storage.SQLiteStore) error {
	if c.Hourly {
		return c.hourly(ctx, store)
	}

	start, end, err := resolveRange(c.DateRange, c.globals.clock())
	if err != nil {
		return err
	}
	trend, err := store.GetDailyTrend(ctx, start, end)
	if err != nil {
		return fmt.Errorf("query trend: %w", err)
	}

	if c.globals.jsonOutput() {
		return printJSON(trend)
	}

	var top int64
	for _, d := range trend {
		if d.Duration > top {
			top = d.Duration
		}
	}
	for _, d := range trend {
		fmt.Printf("%s  %10s  %s\n", d.Date, formatMillis(d.Duration), bar(d.Duration, top, 40))
	}
	return nil
}

func (c *TrendCommand) hourly(ctx context.Context, store *storage.SQLiteStore) error {
	date := c.Date
	if date == "" {
		date = storage.FormatDate(c.globals.clock())
	}
	hours, err := store.GetHourlyTrend(ctx, date)
	if err != nil {
		return fmt.Errorf("query hourly trend: %w", err)
	}

	if c.globals.jsonOutput() {
		return printJSON(hours)
	}

	var top int64
	for _, h := range hours {
		if h.Duration > top {
			top = h.Duration
		}
	}
	fmt.Printf("%s\n\n", date)
	for _, h := range hours {
		fmt.Printf("%02d:00  %10s  %s\n", h.Hour, formatMillis(h.Duration), bar(h.Duration, top, 40))
	}
	return nil
}

// Execute implements the go-flags Commander interface for InsightsCommand.
func (c *InsightsCommand) Execute(args []string) error {
	return withStore(c.globals, c.executeWithStore)
}

// mondayOf returns the Monday of the week containing t.
func mondayOf(t time.Time) string {
	offset := (int(t.Weekday()) + 6) % 7
	return storage.FormatDate(t.AddDate(0, 0, -offset))
}

func (c *InsightsCommand) executeWithStore(ctx context.Context, store *storage.SQLiteStore) error {
	start := c.WeekStart
	if start == "" {
		start = mondayOf(c.globals.clock())
	}
	end, err := storage.AddDays(start, 6)
	if err != nil {
		return err
	}

	in, err := store.GetWeeklyInsights(ctx, start, end)
	if err != nil {
		return fmt.Errorf("weekly insights: %w", err)
	}

	if c.globals.jsonOutput() {
		return printJSON(in)
	}

	fmt.Printf("Week %s .. %s\n\n", start, end)
	fmt.Printf("This week:  %s\n", formatMillis(in.ThisWeekTotal))
	fmt.Printf("Last week:  %s\n", formatMillis(in.LastWeekTotal))
	fmt.Printf("Change:     %+.1f%%\n", in.ChangePercent)

	fmt.Println()
	for _, d := range in.DailyTrend {
		fmt.Printf("  %s  %10s\n", d.Date, formatMillis(d.Duration))
	}

	if len(in.TopSitesComparison) > 0 {
		fmt.Println()
		fmt.Println("Top Sites:")
		for _, s := range in.TopSitesComparison {
			fmt.Printf("  %-28s %10s  (last week %s, %+.1f%%)\n",
				s.Hostname, formatMillis(s.ThisWeek), formatMillis(s.LastWeek), s.ChangePercent)
		}
	}
	return nil
}
