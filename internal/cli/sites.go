package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/dwell/internal/storage"
)

// Execute implements the go-flags Commander interface for SitesCommand.
func (c *SitesCommand) Execute(args []string) error {
	return withStore(c.globals, c.executeWithStore)
}

func (c *SitesCommand) executeWithStore(ctx context.Context, store *storage.SQLiteStore) error {
	start, end, err := resolveRange(c.DateRange, c.globals.clock())
	if err != nil {
		return err
	}
	sites, err := store.GetAggregatedSites(ctx, start, end, c.Limit)
	if err != nil {
		return fmt.Errorf("query sites: %w", err)
	}

	if c.globals.jsonOutput() {
		return printJSON(sites)
	}

	fmt.Printf("Sites %s .. %s\n\n", start, end)
	if len(sites) == 0 {
		fmt.Println("No activity recorded.")
		return nil
	}
	var total int64
	for _, s := range sites {
		total += s.Duration
	}
	top := sites[0].Duration
	for i, s := range sites {
		fmt.Printf("%3d. %-28s %10s  %s\n", i+1, s.Hostname, formatMillis(s.Duration), bar(s.Duration, top, 30))
	}
	fmt.Printf("\nTotal: %s\n", formatMillis(total))
	return nil
}

// Execute implements the go-flags Commander interface for PagesCommand.
func (c *PagesCommand) Execute(args []string) error {
	if c.Hostname == "" {
		return fmt.Errorf("--hostname is required for pages command")
	}
	return withStore(c.globals, c.executeWithStore)
}

func (c *PagesCommand) executeWithStore(ctx context.Context, store *storage.SQLiteStore) error {
	start, end, err := resolveRange(c.DateRange, c.globals.clock())
	if err != nil {
		return err
	}
	pages, err := store.GetAggregatedPages(ctx, c.Hostname, start, end)
	if err != nil {
		return fmt.Errorf("query pages: %w", err)
	}

	if c.globals.jsonOutput() {
		return printJSON(pages)
	}

	fmt.Printf("%s %s .. %s\n\n", c.Hostname, start, end)
	if len(pages) == 0 {
		fmt.Println("No pages recorded.")
		return nil
	}
	for _, p := range pages {
		title := p.Title
		if title == "" {
			title = "-"
		}
		fmt.Printf("%10s  %-40s %s\n", formatMillis(p.Duration), p.Path, title)
	}
	return nil
}
