package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/dwell/internal/storage"
)

// Execute implements the go-flags Commander interface for HistoryCommand.
func (c *HistoryCommand) Execute(args []string) error {
	return withStore(c.globals, c.executeWithStore)
}

func (c *HistoryCommand) executeWithStore(ctx context.Context, store *storage.SQLiteStore) error {
	start, end, err := resolveRange(c.DateRange, c.globals.clock())
	if err != nil {
		return err
	}
	logs, err := store.GetHistoryLogs(ctx, storage.HistoryQuery{
		StartDate: start,
		EndDate:   end,
		Hostname:  c.Hostname,
		Path:      c.Path,
		Limit:     c.Limit,
	})
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}

	if c.globals.jsonOutput() {
		return printJSON(logs)
	}

	if len(logs) == 0 {
		fmt.Println("No history in range.")
		return nil
	}
	for _, h := range logs {
		fmt.Printf("%s  %8s  %-12s %s%s\n",
			h.Start().Format("2006-01-02 15:04:05"),
			formatMillis(h.Duration),
			h.EventSource,
			h.Hostname,
			h.Path,
		)
	}
	return nil
}
