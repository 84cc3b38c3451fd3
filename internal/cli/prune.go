package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/dwell/internal/retention"
	"github.com/runnerr0/dwell/internal/storage"
)

// Execute implements the go-flags Commander interface for PruneCommand.
func (c *PruneCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	if c.MaxDays <= 0 {
		c.MaxDays = cfg.Retention.MaxDaysPerRun
	}
	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	return c.executeWithStore(context.Background(), store)
}

func (c *PruneCommand) executeWithStore(ctx context.Context, store *storage.SQLiteStore) error {
	now := c.globals.clock()

	if c.DryRun {
		days, err := store.RawRetentionDays(ctx)
		if err != nil {
			return err
		}
		cutoff := retention.Cutoff(now, days)
		n, err := store.CountHistoryBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		if c.globals.jsonOutput() {
			return printJSON(map[string]interface{}{
				"dry_run": true,
				"cutoff":  cutoff,
				"rows":    n,
			})
		}
		fmt.Printf("[DRY RUN] Would fold %s history rows dated before %s (%d days kept raw)\n",
			formatNumber(n), cutoff, days)
		return nil
	}

	job := retention.NewJob(store, retention.WithClock(func() time.Time { return now }))
	res, err := job.Run(ctx, c.MaxDays)
	if err != nil {
		return fmt.Errorf("retention: %w", err)
	}

	if c.globals.jsonOutput() {
		return printJSON(res)
	}
	if len(res.Processed) == 0 {
		fmt.Printf("Nothing to fold (raw history starts at or after %s)\n", res.Cutoff)
		return nil
	}
	fmt.Printf("Folded %d days (%s rows) into hourly rollups: %v\n",
		len(res.Processed), formatNumber(int64(res.Rows)), res.Processed)
	return nil
}

// Execute implements the go-flags Commander interface for RetentionCommand.
func (c *RetentionCommand) Execute(args []string) error {
	return withStore(c.globals, c.executeWithStore)
}

func (c *RetentionCommand) executeWithStore(ctx context.Context, store *storage.SQLiteStore) error {
	if c.Set != 0 {
		if err := store.SetRawRetentionDays(ctx, c.Set); err != nil {
			return err
		}
	}
	days, err := store.RawRetentionDays(ctx)
	if err != nil {
		return err
	}

	if c.globals.jsonOutput() {
		return printJSON(map[string]int{"raw_days": days})
	}
	fmt.Printf("Raw retention: %d days\n", days)
	return nil
}
