package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/runnerr0/dwell/internal/session"
	"github.com/runnerr0/dwell/internal/storage"
)

// Execute implements the go-flags Commander interface for AddCommand.
func (c *AddCommand) Execute(args []string) error {
	if c.URL == "" {
		return fmt.Errorf("--url is required for add command")
	}
	if c.Duration == "" {
		return fmt.Errorf("--duration is required for add command")
	}
	return withStore(c.globals, c.executeWithStore)
}

// executeWithStore runs the add logic against a provided store (used by tests).
func (c *AddCommand) executeWithStore(ctx context.Context, store *storage.SQLiteStore) error {
	d, err := time.ParseDuration(c.Duration)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", c.Duration, err)
	}

	start := c.globals.clock().Add(-d)
	if c.Start != "" {
		start, err = time.Parse(time.RFC3339, c.Start)
		if err != nil {
			return fmt.Errorf("invalid start %q: %w", c.Start, err)
		}
	}

	err = store.RecordActivity(ctx, storage.Activity{
		URL:       c.URL,
		Title:     c.Title,
		Duration:  d,
		StartTime: start,
		Source:    session.SourceManual,
	})
	if err != nil {
		if errors.Is(err, storage.ErrValidation) {
			return err
		}
		return fmt.Errorf("record activity: %w", err)
	}

	if c.globals.jsonOutput() {
		return printJSON(map[string]interface{}{
			"url":        c.URL,
			"durationMs": d.Milliseconds(),
			"startTime":  start.UnixMilli(),
		})
	}
	fmt.Printf("Recorded %s on %s\n", formatMillis(d.Milliseconds()), c.URL)
	return nil
}

// Execute implements the go-flags Commander interface for ForgetCommand.
func (c *ForgetCommand) Execute(args []string) error {
	if c.Hostname == "" {
		return fmt.Errorf("--hostname is required for forget command")
	}
	return withStore(c.globals, c.executeWithStore)
}

func (c *ForgetCommand) executeWithStore(ctx context.Context, store *storage.SQLiteStore) error {
	if err := store.DeleteSiteData(ctx, c.Hostname); err != nil {
		return fmt.Errorf("forget %s: %w", c.Hostname, err)
	}
	if c.globals.jsonOutput() {
		return printJSON(map[string]interface{}{"hostname": c.Hostname, "deleted": true})
	}
	fmt.Printf("Deleted all data for %s\n", c.Hostname)
	return nil
}
