package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/runnerr0/dwell/internal/storage"
)

// Execute implements the go-flags Commander interface for ExportCommand.
func (c *ExportCommand) Execute(args []string) error {
	return withStore(c.globals, c.executeWithStore)
}

func (c *ExportCommand) executeWithStore(ctx context.Context, store *storage.SQLiteStore) error {
	snap, err := store.ExportAll(ctx)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if c.Output != "" {
		f, err := os.Create(c.Output)
		if err != nil {
			return fmt.Errorf("create %s: %w", c.Output, err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	if c.Output != "" {
		fmt.Fprintf(os.Stderr, "Exported %d history, %d site and %d page rows to %s\n",
			len(snap.History), len(snap.Sites), len(snap.Pages), c.Output)
	}
	return nil
}

// Execute implements the go-flags Commander interface for ImportCommand.
func (c *ImportCommand) Execute(args []string) error {
	if c.Input == "" {
		return fmt.Errorf("--input is required for import command")
	}
	return withStore(c.globals, c.executeWithStore)
}

func (c *ImportCommand) executeWithStore(ctx context.Context, store *storage.SQLiteStore) error {
	data, err := os.ReadFile(c.Input)
	if err != nil {
		return fmt.Errorf("read %s: %w", c.Input, err)
	}
	snap, err := storage.ParseSnapshot(data)
	if err != nil {
		return err
	}
	if err := store.Import(ctx, snap); err != nil {
		return err
	}

	if c.globals.jsonOutput() {
		return printJSON(map[string]int{
			"history": len(snap.History),
			"sites":   len(snap.Sites),
			"pages":   len(snap.Pages),
		})
	}
	fmt.Printf("Imported %d history, %d site and %d page rows\n",
		len(snap.History), len(snap.Sites), len(snap.Pages))
	return nil
}
