package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/dwell/internal/blocklist"
	"github.com/runnerr0/dwell/internal/storage"
)

func loadFilter(ctx context.Context, store *storage.SQLiteStore) (*blocklist.Filter, error) {
	f := blocklist.New(store)
	if err := f.Reload(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

// Execute implements the go-flags Commander interface for BlockListCommand.
func (c *BlockListCommand) Execute(args []string) error {
	return withStore(c.globals, c.executeWithStore)
}

func (c *BlockListCommand) executeWithStore(ctx context.Context, store *storage.SQLiteStore) error {
	f, err := loadFilter(ctx, store)
	if err != nil {
		return err
	}
	entries := blocklist.Sorted(f.List())

	if c.globals.jsonOutput() {
		return printJSON(map[string][]string{"entries": entries})
	}
	if len(entries) == 0 {
		fmt.Println("Blocklist is empty.")
		return nil
	}
	for _, e := range entries {
		fmt.Println(e)
	}
	return nil
}

// Execute implements the go-flags Commander interface for BlockAddCommand.
func (c *BlockAddCommand) Execute(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("block add needs at least one hostname")
	}
	return withStore(c.globals, func(ctx context.Context, store *storage.SQLiteStore) error {
		return c.executeWithStore(ctx, store, args)
	})
}

func (c *BlockAddCommand) executeWithStore(ctx context.Context, store *storage.SQLiteStore, args []string) error {
	f, err := loadFilter(ctx, store)
	if err != nil {
		return err
	}
	added := make([]string, 0, len(args))
	for _, a := range args {
		entry, err := f.Add(ctx, a)
		if err != nil {
			return err
		}
		added = append(added, entry)
	}

	if c.globals.jsonOutput() {
		return printJSON(map[string][]string{"added": added})
	}
	for _, e := range added {
		fmt.Printf("Blocked %s\n", e)
	}
	return nil
}

// Execute implements the go-flags Commander interface for BlockRemoveCommand.
func (c *BlockRemoveCommand) Execute(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("block remove needs at least one hostname")
	}
	return withStore(c.globals, func(ctx context.Context, store *storage.SQLiteStore) error {
		return c.executeWithStore(ctx, store, args)
	})
}

func (c *BlockRemoveCommand) executeWithStore(ctx context.Context, store *storage.SQLiteStore, args []string) error {
	f, err := loadFilter(ctx, store)
	if err != nil {
		return err
	}
	removed := []string{}
	missing := []string{}
	for _, a := range args {
		ok, err := f.Remove(ctx, a)
		if err != nil {
			return err
		}
		if ok {
			removed = append(removed, a)
		} else {
			missing = append(missing, a)
		}
	}

	if c.globals.jsonOutput() {
		return printJSON(map[string][]string{"removed": removed, "missing": missing})
	}
	for _, e := range removed {
		fmt.Printf("Unblocked %s\n", e)
	}
	for _, e := range missing {
		fmt.Printf("Not in blocklist: %s\n", e)
	}
	return nil
}
