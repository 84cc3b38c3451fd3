package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/runnerr0/dwell/internal/storage"
)

// Execute implements the go-flags Commander interface for PurgeCommand.
func (c *PurgeCommand) Execute(args []string) error {
	if !c.All {
		return fmt.Errorf("purge requires --all flag for safety")
	}
	if !c.Force {
		if err := confirmPurge(os.Stdin); err != nil {
			return err
		}
	}
	return withStore(c.globals, c.executeWithStore)
}

// confirmPurge prints the warning and reads the confirmation word from in.
func confirmPurge(in io.Reader) error {
	fmt.Println("⚠ WARNING: This will permanently delete ALL activity data.")
	fmt.Println("  - All raw history")
	fmt.Println("  - All daily site and page totals")
	fmt.Println("  - All hourly rollups")
	fmt.Println()
	fmt.Println("The blocklist and retention setting are kept. This action cannot be undone.")
	fmt.Println()
	fmt.Print(`Type "PURGE" to confirm: `)

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return fmt.Errorf("aborted: no input received")
	}
	if strings.TrimSpace(scanner.Text()) != "PURGE" {
		return fmt.Errorf("aborted: confirmation text did not match")
	}
	return nil
}

func (c *PurgeCommand) executeWithStore(ctx context.Context, store *storage.SQLiteStore) error {
	if err := store.PurgeAll(ctx); err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}

	if c.globals.jsonOutput() {
		return printJSON(map[string]interface{}{
			"purged":  true,
			"message": "all activity deleted",
		})
	}
	fmt.Println("Purged all activity data.")
	return nil
}
