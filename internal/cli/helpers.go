package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/runnerr0/dwell/internal/config"
	"github.com/runnerr0/dwell/internal/storage"
)

// sqliteParams are appended to every on-disk DSN. Journal mode is set by the
// migration runner from config.
const sqliteParams = "?_busy_timeout=5000&_foreign_keys=on&_txlock=immediate"

// loadConfig reads --config, or the default path (created when missing).
func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	if globals != nil && globals.Config != "" {
		path, err := config.ExpandPath(globals.Config)
		if err != nil {
			return nil, err
		}
		return config.Load(path)
	}
	return config.LoadOrCreate()
}

// openStore opens the configured database, runs migrations and seeds the
// retention window on first use.
func openStore(cfg *config.Config) (*storage.SQLiteStore, *sql.DB, error) {
	dir, err := cfg.DataDir()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create data directory: %w", err)
	}
	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return nil, nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+sqliteParams)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	runner := storage.NewMigrationRunner(db).WithJournalMode(cfg.Storage.SQLiteJournalMode)
	if cfg.Blocklist.SeedDefaults {
		runner = runner.WithBlocklistSeed(config.DefaultBlocklist())
	}
	if err := runner.Run(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	store, err := storage.NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create store: %w", err)
	}

	if err := seedRetention(context.Background(), store, cfg.Retention.RawDays); err != nil {
		store.Close()
		db.Close()
		return nil, nil, err
	}

	return store, db, nil
}

// seedRetention stores the configured raw window unless one was already
// chosen (through the API or an earlier run).
func seedRetention(ctx context.Context, store *storage.SQLiteStore, days int) error {
	ok, err := store.HasRawRetentionDays(ctx)
	if err != nil {
		return fmt.Errorf("read retention setting: %w", err)
	}
	if ok || days < 1 {
		return nil
	}
	return store.SetRawRetentionDays(ctx, days)
}

// withStore loads config, opens the store and hands it to fn.
func withStore(globals *GlobalFlags, fn func(ctx context.Context, store *storage.SQLiteStore) error) error {
	cfg, err := loadConfig(globals)
	if err != nil {
		return err
	}
	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	return fn(context.Background(), store)
}

// resolveRange turns --start/--end/--days into two date keys.
func resolveRange(r DateRange, now time.Time) (string, string, error) {
	end := r.End
	if end == "" {
		end = storage.FormatDate(now)
	}
	if _, err := storage.ParseDate(end); err != nil {
		return "", "", err
	}

	start := r.Start
	switch {
	case r.Days > 0:
		s, err := storage.AddDays(end, -(r.Days - 1))
		if err != nil {
			return "", "", err
		}
		start = s
	case start == "":
		start = end
	}
	if _, err := storage.ParseDate(start); err != nil {
		return "", "", err
	}
	return start, end, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatMillis formats a millisecond duration like "2h 05m", "4m 10s" or "12s".
func formatMillis(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	h := int64(d / time.Hour)
	m := int64(d/time.Minute) % 60
	s := int64(d/time.Second) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats an int64 with comma separators.
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if len(s) <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}

	var result strings.Builder
	if neg {
		result.WriteString("-")
	}
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if i > 0 {
			result.WriteString(",")
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// bar renders a proportional bar of at most width cells.
func bar(value, max int64, width int) string {
	if max <= 0 || value <= 0 {
		return ""
	}
	n := int(value * int64(width) / max)
	if n == 0 {
		n = 1
	}
	return strings.Repeat("#", n)
}
