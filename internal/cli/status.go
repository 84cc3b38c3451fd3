package cli

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/runnerr0/dwell/internal/config"
	"github.com/runnerr0/dwell/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string             `json:"version"`
	DatabasePath      string             `json:"database_path"`
	DatabaseSizeBytes int64              `json:"database_size_bytes"`
	HistoryRows       int64              `json:"history_rows"`
	SiteRows          int64              `json:"site_rows"`
	PageRows          int64              `json:"page_rows"`
	HourlyRows        int64              `json:"hourly_rows"`
	OldestDate        string             `json:"oldest_date,omitempty"`
	NewestDate        string             `json:"newest_date,omitempty"`
	RawRetentionDays  int                `json:"raw_retention_days"`
	TopSites          []storage.SiteStat `json:"top_sites"`
	DaemonAddr        string             `json:"daemon_addr"`
	DaemonRunning     bool               `json:"daemon_running"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	return c.executeWithStore(context.Background(), store, cfg)
}

// executeWithStore runs status against a provided store (for testing).
func (c *StatusCommand) executeWithStore(ctx context.Context, store *storage.SQLiteStore, cfg *config.Config) error {
	stats, err := store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return err
	}
	addr := net.JoinHostPort(cfg.Daemon.Host, strconv.Itoa(cfg.Daemon.Port))
	running := checkDaemon(addr)

	if c.globals.jsonOutput() {
		return printJSON(statusJSON{
			Version:           c.version,
			DatabasePath:      dbPath,
			DatabaseSizeBytes: stats.DatabaseSizeBytes,
			HistoryRows:       stats.HistoryCount,
			SiteRows:          stats.SitesCount,
			PageRows:          stats.PagesCount,
			HourlyRows:        stats.HourlyCount,
			OldestDate:        stats.OldestDate,
			NewestDate:        stats.NewestDate,
			RawRetentionDays:  stats.RawRetentionDays,
			TopSites:          stats.TopSites,
			DaemonAddr:        addr,
			DaemonRunning:     running,
		})
	}

	fmt.Println("Dwell Status")
	fmt.Println("============")
	fmt.Printf("Version:       %s\n", c.version)
	fmt.Printf("Database:      %s (%s)\n", dbPath, formatBytes(stats.DatabaseSizeBytes))
	fmt.Printf("History:       %s rows\n", formatNumber(stats.HistoryCount))
	fmt.Printf("Sites:         %s rows\n", formatNumber(stats.SitesCount))
	fmt.Printf("Pages:         %s rows\n", formatNumber(stats.PagesCount))
	fmt.Printf("Hourly:        %s rows\n", formatNumber(stats.HourlyCount))
	if stats.OldestDate != "" {
		fmt.Printf("Range:         %s .. %s\n", stats.OldestDate, stats.NewestDate)
	}
	fmt.Printf("Retention:     %d days raw\n", stats.RawRetentionDays)

	if len(stats.TopSites) > 0 {
		fmt.Println()
		fmt.Println("Top Sites:")
		for _, s := range stats.TopSites {
			fmt.Printf("  %-28s %s\n", s.Hostname, formatMillis(s.Duration))
		}
	}

	fmt.Println()
	if running {
		fmt.Printf("Daemon:        running (%s)\n", addr)
	} else {
		fmt.Printf("Daemon:        not running (%s)\n", addr)
	}
	return nil
}

// checkDaemon reports whether the daemon answers its healthcheck within
// one second.
func checkDaemon(addr string) bool {
	client := &http.Client{Timeout: 1 * time.Second}
	resp, err := client.Get("http://" + addr + "/healthcheck")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
