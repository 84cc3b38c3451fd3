package cli

import "time"

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`

	now func() time.Time // overridden in tests
}

func (g *GlobalFlags) clock() time.Time {
	if g == nil || g.now == nil {
		return time.Now()
	}
	return g.now()
}

func (g *GlobalFlags) jsonOutput() bool {
	return g != nil && g.JSON
}

// DateRange selects a span of calendar dates. --days wins over --start.
type DateRange struct {
	Start string `long:"start" description:"First date (YYYY-MM-DD), defaults to today"`
	End   string `long:"end" description:"Last date (YYYY-MM-DD), defaults to today"`
	Days  int    `long:"days" description:"Last N days ending at --end"`
}

// StatusCommand prints database statistics, the retention window and daemon health.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// SitesCommand lists the top hostnames by active time.
type SitesCommand struct {
	DateRange
	Limit int `long:"limit" description:"Maximum sites" default:"20"`

	globals *GlobalFlags
}

// PagesCommand breaks one hostname down by path.
type PagesCommand struct {
	DateRange
	Hostname string `long:"hostname" description:"Hostname to break down (required)"`

	globals *GlobalFlags
}

// HistoryCommand lists raw session segments, newest first.
type HistoryCommand struct {
	DateRange
	Hostname string `long:"hostname" description:"Only this hostname"`
	Path     string `long:"path" description:"Only this path (as stored, including query)"`
	Limit    int    `long:"limit" description:"Maximum rows" default:"50"`

	globals *GlobalFlags
}

// TrendCommand prints daily totals, or hour-of-day totals with --hourly.
type TrendCommand struct {
	DateRange
	Hourly bool   `long:"hourly" description:"Show the 24 hourly buckets of --date"`
	Date   string `long:"date" description:"Date for --hourly, defaults to today"`

	globals *GlobalFlags
}

// InsightsCommand compares a week with the one before.
type InsightsCommand struct {
	WeekStart string `long:"week-start" description:"Monday of the week (YYYY-MM-DD), defaults to this week"`

	globals *GlobalFlags
}

// AddCommand records a manual activity.
type AddCommand struct {
	URL      string `long:"url" description:"URL to record (required)"`
	Title    string `long:"title" description:"Page title"`
	Duration string `long:"duration" description:"Time spent (e.g. 90s, 15m, 1h30m) (required)"`
	Start    string `long:"start" description:"Start time (RFC3339), defaults to now minus duration"`

	globals *GlobalFlags
}

// ForgetCommand erases every row of one hostname.
type ForgetCommand struct {
	Hostname string `long:"hostname" description:"Hostname to erase (required)"`

	globals *GlobalFlags
}

// PruneCommand folds raw history older than the retention window into
// hourly rollups.
type PruneCommand struct {
	MaxDays int  `long:"max-days" description:"Maximum days to fold in this run (defaults to config)"`
	DryRun  bool `long:"dry-run" description:"Show what would be folded without changing anything"`

	globals *GlobalFlags
}

// RetentionCommand shows or changes the raw retention window.
type RetentionCommand struct {
	Set int `long:"set" description:"New raw retention window in days"`

	globals *GlobalFlags
}

// PurgeCommand deletes ALL activity data after a safety confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
}

// ExportCommand writes a JSON snapshot of all activity tables.
type ExportCommand struct {
	Output string `long:"output" short:"o" description:"Output file (defaults to stdout)"`

	globals *GlobalFlags
}

// ImportCommand merges a JSON snapshot into the database.
type ImportCommand struct {
	Input string `long:"input" short:"i" description:"Snapshot file (required)"`

	globals *GlobalFlags
}

// BlockCommand groups the blocklist subcommands.
type BlockCommand struct{}

// BlockListCommand prints the blocklist.
type BlockListCommand struct {
	globals *GlobalFlags
}

// BlockAddCommand adds hostnames or "*." patterns.
type BlockAddCommand struct {
	globals *GlobalFlags
}

type BlockRemoveCommand struct {
	globals *GlobalFlags
}

// DaemonCommand runs the tracker, the retention scheduler and the HTTP API.
type DaemonCommand struct {
	Port     int    `long:"port" description:"Override daemon port"`
	LogLevel string `long:"log-level" description:"Override log level"`

	globals *GlobalFlags
	version string
}
