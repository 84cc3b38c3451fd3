package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Status      *StatusCommand
	Sites       *SitesCommand
	Pages       *PagesCommand
	History     *HistoryCommand
	Trend       *TrendCommand
	Insights    *InsightsCommand
	Add         *AddCommand
	Forget      *ForgetCommand
	Prune       *PruneCommand
	Retention   *RetentionCommand
	Purge       *PurgeCommand
	Export      *ExportCommand
	Import      *ImportCommand
	BlockList   *BlockListCommand
	BlockAdd    *BlockAddCommand
	BlockRemove *BlockRemoveCommand
	Daemon      *DaemonCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "dwell"
	parser.LongDescription = "Local record of where your browsing time goes."

	cmds := &commands{
		Status:      &StatusCommand{globals: &globals, version: version},
		Sites:       &SitesCommand{globals: &globals},
		Pages:       &PagesCommand{globals: &globals},
		History:     &HistoryCommand{globals: &globals},
		Trend:       &TrendCommand{globals: &globals},
		Insights:    &InsightsCommand{globals: &globals},
		Add:         &AddCommand{globals: &globals},
		Forget:      &ForgetCommand{globals: &globals},
		Prune:       &PruneCommand{globals: &globals},
		Retention:   &RetentionCommand{globals: &globals},
		Purge:       &PurgeCommand{globals: &globals},
		Export:      &ExportCommand{globals: &globals},
		Import:      &ImportCommand{globals: &globals},
		BlockList:   &BlockListCommand{globals: &globals},
		BlockAdd:    &BlockAddCommand{globals: &globals},
		BlockRemove: &BlockRemoveCommand{globals: &globals},
		Daemon:      &DaemonCommand{globals: &globals, version: version},
	}

	parser.AddCommand("status", "Show database statistics", "Show row counts, date range, retention window and daemon health.", cmds.Status)
	parser.AddCommand("sites", "Top sites by active time", "List hostnames ordered by active time over a date range.", cmds.Sites)
	parser.AddCommand("pages", "Per-page breakdown of a site", "List paths of one hostname ordered by active time over a date range.", cmds.Pages)
	parser.AddCommand("history", "Raw session segments", "List raw session segments, newest first.", cmds.History)
	parser.AddCommand("trend", "Daily or hourly totals", "Show total active time per day, or per hour of one day with --hourly.", cmds.Trend)
	parser.AddCommand("insights", "Week-over-week comparison", "Compare a week against the previous one: totals, daily trend and top sites.", cmds.Insights)
	parser.AddCommand("add", "Record a manual activity", "Record time spent on a URL that the browser did not report.", cmds.Add)
	parser.AddCommand("forget", "Erase one site", "Delete every history, site and page row of a hostname.", cmds.Forget)
	parser.AddCommand("prune", "Fold old history into hourly rollups", "Run the retention job once: raw history older than the window becomes hourly rollups.", cmds.Prune)
	parser.AddCommand("retention", "Show or set the raw retention window", "Show or set how many trailing days of history stay raw.", cmds.Retention)
	parser.AddCommand("purge", "Delete ALL activity data", "Delete ALL activity data. Destructive operation with safety prompt.", cmds.Purge)
	parser.AddCommand("export", "Export a JSON snapshot", "Write history, sites and pages as a JSON snapshot.", cmds.Export)
	parser.AddCommand("import", "Import a JSON snapshot", "Merge a JSON snapshot into the database. Rows with an id overwrite existing ones.", cmds.Import)

	block, _ := parser.AddCommand("block", "Manage the blocklist", "Manage hostnames that are never tracked.", &BlockCommand{})
	block.AddCommand("list", "List blocked entries", "List blocked hostnames and patterns.", cmds.BlockList)
	block.AddCommand("add", "Block hostnames", "Block hostnames, URLs or *.domain patterns.", cmds.BlockAdd)
	block.AddCommand("remove", "Unblock hostnames", "Remove entries from the blocklist.", cmds.BlockRemove)

	parser.AddCommand("daemon", "Start the dwell daemon", "Start the tracker, retention scheduler and local HTTP API.", cmds.Daemon)

	return parser, &globals, cmds
}

// Run is the main entry point for the dwell CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("dwell %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
