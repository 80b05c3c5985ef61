package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Serve      *ServeCommand
	Record     *RecordCommand
	Stats      *StatsCommand
	Event      *EventCommand
	TimeSeries *TimeSeriesCommand
	Status     *StatusCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "botstats"
	parser.LongDescription = "Record chat bot button clicks in SQLite and explore them from a dashboard."

	cmds := &commands{
		Serve:      &ServeCommand{globals: &globals, version: version},
		Record:     &RecordCommand{globals: &globals, version: version},
		Stats:      &StatsCommand{globals: &globals, version: version},
		Event:      &EventCommand{globals: &globals, version: version},
		TimeSeries: &TimeSeriesCommand{globals: &globals, version: version},
		Status:     &StatusCommand{globals: &globals, version: version},
	}

	parser.AddCommand("serve", "Start the dashboard server", "Serve the stats API and the embedded dashboard until interrupted.", cmds.Serve)
	parser.AddCommand("record", "Record a click event", "Record one click event with the current time as its timestamp.", cmds.Record)
	parser.AddCommand("stats", "Show per-event totals", "Show click count, first click and last click for every event.", cmds.Stats)
	parser.AddCommand("event", "Show clicks of one event", "Show every stored click of one event, newest first.", cmds.Event)
	parser.AddCommand("timeseries", "Show clicks per period", "Show click counts per event bucketed by hour, day, month or year.", cmds.TimeSeries)
	parser.AddCommand("status", "Show database status", "Show database path, size, totals and table columns.", cmds.Status)

	return parser, &globals, cmds
}

// Run is the main entry point for the botstats CLI using os.Args.
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
			fmt.Printf("botstats %s\n", version)
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
