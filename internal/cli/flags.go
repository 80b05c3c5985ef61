package cli

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	DBPath  string `long:"db" description:"Path to the SQLite database (overrides config)"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// ServeCommand: run the dashboard HTTP server.
type ServeCommand struct {
	Host string `long:"host" description:"Listen host (overrides config)"`
	Port int    `long:"port" description:"Listen port (overrides config)"`

	globals *GlobalFlags
	version string
}

// RecordCommand: record one click event.
type RecordCommand struct {
	Event  string   `long:"event" description:"Event ID (required)"`
	User   string   `long:"user" description:"User ID"`
	Data   string   `long:"data" description:"Additional data, stored verbatim (JSON or text)"`
	Fields []string `long:"field" description:"Extension column value as name=value (repeatable)"`

	globals *GlobalFlags
	version string
}

// StatsCommand: per-event click summary.
type StatsCommand struct {
	globals *GlobalFlags
	version string
}

// EventCommand: every stored click of one event.
type EventCommand struct {
	ID    string `long:"id" description:"Event ID (required)"`
	Limit int    `long:"limit" description:"Maximum rows, newest first (0 = all)" default:"0"`

	globals *GlobalFlags
	version string
}

// TimeSeriesCommand: click counts per period bucket.
type TimeSeriesCommand struct {
	Period string `long:"period" description:"Bucket size: hour | day | month | year" default:"day"`
	TZ     string `long:"tz" description:"IANA time zone for bucketing (overrides config)"`

	globals *GlobalFlags
	version string
}

// StatusCommand: database path, size and table summary.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}
