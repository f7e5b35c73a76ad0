package cli

import "io"

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// RunCommand: interactive widget driven by the tick loop.
type RunCommand struct {
	Mode string `long:"mode" description:"Start in this view: clock | stopwatch | alarm | settings"`
	Once bool   `long:"once" description:"Render a single frame and exit"`

	globals *GlobalFlags
	version string
	env     *env      // injectable for testing; nil opens the configured store
	in      io.Reader // nil means stdin
}

// ClockCommand: print the transformed clock once.
type ClockCommand struct {
	globals *GlobalFlags
	version string
	env     *env
}

// SettingsCommand: show or change display settings.
type SettingsCommand struct {
	Offset      *int   `long:"offset" description:"Clock offset in minutes (offset transform)"`
	Transform   string `long:"transform" description:"Clock transform: offset | dilation"`
	HoursPerDay *int   `long:"hours-per-day" description:"Hours represented per real day (dilation transform, 1-48)"`
	Seconds     bool   `long:"seconds" description:"Show seconds"`
	NoSeconds   bool   `long:"no-seconds" description:"Hide seconds"`
	Dark        string `long:"dark" description:"Force dark mode: on | off"`
	Language    string `long:"lang" description:"Language tag, e.g. ja or en-US"`
	Mode        string `long:"mode" description:"Active view: clock | stopwatch | alarm | settings"`

	globals *GlobalFlags
	version string
	env     *env
}

// StopwatchShowCommand: print the stored stopwatch and laps.
type StopwatchShowCommand struct {
	globals *GlobalFlags
	version string
	env     *env
}

// StopwatchResetCommand: clear the stored stopwatch.
type StopwatchResetCommand struct {
	globals *GlobalFlags
	version string
	env     *env
}

// AlarmAddCommand: add an alarm at HH:MM.
type AlarmAddCommand struct {
	Args struct {
		Time string `positional-arg-name:"HH:MM" required:"yes"`
	} `positional-args:"yes"`

	globals *GlobalFlags
	version string
	env     *env
}

// AlarmListCommand: list alarms in order.
type AlarmListCommand struct {
	globals *GlobalFlags
	version string
	env     *env
}

// AlarmToggleCommand: flip an alarm's enabled flag.
type AlarmToggleCommand struct {
	Args struct {
		Ref string `positional-arg-name:"ALARM" description:"List position, id or id prefix" required:"yes"`
	} `positional-args:"yes"`

	globals *GlobalFlags
	version string
	env     *env
}

// AlarmRemoveCommand: delete an alarm.
type AlarmRemoveCommand struct {
	Args struct {
		Ref string `positional-arg-name:"ALARM" description:"List position, id or id prefix" required:"yes"`
	} `positional-args:"yes"`

	globals *GlobalFlags
	version string
	env     *env
}

// HistoryCommand: list recorded alarm firings.
type HistoryCommand struct {
	Since string `long:"since" description:"Only firings newer than duration (e.g., 7d, 24h, 2w)" default:"7d"`
	Alarm string `long:"alarm" description:"Only firings of this alarm id"`
	Limit int    `long:"limit" description:"Maximum results" default:"20"`

	globals *GlobalFlags
	version string
	env     *env
}

// PruneCommand: remove old firing history.
type PruneCommand struct {
	OlderThan string `long:"older-than" description:"Override retention period (e.g., 30d)"`
	DryRun    bool   `long:"dry-run" description:"Show what would be pruned without deleting"`
	Force     bool   `long:"force" description:"Skip confirmation prompt"`

	globals *GlobalFlags
	version string
	env     *env
	in      io.Reader
}

// StatusCommand: show store health, statistics and a state summary.
type StatusCommand struct {
	globals *GlobalFlags
	version string
	env     *env
}

// ServeCommand: serve the web shell cache-first for offline use.
type ServeCommand struct {
	Host     string `long:"host" description:"Override listen host"`
	Port     int    `long:"port" description:"Override listen port"`
	Upstream string `long:"upstream" description:"Fetch documents from this origin instead of the bundled shell"`

	globals *GlobalFlags
	version string
	env     *env
}

// PurgeCommand: delete ALL nclock data with safety confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
	env     *env
	in      io.Reader
}
