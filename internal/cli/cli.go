package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Run            *RunCommand
	Clock          *ClockCommand
	Settings       *SettingsCommand
	StopwatchShow  *StopwatchShowCommand
	StopwatchReset *StopwatchResetCommand
	AlarmAdd       *AlarmAddCommand
	AlarmList      *AlarmListCommand
	AlarmToggle    *AlarmToggleCommand
	AlarmRemove    *AlarmRemoveCommand
	History        *HistoryCommand
	Prune          *PruneCommand
	Status         *StatusCommand
	Serve          *ServeCommand
	Purge          *PurgeCommand
}

// group is a command that only hosts subcommands.
type group struct{}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "nclock"
	parser.LongDescription = "Terminal clock, stopwatch and alarms with an offset or time-dilated clock face."

	cmds := &commands{
		Run:            &RunCommand{globals: &globals, version: version},
		Clock:          &ClockCommand{globals: &globals, version: version},
		Settings:       &SettingsCommand{globals: &globals, version: version},
		StopwatchShow:  &StopwatchShowCommand{globals: &globals, version: version},
		StopwatchReset: &StopwatchResetCommand{globals: &globals, version: version},
		AlarmAdd:       &AlarmAddCommand{globals: &globals, version: version},
		AlarmList:      &AlarmListCommand{globals: &globals, version: version},
		AlarmToggle:    &AlarmToggleCommand{globals: &globals, version: version},
		AlarmRemove:    &AlarmRemoveCommand{globals: &globals, version: version},
		History:        &HistoryCommand{globals: &globals, version: version},
		Prune:          &PruneCommand{globals: &globals, version: version},
		Status:         &StatusCommand{globals: &globals, version: version},
		Serve:          &ServeCommand{globals: &globals, version: version},
		Purge:          &PurgeCommand{globals: &globals, version: version},
	}

	parser.AddCommand("run", "Run the interactive widget", "Run the clock, stopwatch and alarms in the terminal. Commands are typed at the prompt; enter dismisses a ringing alarm.", cmds.Run)
	parser.AddCommand("clock", "Print the clock", "Print the current time through the configured offset or dilation transform.", cmds.Clock)
	parser.AddCommand("settings", "Show or change settings", "Show or change the clock transform, seconds display, dark mode, language and active view.", cmds.Settings)

	sw, _ := parser.AddCommand("stopwatch", "Inspect the stopwatch", "Inspect or reset the persisted stopwatch.", &group{})
	sw.AddCommand("show", "Show elapsed time and laps", "Show the persisted elapsed time and laps, newest first.", cmds.StopwatchShow)
	sw.AddCommand("reset", "Reset the stopwatch", "Clear the persisted elapsed time and laps.", cmds.StopwatchReset)

	al, _ := parser.AddCommand("alarm", "Manage alarms", "Add, list, toggle and remove alarms.", &group{})
	al.AddCommand("add", "Add an alarm", "Add an enabled alarm at HH:MM (24-hour).", cmds.AlarmAdd)
	al.AddCommand("list", "List alarms", "List alarms in the order they were added.", cmds.AlarmList)
	al.AddCommand("toggle", "Enable or disable an alarm", "Flip an alarm's enabled flag.", cmds.AlarmToggle)
	rm, _ := al.AddCommand("rm", "Remove an alarm", "Remove an alarm by list position, id or id prefix.", cmds.AlarmRemove)
	rm.Aliases = []string{"remove"}

	parser.AddCommand("history", "List alarm firings", "List recorded alarm firings, newest first.", cmds.History)
	parser.AddCommand("prune", "Apply history retention", "Remove alarm firings older than the retention period.", cmds.Prune)
	parser.AddCommand("status", "Show store health and statistics", "Show store location, statistics and a summary of the current state.", cmds.Status)
	parser.AddCommand("serve", "Serve the offline web shell", "Serve the web shell cache-first so it keeps working offline.", cmds.Serve)
	parser.AddCommand("purge", "Delete ALL nclock data", "Delete ALL nclock data. Destructive operation with safety prompt.", cmds.Purge)

	return parser, &globals, cmds
}

// Run is the main entry point for the nclock CLI using os.Args.
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
			fmt.Printf("nclock %s\n", version)
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
