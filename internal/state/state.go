// Package state is the typed boundary between the widget and the string
// store. Values are validated on load; anything unreadable falls back to a
// default or is dropped.
package state

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/text/language"

	"github.com/runnerr0/nclock/internal/alarm"
	"github.com/runnerr0/nclock/internal/display"
)

// ErrInvalidSetting reports a setting value that cannot be stored.
var ErrInvalidSetting = errors.New("invalid setting")

// Mode is the active view.
type Mode string

const (
	ModeClock     Mode = "clock"
	ModeStopwatch Mode = "stopwatch"
	ModeAlarm     Mode = "alarm"
	ModeSettings  Mode = "settings"
)

// Modes lists every view in tab order.
var Modes = []Mode{ModeClock, ModeStopwatch, ModeAlarm, ModeSettings}

// ParseMode returns the Mode named by s.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidSetting, s)
}

// CanonicalLanguage validates a BCP 47 tag and returns its canonical form.
func CanonicalLanguage(tag string) (string, error) {
	t, err := language.Parse(tag)
	if err != nil {
		return "", fmt.Errorf("%w: language %q: %v", ErrInvalidSetting, tag, err)
	}
	return t.String(), nil
}

// Snapshot is everything the widget persists. The stopwatch running flag
// is not stored, so a reloaded stopwatch is always stopped.
type Snapshot struct {
	Mode             Mode
	Transform        display.Transform
	StopwatchElapsed time.Duration
	Laps             []string // newest first
	Alarms           []alarm.Entry
	LastTriggered    string
	DarkModeForced   bool
	Language         string
}

// Defaults seeds a Snapshot before anything has been persisted.
type Defaults struct {
	Transform display.Transform
	Language  string
}

// Empty returns the Snapshot used for keys that are missing or corrupt.
func (d Defaults) Empty() Snapshot {
	tr := d.Transform
	if tr.Kind == "" {
		tr.Kind = display.KindOffset
	}
	if tr.HoursPerDay == 0 {
		tr.HoursPerDay = 24
	}
	lang := d.Language
	if lang == "" {
		lang = "ja"
	}
	return Snapshot{
		Mode:      ModeClock,
		Transform: tr,
		Laps:      []string{},
		Alarms:    []alarm.Entry{},
		Language:  lang,
	}
}
