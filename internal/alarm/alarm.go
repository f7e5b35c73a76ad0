// Package alarm holds the ordered alarm list and decides, at minute
// granularity, which alarms fire.
package alarm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidTime reports a malformed or out-of-range time of day.
	ErrInvalidTime = errors.New("invalid time of day")
	// ErrNotFound reports an unknown alarm id.
	ErrNotFound = errors.New("alarm not found")
)

// Entry is one user-defined alarm.
type Entry struct {
	ID      string
	Hour    int
	Minute  int
	Enabled bool
}

// Label renders the alarm time as HH:MM.
func (e Entry) Label() string {
	return fmt.Sprintf("%02d:%02d", e.Hour, e.Minute)
}

// Matches reports whether now falls in the alarm's hour and minute.
func (e Entry) Matches(now time.Time) bool {
	return e.Hour == now.Hour() && e.Minute == now.Minute()
}

// ValidateTime checks that hour and minute form a time of day.
func ValidateTime(hour, minute int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("%w: hour %d out of range 0-23", ErrInvalidTime, hour)
	}
	if minute < 0 || minute > 59 {
		return fmt.Errorf("%w: minute %d out of range 0-59", ErrInvalidTime, minute)
	}
	return nil
}

// ParseTimeOfDay parses "HH:MM" (or "H:MM") into hour and minute.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, fmt.Errorf("%w: empty time", ErrInvalidTime)
	}
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q is not HH:MM", ErrInvalidTime, s)
	}
	hour, err = strconv.Atoi(hh)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q is not HH:MM", ErrInvalidTime, s)
	}
	minute, err = strconv.Atoi(mm)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q is not HH:MM", ErrInvalidTime, s)
	}
	if err := ValidateTime(hour, minute); err != nil {
		return 0, 0, err
	}
	return hour, minute, nil
}

// TriggerKey encodes the calendar minute of t as yyyymmddHHMM. Two instants
// share a key exactly when they fall in the same local minute.
func TriggerKey(t time.Time) string {
	return t.Format("200601021504")
}
