// Package display computes the time shown by the clock view from the wall
// clock and the active transform.
package display

import (
	"fmt"
	"math"
	"time"
)

// Kind selects how wall-clock time is transformed before display.
type Kind string

const (
	// KindOffset adds a fixed number of minutes to the wall clock.
	KindOffset Kind = "offset"
	// KindDilation rescales the seconds of the day so that a virtual day
	// lasts HoursPerDay real hours.
	KindDilation Kind = "dilation"
)

// Hours-per-day bounds for the dilation transform.
const (
	MinHoursPerDay = 1
	MaxHoursPerDay = 48

	secondsPerDay = 24 * 60 * 60
)

// ParseKind returns the Kind named by s.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindOffset, KindDilation:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown clock transform %q", s)
}

// Transform is the clock display configuration.
type Transform struct {
	Kind          Kind
	OffsetMinutes int
	HoursPerDay   int
	ShowSeconds   bool
}

// ClampHours bounds h to the accepted hours-per-day range.
func ClampHours(h int) int {
	if h < MinHoursPerDay {
		return MinHoursPerDay
	}
	if h > MaxHoursPerDay {
		return MaxHoursPerDay
	}
	return h
}

// Offset returns wall shifted by minutes. Day boundaries roll over through
// normal time arithmetic.
func Offset(wall time.Time, minutes int) time.Time {
	return wall.Add(time.Duration(minutes) * time.Minute)
}

// Dilate maps the wall clock's seconds of day onto a virtual day that lasts
// hoursPerDay real hours. hoursPerDay is clamped before use, so speed is
// never infinite.
func Dilate(wall time.Time, hoursPerDay int) (h, m, s int) {
	speed := 24 / float64(ClampHours(hoursPerDay))
	secOfDay := wall.Hour()*3600 + wall.Minute()*60 + wall.Second()
	virtual := math.Floor(float64(secOfDay) * speed)

	total := int64(virtual) % secondsPerDay
	h = int(total / 3600)
	m = int(total/60) % 60
	s = int(total % 60)
	return h, m, s
}

// Fields returns the hour, minute and second to display for wall.
func (t Transform) Fields(wall time.Time) (h, m, s int) {
	if t.Kind == KindDilation {
		return Dilate(wall, t.HoursPerDay)
	}
	v := Offset(wall, t.OffsetMinutes)
	return v.Hour(), v.Minute(), v.Second()
}

// Format renders wall as HH:MM:SS, or HH:MM when seconds are hidden.
func (t Transform) Format(wall time.Time) string {
	h, m, s := t.Fields(wall)
	if !t.ShowSeconds {
		return fmt.Sprintf("%02d:%02d", h, m)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Label describes the transform for the settings control, e.g. "+90 min"
// or "20 h/day".
func (t Transform) Label() string {
	if t.Kind == KindDilation {
		return fmt.Sprintf("%d h/day", ClampHours(t.HoursPerDay))
	}
	return OffsetLabel(t.OffsetMinutes)
}

// OffsetLabel renders a minute offset with an explicit sign.
func OffsetLabel(minutes int) string {
	switch {
	case minutes > 0:
		return fmt.Sprintf("+%d min", minutes)
	case minutes < 0:
		return fmt.Sprintf("%d min", minutes)
	}
	return "0 min"
}
