// Package view renders scheduler frames for a terminal.
package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/runnerr0/nclock/internal/display"
	"github.com/runnerr0/nclock/internal/scheduler"
	"github.com/runnerr0/nclock/internal/state"
	"github.com/runnerr0/nclock/internal/stopwatch"
)

// MaxVisibleLaps bounds the laps shown under the stopwatch.
const MaxVisibleLaps = scheduler.FrameLaps

var (
	accent = lipgloss.AdaptiveColor{Light: "#1A5FB4", Dark: "#8AB4F8"}
	muted  = lipgloss.AdaptiveColor{Light: "#77767B", Dark: "#9A9996"}
	alert  = lipgloss.AdaptiveColor{Light: "#B00020", Dark: "#FF8A80"}
)

// Renderer turns frames into text. Forcing dark mode switches the
// adaptive palette to its dark variant; releasing it restores whatever the
// terminal reported.
type Renderer struct {
	r        *lipgloss.Renderer
	detected bool

	tab       lipgloss.Style
	activeTab lipgloss.Style
	big       lipgloss.Style
	label     lipgloss.Style
	warn      lipgloss.Style
	box       lipgloss.Style
}

// New returns a Renderer for output written to w.
func New(w io.Writer) *Renderer {
	r := lipgloss.NewRenderer(w)
	return &Renderer{
		r:         r,
		detected:  r.HasDarkBackground(),
		tab:       r.NewStyle().Padding(0, 1).Foreground(muted),
		activeTab: r.NewStyle().Padding(0, 1).Bold(true).Underline(true).Foreground(accent),
		big:       r.NewStyle().Bold(true).Foreground(accent),
		label:     r.NewStyle().Foreground(muted),
		warn:      r.NewStyle().Bold(true).Foreground(alert),
		box:       r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(muted).Padding(0, 2),
	}
}

// Render draws the tabs followed by the active view.
func (v *Renderer) Render(f scheduler.Frame) string {
	v.r.SetHasDarkBackground(f.DarkModeForced || v.detected)

	var body string
	switch f.Mode {
	case state.ModeStopwatch:
		body = v.stopwatchView(f)
	case state.ModeAlarm:
		body = v.alarmView(f)
	case state.ModeSettings:
		body = v.settingsView(f)
	default:
		body = v.clockView(f)
	}

	parts := []string{v.tabs(f.Mode), v.box.Render(body)}
	if banner := v.banner(f); banner != "" {
		parts = append(parts, banner)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// banner lists ringing alarms. Frames built outside the loop may carry
// only this tick's firings.
func (v *Renderer) banner(f scheduler.Frame) string {
	ringing := f.Ringing
	if len(ringing) == 0 {
		ringing = f.Fired
	}
	if len(ringing) == 0 {
		return ""
	}
	labels := make([]string, 0, len(ringing))
	for _, e := range ringing {
		labels = append(labels, e.Label())
	}
	return v.warn.Render("⏰ Alarm: " + strings.Join(labels, ", "))
}

func (v *Renderer) tabs(active state.Mode) string {
	cells := make([]string, 0, len(state.Modes))
	for _, m := range state.Modes {
		if m == active {
			cells = append(cells, v.activeTab.Render(string(m)))
		} else {
			cells = append(cells, v.tab.Render(string(m)))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func (v *Renderer) clockView(f scheduler.Frame) string {
	clock := f.Clock
	if clock == "" {
		clock = f.Transform.Format(f.At)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		v.big.Render(clock),
		v.label.Render(f.ClockLabel),
	)
}

func (v *Renderer) stopwatchView(f scheduler.Frame) string {
	status := "stopped"
	if f.Running {
		status = "running"
	}
	lines := []string{
		v.big.Render(f.Stopwatch) + "  " + v.label.Render(status),
	}

	n := f.LapCount
	if n < len(f.Laps) {
		n = len(f.Laps)
	}
	shown := 0
	for i, lap := range f.Laps {
		if i == MaxVisibleLaps {
			break
		}
		lines = append(lines, fmt.Sprintf("%-8s %s", stopwatch.LapLabel(i, n), lap))
		shown++
	}
	if n > shown {
		lines = append(lines, v.label.Render(fmt.Sprintf("… %d more", n-shown)))
	}
	return strings.Join(lines, "\n")
}

func (v *Renderer) alarmView(f scheduler.Frame) string {
	if len(f.Alarms) == 0 {
		return v.label.Render("no alarms")
	}
	lines := make([]string, 0, len(f.Alarms))
	for i, e := range f.Alarms {
		lines = append(lines, fmt.Sprintf("%d. %s  %-3s %s", i+1, e.Label(), onOff(e.Enabled), v.label.Render(shortID(e.ID))))
	}
	return strings.Join(lines, "\n")
}

func (v *Renderer) settingsView(f scheduler.Frame) string {
	kind := "offset"
	if f.Transform.Kind == display.KindDilation {
		kind = "dilation"
	}
	rows := [][2]string{
		{"transform", kind + " (" + f.ClockLabel + ")"},
		{"seconds", onOff(f.Transform.ShowSeconds)},
		{"dark mode", onOff(f.DarkModeForced)},
		{"language", f.Language},
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, v.label.Render(fmt.Sprintf("%-10s", row[0]))+" "+row[1])
	}
	return strings.Join(lines, "\n")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
