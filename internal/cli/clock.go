package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/runnerr0/nclock/internal/display"
	"github.com/runnerr0/nclock/internal/state"
)

type clockJSON struct {
	Time      string `json:"time"`
	Transform string `json:"transform"`
	Label     string `json:"label"`
	Wall      string `json:"wall"`
}

// Execute implements the go-flags Commander interface for ClockCommand.
func (c *ClockCommand) Execute(args []string) error {
	ctx := context.Background()
	e, err := prepare(ctx, c.globals, c.env)
	if err != nil {
		return err
	}
	defer e.Close()

	now := e.clock.Now()
	tr := e.widget.Transform()
	out := clockJSON{
		Time:      e.widget.ClockText(now),
		Transform: string(tr.Kind),
		Label:     tr.Label(),
		Wall:      now.Format("15:04:05"),
	}

	if c.globals != nil && c.globals.JSON {
		return writeJSON(out)
	}
	fmt.Printf("%s  (%s)\n", out.Time, out.Label)
	return nil
}

type settingsJSON struct {
	Mode           string `json:"mode"`
	Transform      string `json:"transform"`
	OffsetMinutes  int    `json:"offset_minutes"`
	HoursPerDay    int    `json:"hours_per_day"`
	ShowSeconds    bool   `json:"show_seconds"`
	DarkModeForced bool   `json:"dark_mode_forced"`
	Language       string `json:"language"`
}

// Execute implements the go-flags Commander interface for SettingsCommand.
func (c *SettingsCommand) Execute(args []string) error {
	if c.Seconds && c.NoSeconds {
		return fmt.Errorf("--seconds and --no-seconds are mutually exclusive")
	}
	var dark *bool
	switch strings.ToLower(c.Dark) {
	case "":
	case "on", "true", "yes":
		v := true
		dark = &v
	case "off", "false", "no":
		v := false
		dark = &v
	default:
		return fmt.Errorf("%w: --dark must be on or off, got %q", state.ErrInvalidSetting, c.Dark)
	}

	ctx := context.Background()
	e, err := prepare(ctx, c.globals, c.env)
	if err != nil {
		return err
	}
	defer e.Close()
	w := e.widget

	changed := false
	if c.Mode != "" {
		m, err := state.ParseMode(c.Mode)
		if err != nil {
			return err
		}
		if err := w.SetMode(ctx, m); err != nil {
			return err
		}
		changed = true
	}
	if c.Transform != "" {
		if err := w.SetTransform(ctx, display.Kind(c.Transform)); err != nil {
			return err
		}
		changed = true
	}
	if c.Offset != nil {
		w.SetOffset(ctx, *c.Offset)
		changed = true
	}
	if c.HoursPerDay != nil {
		w.SetHoursPerDay(ctx, *c.HoursPerDay)
		changed = true
	}
	if c.Seconds || c.NoSeconds {
		w.SetShowSeconds(ctx, c.Seconds)
		changed = true
	}
	if dark != nil {
		w.SetDarkMode(ctx, *dark)
		changed = true
	}
	if c.Language != "" {
		if err := w.SetLanguage(ctx, c.Language); err != nil {
			return err
		}
		changed = true
	}
	if changed {
		if _, err := w.Save(ctx); err != nil {
			return err
		}
	}

	tr := w.Transform()
	out := settingsJSON{
		Mode:           string(w.Mode()),
		Transform:      string(tr.Kind),
		OffsetMinutes:  tr.OffsetMinutes,
		HoursPerDay:    tr.HoursPerDay,
		ShowSeconds:    tr.ShowSeconds,
		DarkModeForced: w.DarkModeForced(),
		Language:       w.Language(),
	}
	if c.globals != nil && c.globals.JSON {
		return writeJSON(out)
	}

	fmt.Printf("Mode:          %s\n", out.Mode)
	fmt.Printf("Transform:     %s (%s)\n", out.Transform, tr.Label())
	fmt.Printf("Offset:        %s\n", display.OffsetLabel(out.OffsetMinutes))
	fmt.Printf("Hours per day: %d\n", out.HoursPerDay)
	fmt.Printf("Seconds:       %s\n", onOff(out.ShowSeconds))
	fmt.Printf("Dark mode:     %s\n", onOff(out.DarkModeForced))
	fmt.Printf("Language:      %s\n", out.Language)
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
