package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/nclock/internal/alarm"
)

type alarmJSON struct {
	Position int    `json:"position"`
	ID       string `json:"id"`
	Time     string `json:"time"`
	Hour     int    `json:"hour"`
	Minute   int    `json:"minute"`
	Enabled  bool   `json:"enabled"`
}

func toAlarmJSON(position int, a alarm.Entry) alarmJSON {
	return alarmJSON{
		Position: position,
		ID:       a.ID,
		Time:     a.Label(),
		Hour:     a.Hour,
		Minute:   a.Minute,
		Enabled:  a.Enabled,
	}
}

func positionOf(entries []alarm.Entry, id string) int {
	for i, a := range entries {
		if a.ID == id {
			return i + 1
		}
	}
	return 0
}

// Execute implements the go-flags Commander interface for AlarmAddCommand.
func (c *AlarmAddCommand) Execute(args []string) error {
	ctx := context.Background()
	e, err := prepare(ctx, c.globals, c.env)
	if err != nil {
		return err
	}
	defer e.Close()

	a, err := e.widget.AddAlarm(ctx, c.Args.Time)
	if err != nil {
		return err
	}
	if _, err := e.widget.Save(ctx); err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return writeJSON(toAlarmJSON(positionOf(e.widget.Alarms(), a.ID), a))
	}
	fmt.Printf("Added alarm %s (%s)\n", a.Label(), a.ID)
	return nil
}

// Execute implements the go-flags Commander interface for AlarmListCommand.
func (c *AlarmListCommand) Execute(args []string) error {
	ctx := context.Background()
	e, err := prepare(ctx, c.globals, c.env)
	if err != nil {
		return err
	}
	defer e.Close()

	entries := e.widget.Alarms()
	if c.globals != nil && c.globals.JSON {
		out := make([]alarmJSON, len(entries))
		for i, a := range entries {
			out[i] = toAlarmJSON(i+1, a)
		}
		return writeJSON(out)
	}

	if len(entries) == 0 {
		fmt.Println("No alarms.")
		return nil
	}
	for i, a := range entries {
		fmt.Printf("%2d. %s  %-3s  %s\n", i+1, a.Label(), onOff(a.Enabled), a.ID)
	}
	return nil
}

// Execute implements the go-flags Commander interface for AlarmToggleCommand.
func (c *AlarmToggleCommand) Execute(args []string) error {
	ctx := context.Background()
	e, err := prepare(ctx, c.globals, c.env)
	if err != nil {
		return err
	}
	defer e.Close()

	a, err := e.widget.ToggleAlarm(ctx, c.Args.Ref)
	if err != nil {
		return err
	}
	if _, err := e.widget.Save(ctx); err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return writeJSON(toAlarmJSON(positionOf(e.widget.Alarms(), a.ID), a))
	}
	fmt.Printf("Alarm %s is now %s\n", a.Label(), onOff(a.Enabled))
	return nil
}

// Execute implements the go-flags Commander interface for AlarmRemoveCommand.
func (c *AlarmRemoveCommand) Execute(args []string) error {
	ctx := context.Background()
	e, err := prepare(ctx, c.globals, c.env)
	if err != nil {
		return err
	}
	defer e.Close()

	a, err := e.widget.RemoveAlarm(ctx, c.Args.Ref)
	if err != nil {
		return err
	}
	if _, err := e.widget.Save(ctx); err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return writeJSON(map[string]any{"removed": a.ID, "time": a.Label()})
	}
	fmt.Printf("Removed alarm %s (%s)\n", a.Label(), a.ID)
	return nil
}
