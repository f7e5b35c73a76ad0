package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/nclock/internal/stopwatch"
)

type stopwatchJSON struct {
	Elapsed   string   `json:"elapsed"`
	ElapsedMS int64    `json:"elapsed_ms"`
	Laps      []string `json:"laps"`
}

// Execute implements the go-flags Commander interface for StopwatchShowCommand.
func (c *StopwatchShowCommand) Execute(args []string) error {
	ctx := context.Background()
	e, err := prepare(ctx, c.globals, c.env)
	if err != nil {
		return err
	}
	defer e.Close()

	sw := e.widget.Stopwatch()
	out := stopwatchJSON{
		Elapsed:   stopwatch.Format(sw.Elapsed()),
		ElapsedMS: sw.Elapsed().Milliseconds(),
		Laps:      sw.Laps(),
	}
	if c.globals != nil && c.globals.JSON {
		return writeJSON(out)
	}

	fmt.Printf("Elapsed:  %s\n", out.Elapsed)
	if len(out.Laps) == 0 {
		fmt.Println("No laps.")
		return nil
	}
	n := len(out.Laps)
	for i, lap := range out.Laps {
		fmt.Printf("%-8s  %s\n", stopwatch.LapLabel(i, n), lap)
	}
	return nil
}

// Execute implements the go-flags Commander interface for StopwatchResetCommand.
func (c *StopwatchResetCommand) Execute(args []string) error {
	ctx := context.Background()
	e, err := prepare(ctx, c.globals, c.env)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.widget.ResetStopwatch(ctx); err != nil {
		return err
	}
	if _, err := e.widget.Save(ctx); err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return writeJSON(map[string]any{"reset": true})
	}
	fmt.Println("Stopwatch reset.")
	return nil
}
