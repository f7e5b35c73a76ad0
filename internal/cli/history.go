package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/nclock/internal/storage"
)

type firingJSON struct {
	ID         int64  `json:"id"`
	AlarmID    string `json:"alarm_id"`
	Time       string `json:"time"`
	TriggerKey string `json:"trigger_key"`
	FiredAt    string `json:"fired_at"`
}

// maxHistoryScan bounds how many rows are read when filtering by alarm.
const maxHistoryScan = 10000

// Execute implements the go-flags Commander interface for HistoryCommand.
func (c *HistoryCommand) Execute(args []string) error {
	if c.Limit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}
	var window time.Duration
	if c.Since != "" {
		d, err := parseDuration(c.Since)
		if err != nil {
			return fmt.Errorf("--since: %w", err)
		}
		window = d
	}

	ctx := context.Background()
	e, err := prepare(ctx, c.globals, c.env)
	if err != nil {
		return err
	}
	defer e.Close()

	var since time.Time
	if window > 0 {
		since = e.clock.Now().Add(-window)
	}

	limit := c.Limit
	if c.Alarm != "" {
		limit = maxHistoryScan
	}
	firings, err := e.store.RecentFirings(ctx, since, limit)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if c.Alarm != "" {
		firings = filterByAlarm(firings, c.Alarm, c.Limit)
	}

	if c.globals != nil && c.globals.JSON {
		out := make([]firingJSON, len(firings))
		for i, f := range firings {
			out[i] = firingJSON{
				ID:         f.ID,
				AlarmID:    f.AlarmID,
				Time:       f.Label,
				TriggerKey: f.TriggerKey,
				FiredAt:    f.Timestamp.UTC().Format(time.RFC3339),
			}
		}
		return writeJSON(out)
	}

	if len(firings) == 0 {
		fmt.Println("No alarm firings recorded.")
		return nil
	}
	for _, f := range firings {
		fmt.Printf("%s  %s  %s\n", f.Timestamp.Local().Format("2006-01-02 15:04:05"), f.Label, f.AlarmID)
	}
	return nil
}

func filterByAlarm(firings []storage.Firing, alarmID string, limit int) []storage.Firing {
	out := make([]storage.Firing, 0, limit)
	for _, f := range firings {
		if f.AlarmID != alarmID {
			continue
		}
		out = append(out, f)
		if len(out) == limit {
			break
		}
	}
	return out
}
