package cli

import (
	"context"
	"fmt"
	"time"
)

// Execute implements the go-flags Commander interface for PruneCommand.
func (c *PruneCommand) Execute(args []string) error {
	ctx := context.Background()
	e, err := prepare(ctx, c.globals, c.env)
	if err != nil {
		return err
	}
	defer e.Close()

	retention := time.Duration(e.cfg.History.RetentionDays) * 24 * time.Hour
	if c.OlderThan != "" {
		d, err := parseDuration(c.OlderThan)
		if err != nil {
			return fmt.Errorf("--older-than: %w", err)
		}
		retention = d
	}
	cutoff := e.clock.Now().Add(-retention)
	jsonOut := c.globals != nil && c.globals.JSON

	if c.DryRun {
		firings, err := e.store.RecentFirings(ctx, time.Time{}, maxHistoryScan)
		if err != nil {
			return fmt.Errorf("prune: %w", err)
		}
		count := 0
		for _, f := range firings {
			if f.Timestamp.Before(cutoff) {
				count++
			}
		}
		if jsonOut {
			return writeJSON(map[string]any{
				"dry_run":     true,
				"would_prune": count,
				"older_than":  formatDurationHuman(retention),
			})
		}
		fmt.Printf("[DRY RUN] Would prune %d firings older than %s\n", count, formatDurationHuman(retention))
		return nil
	}

	if !c.Force && !jsonOut {
		fmt.Printf("This will delete alarm firings older than %s.\n", formatDurationHuman(retention))
		if err := confirm(c.in, "PRUNE"); err != nil {
			return err
		}
	}

	n, err := e.store.PruneFirings(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	e.logger.Info("firing history pruned", "removed", n, "cutoff", cutoff)

	if jsonOut {
		return writeJSON(map[string]any{
			"pruned":     n,
			"older_than": formatDurationHuman(retention),
		})
	}
	fmt.Printf("Pruned %d firings older than %s\n", n, formatDurationHuman(retention))
	return nil
}
