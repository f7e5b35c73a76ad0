package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/nclock/internal/offline"
)

// Execute implements the go-flags Commander interface for PurgeCommand.
func (c *PurgeCommand) Execute(args []string) error {
	if !c.All {
		return fmt.Errorf("purge requires --all flag for safety")
	}

	// Confirmation prompt unless --force
	if !c.Force {
		fmt.Println("⚠ WARNING: This will permanently delete ALL nclock data.")
		fmt.Println("  - Clock settings and the active view")
		fmt.Println("  - The stopwatch and its laps")
		fmt.Println("  - All alarms and their firing history")
		fmt.Println("  - The offline web cache")
		fmt.Println()
		fmt.Println("This action cannot be undone.")
		fmt.Println()
		if err := confirm(c.in, "PURGE"); err != nil {
			return err
		}
	}

	ctx := context.Background()
	e, err := prepare(ctx, c.globals, c.env)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.store.Purge(ctx, e.cfg.Storage.KeyPrefix); err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}
	if err := e.store.Purge(ctx, offline.KeyPrefix); err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}
	if _, err := e.store.ClearFirings(ctx); err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}
	// Keys are gone; the next save must not skip values it thinks are stored.
	e.codec.Forget()
	e.logger.Info("all data purged")

	// Output
	if c.globals != nil && c.globals.JSON {
		return writeJSON(map[string]any{
			"purged":  true,
			"message": "all data deleted",
		})
	}

	fmt.Println("Purged all data. nclock is empty.")
	return nil
}
