package cli

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupPruneTest seeds oldCount firings from 60 days ago and recentCount
// from an hour ago, and returns a PruneCommand wired to that store.
func setupPruneTest(t *testing.T, oldCount, recentCount int) (*PruneCommand, *env) {
	t.Helper()
	e, store := newSQLiteTestEnv(t)
	seedFirings(t, store, "old", "06:00", oldCount, 60*24*time.Hour)
	seedFirings(t, store, "recent", "09:00", recentCount, time.Hour)

	return &PruneCommand{globals: &GlobalFlags{}, version: "test", env: e}, e
}

func totalFirings(t *testing.T, e *env) int64 {
	t.Helper()
	stats, err := e.store.Stats(context.Background(), e.cfg.Storage.KeyPrefix)
	require.NoError(t, err)
	return stats.TotalFirings
}

// --- Prune with the configured retention (30d) ---

func TestPrune_DefaultRetention(t *testing.T) {
	cmd, e := setupPruneTest(t, 5, 3)
	cmd.Force = true

	output := captureOutput(t, func() {
		require.NoError(t, cmd.Execute(nil))
	})

	assert.Contains(t, output, "Pruned 5 firings older than 30 days")
	assert.Equal(t, int64(3), totalFirings(t, e))
}

func TestPrune_CustomOlderThan(t *testing.T) {
	cmd, e := setupPruneTest(t, 5, 3)
	cmd.OlderThan = "30m"
	cmd.Force = true

	output := captureOutput(t, func() {
		require.NoError(t, cmd.Execute(nil))
	})

	assert.Contains(t, output, "Pruned 8 firings")
	assert.Equal(t, int64(0), totalFirings(t, e))
}

func TestPrune_DryRun(t *testing.T) {
	cmd, e := setupPruneTest(t, 5, 3)
	cmd.DryRun = true

	output := captureOutput(t, func() {
		require.NoError(t, cmd.Execute(nil))
	})

	assert.Contains(t, output, "[DRY RUN] Would prune 5 firings older than 30 days")
	assert.Equal(t, int64(8), totalFirings(t, e))
}

func TestPrune_JSONOutput(t *testing.T) {
	cmd, e := setupPruneTest(t, 2, 1)
	cmd.globals.JSON = true

	output := captureOutput(t, func() {
		require.NoError(t, cmd.Execute(nil))
	})

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &result))
	assert.Equal(t, float64(2), result["pruned"])
	assert.Equal(t, "30 days", result["older_than"])
	assert.Equal(t, int64(1), totalFirings(t, e))
}

func TestPrune_ConfirmationAccepted(t *testing.T) {
	cmd, e := setupPruneTest(t, 4, 0)
	cmd.in = strings.NewReader("PRUNE\n")

	output := captureOutput(t, func() {
		require.NoError(t, cmd.Execute(nil))
	})

	assert.Contains(t, output, `Type "PRUNE" to confirm`)
	assert.Contains(t, output, "Pruned 4 firings")
	assert.Equal(t, int64(0), totalFirings(t, e))
}

func TestPrune_ConfirmationRejected(t *testing.T) {
	cmd, e := setupPruneTest(t, 4, 0)
	cmd.in = strings.NewReader("prune\n")

	var err error
	captureOutput(t, func() {
		err = cmd.Execute(nil)
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "aborted")
	assert.Equal(t, int64(4), totalFirings(t, e))
}

func TestPrune_InvalidOlderThan(t *testing.T) {
	cmd, _ := setupPruneTest(t, 0, 0)
	cmd.OlderThan = "forever"
	cmd.Force = true

	err := cmd.Execute(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--older-than")
}
