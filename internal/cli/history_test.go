package cli

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_Empty(t *testing.T) {
	e, _ := newTestEnv(t)
	cmd := &HistoryCommand{globals: &GlobalFlags{}, env: e, Since: "7d", Limit: 20}

	output := captureOutput(t, func() {
		require.NoError(t, cmd.Execute(nil))
	})
	assert.Contains(t, output, "No alarm firings recorded.")
}

func TestHistory_SinceWindow(t *testing.T) {
	e, _ := newTestEnv(t)
	seedFirings(t, e.store, "alarm-a", "07:30", 2, 2*time.Hour)
	seedFirings(t, e.store, "alarm-b", "06:00", 3, 10*24*time.Hour)

	cmd := &HistoryCommand{globals: &GlobalFlags{JSON: true}, env: e, Since: "7d", Limit: 20}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.Execute(nil))
	})

	var got []firingJSON
	require.NoError(t, json.Unmarshal([]byte(output), &got))
	require.Len(t, got, 2)
	for _, f := range got {
		assert.Equal(t, "alarm-a", f.AlarmID)
		assert.Equal(t, "07:30", f.Time)
	}
	// Newest first.
	assert.True(t, got[0].FiredAt >= got[1].FiredAt)
}

func TestHistory_FilterByAlarmAndLimit(t *testing.T) {
	e, _ := newTestEnv(t)
	seedFirings(t, e.store, "alarm-a", "07:30", 4, time.Hour)
	seedFirings(t, e.store, "alarm-b", "06:00", 4, 2*time.Hour)

	cmd := &HistoryCommand{globals: &GlobalFlags{}, env: e, Since: "30d", Alarm: "alarm-b", Limit: 3}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.Execute(nil))
	})

	assert.Contains(t, output, "06:00")
	assert.NotContains(t, output, "alarm-a")
	assert.Equal(t, 3, countLines(output))
}

func TestHistory_InvalidFlags(t *testing.T) {
	e, _ := newTestEnv(t)

	err := (&HistoryCommand{globals: &GlobalFlags{}, env: e, Since: "7d", Limit: 0}).Execute(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--limit must be positive")

	err = (&HistoryCommand{globals: &GlobalFlags{}, env: e, Since: "soon", Limit: 5}).Execute(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--since")
}

func countLines(s string) int {
	n := 0
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}
