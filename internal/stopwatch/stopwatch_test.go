package stopwatch

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func TestFormat(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00.00"},
		{61234 * time.Millisecond, "01:01.23"},
		{3661000 * time.Millisecond, "01:01:01"},
		{9 * time.Millisecond, "00:00.00"},
		{59*time.Minute + 59*time.Second + 999*time.Millisecond, "59:59.99"},
		{time.Hour, "01:00:00"},
		{25*time.Hour + 5*time.Second, "25:00:05"},
		{-time.Second, "00:00.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.in), "Format(%v)", tt.in)
	}
}

func TestAdd_SumsClampedDeltas(t *testing.T) {
	sw := New()
	sw.Start(t0)

	deltas := []time.Duration{16 * time.Millisecond, -40 * time.Millisecond, 0, 250 * time.Millisecond, time.Second}
	var want time.Duration
	for _, d := range deltas {
		sw.Add(d)
		if d > 0 {
			want += d
		}
	}
	assert.Equal(t, want, sw.Elapsed())
}

func TestAdd_IgnoredWhileStopped(t *testing.T) {
	sw := New()
	sw.Add(time.Second)
	assert.Zero(t, sw.Elapsed())
}

func TestTick_AccumulatesSinceStart(t *testing.T) {
	sw := New()
	sw.Start(t0)
	sw.Tick(t0.Add(100 * time.Millisecond))
	sw.Tick(t0.Add(250 * time.Millisecond))
	assert.Equal(t, 250*time.Millisecond, sw.Elapsed())
}

func TestTick_ClockMovingBackwardsAddsNothing(t *testing.T) {
	sw := New()
	sw.Start(t0)
	sw.Tick(t0.Add(time.Second))
	sw.Tick(t0.Add(500 * time.Millisecond))
	assert.Equal(t, time.Second, sw.Elapsed())

	sw.Tick(t0.Add(700 * time.Millisecond))
	assert.Equal(t, time.Second, sw.Elapsed())

	sw.Tick(t0.Add(1500 * time.Millisecond))
	assert.Equal(t, 1500*time.Millisecond, sw.Elapsed())
}

func TestTick_OutOfOrderTicksDoNotDoubleCount(t *testing.T) {
	sw := New()
	sw.Start(t0)
	sw.Tick(t0.Add(10 * time.Millisecond))
	sw.Tick(t0.Add(5 * time.Millisecond))
	sw.Tick(t0.Add(100 * time.Millisecond))
	assert.Equal(t, 100*time.Millisecond, sw.Elapsed())
}

func TestStop_WithStaleInstantKeepsCountedTime(t *testing.T) {
	sw := New()
	sw.Start(t0)
	sw.Tick(t0.Add(3 * time.Second))
	sw.Stop(t0.Add(time.Second))
	assert.False(t, sw.Running())
	assert.Equal(t, 3*time.Second, sw.Elapsed())
}

func TestRecentLaps_NewestFirstAndBounded(t *testing.T) {
	sw := New()
	assert.Nil(t, sw.RecentLaps(5))
	assert.Equal(t, 0, sw.LapCount())

	sw.Start(t0)
	for i := 1; i <= 4; i++ {
		_, err := sw.Lap(t0.Add(time.Duration(i) * time.Second))
		require.NoError(t, err)
	}
	assert.Equal(t, 4, sw.LapCount())
	assert.Equal(t, []string{"00:04.00", "00:03.00"}, sw.RecentLaps(2))
	assert.Equal(t, sw.Laps(), sw.RecentLaps(10))
	assert.Nil(t, sw.RecentLaps(0))
}

func TestStopStart_ResumesWithoutLoss(t *testing.T) {
	sw := New()
	sw.Start(t0)
	sw.Stop(t0.Add(2 * time.Second))
	assert.False(t, sw.Running())
	assert.Equal(t, 2*time.Second, sw.Elapsed())

	// Time passing while stopped is not counted.
	sw.Tick(t0.Add(10 * time.Second))
	assert.Equal(t, 2*time.Second, sw.Elapsed())

	sw.Start(t0.Add(10 * time.Second))
	sw.Tick(t0.Add(13 * time.Second))
	assert.Equal(t, 5*time.Second, sw.Elapsed())
}

func TestStart_WhileRunningIsNoop(t *testing.T) {
	sw := New()
	sw.Start(t0)
	sw.Start(t0.Add(time.Second))
	sw.Tick(t0.Add(2 * time.Second))
	assert.Equal(t, 2*time.Second, sw.Elapsed())
}

func TestReset(t *testing.T) {
	sw := New()
	sw.Start(t0)
	_, err := sw.Lap(t0.Add(time.Second))
	require.NoError(t, err)

	err = sw.Reset()
	assert.ErrorIs(t, err, ErrRunning)
	assert.Equal(t, time.Second, sw.Elapsed(), "rejected reset leaves state untouched")

	sw.Stop(t0.Add(2 * time.Second))
	require.NoError(t, sw.Reset())
	assert.Zero(t, sw.Elapsed())
	assert.Empty(t, sw.Laps())
}

func TestLap_RequiresRunning(t *testing.T) {
	sw := New()
	_, err := sw.Lap(t0)
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.Empty(t, sw.Laps())
}

func TestLap_NewestFirst(t *testing.T) {
	sw := New()
	sw.Start(t0)

	first, err := sw.Lap(t0.Add(1234 * time.Millisecond))
	require.NoError(t, err)
	second, err := sw.Lap(t0.Add(61234 * time.Millisecond))
	require.NoError(t, err)

	assert.Equal(t, "00:01.23", first)
	assert.Equal(t, "01:01.23", second)
	assert.Equal(t, []string{"01:01.23", "00:01.23"}, sw.Laps())
	assert.Equal(t, 61234*time.Millisecond, sw.Elapsed(), "lap does not disturb the accumulator")
}

func TestLap_CapEvictsOldest(t *testing.T) {
	sw := New()
	sw.Start(t0)

	for i := 1; i <= MaxLaps+5; i++ {
		_, err := sw.Lap(t0.Add(time.Duration(i) * 10 * time.Millisecond))
		require.NoError(t, err)
	}

	laps := sw.Laps()
	require.Len(t, laps, MaxLaps)
	assert.Equal(t, Format(time.Duration(MaxLaps+5)*10*time.Millisecond), laps[0])
	assert.Equal(t, Format(6*10*time.Millisecond), laps[len(laps)-1])
}

func TestRestore(t *testing.T) {
	sw := New()
	sw.Start(t0)

	sw.Restore(90*time.Second, []string{"01:30.00", "00:45.00"})
	assert.False(t, sw.Running(), "restored stopwatch is stopped")
	assert.Equal(t, 90*time.Second, sw.Elapsed())
	assert.Equal(t, []string{"01:30.00", "00:45.00"}, sw.Laps())
}

func TestRestore_TruncatesLapsAndNegativeElapsed(t *testing.T) {
	laps := make([]string, MaxLaps+10)
	for i := range laps {
		laps[i] = fmt.Sprintf("lap-%d", i)
	}

	sw := New()
	sw.Restore(-time.Second, laps)
	assert.Zero(t, sw.Elapsed())

	got := sw.Laps()
	require.Len(t, got, MaxLaps)
	assert.Equal(t, "lap-0", got[0])
	assert.Equal(t, fmt.Sprintf("lap-%d", MaxLaps-1), got[MaxLaps-1])
}

func TestLapLabel(t *testing.T) {
	assert.Equal(t, "Lap 3", LapLabel(0, 3))
	assert.Equal(t, "Lap 1", LapLabel(2, 3))
}
