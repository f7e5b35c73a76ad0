// Package stopwatch accumulates elapsed time while running and keeps a
// bounded, newest-first list of formatted laps.
package stopwatch

import (
	"errors"
	"time"

	"github.com/emirpasic/gods/queues/circularbuffer"
)

// MaxLaps is the number of laps retained; older laps are evicted first.
const MaxLaps = 1000

var (
	// ErrRunning is returned by Reset while the stopwatch is running.
	ErrRunning = errors.New("stopwatch is running")
	// ErrNotRunning is returned by Lap while the stopwatch is stopped.
	ErrNotRunning = errors.New("stopwatch is not running")
)

// Stopwatch is not safe for concurrent use; it is owned by the tick loop.
type Stopwatch struct {
	elapsed time.Duration
	running bool
	last    time.Time
	laps    *circularbuffer.Queue
}

// New returns a stopped stopwatch at zero.
func New() *Stopwatch {
	return &Stopwatch{laps: circularbuffer.New(MaxLaps)}
}

// Restore loads persisted state. laps is newest first; entries past
// MaxLaps are dropped. A restored stopwatch is always stopped.
func (sw *Stopwatch) Restore(elapsed time.Duration, laps []string) {
	if elapsed < 0 {
		elapsed = 0
	}
	sw.elapsed = elapsed
	sw.running = false
	sw.laps.Clear()

	if len(laps) > MaxLaps {
		laps = laps[:MaxLaps]
	}
	for i := len(laps) - 1; i >= 0; i-- {
		sw.laps.Enqueue(laps[i])
	}
}

// Running reports whether the stopwatch is accumulating.
func (sw *Stopwatch) Running() bool { return sw.running }

// Elapsed returns the accumulated time.
func (sw *Stopwatch) Elapsed() time.Duration { return sw.elapsed }

// Start begins accumulating from now. Starting a running stopwatch is a no-op.
func (sw *Stopwatch) Start(now time.Time) {
	if sw.running {
		return
	}
	sw.running = true
	sw.last = now
}

// Stop accumulates up to now and freezes the elapsed time.
func (sw *Stopwatch) Stop(now time.Time) {
	if !sw.running {
		return
	}
	sw.Tick(now)
	sw.running = false
}

// Reset clears elapsed time and laps. It is rejected while running.
func (sw *Stopwatch) Reset() error {
	if sw.running {
		return ErrRunning
	}
	sw.elapsed = 0
	sw.laps.Clear()
	return nil
}

// Lap records the formatted elapsed time at now as the newest lap.
func (sw *Stopwatch) Lap(now time.Time) (string, error) {
	if !sw.running {
		return "", ErrNotRunning
	}
	sw.Tick(now)
	lap := Format(sw.elapsed)
	sw.laps.Enqueue(lap)
	return lap, nil
}

// Laps returns recorded laps, newest first.
func (sw *Stopwatch) Laps() []string {
	values := sw.laps.Values()
	out := make([]string, 0, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		out = append(out, values[i].(string))
	}
	return out
}

// LapCount returns the number of retained laps.
func (sw *Stopwatch) LapCount() int { return sw.laps.Size() }

// RecentLaps returns at most n laps, newest first, without copying the
// rest of the buffer.
func (sw *Stopwatch) RecentLaps(n int) []string {
	if n <= 0 || sw.laps.Empty() {
		return nil
	}
	if size := sw.laps.Size(); n > size {
		n = size
	}
	out := make([]string, 0, n)
	it := sw.laps.Iterator()
	it.End()
	for len(out) < n && it.Prev() {
		out = append(out, it.Value().(string))
	}
	return out
}

// Tick accumulates the time since the latest instant already counted.
// Instants at or before it contribute nothing and leave it in place, so a
// stale or out-of-order tick never counts the same interval twice.
func (sw *Stopwatch) Tick(now time.Time) {
	if !sw.running || !now.After(sw.last) {
		return
	}
	sw.Add(now.Sub(sw.last))
	sw.last = now
}

// Add accumulates delta while running. Negative deltas are clamped to zero.
func (sw *Stopwatch) Add(delta time.Duration) {
	if !sw.running || delta <= 0 {
		return
	}
	sw.elapsed += delta
}
