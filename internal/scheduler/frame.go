package scheduler

import (
	"time"

	"github.com/runnerr0/nclock/internal/alarm"
	"github.com/runnerr0/nclock/internal/display"
	"github.com/runnerr0/nclock/internal/state"
)

// FrameLaps is the number of newest laps carried by a Frame.
const FrameLaps = 10

// Frame is the widget's state after one tick. It holds copies and is safe
// to hand to other goroutines.
type Frame struct {
	At    time.Time
	Delta time.Duration

	Mode           state.Mode
	Clock          string // empty unless Mode is clock
	ClockLabel     string
	Transform      display.Transform
	Stopwatch      string
	Running        bool
	Laps           []string // newest first, at most FrameLaps
	LapCount       int
	Alarms         []alarm.Entry
	Fired          []alarm.Entry // fired on this tick
	Ringing        []alarm.Entry // fired and not yet acknowledged
	DarkModeForced bool
	Language       string
}
