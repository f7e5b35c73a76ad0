// Package widget owns the clock, stopwatch and alarm state. Every handler
// mutates the state and then persists it; persistence failures are logged
// and the in-memory state carries on.
//
// A Widget is not safe for concurrent use. The scheduler serialises all
// access onto its tick loop.
package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/runnerr0/nclock/internal/alarm"
	"github.com/runnerr0/nclock/internal/display"
	"github.com/runnerr0/nclock/internal/state"
	"github.com/runnerr0/nclock/internal/stopwatch"
)

// ErrAmbiguous is returned when an alarm reference matches more than one alarm.
var ErrAmbiguous = errors.New("ambiguous alarm reference")

type Widget struct {
	clock  clockwork.Clock
	codec  *state.Codec
	logger *slog.Logger

	mode          state.Mode
	transform     display.Transform
	stopwatch     *stopwatch.Stopwatch
	alarms        *alarm.Registry
	lastTriggered string
	darkForced    bool
	language      string

	// Fired alarms awaiting acknowledgement. Not persisted.
	ringing []alarm.Entry
}

// New returns a Widget holding the codec's defaults. Call Load to restore
// persisted state.
func New(codec *state.Codec, clock clockwork.Clock, logger *slog.Logger) *Widget {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	w := &Widget{
		clock:     clock,
		codec:     codec,
		logger:    logger,
		stopwatch: stopwatch.New(),
		alarms:    alarm.NewRegistry(),
	}
	w.apply(codec.Defaults().Empty())
	return w
}

// Load restores persisted state. Whatever could be read is applied even
// when an error is returned.
func (w *Widget) Load(ctx context.Context) error {
	snap, err := w.codec.Load(ctx)
	w.apply(snap)
	if err != nil {
		w.logger.Warn("loading state", "error", err)
		return fmt.Errorf("loading state: %w", err)
	}
	w.logger.Debug("state loaded",
		"mode", snap.Mode,
		"alarms", len(snap.Alarms),
		"laps", len(snap.Laps),
	)
	return nil
}

func (w *Widget) apply(snap state.Snapshot) {
	w.mode = snap.Mode
	w.transform = snap.Transform
	w.transform.HoursPerDay = display.ClampHours(w.transform.HoursPerDay)
	w.stopwatch.Restore(snap.StopwatchElapsed, snap.Laps)
	w.alarms.Restore(snap.Alarms)
	w.lastTriggered = snap.LastTriggered
	w.darkForced = snap.DarkModeForced
	w.language = snap.Language
}

// Snapshot returns the persisted view of the current state.
func (w *Widget) Snapshot() state.Snapshot {
	return state.Snapshot{
		Mode:             w.mode,
		Transform:        w.transform,
		StopwatchElapsed: w.stopwatch.Elapsed(),
		Laps:             w.stopwatch.Laps(),
		Alarms:           w.alarms.Entries(),
		LastTriggered:    w.lastTriggered,
		DarkModeForced:   w.darkForced,
		Language:         w.language,
	}
}

// Save writes changed keys and returns how many were written.
func (w *Widget) Save(ctx context.Context) (int, error) {
	n, err := w.codec.Save(ctx, w.Snapshot())
	if err != nil {
		w.logger.Warn("saving state", "error", err)
		return n, fmt.Errorf("saving state: %w", err)
	}
	if n > 0 {
		w.logger.Debug("state saved", "keys", n)
	}
	return n, nil
}

// persist saves after a handler. Failures leave the session in memory only.
func (w *Widget) persist(ctx context.Context) {
	_, _ = w.Save(ctx)
}

func (w *Widget) Clock() clockwork.Clock          { return w.clock }
func (w *Widget) Mode() state.Mode                { return w.mode }
func (w *Widget) Transform() display.Transform    { return w.transform }
func (w *Widget) Stopwatch() *stopwatch.Stopwatch { return w.stopwatch }
func (w *Widget) Alarms() []alarm.Entry           { return w.alarms.Entries() }
func (w *Widget) LastTriggered() string           { return w.lastTriggered }
func (w *Widget) DarkModeForced() bool            { return w.darkForced }
func (w *Widget) Language() string                { return w.language }

// ClockText is the transformed display time for now.
func (w *Widget) ClockText(now time.Time) string {
	return w.transform.Format(now)
}

// StopwatchText is the formatted elapsed time.
func (w *Widget) StopwatchText() string {
	return stopwatch.Format(w.stopwatch.Elapsed())
}

func (w *Widget) SetMode(ctx context.Context, m state.Mode) error {
	if _, err := state.ParseMode(string(m)); err != nil {
		return err
	}
	w.mode = m
	w.persist(ctx)
	return nil
}

func (w *Widget) SetOffset(ctx context.Context, minutes int) {
	w.transform.OffsetMinutes = minutes
	w.persist(ctx)
}

func (w *Widget) SetTransform(ctx context.Context, kind display.Kind) error {
	k, err := display.ParseKind(string(kind))
	if err != nil {
		return fmt.Errorf("%w: %v", state.ErrInvalidSetting, err)
	}
	w.transform.Kind = k
	w.persist(ctx)
	return nil
}

// SetHoursPerDay clamps hours into the accepted range and returns the
// value stored.
func (w *Widget) SetHoursPerDay(ctx context.Context, hours int) int {
	w.transform.HoursPerDay = display.ClampHours(hours)
	w.persist(ctx)
	return w.transform.HoursPerDay
}

func (w *Widget) SetShowSeconds(ctx context.Context, show bool) {
	w.transform.ShowSeconds = show
	w.persist(ctx)
}

func (w *Widget) SetDarkMode(ctx context.Context, forced bool) {
	w.darkForced = forced
	w.persist(ctx)
}

func (w *Widget) SetLanguage(ctx context.Context, tag string) error {
	canonical, err := state.CanonicalLanguage(tag)
	if err != nil {
		return err
	}
	w.language = canonical
	w.persist(ctx)
	return nil
}

func (w *Widget) StartStopwatch(ctx context.Context) {
	w.stopwatch.Start(w.clock.Now())
	w.persist(ctx)
}

func (w *Widget) StopStopwatch(ctx context.Context) {
	w.stopwatch.Stop(w.clock.Now())
	w.persist(ctx)
}

// Lap records a lap. It fails with stopwatch.ErrNotRunning while stopped.
func (w *Widget) Lap(ctx context.Context) (string, error) {
	lap, err := w.stopwatch.Lap(w.clock.Now())
	if err != nil {
		return "", err
	}
	w.persist(ctx)
	return lap, nil
}

// ResetStopwatch fails with stopwatch.ErrRunning while running.
func (w *Widget) ResetStopwatch(ctx context.Context) error {
	if err := w.stopwatch.Reset(); err != nil {
		return err
	}
	w.persist(ctx)
	return nil
}

// AddAlarm parses "HH:MM" and appends an enabled alarm. Invalid input
// returns alarm.ErrInvalidTime and leaves the state unchanged.
func (w *Widget) AddAlarm(ctx context.Context, text string) (alarm.Entry, error) {
	e, err := w.alarms.AddText(text)
	if err != nil {
		return alarm.Entry{}, err
	}
	w.persist(ctx)
	return e, nil
}

func (w *Widget) ToggleAlarm(ctx context.Context, ref string) (alarm.Entry, error) {
	target, err := w.ResolveAlarm(ref)
	if err != nil {
		return alarm.Entry{}, err
	}
	e, err := w.alarms.Toggle(target.ID)
	if err != nil {
		return alarm.Entry{}, err
	}
	w.persist(ctx)
	return e, nil
}

func (w *Widget) RemoveAlarm(ctx context.Context, ref string) (alarm.Entry, error) {
	target, err := w.ResolveAlarm(ref)
	if err != nil {
		return alarm.Entry{}, err
	}
	if err := w.alarms.Remove(target.ID); err != nil {
		return alarm.Entry{}, err
	}
	w.silence(target.ID)
	w.persist(ctx)
	return target, nil
}

// ResolveAlarm finds an alarm by its 1-based list position, its id, or a
// unique id prefix.
func (w *Widget) ResolveAlarm(ref string) (alarm.Entry, error) {
	ref = strings.TrimSpace(ref)
	entries := w.alarms.Entries()

	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(entries) {
		return entries[n-1], nil
	}
	if e, err := w.alarms.Get(ref); err == nil {
		return e, nil
	}

	var match []alarm.Entry
	if ref != "" {
		for _, e := range entries {
			if strings.HasPrefix(e.ID, ref) {
				match = append(match, e)
			}
		}
	}
	switch len(match) {
	case 0:
		return alarm.Entry{}, fmt.Errorf("%w: %q", alarm.ErrNotFound, ref)
	case 1:
		return match[0], nil
	default:
		return alarm.Entry{}, fmt.Errorf("%w: %q matches %d alarms", ErrAmbiguous, ref, len(match))
	}
}

// AdvanceStopwatch accumulates running time up to now.
func (w *Widget) AdvanceStopwatch(now time.Time) {
	w.stopwatch.Tick(now)
}

// CheckAlarms evaluates the alarms at now. When any fire, the new trigger
// key is persisted before returning so the firing survives a restart.
func (w *Widget) CheckAlarms(ctx context.Context, now time.Time) []alarm.Entry {
	fired, key := w.alarms.Evaluate(now, w.lastTriggered)
	if len(fired) == 0 {
		return nil
	}
	w.lastTriggered = key
	if err := w.codec.SaveTriggerKey(ctx, key); err != nil {
		w.logger.Warn("saving trigger key", "key", key, "error", err)
	}
	w.ring(fired)
	return fired
}

func (w *Widget) ring(fired []alarm.Entry) {
	for _, e := range fired {
		replaced := false
		for i := range w.ringing {
			if w.ringing[i].ID == e.ID {
				w.ringing[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			w.ringing = append(w.ringing, e)
		}
	}
}

// Ringing returns the alarms that fired and have not been acknowledged,
// oldest first.
func (w *Widget) Ringing() []alarm.Entry {
	if len(w.ringing) == 0 {
		return nil
	}
	return append([]alarm.Entry(nil), w.ringing...)
}

func (w *Widget) silence(id string) {
	kept := w.ringing[:0]
	for _, e := range w.ringing {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	w.ringing = kept
}

// Acknowledge silences every ringing alarm and reports how many there were.
func (w *Widget) Acknowledge() int {
	n := len(w.ringing)
	w.ringing = nil
	return n
}
