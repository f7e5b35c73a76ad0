package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/nclock/internal/alarm"
	"github.com/runnerr0/nclock/internal/alert"
	"github.com/runnerr0/nclock/internal/state"
	"github.com/runnerr0/nclock/internal/storage"
	"github.com/runnerr0/nclock/internal/widget"
)

var t0 = time.Date(2026, 10, 18, 7, 29, 58, 0, time.UTC)

type countingStore struct {
	*storage.MemoryStore
	mu   sync.Mutex
	sets map[string]int
}

func (s *countingStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	s.sets[key]++
	s.mu.Unlock()
	return s.MemoryStore.Set(ctx, key, value)
}

func (s *countingStore) count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets[key]
}

type recordingSink struct {
	mu     sync.Mutex
	fired  []alert.Firing
	onFire func(alert.Firing)
}

func (r *recordingSink) Alert(_ context.Context, f alert.Firing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.onFire != nil {
		r.onFire(f)
	}
	r.fired = append(r.fired, f)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fired)
}

type fixture struct {
	store  *countingStore
	clock  *clockwork.FakeClock
	widget *widget.Widget
	sink   *recordingSink
	sched  *Scheduler
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, recorder Recorder) *fixture {
	t.Helper()
	store := &countingStore{MemoryStore: storage.NewMemoryStore(), sets: map[string]int{}}
	clock := clockwork.NewFakeClockAt(t0)
	codec := state.NewCodec(store, "nclock_", state.Defaults{})
	w := widget.New(codec, clock, quietLogger())
	require.NoError(t, w.Load(context.Background()))

	sink := &recordingSink{}
	if recorder == nil {
		recorder = store
	}
	sched := New(w, clock, sink, recorder, quietLogger(), Options{})
	return &fixture{store: store, clock: clock, widget: w, sink: sink, sched: sched}
}

func TestTick_AccumulatesStopwatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.widget.StartStopwatch(ctx)

	now := t0
	for i := 0; i < 10; i++ {
		now = now.Add(100 * time.Millisecond)
		f.sched.Tick(ctx, now)
	}
	assert.Equal(t, time.Second, f.widget.Stopwatch().Elapsed())
}

func TestTick_ClampsNegativeDelta(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	f.sched.Tick(ctx, t0)
	frame := f.sched.Tick(ctx, t0.Add(-time.Minute))
	assert.Zero(t, frame.Delta)

	frame = f.sched.Tick(ctx, t0.Add(-time.Minute+250*time.Millisecond))
	assert.Equal(t, 250*time.Millisecond, frame.Delta)
}

func TestTick_StaleInstantDoesNotDoubleCount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.widget.StartStopwatch(ctx)

	f.sched.Tick(ctx, t0.Add(10*time.Millisecond))
	f.sched.Tick(ctx, t0.Add(5*time.Millisecond))
	f.sched.Tick(ctx, t0.Add(100*time.Millisecond))
	assert.Equal(t, 100*time.Millisecond, f.widget.Stopwatch().Elapsed())
}

func TestTick_FrameCarriesNewestLapsOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.widget.StartStopwatch(ctx)
	for i := 0; i < 25; i++ {
		f.clock.Advance(time.Second)
		_, err := f.widget.Lap(ctx)
		require.NoError(t, err)
	}

	frame := f.sched.Tick(ctx, f.clock.Now())
	assert.Len(t, frame.Laps, FrameLaps)
	assert.Equal(t, 25, frame.LapCount)
	assert.Equal(t, f.widget.Stopwatch().Laps()[:FrameLaps], frame.Laps)
}

func TestTick_RingingSurvivesLaterTicks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	_, err := f.widget.AddAlarm(ctx, "07:30")
	require.NoError(t, err)

	frame := f.sched.Tick(ctx, t0.Add(2*time.Second))
	require.Len(t, frame.Fired, 1)
	require.Len(t, frame.Ringing, 1)

	for i := 3; i < 90; i++ {
		frame = f.sched.Tick(ctx, t0.Add(time.Duration(i)*time.Second))
	}
	assert.Empty(t, frame.Fired)
	require.Len(t, frame.Ringing, 1)
	assert.Equal(t, "07:30", frame.Ringing[0].Label())
	assert.Equal(t, 1, f.sink.count())

	f.widget.Acknowledge()
	frame = f.sched.Tick(ctx, t0.Add(91*time.Second))
	assert.Empty(t, frame.Ringing)
}

func TestTick_ClockOnlyInClockMode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	frame := f.sched.Tick(ctx, t0)
	assert.Equal(t, "07:29", frame.Clock)
	assert.Equal(t, "0 min", frame.ClockLabel)

	require.NoError(t, f.widget.SetMode(ctx, state.ModeStopwatch))
	frame = f.sched.Tick(ctx, t0.Add(time.Second))
	assert.Empty(t, frame.Clock)
	assert.Equal(t, "00:00.00", frame.Stopwatch)
}

func TestTick_AlarmFiresOncePerMinute(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	_, err := f.widget.AddAlarm(ctx, "07:30")
	require.NoError(t, err)

	// 100ms cadence from 07:29:58 to 07:31:02.
	now := t0
	fired := 0
	for now.Before(t0.Add(64 * time.Second)) {
		frame := f.sched.Tick(ctx, now)
		fired += len(frame.Fired)
		now = now.Add(100 * time.Millisecond)
	}

	assert.Equal(t, 1, fired)
	assert.Equal(t, 1, f.sink.count())
	assert.Equal(t, "202610180730", f.widget.LastTriggered())

	history, err := f.store.RecentFirings(ctx, time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "07:30", history[0].Label)
	assert.Equal(t, "202610180730", history[0].TriggerKey)
}

func TestTick_TriggerKeyPersistedBeforeAlert(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	_, err := f.widget.AddAlarm(ctx, "07:30")
	require.NoError(t, err)

	var persisted string
	f.sink.onFire = func(alert.Firing) {
		persisted, _, _ = f.store.Get(ctx, "nclock_last_triggered")
	}

	f.sched.Tick(ctx, t0.Add(2*time.Second))
	assert.Equal(t, "202610180730", persisted)
}

func TestTick_SurvivesFailingSink(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	_, err := f.widget.AddAlarm(ctx, "07:30")
	require.NoError(t, err)

	s := New(f.widget, f.clock, alert.SinkFunc(func(context.Context, alert.Firing) error {
		panic("audio device missing")
	}), nil, quietLogger(), Options{})

	var frame Frame
	assert.NotPanics(t, func() { frame = s.Tick(ctx, t0.Add(2*time.Second)) })
	assert.Len(t, frame.Fired, 1)
}

func TestTick_PeriodicFlush(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.widget.StartStopwatch(ctx)
	key := "nclock_sw_elapsed"
	base := f.store.count(key)

	f.sched.Tick(ctx, t0.Add(100*time.Millisecond))
	assert.Equal(t, base+1, f.store.count(key))

	for ms := 200; ms < 2000; ms += 100 {
		f.sched.Tick(ctx, t0.Add(time.Duration(ms)*time.Millisecond))
	}
	assert.Equal(t, base+1, f.store.count(key))

	f.sched.Tick(ctx, t0.Add(2200*time.Millisecond))
	assert.Equal(t, base+2, f.store.count(key))
}

func TestTick_NoDuplicateWritesWhenIdle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	f.sched.Tick(ctx, t0)
	before := f.store.count("nclock_mode")
	f.sched.Tick(ctx, t0.Add(5*time.Second))
	f.sched.Tick(ctx, t0.Add(10*time.Second))
	assert.Equal(t, before, f.store.count("nclock_mode"))
}

func TestSubmit_RunsActionsOnLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(t, nil)

	require.True(t, f.sched.Start(ctx))
	assert.False(t, f.sched.Start(ctx))
	assert.ErrorIs(t, f.sched.Run(ctx), ErrRunning)

	var added alarm.Entry
	err := f.sched.Submit(ctx, func(ctx context.Context, w *widget.Widget) error {
		var err error
		added, err = w.AddAlarm(ctx, "06:00")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 6, added.Hour)

	err = f.sched.Submit(ctx, func(ctx context.Context, w *widget.Widget) error {
		_, err := w.AddAlarm(ctx, "24:00")
		return err
	})
	assert.ErrorIs(t, err, alarm.ErrInvalidTime)
}

func TestSubmit_RecoversActionPanic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(t, nil)
	require.True(t, f.sched.Start(ctx))

	err := f.sched.Submit(ctx, func(context.Context, *widget.Widget) error { panic("bad handler") })
	assert.Error(t, err)
	assert.True(t, f.sched.Running())
}

func TestSubscribe_ReceivesFrames(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(t, nil)
	frames := f.sched.Subscribe(16)
	require.True(t, f.sched.Start(ctx))

	require.NoError(t, f.sched.Submit(ctx, func(ctx context.Context, w *widget.Widget) error {
		return w.SetMode(ctx, state.ModeAlarm)
	}))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case frame := <-frames:
			if frame.Mode == state.ModeAlarm {
				return
			}
		case <-deadline:
			t.Fatal("no frame with the new mode")
		}
	}
}

func TestCancelStopsLoopAndFlushes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newFixture(t, nil)
	require.True(t, f.sched.Start(ctx))

	require.NoError(t, f.sched.Submit(ctx, func(ctx context.Context, w *widget.Widget) error {
		w.StartStopwatch(ctx)
		return nil
	}))
	f.clock.Advance(3 * time.Second)
	require.NoError(t, f.sched.Submit(ctx, func(context.Context, *widget.Widget) error { return nil }))

	cancel()
	f.sched.Wait()
	assert.False(t, f.sched.Running())

	v, ok, err := f.store.Get(context.Background(), "nclock_sw_elapsed")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "3000", v)

	err = f.sched.Submit(context.Background(), func(context.Context, *widget.Widget) error { return nil })
	assert.ErrorIs(t, err, ErrStopped)
}

type panickingRecorder struct {
	panicked atomic.Bool
}

func (p *panickingRecorder) RecordFiring(context.Context, *storage.Firing) error {
	if !p.panicked.Swap(true) {
		panic("disk vanished")
	}
	return errors.New("still gone")
}

func TestSubmit_RestartsLostLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	recorder := &panickingRecorder{}
	f := newFixture(t, recorder)
	require.True(t, f.sched.Start(ctx))

	// The tick after this action fires the alarm and crashes the loop.
	require.NoError(t, f.sched.Submit(ctx, func(ctx context.Context, w *widget.Widget) error {
		_, err := w.AddAlarm(ctx, "07:29")
		return err
	}))
	require.Eventually(t, func() bool { return !f.sched.Running() }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, recorder.panicked.Load())

	require.NoError(t, f.sched.Submit(ctx, func(ctx context.Context, w *widget.Widget) error {
		return w.SetMode(ctx, state.ModeStopwatch)
	}))
	assert.True(t, f.sched.Running())
	assert.Equal(t, state.ModeStopwatch, f.widget.Mode())
}
