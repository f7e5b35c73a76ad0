// Package scheduler drives the widget. A single loop advances the
// stopwatch, refreshes the clock and evaluates alarms on every tick, and
// runs user actions between ticks so nothing touches the widget
// concurrently.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/runnerr0/nclock/internal/alert"
	"github.com/runnerr0/nclock/internal/state"
	"github.com/runnerr0/nclock/internal/storage"
	"github.com/runnerr0/nclock/internal/widget"
)

var (
	// ErrStopped is returned when an action cannot reach a live loop.
	ErrStopped = errors.New("scheduler stopped")
	// ErrRunning is returned by Run while another loop is active.
	ErrRunning = errors.New("scheduler already running")
)

// Action is a user interaction executed on the loop.
type Action func(ctx context.Context, w *widget.Widget) error

// Recorder keeps the firing history.
type Recorder interface {
	RecordFiring(ctx context.Context, firing *storage.Firing) error
}

// Options contains runtime options for Scheduler.
type Options struct {
	Interval      time.Duration
	FlushInterval time.Duration
	GapWarning    time.Duration
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = 100 * time.Millisecond
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = 2 * time.Second
	}
	if o.GapWarning <= 0 {
		o.GapWarning = 5 * time.Second
	}
	return o
}

type request struct {
	action Action
	done   chan error
}

type Scheduler struct {
	widget   *widget.Widget
	clock    clockwork.Clock
	sink     alert.Sink
	recorder Recorder
	logger   *slog.Logger
	options  Options
	flush    *rate.Limiter
	actions  chan request

	// Owned by whoever is ticking.
	previous time.Time

	mu      sync.Mutex
	running bool
	base    context.Context
	stopped chan struct{}
	events  []chan Frame
}

// New creates a Scheduler for w. sink is guarded so alert failures never
// reach the loop; recorder may be nil.
func New(w *widget.Widget, clock clockwork.Clock, sink alert.Sink, recorder Recorder, logger *slog.Logger, options Options) *Scheduler {
	if clock == nil {
		clock = w.Clock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = alert.SinkFunc(func(context.Context, alert.Firing) error { return nil })
	}
	options = options.withDefaults()

	return &Scheduler{
		widget:   w,
		clock:    clock,
		sink:     alert.Guard(sink, logger),
		recorder: recorder,
		logger:   logger,
		options:  options,
		flush:    rate.NewLimiter(rate.Every(options.FlushInterval), 1),
		actions:  make(chan request),
	}
}

// Subscribe registers a frame observer. Frames are dropped for observers
// that fall behind.
func (s *Scheduler) Subscribe(buffer int) <-chan Frame {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Frame, buffer)
	s.mu.Lock()
	s.events = append(s.events, ch)
	s.mu.Unlock()
	return ch
}

// Running reports whether a loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Wait blocks until no loop is active, including loops restarted while
// waiting.
func (s *Scheduler) Wait() {
	for {
		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			return
		}
		stopped := s.stopped
		s.mu.Unlock()
		<-stopped
	}
}

// Run ticks until ctx is done, then flushes state one last time.
func (s *Scheduler) Run(ctx context.Context) error {
	stopped, ok := s.claim(ctx)
	if !ok {
		return ErrRunning
	}
	return s.loop(ctx, stopped)
}

// Start launches the loop in the background. It returns false when a loop
// is already active.
func (s *Scheduler) Start(ctx context.Context) bool {
	stopped, ok := s.claim(ctx)
	if !ok {
		return false
	}
	go s.loop(ctx, stopped) //nolint:errcheck
	return true
}

// Submit runs action on the loop and waits for its result. A loop that was
// lost is restarted from the context it was last started with, as long as
// that context is still live.
func (s *Scheduler) Submit(ctx context.Context, action Action) error {
	stopped, err := s.ensureRunning()
	if err != nil {
		return err
	}

	req := request{action: action, done: make(chan error, 1)}
	select {
	case s.actions <- req:
	case <-stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.done:
		return err
	case <-stopped:
		select {
		case err := <-req.done:
			return err
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) claim(ctx context.Context) (chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil, false
	}
	s.running = true
	s.base = ctx
	s.stopped = make(chan struct{})
	return s.stopped, true
}

func (s *Scheduler) release(stopped chan struct{}) {
	s.mu.Lock()
	s.running = false
	close(stopped)
	s.mu.Unlock()
}

func (s *Scheduler) ensureRunning() (chan struct{}, error) {
	s.mu.Lock()
	if s.running {
		stopped := s.stopped
		s.mu.Unlock()
		return stopped, nil
	}
	base := s.base
	s.mu.Unlock()

	if base == nil || base.Err() != nil {
		return nil, ErrStopped
	}
	stopped, ok := s.claim(base)
	if !ok {
		// Another caller restarted it first.
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.stopped, nil
	}
	s.logger.Info("restarting tick loop")
	go s.loop(base, stopped) //nolint:errcheck
	return stopped, nil
}

func (s *Scheduler) loop(ctx context.Context, stopped chan struct{}) (err error) {
	ticker := s.clock.NewTicker(s.options.Interval)
	defer func() {
		ticker.Stop()
		if r := recover(); r != nil {
			s.logger.Error("tick loop crashed", "panic", r)
			err = fmt.Errorf("%w: %v", ErrStopped, r)
		}
		s.release(stopped)
	}()

	s.logger.Debug("tick loop started", "interval", s.options.Interval)
	s.emit(s.Tick(ctx, s.clock.Now()))

	for {
		select {
		case <-ctx.Done():
			s.finalFlush(context.WithoutCancel(ctx))
			s.logger.Debug("tick loop stopped")
			return nil
		case <-ticker.Chan():
			// The ticker's own timestamp may predate an action that has
			// already ticked, so read the clock instead.
			s.emit(s.Tick(ctx, s.clock.Now()))
		case req := <-s.actions:
			req.done <- s.perform(ctx, req.action)
			s.emit(s.Tick(ctx, s.clock.Now()))
		}
	}
}

func (s *Scheduler) perform(ctx context.Context, action Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("action panicked", "panic", r)
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()
	return action(ctx, s.widget)
}

func (s *Scheduler) finalFlush(ctx context.Context) {
	if _, err := s.widget.Save(ctx); err != nil {
		s.logger.Warn("final flush failed", "error", err)
	}
}

// Tick runs one reconciliation pass at now. It must only be called from
// the loop, or while no loop is running.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) Frame {
	w := s.widget

	var delta time.Duration
	if !s.previous.IsZero() {
		delta = now.Sub(s.previous)
		if delta < 0 {
			delta = 0
		}
	}
	s.previous = now
	if delta > s.options.GapWarning {
		s.logger.Warn("tick gap", "gap", delta)
	}

	w.AdvanceStopwatch(now)

	frame := Frame{
		At:             now,
		Delta:          delta,
		Mode:           w.Mode(),
		ClockLabel:     w.Transform().Label(),
		Transform:      w.Transform(),
		Stopwatch:      w.StopwatchText(),
		Running:        w.Stopwatch().Running(),
		Laps:           w.Stopwatch().RecentLaps(FrameLaps),
		LapCount:       w.Stopwatch().LapCount(),
		Alarms:         w.Alarms(),
		DarkModeForced: w.DarkModeForced(),
		Language:       w.Language(),
	}
	if frame.Mode == state.ModeClock {
		frame.Clock = w.ClockText(now)
	}

	fired := w.CheckAlarms(ctx, now)
	for _, e := range fired {
		s.logger.Info("alarm fired", "alarm", e.Label(), "id", e.ID)
		if s.recorder != nil {
			err := s.recorder.RecordFiring(ctx, &storage.Firing{
				AlarmID:    e.ID,
				Label:      e.Label(),
				TriggerKey: w.LastTriggered(),
				Timestamp:  now,
			})
			if err != nil {
				s.logger.Warn("recording firing", "alarm", e.Label(), "error", err)
			}
		}
		_ = s.sink.Alert(ctx, alert.Firing{Alarm: e, At: now})
	}
	frame.Fired = fired
	frame.Ringing = w.Ringing()

	if s.flush.AllowN(now, 1) {
		_, _ = w.Save(ctx)
	}
	return frame
}

func (s *Scheduler) emit(frame Frame) {
	s.mu.Lock()
	events := append([]chan Frame(nil), s.events...)
	s.mu.Unlock()
	for _, ch := range events {
		select {
		case ch <- frame:
		default:
		}
	}
}
