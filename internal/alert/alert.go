// Package alert delivers best-effort alarm signals. Every sink may fail;
// Guard makes sure no failure reaches the tick loop.
package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/runnerr0/nclock/internal/alarm"
)

// AppName titles desktop notifications.
const AppName = "N Clock"

// Firing is one alarm going off.
type Firing struct {
	Alarm alarm.Entry
	At    time.Time
}

// Message is the user-visible text for a firing.
func (f Firing) Message() string {
	return fmt.Sprintf("Alarm: %s", f.Alarm.Label())
}

// Sink receives firings.
type Sink interface {
	Alert(ctx context.Context, f Firing) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, f Firing) error

func (fn SinkFunc) Alert(ctx context.Context, f Firing) error { return fn(ctx, f) }

// Multi sends to every sink and joins their errors.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, f Firing) error {
		var errs []error
		for _, s := range sinks {
			if err := s.Alert(ctx, f); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// Guard swallows errors and panics from sink. Failures are logged at debug
// level only.
func Guard(sink Sink, logger *slog.Logger) Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return SinkFunc(func(ctx context.Context, f Firing) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Debug("alert sink panicked", "alarm", f.Alarm.Label(), "panic", r)
			}
			err = nil
		}()
		if alertErr := sink.Alert(ctx, f); alertErr != nil {
			logger.Debug("alert sink failed", "alarm", f.Alarm.Label(), "error", alertErr)
		}
		return nil
	})
}

// Async runs sink on its own goroutine so slow side effects (tones play
// for seconds) never hold up the caller. The returned error is always nil.
func Async(sink Sink, logger *slog.Logger) Sink {
	guarded := Guard(sink, logger)
	return SinkFunc(func(ctx context.Context, f Firing) error {
		go guarded.Alert(context.WithoutCancel(ctx), f) //nolint:errcheck
		return nil
	})
}
