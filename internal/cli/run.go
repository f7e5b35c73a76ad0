package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/runnerr0/nclock/internal/alert"
	"github.com/runnerr0/nclock/internal/config"
	"github.com/runnerr0/nclock/internal/display"
	"github.com/runnerr0/nclock/internal/scheduler"
	"github.com/runnerr0/nclock/internal/state"
	"github.com/runnerr0/nclock/internal/view"
	"github.com/runnerr0/nclock/internal/widget"
)

const runHelp = `commands: start | stop | lap | reset | add HH:MM | toggle N | rm N
          mode clock|stopwatch|alarm|settings | offset MIN | hours N
          transform offset|dilation | seconds on|off | dark on|off | lang TAG
          ack | quit (enter on an empty line also dismisses a ringing alarm)`

// handler is one interactive command. It runs on the tick loop and returns
// the message shown under the frame.
type handler func(ctx context.Context, w *widget.Widget) (string, error)

// Execute implements the go-flags Commander interface for RunCommand.
func (c *RunCommand) Execute(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := prepare(ctx, c.globals, c.env)
	if err != nil {
		return err
	}
	defer e.Close()

	if c.Mode != "" {
		m, err := state.ParseMode(c.Mode)
		if err != nil {
			return err
		}
		if err := e.widget.SetMode(ctx, m); err != nil {
			return err
		}
	}

	var alerts io.Writer = os.Stdout
	printer := &programWriter{}
	if !c.Once {
		alerts = printer
	}
	sched := scheduler.New(e.widget, e.clock, buildSink(e.cfg.Alerts, alerts, e.logger), e.store, e.logger, schedulerOptions(e.cfg.Scheduler))
	renderer := view.New(os.Stdout)

	if c.Once {
		frame := sched.Tick(ctx, e.clock.Now())
		fmt.Println(renderer.Render(frame))
		_, err := e.widget.Save(ctx)
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithOutput(os.Stdout)}
	if c.in != nil {
		opts = append(opts, tea.WithInput(c.in))
	}
	p := tea.NewProgram(newSession(loopCtx, sched, renderer), opts...)
	printer.attach(p)

	frames := sched.Subscribe(64)
	if !sched.Start(loopCtx) {
		return scheduler.ErrRunning
	}

	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for {
			select {
			case f := <-frames:
				p.Send(frameMsg(f))
			case <-loopCtx.Done():
				return
			}
		}
	}()

	_, runErr := p.Run()
	cancel()
	sched.Wait()
	<-forwarded

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("running terminal ui: %w", runErr)
	}
	return nil
}

// parseCommand maps an input line to a handler. quit is true for the
// commands that end the session.
func parseCommand(line string) (h handler, quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return func(context.Context, *widget.Widget) (string, error) { return "", nil }, false, nil
	}
	name, rest := strings.ToLower(fields[0]), fields[1:]

	arg := func() (string, error) {
		if len(rest) != 1 {
			return "", fmt.Errorf("%s takes one argument", name)
		}
		return rest[0], nil
	}

	switch name {
	case "quit", "exit", "q":
		return nil, true, nil
	case "ack", "dismiss":
		return func(context.Context, *widget.Widget) (string, error) { return "", nil }, false, nil
	case "help", "?":
		return func(context.Context, *widget.Widget) (string, error) { return runHelp, nil }, false, nil

	case "start":
		return func(ctx context.Context, w *widget.Widget) (string, error) {
			w.StartStopwatch(ctx)
			return "stopwatch started", nil
		}, false, nil
	case "stop":
		return func(ctx context.Context, w *widget.Widget) (string, error) {
			w.StopStopwatch(ctx)
			return "stopwatch stopped at " + w.StopwatchText(), nil
		}, false, nil
	case "lap":
		return func(ctx context.Context, w *widget.Widget) (string, error) {
			lap, err := w.Lap(ctx)
			if err != nil {
				return "", err
			}
			return "lap " + lap, nil
		}, false, nil
	case "reset":
		return func(ctx context.Context, w *widget.Widget) (string, error) {
			if err := w.ResetStopwatch(ctx); err != nil {
				return "", err
			}
			return "stopwatch reset", nil
		}, false, nil

	case "add":
		text, err := arg()
		if err != nil {
			return nil, false, err
		}
		return func(ctx context.Context, w *widget.Widget) (string, error) {
			a, err := w.AddAlarm(ctx, text)
			if err != nil {
				return "", err
			}
			return "added alarm " + a.Label(), nil
		}, false, nil
	case "toggle":
		ref, err := arg()
		if err != nil {
			return nil, false, err
		}
		return func(ctx context.Context, w *widget.Widget) (string, error) {
			a, err := w.ToggleAlarm(ctx, ref)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("alarm %s %s", a.Label(), onOff(a.Enabled)), nil
		}, false, nil
	case "rm", "remove", "delete":
		ref, err := arg()
		if err != nil {
			return nil, false, err
		}
		return func(ctx context.Context, w *widget.Widget) (string, error) {
			a, err := w.RemoveAlarm(ctx, ref)
			if err != nil {
				return "", err
			}
			return "removed alarm " + a.Label(), nil
		}, false, nil

	case "clock", "stopwatch", "alarm", "settings":
		rest = []string{name}
		name = "mode"
		fallthrough
	case "mode":
		m, err := arg()
		if err != nil {
			return nil, false, err
		}
		mode, err := state.ParseMode(m)
		if err != nil {
			return nil, false, err
		}
		return func(ctx context.Context, w *widget.Widget) (string, error) {
			return "", w.SetMode(ctx, mode)
		}, false, nil

	case "offset", "hours":
		v, err := arg()
		if err != nil {
			return nil, false, err
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %s wants a whole number, got %q", state.ErrInvalidSetting, name, v)
		}
		if name == "offset" {
			return func(ctx context.Context, w *widget.Widget) (string, error) {
				w.SetOffset(ctx, n)
				return "offset " + display.OffsetLabel(n), nil
			}, false, nil
		}
		return func(ctx context.Context, w *widget.Widget) (string, error) {
			return fmt.Sprintf("%d hours per day", w.SetHoursPerDay(ctx, n)), nil
		}, false, nil
	case "transform":
		v, err := arg()
		if err != nil {
			return nil, false, err
		}
		return func(ctx context.Context, w *widget.Widget) (string, error) {
			if err := w.SetTransform(ctx, display.Kind(v)); err != nil {
				return "", err
			}
			return "transform " + v, nil
		}, false, nil
	case "seconds", "dark":
		v, err := arg()
		if err != nil {
			return nil, false, err
		}
		on, err := parseOnOff(v)
		if err != nil {
			return nil, false, err
		}
		if name == "seconds" {
			return func(ctx context.Context, w *widget.Widget) (string, error) {
				w.SetShowSeconds(ctx, on)
				return "seconds " + onOff(on), nil
			}, false, nil
		}
		return func(ctx context.Context, w *widget.Widget) (string, error) {
			w.SetDarkMode(ctx, on)
			return "dark mode " + onOff(on), nil
		}, false, nil
	case "lang":
		v, err := arg()
		if err != nil {
			return nil, false, err
		}
		return func(ctx context.Context, w *widget.Widget) (string, error) {
			if err := w.SetLanguage(ctx, v); err != nil {
				return "", err
			}
			return "language " + w.Language(), nil
		}, false, nil
	}
	return nil, false, fmt.Errorf("unknown command %q (type help)", name)
}

func parseOnOff(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "on", "true", "yes":
		return true, nil
	case "off", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("%w: want on or off, got %q", state.ErrInvalidSetting, v)
}

// buildSink assembles the enabled alert sinks. Tones and desktop
// notifications run asynchronously so they never hold up a tick.
func buildSink(cfg config.AlertsConfig, out io.Writer, logger *slog.Logger) alert.Sink {
	var sinks []alert.Sink
	if cfg.Terminal {
		sinks = append(sinks, alert.Guard(alert.NewTerminal(out), logger))
	}
	if cfg.Sound {
		sinks = append(sinks, alert.Async(alert.NewBeeper(cfg.ToneCount), logger))
	}
	if cfg.Desktop {
		sinks = append(sinks, alert.Async(alert.NewDesktop(), logger))
	}
	return alert.Multi(sinks...)
}

func schedulerOptions(cfg config.SchedulerConfig) scheduler.Options {
	return scheduler.Options{
		Interval:      time.Duration(cfg.TickIntervalMS) * time.Millisecond,
		FlushInterval: time.Duration(cfg.FlushIntervalMS) * time.Millisecond,
		GapWarning:    time.Duration(cfg.GapWarningMS) * time.Millisecond,
	}
}
