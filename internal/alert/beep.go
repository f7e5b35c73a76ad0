package alert

import (
	"context"
	"time"

	"github.com/gen2brain/beeep"
)

// Tone is one step of the alarm cue.
type Tone struct {
	Frequency float64
	Duration  time.Duration
	Gap       time.Duration
}

// Tones returns the decaying cue: count tones stepping down 60 Hz from
// 880 Hz, each 350 ms long and started 450 ms apart.
func Tones(count int) []Tone {
	tones := make([]Tone, 0, count)
	for i := 0; i < count; i++ {
		freq := 880 - float64(i)*60
		if freq < 60 {
			freq = 60
		}
		tones = append(tones, Tone{
			Frequency: freq,
			Duration:  350 * time.Millisecond,
			Gap:       100 * time.Millisecond,
		})
	}
	return tones
}

// Beeper plays the tone sequence on the system speaker.
type Beeper struct {
	Tones []Tone

	beep  func(freq float64, ms int) error
	sleep func(ctx context.Context, d time.Duration) error
}

// NewBeeper returns a Beeper playing count tones through beeep.
func NewBeeper(count int) *Beeper {
	return &Beeper{
		Tones: Tones(count),
		beep:  beeep.Beep,
		sleep: sleepContext,
	}
}

// Alert plays every tone, stopping at the first failure or cancellation.
func (b *Beeper) Alert(ctx context.Context, _ Firing) error {
	for _, tone := range b.Tones {
		if err := b.beep(tone.Frequency, int(tone.Duration/time.Millisecond)); err != nil {
			return err
		}
		if err := b.sleep(ctx, tone.Gap); err != nil {
			return err
		}
	}
	return nil
}

// Desktop posts a desktop notification.
type Desktop struct {
	notify func(title, message string, icon any) error
}

// NewDesktop returns a Desktop sink backed by beeep.
func NewDesktop() *Desktop {
	return &Desktop{notify: func(title, message string, icon any) error {
		return beeep.Notify(title, message, icon)
	}}
}

func (d *Desktop) Alert(_ context.Context, f Firing) error {
	return d.notify(AppName, f.Message(), "")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
