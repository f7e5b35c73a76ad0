package alert

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Terminal writes a highlighted acknowledgment line, preceded by the
// terminal bell, to w.
type Terminal struct {
	mu    sync.Mutex
	w     io.Writer
	style lipgloss.Style
}

// NewTerminal returns a Terminal sink writing to w.
func NewTerminal(w io.Writer) *Terminal {
	r := lipgloss.NewRenderer(w)
	style := r.NewStyle().
		Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#B00020", Dark: "#FF8A80"})
	return &Terminal{w: w, style: style}
}

func (t *Terminal) Alert(_ context.Context, f Firing) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintf(t.w, "\a%s\n", t.style.Render("⏰ "+f.Message()))
	return err
}
