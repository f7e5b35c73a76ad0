package cli

import (
	"context"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/runnerr0/nclock/internal/scheduler"
	"github.com/runnerr0/nclock/internal/view"
	"github.com/runnerr0/nclock/internal/widget"
)

const dismissHint = "press enter to dismiss"

type frameMsg scheduler.Frame

type resultMsg struct {
	status string
	err    error
}

// session is the interactive run model. Commands typed into the prompt are
// submitted to the scheduler; frames arrive from its subscription.
type session struct {
	ctx      context.Context
	sched    *scheduler.Scheduler
	renderer *view.Renderer
	input    textinput.Model

	frame  scheduler.Frame
	ready  bool
	status string
}

func newSession(ctx context.Context, sched *scheduler.Scheduler, renderer *view.Renderer) session {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "help"
	ti.CharLimit = 64
	ti.Width = 40
	ti.Focus()

	return session{
		ctx:      ctx,
		sched:    sched,
		renderer: renderer,
		input:    ti,
		status:   "type help for commands",
	}
}

func (m session) Init() tea.Cmd {
	return textinput.Blink
}

func (m session) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.frame = scheduler.Frame(msg)
		m.ready = true
		return m, nil

	case resultMsg:
		if msg.err != nil {
			m.status = "error: " + msg.err.Error()
		} else {
			m.status = msg.status
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			return m.submit(line)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit parses line and returns a command that runs it on the tick loop.
// Any submitted command dismisses ringing alarms first.
func (m session) submit(line string) (tea.Model, tea.Cmd) {
	h, quit, err := parseCommand(line)
	if quit {
		return m, tea.Quit
	}
	if err != nil {
		m.status = "error: " + err.Error()
		return m, nil
	}

	ctx, sched := m.ctx, m.sched
	return m, func() tea.Msg {
		var status string
		err := sched.Submit(ctx, func(ctx context.Context, w *widget.Widget) error {
			dismissed := w.Acknowledge()
			msg, err := h(ctx, w)
			if err != nil {
				return err
			}
			if msg == "" && dismissed > 0 {
				msg = "alarm dismissed"
			}
			status = msg
			return nil
		})
		return resultMsg{status: status, err: err}
	}
}

func (m session) View() string {
	var b strings.Builder
	if m.ready {
		b.WriteString(m.renderer.Render(m.frame))
		b.WriteString("\n")
		if len(m.frame.Ringing) > 0 {
			b.WriteString(dismissHint)
			b.WriteString("\n")
		}
	}
	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(m.input.View())
	return b.String()
}

// programWriter prints above a running program. Writes before the program
// is attached, or after it exits, are dropped.
type programWriter struct {
	mu sync.Mutex
	p  *tea.Program
}

func (w *programWriter) attach(p *tea.Program) {
	w.mu.Lock()
	w.p = p
	w.mu.Unlock()
}

func (w *programWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	p := w.p
	w.mu.Unlock()
	if p != nil {
		// Send is a no-op once the program has exited; Println would block.
		p.Send(tea.Println(strings.TrimRight(string(b), "\n"))())
	}
	return len(b), nil
}
