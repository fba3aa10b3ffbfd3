package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrCanceled is returned by Progress when the operator pressed Ctrl-C.
var ErrCanceled = errors.New("canceled")

type progressDoneMsg struct {
	rows int
	err  error
}

type progressModel struct {
	spinner  spinner.Model
	message  string
	styles   *Styles
	done     bool
	rows     int
	err      error
	canceled bool
}

func newProgressModel(message string, styles *Styles) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner
	return progressModel{spinner: s, message: message, styles: styles}
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.canceled = true
			return m, tea.Quit
		}
	case progressDoneMsg:
		m.done = true
		m.rows = msg.rows
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	switch {
	case m.canceled:
		return m.styles.Muted.Render(m.message+": canceled") + "\n"
	case m.done && m.err != nil:
		return m.styles.Error.Render("✗ "+m.message) + "\n"
	case m.done:
		return m.styles.Success.Render(fmt.Sprintf("✓ %s: %d rows", m.message, m.rows)) + "\n"
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), m.message)
}

// Progress runs fn while a spinner with message is drawn on w. Ctrl-C
// cancels the context passed to fn and returns ErrCanceled once fn returned.
// A terminal the spinner cannot draw on does not stop fn.
func Progress(ctx context.Context, w io.Writer, message string, fn func(ctx context.Context) (int, error)) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newProgressModel(message, NewStyles()), tea.WithOutput(w))

	results := make(chan progressDoneMsg, 1)
	go func() {
		rows, err := fn(ctx)
		res := progressDoneMsg{rows: rows, err: err}
		results <- res
		p.Send(res)
	}()

	final, runErr := p.Run()
	m, _ := final.(progressModel)
	if runErr == nil && m.canceled {
		cancel()
		<-results
		return 0, ErrCanceled
	}

	// Without a working terminal the export still runs to completion.
	res := <-results
	return res.rows, res.err
}
