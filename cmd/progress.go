package cmd

import (
	"fmt"
	"io"

	"coderag/internal/index"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// indexingModel shows a spinner and a file counter while Ingest runs.
type indexingModel struct {
	spinner spinner.Model
	phase   string
	done    int
	total   int

	finished bool
	stats    *index.Stats
	err      error
}

func newIndexingModel() indexingModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle
	return indexingModel{
		spinner: sp,
		phase:   "Scanning files...",
	}
}

type indexProgressMsg struct {
	phase string
	done  int
	total int
}

// indexDoneMsg carries the result of Ingest and ends the program.
type indexDoneMsg struct {
	stats *index.Stats
	err   error
}

func (m indexingModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m indexingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case indexDoneMsg:
		m.finished = true
		m.stats = msg.stats
		m.err = msg.err
		return m, tea.Quit
	case indexProgressMsg:
		m.phase = msg.phase
		m.done = msg.done
		m.total = msg.total
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m indexingModel) View() string {
	if m.finished {
		return ""
	}
	s := fmt.Sprintf("%s %s\n", m.spinner.View(), m.phase)
	if m.total > 0 {
		s += dimStyle.Render(fmt.Sprintf("  %d / %d files processed", m.done, m.total)) + "\n"
	}
	return s
}

// ingestWithSpinner runs ingest in the background and renders its progress
// to out until it returns.
func ingestWithSpinner(out io.Writer, ingest func(index.ProgressFunc) (*index.Stats, error)) (*index.Stats, error) {
	p := tea.NewProgram(newIndexingModel(), tea.WithInput(nil), tea.WithOutput(out))

	go func() {
		stats, err := ingest(func(phase string, done, total int) {
			p.Send(indexProgressMsg{phase: phase, done: done, total: total})
		})
		p.Send(indexDoneMsg{stats: stats, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress display: %w", err)
	}
	m := final.(indexingModel)
	return m.stats, m.err
}
