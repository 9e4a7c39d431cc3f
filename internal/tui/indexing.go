package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"docvault/internal/index"
)

type indexingModel struct {
	spinner spinner.Model
	phase   string
	done    int
	total   int
	// finished is set once the run returns, successfully or not.
	finished bool
	stats    *index.Stats
	err      error
}

func newIndexingModel() indexingModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle
	return indexingModel{
		spinner: sp,
		phase:   index.PhaseDiscover,
	}
}

// indexDoneMsg is sent when ingestion completes.
type indexDoneMsg struct {
	stats *index.Stats
	err   error
}

// indexProgressMsg is sent as each phase advances.
type indexProgressMsg struct {
	phase string
	done  int
	total int
}

func runIngest(cfg Config) tea.Cmd {
	return func() tea.Msg {
		// Progress goes through cfg.program (set by Run) to the tea program.
		idx, err := cfg.NewIndexer(context.Background(), func(phase string, done, total int) {
			if cfg.program != nil && cfg.program.p != nil {
				cfg.program.p.Send(indexProgressMsg{phase: phase, done: done, total: total})
			}
		})
		if err != nil {
			return indexDoneMsg{err: err}
		}

		stats, err := idx.Ingest(context.Background(), cfg.SourceDir, cfg.Collection)
		return indexDoneMsg{stats: stats, err: err}
	}
}

func (m indexingModel) Update(msg tea.Msg) (indexingModel, tea.Cmd) {
	switch msg := msg.(type) {
	case indexDoneMsg:
		m.finished = true
		m.stats = msg.stats
		m.err = msg.err
		return m, nil
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
	s := "\n"
	s += titleStyle.Render("  Ingesting") + "\n\n"

	if m.finished {
		if m.err != nil {
			s += errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
			s += dimStyle.Render("  Press Enter to go back, or q to quit.") + "\n"
			return s
		}
		s += successStyle.Render("  ✓ Ingestion complete!") + "\n\n"
		if m.stats != nil {
			s += fmt.Sprintf("  Files:  %d\n", m.stats.Files)
			s += fmt.Sprintf("  Chunks: %d in %d batches\n", m.stats.Chunks, m.stats.Batches)
		}
		s += "\n"
		s += dimStyle.Render("  Press Enter to browse files") + "\n"
		return s
	}

	s += fmt.Sprintf("  %s %s\n", m.spinner.View(), m.phase)
	if m.total > 0 {
		s += fmt.Sprintf("  %d / %d\n", m.done, m.total)
	}
	s += "\n"
	s += dimStyle.Render("  Embedding large document sets may take a while...") + "\n"
	return s
}
