package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"docvault/internal/inspect"
)

type welcomeModel struct {
	listing *inspect.Listing
	err     error
	ready   bool // true once the check has completed
	browse  bool // open the file list as soon as the check succeeds
}

// checkCollectionMsg is sent after inspecting the collection.
type checkCollectionMsg struct {
	listing *inspect.Listing
	err     error
}

func checkCollection(cfg Config) tea.Cmd {
	return func() tea.Msg {
		l, err := cfg.Inspector.ListFiles(context.Background(), cfg.Collection)
		return checkCollectionMsg{listing: l, err: err}
	}
}

func (m welcomeModel) Update(msg tea.Msg) (welcomeModel, tea.Cmd) {
	switch msg := msg.(type) {
	case checkCollectionMsg:
		m.listing = msg.listing
		m.err = msg.err
		m.ready = true
	}
	return m, nil
}

// hasDocuments reports whether the file list is worth showing.
func (m welcomeModel) hasDocuments() bool {
	return m.err == nil && m.listing != nil && m.listing.Status == inspect.StatusOK
}

func (m welcomeModel) View(cfg Config) string {
	s := "\n"
	s += titleStyle.Render("  ◆ docvault") + "\n"
	s += subtitleStyle.Render("  Document ingestion into a vector store") + "\n\n"
	s += dimStyle.Render(fmt.Sprintf("  Collection: %s   Source: %s", cfg.Collection, cfg.SourceDir)) + "\n\n"

	if !m.ready {
		s += dimStyle.Render("  Checking collection...") + "\n"
		return s
	}

	switch {
	case m.err != nil:
		s += errorStyle.Render(fmt.Sprintf("  ✗ %v", m.err)) + "\n"
	case m.listing.Status == inspect.StatusOK:
		s += successStyle.Render(fmt.Sprintf("  ✓ %d files, %d chunks", m.listing.TotalFiles, m.listing.TotalChunks)) + "\n"
	case m.listing.Status == inspect.StatusEmpty:
		s += warnStyle.Render("  ⚠ Collection is empty") + "\n"
	default:
		s += warnStyle.Render("  ✗ Collection not found") + "\n"
	}

	s += "\n"
	if m.hasDocuments() {
		s += dimStyle.Render("  Enter: browse files · i: re-ingest · q: quit") + "\n"
	} else {
		s += dimStyle.Render("  Enter: ingest documents · q: quit") + "\n"
	}
	return s
}
