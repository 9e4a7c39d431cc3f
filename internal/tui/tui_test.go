package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/index"
	"docvault/internal/inspect"
)

type fakeLister struct {
	listing *inspect.Listing
	err     error
}

func (f fakeLister) ListFiles(context.Context, string) (*inspect.Listing, error) {
	return f.listing, f.err
}

var okListing = &inspect.Listing{
	Status:      inspect.StatusOK,
	Files:       []inspect.FileSummary{{Filename: "a.md", ChunkCount: 3}},
	TotalFiles:  1,
	TotalChunks: 3,
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func enter() tea.Msg { return tea.KeyMsg{Type: tea.KeyEnter} }

func TestWelcome_ShowsStatus(t *testing.T) {
	cfg := Config{Collection: "docs", SourceDir: "data", Inspector: fakeLister{listing: okListing}}
	m := New(cfg)
	assert.Contains(t, m.View(), "Checking collection")

	msg := checkCollection(cfg)()
	m, _ = update(t, m, msg)
	assert.Contains(t, m.View(), "1 files, 3 chunks")

	m, _ = update(t, m, enter())
	assert.Equal(t, ViewFiles, m.state)
	assert.Contains(t, m.View(), "a.md")
	assert.Contains(t, m.View(), "Total chunks: 3")
}

func TestWelcome_NotFoundStartsIngest(t *testing.T) {
	cfg := Config{
		Collection: "docs",
		Inspector:  fakeLister{listing: &inspect.Listing{Status: inspect.StatusNotFound}},
		NewIndexer: func(context.Context, index.ProgressFunc) (*index.Indexer, error) {
			return nil, errors.New("no key")
		},
	}
	m := New(cfg)
	m, _ = update(t, m, checkCollection(cfg)())
	assert.Contains(t, m.View(), "Collection not found")

	m, cmd := update(t, m, enter())
	assert.Equal(t, ViewIndexing, m.state)
	require.NotNil(t, cmd)

	m, _ = update(t, m, runIngest(cfg)())
	assert.True(t, m.indexing.finished)
	assert.Contains(t, m.View(), "no key")

	// Enter after a failed run goes back to the status screen.
	m, cmd = update(t, m, enter())
	assert.Equal(t, ViewWelcome, m.state)
	assert.NotNil(t, cmd)
}

func TestIndexing_Progress(t *testing.T) {
	m := newIndexingModel()
	m, _ = m.Update(indexProgressMsg{phase: index.PhaseEmbed, done: 2, total: 5})
	assert.Contains(t, m.View(), index.PhaseEmbed)
	assert.Contains(t, m.View(), "2 / 5")

	m, _ = m.Update(indexDoneMsg{stats: &index.Stats{Files: 2, Chunks: 9, Batches: 1}})
	assert.Contains(t, m.View(), "Ingestion complete")
	assert.Contains(t, m.View(), "Chunks: 9 in 1 batches")
}

func TestSuccessfulIngestOpensFileList(t *testing.T) {
	cfg := Config{Collection: "docs", Inspector: fakeLister{listing: okListing}}
	m := New(cfg)
	m.state = ViewIndexing
	m.indexing = newIndexingModel()

	m, _ = update(t, m, indexDoneMsg{stats: &index.Stats{Files: 1, Chunks: 3}})
	m, cmd := update(t, m, enter())
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	assert.Equal(t, ViewFiles, m.state)
}

func TestQuit(t *testing.T) {
	m := New(Config{Inspector: fakeLister{listing: okListing}})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
