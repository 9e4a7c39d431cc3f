package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"docvault/internal/inspect"
)

type filesModel struct {
	table   table.Model
	listing *inspect.Listing
}

func newFilesModel(l *inspect.Listing, height int) filesModel {
	rows := make([]table.Row, 0, len(l.Files))
	for _, f := range l.Files {
		rows = append(rows, table.Row{f.Filename, strconv.Itoa(f.ChunkCount)})
	}

	h := height - 8
	if h < 5 {
		h = 5
	}
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "File", Width: 48},
			{Title: "Chunks", Width: 8},
		}),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(min(h, len(rows)+1)),
	)
	st := table.DefaultStyles()
	st.Header = tableHeaderStyle
	st.Selected = selectedStyle
	t.SetStyles(st)

	return filesModel{table: t, listing: l}
}

func (m filesModel) Update(msg tea.Msg) (filesModel, tea.Cmd) {
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m filesModel) View(collection string) string {
	s := "\n"
	s += titleStyle.Render("  Document Collection: "+collection) + "\n\n"
	s += tableBorderStyle.Render(m.table.View()) + "\n\n"
	s += fmt.Sprintf("  Total files: %d · Total chunks: %d\n\n", m.listing.TotalFiles, m.listing.TotalChunks)
	s += dimStyle.Render("  ↑/↓: move · r: re-ingest · q: quit") + "\n"
	return s
}
