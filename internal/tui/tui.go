package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"docvault/internal/index"
	"docvault/internal/inspect"
)

// ViewState represents which screen is active.
type ViewState int

const (
	ViewWelcome ViewState = iota
	ViewIndexing
	ViewFiles
)

// programRef is an indirect pointer to the tea.Program so background goroutines
// can send messages. It must be set after tea.NewProgram returns but before Run.
type programRef struct {
	p *tea.Program
}

// Lister is the read path used for status and the file list.
type Lister interface {
	ListFiles(ctx context.Context, collection string) (*inspect.Listing, error)
}

// Config holds configuration passed from the CLI layer.
type Config struct {
	SourceDir  string
	Collection string
	Inspector  Lister
	// NewIndexer builds an indexer reporting to the given progress func.
	NewIndexer func(ctx context.Context, onProgress index.ProgressFunc) (*index.Indexer, error)

	// program is set internally so background goroutines can send messages.
	program *programRef
}

// Model is the top-level Bubble Tea model.
type Model struct {
	state  ViewState
	config Config
	width  int
	height int

	welcome  welcomeModel
	indexing indexingModel
	files    filesModel
}

// New creates a new TUI model with the given config.
func New(cfg Config) Model {
	return Model{
		state:  ViewWelcome,
		config: cfg,
	}
}

func (m Model) Init() tea.Cmd {
	return checkCollection(m.config)
}

func (m Model) startIngest() (Model, tea.Cmd) {
	m.state = ViewIndexing
	m.indexing = newIndexingModel()
	return m, tea.Batch(m.indexing.spinner.Tick, runIngest(m.config))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		// Global quit.
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd

	switch m.state {
	case ViewWelcome:
		m.welcome, cmd = m.welcome.Update(msg)
		if cmd != nil {
			return m, cmd
		}
		if _, checked := msg.(checkCollectionMsg); checked && m.welcome.browse && m.welcome.hasDocuments() {
			m.state = ViewFiles
			m.files = newFilesModel(m.welcome.listing, m.height)
			return m, nil
		}
		keyMsg, ok := msg.(tea.KeyMsg)
		if !ok || !m.welcome.ready {
			break
		}
		switch {
		case keyMsg.Type == tea.KeyEnter && m.welcome.hasDocuments():
			m.state = ViewFiles
			m.files = newFilesModel(m.welcome.listing, m.height)
			return m, nil
		case keyMsg.Type == tea.KeyEnter, keyMsg.String() == "i":
			return m.startIngest()
		}

	case ViewIndexing:
		m.indexing, cmd = m.indexing.Update(msg)
		if cmd != nil {
			return m, cmd
		}
		// After the run, Enter re-checks the collection. A successful run
		// continues straight to the file list.
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter && m.indexing.finished {
			m.state = ViewWelcome
			m.welcome = welcomeModel{browse: m.indexing.err == nil}
			return m, checkCollection(m.config)
		}

	case ViewFiles:
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "r" {
			return m.startIngest()
		}
		m.files, cmd = m.files.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	switch m.state {
	case ViewWelcome:
		return m.welcome.View(m.config)
	case ViewIndexing:
		return m.indexing.View()
	case ViewFiles:
		return m.files.View(m.config.Collection)
	}
	return ""
}

// Run starts the TUI program.
func Run(cfg Config) error {
	ref := &programRef{}
	cfg.program = ref
	model := New(cfg)
	p := tea.NewProgram(model, tea.WithAltScreen())
	ref.p = p
	_, err := p.Run()
	return err
}
