// Package tui is an interactive browser for the knowledge base: a filterable
// record list and a rendered detail view with dependency context.
package tui

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"codelore/internal/graph"
	"codelore/internal/store"
)

// ViewState represents which screen is active.
type ViewState int

const (
	ViewLoading ViewState = iota
	ViewBrowse
	ViewDetail
)

// Config holds configuration passed from the CLI layer.
type Config struct {
	DBPath string
}

// loadedMsg carries the corpus read at startup.
type loadedMsg struct {
	records []store.FileRecord
	stats   store.Stats
	graph   *graph.Graph
	err     error
}

func loadCorpus(cfg Config) tea.Cmd {
	return func() tea.Msg {
		if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
			return loadedMsg{graph: graph.Build(nil)}
		}
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return loadedMsg{err: err}
		}
		defer st.Close()

		records, err := st.List(store.ListFilter{}, 0)
		if err != nil {
			return loadedMsg{err: err}
		}
		stats, err := st.Stats()
		if err != nil {
			return loadedMsg{err: err}
		}
		edges, err := st.DependencyEdges()
		if err != nil {
			return loadedMsg{err: err}
		}
		return loadedMsg{records: records, stats: stats, graph: graph.Build(edges)}
	}
}

// Model is the top-level Bubble Tea model.
type Model struct {
	state  ViewState
	config Config
	width  int
	height int

	browse browseModel
	detail detailModel
	err    error
}

// New creates a new TUI model with the given config.
func New(cfg Config) Model {
	return Model{
		state:  ViewLoading,
		config: cfg,
		browse: newBrowseModel(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(loadCorpus(m.config), m.browse.input.Focus())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.state == ViewDetail {
			m.detail.resize(msg.Width, msg.Height)
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.state == ViewDetail {
				m.state = ViewBrowse
				return m, nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.browse.setCorpus(msg.records, msg.stats)
		m.detail = newDetailModel(msg.graph)
		m.state = ViewBrowse
		return m, nil
	}

	var cmd tea.Cmd
	switch m.state {
	case ViewBrowse:
		var selected *store.FileRecord
		m.browse, selected, cmd = m.browse.Update(msg)
		if selected != nil {
			m.detail.show(*selected, m.width, m.height)
			m.state = ViewDetail
		}
		return m, cmd

	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	if m.err != nil {
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	}
	switch m.state {
	case ViewLoading:
		return "\n" + dimStyle.Render("  Loading knowledge base...") + "\n"
	case ViewBrowse:
		return m.browse.View(m.width, m.height)
	case ViewDetail:
		return m.detail.View()
	}
	return ""
}

// Run starts the TUI program.
func Run(cfg Config) error {
	p := tea.NewProgram(New(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
