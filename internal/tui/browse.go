package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"codelore/internal/search"
	"codelore/internal/store"
)

// browseModel is the filterable record list. Typing re-ranks the corpus
// through the search engine; an empty filter shows everything in
// indexed-at order.
type browseModel struct {
	input   textinput.Model
	records []store.FileRecord
	stats   store.Stats
	visible []search.Result
	cursor  int
}

func newBrowseModel() browseModel {
	ti := textinput.New()
	ti.Placeholder = "Type to search (tags, summary, elements, path)..."
	ti.CharLimit = 200
	return browseModel{input: ti}
}

func (m *browseModel) setCorpus(records []store.FileRecord, stats store.Stats) {
	m.records = records
	m.stats = stats
	m.refilter()
}

func (m *browseModel) refilter() {
	query := strings.TrimSpace(m.input.Value())
	if query == "" {
		m.visible = make([]search.Result, len(m.records))
		for i, rec := range m.records {
			m.visible[i] = search.Result{Record: rec}
		}
	} else {
		results, err := search.Rank(m.records, query, search.MaxLimit)
		if err != nil {
			results = nil
		}
		m.visible = results
	}
	if m.cursor >= len(m.visible) {
		m.cursor = 0
	}
}

// Update returns the selected record when the user presses enter.
func (m browseModel) Update(msg tea.Msg) (browseModel, *store.FileRecord, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil, nil
		case "down", "ctrl+n":
			if m.cursor < len(m.visible)-1 {
				m.cursor++
			}
			return m, nil, nil
		case "enter":
			if m.cursor < len(m.visible) {
				rec := m.visible[m.cursor].Record
				return m, &rec, nil
			}
			return m, nil, nil
		case "esc":
			m.input.Reset()
			m.refilter()
			return m, nil, nil
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.refilter()
	}
	return m, nil, cmd
}

func (m browseModel) View(width, height int) string {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(titleStyle.Render("  ◆ codelore") + "\n")
	sb.WriteString(subtitleStyle.Render(fmt.Sprintf("  %d files · %d dependency edges", m.stats.TotalFiles, m.stats.TotalDependencies)) + "\n\n")
	sb.WriteString("  " + m.input.View() + "\n\n")

	if len(m.visible) == 0 {
		sb.WriteString(dimStyle.Render("  No matching records.") + "\n")
	} else {
		// Window the list around the cursor so it fits the terminal.
		rows := height - 9
		if rows < 3 {
			rows = 3
		}
		start := 0
		if m.cursor >= rows {
			start = m.cursor - rows + 1
		}
		end := start + rows
		if end > len(m.visible) {
			end = len(m.visible)
		}
		for i := start; i < end; i++ {
			r := m.visible[i]
			line := r.Record.Path
			if r.Score > 0 {
				line = scoreStyle.Render(fmt.Sprintf("[%d] ", r.Score)) + line
			}
			if len(r.Record.Tags) > 0 {
				line += tagStyle.Render("  #" + strings.Join(r.Record.Tags, " #"))
			}
			if i == m.cursor {
				sb.WriteString(selectedStyle.Render("  ▸ "+line) + "\n")
			} else {
				sb.WriteString(listItemStyle.Render("    "+line) + "\n")
			}
		}
	}

	sb.WriteString("\n")
	sb.WriteString(statusBarStyle.Render("enter: open · esc: clear · ctrl+c: quit"))
	return sb.String()
}
