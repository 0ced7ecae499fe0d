package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"codelore/internal/graph"
	"codelore/internal/store"
)

// detailModel renders one record as markdown, including its graph-derived
// dependents.
type detailModel struct {
	viewport viewport.Model
	graph    *graph.Graph
	record   store.FileRecord
	ready    bool
}

func newDetailModel(g *graph.Graph) detailModel {
	return detailModel{graph: g}
}

func (m *detailModel) show(rec store.FileRecord, width, height int) {
	m.record = rec
	m.resize(width, height)
}

func (m *detailModel) resize(width, height int) {
	vpHeight := height - 2
	if vpHeight < 5 {
		vpHeight = 5
	}
	m.viewport = viewport.New(width, vpHeight)
	m.viewport.SetContent(m.renderRecord(width))
	m.ready = true
}

func (m *detailModel) renderRecord(width int) string {
	md := recordMarkdown(m.record, m.graph.DirectDependents(m.record.Path))

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-2),
	)
	if err != nil {
		return md
	}
	rendered, err := r.Render(md)
	if err != nil {
		return md
	}
	return rendered
}

// recordMarkdown formats a record the way the MCP tools report it, as a
// human-readable document.
func recordMarkdown(rec store.FileRecord, dependents []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", rec.Path)
	fmt.Fprintf(&sb, "**Repo:** %s  \n**Type:** %s  \n**Technology:** %s  \n**Indexed:** %s\n\n",
		rec.Repo, rec.FileType, rec.Technology, rec.IndexedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "%s\n", rec.Summary)

	writeList := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&sb, "\n## %s\n\n", title)
		for _, item := range items {
			fmt.Fprintf(&sb, "- %s\n", item)
		}
	}
	writeList("Key elements", rec.KeyElements)
	writeList("Dependencies", rec.Dependencies)
	writeList("Dependents", dependents)

	if len(rec.Tags) > 0 {
		fmt.Fprintf(&sb, "\n**Tags:** %s\n", strings.Join(rec.Tags, ", "))
	}
	if len(rec.Metadata) > 0 {
		if data, err := json.MarshalIndent(rec.Metadata, "", "  "); err == nil {
			fmt.Fprintf(&sb, "\n## Metadata\n\n```json\n%s\n```\n", data)
		}
	}
	return sb.String()
}

func (m detailModel) Update(msg tea.Msg) (detailModel, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m detailModel) View() string {
	if !m.ready {
		return ""
	}
	return m.viewport.View() + "\n" + statusBarStyle.Render("esc: back · ctrl+c: quit")
}
