// Package browser implements a read-only Bubble Tea browser over the
// indexed knowledge base (§6.4 "memory" command): a file list on the
// left, chunk detail on the right, rendered with glamour. There is no
// editing and no chat here — the teacher's chat loop this was adapted
// from is gone; only its Bubble Tea/glamour rendering shape remains.
package browser

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"memoryforge/internal/engine"
	"memoryforge/internal/store"
)

type pane int

const (
	paneList pane = iota
	paneDetail
)

// Model is the top-level Bubble Tea model for the memory browser.
type Model struct {
	files    []store.FileRecord
	chunks   map[string][]store.Chunk
	cursor   int
	focus    pane
	renderer *glamour.TermRenderer
	width    int
	height   int
}

// New loads every indexed file and chunk up front; the browser is
// read-only and the corpora this targets are small (§5 resource limits).
func New(eng *engine.Engine) (Model, error) {
	files, err := eng.Store.ListFiles()
	if err != nil {
		return Model{}, fmt.Errorf("list files: %w", err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	allChunks, err := eng.Store.ListChunks()
	if err != nil {
		return Model{}, fmt.Errorf("list chunks: %w", err)
	}
	byFile := make(map[string][]store.Chunk)
	for _, c := range allChunks {
		byFile[c.FilePath] = append(byFile[c.FilePath], c)
	}
	for _, cs := range byFile {
		sort.Slice(cs, func(i, j int) bool { return cs[i].Ordinal < cs[j].Ordinal })
	}

	renderer, _ := glamour.NewTermRenderer(glamour.WithAutoStyle())

	return Model{files: files, chunks: byFile, renderer: renderer, focus: paneList}, nil
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.files)-1 {
				m.cursor++
			}
		case "tab":
			if m.focus == paneList {
				m.focus = paneDetail
			} else {
				m.focus = paneList
			}
		}
	}
	return m, nil
}

func (m Model) View() string {
	if len(m.files) == 0 {
		return dimStyle.Render("No files indexed yet. Run `memory-forge sync` first.\n")
	}

	listWidth := m.width / 3
	if listWidth < 24 {
		listWidth = 24
	}
	detailWidth := m.width - listWidth - 4
	if detailWidth < 20 {
		detailWidth = 20
	}

	var list strings.Builder
	list.WriteString(titleStyle.Render("Knowledge files") + "\n\n")
	for i, f := range m.files {
		cursor := "  "
		style := listItemStyle
		if i == m.cursor {
			cursor = "▸ "
			style = selectedStyle
		}
		list.WriteString(fmt.Sprintf("%s%s\n", cursor, style.Render(f.Path)))
	}

	detail := m.renderDetail(m.files[m.cursor])

	listBox := lipgloss.NewStyle().Width(listWidth).Padding(0, 1).Render(list.String())
	detailBox := lipgloss.NewStyle().Width(detailWidth).Padding(0, 1).Render(detail)

	body := lipgloss.JoinHorizontal(lipgloss.Top, listBox, detailBox)
	return body + "\n\n" + helpStyle.Render("↑/↓ navigate • tab switch pane • q quit")
}

func (m Model) renderDetail(f store.FileRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", f.Path)
	fmt.Fprintf(&sb, "importance: %d · accessed %d times\n\n", f.Importance, f.AccessCount)

	for _, c := range m.chunks[f.Path] {
		heading := c.Heading
		if heading == "" {
			heading = c.ChunkType
		}
		fmt.Fprintf(&sb, "## %s (priority %d)\n\n%s\n\n", heading, c.Priority, c.Content)
	}

	if m.renderer == nil {
		return sb.String()
	}
	rendered, err := m.renderer.Render(sb.String())
	if err != nil {
		return sb.String()
	}
	return rendered
}

// Run starts the browser program against eng's indexed corpus.
func Run(eng *engine.Engine) error {
	m, err := New(eng)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
