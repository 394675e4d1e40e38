package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Item is one browsable record: a one-line label for the list and
// label/value pairs for the detail pane.
type Item struct {
	Label  string
	Fields [][2]string
}

// keyMap defines key bindings.
type keyMap struct {
	Up   key.Binding
	Down key.Binding
	Quit key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("up/k", "previous"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("down/j", "next"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// defaultListRows is the list window before the first WindowSizeMsg.
const defaultListRows = 12

// InspectModel is a Bubble Tea model that pages through records, with
// a detail pane for the selection.
type InspectModel struct {
	title    string
	items    []Item
	cursor   int
	height   int
	quitting bool
}

// NewInspectModel creates a browser over the given records.
func NewInspectModel(title string, items []Item) InspectModel {
	return InspectModel{title: title, items: items}
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(m.title))
	b.WriteString("\n")

	if len(m.items) == 0 {
		b.WriteString(RowStyle.Render("(no records)"))
		b.WriteString("\n")
	} else {
		start, end := m.listWindow()
		for i := start; i < end; i++ {
			if i == m.cursor {
				b.WriteString(SelectedStyle.Render("> " + m.items[i].Label))
			} else {
				b.WriteString(RowStyle.Render("  " + m.items[i].Label))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(renderDetail(m.items[m.cursor]))
		b.WriteString("\n")
	}

	b.WriteString(HelpStyle.Render(fmt.Sprintf("%d/%d · up/down move · q quit", m.cursor+1, len(m.items))))
	return b.String()
}

// listWindow returns the half-open range of list rows to show, keeping
// the cursor visible.
func (m InspectModel) listWindow() (int, int) {
	rows := defaultListRows
	if m.height > 0 {
		// Leave room for the title, the detail pane, and the help line.
		if usable := m.height - 12; usable > 0 && usable < rows {
			rows = usable
		}
	}
	if rows < 1 {
		rows = 1
	}

	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := start + rows
	if end > len(m.items) {
		end = len(m.items)
	}
	return start, end
}

func renderDetail(item Item) string {
	var b strings.Builder
	for i, field := range item.Fields {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(LabelStyle.Render(field[0] + ":"))
		b.WriteString(" ")
		b.WriteString(ValueStyle.Render(field[1]))
	}
	return BoxStyle.Render(b.String())
}

// RunInspect runs the interactive browser until the user quits.
func RunInspect(title string, items []Item) error {
	p := tea.NewProgram(NewInspectModel(title, items), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderInspectStatic renders the initial browser view once, without
// entering the alternate screen. Used by tests and non-interactive
// fallbacks.
func RenderInspectStatic(title string, items []Item) string {
	return NewInspectModel(title, items).View()
}
