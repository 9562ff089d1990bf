package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	checkedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	uncheckedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// ListItem is one selectable row
type ListItem struct {
	Label string
	Value string
}

// ListModel is the bubbletea model for picking several items, e.g. favorites to remove
type ListModel struct {
	title    string
	items    []ListItem
	cursor   int
	selected map[int]bool
	done     bool
}

// NewListModel creates a new multi-select list
func NewListModel(title string, items []ListItem) ListModel {
	return ListModel{
		title:    title,
		items:    items,
		selected: make(map[int]bool),
	}
}

func (m ListModel) Init() tea.Cmd {
	return nil
}

func (m ListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case " ":
			m.selected[m.cursor] = !m.selected[m.cursor]
		case "enter":
			m.done = true
			return m, tea.Quit
		case "q", "esc", "ctrl+c":
			m.selected = make(map[int]bool)
			return m, tea.Quit
		case "a":
			for i := range m.items {
				m.selected[i] = true
			}
		case "n":
			m.selected = make(map[int]bool)
		}
	}
	return m, nil
}

func (m ListModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n\n")

	for i, item := range m.items {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		checkbox := "[ ]"
		style := uncheckedStyle
		if m.selected[i] {
			checkbox = "[x]"
			style = checkedStyle
		}

		sb.WriteString(style.Render(fmt.Sprintf("%s %s %s", cursor, checkbox, item.Label)))
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "\n%d selected | space=toggle, a=all, n=none, enter=confirm, q=cancel\n", m.count())

	return sb.String()
}

func (m ListModel) count() int {
	n := 0
	for _, s := range m.selected {
		if s {
			n++
		}
	}
	return n
}

// SelectedValues returns the values of the selected items in list order
func (m ListModel) SelectedValues() []string {
	if !m.done {
		return nil
	}
	var result []string
	for i, item := range m.items {
		if m.selected[i] {
			result = append(result, item.Value)
		}
	}
	return result
}

// RunList displays the list and returns the selected values, nil if cancelled
func RunList(title string, items []ListItem) ([]string, error) {
	if len(items) == 0 {
		return nil, nil
	}

	p := tea.NewProgram(NewListModel(title, items))

	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}

	return finalModel.(ListModel).SelectedValues(), nil
}
