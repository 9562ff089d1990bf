package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	urlStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Underline(true)
	creditStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	badgeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("212")).Padding(0, 1)
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	clockStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255"))
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(1, 2)
	watchKeysHelp = "r refresh · f favorite · c carousel · p provider · q quit"
)

// PhotoView is what the watch view needs to know about a displayed photo
type PhotoView struct {
	URL              string
	Photographer     string
	PhotographerLink string
	OriginalLink     string
	Provider         string
	Origin           string
	ErrorKind        string
	Favorite         bool
	Carousel         bool
	ShownAt          time.Time
}

// WatchAction runs one user action and returns a status line
type WatchAction func(ctx context.Context) (string, error)

// WatchActions are the operations bound to keys in the watch view.
// New photos are not returned by actions; they arrive through PhotoChanged.
type WatchActions struct {
	Load           WatchAction
	Refresh        WatchAction
	ToggleFavorite WatchAction
	ToggleCarousel WatchAction
	NextProvider   WatchAction
}

type photoChangedMsg struct{ view PhotoView }

type actionDoneMsg struct {
	status string
	err    error
}

type clockMsg time.Time

// PhotoChanged wraps a newly displayed photo for Program.Send
func PhotoChanged(view PhotoView) tea.Msg {
	return photoChangedMsg{view: view}
}

// WatchModel is the bubbletea model of the live new-tab view
type WatchModel struct {
	actions WatchActions
	spinner spinner.Model
	photo   *PhotoView
	busy    bool
	status  string
	err     error
	now     time.Time
}

// NewWatchModel creates the watch view
func NewWatchModel(actions WatchActions) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = selectedStyle
	return WatchModel{
		actions: actions,
		spinner: s,
		busy:    actions.Load != nil,
		now:     time.Now(),
	}
}

func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, runAction(m.actions.Load), clockTick())
}

func clockTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return clockMsg(t)
	})
}

func runAction(action WatchAction) tea.Cmd {
	if action == nil {
		return nil
	}
	return func() tea.Msg {
		status, err := action(context.Background())
		return actionDoneMsg{status: status, err: err}
	}
}

func (m WatchModel) start(action WatchAction) (tea.Model, tea.Cmd) {
	if m.busy || action == nil {
		return m, nil
	}
	m.busy = true
	m.err = nil
	m.status = ""
	return m, tea.Batch(m.spinner.Tick, runAction(action))
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m.start(m.actions.Refresh)
		case "f":
			return m.start(m.actions.ToggleFavorite)
		case "c":
			return m.start(m.actions.ToggleCarousel)
		case "p":
			return m.start(m.actions.NextProvider)
		}

	case photoChangedMsg:
		view := msg.view
		m.photo = &view
		return m, nil

	case actionDoneMsg:
		m.busy = false
		m.status = msg.status
		m.err = msg.err
		return m, nil

	case clockMsg:
		m.now = time.Time(msg)
		return m, clockTick()

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("tabr") + "  " + clockStyle.Render(m.now.Format("15:04")) + "\n\n")

	if m.photo == nil {
		b.WriteString(m.spinner.View() + " Loading photo...\n")
	} else {
		b.WriteString(renderPhoto(*m.photo, m.now))
	}

	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("✗ "+m.err.Error()) + "\n")
	case m.busy && m.photo != nil:
		b.WriteString(m.spinner.View() + " Working...\n")
	case m.status != "":
		b.WriteString(hintStyle.Render(m.status) + "\n")
	}

	b.WriteString("\n" + hintStyle.Render(watchKeysHelp) + "\n")
	return panelStyle.Render(b.String())
}

func renderPhoto(p PhotoView, now time.Time) string {
	var b strings.Builder

	badges := []string{ProviderLabel(p.Provider)}
	if p.Carousel {
		badges = append(badges, "carousel")
	}
	if p.Favorite {
		badges = append(badges, "★ favorite")
	}
	for i, badge := range badges {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(badgeStyle.Render(badge))
	}
	b.WriteString("\n\n")

	b.WriteString(urlStyle.Render(p.URL) + "\n")
	b.WriteString(creditStyle.Render(FormatAttribution(p.Photographer, p.Provider)) + "\n")
	if p.OriginalLink != "" {
		b.WriteString(hintStyle.Render(p.OriginalLink) + "\n")
	}
	if hint := FormatFallbackHint(p.ErrorKind, p.Provider); hint != "" {
		b.WriteString(warnStyle.Render(hint) + "\n")
	}

	b.WriteString(hintStyle.Render(fmt.Sprintf("via %s, shown %s", p.Origin, FormatAge(p.ShownAt, now))) + "\n")
	return b.String()
}

// NewWatchProgram creates the full-screen watch program. Feed it photos
// with Program.Send(PhotoChanged(view)).
func NewWatchProgram(actions WatchActions) *tea.Program {
	return tea.NewProgram(NewWatchModel(actions), tea.WithAltScreen())
}
