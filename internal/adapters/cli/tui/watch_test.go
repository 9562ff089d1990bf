package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func keyMsg(key string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

func TestWatchModel_PhotoChanged(t *testing.T) {
	m := NewWatchModel(WatchActions{})

	updated, _ := m.Update(PhotoChanged(PhotoView{
		URL:          "https://images.unsplash.com/photo-abc",
		Photographer: "Ansel",
		Provider:     "unsplash",
		Origin:       "live",
		Favorite:     true,
		ShownAt:      time.Now(),
	}))
	view := updated.(WatchModel).View()

	for _, want := range []string{"photo-abc", "Photo by Ansel on Unsplash", "favorite", "via live"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
}

func TestWatchModel_FallbackHint(t *testing.T) {
	m := NewWatchModel(WatchActions{})

	updated, _ := m.Update(PhotoChanged(PhotoView{
		URL:       "https://cdn.pixabay.com/fallback.jpg",
		Provider:  "pixabay",
		ErrorKind: "no-key",
	}))

	if view := updated.(WatchModel).View(); !strings.Contains(view, "tabr key set pixabay") {
		t.Errorf("View() missing key hint:\n%s", view)
	}
}

func TestWatchModel_KeysRunActions(t *testing.T) {
	action := func(name string) WatchAction {
		return func(ctx context.Context) (string, error) {
			return name + " done", nil
		}
	}

	m := NewWatchModel(WatchActions{
		Refresh:        action("refresh"),
		ToggleFavorite: action("favorite"),
		ToggleCarousel: action("carousel"),
		NextProvider:   action("provider"),
	})

	for _, key := range []string{"r", "f", "c", "p"} {
		updated, cmd := m.Update(keyMsg(key))
		if cmd == nil {
			t.Fatalf("key %q returned no command", key)
		}
		m = updated.(WatchModel)
		if !m.busy {
			t.Errorf("key %q did not mark the view busy", key)
		}

		// Deliver the action result the way the runtime would.
		updated, _ = m.Update(actionDoneMsg{status: key + " ok"})
		m = updated.(WatchModel)
		if m.busy {
			t.Errorf("view still busy after %q finished", key)
		}
	}
}

func TestWatchModel_IgnoresKeysWhileBusy(t *testing.T) {
	m := NewWatchModel(WatchActions{
		Load:    func(ctx context.Context) (string, error) { return "", nil },
		Refresh: func(ctx context.Context) (string, error) { return "", nil },
	})

	if !m.busy {
		t.Fatal("model with a Load action should start busy")
	}
	if _, cmd := m.Update(keyMsg("r")); cmd != nil {
		t.Error("refresh started while another action was running")
	}
}

func TestWatchModel_ShowsActionError(t *testing.T) {
	m := NewWatchModel(WatchActions{})

	updated, _ := m.Update(actionDoneMsg{err: errors.New("no favorites saved yet")})
	if view := updated.(WatchModel).View(); !strings.Contains(view, "no favorites saved yet") {
		t.Errorf("View() missing error:\n%s", view)
	}
}

func TestWatchModel_Quit(t *testing.T) {
	m := NewWatchModel(WatchActions{})

	_, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestListModel_SelectedValues(t *testing.T) {
	items := []ListItem{{Label: "a", Value: "1"}, {Label: "b", Value: "2"}, {Label: "c", Value: "3"}}
	var m tea.Model = NewListModel("Pick", items)

	for _, msg := range []tea.Msg{keyMsg(" "), tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown}, keyMsg(" "), tea.KeyMsg{Type: tea.KeyEnter}} {
		m, _ = m.Update(msg)
	}

	got := m.(ListModel).SelectedValues()
	if len(got) != 2 || got[0] != "1" || got[1] != "3" {
		t.Errorf("SelectedValues() = %v, want [1 3]", got)
	}
}

func TestListModel_CancelSelectsNothing(t *testing.T) {
	var m tea.Model = NewListModel("Pick", []ListItem{{Label: "a", Value: "1"}})
	m, _ = m.Update(keyMsg("a"))
	m, _ = m.Update(keyMsg("q"))

	if got := m.(ListModel).SelectedValues(); got != nil {
		t.Errorf("SelectedValues() after cancel = %v, want nil", got)
	}
}

func TestMenuModel_Select(t *testing.T) {
	var m tea.Model = NewMenuModel("", []MenuOption{{Label: "Show", Value: "show"}, {Label: "Quit", Value: "quit", Hint: "bye"}})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	menu := m.(MenuModel)
	if menu.Selected() != "quit" {
		t.Errorf("Selected() = %q, want quit", menu.Selected())
	}
	if !strings.Contains(menu.View(), "bye") {
		t.Error("View() missing option hint")
	}
}
