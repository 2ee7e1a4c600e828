package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestMenuEntriesForLinkedBranch(t *testing.T) {
	app := testApp()
	app.CurrentBranch = "PROJ-7/fix-login"
	app.LinkedTicket = "PROJ-7"

	labels := menuLabels(menuEntries(app))
	mustContain(t, labels, "Update ticket status")
	mustNotContain(t, labels, "Link branch to a ticket")
	mustNotContain(t, labels, "Create ticket from branch")
}

func TestMenuEntriesForUnlinkedBranch(t *testing.T) {
	labels := menuLabels(menuEntries(testApp()))
	mustContain(t, labels, "Link branch to a ticket")
	mustContain(t, labels, "Create ticket from branch")
	mustNotContain(t, labels, "Update ticket status")
}

func TestMenuEntriesOutsideRepo(t *testing.T) {
	app := testApp()
	app.IsGitRepo = false
	app.CurrentBranch = ""
	app.RepoID = ""

	labels := menuLabels(menuEntries(app))
	mustContain(t, labels, "My tickets")
	mustNotContain(t, labels, "Switch branch")
	mustNotContain(t, labels, "Create pull request")
}

func TestMenuEntriesWithoutWorkspace(t *testing.T) {
	labels := menuLabels(menuEntries(AppContext{IsGitRepo: true}))
	if len(labels) != 1 || labels[0] != "Set up a Jira workspace" {
		t.Errorf("entries without workspace = %v", labels)
	}
}

func TestMenuCursorWrapsAndNavigates(t *testing.T) {
	v := newMainView(testDeps(t, nil), testApp())

	v.Update(keyUp)
	if v.cursor != len(v.entries)-1 {
		t.Errorf("cursor after up from top = %d, want %d", v.cursor, len(v.entries)-1)
	}
	v.Update(keyDown)
	if v.cursor != 0 {
		t.Errorf("cursor after down from bottom = %d, want 0", v.cursor)
	}

	cmd := v.Update(keyEnter)
	if cmd == nil {
		t.Fatal("enter should navigate")
	}
	nav, ok := cmd().(navigateMsg)
	if !ok || nav.to != viewStartWork {
		t.Errorf("enter on first entry = %+v, want viewStartWork", nav)
	}
}

func TestMenuQQuits(t *testing.T) {
	v := newMainView(testDeps(t, nil), testApp())
	cmd := v.Update(keyRunes("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q on the menu should quit")
	}
}

func menuLabels(entries []menuEntry) []string {
	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = e.label
	}
	return labels
}

func mustContain(t *testing.T, labels []string, want string) {
	t.Helper()
	for _, l := range labels {
		if l == want {
			return
		}
	}
	t.Errorf("menu %v missing %q", labels, want)
}

func mustNotContain(t *testing.T, labels []string, unwanted string) {
	t.Helper()
	for _, l := range labels {
		if l == unwanted {
			t.Errorf("menu %v should not contain %q", labels, unwanted)
		}
	}
}
