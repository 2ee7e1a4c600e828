package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// mainView is the action menu. Which actions appear depends on the
// resolved context: git-only actions need a repo, and ticket actions flip
// between "link" and "update status" depending on whether the current
// branch already carries a ticket key.
type mainView struct {
	deps    Deps
	app     AppContext
	entries []menuEntry
	cursor  int
}

type menuEntry struct {
	label  string
	target View
}

func newMainView(deps Deps, app AppContext) *mainView {
	return &mainView{
		deps:    deps,
		app:     app,
		entries: menuEntries(app),
	}
}

func menuEntries(app AppContext) []menuEntry {
	if app.Workspace == nil {
		return []menuEntry{
			{"Set up a Jira workspace", viewSetup},
		}
	}

	entries := []menuEntry{
		{"Start work on a ticket", viewStartWork},
		{"My tickets", viewMyTickets},
		{"Create a ticket", viewNewTicket},
	}
	if app.IsGitRepo {
		entries = append(entries, menuEntry{"Switch branch", viewSwitchBranch})
		if app.LinkedTicket == "" {
			entries = append(entries,
				menuEntry{"Link branch to a ticket", viewLinkBranch},
				menuEntry{"Create ticket from branch", viewTicketFromBranch},
			)
		} else {
			entries = append(entries, menuEntry{"Update ticket status", viewUpdateStatus})
		}
		entries = append(entries, menuEntry{"Create pull request", viewCreatePR})
	}
	entries = append(entries, menuEntry{"Settings", viewSettings})
	return entries
}

func (v *mainView) Init() tea.Cmd {
	return nil
}

func (v *mainView) Update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	switch key.String() {
	case "up":
		v.cursor = (v.cursor - 1 + len(v.entries)) % len(v.entries)
	case "down":
		v.cursor = (v.cursor + 1) % len(v.entries)
	case "enter":
		return navigate(v.entries[v.cursor].target)
	case "q":
		// The menu is the only view where a bare q quits.
		return tea.Quit
	}
	return nil
}

func (v *mainView) View(width, height int) string {
	var parts []string
	parts = append(parts, titleStyle.Render("What would you like to do?"), "")

	if v.app.Workspace == nil {
		hint := "No workspace is configured"
		if v.app.RepoID != "" {
			hint += " for " + v.app.RepoID
		}
		parts = append(parts, mutedStyle.Render(hint+"."), "")
	}

	for i, e := range v.entries {
		if i == v.cursor {
			parts = append(parts, selectedItemStyle.Render("> "+e.label))
		} else {
			parts = append(parts, itemStyle.Render("  "+e.label))
		}
	}

	parts = append(parts, "", mutedStyle.Render("enter: select · q: quit"))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
