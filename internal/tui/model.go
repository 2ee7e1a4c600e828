package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// View identifies which screen is active.
type View int

const (
	viewLoading View = iota
	viewSetup
	viewMain
	viewStartWork
	viewNewTicket
	viewMyTickets
	viewSwitchBranch
	viewLinkBranch
	viewTicketFromBranch
	viewCreatePR
	viewUpdateStatus
	viewSettings
)

// navigateMsg switches the active view. When refresh is set the app
// context is re-resolved before the new view initializes, so views that
// changed branch or config state land on fresh data.
type navigateMsg struct {
	to      View
	refresh bool
}

// ctxResolvedMsg carries a freshly resolved AppContext back to the router.
type ctxResolvedMsg struct {
	app AppContext
}

func navigate(to View) tea.Cmd {
	return func() tea.Msg { return navigateMsg{to: to} }
}

func navigateRefresh(to View) tea.Cmd {
	return func() tea.Msg { return navigateMsg{to: to, refresh: true} }
}

// childView is the contract every screen implements. Views never mutate
// the router; they request navigation by returning navigate commands.
type childView interface {
	Init() tea.Cmd
	Update(msg tea.Msg) tea.Cmd
	View(width, height int) string
}

// Model is the root model. It owns the resolved AppContext and routes
// messages to the active view; each navigation constructs the target
// view from scratch so no stale per-view state survives.
type Model struct {
	deps Deps
	keys KeyMap

	app   AppContext
	view  View
	child childView

	// pending holds a deferred navigation while a context refresh runs.
	pending    View
	hasPending bool

	width  int
	height int
	ready  bool
}

// New creates the root model. The first resolved context decides whether
// the user lands on setup or the main menu.
func New(deps Deps) Model {
	return Model{
		deps: deps,
		keys: DefaultKeyMap(),
		view: viewLoading,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.resolveCmd()
}

func (m Model) resolveCmd() tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		return ctxResolvedMsg{app: ResolveContext(context.Background(), deps)}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case navigateMsg:
		if msg.refresh {
			m.pending = msg.to
			m.hasPending = true
			return m, m.resolveCmd()
		}
		return m.switchTo(msg.to)

	case ctxResolvedMsg:
		m.app = msg.app
		if m.hasPending {
			m.hasPending = false
			return m.switchTo(m.pending)
		}
		if m.view == viewLoading {
			if !m.deps.Store.Exists() {
				return m.switchTo(viewSetup)
			}
			return m.switchTo(viewMain)
		}
		return m, nil
	}

	if m.child == nil {
		return m, nil
	}
	return m, m.child.Update(msg)
}

// switchTo constructs the target view and runs its Init.
func (m Model) switchTo(to View) (Model, tea.Cmd) {
	m.view = to
	switch to {
	case viewSetup:
		m.child = newSetupView(m.deps, m.app)
	case viewMain:
		m.child = newMainView(m.deps, m.app)
	case viewStartWork:
		m.child = newStartWorkView(m.deps, m.app)
	case viewNewTicket:
		m.child = newNewTicketView(m.deps, m.app)
	case viewMyTickets:
		m.child = newMyTicketsView(m.deps, m.app)
	case viewSwitchBranch:
		m.child = newSwitchBranchView(m.deps, m.app)
	case viewLinkBranch:
		m.child = newLinkBranchView(m.deps, m.app)
	case viewTicketFromBranch:
		m.child = newTicketFromBranchView(m.deps, m.app)
	case viewCreatePR:
		m.child = newCreatePRView(m.deps, m.app)
	case viewUpdateStatus:
		m.child = newUpdateStatusView(m.deps, m.app)
	case viewSettings:
		m.child = newSettingsView(m.deps, m.app)
	default:
		m.child = nil
		return m, nil
	}
	return m, m.child.Init()
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready || m.child == nil {
		return mutedStyle.Render("Loading...")
	}

	header := m.renderHeader()
	footer := m.renderFooter()
	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	body := m.child.View(m.width, bodyHeight)

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

// renderHeader shows where the user is: repo, branch, linked ticket,
// resolved workspace.
func (m Model) renderHeader() string {
	parts := []string{titleStyle.Render("jh")}

	if !m.app.IsGitRepo {
		parts = append(parts, mutedStyle.Render("not a git repository"))
	} else {
		if m.app.RepoID != "" {
			parts = append(parts, headerStyle.Render(m.app.RepoID))
		}
		if m.app.CurrentBranch != "" {
			parts = append(parts, mutedStyle.Render(m.app.CurrentBranch))
		}
		if m.app.LinkedTicket != "" {
			parts = append(parts, keyBadgeStyle.Render(m.app.LinkedTicket))
		}
		if m.app.CommitsAhead > 0 {
			parts = append(parts, mutedStyle.Render(fmt.Sprintf("%d ahead", m.app.CommitsAhead)))
		}
	}
	if m.app.WorkspaceName != "" {
		parts = append(parts, mutedStyle.Render("workspace: "+m.app.WorkspaceName))
	}

	return strings.Join(parts, "  ") + "\n"
}

func (m Model) renderFooter() string {
	var parts []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return footerStyle.Width(m.width).Render(strings.Join(parts, " · "))
}
