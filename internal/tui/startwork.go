package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/SternPhD/jh/internal/jira"
	"github.com/SternPhD/jh/internal/ticket"
)

// startWorkView picks one of the user's open tickets and creates a work
// branch for it. The Jira status move to "In Progress" is best effort;
// branch creation failing is the only thing that fails the flow.
type startWorkView struct {
	deps Deps
	app  AppContext
	jira *jira.Client

	step    startWorkStep
	spin    spinner.Model
	tickets []ticket.Ticket
	pick    *picker
	confirm *optionList
	chosen  ticket.Ticket
	branch  string
	err     error
}

type startWorkStep int

const (
	swStepLoading startWorkStep = iota
	swStepPick
	swStepConfirm
	swStepCreating
	swStepDone
	swStepError
)

type swLoadedMsg struct {
	tickets []ticket.Ticket
	err     error
}

type swCreatedMsg struct {
	branch string
	err    error
}

func newStartWorkView(deps Deps, app AppContext) *startWorkView {
	return &startWorkView{
		deps: deps,
		app:  app,
		jira: deps.JiraClient(app),
		spin: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func (v *startWorkView) Init() tea.Cmd {
	if v.jira == nil {
		v.step = swStepError
		v.err = fmt.Errorf("no Jira workspace configured")
		return nil
	}
	if !v.app.IsGitRepo {
		v.step = swStepError
		v.err = fmt.Errorf("not inside a git repository")
		return nil
	}
	return tea.Batch(v.spin.Tick, v.loadCmd())
}

func (v *startWorkView) loadCmd() tea.Cmd {
	client := v.jira
	project := v.app.Workspace.DefaultProject
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		var (
			tickets []ticket.Ticket
			err     error
		)
		if project != "" {
			tickets, err = client.MyIssues(ctx, project)
		} else {
			tickets, err = client.SearchIssues(ctx,
				"assignee = currentUser() AND resolution = Unresolved ORDER BY updated DESC")
		}
		return swLoadedMsg{tickets: tickets, err: err}
	}
}

func (v *startWorkView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spin, cmd = v.spin.Update(msg)
		return cmd

	case swLoadedMsg:
		if v.step != swStepLoading {
			return nil
		}
		if msg.err != nil {
			v.step = swStepError
			v.err = msg.err
			return nil
		}
		v.tickets = msg.tickets
		labels := make([]string, len(msg.tickets))
		for i, t := range msg.tickets {
			labels[i] = ticketLabel(t)
		}
		v.pick = newPicker(labels)
		v.step = swStepPick
		return nil

	case swCreatedMsg:
		if v.step != swStepCreating {
			return nil
		}
		if msg.err != nil {
			v.step = swStepError
			v.err = msg.err
			return nil
		}
		v.branch = msg.branch
		v.step = swStepDone
		return nil

	case tea.KeyMsg:
		return v.handleKey(msg)
	}
	return nil
}

func (v *startWorkView) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch v.step {
	case swStepPick:
		switch msg.String() {
		case "enter":
			i := v.pick.Selected()
			if i < 0 {
				return nil
			}
			v.chosen = v.tickets[i]
			v.confirm = newOptionList("Create branch and switch", "Create branch only", "Back")
			v.step = swStepConfirm
			return nil
		case "esc":
			return navigate(viewMain)
		}
		v.pick.Update(msg)

	case swStepConfirm:
		if msg.String() == "esc" {
			// Back to the list, filter and cursor intact.
			v.step = swStepPick
			return nil
		}
		if msg.String() == "enter" {
			switch v.confirm.cursor {
			case 0:
				v.step = swStepCreating
				return v.createCmd(true)
			case 1:
				v.step = swStepCreating
				return v.createCmd(false)
			default:
				v.step = swStepPick
				return nil
			}
		}
		v.confirm.Update(msg)

	case swStepCreating:
		// In flight; ignore input.

	case swStepDone, swStepError:
		switch msg.String() {
		case "enter", "esc":
			return navigateRefresh(viewMain)
		}
	}
	return nil
}

// createCmd creates (or reuses) the work branch and, best effort, moves
// the ticket to In Progress.
func (v *startWorkView) createCmd(checkout bool) tea.Cmd {
	repo := v.deps.Repo
	client := v.jira
	chosen := v.chosen
	base := v.app.BaseBranch()
	name := v.app.Workspace.BranchPrefix + ticket.BranchName(chosen.Key, chosen.Summary, v.app.MaxBranchLen())

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		if !repo.BranchExists(ctx, name) {
			if err := repo.CreateBranch(ctx, name, base); err != nil {
				return swCreatedMsg{err: err}
			}
		}
		if checkout {
			if err := repo.Checkout(ctx, name); err != nil {
				return swCreatedMsg{err: err}
			}
		}
		// Status move is secondary; a failure here never fails the flow.
		_ = client.TransitionTo(ctx, chosen.Key, "In Progress")

		return swCreatedMsg{branch: name}
	}
}

func (v *startWorkView) View(width, height int) string {
	var parts []string
	parts = append(parts, titleStyle.Render("Start work"), "")

	switch v.step {
	case swStepLoading:
		parts = append(parts, v.spin.View()+" Loading your tickets...")

	case swStepPick:
		if len(v.tickets) == 0 {
			parts = append(parts, mutedStyle.Render("No open tickets assigned to you."))
			parts = append(parts, "", mutedStyle.Render("esc: back"))
			break
		}
		parts = append(parts, headerStyle.Render("Pick a ticket"))
		if v.pick.Query() != "" {
			parts = append(parts, mutedStyle.Render("filter: "+v.pick.Query()))
		}
		parts = append(parts, v.pick.View(height-6))
		parts = append(parts, "", mutedStyle.Render("type to filter · enter: select · esc: back"))

	case swStepConfirm:
		parts = append(parts,
			keyBadgeStyle.Render(v.chosen.Key)+"  "+v.chosen.Summary,
			mutedStyle.Render("branch: "+v.app.Workspace.BranchPrefix+ticket.BranchName(v.chosen.Key, v.chosen.Summary, v.app.MaxBranchLen())),
			"",
			v.confirm.View(),
			"",
			mutedStyle.Render("enter: confirm · esc: back"))

	case swStepCreating:
		parts = append(parts, v.spin.View()+" Creating branch...")

	case swStepDone:
		parts = append(parts,
			successStyle.Render("Branch ready: "+v.branch),
			"",
			mutedStyle.Render("enter: back to menu"))

	case swStepError:
		parts = append(parts,
			errorStyle.Render("Error: "+v.err.Error()),
			"",
			mutedStyle.Render("enter: back to menu"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
