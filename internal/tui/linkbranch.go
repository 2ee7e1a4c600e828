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

// linkBranchView renames the current branch so it carries a ticket key,
// linking existing local work to a ticket after the fact.
type linkBranchView struct {
	deps Deps
	app  AppContext
	jira *jira.Client

	step    linkBranchStep
	spin    spinner.Model
	tickets []ticket.Ticket
	pick    *picker
	branch  string
	err     error
}

type linkBranchStep int

const (
	lbStepLoading linkBranchStep = iota
	lbStepPick
	lbStepRenaming
	lbStepDone
	lbStepError
)

type lbLoadedMsg struct {
	tickets []ticket.Ticket
	err     error
}

type lbRenamedMsg struct {
	branch string
	err    error
}

func newLinkBranchView(deps Deps, app AppContext) *linkBranchView {
	return &linkBranchView{
		deps: deps,
		app:  app,
		jira: deps.JiraClient(app),
		spin: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func (v *linkBranchView) Init() tea.Cmd {
	switch {
	case v.jira == nil:
		v.step = lbStepError
		v.err = fmt.Errorf("no Jira workspace configured")
		return nil
	case !v.app.IsGitRepo:
		v.step = lbStepError
		v.err = fmt.Errorf("not inside a git repository")
		return nil
	case v.app.LinkedTicket != "":
		v.step = lbStepError
		v.err = fmt.Errorf("branch %s is already linked to %s", v.app.CurrentBranch, v.app.LinkedTicket)
		return nil
	}
	return tea.Batch(v.spin.Tick, v.loadCmd())
}

func (v *linkBranchView) loadCmd() tea.Cmd {
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
		return lbLoadedMsg{tickets: tickets, err: err}
	}
}

func (v *linkBranchView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spin, cmd = v.spin.Update(msg)
		return cmd

	case lbLoadedMsg:
		if v.step != lbStepLoading {
			return nil
		}
		if msg.err != nil {
			v.step = lbStepError
			v.err = msg.err
			return nil
		}
		v.tickets = msg.tickets
		labels := make([]string, len(msg.tickets))
		for i, t := range msg.tickets {
			labels[i] = ticketLabel(t)
		}
		v.pick = newPicker(labels)
		v.step = lbStepPick
		return nil

	case lbRenamedMsg:
		if v.step != lbStepRenaming {
			return nil
		}
		if msg.err != nil {
			v.step = lbStepError
			v.err = msg.err
			return nil
		}
		v.branch = msg.branch
		v.step = lbStepDone
		return nil

	case tea.KeyMsg:
		return v.handleKey(msg)
	}
	return nil
}

func (v *linkBranchView) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch v.step {
	case lbStepPick:
		switch msg.String() {
		case "enter":
			i := v.pick.Selected()
			if i < 0 {
				return nil
			}
			v.step = lbStepRenaming
			return v.renameCmd(v.tickets[i].Key)
		case "esc":
			return navigate(viewMain)
		}
		v.pick.Update(msg)

	case lbStepRenaming:
		// Rename in flight; ignore input.

	case lbStepDone, lbStepError:
		switch msg.String() {
		case "enter", "esc":
			return navigateRefresh(viewMain)
		}
	}
	return nil
}

// renameCmd renames the current branch to "KEY/<slug of old name>".
func (v *linkBranchView) renameCmd(key string) tea.Cmd {
	repo := v.deps.Repo
	old := v.app.CurrentBranch
	name := v.app.Workspace.BranchPrefix + ticket.BranchName(key, old, v.app.MaxBranchLen())

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		if err := repo.Rename(ctx, old, name); err != nil {
			return lbRenamedMsg{err: err}
		}
		return lbRenamedMsg{branch: name}
	}
}

func (v *linkBranchView) View(width, height int) string {
	var parts []string
	parts = append(parts, titleStyle.Render("Link branch to a ticket"), "")

	switch v.step {
	case lbStepLoading:
		parts = append(parts, v.spin.View()+" Loading your tickets...")

	case lbStepPick:
		parts = append(parts, mutedStyle.Render("branch: ")+v.app.CurrentBranch, "")
		if v.pick.Query() != "" {
			parts = append(parts, mutedStyle.Render("filter: "+v.pick.Query()))
		}
		parts = append(parts, v.pick.View(height-6))
		parts = append(parts, "", mutedStyle.Render("type to filter · enter: link · esc: back"))

	case lbStepRenaming:
		parts = append(parts, v.spin.View()+" Renaming branch...")

	case lbStepDone:
		parts = append(parts,
			successStyle.Render("Branch renamed to "+v.branch),
			"",
			mutedStyle.Render("enter: back to menu"))

	case lbStepError:
		parts = append(parts,
			errorStyle.Render("Error: "+v.err.Error()),
			"",
			mutedStyle.Render("enter: back to menu"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
