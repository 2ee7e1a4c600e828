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

// updateStatusView moves the ticket linked to the current branch through
// one of its legal transitions.
type updateStatusView struct {
	deps Deps
	app  AppContext
	jira *jira.Client

	step   updateStatusStep
	spin   spinner.Model
	ticket *ticket.Ticket
	trans  []ticket.Transition
	pick   *optionList
	chosen ticket.Transition
	err    error
}

type updateStatusStep int

const (
	usStepLoading updateStatusStep = iota
	usStepPick
	usStepApplying
	usStepDone
	usStepError
)

type usLoadedMsg struct {
	ticket *ticket.Ticket
	trans  []ticket.Transition
	err    error
}

type usAppliedMsg struct {
	err error
}

func newUpdateStatusView(deps Deps, app AppContext) *updateStatusView {
	return &updateStatusView{
		deps: deps,
		app:  app,
		jira: deps.JiraClient(app),
		spin: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func (v *updateStatusView) Init() tea.Cmd {
	switch {
	case v.jira == nil:
		v.step = usStepError
		v.err = fmt.Errorf("no Jira workspace configured")
		return nil
	case v.app.LinkedTicket == "":
		v.step = usStepError
		v.err = fmt.Errorf("current branch is not linked to a ticket")
		return nil
	}
	return tea.Batch(v.spin.Tick, v.loadCmd())
}

func (v *updateStatusView) loadCmd() tea.Cmd {
	client := v.jira
	key := v.app.LinkedTicket
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		var msg usLoadedMsg
		join := newFetchJoin(ctx)
		join.Required(func(ctx context.Context) error {
			t, err := client.Issue(ctx, key)
			if err == nil && t == nil {
				return fmt.Errorf("ticket %s not found", key)
			}
			msg.ticket = t
			return err
		})
		join.Required(func(ctx context.Context) error {
			trans, err := client.Transitions(ctx, key)
			msg.trans = trans
			return err
		})
		msg.err = join.Wait()
		return msg
	}
}

func (v *updateStatusView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spin, cmd = v.spin.Update(msg)
		return cmd

	case usLoadedMsg:
		if v.step != usStepLoading {
			return nil
		}
		if msg.err != nil {
			v.step = usStepError
			v.err = msg.err
			return nil
		}
		if len(msg.trans) == 0 {
			v.step = usStepError
			v.err = fmt.Errorf("ticket %s has no available transitions", v.app.LinkedTicket)
			return nil
		}
		v.ticket = msg.ticket
		v.trans = msg.trans
		labels := make([]string, len(msg.trans))
		for i, tr := range msg.trans {
			labels[i] = fmt.Sprintf("%s → %s", tr.Name, tr.ToStatus)
		}
		v.pick = newOptionList(labels...)
		v.step = usStepPick
		return nil

	case usAppliedMsg:
		if v.step != usStepApplying {
			return nil
		}
		if msg.err != nil {
			v.step = usStepError
			v.err = msg.err
			return nil
		}
		v.step = usStepDone
		return nil

	case tea.KeyMsg:
		return v.handleKey(msg)
	}
	return nil
}

func (v *updateStatusView) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch v.step {
	case usStepPick:
		switch msg.String() {
		case "enter":
			v.chosen = v.trans[v.pick.cursor]
			v.step = usStepApplying
			return v.applyCmd()
		case "esc":
			return navigate(viewMain)
		}
		v.pick.Update(msg)

	case usStepApplying:
		// Transition in flight; ignore input.

	case usStepDone, usStepError:
		switch msg.String() {
		case "enter", "esc":
			return navigateRefresh(viewMain)
		}
	}
	return nil
}

func (v *updateStatusView) applyCmd() tea.Cmd {
	client := v.jira
	key := v.app.LinkedTicket
	id := v.chosen.ID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return usAppliedMsg{err: client.TransitionIssue(ctx, key, id)}
	}
}

func (v *updateStatusView) View(width, height int) string {
	var parts []string
	parts = append(parts, titleStyle.Render("Update ticket status"), "")

	switch v.step {
	case usStepLoading:
		parts = append(parts, v.spin.View()+" Loading ticket...")

	case usStepPick:
		parts = append(parts,
			keyBadgeStyle.Render(v.ticket.Key)+"  "+v.ticket.Summary,
			mutedStyle.Render("status: ")+v.ticket.Status,
			"",
			v.pick.View(),
			"",
			mutedStyle.Render("enter: apply · esc: back"))

	case usStepApplying:
		parts = append(parts, v.spin.View()+" Updating status...")

	case usStepDone:
		parts = append(parts,
			successStyle.Render(fmt.Sprintf("%s moved to %s", v.ticket.Key, v.chosen.ToStatus)),
			"",
			mutedStyle.Render("enter: back to menu"))

	case usStepError:
		parts = append(parts,
			errorStyle.Render("Error: "+v.err.Error()),
			"",
			mutedStyle.Render("enter: back to menu"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
