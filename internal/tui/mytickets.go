package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/SternPhD/jh/internal/jira"
	"github.com/SternPhD/jh/internal/ticket"
)

// myTicketsView lists the user's open tickets and shows a detail pane
// with an inline status editor: left/right cycles through the legal
// transitions, enter applies, esc discards.
type myTicketsView struct {
	deps Deps
	app  AppContext
	jira *jira.Client

	step    myTicketsStep
	spin    spinner.Model
	tickets []ticket.Ticket
	pick    *picker

	// Detail state.
	current     int // index into tickets
	transitions map[string][]ticket.Transition
	children    map[string][]ticket.Ticket
	editing     bool
	editIdx     int
	applying    bool
	applyErr    error

	err error
}

// ticketLabel is the one-line list rendering of a ticket, shared by the
// ticket-picking views.
func ticketLabel(t ticket.Ticket) string {
	return fmt.Sprintf("%s  %s  (%s)", t.Key, t.Summary, t.Status)
}

type myTicketsStep int

const (
	mtStepLoading myTicketsStep = iota
	mtStepList
	mtStepDetail
	mtStepError
)

type mtLoadedMsg struct {
	tickets []ticket.Ticket
	err     error
}

type mtTransitionsMsg struct {
	key   string
	trans []ticket.Transition
	err   error
}

type mtChildrenMsg struct {
	key      string
	children []ticket.Ticket
	err      error
}

type mtAppliedMsg struct {
	key   string
	trans ticket.Transition
	err   error
}

func newMyTicketsView(deps Deps, app AppContext) *myTicketsView {
	return &myTicketsView{
		deps:        deps,
		app:         app,
		jira:        deps.JiraClient(app),
		spin:        spinner.New(spinner.WithSpinner(spinner.Dot)),
		transitions: make(map[string][]ticket.Transition),
		children:    make(map[string][]ticket.Ticket),
	}
}

func (v *myTicketsView) Init() tea.Cmd {
	if v.jira == nil {
		v.step = mtStepError
		v.err = fmt.Errorf("no Jira workspace configured")
		return nil
	}
	return tea.Batch(v.spin.Tick, v.loadCmd())
}

func (v *myTicketsView) loadCmd() tea.Cmd {
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
		return mtLoadedMsg{tickets: tickets, err: err}
	}
}

func (v *myTicketsView) transitionsCmd(key string) tea.Cmd {
	client := v.jira
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		trans, err := client.Transitions(ctx, key)
		return mtTransitionsMsg{key: key, trans: trans, err: err}
	}
}

func (v *myTicketsView) childrenCmd(key string) tea.Cmd {
	client := v.jira
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		children, err := client.ChildIssues(ctx, key)
		return mtChildrenMsg{key: key, children: children, err: err}
	}
}

func (v *myTicketsView) applyCmd(key string, trans ticket.Transition) tea.Cmd {
	client := v.jira
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		err := client.TransitionIssue(ctx, key, trans.ID)
		return mtAppliedMsg{key: key, trans: trans, err: err}
	}
}

func (v *myTicketsView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spin, cmd = v.spin.Update(msg)
		return cmd

	case mtLoadedMsg:
		if v.step != mtStepLoading {
			return nil
		}
		if msg.err != nil {
			v.step = mtStepError
			v.err = msg.err
			return nil
		}
		v.tickets = msg.tickets
		v.pick = newPicker(v.ticketLabels())
		v.step = mtStepList
		return nil

	case mtTransitionsMsg:
		// Transition fetch failing only disables the status editor.
		if msg.err == nil {
			v.transitions[msg.key] = msg.trans
		}
		return nil

	case mtChildrenMsg:
		// Child lookup is best effort; failures leave the section empty.
		if msg.err == nil {
			v.children[msg.key] = msg.children
		}
		return nil

	case mtAppliedMsg:
		v.applying = false
		if msg.err != nil {
			v.applyErr = msg.err
			return nil
		}
		// Optimistic local update everywhere the ticket is cached, then
		// refetch what is now legal.
		v.tickets[v.current].Status = msg.trans.ToStatus
		for parent, kids := range v.children {
			for i := range kids {
				if kids[i].Key == msg.key {
					v.children[parent][i].Status = msg.trans.ToStatus
				}
			}
		}
		v.pick.setItems(v.ticketLabels())
		v.editing = false
		delete(v.transitions, msg.key)
		return v.transitionsCmd(msg.key)

	case tea.KeyMsg:
		return v.handleKey(msg)
	}
	return nil
}

func (v *myTicketsView) ticketLabels() []string {
	labels := make([]string, len(v.tickets))
	for i, t := range v.tickets {
		labels[i] = ticketLabel(t)
	}
	return labels
}

func (v *myTicketsView) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch v.step {
	case mtStepList:
		switch msg.String() {
		case "enter":
			i := v.pick.Selected()
			if i < 0 {
				return nil
			}
			v.current = i
			v.step = mtStepDetail
			v.editing = false
			v.applyErr = nil
			key := v.tickets[i].Key
			var cmds []tea.Cmd
			if _, ok := v.transitions[key]; !ok {
				cmds = append(cmds, v.transitionsCmd(key))
			}
			if _, ok := v.children[key]; !ok {
				cmds = append(cmds, v.childrenCmd(key))
			}
			return tea.Batch(cmds...)
		case "esc":
			return navigate(viewMain)
		}
		v.pick.Update(msg)

	case mtStepDetail:
		return v.handleDetailKey(msg)

	case mtStepError:
		switch msg.String() {
		case "enter", "esc":
			return navigate(viewMain)
		}
	}
	return nil
}

func (v *myTicketsView) handleDetailKey(msg tea.KeyMsg) tea.Cmd {
	if v.applying {
		// Status change in flight; ignore input.
		return nil
	}
	t := &v.tickets[v.current]
	trans := v.transitions[t.Key]

	switch msg.String() {
	case "left", "right":
		if len(trans) == 0 {
			return nil
		}
		if !v.editing {
			v.editing = true
			v.editIdx = 0
			v.applyErr = nil
			return nil
		}
		if msg.String() == "right" {
			v.editIdx = (v.editIdx + 1) % len(trans)
		} else {
			v.editIdx = (v.editIdx - 1 + len(trans)) % len(trans)
		}

	case "enter":
		if v.editing {
			v.applying = true
			v.applyErr = nil
			return v.applyCmd(t.Key, trans[v.editIdx])
		}

	case "esc":
		if v.editing {
			v.editing = false
			v.applyErr = nil
			return nil
		}
		v.step = mtStepList
	}
	return nil
}

func (v *myTicketsView) View(width, height int) string {
	var parts []string
	parts = append(parts, titleStyle.Render("My tickets"), "")

	switch v.step {
	case mtStepLoading:
		parts = append(parts, v.spin.View()+" Loading your tickets...")

	case mtStepList:
		if len(v.tickets) == 0 {
			parts = append(parts, mutedStyle.Render("No open tickets assigned to you."))
			parts = append(parts, "", mutedStyle.Render("esc: back"))
			break
		}
		if v.pick.Query() != "" {
			parts = append(parts, mutedStyle.Render("filter: "+v.pick.Query()))
		}
		parts = append(parts, v.pick.View(height-5))
		parts = append(parts, "", mutedStyle.Render("type to filter · enter: open · esc: back"))

	case mtStepDetail:
		parts = append(parts, v.renderDetail()...)

	case mtStepError:
		parts = append(parts,
			errorStyle.Render("Error: "+v.err.Error()),
			"",
			mutedStyle.Render("enter: back to menu"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (v *myTicketsView) renderDetail() []string {
	t := v.tickets[v.current]
	trans := v.transitions[t.Key]

	status := t.Status
	if v.editing {
		status = fmt.Sprintf("%s → %s", t.Status, trans[v.editIdx].ToStatus)
	}
	if v.applying {
		status += "  " + v.spin.View()
	}

	parts := []string{
		keyBadgeStyle.Render(t.Key) + "  " + headerStyle.Render(t.Summary),
		mutedStyle.Render("type:     ") + t.Type,
		mutedStyle.Render("status:   ") + status,
	}
	if t.Assignee != "" {
		parts = append(parts, mutedStyle.Render("assignee: ")+t.Assignee)
	}
	if t.Sprint != "" {
		parts = append(parts, mutedStyle.Render("sprint:   ")+t.Sprint)
	}
	if t.Description != "" {
		parts = append(parts, "", strings.TrimSpace(t.Description))
	}
	if kids := v.children[t.Key]; len(kids) > 0 {
		parts = append(parts, "", mutedStyle.Render("children:"))
		for _, c := range kids {
			parts = append(parts, fmt.Sprintf("  %s  %s  (%s)", c.Key, c.Summary, c.Status))
		}
	}
	if v.applyErr != nil {
		parts = append(parts, "", errorStyle.Render("Status change failed: "+v.applyErr.Error()))
	}

	parts = append(parts, "")
	switch {
	case v.editing:
		parts = append(parts, mutedStyle.Render("←/→: choose status · enter: apply · esc: cancel"))
	case len(trans) > 0:
		parts = append(parts, mutedStyle.Render("←/→: change status · esc: back"))
	default:
		parts = append(parts, mutedStyle.Render("esc: back"))
	}
	return parts
}
