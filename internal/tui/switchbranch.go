package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/SternPhD/jh/internal/gh"
	"github.com/SternPhD/jh/internal/jira"
	"github.com/SternPhD/jh/internal/ticket"
)

// switchBranchView lists local branches annotated with the status of any
// ticket their name carries and of any pull request they have open, and
// checks out the selected one.
type switchBranchView struct {
	deps Deps
	app  AppContext
	jira *jira.Client

	step     switchBranchStep
	spin     spinner.Model
	branches []string
	pick     *picker
	err      error
}

type switchBranchStep int

const (
	sbStepLoading switchBranchStep = iota
	sbStepPick
	sbStepSwitching
	sbStepError
)

// ticketLookupLimit caps how many branch tickets and pull requests are
// fetched for annotation; branches past the cap still list, just
// unannotated.
const ticketLookupLimit = 10

type sbLoadedMsg struct {
	branches []string
	// info maps ticket key to fetched ticket for annotation.
	info map[string]ticket.Ticket
	// prs maps branch name to its pull request, when one exists.
	prs map[string]gh.PR
	err error
}

type sbSwitchedMsg struct {
	err error
}

func newSwitchBranchView(deps Deps, app AppContext) *switchBranchView {
	return &switchBranchView{
		deps: deps,
		app:  app,
		jira: deps.JiraClient(app),
		spin: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func (v *switchBranchView) Init() tea.Cmd {
	if !v.app.IsGitRepo {
		v.step = sbStepError
		v.err = fmt.Errorf("not inside a git repository")
		return nil
	}
	return tea.Batch(v.spin.Tick, v.loadCmd())
}

// loadCmd lists branches and, best effort, fetches the tickets their
// names reference and their pull requests so the list can show live
// statuses. Lookup failures leave branches unannotated.
func (v *switchBranchView) loadCmd() tea.Cmd {
	repo := v.deps.Repo
	ghc := v.deps.GH
	client := v.jira
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		branches, err := repo.ListBranches(ctx)
		if err != nil {
			return sbLoadedMsg{err: err}
		}

		join := newFetchJoin(ctx)
		tickets := make([]*ticket.Ticket, len(branches))
		prs := make([]*gh.PR, len(branches))
		for i, b := range branches {
			if i >= ticketLookupLimit {
				break
			}
			i, b := i, b
			if key := ticket.KeyFromBranch(b); client != nil && key != "" {
				join.Optional(func(ctx context.Context) error {
					t, err := client.Issue(ctx, key)
					if err == nil {
						tickets[i] = t
					}
					return err
				})
			}
			join.Optional(func(ctx context.Context) error {
				pr, err := ghc.PRForBranch(ctx, b)
				if err == nil {
					prs[i] = pr
				}
				return err
			})
		}
		_ = join.Wait()

		info := make(map[string]ticket.Ticket)
		for _, t := range tickets {
			if t != nil {
				info[t.Key] = *t
			}
		}
		prByBranch := make(map[string]gh.PR)
		for i, pr := range prs {
			if pr != nil {
				prByBranch[branches[i]] = *pr
			}
		}
		return sbLoadedMsg{branches: branches, info: info, prs: prByBranch}
	}
}

func (v *switchBranchView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spin, cmd = v.spin.Update(msg)
		return cmd

	case sbLoadedMsg:
		if v.step != sbStepLoading {
			return nil
		}
		if msg.err != nil {
			v.step = sbStepError
			v.err = msg.err
			return nil
		}
		v.branches = msg.branches
		labels := make([]string, len(msg.branches))
		for i, b := range msg.branches {
			label := b
			if b == v.app.CurrentBranch {
				label = "* " + b
			}
			if key := ticket.KeyFromBranch(b); key != "" {
				if t, ok := msg.info[key]; ok {
					label += fmt.Sprintf("  (%s: %s)", t.Key, t.Status)
				}
			}
			if pr, ok := msg.prs[b]; ok {
				label += fmt.Sprintf("  [PR #%d %s]", pr.Number, strings.ToLower(pr.State))
			}
			labels[i] = label
		}
		v.pick = newPicker(labels)
		v.step = sbStepPick
		return nil

	case sbSwitchedMsg:
		if v.step != sbStepSwitching {
			return nil
		}
		if msg.err != nil {
			v.step = sbStepError
			v.err = msg.err
			return nil
		}
		return navigateRefresh(viewMain)

	case tea.KeyMsg:
		return v.handleKey(msg)
	}
	return nil
}

func (v *switchBranchView) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch v.step {
	case sbStepPick:
		switch msg.String() {
		case "enter":
			i := v.pick.Selected()
			if i < 0 {
				return nil
			}
			branch := v.branches[i]
			if branch == v.app.CurrentBranch {
				return navigate(viewMain)
			}
			v.step = sbStepSwitching
			return v.switchCmd(branch)
		case "esc":
			return navigate(viewMain)
		}
		v.pick.Update(msg)

	case sbStepSwitching:
		// Checkout in flight; ignore input.

	case sbStepError:
		switch msg.String() {
		case "enter", "esc":
			return navigate(viewMain)
		}
	}
	return nil
}

func (v *switchBranchView) switchCmd(branch string) tea.Cmd {
	repo := v.deps.Repo
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return sbSwitchedMsg{err: repo.Checkout(ctx, branch)}
	}
}

func (v *switchBranchView) View(width, height int) string {
	var parts []string
	parts = append(parts, titleStyle.Render("Switch branch"), "")

	switch v.step {
	case sbStepLoading:
		parts = append(parts, v.spin.View()+" Loading branches...")

	case sbStepPick:
		if v.pick.Query() != "" {
			parts = append(parts, mutedStyle.Render("filter: "+v.pick.Query()))
		}
		parts = append(parts, v.pick.View(height-5))
		parts = append(parts, "", mutedStyle.Render("type to filter · enter: checkout · esc: back"))

	case sbStepSwitching:
		parts = append(parts, v.spin.View()+" Switching branch...")

	case sbStepError:
		parts = append(parts,
			errorStyle.Render("Error: "+v.err.Error()),
			"",
			mutedStyle.Render("enter: back to menu"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
