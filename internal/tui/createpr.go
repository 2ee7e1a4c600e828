package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/SternPhD/jh/internal/gh"
	"github.com/SternPhD/jh/internal/jira"
	"github.com/SternPhD/jh/internal/ticket"
)

// createPRView opens a pull request for the current branch. The title and
// body are prefilled from the linked ticket and recent commits; the branch
// is pushed first when it has no upstream yet. An already-open PR short
// circuits to showing its URL.
type createPRView struct {
	deps Deps
	app  AppContext
	jira *jira.Client

	step        createPRStep
	spin        spinner.Model
	hasUpstream bool
	commits     []string
	linked      *ticket.Ticket
	title       textinput.Model
	body        textarea.Model
	confirm     *optionList

	url      string
	existing bool
	err      error
}

type createPRStep int

const (
	cprStepLoading createPRStep = iota
	cprStepPushNeeded
	cprStepTitle
	cprStepBody
	cprStepConfirm
	cprStepSubmitting
	cprStepDone
	cprStepError
)

type cprLoadedMsg struct {
	hasUpstream bool
	commits     []string
	linked      *ticket.Ticket
	existing    *gh.PR
	err         error
}

type cprCreatedMsg struct {
	url string
	err error
}

func newCreatePRView(deps Deps, app AppContext) *createPRView {
	v := &createPRView{
		deps: deps,
		app:  app,
		jira: deps.JiraClient(app),
		spin: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}

	v.title = textinput.New()
	v.title.CharLimit = 255
	v.title.Width = 60
	v.title.Prompt = ""

	v.body = textarea.New()
	v.body.SetWidth(70)
	v.body.SetHeight(10)
	v.body.CharLimit = 0
	return v
}

func (v *createPRView) Init() tea.Cmd {
	if !v.app.IsGitRepo {
		v.step = cprStepError
		v.err = fmt.Errorf("not inside a git repository")
		return nil
	}
	if v.app.CurrentBranch == v.app.BaseBranch() {
		v.step = cprStepError
		v.err = fmt.Errorf("already on base branch %s", v.app.BaseBranch())
		return nil
	}
	return tea.Batch(v.spin.Tick, v.loadCmd())
}

// loadCmd gathers everything the form needs concurrently: commits ahead
// of base and upstream state (required), plus the linked ticket and any
// existing PR (best effort).
func (v *createPRView) loadCmd() tea.Cmd {
	repo := v.deps.Repo
	ghc := v.deps.GH
	client := v.jira
	branch := v.app.CurrentBranch
	base := v.app.BaseBranch()
	linkedKey := v.app.LinkedTicket

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		var msg cprLoadedMsg
		join := newFetchJoin(ctx)
		join.Required(func(ctx context.Context) error {
			commits, err := repo.CommitsSince(ctx, base)
			msg.commits = commits
			return err
		})
		join.Required(func(ctx context.Context) error {
			msg.hasUpstream = repo.HasUpstream(ctx, branch)
			return nil
		})
		join.Optional(func(ctx context.Context) error {
			pr, err := ghc.PRForBranch(ctx, branch)
			msg.existing = pr
			return err
		})
		if client != nil && linkedKey != "" {
			join.Optional(func(ctx context.Context) error {
				t, err := client.Issue(ctx, linkedKey)
				msg.linked = t
				return err
			})
		}
		msg.err = join.Wait()
		return msg
	}
}

func (v *createPRView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spin, cmd = v.spin.Update(msg)
		return cmd

	case cprLoadedMsg:
		if v.step != cprStepLoading {
			return nil
		}
		if msg.err != nil {
			v.step = cprStepError
			v.err = msg.err
			return nil
		}
		if msg.existing != nil && msg.existing.State == "OPEN" {
			v.url = msg.existing.URL
			v.existing = true
			v.step = cprStepDone
			return nil
		}
		if len(msg.commits) == 0 {
			v.step = cprStepError
			v.err = fmt.Errorf("branch has no commits ahead of %s", v.app.BaseBranch())
			return nil
		}
		v.hasUpstream = msg.hasUpstream
		v.commits = msg.commits
		v.linked = msg.linked
		v.title.SetValue(v.suggestTitle())
		v.body.SetValue(v.suggestBody())
		if !v.hasUpstream {
			v.step = cprStepPushNeeded
			return nil
		}
		v.step = cprStepTitle
		return v.title.Focus()

	case cprCreatedMsg:
		if v.step != cprStepSubmitting {
			return nil
		}
		if msg.err != nil {
			v.step = cprStepError
			v.err = msg.err
			return nil
		}
		v.url = msg.url
		v.step = cprStepDone
		return nil

	case tea.KeyMsg:
		return v.handleKey(msg)
	}

	switch v.step {
	case cprStepTitle:
		var cmd tea.Cmd
		v.title, cmd = v.title.Update(msg)
		return cmd
	case cprStepBody:
		var cmd tea.Cmd
		v.body, cmd = v.body.Update(msg)
		return cmd
	}
	return nil
}

func (v *createPRView) suggestTitle() string {
	if v.linked != nil {
		return v.linked.Key + ": " + v.linked.Summary
	}
	if title := ticket.SuggestTitle(v.app.CurrentBranch); title != "" {
		return title
	}
	return v.app.CurrentBranch
}

func (v *createPRView) suggestBody() string {
	var b strings.Builder
	if v.linked != nil {
		if v.app.Workspace != nil {
			b.WriteString("Ticket: " + v.app.Workspace.Domain + "/browse/" + v.linked.Key + "\n\n")
		}
		if v.linked.Description != "" {
			b.WriteString(strings.TrimSpace(v.linked.Description) + "\n\n")
		}
	}
	b.WriteString("## Commits\n")
	for _, c := range v.commits {
		b.WriteString("- " + c + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (v *createPRView) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch v.step {
	case cprStepPushNeeded:
		switch msg.String() {
		case "enter":
			v.step = cprStepTitle
			return v.title.Focus()
		case "esc":
			return navigate(viewMain)
		}

	case cprStepTitle:
		switch msg.String() {
		case "enter":
			if v.title.Value() == "" {
				return nil
			}
			v.title.Blur()
			v.step = cprStepBody
			return v.body.Focus()
		case "esc":
			if !v.hasUpstream {
				v.title.Blur()
				v.step = cprStepPushNeeded
				return nil
			}
			return navigate(viewMain)
		}
		var cmd tea.Cmd
		v.title, cmd = v.title.Update(msg)
		return cmd

	case cprStepBody:
		switch msg.String() {
		case "ctrl+d", "tab":
			v.body.Blur()
			v.confirm = newOptionList("Create pull request", "Back")
			v.step = cprStepConfirm
			return nil
		case "esc":
			v.body.Blur()
			v.step = cprStepTitle
			return v.title.Focus()
		}
		var cmd tea.Cmd
		v.body, cmd = v.body.Update(msg)
		return cmd

	case cprStepConfirm:
		if msg.String() == "esc" {
			v.step = cprStepBody
			return v.body.Focus()
		}
		if msg.String() == "enter" {
			if v.confirm.cursor == 0 {
				v.step = cprStepSubmitting
				return v.submitCmd()
			}
			v.step = cprStepBody
			return v.body.Focus()
		}
		v.confirm.Update(msg)

	case cprStepSubmitting:
		// Push and create in flight; ignore input.

	case cprStepDone, cprStepError:
		switch msg.String() {
		case "enter", "esc":
			return navigateRefresh(viewMain)
		}
	}
	return nil
}

// submitCmd pushes the branch (setting the upstream when it has none
// yet), then opens the pull request. The push is idempotent; a branch
// that is already up to date pushes cleanly.
func (v *createPRView) submitCmd() tea.Cmd {
	repo := v.deps.Repo
	ghc := v.deps.GH
	branch := v.app.CurrentBranch
	base := v.app.BaseBranch()
	hasUpstream := v.hasUpstream
	title := v.title.Value()
	body := v.body.Value()

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		if err := repo.Push(ctx, branch, !hasUpstream); err != nil {
			return cprCreatedMsg{err: err}
		}
		url, err := ghc.Create(ctx, base, title, body)
		return cprCreatedMsg{url: url, err: err}
	}
}

func (v *createPRView) View(width, height int) string {
	var parts []string
	parts = append(parts, titleStyle.Render("Create pull request"), "")

	switch v.step {
	case cprStepLoading:
		parts = append(parts, v.spin.View()+" Inspecting branch...")

	case cprStepPushNeeded:
		parts = append(parts,
			fmt.Sprintf("%s has no upstream branch yet.", v.app.CurrentBranch),
			"It will be pushed to origin when the pull request is created.",
			"",
			mutedStyle.Render("enter: continue · esc: back"))

	case cprStepTitle:
		parts = append(parts, mutedStyle.Render(fmt.Sprintf("%s → %s  (%d commits)",
			v.app.CurrentBranch, v.app.BaseBranch(), len(v.commits))), "")
		parts = append(parts, headerStyle.Render("Title"), v.title.View())
		parts = append(parts, "", mutedStyle.Render("enter: next · esc: back"))

	case cprStepBody:
		parts = append(parts, headerStyle.Render("Body"), v.body.View())
		parts = append(parts, "", mutedStyle.Render("tab: next · esc: back"))

	case cprStepConfirm:
		lines := []string{
			mutedStyle.Render("title: ") + v.title.Value(),
			mutedStyle.Render("base:  ") + v.app.BaseBranch(),
		}
		if !v.hasUpstream {
			lines = append(lines, mutedStyle.Render("the branch will be pushed first"))
		}
		parts = append(parts, lines...)
		parts = append(parts, "", v.confirm.View())
		parts = append(parts, "", mutedStyle.Render("enter: confirm · esc: back"))

	case cprStepSubmitting:
		parts = append(parts, v.spin.View()+" Creating pull request...")

	case cprStepDone:
		label := "Pull request created: "
		if v.existing {
			label = "Pull request already open: "
		}
		parts = append(parts,
			successStyle.Render(label)+v.url,
			"",
			mutedStyle.Render("enter: back to menu"))

	case cprStepError:
		parts = append(parts,
			errorStyle.Render("Error: "+v.err.Error()),
			"",
			mutedStyle.Render("enter: back to menu"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
