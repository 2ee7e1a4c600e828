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

	"github.com/SternPhD/jh/internal/jira"
	"github.com/SternPhD/jh/internal/ticket"
)

// commitDescribeLimit caps how many commit subjects are pulled into the
// suggested ticket description.
const commitDescribeLimit = 10

// ticketFromBranchView creates a ticket for work that already exists on
// the current branch: the title is suggested from the branch name, the
// description from recent commit subjects, and the branch is optionally
// renamed to carry the new key.
type ticketFromBranchView struct {
	deps Deps
	app  AppContext
	jira *jira.Client

	step      tfbStep
	spin      spinner.Model
	types     []jira.IssueType
	typePick  *optionList
	issueType string
	title     textinput.Model
	desc      textarea.Model
	confirm   *optionList

	key       string
	branch    string
	renameErr error
	err       error
}

type tfbStep int

const (
	tfbStepLoading tfbStep = iota
	tfbStepType
	tfbStepTitle
	tfbStepDesc
	tfbStepConfirm
	tfbStepCreating
	tfbStepDone
	tfbStepError
)

type tfbLoadedMsg struct {
	types   []jira.IssueType
	commits []string
	err     error
}

type tfbCreatedMsg struct {
	key    string
	branch string
	// renameErr reports a failed branch rename after a successful create.
	renameErr error
	err       error
}

func newTicketFromBranchView(deps Deps, app AppContext) *ticketFromBranchView {
	v := &ticketFromBranchView{
		deps: deps,
		app:  app,
		jira: deps.JiraClient(app),
		spin: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}

	v.title = textinput.New()
	v.title.CharLimit = 255
	v.title.Width = 60
	v.title.Prompt = ""

	v.desc = textarea.New()
	v.desc.SetWidth(60)
	v.desc.SetHeight(8)
	v.desc.CharLimit = 0
	return v
}

func (v *ticketFromBranchView) Init() tea.Cmd {
	switch {
	case v.jira == nil:
		v.step = tfbStepError
		v.err = fmt.Errorf("no Jira workspace configured")
		return nil
	case !v.app.IsGitRepo:
		v.step = tfbStepError
		v.err = fmt.Errorf("not inside a git repository")
		return nil
	case v.app.Workspace.DefaultProject == "":
		v.step = tfbStepError
		v.err = fmt.Errorf("workspace %s has no default project configured", v.app.WorkspaceName)
		return nil
	}
	return tea.Batch(v.spin.Tick, v.loadCmd())
}

// loadCmd fetches issue types (required) and recent commit subjects for
// the suggested description (best effort) concurrently.
func (v *ticketFromBranchView) loadCmd() tea.Cmd {
	client := v.jira
	repo := v.deps.Repo
	project := v.app.Workspace.DefaultProject
	base := v.app.BaseBranch()

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		var msg tfbLoadedMsg
		join := newFetchJoin(ctx)
		join.Required(func(ctx context.Context) error {
			types, err := client.IssueTypes(ctx, project)
			msg.types = types
			return err
		})
		join.Optional(func(ctx context.Context) error {
			commits, err := repo.CommitsSince(ctx, base)
			if len(commits) > commitDescribeLimit {
				commits = commits[:commitDescribeLimit]
			}
			msg.commits = commits
			return err
		})
		msg.err = join.Wait()
		return msg
	}
}

// defaultTypeIndex prefers "Task", falling back to the first type.
func defaultTypeIndex(types []jira.IssueType) int {
	for i, t := range types {
		if strings.EqualFold(t.Name, "Task") {
			return i
		}
	}
	return 0
}

func (v *ticketFromBranchView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spin, cmd = v.spin.Update(msg)
		return cmd

	case tfbLoadedMsg:
		if v.step != tfbStepLoading {
			return nil
		}
		if msg.err != nil {
			v.step = tfbStepError
			v.err = msg.err
			return nil
		}
		if len(msg.types) == 0 {
			v.step = tfbStepError
			v.err = fmt.Errorf("project %s has no creatable issue types", v.app.Workspace.DefaultProject)
			return nil
		}
		v.types = msg.types
		names := make([]string, len(msg.types))
		for i, t := range msg.types {
			names[i] = t.Name
		}
		v.typePick = newOptionList(names...)
		v.typePick.cursor = defaultTypeIndex(msg.types)
		v.title.SetValue(ticket.SuggestTitle(v.app.CurrentBranch))
		v.desc.SetValue(describeBranch(v.app.CurrentBranch, msg.commits))
		v.step = tfbStepType
		return nil

	case tfbCreatedMsg:
		if v.step != tfbStepCreating {
			return nil
		}
		if msg.err != nil {
			v.step = tfbStepError
			v.err = msg.err
			return nil
		}
		v.key = msg.key
		v.branch = msg.branch
		v.renameErr = msg.renameErr
		v.step = tfbStepDone
		return nil

	case tea.KeyMsg:
		return v.handleKey(msg)
	}

	switch v.step {
	case tfbStepTitle:
		var cmd tea.Cmd
		v.title, cmd = v.title.Update(msg)
		return cmd
	case tfbStepDesc:
		var cmd tea.Cmd
		v.desc, cmd = v.desc.Update(msg)
		return cmd
	}
	return nil
}

// describeBranch builds the suggested description from the branch name
// and its commit subjects.
func describeBranch(branch string, commits []string) string {
	var b strings.Builder
	b.WriteString("Work on branch " + branch + ".")
	if len(commits) > 0 {
		b.WriteString("\n\nCommits so far:\n")
		for _, c := range commits {
			b.WriteString("- " + c + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (v *ticketFromBranchView) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch v.step {
	case tfbStepType:
		switch msg.String() {
		case "enter":
			v.issueType = v.typePick.Selected()
			v.step = tfbStepTitle
			return v.title.Focus()
		case "esc":
			return navigate(viewMain)
		}
		v.typePick.Update(msg)

	case tfbStepTitle:
		switch msg.String() {
		case "enter":
			if v.title.Value() == "" {
				return nil
			}
			v.title.Blur()
			v.step = tfbStepDesc
			return v.desc.Focus()
		case "esc":
			v.title.Blur()
			v.step = tfbStepType
			return nil
		}
		var cmd tea.Cmd
		v.title, cmd = v.title.Update(msg)
		return cmd

	case tfbStepDesc:
		switch msg.String() {
		case "ctrl+d", "tab":
			v.desc.Blur()
			v.confirm = newOptionList("Create ticket and rename branch", "Create ticket only", "Back")
			v.step = tfbStepConfirm
			return nil
		case "esc":
			v.desc.Blur()
			v.step = tfbStepTitle
			return v.title.Focus()
		}
		var cmd tea.Cmd
		v.desc, cmd = v.desc.Update(msg)
		return cmd

	case tfbStepConfirm:
		if msg.String() == "esc" {
			v.step = tfbStepDesc
			return v.desc.Focus()
		}
		if msg.String() == "enter" {
			switch v.confirm.cursor {
			case 0:
				v.step = tfbStepCreating
				return v.createCmd(true)
			case 1:
				v.step = tfbStepCreating
				return v.createCmd(false)
			default:
				v.step = tfbStepDesc
				return v.desc.Focus()
			}
		}
		v.confirm.Update(msg)

	case tfbStepCreating:
		// In flight; ignore input.

	case tfbStepDone, tfbStepError:
		switch msg.String() {
		case "enter", "esc":
			return navigateRefresh(viewMain)
		}
	}
	return nil
}

// createCmd creates the ticket and, when asked, renames the branch to
// carry the new key. A rename failure after a successful create is
// reported but does not fail the flow.
func (v *ticketFromBranchView) createCmd(rename bool) tea.Cmd {
	client := v.jira
	repo := v.deps.Repo
	old := v.app.CurrentBranch
	prefix := v.app.Workspace.BranchPrefix
	maxLen := v.app.MaxBranchLen()
	params := jira.CreateParams{
		Project:     v.app.Workspace.DefaultProject,
		Type:        v.issueType,
		Summary:     v.title.Value(),
		Description: v.desc.Value(),
	}

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		key, err := client.CreateIssue(ctx, params)
		if err != nil {
			return tfbCreatedMsg{err: err}
		}
		msg := tfbCreatedMsg{key: key, branch: old}
		if rename {
			name := prefix + ticket.BranchName(key, params.Summary, maxLen)
			if err := repo.Rename(ctx, old, name); err != nil {
				msg.renameErr = err
			} else {
				msg.branch = name
			}
		}
		return msg
	}
}

func (v *ticketFromBranchView) View(width, height int) string {
	var parts []string
	parts = append(parts, titleStyle.Render("Create ticket from branch"), "")

	switch v.step {
	case tfbStepLoading:
		parts = append(parts, v.spin.View()+" Inspecting branch...")

	case tfbStepType:
		parts = append(parts, mutedStyle.Render("branch: ")+v.app.CurrentBranch, "")
		parts = append(parts, headerStyle.Render("Issue type"), v.typePick.View())
		parts = append(parts, "", mutedStyle.Render("enter: select · esc: back"))

	case tfbStepTitle:
		parts = append(parts, mutedStyle.Render("branch: ")+v.app.CurrentBranch, "")
		parts = append(parts, headerStyle.Render("Title"), v.title.View())
		parts = append(parts, "", mutedStyle.Render("enter: next · esc: back"))

	case tfbStepDesc:
		parts = append(parts, headerStyle.Render("Description"), v.desc.View())
		parts = append(parts, "", mutedStyle.Render("tab: next · esc: back"))

	case tfbStepConfirm:
		parts = append(parts,
			mutedStyle.Render("project: ")+v.app.Workspace.DefaultProject,
			mutedStyle.Render("type:    ")+v.issueType,
			mutedStyle.Render("title:   ")+v.title.Value(),
			"",
			v.confirm.View(),
			"",
			mutedStyle.Render("enter: confirm · esc: back"))

	case tfbStepCreating:
		parts = append(parts, v.spin.View()+" Creating ticket...")

	case tfbStepDone:
		parts = append(parts, successStyle.Render("Created ")+keyBadgeStyle.Render(v.key))
		if v.renameErr != nil {
			parts = append(parts, errorStyle.Render("Branch rename failed: "+v.renameErr.Error()))
		} else if v.branch != v.app.CurrentBranch {
			parts = append(parts, mutedStyle.Render("branch renamed to "+v.branch))
		}
		parts = append(parts, "", mutedStyle.Render("enter: back to menu"))

	case tfbStepError:
		parts = append(parts,
			errorStyle.Render("Error: "+v.err.Error()),
			"",
			mutedStyle.Render("enter: back to menu"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
