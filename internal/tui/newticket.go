package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/SternPhD/jh/internal/git"
	"github.com/SternPhD/jh/internal/jira"
	"github.com/SternPhD/jh/internal/ticket"
)

// newTicketView creates a Jira ticket: issue type, title, description,
// and optionally an active sprint. The sprint step only appears when the
// project actually has active sprints; inside a git repository the
// confirm step can also branch off and start work immediately.
type newTicketView struct {
	deps Deps
	app  AppContext
	jira *jira.Client

	step    newTicketStep
	spin    spinner.Model
	project string

	projects []jira.Project
	projPick *picker
	types    []jira.IssueType
	typePick *picker
	sprints  []jira.Sprint
	sprPick  *picker
	title    textinput.Model
	desc     textarea.Model
	confirm  *optionList

	key       string
	branch    string
	branchErr error
	err       error
}

type newTicketStep int

const (
	ntStepLoadingProjects newTicketStep = iota
	ntStepProject
	ntStepLoadingMeta
	ntStepType
	ntStepTitle
	ntStepDesc
	ntStepSprint
	ntStepConfirm
	ntStepCreating
	ntStepDone
	ntStepError
)

type ntProjectsMsg struct {
	projects []jira.Project
	err      error
}

type ntMetaMsg struct {
	types   []jira.IssueType
	sprints []jira.Sprint
	err     error
}

type ntCreatedMsg struct {
	key string
	// branch is the work branch checked out after the create, when the
	// start-work option was chosen.
	branch string
	// branchErr reports a failed branch setup after a successful create.
	branchErr error
	err       error
}

func newNewTicketView(deps Deps, app AppContext) *newTicketView {
	v := &newTicketView{
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
	v.desc.SetHeight(6)
	v.desc.CharLimit = 0

	if app.Workspace != nil {
		v.project = app.Workspace.DefaultProject
	}
	return v
}

func (v *newTicketView) Init() tea.Cmd {
	if v.jira == nil {
		v.step = ntStepError
		v.err = fmt.Errorf("no Jira workspace configured")
		return nil
	}
	if v.project != "" {
		v.step = ntStepLoadingMeta
		return tea.Batch(v.spin.Tick, v.loadMetaCmd())
	}
	return tea.Batch(v.spin.Tick, v.loadProjectsCmd())
}

func (v *newTicketView) loadProjectsCmd() tea.Cmd {
	client := v.jira
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		projects, err := client.Projects(ctx)
		return ntProjectsMsg{projects: projects, err: err}
	}
}

// loadMetaCmd fetches issue types and active sprints concurrently. Types
// are required; sprint lookup failing just drops the sprint step.
func (v *newTicketView) loadMetaCmd() tea.Cmd {
	client := v.jira
	project := v.project
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		var msg ntMetaMsg
		join := newFetchJoin(ctx)
		join.Required(func(ctx context.Context) error {
			types, err := client.IssueTypes(ctx, project)
			msg.types = types
			return err
		})
		join.Optional(func(ctx context.Context) error {
			sprints, err := client.ActiveSprints(ctx, project)
			msg.sprints = sprints
			return err
		})
		msg.err = join.Wait()
		return msg
	}
}

func (v *newTicketView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spin, cmd = v.spin.Update(msg)
		return cmd

	case ntProjectsMsg:
		if v.step != ntStepLoadingProjects {
			return nil
		}
		if msg.err != nil {
			v.step = ntStepError
			v.err = msg.err
			return nil
		}
		v.projects = msg.projects
		labels := make([]string, len(msg.projects))
		for i, p := range msg.projects {
			labels[i] = p.Key + "  " + p.Name
		}
		v.projPick = newPicker(labels)
		v.step = ntStepProject
		return nil

	case ntMetaMsg:
		if v.step != ntStepLoadingMeta {
			return nil
		}
		if msg.err != nil {
			v.step = ntStepError
			v.err = msg.err
			return nil
		}
		if len(msg.types) == 0 {
			v.step = ntStepError
			v.err = fmt.Errorf("project %s has no creatable issue types", v.project)
			return nil
		}
		v.types = msg.types
		labels := make([]string, len(msg.types))
		for i, t := range msg.types {
			labels[i] = t.Name
		}
		v.typePick = newPicker(labels)

		v.sprints = msg.sprints
		if len(msg.sprints) > 0 {
			spLabels := make([]string, 0, len(msg.sprints)+1)
			for _, s := range msg.sprints {
				spLabels = append(spLabels, s.Name)
			}
			spLabels = append(spLabels, "Skip")
			v.sprPick = newPicker(spLabels)
		}
		v.step = ntStepType
		return nil

	case ntCreatedMsg:
		if v.step != ntStepCreating {
			return nil
		}
		if msg.err != nil {
			v.step = ntStepError
			v.err = msg.err
			return nil
		}
		v.key = msg.key
		v.branch = msg.branch
		v.branchErr = msg.branchErr
		v.step = ntStepDone
		return nil

	case tea.KeyMsg:
		return v.handleKey(msg)
	}

	switch v.step {
	case ntStepTitle:
		var cmd tea.Cmd
		v.title, cmd = v.title.Update(msg)
		return cmd
	case ntStepDesc:
		var cmd tea.Cmd
		v.desc, cmd = v.desc.Update(msg)
		return cmd
	}
	return nil
}

func (v *newTicketView) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch v.step {
	case ntStepProject:
		switch msg.String() {
		case "enter":
			i := v.projPick.Selected()
			if i < 0 {
				return nil
			}
			v.project = v.projects[i].Key
			v.step = ntStepLoadingMeta
			return v.loadMetaCmd()
		case "esc":
			return navigate(viewMain)
		}
		v.projPick.Update(msg)

	case ntStepType:
		switch msg.String() {
		case "enter":
			if v.typePick.Selected() < 0 {
				return nil
			}
			v.step = ntStepTitle
			return v.title.Focus()
		case "esc":
			if v.projPick != nil {
				v.step = ntStepProject
			} else {
				return navigate(viewMain)
			}
			return nil
		}
		v.typePick.Update(msg)

	case ntStepTitle:
		switch msg.String() {
		case "enter":
			if v.title.Value() == "" {
				return nil
			}
			v.title.Blur()
			v.step = ntStepDesc
			return v.desc.Focus()
		case "esc":
			v.title.Blur()
			v.step = ntStepType
			return nil
		}
		var cmd tea.Cmd
		v.title, cmd = v.title.Update(msg)
		return cmd

	case ntStepDesc:
		switch msg.String() {
		case "ctrl+d", "tab":
			// Description is multiline, so enter inserts a newline and
			// ctrl+d (or tab) moves on.
			v.desc.Blur()
			if v.sprPick != nil {
				v.step = ntStepSprint
			} else {
				v.buildConfirm()
			}
			return nil
		case "esc":
			v.desc.Blur()
			v.step = ntStepTitle
			return v.title.Focus()
		}
		var cmd tea.Cmd
		v.desc, cmd = v.desc.Update(msg)
		return cmd

	case ntStepSprint:
		switch msg.String() {
		case "enter":
			if v.sprPick.Selected() < 0 {
				return nil
			}
			v.buildConfirm()
			return nil
		case "esc":
			v.step = ntStepDesc
			return v.desc.Focus()
		}
		v.sprPick.Update(msg)

	case ntStepConfirm:
		if msg.String() == "esc" {
			if v.sprPick != nil {
				v.step = ntStepSprint
			} else {
				v.step = ntStepDesc
				return v.desc.Focus()
			}
			return nil
		}
		if msg.String() == "enter" {
			switch v.confirm.Selected() {
			case "Create and start work":
				v.step = ntStepCreating
				return v.createCmd(true)
			case "Create ticket":
				v.step = ntStepCreating
				return v.createCmd(false)
			default:
				v.step = ntStepDesc
				return v.desc.Focus()
			}
		}
		v.confirm.Update(msg)

	case ntStepCreating:
		// In flight; ignore input.

	case ntStepDone, ntStepError:
		switch msg.String() {
		case "enter", "esc":
			return navigateRefresh(viewMain)
		}
	}
	return nil
}

func (v *newTicketView) buildConfirm() {
	if v.app.IsGitRepo {
		v.confirm = newOptionList("Create and start work", "Create ticket", "Back")
	} else {
		v.confirm = newOptionList("Create ticket", "Back")
	}
	v.step = ntStepConfirm
}

func (v *newTicketView) chosenType() jira.IssueType {
	if i := v.typePick.Selected(); i >= 0 {
		return v.types[i]
	}
	return v.types[0]
}

// chosenSprintID returns the selected sprint ID, or 0 for Skip.
func (v *newTicketView) chosenSprintID() int {
	if v.sprPick == nil {
		return 0
	}
	i := v.sprPick.Selected()
	if i < 0 || i >= len(v.sprints) {
		return 0
	}
	return v.sprints[i].ID
}

// createCmd creates the ticket and, with startWork, also sets up and
// checks out its work branch. A branch failure after a successful create
// is reported but does not fail the flow.
func (v *newTicketView) createCmd(startWork bool) tea.Cmd {
	client := v.jira
	repo := v.deps.Repo
	base := v.app.BaseBranch()
	prefix := v.app.Workspace.BranchPrefix
	maxLen := v.app.MaxBranchLen()
	params := jira.CreateParams{
		Project:     v.project,
		Type:        v.chosenType().Name,
		Summary:     v.title.Value(),
		Description: v.desc.Value(),
		SprintID:    v.chosenSprintID(),
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		key, err := client.CreateIssue(ctx, params)
		if err != nil {
			return ntCreatedMsg{err: err}
		}
		msg := ntCreatedMsg{key: key}
		if startWork {
			name := prefix + ticket.BranchName(key, params.Summary, maxLen)
			msg.branchErr = setUpBranch(ctx, repo, name, base)
			if msg.branchErr == nil {
				msg.branch = name
			}
		}
		return msg
	}
}

// setUpBranch creates the branch when missing and checks it out.
func setUpBranch(ctx context.Context, repo *git.Repo, name, base string) error {
	if !repo.BranchExists(ctx, name) {
		if err := repo.CreateBranch(ctx, name, base); err != nil {
			return err
		}
	}
	return repo.Checkout(ctx, name)
}

func (v *newTicketView) View(width, height int) string {
	var parts []string
	parts = append(parts, titleStyle.Render("Create a ticket"), "")

	switch v.step {
	case ntStepLoadingProjects:
		parts = append(parts, v.spin.View()+" Loading projects...")

	case ntStepProject:
		parts = append(parts, headerStyle.Render("Project"))
		parts = append(parts, v.projPick.View(height-5))
		parts = append(parts, "", mutedStyle.Render("type to filter · enter: select · esc: back"))

	case ntStepLoadingMeta:
		parts = append(parts, v.spin.View()+" Loading project metadata...")

	case ntStepType:
		parts = append(parts, headerStyle.Render("Issue type"))
		parts = append(parts, v.typePick.View(height-5))
		parts = append(parts, "", mutedStyle.Render("enter: select · esc: back"))

	case ntStepTitle:
		parts = append(parts, headerStyle.Render("Title"), v.title.View())
		parts = append(parts, "", mutedStyle.Render("enter: next · esc: back"))

	case ntStepDesc:
		parts = append(parts, headerStyle.Render("Description"), v.desc.View())
		parts = append(parts, "", mutedStyle.Render("tab: next · esc: back"))

	case ntStepSprint:
		parts = append(parts, headerStyle.Render("Sprint"))
		parts = append(parts, v.sprPick.View(height-5))
		parts = append(parts, "", mutedStyle.Render("enter: select · esc: back"))

	case ntStepConfirm:
		summary := []string{
			mutedStyle.Render("project: ") + v.project,
			mutedStyle.Render("type:    ") + v.chosenType().Name,
			mutedStyle.Render("title:   ") + v.title.Value(),
		}
		if id := v.chosenSprintID(); id != 0 {
			for _, s := range v.sprints {
				if s.ID == id {
					summary = append(summary, mutedStyle.Render("sprint:  ")+s.Name)
				}
			}
		}
		parts = append(parts, summary...)
		parts = append(parts, "", v.confirm.View())
		parts = append(parts, "", mutedStyle.Render("enter: confirm · esc: back"))

	case ntStepCreating:
		parts = append(parts, v.spin.View()+" Creating ticket...")

	case ntStepDone:
		parts = append(parts, successStyle.Render("Created ")+keyBadgeStyle.Render(v.key))
		if v.branchErr != nil {
			parts = append(parts, errorStyle.Render("Branch setup failed: "+v.branchErr.Error()))
		} else if v.branch != "" {
			parts = append(parts, mutedStyle.Render("on branch "+v.branch))
		}
		parts = append(parts, "", mutedStyle.Render("enter: back to menu"))

	case ntStepError:
		parts = append(parts,
			errorStyle.Render("Error: "+v.err.Error()),
			"",
			mutedStyle.Render("enter: back to menu"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
