package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/SternPhD/jh/internal/config"
	"github.com/SternPhD/jh/internal/jira"
)

// setupView walks the user through connecting a Jira workspace: site
// domain, account email, API token, optional default project. The typed
// credentials are verified against the site before anything is saved.
type setupView struct {
	deps Deps
	app  AppContext

	step   setupStep
	inputs [setupFieldCount]textinput.Model
	spin   spinner.Model
	err    error
}

type setupStep int

const (
	setupStepDomain setupStep = iota
	setupStepEmail
	setupStepToken
	setupStepProject
	setupStepTesting
	setupStepDone
	setupStepError
)

const setupFieldCount = 4

var setupLabels = [setupFieldCount]string{
	"Jira domain (e.g. acme.atlassian.net)",
	"Account email",
	"API token",
	"Default project key (optional)",
}

// setupResultMsg reports the outcome of verify-and-save.
type setupResultMsg struct {
	err error
}

func newSetupView(deps Deps, app AppContext) *setupView {
	v := &setupView{deps: deps, app: app}

	for i := range v.inputs {
		in := textinput.New()
		in.CharLimit = 256
		in.Width = 50
		in.Prompt = ""
		v.inputs[i] = in
	}
	v.inputs[setupStepToken].EchoMode = textinput.EchoPassword

	if app.Workspace != nil {
		v.inputs[setupStepDomain].SetValue(app.Workspace.Domain)
		v.inputs[setupStepEmail].SetValue(app.Workspace.Email)
		v.inputs[setupStepProject].SetValue(app.Workspace.DefaultProject)
	}
	v.inputs[setupStepDomain].Focus()

	v.spin = spinner.New(spinner.WithSpinner(spinner.Dot))
	return v
}

func (v *setupView) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, v.spin.Tick)
}

func (v *setupView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return v.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spin, cmd = v.spin.Update(msg)
		return cmd

	case setupResultMsg:
		if v.step != setupStepTesting {
			return nil
		}
		if msg.err != nil {
			v.step = setupStepError
			v.err = msg.err
			return nil
		}
		v.step = setupStepDone
		return nil
	}

	if v.step >= setupStepDomain && v.step <= setupStepProject {
		var cmd tea.Cmd
		v.inputs[v.step], cmd = v.inputs[v.step].Update(msg)
		return cmd
	}
	return nil
}

func (v *setupView) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch v.step {
	case setupStepDomain, setupStepEmail, setupStepToken, setupStepProject:
		switch msg.String() {
		case "enter":
			return v.advance()
		case "esc":
			if v.step > setupStepDomain {
				v.focusStep(v.step - 1)
			}
			return nil
		}
		var cmd tea.Cmd
		v.inputs[v.step], cmd = v.inputs[v.step].Update(msg)
		return cmd

	case setupStepTesting:
		// Verification in flight; keys are ignored.
		return nil

	case setupStepDone:
		if msg.String() == "enter" {
			return navigateRefresh(viewMain)
		}

	case setupStepError:
		switch msg.String() {
		case "enter", "esc":
			v.err = nil
			v.focusStep(setupStepDomain)
		}
	}
	return nil
}

// advance moves to the next field, or kicks off verification after the
// last one. Required fields refuse to advance while empty.
func (v *setupView) advance() tea.Cmd {
	value := strings.TrimSpace(v.inputs[v.step].Value())
	if value == "" && v.step != setupStepProject {
		return nil
	}
	if v.step < setupStepProject {
		v.focusStep(v.step + 1)
		return nil
	}
	v.step = setupStepTesting
	return v.verifyCmd()
}

func (v *setupView) focusStep(step setupStep) {
	if v.step >= setupStepDomain && v.step <= setupStepProject {
		v.inputs[v.step].Blur()
	}
	v.step = step
	v.inputs[step].Focus()
}

// verifyCmd tests the typed credentials against the site and, on success,
// persists the workspace and token.
func (v *setupView) verifyCmd() tea.Cmd {
	domain := normalizeDomain(v.inputs[setupStepDomain].Value())
	email := strings.TrimSpace(v.inputs[setupStepEmail].Value())
	token := strings.TrimSpace(v.inputs[setupStepToken].Value())
	project := strings.ToUpper(strings.TrimSpace(v.inputs[setupStepProject].Value()))
	repoID := v.app.RepoID
	store := v.deps.Store

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		client := jira.NewClient(domain, email, token)
		if err := client.TestConnection(ctx); err != nil {
			return setupResultMsg{err: err}
		}

		name := workspaceName(domain)
		settings, err := store.Load()
		if err != nil {
			settings = &config.Settings{}
		}
		if settings.Workspaces == nil {
			settings.Workspaces = make(map[string]config.Workspace)
		}
		ws := settings.Workspaces[name]
		ws.Domain = domain
		ws.Email = email
		ws.DefaultProject = project
		settings.Workspaces[name] = ws

		if repoID != "" {
			if settings.Repos == nil {
				settings.Repos = make(map[string]string)
			}
			settings.Repos[repoID] = name
		}

		if err := store.Save(settings); err != nil {
			return setupResultMsg{err: err}
		}
		if err := store.SetToken(name, token); err != nil {
			return setupResultMsg{err: err}
		}
		return setupResultMsg{}
	}
}

// normalizeDomain ensures a scheme and strips trailing slashes.
func normalizeDomain(domain string) string {
	domain = strings.TrimSpace(strings.TrimRight(domain, "/"))
	if domain == "" {
		return domain
	}
	if !strings.Contains(domain, "://") {
		domain = "https://" + domain
	}
	return domain
}

// workspaceName derives a short workspace name from the site domain, e.g.
// "https://acme.atlassian.net" becomes "acme".
func workspaceName(domain string) string {
	host := domain
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexByte(host, '.'); i > 0 {
		host = host[:i]
	}
	if host == "" {
		return "default"
	}
	return host
}

func (v *setupView) View(width, height int) string {
	var parts []string
	parts = append(parts, titleStyle.Render("Connect a Jira workspace"), "")

	switch v.step {
	case setupStepDomain, setupStepEmail, setupStepToken, setupStepProject:
		for i := setupStep(0); i <= v.step; i++ {
			label := setupLabels[i]
			if i == v.step {
				parts = append(parts, headerStyle.Render(label), v.inputs[i].View(), "")
			} else {
				shown := v.inputs[i].Value()
				if i == setupStepToken {
					shown = strings.Repeat("*", len(shown))
				}
				parts = append(parts, mutedStyle.Render(label+": "+shown))
			}
		}
		parts = append(parts, "", mutedStyle.Render("enter: next · esc: back"))

	case setupStepTesting:
		parts = append(parts, v.spin.View()+" Testing connection...")

	case setupStepDone:
		parts = append(parts,
			successStyle.Render("Connected."),
			"",
			mutedStyle.Render("enter: continue"))

	case setupStepError:
		parts = append(parts,
			errorStyle.Render("Connection failed: "+v.err.Error()),
			"",
			mutedStyle.Render("enter: edit settings"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
