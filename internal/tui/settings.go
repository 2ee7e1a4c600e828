package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/SternPhD/jh/internal/config"
)

// settingsView edits the resolved workspace in place: pick a field, type
// a new value, enter saves it immediately. The API token is write-only
// and shown masked.
type settingsView struct {
	deps Deps
	app  AppContext

	ws      config.Workspace
	fields  []settingsField
	cursor  int
	editing bool
	input   textinput.Model
	saveErr error
	saved   string // name of the last field saved
}

type settingsField struct {
	name   string
	secret bool
	get    func(v *settingsView) string
	set    func(v *settingsView, value string)
}

// stSavedMsg reports the outcome of persisting one field.
type stSavedMsg struct {
	field string
	err   error
}

func newSettingsView(deps Deps, app AppContext) *settingsView {
	v := &settingsView{deps: deps, app: app}
	if app.Workspace != nil {
		v.ws = *app.Workspace
	}

	v.input = textinput.New()
	v.input.CharLimit = 256
	v.input.Width = 50
	v.input.Prompt = ""

	v.fields = []settingsField{
		{
			name: "Domain",
			get:  func(v *settingsView) string { return v.ws.Domain },
			set:  func(v *settingsView, s string) { v.ws.Domain = normalizeDomain(s) },
		},
		{
			name: "Email",
			get:  func(v *settingsView) string { return v.ws.Email },
			set:  func(v *settingsView, s string) { v.ws.Email = s },
		},
		{
			name: "Default project",
			get:  func(v *settingsView) string { return v.ws.DefaultProject },
			set:  func(v *settingsView, s string) { v.ws.DefaultProject = strings.ToUpper(s) },
		},
		{
			name: "Base branch",
			get:  func(v *settingsView) string { return v.ws.BaseBranch },
			set:  func(v *settingsView, s string) { v.ws.BaseBranch = s },
		},
		{
			name: "Branch prefix",
			get:  func(v *settingsView) string { return v.ws.BranchPrefix },
			set:  func(v *settingsView, s string) { v.ws.BranchPrefix = s },
		},
		{
			name:   "API token",
			secret: true,
			get:    func(v *settingsView) string { return "" },
			set:    func(v *settingsView, s string) {},
		},
	}
	return v
}

func (v *settingsView) Init() tea.Cmd {
	return textinput.Blink
}

func (v *settingsView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case stSavedMsg:
		if msg.err != nil {
			v.saveErr = msg.err
			return nil
		}
		v.saved = msg.field
		return nil

	case tea.KeyMsg:
		return v.handleKey(msg)
	}

	if v.editing {
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return cmd
	}
	return nil
}

func (v *settingsView) handleKey(msg tea.KeyMsg) tea.Cmd {
	if v.app.Workspace == nil {
		switch msg.String() {
		case "enter":
			return navigate(viewSetup)
		case "esc":
			return navigate(viewMain)
		}
		return nil
	}

	if v.editing {
		switch msg.String() {
		case "enter":
			field := v.fields[v.cursor]
			value := strings.TrimSpace(v.input.Value())
			v.editing = false
			v.input.Blur()
			if field.secret {
				if value == "" {
					return nil
				}
				return v.saveTokenCmd(value)
			}
			field.set(v, value)
			return v.saveCmd(field.name)
		case "esc":
			// Discard the edit.
			v.editing = false
			v.input.Blur()
			return nil
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return cmd
	}

	switch msg.String() {
	case "up":
		v.cursor = (v.cursor - 1 + len(v.fields)) % len(v.fields)
	case "down":
		v.cursor = (v.cursor + 1) % len(v.fields)
	case "enter":
		field := v.fields[v.cursor]
		v.editing = true
		v.saveErr = nil
		v.saved = ""
		v.input.SetValue(field.get(v))
		if field.secret {
			v.input.EchoMode = textinput.EchoPassword
		} else {
			v.input.EchoMode = textinput.EchoNormal
		}
		return v.input.Focus()
	case "esc":
		// Edits may have changed branch naming or the base branch.
		return navigateRefresh(viewMain)
	}
	return nil
}

// saveCmd persists the whole workspace after one field changed.
func (v *settingsView) saveCmd(field string) tea.Cmd {
	store := v.deps.Store
	name := v.app.WorkspaceName
	ws := v.ws
	return func() tea.Msg {
		settings, err := store.Load()
		if err != nil {
			return stSavedMsg{field: field, err: err}
		}
		settings.Workspaces[name] = ws
		return stSavedMsg{field: field, err: store.Save(settings)}
	}
}

func (v *settingsView) saveTokenCmd(token string) tea.Cmd {
	store := v.deps.Store
	name := v.app.WorkspaceName
	return func() tea.Msg {
		return stSavedMsg{field: "API token", err: store.SetToken(name, token)}
	}
}

func (v *settingsView) View(width, height int) string {
	var parts []string
	parts = append(parts, titleStyle.Render("Settings"), "")

	if v.app.Workspace == nil {
		parts = append(parts,
			mutedStyle.Render("No workspace is configured."),
			"",
			mutedStyle.Render("enter: run setup · esc: back"))
		return lipgloss.JoinVertical(lipgloss.Left, parts...)
	}

	parts = append(parts, mutedStyle.Render("workspace: ")+v.app.WorkspaceName, "")

	for i, f := range v.fields {
		value := f.get(v)
		if f.secret {
			value = "********"
		}
		line := f.name + ": " + value
		switch {
		case i == v.cursor && v.editing:
			line = f.name + ": " + v.input.View()
			parts = append(parts, selectedItemStyle.Render("> ")+line)
		case i == v.cursor:
			parts = append(parts, selectedItemStyle.Render("> "+line))
		default:
			parts = append(parts, itemStyle.Render("  "+line))
		}
	}

	parts = append(parts, "")
	if v.saveErr != nil {
		parts = append(parts, errorStyle.Render("Save failed: "+v.saveErr.Error()))
	} else if v.saved != "" {
		parts = append(parts, successStyle.Render(v.saved+" saved."))
	}

	if v.editing {
		parts = append(parts, mutedStyle.Render("enter: save · esc: discard"))
	} else {
		parts = append(parts, mutedStyle.Render("enter: edit · esc: back"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
