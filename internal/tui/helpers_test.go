package tui

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/SternPhD/jh/internal/config"
	"github.com/SternPhD/jh/internal/gh"
	"github.com/SternPhD/jh/internal/git"
	"github.com/SternPhD/jh/internal/testutil"
)

// testDeps builds Deps backed by a temp config dir and a mock command
// runner, so no test touches a real repo or network.
func testDeps(t *testing.T, runner *testutil.MockRunner) Deps {
	t.Helper()
	if runner == nil {
		runner = testutil.NewMockRunner()
	}
	return Deps{
		Store: &config.Store{Dir: t.TempDir()},
		Repo:  git.NewRepoWithRunner("/repo", runner),
		GH:    gh.NewClientWithRunner("/repo", runner),
	}
}

func testWorkspace() *config.Workspace {
	return &config.Workspace{
		Domain:         "https://acme.atlassian.net",
		Email:          "dev@example.com",
		DefaultProject: "PROJ",
		BaseBranch:     "main",
	}
}

func testApp() AppContext {
	return AppContext{
		IsGitRepo:     true,
		CurrentBranch: "main",
		RepoID:        "acme/widgets",
		WorkspaceName: "acme",
		Workspace:     testWorkspace(),
	}
}

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyUp    = tea.KeyMsg{Type: tea.KeyUp}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyLeft  = tea.KeyMsg{Type: tea.KeyLeft}
	keyRight = tea.KeyMsg{Type: tea.KeyRight}
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}

	keyBackspace = tea.KeyMsg{Type: tea.KeyBackspace}
)

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeString(v childView, s string) {
	for _, r := range s {
		v.Update(keyRunes(string(r)))
	}
}

// errExit stands in for a non-zero exit status from a mocked command.
var errExit = errors.New("exit status 1")

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// plain strips ANSI color codes so views can be asserted on as text.
func plain(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func viewContains(t *testing.T, v childView, substr string) {
	t.Helper()
	if got := plain(v.View(80, 24)); !strings.Contains(got, substr) {
		t.Errorf("view missing %q:\n%s", substr, got)
	}
}
