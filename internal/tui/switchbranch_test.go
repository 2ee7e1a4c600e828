package tui

import (
	"testing"

	"github.com/SternPhD/jh/internal/gh"
	"github.com/SternPhD/jh/internal/testutil"
	"github.com/SternPhD/jh/internal/ticket"
)

func TestSwitchBranchAnnotatesTicketsAndPRs(t *testing.T) {
	v := newSwitchBranchView(testDeps(t, nil), testApp())
	v.Update(sbLoadedMsg{
		branches: []string{"main", "PROJ-7/fix-the-login-bug", "scratch"},
		info: map[string]ticket.Ticket{
			"PROJ-7": {Key: "PROJ-7", Status: "In Progress"},
		},
		prs: map[string]gh.PR{
			"PROJ-7/fix-the-login-bug": {Number: 12, State: "OPEN"},
		},
	})

	if v.step != sbStepPick {
		t.Fatalf("step = %v, want pick", v.step)
	}
	viewContains(t, v, "* main")
	viewContains(t, v, "PROJ-7: In Progress")
	viewContains(t, v, "[PR #12 open]")
}

func TestSwitchBranchCheckoutNavigatesHome(t *testing.T) {
	runner := testutil.NewMockRunner()
	v := newSwitchBranchView(testDeps(t, runner), testApp())
	v.Update(sbLoadedMsg{branches: []string{"main", "scratch"}})

	v.Update(keyDown)
	cmd := v.Update(keyEnter)
	if v.step != sbStepSwitching {
		t.Fatalf("step = %v, want switching", v.step)
	}
	msg := cmd().(sbSwitchedMsg)
	if msg.err != nil {
		t.Fatalf("checkout: %v", msg.err)
	}
	if !runner.CalledWith([]string{"git", "checkout", "scratch"}) {
		t.Error("checkout was not invoked")
	}

	nav := v.Update(msg)
	if nav == nil {
		t.Fatal("successful checkout should navigate")
	}
	got := nav().(navigateMsg)
	if got.to != viewMain || !got.refresh {
		t.Errorf("navigation = %+v, want refreshed main", got)
	}
}

func TestSwitchBranchToCurrentIsANoop(t *testing.T) {
	runner := testutil.NewMockRunner()
	v := newSwitchBranchView(testDeps(t, runner), testApp())
	v.Update(sbLoadedMsg{branches: []string{"main", "scratch"}})

	cmd := v.Update(keyEnter) // cursor on current branch
	if cmd == nil {
		t.Fatal("selecting the current branch should navigate back")
	}
	if got := cmd().(navigateMsg); got.to != viewMain {
		t.Errorf("navigation = %+v", got)
	}
	if runner.CalledWith([]string{"git", "checkout"}) {
		t.Error("no checkout should run for the current branch")
	}
}

func TestSwitchBranchCheckoutFailureShowsError(t *testing.T) {
	runner := testutil.NewMockRunner().
		On([]string{"git", "checkout"}, nil, []byte("error: your local changes would be overwritten"), errExit)
	v := newSwitchBranchView(testDeps(t, runner), testApp())
	v.Update(sbLoadedMsg{branches: []string{"main", "scratch"}})

	v.Update(keyDown)
	msg := v.Update(keyEnter)().(sbSwitchedMsg)
	v.Update(msg)

	if v.step != sbStepError {
		t.Fatalf("step = %v, want error", v.step)
	}
	viewContains(t, v, "local changes")
}
