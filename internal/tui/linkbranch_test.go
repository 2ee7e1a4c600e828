package tui

import (
	"testing"

	"github.com/SternPhD/jh/internal/testutil"
	"github.com/SternPhD/jh/internal/ticket"
)

func TestLinkBranchRefusesAlreadyLinked(t *testing.T) {
	app := testApp()
	app.CurrentBranch = "PROJ-7/fix-login"
	app.LinkedTicket = "PROJ-7"

	v := newLinkBranchView(testDeps(t, nil), app)
	v.jira = testJiraClient(t, nil)
	v.Init()

	if v.step != lbStepError {
		t.Fatalf("step = %v, want error", v.step)
	}
	viewContains(t, v, "already linked")
}

func TestLinkBranchRenamesToCarryKey(t *testing.T) {
	app := testApp()
	app.CurrentBranch = "my-feature"

	runner := testutil.NewMockRunner()
	v := newLinkBranchView(testDeps(t, runner), app)
	v.Update(lbLoadedMsg{tickets: []ticket.Ticket{
		{Key: "PROJ-7", Summary: "Fix the login bug", Status: "To Do"},
	}})
	if v.step != lbStepPick {
		t.Fatalf("step = %v, want pick", v.step)
	}

	cmd := v.Update(keyEnter)
	if v.step != lbStepRenaming {
		t.Fatalf("step = %v, want renaming", v.step)
	}
	msg := cmd().(lbRenamedMsg)
	if msg.err != nil {
		t.Fatalf("rename: %v", msg.err)
	}
	if msg.branch != "PROJ-7/my-feature" {
		t.Errorf("branch = %q, want PROJ-7/my-feature", msg.branch)
	}
	if !runner.CalledWith([]string{"git", "branch", "-m", "my-feature", "PROJ-7/my-feature"}) {
		t.Error("rename was not invoked")
	}

	v.Update(msg)
	if v.step != lbStepDone {
		t.Errorf("step = %v, want done", v.step)
	}
	viewContains(t, v, "PROJ-7/my-feature")
}

func TestLinkBranchRenameFailureVerbatim(t *testing.T) {
	runner := testutil.NewMockRunner().
		On([]string{"git", "branch", "-m"}, nil, []byte("fatal: branch already exists"), errExit)
	app := testApp()
	app.CurrentBranch = "my-feature"

	v := newLinkBranchView(testDeps(t, runner), app)
	v.Update(lbLoadedMsg{tickets: []ticket.Ticket{{Key: "PROJ-7", Summary: "x"}}})
	msg := v.Update(keyEnter)().(lbRenamedMsg)
	v.Update(msg)

	if v.step != lbStepError {
		t.Fatalf("step = %v, want error", v.step)
	}
	viewContains(t, v, "branch already exists")
}
