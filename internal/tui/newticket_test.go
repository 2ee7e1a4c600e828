package tui

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/SternPhD/jh/internal/jira"
	"github.com/SternPhD/jh/internal/testutil"
)

func loadedNewTicket(t *testing.T, sprints []jira.Sprint) *newTicketView {
	t.Helper()
	v := newNewTicketView(testDeps(t, nil), testApp())
	v.step = ntStepLoadingMeta
	v.Update(ntMetaMsg{
		types: []jira.IssueType{
			{ID: "1", Name: "Task"},
			{ID: "2", Name: "Bug"},
		},
		sprints: sprints,
	})
	if v.step != ntStepType {
		t.Fatalf("step = %v, want type", v.step)
	}
	return v
}

func TestNewTicketSprintStepSkippedWithoutSprints(t *testing.T) {
	v := loadedNewTicket(t, nil)

	v.Update(keyEnter) // type: Task
	typeString(v, "Fix login")
	v.Update(keyEnter) // title done
	v.Update(keyTab)   // description done

	if v.step != ntStepConfirm {
		t.Errorf("step = %v, want confirm (sprint step skipped)", v.step)
	}
}

func TestNewTicketSprintListEndsWithSkip(t *testing.T) {
	v := loadedNewTicket(t, []jira.Sprint{
		{ID: 11, Name: "Sprint 4", State: "active"},
		{ID: 12, Name: "Sprint 5", State: "active"},
	})

	v.Update(keyEnter)
	typeString(v, "Fix login")
	v.Update(keyEnter)
	v.Update(keyTab)

	if v.step != ntStepSprint {
		t.Fatalf("step = %v, want sprint", v.step)
	}
	if v.sprPick.cursor != 0 {
		t.Errorf("sprint cursor = %d, want 0", v.sprPick.cursor)
	}
	last := v.sprPick.items[len(v.sprPick.items)-1]
	if last != "Skip" {
		t.Errorf("last sprint entry = %q, want Skip", last)
	}

	// Selecting Skip produces no sprint ID.
	v.sprPick.Update(keyUp) // wraps to the last entry
	v.Update(keyEnter)
	if got := v.chosenSprintID(); got != 0 {
		t.Errorf("sprint ID with Skip selected = %d, want 0", got)
	}
}

func TestNewTicketEscWalksBackPreservingFields(t *testing.T) {
	v := loadedNewTicket(t, nil)

	v.Update(keyDown)  // select Bug
	v.Update(keyEnter) // to title
	typeString(v, "Crash on start")
	v.Update(keyEnter) // to description
	typeString(v, "details")

	v.Update(keyEsc) // back to title
	if v.step != ntStepTitle {
		t.Fatalf("step = %v, want title", v.step)
	}
	if v.title.Value() != "Crash on start" {
		t.Errorf("title after esc = %q", v.title.Value())
	}

	v.Update(keyEsc) // back to type
	if v.step != ntStepType {
		t.Fatalf("step = %v, want type", v.step)
	}
	if v.chosenType().Name != "Bug" {
		t.Errorf("type selection lost, got %q", v.chosenType().Name)
	}

	// Walking forward again keeps the earlier input.
	v.Update(keyEnter)
	if v.title.Value() != "Crash on start" {
		t.Errorf("title lost on re-entry: %q", v.title.Value())
	}
	if v.desc.Value() != "details" {
		t.Errorf("description lost: %q", v.desc.Value())
	}
}

func TestNewTicketConfirmShowsSummary(t *testing.T) {
	v := loadedNewTicket(t, nil)
	v.Update(keyEnter)
	typeString(v, "Fix login")
	v.Update(keyEnter)
	v.Update(keyTab)

	want := []string{"Create and start work", "Create ticket", "Back"}
	if len(v.confirm.options) != len(want) {
		t.Fatalf("confirm options = %v", v.confirm.options)
	}
	for i, opt := range want {
		if v.confirm.options[i] != opt {
			t.Errorf("option[%d] = %q, want %q", i, v.confirm.options[i], opt)
		}
	}
	viewContains(t, v, "PROJ")
	viewContains(t, v, "Fix login")
}

func TestNewTicketConfirmOutsideRepoOmitsStartWork(t *testing.T) {
	app := testApp()
	app.IsGitRepo = false

	v := newNewTicketView(testDeps(t, nil), app)
	v.step = ntStepLoadingMeta
	v.Update(ntMetaMsg{types: []jira.IssueType{{ID: "1", Name: "Task"}}})

	v.Update(keyEnter)
	typeString(v, "Fix login")
	v.Update(keyEnter)
	v.Update(keyTab)

	if len(v.confirm.options) != 2 || v.confirm.options[0] != "Create ticket" || v.confirm.options[1] != "Back" {
		t.Errorf("confirm options = %v", v.confirm.options)
	}
}

func TestNewTicketCreateAndStartWork(t *testing.T) {
	runner := testutil.NewMockRunner().
		On([]string{"git", "rev-parse", "--verify"}, nil, nil, errExit)

	v := newNewTicketView(testDeps(t, runner), testApp())
	v.jira = testJiraClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"key": "PROJ-99"})
	}))
	v.step = ntStepLoadingMeta
	v.Update(ntMetaMsg{types: []jira.IssueType{{ID: "1", Name: "Task"}}})

	v.Update(keyEnter)
	typeString(v, "Fix login")
	v.Update(keyEnter)
	v.Update(keyTab)

	cmd := v.Update(keyEnter) // "Create and start work" sits first
	if v.step != ntStepCreating {
		t.Fatalf("step = %v, want creating", v.step)
	}
	msg := cmd().(ntCreatedMsg)
	if msg.err != nil {
		t.Fatalf("create: %v", msg.err)
	}
	if msg.branch != "PROJ-99/fix-login" {
		t.Errorf("branch = %q, want PROJ-99/fix-login", msg.branch)
	}
	if !runner.CalledWith([]string{"git", "branch", "PROJ-99/fix-login", "main"}) {
		t.Error("branch was not created from main")
	}
	if !runner.CalledWith([]string{"git", "checkout", "PROJ-99/fix-login"}) {
		t.Error("branch was not checked out")
	}

	v.Update(msg)
	if v.step != ntStepDone {
		t.Fatalf("step = %v, want done", v.step)
	}
	viewContains(t, v, "on branch PROJ-99/fix-login")
}

func TestNewTicketBranchFailureReportedNotFatal(t *testing.T) {
	runner := testutil.NewMockRunner().
		On([]string{"git", "rev-parse", "--verify"}, nil, nil, errExit).
		On([]string{"git", "branch"}, nil, []byte("fatal: cannot create branch"), errExit)

	v := newNewTicketView(testDeps(t, runner), testApp())
	v.jira = testJiraClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"key": "PROJ-99"})
	}))
	v.step = ntStepLoadingMeta
	v.Update(ntMetaMsg{types: []jira.IssueType{{ID: "1", Name: "Task"}}})

	v.Update(keyEnter)
	typeString(v, "Fix login")
	v.Update(keyEnter)
	v.Update(keyTab)

	msg := v.Update(keyEnter)().(ntCreatedMsg)
	if msg.err != nil {
		t.Fatalf("create should succeed: %v", msg.err)
	}
	if msg.branchErr == nil {
		t.Fatal("branch failure should be reported")
	}

	v.Update(msg)
	if v.step != ntStepDone {
		t.Fatalf("step = %v, want done despite branch failure", v.step)
	}
	viewContains(t, v, "Branch setup failed")
}

func TestNewTicketIgnoresInputWhileCreating(t *testing.T) {
	v := loadedNewTicket(t, nil)
	v.step = ntStepCreating

	if cmd := v.Update(keyEnter); cmd != nil {
		t.Error("enter during creation should do nothing")
	}
	v.Update(ntMetaMsg{})
	if v.step != ntStepCreating {
		t.Errorf("stale meta moved step to %v", v.step)
	}
}

func TestNewTicketDoneShowsKey(t *testing.T) {
	v := loadedNewTicket(t, nil)
	v.step = ntStepCreating
	v.Update(ntCreatedMsg{key: "PROJ-99"})

	if v.step != ntStepDone {
		t.Fatalf("step = %v, want done", v.step)
	}
	viewContains(t, v, "PROJ-99")

	cmd := v.Update(keyEnter)
	if cmd == nil {
		t.Fatal("enter on done should navigate")
	}
	nav := cmd().(navigateMsg)
	if nav.to != viewMain || !nav.refresh {
		t.Errorf("navigation = %+v, want refreshed main", nav)
	}
}

func TestNewTicketCreateErrorVerbatim(t *testing.T) {
	v := loadedNewTicket(t, nil)
	v.step = ntStepCreating
	v.Update(ntCreatedMsg{err: errExit})

	if v.step != ntStepError {
		t.Fatalf("step = %v, want error", v.step)
	}
	viewContains(t, v, "exit status 1")
}
