package tui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSetupAdvancesThroughFields(t *testing.T) {
	v := newSetupView(testDeps(t, nil), AppContext{})

	if v.step != setupStepDomain {
		t.Fatalf("initial step = %v", v.step)
	}
	typeString(v, "acme.atlassian.net")
	v.Update(keyEnter)
	if v.step != setupStepEmail {
		t.Errorf("step = %v, want email", v.step)
	}
	typeString(v, "dev@example.com")
	v.Update(keyEnter)
	if v.step != setupStepToken {
		t.Errorf("step = %v, want token", v.step)
	}
}

func TestSetupRequiredFieldRefusesEmpty(t *testing.T) {
	v := newSetupView(testDeps(t, nil), AppContext{})
	v.Update(keyEnter)
	if v.step != setupStepDomain {
		t.Errorf("empty domain advanced to %v", v.step)
	}
}

func TestSetupEscGoesBackPreservingFields(t *testing.T) {
	v := newSetupView(testDeps(t, nil), AppContext{})
	typeString(v, "acme.atlassian.net")
	v.Update(keyEnter)
	typeString(v, "dev@example.com")

	v.Update(keyEsc)
	if v.step != setupStepDomain {
		t.Fatalf("step after esc = %v, want domain", v.step)
	}
	if v.inputs[setupStepDomain].Value() != "acme.atlassian.net" {
		t.Errorf("domain lost: %q", v.inputs[setupStepDomain].Value())
	}
	v.Update(keyEnter)
	if v.inputs[setupStepEmail].Value() != "dev@example.com" {
		t.Errorf("email lost: %q", v.inputs[setupStepEmail].Value())
	}
}

func TestSetupVerifySavesWorkspaceAndToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"accountId": "abc", "displayName": "Dev"})
	}))
	t.Cleanup(srv.Close)

	deps := testDeps(t, nil)
	v := newSetupView(deps, AppContext{RepoID: "acme/widgets"})
	v.inputs[setupStepDomain].SetValue(srv.URL)
	v.inputs[setupStepEmail].SetValue("dev@example.com")
	v.inputs[setupStepToken].SetValue("tok")
	v.inputs[setupStepProject].SetValue("proj")
	v.step = setupStepProject

	cmd := v.Update(keyEnter)
	if v.step != setupStepTesting {
		t.Fatalf("step = %v, want testing", v.step)
	}
	if cmd == nil {
		t.Fatal("enter should return a verify command")
	}

	// Keys are ignored while the check runs.
	v.Update(keyEnter)
	if v.step != setupStepTesting {
		t.Errorf("step moved during verification: %v", v.step)
	}

	msg := cmd().(setupResultMsg)
	if msg.err != nil {
		t.Fatalf("verify: %v", msg.err)
	}
	v.Update(msg)
	if v.step != setupStepDone {
		t.Errorf("step = %v, want done", v.step)
	}

	settings, err := deps.Store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	name := workspaceName(srv.URL)
	ws := settings.Workspace(name)
	if ws == nil {
		t.Fatalf("workspace %q not saved", name)
	}
	if ws.Email != "dev@example.com" || ws.DefaultProject != "PROJ" {
		t.Errorf("saved workspace = %+v", ws)
	}
	if settings.Repos["acme/widgets"] != name {
		t.Errorf("repo mapping = %q, want %q", settings.Repos["acme/widgets"], name)
	}
	tok, err := deps.Store.Token(name)
	if err != nil || tok != "tok" {
		t.Errorf("stored token = %q, %v", tok, err)
	}
}

func TestSetupBadCredentialsShowError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{"errorMessages": []string{"bad token"}})
	}))
	t.Cleanup(srv.Close)

	v := newSetupView(testDeps(t, nil), AppContext{})
	v.inputs[setupStepDomain].SetValue(srv.URL)
	v.inputs[setupStepEmail].SetValue("dev@example.com")
	v.inputs[setupStepToken].SetValue("wrong")
	v.step = setupStepProject

	cmd := v.Update(keyEnter)
	v.Update(cmd())
	if v.step != setupStepError {
		t.Fatalf("step = %v, want error", v.step)
	}
	viewContains(t, v, "bad token")

	// Enter returns to editing with fields intact.
	v.Update(keyEnter)
	if v.step != setupStepDomain {
		t.Errorf("step = %v, want domain", v.step)
	}
	if v.inputs[setupStepToken].Value() != "wrong" {
		t.Errorf("token field lost: %q", v.inputs[setupStepToken].Value())
	}
}

func TestNormalizeDomain(t *testing.T) {
	tests := []struct{ in, want string }{
		{"acme.atlassian.net", "https://acme.atlassian.net"},
		{"https://acme.atlassian.net/", "https://acme.atlassian.net"},
		{"http://localhost:8080", "http://localhost:8080"},
	}
	for _, tt := range tests {
		if got := normalizeDomain(tt.in); got != tt.want {
			t.Errorf("normalizeDomain(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWorkspaceName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://acme.atlassian.net", "acme"},
		{"acme.atlassian.net", "acme"},
		{"", "default"},
	}
	for _, tt := range tests {
		if got := workspaceName(tt.in); got != tt.want {
			t.Errorf("workspaceName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
