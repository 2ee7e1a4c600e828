package jira

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newTestClient points a Client at a httptest server.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "dev@example.com", "token123")
}

func TestCurrentUser(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/2/myself" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "dev@example.com" || pass != "token123" {
			t.Errorf("unexpected basic auth %s/%s", user, pass)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"accountId":   "abc123",
			"displayName": "Dev Eloper",
		})
	}))

	user, err := client.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.DisplayName != "Dev Eloper" {
		t.Errorf("DisplayName = %q", user.DisplayName)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrAuth},
		{http.StatusForbidden, ErrPermission},
		{http.StatusNotFound, ErrNotFound},
	}
	for _, tt := range tests {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			json.NewEncoder(w).Encode(map[string]any{"errorMessages": []string{"nope"}})
		}))

		_, err := client.CurrentUser(context.Background())
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: errors.Is(%v, %v) = false", tt.status, err, tt.want)
		}
	}
}

func TestErrorMessageVerbatim(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"errorMessages": []string{"Field 'summary' is required."},
		})
	}))

	_, err := client.CreateIssue(context.Background(), CreateParams{Project: "PROJ", Type: "Task"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "Field 'summary' is required.") {
		t.Errorf("error should carry server message, got %v", err)
	}
}

func TestIssueNotFoundReturnsNil(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	got, err := client.Issue(context.Background(), "PROJ-999")
	if err != nil {
		t.Fatalf("expected nil error for 404, got %v", err)
	}
	if got != nil {
		t.Errorf("expected nil ticket, got %+v", got)
	}
}

func TestIssueDecodesFields(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"key": "PROJ-7",
			"fields": map[string]any{
				"summary":     "Add login page",
				"description": "Users need to log in.",
				"status":      map[string]string{"name": "To Do"},
				"issuetype":   map[string]string{"name": "Story"},
				"assignee":    map[string]string{"displayName": "Dev Eloper"},
			},
		})
	}))

	got, err := client.Issue(context.Background(), "PROJ-7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Key != "PROJ-7" || got.Summary != "Add login page" ||
		got.Status != "To Do" || got.Type != "Story" || got.Assignee != "Dev Eloper" {
		t.Errorf("unexpected ticket %+v", got)
	}
}

func TestSearchIssues(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("jql"); !strings.Contains(got, "assignee = currentUser()") {
			t.Errorf("unexpected jql %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"issues": []map[string]any{
				{"key": "PROJ-1", "fields": map[string]any{"summary": "a", "status": map[string]string{"name": "To Do"}, "issuetype": map[string]string{"name": "Task"}}},
				{"key": "PROJ-3", "fields": map[string]any{"summary": "b", "status": map[string]string{"name": "To Do"}, "issuetype": map[string]string{"name": "Bug"}}},
			},
		})
	}))

	tickets, err := client.MyIssues(context.Background(), "PROJ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tickets) != 2 {
		t.Fatalf("expected 2 tickets, got %d", len(tickets))
	}
	// MyIssues sorts by key: numeric suffix descending.
	if tickets[0].Key != "PROJ-3" || tickets[1].Key != "PROJ-1" {
		t.Errorf("unexpected order: %s, %s", tickets[0].Key, tickets[1].Key)
	}
}

func TestTransitions(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"transitions": []map[string]any{
				{"id": "21", "name": "Start Progress", "to": map[string]string{"name": "In Progress"}},
				{"id": "31", "name": "Done", "to": map[string]string{"name": "Done"}},
			},
		})
	}))

	transitions, err := client.Transitions(context.Background(), "PROJ-7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(transitions) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(transitions))
	}
	if transitions[0].ID != "21" || transitions[0].ToStatus != "In Progress" {
		t.Errorf("unexpected transition %+v", transitions[0])
	}
}

func TestTransitionTo(t *testing.T) {
	var transitioned string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var body struct {
				Transition struct {
					ID string `json:"id"`
				} `json:"transition"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			transitioned = body.Transition.ID
			w.WriteHeader(http.StatusNoContent)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"transitions": []map[string]any{
				{"id": "21", "name": "Start Progress", "to": map[string]string{"name": "In Progress"}},
			},
		})
	}))

	if err := client.TransitionTo(context.Background(), "PROJ-7", "In Progress"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transitioned != "21" {
		t.Errorf("expected transition 21 to be applied, got %q", transitioned)
	}
}

func TestCreateIssueMovesToSprint(t *testing.T) {
	var sprintMove bool
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/rest/api/2/issue":
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]string{"key": "PROJ-42"})
		case r.URL.Path == "/rest/agile/1.0/sprint/5/issue":
			sprintMove = true
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	key, err := client.CreateIssue(context.Background(), CreateParams{
		Project: "PROJ", Type: "Task", Summary: "New thing", SprintID: 5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "PROJ-42" {
		t.Errorf("key = %q", key)
	}
	if !sprintMove {
		t.Error("expected sprint move call")
	}
}

func TestActiveSprintsSkipsKanbanBoards(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/agile/1.0/board":
			json.NewEncoder(w).Encode(map[string]any{
				"values": []map[string]any{{"id": 1}, {"id": 2}},
			})
		case "/rest/agile/1.0/board/1/sprint":
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{"errorMessages": []string{"board does not support sprints"}})
		case "/rest/agile/1.0/board/2/sprint":
			json.NewEncoder(w).Encode(map[string]any{
				"values": []map[string]any{{"id": 9, "name": "Sprint 9", "state": "active"}},
			})
		}
	}))

	sprints, err := client.ActiveSprints(context.Background(), "PROJ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sprints) != 1 || sprints[0].Name != "Sprint 9" {
		t.Errorf("unexpected sprints %+v", sprints)
	}
}
