// Package jira wraps the Jira Cloud REST API: issue search and creation,
// transitions, and sprint lookup. Calls authenticate with email + API token
// over basic auth.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SternPhD/jh/internal/ticket"
)

// Sentinel errors classifying API failures.
var (
	ErrAuth       = errors.New("authentication failed")
	ErrPermission = errors.New("permission denied")
	ErrNotFound   = errors.New("not found")
)

// APIError carries the server's error message verbatim.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("jira: %s (HTTP %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("jira: HTTP %d", e.StatusCode)
}

// Unwrap maps status codes onto the sentinel errors so callers can use
// errors.Is for classification.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrAuth
	case http.StatusForbidden:
		return ErrPermission
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// Client talks to one Jira Cloud site.
type Client struct {
	// BaseURL is the site root, e.g. "https://acme.atlassian.net".
	BaseURL string
	Email   string
	Token   string

	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client
}

// NewClient creates a client for the given site.
func NewClient(baseURL, email, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Email:      email,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// User identifies the authenticated Jira account.
type User struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"emailAddress"`
}

// Project is a Jira project reference.
type Project struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// IssueType is an issue type available in a project.
type IssueType struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subtask bool   `json:"subtask"`
}

// Sprint is an agile sprint.
type Sprint struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}

// CreateParams describes a new issue.
type CreateParams struct {
	Project     string
	Type        string
	Summary     string
	Description string
	// SprintID, when non-zero, moves the issue into that sprint after
	// creation.
	SprintID int
}

// do issues a request and decodes the JSON response into out (out may be
// nil). Non-2xx responses become *APIError with the body's error message.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.Email, c.Token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("jira: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: decodeErrorMessage(resp)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// decodeErrorMessage pulls the error text out of Jira's error envelope
// ({"errorMessages":[...],"errors":{...}}).
func decodeErrorMessage(resp *http.Response) string {
	var envelope struct {
		ErrorMessages []string          `json:"errorMessages"`
		Errors        map[string]string `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return ""
	}
	var parts []string
	parts = append(parts, envelope.ErrorMessages...)
	for field, msg := range envelope.Errors {
		parts = append(parts, field+": "+msg)
	}
	return strings.Join(parts, "; ")
}

// TestConnection verifies the credentials by fetching the current user.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.CurrentUser(ctx)
	return err
}

// CurrentUser returns the authenticated user.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/rest/api/2/myself", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// issueJSON mirrors the fields we read from Jira's issue representation.
type issueJSON struct {
	Key    string `json:"key"`
	Fields struct {
		Summary     string `json:"summary"`
		Description string `json:"description"`
		Status      struct {
			Name string `json:"name"`
		} `json:"status"`
		IssueType struct {
			Name string `json:"name"`
		} `json:"issuetype"`
		Assignee *struct {
			DisplayName string `json:"displayName"`
		} `json:"assignee"`
		Sprint *struct {
			Name string `json:"name"`
		} `json:"sprint"`
	} `json:"fields"`
}

func (ij issueJSON) ticket() ticket.Ticket {
	t := ticket.Ticket{
		Key:         ij.Key,
		Summary:     ij.Fields.Summary,
		Status:      ij.Fields.Status.Name,
		Type:        ij.Fields.IssueType.Name,
		Description: ij.Fields.Description,
	}
	if ij.Fields.Assignee != nil {
		t.Assignee = ij.Fields.Assignee.DisplayName
	}
	if ij.Fields.Sprint != nil {
		t.Sprint = ij.Fields.Sprint.Name
	}
	return t
}

// Issue fetches a single issue by key. A missing issue returns (nil, nil).
func (c *Client) Issue(ctx context.Context, key string) (*ticket.Ticket, error) {
	var ij issueJSON
	err := c.do(ctx, http.MethodGet, "/rest/api/2/issue/"+key, nil, nil, &ij)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	t := ij.ticket()
	return &t, nil
}

// SearchIssues runs a JQL query and returns the matching issues.
func (c *Client) SearchIssues(ctx context.Context, jql string) ([]ticket.Ticket, error) {
	query := url.Values{}
	query.Set("jql", jql)
	query.Set("maxResults", "50")
	query.Set("fields", "summary,description,status,issuetype,assignee")

	var result struct {
		Issues []issueJSON `json:"issues"`
	}
	if err := c.do(ctx, http.MethodGet, "/rest/api/2/search", query, nil, &result); err != nil {
		return nil, err
	}
	tickets := make([]ticket.Ticket, len(result.Issues))
	for i, ij := range result.Issues {
		tickets[i] = ij.ticket()
	}
	return tickets, nil
}

// MyIssues returns unresolved issues assigned to the current user in the
// given project, newest keys first.
func (c *Client) MyIssues(ctx context.Context, project string) ([]ticket.Ticket, error) {
	jql := fmt.Sprintf("project = %s AND assignee = currentUser() AND resolution = Unresolved ORDER BY updated DESC", project)
	tickets, err := c.SearchIssues(ctx, jql)
	if err != nil {
		return nil, err
	}
	ticket.SortTickets(tickets)
	return tickets, nil
}

// ChildIssues returns the children of the given parent issue.
func (c *Client) ChildIssues(ctx context.Context, parentKey string) ([]ticket.Ticket, error) {
	return c.SearchIssues(ctx, fmt.Sprintf("parent = %s ORDER BY key ASC", parentKey))
}

// Projects lists projects visible to the user.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.do(ctx, http.MethodGet, "/rest/api/2/project", nil, nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// IssueTypes returns the non-subtask issue types for a project.
func (c *Client) IssueTypes(ctx context.Context, project string) ([]IssueType, error) {
	query := url.Values{}
	query.Set("projectKeys", project)
	query.Set("expand", "projects.issuetypes")

	var result struct {
		Projects []struct {
			IssueTypes []IssueType `json:"issuetypes"`
		} `json:"projects"`
	}
	if err := c.do(ctx, http.MethodGet, "/rest/api/2/issue/createmeta", query, nil, &result); err != nil {
		return nil, err
	}
	if len(result.Projects) == 0 {
		return nil, nil
	}
	var types []IssueType
	for _, it := range result.Projects[0].IssueTypes {
		if !it.Subtask {
			types = append(types, it)
		}
	}
	return types, nil
}

// ActiveSprints returns the active sprints on the project's boards.
func (c *Client) ActiveSprints(ctx context.Context, project string) ([]Sprint, error) {
	query := url.Values{}
	query.Set("projectKeyOrId", project)

	var boards struct {
		Values []struct {
			ID int `json:"id"`
		} `json:"values"`
	}
	if err := c.do(ctx, http.MethodGet, "/rest/agile/1.0/board", query, nil, &boards); err != nil {
		return nil, err
	}

	var sprints []Sprint
	for _, board := range boards.Values {
		var result struct {
			Values []Sprint `json:"values"`
		}
		path := fmt.Sprintf("/rest/agile/1.0/board/%d/sprint", board.ID)
		sq := url.Values{}
		sq.Set("state", "active")
		if err := c.do(ctx, http.MethodGet, path, sq, nil, &result); err != nil {
			// Boards without sprint support (kanban) 400 here; skip them.
			continue
		}
		sprints = append(sprints, result.Values...)
	}
	return sprints, nil
}

// CreateIssue creates an issue and returns its key. When params.SprintID is
// set the issue is moved into that sprint; a failure there does not fail
// the creation.
func (c *Client) CreateIssue(ctx context.Context, params CreateParams) (string, error) {
	body := map[string]any{
		"fields": map[string]any{
			"project":     map[string]string{"key": params.Project},
			"issuetype":   map[string]string{"name": params.Type},
			"summary":     params.Summary,
			"description": params.Description,
		},
	}

	var created struct {
		Key string `json:"key"`
	}
	if err := c.do(ctx, http.MethodPost, "/rest/api/2/issue", nil, body, &created); err != nil {
		return "", err
	}

	if params.SprintID != 0 {
		path := fmt.Sprintf("/rest/agile/1.0/sprint/%d/issue", params.SprintID)
		move := map[string]any{"issues": []string{created.Key}}
		// Best effort: the issue exists either way.
		_ = c.do(ctx, http.MethodPost, path, nil, move, nil)
	}
	return created.Key, nil
}

// Transitions returns the legal transitions for an issue.
func (c *Client) Transitions(ctx context.Context, key string) ([]ticket.Transition, error) {
	var result struct {
		Transitions []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			To   struct {
				Name string `json:"name"`
			} `json:"to"`
		} `json:"transitions"`
	}
	if err := c.do(ctx, http.MethodGet, "/rest/api/2/issue/"+key+"/transitions", nil, nil, &result); err != nil {
		return nil, err
	}
	transitions := make([]ticket.Transition, len(result.Transitions))
	for i, tr := range result.Transitions {
		transitions[i] = ticket.Transition{ID: tr.ID, Name: tr.Name, ToStatus: tr.To.Name}
	}
	return transitions, nil
}

// TransitionIssue applies a transition to an issue.
func (c *Client) TransitionIssue(ctx context.Context, key, transitionID string) error {
	body := map[string]any{
		"transition": map[string]string{"id": transitionID},
	}
	return c.do(ctx, http.MethodPost, "/rest/api/2/issue/"+key+"/transitions", nil, body, nil)
}

// TransitionTo finds a transition whose destination status matches name
// (case-insensitive) and applies it. Used for the best-effort "In Progress"
// move after starting work on a ticket.
func (c *Client) TransitionTo(ctx context.Context, key, statusName string) error {
	transitions, err := c.Transitions(ctx, key)
	if err != nil {
		return err
	}
	for _, tr := range transitions {
		if strings.EqualFold(tr.ToStatus, statusName) || strings.EqualFold(tr.Name, statusName) {
			return c.TransitionIssue(ctx, key, tr.ID)
		}
	}
	return fmt.Errorf("no transition to %q for %s", statusName, key)
}
