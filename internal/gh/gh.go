// Package gh integrates with GitHub pull requests by shelling out to the
// authenticated gh CLI.
package gh

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/SternPhD/jh/internal/run"
)

// Timeouts for gh calls. gh proxies to the network, so every call gets an
// explicit deadline.
const (
	listTimeout   = 10 * time.Second
	createTimeout = 30 * time.Second
)

// PR is a pull request as reported by gh.
type PR struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"` // "OPEN", "MERGED", "CLOSED"
	URL    string `json:"url"`
	Draft  bool   `json:"isDraft"`
}

// Client runs gh commands in a working directory.
type Client struct {
	// Dir is the directory gh commands run in.
	Dir string

	// Runner executes commands. If nil, uses real exec.
	Runner run.Runner
}

// NewClient creates a gh client for the given directory.
func NewClient(dir string) *Client {
	return &Client{Dir: dir, Runner: &run.ExecRunner{}}
}

// NewClientWithRunner creates a gh client with a custom command runner.
func NewClientWithRunner(dir string, runner run.Runner) *Client {
	return &Client{Dir: dir, Runner: runner}
}

// PRForBranch returns the pull request whose head is the given branch, or
// nil when none exists. An open PR is preferred over closed/merged ones.
func (c *Client) PRForBranch(ctx context.Context, branch string) (*PR, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	stdout, stderr, err := c.Runner.Exec(ctx, c.Dir,
		"gh", "pr", "list",
		"--head", branch,
		"--state", "all",
		"--json", "number,title,state,url,isDraft",
	)
	if err != nil {
		return nil, fmt.Errorf("gh pr list: %s", firstLine(stderr, err))
	}

	var prs []PR
	if err := json.Unmarshal(stdout, &prs); err != nil {
		return nil, fmt.Errorf("parsing gh pr list output: %w", err)
	}
	for i := range prs {
		if prs[i].State == "OPEN" {
			return &prs[i], nil
		}
	}
	if len(prs) > 0 {
		return &prs[0], nil
	}
	return nil, nil
}

// Create files a pull request from the current branch and returns its URL
// (gh prints the URL on stdout).
func (c *Client) Create(ctx context.Context, base, title, body string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, createTimeout)
	defer cancel()

	stdout, stderr, err := c.Runner.Exec(ctx, c.Dir,
		"gh", "pr", "create",
		"--base", base,
		"--title", title,
		"--body", body,
	)
	if err != nil {
		return "", fmt.Errorf("gh pr create: %s", firstLine(stderr, err))
	}
	return strings.TrimSpace(string(stdout)), nil
}

// firstLine extracts a one-line message from stderr, falling back to the
// exec error itself.
func firstLine(stderr []byte, err error) string {
	msg := strings.TrimSpace(string(stderr))
	if msg == "" {
		return err.Error()
	}
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}
