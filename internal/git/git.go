// Package git wraps local repository queries and mutations by shelling out
// to the git CLI through a run.Runner.
package git

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/SternPhD/jh/internal/run"
)

// Repo runs git commands in a working directory.
type Repo struct {
	// Dir is the directory git commands run in.
	Dir string

	// Runner executes commands. If nil, uses real exec.
	Runner run.Runner
}

// NewRepo creates a repo wrapper for the given directory.
func NewRepo(dir string) *Repo {
	return &Repo{Dir: dir, Runner: &run.ExecRunner{}}
}

// NewRepoWithRunner creates a repo wrapper with a custom command runner.
// Useful for testing with mock responses.
func NewRepoWithRunner(dir string, runner run.Runner) *Repo {
	return &Repo{Dir: dir, Runner: runner}
}

// git runs a git command and returns trimmed stdout.
func (r *Repo) git(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"git"}, args...)
	stdout, stderr, err := r.Runner.Exec(ctx, r.Dir, full...)
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("git %s: %s", args[0], msg)
	}
	return strings.TrimSpace(string(stdout)), nil
}

// IsRepo reports whether Dir is inside a git work tree.
func (r *Repo) IsRepo(ctx context.Context) bool {
	out, err := r.git(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// CurrentBranch returns the checked-out branch name.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	return r.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// remotePattern matches the owner/repo tail of both remote URL forms:
// git@github.com:owner/repo.git and https://github.com/owner/repo.git.
var remotePattern = regexp.MustCompile(`[:/]([^/:]+/[^/:]+?)(?:\.git)?$`)

// RepoIdentifier returns "owner/repo" derived from the origin remote URL,
// or an error when there is no origin or the URL is unrecognized.
func (r *Repo) RepoIdentifier(ctx context.Context) (string, error) {
	url, err := r.git(ctx, "remote", "get-url", "origin")
	if err != nil {
		return "", err
	}
	m := remotePattern.FindStringSubmatch(url)
	if m == nil {
		return "", fmt.Errorf("unrecognized remote url: %s", url)
	}
	return m[1], nil
}

// BranchExists reports whether a local branch with the given name exists.
func (r *Repo) BranchExists(ctx context.Context, name string) bool {
	_, err := r.git(ctx, "rev-parse", "--verify", "--quiet", "refs/heads/"+name)
	return err == nil
}

// CreateBranch creates a branch. When base is non-empty the branch starts
// at that ref instead of HEAD.
func (r *Repo) CreateBranch(ctx context.Context, name, base string) error {
	args := []string{"branch", name}
	if base != "" {
		args = append(args, base)
	}
	_, err := r.git(ctx, args...)
	return err
}

// Checkout switches to the named branch.
func (r *Repo) Checkout(ctx context.Context, name string) error {
	_, err := r.git(ctx, "checkout", name)
	return err
}

// Rename renames a local branch.
func (r *Repo) Rename(ctx context.Context, oldName, newName string) error {
	_, err := r.git(ctx, "branch", "-m", oldName, newName)
	return err
}

// ListBranches returns local branch names. The current branch, when known,
// is first.
func (r *Repo) ListBranches(ctx context.Context) ([]string, error) {
	out, err := r.git(ctx, "branch", "--format=%(refname:short)")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	branches := strings.Split(out, "\n")

	current, err := r.CurrentBranch(ctx)
	if err == nil {
		for i, b := range branches {
			if b == current && i != 0 {
				copy(branches[1:i+1], branches[:i])
				branches[0] = current
				break
			}
		}
	}
	return branches, nil
}

// CommitsAhead counts commits on HEAD not reachable from base.
func (r *Repo) CommitsAhead(ctx context.Context, base string) (int, error) {
	out, err := r.git(ctx, "rev-list", "--count", base+"..HEAD")
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("parsing rev-list output %q: %w", out, err)
	}
	return n, nil
}

// CommitsSince returns commit subjects on HEAD since ref, newest first.
func (r *Repo) CommitsSince(ctx context.Context, ref string) ([]string, error) {
	out, err := r.git(ctx, "log", "--format=%s", ref+"..HEAD")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// HasUpstream reports whether the named branch tracks a remote branch.
func (r *Repo) HasUpstream(ctx context.Context, branch string) bool {
	_, err := r.git(ctx, "rev-parse", "--abbrev-ref", "--symbolic-full-name", branch+"@{upstream}")
	return err == nil
}

// Push pushes the branch. With setUpstream it pushes -u origin <branch>;
// if the remote ref already exists it retries as a plain push. A push with
// nothing to update ("everything up-to-date") succeeds.
func (r *Repo) Push(ctx context.Context, branch string, setUpstream bool) error {
	if !setUpstream {
		_, err := r.git(ctx, "push")
		return err
	}
	_, err := r.git(ctx, "push", "-u", "origin", branch)
	if err != nil && strings.Contains(err.Error(), "already exists") {
		_, err = r.git(ctx, "push")
	}
	return err
}
