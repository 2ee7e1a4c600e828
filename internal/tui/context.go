package tui

import (
	"context"
	"time"

	"github.com/SternPhD/jh/internal/config"
	"github.com/SternPhD/jh/internal/gh"
	"github.com/SternPhD/jh/internal/git"
	"github.com/SternPhD/jh/internal/jira"
	"github.com/SternPhD/jh/internal/ticket"
)

// Deps bundles the external collaborators every view works against.
type Deps struct {
	Store *config.Store
	Repo  *git.Repo
	GH    *gh.Client
}

// AppContext is a read-only snapshot of where the user currently is:
// repo identity, branch, linked ticket, resolved workspace. It is
// recomputed on demand and owned by the router.
type AppContext struct {
	IsGitRepo     bool
	CurrentBranch string
	RepoID        string
	WorkspaceName string
	Workspace     *config.Workspace
	// LinkedTicket is the ticket key parsed out of CurrentBranch, or "".
	LinkedTicket string
	CommitsAhead int
	// MaxBranchLength is the configured slug budget for generated branch
	// names, 0 when no settings were loaded.
	MaxBranchLength int
}

// ResolveContext builds an AppContext. It never fails: any collaborator
// error degrades the affected fields to their zero values.
func ResolveContext(ctx context.Context, deps Deps) AppContext {
	var app AppContext

	if !deps.Repo.IsRepo(ctx) {
		return app
	}
	app.IsGitRepo = true

	if branch, err := deps.Repo.CurrentBranch(ctx); err == nil {
		app.CurrentBranch = branch
		app.LinkedTicket = ticket.KeyFromBranch(branch)
	}
	if repoID, err := deps.Repo.RepoIdentifier(ctx); err == nil {
		app.RepoID = repoID
	}

	settings, err := deps.Store.Load()
	if err != nil {
		return app
	}
	app.MaxBranchLength = settings.Defaults.MaxBranchLength
	if app.RepoID != "" {
		if name, ok := settings.ResolveWorkspace(app.RepoID); ok {
			app.WorkspaceName = name
			app.Workspace = settings.Workspace(name)
		}
	}

	if app.Workspace != nil {
		if n, err := deps.Repo.CommitsAhead(ctx, app.Workspace.BaseBranch); err == nil {
			app.CommitsAhead = n
		}
	}
	return app
}

// JiraClient builds a Jira client for the snapshot's workspace, or nil when
// no workspace (or no stored token) is available.
func (d Deps) JiraClient(app AppContext) *jira.Client {
	if app.Workspace == nil {
		return nil
	}
	token, err := d.Store.Token(app.WorkspaceName)
	if err != nil || token == "" {
		return nil
	}
	return jira.NewClient(app.Workspace.Domain, app.Workspace.Email, token)
}

// BaseBranch returns the configured base branch, defaulting when no
// workspace is resolved.
func (app AppContext) BaseBranch() string {
	if app.Workspace != nil && app.Workspace.BaseBranch != "" {
		return app.Workspace.BaseBranch
	}
	return config.DefaultBaseBranch
}

// MaxBranchLen returns the slug budget for generated branch names,
// defaulting when no settings were loaded.
func (app AppContext) MaxBranchLen() int {
	if app.MaxBranchLength > 0 {
		return app.MaxBranchLength
	}
	return config.DefaultMaxBranchLength
}

// opTimeout bounds every background git/Jira/gh operation a view runs.
const opTimeout = 30 * time.Second
