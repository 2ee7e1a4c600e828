// Package config stores jh settings and credentials as two YAML documents
// under the user's config directory. Settings hold workspace definitions
// and repo-to-workspace mappings; credentials hold per-workspace API
// tokens and are written with tighter permissions.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNotFound indicates the settings file does not exist.
	ErrNotFound = errors.New("config file not found")

	// ErrMissingField indicates a required field is missing.
	ErrMissingField = errors.New("missing required field")
)

// Defaults applied during validation.
const (
	DefaultBaseBranch      = "main"
	DefaultMaxBranchLength = 50
)

// Workspace is a named Jira tenant configuration.
type Workspace struct {
	// Domain is the site URL, e.g. "https://acme.atlassian.net".
	Domain         string `yaml:"domain"`
	Email          string `yaml:"email"`
	DefaultProject string `yaml:"default_project,omitempty"`
	BaseBranch     string `yaml:"base_branch,omitempty"`
	// BranchPrefix, when set, is prepended to generated branch names
	// (e.g. "feature/").
	BranchPrefix string `yaml:"branch_prefix,omitempty"`
}

// Defaults are settings applied across workspaces.
type Defaults struct {
	MaxBranchLength int `yaml:"max_branch_length,omitempty"`
}

// Settings is the persisted settings document.
type Settings struct {
	Workspaces map[string]Workspace `yaml:"workspaces"`
	// Repos maps "owner/repo" (or "owner/*" wildcard) to a workspace name.
	Repos    map[string]string `yaml:"repos,omitempty"`
	Defaults Defaults          `yaml:"defaults,omitempty"`
}

// credentials is the persisted secrets document.
type credentials struct {
	Tokens map[string]string `yaml:"tokens"`
}

// ResolveWorkspace maps a repo identifier to a workspace name: exact match
// first, then an "owner/*" wildcard.
func (s *Settings) ResolveWorkspace(repoID string) (string, bool) {
	if name, ok := s.Repos[repoID]; ok {
		return name, true
	}
	if i := strings.IndexByte(repoID, '/'); i > 0 {
		if name, ok := s.Repos[repoID[:i]+"/*"]; ok {
			return name, true
		}
	}
	return "", false
}

// Workspace returns the named workspace, or nil when undefined.
func (s *Settings) Workspace(name string) *Workspace {
	if ws, ok := s.Workspaces[name]; ok {
		return &ws
	}
	return nil
}

// Store reads and writes the settings and credentials documents.
type Store struct {
	// Dir is the directory holding settings.yaml and credentials.yaml.
	Dir string
}

// DefaultStore locates the store under the user config directory
// (~/.config/jh on Linux).
func DefaultStore() *Store {
	base, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return &Store{Dir: filepath.Join(base, "jh")}
}

func (st *Store) settingsPath() string    { return filepath.Join(st.Dir, "settings.yaml") }
func (st *Store) credentialsPath() string { return filepath.Join(st.Dir, "credentials.yaml") }

// Exists reports whether a settings document has been written.
func (st *Store) Exists() bool {
	_, err := os.Stat(st.settingsPath())
	return err == nil
}

// Load reads and validates the settings document, applying defaults for
// optional fields.
func (st *Store) Load() (*Settings, error) {
	data, err := os.ReadFile(st.settingsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, st.settingsPath())
		}
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parsing settings: %w", err)
	}

	if err := validateSettings(&settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Save validates and writes the settings document.
func (st *Store) Save(settings *Settings) error {
	if err := validateSettings(settings); err != nil {
		return err
	}

	if err := os.MkdirAll(st.Dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.WriteFile(st.settingsPath(), data, 0644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}

// validateSettings checks required fields and fills defaults.
func validateSettings(s *Settings) error {
	if s.Workspaces == nil {
		s.Workspaces = make(map[string]Workspace)
	}
	for name, ws := range s.Workspaces {
		if ws.Domain == "" {
			return fmt.Errorf("%w: workspace %q domain", ErrMissingField, name)
		}
		if ws.Email == "" {
			return fmt.Errorf("%w: workspace %q email", ErrMissingField, name)
		}
		if ws.BaseBranch == "" {
			ws.BaseBranch = DefaultBaseBranch
			s.Workspaces[name] = ws
		}
	}
	for repo, target := range s.Repos {
		if _, ok := s.Workspaces[target]; !ok {
			return fmt.Errorf("%w: repo %q maps to undefined workspace %q", ErrMissingField, repo, target)
		}
	}
	if s.Defaults.MaxBranchLength <= 0 {
		s.Defaults.MaxBranchLength = DefaultMaxBranchLength
	}
	return nil
}

// Token returns the stored API token for a workspace, or "" when none is
// stored.
func (st *Store) Token(workspace string) (string, error) {
	creds, err := st.loadCredentials()
	if err != nil {
		return "", err
	}
	return creds.Tokens[workspace], nil
}

// SetToken stores an API token for a workspace.
func (st *Store) SetToken(workspace, token string) error {
	creds, err := st.loadCredentials()
	if err != nil {
		return err
	}
	if creds.Tokens == nil {
		creds.Tokens = make(map[string]string)
	}
	creds.Tokens[workspace] = token
	return st.saveCredentials(creds)
}

func (st *Store) loadCredentials() (*credentials, error) {
	data, err := os.ReadFile(st.credentialsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &credentials{}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}
	var creds credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}
	return &creds, nil
}

func (st *Store) saveCredentials(creds *credentials) error {
	if err := os.MkdirAll(st.Dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}
	// Tokens are secrets; keep them owner-readable only.
	if err := os.WriteFile(st.credentialsPath(), data, 0600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}
