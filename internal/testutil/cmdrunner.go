// Package testutil provides testing utilities for the jh TUI.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/SternPhD/jh/internal/run"
)

// Ensure MockRunner implements run.Runner.
var _ run.Runner = (*MockRunner)(nil)

// MockRunner simulates git/gh command execution for testing.
// It returns pre-configured responses based on command patterns.
type MockRunner struct {
	mu       sync.Mutex
	handlers []handler
	calls    []Call

	// Default response when no handler matches
	DefaultStdout []byte
	DefaultStderr []byte
	DefaultError  error
}

type handler struct {
	match    func(args []string) bool
	response func(args []string) (stdout, stderr []byte, err error)
}

// Call records a command invocation for verification.
type Call struct {
	WorkDir string
	Args    []string
}

// NewMockRunner creates a new mock runner.
func NewMockRunner() *MockRunner {
	return &MockRunner{}
}

// On registers a fixed response for commands matching the given pattern.
// Pattern elements match the command prefix, with "*" as wildcard.
func (m *MockRunner) On(pattern []string, stdout, stderr []byte, err error) *MockRunner {
	return m.OnFunc(pattern, func([]string) ([]byte, []byte, error) {
		return stdout, stderr, err
	})
}

// OnFunc registers a handler with a custom response function.
func (m *MockRunner) OnFunc(pattern []string, fn func(args []string) ([]byte, []byte, error)) *MockRunner {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers = append(m.handlers, handler{
		match: func(args []string) bool {
			return matchArgs(args, pattern)
		},
		response: fn,
	})
	return m
}

// Exec implements run.Runner.
func (m *MockRunner) Exec(ctx context.Context, workDir string, args ...string) ([]byte, []byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{WorkDir: workDir, Args: args})

	// Last registered handler wins
	var h *handler
	for i := len(m.handlers) - 1; i >= 0; i-- {
		if m.handlers[i].match(args) {
			h = &m.handlers[i]
			break
		}
	}
	m.mu.Unlock()

	if h != nil {
		return h.response(args)
	}
	return m.DefaultStdout, m.DefaultStderr, m.DefaultError
}

// Calls returns all recorded command invocations.
func (m *MockRunner) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Call, len(m.calls))
	copy(result, m.calls)
	return result
}

// CalledWith returns true if a command matching the pattern was invoked.
func (m *MockRunner) CalledWith(pattern []string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, call := range m.calls {
		if matchArgs(call.Args, pattern) {
			return true
		}
	}
	return false
}

// CallCount returns the number of calls matching the pattern.
func (m *MockRunner) CallCount(pattern []string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, call := range m.calls {
		if matchArgs(call.Args, pattern) {
			count++
		}
	}
	return count
}

// matchArgs returns true if args matches the pattern.
// Pattern elements must match the args prefix, with "*" as wildcard.
func matchArgs(args, pattern []string) bool {
	if len(args) < len(pattern) {
		return false
	}
	for i, p := range pattern {
		if p != "*" && p != args[i] {
			return false
		}
	}
	return true
}

// String returns a debug representation of the call.
func (c Call) String() string {
	return fmt.Sprintf("%s: %s", c.WorkDir, strings.Join(c.Args, " "))
}
