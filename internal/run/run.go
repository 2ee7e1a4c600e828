// Package run abstracts shell command execution so the git and gh wrappers
// can be tested against a mock runner.
package run

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Runner executes external commands.
// Implementations can be real (exec) or mock (for testing).
type Runner interface {
	// Exec runs a command and returns stdout, stderr, and error.
	Exec(ctx context.Context, workDir string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner executes commands using os/exec.
type ExecRunner struct{}

func (r *ExecRunner) Exec(ctx context.Context, workDir string, args ...string) ([]byte, []byte, error) {
	if len(args) == 0 {
		return nil, nil, fmt.Errorf("no command specified")
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
