package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Result is what one command invocation produced.
type Result struct {
	Stdout string
	Stderr string
	Err    error
}

// ExitError reports a command that ran but exited nonzero.
type ExitError struct {
	Command string
	Code    int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command %q exited with status %d", e.Command, e.Code)
}

// ExitCode extracts the exit status from err, or -1 if err is not an ExitError.
func ExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return -1
}

// Executor runs a command string and returns its output.
type Executor interface {
	Run(ctx context.Context, cmd string) Result
}

// ShellExecutor runs commands through /bin/sh -c.
type ShellExecutor struct {
	Shell string
}

// NewShellExecutor returns an executor using /bin/sh.
func NewShellExecutor() *ShellExecutor {
	return &ShellExecutor{Shell: "/bin/sh"}
}

// Run executes cmd and waits for it. Cancelling ctx kills the process.
func (s *ShellExecutor) Run(ctx context.Context, cmd string) Result {
	c := exec.CommandContext(ctx, s.Shell, "-c", cmd)

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	res := Result{}
	if err := c.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.Err = &ExitError{Command: cmd, Code: exitErr.ExitCode()}
		} else {
			res.Err = fmt.Errorf("failed to run %q: %w", cmd, err)
		}
	}
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	return res
}
