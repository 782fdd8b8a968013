package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Command describes one external process invocation
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env entries are appended to the inherited environment and win over it
	Env []string
}

// String renders the command line for logs
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result is the outcome of a process that ran to completion
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Success reports whether the process exited with status zero
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

//go:generate mockgen -destination=../mocks/mock_runner.go -package=mocks github.com/corestress/corestress/pkg/process Runner

// Runner executes a command synchronously. A process that starts and exits
// non-zero is a Result, not an error; errors are reserved for processes that
// could not be started or waited on.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

// NewExecRunner creates a runner backed by os/exec
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run implements Runner
func (r *ExecRunner) Run(ctx context.Context, c Command) (*Result, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	isolateProcessGroup(cmd)
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, fmt.Errorf("failed to run %s in %s: %w", c, c.Dir, err)
	}

	return result, nil
}

// ParseCommand splits a configured command string into a Command. Strings
// using shell operators are handed to sh -c, as are empty ones.
func ParseCommand(command string) Command {
	if strings.ContainsAny(command, "&|;<>$`") {
		return Command{Name: "sh", Args: []string{"-c", command}}
	}

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return Command{Name: "sh", Args: []string{"-c", command}}
	}
	return Command{Name: parts[0], Args: parts[1:]}
}
