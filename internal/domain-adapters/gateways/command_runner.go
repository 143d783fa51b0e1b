package gateways

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// CommandRunner runs an external tool and captures its output
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) *ExecuteResult
}

// ExecuteResult contains the result of a command execution
type ExecuteResult struct {
	Success  bool
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	Error    error
}

// Err returns nil on success, or an error carrying the exit code and stderr
func (r *ExecuteResult) Err() error {
	if r.Success {
		return nil
	}
	if r.Stderr != "" {
		return fmt.Errorf("%w (exit %d): %s", r.Error, r.ExitCode, r.Stderr)
	}
	return fmt.Errorf("%w (exit %d)", r.Error, r.ExitCode)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct {
	defaultTimeout time.Duration
}

// NewExecRunner creates a runner with a per-command timeout
func NewExecRunner(timeout time.Duration) *ExecRunner {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &ExecRunner{defaultTimeout: timeout}
}

// Run executes name with args. Failures are reported in the result, never panicked.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) *ExecuteResult {
	startTime := time.Now()
	result := &ExecuteResult{}

	execCtx, cancel := context.WithTimeout(ctx, r.defaultTimeout)
	defer cancel()

	//nolint:gosec // G204: Tool paths come from settings
	cmd := exec.CommandContext(execCtx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result.Duration = time.Since(startTime)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		result.Error = err
		var exitErr *exec.ExitError
		//nolint:gocritic // ifElseChain: checking different error types, not suitable for switch
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			result.Error = fmt.Errorf("%s timed out after %v", name, r.defaultTimeout)
			result.ExitCode = -1
		} else if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
		return result
	}

	result.Success = true
	return result
}
