package shell

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"golang.org/x/sync/semaphore"
)

// Result captures one command execution. It is produced once and never
// retried.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes raw shell strings through /bin/bash. A weighted semaphore
// bounds how many commands run at once so a burst of long-running commands
// cannot exhaust the process.
type Runner struct {
	sem *semaphore.Weighted
}

// NewRunner creates a runner allowing at most maxConcurrent simultaneous
// executions.
func NewRunner(maxConcurrent int64) *Runner {
	return &Runner{sem: semaphore.NewWeighted(maxConcurrent)}
}

// Run executes the command string through the shell and captures its output.
// Stdout and stderr are trimmed of surrounding whitespace. Launch failures are
// reported as ExitCode -1 with the failure text in Stderr; Run never returns
// an error. The context only gates the wait for an execution slot — once
// launched, a command runs to completion.
func (r *Runner) Run(ctx context.Context, command string) Result {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return Result{Stderr: err.Error(), ExitCode: -1}
	}
	defer r.sem.Release(1)

	cmd := exec.Command("/bin/bash", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	res := Result{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.ExitCode = -1
		if res.Stderr == "" {
			res.Stderr = err.Error()
		}
	}

	return res
}
