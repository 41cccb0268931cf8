// Package providers contains the stateless adapters that translate between
// the orchestrator and each external provider's management interface. The
// CLI-backed adapters share the Runner abstraction in this package so tests
// can exercise them without shelling out.
package providers

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// RunOptions control one subprocess invocation.
type RunOptions struct {
	// Dir is the working directory, empty for the current one.
	Dir string

	// Env entries are appended to the inherited environment.
	Env []string

	// Stdin is fed to the process, e.g. a secret a CLI reads interactively.
	Stdin string

	// Timeout bounds the invocation when the caller's context carries no
	// deadline.
	Timeout time.Duration
}

// RunResult is the outcome of one subprocess invocation.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes a provider CLI.
type Runner interface {
	Run(ctx context.Context, name string, args []string, opts RunOptions) (*RunResult, error)
}

// ExecRunner runs provider CLIs as local subprocesses.
type ExecRunner struct{}

// NewExecRunner creates a subprocess-backed runner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command, capturing stdout and stderr. A non-zero exit is
// returned as an error alongside the captured result.
func (r *ExecRunner) Run(ctx context.Context, name string, args []string, opts RunOptions) (*RunResult, error) {
	if _, ok := ctx.Deadline(); !ok && opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = opts.Dir
	cmd.Env = append(os.Environ(), opts.Env...)
	if opts.Stdin != "" {
		cmd.Stdin = strings.NewReader(opts.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	log.Debug().Str("cmd", name).Strs("args", args).Msg("running provider command")

	err := cmd.Run()
	result := &RunResult{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}

	log.Debug().
		Str("cmd", name).
		Dur("duration", time.Since(start)).
		Err(err).
		Msg("provider command completed")

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			return result, fmt.Errorf("%s exited with code %d: %s", name, result.ExitCode, result.Stderr)
		}
		result.ExitCode = -1
		return result, fmt.Errorf("failed to run %s: %w", name, err)
	}
	return result, nil
}
