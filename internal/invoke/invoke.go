// SPDX-License-Identifier: MPL-2.0

// Package invoke runs external processes for the engine: the dotnet host
// when enumerating installed versions, the install script during
// acquisition, and the distro package manager for machine-wide installs.
// Results carry the exit code, captured output, and the terminating signal
// when there is one; a non-zero exit is data, not an error.
package invoke

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Spec describes one process invocation.
type Spec struct {
	// Path is the executable to run, resolved against PATH when relative.
	Path string
	// Args are the arguments, excluding the executable name.
	Args []string
	// Dir is the working directory; empty means the caller's.
	Dir string
	// Env entries are appended to the inherited environment, KEY=VALUE form.
	Env []string
	// Timeout bounds the run when positive. On expiry the process is killed
	// and Result.TimedOut is set.
	Timeout time.Duration
}

// Result is the outcome of a completed invocation.
type Result struct {
	// ExitCode is the process exit status; -1 when the process was killed
	// before exiting on its own.
	ExitCode int
	// Signal names the terminating signal ("SIGSEGV") when the process died
	// to one, empty otherwise. Always empty on Windows.
	Signal string
	// Stdout and Stderr hold the captured output.
	Stdout string
	Stderr string
	// TimedOut reports that the Spec's timeout killed the process.
	TimedOut bool
}

// Success reports a clean zero exit.
func (r Result) Success() bool { return r.ExitCode == 0 && !r.TimedOut }

// Runner runs external commands. The engine depends on this interface so
// tests can substitute canned results for dotnet, the install script, and
// package managers.
type Runner interface {
	Run(ctx context.Context, spec Spec) (Result, error)
}

// ExecRunner is the real Runner backed by os/exec.
type ExecRunner struct{}

// NewExecRunner returns a Runner that spawns real processes.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run implements Runner. The returned error is reserved for failures to
// start the process at all (missing executable, bad working directory);
// everything after a successful start is reported through Result.
func (r *ExecRunner) Run(ctx context.Context, spec Spec) (Result, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if spec.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), spec.Env...)

	// Cancellation must take down the whole process tree, not just the
	// immediate child: install scripts fork helpers that inherit our output
	// pipes, and a surviving grandchild would keep Run blocked long after the
	// kill. WaitDelay bounds the wait for anything that still refuses to die.
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessTree(cmd) }
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	// The kill arrives via the derived context; expiry of the parent context
	// is the caller's cancellation, not our timeout.
	result.TimedOut = spec.Timeout > 0 &&
		errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil

	if err == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		result.Signal = terminationSignal(exitErr)
		return result, nil
	}

	result.ExitCode = -1
	return result, fmt.Errorf("starting %s: %w", spec.Path, err)
}
