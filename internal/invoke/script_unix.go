// SPDX-License-Identifier: MPL-2.0

//go:build unix

package invoke

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// scriptInvocation picks the shell for a script file. The install script
// targets bash but runs under plain sh as well.
func scriptInvocation(scriptPath string) (shell string, args []string, ok bool) {
	if bash, err := lookPath("bash"); err == nil {
		return bash, []string{scriptPath}, true
	}
	if sh, err := lookPath("sh"); err == nil {
		return sh, []string{scriptPath}, true
	}
	return "", nil, false
}

// runScriptEmbedded interprets the script in-process. Containers stripped
// down to a bare dotnet image have no /bin/sh; the embedded interpreter
// keeps acquisition working there.
func runScriptEmbedded(ctx context.Context, spec Spec) (Result, error) {
	script, err := os.ReadFile(spec.Path)
	if err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("reading script %s: %w", spec.Path, err)
	}

	prog, err := syntax.NewParser().Parse(bytes.NewReader(script), spec.Path)
	if err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("parsing script %s: %w", spec.Path, err)
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if spec.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	opts := []interp.RunnerOption{
		interp.Dir(spec.Dir),
		interp.Env(expand.ListEnviron(append(os.Environ(), spec.Env...)...)),
		interp.StdIO(nil, &stdout, &stderr),
	}
	// "--" stops interp.Params from eating script arguments that look like
	// shell options.
	if len(spec.Args) > 0 {
		opts = append(opts, interp.Params(append([]string{"--"}, spec.Args...)...))
	}

	runner, err := interp.New(opts...)
	if err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("creating interpreter: %w", err)
	}

	runErr := runner.Run(runCtx, prog)

	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	result.TimedOut = spec.Timeout > 0 &&
		errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil

	if runErr == nil {
		return result, nil
	}
	var exitStatus interp.ExitStatus
	if errors.As(runErr, &exitStatus) {
		result.ExitCode = int(exitStatus)
		return result, nil
	}
	if result.TimedOut {
		result.ExitCode = -1
		return result, nil
	}
	result.ExitCode = -1
	return result, fmt.Errorf("interpreting script %s: %w", spec.Path, runErr)
}
