// SPDX-License-Identifier: MPL-2.0

package invoke

import (
	"context"
	"os/exec"
)

//nolint:gochecknoglobals // Test seam for exec.LookPath().
var lookPath = exec.LookPath

// RunScript executes a script file: the platform shell runs it when one is
// available, and on unix hosts without a shell (minimal containers) the
// script runs through the embedded POSIX interpreter instead. Spec.Path is
// the script; Spec.Args become the script's positional parameters.
func (r *ExecRunner) RunScript(ctx context.Context, spec Spec) (Result, error) {
	shell, shellArgs, ok := scriptInvocation(spec.Path)
	if !ok {
		return runScriptEmbedded(ctx, spec)
	}

	shellSpec := spec
	shellSpec.Path = shell
	shellSpec.Args = append(shellArgs, spec.Args...)
	return r.Run(ctx, shellSpec)
}
