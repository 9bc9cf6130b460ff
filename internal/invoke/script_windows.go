// SPDX-License-Identifier: MPL-2.0

//go:build windows

package invoke

import (
	"context"
	"errors"
)

// scriptInvocation picks a PowerShell host for the install script.
func scriptInvocation(scriptPath string) (shell string, args []string, ok bool) {
	for _, candidate := range []string{"pwsh", "powershell"} {
		if path, err := lookPath(candidate); err == nil {
			return path, []string{"-NoProfile", "-ExecutionPolicy", "Bypass", "-File", scriptPath}, true
		}
	}
	return "", nil, false
}

// runScriptEmbedded has no Windows counterpart; PowerShell ships with the
// OS, so a missing host is a broken machine rather than a minimal one.
func runScriptEmbedded(context.Context, Spec) (Result, error) {
	return Result{ExitCode: -1}, errors.New("no PowerShell host found on PATH")
}
