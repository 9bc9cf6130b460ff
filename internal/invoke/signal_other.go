// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package invoke

import "os/exec"

// terminationSignal has no meaning on platforms without POSIX wait status;
// crashes surface through exit codes instead.
func terminationSignal(*exec.ExitError) string {
	return ""
}

// IsNativeCrashSignal always reports false where signals do not exist.
func IsNativeCrashSignal(string) bool {
	return false
}

// setProcessGroup is a no-op where process groups are not available; Job
// objects would be the Windows equivalent and WaitDelay covers the gap.
func setProcessGroup(*exec.Cmd) {}

func killProcessTree(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
