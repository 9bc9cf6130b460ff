// SPDX-License-Identifier: MPL-2.0

//go:build unix

package invoke

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcessGroup puts the child in its own process group so a timeout kill
// reaches every descendant, not just the direct child.
func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// killProcessTree signals the child's process group. The negative pid
// addresses the group as a whole; if that fails (the child died before
// forming its group), killing the lone process is the fallback.
func killProcessTree(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	if err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL); err != nil {
		return cmd.Process.Kill()
	}
	return nil
}

// terminationSignal names the signal that killed the process, or returns ""
// for a normal exit.
func terminationSignal(exitErr *exec.ExitError) string {
	ws, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return ""
	}
	return unix.SignalName(unix.Signal(ws.Signal()))
}

// nativeCrashSignals are the terminations that indicate the executed binary
// could not run on this host rather than that it chose to fail: the loader
// or the process itself died on a missing or incompatible native library.
var nativeCrashSignals = map[string]bool{
	"SIGABRT": true,
	"SIGBUS":  true,
	"SIGFPE":  true,
	"SIGILL":  true,
	"SIGSEGV": true,
}

// IsNativeCrashSignal reports whether a termination signal belongs to the
// crash class that install failure handling treats as a missing native
// dependency.
func IsNativeCrashSignal(signal string) bool {
	return nativeCrashSignals[signal]
}
