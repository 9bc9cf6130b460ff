// SPDX-License-Identifier: MPL-2.0

//go:build unix

package ledger

import (
	"os"

	"golang.org/x/sys/unix"
)

// fileInUse probes whether another process holds path in a way that makes
// deletion unsafe. Unix lets an unlinked file live on until its last open
// handle closes, so plain opens never block deletion; the probe only
// respects advisory locks, which is what cooperating engine processes take
// while executing out of an install.
func fileInUse(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		// Unreadable for us means undeletable checks are moot; let RemoveAll
		// surface the real error.
		return false
	}
	defer func() { _ = f.Close() }()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return true
	}
	_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
	return false
}
