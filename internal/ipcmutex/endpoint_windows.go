// SPDX-License-Identifier: MPL-2.0

//go:build windows

package ipcmutex

import (
	"errors"
	"fmt"

	"github.com/Microsoft/go-winio"
	"golang.org/x/sys/windows"
)

// pipePrefix namespaces the mutex endpoints in the machine-global pipe
// namespace.
const pipePrefix = `\\.\pipe\dotnetup-`

// pipeLocker owns lock endpoints as named pipe servers. Pipe names are
// kernel objects that vanish with their last server handle, so a crashed
// holder cannot leave a stale artifact; staleness handling is a no-op.
type pipeLocker struct{}

func newPlatformLocker(string) Locker {
	// Pipe names are not filesystem paths; the directory is unused.
	return &pipeLocker{}
}

func pipePath(key string) string {
	return pipePrefix + endpointName(key)
}

// TryAcquire implements Locker. Creating the first pipe instance fails with
// ERROR_ACCESS_DENIED when another server already owns the name.
func (p *pipeLocker) TryAcquire(key string) (*Lock, error) {
	path := pipePath(key)
	listener, err := winio.ListenPipe(path, nil)
	if err != nil {
		if errors.Is(err, windows.ERROR_ACCESS_DENIED) || errors.Is(err, windows.ERROR_PIPE_BUSY) {
			return nil, fmt.Errorf("endpoint %s: %w", path, ErrLockHeld)
		}
		return nil, fmt.Errorf("listening on %s: %w", path, err)
	}
	return &Lock{key: key, close: listener.Close}, nil
}

// ProbeStale implements Locker. The kernel reclaims pipe names when their
// holder exits, so an owned name always means a live holder.
func (p *pipeLocker) ProbeStale(string) (bool, error) {
	return false, nil
}
