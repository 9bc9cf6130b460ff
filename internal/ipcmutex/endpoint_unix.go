// SPDX-License-Identifier: MPL-2.0

//go:build unix

package ipcmutex

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// probeDialTimeout bounds the staleness probe. Connecting to a unix socket
// is local and effectively instant; the timeout only guards against
// pathological filesystem states.
const probeDialTimeout = time.Second

// socketLocker owns lock endpoints as unix domain socket listeners. The
// kernel enforces single ownership: a second Listen on the same path fails
// with EADDRINUSE whether the first holder is alive or dead, and dialing
// tells the two cases apart.
type socketLocker struct {
	dir string
}

func newPlatformLocker(dir string) Locker {
	return &socketLocker{dir: dir}
}

// sunPathMax is a conservative bound on the whole socket path. The kernel
// limit on sun_path is 104-108 bytes depending on the platform; staying
// under it is what keeps bind from failing with EINVAL.
const sunPathMax = 100

// socketPath maps a key to its endpoint path, keeping the result under the
// kernel's socket-path limit. A too-long readable name collapses to the pure
// key hash; a lock directory that eats the budget on its own is abandoned
// for a short temp-backed one. Both steps are deterministic, so every
// contender for a key lands on the same path.
func (s *socketLocker) socketPath(key string) string {
	path := filepath.Join(s.dir, "dotnetup-"+endpointName(key)+".sock")
	if len(path) <= sunPathMax {
		return path
	}

	hashed := "dotnetup-" + endpointHash(key) + ".sock"
	if path := filepath.Join(s.dir, hashed); len(path) <= sunPathMax {
		return path
	}
	return filepath.Join(os.TempDir(), "dotnetup-locks", hashed)
}

// TryAcquire implements Locker.
func (s *socketLocker) TryAcquire(key string) (*Lock, error) {
	path := s.socketPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		if errors.Is(err, unix.EADDRINUSE) {
			return nil, fmt.Errorf("endpoint %s: %w", path, ErrLockHeld)
		}
		return nil, fmt.Errorf("listening on %s: %w", path, err)
	}

	// Drain incoming probe connections so contenders' dials complete and the
	// listen backlog never fills during long waits. The goroutine exits when
	// Release closes the listener.
	go func() {
		for {
			conn, acceptErr := listener.Accept()
			if acceptErr != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	// Closing the net.UnixListener also unlinks the socket file.
	return &Lock{key: key, close: listener.Close}, nil
}

// ProbeStale implements Locker. It dials the endpoint: a refused connection
// means the holder died and left the socket file behind, so the artifact is
// removed and the lock is reclaimable. It returns true only once the
// artifact is actually gone.
func (s *socketLocker) ProbeStale(key string) (bool, error) {
	path := s.socketPath(key)

	conn, err := net.DialTimeout("unix", path, probeDialTimeout)
	if err == nil {
		_ = conn.Close() // live holder on the other end
		return false, nil
	}

	switch {
	case errors.Is(err, unix.ECONNREFUSED):
		if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) {
			return false, fmt.Errorf("removing stale endpoint %s: %w", path, removeErr)
		}
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		// Holder released between our failed TryAcquire and this probe.
		return true, nil
	default:
		return false, fmt.Errorf("probing endpoint %s: %w", path, err)
	}
}
