// SPDX-License-Identifier: MPL-2.0

// Package ipcmutex provides a named advisory lock that spans unrelated OS
// processes as well as goroutines within one process. Holding the lock means
// owning a live IPC listening endpoint derived from the key: a unix domain
// socket under the lock directory on unix, a named pipe on Windows. There is
// no lock file whose staleness would need guessing; a crashed holder leaves
// at worst a socket artifact that no longer accepts connections, which
// contenders detect by dialing and then reclaim.
package ipcmutex

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// ErrLockHeld is returned by TryAcquire when a live holder owns the
// endpoint.
var ErrLockHeld = errors.New("lock is held")

// ErrLockTimeout is the sentinel wrapped by LockTimeoutError.
var ErrLockTimeout = errors.New("timed out waiting for lock")

// LockTimeoutError reports that a contender gave up waiting. It is distinct
// from installation failures so callers can present it as contention, not
// breakage.
type LockTimeoutError struct {
	Key    string
	Waited time.Duration
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("%v: key %q after %s", ErrLockTimeout, e.Key, e.Waited.Round(time.Millisecond))
}

func (e *LockTimeoutError) Unwrap() error { return ErrLockTimeout }

// Locker is the platform-specific half of the mutex: one non-blocking
// acquisition attempt plus a staleness probe for the losing side. The retry
// policy on top is platform-independent.
type Locker interface {
	// TryAcquire attempts to take the lock without waiting. It returns
	// ErrLockHeld (possibly wrapped) when the endpoint is owned, which may
	// mean a live holder or a stale artifact; ProbeStale distinguishes the
	// two.
	TryAcquire(key string) (*Lock, error)
	// ProbeStale reports whether the endpoint for key is a leftover from a
	// dead holder. A true result means the artifact was cleaned up and the
	// next TryAcquire may succeed.
	ProbeStale(key string) (bool, error)
}

// Lock is a held lock. Release is idempotent and safe on a nil receiver.
type Lock struct {
	key string

	mu    sync.Mutex
	close func() error
}

// Key returns the key the lock was acquired under.
func (l *Lock) Key() string { return l.key }

// Release gives up the lock, closing the underlying endpoint. Subsequent
// calls are no-ops.
func (l *Lock) Release() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.close == nil {
		return
	}
	if err := l.close(); err != nil {
		log.Debug("lock endpoint close failed", "key", l.key, "error", err)
	}
	l.close = nil
}

// Mutex acquires named locks with bounded retries over a platform Locker.
type Mutex struct {
	locker     Locker
	retryDelay time.Duration
	timeout    time.Duration
	logger     *log.Logger
}

// Option configures a Mutex.
type Option func(*Mutex)

// WithRetryDelay sets the pause between acquisition attempts against a live
// holder.
func WithRetryDelay(d time.Duration) Option {
	return func(m *Mutex) { m.retryDelay = d }
}

// WithTimeout sets the overall acquisition deadline.
func WithTimeout(d time.Duration) Option {
	return func(m *Mutex) { m.timeout = d }
}

// WithLogger sets the logger used for acquisition diagnostics.
func WithLogger(logger *log.Logger) Option {
	return func(m *Mutex) { m.logger = logger }
}

// WithLocker replaces the platform Locker. Tests use this to simulate
// contention without real endpoints.
func WithLocker(l Locker) Option {
	return func(m *Mutex) { m.locker = l }
}

const (
	defaultRetryDelay = 100 * time.Millisecond
	defaultTimeout    = 10 * time.Second
)

// New returns a Mutex whose endpoints live under dir (ignored on Windows,
// where pipe names are not filesystem paths).
func New(dir string, opts ...Option) *Mutex {
	m := &Mutex{
		locker:     newPlatformLocker(dir),
		retryDelay: defaultRetryDelay,
		timeout:    defaultTimeout,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TryAcquire attempts one non-blocking acquisition.
func (m *Mutex) TryAcquire(key string) (*Lock, error) {
	return m.locker.TryAcquire(key)
}

// Acquire takes the lock for key, retrying until the context is done or the
// configured timeout elapses, whichever comes first. A stale endpoint is
// reclaimed immediately; a live holder is retried after the retry delay.
func (m *Mutex) Acquire(ctx context.Context, key string) (*Lock, error) {
	start := time.Now()
	deadline := start.Add(m.timeout)

	for {
		lock, err := m.locker.TryAcquire(key)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, ErrLockHeld) {
			return nil, fmt.Errorf("acquiring lock %q: %w", key, err)
		}

		stale, probeErr := m.locker.ProbeStale(key)
		if probeErr != nil {
			m.logger.Debug("lock staleness probe failed", "key", key, "error", probeErr)
		}
		if stale {
			m.logger.Debug("reclaimed stale lock endpoint", "key", key)
			continue
		}

		if time.Now().Add(m.retryDelay).After(deadline) {
			return nil, &LockTimeoutError{Key: key, Waited: time.Since(start)}
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquiring lock %q: %w", key, ctx.Err())
		case <-time.After(m.retryDelay):
		}
	}
}

// DefaultDir returns the directory lock endpoints live under when the host
// does not configure one: the per-user runtime directory when the platform
// provides it, the system temp directory otherwise. Socket paths have a hard
// kernel length limit, so this deliberately prefers short, tmpfs-backed
// locations over the state directory.
func DefaultDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	return os.TempDir()
}

// maxEndpointName bounds the key-derived portion of an endpoint name. Unix
// socket paths top out near 104 bytes including the directory, so long keys
// collapse to a hash. The mapping must be deterministic across processes;
// every contender computes the same name from the same key.
const maxEndpointName = 40

// endpointHash is the deterministic short form of a key: every contender
// computes the same tag from the same key, with no dependence on the
// readable name.
func endpointHash(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

// endpointName converts a lock key into a name safe for socket filenames and
// pipe names.
func endpointName(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := b.String()
	if name == key && len(name) <= maxEndpointName {
		return name
	}
	tag := endpointHash(key)
	if len(name) > maxEndpointName-17 {
		name = name[:maxEndpointName-17]
	}
	return name + "-" + tag
}
