// SPDX-License-Identifier: MPL-2.0

//go:build unix

package ipcmutex

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSocketLockerAcquireRelease(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	locker := &socketLocker{dir: dir}
	const key = "8.0.204~x64~runtime"

	lock, err := locker.TryAcquire(key)
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}

	if _, err := os.Stat(locker.socketPath(key)); err != nil {
		t.Errorf("socket artifact missing while held: %v", err)
	}

	// Second contender loses while the holder is alive.
	if _, err := locker.TryAcquire(key); !errors.Is(err, ErrLockHeld) {
		t.Errorf("second TryAcquire = %v, want ErrLockHeld", err)
	}

	lock.Release()

	if _, err := os.Stat(locker.socketPath(key)); !os.IsNotExist(err) {
		t.Errorf("socket artifact survived release: %v", err)
	}

	relock, err := locker.TryAcquire(key)
	if err != nil {
		t.Fatalf("TryAcquire after release: %v", err)
	}
	relock.Release()
}

func TestSocketLockerProbeLiveHolder(t *testing.T) {
	t.Parallel()

	locker := &socketLocker{dir: t.TempDir()}
	lock, err := locker.TryAcquire("k")
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	defer lock.Release()

	stale, err := locker.ProbeStale("k")
	if err != nil {
		t.Fatalf("ProbeStale: %v", err)
	}
	if stale {
		t.Error("live holder reported stale")
	}
}

func TestSocketLockerReclaimsDeadHolderEndpoint(t *testing.T) {
	t.Parallel()

	locker := &socketLocker{dir: t.TempDir()}
	const key = "dead-holder"
	path := locker.socketPath(key)

	// Simulate a crashed holder: a socket file with no listener behind it.
	// Disabling unlink-on-close leaves the artifact, which is what a killed
	// process produces.
	listener, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	listener.(*net.UnixListener).SetUnlinkOnClose(false)
	if err := listener.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected stale artifact: %v", err)
	}

	if _, err := locker.TryAcquire(key); !errors.Is(err, ErrLockHeld) {
		t.Fatalf("TryAcquire over artifact = %v, want ErrLockHeld", err)
	}

	stale, err := locker.ProbeStale(key)
	if err != nil {
		t.Fatalf("ProbeStale: %v", err)
	}
	if !stale {
		t.Fatal("dead endpoint not reported stale")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("stale artifact not removed")
	}

	lock, err := locker.TryAcquire(key)
	if err != nil {
		t.Fatalf("TryAcquire after reclaim: %v", err)
	}
	lock.Release()
}

func TestAcquireReclaimsStaleEndpointEndToEnd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := New(dir, WithTimeout(2*time.Second), WithRetryDelay(10*time.Millisecond))
	const key = "stale-e2e"

	path := (&socketLocker{dir: dir}).socketPath(key)
	listener, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	listener.(*net.UnixListener).SetUnlinkOnClose(false)
	_ = listener.Close()

	lock, err := m.Acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	lock.Release()
}

func TestAcquireWaitsForHolderRelease(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	holderMutex := New(dir, WithTimeout(2*time.Second), WithRetryDelay(10*time.Millisecond))
	contenderMutex := New(dir, WithTimeout(2*time.Second), WithRetryDelay(10*time.Millisecond))
	const key = "handoff"

	lock, err := holderMutex.Acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("holder Acquire: %v", err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		lock.Release()
	}()

	contenderLock, err := contenderMutex.Acquire(context.Background(), key)
	if err != nil {
		t.Fatalf("contender Acquire: %v", err)
	}
	contenderLock.Release()
}

func TestMutualExclusionAcrossInstances(t *testing.T) {
	t.Parallel()

	// Separate Mutex instances sharing one directory behave like separate
	// processes: only the socket serializes them.
	dir := t.TempDir()
	const key = "critical"
	const workers = 8

	var inCritical atomic.Int32
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m := New(dir, WithTimeout(5*time.Second), WithRetryDelay(5*time.Millisecond))
			lock, err := m.Acquire(context.Background(), key)
			if err != nil {
				errs <- err
				return
			}
			if n := inCritical.Add(1); n != 1 {
				errs <- errors.New("more than one holder inside the critical section")
			}
			time.Sleep(5 * time.Millisecond)
			inCritical.Add(-1)
			lock.Release()
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestIndependentKeysDoNotContend(t *testing.T) {
	t.Parallel()

	m := New(t.TempDir(), WithTimeout(time.Second), WithRetryDelay(10*time.Millisecond))

	first, err := m.Acquire(context.Background(), "8.0.204~x64~runtime")
	if err != nil {
		t.Fatalf("Acquire first: %v", err)
	}
	defer first.Release()

	second, err := m.Acquire(context.Background(), "8.0.204~x64~sdk")
	if err != nil {
		t.Fatalf("Acquire second: %v", err)
	}
	second.Release()
}

func TestSocketPathStaysUnderKernelLimit(t *testing.T) {
	t.Parallel()

	// Distinct keys per case: cases that overflow into the shared fallback
	// directory must not contend with each other.
	tests := []struct {
		name string
		dir  string
		key  string
	}{
		{name: "short dir", dir: t.TempDir(), key: "8.0.204~x64~runtime"},
		{
			name: "long dir collapses name to hash",
			dir: filepath.Join(t.TempDir(),
				strings.Repeat("deeply-nested-component/", 2)+"locks"),
			key: "8.0.204~x64~sdk",
		},
		{
			name: "dir beyond the budget falls back entirely",
			dir:  filepath.Join(t.TempDir(), strings.Repeat("x", 2*sunPathMax)),
			key:  "9.0.0~arm64~aspnetcore",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			key := tt.key
			locker := &socketLocker{dir: tt.dir}
			path := locker.socketPath(key)
			if len(path) > sunPathMax {
				t.Fatalf("socketPath length %d exceeds %d: %s", len(path), sunPathMax, path)
			}

			// Determinism across instances: a second locker over the same
			// directory must contend on the same endpoint.
			other := &socketLocker{dir: tt.dir}
			if otherPath := other.socketPath(key); otherPath != path {
				t.Fatalf("socketPath not deterministic: %s vs %s", path, otherPath)
			}

			lock, err := locker.TryAcquire(key)
			if err != nil {
				t.Fatalf("TryAcquire under %q: %v", tt.dir, err)
			}
			defer lock.Release()

			if _, err := other.TryAcquire(key); !errors.Is(err, ErrLockHeld) {
				t.Errorf("second TryAcquire = %v, want ErrLockHeld", err)
			}
		})
	}
}

func TestAcquireWorksUnderLongLockDirectory(t *testing.T) {
	t.Parallel()

	// Directories deep enough to blow the socket-path budget on their own
	// (long test names routinely produce them) must still yield working
	// locks.
	dir := filepath.Join(t.TempDir(),
		strings.Repeat("a-very-long-path-component/", 5), "locks")
	m := New(dir, WithTimeout(2*time.Second), WithRetryDelay(5*time.Millisecond))

	lock, err := m.Acquire(context.Background(), "8.0.8~x64~runtime")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	lock.Release()
}
