// SPDX-License-Identifier: MPL-2.0

package ipcmutex

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeLocker simulates endpoint ownership without real sockets so the retry
// policy can be tested quickly on any platform.
type fakeLocker struct {
	mu         sync.Mutex
	held       bool
	stale      bool
	tryCalls   int
	probeCalls int
}

func (f *fakeLocker) TryAcquire(key string) (*Lock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tryCalls++
	if f.held || f.stale {
		return nil, fmt.Errorf("endpoint for %q: %w", key, ErrLockHeld)
	}
	f.held = true
	return &Lock{key: key, close: func() error {
		f.mu.Lock()
		f.held = false
		f.mu.Unlock()
		return nil
	}}, nil
}

func (f *fakeLocker) ProbeStale(string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeCalls++
	if f.stale {
		f.stale = false
		return true, nil
	}
	return false, nil
}

func TestAcquireReclaimsStaleEndpoint(t *testing.T) {
	t.Parallel()

	fake := &fakeLocker{stale: true}
	m := New(t.TempDir(), WithLocker(fake), WithTimeout(time.Second), WithRetryDelay(time.Millisecond))

	lock, err := m.Acquire(context.Background(), "8.0.204~x64~runtime")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lock.Release()

	if fake.probeCalls != 1 {
		t.Errorf("probeCalls = %d, want 1", fake.probeCalls)
	}
	if fake.tryCalls != 2 {
		t.Errorf("tryCalls = %d, want 2 (fail, reclaim, succeed)", fake.tryCalls)
	}
}

func TestAcquireTimesOutAgainstLiveHolder(t *testing.T) {
	t.Parallel()

	fake := &fakeLocker{held: true}
	m := New(t.TempDir(), WithLocker(fake), WithTimeout(30*time.Millisecond), WithRetryDelay(5*time.Millisecond))

	_, err := m.Acquire(context.Background(), "8.0.204~x64~runtime")
	if err == nil {
		t.Fatal("expected timeout")
	}
	if !errors.Is(err, ErrLockTimeout) {
		t.Errorf("error does not unwrap to ErrLockTimeout: %v", err)
	}
	var timeout *LockTimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected *LockTimeoutError, got %T", err)
	}
	if timeout.Key != "8.0.204~x64~runtime" {
		t.Errorf("timeout key = %q", timeout.Key)
	}
}

func TestAcquireHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	fake := &fakeLocker{held: true}
	m := New(t.TempDir(), WithLocker(fake), WithTimeout(time.Minute), WithRetryDelay(5*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := m.Acquire(ctx, "k")
	if err == nil {
		t.Fatal("expected context error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error does not unwrap to context.DeadlineExceeded: %v", err)
	}
}

func TestLockReleaseIdempotent(t *testing.T) {
	t.Parallel()

	closes := 0
	lock := &Lock{key: "k", close: func() error {
		closes++
		return nil
	}}

	lock.Release()
	lock.Release()
	if closes != 1 {
		t.Errorf("close ran %d times, want 1", closes)
	}

	var nilLock *Lock
	nilLock.Release() // must not panic
}

func TestEndpointName(t *testing.T) {
	t.Parallel()

	t.Run("plain keys pass through", func(t *testing.T) {
		t.Parallel()
		if got := endpointName("8.0.204-x64"); got != "8.0.204-x64" {
			t.Errorf("endpointName = %q", got)
		}
	})

	t.Run("unsafe characters force a hash suffix", func(t *testing.T) {
		t.Parallel()
		got := endpointName("8.0.204~x64~runtime")
		if strings.ContainsAny(got, "~/\\:") {
			t.Errorf("unsafe characters survived: %q", got)
		}
		if !strings.HasPrefix(got, "8.0.204_x64_runtime-") {
			t.Errorf("sanitized stem missing: %q", got)
		}
	})

	t.Run("distinct keys stay distinct after sanitization", func(t *testing.T) {
		t.Parallel()
		a := endpointName("8.0.204~x64~runtime")
		b := endpointName("8.0.204/x64/runtime")
		if a == b {
			t.Errorf("collision: %q", a)
		}
	})

	t.Run("long keys stay within the name budget", func(t *testing.T) {
		t.Parallel()
		got := endpointName(strings.Repeat("8.0.204~x64~runtime~global~", 10))
		if len(got) > maxEndpointName {
			t.Errorf("len = %d, want <= %d (%q)", len(got), maxEndpointName, got)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		t.Parallel()
		key := strings.Repeat("verylongkey~", 20)
		if endpointName(key) != endpointName(key) {
			t.Error("same key produced different names")
		}
	})
}
