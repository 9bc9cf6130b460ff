// SPDX-License-Identifier: MPL-2.0

package store

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// storeUnderTest lets the same behavioral suite run against both
// implementations.
func storeUnderTest(t *testing.T, kind string) Store {
	t.Helper()
	switch kind {
	case "file":
		return NewFileStore(t.TempDir())
	case "mem":
		return NewMemStore()
	default:
		t.Fatalf("unknown store kind %q", kind)
		return nil
	}
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	for _, kind := range []string{"file", "mem"} {
		t.Run(kind, func(t *testing.T) {
			t.Parallel()
			s := storeUnderTest(t, kind)

			if err := s.Set("installs/8.0.204~x64~sdk", record{Name: "sdk", Count: 2}); err != nil {
				t.Fatalf("Set: %v", err)
			}

			var got record
			ok, err := s.Get("installs/8.0.204~x64~sdk", &got)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if !ok {
				t.Fatal("Get reported absent for a stored key")
			}
			if got.Name != "sdk" || got.Count != 2 {
				t.Errorf("Get = %+v, want {sdk 2}", got)
			}
		})
	}
}

func TestStoreAbsentKey(t *testing.T) {
	t.Parallel()

	for _, kind := range []string{"file", "mem"} {
		t.Run(kind, func(t *testing.T) {
			t.Parallel()
			s := storeUnderTest(t, kind)

			var got record
			ok, err := s.Get("missing", &got)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if ok {
				t.Error("Get reported present for an absent key")
			}
			if got != (record{}) {
				t.Errorf("Get mutated out for an absent key: %+v", got)
			}
		})
	}
}

func TestStoreSetReplaces(t *testing.T) {
	t.Parallel()

	for _, kind := range []string{"file", "mem"} {
		t.Run(kind, func(t *testing.T) {
			t.Parallel()
			s := storeUnderTest(t, kind)

			if err := s.Set("k", record{Count: 1}); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := s.Set("k", record{Count: 2}); err != nil {
				t.Fatalf("Set: %v", err)
			}

			var got record
			if _, err := s.Get("k", &got); err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Count != 2 {
				t.Errorf("Count = %d, want 2", got.Count)
			}
		})
	}
}

func TestStoreDelete(t *testing.T) {
	t.Parallel()

	for _, kind := range []string{"file", "mem"} {
		t.Run(kind, func(t *testing.T) {
			t.Parallel()
			s := storeUnderTest(t, kind)

			if err := s.Set("k", record{}); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := s.Delete("k"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			var got record
			ok, err := s.Get("k", &got)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if ok {
				t.Error("key still present after Delete")
			}

			// Deleting again is not an error.
			if err := s.Delete("k"); err != nil {
				t.Errorf("Delete of absent key: %v", err)
			}
		})
	}
}

func TestStoreKeysPrefix(t *testing.T) {
	t.Parallel()

	for _, kind := range []string{"file", "mem"} {
		t.Run(kind, func(t *testing.T) {
			t.Parallel()
			s := storeUnderTest(t, kind)

			for _, k := range []string{"cache/a", "cache/b", "installs/x"} {
				if err := s.Set(k, record{}); err != nil {
					t.Fatalf("Set(%q): %v", k, err)
				}
			}

			keys, err := s.Keys("cache/")
			if err != nil {
				t.Fatalf("Keys: %v", err)
			}
			sort.Strings(keys)
			want := []string{"cache/a", "cache/b"}
			if len(keys) != len(want) {
				t.Fatalf("Keys = %v, want %v", keys, want)
			}
			for i := range want {
				if keys[i] != want[i] {
					t.Errorf("Keys[%d] = %q, want %q", i, keys[i], want[i])
				}
			}
		})
	}
}

func TestFileStoreDistinctKeysSameSanitization(t *testing.T) {
	t.Parallel()

	// Both keys sanitize to the same stem; the hash suffix must keep their
	// files apart.
	s := NewFileStore(t.TempDir())
	if err := s.Set("a/b", record{Count: 1}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set("a~b", record{Count: 2}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var first, second record
	if _, err := s.Get("a/b", &first); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := s.Get("a~b", &second); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first.Count != 1 || second.Count != 2 {
		t.Errorf("records collided: %+v / %+v", first, second)
	}
}

func TestFileStoreLongKey(t *testing.T) {
	t.Parallel()

	s := NewFileStore(t.TempDir())
	long := "https://builds.dotnet.microsoft.com/dotnet/release-metadata/releases-index.json?" + strings.Repeat("x", 200)
	if err := s.Set(long, record{Count: 7}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var got record
	ok, err := s.Get(long, &got)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.Count != 7 {
		t.Errorf("Count = %d, want 7", got.Count)
	}

	// The backing filename stays within a sane length.
	entries, err := os.ReadDir(s.Dir())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if len(e.Name()) > maxKeyStem+len(".json")+16 {
			t.Errorf("backing file name too long: %s", filepath.Base(e.Name()))
		}
	}
}

func TestFileStoreConstructionIsSideEffectFree(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "state")
	s := NewFileStore(dir)
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatal("constructor created the directory")
	}

	// Reads against a store that never wrote behave as empty.
	keys, err := s.Keys("")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("Keys = %v, want empty", keys)
	}

	// First write creates it.
	if err := s.Set("k", record{}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("directory missing after first write: %v", err)
	}
}
