// SPDX-License-Identifier: MPL-2.0

package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// envelope wraps a stored value with its key, so Keys can recover the
// original key from a sanitized filename.
type envelope struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// FileStore keeps one JSON file per key inside a directory. Writes go
// through a temp file in the same directory followed by os.Rename, so a
// reader never observes a half-written record.
type FileStore struct {
	dir string

	mu sync.Mutex // serializes in-process writers
}

// NewFileStore returns a store rooted at dir. The directory is created on
// first write, not here, so constructing a store is side-effect free.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the directory backing the store.
func (s *FileStore) Dir() string { return s.dir }

// Get implements Store.
func (s *FileStore) Get(key string, out any) (bool, error) {
	data, err := os.ReadFile(s.pathFor(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading record %q: %w", key, err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return false, fmt.Errorf("decoding record %q: %w", key, err)
	}
	if err := json.Unmarshal(env.Value, out); err != nil {
		return false, fmt.Errorf("decoding record %q value: %w", key, err)
	}
	return true, nil
}

// Set implements Store.
func (s *FileStore) Set(key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding record %q: %w", key, err)
	}
	data, err := json.Marshal(envelope{Key: key, Value: value})
	if err != nil {
		return fmt.Errorf("encoding record %q: %w", key, err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	// Temp file in the same directory so the final os.Rename is an atomic
	// same-filesystem move.
	tmp, err := os.CreateTemp(s.dir, ".record-*")
	if err != nil {
		return fmt.Errorf("creating temp record: %w", err)
	}
	tmpPath := tmp.Name()
	removeTemp := true
	defer func() {
		if removeTemp {
			_ = os.Remove(tmpPath) // best-effort cleanup on failure
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing record %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing record %q: %w", key, err)
	}
	if err := os.Rename(tmpPath, s.pathFor(key)); err != nil {
		return fmt.Errorf("replacing record %q: %w", key, err)
	}
	removeTemp = false
	return nil
}

// Delete implements Store.
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.pathFor(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting record %q: %w", key, err)
	}
	return nil
}

// Keys implements Store.
func (s *FileStore) Keys(prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing store directory: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue // racing delete
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue // foreign or corrupt file; not ours to report
		}
		if strings.HasPrefix(env.Key, prefix) {
			keys = append(keys, env.Key)
		}
	}
	return keys, nil
}

// pathFor maps a key to its backing file. Keys may contain characters that
// are not filename-safe (URLs, '~' separators), so unsafe runes are
// replaced and a short hash of the full key keeps distinct keys from
// colliding after sanitization.
func (s *FileStore) pathFor(key string) string {
	return filepath.Join(s.dir, sanitizeKey(key)+".json")
}

const maxKeyStem = 80

func sanitizeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	stem := b.String()
	if len(stem) > maxKeyStem {
		stem = stem[:maxKeyStem]
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key)) // hash.Hash never errors
	return fmt.Sprintf("%s-%08x", stem, h.Sum32())
}
