// SPDX-License-Identifier: MPL-2.0

// Package store persists small JSON records for the engine: ledger entries
// and cached metadata documents. Implementations must be safe for use from
// multiple goroutines; cross-process consistency is the caller's problem
// (the engine serializes writers with its install lock).
package store

// Store is a minimal keyed JSON store. Get reports presence via its first
// return so "absent" is not an error.
type Store interface {
	// Get decodes the value stored under key into out. It returns false
	// when the key is absent, leaving out untouched.
	Get(key string, out any) (bool, error)
	// Set encodes v and stores it under key, replacing any previous value.
	Set(key string, v any) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
	// Keys lists stored keys with the given prefix, in unspecified order.
	Keys(prefix string) ([]string, error)
}
