// SPDX-License-Identifier: MPL-2.0

package ledger

import (
	"slices"
	"time"

	"dotnetup/pkg/dotver"
)

// Record is the durable state of one installation: its identity, where it
// lives on disk, and the callers that depend on it.
type Record struct {
	InstallID       InstallID   `json:"install_id"`
	ResolvedVersion string      `json:"resolved_version"`
	Mode            dotver.Mode `json:"mode"`
	Scope           Scope       `json:"scope"`
	Architecture    string      `json:"architecture"`
	// Path is the install root; the dotnet executable lives directly under
	// it.
	Path string `json:"path"`
	// Owners is the sorted set of caller ids that acquired this install.
	Owners     []string  `json:"owners"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// HasOwner reports whether callerID is in the owner set.
func (r *Record) HasOwner(callerID string) bool {
	return slices.Contains(r.Owners, callerID)
}

// AddOwner inserts callerID, keeping the set sorted. Adding an existing
// owner is a no-op, which is what makes repeated acquisitions idempotent.
func (r *Record) AddOwner(callerID string) {
	if idx, found := slices.BinarySearch(r.Owners, callerID); !found {
		r.Owners = slices.Insert(r.Owners, idx, callerID)
	}
}

// RemoveOwner deletes callerID from the set. Removing an absent owner is a
// no-op.
func (r *Record) RemoveOwner(callerID string) {
	if idx, found := slices.BinarySearch(r.Owners, callerID); found {
		r.Owners = slices.Delete(r.Owners, idx, idx+1)
	}
}
