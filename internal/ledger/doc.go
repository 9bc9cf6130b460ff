// SPDX-License-Identifier: MPL-2.0

// Package ledger tracks which callers own which .NET installations. Many
// mutually-unaware tools share one physical install; the ledger maps an
// install identity to its owner set so the directory is deleted only when
// the last owner lets go, and never while a running process still holds a
// file inside it open.
//
// The ledger does not lock: callers mutate it while holding the per-install
// ipcmutex lock, which is what keeps concurrent acquisitions from observing
// a half-deleted directory.
package ledger
