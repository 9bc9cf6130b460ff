// SPDX-License-Identifier: MPL-2.0

package ledger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"dotnetup/internal/store"
	"dotnetup/internal/testutil"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

const (
	// RemovalKept means owners remain, so only the caller was detached.
	RemovalKept RemovalStatus = "kept"
	// RemovalDeleted means the record and its directory are gone.
	RemovalDeleted RemovalStatus = "deleted"
	// RemovalDeferred means a file under the install root is held open by a
	// running process; the record stays for a later attempt. Not an error.
	RemovalDeferred RemovalStatus = "deferred"
	// RemovalNotFound means no record exists for the id. Not an error.
	RemovalNotFound RemovalStatus = "not-found"
)

// ErrUnknownInstall is returned when an operation references an id with no
// ledger record.
var ErrUnknownInstall = errors.New("unknown install id")

// keyPrefix namespaces ledger records inside the shared store.
const keyPrefix = "ledger/"

// uninstallAllParallelism bounds concurrent removals; each removal walks an
// install tree probing files, which is I/O heavy.
const uninstallAllParallelism = 4

type (
	// RemovalStatus describes what RemoveOwner did.
	RemovalStatus string

	// Removal is the outcome of one removal attempt.
	Removal struct {
		InstallID InstallID
		Status    RemovalStatus
		// Path is the install root the removal concerned.
		Path string
		// HeldOpenBy names the file that blocked a deferred deletion.
		HeldOpenBy string
	}

	// InUseProbe reports the first file under root currently held open by a
	// process, if any. The default walks the tree with a platform-specific
	// open probe; tests substitute canned answers.
	InUseProbe func(root string) (string, bool)

	// RemovalGuard is acquired around each removal in UninstallAll. The
	// engine installs the per-install cross-process lock here; the returned
	// func releases it.
	RemovalGuard func(ctx context.Context, id InstallID) (release func(), err error)

	// Tracker is the ownership ledger over a persistent store.
	Tracker struct {
		store  store.Store
		logger *log.Logger
		clock  testutil.Clock
		inUse  InUseProbe
		guard  RemovalGuard

		mu sync.Mutex // serializes in-process record read-modify-write
	}

	// TrackerOption configures a Tracker.
	TrackerOption func(*Tracker)
)

// WithLogger sets the logger used for ledger diagnostics.
func WithLogger(logger *log.Logger) TrackerOption {
	return func(t *Tracker) { t.logger = logger }
}

// WithClock replaces the wall clock used for acquisition timestamps.
func WithClock(clock testutil.Clock) TrackerOption {
	return func(t *Tracker) { t.clock = clock }
}

// WithInUseProbe replaces the open-file probe.
func WithInUseProbe(probe InUseProbe) TrackerOption {
	return func(t *Tracker) { t.inUse = probe }
}

// WithRemovalGuard sets the lock acquired around each UninstallAll removal.
func WithRemovalGuard(guard RemovalGuard) TrackerOption {
	return func(t *Tracker) { t.guard = guard }
}

// NewTracker returns a ledger over st.
func NewTracker(st store.Store, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		store:  st,
		logger: log.Default(),
		clock:  testutil.RealClock{},
		inUse:  fileHeldOpenUnder,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func recordKey(id InstallID) string { return keyPrefix + string(id) }

// Lookup returns the record for id, normalizing legacy id shapes so a
// request spelled the old way still finds the record stored the new way.
func (t *Tracker) Lookup(id InstallID) (*Record, bool, error) {
	canonical, err := id.Normalize()
	if err != nil {
		return nil, false, err
	}
	var rec Record
	found, err := t.store.Get(recordKey(canonical), &rec)
	if err != nil || !found {
		return nil, false, err
	}
	return &rec, true, nil
}

// Register creates or updates the record and adds callerID as an owner.
// Callers invoke it while holding the install's lock.
func (t *Tracker) Register(rec Record, callerID string) (*Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	canonical, err := rec.InstallID.Normalize()
	if err != nil {
		return nil, err
	}
	rec.InstallID = canonical

	existing, found, err := t.Lookup(canonical)
	if err != nil {
		return nil, err
	}
	if found {
		// The identity fields are fixed for the record's lifetime; only the
		// path may be refreshed (a forced reinstall can relocate nothing, but
		// adoption of a global SDK records its real location).
		existing.AddOwner(callerID)
		if rec.Path != "" {
			existing.Path = rec.Path
		}
		if err := t.store.Set(recordKey(canonical), existing); err != nil {
			return nil, fmt.Errorf("persisting record %s: %w", canonical, err)
		}
		return existing, nil
	}

	if rec.AcquiredAt.IsZero() {
		rec.AcquiredAt = t.clock.Now()
	}
	rec.AddOwner(callerID)
	if err := t.store.Set(recordKey(canonical), &rec); err != nil {
		return nil, fmt.Errorf("persisting record %s: %w", canonical, err)
	}
	t.logger.Debug("registered install", "id", canonical, "owner", callerID)
	return &rec, nil
}

// AddOwner appends callerID to an existing record's owner set. Adding an
// owner twice is a no-op.
func (t *Tracker) AddOwner(id InstallID, callerID string) (*Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, found, err := t.Lookup(id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInstall, id)
	}
	rec.AddOwner(callerID)
	if err := t.store.Set(recordKey(rec.InstallID), rec); err != nil {
		return nil, fmt.Errorf("persisting record %s: %w", rec.InstallID, err)
	}
	return rec, nil
}

// RemoveOwner detaches callerID from the record. When the owner set empties
// (or force is set) the physical directory is deleted — unless a file under
// it is held open by a running process, in which case the deletion is
// deferred and the record kept for a later attempt.
func (t *Tracker) RemoveOwner(id InstallID, callerID string, force bool) (Removal, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, found, err := t.Lookup(id)
	if err != nil {
		return Removal{}, err
	}
	if !found {
		canonical, normErr := id.Normalize()
		if normErr != nil {
			return Removal{}, normErr
		}
		return Removal{InstallID: canonical, Status: RemovalNotFound}, nil
	}

	rec.RemoveOwner(callerID)

	if len(rec.Owners) > 0 && !force {
		if err := t.store.Set(recordKey(rec.InstallID), rec); err != nil {
			return Removal{}, fmt.Errorf("persisting record %s: %w", rec.InstallID, err)
		}
		return Removal{InstallID: rec.InstallID, Status: RemovalKept, Path: rec.Path}, nil
	}

	if rec.Path != "" {
		if held, busy := t.inUse(rec.Path); busy {
			// Deleting under a running process would corrupt it mid-use. Keep
			// the record (with the caller already detached) and report the
			// deferral as a non-fatal outcome.
			if err := t.store.Set(recordKey(rec.InstallID), rec); err != nil {
				return Removal{}, fmt.Errorf("persisting record %s: %w", rec.InstallID, err)
			}
			t.logger.Debug("deletion deferred", "id", rec.InstallID, "held_open", held)
			return Removal{InstallID: rec.InstallID, Status: RemovalDeferred, Path: rec.Path, HeldOpenBy: held}, nil
		}
		if err := os.RemoveAll(rec.Path); err != nil {
			return Removal{}, fmt.Errorf("deleting %s: %w", rec.Path, err)
		}
	}

	if err := t.store.Delete(recordKey(rec.InstallID)); err != nil {
		return Removal{}, fmt.Errorf("deleting record %s: %w", rec.InstallID, err)
	}
	t.logger.Debug("install removed", "id", rec.InstallID, "path", rec.Path)
	return Removal{InstallID: rec.InstallID, Status: RemovalDeleted, Path: rec.Path}, nil
}

// Records lists every ledger record.
func (t *Tracker) Records() ([]Record, error) {
	keys, err := t.store.Keys(keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing ledger: %w", err)
	}
	records := make([]Record, 0, len(keys))
	for _, key := range keys {
		var rec Record
		found, err := t.store.Get(key, &rec)
		if err != nil {
			return nil, err
		}
		if found {
			records = append(records, rec)
		}
	}
	return records, nil
}

// UninstallAll force-removes every local-scope record. Deferred deletions
// remain in the ledger for a later attempt; global installs are left alone
// (the engine never deletes what the OS package manager placed). Removals
// run in parallel, each under the removal guard when one is configured.
func (t *Tracker) UninstallAll(ctx context.Context) ([]Removal, error) {
	records, err := t.Records()
	if err != nil {
		return nil, err
	}

	var (
		outMu    sync.Mutex
		removals []Removal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uninstallAllParallelism)

	for _, rec := range records {
		if rec.Scope != ScopeLocal {
			continue
		}
		g.Go(func() error {
			if t.guard != nil {
				release, err := t.guard(gctx, rec.InstallID)
				if err != nil {
					return err
				}
				defer release()
			}
			removal, err := t.RemoveOwner(rec.InstallID, "", true)
			if err != nil {
				return err
			}
			outMu.Lock()
			removals = append(removals, removal)
			outMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return removals, err
	}
	return removals, nil
}

// Migrate rewrites records persisted by older layouts into the current
// shape: legacy two-part ids gain their mode component, and records that
// predate owner tracking get a synthetic "legacy" owner so they are never
// silently deletable.
func (t *Tracker) Migrate() error {
	keys, err := t.store.Keys(keyPrefix)
	if err != nil {
		return fmt.Errorf("listing ledger: %w", err)
	}

	for _, key := range keys {
		storedID := InstallID(key[len(keyPrefix):])
		canonical, err := storedID.Normalize()
		if err != nil {
			t.logger.Warn("skipping unparseable ledger key", "key", key, "error", err)
			continue
		}

		var rec Record
		found, err := t.store.Get(key, &rec)
		if err != nil || !found {
			continue
		}

		changed := false
		if rec.InstallID != canonical {
			ident, _ := canonical.Parse()
			rec.InstallID = canonical
			rec.Mode = ident.Mode
			rec.Scope = ident.Scope
			rec.Architecture = ident.Architecture
			if rec.ResolvedVersion == "" {
				rec.ResolvedVersion = ident.Version
			}
			changed = true
		}
		if len(rec.Owners) == 0 {
			rec.AddOwner("legacy")
			changed = true
		}
		if !changed {
			continue
		}

		if err := t.store.Set(recordKey(canonical), &rec); err != nil {
			return fmt.Errorf("migrating record %s: %w", storedID, err)
		}
		if storedID != canonical {
			if err := t.store.Delete(key); err != nil {
				return fmt.Errorf("removing legacy record %s: %w", storedID, err)
			}
		}
		t.logger.Debug("migrated ledger record", "from", storedID, "to", canonical)
	}
	return nil
}

// fileHeldOpenUnder is the default InUseProbe: walk the tree and ask the
// platform probe about every regular file, stopping at the first one that is
// busy.
func fileHeldOpenUnder(root string) (string, bool) {
	var held string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return nil //nolint:nilerr // unreadable entries cannot be held open by us
		}
		if fileInUse(path) {
			held = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", false
	}
	return held, held != ""
}
