// SPDX-License-Identifier: MPL-2.0

package acquire

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"dotnetup/internal/config"
	"dotnetup/internal/distro"
	"dotnetup/internal/invoke"
	"dotnetup/internal/ipcmutex"
	"dotnetup/internal/ledger"
	"dotnetup/internal/notify"
	"dotnetup/internal/pathfind"
	"dotnetup/internal/releases"
	"dotnetup/internal/store"
	"dotnetup/pkg/dotver"
	"dotnetup/pkg/platform"

	"github.com/charmbracelet/log"
)

// installsDirName is the state-dir subdirectory engine-managed installs
// live in, one directory per install id.
const installsDirName = "installs"

type (
	// Spec is a caller's request: what flavor of .NET, which version
	// expression, on which architecture, at which scope. It is input only
	// and never persisted.
	Spec struct {
		Version      string
		Mode         dotver.Mode
		Architecture string
		Scope        ledger.Scope
	}

	// installRequest is the resolved, validated form of a Spec handed to
	// the installer.
	installRequest struct {
		InstallID    ledger.InstallID
		Version      string
		Architecture string
		Mode         dotver.Mode
		Root         string
	}

	// installFunc performs one physical install into Root. The default runs
	// the dotnet-install script; tests substitute a recorder.
	installFunc func(ctx context.Context, req installRequest) error

	// VersionListing pairs a published channel with its latest version for
	// the mode a listing was requested for.
	VersionListing struct {
		Channel releases.Channel
		Latest  string
	}

	// Engine composes resolution, locking, installation, validation, and
	// the ownership ledger behind the operation surface callers consume.
	Engine struct {
		settings *config.Settings
		stateDir string
		store    store.Store
		tracker  *ledger.Tracker
		mutex    *ipcmutex.Mutex
		fetcher  *releases.CachedFetcher
		finder   *pathfind.Finder
		runner   invoke.Runner
		scripts  *scriptManager
		notifier notify.Notifier
		logger   *log.Logger

		installer    installFunc
		detectDistro func() (distro.Info, error)
	}

	// Option configures an Engine.
	Option func(*Engine)
)

// withDefaults fills the spec's optional fields: runtime mode, local scope,
// machine architecture.
func (s Spec) withDefaults() Spec {
	if s.Mode == "" {
		s.Mode = dotver.ModeRuntime
	}
	if s.Scope == "" {
		s.Scope = ledger.ScopeLocal
	}
	s.Architecture = platform.NormalizeArch(s.Architecture)
	return s
}

// WithStore replaces the persistent store backing the ledger and the
// metadata cache.
func WithStore(st store.Store) Option {
	return func(e *Engine) { e.store = st }
}

// WithRunner replaces the process runner used for the install script, the
// dotnet host, and package managers.
func WithRunner(r invoke.Runner) Option {
	return func(e *Engine) { e.runner = r }
}

// WithNotifier sets the notification collaborator.
func WithNotifier(n notify.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithLogger sets the engine logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithInstaller replaces the physical install step.
func WithInstaller(fn installFunc) Option {
	return func(e *Engine) { e.installer = fn }
}

// WithDistroDetection replaces distro detection for global installs.
func WithDistroDetection(fn func() (distro.Info, error)) Option {
	return func(e *Engine) { e.detectDistro = fn }
}

// New wires an Engine from settings. Every collaborator has a production
// default; options exist for hosts and tests that need to substitute one.
func New(settings *config.Settings, opts ...Option) (*Engine, error) {
	stateDir := settings.StateDir
	if stateDir == "" {
		var err error
		stateDir, err = config.StateDir()
		if err != nil {
			return nil, fmt.Errorf("determining state dir: %w", err)
		}
	}

	e := &Engine{
		settings:     settings,
		stateDir:     stateDir,
		notifier:     notify.Nop{},
		logger:       log.Default(),
		runner:       invoke.NewExecRunner(),
		detectDistro: distro.Detect,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.store == nil {
		e.store = store.NewFileStore(filepath.Join(stateDir, "state"))
	}

	locksDir := settings.LocksDir
	if locksDir == "" {
		locksDir = ipcmutex.DefaultDir()
	}
	e.mutex = ipcmutex.New(locksDir,
		ipcmutex.WithTimeout(settings.LockTimeout()),
		ipcmutex.WithLogger(e.logger))

	e.fetcher = releases.NewCachedFetcher(e.store,
		releases.WithTTL(settings.CacheTTL()),
		releases.WithProbeURL(settings.ReleasesIndexURL),
		releases.WithFetcherLogger(e.logger))

	e.tracker = ledger.NewTracker(e.store,
		ledger.WithLogger(e.logger),
		ledger.WithRemovalGuard(e.removalGuard))

	e.finder = pathfind.NewFinder(e.runner,
		pathfind.WithOverrideLookup(settings.ExistingPathFor),
		pathfind.WithInstallRoot(settings.InstallRoot),
		pathfind.WithStrictArchitecture(settings.StrictArchitecture),
		pathfind.WithSkipHostRecord(settings.SkipHostRecordLookup),
		pathfind.WithLogger(e.logger))

	e.scripts = newScriptManager(e.fetcher, settings.InstallScriptURL, stateDir, e.logger)
	if e.installer == nil {
		e.installer = e.runInstallScript
	}
	return e, nil
}

// resolver builds a version resolver; filter is nil for unfiltered
// resolution.
func (e *Engine) resolver(filter releases.SupportFilter) *releases.Resolver {
	opts := []releases.ResolverOption{
		releases.WithNotifier(e.notifier),
		releases.WithResolverLogger(e.logger),
	}
	if filter != nil {
		opts = append(opts, releases.WithSupportFilter(filter))
	}
	return releases.NewResolver(e.fetcher, e.settings.ReleasesIndexURL, opts...)
}

// removalGuard is the ledger's UninstallAll hook: each parallel removal
// runs under the same per-install lock acquisitions use.
func (e *Engine) removalGuard(ctx context.Context, id ledger.InstallID) (func(), error) {
	lock, err := e.mutex.Acquire(ctx, id.String())
	if err != nil {
		return nil, err
	}
	return lock.Release, nil
}

// installRoot is the directory a local install of id lives in.
func (e *Engine) installRoot(id ledger.InstallID) string {
	return filepath.Join(e.stateDir, installsDirName, id.String())
}

// Acquire obtains a usable local installation for the spec, installing if
// no owned, intact install exists, and returns the dotnet executable path.
func (e *Engine) Acquire(ctx context.Context, spec Spec, callerID string) (string, error) {
	spec = spec.withDefaults()
	spec.Scope = ledger.ScopeLocal
	w := &worker{engine: e, spec: spec, callerID: callerID}
	return w.run(ctx)
}

// FindPath searches for an existing installation satisfying the spec and
// requirement without installing anything. Not-found is ("", false, nil).
func (e *Engine) FindPath(ctx context.Context, spec Spec, req dotver.Requirement, callerID string) (string, bool, error) {
	spec = spec.withDefaults()
	return e.finder.Find(ctx, pathfind.Query{
		Version:      spec.Version,
		Mode:         spec.Mode,
		Architecture: spec.Architecture,
		Requirement:  req,
	}, callerID)
}

// Status reports the ledger's answer for a spec: the executable path when
// the exact install id is registered and intact, ("", false) otherwise.
// Unlike FindPath it never runs the host; unlike Acquire it never installs.
func (e *Engine) Status(spec Spec) (string, bool, error) {
	spec = spec.withDefaults()
	if !dotver.IsFullySpecified(spec.Version) {
		return "", false, nil
	}
	id := ledger.NewInstallID(spec.Version, spec.Architecture, spec.Mode, spec.Scope)
	rec, found, err := e.tracker.Lookup(id)
	if err != nil || !found {
		return "", false, err
	}
	exe := filepath.Join(rec.Path, platform.HostExecutableName())
	if _, err := os.Stat(exe); err != nil {
		return "", false, nil
	}
	return exe, true, nil
}

// Uninstall detaches callerID from the install, deleting the directory when
// no owners remain (or force is set) and nothing under it is held open.
func (e *Engine) Uninstall(ctx context.Context, id ledger.InstallID, callerID string, force bool) (ledger.Removal, error) {
	canonical, err := id.Normalize()
	if err != nil {
		return ledger.Removal{}, err
	}
	lock, err := e.mutex.Acquire(ctx, canonical.String())
	if err != nil {
		return ledger.Removal{}, err
	}
	defer lock.Release()
	return e.tracker.RemoveOwner(canonical, callerID, force)
}

// UninstallAll force-removes every local install; deferred deletions stay
// registered for a later attempt.
func (e *Engine) UninstallAll(ctx context.Context) ([]ledger.Removal, error) {
	return e.tracker.UninstallAll(ctx)
}

// ListVersions returns the published channels for display, newest first.
// The mode picks which per-channel latest version accompanies each entry.
func (e *Engine) ListVersions(ctx context.Context, mode dotver.Mode) ([]VersionListing, error) {
	channels, err := e.resolver(nil).Channels(ctx)
	if err != nil {
		return nil, err
	}
	listings := make([]VersionListing, len(channels))
	for i, c := range channels {
		listings[i] = VersionListing{Channel: c, Latest: c.LatestFor(mode)}
	}
	return listings, nil
}

// Records exposes the ledger contents for status display.
func (e *Engine) Records() ([]ledger.Record, error) {
	return e.tracker.Records()
}

// Migrate rewrites ledger records persisted by older layouts into the
// current shape.
func (e *Engine) Migrate() error {
	return e.tracker.Migrate()
}
