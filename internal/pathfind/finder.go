// SPDX-License-Identifier: MPL-2.0

package pathfind

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"dotnetup/internal/invoke"
	"dotnetup/pkg/dotver"
	"dotnetup/pkg/platform"

	"github.com/charmbracelet/log"
)

//nolint:gochecknoglobals // Test seams for process environment lookups.
var (
	lookPath = exec.LookPath
	getenv   = os.Getenv
)

type (
	// Query describes what the caller needs an existing installation to
	// provide.
	Query struct {
		// Version is the requested version expression (major, major.minor,
		// or fully pinned).
		Version string
		// Mode selects runtime, aspnetcore, or sdk.
		Mode dotver.Mode
		// Architecture is the required architecture; empty means the machine
		// default.
		Architecture string
		// Requirement is the version predicate candidates are validated
		// against.
		Requirement dotver.Requirement
	}

	// candidate is one executable to validate, tagged with where it came
	// from for diagnostics.
	candidate struct {
		exe    string
		origin string
	}

	// candidateError reports why one candidate was skipped. It never escapes
	// Find; failed candidates are logged and the search moves on.
	candidateError struct {
		Exe      string
		Query    string
		ExitCode int
		Stderr   string
		Err      error
	}

	// Finder searches for usable dotnet executables without installing.
	Finder struct {
		runner invoke.Runner
		// overrideFor returns the configured override executable for a
		// caller, when one is set. Overrides apply to runtime-class requests
		// only.
		overrideFor func(callerID string) (string, bool)
		// installRoot is the root-override directory searched after PATH.
		installRoot string
		// strictArch rejects candidates whose architecture is unreported.
		strictArch bool
		// skipHostRecord disables the platform host-record step.
		skipHostRecord bool
		logger         *log.Logger
	}

	// FinderOption configures a Finder.
	FinderOption func(*Finder)
)

// Error implements the error interface.
func (e *candidateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Exe, e.Query, e.Err)
	}
	return fmt.Sprintf("%s %s: exit %d: %s", e.Exe, e.Query, e.ExitCode, strings.TrimSpace(e.Stderr))
}

// Unwrap returns the underlying error, if any.
func (e *candidateError) Unwrap() error { return e.Err }

// WithOverrideLookup installs the configured-override source (the settings
// layer's caller-specific and shared existing paths).
func WithOverrideLookup(fn func(callerID string) (string, bool)) FinderOption {
	return func(f *Finder) { f.overrideFor = fn }
}

// WithInstallRoot sets the root-override directory.
func WithInstallRoot(dir string) FinderOption {
	return func(f *Finder) { f.installRoot = dir }
}

// WithStrictArchitecture rejects candidates that do not report an
// architecture instead of accepting them.
func WithStrictArchitecture(strict bool) FinderOption {
	return func(f *Finder) { f.strictArch = strict }
}

// WithSkipHostRecord disables the host-record lookup step, which is
// comparatively expensive and unreliable.
func WithSkipHostRecord(skip bool) FinderOption {
	return func(f *Finder) { f.skipHostRecord = skip }
}

// WithLogger sets the logger used for search diagnostics.
func WithLogger(logger *log.Logger) FinderOption {
	return func(f *Finder) { f.logger = logger }
}

// NewFinder returns a Finder that validates candidates by invoking them
// through runner.
func NewFinder(runner invoke.Runner, opts ...FinderOption) *Finder {
	f := &Finder{
		runner: runner,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Find returns the first candidate satisfying the query, searching in
// strict priority order. The boolean result distinguishes "nothing found"
// (false, nil error) from a search that could not run at all.
func (f *Finder) Find(ctx context.Context, q Query, callerID string) (string, bool, error) {
	if ok, errs := q.Mode.IsValid(); !ok {
		return "", false, errs[0]
	}
	if ok, errs := q.Requirement.IsValid(); !ok {
		return "", false, errs[0]
	}

	for _, c := range f.candidates(q, callerID) {
		ok, err := f.validate(ctx, c.exe, q)
		if err != nil {
			f.logger.Debug("skipping path candidate", "exe", c.exe, "origin", c.origin, "error", err)
			continue
		}
		if ok {
			f.logger.Debug("path candidate accepted", "exe", c.exe, "origin", c.origin)
			return c.exe, true, nil
		}
	}
	return "", false, nil
}

// candidates gathers the search list in priority order. Duplicates are kept;
// validation is idempotent and the first hit short-circuits anyway.
func (f *Finder) candidates(q Query, callerID string) []candidate {
	var out []candidate

	// 1. Configured override — runtime-class modes only. The override's
	// contract is "which runtime should hosts run on", never "which SDK to
	// build with".
	if q.Mode.IsRuntimeClass() && f.overrideFor != nil {
		if exe, ok := f.overrideFor(callerID); ok && exe != "" {
			out = append(out, candidate{exe: exe, origin: "configured override"})
		}
	}

	hostExe := platform.HostExecutableName()

	// 2. What a default shell spawn would resolve.
	if exe, err := lookPath(hostExe); err == nil {
		out = append(out, candidate{exe: exe, origin: "shell resolution"})
	}

	// 3. Raw PATH entries, symlink-canonicalized so package-manager layouts
	// (/usr/bin/dotnet -> /usr/share/dotnet/dotnet) validate at their real
	// location.
	for _, dir := range filepath.SplitList(getenv("PATH")) {
		if dir == "" {
			continue
		}
		exe := filepath.Join(dir, hostExe)
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		if info, err := os.Stat(exe); err == nil && !info.IsDir() {
			out = append(out, candidate{exe: exe, origin: "PATH entry"})
		}
	}

	// 4. Root-override directory.
	if f.installRoot != "" {
		out = append(out, candidate{exe: filepath.Join(f.installRoot, hostExe), origin: "install root override"})
	}

	// 5. Platform host records, unless skipped.
	if !f.skipHostRecord {
		for _, root := range hostRecordRoots(platform.NormalizeArch(q.Architecture)) {
			out = append(out, candidate{exe: filepath.Join(root, hostExe), origin: "host record"})
		}
	}

	return out
}

// validate checks one executable against the query's version predicate and
// architecture requirement.
func (f *Finder) validate(ctx context.Context, exe string, q Query) (bool, error) {
	if info, err := os.Stat(exe); err != nil || info.IsDir() {
		return false, nil
	}

	versions, err := installedVersions(ctx, f.runner, exe, q.Mode)
	if err != nil {
		return false, err
	}

	satisfied := false
	if q.Requirement == dotver.RequirementLatestPatch {
		// latestPatch accepts the candidate only through the single newest
		// patch installed in the requested channel; when multiple patches
		// coexist, that is the one the host launches.
		if mm, mmErr := dotver.MajorMinor(q.Version); mmErr == nil {
			if newest, ok := dotver.NewestInMajorMinor(versions, mm); ok {
				satisfied = true
				f.logger.Debug("latest patch selected", "exe", exe, "version", newest)
			}
		}
	} else {
		for _, v := range versions {
			ok, satErr := q.Requirement.Satisfies(v, q.Version)
			if satErr != nil {
				continue
			}
			if ok {
				satisfied = true
				break
			}
		}
	}
	if !satisfied {
		return false, nil
	}

	wantArch := platform.NormalizeArch(q.Architecture)
	reported := reportedArchitecture(ctx, f.runner, exe)
	switch {
	case reported == "":
		// Unreported architecture: acceptable unless the caller opted into
		// strict rejection.
		return !f.strictArch, nil
	case platform.NormalizeArch(reported) == wantArch:
		return true, nil
	default:
		return false, nil
	}
}
