// SPDX-License-Identifier: MPL-2.0

package acquire

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"dotnetup/internal/invoke"
	"dotnetup/internal/ledger"
	"dotnetup/pkg/dotver"
	"dotnetup/pkg/platform"
)

// state names one phase of an acquisition, for logging.
type state string

const (
	stateResolving         state = "resolving-version"
	stateCheckingOwnership state = "checking-ownership"
	stateAcquiringLock     state = "acquiring-lock"
	stateInstalling        state = "installing"
	stateValidating        state = "validating"
	stateRegistering       state = "registering"
)

// installAttempts bounds the Installing⇄Validating loop: one install, and
// one retry when validation finds a partial directory.
const installAttempts = 2

// worker drives one local acquisition through the phase sequence. A worker
// is single-use.
type worker struct {
	engine   *Engine
	spec     Spec
	callerID string

	resolved string
	id       ledger.InstallID
}

func (w *worker) enter(s state) {
	w.engine.logger.Debug("acquire", "caller", w.callerID, "id", w.id, "state", s)
}

// run executes the acquisition and returns the dotnet executable path.
func (w *worker) run(ctx context.Context) (string, error) {
	e := w.engine

	w.enter(stateResolving)
	// Fast path: a pinned runtime-class version needs no metadata at all.
	if dotver.IsFullySpecified(w.spec.Version) && w.spec.Mode.IsRuntimeClass() {
		w.resolved = w.spec.Version
	} else {
		if !e.fetcher.Online(ctx) {
			if path, ok, err := w.offlineFallback(); err != nil {
				return "", err
			} else if ok {
				e.notifier.ShowWarning(fmt.Sprintf(
					"offline: using already-installed .NET %s instead of resolving %q",
					w.resolved, w.spec.Version))
				return path, nil
			}
		}
		rctx, cancel := context.WithTimeout(ctx, e.settings.ResolutionTimeout())
		var resolved string
		var err error
		if w.spec.Version == "" {
			// No expression at all: hand out the recommended channel.
			resolved, err = e.resolver(nil).Recommend(rctx, w.spec.Mode)
		} else {
			resolved, err = e.resolver(nil).Resolve(rctx, w.spec.Version, w.spec.Mode)
		}
		cancel()
		if err != nil {
			return "", err
		}
		w.resolved = resolved
	}
	w.id = ledger.NewInstallID(w.resolved, w.spec.Architecture, w.spec.Mode, ledger.ScopeLocal)

	// The common case: the install exists and is intact, so adding an owner
	// is the whole operation. No lock is needed; owner addition is
	// idempotent and the directory is never mutated.
	w.enter(stateCheckingOwnership)
	if path, ok, err := w.ownedIntact(); err != nil {
		return "", err
	} else if ok {
		if _, err := e.tracker.AddOwner(w.id, w.callerID); err != nil {
			return "", err
		}
		return path, nil
	}

	w.enter(stateAcquiringLock)
	lock, err := e.mutex.Acquire(ctx, w.id.String())
	if err != nil {
		return "", err
	}
	defer lock.Release()

	// Re-check under the lock: a concurrent caller may have completed the
	// install while this one was waiting.
	if path, ok, err := w.ownedIntact(); err != nil {
		return "", err
	} else if ok {
		if _, err := e.tracker.AddOwner(w.id, w.callerID); err != nil {
			return "", err
		}
		return path, nil
	}

	root := e.installRoot(w.id)
	for attempt := 1; ; attempt++ {
		w.enter(stateInstalling)
		if err := e.installer(ctx, installRequest{
			InstallID:    w.id,
			Version:      w.resolved,
			Architecture: w.spec.Architecture,
			Mode:         w.spec.Mode,
			Root:         root,
		}); err != nil {
			return "", err
		}

		w.enter(stateValidating)
		missing, ok := validateLayout(root, w.spec.Mode, w.resolved)
		if ok {
			break
		}
		if attempt >= installAttempts {
			return "", &InstallationValidationError{InstallID: w.id, Root: root, Missing: missing}
		}
		e.logger.Warn("install validation failed, reinstalling",
			"id", w.id, "missing", missing)
	}

	w.enter(stateRegistering)
	if _, err := e.tracker.Register(ledger.Record{
		InstallID:       w.id,
		ResolvedVersion: w.resolved,
		Mode:            w.spec.Mode,
		Scope:           ledger.ScopeLocal,
		Architecture:    w.spec.Architecture,
		Path:            root,
	}, w.callerID); err != nil {
		return "", err
	}
	return filepath.Join(root, platform.HostExecutableName()), nil
}

// ownedIntact reports the executable path when a ledger record exists for
// the id and its executable is still physically present.
func (w *worker) ownedIntact() (string, bool, error) {
	rec, found, err := w.engine.tracker.Lookup(w.id)
	if err != nil || !found {
		return "", false, err
	}
	exe := filepath.Join(rec.Path, platform.HostExecutableName())
	if _, err := os.Stat(exe); err != nil {
		return "", false, nil //nolint:nilerr // missing executable means reinstall, not failure
	}
	return exe, true, nil
}

// offlineFallback looks for an already-installed local install matching the
// request's mode and major.minor when the network is unreachable. The
// newest matching patch wins; the caller is registered as an owner.
func (w *worker) offlineFallback() (string, bool, error) {
	majorMinor, err := dotver.MajorMinor(w.spec.Version)
	if err != nil {
		return "", false, nil //nolint:nilerr // unparseable expression has no fallback
	}

	records, err := w.engine.tracker.Records()
	if err != nil {
		return "", false, err
	}

	var best *ledger.Record
	for i, rec := range records {
		if rec.Scope != ledger.ScopeLocal || rec.Mode != w.spec.Mode {
			continue
		}
		if rec.Architecture != w.spec.Architecture {
			continue
		}
		if !dotver.SameMajorMinor(rec.ResolvedVersion, majorMinor) {
			continue
		}
		if _, err := os.Stat(filepath.Join(rec.Path, platform.HostExecutableName())); err != nil {
			continue
		}
		if best == nil {
			best = &records[i]
			continue
		}
		if cmp, err := dotver.Compare(rec.ResolvedVersion, best.ResolvedVersion); err == nil && cmp > 0 {
			best = &records[i]
		}
	}
	if best == nil {
		return "", false, nil
	}

	if _, err := w.engine.tracker.AddOwner(best.InstallID, w.callerID); err != nil {
		return "", false, err
	}
	w.resolved = best.ResolvedVersion
	return filepath.Join(best.Path, platform.HostExecutableName()), true, nil
}

// validateLayout checks the install root for the executable and the
// framework layout the mode requires. The missing entry is returned for
// diagnostics.
func validateLayout(root string, mode dotver.Mode, version string) (missing string, ok bool) {
	exe := filepath.Join(root, platform.HostExecutableName())
	if _, err := os.Stat(exe); err != nil {
		return platform.HostExecutableName(), false
	}

	var marker string
	switch mode {
	case dotver.ModeRuntime:
		marker = filepath.Join("shared", "Microsoft.NETCore.App")
	case dotver.ModeASPNetCore:
		marker = filepath.Join("shared", "Microsoft.AspNetCore.App")
	case dotver.ModeSDK:
		marker = filepath.Join("sdk", version)
	default:
		return string(mode), false
	}
	info, err := os.Stat(filepath.Join(root, marker))
	if err != nil || !info.IsDir() {
		return marker, false
	}
	return "", true
}

// scriptRunner is satisfied by invoke.ExecRunner; hosts substituting a
// plain Runner fall back to direct execution.
type scriptRunner interface {
	RunScript(ctx context.Context, spec invoke.Spec) (invoke.Result, error)
}

// runInstallScript is the default installer: it materializes the
// dotnet-install script and runs it against the target root.
func (e *Engine) runInstallScript(ctx context.Context, req installRequest) error {
	script, err := e.scripts.Ensure(ctx)
	if err != nil {
		return fmt.Errorf("preparing install script: %w", err)
	}

	args := []string{
		"--version", req.Version,
		"--install-dir", req.Root,
		"--architecture", req.Architecture,
	}
	switch req.Mode {
	case dotver.ModeRuntime:
		args = append(args, "--runtime", "dotnet")
	case dotver.ModeASPNetCore:
		args = append(args, "--runtime", "aspnetcore")
	case dotver.ModeSDK:
		// The SDK is the script's default product.
	}

	spec := invoke.Spec{
		Path:    script,
		Args:    args,
		Timeout: e.settings.InstallTimeout(),
	}

	var result invoke.Result
	if sr, ok := e.runner.(scriptRunner); ok {
		result, err = sr.RunScript(ctx, spec)
	} else {
		result, err = e.runner.Run(ctx, spec)
	}
	if err != nil {
		return fmt.Errorf("starting install script: %w", err)
	}
	if result.Success() {
		return nil
	}

	if runtime.GOOS == platform.Linux && invoke.IsNativeCrashSignal(result.Signal) {
		return &MissingNativeDependencyError{InstallID: req.InstallID, Signal: result.Signal}
	}
	return &InstallExecutionError{
		InstallID: req.InstallID,
		ExitCode:  result.ExitCode,
		Stderr:    result.Stderr,
		TimedOut:  result.TimedOut,
	}
}
