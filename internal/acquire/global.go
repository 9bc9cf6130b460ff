// SPDX-License-Identifier: MPL-2.0

package acquire

import (
	"context"
	"os"
	"path/filepath"

	"dotnetup/internal/distro"
	"dotnetup/internal/ledger"
	"dotnetup/pkg/dotver"
	"dotnetup/pkg/platform"
)

// AcquireGlobal obtains a machine-wide SDK through the distro's package
// manager, adopting an already-present SDK instead of reinstalling. Global
// installs are always SDKs; the distro's support policy filters version
// resolution, walking back to older channels when necessary.
func (e *Engine) AcquireGlobal(ctx context.Context, spec Spec, callerID string) (string, error) {
	spec = spec.withDefaults()
	spec.Mode = dotver.ModeSDK
	spec.Scope = ledger.ScopeGlobal

	info, err := e.detectDistro()
	if err != nil {
		return "", err
	}
	provider := distro.ProviderFor(info, e.runner, e.logger)

	rctx, cancel := context.WithTimeout(ctx, e.settings.ResolutionTimeout())
	resolved, err := e.resolver(provider).Resolve(rctx, spec.Version, dotver.ModeSDK)
	cancel()
	if err != nil {
		return "", err
	}
	majorMinor, err := dotver.MajorMinor(resolved)
	if err != nil {
		return "", err
	}

	id := ledger.NewInstallID(resolved, spec.Architecture, dotver.ModeSDK, ledger.ScopeGlobal)

	// Already registered and intact: add the owner and return.
	if rec, found, err := e.tracker.Lookup(id); err != nil {
		return "", err
	} else if found {
		exe := filepath.Join(rec.Path, platform.HostExecutableName())
		if _, statErr := os.Stat(exe); statErr == nil {
			if _, err := e.tracker.AddOwner(id, callerID); err != nil {
				return "", err
			}
			return exe, nil
		}
	}

	lock, err := e.mutex.Acquire(ctx, id.String())
	if err != nil {
		return "", err
	}
	defer lock.Release()

	// A machine-wide SDK someone else installed satisfies the request; it
	// is adopted into the ledger, never reinstalled.
	existing, found, err := provider.ExistingSDK(ctx, majorMinor)
	if err != nil {
		return "", err
	}
	if found {
		return e.adoptGlobal(existing, spec, callerID)
	}

	e.logger.Info("installing machine-wide SDK",
		"channel", majorMinor, "provider", provider.Name())
	if err := provider.InstallSDK(ctx, majorMinor); err != nil {
		return "", err
	}

	existing, found, err = provider.ExistingSDK(ctx, majorMinor)
	if err != nil {
		return "", err
	}
	if !found {
		return "", &InstallationValidationError{
			InstallID: id,
			Root:      "PATH",
			Missing:   "dotnet SDK " + majorMinor,
		}
	}
	return e.adoptGlobal(existing, spec, callerID)
}

// adoptGlobal registers a machine-wide SDK under the id of the version
// actually present, which may be a newer patch than the resolved one.
func (e *Engine) adoptGlobal(existing distro.Existing, spec Spec, callerID string) (string, error) {
	id := ledger.NewInstallID(existing.Version, spec.Architecture, dotver.ModeSDK, ledger.ScopeGlobal)
	if _, err := e.tracker.Register(ledger.Record{
		InstallID:       id,
		ResolvedVersion: existing.Version,
		Mode:            dotver.ModeSDK,
		Scope:           ledger.ScopeGlobal,
		Architecture:    spec.Architecture,
		Path:            filepath.Dir(existing.Path),
	}, callerID); err != nil {
		return "", err
	}
	return existing.Path, nil
}
