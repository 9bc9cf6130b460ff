// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"

	"dotnetup/internal/acquire"
	"dotnetup/internal/config"
	"dotnetup/internal/distro"
	"dotnetup/internal/ipcmutex"
	"dotnetup/internal/issue"
	"dotnetup/internal/ledger"
	"dotnetup/internal/releases"

	"github.com/charmbracelet/log"
)

// issueFor maps an engine error to its issue catalog entry, or 0 when no
// guidance applies. Crash-signal reclassification happens in the engine, so
// the missing-dependency check must precede the general execution one.
func issueFor(err error) issue.Id {
	switch {
	case errors.Is(err, releases.ErrVersionResolution):
		return issue.VersionResolutionFailedId
	case errors.Is(err, ipcmutex.ErrLockTimeout):
		return issue.LockTimeoutId
	case errors.Is(err, acquire.ErrMissingNativeDependency):
		return issue.MissingNativeDependencyId
	case errors.Is(err, acquire.ErrInstallExecution):
		return issue.InstallExecutionFailedId
	case errors.Is(err, acquire.ErrInstallValidation):
		return issue.InstallValidationFailedId
	case errors.Is(err, distro.ErrElevationRefused):
		return issue.ElevationRefusedId
	case errors.Is(err, distro.ErrInstallRefused), errors.Is(err, distro.ErrUnsupportedPlatform):
		return issue.UnsupportedDistroId
	case errors.Is(err, ledger.ErrInvalidInstallID), errors.Is(err, ledger.ErrInvalidScope):
		return issue.InvalidInstallIdId
	case errors.Is(err, config.ErrInvalidSettings):
		return issue.ConfigLoadFailedId
	}
	return 0
}

// failWith renders the issue catalog guidance for an error (when one of the
// known failure classes matches) and returns the error wrapped for a
// non-zero exit. RunE handlers return its result directly.
func failWith(err error) error {
	fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))

	if id := issueFor(err); id != 0 {
		if entry := issue.Get(id); entry != nil {
			rendered, renderErr := entry.Render("dark")
			if renderErr != nil {
				log.Warn("failed to render issue catalog entry", "issueID", id, "error", renderErr)
			} else {
				fmt.Fprint(os.Stderr, rendered)
			}
		}
	}

	return &ExitError{Code: 1, Err: err}
}
