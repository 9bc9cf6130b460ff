// SPDX-License-Identifier: MPL-2.0

package acquire

import (
	"errors"
	"fmt"
	"strings"

	"dotnetup/internal/ledger"
)

var (
	// ErrInstallExecution is the sentinel error wrapped by
	// InstallExecutionError.
	ErrInstallExecution = errors.New("install execution failed")
	// ErrMissingNativeDependency is the sentinel error wrapped by
	// MissingNativeDependencyError.
	ErrMissingNativeDependency = errors.New("missing native dependency")
	// ErrInstallValidation is the sentinel error wrapped by
	// InstallationValidationError.
	ErrInstallValidation = errors.New("installation validation failed")
)

type (
	// InstallExecutionError reports an installer that ran but did not
	// succeed: non-zero exit, unexpected termination, or timeout.
	InstallExecutionError struct {
		InstallID ledger.InstallID
		ExitCode  int
		Stderr    string
		TimedOut  bool
	}

	// MissingNativeDependencyError is the reclassification of an install
	// failure whose termination signal indicates absent shared libraries
	// rather than an installer bug.
	MissingNativeDependencyError struct {
		InstallID ledger.InstallID
		Signal    string
	}

	// InstallationValidationError reports an install root that does not
	// have the executable and framework layout the requested mode needs.
	InstallationValidationError struct {
		InstallID ledger.InstallID
		Root      string
		Missing   string
	}
)

// Error implements the error interface.
func (e *InstallExecutionError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("%v: %s: installer timed out", ErrInstallExecution, e.InstallID)
	}
	return fmt.Sprintf("%v: %s: exit %d: %s", ErrInstallExecution, e.InstallID, e.ExitCode, strings.TrimSpace(e.Stderr))
}

// Unwrap returns ErrInstallExecution for errors.Is() compatibility.
func (e *InstallExecutionError) Unwrap() error { return ErrInstallExecution }

// Error implements the error interface.
func (e *MissingNativeDependencyError) Error() string {
	return fmt.Sprintf("%v: %s: installer died with %s", ErrMissingNativeDependency, e.InstallID, e.Signal)
}

// Unwrap returns ErrMissingNativeDependency for errors.Is() compatibility.
func (e *MissingNativeDependencyError) Unwrap() error { return ErrMissingNativeDependency }

// Error implements the error interface.
func (e *InstallationValidationError) Error() string {
	return fmt.Sprintf("%v: %s: %s missing under %s", ErrInstallValidation, e.InstallID, e.Missing, e.Root)
}

// Unwrap returns ErrInstallValidation for errors.Is() compatibility.
func (e *InstallationValidationError) Unwrap() error { return ErrInstallValidation }
