// SPDX-License-Identifier: MPL-2.0

package dotver

import (
	"errors"
	"fmt"
)

const (
	// ModeRuntime installs the base .NET runtime (Microsoft.NETCore.App).
	ModeRuntime Mode = "runtime"
	// ModeASPNetCore installs the ASP.NET Core runtime (Microsoft.AspNetCore.App).
	ModeASPNetCore Mode = "aspnetcore"
	// ModeSDK installs the full SDK, which carries its own runtime.
	ModeSDK Mode = "sdk"
)

// ErrInvalidMode is the sentinel error wrapped by InvalidModeError.
var ErrInvalidMode = errors.New("invalid install mode")

type (
	// Mode identifies which flavor of .NET an installation provides.
	Mode string

	// InvalidModeError is returned when a Mode value is not recognized.
	// It wraps ErrInvalidMode for errors.Is() compatibility.
	InvalidModeError struct {
		Value Mode
	}
)

// Error implements the error interface.
func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid install mode %q (must be runtime, aspnetcore, or sdk)", string(e.Value))
}

// Unwrap returns ErrInvalidMode for errors.Is() compatibility.
func (e *InvalidModeError) Unwrap() error { return ErrInvalidMode }

// IsValid returns whether the Mode is one of the recognized values,
// and a list of validation errors if it is not.
func (m Mode) IsValid() (bool, []error) {
	switch m {
	case ModeRuntime, ModeASPNetCore, ModeSDK:
		return true, nil
	}
	return false, []error{&InvalidModeError{Value: m}}
}

// IsRuntimeClass reports whether the mode installs a runtime rather than an
// SDK. The configured path override only applies to runtime-class modes.
func (m Mode) IsRuntimeClass() bool {
	return m == ModeRuntime || m == ModeASPNetCore
}

// ParseMode converts a user-supplied string into a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if ok, errs := m.IsValid(); !ok {
		return "", errs[0]
	}
	return m, nil
}

// String returns the mode's wire representation.
func (m Mode) String() string { return string(m) }
