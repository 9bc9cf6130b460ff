// SPDX-License-Identifier: MPL-2.0

package ledger

import (
	"errors"
	"fmt"
	"strings"

	"dotnetup/pkg/dotver"
	"dotnetup/pkg/platform"
)

const (
	// ScopeLocal is a per-user install managed entirely by this engine.
	ScopeLocal Scope = "local"
	// ScopeGlobal is a machine-wide install placed by the OS package manager.
	ScopeGlobal Scope = "global"
)

// globalSuffix marks global-scope install ids on the wire.
const globalSuffix = "global"

var (
	// ErrInvalidScope is the sentinel error wrapped by InvalidScopeError.
	ErrInvalidScope = errors.New("invalid install scope")
	// ErrInvalidInstallID is the sentinel error wrapped by InvalidInstallIDError.
	ErrInvalidInstallID = errors.New("invalid install id")
)

type (
	// Scope distinguishes engine-managed per-user installs from machine-wide
	// ones.
	Scope string

	// InvalidScopeError is returned when a Scope value is not recognized.
	InvalidScopeError struct {
		Value Scope
	}

	// InstallID is the canonical identity of one installation:
	// "version~arch~mode", with a trailing "~global" for machine-wide
	// installs. Every component that needs to agree on "the same install" —
	// the lock, the ledger, the install directory name — derives from it.
	InstallID string

	// InvalidInstallIDError is returned when a string does not parse as an
	// InstallID.
	InvalidInstallIDError struct {
		Value  string
		Reason string
	}

	// Identity is a parsed, normalized InstallID.
	Identity struct {
		Version      string
		Architecture string
		Mode         dotver.Mode
		Scope        Scope
	}
)

// Error implements the error interface.
func (e *InvalidScopeError) Error() string {
	return fmt.Sprintf("invalid install scope %q (must be local or global)", string(e.Value))
}

// Unwrap returns ErrInvalidScope for errors.Is() compatibility.
func (e *InvalidScopeError) Unwrap() error { return ErrInvalidScope }

// IsValid returns whether the Scope is one of the recognized values, and a
// list of validation errors if it is not.
func (s Scope) IsValid() (bool, []error) {
	switch s {
	case ScopeLocal, ScopeGlobal:
		return true, nil
	}
	return false, []error{&InvalidScopeError{Value: s}}
}

// ParseScope converts a user-supplied string into a Scope. Empty input
// means local, the overwhelmingly common case.
func ParseScope(s string) (Scope, error) {
	if s == "" {
		return ScopeLocal, nil
	}
	scope := Scope(s)
	if ok, errs := scope.IsValid(); !ok {
		return "", errs[0]
	}
	return scope, nil
}

// Error implements the error interface.
func (e *InvalidInstallIDError) Error() string {
	return fmt.Sprintf("%v: %q: %s", ErrInvalidInstallID, e.Value, e.Reason)
}

// Unwrap returns ErrInvalidInstallID for errors.Is() compatibility.
func (e *InvalidInstallIDError) Unwrap() error { return ErrInvalidInstallID }

// NewInstallID builds the canonical id for an installation. The
// architecture is normalized (empty means the machine default), so two
// callers that spell the machine differently still converge on one id.
func NewInstallID(version, architecture string, mode dotver.Mode, scope Scope) InstallID {
	id := Identity{
		Version:      strings.TrimSpace(version),
		Architecture: platform.NormalizeArch(architecture),
		Mode:         mode,
		Scope:        scope,
	}
	return id.InstallID()
}

// InstallID renders the identity in canonical form.
func (i Identity) InstallID() InstallID {
	parts := []string{i.Version, i.Architecture, string(i.Mode)}
	if i.Scope == ScopeGlobal {
		parts = append(parts, globalSuffix)
	}
	return InstallID(strings.Join(parts, "~"))
}

// String returns the id's wire representation.
func (id InstallID) String() string { return string(id) }

// Parse decomposes an InstallID, accepting the legacy shapes older layouts
// persisted: a bare version (runtime, machine arch, local) and a two-part
// "version~arch" (runtime, local). Whatever the input shape, the returned
// Identity is fully normalized; re-rendering it yields the canonical id.
func (id InstallID) Parse() (Identity, error) {
	parts := strings.Split(string(id), "~")

	ident := Identity{Mode: dotver.ModeRuntime, Scope: ScopeLocal}
	switch len(parts) {
	case 1:
		ident.Version = parts[0]
		ident.Architecture = platform.DefaultArch()
	case 2:
		ident.Version = parts[0]
		ident.Architecture = platform.NormalizeArch(parts[1])
	case 3, 4:
		ident.Version = parts[0]
		ident.Architecture = platform.NormalizeArch(parts[1])
		mode, err := dotver.ParseMode(parts[2])
		if err != nil {
			return Identity{}, &InvalidInstallIDError{Value: string(id), Reason: "unknown mode component"}
		}
		ident.Mode = mode
		if len(parts) == 4 {
			if parts[3] != globalSuffix {
				return Identity{}, &InvalidInstallIDError{Value: string(id), Reason: "unknown scope component"}
			}
			ident.Scope = ScopeGlobal
		}
	default:
		return Identity{}, &InvalidInstallIDError{Value: string(id), Reason: "too many components"}
	}

	if ident.Version == "" {
		return Identity{}, &InvalidInstallIDError{Value: string(id), Reason: "empty version component"}
	}
	return ident, nil
}

// Normalize re-renders an id in canonical form, converting legacy shapes.
func (id InstallID) Normalize() (InstallID, error) {
	ident, err := id.Parse()
	if err != nil {
		return "", err
	}
	return ident.InstallID(), nil
}
