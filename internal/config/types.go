// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultReleasesIndexURL is the official .NET release metadata index.
	DefaultReleasesIndexURL = "https://builds.dotnet.microsoft.com/dotnet/release-metadata/releases-index.json"
	// DefaultInstallScriptURL is where the install script is fetched from
	// when the on-disk cache is cold.
	DefaultInstallScriptURL = "https://builds.dotnet.microsoft.com/dotnet/scripts/v1/dotnet-install.sh"
	// DefaultInstallScriptURLWindows is the PowerShell variant.
	DefaultInstallScriptURLWindows = "https://builds.dotnet.microsoft.com/dotnet/scripts/v1/dotnet-install.ps1"
)

var (
	// ErrInvalidCacheSettings is the sentinel error wrapped by InvalidCacheSettingsError.
	ErrInvalidCacheSettings = errors.New("invalid cache settings")
	// ErrInvalidTimeoutSettings is the sentinel error wrapped by InvalidTimeoutSettingsError.
	ErrInvalidTimeoutSettings = errors.New("invalid timeout settings")
	// ErrInvalidExistingPathEntry is the sentinel error wrapped by InvalidExistingPathEntryError.
	ErrInvalidExistingPathEntry = errors.New("invalid existing path entry")
	// ErrInvalidSettings is the sentinel error wrapped by InvalidSettingsError.
	ErrInvalidSettings = errors.New("invalid settings")
)

type (
	// Settings holds everything the host configures about the engine.
	Settings struct {
		// ReleasesIndexURL overrides where channel metadata is fetched from.
		ReleasesIndexURL string `json:"releases_index_url" mapstructure:"releases_index_url"`
		// InstallScriptURL overrides where the install script is fetched from.
		InstallScriptURL string `json:"install_script_url" mapstructure:"install_script_url"`
		// Cache controls metadata cache expiry.
		Cache CacheSettings `json:"cache" mapstructure:"cache"`
		// Timeouts bound the engine's long-running phases.
		Timeouts TimeoutSettings `json:"timeouts" mapstructure:"timeouts"`
		// StateDir overrides where installs, the ledger, and cached metadata
		// live. Empty means the platform default.
		StateDir string `json:"state_dir" mapstructure:"state_dir"`
		// LocksDir overrides where lock endpoints live. Empty means the
		// per-user runtime directory.
		LocksDir string `json:"locks_dir" mapstructure:"locks_dir"`
		// InstallRoot, when set, is searched as an installation root before
		// platform host records during path finding.
		InstallRoot string `json:"install_root" mapstructure:"install_root"`
		// StrictArchitecture rejects installations whose architecture cannot
		// be determined instead of accepting them.
		StrictArchitecture bool `json:"strict_architecture" mapstructure:"strict_architecture"`
		// SkipHostRecordLookup disables the registry / install_location file
		// search step, which is comparatively expensive and unreliable.
		SkipHostRecordLookup bool `json:"skip_host_record_lookup" mapstructure:"skip_host_record_lookup"`
		// SharedExistingPath points every caller at one pre-existing dotnet
		// executable for runtime-class requests.
		SharedExistingPath string `json:"shared_existing_path" mapstructure:"shared_existing_path"`
		// ExistingPaths point individual callers at pre-existing dotnet
		// executables; they take precedence over SharedExistingPath.
		ExistingPaths []ExistingPathEntry `json:"existing_paths" mapstructure:"existing_paths"`
		// Verbose turns on debug-level logging.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}

	// CacheSettings controls the metadata fetcher's cache expiry.
	CacheSettings struct {
		// TTLMinutes is the base freshness window for cached documents.
		TTLMinutes int `json:"ttl_minutes" mapstructure:"ttl_minutes"`
		// TTLMultiplier scales the window, letting air-gapped or rate-limited
		// hosts stretch cache lifetimes without changing the base.
		TTLMultiplier float64 `json:"ttl_multiplier" mapstructure:"ttl_multiplier"`
	}

	// InvalidCacheSettingsError reports out-of-range cache settings.
	InvalidCacheSettingsError struct {
		Field string
		Value any
	}

	// TimeoutSettings bounds the engine's long-running phases, in seconds.
	TimeoutSettings struct {
		InstallSeconds    int `json:"install_seconds" mapstructure:"install_seconds"`
		LockSeconds       int `json:"lock_seconds" mapstructure:"lock_seconds"`
		ResolutionSeconds int `json:"resolution_seconds" mapstructure:"resolution_seconds"`
	}

	// InvalidTimeoutSettingsError reports a non-positive timeout.
	InvalidTimeoutSettingsError struct {
		Field string
		Value int
	}

	// ExistingPathEntry points one caller at a pre-existing dotnet
	// executable.
	ExistingPathEntry struct {
		// Caller is the requesting tool's identifier.
		Caller string `json:"caller" mapstructure:"caller"`
		// Path is the dotnet executable to hand that caller.
		Path string `json:"path" mapstructure:"path"`
	}

	// InvalidExistingPathEntryError reports a malformed or duplicated entry.
	InvalidExistingPathEntryError struct {
		Index  int
		Reason string
	}

	// InvalidSettingsError aggregates every validation failure in a
	// Settings value. It wraps ErrInvalidSettings for errors.Is().
	InvalidSettingsError struct {
		Errors []error
	}
)

// Error implements the error interface.
func (e *InvalidCacheSettingsError) Error() string {
	return fmt.Sprintf("%v: %s = %v", ErrInvalidCacheSettings, e.Field, e.Value)
}

// Unwrap returns ErrInvalidCacheSettings for errors.Is() compatibility.
func (e *InvalidCacheSettingsError) Unwrap() error { return ErrInvalidCacheSettings }

// Error implements the error interface.
func (e *InvalidTimeoutSettingsError) Error() string {
	return fmt.Sprintf("%v: %s = %d (must be positive)", ErrInvalidTimeoutSettings, e.Field, e.Value)
}

// Unwrap returns ErrInvalidTimeoutSettings for errors.Is() compatibility.
func (e *InvalidTimeoutSettingsError) Unwrap() error { return ErrInvalidTimeoutSettings }

// Error implements the error interface.
func (e *InvalidExistingPathEntryError) Error() string {
	return fmt.Sprintf("%v: existing_paths[%d]: %s", ErrInvalidExistingPathEntry, e.Index, e.Reason)
}

// Unwrap returns ErrInvalidExistingPathEntry for errors.Is() compatibility.
func (e *InvalidExistingPathEntryError) Unwrap() error { return ErrInvalidExistingPathEntry }

// Error implements the error interface.
func (e *InvalidSettingsError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%v: %s", ErrInvalidSettings, strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidSettings for errors.Is() compatibility.
func (e *InvalidSettingsError) Unwrap() error { return ErrInvalidSettings }

// DefaultSettings returns the engine defaults applied beneath any file or
// environment configuration.
func DefaultSettings() *Settings {
	return &Settings{
		ReleasesIndexURL: DefaultReleasesIndexURL,
		InstallScriptURL: defaultScriptURL(),
		Cache: CacheSettings{
			TTLMinutes:    30,
			TTLMultiplier: 1.0,
		},
		Timeouts: TimeoutSettings{
			InstallSeconds:    600,
			LockSeconds:       10,
			ResolutionSeconds: 30,
		},
	}
}

// IsValid returns whether the settings are internally consistent, and a
// list of validation errors if they are not. Constraints that the schema
// cannot express live here: caller uniqueness across existing path entries.
func (s *Settings) IsValid() (bool, []error) {
	var errs []error

	if s.Cache.TTLMinutes <= 0 {
		errs = append(errs, &InvalidCacheSettingsError{Field: "ttl_minutes", Value: s.Cache.TTLMinutes})
	}
	if s.Cache.TTLMultiplier < 1.0 {
		errs = append(errs, &InvalidCacheSettingsError{Field: "ttl_multiplier", Value: s.Cache.TTLMultiplier})
	}
	if s.Timeouts.InstallSeconds <= 0 {
		errs = append(errs, &InvalidTimeoutSettingsError{Field: "install_seconds", Value: s.Timeouts.InstallSeconds})
	}
	if s.Timeouts.LockSeconds <= 0 {
		errs = append(errs, &InvalidTimeoutSettingsError{Field: "lock_seconds", Value: s.Timeouts.LockSeconds})
	}
	if s.Timeouts.ResolutionSeconds <= 0 {
		errs = append(errs, &InvalidTimeoutSettingsError{Field: "resolution_seconds", Value: s.Timeouts.ResolutionSeconds})
	}

	seenCallers := make(map[string]int)
	for i, entry := range s.ExistingPaths {
		switch {
		case strings.TrimSpace(entry.Caller) == "":
			errs = append(errs, &InvalidExistingPathEntryError{Index: i, Reason: "caller must not be empty"})
		case strings.TrimSpace(entry.Path) == "":
			errs = append(errs, &InvalidExistingPathEntryError{Index: i, Reason: "path must not be empty"})
		default:
			if first, dup := seenCallers[entry.Caller]; dup {
				errs = append(errs, &InvalidExistingPathEntryError{
					Index:  i,
					Reason: fmt.Sprintf("caller %q already configured at existing_paths[%d]", entry.Caller, first),
				})
			} else {
				seenCallers[entry.Caller] = i
			}
		}
	}

	if len(errs) > 0 {
		return false, errs
	}
	return true, nil
}

// ExistingPathFor returns the configured override executable for a caller:
// the caller-specific entry when present, the shared one otherwise. The
// second result is false when neither is configured.
func (s *Settings) ExistingPathFor(callerID string) (string, bool) {
	for _, entry := range s.ExistingPaths {
		if entry.Caller == callerID {
			return entry.Path, true
		}
	}
	if s.SharedExistingPath != "" {
		return s.SharedExistingPath, true
	}
	return "", false
}

// InstallTimeout returns the install phase bound as a duration.
func (s *Settings) InstallTimeout() time.Duration {
	return time.Duration(s.Timeouts.InstallSeconds) * time.Second
}

// LockTimeout returns the lock acquisition bound as a duration.
func (s *Settings) LockTimeout() time.Duration {
	return time.Duration(s.Timeouts.LockSeconds) * time.Second
}

// ResolutionTimeout returns the metadata resolution bound as a duration.
func (s *Settings) ResolutionTimeout() time.Duration {
	return time.Duration(s.Timeouts.ResolutionSeconds) * time.Second
}

// CacheTTL returns the effective cache freshness window.
func (s *Settings) CacheTTL() time.Duration {
	base := time.Duration(s.Cache.TTLMinutes) * time.Minute
	return time.Duration(float64(base) * s.Cache.TTLMultiplier)
}
