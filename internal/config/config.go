// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"dotnetup/pkg/platform"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name, used for directory naming.
	AppName = "dotnetup"
	// SettingsFileName is the name of the settings file (without extension).
	SettingsFileName = "settings"
	// SettingsFileExt is the settings file extension.
	SettingsFileExt = "cue"
	// EnvPrefix namespaces environment overrides (DOTNETUP_STRICT_ARCHITECTURE
	// and friends).
	EnvPrefix = "DOTNETUP"
)

//go:embed settings_schema.cue
var settingsSchema string

// ConfigDir returns the dotnetup configuration directory using
// platform-specific conventions: Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case platform.Windows:
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case platform.Darwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// StateDir returns where installs, the ledger, and cached metadata live:
// %LOCALAPPDATA% on Windows, ~/Library/Application Support on macOS, and
// $XDG_DATA_HOME (defaulting to ~/.local/share) elsewhere.
func StateDir() (string, error) {
	if stateDirOverride != "" {
		return stateDirOverride, nil
	}

	var dataDir string

	switch runtime.GOOS {
	case platform.Windows:
		dataDir = os.Getenv("LOCALAPPDATA")
		if dataDir == "" {
			dataDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Local")
		}
	case platform.Darwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, "Library", "Application Support")
	default:
		dataDir = os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			dataDir = filepath.Join(home, ".local", "share")
		}
	}

	return filepath.Join(dataDir, AppName), nil
}

// defaultScriptURL picks the install script variant matching the host shell.
func defaultScriptURL() string {
	if runtime.GOOS == platform.Windows {
		return DefaultInstallScriptURLWindows
	}
	return DefaultInstallScriptURL
}

// loadWithOptions performs option-driven settings loading without mutating
// package-level state. Layering is defaults, then the settings file, then
// DOTNETUP_* environment variables.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Settings, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load settings canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultSettings()
	v.SetDefault("releases_index_url", defaults.ReleasesIndexURL)
	v.SetDefault("install_script_url", defaults.InstallScriptURL)
	v.SetDefault("cache.ttl_minutes", defaults.Cache.TTLMinutes)
	v.SetDefault("cache.ttl_multiplier", defaults.Cache.TTLMultiplier)
	v.SetDefault("timeouts.install_seconds", defaults.Timeouts.InstallSeconds)
	v.SetDefault("timeouts.lock_seconds", defaults.Timeouts.LockSeconds)
	v.SetDefault("timeouts.resolution_seconds", defaults.Timeouts.ResolutionSeconds)
	v.SetDefault("state_dir", defaults.StateDir)
	v.SetDefault("locks_dir", defaults.LocksDir)
	v.SetDefault("install_root", defaults.InstallRoot)
	v.SetDefault("strict_architecture", defaults.StrictArchitecture)
	v.SetDefault("skip_host_record_lookup", defaults.SkipHostRecordLookup)
	v.SetDefault("shared_existing_path", defaults.SharedExistingPath)
	v.SetDefault("verbose", defaults.Verbose)

	// DOTNETUP_INSTALL_ROOT, DOTNETUP_STRICT_ARCHITECTURE, ... override the
	// file; nested keys use underscores (DOTNETUP_TIMEOUTS_LOCK_SECONDS).
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := ""

	if opts.SettingsFilePath != "" {
		if !fileExists(opts.SettingsFilePath) {
			return nil, "", fmt.Errorf("settings file not found: %s", opts.SettingsFilePath)
		}
		if err := loadCUEIntoViper(v, opts.SettingsFilePath); err != nil {
			return nil, "", fmt.Errorf("loading settings: %w", err)
		}
		resolvedPath = opts.SettingsFilePath
	} else {
		cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
		if err != nil {
			return nil, "", err
		}

		cuePath := filepath.Join(cfgDir, SettingsFileName+"."+SettingsFileExt)
		if fileExists(cuePath) {
			if err := loadCUEIntoViper(v, cuePath); err != nil {
				return nil, "", fmt.Errorf("loading settings: %w", err)
			}
			resolvedPath = cuePath
		}
		// No settings file means defaults plus environment, not an error.
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, "", fmt.Errorf("failed to parse settings: %w", err)
	}

	if ok, errs := settings.IsValid(); !ok {
		return nil, "", &InvalidSettingsError{Errors: errs}
	}

	return &settings, resolvedPath, nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

// maxSettingsFileSize bounds the settings file read. Settings files are a
// few hundred bytes; anything larger is a mistake.
const maxSettingsFileSize = 1 << 20

// loadCUEIntoViper parses a CUE file, validates it against the #Settings
// schema, and merges its contents into Viper. The decode target is a
// map[string]any rather than the Settings struct so Viper's layering
// (defaults below, environment above) keeps working.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read settings file: %w", err)
	}
	if int64(len(data)) > maxSettingsFileSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", path, len(data), maxSettingsFileSize)
	}

	cueCtx := cuecontext.New()

	schemaValue := cueCtx.CompileString(settingsSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile settings schema: %w", schemaValue.Err())
	}

	userValue := cueCtx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	// Unify with the schema so out-of-range values fail here with a field
	// path instead of surfacing later as odd engine behavior.
	schema := schemaValue.LookupPath(cue.ParsePath("#Settings"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err, path)
	}

	var settingsMap map[string]any
	if err := unified.Decode(&settingsMap); err != nil {
		return formatCUEError(err, path)
	}

	if err := v.MergeConfigMap(settingsMap); err != nil {
		return fmt.Errorf("failed to merge settings: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(cfgDir, 0o755)
}

// WriteDefaultSettings creates a settings file with the defaults spelled
// out, unless one already exists. Returns the file path.
func WriteDefaultSettings() (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, SettingsFileName+"."+SettingsFileExt)
	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultSettings())), 0o644); err != nil {
		return "", fmt.Errorf("failed to write settings file: %w", err)
	}
	return cfgPath, nil
}

// GenerateCUE renders settings as a CUE document.
func GenerateCUE(s *Settings) string {
	var sb strings.Builder

	sb.WriteString("// dotnetup settings\n\n")
	sb.WriteString(fmt.Sprintf("releases_index_url: %q\n", s.ReleasesIndexURL))
	sb.WriteString(fmt.Sprintf("install_script_url: %q\n", s.InstallScriptURL))

	sb.WriteString("\ncache: {\n")
	sb.WriteString(fmt.Sprintf("\tttl_minutes: %d\n", s.Cache.TTLMinutes))
	sb.WriteString(fmt.Sprintf("\tttl_multiplier: %g\n", s.Cache.TTLMultiplier))
	sb.WriteString("}\n")

	sb.WriteString("\ntimeouts: {\n")
	sb.WriteString(fmt.Sprintf("\tinstall_seconds: %d\n", s.Timeouts.InstallSeconds))
	sb.WriteString(fmt.Sprintf("\tlock_seconds: %d\n", s.Timeouts.LockSeconds))
	sb.WriteString(fmt.Sprintf("\tresolution_seconds: %d\n", s.Timeouts.ResolutionSeconds))
	sb.WriteString("}\n")

	if s.StateDir != "" {
		sb.WriteString(fmt.Sprintf("\nstate_dir: %q\n", s.StateDir))
	}
	if s.LocksDir != "" {
		sb.WriteString(fmt.Sprintf("locks_dir: %q\n", s.LocksDir))
	}
	if s.InstallRoot != "" {
		sb.WriteString(fmt.Sprintf("install_root: %q\n", s.InstallRoot))
	}

	sb.WriteString(fmt.Sprintf("\nstrict_architecture: %v\n", s.StrictArchitecture))
	sb.WriteString(fmt.Sprintf("skip_host_record_lookup: %v\n", s.SkipHostRecordLookup))

	if s.SharedExistingPath != "" {
		sb.WriteString(fmt.Sprintf("shared_existing_path: %q\n", s.SharedExistingPath))
	}
	if len(s.ExistingPaths) > 0 {
		sb.WriteString("\nexisting_paths: [\n")
		for _, entry := range s.ExistingPaths {
			sb.WriteString(fmt.Sprintf("\t{caller: %q, path: %q},\n", entry.Caller, entry.Path))
		}
		sb.WriteString("]\n")
	}

	sb.WriteString(fmt.Sprintf("\nverbose: %v\n", s.Verbose))

	return sb.String()
}
