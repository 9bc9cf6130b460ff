// SPDX-License-Identifier: MPL-2.0

// Package config handles engine settings using Viper with CUE as the file format.
//
// Settings are loaded from ~/.config/dotnetup/settings.cue (or XDG equivalent on
// Linux, ~/Library/Application Support/dotnetup/settings.cue on macOS,
// %APPDATA%\dotnetup\settings.cue on Windows), then overridden by DOTNETUP_*
// environment variables. The package also resolves the platform state directory
// where installations, the ownership ledger, and cached release metadata live.
//
// Settings validation is performed against a CUE schema (settings_schema.cue) to
// ensure type safety and provide clear error messages for invalid files.
package config
