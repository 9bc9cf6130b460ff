// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"

	"dotnetup/internal/issue"
)

// LoadOptions defines explicit settings loading inputs.
type LoadOptions struct {
	// SettingsFilePath forces loading from a specific settings file when set.
	SettingsFilePath string
	// ConfigDirPath overrides the config directory lookup when set.
	ConfigDirPath string
}

// Provider loads settings from explicit options.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Settings, error)
}

type fileProvider struct{}

// NewProvider creates a settings provider.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads settings from the requested source. Failures come back as an
// issue.ActionableError so the CLI can show the file involved and the
// recovery commands alongside the cause.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Settings, error) {
	settings, path, err := loadWithOptions(ctx, opts)
	if err != nil {
		if path == "" {
			path = opts.SettingsFilePath
		}
		return nil, issue.NewErrorContext().
			WithOperation("load settings").
			WithResource(path).
			WithSuggestion("Run 'dotnetup config show' to inspect the resolved settings").
			WithSuggestion("Run 'dotnetup config init' to write a fresh settings file").
			Wrap(err).
			BuildError()
	}
	return settings, nil
}
