// SPDX-License-Identifier: MPL-2.0

package distro

import (
	"context"
	"fmt"

	"dotnetup/internal/invoke"

	"github.com/charmbracelet/log"
)

// genericProvider serves distributions the registry does not know. It
// leaves version resolution unfiltered and still detects existing SDKs, but
// it never installs: driving an unidentified package manager is exactly the
// guessing this engine refuses to do.
type genericProvider struct {
	info   Info
	runner invoke.Runner
	logger *log.Logger
}

func newGenericProvider(info Info, runner invoke.Runner, logger *log.Logger) Provider {
	return &genericProvider{info: info, runner: runner, logger: logger}
}

// Name implements Provider.
func (p *genericProvider) Name() string { return "generic (" + p.info.Key() + ")" }

// Supported implements Provider. Without distro knowledge there is nothing
// to filter on.
func (p *genericProvider) Supported(string) bool { return true }

// ExistingSDK implements Provider.
func (p *genericProvider) ExistingSDK(ctx context.Context, majorMinor string) (Existing, bool, error) {
	return existingSDKOnPath(ctx, p.runner, majorMinor)
}

// InstallSDK implements Provider. It always refuses.
func (p *genericProvider) InstallSDK(context.Context, string) error {
	return fmt.Errorf("%w: %s", ErrInstallRefused, p.info.Key())
}
