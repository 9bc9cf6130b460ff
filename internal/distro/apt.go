// SPDX-License-Identifier: MPL-2.0

package distro

import (
	"context"
	"fmt"

	"dotnetup/internal/invoke"

	"github.com/charmbracelet/log"
)

// aptSupport lists the .NET channels each supported release series carries
// in its official archive. Releases absent from the table fall back to
// defaultAptChannels; the table only needs entries where the archive
// diverges from the common set.
//
//nolint:gochecknoglobals // Static support table.
var aptSupport = map[string][]string{
	"ubuntu:22.04": {"6.0", "7.0", "8.0"},
	"ubuntu:24.04": {"8.0", "9.0"},
	"debian:11":    {"6.0", "7.0", "8.0"},
	"debian:12":    {"7.0", "8.0", "9.0"},
}

//nolint:gochecknoglobals // Static support table.
var defaultAptChannels = []string{"8.0", "9.0"}

// aptProvider drives apt-get for Debian-family distributions.
type aptProvider struct {
	info   Info
	runner invoke.Runner
	logger *log.Logger
}

func newAptProvider(info Info, runner invoke.Runner, logger *log.Logger) Provider {
	return &aptProvider{info: info, runner: runner, logger: logger}
}

// Name implements Provider.
func (p *aptProvider) Name() string { return "apt (" + p.info.Key() + ")" }

// Supported implements Provider.
func (p *aptProvider) Supported(majorMinor string) bool {
	channels, ok := aptSupport[p.info.Key()]
	if !ok {
		channels = defaultAptChannels
	}
	for _, c := range channels {
		if c == majorMinor {
			return true
		}
	}
	return false
}

// ExistingSDK implements Provider.
func (p *aptProvider) ExistingSDK(ctx context.Context, majorMinor string) (Existing, bool, error) {
	return existingSDKOnPath(ctx, p.runner, majorMinor)
}

// InstallSDK implements Provider.
func (p *aptProvider) InstallSDK(ctx context.Context, majorMinor string) error {
	pkg := sdkPackageName(majorMinor)
	p.logger.Debug("installing via apt-get", "package", pkg)

	// Refresh the index first; a stale index turns a supported package into
	// a spurious not-found.
	update, err := elevated(ctx, p.runner,
		[]string{"apt-get", "update", "-q"}, packageManagerTimeout)
	if err != nil {
		return err
	}
	if !update.Success() {
		p.logger.Warn("apt-get update failed, attempting install anyway", "exit", update.ExitCode)
	}

	result, err := elevated(ctx, p.runner,
		[]string{"apt-get", "install", "-y", "-q", pkg}, packageManagerTimeout)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("apt-get install %s exited %d: %s", pkg, result.ExitCode, result.Stderr)
	}
	return nil
}
