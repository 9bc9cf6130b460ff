// SPDX-License-Identifier: MPL-2.0

package distro

import (
	"context"
	"fmt"

	"dotnetup/internal/invoke"

	"github.com/charmbracelet/log"
)

// dnfSupport mirrors aptSupport for the RPM family.
//
//nolint:gochecknoglobals // Static support table.
var dnfSupport = map[string][]string{
	"fedora:39": {"6.0", "7.0", "8.0"},
	"fedora:40": {"8.0", "9.0"},
	"fedora:41": {"8.0", "9.0"},
	"rhel:8":    {"6.0", "7.0", "8.0"},
	"rhel:9":    {"7.0", "8.0", "9.0"},
}

//nolint:gochecknoglobals // Static support table.
var defaultDnfChannels = []string{"8.0", "9.0"}

// dnfProvider drives dnf for the Red Hat family.
type dnfProvider struct {
	info   Info
	runner invoke.Runner
	logger *log.Logger
}

func newDnfProvider(info Info, runner invoke.Runner, logger *log.Logger) Provider {
	return &dnfProvider{info: info, runner: runner, logger: logger}
}

// Name implements Provider.
func (p *dnfProvider) Name() string { return "dnf (" + p.info.Key() + ")" }

// Supported implements Provider.
func (p *dnfProvider) Supported(majorMinor string) bool {
	channels, ok := dnfSupport[p.info.Key()]
	if !ok {
		channels = defaultDnfChannels
	}
	for _, c := range channels {
		if c == majorMinor {
			return true
		}
	}
	return false
}

// ExistingSDK implements Provider.
func (p *dnfProvider) ExistingSDK(ctx context.Context, majorMinor string) (Existing, bool, error) {
	return existingSDKOnPath(ctx, p.runner, majorMinor)
}

// InstallSDK implements Provider.
func (p *dnfProvider) InstallSDK(ctx context.Context, majorMinor string) error {
	pkg := sdkPackageName(majorMinor)
	p.logger.Debug("installing via dnf", "package", pkg)

	result, err := elevated(ctx, p.runner,
		[]string{"dnf", "install", "-y", "-q", pkg}, packageManagerTimeout)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("dnf install %s exited %d: %s", pkg, result.ExitCode, result.Stderr)
	}
	return nil
}
