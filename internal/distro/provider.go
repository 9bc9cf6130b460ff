// SPDX-License-Identifier: MPL-2.0

package distro

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"dotnetup/internal/invoke"
	"dotnetup/pkg/dotver"

	"github.com/charmbracelet/log"
)

var (
	// ErrElevationRefused is the sentinel error wrapped by
	// ElevationRefusedError.
	ErrElevationRefused = errors.New("elevation refused")
	// ErrInstallRefused is returned when the selected provider cannot
	// positively drive an install (the generic provider always refuses).
	ErrInstallRefused = errors.New("refusing native install on unidentified distribution")
)

//nolint:gochecknoglobals // Test seams for privilege and PATH checks.
var (
	geteuid  = os.Geteuid
	lookPath = exec.LookPath
)

type (
	// ElevationRefusedError reports that a global install could not obtain
	// the privilege it requires. It is distinct from a generic install
	// failure: the fix is credentials, not retrying.
	ElevationRefusedError struct {
		Command string
		Detail  string
	}

	// Existing describes a machine-wide SDK already present on the system.
	Existing struct {
		// Version is the SDK version the host reports.
		Version string
		// Path is the dotnet executable serving it.
		Path string
	}

	// Provider adapts one distribution family: support policy, existing-SDK
	// detection, and package-manager invocation.
	Provider interface {
		// Name identifies the provider for diagnostics.
		Name() string
		// Supported reports whether the distro's repositories officially
		// carry the given major.minor channel. Also satisfies the version
		// resolver's SupportFilter.
		Supported(majorMinor string) bool
		// ExistingSDK looks for an already-installed machine-wide SDK
		// satisfying majorMinor. Found installs are adopted, not reinstalled.
		ExistingSDK(ctx context.Context, majorMinor string) (Existing, bool, error)
		// InstallSDK installs the channel's SDK package non-interactively
		// with elevation.
		InstallSDK(ctx context.Context, majorMinor string) error
	}

	// Factory builds a provider for a detected distribution.
	Factory func(info Info, runner invoke.Runner, logger *log.Logger) Provider
)

// Error implements the error interface.
func (e *ElevationRefusedError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrElevationRefused, e.Command, e.Detail)
}

// Unwrap returns ErrElevationRefused for errors.Is() compatibility.
func (e *ElevationRefusedError) Unwrap() error { return ErrElevationRefused }

// registry maps distro keys to provider factories. Exact "id:version" keys
// win over bare "id" keys; unknown distros fall through to the generic
// provider. Adding a distribution is one entry here.
//
//nolint:gochecknoglobals // Static dispatch table, written only at init.
var registry = map[string]Factory{
	"ubuntu": newAptProvider,
	"debian": newAptProvider,
	"fedora": newDnfProvider,
	"rhel":   newDnfProvider,
	"centos": newDnfProvider,
	"rocky":  newDnfProvider,
	"alma":   newDnfProvider,
}

// ProviderFor selects the provider for a detected distribution.
func ProviderFor(info Info, runner invoke.Runner, logger *log.Logger) Provider {
	if factory, ok := registry[info.Key()]; ok {
		return factory(info, runner, logger)
	}
	if factory, ok := registry[info.ID]; ok {
		return factory(info, runner, logger)
	}
	logger.Debug("no distro provider registered, using generic", "distro", info.Key())
	return newGenericProvider(info, runner, logger)
}

// packageManagerTimeout bounds one package-manager invocation. Native
// installs pull real packages; the bound exists to fail eventually, not to
// hurry.
const packageManagerTimeout = 15 * time.Minute

// sdkQueryTimeout bounds an existing-SDK probe.
const sdkQueryTimeout = 10 * time.Second

// elevated runs argv through sudo in non-interactive mode, or directly when
// already root. A sudo that wants a password cannot get one here; that
// outcome maps to ElevationRefusedError rather than an install failure.
func elevated(ctx context.Context, runner invoke.Runner, argv []string, timeout time.Duration) (invoke.Result, error) {
	if geteuid() == 0 {
		return runner.Run(ctx, invoke.Spec{Path: argv[0], Args: argv[1:], Timeout: timeout})
	}

	sudo, err := lookPath("sudo")
	if err != nil {
		return invoke.Result{}, &ElevationRefusedError{
			Command: strings.Join(argv, " "),
			Detail:  "not running as root and sudo is unavailable",
		}
	}

	result, err := runner.Run(ctx, invoke.Spec{
		Path:    sudo,
		Args:    append([]string{"-n", "--"}, argv...),
		Timeout: timeout,
	})
	if err != nil {
		return result, err
	}
	if !result.Success() && sudoRefused(result.Stderr) {
		return result, &ElevationRefusedError{
			Command: strings.Join(argv, " "),
			Detail:  strings.TrimSpace(result.Stderr),
		}
	}
	return result, nil
}

// sudoRefused recognizes sudo's own non-interactive refusals, as opposed to
// the elevated command failing.
func sudoRefused(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "password is required") ||
		strings.Contains(s, "no tty present") ||
		strings.Contains(s, "not in the sudoers file")
}

// existingSDKOnPath probes the machine's PATH-resolved dotnet host for an
// SDK in the requested channel. Shared between the apt and dnf providers;
// both families land the host on PATH.
func existingSDKOnPath(ctx context.Context, runner invoke.Runner, majorMinor string) (Existing, bool, error) {
	exe, err := lookPath("dotnet")
	if err != nil {
		return Existing{}, false, nil //nolint:nilerr // no host on PATH means nothing to adopt
	}

	result, err := runner.Run(ctx, invoke.Spec{
		Path:    exe,
		Args:    []string{"--list-sdks"},
		Timeout: sdkQueryTimeout,
	})
	if err != nil || !result.Success() {
		return Existing{}, false, nil
	}

	var inChannel []string
	for line := range strings.Lines(result.Stdout) {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if dotver.SameMajorMinor(fields[0], majorMinor) {
			inChannel = append(inChannel, fields[0])
		}
	}
	newest, ok := dotver.Newest(inChannel)
	if !ok {
		return Existing{}, false, nil
	}
	return Existing{Version: newest, Path: exe}, true, nil
}

// sdkPackageName is the package both apt and dnf ecosystems publish per
// channel.
func sdkPackageName(majorMinor string) string {
	return "dotnet-sdk-" + majorMinor
}
