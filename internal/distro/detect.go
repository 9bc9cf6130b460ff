// SPDX-License-Identifier: MPL-2.0

package distro

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"dotnetup/pkg/platform"
)

var (
	// ErrUnsupportedPlatform is returned when native global installs are not
	// available for the running OS. The engine fails closed rather than
	// guessing at a package manager.
	ErrUnsupportedPlatform = errors.New("native global installs are not supported on this platform")
)

//nolint:gochecknoglobals // Test seams for distro detection inputs.
var (
	osReleasePath = "/etc/os-release"
	goos          = runtime.GOOS
)

// Info identifies the running distribution: the os-release ID ("ubuntu")
// and VERSION_ID ("22.04").
type Info struct {
	ID        string
	VersionID string
}

// Key is the registry lookup key, "id:version".
func (i Info) Key() string { return i.ID + ":" + i.VersionID }

// Detect identifies the running distribution from /etc/os-release. Non-Linux
// platforms return ErrUnsupportedPlatform: macOS and Windows machine-wide
// SDKs are placed by their own installers, not a package manager this engine
// can drive.
func Detect() (Info, error) {
	if goos != platform.Linux {
		return Info{}, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}

	data, err := os.ReadFile(osReleasePath)
	if err != nil {
		return Info{}, fmt.Errorf("%w: cannot read %s: %v", ErrUnsupportedPlatform, osReleasePath, err)
	}
	info := parseOSRelease(string(data))
	if info.ID == "" {
		return Info{}, fmt.Errorf("%w: %s carries no ID field", ErrUnsupportedPlatform, osReleasePath)
	}
	return info, nil
}

// parseOSRelease extracts ID and VERSION_ID from os-release content. Values
// may be bare or double-quoted per the freedesktop spec.
func parseOSRelease(content string) Info {
	var info Info
	for line := range strings.Lines(content) {
		key, value, found := strings.Cut(strings.TrimSpace(line), "=")
		if !found {
			continue
		}
		value = strings.Trim(value, `"`)
		switch key {
		case "ID":
			info.ID = strings.ToLower(value)
		case "VERSION_ID":
			info.VersionID = value
		}
	}
	return info
}
