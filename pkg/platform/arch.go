// SPDX-License-Identifier: MPL-2.0

package platform

import "runtime"

// .NET architecture name constants. These are the values used by the
// install scripts, the release metadata, and install directory names.
const (
	ArchX64   = "x64"
	ArchX86   = "x86"
	ArchArm64 = "arm64"
	ArchArm   = "arm"
)

// goarchToDotnet maps Go's GOARCH values to .NET architecture names.
var goarchToDotnet = map[string]string{
	"amd64": ArchX64,
	"386":   ArchX86,
	"arm64": ArchArm64,
	"arm":   ArchArm,
}

// DefaultArch returns the .NET architecture name for the machine the
// process is running on. Unknown GOARCH values are passed through verbatim
// so unusual platforms still produce a stable, distinct identity.
func DefaultArch() string {
	return archFromGOARCH(runtime.GOARCH)
}

// NormalizeArch maps an architecture value from caller input to its .NET
// name. Empty input means "unset" and resolves to the machine default;
// values already in .NET form pass through; GOARCH spellings are
// translated so callers may supply either convention.
func NormalizeArch(arch string) string {
	if arch == "" {
		return DefaultArch()
	}
	if mapped, ok := goarchToDotnet[arch]; ok {
		return mapped
	}
	return arch
}

// HostExecutableName returns the platform-specific file name of the dotnet
// host executable.
func HostExecutableName() string {
	if runtime.GOOS == Windows {
		return "dotnet.exe"
	}
	return "dotnet"
}

// archFromGOARCH translates a GOARCH value, passing unknown values through.
func archFromGOARCH(goarch string) string {
	if mapped, ok := goarchToDotnet[goarch]; ok {
		return mapped
	}
	return goarch
}
