// SPDX-License-Identifier: MPL-2.0

//go:build windows

package pathfind

import (
	"golang.org/x/sys/windows/registry"
)

// hostRecordRoots reads the hostfxr InstallLocation values the dotnet host
// installer writes to the registry, architecture-specific key first. The
// 32-bit registry view is where the installer records them on every
// architecture.
func hostRecordRoots(arch string) []string {
	var roots []string
	for _, keyPath := range []string{
		`SOFTWARE\dotnet\Setup\InstalledVersions\` + arch,
		`SOFTWARE\dotnet\Setup\InstalledVersions\` + arch + `\sharedhost`,
	} {
		k, err := registry.OpenKey(registry.LOCAL_MACHINE, keyPath, registry.QUERY_VALUE|registry.WOW64_32KEY)
		if err != nil {
			continue
		}
		loc, _, err := k.GetStringValue("InstallLocation")
		_ = k.Close()
		if err == nil && loc != "" {
			roots = append(roots, loc)
		}
	}
	return roots
}
