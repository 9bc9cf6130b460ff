// SPDX-License-Identifier: MPL-2.0

//go:build unix

package pathfind

import (
	"os"
	"path/filepath"
	"strings"
)

//nolint:gochecknoglobals // Test seam for the OS-maintained record location.
var installLocationDir = "/etc/dotnet"

// hostRecordRoots reads the install_location files the dotnet host installer
// maintains: an architecture-specific record first, then the generic one.
// Each file holds one line, the install root.
func hostRecordRoots(arch string) []string {
	var roots []string
	for _, name := range []string{"install_location_" + arch, "install_location"} {
		data, err := os.ReadFile(filepath.Join(installLocationDir, name))
		if err != nil {
			continue
		}
		if root := strings.TrimSpace(string(data)); root != "" {
			roots = append(roots, root)
		}
	}
	return roots
}
