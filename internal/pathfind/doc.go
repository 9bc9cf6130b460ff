// SPDX-License-Identifier: MPL-2.0

// Package pathfind locates a usable dotnet executable without installing
// anything. Candidates are gathered in a strict priority order — configured
// override, shell-resolved executable, raw PATH entries, install-root
// override, platform host records — and the first one whose reported
// versions and architecture satisfy the request wins. "Nothing found" is a
// negative result, not an error; triggering an install is the acquisition
// worker's decision, never this package's.
package pathfind
