// SPDX-License-Identifier: MPL-2.0

// Package platform provides cross-platform compatibility utilities.
//
// This package centralizes OS name constants, the mapping between Go's
// GOARCH values and the architecture names used by .NET installers and
// install directories, and the platform-specific name of the dotnet host
// executable.
package platform
