// SPDX-License-Identifier: MPL-2.0

// Package distro handles machine-wide SDK installs through the native
// package manager. It detects the running distribution once, selects a
// provider from a static registry (adding a distro is purely additive), and
// the provider knows three things: which .NET channels the distro
// officially supports, how to spot an SDK the distro already installed, and
// how to drive the package manager non-interactively with elevation.
//
// The engine never guesses: distributions it cannot positively identify get
// the generic provider, which answers support questions permissively but
// refuses to install.
package distro
