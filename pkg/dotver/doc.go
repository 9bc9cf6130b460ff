// SPDX-License-Identifier: MPL-2.0

// Package dotver models .NET version values and version expressions.
//
// The engine deals with four expression shapes: a bare major ("8"), a
// major.minor pair ("8.0"), an SDK feature band ("7.0.3xx"), and a fully
// specified version ("8.0.204", optionally with a prerelease suffix such as
// "9.0.0-preview.5.24306.7"). This package classifies expressions, compares
// fully specified versions, extracts major.minor and feature-band
// components, and evaluates the path-search requirement predicates.
//
// Fully specified versions are semver-compatible, so comparison is backed
// by github.com/Masterminds/semver.
package dotver
