// SPDX-License-Identifier: MPL-2.0

package pathfind

import (
	"context"
	"strings"
	"time"

	"dotnetup/internal/invoke"
	"dotnetup/pkg/dotver"
)

// hostQueryTimeout bounds one dotnet host invocation. Listing runtimes is
// near-instant on a healthy install; a hang means a broken candidate, which
// the search should skip rather than wait on.
const hostQueryTimeout = 10 * time.Second

const (
	frameworkNETCore    = "Microsoft.NETCore.App"
	frameworkASPNetCore = "Microsoft.AspNetCore.App"
)

// installedVersions asks a candidate executable what it can host for the
// requested mode. Per the permissive validation shape, an installed SDK
// satisfies a runtime-class request — every SDK carries its runtime — so
// runtime-class queries consult both listings.
func installedVersions(ctx context.Context, runner invoke.Runner, exe string, mode dotver.Mode) ([]string, error) {
	if mode == dotver.ModeSDK {
		return listSDKs(ctx, runner, exe)
	}

	versions, err := listRuntimes(ctx, runner, exe, mode)
	if err != nil {
		return nil, err
	}
	sdks, err := listSDKs(ctx, runner, exe)
	if err != nil {
		// A host that answers --list-runtimes but chokes on --list-sdks is
		// still a usable runtime candidate.
		return versions, nil //nolint:nilerr // partial answer beats none
	}
	return append(versions, sdks...), nil
}

// listRuntimes parses `dotnet --list-runtimes` output. Lines look like
// "Microsoft.NETCore.App 8.0.8 [/usr/share/dotnet/shared/Microsoft.NETCore.App]".
func listRuntimes(ctx context.Context, runner invoke.Runner, exe string, mode dotver.Mode) ([]string, error) {
	framework := frameworkNETCore
	if mode == dotver.ModeASPNetCore {
		framework = frameworkASPNetCore
	}

	result, err := runner.Run(ctx, invoke.Spec{
		Path:    exe,
		Args:    []string{"--list-runtimes"},
		Timeout: hostQueryTimeout,
	})
	if err != nil || !result.Success() {
		return nil, queryFailed(exe, "--list-runtimes", result, err)
	}

	var versions []string
	for line := range strings.Lines(result.Stdout) {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == framework {
			versions = append(versions, fields[1])
		}
	}
	return versions, nil
}

// listSDKs parses `dotnet --list-sdks` output: "8.0.404 [/usr/share/dotnet/sdk]".
func listSDKs(ctx context.Context, runner invoke.Runner, exe string) ([]string, error) {
	result, err := runner.Run(ctx, invoke.Spec{
		Path:    exe,
		Args:    []string{"--list-sdks"},
		Timeout: hostQueryTimeout,
	})
	if err != nil || !result.Success() {
		return nil, queryFailed(exe, "--list-sdks", result, err)
	}

	var versions []string
	for line := range strings.Lines(result.Stdout) {
		fields := strings.Fields(line)
		if len(fields) >= 1 && fields[0] != "" {
			versions = append(versions, fields[0])
		}
	}
	return versions, nil
}

// reportedArchitecture extracts the host's architecture from `dotnet --info`.
// Older hosts do not print the field; the empty result means "unreported",
// which the caller accepts unless strict architecture checking is on.
func reportedArchitecture(ctx context.Context, runner invoke.Runner, exe string) string {
	result, err := runner.Run(ctx, invoke.Spec{
		Path:    exe,
		Args:    []string{"--info"},
		Timeout: hostQueryTimeout,
	})
	if err != nil || !result.Success() {
		return ""
	}
	for line := range strings.Lines(result.Stdout) {
		key, value, found := strings.Cut(strings.TrimSpace(line), ":")
		if found && strings.TrimSpace(key) == "Architecture" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// queryFailed builds the skip-this-candidate error for a host query.
func queryFailed(exe, query string, result invoke.Result, err error) error {
	if err != nil {
		return &candidateError{Exe: exe, Query: query, Err: err}
	}
	return &candidateError{Exe: exe, Query: query, ExitCode: result.ExitCode, Stderr: result.Stderr}
}
