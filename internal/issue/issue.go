// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	VersionResolutionFailedId Id = iota + 1
	LockTimeoutId
	InstallExecutionFailedId
	MissingNativeDependencyId
	InstallValidationFailedId
	ElevationRefusedId
	UnsupportedDistroId
	InvalidInstallIdId
	ConfigLoadFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

// Issue pairs one failure class with rendered remediation guidance.
type Issue struct {
	id       Id          // ID used to look up the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // documentation links for this failure class
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	versionResolutionFailedIssue = &Issue{
		id: VersionResolutionFailedId,
		mdMsg: `
# Could not resolve a .NET version!

The version expression did not match any published channel, or the release
metadata could not be fetched and no cached copy exists.

## Things you can try:
- List the channels dotnetup knows about:
~~~
$ dotnetup list-versions
~~~

- Check the expression: valid shapes are a major ("8"), a major.minor
  ("8.0"), an SDK feature band ("7.0.3xx"), or a pinned version ("8.0.8")
- If you are offline, retry once the network is back; cached metadata is
  reused automatically after the first successful run
- Point dotnetup at a mirror of the release metadata:
~~~cue
releases_index_url: "https://my-mirror.example.com/releases-index.json"
~~~`,
		extLinks: []HttpLink{"https://github.com/dotnet/core/blob/main/release-notes/releases-index.json"},
	}

	lockTimeoutIssue = &Issue{
		id: LockTimeoutId,
		mdMsg: `
# Timed out waiting for the install lock!

Another process held the lock for this installation the whole time dotnetup
was willing to wait. Stale locks from crashed processes are cleaned up
automatically, so a timeout almost always means a live install is running.

## Things you can try:
- Wait for the other install to finish and retry
- Raise the wait bound in your settings:
~~~cue
timeouts: lock_seconds: 60
~~~

- If you are certain nothing is installing, remove the lock endpoints under
  the locks directory shown by:
~~~
$ dotnetup config show
~~~`,
	}

	installExecutionFailedIssue = &Issue{
		id: InstallExecutionFailedId,
		mdMsg: `
# The installer failed!

The dotnet-install script ran but exited unsuccessfully. The most common
causes are network interruptions mid-download and requesting a version that
was never published for your architecture.

## Things you can try:
- Re-run the acquire; partial downloads are detected and retried
- Run with verbose output to see the full installer stderr:
~~~
$ dotnetup --verbose acquire 8.0
~~~

- Verify the version exists for your architecture:
~~~
$ dotnetup list-versions
~~~`,
	}

	missingNativeDependencyIssue = &Issue{
		id: MissingNativeDependencyId,
		mdMsg: `
# Missing native dependencies!

The installer crashed with a signal pattern that indicates absent shared
libraries rather than an installer bug. .NET needs a small set of native
libraries that minimal distributions often lack.

## Things you can try:
- Install the .NET native prerequisites:
  - Debian/Ubuntu: ` + "`sudo apt install libicu-dev libssl3 zlib1g`" + `
  - Fedora/RHEL: ` + "`sudo dnf install icu openssl-libs zlib`" + `
  - Alpine: ` + "`apk add icu-libs libssl3 zlib libgcc libstdc++`" + `
- Retry the acquire after installing them`,
		extLinks: []HttpLink{"https://learn.microsoft.com/dotnet/core/install/linux"},
	}

	installValidationFailedIssue = &Issue{
		id: InstallValidationFailedId,
		mdMsg: `
# The install did not produce a usable layout!

After installing (and one retry), the install directory still lacks the
dotnet executable or the framework folders the requested mode needs. The
partial directory is left in place; the next acquire will detect and
repair it.

## Things you can try:
- Re-run the acquire
- Check free disk space under the state directory:
~~~
$ dotnetup config show
~~~
- Remove the broken install and start fresh:
~~~
$ dotnetup uninstall <install-id> --force
~~~`,
	}

	elevationRefusedIssue = &Issue{
		id: ElevationRefusedId,
		mdMsg: `
# Could not elevate for a machine-wide install!

Global SDK installs drive the distro package manager, which requires root.
dotnetup runs sudo in non-interactive mode and never prompts for a
password itself.

## Things you can try:
- Pre-authenticate sudo, then retry:
~~~
$ sudo -v
$ dotnetup acquire-global 8.0
~~~

- Run the whole command as root
- Use a local (per-user) install instead, which needs no privilege:
~~~
$ dotnetup acquire 8.0 --mode sdk
~~~`,
	}

	unsupportedDistroIssue = &Issue{
		id: UnsupportedDistroId,
		mdMsg: `
# Machine-wide installs are not supported here!

dotnetup refuses to drive a package manager it cannot positively identify:
either this OS has no /etc/os-release, or the distribution is not in the
supported set (Debian/Ubuntu via apt, Fedora/RHEL family via dnf).

## Things you can try:
- Use a local (per-user) install, which works everywhere:
~~~
$ dotnetup acquire 8.0 --mode sdk
~~~

- Install the SDK with your distribution's own tooling and let dotnetup
  find it:
~~~
$ dotnetup find 8.0 --mode sdk
~~~`,
		extLinks: []HttpLink{"https://learn.microsoft.com/dotnet/core/install/linux"},
	}

	invalidInstallIdIssue = &Issue{
		id: InvalidInstallIdId,
		mdMsg: `
# That is not a valid install id!

Install ids look like ` + "`8.0.8~x64~runtime`" + ` (local) or
` + "`8.0.404~x64~sdk~global`" + `. Older short forms like ` + "`8.0.8`" + ` or
` + "`8.0.8~x64`" + ` are accepted and normalized.

## Things you can try:
- List the registered installs and copy an id from there:
~~~
$ dotnetup status
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load settings!

The settings file exists but could not be parsed or failed validation.

## Common issues:
- Invalid CUE syntax (missing quotes, braces, etc.)
- Out-of-range values (timeouts must be positive, cache ttl_multiplier ≥ 1)
- Duplicate callers in existing_paths

## Things you can try:
- Check the error message above for the offending field
- Show where the settings file was loaded from:
~~~
$ dotnetup config show
~~~
- Validate the file with the cue command-line tool`,
	}

	issues = map[Id]*Issue{
		versionResolutionFailedIssue.Id():  versionResolutionFailedIssue,
		lockTimeoutIssue.Id():              lockTimeoutIssue,
		installExecutionFailedIssue.Id():   installExecutionFailedIssue,
		missingNativeDependencyIssue.Id():  missingNativeDependencyIssue,
		installValidationFailedIssue.Id():  installValidationFailedIssue,
		elevationRefusedIssue.Id():         elevationRefusedIssue,
		unsupportedDistroIssue.Id():        unsupportedDistroIssue,
		invalidInstallIdIssue.Id():         invalidInstallIdIssue,
		configLoadFailedIssue.Id():         configLoadFailedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
