// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestId_Constants(t *testing.T) {
	// Verify all IDs are unique and sequential
	ids := []Id{
		VersionResolutionFailedId,
		LockTimeoutId,
		InstallExecutionFailedId,
		MissingNativeDependencyId,
		InstallValidationFailedId,
		ElevationRefusedId,
		UnsupportedDistroId,
		InvalidInstallIdId,
		ConfigLoadFailedId,
	}

	seen := make(map[Id]bool)
	for _, id := range ids {
		if seen[id] {
			t.Errorf("duplicate ID: %d", id)
		}
		seen[id] = true
	}

	// Verify IDs start at 1 (iota + 1)
	if VersionResolutionFailedId != 1 {
		t.Errorf("VersionResolutionFailedId = %d, want 1", VersionResolutionFailedId)
	}
}

func TestIssue_Id(t *testing.T) {
	issue := Get(LockTimeoutId)
	if issue == nil {
		t.Fatal("Get(LockTimeoutId) returned nil")
	}

	if issue.Id() != LockTimeoutId {
		t.Errorf("issue.Id() = %d, want %d", issue.Id(), LockTimeoutId)
	}
}

func TestIssue_MarkdownMsg(t *testing.T) {
	tests := []struct {
		name     string
		id       Id
		contains string
	}{
		{"resolution mentions list-versions", VersionResolutionFailedId, "dotnetup list-versions"},
		{"lock timeout mentions lock_seconds", LockTimeoutId, "lock_seconds"},
		{"exec failure mentions verbose", InstallExecutionFailedId, "--verbose"},
		{"native deps mentions apt", MissingNativeDependencyId, "apt install"},
		{"validation mentions force uninstall", InstallValidationFailedId, "--force"},
		{"elevation mentions sudo -v", ElevationRefusedId, "sudo -v"},
		{"unsupported distro offers local install", UnsupportedDistroId, "dotnetup acquire 8.0"},
		{"invalid id shows canonical shape", InvalidInstallIdId, "~x64~runtime"},
		{"config mentions config show", ConfigLoadFailedId, "dotnetup config show"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issue := Get(tt.id)
			if issue == nil {
				t.Fatalf("Get(%d) returned nil", tt.id)
			}
			if !strings.Contains(string(issue.MarkdownMsg()), tt.contains) {
				t.Errorf("issue %d guidance does not contain %q", tt.id, tt.contains)
			}
		})
	}
}

func TestIssue_LinksAreCloned(t *testing.T) {
	issue := Get(MissingNativeDependencyId)
	if issue == nil {
		t.Fatal("Get(MissingNativeDependencyId) returned nil")
	}

	links := issue.ExtLinks()
	if len(links) == 0 {
		t.Fatal("expected external links")
	}
	links[0] = "mutated"
	if issue.ExtLinks()[0] == "mutated" {
		t.Error("ExtLinks() should return a clone, not the backing slice")
	}
}

func TestIssue_Render(t *testing.T) {
	origRender := render
	t.Cleanup(func() { render = origRender })

	var sawInput string
	render = func(in, _ string) (string, error) {
		sawInput = in
		return "rendered:" + in, nil
	}

	out, err := Get(MissingNativeDependencyId).Render("dark")
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.HasPrefix(out, "rendered:") {
		t.Errorf("Render() did not go through the renderer: %q", out)
	}
	if !strings.Contains(sawInput, "## See also") {
		t.Error("Render() should append the links section for issues with links")
	}
}

func TestIssue_RenderWithoutLinks(t *testing.T) {
	origRender := render
	t.Cleanup(func() { render = origRender })

	var sawInput string
	render = func(in, _ string) (string, error) {
		sawInput = in
		return in, nil
	}

	if _, err := Get(LockTimeoutId).Render("dark"); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if strings.Contains(sawInput, "## See also") {
		t.Error("Render() appended a links section to an issue without links")
	}
}

func TestGet_UnknownIdReturnsNil(t *testing.T) {
	if got := Get(Id(9999)); got != nil {
		t.Errorf("Get(9999) = %v, want nil", got)
	}
}

func TestValues_ReturnsAllIssues(t *testing.T) {
	values := Values()
	if len(values) != len(issues) {
		t.Errorf("Values() returned %d issues, want %d", len(values), len(issues))
	}

	seen := make(map[Id]bool)
	for _, issue := range values {
		seen[issue.Id()] = true
	}
	for id := VersionResolutionFailedId; id <= ConfigLoadFailedId; id++ {
		if !seen[id] {
			t.Errorf("Values() missing issue %d", id)
		}
	}
}
