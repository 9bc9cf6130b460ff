// SPDX-License-Identifier: MPL-2.0

package ledger

import (
	"errors"
	"testing"

	"dotnetup/pkg/dotver"
	"dotnetup/pkg/platform"
)

func TestNewInstallID(t *testing.T) {
	tests := []struct {
		name    string
		version string
		arch    string
		mode    dotver.Mode
		scope   Scope
		want    InstallID
	}{
		{
			name: "local runtime", version: "8.0.8", arch: "x64",
			mode: dotver.ModeRuntime, scope: ScopeLocal,
			want: "8.0.8~x64~runtime",
		},
		{
			name: "global sdk", version: "8.0.404", arch: "arm64",
			mode: dotver.ModeSDK, scope: ScopeGlobal,
			want: "8.0.404~arm64~sdk~global",
		},
		{
			name: "goarch spelling normalizes", version: "8.0.8", arch: "amd64",
			mode: dotver.ModeASPNetCore, scope: ScopeLocal,
			want: "8.0.8~x64~aspnetcore",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewInstallID(tt.version, tt.arch, tt.mode, tt.scope); got != tt.want {
				t.Errorf("NewInstallID = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewInstallIDUnsetArchUsesMachineDefault(t *testing.T) {
	got := NewInstallID("8.0.8", "", dotver.ModeRuntime, ScopeLocal)
	want := InstallID("8.0.8~" + platform.DefaultArch() + "~runtime")
	if got != want {
		t.Errorf("NewInstallID with unset arch = %q, want %q", got, want)
	}
}

func TestInstallIDDeterminism(t *testing.T) {
	// Two requests with equal inputs must always converge on the same id;
	// the id is the lock key, so divergence would split the mutual exclusion.
	a := NewInstallID("8.0.8", "x64", dotver.ModeRuntime, ScopeLocal)
	b := NewInstallID("8.0.8", "amd64", dotver.ModeRuntime, ScopeLocal)
	if a != b {
		t.Errorf("equivalent requests produced distinct ids: %q vs %q", a, b)
	}
}

func TestParseLegacyShapes(t *testing.T) {
	tests := []struct {
		name string
		id   InstallID
		want Identity
	}{
		{
			name: "bare version",
			id:   "6.0.33",
			want: Identity{Version: "6.0.33", Architecture: platform.DefaultArch(), Mode: dotver.ModeRuntime, Scope: ScopeLocal},
		},
		{
			name: "two-part legacy",
			id:   "6.0.33~x64",
			want: Identity{Version: "6.0.33", Architecture: "x64", Mode: dotver.ModeRuntime, Scope: ScopeLocal},
		},
		{
			name: "canonical three-part",
			id:   "8.0.404~x64~sdk",
			want: Identity{Version: "8.0.404", Architecture: "x64", Mode: dotver.ModeSDK, Scope: ScopeLocal},
		},
		{
			name: "global four-part",
			id:   "8.0.404~x64~sdk~global",
			want: Identity{Version: "8.0.404", Architecture: "x64", Mode: dotver.ModeSDK, Scope: ScopeGlobal},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.id.Parse()
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.id, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.id, got, tt.want)
			}
		})
	}
}

func TestParseRejectsMalformedIDs(t *testing.T) {
	for _, id := range []InstallID{"", "8.0.8~x64~container", "8.0.8~x64~sdk~machine", "a~b~c~d~e"} {
		t.Run(string(id), func(t *testing.T) {
			if _, err := id.Parse(); !errors.Is(err, ErrInvalidInstallID) {
				t.Errorf("Parse(%q) error = %v, want ErrInvalidInstallID", id, err)
			}
		})
	}
}

func TestNormalizeLegacyID(t *testing.T) {
	got, err := InstallID("6.0.33~x64").Normalize()
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got != "6.0.33~x64~runtime" {
		t.Errorf("Normalize = %q, want 6.0.33~x64~runtime", got)
	}
}

func TestParseScope(t *testing.T) {
	if s, err := ParseScope(""); err != nil || s != ScopeLocal {
		t.Errorf("ParseScope(\"\") = %v, %v; want local", s, err)
	}
	if s, err := ParseScope("global"); err != nil || s != ScopeGlobal {
		t.Errorf("ParseScope(global) = %v, %v; want global", s, err)
	}
	if _, err := ParseScope("machine"); !errors.Is(err, ErrInvalidScope) {
		t.Errorf("ParseScope(machine) error = %v, want ErrInvalidScope", err)
	}
}
