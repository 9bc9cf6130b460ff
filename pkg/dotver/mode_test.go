// SPDX-License-Identifier: MPL-2.0

package dotver

import (
	"errors"
	"testing"
)

func TestModeIsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		mode Mode
		want bool
	}{
		{name: "runtime", mode: ModeRuntime, want: true},
		{name: "aspnetcore", mode: ModeASPNetCore, want: true},
		{name: "sdk", mode: ModeSDK, want: true},
		{name: "empty", mode: Mode(""), want: false},
		{name: "unknown", mode: Mode("desktop"), want: false},
		{name: "case matters", mode: Mode("SDK"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, errs := tt.mode.IsValid()
			if got != tt.want {
				t.Errorf("IsValid(%q) = %v, want %v", tt.mode, got, tt.want)
			}
			if !tt.want {
				if len(errs) != 1 {
					t.Fatalf("expected 1 error for %q, got %d", tt.mode, len(errs))
				}
				if !errors.Is(errs[0], ErrInvalidMode) {
					t.Errorf("error for %q does not unwrap to ErrInvalidMode: %v", tt.mode, errs[0])
				}
			}
		})
	}
}

func TestModeIsRuntimeClass(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mode Mode
		want bool
	}{
		{mode: ModeRuntime, want: true},
		{mode: ModeASPNetCore, want: true},
		{mode: ModeSDK, want: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			t.Parallel()
			if got := tt.mode.IsRuntimeClass(); got != tt.want {
				t.Errorf("IsRuntimeClass(%q) = %v, want %v", tt.mode, got, tt.want)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	t.Run("valid value round-trips", func(t *testing.T) {
		t.Parallel()
		m, err := ParseMode("aspnetcore")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if m != ModeASPNetCore {
			t.Errorf("ParseMode(\"aspnetcore\") = %q, want %q", m, ModeASPNetCore)
		}
	})

	t.Run("invalid value reports the offending string", func(t *testing.T) {
		t.Parallel()
		_, err := ParseMode("mono")
		if err == nil {
			t.Fatal("expected error for invalid mode")
		}
		var modeErr *InvalidModeError
		if !errors.As(err, &modeErr) {
			t.Fatalf("expected *InvalidModeError, got %T", err)
		}
		if modeErr.Value != "mono" {
			t.Errorf("error value = %q, want %q", modeErr.Value, "mono")
		}
	})
}
