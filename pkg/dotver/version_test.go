// SPDX-License-Identifier: MPL-2.0

package dotver

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		expr    string
		want    Kind
		wantErr bool
	}{
		{name: "bare major", expr: "8", want: KindMajor},
		{name: "major minor", expr: "8.0", want: KindMajorMinor},
		{name: "feature band", expr: "7.0.3xx", want: KindFeatureBand},
		{name: "full", expr: "8.0.204", want: KindFull},
		{name: "full preview", expr: "9.0.0-preview.5.24306.7", want: KindFull},
		{name: "surrounding whitespace", expr: "  6.0.416 ", want: KindFull},
		{name: "empty", expr: "", wantErr: true},
		{name: "two-digit band", expr: "7.0.30xx", wantErr: true},
		{name: "four parts", expr: "8.0.2.4", wantErr: true},
		{name: "trailing dot", expr: "8.0.", wantErr: true},
		{name: "words", expr: "latest", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Classify(tt.expr)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Classify(%q) succeeded with %v, want error", tt.expr, got)
				}
				if !errors.Is(err, ErrInvalidVersion) {
					t.Errorf("Classify(%q) error does not unwrap to ErrInvalidVersion: %v", tt.expr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Classify(%q) unexpected error: %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestIsFullySpecified(t *testing.T) {
	t.Parallel()

	tests := []struct {
		expr string
		want bool
	}{
		{expr: "8.0.204", want: true},
		{expr: "9.0.0-rc.2.24473.5", want: true},
		{expr: "8.0", want: false},
		{expr: "8", want: false},
		{expr: "7.0.3xx", want: false},
		{expr: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			t.Parallel()
			if got := IsFullySpecified(tt.expr); got != tt.want {
				t.Errorf("IsFullySpecified(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
		want int
	}{
		{name: "equal", a: "8.0.204", b: "8.0.204", want: 0},
		{name: "patch ordering", a: "8.0.101", b: "8.0.204", want: -1},
		{name: "minor beats patch", a: "6.0.416", b: "7.0.100", want: -1},
		{name: "greater", a: "9.0.0", b: "8.0.999", want: 1},
		{name: "prerelease before release", a: "9.0.0-preview.5.24306.7", b: "9.0.0", want: -1},
		{name: "prerelease ordering", a: "9.0.0-preview.5.24306.7", b: "9.0.0-rc.1.24452.12", want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Compare(tt.a, tt.b)
			if err != nil {
				t.Fatalf("Compare(%q, %q) unexpected error: %v", tt.a, tt.b, err)
			}
			if got != tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}

	t.Run("unparsable input", func(t *testing.T) {
		t.Parallel()
		if _, err := Compare("not-a-version", "8.0.204"); err == nil {
			t.Error("expected error for unparsable version")
		}
	})
}

func TestMajorMinor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		expr    string
		want    string
		wantErr bool
	}{
		{expr: "8", want: "8.0"},
		{expr: "8.0", want: "8.0"},
		{expr: "8.0.204", want: "8.0"},
		{expr: "7.0.3xx", want: "7.0"},
		{expr: "3.1.426", want: "3.1"},
		{expr: "9.0.0-preview.5.24306.7", want: "9.0"},
		{expr: "banana", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			t.Parallel()
			got, err := MajorMinor(tt.expr)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("MajorMinor(%q) succeeded with %q, want error", tt.expr, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("MajorMinor(%q) unexpected error: %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("MajorMinor(%q) = %q, want %q", tt.expr, got, tt.want)
			}
		})
	}
}

func TestSameMajorMinor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{name: "full versions in same channel", a: "8.0.101", b: "8.0.204", want: true},
		{name: "bare major against full", a: "8", b: "8.0.204", want: true},
		{name: "different minors", a: "3.1.426", b: "3.0.103", want: false},
		{name: "different majors", a: "6.0.416", b: "7.0.100", want: false},
		{name: "invalid operand", a: "nope", b: "8.0.204", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SameMajorMinor(tt.a, tt.b); got != tt.want {
				t.Errorf("SameMajorMinor(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestFeatureBand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		version string
		want    uint64
	}{
		{version: "7.0.304", want: 3},
		{version: "7.0.100", want: 1},
		{version: "6.0.416", want: 4},
		{version: "8.0.204", want: 2},
		{version: "2.1.5", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			t.Parallel()
			got, err := FeatureBand(tt.version)
			if err != nil {
				t.Fatalf("FeatureBand(%q) unexpected error: %v", tt.version, err)
			}
			if got != tt.want {
				t.Errorf("FeatureBand(%q) = %d, want %d", tt.version, got, tt.want)
			}
		})
	}
}

func TestMatchesBand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		version string
		band    string
		want    bool
		wantErr bool
	}{
		{name: "inside band", version: "7.0.304", band: "7.0.3xx", want: true},
		{name: "band boundary low", version: "7.0.300", band: "7.0.3xx", want: true},
		{name: "below band", version: "7.0.203", band: "7.0.3xx", want: false},
		{name: "above band", version: "7.0.401", band: "7.0.3xx", want: false},
		{name: "different channel", version: "8.0.304", band: "7.0.3xx", want: false},
		{name: "malformed band", version: "7.0.304", band: "7.0.3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := MatchesBand(tt.version, tt.band)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error for malformed band expression")
				}
				return
			}
			if err != nil {
				t.Fatalf("MatchesBand(%q, %q) unexpected error: %v", tt.version, tt.band, err)
			}
			if got != tt.want {
				t.Errorf("MatchesBand(%q, %q) = %v, want %v", tt.version, tt.band, got, tt.want)
			}
		})
	}
}

func TestNewest(t *testing.T) {
	t.Parallel()

	t.Run("picks highest", func(t *testing.T) {
		t.Parallel()
		got, ok := Newest([]string{"6.0.416", "8.0.101", "8.0.204", "7.0.410"})
		if !ok {
			t.Fatal("expected a winner")
		}
		if got != "8.0.204" {
			t.Errorf("Newest = %q, want %q", got, "8.0.204")
		}
	})

	t.Run("skips unparsable entries", func(t *testing.T) {
		t.Parallel()
		got, ok := Newest([]string{"garbage", "6.0.416", ""})
		if !ok {
			t.Fatal("expected a winner")
		}
		if got != "6.0.416" {
			t.Errorf("Newest = %q, want %q", got, "6.0.416")
		}
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		if _, ok := Newest(nil); ok {
			t.Error("expected no winner for empty input")
		}
	})
}

func TestNewestInMajorMinor(t *testing.T) {
	t.Parallel()

	candidates := []string{"6.0.416", "8.0.101", "8.0.204", "7.0.410", "8.1.100"}

	t.Run("latest patch within channel", func(t *testing.T) {
		t.Parallel()
		got, ok := NewestInMajorMinor(candidates, "8.0")
		if !ok {
			t.Fatal("expected a winner")
		}
		if got != "8.0.204" {
			t.Errorf("NewestInMajorMinor = %q, want %q", got, "8.0.204")
		}
	})

	t.Run("no candidate in channel", func(t *testing.T) {
		t.Parallel()
		if _, ok := NewestInMajorMinor(candidates, "5.0"); ok {
			t.Error("expected no winner for empty channel")
		}
	})
}
