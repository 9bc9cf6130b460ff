// SPDX-License-Identifier: MPL-2.0

package dotver

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const (
	// KindMajor is a bare major version expression, e.g. "8".
	KindMajor Kind = "major"
	// KindMajorMinor is a major.minor expression, e.g. "8.0".
	KindMajorMinor Kind = "major-minor"
	// KindFeatureBand is an SDK feature-band expression, e.g. "7.0.3xx".
	KindFeatureBand Kind = "feature-band"
	// KindFull is a fully specified version, e.g. "8.0.204" or
	// "9.0.0-preview.5.24306.7".
	KindFull Kind = "full"
)

// ErrInvalidVersion is the sentinel error wrapped by InvalidVersionError.
var ErrInvalidVersion = errors.New("invalid version expression")

var (
	majorRE       = regexp.MustCompile(`^\d+$`)
	majorMinorRE  = regexp.MustCompile(`^\d+\.\d+$`)
	featureBandRE = regexp.MustCompile(`^(\d+\.\d+)\.(\d)xx$`)
	fullRE        = regexp.MustCompile(`^\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?$`)
)

type (
	// Kind classifies a version expression by its shape.
	Kind string

	// InvalidVersionError is returned when a string is not a recognizable
	// version expression. It wraps ErrInvalidVersion for errors.Is().
	InvalidVersionError struct {
		Value string
	}
)

// Error implements the error interface.
func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("%v: %q", ErrInvalidVersion, e.Value)
}

// Unwrap returns ErrInvalidVersion for errors.Is() compatibility.
func (e *InvalidVersionError) Unwrap() error { return ErrInvalidVersion }

// Classify determines the Kind of a version expression. Surrounding
// whitespace is tolerated; an empty or unrecognizable expression returns an
// InvalidVersionError.
func Classify(expr string) (Kind, error) {
	expr = strings.TrimSpace(expr)
	switch {
	case majorRE.MatchString(expr):
		return KindMajor, nil
	case majorMinorRE.MatchString(expr):
		return KindMajorMinor, nil
	case featureBandRE.MatchString(expr):
		return KindFeatureBand, nil
	case fullRE.MatchString(expr):
		return KindFull, nil
	}
	return "", &InvalidVersionError{Value: expr}
}

// IsFullySpecified reports whether expr is a complete three-part version
// that needs no further resolution.
func IsFullySpecified(expr string) bool {
	k, err := Classify(expr)
	return err == nil && k == KindFull
}

// Parse converts a version into its semver representation. Partial
// versions coerce the way semver tooling does ("8.0" parses as 8.0.0);
// callers that need to reject partial input should Classify first.
func Parse(version string) (*semver.Version, error) {
	v, err := semver.NewVersion(strings.TrimSpace(version))
	if err != nil {
		return nil, &InvalidVersionError{Value: version}
	}
	return v, nil
}

// Compare orders two fully specified versions: -1 if a < b, 0 if equal,
// +1 if a > b. Prerelease versions order before their release per semver.
func Compare(a, b string) (int, error) {
	va, err := Parse(a)
	if err != nil {
		return 0, err
	}
	vb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}

// MajorMinor extracts the "major.minor" prefix from any expression that
// carries one ("8.0", "8.0.204", "7.0.3xx"). A bare major maps to
// "major.0", matching how channels are labeled.
func MajorMinor(expr string) (string, error) {
	expr = strings.TrimSpace(expr)
	kind, err := Classify(expr)
	if err != nil {
		return "", err
	}
	if kind == KindMajor {
		return expr + ".0", nil
	}
	parts := strings.SplitN(expr, ".", 3)
	return parts[0] + "." + parts[1], nil
}

// SameMajorMinor reports whether two expressions share a major.minor prefix.
func SameMajorMinor(a, b string) bool {
	ma, errA := MajorMinor(a)
	mb, errB := MajorMinor(b)
	return errA == nil && errB == nil && ma == mb
}

// FeatureBand returns the feature-band digit of a fully specified SDK
// version: the hundreds digit of its patch number ("7.0.304" → 3). SDK
// patch numbers are three digits by convention; versions with a smaller
// patch report band 0.
func FeatureBand(sdkVersion string) (uint64, error) {
	v, err := Parse(sdkVersion)
	if err != nil {
		return 0, err
	}
	return v.Patch() / 100, nil
}

// MatchesBand reports whether a fully specified SDK version falls inside a
// feature-band expression such as "7.0.3xx".
func MatchesBand(sdkVersion, bandExpr string) (bool, error) {
	m := featureBandRE.FindStringSubmatch(strings.TrimSpace(bandExpr))
	if m == nil {
		return false, &InvalidVersionError{Value: bandExpr}
	}
	mm, err := MajorMinor(sdkVersion)
	if err != nil {
		return false, err
	}
	if mm != m[1] {
		return false, nil
	}
	band, err := FeatureBand(sdkVersion)
	if err != nil {
		return false, err
	}
	return fmt.Sprintf("%d", band) == m[2], nil
}

// Newest returns the highest version among candidates, skipping entries
// that fail to parse. The second result is false when no candidate parsed.
func Newest(candidates []string) (string, bool) {
	var (
		best    *semver.Version
		bestRaw string
	)
	for _, c := range candidates {
		v, err := Parse(c)
		if err != nil {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
			bestRaw = c
		}
	}
	return bestRaw, best != nil
}

// NewestInMajorMinor returns the highest candidate sharing the requested
// major.minor — the "latestPatch" selection. The second result is false when
// no candidate qualifies.
func NewestInMajorMinor(candidates []string, majorMinor string) (string, bool) {
	var matching []string
	for _, c := range candidates {
		mm, err := MajorMinor(c)
		if err != nil {
			continue
		}
		if mm == majorMinor {
			matching = append(matching, c)
		}
	}
	return Newest(matching)
}
