// SPDX-License-Identifier: MPL-2.0

package dotver

import (
	"errors"
	"fmt"
)

// ErrInvalidRequirement indicates that a string does not name a known
// version requirement.
var ErrInvalidRequirement = errors.New("invalid version requirement")

type (
	// Requirement names a comparison between an installed version and a
	// requested one when searching existing installations.
	Requirement string

	// InvalidRequirementError decorates ErrInvalidRequirement with the
	// rejected value.
	InvalidRequirementError struct {
		Value Requirement
	}
)

const (
	// RequirementEqual accepts installations whose major.minor equals the
	// requested one.
	RequirementEqual Requirement = "equal"
	// RequirementGreaterThanOrEqual accepts installations at or above the
	// requested version.
	RequirementGreaterThanOrEqual Requirement = "greater_than_or_equal"
	// RequirementLessThanOrEqual accepts installations at or below the
	// requested version.
	RequirementLessThanOrEqual Requirement = "less_than_or_equal"
	// RequirementLatestPatch accepts only the newest installed patch of the
	// requested major.minor.
	RequirementLatestPatch Requirement = "latestPatch"
)

func (e *InvalidRequirementError) Error() string {
	return fmt.Sprintf("%v: %q", ErrInvalidRequirement, string(e.Value))
}

func (e *InvalidRequirementError) Unwrap() error {
	return ErrInvalidRequirement
}

// IsValid checks whether the requirement is one of the supported values.
func (r Requirement) IsValid() (bool, []error) {
	switch r {
	case RequirementEqual, RequirementGreaterThanOrEqual, RequirementLessThanOrEqual, RequirementLatestPatch:
		return true, nil
	default:
		return false, []error{&InvalidRequirementError{Value: r}}
	}
}

// ParseRequirement converts a user-supplied string into a Requirement.
func ParseRequirement(s string) (Requirement, error) {
	r := Requirement(s)
	if ok, errs := r.IsValid(); !ok {
		return "", errs[0]
	}
	return r, nil
}

// Satisfies reports whether an installed version meets the requirement
// relative to the requested version. The requested version may be partial
// (a major or major.minor); the installed version must be fully specified.
//
// RequirementLatestPatch matches on major.minor alone; narrowing the
// candidates to the single newest patch is the caller's job, since it needs
// the whole candidate set.
func (r Requirement) Satisfies(installed, requested string) (bool, error) {
	switch r {
	case RequirementEqual, RequirementLatestPatch:
		return SameMajorMinor(installed, requested), nil
	case RequirementGreaterThanOrEqual:
		c, err := Compare(installed, requested)
		if err != nil {
			return false, err
		}
		return c >= 0, nil
	case RequirementLessThanOrEqual:
		c, err := Compare(installed, requested)
		if err != nil {
			return false, err
		}
		return c <= 0, nil
	default:
		return false, &InvalidRequirementError{Value: r}
	}
}
