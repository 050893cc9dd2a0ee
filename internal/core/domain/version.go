package domain

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// VersionZero is the conceptual schema version of a tenant that has never
// been migrated (absent version marker).
const VersionZero = "0.0.0"

// ParseVersion parses a MAJOR.MINOR.PATCH string. Missing trailing fields
// are coerced to 0 ("1.2" parses as 1.2.0), matching the numeric field-wise
// ordering the migration registry relies on. A malformed string is caller
// misuse and returns ErrInvalidVersion.
func ParseVersion(s string) (*semver.Version, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	return v, nil
}

// CompareVersions compares two version strings numerically field by field.
// Returns -1, 0 or 1. Both inputs must be well-formed; use ParseVersion
// first when the string comes from outside the process.
func CompareVersions(a, b string) (int, error) {
	va, err := ParseVersion(a)
	if err != nil {
		return 0, err
	}
	vb, err := ParseVersion(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}
