package release

import (
	"fmt"
	"strings"
	"time"
)

const (
	// VersionLength is the exact number of digits in a version identifier.
	VersionLength = 10

	// versionLayout renders a time as YYYYMMDDHH.
	versionLayout = "2006010215"

	// zoneOffset is the fixed offset all identifiers are derived in.
	zoneOffset = 8 * 60 * 60
)

// Zone is the fixed UTC+8 offset used for every derived timestamp,
// regardless of the host timezone.
//
//nolint:gochecknoglobals // Fixed zone is shared read-only state.
var Zone = time.FixedZone("UTC+8", zoneOffset)

// Version identifies an update package.
type Version string

// ParseVersion validates external input as a version identifier.
// Surrounding whitespace is ignored.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if !IsVersion(s) {
		return "", fmt.Errorf("%q: %w", s, ErrInvalidVersion)
	}

	return Version(s), nil
}

// IsVersion reports whether s is exactly ten ASCII decimal digits.
func IsVersion(s string) bool {
	if len(s) != VersionLength {
		return false
	}

	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}

// VersionAt derives the identifier for the hour containing t in UTC+8.
func VersionAt(t time.Time) Version {
	return Version(t.In(Zone).Format(versionLayout))
}

// String returns the identifier as stored on disk.
func (v Version) String() string {
	return string(v)
}

// Time converts the identifier back to the start of its hour in UTC+8.
func (v Version) Time() (time.Time, error) {
	t, err := time.ParseInLocation(versionLayout, string(v), Zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q: %w", string(v), ErrInvalidVersion)
	}

	return t, nil
}
