package metadata

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidVersion is returned when a specification version is not major.minor.patch.
var ErrInvalidVersion = errors.New("invalid version")

// SimpleVersion is a major.minor.patch version of the dataset format.
type SimpleVersion struct {
	Major int
	Minor int
	Patch int
}

// DefaultSpecVersion is the dataset format version written by this build.
var DefaultSpecVersion = SimpleVersion{Major: 1, Minor: 0, Patch: 0}

// ParseSimpleVersion parses "major.minor.patch". Each part must be a
// non-negative decimal integer.
func ParseSimpleVersion(s string) (SimpleVersion, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return SimpleVersion{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || strings.HasPrefix(p, "+") {
			return SimpleVersion{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
		}
		nums[i] = n
	}
	return SimpleVersion{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// String returns the version as "major.minor.patch".
func (v SimpleVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// MarshalText implements encoding.TextMarshaler.
func (v SimpleVersion) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *SimpleVersion) UnmarshalText(text []byte) error {
	parsed, err := ParseSimpleVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
