// Package version implements the range algebra over semantic versions used
// throughout the solver and index store: disjoint interval sets, their set
// operations, and the caret/tilde/comparator constraint grammar.
package version

import (
	"fmt"

	"github.com/Masterminds/semver"
)

// Version is a parsed semantic version, ordered by SemVer precedence.
type Version struct {
	sv *semver.Version
}

// Parse parses a semantic version string.
func Parse(s string) (Version, error) {
	sv, err := semver.NewVersion(s)
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	return Version{sv: sv}, nil
}

// MustParse parses s and panics on error. Intended for constants and tests.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	if v.sv == nil {
		return ""
	}
	return v.sv.String()
}

// IsPrerelease reports whether v carries a prerelease component.
func (v Version) IsPrerelease() bool {
	return v.sv != nil && v.sv.Prerelease() != ""
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than o,
// using full SemVer precedence (prerelease included).
func (v Version) Compare(o Version) int {
	return v.sv.Compare(o.sv)
}

func (v Version) Less(o Version) bool    { return v.Compare(o) < 0 }
func (v Version) Equal(o Version) bool   { return v.Compare(o) == 0 }
func (v Version) Greater(o Version) bool { return v.Compare(o) > 0 }

// valid reports whether v was constructed (as opposed to the zero Version).
func (v Version) valid() bool { return v.sv != nil }
