// Package ident implements the identity and resolution types of the data
// model: Name, DirectRes/IndexRes/Resolution, PackageId, Summary, and
// BuildHash.
package ident

import (
	"fmt"
	"strings"
)

// Name is the two-segment "group/name" package identifier. Two Names are
// equal iff their normalized (lower-cased) forms match.
type Name struct {
	norm string
	disp string
}

// ParseName parses a "group/name" identifier.
func ParseName(s string) (Name, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Name{}, fmt.Errorf("invalid package name %q: want group/name", s)
	}
	return Name{norm: strings.ToLower(s), disp: s}, nil
}

func (n Name) String() string { return n.disp }

// Equal reports whether n and o refer to the same package name.
func (n Name) Equal(o Name) bool { return n.norm == o.norm }

// Less provides a total order over Names for deterministic tie-breaking.
func (n Name) Less(o Name) bool { return n.norm < o.norm }

// Group returns the "group" segment.
func (n Name) Group() string { return strings.SplitN(n.disp, "/", 2)[0] }

// Base returns the "name" segment.
func (n Name) Base() string { return strings.SplitN(n.disp, "/", 2)[1] }
