// Package solver implements the PubGrub-style conflict-driven resolver
// (C7): a partial solution of assignments, a growing set of
// incompatibilities, unit propagation, decision-making, and conflict
// resolution via backtracking.
package solver

import (
	"github.com/elba-lang/elba/internal/ident"
	"github.com/elba-lang/elba/internal/version"
)

// AssignmentKind distinguishes a Decision from a Derivation.
type AssignmentKind int

const (
	Decision AssignmentKind = iota
	Derivation
)

// Assignment is one entry on the solver's trail: either a concrete version
// choice (Decision) or a deduced constraint (Derivation), each stamped with
// the decision level and step at which it was added.
type Assignment struct {
	Kind    AssignmentKind
	Package ident.Name

	// Decision: the chosen package identity (name plus the resolution it was
	// reached through) and version.
	Id      ident.PackageId
	Version version.Version

	// Derivation
	DerivedTerm Term
	Cause       int // index into the solver's incompatibility list

	Level int
	Step  int
}

// term returns the constraint this assignment asserts about Package: a
// Decision asserts the exact version; a Derivation asserts its term.
func (a Assignment) term() version.Range {
	if a.Kind == Decision {
		return version.Exactly(a.Version)
	}
	return a.DerivedTerm.effective()
}
