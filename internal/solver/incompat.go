package solver

import (
	"fmt"

	"github.com/elba-lang/elba/internal/ident"
	"github.com/elba-lang/elba/internal/version"
)

// Term is one package constraint within an Incompatibility: either "the
// package's version lies in Range" (Positive) or its negation.
type Term struct {
	Range    version.Range
	Positive bool
}

// effective returns the Range this term actually asserts as true, folding
// the negative case into its complement.
func (t Term) effective() version.Range {
	if t.Positive {
		return t.Range
	}
	return t.Range.Complement()
}

// negate returns the logical negation of t, keeping the same underlying
// Range and flipping polarity (cheaper, and more legible in narratives,
// than complementing the Range itself).
func (t Term) negate() Term { return Term{Range: t.Range, Positive: !t.Positive} }

func (t Term) String() string {
	if t.Positive {
		return t.Range.String()
	}
	return "not " + t.Range.String()
}

// CauseKind tags an Incompatibility's origin.
type CauseKind int

const (
	CauseRoot CauseKind = iota
	CauseDependency
	CauseUnavailable
	CauseDerived
)

// Cause carries the origin-specific payload for an Incompatibility.
type Cause struct {
	Kind CauseKind

	// Dependency: the depending package and the dependency, for narrative
	// rendering ("X vY depends on Y vZ").
	DepParent ident.Name
	DepChild  ident.Name

	// Derived: the two incompatibilities this one was resolved from.
	Left  int
	Right int
}

// Incompatibility asserts that its terms cannot all hold simultaneously. A
// term `p -> C` means "p's version lies in C".
type Incompatibility struct {
	Terms map[ident.Name]Term
	Cause Cause
}

func rootIncompat(rootName ident.Name, rootVersion version.Version) Incompatibility {
	return Incompatibility{
		Terms: map[ident.Name]Term{rootName: {Range: version.Exactly(rootVersion), Positive: false}},
		Cause: Cause{Kind: CauseRoot},
	}
}

func dependencyIncompat(parent ident.Name, parentRange version.Range, child ident.Name, req version.Range) Incompatibility {
	return Incompatibility{
		Terms: map[ident.Name]Term{
			parent: {Range: parentRange, Positive: true},
			child:  {Range: req, Positive: false},
		},
		Cause: Cause{Kind: CauseDependency, DepParent: parent, DepChild: child},
	}
}

func unavailableIncompat(pkg ident.Name, r version.Range) Incompatibility {
	return Incompatibility{
		Terms: map[ident.Name]Term{pkg: {Range: r, Positive: true}},
		Cause: Cause{Kind: CauseUnavailable},
	}
}

func derivedIncompat(terms map[ident.Name]Term, left, right int) Incompatibility {
	return Incompatibility{
		Terms: terms,
		Cause: Cause{Kind: CauseDerived, Left: left, Right: right},
	}
}

// IncompatMatch classifies an Incompatibility against the current partial
// solution.
type IncompatMatch int

const (
	MatchContradicted IncompatMatch = iota
	MatchInconclusive
	MatchAlmostSatisfied
	MatchSatisfied
)

// match evaluates inc against the partial solution ps, returning its
// classification and, when AlmostSatisfied, the single unsatisfied term's
// package and term (ready to have its negation derived).
func (inc Incompatibility) match(ps *partialSolution) (IncompatMatch, ident.Name, Term) {
	unsatisfiedCount := 0
	var unsatName ident.Name
	var unsatTerm Term

	for pkg, term := range inc.Terms {
		switch ps.relationTo(pkg, term.effective()) {
		case relDisjoint:
			return MatchContradicted, ident.Name{}, Term{}
		case relOverlap:
			unsatisfiedCount++
			unsatName, unsatTerm = pkg, term
			if unsatisfiedCount > 1 {
				return MatchInconclusive, ident.Name{}, Term{}
			}
		case relSatisfied:
			// term already fully implied by ps; contributes nothing further
		}
	}

	switch unsatisfiedCount {
	case 0:
		return MatchSatisfied, ident.Name{}, Term{}
	case 1:
		return MatchAlmostSatisfied, unsatName, unsatTerm
	default:
		return MatchInconclusive, ident.Name{}, Term{}
	}
}

func (inc Incompatibility) String() string {
	if len(inc.Terms) == 0 {
		return "<empty incompatibility>"
	}
	s := ""
	i := 0
	for pkg, term := range inc.Terms {
		if i > 0 {
			s += " and "
		}
		s += fmt.Sprintf("%s %s", pkg, term)
		i++
	}
	return s
}
