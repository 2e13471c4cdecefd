package solver

import (
	"github.com/elba-lang/elba/internal/ident"
	"github.com/elba-lang/elba/internal/version"
)

type relKind int

const (
	relDisjoint relKind = iota
	relOverlap
	relSatisfied
)

// partialSolution is the solver's trail (assignments in order) plus, per
// package, the accumulated range implied by everything derived/decided so
// far and the decision level at which the package was first touched.
type partialSolution struct {
	trail []Assignment

	// accumulated range per package, intersected down as assignments land
	ranges map[ident.Name]version.Range

	// decisions maps a decided package to its chosen identity+version
	decisions map[ident.Name]Assignment

	// decisionLevel of the partial solution; incremented each Decision
	level int

	step int
}

func newPartialSolution() *partialSolution {
	return &partialSolution{
		ranges:    make(map[ident.Name]version.Range),
		decisions: make(map[ident.Name]Assignment),
	}
}

func (ps *partialSolution) rangeFor(pkg ident.Name) version.Range {
	if r, ok := ps.ranges[pkg]; ok {
		return r
	}
	return version.Any()
}

// relationTo classifies term against the accumulated range for pkg.
func (ps *partialSolution) relationTo(pkg ident.Name, term version.Range) relKind {
	cur := ps.rangeFor(pkg)
	switch cur.RelationTo(term) {
	case version.Disjoint:
		return relDisjoint
	case version.Subset, version.Equal:
		return relSatisfied
	default: // Superset, Overlapping
		return relOverlap
	}
}

// addDecision commits pkg to a concrete version at the current level.
func (ps *partialSolution) addDecision(id ident.PackageId, v version.Version) {
	ps.level++
	a := Assignment{
		Kind:    Decision,
		Package: id.Name,
		Id:      id,
		Version: v,
		Level:   ps.level,
		Step:    ps.step,
	}
	ps.step++
	ps.trail = append(ps.trail, a)
	ps.ranges[id.Name] = ps.rangeFor(id.Name).Intersect(a.term())
	ps.decisions[id.Name] = a
}

// addDerivation records a deduced term on pkg at the current level.
func (ps *partialSolution) addDerivation(pkg ident.Name, term Term, cause int) {
	a := Assignment{
		Kind:        Derivation,
		Package:     pkg,
		DerivedTerm: term,
		Cause:       cause,
		Level:       ps.level,
		Step:        ps.step,
	}
	ps.step++
	ps.trail = append(ps.trail, a)
	ps.ranges[pkg] = ps.rangeFor(pkg).Intersect(a.term())
}

// satisfier walks the trail from the start looking for the earliest
// assignment sequence whose cumulative intersection already implies term;
// it returns the index of the assignment that completed the implication
// (the "satisfier") per the standard PubGrub algorithm.
func (ps *partialSolution) satisfier(pkg ident.Name, term version.Range) int {
	if rel := version.Any().RelationTo(term); rel == version.Subset || rel == version.Equal {
		// term holds unconditionally; nothing on the trail is required to
		// imply it, so there is no concrete satisfier position.
		return -1
	}

	acc := version.Any()
	for i, a := range ps.trail {
		if !a.Package.Equal(pkg) {
			continue
		}
		acc = acc.Intersect(a.term())
		if acc.RelationTo(term) == version.Subset || acc.RelationTo(term) == version.Equal {
			return i
		}
	}
	return len(ps.trail) - 1
}

// backtrackTo truncates the trail to assignments at or below level,
// recomputing accumulated ranges and decisions from scratch.
func (ps *partialSolution) backtrackTo(level int) {
	kept := ps.trail[:0:0]
	for _, a := range ps.trail {
		if a.Level <= level {
			kept = append(kept, a)
		}
	}
	ps.trail = kept
	ps.level = level

	ps.ranges = make(map[ident.Name]version.Range)
	ps.decisions = make(map[ident.Name]Assignment)
	for _, a := range ps.trail {
		ps.ranges[a.Package] = ps.rangeFor(a.Package).Intersect(a.term())
		if a.Kind == Decision {
			ps.decisions[a.Package] = a
		}
	}
}

// decidedVersion reports the version decided for pkg, if any.
func (ps *partialSolution) decidedVersion(pkg ident.Name) (ident.PackageId, version.Version, bool) {
	a, ok := ps.decisions[pkg]
	if !ok {
		return ident.PackageId{}, version.Version{}, false
	}
	return a.Id, a.Version, true
}

// unsatisfiedPackages returns every package referenced anywhere on the
// trail that does not yet have a decision; an empty result means there is
// nothing left to propagate or decide.
func (ps *partialSolution) unsatisfiedPackages() []ident.Name {
	seen := make(map[ident.Name]bool)
	var out []ident.Name
	for _, a := range ps.trail {
		if seen[a.Package] {
			continue
		}
		seen[a.Package] = true
		if _, decided := ps.decisions[a.Package]; !decided {
			out = append(out, a.Package)
		}
	}
	return out
}
