package solver

import (
	"fmt"
	"strings"

	"github.com/elba-lang/elba/internal/ident"
)

// NoConflictRes is returned when the resolver proves the requested model
// unsatisfiable; Narrative is a human-readable derivation walk.
type NoConflictRes struct {
	Narrative string
}

func (e *NoConflictRes) Error() string { return e.Narrative }
func (e *NoConflictRes) Kind() string  { return "NoConflictRes" }

// unresolvable builds the final NoConflictRes from the incompatibility that
// proved unsatisfiable at decision level 0.
func (s *Solver) unresolvable(idx int) error {
	return &NoConflictRes{Narrative: s.narrate(idx, make(map[int]bool))}
}

// narrate walks the Derived-cause DAG of incs[idx], producing "because <a>
// and <b>, <this>" sentences, collapsing repeated causes.
func (s *Solver) narrate(idx int, seen map[int]bool) string {
	if seen[idx] {
		return ""
	}
	seen[idx] = true
	inc := s.incs[idx]

	switch inc.Cause.Kind {
	case CauseRoot:
		return "the root package is required"
	case CauseUnavailable:
		return fmt.Sprintf("no version of %s satisfies the request", oneTermName(inc))
	case CauseDependency:
		return fmt.Sprintf("%s %s depends on %s %s",
			inc.Cause.DepParent, inc.Terms[inc.Cause.DepParent].Range,
			inc.Cause.DepChild, inc.Terms[inc.Cause.DepChild].Range)
	case CauseDerived:
		left := s.narrate(inc.Cause.Left, seen)
		right := s.narrate(inc.Cause.Right, seen)
		var parts []string
		if left != "" {
			parts = append(parts, left)
		}
		if right != "" {
			parts = append(parts, right)
		}
		if len(parts) == 0 {
			return inc.String()
		}
		return fmt.Sprintf("because %s, %s", strings.Join(parts, " and "), inc.String())
	default:
		return inc.String()
	}
}

func oneTermName(inc Incompatibility) ident.Name {
	for pkg := range inc.Terms {
		return pkg
	}
	return ident.Name{}
}

// isRootOnlyAtLevelZero reports whether inc has no terms, or exactly one
// term naming the root package while the partial solution is still at
// decision level 0, the termination condition for conflict resolution.
func (s *Solver) isRootOnlyAtLevelZero(inc Incompatibility) bool {
	if len(inc.Terms) == 0 {
		return true
	}
	if len(inc.Terms) != 1 {
		return false
	}
	for pkg := range inc.Terms {
		if pkg.Equal(s.retriever.Root.Id.Name) && s.ps.level == 0 {
			return true
		}
	}
	return false
}

// mostRecentSatisfier returns the trail index of the assignment that most
// recently completed the implication of one of inc's terms, and the level
// at which every other term (besides that satisfier's own package) was
// already implied.
func (s *Solver) mostRecentSatisfier(inc Incompatibility) (satIdx int, prevLevel int) {
	satIdx = -1
	type hit struct {
		pkg   ident.Name
		idx   int
		level int
	}
	var hits []hit
	for pkg, term := range inc.Terms {
		i := s.ps.satisfier(pkg, term.effective())
		lvl := 0
		if i >= 0 && i < len(s.ps.trail) {
			lvl = s.ps.trail[i].Level
		}
		hits = append(hits, hit{pkg: pkg, idx: i, level: lvl})
		if i > satIdx {
			satIdx = i
		}
	}
	if satIdx < 0 {
		return -1, 0
	}
	satPkg := s.ps.trail[satIdx].Package
	for _, h := range hits {
		if h.pkg.Equal(satPkg) {
			continue
		}
		if h.level > prevLevel {
			prevLevel = h.level
		}
	}
	return satIdx, prevLevel
}

// resolveIncompats implements the resolution rule: eliminate pkg's term
// from a and b, unioning the remaining terms (intersecting ranges for any
// package named by both), tagged Derived(a, b).
func resolveIncompats(aIdx, bIdx int, a, b Incompatibility, pkg ident.Name) Incompatibility {
	terms := make(map[ident.Name]Term, len(a.Terms)+len(b.Terms))
	for p, t := range a.Terms {
		if p.Equal(pkg) {
			continue
		}
		terms[p] = t
	}
	for p, t := range b.Terms {
		if p.Equal(pkg) {
			continue
		}
		if existing, ok := terms[p]; ok {
			terms[p] = Term{Range: existing.effective().Intersect(t.effective()), Positive: true}
		} else {
			terms[p] = t
		}
	}
	return derivedIncompat(terms, aIdx, bIdx)
}

// resolveConflict runs conflict resolution. Returns the decision level to
// backtrack to; unresolvable is true when no such level exists (the caller
// should report via unresolvable(idx)).
func (s *Solver) resolveConflict(idx int) (level int, unresolvable bool, err error) {
	curIdx := idx
	cur := s.incs[idx]

	for {
		if s.isRootOnlyAtLevelZero(cur) {
			return 0, true, nil
		}

		satIdx, prevLevel := s.mostRecentSatisfier(cur)
		if satIdx < 0 || satIdx >= len(s.ps.trail) {
			// Every term held unconditionally with no trail provenance to
			// backtrack past; nothing more can be learned.
			return 0, true, nil
		}
		sat := s.ps.trail[satIdx]

		if sat.Kind == Decision || prevLevel < sat.Level {
			s.ps.backtrackTo(prevLevel)
			learnedIdx := len(s.incs)
			s.incs = append(s.incs, cur)
			negated := cur.Terms[sat.Package].negate()
			s.ps.addDerivation(sat.Package, negated, learnedIdx)
			return prevLevel, false, nil
		}

		cause := s.incs[sat.Cause]
		merged := resolveIncompats(curIdx, sat.Cause, cur, cause, sat.Package)
		curIdx = len(s.incs)
		s.incs = append(s.incs, merged)
		cur = merged
	}
}
