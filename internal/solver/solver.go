package solver

import (
	"sort"

	"github.com/elba-lang/elba/internal/graph"
	"github.com/elba-lang/elba/internal/ident"
	"github.com/elba-lang/elba/internal/shell"
	"github.com/elba-lang/elba/internal/version"
)

// depEdge records that parent was seen depending on child while building
// incompatibilities, so the final decided set can be reassembled into the
// Graph<Summary> the solver is contracted to produce.
type depEdge struct {
	parent ident.Name
	child  ident.Name
}

// Solver runs the CDCL loop over one Retriever. It is single-threaded
// by design: a solve produces one Graph<Summary>, sequentially.
type Solver struct {
	retriever *Retriever
	sh        *shell.Shell

	ps       *partialSolution
	incs     []Incompatibility
	edges    []depEdge
	attempts int
}

// Attempts reports how many decisions were committed, including those later
// undone by backtracking.
func (s *Solver) Attempts() int { return s.attempts }

// New builds a Solver over r. sh may be nil to disable trace output.
func New(r *Retriever, sh *shell.Shell) *Solver {
	return &Solver{retriever: r, sh: sh, ps: newPartialSolution()}
}

// Solve runs the main loop to completion, returning every decided package
// (excluding the synthetic root) as a Summary, or a *NoConflictRes narrating
// why no solution exists.
func (s *Solver) Solve() ([]ident.Summary, error) {
	rootName := s.retriever.Root.Id.Name
	s.incs = append(s.incs, rootIncompat(rootName, s.retriever.Root.Version))

	// The root package is never "decided" through the retriever (it has no
	// index entry of its own) — its dependency incompatibilities are seeded
	// directly, once, rather than waiting for decide() to pick it as an
	// undecided candidate (it never would: rootIncompat's only term names
	// root itself, and undecidedPackages always excludes root by name).
	rootIncs, err := s.retriever.Incompats(rootName, s.retriever.Root.Id, s.retriever.Root.Version)
	if err != nil {
		return nil, err
	}
	s.recordEdges(rootIncs)
	s.incs = append(s.incs, rootIncs...)

	next := rootName
	for {
		if err := s.propagate(next); err != nil {
			return nil, err
		}

		nextPkg, done, err := s.decide()
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
		next = nextPkg
	}

	return s.summaries(), nil
}

// propagate runs unit propagation starting from pkg, following the
// transitive closure of packages whose terms changed.
func (s *Solver) propagate(pkg ident.Name) error {
	queue := []ident.Name{pkg}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		changed := true
		for changed {
			changed = false
			for i := 0; i < len(s.incs); i++ {
				inc := s.incs[i]
				if _, ok := inc.Terms[cur]; !ok {
					continue
				}

				m, unsatPkg, unsatTerm := inc.match(s.ps)
				switch m {
				case MatchSatisfied:
					newLevel, root, err := s.resolveConflict(i)
					if err != nil {
						return err
					}
					if root {
						return s.unresolvable(i)
					}
					s.ps.backtrackTo(newLevel)
					queue = []ident.Name{cur}
					changed = true
				case MatchAlmostSatisfied:
					s.sh.Tracef("derive %s %s (cause %d)", unsatPkg, unsatTerm.negate(), i)
					s.ps.addDerivation(unsatPkg, unsatTerm.negate(), i)
					if !contains(queue, unsatPkg) {
						queue = append(queue, unsatPkg)
					}
					changed = true
				}
			}
		}
	}
	return nil
}

func contains(list []ident.Name, n ident.Name) bool {
	for _, x := range list {
		if x.Equal(n) {
			return true
		}
	}
	return false
}

// decide picks the next package to branch on and commits a version for it.
// Returns done=true once every referenced package has a decision.
func (s *Solver) decide() (ident.Name, bool, error) {
	candidates := s.undecidedPackages()
	if len(candidates) == 0 {
		return ident.Name{}, true, nil
	}

	pkg, res, constraint, err := s.pickDecisionPackage(candidates)
	if err != nil {
		return ident.Name{}, false, err
	}

	id, v, err := s.retriever.Best(pkg, res, constraint, false)
	if err != nil {
		s.sh.Tracef("no version of %s satisfies %s: %v", pkg, constraint, err)
		s.incs = append(s.incs, unavailableIncompat(pkg, constraint))
		return pkg, false, nil
	}

	newIncs, err := s.retriever.Incompats(pkg, id, v)
	if err != nil {
		return ident.Name{}, false, err
	}
	s.recordEdges(newIncs)
	startIdx := len(s.incs)
	s.incs = append(s.incs, newIncs...)

	for i := startIdx; i < len(s.incs); i++ {
		if m, _, _ := s.incs[i].match(s.ps); m == MatchSatisfied {
			newLevel, root, rerr := s.resolveConflict(i)
			if rerr != nil {
				return ident.Name{}, false, rerr
			}
			if root {
				return ident.Name{}, false, s.unresolvable(i)
			}
			s.ps.backtrackTo(newLevel)
			return pkg, false, nil
		}
	}

	s.attempts++
	s.sh.Tracef("decide %s @ %s", pkg, v)
	s.ps.addDecision(id, v)
	return pkg, false, nil
}

// undecidedPackages returns every package name mentioned anywhere in the
// incompatibility set that has not yet been decided.
func (s *Solver) undecidedPackages() []ident.Name {
	rootName := s.retriever.Root.Id.Name
	seen := make(map[string]bool)
	var out []ident.Name
	for _, inc := range s.incs {
		for pkg := range inc.Terms {
			if pkg.Equal(rootName) || seen[pkg.String()] {
				continue
			}
			seen[pkg.String()] = true
			if _, _, ok := s.ps.decidedVersion(pkg); !ok {
				out = append(out, pkg)
			}
		}
	}
	return out
}

// pickDecisionPackage chooses the package with the fewest candidate
// versions consistent with its current accumulated term, tie-breaking
// lexicographically.
func (s *Solver) pickDecisionPackage(candidates []ident.Name) (ident.Name, ident.Resolution, version.Range, error) {
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Less(candidates[j]) })

	type scored struct {
		name       ident.Name
		res        ident.Resolution
		constraint version.Range
		count      int
	}
	var best *scored

	for _, pkg := range candidates {
		res := s.resolutionFor(pkg)
		constraint := s.ps.rangeFor(pkg)
		n, err := s.retriever.CandidateCount(pkg, res, constraint)
		if err != nil {
			return ident.Name{}, ident.Resolution{}, version.Range{}, err
		}
		if best == nil || n < best.count {
			best = &scored{name: pkg, res: res, constraint: constraint, count: n}
		}
	}
	return best.name, best.res, best.constraint, nil
}

// resolutionFor determines which Resolution governs pkg: the root project's
// explicit dependency declaration (pinned Direct, named Index, or default),
// else the default index.
func (s *Solver) resolutionFor(pkg ident.Name) ident.Resolution {
	for _, d := range s.retriever.RootDeps {
		if !d.Name.Equal(pkg) {
			continue
		}
		if d.Resolution != nil {
			return *d.Resolution
		}
		if d.Index != nil {
			return ident.FromIndex(*d.Index)
		}
	}
	ires, _, err := s.retriever.resolveDefaultIndex(pkg)
	if err != nil {
		return ident.Resolution{}
	}
	return ident.FromIndex(ires)
}

// summaries flattens the partial solution's decisions into the solved
// Graph<Summary> node set (root excluded), sorted by name so identical
// inputs yield identical output.
func (s *Solver) summaries() []ident.Summary {
	var out []ident.Summary
	for _, name := range s.decidedNames() {
		a := s.ps.decisions[name]
		out = append(out, ident.Summary{Id: a.Id, Version: a.Version})
	}
	return out
}

// decidedNames returns the decided non-root package names in a stable
// (lexicographic) order; map iteration alone would make the output graph
// vary across otherwise identical runs.
func (s *Solver) decidedNames() []ident.Name {
	rootName := s.retriever.Root.Id.Name
	var names []ident.Name
	for name := range s.ps.decisions {
		if name.Equal(rootName) {
			continue
		}
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].Less(names[j]) })
	return names
}

// recordEdges captures parent->child package-name pairs from a batch of
// freshly-added Dependency-caused incompatibilities, used to reassemble
// Graph() once the solve settles on one version per package.
func (s *Solver) recordEdges(incs []Incompatibility) {
	for _, inc := range incs {
		if inc.Cause.Kind != CauseDependency {
			continue
		}
		s.edges = append(s.edges, depEdge{parent: inc.Cause.DepParent, child: inc.Cause.DepChild})
	}
}

// Graph assembles the Graph<Summary> produced by a successful Solve()
// call: root at node 0, one node per decided package, edges from
// every Dependency incompatibility whose parent and child both survived to a
// final decision (edges into packages the resolver ultimately rejected are
// dropped along with the incompatibilities that named them).
func (s *Solver) Graph() *graph.Graph[ident.Summary] {
	g := graph.New[ident.Summary]()
	rootName := s.retriever.Root.Id.Name
	nodeOf := make(map[string]int)
	nodeOf[rootName.String()] = g.AddNode(s.retriever.Root)

	for _, name := range s.decidedNames() {
		a := s.ps.decisions[name]
		nodeOf[name.String()] = g.AddNode(ident.Summary{Id: a.Id, Version: a.Version})
	}

	seen := make(map[[2]int]bool)
	for _, e := range s.edges {
		pi, ok := nodeOf[e.parent.String()]
		if !ok {
			continue
		}
		ci, ok := nodeOf[e.child.String()]
		if !ok {
			continue
		}
		key := [2]int{pi, ci}
		if seen[key] {
			continue
		}
		seen[key] = true
		g.Link(pi, ci)
	}
	return g
}
