package solver

import (
	"sort"

	"github.com/elba-lang/elba/internal/ident"
	"github.com/elba-lang/elba/internal/index"
	"github.com/elba-lang/elba/internal/manifest"
	"github.com/elba-lang/elba/internal/version"
)

// SourceProvider resolves a Direct dependency's manifest, fetching and
// caching it as necessary. Kept as an interface so this package depends on
// neither internal/cache nor internal/fetch directly.
type SourceProvider interface {
	CheckoutManifest(res ident.DirectRes) (*manifest.Manifest, ident.DirectRes, error)
}

// OfflineRestrictor narrows index/direct candidates to whatever the cache's
// offline snapshot already has on disk, rewriting a
// location to a local Dir resolution when present.
type OfflineRestrictor interface {
	Restrict(loc ident.DirectRes) (ident.DirectRes, bool)
}

// Retriever bundles everything the solver needs to turn a package name plus
// constraint into a concrete version and its initial incompatibilities.
// It is not the build-time source materializer (that lives in
// RetrievePackages, called once after a solve completes); during solving it
// only consults indices and, for Direct deps, fetches just enough to read
// their manifest.
type Retriever struct {
	Root     ident.Summary
	RootDeps []manifest.Dep

	Lock    *manifest.Lockfile // prior lock graph; nil if none
	Indices *index.Store
	Source  SourceProvider
	Offline OfflineRestrictor // nil disables offline restriction

	// resMapping records resolution rekeying (e.g. a moving git ref resolved
	// to a concrete commit id) discovered while retrieving manifests, so a
	// later lookup by the original PackageId still finds the source.
	resMapping map[ident.PackageId]ident.PackageId
}

// NewRetriever builds a Retriever for one solve.
func NewRetriever(root ident.Summary, rootDeps []manifest.Dep, lock *manifest.Lockfile, indices *index.Store, source SourceProvider, offline OfflineRestrictor) *Retriever {
	return &Retriever{
		Root:       root,
		RootDeps:   rootDeps,
		Lock:       lock,
		Indices:    indices,
		Source:     source,
		Offline:    offline,
		resMapping: make(map[ident.PackageId]ident.PackageId),
	}
}

// candidate is one version available to satisfy a constraint on pkg,
// together with the PackageId it would resolve to.
type candidate struct {
	Id      ident.PackageId
	Version version.Version
}

// resolveDefaultIndex picks the IndexRes used for an index-floating
// dependency that names no explicit alternate index: the one index that
// SelectBySpec finds among those already known to the Store (an error when
// none or more than one has the package).
func (r *Retriever) resolveDefaultIndex(name ident.Name) (ident.IndexRes, map[version.Version]index.Entry, error) {
	return r.Indices.SelectBySpec(name)
}

// candidatesFor enumerates every version available for pkg under res,
// without yet filtering by constraint.
func (r *Retriever) candidatesFor(pkg ident.Name, res ident.Resolution) ([]candidate, error) {
	if res.Kind == ident.ResDirect {
		m, rekeyed, err := r.Source.CheckoutManifest(res.Direct)
		if err != nil {
			return nil, err
		}
		id := ident.PackageId{Name: pkg, Resolution: ident.FromDirect(rekeyed)}
		orig := ident.PackageId{Name: pkg, Resolution: res}
		if !rekeyed.Equal(res.Direct) {
			r.resMapping[orig] = id
		}
		return []candidate{{Id: id, Version: m.Package.Version}}, nil
	}

	ires := res.Index
	entries, err := r.Indices.Entries(ires, pkg)
	if err != nil {
		return nil, err
	}
	out := make([]candidate, 0, len(entries))
	for v, e := range entries {
		if e.Yanked {
			continue
		}
		out = append(out, candidate{
			Id:      ident.PackageId{Name: pkg, Resolution: ident.FromIndex(ires)},
			Version: v,
		})
	}
	return out, nil
}

// filterAndPick narrows cands to those satisfying constraint, then returns
// the greatest (or least, if minimize) non-prerelease, falling back to
// prereleases only when no stable candidate matches.
func filterAndPick(cands []candidate, constraint version.Range, minimize bool) (candidate, bool) {
	var stable, pre []candidate
	for _, c := range cands {
		if !constraint.Satisfies(c.Version) {
			continue
		}
		if c.Version.IsPrerelease() {
			pre = append(pre, c)
		} else {
			stable = append(stable, c)
		}
	}
	pick := func(list []candidate) (candidate, bool) {
		if len(list) == 0 {
			return candidate{}, false
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Version.Less(list[j].Version) })
		if minimize {
			return list[0], true
		}
		return list[len(list)-1], true
	}
	if c, ok := pick(stable); ok {
		return c, true
	}
	return pick(pre)
}

// Best chooses a version for pkg under res satisfying constraint.
// Step 1 prefers the prior lock graph's choice (by low-key resolution
// equality) when it still satisfies constraint; otherwise candidates are
// enumerated and filtered per filterAndPick.
func (r *Retriever) Best(pkg ident.Name, res ident.Resolution, constraint version.Range, minimize bool) (ident.PackageId, version.Version, error) {
	if r.Lock != nil {
		probe := ident.PackageId{Name: pkg, Resolution: res}
		for _, e := range r.Lock.Entries {
			if e.Id.LowKeyEqual(probe) && constraint.Satisfies(e.Version) {
				return e.Id, e.Version, nil
			}
		}
	}

	cands, err := r.candidatesFor(pkg, res)
	if err != nil {
		return ident.PackageId{}, version.Version{}, err
	}
	if r.Offline != nil {
		cands = r.restrictOffline(cands)
	}
	c, ok := filterAndPick(cands, constraint, minimize)
	if !ok {
		return ident.PackageId{}, version.Version{}, &index.PackageNotFound{Name: pkg}
	}
	return c.Id, c.Version, nil
}

// restrictOffline drops candidates whose source hash is absent from the
// offline snapshot. Direct survivors have their locations rewritten to the
// local directory already holding them; an Index candidate is kept when its
// entry's location is present and keeps its Index resolution.
func (r *Retriever) restrictOffline(cands []candidate) []candidate {
	out := cands[:0:0]
	for _, c := range cands {
		if c.Id.Resolution.Kind != ident.ResDirect {
			loc, err := r.locationFor(ident.Summary{Id: c.Id, Version: c.Version})
			if err != nil {
				continue
			}
			if _, ok := r.Offline.Restrict(loc); ok {
				out = append(out, c)
			}
			continue
		}
		local, ok := r.Offline.Restrict(c.Id.Resolution.Direct)
		if !ok {
			continue
		}
		c.Id.Resolution = ident.FromDirect(local)
		out = append(out, c)
	}
	return out
}

// CandidateCount reports how many versions of pkg under res satisfy
// constraint, used by the solver's fewest-candidates decision heuristic.
func (r *Retriever) CandidateCount(pkg ident.Name, res ident.Resolution, constraint version.Range) (int, error) {
	cands, err := r.candidatesFor(pkg, res)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, c := range cands {
		if constraint.Satisfies(c.Version) {
			n++
		}
	}
	return n, nil
}

// Incompats returns the initial incompatibility set for pkg at the decided
// id/version.
func (r *Retriever) Incompats(pkg ident.Name, id ident.PackageId, v version.Version) ([]Incompatibility, error) {
	if pkg.Equal(r.Root.Id.Name) {
		incs := make([]Incompatibility, 0, len(r.RootDeps))
		for _, d := range r.RootDeps {
			incs = append(incs, dependencyIncompat(pkg, version.Exactly(r.Root.Version), d.Name, d.Constraint))
		}
		return incs, nil
	}

	if id.Resolution.Kind == ident.ResDirect {
		m, _, err := r.Source.CheckoutManifest(id.Resolution.Direct)
		if err != nil {
			return nil, err
		}
		incs := make([]Incompatibility, 0, len(m.Deps))
		for _, d := range m.Dependencies() {
			incs = append(incs, dependencyIncompat(pkg, version.Exactly(v), d.Name, d.Constraint))
		}
		return incs, nil
	}

	return r.indexIncompats(pkg, id.Resolution.Index, v)
}

// indexIncompats implements the adjacent-version-range-widening
// generalization: for each dependency declared by pkg@v, scan
// neighboring versions (by ascending/descending order) and widen the
// affected range while the same dependency relation holds, so one
// incompatibility can span a contiguous run of versions instead of being
// emitted once per version.
func (r *Retriever) indexIncompats(pkg ident.Name, ires ident.IndexRes, v version.Version) ([]Incompatibility, error) {
	entries, err := r.Indices.Entries(ires, pkg)
	if err != nil {
		return nil, err
	}
	ordered := make([]version.Version, 0, len(entries))
	for ev := range entries {
		ordered = append(ordered, ev)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Less(ordered[j]) })

	idx := -1
	for i, ev := range ordered {
		if ev.Equal(v) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, nil
	}

	cur := entries[ordered[idx]]
	var incs []Incompatibility
	for _, dep := range cur.Dependencies {
		lo, hi := v, v

		for i := idx - 1; i >= 0; i-- {
			nv := ordered[i]
			nd, ok := findDep(entries[nv].Dependencies, dep.Name)
			if !ok {
				break
			}
			// Widening reuses the original version's requirement dep.Req for
			// the whole span, so it's only sound while each neighbor's own
			// requirement is no broader than dep.Req (nd.Req subset-or-equal
			// of dep.Req) — a neighbor that relaxes the dependency must stop
			// the scan rather than be folded in.
			rel := nd.Req.RelationTo(dep.Req)
			if rel != version.Equal && rel != version.Subset {
				break
			}
			lo = nv
		}
		for i := idx + 1; i < len(ordered); i++ {
			nv := ordered[i]
			nd, ok := findDep(entries[nv].Dependencies, dep.Name)
			if !ok {
				break
			}
			rel := nd.Req.RelationTo(dep.Req)
			if rel != version.Equal && rel != version.Subset {
				break
			}
			hi = nv
		}

		span := version.NewInterval(lo, true, false, hi, true, false)
		incs = append(incs, dependencyIncompat(pkg, span, dep.Name, dep.Req))
	}
	return incs, nil
}

func findDep(deps []index.Dep, name ident.Name) (index.Dep, bool) {
	for _, d := range deps {
		if d.Name.Equal(name) {
			return d, true
		}
	}
	return index.Dep{}, false
}

// RetrievedSource is one node of the retriever's output Graph<Source>: a
// resolved package's materialized, checked-out content.
type RetrievedSource struct {
	Id      ident.PackageId
	Version version.Version
	Dir     string
}

// ResMapping exposes the rekeying table recorded while retrieving, so a
// caller that looked a node up by its pre-solve PackageId can find its
// post-checkout (possibly rekeyed) counterpart.
func (r *Retriever) ResMapping() map[ident.PackageId]ident.PackageId { return r.resMapping }
