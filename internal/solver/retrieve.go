package solver

import (
	"fmt"

	"github.com/elba-lang/elba/internal/graph"
	"github.com/elba-lang/elba/internal/ident"
	"github.com/pkg/errors"
)

// SourceMaterializer checks out a concrete DirectRes on disk for the final
// build graph, once per resolved package. It
// returns the materialized directory and the resolution as actually
// realized — a moving git branch/tag rewritten to the commit id it resolved
// to. Implemented by internal/cache (via internal/fetch's Ingester); kept as
// an interface here for the same reason as SourceProvider.
type SourceMaterializer interface {
	Checkout(loc ident.DirectRes) (dir string, resolved ident.DirectRes, err error)
}

// RetrievePackages maps a solved Graph<Summary> to a Graph<RetrievedSource>
// by checking out each node's concrete location. Index-resolved
// nodes look up their IndexEntry's Location; Direct-resolved nodes use their
// resolution directly. A moving git ref that resolves to a commit id is
// recorded in resMapping, keyed by the node's pre-checkout PackageId, so a
// later lookup under the original id still finds it.
func (r *Retriever) RetrievePackages(g *graph.Graph[ident.Summary], mat SourceMaterializer) (*graph.Graph[RetrievedSource], error) {
	n := g.Len()
	out := graph.New[RetrievedSource]()

	for i := 0; i < n; i++ {
		s := g.Node(i)
		loc, err := r.locationFor(s)
		if err != nil {
			return nil, errors.Wrapf(err, "retrieving %s", s.Id)
		}

		dir, resolved, err := mat.Checkout(loc)
		if err != nil {
			return nil, errors.Wrapf(err, "retrieving %s", s.Id)
		}

		id := s.Id
		if !resolved.Equal(loc) {
			rekeyed := ident.PackageId{Name: s.Id.Name, Resolution: rewriteDirect(s.Id.Resolution, resolved)}
			r.resMapping[id] = rekeyed
			id = rekeyed
		}

		if got := out.AddNode(RetrievedSource{Id: id, Version: s.Version, Dir: dir}); got != i {
			return nil, fmt.Errorf("retrieving packages: internal node index mismatch")
		}
	}

	for i := 0; i < n; i++ {
		for _, c := range g.Children(i) {
			out.Link(i, c)
		}
	}
	return out, nil
}

// LocationFor exposes locationFor to callers outside this package that need
// to check out a solved Summary directly (e.g. the top-level facade
// building a long-lived Graph<*cache.Source> for the scheduler, as opposed
// to RetrievePackages' own short-lived checkout for resMapping discovery).
func (r *Retriever) LocationFor(s ident.Summary) (ident.DirectRes, error) {
	return r.locationFor(s)
}

// locationFor returns the concrete DirectRes a summary's package must be
// checked out from: its own Direct resolution, or (for an Index resolution)
// the matching IndexEntry's declared Location.
func (r *Retriever) locationFor(s ident.Summary) (ident.DirectRes, error) {
	if s.Id.Resolution.Kind == ident.ResDirect {
		return s.Id.Resolution.Direct, nil
	}
	entries, err := r.Indices.Entries(s.Id.Resolution.Index, s.Id.Name)
	if err != nil {
		return ident.DirectRes{}, err
	}
	for ev, entry := range entries {
		if ev.Equal(s.Version) {
			return entry.Location, nil
		}
	}
	return ident.DirectRes{}, fmt.Errorf("%s: version %s not found in index", s.Id.Name, s.Version)
}

// rewriteDirect returns res with its underlying Direct location replaced by
// resolved — for a Direct resolution this is resolved itself; for an Index
// resolution the IndexRes is left as-is (the index's own location doesn't
// move just because one of its entries' git ref resolved).
func rewriteDirect(res ident.Resolution, resolved ident.DirectRes) ident.Resolution {
	if res.Kind == ident.ResDirect {
		return ident.FromDirect(resolved)
	}
	return res
}
