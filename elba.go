// Package elba composes the version solver (C7), retriever/cache (C5/C4),
// and job scheduler (C8) into the two end-to-end operations a caller
// drives: Solve, which turns a manifest's root summary and dependency list
// into a resolved Graph<Summary>, and RetrieveSources, which materializes
// that graph into a locked Graph<Source> ready for scheduler.BuildJobs.
//
// Params is converted once into the concrete adapters each
// subsystem needs, rather than threading cache/fetch/index values loose
// through every call. Driving a subcommand (what to solve, when to build,
// how results are reported) is command-line dispatch and stays out of this
// module's scope; this file only wires the in-scope subsystems
// together the way a caller must.
package elba

import (
	"context"
	"fmt"
	"sync"

	"github.com/elba-lang/elba/internal/cache"
	"github.com/elba-lang/elba/internal/graph"
	"github.com/elba-lang/elba/internal/ident"
	"github.com/elba-lang/elba/internal/index"
	"github.com/elba-lang/elba/internal/manifest"
	"github.com/elba-lang/elba/internal/shell"
	"github.com/elba-lang/elba/internal/solver"
	"github.com/pkg/errors"
)

// ManifestReader parses a checked-out source directory's primary manifest
// file into its logical shape. Parsing the on-disk manifest format is out
// of scope for this module; callers inject whichever parser they
// use, the same seam manifest.ManifestTransformer gives the legacy .ipkg
// pathway.
type ManifestReader func(dir string) (*manifest.Manifest, error)

// Params bundles everything a solve (and subsequent retrieval) needs.
type Params struct {
	Root     ident.Summary
	RootDeps []manifest.Dep
	Lock     *manifest.Lockfile
	Indices  *index.Store
	Cache    *cache.Cache
	Ing      cache.Ingester
	Read     ManifestReader
	Offline  bool
	Sh       *shell.Shell
}

// IndexOpener returns an index.Opener backed by the cache: each referenced
// IndexRes is checked out under indices/<hash>/ (or used in place for a
// local directory index) and opened from there. The returned release func
// drops every index DirLock taken so far; call it once the Store built on
// this opener is no longer needed.
func IndexOpener(ctx context.Context, c *cache.Cache, ing cache.Ingester) (index.Opener, func()) {
	var mu sync.Mutex
	var held []*cache.IndexDir
	open := func(ires ident.IndexRes) (*index.Index, error) {
		d, err := c.CheckoutIndex(ctx, ires, ing)
		if err != nil {
			return nil, err
		}
		mu.Lock()
		held = append(held, d)
		mu.Unlock()
		return index.Open(d.Dir, ires)
	}
	release := func() {
		mu.Lock()
		defer mu.Unlock()
		for _, d := range held {
			d.Release()
		}
		held = nil
	}
	return open, release
}

// sourceProvider adapts the cache+ingester pair into solver.SourceProvider:
// checking out a Direct dependency far enough to read its manifest during
// solving, without the solver package importing either concern directly.
type sourceProvider struct {
	cache *cache.Cache
	ing   cache.Ingester
	read  ManifestReader
}

func (p *sourceProvider) CheckoutManifest(res ident.DirectRes) (*manifest.Manifest, ident.DirectRes, error) {
	src, err := p.cache.CheckoutSource(context.Background(), res, p.ing)
	if err != nil {
		return nil, ident.DirectRes{}, err
	}
	defer src.Release()
	m, err := p.read(src.Dir)
	if err != nil {
		return nil, ident.DirectRes{}, errors.Wrapf(err, "reading manifest for %s", res)
	}
	return m, src.Resolution, nil
}

// offlineRestrictor adapts the cache's offline snapshot into
// solver.OfflineRestrictor, narrowing a Direct location to its local
// src/<hash> directory when the cache already has it.
type offlineRestrictor struct {
	cache *cache.Cache
}

func (o *offlineRestrictor) Restrict(loc ident.DirectRes) (ident.DirectRes, bool) {
	hash := cache.HashSource(loc)
	if !o.cache.HasOfflineHash(hash) {
		return loc, false
	}
	return ident.DirectRes{Kind: ident.Dir, Path: o.cache.OfflinePath(hash)}, true
}

// newRetriever builds the Retriever that Solve and RetrieveSources share,
// wiring the cache/fetch adapters above into the solver's narrow seams.
func (p Params) newRetriever() *solver.Retriever {
	sp := &sourceProvider{cache: p.Cache, ing: p.Ing, read: p.Read}
	var off solver.OfflineRestrictor
	if p.Offline {
		off = &offlineRestrictor{cache: p.Cache}
	}
	return solver.NewRetriever(p.Root, p.RootDeps, p.Lock, p.Indices, sp, off)
}

// Solve drives the PubGrub solver over p's indices, lock, and root
// dependencies to a model, returning the resolved Graph<Summary> and the
// Retriever used to produce it — the latter is needed again
// by RetrieveSources, since it carries the lazily-opened index Store and
// any resMapping discovered along the way.
func Solve(p Params) (*graph.Graph[ident.Summary], *solver.Retriever, error) {
	r := p.newRetriever()
	s := solver.New(r, p.Sh)
	if _, err := s.Solve(); err != nil {
		return nil, nil, err
	}
	return s.Graph(), r, nil
}

// RetrieveSources materializes g into a Graph<*cache.Source> suitable for
// scheduler.BuildJobs, checking out each dependency node directly via
// cache.CheckoutSource (not the narrower SourceMaterializer seam
// Retriever.RetrievePackages uses, which releases each lock immediately
// after recording a directory). Every Source's DirLock here is held open
// until the caller invokes the returned release func, which must happen
// only once the scheduler run over the result has completed: a Source
// exists on disk exactly while its DirLock is held.
//
// g's node 0 is always the root project itself (solver.Solver.Graph's
// convention); the root is never resolved through an index or a Direct
// location the way its dependencies are; rootSrc is the caller's already-
// materialized Source for it (the local project directory being built),
// supplied directly rather than looked up.
func RetrieveSources(ctx context.Context, r *solver.Retriever, g *graph.Graph[ident.Summary], rootSrc *cache.Source, p Params) (*graph.Graph[*cache.Source], func(), error) {
	n := g.Len()
	out := graph.New[*cache.Source]()
	sources := make([]*cache.Source, 0, n)
	release := func() {
		for _, s := range sources {
			s.Release()
		}
	}

	if got := out.AddNode(rootSrc); got != 0 {
		return nil, nil, fmt.Errorf("elba: internal node index mismatch")
	}
	for i := 1; i < n; i++ {
		s := g.Node(i)
		loc, err := r.LocationFor(s)
		if err != nil {
			release()
			return nil, nil, errors.Wrapf(err, "retrieving %s", s.Id)
		}
		src, err := p.Cache.CheckoutSource(ctx, loc, p.Ing)
		if err != nil {
			release()
			return nil, nil, errors.Wrapf(err, "retrieving %s", s.Id)
		}
		sources = append(sources, src)
		m, err := p.Read(src.Dir)
		if err != nil {
			release()
			return nil, nil, errors.Wrapf(err, "reading manifest for %s", s.Id)
		}
		src.Manifest = m
		if got := out.AddNode(src); got != i {
			release()
			return nil, nil, fmt.Errorf("elba: internal node index mismatch")
		}
	}
	for i := 0; i < n; i++ {
		for _, c := range g.Children(i) {
			out.Link(i, c)
		}
	}
	return out, release, nil
}
