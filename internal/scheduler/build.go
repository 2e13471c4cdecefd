package scheduler

import (
	"fmt"

	"github.com/elba-lang/elba/internal/cache"
	"github.com/elba-lang/elba/internal/graph"
	"github.com/elba-lang/elba/internal/ident"
)

// BuildJobs maps a retrieved Graph<Source> to a Graph<Job>.
// rootTargets names what the caller wants built for node 0
// (e.g. the project's own Lib/Bin/Test/Doc selection); every other node
// always gets a single Lib target when its manifest declares one, since
// that is all a dependent needs to compile against it.
//
// BuildHash is computed bottom-up: a node's hash folds in the recursively
// computed hashes of its children, so children must be visited before their
// parents. The source graph is a DAG by construction (the resolver never
// emits cycles), so a single depth-first pass with memoization suffices.
func BuildJobs(srcGraph *graph.Graph[*cache.Source], rootTargets []Target, bctx *BuildContext) (*graph.Graph[*Job], error) {
	n := srcGraph.Len()
	jobs := make([]*Job, n)
	hashes := make([]ident.BuildHash, n)
	visiting := make([]bool, n)

	var visit func(i int) error
	visit = func(i int) error {
		if jobs[i] != nil {
			return nil
		}
		if visiting[i] {
			return fmt.Errorf("scheduler: cycle detected at node %d", i)
		}
		visiting[i] = true
		defer func() { visiting[i] = false }()

		src := srcGraph.Node(i)
		children := srcGraph.Children(i)
		deps := make([]ident.DepHash, 0, len(children))
		for _, c := range children {
			if err := visit(c); err != nil {
				return err
			}
			childName := srcGraph.Node(c).Manifest.Package.Name
			deps = append(deps, ident.DepHash{Name: childName, Hash: hashes[c]})
		}

		srcHash := cache.HashSource(src.Resolution)
		h := ident.ComputeBuildHash(srcHash, bctx.Backend, bctx.Options, deps)
		hashes[i] = h

		var targets []Target
		if i == 0 {
			targets = rootTargets
		} else if src.Manifest.Targets.Lib != nil {
			targets = []Target{{Kind: TargetLib}}
		}
		targets = sortTargets(targets)

		work := Work{Kind: WorkDirty, Hash: h, Source: src}
		if bin, ok, err := bctx.Cache.CheckoutBuild(h); err != nil {
			return err
		} else if ok {
			work = Work{Kind: WorkFresh, Hash: h, Binary: bin}
		}

		jobs[i] = &Job{
			Id:      ident.PackageId{Name: src.Manifest.Package.Name, Resolution: ident.FromDirect(src.Resolution)},
			Version: src.Manifest.Package.Version,
			Targets: targets,
			Work:    work,
		}
		return nil
	}

	for i := 0; i < n; i++ {
		if err := visit(i); err != nil {
			return nil, err
		}
	}

	out := graph.New[*Job]()
	for i := 0; i < n; i++ {
		if got := out.AddNode(jobs[i]); got != i {
			return nil, fmt.Errorf("scheduler: internal node index mismatch")
		}
	}
	for i := 0; i < n; i++ {
		for _, c := range srcGraph.Children(i) {
			out.Link(i, c)
		}
	}
	return out, nil
}
