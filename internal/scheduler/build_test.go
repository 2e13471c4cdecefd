package scheduler

import (
	"os"
	"testing"

	"github.com/elba-lang/elba/internal/cache"
	"github.com/elba-lang/elba/internal/graph"
	"github.com/elba-lang/elba/internal/ident"
	"github.com/elba-lang/elba/internal/manifest"
	"github.com/elba-lang/elba/internal/shell"
	"github.com/elba-lang/elba/internal/version"
)

func mustName(t *testing.T, s string) ident.Name {
	t.Helper()
	n, err := ident.ParseName(s)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func sourceFor(t *testing.T, dir string, name, v string) *cache.Source {
	t.Helper()
	return &cache.Source{
		Dir:        dir,
		Resolution: ident.DirectRes{Kind: ident.Dir, Path: dir},
		Manifest: &manifest.Manifest{
			Package: manifest.Package{Name: mustName(t, name), Version: version.MustParse(v)},
			Targets: manifest.Targets{Lib: &manifest.LibTarget{Path: ".", Mods: []string{"Main"}}},
		},
	}
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.Open(t.TempDir(), false, shell.New(os.Stdout, os.Stderr, false))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestSortTargetsLibFirst(t *testing.T) {
	in := []Target{{Kind: TargetDoc}, {Kind: TargetBin, Index: 0}, {Kind: TargetLib}}
	out := sortTargets(in)
	if out[0].Kind != TargetLib {
		t.Fatalf("expected Lib first, got %v", out)
	}
}

func TestBuildJobsDetectsFreshFromPrecreatedCache(t *testing.T) {
	c := newTestCache(t)
	bctx := &BuildContext{Cache: c, Threads: 2, Backend: "refc"}

	depDir := t.TempDir()
	dep := sourceFor(t, depDir, "a/dep", "1.0.0")

	g := graph.New[*cache.Source]()
	root := sourceFor(t, t.TempDir(), "a/root", "1.0.0")
	ri := g.AddNode(root)
	di := g.AddNode(dep)
	g.Link(ri, di)

	jobs, err := BuildJobs(g, []Target{{Kind: TargetLib}, {Kind: TargetBin, Index: 0}}, bctx)
	if err != nil {
		t.Fatal(err)
	}
	if jobs.Len() != 2 {
		t.Fatalf("want 2 jobs, got %d", jobs.Len())
	}
	depJob := jobs.Node(1)
	if depJob.Work.Kind != WorkDirty {
		t.Fatalf("expected dep job Dirty on first pass, got %v", depJob.Work.Kind)
	}

	// Pre-seed build/<hash> for the dep and rebuild — it must now be Fresh
	// without any compiler invocation.
	tmp, err := c.CheckoutTmp(depJob.Work.Hash)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.StoreBuild(tmp, depJob.Work.Hash); err != nil {
		t.Fatal(err)
	}

	jobs2, err := BuildJobs(g, []Target{{Kind: TargetLib}, {Kind: TargetBin, Index: 0}}, bctx)
	if err != nil {
		t.Fatal(err)
	}
	if jobs2.Node(1).Work.Kind != WorkFresh {
		t.Fatalf("expected dep job Fresh after pre-seeding build cache, got %v", jobs2.Node(1).Work.Kind)
	}
	if jobs2.Node(0).Work.Kind != WorkDirty {
		t.Fatalf("root should still be Dirty")
	}
	rootTargets := jobs2.Node(0).Targets
	if rootTargets[0].Kind != TargetLib || rootTargets[1].Kind != TargetBin {
		t.Fatalf("root targets not lib-first: %v", rootTargets)
	}
	depTargets := jobs2.Node(1).Targets
	if len(depTargets) != 1 || depTargets[0].Kind != TargetLib {
		t.Fatalf("dependency job should only carry a Lib target, got %v", depTargets)
	}
}

func TestBuildJobsNoLibTargetWhenManifestHasNone(t *testing.T) {
	c := newTestCache(t)
	bctx := &BuildContext{Cache: c, Threads: 1, Backend: "refc"}

	dep := sourceFor(t, t.TempDir(), "a/dep", "1.0.0")
	dep.Manifest.Targets.Lib = nil

	g := graph.New[*cache.Source]()
	root := sourceFor(t, t.TempDir(), "a/root", "1.0.0")
	ri := g.AddNode(root)
	di := g.AddNode(dep)
	g.Link(ri, di)

	jobs, err := BuildJobs(g, []Target{{Kind: TargetLib}}, bctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs.Node(1).Targets) != 0 {
		t.Fatalf("expected no targets for a lib-less manifest, got %v", jobs.Node(1).Targets)
	}
}
