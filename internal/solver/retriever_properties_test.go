package solver

import (
	"testing"

	"github.com/elba-lang/elba/internal/ident"
	"github.com/elba-lang/elba/internal/manifest"
)

// Lock preference: given a lock containing (P, v) and a constraint C with
// C.satisfies(v), Best returns v without minimization, even when a greater
// version is available in the index.
func TestBestPrefersLockedVersionOverGreaterIndexVersion(t *testing.T) {
	store, self := buildFixtureIndex(t, map[string][]string{
		"demo/foo": {entryLine("demo/foo", "1.0.0"), entryLine("demo/foo", "1.2.0")},
	})

	locked := ident.PackageId{Name: mustN(t, "demo/foo"), Resolution: ident.FromIndex(self)}
	lock := &manifest.Lockfile{Entries: []manifest.LockEntry{
		{Id: locked, Version: mustV(t, "1.0.0")},
	}}

	root := ident.Summary{Id: ident.PackageId{Name: mustN(t, "demo/root")}, Version: mustV(t, "1.0.0")}
	r := NewRetriever(root, nil, lock, store, noSources{}, nil)

	_, v, err := r.Best(mustN(t, "demo/foo"), ident.FromIndex(self), mustC(t, "^1.0.0"), false)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "1.0.0" {
		t.Errorf("want locked version 1.0.0 (not the greater 1.2.0), got %s", v)
	}
}

// Once the constraint no longer admits the locked version, Best must fall
// through to the index's normal candidate selection.
func TestBestIgnoresLockedVersionWhenConstraintExcludesIt(t *testing.T) {
	store, self := buildFixtureIndex(t, map[string][]string{
		"demo/foo": {entryLine("demo/foo", "1.0.0"), entryLine("demo/foo", "2.0.0")},
	})

	locked := ident.PackageId{Name: mustN(t, "demo/foo"), Resolution: ident.FromIndex(self)}
	lock := &manifest.Lockfile{Entries: []manifest.LockEntry{
		{Id: locked, Version: mustV(t, "1.0.0")},
	}}

	root := ident.Summary{Id: ident.PackageId{Name: mustN(t, "demo/root")}, Version: mustV(t, "1.0.0")}
	r := NewRetriever(root, nil, lock, store, noSources{}, nil)

	_, v, err := r.Best(mustN(t, "demo/foo"), ident.FromIndex(self), mustC(t, "^2.0.0"), false)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "2.0.0" {
		t.Errorf("want 2.0.0 once the lock's 1.0.0 no longer satisfies ^2.0.0, got %s", v)
	}
}

// Prerelease gating: a constraint with no explicit prerelease bound
// must never select a prerelease, even when it is the greatest matching
// version.
func TestBestNeverPicksPrereleaseWithoutExplicitBound(t *testing.T) {
	store, self := buildFixtureIndex(t, map[string][]string{
		"demo/foo": {
			entryLine("demo/foo", "1.0.0"),
			entryLine("demo/foo", "1.1.0-beta.1"),
		},
	})

	root := ident.Summary{Id: ident.PackageId{Name: mustN(t, "demo/root")}, Version: mustV(t, "1.0.0")}
	r := NewRetriever(root, nil, nil, store, noSources{}, nil)

	_, v, err := r.Best(mustN(t, "demo/foo"), ident.FromIndex(self), mustC(t, "^1.0.0"), false)
	if err != nil {
		t.Fatal(err)
	}
	if v.IsPrerelease() {
		t.Errorf("expected a stable version, got prerelease %s", v)
	}
	if v.String() != "1.0.0" {
		t.Errorf("want 1.0.0, got %s", v)
	}
}

type fixedManifests struct {
	m *manifest.Manifest
}

func (f fixedManifests) CheckoutManifest(res ident.DirectRes) (*manifest.Manifest, ident.DirectRes, error) {
	return f.m, res, nil
}

// denyAll is an offline snapshot with nothing in it.
type denyAll struct{}

func (denyAll) Restrict(loc ident.DirectRes) (ident.DirectRes, bool) { return loc, false }

// Offline mode: selection must never return a package whose source hash is
// absent from the offline snapshot.
func TestBestUnderOfflineRestrictionDropsUncachedDirectCandidates(t *testing.T) {
	name := mustN(t, "demo/direct")
	loc, err := ident.ParseDirectRes("git+https://example.com/demo/direct#main")
	if err != nil {
		t.Fatal(err)
	}
	m := &manifest.Manifest{Package: manifest.Package{Name: name, Version: mustV(t, "1.0.0")}}

	root := ident.Summary{Id: ident.PackageId{Name: mustN(t, "demo/root")}, Version: mustV(t, "1.0.0")}
	r := NewRetriever(root, nil, nil, nil, fixedManifests{m: m}, denyAll{})

	_, _, err = r.Best(name, ident.FromDirect(loc), mustC(t, "^1.0.0"), false)
	if err == nil {
		t.Fatal("want failure when the offline snapshot has no hash for the source")
	}
}

// When no stable candidate satisfies the constraint, Best falls back to the
// greatest matching prerelease rather than failing outright.
func TestBestFallsBackToPrereleaseWhenNoStableCandidate(t *testing.T) {
	store, self := buildFixtureIndex(t, map[string][]string{
		"demo/foo": {entryLine("demo/foo", "2.0.0-alpha.1")},
	})

	root := ident.Summary{Id: ident.PackageId{Name: mustN(t, "demo/root")}, Version: mustV(t, "1.0.0")}
	r := NewRetriever(root, nil, nil, store, noSources{}, nil)

	_, v, err := r.Best(mustN(t, "demo/foo"), ident.FromIndex(self), mustC(t, "^2.0.0-alpha.1"), false)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "2.0.0-alpha.1" {
		t.Errorf("want the only candidate 2.0.0-alpha.1, got %s", v)
	}
}
