package manifest

import (
	"testing"

	"github.com/elba-lang/elba/internal/ident"
	"github.com/elba-lang/elba/internal/version"
)

func lockEntry(t *testing.T, url, name, v string) LockEntry {
	t.Helper()
	d, err := ident.ParseDirectRes(url)
	if err != nil {
		t.Fatal(err)
	}
	n, err := ident.ParseName(name)
	if err != nil {
		t.Fatal(err)
	}
	return LockEntry{
		Id:      ident.PackageId{Name: n, Resolution: ident.FromDirect(d)},
		Version: version.MustParse(v),
	}
}

func TestFindMatchesByLowKeyEquality(t *testing.T) {
	l := &Lockfile{Entries: []LockEntry{
		lockEntry(t, "git+https://example.com/demo/foo#deadbeefcafebabedeadbeefcafebabedeadbeef", "demo/foo", "1.0.0"),
	}}

	// A probe carrying a different (moving) ref still matches: lock
	// carryover ignores the revision component.
	probe := lockEntry(t, "git+https://example.com/demo/foo#master", "demo/foo", "1.0.0").Id
	e, ok := l.Find(probe)
	if !ok {
		t.Fatal("want a low-key match across differing git refs")
	}
	if e.Version.String() != "1.0.0" {
		t.Errorf("got %s", e.Version)
	}

	other := lockEntry(t, "git+https://example.com/demo/other#master", "demo/other", "1.0.0").Id
	if _, ok := l.Find(other); ok {
		t.Error("a different repo must not match")
	}
}

func TestDiffReportsAddedRemovedChanged(t *testing.T) {
	old := &Lockfile{Entries: []LockEntry{
		lockEntry(t, "git+https://example.com/demo/keep", "demo/keep", "1.0.0"),
		lockEntry(t, "git+https://example.com/demo/bump", "demo/bump", "1.0.0"),
		lockEntry(t, "git+https://example.com/demo/drop", "demo/drop", "1.0.0"),
	}}
	niu := &Lockfile{Entries: []LockEntry{
		lockEntry(t, "git+https://example.com/demo/keep", "demo/keep", "1.0.0"),
		lockEntry(t, "git+https://example.com/demo/bump", "demo/bump", "1.1.0"),
		lockEntry(t, "git+https://example.com/demo/new", "demo/new", "2.0.0"),
	}}

	d := old.Diff(niu)
	if len(d.Added) != 1 || d.Added[0].Id.Name.String() != "demo/new" {
		t.Errorf("added = %+v", d.Added)
	}
	if len(d.Removed) != 1 || d.Removed[0].Id.Name.String() != "demo/drop" {
		t.Errorf("removed = %+v", d.Removed)
	}
	if len(d.Changed) != 1 || d.Changed[0].New.String() != "1.1.0" {
		t.Errorf("changed = %+v", d.Changed)
	}
}
