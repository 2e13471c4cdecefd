package ident

import (
	"testing"

	"github.com/elba-lang/elba/internal/version"
)

func TestDirectResRoundTrip(t *testing.T) {
	cases := []string{
		"git+https://github.com/foo/bar#deadbeefcafebabedeadbeefcafebabedeadbeef",
		"git+https://github.com/foo/bar#master",
		"dir+/abs/path/to/pkg",
		"tar+https://example.com/pkg.tar.gz#" + "aa11bb22",
	}
	for _, c := range cases {
		r, err := ParseDirectRes(c)
		if err != nil {
			t.Fatalf("%s: %v", c, err)
		}
		if got := r.String(); got != c {
			t.Errorf("round trip mismatch: got %q want %q", got, c)
		}
	}
}

func TestLowKeyEquality(t *testing.T) {
	a, _ := ParseDirectRes("git+https://github.com/foo/bar#master")
	b, _ := ParseDirectRes("git+https://github.com/foo/bar#deadbeefcafebabedeadbeefcafebabedeadbeef")

	if !a.LowKeyEqual(b) {
		t.Error("same repo with different refs should be low-key equal")
	}
	if a.Equal(b) {
		t.Error("different refs should not be fully equal")
	}

	c, _ := ParseDirectRes("git+https://github.com/other/repo#master")
	if a.LowKeyEqual(c) {
		t.Error("different repos must not be low-key equal")
	}
}

func TestCommitVsBranchRefEquality(t *testing.T) {
	rev1 := "deadbeefcafebabedeadbeefcafebabedeadbeef"
	rev2 := "cafebabedeadbeefcafebabedeadbeefcafebabe"
	a, _ := ParseDirectRes("git+https://github.com/foo/bar#" + rev1)
	b, _ := ParseDirectRes("git+https://github.com/foo/bar#" + rev2)
	if a.Equal(b) {
		t.Error("distinct commit ids must not be equal")
	}

	branch1, _ := ParseDirectRes("git+https://github.com/foo/bar#develop")
	branch2, _ := ParseDirectRes("git+https://github.com/foo/bar#develop")
	if !branch1.Equal(branch2) {
		t.Error("identical branch names are opaquely equal")
	}
}

func TestBuildHashDeterministic(t *testing.T) {
	deps := []DepHash{
		{Name: mustName(t, "b/b"), Hash: "h2"},
		{Name: mustName(t, "a/a"), Hash: "h1"},
	}
	depsReordered := []DepHash{deps[1], deps[0]}

	h1 := ComputeBuildHash("srchash", "idris2", []byte("opts"), deps)
	h2 := ComputeBuildHash("srchash", "idris2", []byte("opts"), depsReordered)
	if h1 != h2 {
		t.Errorf("BuildHash must be order-stable regardless of dep ordering: %s != %s", h1, h2)
	}

	h3 := ComputeBuildHash("srchash2", "idris2", []byte("opts"), deps)
	if h1 == h3 {
		t.Error("different source hash must yield different BuildHash")
	}
}

func mustName(t *testing.T, s string) Name {
	t.Helper()
	n, err := ParseName(s)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestSummaryString(t *testing.T) {
	n := mustName(t, "grp/pkg")
	d, _ := ParseDirectRes("dir+/abs/path")
	id := PackageId{Name: n, Resolution: FromDirect(d)}
	sum := Summary{Id: id, Version: version.MustParse("1.2.3")}
	if sum.String() == "" {
		t.Error("expected non-empty summary string")
	}
}
