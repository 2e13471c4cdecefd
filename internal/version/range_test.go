package version

import "testing"

func v(s string) Version { return MustParse(s) }

func TestParseCaret(t *testing.T) {
	cases := []struct {
		in        string
		allows    []string
		disallows []string
	}{
		{"^1.2.3", []string{"1.2.3", "1.9.9", "1.2.4"}, []string{"2.0.0", "1.2.2"}},
		{"^0.2.3", []string{"0.2.3", "0.2.9"}, []string{"0.3.0", "1.0.0"}},
		{"^0.0.3", []string{"0.0.3"}, []string{"0.0.4", "0.1.0"}},
		{"^1", []string{"1.0.0", "1.9.9"}, []string{"2.0.0"}},
	}
	for _, c := range cases {
		r, err := ParseConstraint(c.in)
		if err != nil {
			t.Fatalf("%s: %v", c.in, err)
		}
		for _, a := range c.allows {
			if !r.Satisfies(v(a)) {
				t.Errorf("%s should allow %s, range=%s", c.in, a, r)
			}
		}
		for _, d := range c.disallows {
			if r.Satisfies(v(d)) {
				t.Errorf("%s should disallow %s, range=%s", c.in, d, r)
			}
		}
	}
}

func TestParseTilde(t *testing.T) {
	r, err := ParseConstraint("~1.2.3")
	if err != nil {
		t.Fatal(err)
	}
	if !r.Satisfies(v("1.2.9")) {
		t.Error("~1.2.3 should allow 1.2.9")
	}
	if r.Satisfies(v("1.3.0")) {
		t.Error("~1.2.3 should disallow 1.3.0")
	}

	r2, err := ParseConstraint("~1")
	if err != nil {
		t.Fatal(err)
	}
	if r2.Satisfies(v("2.0.0")) {
		t.Error("~1 should disallow 2.0.0")
	}
	if !r2.Satisfies(v("1.9.9")) {
		t.Error("~1 should allow 1.9.9")
	}
}

func TestComparatorSequence(t *testing.T) {
	r, err := ParseConstraint("> 1.0.0, <= 2.0.0")
	if err != nil {
		t.Fatal(err)
	}
	if r.Satisfies(v("1.0.0")) {
		t.Error("should exclude 1.0.0")
	}
	if !r.Satisfies(v("2.0.0")) {
		t.Error("should include 2.0.0")
	}
	if r.Satisfies(v("2.0.1")) {
		t.Error("should exclude 2.0.1")
	}
}

func TestPrereleaseGating(t *testing.T) {
	r, err := ParseConstraint("^1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	if r.Satisfies(v("1.5.0-alpha.1")) {
		t.Error("a constraint with no explicit prerelease bound must not admit prereleases")
	}

	explicit, err := ParseConstraint(">= 1.0.0-alpha, < 2.0.0")
	if err != nil {
		t.Fatal(err)
	}
	if !explicit.Satisfies(v("1.0.0-beta")) {
		t.Error("a constraint with an explicit prerelease bound should admit prereleases within range")
	}
}

func TestIntersectUnionComplement(t *testing.T) {
	a := NewInterval(v("1.0.0"), true, false, v("2.0.0"), false, false)
	b := NewInterval(v("1.5.0"), true, false, v("3.0.0"), false, false)

	inter := a.Intersect(b)
	if !inter.Satisfies(v("1.5.0")) || inter.Satisfies(v("1.4.0")) || inter.Satisfies(v("2.0.0")) {
		t.Errorf("unexpected intersection: %s", inter)
	}

	union := a.Union(b)
	if !union.Satisfies(v("1.0.0")) || !union.Satisfies(v("2.5.0")) {
		t.Errorf("unexpected union: %s", union)
	}

	comp := a.Complement()
	if comp.Satisfies(v("1.5.0")) {
		t.Errorf("complement should exclude values in original range: %s", comp)
	}
	if !comp.Satisfies(v("2.0.0")) || !comp.Satisfies(v("0.5.0")) {
		t.Errorf("complement should include values outside original range: %s", comp)
	}
}

func TestRelation(t *testing.T) {
	a := NewInterval(v("1.0.0"), true, false, v("2.0.0"), false, false)
	b := NewInterval(v("1.0.0"), true, false, v("3.0.0"), false, false)
	c := NewInterval(v("5.0.0"), true, false, v("6.0.0"), false, false)

	if rel := a.RelationTo(b); rel != Subset {
		t.Errorf("expected Subset, got %s", rel)
	}
	if rel := b.RelationTo(a); rel != Superset {
		t.Errorf("expected Superset, got %s", rel)
	}
	if rel := a.RelationTo(c); rel != Disjoint {
		t.Errorf("expected Disjoint, got %s", rel)
	}
	if rel := a.RelationTo(a); rel != Equal {
		t.Errorf("expected Equal, got %s", rel)
	}
}
