package graph

import (
	"reflect"
	"testing"
)

func diamond() *Graph[string] {
	g := New[string]()
	r := g.AddNode("root")
	a := g.AddNode("a")
	b := g.AddNode("b")
	s := g.AddNode("shared")
	g.Link(r, a)
	g.Link(r, b)
	g.Link(a, s)
	g.Link(b, s)
	return g
}

func TestLinkChildrenParents(t *testing.T) {
	g := diamond()
	if got := g.Children(0); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("root children = %v", got)
	}
	if got := g.Parents(3); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("shared parents = %v", got)
	}
	if g.Root() != "root" {
		t.Errorf("node 0 should be the root by convention")
	}
}

func TestMapPreservesTopology(t *testing.T) {
	g := diamond()
	lens := Map(g, func(s string) int { return len(s) })
	if lens.Len() != g.Len() {
		t.Fatalf("node count changed: %d vs %d", lens.Len(), g.Len())
	}
	if lens.Node(3) != len("shared") {
		t.Errorf("mapped value mismatch at node 3: %d", lens.Node(3))
	}
	if !reflect.DeepEqual(lens.Children(0), g.Children(0)) {
		t.Errorf("topology not preserved: %v vs %v", lens.Children(0), g.Children(0))
	}
}

func TestFindBy(t *testing.T) {
	g := diamond()
	if i := g.FindBy(func(s string) bool { return s == "b" }); i != 2 {
		t.Errorf("want index 2, got %d", i)
	}
	if i := g.FindBy(func(s string) bool { return s == "missing" }); i != -1 {
		t.Errorf("want -1 for no match, got %d", i)
	}
}

func TestBFSVisitsEachNodeOnce(t *testing.T) {
	g := diamond()
	var order []int
	g.BFS(0, func(i int) { order = append(order, i) })
	if len(order) != 4 {
		t.Fatalf("want 4 visits (shared reached via two parents counts once), got %v", order)
	}
	if order[0] != 0 {
		t.Errorf("BFS should start at the requested node, got %v", order)
	}
	if order[3] != 3 {
		t.Errorf("the deepest node should be visited last, got %v", order)
	}
}
