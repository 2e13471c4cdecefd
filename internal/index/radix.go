package index

import radix "github.com/armon/go-radix"

// nameTrie is a typed wrapper over armon/go-radix: a thin shim avoiding
// type assertions anywhere else in the package. Keys are "group/name"
// package names in their display form (Name.String()).
type nameTrie struct {
	t *radix.Tree
}

func newNameTrie() nameTrie {
	return nameTrie{t: radix.New()}
}

func (t nameTrie) Get(s string) (*packageEntries, bool) {
	if v, ok := t.t.Get(s); ok {
		return v.(*packageEntries), true
	}
	return nil, false
}

func (t nameTrie) Insert(s string, v *packageEntries) {
	t.t.Insert(s, v)
}

func (t nameTrie) Len() int { return t.t.Len() }

// Walk visits every (name, entries) pair; used by search(query).
func (t nameTrie) Walk(fn func(name string, v *packageEntries) bool) {
	t.t.Walk(func(s string, v interface{}) bool {
		return fn(s, v.(*packageEntries))
	})
}
