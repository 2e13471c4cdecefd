package index

import (
	"fmt"
	"strings"
	"sync"

	"github.com/elba-lang/elba/internal/ident"
	"github.com/elba-lang/elba/internal/version"
)

// Ambiguous is returned when a spec matches multiple indices. An alias that
// cannot be resolved is not reported as Ambiguous: reading the entry that
// names it fails with *InvalidIndex.
type Ambiguous struct {
	Detail string
}

func (e *Ambiguous) Error() string { return "ambiguous: " + e.Detail }
func (e *Ambiguous) Kind() string  { return "Ambiguous" }

// PackageNotFound is returned when no loaded index (or the offline
// snapshot) has an entry for a requested package.
type PackageNotFound struct {
	Name ident.Name
}

func (e *PackageNotFound) Error() string { return fmt.Sprintf("package not found: %s", e.Name) }
func (e *PackageNotFound) Kind() string  { return "PackageNotFound" }

// Opener lazily materializes an Index from an IndexRes (typically: checkout
// the IndexRes's underlying DirectRes via the retriever/cache, then
// index.Open the resulting directory). Kept as an injected function so this
// package has no dependency on the cache/fetch machinery.
type Opener func(ires ident.IndexRes) (*Index, error)

// Store aggregates the set of indices known to a solve; each is loaded
// lazily on first reference.
type Store struct {
	open Opener

	mu      sync.Mutex
	indices map[string]*Index // keyed by IndexRes.String()
}

// NewStore builds a Store that opens indices on demand via open.
func NewStore(open Opener) *Store {
	return &Store{open: open, indices: make(map[string]*Index)}
}

func (s *Store) get(ires ident.IndexRes) (*Index, error) {
	key := ires.String()
	s.mu.Lock()
	if ix, ok := s.indices[key]; ok {
		s.mu.Unlock()
		return ix, nil
	}
	s.mu.Unlock()

	ix, err := s.open(ires)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.indices[key]; ok {
		return existing, nil
	}
	s.indices[key] = ix
	return ix, nil
}

// Entries returns name's entries from a specific index.
func (s *Store) Entries(ires ident.IndexRes, name ident.Name) (map[version.Version]Entry, error) {
	ix, err := s.get(ires)
	if err != nil {
		return nil, err
	}
	return ix.Entries(name)
}

// SelectBySpec scans every opened index for name and returns the entries
// from whichever single index has them. If more than one opened index has
// entries for name, the lookup is Ambiguous; if none do, PackageNotFound.
//
// Only indices already known to the Store (opened by a prior reference) are
// scanned; discovering entirely unreferenced indices is outside this
// store's lazy-load contract.
func (s *Store) SelectBySpec(name ident.Name) (ident.IndexRes, map[version.Version]Entry, error) {
	s.mu.Lock()
	indices := make([]*Index, 0, len(s.indices))
	for _, ix := range s.indices {
		indices = append(indices, ix)
	}
	s.mu.Unlock()

	var matchIndex *Index
	var matchEntries map[version.Version]Entry
	for _, ix := range indices {
		entries, err := ix.Entries(name)
		if err != nil {
			return ident.IndexRes{}, nil, err
		}
		if len(entries) == 0 {
			continue
		}
		if matchIndex != nil {
			return ident.IndexRes{}, nil, &Ambiguous{Detail: fmt.Sprintf("%s found in multiple indices", name)}
		}
		matchIndex, matchEntries = ix, entries
	}
	if matchIndex == nil {
		return ident.IndexRes{}, nil, &PackageNotFound{Name: name}
	}
	return matchIndex.Self, matchEntries, nil
}

// SearchResult is one match returned by Search.
type SearchResult struct {
	Name    ident.Name
	Version version.Version
	Index   ident.IndexRes
}

// Search scans every opened index's loaded package names for a substring
// match against query, returning every matching (name, version, index)
// triple across all their loaded entries.
func (s *Store) Search(query string) []SearchResult {
	s.mu.Lock()
	indices := make([]*Index, 0, len(s.indices))
	for _, ix := range s.indices {
		indices = append(indices, ix)
	}
	s.mu.Unlock()

	var out []SearchResult
	for _, ix := range indices {
		ix.names.Walk(func(name string, pe *packageEntries) bool {
			if !strings.Contains(name, query) {
				return false
			}
			pe.mu.Lock()
			for _, v := range pe.order {
				out = append(out, SearchResult{Name: nameFromString(name), Version: v, Index: ix.Self})
			}
			pe.mu.Unlock()
			return false
		})
	}
	return out
}

func nameFromString(s string) ident.Name {
	n, _ := ident.ParseName(s)
	return n
}
