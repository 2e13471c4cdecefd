package index

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/elba-lang/elba/internal/ident"
	"github.com/elba-lang/elba/internal/version"
)

// InvalidIndex is returned for malformed on-disk index data.
type InvalidIndex struct {
	Detail string
}

func (e *InvalidIndex) Error() string { return "invalid index: " + e.Detail }
func (e *InvalidIndex) Kind() string  { return "InvalidIndex" }

// packageEntries is the lazily-populated, sorted-by-version entry list for
// one package name within one Index.
type packageEntries struct {
	mu      sync.Mutex
	loaded  bool
	entries map[string]Entry // keyed by Version.String() for stable dedup
	order   []version.Version
	err     error
}

// Index is a single on-disk index directory: an index.toml plus per-package
// entry files at <group>/<name>.
type Index struct {
	Self ident.IndexRes // this index's own resolution, used as the alias fallback
	dir  string
	cfg  Config

	mu    sync.Mutex
	names nameTrie
}

// Open loads dir's index.toml and prepares (without yet reading) its
// per-package entry files.
func Open(dir string, self ident.IndexRes) (*Index, error) {
	cfg, err := loadConfig(dir)
	if err != nil {
		return nil, err
	}
	return &Index{Self: self, dir: dir, cfg: cfg, names: newNameTrie()}, nil
}

func (ix *Index) Config() Config { return ix.cfg }

func (ix *Index) resolveAlias(alias string) (ident.IndexRes, error) {
	if alias == "" {
		return ix.Self, nil
	}
	ires, ok := ix.cfg.Dependencies[alias]
	if !ok {
		return ident.IndexRes{}, fmt.Errorf("index %s: unresolved alias %q", ix.dir, alias)
	}
	return ires, nil
}

// Entries returns name's entries keyed by version, reading and parsing the
// backing file on first access. The map is unordered, and its keys are the
// Version values parsed from the file; a Version holds a pointer, so an
// equal Version parsed elsewhere is a different map key.
func (ix *Index) Entries(name ident.Name) (map[version.Version]Entry, error) {
	pe := ix.packageEntriesFor(name)
	pe.mu.Lock()
	defer pe.mu.Unlock()

	if !pe.loaded {
		pe.loaded = true
		pe.err = ix.loadEntries(name, pe)
	}
	if pe.err != nil {
		return nil, pe.err
	}

	out := make(map[version.Version]Entry, len(pe.order))
	for _, v := range pe.order {
		out[v] = pe.entries[v.String()]
	}
	return out, nil
}

func (ix *Index) packageEntriesFor(name ident.Name) *packageEntries {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if pe, ok := ix.names.Get(name.String()); ok {
		return pe
	}
	pe := &packageEntries{entries: make(map[string]Entry)}
	ix.names.Insert(name.String(), pe)
	return pe
}

func (ix *Index) loadEntries(name ident.Name, pe *packageEntries) error {
	path := filepath.Join(ix.dir, name.Group(), name.Base())
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // no entries published yet
		}
		return &InvalidIndex{Detail: fmt.Sprintf("opening %s: %v", path, err)}
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var ordered []version.Version
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		e, err := parseEntry(line, ix.resolveAlias)
		if err != nil {
			return &InvalidIndex{Detail: err.Error()}
		}
		pe.entries[e.Version.String()] = e
		ordered = append(ordered, e.Version)
	}
	if err := sc.Err(); err != nil {
		return &InvalidIndex{Detail: err.Error()}
	}

	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Less(ordered[j]) })
	pe.order = ordered
	return nil
}
