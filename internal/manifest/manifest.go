// Package manifest defines the logical shape of manifests and lockfiles
// that the core consumes. Parsing the on-disk TOML representation is an
// external collaborator's responsibility; this package
// owns only the structs the solver, retriever, and scheduler operate on.
package manifest

import (
	"github.com/elba-lang/elba/internal/ident"
	"github.com/elba-lang/elba/internal/version"
)

// DepKind distinguishes ordinary and dev-only dependencies.
type DepKind int

const (
	Normal DepKind = iota
	Dev
)

// Dep is one entry of a manifest's [dependencies]/[dev_dependencies] table.
type Dep struct {
	Name       ident.Name
	Kind       DepKind
	Constraint version.Range
	// Resolution, when non-nil, pins the dependency to a Direct source
	// (path/git) rather than letting it float against an index.
	Resolution *ident.Resolution
	// Index optionally names an alternate index to resolve this dep from.
	Index *ident.IndexRes
}

// Package is the [package] section.
type Package struct {
	Name        ident.Name
	Version     version.Version
	Authors     []string
	License     string
	Description string
	Homepage    string
	Repository  string
	Readme      string
	Exclude     []string
}

// LibTarget is [targets.lib].
type LibTarget struct {
	Path      string
	Mods      []string
	IdrisOpts []string
}

// BinTarget is one [[targets.bin]] entry.
type BinTarget struct {
	Name      string
	Main      string
	Path      string
	IdrisOpts []string
}

// TestTarget is one [[targets.test]] entry.
type TestTarget struct {
	Name      string
	Main      string
	Path      string
	IdrisOpts []string
}

// Targets collects a manifest's declared build targets.
type Targets struct {
	Lib  *LibTarget
	Bins []BinTarget
	Test []TestTarget
	Doc  bool
}

// Manifest is the logical shape of a package manifest, consumed by the
// retriever (for a checked-out Direct source's dependency list) and the
// scheduler (for its Targets).
type Manifest struct {
	Package   Package
	Deps      []Dep
	Targets   Targets
	Workspace []string
	Scripts   map[string]string
}

// Dependencies returns the normal (non-dev) dependency list.
func (m *Manifest) Dependencies() []Dep {
	out := make([]Dep, 0, len(m.Deps))
	for _, d := range m.Deps {
		if d.Kind == Normal {
			out = append(out, d)
		}
	}
	return out
}

// DevDependencies returns the dev-only dependency list.
func (m *Manifest) DevDependencies() []Dep {
	out := make([]Dep, 0, len(m.Deps))
	for _, d := range m.Deps {
		if d.Kind == Dev {
			out = append(out, d)
		}
	}
	return out
}
