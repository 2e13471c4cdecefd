// Package index implements the index store (C6): per-package JSON-line
// entry files under an index directory, index.toml configuration, alias
// resolution, spec selection, and substring search.
package index

import (
	"encoding/json"

	"github.com/elba-lang/elba/internal/ident"
	"github.com/elba-lang/elba/internal/version"
	"github.com/pkg/errors"
)

// rawEntry is the on-disk JSON-per-line shape of one IndexEntry.
type rawEntry struct {
	Name         string    `json:"name"`
	Version      string    `json:"version"`
	Dependencies []rawDep  `json:"dependencies"`
	Yanked       bool      `json:"yanked"`
	Location     string    `json:"location"`
}

type rawDep struct {
	Name     string `json:"name"`
	IndexRef string `json:"index,omitempty"`
	Req      string `json:"req"`
}

// Dep is one dependency declared by an IndexEntry, with its indexRef already
// resolved to a concrete IndexRes (via the owning index's alias map, falling
// back to the entry's own index).
type Dep struct {
	Name  ident.Name
	Index ident.IndexRes
	Req   version.Range
}

// Entry is a single parsed IndexEntry: one version of one package as
// published to an index.
type Entry struct {
	Name         ident.Name
	Version      version.Version
	Dependencies []Dep
	Yanked       bool
	Location     ident.DirectRes
}

// parseEntry parses one JSON line into an Entry, resolving each dependency's
// indexRef against resolveAlias (the owning index's declared alias map).
func parseEntry(line []byte, resolveAlias func(alias string) (ident.IndexRes, error)) (Entry, error) {
	var raw rawEntry
	if err := json.Unmarshal(line, &raw); err != nil {
		return Entry{}, errors.Wrap(err, "invalid index entry")
	}

	name, err := ident.ParseName(raw.Name)
	if err != nil {
		return Entry{}, err
	}
	v, err := version.Parse(raw.Version)
	if err != nil {
		return Entry{}, errors.Wrapf(err, "invalid index entry version for %s", raw.Name)
	}
	loc, err := ident.ParseDirectRes(raw.Location)
	if err != nil {
		return Entry{}, errors.Wrapf(err, "invalid index entry location for %s", raw.Name)
	}

	deps := make([]Dep, 0, len(raw.Dependencies))
	for _, rd := range raw.Dependencies {
		dn, err := ident.ParseName(rd.Name)
		if err != nil {
			return Entry{}, err
		}
		req, err := version.ParseConstraint(rd.Req)
		if err != nil {
			return Entry{}, errors.Wrapf(err, "invalid dependency constraint %q for %s", rd.Req, raw.Name)
		}
		ires, err := resolveAlias(rd.IndexRef)
		if err != nil {
			return Entry{}, err
		}
		deps = append(deps, Dep{Name: dn, Index: ires, Req: req})
	}

	return Entry{Name: name, Version: v, Dependencies: deps, Yanked: raw.Yanked, Location: loc}, nil
}
