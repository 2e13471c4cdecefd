package manifest

import (
	"github.com/elba-lang/elba/internal/ident"
	"github.com/elba-lang/elba/internal/version"
)

// LockEntry is one package keyed by name+resolution in an elba.lock,
// carrying its resolved version and the list of direct dependency keys.
type LockEntry struct {
	Id      ident.PackageId
	Version version.Version
	Deps    []ident.PackageId
}

// Lockfile is the logical shape of an elba.lock: the resolved graph,
// flattened to a list keyed by PackageId.
type Lockfile struct {
	Entries []LockEntry
}

// Find returns the entry matching id by low-key equality (the retriever's
// lock-preference rule), and whether one was found.
func (l *Lockfile) Find(id ident.PackageId) (LockEntry, bool) {
	for _, e := range l.Entries {
		if e.Id.LowKeyEqual(id) {
			return e, true
		}
	}
	return LockEntry{}, false
}

// LockDiff reports packages added, removed, or changed between two
// lockfiles, matching each by low-key PackageId equality. Useful for
// reporting what a new solve changed relative to a previous elba.lock.
type LockDiff struct {
	Added   []LockEntry
	Removed []LockEntry
	Changed []LockDiffChange
}

// LockDiffChange records a version change for a package present in both
// lockfiles.
type LockDiffChange struct {
	Id       ident.PackageId
	Old, New version.Version
}

// Diff compares l (old) against n (new).
func (l *Lockfile) Diff(n *Lockfile) LockDiff {
	var d LockDiff
	matched := make(map[int]bool)

	for _, oe := range l.Entries {
		found := false
		for ni, ne := range n.Entries {
			if matched[ni] {
				continue
			}
			if oe.Id.LowKeyEqual(ne.Id) {
				matched[ni] = true
				found = true
				if !oe.Version.Equal(ne.Version) {
					d.Changed = append(d.Changed, LockDiffChange{Id: ne.Id, Old: oe.Version, New: ne.Version})
				}
				break
			}
		}
		if !found {
			d.Removed = append(d.Removed, oe)
		}
	}
	for ni, ne := range n.Entries {
		if !matched[ni] {
			d.Added = append(d.Added, ne)
		}
	}
	return d
}

// ManifestTransformer converts a legacy manifest format (e.g. a .ipkg file)
// into a Manifest. The core treats legacy import pathways as an external
// transformer; this interface is the seam, with no
// concrete .ipkg implementation provided here.
type ManifestTransformer interface {
	// Detect reports whether dir contains a manifest this transformer
	// understands.
	Detect(dir string) bool
	// Transform reads the legacy manifest in dir and produces its logical
	// Manifest equivalent.
	Transform(dir string) (*Manifest, error)
}
