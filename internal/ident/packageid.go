package ident

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/elba-lang/elba/internal/version"
)

// PackageId is (Name, Resolution). Two packages with identical names but
// different resolutions are distinct packages.
type PackageId struct {
	Name       Name
	Resolution Resolution
}

func (p PackageId) String() string { return p.Name.String() + "@" + p.Resolution.String() }

// Equal reports full PackageId equality (name plus resolution, including
// revision).
func (p PackageId) Equal(o PackageId) bool {
	return p.Name.Equal(o.Name) && p.Resolution.Equal(o.Resolution)
}

// LowKeyEqual reports whether p and o name the same package and the same
// underlying repo/path/url, ignoring git revision — used to recognize
// lockfile carryover across updates.
func (p PackageId) LowKeyEqual(o PackageId) bool {
	return p.Name.Equal(o.Name) && p.Resolution.LowKeyEqual(o.Resolution)
}

// Summary is (PackageId, Version): the canonical identity of a resolved
// package.
type Summary struct {
	Id      PackageId
	Version version.Version
}

func (s Summary) String() string { return s.Id.String() + "@" + s.Version.String() }

// BuildHash is a deterministic fingerprint over a source's content identity,
// the backend identity, the recursively-hashed dependency summaries, and
// compiler options. Two builds with equal BuildHash are
// substitutable.
type BuildHash string

// DepHash pairs a dependency's Name with its own (already-computed)
// BuildHash, so BuildHash computation can proceed bottom-up without
// re-deriving dependency hashes.
type DepHash struct {
	Name Name
	Hash BuildHash
}

// ComputeBuildHash digests sourceHash, the backend name, options, and the
// dependency hashes, feeding a stable sorted-by-name sequence into sha256
// so the result is order-independent of how callers collected deps.
func ComputeBuildHash(sourceHash string, backend string, options []byte, deps []DepHash) BuildHash {
	sorted := make([]DepHash, len(deps))
	copy(sorted, deps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name.Less(sorted[j].Name) })

	h := sha256.New()
	h.Write([]byte(sourceHash))
	h.Write([]byte{0})
	h.Write([]byte(backend))
	h.Write([]byte{0})
	h.Write(options)
	for _, d := range sorted {
		h.Write([]byte(d.Name.String()))
		h.Write([]byte(d.Hash))
	}
	return BuildHash(hex.EncodeToString(h.Sum(nil)))
}
