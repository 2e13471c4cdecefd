package cache

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/elba-lang/elba/internal/ident"
)

// HashSource returns a stable hex digest for loc: for Git, the ref
// is included iff it is a commit id (branches/tags hash without the ref so
// refreshes reuse the same clone directory); for Dir, the path is used
// directly; for Tar, the URL plus declared checksum.
func HashSource(loc ident.DirectRes) string {
	h := sha256.New()
	switch loc.Kind {
	case ident.Git:
		h.Write([]byte("git\x00"))
		h.Write([]byte(loc.GitURL))
		if isCommitID(loc.GitRef) {
			h.Write([]byte("\x00"))
			h.Write([]byte(loc.GitRef))
		}
	case ident.Dir:
		h.Write([]byte("dir\x00"))
		h.Write([]byte(loc.Path))
	case ident.Tar:
		h.Write([]byte("tar\x00"))
		h.Write([]byte(loc.TarURL))
		h.Write([]byte("\x00"))
		h.Write([]byte(loc.TarChecksum))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func isCommitID(ref string) bool {
	if len(ref) < 7 || len(ref) > 40 {
		return false
	}
	for _, c := range ref {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}
