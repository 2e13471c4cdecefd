package ident

import (
	"fmt"
	"net/url"
	"strings"
)

// DirectRes is a direct, non-index resolution: a git remote+ref, an absolute
// local path, or a tarball URL with an optional checksum.
type DirectRes struct {
	Kind DirectKind

	// Git
	GitURL string
	GitRef string // opaque: branch, tag, or commit id

	// Dir
	Path string // absolute

	// Tar
	TarURL      string
	TarChecksum string // hex sha256, optional
}

type DirectKind int

const (
	Git DirectKind = iota
	Dir
	Tar
)

// InvalidSourceUrl reports a malformed direct/index resolution string.
type InvalidSourceUrl struct {
	Url    string
	Detail string
}

func (e *InvalidSourceUrl) Error() string {
	return fmt.Sprintf("invalid source url %q: %s", e.Url, e.Detail)
}
func (e *InvalidSourceUrl) Kind() string { return "InvalidSourceUrl" }

// ParseDirectRes parses the "<tag>+<payload>[#fragment]" serialization.
func ParseDirectRes(s string) (DirectRes, error) {
	i := strings.IndexByte(s, '+')
	if i < 0 {
		return DirectRes{}, &InvalidSourceUrl{Url: s, Detail: "missing <tag>+ prefix"}
	}
	tag, rest := s[:i], s[i+1:]

	var fragment string
	if j := strings.IndexByte(rest, '#'); j >= 0 {
		fragment = rest[j+1:]
		rest = rest[:j]
	}

	switch tag {
	case "git":
		return DirectRes{Kind: Git, GitURL: rest, GitRef: fragment}, nil
	case "dir":
		if !strings.HasPrefix(rest, "/") {
			return DirectRes{}, &InvalidSourceUrl{Url: s, Detail: "dir path must be absolute"}
		}
		return DirectRes{Kind: Dir, Path: rest}, nil
	case "tar":
		u, err := url.Parse(rest)
		if err != nil {
			return DirectRes{}, &InvalidSourceUrl{Url: s, Detail: err.Error()}
		}
		switch u.Scheme {
		case "http", "https", "file":
		default:
			return DirectRes{}, &InvalidSourceUrl{Url: s, Detail: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
		}
		return DirectRes{Kind: Tar, TarURL: rest, TarChecksum: fragment}, nil
	default:
		return DirectRes{}, &InvalidSourceUrl{Url: s, Detail: fmt.Sprintf("unknown tag %q", tag)}
	}
}

func (r DirectRes) String() string {
	switch r.Kind {
	case Git:
		s := "git+" + r.GitURL
		if r.GitRef != "" {
			s += "#" + r.GitRef
		}
		return s
	case Dir:
		return "dir+" + r.Path
	case Tar:
		s := "tar+" + r.TarURL
		if r.TarChecksum != "" {
			s += "#" + r.TarChecksum
		}
		return s
	default:
		return "?"
	}
}

// isCommitID reports whether ref looks like a hex commit id rather than an
// opaque branch/tag name: a 7-40 char lowercase hex string.
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

// LowKeyEqual reports whether r and o refer to the same repo/path/url,
// ignoring the git revision component.
func (r DirectRes) LowKeyEqual(o DirectRes) bool {
	if r.Kind != o.Kind {
		return false
	}
	switch r.Kind {
	case Git:
		return r.GitURL == o.GitURL
	case Dir:
		return r.Path == o.Path
	case Tar:
		return r.TarURL == o.TarURL
	default:
		return false
	}
}

// Equal reports full equality, including the git ref. Two git refs that are
// both commit ids are equal iff string-equal; a ref that is a branch/tag is
// opaque and only equal to an identical string.
func (r DirectRes) Equal(o DirectRes) bool {
	if !r.LowKeyEqual(o) {
		return false
	}
	switch r.Kind {
	case Git:
		return r.GitRef == o.GitRef
	case Tar:
		return r.TarChecksum == o.TarChecksum
	default:
		return true
	}
}

// WithRef returns a copy of a Git DirectRes with its ref replaced, used when
// a moving ref (branch/tag) resolves to a concrete commit id.
func (r DirectRes) WithRef(ref string) DirectRes {
	r.GitRef = ref
	return r
}

// IndexRes wraps a DirectRes: an index is itself a remote or local resource.
type IndexRes struct {
	Res DirectRes
}

func (r IndexRes) String() string { return "index+" + r.Res.String() }

func (r IndexRes) Equal(o IndexRes) bool { return r.Res.Equal(o.Res) }

// ResolutionKind distinguishes Direct from Index resolutions.
type ResolutionKind int

const (
	ResDirect ResolutionKind = iota
	ResIndex
)

// Resolution is the tagged union `Direct(DirectRes) | Index(IndexRes)`.
type Resolution struct {
	Kind   ResolutionKind
	Direct DirectRes
	Index  IndexRes
}

func FromDirect(d DirectRes) Resolution { return Resolution{Kind: ResDirect, Direct: d} }
func FromIndex(i IndexRes) Resolution   { return Resolution{Kind: ResIndex, Index: i} }

func (r Resolution) String() string {
	if r.Kind == ResIndex {
		return r.Index.String()
	}
	return r.Direct.String()
}

// LowKeyEqual reports whether r and o are both Direct resolutions referring
// to the same repo/path/url ignoring revision, or both Index resolutions
// wrapping low-key-equal directs.
func (r Resolution) LowKeyEqual(o Resolution) bool {
	if r.Kind != o.Kind {
		return false
	}
	if r.Kind == ResIndex {
		return r.Index.Res.LowKeyEqual(o.Index.Res)
	}
	return r.Direct.LowKeyEqual(o.Direct)
}

// Equal reports full equality.
func (r Resolution) Equal(o Resolution) bool {
	if r.Kind != o.Kind {
		return false
	}
	if r.Kind == ResIndex {
		return r.Index.Equal(o.Index)
	}
	return r.Direct.Equal(o.Direct)
}

// IsCommitRef reports whether the resolution's direct git ref (if any) looks
// like a commit id rather than a branch/tag.
func (r Resolution) IsCommitRef() bool {
	if r.Kind == ResDirect && r.Direct.Kind == Git {
		return isCommitID(r.Direct.GitRef)
	}
	return false
}
