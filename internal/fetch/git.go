package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Masterminds/vcs"
	"github.com/elba-lang/elba/internal/ident"
	"github.com/pkg/errors"
)

// gitFetcher ingests a Git DirectRes by cloning into a scratch "bare" working
// copy beneath cloneRoot (keyed by repo URL so repeated checkouts of
// different refs from the same remote reuse one clone), checking out ref,
// and exporting a clean copy into destDir.
//
// A corrupt-repo error triggers exactly one retry by reinitializing
// (wiping and re-cloning) the working directory.
type gitFetcher struct {
	cloneRoot string

	mu     sync.Mutex
	clones map[string]*sync.Mutex // serializes operations per-remote
}

func newGitFetcher(cloneRoot string) *gitFetcher {
	return &gitFetcher{cloneRoot: cloneRoot, clones: make(map[string]*sync.Mutex)}
}

func (f *gitFetcher) repoMutex(url string) *sync.Mutex {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.clones[url]
	if !ok {
		m = &sync.Mutex{}
		f.clones[url] = m
	}
	return m
}

// Ingest clones/updates loc.GitURL, checks out loc.GitRef, and exports a
// clean working tree into destDir. It returns the resolved commit id when
// GitRef was a moving branch/tag (so callers can rekey the PackageId's
// resolution), or "" when GitRef was already a commit id.
func (f *gitFetcher) Ingest(ctx context.Context, loc ident.DirectRes, destDir string) (string, error) {
	mu := f.repoMutex(loc.GitURL)
	mu.Lock()
	defer mu.Unlock()

	local := filepath.Join(f.cloneRoot, hashRemote(loc.GitURL))

	resolvedRef, err := f.syncAndCheckout(local, loc)
	if err != nil {
		// One corruption-recovery retry: wipe and re-clone.
		os.RemoveAll(local)
		resolvedRef, err = f.syncAndCheckout(local, loc)
		if err != nil {
			return "", &CannotDownload{Op: "git", Detail: err.Error()}
		}
	}

	repo, err := vcs.NewGitRepo(loc.GitURL, local)
	if err != nil {
		return "", &CannotDownload{Op: "git", Detail: err.Error()}
	}
	if err := repo.ExportDir(destDir); err != nil {
		return "", &CannotDownload{Op: "git-export", Detail: err.Error()}
	}
	return resolvedRef, nil
}

func (f *gitFetcher) syncAndCheckout(local string, loc ident.DirectRes) (string, error) {
	repo, err := vcs.NewGitRepo(loc.GitURL, local)
	if err != nil {
		return "", err
	}
	if !repo.CheckLocal() {
		if err := repo.Get(); err != nil {
			return "", errors.Wrapf(err, "cloning %s", loc.GitURL)
		}
	} else {
		if err := repo.Update(); err != nil {
			return "", errors.Wrapf(err, "updating %s", loc.GitURL)
		}
	}

	ref := loc.GitRef
	if ref == "" {
		ref = "HEAD"
	}
	if err := repo.UpdateVersion(ref); err != nil {
		return "", errors.Wrapf(err, "checking out %s at %s", loc.GitURL, ref)
	}

	if isCommitID(loc.GitRef) {
		return "", nil
	}
	commit, err := repo.Version()
	if err != nil {
		return "", errors.Wrapf(err, "resolving current commit for %s", loc.GitURL)
	}
	return commit, nil
}

func hashRemote(url string) string {
	h := fnv32a(url)
	return fmt.Sprintf("%08x", h)
}

func fnv32a(s string) uint32 {
	const prime = 16777619
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
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
