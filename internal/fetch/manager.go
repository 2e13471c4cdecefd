// Package fetch implements the Retriever's source managers (C5): obtaining
// package sources from git, tarballs, and local directories, with checksum
// verification and a fixed HTTP timeout composed with caller cancellation.
package fetch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/elba-lang/elba/internal/ident"
)

// Manager dispatches ingestion to the kind-specific fetcher. It implements
// cache.Ingester.
type Manager struct {
	git *gitFetcher
	tar *tarFetcher
}

// NewManager builds a Manager whose git clones are cached under
// <cacheRoot>/tmp/_clones (a scratch area distinct from src/, since a git
// clone's working copy is an intermediate artifact: the Source directory
// itself is always a clean export).
func NewManager(cacheRoot string) *Manager {
	return &Manager{
		git: newGitFetcher(filepath.Join(cacheRoot, "tmp", "_clones")),
		tar: newTarFetcher(),
	}
}

// Ingest materializes loc into destDir, dispatching by DirectRes kind.
// Dir resolutions are handled directly by the cache (no copy) and never
// reach this method.
func (m *Manager) Ingest(ctx context.Context, loc ident.DirectRes, destDir string) (string, error) {
	switch loc.Kind {
	case ident.Git:
		return m.git.Ingest(ctx, loc, destDir)
	case ident.Tar:
		return m.tar.Ingest(ctx, loc, destDir)
	default:
		return "", fmt.Errorf("fetch: unsupported resolution kind for ingestion: %v", loc.Kind)
	}
}
