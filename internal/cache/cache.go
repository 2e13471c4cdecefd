// Package cache implements the content-addressed cache (C4): the disk
// layout under src/, build/, indices/, tmp/, bin/, source/build hashing,
// dedup via DirLock, and offline-mode selection restriction.
package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/elba-lang/elba/internal/dirlock"
	"github.com/elba-lang/elba/internal/shell"
	"github.com/pkg/errors"
)

// Cache owns the on-disk layout:
//
//	<root>/src/<source-hash>/
//	<root>/build/<build-hash>/
//	<root>/indices/<source-hash>/
//	<root>/tmp/<build-hash>/
//	<root>/bin/
type Cache struct {
	root    string
	sh      *shell.Shell
	offline *offlineSnapshot // nil unless offline mode is enabled
}

// Open prepares the cache directories under root, creating any that are
// missing. If offline is true, the offline snapshot is built immediately by
// enumerating existing src/<hash> directories.
func Open(root string, offline bool, sh *shell.Shell) (*Cache, error) {
	c := &Cache{root: root, sh: sh}
	for _, sub := range []string{"src", "build", "indices", "tmp", "bin"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, errors.Wrapf(err, "preparing cache directory %s", sub)
		}
	}
	if offline {
		snap, err := newOfflineSnapshot(root)
		if err != nil {
			return nil, errors.Wrap(err, "building offline snapshot")
		}
		c.offline = snap
	}
	return c, nil
}

// Close releases cache-held resources (the offline snapshot's database, if
// open). The cache directories themselves are left intact.
func (c *Cache) Close() error {
	if c.offline != nil {
		return c.offline.db.Close()
	}
	return nil
}

// Offline reports whether the cache is restricted to previously-ingested
// sources.
func (c *Cache) Offline() bool { return c.offline != nil }

// HasOfflineHash reports whether src/<hash> was present at startup. When the
// cache is not offline it reports true for every hash.
func (c *Cache) HasOfflineHash(hash string) bool {
	if c.offline == nil {
		return true
	}
	return c.offline.has(hash)
}

// OfflinePath returns the local src/<hash> path for a hash known to the
// offline snapshot.
func (c *Cache) OfflinePath(hash string) string {
	return c.srcPath(hash)
}

func (c *Cache) srcPath(hash string) string     { return filepath.Join(c.root, "src", hash) }
func (c *Cache) buildPath(hash string) string   { return filepath.Join(c.root, "build", hash) }
func (c *Cache) indicesPath(hash string) string { return filepath.Join(c.root, "indices", hash) }
func (c *Cache) tmpPath(hash string) string     { return filepath.Join(c.root, "tmp", hash) }
func (c *Cache) binPath() string                { return filepath.Join(c.root, "bin") }

// AlreadyInstalled is returned by StoreBins when force=false and a target
// file already exists in bin/.
type AlreadyInstalled struct {
	Name string
}

func (e *AlreadyInstalled) Error() string { return fmt.Sprintf("%s is already installed", e.Name) }
func (e *AlreadyInstalled) Kind() string  { return "AlreadyInstalled" }

// lockedDir ensures path's parent exists and acquires path's DirLock,
// which the caller must Release.
func lockedDir(path string) (*dirlock.DirLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return dirlock.Acquire(path)
}

// dirExistsNonEmpty reports whether path exists and has at least one entry.
func dirExistsNonEmpty(path string) bool {
	entries, err := os.ReadDir(path)
	return err == nil && len(entries) > 0
}
