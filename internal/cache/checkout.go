package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/elba-lang/elba/internal/dirlock"
	"github.com/elba-lang/elba/internal/ident"
	"github.com/elba-lang/elba/internal/manifest"
	"github.com/pkg/errors"
)

// Ingester materializes a DirectRes into destDir. It returns the resolved
// concrete ref for Git sources whose ref was a moving branch/tag (empty
// string if unchanged or not applicable), and must verify a declared tar
// checksum itself, returning a *ChecksumError on mismatch. Implemented by
// internal/fetch; kept as an interface here so cache has no dependency on
// the network/VCS machinery.
type Ingester interface {
	Ingest(ctx context.Context, loc ident.DirectRes, destDir string) (resolvedRef string, err error)
}

// Source is a materialized package on disk: a directory-locked path plus its
// parsed manifest. Its lifetime runs from checkout until Release.
type Source struct {
	Dir        string
	Resolution ident.DirectRes // possibly rekeyed (moving ref -> commit)
	Manifest   *manifest.Manifest
	lock       *dirlock.DirLock
}

// Release drops the DirLock guarding this source's directory.
func (s *Source) Release() error {
	if s == nil {
		return nil
	}
	return s.lock.Release()
}

// CheckoutSource returns a Source for loc, ingesting into src/<hash>/ if not
// already present (or using the path directly for Dir resolutions, which are
// never copied). The DirLock is taken without waiting: a caller racing on a
// hash whose lock is held fails with *dirlock.ErrLocked, and a call made
// after the lock is released observes the completed directory and
// short-circuits without re-ingesting.
func (c *Cache) CheckoutSource(ctx context.Context, loc ident.DirectRes, ing Ingester) (*Source, error) {
	if loc.Kind == ident.Dir {
		// No copy: the path is used directly. Still locked, so a process
		// building from the same local path serializes with another.
		lock, err := dirlock.Acquire(loc.Path)
		if err != nil {
			return nil, err
		}
		return &Source{Dir: loc.Path, Resolution: loc, lock: lock}, nil
	}

	if c.offline != nil && !c.HasOfflineHash(HashSource(loc)) {
		return nil, fmt.Errorf("package not found in offline cache: %s", loc)
	}

	hash := HashSource(loc)
	dir := c.srcPath(hash)
	lock, err := lockedDir(dir)
	if err != nil {
		return nil, err
	}

	resolution := loc
	if !dirExistsNonEmpty(dir) {
		c.sh.Tracef("ingesting %s into src/%s", loc, hash)
		tmp := dir + ".ingest"
		os.RemoveAll(tmp)
		if err := os.MkdirAll(tmp, 0o755); err != nil {
			lock.Release()
			return nil, err
		}
		resolvedRef, err := ing.Ingest(ctx, loc, tmp)
		if err != nil {
			os.RemoveAll(tmp)
			lock.Release()
			return nil, err
		}
		if err := renameOrCopy(tmp, dir); err != nil {
			lock.Release()
			return nil, err
		}
		if resolvedRef != "" {
			resolution = loc.WithRef(resolvedRef)
		}
	}

	return &Source{Dir: dir, Resolution: resolution, lock: lock}, nil
}

// Checkout materializes loc via ing and returns its directory plus the
// resolution as actually realized. It satisfies solver.SourceMaterializer
// structurally, letting the retriever's RetrievePackages drive
// checkout and resMapping discovery without this package importing
// internal/solver. The DirLock is intentionally not surfaced through this
// narrow seam: a caller building the scheduler's Graph<Source> instead calls
// CheckoutSource directly per node and keeps the returned *Source (and its
// lock) alive for the build's duration, releasing each once the scheduler
// run completes: a Source exists on disk exactly while its DirLock is held.
func (c *Cache) Checkout(loc ident.DirectRes, ing Ingester) (dir string, resolved ident.DirectRes, err error) {
	src, err := c.CheckoutSource(context.Background(), loc, ing)
	if err != nil {
		return "", ident.DirectRes{}, err
	}
	defer src.Release()
	return src.Dir, src.Resolution, nil
}

// IndexDir is a checked-out index under indices/<hash>/ (or a local index
// directory used in place), held under its DirLock until Release.
type IndexDir struct {
	Dir  string
	lock *dirlock.DirLock
}

// Release drops the DirLock guarding this index's directory.
func (d *IndexDir) Release() error {
	if d == nil {
		return nil
	}
	return d.lock.Release()
}

// CheckoutIndex materializes an index's backing resource under
// indices/<hash>/, following the same ingest-or-observe discipline as
// CheckoutSource. Dir-resolved indices are used in place, never copied.
func (c *Cache) CheckoutIndex(ctx context.Context, ires ident.IndexRes, ing Ingester) (*IndexDir, error) {
	loc := ires.Res
	if loc.Kind == ident.Dir {
		lock, err := dirlock.Acquire(loc.Path)
		if err != nil {
			return nil, err
		}
		return &IndexDir{Dir: loc.Path, lock: lock}, nil
	}

	hash := HashSource(loc)
	dir := c.indicesPath(hash)
	lock, err := lockedDir(dir)
	if err != nil {
		return nil, err
	}

	if !dirExistsNonEmpty(dir) {
		c.sh.Tracef("ingesting index %s into indices/%s", loc, hash)
		tmp := dir + ".ingest"
		os.RemoveAll(tmp)
		if err := os.MkdirAll(tmp, 0o755); err != nil {
			lock.Release()
			return nil, err
		}
		if _, err := ing.Ingest(ctx, loc, tmp); err != nil {
			os.RemoveAll(tmp)
			lock.Release()
			return nil, err
		}
		if err := renameOrCopy(tmp, dir); err != nil {
			lock.Release()
			return nil, err
		}
	}

	return &IndexDir{Dir: dir, lock: lock}, nil
}

// Binary is a materialized build output area: the target directory (lib ibc
// files, bin outputs, docs) plus the BuildHash that produced it.
type Binary struct {
	Dir  string
	Hash ident.BuildHash
}

// CheckoutBuild returns the existing build/<hash>/ directory if complete, or
// (nil, false, nil) if no such build has been promoted yet.
func (c *Cache) CheckoutBuild(hash ident.BuildHash) (*Binary, bool, error) {
	dir := c.buildPath(string(hash))
	if !dirExistsNonEmpty(dir) {
		return nil, false, nil
	}
	return &Binary{Dir: dir, Hash: hash}, true, nil
}

// OutputLayout is a scratch build output area under tmp/, used while a job is
// in progress.
type OutputLayout struct {
	Dir string
}

func (o *OutputLayout) LibDir() string  { return filepath.Join(o.Dir, "lib") }
func (o *OutputLayout) BinDir() string  { return filepath.Join(o.Dir, "bin") }
func (o *OutputLayout) DocDir() string  { return filepath.Join(o.Dir, "doc") }

// CheckoutTmp returns a fresh scratch OutputLayout for hash under tmp/.
func (c *Cache) CheckoutTmp(hash ident.BuildHash) (*OutputLayout, error) {
	dir := c.tmpPath(string(hash))
	os.RemoveAll(dir)
	for _, sub := range []string{"lib", "bin", "doc"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, err
		}
	}
	return &OutputLayout{Dir: dir}, nil
}

// StoreBuild atomically promotes a completed tmp/ area to build/<hash>/,
// yielding a Binary. A store attempted while another holds the lock on
// build/<hash>/ fails with *dirlock.ErrLocked; a later store of a hash that
// already occupies build/<hash>/ is discarded.
func (c *Cache) StoreBuild(from *OutputLayout, hash ident.BuildHash) (*Binary, error) {
	dest := c.buildPath(string(hash))
	lock, err := lockedDir(dest)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	if dirExistsNonEmpty(dest) {
		// Another process promoted the same hash first; ours is redundant.
		os.RemoveAll(from.Dir)
		return &Binary{Dir: dest, Hash: hash}, nil
	}
	c.sh.Tracef("promoting tmp build to build/%s", hash)
	if err := renameOrCopy(from.Dir, dest); err != nil {
		return nil, err
	}
	return &Binary{Dir: dest, Hash: hash}, nil
}

// StoreBins copies the given built executables into bin/. If force is
// false and a target file already exists, returns *AlreadyInstalled without
// copying anything.
func (c *Cache) StoreBins(bins []string, force bool) error {
	dest := c.binPath()
	if !force {
		for _, b := range bins {
			target := filepath.Join(dest, filepath.Base(b))
			if _, err := os.Stat(target); err == nil {
				return &AlreadyInstalled{Name: filepath.Base(b)}
			}
		}
	}
	for _, b := range bins {
		target := filepath.Join(dest, filepath.Base(b))
		if err := copyFile(b, target); err != nil {
			return errors.Wrapf(err, "installing %s", b)
		}
	}
	return nil
}
