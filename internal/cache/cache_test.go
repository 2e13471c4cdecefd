package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/elba-lang/elba/internal/ident"
	"github.com/elba-lang/elba/internal/shell"
)

type stubIngester struct {
	calls int
}

func (s *stubIngester) Ingest(ctx context.Context, loc ident.DirectRes, destDir string) (string, error) {
	s.calls++
	return "", os.WriteFile(filepath.Join(destDir, "manifest.json"), []byte("{}"), 0o644)
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	root := t.TempDir()
	c, err := Open(root, false, shell.New(os.Stdout, os.Stderr, false))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCheckoutSourceIdempotent(t *testing.T) {
	c := newTestCache(t)
	loc, _ := ident.ParseDirectRes("tar+https://example.com/pkg.tar.gz#" + "deadbeef")
	ing := &stubIngester{}

	s1, err := c.CheckoutSource(context.Background(), loc, ing)
	if err != nil {
		t.Fatal(err)
	}
	s1.Release()

	s2, err := c.CheckoutSource(context.Background(), loc, ing)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Release()

	if s1.Dir != s2.Dir {
		t.Errorf("expected same path on repeat checkout, got %s vs %s", s1.Dir, s2.Dir)
	}
	if ing.calls != 1 {
		t.Errorf("expected ingest to run exactly once, ran %d times", ing.calls)
	}
}

func TestCheckoutSourceWhileLockHeldFailsLocked(t *testing.T) {
	c := newTestCache(t)
	loc, _ := ident.ParseDirectRes("tar+https://example.com/pkg.tar.gz#" + "deadbeef")
	ing := &stubIngester{}

	s1, err := c.CheckoutSource(context.Background(), loc, ing)
	if err != nil {
		t.Fatal(err)
	}
	defer s1.Release()

	if _, err := c.CheckoutSource(context.Background(), loc, ing); err == nil {
		t.Fatal("expected Locked while the first checkout's lock is held")
	}
}

func TestCheckoutBuildMissing(t *testing.T) {
	c := newTestCache(t)
	_, ok, err := c.CheckoutBuild(ident.BuildHash("nonexistent"))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected no build to be found")
	}
}

func TestStoreBuildPromotesTmp(t *testing.T) {
	c := newTestCache(t)
	hash := ident.BuildHash("abc123")

	tmp, err := c.CheckoutTmp(hash)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmp.LibDir(), "Foo.ibc"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	bin, err := c.StoreBuild(tmp, hash)
	if err != nil {
		t.Fatal(err)
	}

	got, ok, err := c.CheckoutBuild(hash)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected promoted build to be found")
	}
	if got.Dir != bin.Dir {
		t.Errorf("mismatched dir: %s vs %s", got.Dir, bin.Dir)
	}
}

func TestOfflineSnapshotEnumeratesPreexistingSourceHashes(t *testing.T) {
	root := t.TempDir()
	loc, _ := ident.ParseDirectRes("tar+https://example.com/pkg.tar.gz")
	hash := HashSource(loc)
	if err := os.MkdirAll(filepath.Join(root, "src", hash), 0o755); err != nil {
		t.Fatal(err)
	}

	c, err := Open(root, true, shell.New(os.Stdout, os.Stderr, false))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if !c.Offline() {
		t.Fatal("cache should report offline mode")
	}
	if !c.HasOfflineHash(hash) {
		t.Error("pre-existing src/<hash> should be in the offline snapshot")
	}
	if c.HasOfflineHash("0000absent") {
		t.Error("a hash never ingested must not be in the snapshot")
	}
	if got := c.OfflinePath(hash); got != filepath.Join(root, "src", hash) {
		t.Errorf("OfflinePath = %s", got)
	}
}

func TestCheckoutIndexIngestsOnceAndLocks(t *testing.T) {
	c := newTestCache(t)
	direct, err := ident.ParseDirectRes("git+https://example.com/elba/index")
	if err != nil {
		t.Fatal(err)
	}
	ires := ident.IndexRes{Res: direct}
	ing := &stubIngester{}

	d1, err := c.CheckoutIndex(context.Background(), ires, ing)
	if err != nil {
		t.Fatal(err)
	}

	// While the first checkout holds its lock, a second must observe Locked.
	if _, err := c.CheckoutIndex(context.Background(), ires, ing); err == nil {
		t.Fatal("expected a lock conflict while the first checkout is held")
	}
	d1.Release()

	d2, err := c.CheckoutIndex(context.Background(), ires, ing)
	if err != nil {
		t.Fatal(err)
	}
	defer d2.Release()

	if d1.Dir != d2.Dir {
		t.Errorf("expected the same indices/ directory, got %s vs %s", d1.Dir, d2.Dir)
	}
	if ing.calls != 1 {
		t.Errorf("expected ingest to run exactly once, ran %d times", ing.calls)
	}
}

func TestStoreBinsAlreadyInstalled(t *testing.T) {
	c := newTestCache(t)
	dir := t.TempDir()
	bin := filepath.Join(dir, "myapp")
	if err := os.WriteFile(bin, []byte("x"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := c.StoreBins([]string{bin}, false); err != nil {
		t.Fatal(err)
	}
	if err := c.StoreBins([]string{bin}, false); err == nil {
		t.Fatal("expected AlreadyInstalled on second install without force")
	} else if _, ok := err.(*AlreadyInstalled); !ok {
		t.Fatalf("expected *AlreadyInstalled, got %T", err)
	}
	if err := c.StoreBins([]string{bin}, true); err != nil {
		t.Errorf("force install should succeed: %v", err)
	}
}
