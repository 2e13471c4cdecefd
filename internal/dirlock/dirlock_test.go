package dirlock

import (
	"path/filepath"
	"testing"
)

func TestAcquireExclusion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "src-hash")

	l1, err := Acquire(path)
	if err != nil {
		t.Fatalf("first acquire should succeed: %v", err)
	}
	defer l1.Release()

	_, err = Acquire(path)
	if err == nil {
		t.Fatal("second concurrent acquire should fail")
	}
	if _, ok := err.(*ErrLocked); !ok {
		t.Fatalf("expected ErrLocked, got %T: %v", err, err)
	}
}

func TestReleaseThenReacquire(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "src-hash")

	l1, err := Acquire(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := l1.Release(); err != nil {
		t.Fatalf("release should succeed: %v", err)
	}

	l2, err := Acquire(path)
	if err != nil {
		t.Fatalf("reacquire after release should succeed: %v", err)
	}
	defer l2.Release()
}
