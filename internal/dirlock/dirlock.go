// Package dirlock implements mutual exclusion between processes operating on
// the same cache directory: a sibling "<path>.lock" file acquired
// with exclusive, non-reentrant semantics.
package dirlock

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	flock "github.com/theckman/go-flock"
)

// ErrLocked is returned when another process (or another DirLock) already
// holds the lock for a path.
type ErrLocked struct {
	Path string
}

func (e *ErrLocked) Error() string { return fmt.Sprintf("%s is locked by another process", e.Path) }

// Kind reports the error kind.
func (e *ErrLocked) Kind() string { return "Locked" }

// DirLock guards a single directory path with a sibling "<path>.lock" file.
// Locks are not reentrant: calling Acquire again for the same path before
// Release fails just like a foreign acquisition would.
type DirLock struct {
	path string
	fl   *flock.Flock
}

// Acquire attempts to take an exclusive lock on path. path must be
// absolute; the caller is responsible for canonicalization, which this
// package does not perform.
func Acquire(path string) (*DirLock, error) {
	fl := flock.NewFlock(path + ".lock")
	ok, err := fl.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, "acquiring lock for %s", path)
	}
	if !ok {
		return nil, &ErrLocked{Path: path}
	}
	return &DirLock{path: path, fl: fl}, nil
}

// Release unlocks and removes the sibling lock file. Safe to call once; a
// second call is a no-op returning nil.
func (d *DirLock) Release() error {
	if d == nil || d.fl == nil {
		return nil
	}
	lockPath := d.fl.Path()
	err := d.fl.Unlock()
	d.fl = nil
	if rmErr := os.Remove(lockPath); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
		err = rmErr
	}
	return err
}

// Path returns the directory path this lock guards.
func (d *DirLock) Path() string { return d.path }
