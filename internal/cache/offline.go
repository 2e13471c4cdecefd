package cache

import (
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
)

var offlineBucket = []byte("offline-sources")

// offlineSnapshot records the set of src/<hash> directory hashes present at
// cache-open time. Persisted in a small BoltDB file alongside the cache
// rather than kept purely in memory, so tooling outside this process can
// inspect which hashes the last offline run saw. The snapshot is rebuilt
// from a fresh walk of src/ on every open.
type offlineSnapshot struct {
	db *bolt.DB
}

func newOfflineSnapshot(root string) (*offlineSnapshot, error) {
	dbPath := filepath.Join(root, "offline.db")
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening offline snapshot db")
	}
	snap := &offlineSnapshot{db: db}
	if err := snap.refresh(filepath.Join(root, "src")); err != nil {
		db.Close()
		return nil, err
	}
	return snap, nil
}

// refresh enumerates the immediate children of srcDir and records their
// names (source hashes) as present.
func (s *offlineSnapshot) refresh(srcDir string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		// Drop stale entries wholesale before re-walking.
		if tx.Bucket(offlineBucket) != nil {
			if err := tx.DeleteBucket(offlineBucket); err != nil {
				return err
			}
		}
		b, err := tx.CreateBucket(offlineBucket)
		if err != nil {
			return err
		}

		if _, err := os.Stat(srcDir); os.IsNotExist(err) {
			return nil
		}
		err = godirwalk.Walk(srcDir, &godirwalk.Options{
			Unsorted: true,
			Callback: func(osPathname string, de *godirwalk.Dirent) error {
				if osPathname == srcDir {
					return nil
				}
				if !de.IsDir() {
					return nil
				}
				if err := b.Put([]byte(filepath.Base(osPathname)), []byte{1}); err != nil {
					return err
				}
				// Only the immediate children of srcDir are source hashes;
				// their contents are the materialized source itself.
				return filepath.SkipDir
			},
		})
		return err
	})
}

func (s *offlineSnapshot) has(hash string) bool {
	var found bool
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(offlineBucket)
		if b == nil {
			return nil
		}
		found = b.Get([]byte(hash)) != nil
		return nil
	})
	return found
}
