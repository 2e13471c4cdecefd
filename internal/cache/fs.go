package cache

import (
	"io"
	"os"

	"github.com/pkg/errors"
	shutil "github.com/termie/go-shutil"
)

// renameOrCopy promotes src to dst. os.Rename is attempted first; a
// cross-device rename fails (EXDEV on unix), in which case we fall back to
// a recursive copy-then-remove. Never assume an atomic cross-device move.
func renameOrCopy(src, dst string) error {
	os.RemoveAll(dst)
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	cfg := &shutil.CopyTreeOptions{
		Symlinks:     true,
		CopyFunction: shutil.Copy,
	}
	if err := shutil.CopyTree(src, dst, cfg); err != nil {
		return errors.Wrapf(err, "copying %s to %s", src, dst)
	}
	return os.RemoveAll(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fi.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
