package pool

import (
	"os"

	shutil "github.com/termie/go-shutil"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/djherbis/times.v1"
)

// copyFile copies src to dst byte for byte, keeping the mode bits and the
// access and modification times of src.
//
// dst is reserved with O_EXCL first, so an existing file is never
// overwritten. On failure the partial dst is removed.
func copyFile(src, dst string) (err error) {
	stamps, err := times.Stat(src)
	if err != nil {
		return errors.Errorf("reading source times: %w", err)
	}

	reserved, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return errors.Errorf("reserving destination: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(dst)
		}
	}()

	if err := reserved.Close(); err != nil {
		return errors.Errorf("reserving destination: %w", err)
	}

	if _, err := shutil.Copy(src, dst, true); err != nil {
		return errors.Errorf("copying: %w", err)
	}

	if err := os.Chtimes(dst, stamps.AccessTime(), stamps.ModTime()); err != nil {
		return errors.Errorf("preserving times: %w", err)
	}

	return nil
}
