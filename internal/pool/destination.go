package pool

import (
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

// Destination is the directory files are pooled into.
//
// Collision checks always re-read the directory, so files copied earlier in
// the same run (or by anyone else) are seen. Stems claimed with Claim are
// added on top of the directory contents; dry runs use them in place of
// actual copies.
type Destination struct {
	dir     string
	claimed map[string]struct{}
}

// NewDestination returns a handle on dir. dir need not exist yet.
func NewDestination(dir string) *Destination {
	return &Destination{
		dir:     dir,
		claimed: make(map[string]struct{}),
	}
}

// Dir returns the destination directory path.
func (d *Destination) Dir() string { return d.dir }

// Claim marks stem as used without creating a file.
func (d *Destination) Claim(stem string) {
	d.claimed[stem] = struct{}{}
}

// Taken reports whether any entry of the destination has the given stem,
// whatever its extension: "img_unk" is taken by img_unk.jpg, img_unk.HEIC or
// a bare img_unk, but not by img_unk_1.jpg.
func (d *Destination) Taken(stem string) (bool, error) {
	if _, ok := d.claimed[stem]; ok {
		return true, nil
	}

	entries, err := os.ReadDir(d.dir)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errors.Errorf("reading destination: %w", err)
	}

	pattern := stem + ".*"
	for _, entry := range entries {
		name := entry.Name()
		if name == stem {
			return true, nil
		}
		matched, err := doublestar.Match(pattern, name)
		if err != nil {
			return false, errors.Errorf("matching %q: %w", pattern, err)
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}
