// Package pool names and copies candidate files into the destination
// directory. Every copied file gets a stem derived from its capture time;
// stems already present in the destination, with any extension, get a
// numeric "_N" suffix.
package pool

import (
	"fmt"
	"math"

	"gitlab.com/tozd/go/errors"

	"album-merge/internal/capture"
)

// DefaultMaxSuffix caps the collision suffix search. It is not reachable in practice.
const DefaultMaxSuffix = math.MaxInt32 - 1

// ErrCollisionExhausted is returned when every suffix up to the cap is taken.
var ErrCollisionExhausted = errors.Base("collision suffixes exhausted")

// StemChecker reports whether a stem is already used in a directory.
type StemChecker interface {
	Taken(stem string) (bool, error)
}

// BaseStem returns the stem computed from the capture time alone, before any
// disambiguating suffix.
func BaseStem(ts capture.Timestamp) string {
	return ts.Stem()
}

// Resolver picks the first free stem: base, then base_1, base_2, ...
type Resolver struct {
	// MaxSuffix is the largest suffix tried. Zero means DefaultMaxSuffix.
	MaxSuffix int
}

// Resolve returns the first candidate stem not taken in checker.
func (r Resolver) Resolve(checker StemChecker, base string) (string, error) {
	limit := r.MaxSuffix
	if limit <= 0 {
		limit = DefaultMaxSuffix
	}

	for i := 0; i <= limit; i++ {
		stem := base
		if i > 0 {
			stem = fmt.Sprintf("%s_%d", base, i)
		}

		taken, err := checker.Taken(stem)
		if err != nil {
			return "", errors.Errorf("checking %s: %w", stem, err)
		}
		if !taken {
			return stem, nil
		}
	}

	return "", errors.Errorf("%w: %s_%d", ErrCollisionExhausted, base, limit)
}
