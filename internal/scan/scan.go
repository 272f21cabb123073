// Package scan selects the candidate files of a merge: it validates the
// source and destination directories, normalizes the --ext filter into glob
// patterns and lists the matching files.
package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// MatchAll is the pattern used when no extension filter is given.
const MatchAll = "*"

var whitespace = regexp.MustCompile(`\s`)

// SetupError reports a source or destination directory the merge cannot run
// against. It is fatal for the whole run.
type SetupError struct {
	Path   string
	Reason string
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// NormalizeExtensions turns --ext values into glob patterns.
//
// Values may be repeated or comma separated ("jpg,heic"). Whitespace is
// removed, a leading dot is tolerated and case is preserved:
// ["jpg", "HEIC, .png"] becomes ["*.jpg", "*.HEIC", "*.png"].
// No values at all means every file.
func NormalizeExtensions(values []string) []string {
	if len(values) == 0 {
		return []string{MatchAll}
	}

	joined := whitespace.ReplaceAllString(strings.Join(values, ","), "")
	parts := strings.Split(joined, ",")
	patterns := make([]string, 0, len(parts))
	for _, ext := range parts {
		if strings.HasPrefix(ext, ".") {
			patterns = append(patterns, "*"+ext)
		} else {
			patterns = append(patterns, "*."+ext)
		}
	}
	return patterns
}

// CheckSource verifies that dir exists and is a directory.
func CheckSource(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return &SetupError{Path: dir, Reason: "source does not exist or is not a directory"}
	}
	if !info.IsDir() {
		return &SetupError{Path: dir, Reason: "source does not exist or is not a directory"}
	}
	return nil
}

// CheckDestination reports whether dir exists. A path that exists but is not
// a directory is a SetupError.
func CheckDestination(dir string) (bool, error) {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	case err != nil:
		return false, errors.Errorf("checking destination: %w", err)
	case !info.IsDir():
		return false, &SetupError{Path: dir, Reason: "destination exists and is not a directory"}
	}
	return true, nil
}

// EnsureDestination creates dir if it is missing. Only the last path element
// is created: a missing parent is an error. It reports whether dir was created.
func EnsureDestination(dir string) (bool, error) {
	exists, err := CheckDestination(dir)
	if err != nil || exists {
		return false, err
	}

	if err := os.Mkdir(dir, 0o755); err != nil {
		return false, &SetupError{Path: dir, Reason: "cannot create destination: " + err.Error()}
	}
	return true, nil
}

// Candidates lists the regular files directly inside dir matching patterns.
//
// Matching is case-insensitive and not recursive. Files are returned pattern
// by pattern, in name order within each pattern, so a file matched by two
// patterns appears twice.
func Candidates(ctx context.Context, dir string, patterns []string) ([]string, error) {
	logger := zerolog.Ctx(ctx)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Errorf("reading source directory: %w", err)
	}

	var files []string
	for _, pattern := range patterns {
		lower := strings.ToLower(pattern)
		if !doublestar.ValidatePattern(lower) {
			return nil, errors.Errorf("invalid extension pattern %q", pattern)
		}

		for _, entry := range entries {
			matched, err := doublestar.Match(lower, strings.ToLower(entry.Name()))
			if err != nil {
				return nil, errors.Errorf("matching %q: %w", pattern, err)
			}
			if !matched {
				continue
			}

			path := filepath.Join(dir, entry.Name())

			// Stat follows symlinks: a link to a regular file is a candidate.
			info, err := os.Stat(path)
			if err != nil {
				logger.Debug().Str("path", path).Err(err).Msg("skipping unreadable entry")
				continue
			}
			if !info.Mode().IsRegular() {
				logger.Debug().Str("path", path).Msg("skipping non-regular file")
				continue
			}
			files = append(files, path)
		}
	}

	return files, nil
}
