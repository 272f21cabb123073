// Package manifest keeps a CSV record of every file pooled into an album.
package manifest

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"gitlab.com/tozd/go/errors"

	"album-merge/internal/pool"
)

// Header is the column layout of a new manifest.
var Header = []string{
	"filename",        // Base filename in the album
	"destination",     // Full path of the copy
	"source",          // Path the file was copied from
	"stem",            // Final stem, collision suffix included
	"capture_date",    // EXIF capture time, or "unknown"
	"file_size_bytes", // Size in bytes
	"merged_date",     // When the file was pooled
}

// Update adds placements to the manifest at path, creating it if needed.
// Rows are keyed by destination: existing rows are kept, and the file is
// rewritten sorted by destination. It returns the number of rows added.
func Update(path string, placements []pool.Placement, now time.Time) (int, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, errors.Errorf("creating manifest directory: %w", err)
		}
	}

	header, rows, err := read(path)
	if err != nil {
		return 0, err
	}
	if len(header) == 0 {
		header = Header
	}

	added := 0
	for _, p := range placements {
		if p.DryRun {
			continue
		}
		if _, exists := rows[p.Destination]; exists {
			continue
		}

		size := ""
		if info, err := os.Stat(p.Destination); err == nil {
			size = strconv.FormatInt(info.Size(), 10)
		}

		rows[p.Destination] = []string{
			filepath.Base(p.Destination),
			p.Destination,
			p.Source,
			p.Stem,
			p.Capture.String(),
			size,
			now.Format("2006-01-02 15:04:05"),
		}
		added++
	}

	if err := write(path, header, rows); err != nil {
		return 0, err
	}
	return added, nil
}

// read loads an existing manifest. A missing file is an empty manifest.
func read(path string) ([]string, map[string][]string, error) {
	rows := make(map[string][]string)

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, rows, nil
	}
	if err != nil {
		return nil, nil, errors.Errorf("opening manifest: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, errors.Errorf("reading manifest: %w", err)
	}
	if len(records) == 0 {
		return nil, rows, nil
	}

	for _, row := range records[1:] {
		if len(row) > 1 {
			rows[row[1]] = row // keyed by destination
		}
	}
	return records[0], rows, nil
}

func write(path string, header []string, rows map[string][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Errorf("creating manifest: %w", err)
	}
	defer f.Close()

	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return errors.Errorf("writing manifest: %w", err)
	}
	for _, k := range keys {
		if err := w.Write(rows[k]); err != nil {
			return errors.Errorf("writing manifest: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Errorf("writing manifest: %w", err)
	}
	return f.Close()
}
