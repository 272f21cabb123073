package pool

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"album-merge/internal/capture"
)

// Extractor reads the capture timestamp of a file.
type Extractor interface {
	Extract(ctx context.Context, path string) (capture.Timestamp, error)
}

// Reporter is told about every placed and every skipped file.
type Reporter interface {
	Placed(p Placement)
	Skipped(path string, err error)
}

// Placement records where one source file went.
type Placement struct {
	Source      string            // path of the candidate file
	Destination string            // path of the copy
	Stem        string            // final stem, suffix included
	Capture     capture.Timestamp // timestamp the stem was derived from
	DryRun      bool              // no copy was made
}

// Summary counts the outcome of a run.
type Summary struct {
	Placements []Placement
	Skipped    int
}

// Options configures a Merger.
type Options struct {
	Extractor Extractor
	Reporter  Reporter
	Resolver  Resolver
	DryRun    bool // resolve and report names without copying
}

// Merger pools candidate files into one destination, one file at a time.
type Merger struct {
	extractor Extractor
	reporter  Reporter
	resolver  Resolver
	dryRun    bool
}

// NewMerger creates a Merger.
func NewMerger(opts Options) *Merger {
	return &Merger{
		extractor: opts.Extractor,
		reporter:  opts.Reporter,
		resolver:  opts.Resolver,
		dryRun:    opts.DryRun,
	}
}

// Run places every candidate in order. A failing file is reported and
// skipped; it never stops the run.
func (m *Merger) Run(ctx context.Context, dest *Destination, candidates []string) Summary {
	var summary Summary

	for _, src := range candidates {
		ctx := zerolog.Ctx(ctx).With().Str("source", src).Logger().WithContext(ctx)

		ts, err := m.extractor.Extract(ctx, src)
		if err != nil {
			summary.Skipped++
			m.reporter.Skipped(src, err)
			continue
		}

		p, err := m.Place(ctx, src, ts, dest)
		if err != nil {
			summary.Skipped++
			m.reporter.Skipped(src, err)
			continue
		}
		summary.Placements = append(summary.Placements, p)
	}

	return summary
}

// Place copies src into dest under the first free stem derived from ts,
// keeping the source extension as is.
func (m *Merger) Place(ctx context.Context, src string, ts capture.Timestamp, dest *Destination) (Placement, error) {
	base := BaseStem(ts)

	stem, err := m.resolver.Resolve(dest, base)
	if err != nil {
		return Placement{}, errors.Errorf("resolving name: %w", err)
	}

	p := Placement{
		Source:      src,
		Destination: filepath.Join(dest.Dir(), stem+extension(src)),
		Stem:        stem,
		Capture:     ts,
		DryRun:      m.dryRun,
	}

	if m.dryRun {
		dest.Claim(stem)
	} else if err := copyFile(src, p.Destination); err != nil {
		return Placement{}, errors.Errorf("copying to %s: %w", p.Destination, err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("base", base).
		Str("stem", stem).
		Str("destination", p.Destination).
		Bool("dry_run", m.dryRun).
		Msg("placed")

	m.reporter.Placed(p)
	return p, nil
}

// extension returns the suffix of the file name, dot included. Dot files
// without a further dot and names ending in a dot have none.
func extension(path string) string {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	if ext == name || ext == "." {
		return ""
	}
	return ext
}
