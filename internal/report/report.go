// Package report prints what a merge does: the resolved arguments, one
// "source -> destination" line per copied file, and diagnostics for the
// files that were skipped.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"album-merge/internal/pool"
)

// Console writes the merge transcript to out and diagnostics to a zerolog
// logger. Mapping lines are plain text so they can be piped and parsed.
type Console struct {
	out  io.Writer
	zlog zerolog.Logger

	placed  int
	skipped int
}

// New creates a Console.
func New(out io.Writer, zlog zerolog.Logger) *Console {
	return &Console{out: out, zlog: zlog}
}

// Start echoes the resolved arguments.
func (c *Console) Start(src, dst string, patterns []string) {
	fmt.Fprintf(c.out, "src=%s, dst=%s, ext=[%s]\n", src, dst, strings.Join(patterns, ", "))
}

// Created notes that the destination directory did not exist and was made.
func (c *Console) Created(dir string) {
	c.zlog.Info().Str("destination", dir).Msg("destination does not exist, created new directory")
}

// Placed prints one "source -> destination" line.
func (c *Console) Placed(p pool.Placement) {
	c.placed++
	if p.DryRun {
		fmt.Fprintf(c.out, "%s %s -> %s\n", color.New(color.FgYellow).Sprint("[dry-run]"), p.Source, p.Destination)
		return
	}
	fmt.Fprintf(c.out, "%s -> %s\n", p.Source, p.Destination)
}

// Skipped reports a file that was not copied.
func (c *Console) Skipped(path string, err error) {
	c.skipped++
	c.zlog.Warn().Str("source", path).Err(err).Msg("skipping file")
}

// Finish logs the totals of the run.
func (c *Console) Finish(dryRun bool) {
	ev := c.zlog.Info()
	if c.skipped > 0 {
		ev = c.zlog.Warn()
	}
	ev.Int("copied", c.placed).Int("skipped", c.skipped).Bool("dry_run", dryRun).Msg("merge complete")
}
