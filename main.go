// Album Merge - Pool photos from several sources into one folder
//
// This tool copies the images of a source directory into a destination
// directory, renaming each one from its EXIF capture time so the album sorts
// chronologically. Files from different cameras and phones can then live
// side by side.
//
// Naming:
//   - img_YYYYMMDD_SSSSS.ext where SSSSS is the second of the day (00000-86399)
//   - img_unk.ext when no capture time can be read
//   - a _1, _2, ... suffix when the stem is already used, whatever the
//     extension: img_20250512_76447.heic collides with img_20250512_76447.jpg
//
// Usage:
//
//	album-merge -s ~/phone -d ~/album                 # Copy every file
//	album-merge -s ~/phone -d ~/album -e jpg,heic     # Only some extensions
//	album-merge -s ~/phone -d ~/album -e jpg -e .png  # Same, repeated flag
//	album-merge -s ~/phone -d ~/album --dry-run       # Preview names
//	album-merge -s ~/phone -d ~/album --manifest ~/album/_Manifest/album.csv
package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"album-merge/internal/capture"
	"album-merge/internal/manifest"
	"album-merge/internal/pool"
	"album-merge/internal/report"
	"album-merge/internal/scan"
)

// =============================================================================
// Configuration
// =============================================================================

// options holds the parsed command-line flags.
type options struct {
	src      string   // Source folder, read only
	dst      string   // Destination folder, created if missing
	exts     []string // Raw --ext values, see scan.NormalizeExtensions
	dryRun   bool     // Print the mapping without copying
	manifest string   // Optional CSV manifest to update
	debug    bool     // Debug logging on stderr
}

// =============================================================================
// Command
// =============================================================================

// newRootCmd builds the album-merge command.
func newRootCmd() *cobra.Command {
	var o options

	cmd := &cobra.Command{
		Use:   "album-merge",
		Short: "Pool images from different sources into the same folder",
		Long: `Pool images from different sources into the same folder.
During merge files are renamed based on EXIF timestamp.
Collisions are resolved by adding a suffix number to the file stem.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), o)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&o.src, "src", "s", "", "source folder")
	flags.StringVarP(&o.dst, "dst", "d", "", "destination folder, will be created if does not exist")
	flags.StringArrayVarP(&o.exts, "ext", "e", nil,
		"file extensions, multiple may be specified (i.e. --ext=jpg --ext=heic OR --ext=jpg,heic)")
	flags.BoolVarP(&o.dryRun, "dry-run", "n", false, "print the new names without copying anything")
	flags.StringVar(&o.manifest, "manifest", "", "CSV file recording every copied file")
	flags.BoolVar(&o.debug, "debug", false, "enable debug logging")

	_ = cmd.MarkFlagRequired("src")
	_ = cmd.MarkFlagRequired("dst")

	return cmd
}

// =============================================================================
// Merge
// =============================================================================

// run validates the directories, lists the candidates and pools them.
func run(ctx context.Context, stdout, stderr io.Writer, o options) error {
	level := zerolog.InfoLevel
	if o.debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr, NoColor: color.NoColor}).
		Level(level).With().Timestamp().Logger()
	ctx = logger.WithContext(ctx)

	console := report.New(stdout, logger)
	patterns := scan.NormalizeExtensions(o.exts)
	console.Start(o.src, o.dst, patterns)

	if err := scan.CheckSource(o.src); err != nil {
		return err
	}

	if o.dryRun {
		exists, err := scan.CheckDestination(o.dst)
		if err != nil {
			return err
		}
		if !exists {
			logger.Info().Str("destination", o.dst).Msg("destination does not exist, it would be created")
		}
	} else {
		created, err := scan.EnsureDestination(o.dst)
		if err != nil {
			return err
		}
		if created {
			console.Created(o.dst)
		}
	}

	candidates, err := scan.Candidates(ctx, o.src, patterns)
	if err != nil {
		return errors.Errorf("listing candidates: %w", err)
	}
	logger.Debug().Int("candidates", len(candidates)).Strs("patterns", patterns).Msg("scanned source")

	merger := pool.NewMerger(pool.Options{
		Extractor: capture.NewExtractor(),
		Reporter:  console,
		DryRun:    o.dryRun,
	})
	summary := merger.Run(ctx, pool.NewDestination(o.dst), candidates)
	console.Finish(o.dryRun)

	if o.manifest != "" && !o.dryRun && len(summary.Placements) > 0 {
		added, err := manifest.Update(o.manifest, summary.Placements, time.Now())
		if err != nil {
			return errors.Errorf("updating manifest: %w", err)
		}
		logger.Info().Str("manifest", o.manifest).Int("added", added).Msg("manifest updated")
	}

	return nil
}

// =============================================================================
// Main Entry Point
// =============================================================================

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
