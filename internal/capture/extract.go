package capture

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
	"gitlab.com/tozd/go/errors"
)

// ErrOpen is returned by Extract when the file itself cannot be read.
var ErrOpen = errors.Base("cannot open image")

// Fields lists the EXIF fields consulted for the capture time, in priority
// order. First present and parseable field wins.
var Fields = []exif.FieldName{
	exif.DateTimeOriginal, // when the shutter fired
	exif.DateTime,         // last modification, written by most editors
}

func init() {
	// Vendor maker notes, so Canon/Nikon files with odd IFDs still decode.
	exif.RegisterParsers(mknote.All...)
}

// Extractor reads capture timestamps from image files.
type Extractor struct {
	fields []exif.FieldName
}

// NewExtractor returns an Extractor consulting Fields in order.
func NewExtractor() *Extractor {
	return &Extractor{fields: Fields}
}

// Extract opens path and returns its capture timestamp.
//
// A file that cannot be opened yields ErrOpen. Missing or corrupt metadata is
// not an error: the timestamp is simply Unknown.
func (e *Extractor) Extract(ctx context.Context, path string) (Timestamp, error) {
	f, err := os.Open(path)
	if err != nil {
		return Unknown, errors.Errorf("%w: %s", ErrOpen, err.Error())
	}
	defer f.Close()

	return e.Decode(ctx, f), nil
}

// Decode reads EXIF data from r and looks up the capture timestamp.
// JPEG and TIFF streams go to goexif directly; for HEIF containers the
// embedded EXIF item is extracted first.
func (e *Extractor) Decode(ctx context.Context, r io.Reader) Timestamp {
	logger := zerolog.Ctx(ctx)

	br := bufio.NewReader(r)
	var src io.Reader = br
	if isHEIF(br) {
		payload, err := heifExif(br)
		if err != nil {
			logger.Debug().Err(err).Msg("no usable EXIF data in HEIF container")
			return Unknown
		}
		src = bytes.NewReader(payload)
	}

	x, err := exif.Decode(src)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		logger.Debug().Err(err).Msg("no usable EXIF data")
		return Unknown
	}

	for _, name := range e.fields {
		raw, ok := lookup(x, name)
		if !ok {
			continue
		}
		ts, err := Parse(raw)
		if err != nil {
			logger.Debug().Str("field", string(name)).Str("raw", raw).Err(err).Msg("unparseable timestamp")
			continue
		}
		logger.Debug().Str("field", string(name)).Stringer("timestamp", ts).Msg("capture time found")
		return ts
	}

	return Unknown
}

// lookup returns the string value of a field, if present.
func lookup(x *exif.Exif, name exif.FieldName) (string, bool) {
	tag, err := x.Get(name)
	if err != nil {
		return "", false
	}
	s, err := tag.StringVal()
	if err != nil {
		return "", false
	}
	return s, true
}
