package capture

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

const (
	tagDateTime         = 0x0132
	tagExifIFDPointer   = 0x8769
	tagDateTimeOriginal = 0x9003

	typeASCII = 2
	typeLong  = 4
)

// tiffWithDates builds a little-endian TIFF carrying DateTime in IFD0 and
// DateTimeOriginal in the Exif sub-IFD. Empty strings omit the field.
func tiffWithDates(original, modified string) []byte {
	le := binary.LittleEndian

	entry := func(tag, typ uint16, count, value uint32) []byte {
		e := make([]byte, 12)
		le.PutUint16(e[0:], tag)
		le.PutUint16(e[2:], typ)
		le.PutUint32(e[4:], count)
		le.PutUint32(e[8:], value)
		return e
	}
	ascii := func(tag uint16, s string, at uint32) ([]byte, []byte) {
		b := append([]byte(s), 0)
		if len(b) <= 4 {
			e := entry(tag, typeASCII, uint32(len(b)), 0)
			copy(e[8:], b)
			return e, nil
		}
		return entry(tag, typeASCII, uint32(len(b)), at), b
	}

	n := 0
	if modified != "" {
		n++
	}
	if original != "" {
		n++
	}
	base := uint32(8 + 2 + 12*n + 4)

	var ifd0, tail []byte
	if modified != "" {
		e, d := ascii(tagDateTime, modified, base+uint32(len(tail)))
		ifd0 = append(ifd0, e...)
		tail = append(tail, d...)
	}
	if original != "" {
		sub := base + uint32(len(tail))
		ifd0 = append(ifd0, entry(tagExifIFDPointer, typeLong, 1, sub)...)

		e, d := ascii(tagDateTimeOriginal, original, sub+2+12+4)
		tail = append(tail, 1, 0)
		tail = append(tail, e...)
		tail = append(tail, 0, 0, 0, 0)
		tail = append(tail, d...)
	}

	out := []byte{'I', 'I', 42, 0, 8, 0, 0, 0}
	out = append(out, byte(n), 0)
	out = append(out, ifd0...)
	out = append(out, 0, 0, 0, 0)
	return append(out, tail...)
}

// jpegWithExif wraps a TIFF stream in the APP1 segment of a minimal JPEG.
func jpegWithExif(tiff []byte) []byte {
	payload := append([]byte("Exif\x00\x00"), tiff...)
	size := len(payload) + 2

	out := []byte{0xFF, 0xD8, 0xFF, 0xE1, byte(size >> 8), byte(size)}
	out = append(out, payload...)
	return append(out, 0xFF, 0xD9)
}

// heicWithExif builds an ISO-BMFF file with a HEIC ftyp box and an mdat box
// holding the EXIF item: a 4-byte header offset, "Exif\0\0", then TIFF.
func heicWithExif(tiff []byte) []byte {
	be := binary.BigEndian

	ftyp := make([]byte, 8)
	ftyp = append(ftyp, "heic"...)
	ftyp = append(ftyp, 0, 0, 0, 0)
	ftyp = append(ftyp, "mif1heic"...)
	be.PutUint32(ftyp[0:], uint32(len(ftyp)))
	copy(ftyp[4:], "ftyp")

	mdat := make([]byte, 8)
	mdat = append(mdat, 0, 0, 0, 6)
	mdat = append(mdat, "Exif\x00\x00"...)
	mdat = append(mdat, tiff...)
	be.PutUint32(mdat[0:], uint32(len(mdat)))
	copy(mdat[4:], "mdat")

	return append(ftyp, mdat...)
}

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
	return logger.WithContext(context.Background())
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		original string
		modified string
		want     Timestamp
	}{
		{
			name:     "original_wins",
			original: "2025:05:12 21:14:07",
			modified: "2025:06:01 08:00:00",
			want:     New(2025, time.May, 12, 76447),
		},
		{
			name:     "modified_fallback",
			modified: "2025:06:01 08:00:00",
			want:     New(2025, time.June, 1, 8*3600),
		},
		{
			name:     "unparseable_original_falls_back",
			original: "not a date",
			modified: "2025:06:01 08:00:00",
			want:     New(2025, time.June, 1, 8*3600),
		},
		{
			name:     "meridiem_noise",
			original: "2024:05:12 03:15:00PM",
			want:     New(2024, time.May, 12, 3*3600+15*60),
		},
		{
			name:     "both_unparseable",
			original: "garbage",
			modified: "0000:00:00 00:00:00",
			want:     Unknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext(t)
			got := NewExtractor().Decode(ctx, bytes.NewReader(tiffWithDates(tt.original, tt.modified)))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeWithoutExif(t *testing.T) {
	ctx := testContext(t)
	got := NewExtractor().Decode(ctx, bytes.NewReader([]byte("this is not an image at all")))
	assert.False(t, got.Known())
}

func TestExtract(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "photo.tif")
	require.NoError(t, os.WriteFile(path, tiffWithDates("2025:05:12 21:14:07", ""), 0o644))

	ts, err := NewExtractor().Extract(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "img_20250512_76447", ts.Stem())
}

func TestExtractMissingFile(t *testing.T) {
	ctx := testContext(t)

	ts, err := NewExtractor().Extract(ctx, filepath.Join(t.TempDir(), "missing.jpg"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOpen))
	assert.False(t, ts.Known())
}

func TestExtractContainers(t *testing.T) {
	tiff := tiffWithDates("2025:05:12 21:14:07", "2025:06:01 08:00:00")

	tests := []struct {
		name    string
		file    string
		content []byte
		want    string
	}{
		{"tiff", "photo.tif", tiff, "img_20250512_76447"},
		{"jpeg_app1", "photo.jpg", jpegWithExif(tiff), "img_20250512_76447"},
		{"heic", "photo.HEIC", heicWithExif(tiff), "img_20250512_76447"},
		{"heic_modified_only", "edit.heic", heicWithExif(tiffWithDates("", "2025:06:01 08:00:00")), "img_20250601_28800"},
		{"heic_without_exif", "bare.heic", heicWithExif(nil)[:24], "img_unk"},
		{"heic_marker_without_tiff", "odd.heic", append(heicWithExif(nil), "garbage"...), "img_unk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext(t)
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, tt.content, 0o644))

			ts, err := NewExtractor().Extract(ctx, path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ts.Stem())
		})
	}
}
