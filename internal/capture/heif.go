package capture

import (
	"bufio"
	"bytes"
	"io"

	"gitlab.com/tozd/go/errors"
)

// heifBrands are the ftyp major brands of HEIF still images (HEIC, AVIF).
var heifBrands = map[string]bool{
	"heic": true,
	"heix": true,
	"heim": true,
	"heis": true,
	"hevc": true,
	"hevx": true,
	"mif1": true,
	"msf1": true,
	"avif": true,
	"avis": true,
}

// exifMarker prefixes the EXIF item of a HEIF file, as in a JPEG APP1 segment.
var exifMarker = []byte("Exif\x00\x00")

var (
	tiffLittleEndian = []byte("II*\x00")
	tiffBigEndian    = []byte("MM\x00*")
)

// errNoHEIFExif is returned when a HEIF container carries no EXIF item.
var errNoHEIFExif = errors.Base("no EXIF item in HEIF container")

// isHEIF reports whether r starts with an ISO-BMFF ftyp box of a HEIF brand.
// It only peeks, r is left untouched.
func isHEIF(r *bufio.Reader) bool {
	head, err := r.Peek(12)
	if err != nil {
		return false
	}
	return string(head[4:8]) == "ftyp" && heifBrands[string(head[8:12])]
}

// heifExif returns the TIFF stream of the EXIF item of a HEIF file.
//
// The item is located by its "Exif\0\0" prefix rather than through the
// iinf/iloc boxes; the prefix must be followed by a TIFF header to count.
func heifExif(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Errorf("reading HEIF container: %w", err)
	}

	for offset := 0; ; {
		i := bytes.Index(data[offset:], exifMarker)
		if i < 0 {
			return nil, errors.WithStack(errNoHEIFExif)
		}
		start := offset + i + len(exifMarker)
		rest := data[start:]
		if bytes.HasPrefix(rest, tiffLittleEndian) || bytes.HasPrefix(rest, tiffBigEndian) {
			return rest, nil
		}
		offset = start
	}
}
