// Package capture reads the capture time of an image from its EXIF metadata
// and reduces it to the date + second-of-day pair used for file naming.
package capture

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"gitlab.com/tozd/go/errors"
)

// Layout is the EXIF date/time layout, colon separated date and 24-hour time.
// The layout string uses Go's reference time: Mon Jan 2 15:04:05 MST 2006
const Layout = "2006:01:02 15:04:05"

// UnknownStem is the stem given to files without a usable capture time.
const UnknownStem = "img_unk"

// SecondsPerDay bounds SecondOfDay: valid values are 0 to SecondsPerDay-1.
const SecondsPerDay = 24 * 60 * 60

// ErrInvalidTimestamp is returned by Parse for strings that do not match Layout.
var ErrInvalidTimestamp = errors.Base("invalid capture timestamp")

// letters matches the alphabetic noise some editors inject into timestamps,
// e.g. "2024:05:12 03:15:00PM" from 24h clocks.
var letters = regexp.MustCompile(`[A-Za-z]`)

// exact is the shape of Layout, any run of whitespace between date and time.
// time.Parse alone accepts a trailing fraction.
var exact = regexp.MustCompile(`^(\d{4}:\d{2}:\d{2})\s+(\d{2}:\d{2}:\d{2})$`)

// Timestamp is a capture time reduced to a calendar date and the number of
// whole seconds since midnight of that date. The zero value is Unknown.
type Timestamp struct {
	date        time.Time // midnight UTC of the capture date
	secondOfDay int
	known       bool
}

// Unknown is the timestamp of a file with no readable capture time.
var Unknown = Timestamp{}

// New builds a known Timestamp. It panics if secondOfDay is out of range.
func New(year int, month time.Month, day int, secondOfDay int) Timestamp {
	if secondOfDay < 0 || secondOfDay >= SecondsPerDay {
		panic(fmt.Sprintf("capture: second of day %d out of range", secondOfDay))
	}
	return Timestamp{
		date:        time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
		secondOfDay: secondOfDay,
		known:       true,
	}
}

// Known reports whether t carries a capture time.
func (t Timestamp) Known() bool { return t.known }

// Date returns midnight of the capture date. Zero for Unknown.
func (t Timestamp) Date() time.Time { return t.date }

// SecondOfDay returns seconds elapsed since midnight, 0..86399.
func (t Timestamp) SecondOfDay() int { return t.secondOfDay }

// Time reconstructs the wall-clock capture time (in UTC).
func (t Timestamp) Time() time.Time {
	return t.date.Add(time.Duration(t.secondOfDay) * time.Second)
}

// Stem returns the canonical file stem: img_YYYYMMDD_SSSSS, or img_unk.
func (t Timestamp) Stem() string {
	if !t.known {
		return UnknownStem
	}
	return fmt.Sprintf("img_%s_%05d", t.date.Format("20060102"), t.secondOfDay)
}

func (t Timestamp) String() string {
	if !t.known {
		return "unknown"
	}
	return t.Time().Format(Layout)
}

// Clean replaces ASCII letters with spaces and trims the result. Meridiem
// markers are discarded, not interpreted: "03:15:00PM" stays 03:15:00.
func Clean(raw string) string {
	s := letters.ReplaceAllString(raw, " ")
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}

// Parse cleans raw and parses it against Layout.
func Parse(raw string) (Timestamp, error) {
	s := Clean(raw)
	if s == "" {
		return Unknown, errors.Errorf("%w: empty value %q", ErrInvalidTimestamp, raw)
	}

	m := exact.FindStringSubmatch(s)
	if m == nil {
		return Unknown, errors.Errorf("%w: %q does not match %s", ErrInvalidTimestamp, s, Layout)
	}
	s = m[1] + " " + m[2]

	// Parsed as UTC so the second of day is plain wall-clock arithmetic,
	// unaffected by DST transitions in the local zone.
	dt, err := time.ParseInLocation(Layout, s, time.UTC)
	if err != nil {
		return Unknown, errors.Errorf("%w: %s", ErrInvalidTimestamp, err.Error())
	}

	midnight := time.Date(dt.Year(), dt.Month(), dt.Day(), 0, 0, 0, 0, time.UTC)
	return Timestamp{
		date:        midnight,
		secondOfDay: int(dt.Sub(midnight) / time.Second),
		known:       true,
	}, nil
}
