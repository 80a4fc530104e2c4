package media

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrParseFailure marks a tag value that is present but cannot be parsed.
var ErrParseFailure = errors.New("parse failure")

const (
	minYear = 1900
	maxYear = 2100
)

var (
	timestampRe = regexp.MustCompile(`^(\d{4})[:-](\d{2})[:-](\d{2})[ T](\d{2}):(\d{2}):(\d{2})(\.\d+)?\s*(Z|[+-]\d{2}:?\d{2})?$`)
	offsetRe    = regexp.MustCompile(`^([+-])(\d{2}):?(\d{2})$`)
	dmsRe       = regexp.MustCompile(`^(\d+(?:\.\d+)?) deg (\d+(?:\.\d+)?)' (\d+(?:\.\d+)?)"(?:\s*([NSEW]))?$`)
	decimalRe   = regexp.MustCompile(`^([+-]?\d+(?:\.\d+)?)(?:\s*([NSEW]))?$`)
)

// RawTimestamp holds the numeric components of an EXIF-style timestamp
// before any range validation, so defects such as hour 24 stay visible.
type RawTimestamp struct {
	Year, Month, Day     int
	Hour, Minute, Second int
	// Suffix is a trailing zone designator ("Z", "+02:00"), if any.
	Suffix string
}

// SplitTimestamp decomposes raw into its components without validating
// ranges. ok is false when raw does not have timestamp shape at all.
func SplitTimestamp(raw string) (RawTimestamp, bool) {
	m := timestampRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return RawTimestamp{}, false
	}
	atoi := func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	}
	return RawTimestamp{
		Year:   atoi(m[1]),
		Month:  atoi(m[2]),
		Day:    atoi(m[3]),
		Hour:   atoi(m[4]),
		Minute: atoi(m[5]),
		Second: atoi(m[6]),
		Suffix: m[8],
	}, true
}

// Time validates the components and returns the wall clock time in time.UTC.
func (r RawTimestamp) Time() (time.Time, error) {
	if r.Year < minYear || r.Year > maxYear {
		return time.Time{}, fmt.Errorf("%w: year %d out of range", ErrParseFailure, r.Year)
	}
	if r.Month < 1 || r.Month > 12 {
		return time.Time{}, fmt.Errorf("%w: month %d out of range", ErrParseFailure, r.Month)
	}
	if r.Hour < 0 || r.Hour > 23 {
		return time.Time{}, fmt.Errorf("%w: hour %d out of range", ErrParseFailure, r.Hour)
	}
	if r.Minute > 59 || r.Second > 59 {
		return time.Time{}, fmt.Errorf("%w: minute or second out of range", ErrParseFailure)
	}
	t := time.Date(r.Year, time.Month(r.Month), r.Day, r.Hour, r.Minute, r.Second, 0, time.UTC)
	if t.Day() != r.Day {
		return time.Time{}, fmt.Errorf("%w: day %d out of range", ErrParseFailure, r.Day)
	}
	return t, nil
}

// IsZeroTimestamp reports whether raw is the all-zero sentinel date some
// tools write instead of leaving a tag empty. Only text shaped like a date
// qualifies, so a coordinate axis of "0" is a value, not a sentinel.
func IsZeroTimestamp(raw string) bool {
	raw = strings.TrimSpace(raw)
	if len(raw) < len("0000:00:00") || raw[4] != ':' || raw[7] != ':' {
		return false
	}
	return strings.Trim(raw, "0: ") == ""
}

// ParseLocalTimestamp parses an unzoned EXIF timestamp.
func ParseLocalTimestamp(raw string) (Instant, error) {
	ts, ok := SplitTimestamp(raw)
	if !ok {
		return Instant{}, fmt.Errorf("%w: timestamp %q", ErrParseFailure, raw)
	}
	if ts.Suffix != "" {
		return Instant{}, fmt.Errorf("%w: unexpected zone suffix in %q", ErrParseFailure, raw)
	}
	t, err := ts.Time()
	if err != nil {
		return Instant{}, err
	}
	return LocalInstant(t), nil
}

// ParseZonedTimestamp parses a timestamp carrying a zone suffix, such as the
// file system dates exiftool reports.
func ParseZonedTimestamp(raw string) (time.Time, error) {
	ts, ok := SplitTimestamp(raw)
	if !ok || ts.Suffix == "" {
		return time.Time{}, fmt.Errorf("%w: zoned timestamp %q", ErrParseFailure, raw)
	}
	t, err := ts.Time()
	if err != nil {
		return time.Time{}, err
	}
	off, err := ParseOffset(ts.Suffix)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.FixedZone("", off.Seconds)), nil
}

// ParseOffset parses "±HH:MM", "±HHMM" or "Z".
func ParseOffset(raw string) (Offset, error) {
	raw = strings.TrimSpace(raw)
	if raw == "Z" {
		return Offset{}, nil
	}
	m := offsetRe.FindStringSubmatch(raw)
	if m == nil {
		return Offset{}, fmt.Errorf("%w: offset %q", ErrParseFailure, raw)
	}
	h, _ := strconv.Atoi(m[2])
	mins, _ := strconv.Atoi(m[3])
	if h > 14 || mins > 59 {
		return Offset{}, fmt.Errorf("%w: offset %q out of range", ErrParseFailure, raw)
	}
	secs := h*3600 + mins*60
	if m[1] == "-" {
		secs = -secs
	}
	return Offset{Seconds: secs}, nil
}

// ParseDegrees parses one coordinate axis. It accepts signed decimal degrees
// and exiftool's "51 deg 30' 0.00\" N" form. ref is the separate reference
// tag value (e.g. GPSLatitudeRef), which negates the value for S and W.
func ParseDegrees(raw, ref string) (float64, error) {
	raw = strings.TrimSpace(raw)
	var deg float64
	var hemi string
	if m := dmsRe.FindStringSubmatch(raw); m != nil {
		d, _ := strconv.ParseFloat(m[1], 64)
		mi, _ := strconv.ParseFloat(m[2], 64)
		s, _ := strconv.ParseFloat(m[3], 64)
		deg = d + mi/60 + s/3600
		hemi = m[4]
	} else if m := decimalRe.FindStringSubmatch(raw); m != nil {
		deg, _ = strconv.ParseFloat(m[1], 64)
		hemi = m[2]
	} else {
		return 0, fmt.Errorf("%w: degrees %q", ErrParseFailure, raw)
	}
	if hemi == "" {
		hemi = strings.ToUpper(strings.TrimSpace(ref))
	}
	if strings.HasPrefix(hemi, "S") || strings.HasPrefix(hemi, "W") {
		deg = -math.Abs(deg)
	}
	return deg, nil
}

// ParsePosition parses a combined "lat, lon" position value.
func ParsePosition(raw string) (Coordinate, error) {
	lat, lon, ok := strings.Cut(raw, ",")
	if !ok {
		return Coordinate{}, fmt.Errorf("%w: position %q", ErrParseFailure, raw)
	}
	la, err := ParseDegrees(lat, "")
	if err != nil {
		return Coordinate{}, err
	}
	lo, err := ParseDegrees(lon, "")
	if err != nil {
		return Coordinate{}, err
	}
	return checkCoordinate(Coordinate{Lat: la, Lon: lo})
}

func checkCoordinate(c Coordinate) (Coordinate, error) {
	if math.Abs(c.Lat) > 90 || math.Abs(c.Lon) > 180 {
		return Coordinate{}, fmt.Errorf("%w: coordinate %s out of range", ErrParseFailure, c)
	}
	return c, nil
}
