package media

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// CoordinateTolerance is the per-axis difference, in degrees, under which two
// coordinates are considered equal. It absorbs extraction rounding.
const CoordinateTolerance = 1e-5

// Value is a typed value for one logical field.
type Value interface {
	Field() Field
	// String returns the canonical text form, accepted by ParseValue.
	String() string
}

// Instant is a creation timestamp at second granularity. Wall holds the
// clock fields in time.UTC; UTC reports whether those fields are an absolute
// UTC instant rather than unzoned local time.
type Instant struct {
	Wall time.Time
	UTC  bool
}

// LocalInstant keeps the wall clock fields of t and drops its zone.
func LocalInstant(t time.Time) Instant {
	return Instant{Wall: time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)}
}

// UTCInstant converts t to an absolute UTC instant.
func UTCInstant(t time.Time) Instant {
	return Instant{Wall: t.UTC().Truncate(time.Second), UTC: true}
}

func (Instant) Field() Field { return FieldCreation }

func (i Instant) String() string {
	s := i.Wall.Format("2006-01-02T15:04:05")
	if i.UTC {
		s += "Z"
	}
	return s
}

// ExifString formats the instant as an EXIF date for writing back.
func (i Instant) ExifString() string {
	s := i.Wall.Format("2006:01:02 15:04:05")
	if i.UTC {
		s += "Z"
	}
	return s
}

// In returns the instant as a time in loc. Local instants are read as wall
// clock time in loc; UTC instants are converted.
func (i Instant) In(loc *time.Location) time.Time {
	if i.UTC {
		return i.Wall.In(loc)
	}
	w := i.Wall
	return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), 0, loc)
}

// Equal compares two instants at second granularity.
func (i Instant) Equal(o Instant) bool {
	return i.UTC == o.UTC && i.Wall.Truncate(time.Second).Equal(o.Wall.Truncate(time.Second))
}

// Sub returns the wall clock distance i-o, ignoring the zone class.
func (i Instant) Sub(o Instant) time.Duration {
	return i.Wall.Sub(o.Wall)
}

// Offset is a UTC offset in seconds east of UTC.
type Offset struct {
	Seconds int
}

// OffsetOf returns the offset t's location applies at t.
func OffsetOf(t time.Time) Offset {
	_, secs := t.Zone()
	return Offset{Seconds: secs}
}

func (Offset) Field() Field { return FieldOffset }

// String formats the offset as ±HH:MM.
func (o Offset) String() string {
	sign := '+'
	secs := o.Seconds
	if secs < 0 {
		sign = '-'
		secs = -secs
	}
	return fmt.Sprintf("%c%02d:%02d", sign, secs/3600, (secs%3600)/60)
}

// Coordinate is a WGS84 position in signed decimal degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

func (Coordinate) Field() Field { return FieldCoordinate }

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// Equal compares two coordinates within CoordinateTolerance.
func (c Coordinate) Equal(o Coordinate) bool {
	return math.Abs(c.Lat-o.Lat) <= CoordinateTolerance && math.Abs(c.Lon-o.Lon) <= CoordinateTolerance
}

// IsNullIsland reports whether the coordinate is exactly 0,0, which cameras
// write when they have no fix.
func (c Coordinate) IsNullIsland() bool {
	return c.Lat == 0 && c.Lon == 0
}

// EqualValues applies field-specific equality. Two absent values are equal.
func EqualValues(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case Instant:
		bv, ok := b.(Instant)
		return ok && av.Equal(bv)
	case Offset:
		bv, ok := b.(Offset)
		return ok && av == bv
	case Coordinate:
		bv, ok := b.(Coordinate)
		return ok && av.Equal(bv)
	}
	return false
}

// ParseValue parses the canonical text form produced by Value.String.
func ParseValue(field Field, text string) (Value, error) {
	switch field {
	case FieldCreation:
		utc := strings.HasSuffix(text, "Z")
		t, err := time.Parse("2006-01-02T15:04:05", strings.TrimSuffix(text, "Z"))
		if err != nil {
			return nil, fmt.Errorf("%w: instant %q: %v", ErrParseFailure, text, err)
		}
		return Instant{Wall: t, UTC: utc}, nil
	case FieldOffset:
		o, err := ParseOffset(text)
		if err != nil {
			return nil, err
		}
		return o, nil
	case FieldCoordinate:
		lat, lon, ok := strings.Cut(text, ",")
		if !ok {
			return nil, fmt.Errorf("%w: coordinate %q", ErrParseFailure, text)
		}
		la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: latitude %q", ErrParseFailure, lat)
		}
		lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: longitude %q", ErrParseFailure, lon)
		}
		return Coordinate{Lat: la, Lon: lo}, nil
	default:
		return nil, fmt.Errorf("unknown field %q", field)
	}
}
