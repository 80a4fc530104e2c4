package media

import (
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Identity identifies one media file: where it is and what it contains.
type Identity struct {
	Path        string
	ContentHash string
}

// Dir returns the directory holding the file.
func (id Identity) Dir() string { return filepath.Dir(id.Path) }

// Snapshot is the relevant metadata of one file at one import. It is never
// mutated after Build returns.
type Snapshot struct {
	Identity   Identity
	Kind       Kind
	Creation   FieldValue[Instant]
	Offset     FieldValue[Offset]
	Coordinate FieldValue[Coordinate]
	// ModifiedAt is the file system modification time reported by the
	// extractor, used to order siblings. Zero when unknown.
	ModifiedAt time.Time
	// Raw is the full extracted tag map, kept as evidence.
	Raw map[string]string
}

// modifiedAtTag is the extractor's file system modification date.
const modifiedAtTag = "FileModifyDate"

// Build selects and parses the logical fields of raw using table. A tag that
// fails to parse makes its field Invalid; it never aborts construction.
func Build(id Identity, kind Kind, raw map[string]string, table TagTable) *Snapshot {
	s := &Snapshot{
		Identity: id,
		Kind:     kind,
		Raw:      raw,
	}
	s.Creation = buildCreation(raw, table)
	s.Offset = buildOffset(raw, table.Offset)
	s.Coordinate = buildCoordinate(raw, table)
	if v := raw[modifiedAtTag]; v != "" {
		if t, err := ParseZonedTimestamp(v); err == nil {
			s.ModifiedAt = t
		}
	}
	return s
}

// FirstTag returns the first tag of tags with a usable value in raw. Empty
// values and the all-zero date sentinel count as absent.
func FirstTag(raw map[string]string, tags []string) (tag, value string, ok bool) {
	for _, t := range tags {
		v := strings.TrimSpace(raw[t])
		if v == "" || IsZeroTimestamp(v) {
			continue
		}
		return t, v, true
	}
	return "", "", false
}

func buildCreation(raw map[string]string, table TagTable) FieldValue[Instant] {
	if tag, v, ok := FirstTag(raw, table.Creation); ok {
		inst, err := ParseLocalTimestamp(v)
		if err != nil {
			return InvalidField[Instant](v, tag)
		}
		return NewFieldValue(v, tag, Valid, inst)
	}
	if tag, v, ok := FirstTag(raw, table.Modify); ok {
		inst, err := ParseLocalTimestamp(v)
		if err != nil {
			return InvalidField[Instant](v, tag)
		}
		return NewFieldValue(v, tag, Suspect, inst)
	}
	if tag, v, ok := FirstTag(raw, table.GPSTime); ok {
		// The GPS clock is UTC. A zone suffix is a defect repaired by
		// inference, so only the bare form parses here.
		inst, err := ParseLocalTimestamp(v)
		if err != nil {
			return InvalidField[Instant](v, tag)
		}
		return NewFieldValue(v, tag, Valid, Instant{Wall: inst.Wall, UTC: true})
	}
	return FieldValue[Instant]{}
}

func buildOffset(raw map[string]string, tags []string) FieldValue[Offset] {
	tag, v, ok := FirstTag(raw, tags)
	if !ok {
		return FieldValue[Offset]{}
	}
	off, err := ParseOffset(v)
	if err != nil {
		return InvalidField[Offset](v, tag)
	}
	return NewFieldValue(v, tag, Valid, off)
}

func buildCoordinate(raw map[string]string, table TagTable) FieldValue[Coordinate] {
	latTag, lat, latOK := FirstTag(raw, table.Latitude)
	_, lon, lonOK := FirstTag(raw, table.Longitude)
	if latOK && lonOK {
		text := lat + ", " + lon
		la, err := ParseDegrees(lat, raw[table.LatitudeRef])
		if err != nil {
			return InvalidField[Coordinate](text, latTag)
		}
		lo, err := ParseDegrees(lon, raw[table.LongitudeRef])
		if err != nil {
			return InvalidField[Coordinate](text, latTag)
		}
		return coordinateField(text, latTag, Coordinate{Lat: la, Lon: lo})
	}
	if tag, v, ok := FirstTag(raw, table.Position); ok {
		c, err := ParsePosition(v)
		if err != nil {
			return InvalidField[Coordinate](v, tag)
		}
		return coordinateField(v, tag, c)
	}
	if latOK || lonOK {
		return InvalidField[Coordinate](lat+lon, latTag)
	}
	return FieldValue[Coordinate]{}
}

func coordinateField(text, tag string, c Coordinate) FieldValue[Coordinate] {
	c, err := checkCoordinate(c)
	if err != nil {
		return InvalidField[Coordinate](text, tag)
	}
	if c.IsNullIsland() {
		return NewFieldValue(text, tag, Suspect, c)
	}
	return NewFieldValue(text, tag, Valid, c)
}

// Value returns the parsed value of field, if present.
func (s *Snapshot) Value(f Field) (Value, bool) {
	switch f {
	case FieldCreation:
		if v, ok := s.Creation.Parsed(); ok {
			return v, true
		}
	case FieldOffset:
		if v, ok := s.Offset.Parsed(); ok {
			return v, true
		}
	case FieldCoordinate:
		if v, ok := s.Coordinate.Parsed(); ok {
			return v, true
		}
	}
	return nil, false
}

// Validity returns the validity of field.
func (s *Snapshot) Validity(f Field) Validity {
	switch f {
	case FieldCreation:
		return s.Creation.Validity
	case FieldOffset:
		return s.Offset.Validity
	case FieldCoordinate:
		return s.Coordinate.Validity
	}
	return Missing
}

// SourceTag returns the tag that supplied field.
func (s *Snapshot) SourceTag(f Field) string {
	switch f {
	case FieldCreation:
		return s.Creation.SourceTag
	case FieldOffset:
		return s.Offset.SourceTag
	case FieldCoordinate:
		return s.Coordinate.SourceTag
	}
	return ""
}

// TagValueMatches reports whether an extracted tag value holds what a
// write-back requested, tolerating the formatting differences the extractor
// introduces (sub-seconds, printed hemispheres, float rounding).
func TagValueMatches(got, want string) bool {
	got, want = strings.TrimSpace(got), strings.TrimSpace(want)
	if got == want {
		return true
	}
	if got == "" || want == "" {
		return false
	}
	if gt, ok := SplitTimestamp(got); ok {
		if wt, ok := SplitTimestamp(want); ok {
			gt.Suffix, wt.Suffix = "", ""
			return gt == wt
		}
	}
	if gotOff, err := ParseOffset(got); err == nil {
		if wo, err := ParseOffset(want); err == nil {
			return gotOff == wo
		}
	}
	if len(want) == 1 && strings.ContainsAny(want, "NSEW") {
		return strings.EqualFold(got[:1], want)
	}
	wf, err := strconv.ParseFloat(want, 64)
	if err != nil {
		return false
	}
	gf, err := ParseDegrees(got, "")
	if err != nil {
		return false
	}
	return math.Abs(math.Abs(gf)-math.Abs(wf)) <= CoordinateTolerance
}
