package detect

import (
	"fmt"
	"slices"

	"exifrec-go/internal/media"
)

// Default returns the built-in detectors in reporting order.
func Default(tables media.Tables) *Set {
	return NewSet(
		NewFunc("invalid-hour", invalidHour),
		NewFunc("zeroed-timestamp", func(s *media.Snapshot) []Anomaly { return zeroedTimestamp(s, tables.For(s.Kind)) }),
		NewFunc("malformed-suffix", malformedSuffix),
		NewFunc("missing-creation-tag", func(s *media.Snapshot) []Anomaly { return missingCreationTag(s, tables.For(s.Kind)) }),
		NewFunc("missing-offset", missingOffset),
		NewFunc("missing-coordinate", missingCoordinate),
		NewFunc("inconsistent-kind-tag", func(s *media.Snapshot) []Anomaly { return inconsistentKindTag(s, tables.For(s.Kind)) }),
	)
}

func invalidHour(s *media.Snapshot) []Anomaly {
	ts, ok := media.SplitTimestamp(s.Creation.RawText)
	if !ok || (ts.Hour >= 0 && ts.Hour <= 23) {
		return nil
	}
	return []Anomaly{{
		Field:   media.FieldCreation,
		Kind:    InvalidHour,
		Tag:     s.Creation.SourceTag,
		Message: fmt.Sprintf("%s has hour %d in %q", s.Creation.SourceTag, ts.Hour, s.Creation.RawText),
	}}
}

func zeroedTimestamp(s *media.Snapshot, table media.TagTable) []Anomaly {
	var out []Anomaly
	for _, tag := range slices.Concat(table.Creation, table.Modify, table.GPSTime) {
		if media.IsZeroTimestamp(s.Raw[tag]) {
			out = append(out, Anomaly{
				Field:   media.FieldCreation,
				Kind:    ZeroedTimestamp,
				Tag:     tag,
				Message: fmt.Sprintf("%s is zeroed", tag),
			})
		}
	}
	return out
}

func malformedSuffix(s *media.Snapshot) []Anomaly {
	ts, ok := media.SplitTimestamp(s.Creation.RawText)
	if !ok || ts.Suffix == "" {
		return nil
	}
	return []Anomaly{{
		Field:   media.FieldCreation,
		Kind:    MalformedTimestampSuffix,
		Tag:     s.Creation.SourceTag,
		Message: fmt.Sprintf("%s carries zone suffix %q on a local timestamp", s.Creation.SourceTag, ts.Suffix),
	}}
}

func missingCreationTag(s *media.Snapshot, table media.TagTable) []Anomaly {
	if _, _, ok := media.FirstTag(s.Raw, table.Creation); ok {
		return nil
	}
	tag, _, ok := media.FirstTag(s.Raw, table.Modify)
	if !ok {
		return nil
	}
	return []Anomaly{{
		Field:   media.FieldCreation,
		Kind:    MissingCreationTag,
		Tag:     tag,
		Message: fmt.Sprintf("no creation tag, only %s", tag),
	}}
}

func missingOffset(s *media.Snapshot) []Anomaly {
	if s.Offset.Present() {
		return nil
	}
	return []Anomaly{{Field: media.FieldOffset, Kind: MissingOffset, Message: "no UTC offset tag"}}
}

func missingCoordinate(s *media.Snapshot) []Anomaly {
	if s.Coordinate.Present() {
		return nil
	}
	return []Anomaly{{Field: media.FieldCoordinate, Kind: MissingCoordinate, Message: "no GPS coordinate"}}
}

func inconsistentKindTag(s *media.Snapshot, table media.TagTable) []Anomaly {
	if len(table.Canonical) == 0 {
		return nil
	}
	if _, _, ok := media.FirstTag(s.Raw, table.Canonical); ok {
		return nil
	}
	tag, _, ok := media.FirstTag(s.Raw, table.Foreign)
	if !ok {
		return nil
	}
	return []Anomaly{{
		Field:   media.FieldCreation,
		Kind:    InconsistentKindTag,
		Tag:     tag,
		Message: fmt.Sprintf("%s has no %s tag, only %s", s.Kind, table.Canonical[0], tag),
	}}
}
