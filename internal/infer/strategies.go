package infer

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"exifrec-go/internal/detect"
	"exifrec-go/internal/media"
)

// Options tunes the built-in strategies.
type Options struct {
	Patterns []FilenamePattern
	// SiblingWindow bounds the file modification time distance to a sibling
	// whose creation instant may be borrowed.
	SiblingWindow time.Duration
	// CoordinateWindow bounds the creation time distance to a sibling whose
	// coordinate may be borrowed for offset resolution.
	CoordinateWindow time.Duration
	// Disagreement is how far apart low-confidence candidates may be before
	// the selection needs manual review.
	Disagreement time.Duration
}

// DefaultOptions returns the built-in tuning.
func DefaultOptions() Options {
	return Options{
		Patterns:         DefaultPatterns(),
		SiblingWindow:    10 * time.Minute,
		CoordinateWindow: time.Hour,
		Disagreement:     time.Hour,
	}
}

// OffsetResolver resolves a coordinate and instant to a UTC offset.
type OffsetResolver interface {
	Resolve(c media.Coordinate, hint media.Instant) (media.Offset, error)
}

// Default returns the built-in pipeline. Declaration order is the tie-break
// order within equal confidence.
func Default(tables media.Tables, resolver OffsetResolver, opts Options) *Pipeline {
	return NewPipeline(tables, opts.Disagreement,
		TagStrategy{},
		RepairStrategy{},
		FilenameStrategy{Patterns: opts.Patterns},
		SiblingStrategy{Window: opts.SiblingWindow},
		OffsetTagStrategy{},
		GPSZoneStrategy{Resolver: resolver, Window: opts.CoordinateWindow},
	)
}

// TagStrategy proposes the valid, non-anomalous creation tag values.
type TagStrategy struct{}

func (TagStrategy) Name() string       { return "tag" }
func (TagStrategy) Field() media.Field { return media.FieldCreation }

func (s TagStrategy) Propose(in *Input) []Candidate {
	src := in.Snapshot.Creation
	flagged := src.Validity != media.Valid ||
		len(detect.Against(in.Anomalies, media.FieldCreation, src.SourceTag)) > 0
	var out []Candidate
	for _, tag := range in.Table.Creation {
		raw := strings.TrimSpace(in.Snapshot.Raw[tag])
		if raw == "" || media.IsZeroTimestamp(raw) {
			continue
		}
		if flagged && tag == src.SourceTag {
			continue
		}
		inst, err := media.ParseLocalTimestamp(raw)
		if err != nil {
			continue
		}
		out = append(out, Candidate{
			Field:      media.FieldCreation,
			Value:      inst,
			Strategy:   s.Name(),
			Confidence: High,
			Evidence:   []string{"tag " + tag},
		})
	}
	return out
}

// RepairStrategy normalizes known timestamp defects instead of discarding the
// value: hour 24 rolls over to midnight of the next day, and a zone suffix on
// a local timestamp is stripped. GPS clock tags repair to UTC instants.
type RepairStrategy struct{}

func (RepairStrategy) Name() string       { return "tag-repair" }
func (RepairStrategy) Field() media.Field { return media.FieldCreation }

func (s RepairStrategy) Propose(in *Input) []Candidate {
	var out []Candidate
	src := in.Snapshot.Creation
	if src.Validity == media.Invalid {
		gps := slices.Contains(in.Table.GPSTime, src.SourceTag)
		if inst, notes, ok := repairTimestamp(src.RawText, gps); ok {
			out = append(out, Candidate{
				Field:      media.FieldCreation,
				Value:      inst,
				Strategy:   s.Name(),
				Confidence: Medium,
				Evidence:   append([]string{"tag " + src.SourceTag}, notes...),
			})
		}
	}
	for _, tag := range in.Table.GPSTime {
		if tag == src.SourceTag {
			continue
		}
		raw := strings.TrimSpace(in.Snapshot.Raw[tag])
		if raw == "" || media.IsZeroTimestamp(raw) {
			continue
		}
		if inst, notes, ok := repairTimestamp(raw, true); ok {
			out = append(out, Candidate{
				Field:      media.FieldCreation,
				Value:      inst,
				Strategy:   s.Name(),
				Confidence: Medium,
				Evidence:   append([]string{"tag " + tag}, notes...),
			})
		}
	}
	return out
}

func repairTimestamp(raw string, utc bool) (media.Instant, []string, bool) {
	ts, ok := media.SplitTimestamp(raw)
	if !ok {
		return media.Instant{}, nil, false
	}
	var notes []string
	if ts.Suffix != "" {
		notes = append(notes, fmt.Sprintf("stripped suffix %q", ts.Suffix))
		ts.Suffix = ""
	}
	rollover := ts.Hour == 24
	if rollover {
		ts.Hour = 0
		notes = append(notes, "hour 24 rolled over to next day")
	}
	t, err := ts.Time()
	if err != nil {
		return media.Instant{}, nil, false
	}
	if rollover {
		t = t.AddDate(0, 0, 1)
	}
	if utc {
		return media.UTCInstant(t), notes, true
	}
	if len(notes) == 0 {
		// Nothing was repaired; the value was invalid for another reason.
		return media.Instant{}, nil, false
	}
	return media.LocalInstant(t), notes, true
}

// PatternSpec is the configuration form of a FilenamePattern.
type PatternSpec struct {
	Regex  string
	Layout string
}

// FilenamePattern extracts a local timestamp from a file name. The first
// capture group (or the whole match) is parsed with Layout.
type FilenamePattern struct {
	Regexp *regexp.Regexp
	Layout string
}

// DefaultPatternSpecs are the date encodings used by common cameras, phones
// and sync clients.
func DefaultPatternSpecs() []PatternSpec {
	return []PatternSpec{
		{Regex: `(\d{8}_\d{6})`, Layout: "20060102_150405"},
		{Regex: `(\d{8}-\d{6})`, Layout: "20060102-150405"},
		{Regex: `(\d{4}-\d{2}-\d{2} \d{2}\.\d{2}\.\d{2})`, Layout: "2006-01-02 15.04.05"},
		{Regex: `(\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2})`, Layout: "2006-01-02_15-04-05"},
		{Regex: `(?:^|\D)(\d{14})(?:\D|$)`, Layout: "20060102150405"},
	}
}

// DefaultPatterns compiles DefaultPatternSpecs.
func DefaultPatterns() []FilenamePattern {
	p, err := CompilePatterns(DefaultPatternSpecs())
	if err != nil {
		panic(err)
	}
	return p
}

// CompilePatterns compiles pattern specs in order.
func CompilePatterns(specs []PatternSpec) ([]FilenamePattern, error) {
	out := make([]FilenamePattern, 0, len(specs))
	for _, s := range specs {
		re, err := regexp.Compile(s.Regex)
		if err != nil {
			return nil, fmt.Errorf("compiling filename pattern %q: %w", s.Regex, err)
		}
		out = append(out, FilenamePattern{Regexp: re, Layout: s.Layout})
	}
	return out, nil
}

// FilenameStrategy proposes the first timestamp encoded in the file name.
type FilenameStrategy struct {
	Patterns []FilenamePattern
}

func (FilenameStrategy) Name() string       { return "filename" }
func (FilenameStrategy) Field() media.Field { return media.FieldCreation }

func (s FilenameStrategy) Propose(in *Input) []Candidate {
	base := filepath.Base(in.Snapshot.Identity.Path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	for _, p := range s.Patterns {
		m := p.Regexp.FindStringSubmatch(base)
		if m == nil {
			continue
		}
		text := m[0]
		if len(m) > 1 {
			text = m[1]
		}
		t, err := time.ParseInLocation(p.Layout, text, time.UTC)
		if err != nil || t.Year() < 1900 || t.Year() > 2100 {
			continue
		}
		return []Candidate{{
			Field:      media.FieldCreation,
			Value:      media.LocalInstant(t),
			Strategy:   s.Name(),
			Confidence: Medium,
			Evidence:   []string{"filename " + base},
		}}
	}
	return nil
}

// SiblingStrategy borrows the creation instant of the nearest earlier batch
// sibling in the same directory, measured by file modification time. The
// nearest sibling on each side is proposed so a disagreeing burst surfaces
// as an ambiguous selection.
type SiblingStrategy struct {
	Window time.Duration
}

func (SiblingStrategy) Name() string       { return "sibling" }
func (SiblingStrategy) Field() media.Field { return media.FieldCreation }

func (s SiblingStrategy) Propose(in *Input) []Candidate {
	snap := in.Snapshot
	if snap.ModifiedAt.IsZero() {
		return nil
	}
	var before, after *media.Snapshot
	var beforeD, afterD time.Duration
	for _, sib := range in.Siblings {
		if sib.Identity.Path == snap.Identity.Path || sib.Identity.Dir() != snap.Identity.Dir() {
			continue
		}
		if sib.ModifiedAt.IsZero() || sib.Creation.Validity != media.Valid {
			continue
		}
		d := snap.ModifiedAt.Sub(sib.ModifiedAt)
		switch {
		case d >= 0 && d <= s.Window:
			if before == nil || d < beforeD {
				before, beforeD = sib, d
			}
		case d < 0 && -d <= s.Window:
			if after == nil || -d < afterD {
				after, afterD = sib, -d
			}
		}
	}

	var picks []*media.Snapshot
	switch {
	case before != nil && after != nil && afterD < beforeD:
		picks = []*media.Snapshot{after, before}
	default:
		for _, p := range []*media.Snapshot{before, after} {
			if p != nil {
				picks = append(picks, p)
			}
		}
	}

	out := make([]Candidate, 0, len(picks))
	for _, p := range picks {
		v, _ := p.Creation.Parsed()
		out = append(out, Candidate{
			Field:      media.FieldCreation,
			Value:      v,
			Strategy:   s.Name(),
			Confidence: Low,
			Evidence:   []string{"sibling " + p.Identity.Path},
		})
	}
	return out
}

// OffsetTagStrategy copies the offset from a secondary offset tag when the
// canonical one is absent or broken.
type OffsetTagStrategy struct{}

func (OffsetTagStrategy) Name() string       { return "offset-tag" }
func (OffsetTagStrategy) Field() media.Field { return media.FieldOffset }

func (s OffsetTagStrategy) Propose(in *Input) []Candidate {
	if in.Snapshot.Offset.Validity == media.Valid || !in.Table.SupportsOffset {
		return nil
	}
	tag, raw, ok := media.FirstTag(in.Snapshot.Raw, in.Table.OffsetFallback)
	if !ok {
		return nil
	}
	off, err := media.ParseOffset(raw)
	if err != nil {
		return nil
	}
	return []Candidate{{
		Field:      media.FieldOffset,
		Value:      off,
		Strategy:   s.Name(),
		Confidence: High,
		Evidence:   []string{"tag " + tag},
	}}
}

// GPSZoneStrategy resolves the offset from the zone containing the file's
// coordinate at its creation instant. A coordinate may be borrowed from a
// sibling in the same directory taken within Window.
type GPSZoneStrategy struct {
	Resolver OffsetResolver
	Window   time.Duration
}

func (GPSZoneStrategy) Name() string       { return "gps-zone" }
func (GPSZoneStrategy) Field() media.Field { return media.FieldOffset }

func (s GPSZoneStrategy) Propose(in *Input) []Candidate {
	if s.Resolver == nil || !in.Table.SupportsOffset {
		return nil
	}
	v, ok := in.Resolved(media.FieldCreation)
	if !ok {
		return nil
	}
	inst := v.(media.Instant)

	coord, source, ok := s.coordinate(in, inst)
	if !ok {
		return nil
	}
	off, err := s.Resolver.Resolve(coord, inst)
	if err != nil {
		return nil
	}
	return []Candidate{{
		Field:      media.FieldOffset,
		Value:      off,
		Strategy:   s.Name(),
		Confidence: High,
		Evidence:   []string{"coordinate " + coord.String() + " from " + source, "instant " + inst.String()},
	}}
}

func (s GPSZoneStrategy) coordinate(in *Input, inst media.Instant) (media.Coordinate, string, bool) {
	if in.Snapshot.Coordinate.Validity == media.Valid {
		c, _ := in.Snapshot.Coordinate.Parsed()
		return c, "self", true
	}
	var best *media.Snapshot
	var bestD time.Duration
	for _, sib := range in.Siblings {
		if sib.Identity.Dir() != in.Snapshot.Identity.Dir() || sib.Coordinate.Validity != media.Valid {
			continue
		}
		when, ok := sib.Creation.Parsed()
		if !ok || sib.Creation.Validity != media.Valid {
			continue
		}
		d := inst.Sub(when)
		if d < 0 {
			d = -d
		}
		if d > s.Window {
			continue
		}
		if best == nil || d < bestD {
			best, bestD = sib, d
		}
	}
	if best == nil {
		return media.Coordinate{}, "", false
	}
	c, _ := best.Coordinate.Parsed()
	return c, best.Identity.Path, true
}
