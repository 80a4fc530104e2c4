// Package diff computes the minimal field-level change set between the last
// accepted snapshot of a file and its current state.
package diff

import (
	"time"

	"exifrec-go/internal/infer"
	"exifrec-go/internal/media"
)

// Kind classifies an entry.
type Kind string

const (
	Addition     Kind = "addition"
	Modification Kind = "modification"
)

// Origin records where an entry's new value came from.
type Origin string

const (
	// Extracted values were read from the file as they are.
	Extracted Origin = "extracted"
	// DetectorFlagged values were read from the file but their field carries
	// an anomaly or a suspect validity.
	DetectorFlagged Origin = "detector"
	Inferred        Origin = "inferred"
	Manual          Origin = "manual"
)

// Decision is the reviewer's verdict on an entry.
type Decision string

const (
	Pending  Decision = ""
	Accepted Decision = "accepted"
	Rejected Decision = "rejected"
)

// Entry is one changed field.
type Entry struct {
	Field       media.Field
	Kind        Kind
	Old         media.Value // nil when the field had no value
	New         media.Value // nil when the value was lost
	Origin      Origin
	Strategy    string
	Confidence  infer.Confidence
	Evidence    []string
	NeedsReview bool
	Decision    Decision

	// Alternatives are equally ranked values the reviewer may pick instead.
	Alternatives []media.Value

	// Override replaces New when the reviewer supplies a value by hand.
	Override media.Value
}

// Final returns the value the entry commits when accepted.
func (e *Entry) Final() media.Value {
	if e.Override != nil {
		return e.Override
	}
	return e.New
}

// ChangeSet is the ordered list of changed fields for one file.
type ChangeSet struct {
	Identity media.Identity
	// Seq is assigned by the store once the change set is persisted.
	Seq int64
	// BaseSeq is the sequence number of the accepted snapshot the change set
	// was computed against, 0 when there was none.
	BaseSeq int64
	Entries []Entry
}

// Empty reports whether nothing changed.
func (c *ChangeSet) Empty() bool { return c == nil || len(c.Entries) == 0 }

// Resolved reports whether every entry has been accepted or rejected.
func (c *ChangeSet) Resolved() bool {
	for _, e := range c.Entries {
		if e.Decision != Accepted && e.Decision != Rejected {
			return false
		}
	}
	return true
}

// Entry returns the entry for field, or nil.
func (c *ChangeSet) Entry(f media.Field) *Entry {
	for i := range c.Entries {
		if c.Entries[i].Field == f {
			return &c.Entries[i]
		}
	}
	return nil
}

// Decide sets the decision of the entry for field. It reports whether such
// an entry exists.
func (c *ChangeSet) Decide(f media.Field, d Decision) bool {
	e := c.Entry(f)
	if e == nil {
		return false
	}
	e.Decision = d
	return true
}

// AcceptAll accepts every pending entry that does not need manual review and
// returns how many entries remain pending.
func (c *ChangeSet) AcceptAll() int {
	pending := 0
	for i := range c.Entries {
		e := &c.Entries[i]
		if e.Decision != Pending {
			continue
		}
		if e.NeedsReview {
			pending++
			continue
		}
		e.Decision = Accepted
	}
	return pending
}

// SameEntries reports whether two change sets propose the same changes,
// ignoring decisions and sequence numbers.
func SameEntries(a, b *ChangeSet) bool {
	if len(a.Entries) != len(b.Entries) {
		return false
	}
	for i := range a.Entries {
		x, y := a.Entries[i], b.Entries[i]
		if x.Field != y.Field || x.Kind != y.Kind || x.Origin != y.Origin || x.NeedsReview != y.NeedsReview {
			return false
		}
		if !media.EqualValues(x.Old, y.Old) || !media.EqualValues(x.New, y.New) {
			return false
		}
	}
	return true
}

// Diff compares the previous accepted snapshot with the best value now known
// for each field: the selected inference candidate when there is one, else
// the current parsed value. Unchanged fields produce no entry.
func Diff(prev, cur *media.Snapshot, res *infer.Result) *ChangeSet {
	cs := &ChangeSet{Identity: cur.Identity}
	curOffset := bestOffset(cur, res)

	for _, f := range media.Fields {
		e, ok := bestEntry(cur, res, f)
		if prev == nil {
			if ok {
				e.Kind = Addition
				cs.Entries = append(cs.Entries, e)
			}
			continue
		}

		old, _ := prev.Value(f)
		if equalNormalized(old, prevOffset(prev), e.New, curOffset) {
			continue
		}
		e.Field = f
		e.Kind = Modification
		e.Old = old
		if !ok {
			e.Origin = Extracted
		}
		cs.Entries = append(cs.Entries, e)
	}
	return cs
}

// bestEntry builds an entry holding the best value for f. ok is false when
// no value is known.
func bestEntry(cur *media.Snapshot, res *infer.Result, f media.Field) (Entry, bool) {
	own, hasOwn := cur.Value(f)
	if sel, ok := res.Selected(f); ok {
		c := sel.Candidate
		e := Entry{
			Field:       f,
			New:         c.Value,
			Origin:      Inferred,
			Strategy:    c.Strategy,
			Confidence:  c.Confidence,
			Evidence:    c.Evidence,
			NeedsReview: sel.NeedsReview,
		}
		for _, alt := range sel.Alternatives {
			e.Alternatives = append(e.Alternatives, alt.Value)
		}
		if hasOwn && media.EqualValues(own, c.Value) {
			e.Origin = DetectorFlagged
		}
		return e, true
	}
	if !hasOwn {
		return Entry{Field: f}, false
	}
	e := Entry{Field: f, New: own, Origin: Extracted, Evidence: []string{"tag " + cur.SourceTag(f)}}
	if cur.Validity(f) == media.Suspect {
		e.Origin = DetectorFlagged
	}
	return e, true
}

func bestOffset(s *media.Snapshot, res *infer.Result) *media.Offset {
	if sel, ok := res.Selected(media.FieldOffset); ok {
		if o, ok := sel.Candidate.Value.(media.Offset); ok {
			return &o
		}
	}
	return prevOffset(s)
}

func prevOffset(s *media.Snapshot) *media.Offset {
	if o, ok := s.Offset.Parsed(); ok {
		return &o
	}
	return nil
}

// equalNormalized compares two values, bringing instants of different zone
// classes onto UTC using their snapshot's offset first. Without an offset,
// the wall clocks are compared.
func equalNormalized(a media.Value, aOff *media.Offset, b media.Value, bOff *media.Offset) bool {
	ai, aok := a.(media.Instant)
	bi, bok := b.(media.Instant)
	if !aok || !bok || ai.UTC == bi.UTC {
		return media.EqualValues(a, b)
	}
	ai, bi = toUTC(ai, aOff), toUTC(bi, bOff)
	if ai.UTC != bi.UTC {
		return ai.Wall.Truncate(time.Second).Equal(bi.Wall.Truncate(time.Second))
	}
	return ai.Equal(bi)
}

func toUTC(i media.Instant, off *media.Offset) media.Instant {
	if i.UTC || off == nil {
		return i
	}
	return media.Instant{Wall: i.Wall.Add(-time.Duration(off.Seconds) * time.Second), UTC: true}
}
