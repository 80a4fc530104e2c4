// Package infer proposes values for missing or defective fields from
// secondary evidence and selects one per field.
package infer

import (
	"slices"
	"time"

	"exifrec-go/internal/detect"
	"exifrec-go/internal/media"
)

// Confidence ranks candidates. Higher wins.
type Confidence int

const (
	Low Confidence = iota + 1
	Medium
	High
)

func (c Confidence) String() string {
	switch c {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "n/a"
	}
}

// ParseConfidence is the inverse of Confidence.String. Unknown text maps to 0.
func ParseConfidence(s string) Confidence {
	switch s {
	case "low":
		return Low
	case "medium":
		return Medium
	case "high":
		return High
	}
	return 0
}

// Candidate is one proposed value for a field.
type Candidate struct {
	Field      media.Field
	Value      media.Value
	Strategy   string
	Confidence Confidence
	Evidence   []string
}

// Input is what a strategy may look at.
type Input struct {
	Snapshot  *media.Snapshot
	Anomalies []detect.Anomaly
	// Siblings are snapshots materialized earlier in the same batch.
	Siblings []*media.Snapshot
	Table    media.TagTable
	selected map[media.Field]media.Value
}

// Resolved returns the value field will carry after inference: the selected
// candidate for fields already processed, else the snapshot's own value.
func (in *Input) Resolved(f media.Field) (media.Value, bool) {
	if v, ok := in.selected[f]; ok {
		return v, true
	}
	return in.Snapshot.Value(f)
}

// Strategy proposes candidates for one field.
type Strategy interface {
	Name() string
	Field() media.Field
	Propose(in *Input) []Candidate
}

// Selection is the chosen candidate for a field.
type Selection struct {
	Candidate Candidate
	// Alternatives are equally ranked candidates that disagree with the
	// chosen one. NeedsReview is set when they make the choice ambiguous.
	Alternatives []Candidate
	NeedsReview  bool
}

// Result holds every candidate produced and the selection per field.
type Result struct {
	Candidates []Candidate
	Selections map[media.Field]Selection
}

// Selected returns the selection for field, if any.
func (r *Result) Selected(f media.Field) (Selection, bool) {
	if r == nil {
		return Selection{}, false
	}
	s, ok := r.Selections[f]
	return s, ok
}

// Pipeline runs an ordered list of strategies. Declaration order breaks
// confidence ties.
type Pipeline struct {
	strategies   []Strategy
	tables       media.Tables
	disagreement time.Duration
}

// NewPipeline returns a pipeline running strategies in the given order.
func NewPipeline(tables media.Tables, disagreement time.Duration, strategies ...Strategy) *Pipeline {
	return &Pipeline{strategies: strategies, tables: tables, disagreement: disagreement}
}

// Register appends a strategy with the lowest tie-break precedence.
func (p *Pipeline) Register(s Strategy) {
	p.strategies = append(p.strategies, s)
}

// Names lists strategy names in declaration order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.strategies))
	for i, s := range p.strategies {
		names[i] = s.Name()
	}
	return names
}

// Infer runs every strategy field by field, creation instant first, so later
// fields see earlier selections.
func (p *Pipeline) Infer(snap *media.Snapshot, anomalies []detect.Anomaly, siblings []*media.Snapshot) *Result {
	in := &Input{
		Snapshot:  snap,
		Anomalies: anomalies,
		Siblings:  siblings,
		Table:     p.tables.For(snap.Kind),
		selected:  make(map[media.Field]media.Value),
	}
	res := &Result{Selections: make(map[media.Field]Selection)}

	for _, field := range media.Fields {
		var cands []Candidate
		rank := make(map[string]int)
		for i, s := range p.strategies {
			if s.Field() != field {
				continue
			}
			rank[s.Name()] = i
			cands = append(cands, s.Propose(in)...)
		}
		res.Candidates = append(res.Candidates, cands...)

		sel, ok := p.selectField(snap, anomalies, field, cands, rank)
		if !ok {
			continue
		}
		res.Selections[field] = sel
		in.selected[field] = sel.Candidate.Value
	}
	return res
}

// Protected reports whether field holds a valid value that no anomaly puts
// into doubt, which inference must never override. Anomalies found in tags
// other than the field's source do not count.
func Protected(snap *media.Snapshot, anomalies []detect.Anomaly, field media.Field) bool {
	if snap.Validity(field) != media.Valid {
		return false
	}
	return len(detect.Against(anomalies, field, snap.SourceTag(field))) == 0
}

func (p *Pipeline) selectField(snap *media.Snapshot, anomalies []detect.Anomaly, field media.Field, cands []Candidate, rank map[string]int) (Selection, bool) {
	if len(cands) == 0 || Protected(snap, anomalies, field) {
		return Selection{}, false
	}
	sorted := slices.Clone(cands)
	slices.SortStableFunc(sorted, func(a, b Candidate) int {
		if a.Confidence != b.Confidence {
			return int(b.Confidence) - int(a.Confidence)
		}
		return rank[a.Strategy] - rank[b.Strategy]
	})

	top := sorted[0]
	sel := Selection{Candidate: top}
	for _, c := range sorted[1:] {
		if c.Confidence != top.Confidence {
			break
		}
		if media.EqualValues(c.Value, top.Value) {
			continue
		}
		sel.Alternatives = append(sel.Alternatives, c)
		if top.Confidence == Low && p.disagrees(top.Value, c.Value) {
			sel.NeedsReview = true
		}
	}
	return sel, true
}

func (p *Pipeline) disagrees(a, b media.Value) bool {
	ai, aok := a.(media.Instant)
	bi, bok := b.(media.Instant)
	if !aok || !bok {
		return !media.EqualValues(a, b)
	}
	d := ai.Sub(bi)
	if d < 0 {
		d = -d
	}
	return d > p.disagreement
}
