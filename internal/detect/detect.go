// Package detect classifies defects in a snapshot's fields.
//
// Each Detector is a total function over a snapshot. Detectors are
// independent: none sees another's output, and none mutates the snapshot.
package detect

import (
	"exifrec-go/internal/media"
)

// Kind names a class of anomaly.
type Kind string

const (
	InvalidHour              Kind = "InvalidHour"
	ZeroedTimestamp          Kind = "ZeroedTimestamp"
	MalformedTimestampSuffix Kind = "MalformedTimestampSuffix"
	MissingCreationTag       Kind = "MissingCreationTag"
	MissingOffset            Kind = "MissingOffset"
	MissingCoordinate        Kind = "MissingCoordinate"
	InconsistentKindTag      Kind = "InconsistentKindTag"
)

// Informational reports whether the anomaly is expected in normal
// collections and should not count as a defect in summaries.
func (k Kind) Informational() bool {
	return k == MissingCoordinate
}

// Anomaly is a detected defect in one field of a snapshot.
type Anomaly struct {
	Field media.Field
	Kind  Kind
	// Tag is the tag the defect was found in, empty when the defect concerns
	// the field as a whole.
	Tag     string
	Message string
}

// Detector produces anomalies for a snapshot.
type Detector interface {
	Name() string
	Detect(s *media.Snapshot) []Anomaly
}

// Func adapts a function to the Detector interface.
type Func struct {
	name string
	fn   func(*media.Snapshot) []Anomaly
}

// NewFunc returns a named Detector backed by fn.
func NewFunc(name string, fn func(*media.Snapshot) []Anomaly) Func {
	return Func{name: name, fn: fn}
}

func (f Func) Name() string                         { return f.name }
func (f Func) Detect(s *media.Snapshot) []Anomaly { return f.fn(s) }

// Set is an ordered collection of detectors. Order only affects the order
// of reported anomalies.
type Set struct {
	detectors []Detector
}

// NewSet returns a Set running detectors in the given order.
func NewSet(detectors ...Detector) *Set {
	return &Set{detectors: detectors}
}

// Register appends a detector.
func (s *Set) Register(d Detector) {
	s.detectors = append(s.detectors, d)
}

// Names lists registered detector names in order.
func (s *Set) Names() []string {
	names := make([]string, len(s.detectors))
	for i, d := range s.detectors {
		names[i] = d.Name()
	}
	return names
}

// Run applies every detector to snap and concatenates the results.
func (s *Set) Run(snap *media.Snapshot) []Anomaly {
	var out []Anomaly
	for _, d := range s.detectors {
		out = append(out, d.Detect(snap)...)
	}
	return out
}

// OnField returns the anomalies attached to field.
func OnField(anomalies []Anomaly, field media.Field) []Anomaly {
	var out []Anomaly
	for _, a := range anomalies {
		if a.Field == field {
			out = append(out, a)
		}
	}
	return out
}

// Against returns the anomalies that put the value read from sourceTag into
// doubt: those on field found in sourceTag itself or in no particular tag.
// A defect in another tag leaves that value standing.
func Against(anomalies []Anomaly, field media.Field, sourceTag string) []Anomaly {
	var out []Anomaly
	for _, a := range OnField(anomalies, field) {
		if a.Tag == "" || a.Tag == sourceTag {
			out = append(out, a)
		}
	}
	return out
}

// Has reports whether anomalies contains kind.
func Has(anomalies []Anomaly, kind Kind) bool {
	for _, a := range anomalies {
		if a.Kind == kind {
			return true
		}
	}
	return false
}
