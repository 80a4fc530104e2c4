package diff_test

import (
	"testing"
	"time"

	"exifrec-go/internal/detect"
	"exifrec-go/internal/diff"
	"exifrec-go/internal/infer"
	"exifrec-go/internal/media"
)

var tables = media.DefaultTagTables()

func build(raw map[string]string) *media.Snapshot {
	return media.Build(media.Identity{Path: "/photos/a.jpg", ContentHash: "h1"}, media.KindPhoto, raw, tables.For(media.KindPhoto))
}

func run(t *testing.T, prev *media.Snapshot, raw map[string]string) *diff.ChangeSet {
	t.Helper()
	cur := build(raw)
	pipeline := infer.Default(tables, nil, infer.DefaultOptions())
	anomalies := detect.Default(tables).Run(cur)
	return diff.Diff(prev, cur, pipeline.Infer(cur, anomalies, nil))
}

func TestDiff_FirstImportIsAdditions(t *testing.T) {
	cs := run(t, nil, map[string]string{
		"DateTimeOriginal":   "2023:07:15 10:00:00",
		"OffsetTimeOriginal": "+02:00",
	})

	if len(cs.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2: %+v", len(cs.Entries), cs.Entries)
	}
	for _, e := range cs.Entries {
		if e.Kind != diff.Addition {
			t.Errorf("%s Kind = %s, want addition", e.Field, e.Kind)
		}
		if e.Old != nil {
			t.Errorf("%s Old = %v, want nil", e.Field, e.Old)
		}
		if e.Origin != diff.Extracted {
			t.Errorf("%s Origin = %s, want extracted", e.Field, e.Origin)
		}
	}
	if cs.Entries[0].Field != media.FieldCreation || cs.Entries[1].Field != media.FieldOffset {
		t.Errorf("fields out of order: %s, %s", cs.Entries[0].Field, cs.Entries[1].Field)
	}
}

func TestDiff_Unchanged(t *testing.T) {
	raw := map[string]string{
		"DateTimeOriginal":   "2023:07:15 10:00:00",
		"OffsetTimeOriginal": "+02:00",
		"GPSPosition":        "48.858400, 2.294500",
	}
	cs := run(t, build(raw), raw)
	if !cs.Empty() {
		t.Errorf("Entries = %+v, want none", cs.Entries)
	}
}

func TestDiff_Modification(t *testing.T) {
	prev := build(map[string]string{"DateTimeOriginal": "2023:07:15 10:00:00"})
	cs := run(t, prev, map[string]string{"DateTimeOriginal": "2023:07:15 11:00:00"})

	if len(cs.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1", len(cs.Entries))
	}
	e := cs.Entries[0]
	if e.Kind != diff.Modification {
		t.Errorf("Kind = %s, want modification", e.Kind)
	}
	if e.Old.String() != "2023-07-15T10:00:00" || e.New.String() != "2023-07-15T11:00:00" {
		t.Errorf("Old, New = %s, %s", e.Old, e.New)
	}
}

func TestDiff_LostValue(t *testing.T) {
	prev := build(map[string]string{
		"DateTimeOriginal": "2023:07:15 10:00:00",
		"GPSPosition":      "48.858400, 2.294500",
	})
	cs := run(t, prev, map[string]string{"DateTimeOriginal": "2023:07:15 10:00:00"})

	e := cs.Entry(media.FieldCoordinate)
	if e == nil {
		t.Fatalf("no coordinate entry in %+v", cs.Entries)
	}
	if e.Kind != diff.Modification || e.New != nil {
		t.Errorf("entry = %+v, want modification to nil", e)
	}
}

func TestDiff_InferredOrigin(t *testing.T) {
	cs := run(t, nil, map[string]string{"DateTimeOriginal": "2023:07:15 24:00:00"})

	e := cs.Entry(media.FieldCreation)
	if e == nil {
		t.Fatal("no creation entry")
	}
	if e.Origin != diff.Inferred {
		t.Errorf("Origin = %s, want inferred", e.Origin)
	}
	if e.Strategy != "tag-repair" {
		t.Errorf("Strategy = %q, want tag-repair", e.Strategy)
	}
	if e.New.String() != "2023-07-16T00:00:00" {
		t.Errorf("New = %s, want 2023-07-16T00:00:00", e.New)
	}
}

func TestDiff_SuspectIsDetectorFlagged(t *testing.T) {
	cs := run(t, nil, map[string]string{"ModifyDate": "2023:07:15 10:00:00"})

	e := cs.Entry(media.FieldCreation)
	if e == nil {
		t.Fatal("no creation entry")
	}
	if e.Origin != diff.DetectorFlagged {
		t.Errorf("Origin = %s, want detector", e.Origin)
	}
}

func TestDiff_NormalizesZoneClasses(t *testing.T) {
	// Accepted earlier as a local wall clock with a known offset; the file
	// now carries the same moment as a bare GPS clock.
	prev := build(map[string]string{
		"DateTimeOriginal":   "2023:07:15 12:00:00",
		"OffsetTimeOriginal": "+02:00",
	})

	tests := []struct {
		name    string
		gps     string
		changed bool
	}{
		{name: "same moment", gps: "2023:07:15 10:00:00", changed: false},
		{name: "different moment", gps: "2023:07:15 11:00:00", changed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := run(t, prev, map[string]string{
				"GPSDateTime":        tt.gps,
				"OffsetTimeOriginal": "+02:00",
			})
			got := cs.Entry(media.FieldCreation) != nil
			if got != tt.changed {
				t.Errorf("creation changed = %v, want %v (%+v)", got, tt.changed, cs.Entries)
			}
		})
	}
}

func TestDiff_WallClockFallback(t *testing.T) {
	// No offset on either side: walls are compared as they are.
	prev := build(map[string]string{"DateTimeOriginal": "2023:07:15 10:00:00"})
	cs := run(t, prev, map[string]string{"GPSDateTime": "2023:07:15 10:00:00"})
	if cs.Entry(media.FieldCreation) != nil {
		t.Errorf("Entries = %+v, want no creation change", cs.Entries)
	}
}

func TestChangeSet_Decisions(t *testing.T) {
	cs := &diff.ChangeSet{Entries: []diff.Entry{
		{Field: media.FieldCreation, New: media.LocalInstant(time.Date(2023, 7, 15, 10, 0, 0, 0, time.UTC))},
		{Field: media.FieldCoordinate, New: media.Coordinate{Lat: 1, Lon: 2}, NeedsReview: true},
	}}

	if cs.Resolved() {
		t.Fatal("Resolved() = true before any decision")
	}
	if pending := cs.AcceptAll(); pending != 1 {
		t.Errorf("AcceptAll() = %d, want 1", pending)
	}
	if cs.Resolved() {
		t.Error("Resolved() = true with a review entry pending")
	}
	if !cs.Decide(media.FieldCoordinate, diff.Rejected) {
		t.Fatal("Decide() = false")
	}
	if cs.Decide(media.FieldOffset, diff.Accepted) {
		t.Error("Decide() on absent field = true")
	}
	if !cs.Resolved() {
		t.Error("Resolved() = false after deciding every entry")
	}
}

func TestEntry_Final(t *testing.T) {
	e := diff.Entry{New: media.Offset{Seconds: 3600}}
	if e.Final().String() != "+01:00" {
		t.Errorf("Final() = %s, want +01:00", e.Final())
	}
	e.Override = media.Offset{Seconds: -3600}
	if e.Final().String() != "-01:00" {
		t.Errorf("Final() = %s, want -01:00", e.Final())
	}
}
