package infer_test

import (
	"testing"
	"time"

	"exifrec-go/internal/detect"
	"exifrec-go/internal/geotz"
	"exifrec-go/internal/infer"
	"exifrec-go/internal/media"
)

type stubResolver struct {
	offset media.Offset
	err    error
	calls  int
}

func (r *stubResolver) Resolve(media.Coordinate, media.Instant) (media.Offset, error) {
	r.calls++
	return r.offset, r.err
}

func snapshot(path string, raw map[string]string) *media.Snapshot {
	kind, ok := media.KindForPath(path)
	if !ok {
		kind = media.KindPhoto
	}
	return media.Build(media.Identity{Path: path}, kind, raw, media.DefaultTagTables().For(kind))
}

func run(p *infer.Pipeline, snap *media.Snapshot, siblings ...*media.Snapshot) *infer.Result {
	anomalies := detect.Default(media.DefaultTagTables()).Run(snap)
	return p.Infer(snap, anomalies, siblings)
}

func newPipeline(r infer.OffsetResolver) *infer.Pipeline {
	return infer.Default(media.DefaultTagTables(), r, infer.DefaultOptions())
}

func TestInfer_HourTwentyFour(t *testing.T) {
	snap := snapshot("/photos/a.jpg", map[string]string{"DateTimeOriginal": "2023:06:15 24:30:00"})
	res := run(newPipeline(nil), snap)

	sel, ok := res.Selected(media.FieldCreation)
	if !ok {
		t.Fatal("no CreationInstant selection")
	}
	if sel.Candidate.Value.String() != "2023-06-16T00:30:00" {
		t.Errorf("Value = %s, want 2023-06-16T00:30:00", sel.Candidate.Value)
	}
	if sel.Candidate.Confidence != infer.Medium {
		t.Errorf("Confidence = %v, want medium", sel.Candidate.Confidence)
	}
	if sel.Candidate.Strategy != "tag-repair" {
		t.Errorf("Strategy = %q, want tag-repair", sel.Candidate.Strategy)
	}
}

func TestInfer_GPSClockSuffix(t *testing.T) {
	snap := snapshot("/photos/a.jpg", map[string]string{"GPSDateTime": "2023:06:15 10:00:00Z"})
	res := run(newPipeline(nil), snap)

	sel, ok := res.Selected(media.FieldCreation)
	if !ok {
		t.Fatal("no CreationInstant selection")
	}
	inst, isInstant := sel.Candidate.Value.(media.Instant)
	if !isInstant || !inst.UTC {
		t.Fatalf("Value = %v, want a UTC instant", sel.Candidate.Value)
	}
	if inst.String() != "2023-06-15T10:00:00Z" {
		t.Errorf("Value = %s, want 2023-06-15T10:00:00Z", inst)
	}
	if sel.Candidate.Confidence != infer.Medium {
		t.Errorf("Confidence = %v, want medium", sel.Candidate.Confidence)
	}
}

func TestInfer_ZeroedDateStaysMissing(t *testing.T) {
	r := &stubResolver{offset: media.Offset{Seconds: 3600}}
	snap := snapshot("/photos/a.jpg", map[string]string{
		"CreateDate":   "0000:00:00 00:00:00",
		"GPSLatitude":  "51.5",
		"GPSLongitude": "-0.12",
	})
	res := run(newPipeline(r), snap)

	if _, ok := res.Selected(media.FieldCreation); ok {
		t.Error("CreationInstant selected, want none")
	}
	if _, ok := res.Selected(media.FieldOffset); ok {
		t.Error("UTCOffset selected without an instant")
	}
	if r.calls != 0 {
		t.Errorf("resolver called %d times, want 0", r.calls)
	}
}

func TestInfer_NeverOverridesValid(t *testing.T) {
	snap := snapshot("/photos/IMG_20200101_000000.jpg", map[string]string{
		"CreateDate":         "2023:06:15 10:30:00",
		"OffsetTimeOriginal": "+02:00",
		"GPSLatitude":        "51.5",
		"GPSLongitude":       "-0.12",
	})
	res := run(newPipeline(&stubResolver{offset: media.Offset{Seconds: 3600}}), snap)

	if len(res.Selections) != 0 {
		t.Errorf("Selections = %v, want none", res.Selections)
	}
	if len(res.Candidates) == 0 {
		t.Error("expected filename candidate to still be reported")
	}
}

func TestInfer_NeverOverridesValidBesideAnomaly(t *testing.T) {
	kindMismatch := media.DefaultTagTables()
	photo := kindMismatch[media.KindPhoto]
	photo.Canonical = []string{"DateTimeOriginal"}
	kindMismatch[media.KindPhoto] = photo

	tests := []struct {
		name     string
		path     string
		raw      map[string]string
		tables   media.Tables
		siblings []*media.Snapshot
		anomaly  detect.Kind
	}{
		{
			name:    "zeroed modify date and dated filename",
			path:    "/photos/IMG_20200101_000000.jpg",
			raw:     map[string]string{"CreateDate": "2023:06:15 10:00:00", "ModifyDate": "0000:00:00 00:00:00"},
			anomaly: detect.ZeroedTimestamp,
		},
		{
			name:    "zeroed create date beside valid original date",
			path:    "/photos/IMG_20200101_000000.jpg",
			raw:     map[string]string{"CreateDate": "0000:00:00 00:00:00", "DateTimeOriginal": "2023:06:15 10:00:00"},
			anomaly: detect.ZeroedTimestamp,
		},
		{
			name:    "zeroed GPS clock",
			path:    "/photos/IMG_20200101_000000.jpg",
			raw:     map[string]string{"CreateDate": "2023:06:15 10:00:00", "GPSDateTime": "0000:00:00 00:00:00"},
			anomaly: detect.ZeroedTimestamp,
		},
		{
			name: "zeroed modify date and a nearby sibling",
			path: "/burst/b.jpg",
			raw: map[string]string{
				"CreateDate":     "2023:06:15 10:00:00",
				"ModifyDate":     "0000:00:00 00:00:00",
				"FileModifyDate": "2023:06:15 10:00:07+00:00",
			},
			siblings: []*media.Snapshot{
				withMtime("/burst/a.jpg", map[string]string{"CreateDate": "2019:01:01 00:00:00"}, "2023:06:15 10:00:05+00:00"),
			},
			anomaly: detect.ZeroedTimestamp,
		},
		{
			name:    "other kind's tag beside a valid creation tag",
			path:    "/photos/IMG_20200101_000000.jpg",
			raw:     map[string]string{"CreateDate": "2023:06:15 10:00:00", "MediaCreateDate": "2020:01:01 00:00:00"},
			tables:  kindMismatch,
			anomaly: detect.InconsistentKindTag,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables := tt.tables
			if tables == nil {
				tables = media.DefaultTagTables()
			}
			snap := media.Build(media.Identity{Path: tt.path}, media.KindPhoto, tt.raw, tables.For(media.KindPhoto))
			if snap.Creation.Validity != media.Valid {
				t.Fatalf("Creation.Validity = %v, want valid", snap.Creation.Validity)
			}
			anomalies := detect.Default(tables).Run(snap)
			if !detect.Has(anomalies, tt.anomaly) {
				t.Fatalf("anomalies = %v, want %s", anomalies, tt.anomaly)
			}

			p := infer.Default(tables, nil, infer.DefaultOptions())
			res := p.Infer(snap, anomalies, tt.siblings)
			if sel, ok := res.Selected(media.FieldCreation); ok {
				t.Errorf("valid %s overridden: selected %s via %s", snap.Creation.SourceTag, sel.Candidate.Value, sel.Candidate.Strategy)
			}
			if !infer.Protected(snap, anomalies, media.FieldCreation) {
				t.Error("Protected() = false, want true")
			}
		})
	}
}

func TestInfer_Filename(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "/p/IMG_20230615_103000.jpg", want: "2023-06-15T10:30:00"},
		{path: "/p/PXL_20230615_103000123.jpg", want: "2023-06-15T10:30:00"},
		{path: "/p/2023-06-15 10.30.00.jpg", want: "2023-06-15T10:30:00"},
		{path: "/p/Screenshot_20230615-103000.png", want: "2023-06-15T10:30:00"},
		{path: "/p/scan20230615103000.jpg", want: "2023-06-15T10:30:00"},
	}
	p := newPipeline(nil)
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			res := run(p, snapshot(tt.path, map[string]string{}))
			sel, ok := res.Selected(media.FieldCreation)
			if !ok {
				t.Fatal("no selection")
			}
			if sel.Candidate.Strategy != "filename" || sel.Candidate.Value.String() != tt.want {
				t.Errorf("Selected = %s %s, want filename %s", sel.Candidate.Strategy, sel.Candidate.Value, tt.want)
			}
		})
	}
}

func TestInfer_TieBreakByDeclarationOrder(t *testing.T) {
	// Both tag-repair and filename propose Medium candidates; tag-repair is
	// declared first.
	snap := snapshot("/p/IMG_20230101_120000.jpg", map[string]string{"DateTimeOriginal": "2023:06:15 24:30:00"})
	res := run(newPipeline(nil), snap)

	sel, _ := res.Selected(media.FieldCreation)
	if sel.Candidate.Strategy != "tag-repair" {
		t.Errorf("Strategy = %q, want tag-repair", sel.Candidate.Strategy)
	}
	if len(sel.Alternatives) != 1 || sel.Alternatives[0].Strategy != "filename" {
		t.Errorf("Alternatives = %v, want the filename candidate", sel.Alternatives)
	}
	if sel.NeedsReview {
		t.Error("NeedsReview = true for a medium confidence selection")
	}
}

func TestInfer_HighBeatsMedium(t *testing.T) {
	snap := snapshot("/p/a.jpg", map[string]string{
		"CreateDate":       "2023:06:15 24:30:00",
		"DateTimeOriginal": "2023:06:15 23:59:00",
	})
	res := run(newPipeline(nil), snap)
	sel, _ := res.Selected(media.FieldCreation)
	if sel.Candidate.Confidence != infer.High || sel.Candidate.Value.String() != "2023-06-15T23:59:00" {
		t.Errorf("Selected = %v %s", sel.Candidate.Confidence, sel.Candidate.Value)
	}
}

func withMtime(path string, raw map[string]string, mtime string) *media.Snapshot {
	raw["FileModifyDate"] = mtime
	return snapshot(path, raw)
}

func TestInfer_Sibling(t *testing.T) {
	p := newPipeline(nil)
	sibA := withMtime("/burst/a.jpg", map[string]string{"CreateDate": "2023:06:15 10:00:00"}, "2023:06:15 10:00:05+00:00")
	other := withMtime("/elsewhere/x.jpg", map[string]string{"CreateDate": "2020:01:01 00:00:00"}, "2023:06:15 10:00:06+00:00")
	target := withMtime("/burst/b.jpg", map[string]string{}, "2023:06:15 10:00:07+00:00")

	t.Run("nearest sibling in same directory", func(t *testing.T) {
		res := run(p, target, sibA, other)
		sel, ok := res.Selected(media.FieldCreation)
		if !ok {
			t.Fatal("no selection")
		}
		if sel.Candidate.Confidence != infer.Low || sel.Candidate.Value.String() != "2023-06-15T10:00:00" {
			t.Errorf("Selected = %v %s", sel.Candidate.Confidence, sel.Candidate.Value)
		}
		if sel.NeedsReview {
			t.Error("NeedsReview = true with one sibling")
		}
	})

	t.Run("disagreeing siblings need review", func(t *testing.T) {
		sibC := withMtime("/burst/c.jpg", map[string]string{"CreateDate": "2023:06:15 18:00:00"}, "2023:06:15 10:00:08+00:00")
		res := run(p, target, sibA, sibC)
		sel, ok := res.Selected(media.FieldCreation)
		if !ok {
			t.Fatal("no selection")
		}
		if !sel.NeedsReview {
			t.Error("NeedsReview = false, want true")
		}
		if sel.Candidate.Value.String() != "2023-06-15T18:00:00" {
			t.Errorf("Selected = %s, want the nearer sibling c", sel.Candidate.Value)
		}
		if len(sel.Alternatives) != 1 {
			t.Errorf("len(Alternatives) = %d, want 1", len(sel.Alternatives))
		}
	})

	t.Run("outside window", func(t *testing.T) {
		far := withMtime("/burst/d.jpg", map[string]string{}, "2023:06:15 11:00:00+00:00")
		res := run(p, far, sibA)
		if _, ok := res.Selected(media.FieldCreation); ok {
			t.Error("selected a sibling outside the window")
		}
	})
}

func TestInfer_OffsetFromGPS(t *testing.T) {
	resolver, err := geotz.NewResolver()
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	p := newPipeline(resolver)

	snap := snapshot("/p/a.jpg", map[string]string{
		"CreateDate":   "2023:07:15 12:00:00",
		"GPSLatitude":  "51.5",
		"GPSLongitude": "-0.12",
	})
	res := run(p, snap)
	sel, ok := res.Selected(media.FieldOffset)
	if !ok {
		t.Fatal("no UTCOffset selection")
	}
	if sel.Candidate.Value.String() != "+01:00" || sel.Candidate.Confidence != infer.High {
		t.Errorf("Selected = %s %v, want +01:00 high", sel.Candidate.Value, sel.Candidate.Confidence)
	}
}

func TestInfer_OffsetUsesSelectedInstant(t *testing.T) {
	r := &stubResolver{offset: media.Offset{Seconds: 7200}}
	snap := snapshot("/p/a.jpg", map[string]string{
		"DateTimeOriginal": "2023:06:15 24:30:00",
		"GPSLatitude":      "48.85",
		"GPSLongitude":     "2.35",
	})
	res := run(newPipeline(r), snap)
	if _, ok := res.Selected(media.FieldOffset); !ok {
		t.Fatal("no UTCOffset selection")
	}
	if r.calls != 1 {
		t.Errorf("resolver calls = %d, want 1", r.calls)
	}
}

func TestInfer_OffsetFromSiblingCoordinate(t *testing.T) {
	r := &stubResolver{offset: media.Offset{Seconds: 3600}}
	sib := snapshot("/trip/a.jpg", map[string]string{
		"CreateDate":   "2023:06:15 10:00:00",
		"GPSLatitude":  "51.5",
		"GPSLongitude": "-0.12",
	})
	near := snapshot("/trip/b.jpg", map[string]string{"CreateDate": "2023:06:15 10:20:00"})
	far := snapshot("/trip/c.jpg", map[string]string{"CreateDate": "2023:06:15 14:00:00"})

	p := newPipeline(r)
	if _, ok := run(p, near, sib).Selected(media.FieldOffset); !ok {
		t.Error("no offset inherited from sibling within window")
	}
	if _, ok := run(p, far, sib).Selected(media.FieldOffset); ok {
		t.Error("offset inherited from sibling outside window")
	}
}

func TestInfer_OffsetNotResolvable(t *testing.T) {
	r := &stubResolver{err: geotz.ErrNotResolvable}
	snap := snapshot("/p/a.jpg", map[string]string{
		"CreateDate":   "2023:06:15 10:00:00",
		"GPSLatitude":  "-40",
		"GPSLongitude": "-120",
	})
	if _, ok := run(newPipeline(r), snap).Selected(media.FieldOffset); ok {
		t.Error("offset selected for unresolvable coordinate")
	}
}

func TestInfer_OffsetTagFallback(t *testing.T) {
	snap := snapshot("/p/a.jpg", map[string]string{
		"CreateDate": "2023:06:15 10:00:00",
		"OffsetTime": "+09:00",
	})
	sel, ok := run(newPipeline(nil), snap).Selected(media.FieldOffset)
	if !ok {
		t.Fatal("no UTCOffset selection")
	}
	if sel.Candidate.Strategy != "offset-tag" || sel.Candidate.Value.String() != "+09:00" {
		t.Errorf("Selected = %s %s", sel.Candidate.Strategy, sel.Candidate.Value)
	}
}

func TestInfer_NeverInventsCoordinate(t *testing.T) {
	snap := snapshot("/p/IMG_20230615_103000.jpg", map[string]string{})
	res := run(newPipeline(&stubResolver{}), snap)
	for _, c := range res.Candidates {
		if c.Field == media.FieldCoordinate {
			t.Errorf("coordinate candidate %v", c)
		}
	}
}

func TestInfer_Deterministic(t *testing.T) {
	snap := snapshot("/p/IMG_20230101_120000.jpg", map[string]string{"DateTimeOriginal": "2023:06:15 24:30:00"})
	p := newPipeline(nil)
	first := run(p, snap)
	for i := 0; i < 10; i++ {
		got := run(p, snap)
		a, _ := first.Selected(media.FieldCreation)
		b, _ := got.Selected(media.FieldCreation)
		if a.Candidate.Strategy != b.Candidate.Strategy || !media.EqualValues(a.Candidate.Value, b.Candidate.Value) {
			t.Fatalf("run %d selected %v, first selected %v", i, b.Candidate, a.Candidate)
		}
	}
}

func TestPipeline_Register(t *testing.T) {
	p := infer.NewPipeline(media.DefaultTagTables(), time.Hour)
	p.Register(infer.FilenameStrategy{Patterns: infer.DefaultPatterns()})
	if names := p.Names(); len(names) != 1 || names[0] != "filename" {
		t.Errorf("Names() = %v", names)
	}
}
