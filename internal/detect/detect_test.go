package detect_test

import (
	"testing"

	"exifrec-go/internal/detect"
	"exifrec-go/internal/media"
)

func build(kind media.Kind, raw map[string]string) *media.Snapshot {
	return media.Build(media.Identity{Path: "/photos/a.jpg"}, kind, raw, media.DefaultTagTables().For(kind))
}

func kinds(anomalies []detect.Anomaly) []detect.Kind {
	out := make([]detect.Kind, len(anomalies))
	for i, a := range anomalies {
		out[i] = a.Kind
	}
	return out
}

func TestDefault_Rules(t *testing.T) {
	full := map[string]string{
		"CreateDate":         "2023:06:15 10:30:00",
		"OffsetTimeOriginal": "+01:00",
		"GPSLatitude":        "51.5",
		"GPSLongitude":       "-0.12",
	}

	tests := []struct {
		name string
		kind media.Kind
		raw  map[string]string
		want []detect.Kind
	}{
		{
			name: "clean photo",
			kind: media.KindPhoto,
			raw:  full,
			want: nil,
		},
		{
			name: "hour 24",
			kind: media.KindPhoto,
			raw:  map[string]string{"DateTimeOriginal": "2023:06:15 24:30:00", "OffsetTimeOriginal": "+01:00", "GPSLatitude": "1", "GPSLongitude": "1"},
			want: []detect.Kind{detect.InvalidHour},
		},
		{
			name: "zeroed create date",
			kind: media.KindPhoto,
			raw:  map[string]string{"CreateDate": "0000:00:00 00:00:00", "DateTimeOriginal": "2023:06:15 10:30:00", "OffsetTimeOriginal": "+01:00", "GPSLatitude": "1", "GPSLongitude": "1"},
			want: []detect.Kind{detect.ZeroedTimestamp},
		},
		{
			name: "GPS clock suffix",
			kind: media.KindPhoto,
			raw:  map[string]string{"GPSDateTime": "2023:06:15 10:00:00Z"},
			want: []detect.Kind{detect.MalformedTimestampSuffix, detect.MissingOffset, detect.MissingCoordinate},
		},
		{
			name: "modify only",
			kind: media.KindPhoto,
			raw:  map[string]string{"ModifyDate": "2023:06:15 10:30:00", "OffsetTimeOriginal": "+01:00", "GPSLatitude": "1", "GPSLongitude": "1"},
			want: []detect.Kind{detect.MissingCreationTag},
		},
		{
			name: "photo with only video tag",
			kind: media.KindPhoto,
			raw:  map[string]string{"MediaCreateDate": "2023:06:15 10:30:00", "OffsetTimeOriginal": "+01:00", "GPSLatitude": "1", "GPSLongitude": "1"},
			want: []detect.Kind{detect.InconsistentKindTag},
		},
		{
			name: "video without offset",
			kind: media.KindVideo,
			raw:  map[string]string{"CreateDate": "2023:06:15 10:30:00"},
			want: []detect.Kind{detect.MissingOffset, detect.MissingCoordinate},
		},
	}

	set := detect.Default(media.DefaultTagTables())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := kinds(set.Run(build(tt.kind, tt.raw)))
			if len(got) != len(tt.want) {
				t.Fatalf("Run() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Run()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDefault_TotalOnEmptySnapshot(t *testing.T) {
	set := detect.Default(media.DefaultTagTables())
	for _, kind := range []media.Kind{media.KindPhoto, media.KindVideo, media.Kind("unknown")} {
		t.Run(string(kind), func(t *testing.T) {
			s := &media.Snapshot{Kind: kind}
			got := set.Run(s)
			if !detect.Has(got, detect.MissingCoordinate) {
				t.Errorf("Run() = %v, want MissingCoordinate", kinds(got))
			}
		})
	}
}

func TestDefault_DoesNotMutate(t *testing.T) {
	raw := map[string]string{"DateTimeOriginal": "2023:06:15 24:30:00"}
	s := build(media.KindPhoto, raw)
	before := *s

	detect.Default(media.DefaultTagTables()).Run(s)

	if s.Creation != before.Creation || s.Offset != before.Offset || s.Coordinate != before.Coordinate {
		t.Error("Run() mutated the snapshot")
	}
	if len(raw) != 1 {
		t.Errorf("raw map changed: %v", raw)
	}
}

func TestSet_Register(t *testing.T) {
	set := detect.NewSet()
	set.Register(detect.NewFunc("always", func(*media.Snapshot) []detect.Anomaly {
		return []detect.Anomaly{{Field: media.FieldCreation, Kind: "Custom"}}
	}))

	if names := set.Names(); len(names) != 1 || names[0] != "always" {
		t.Errorf("Names() = %v", names)
	}
	got := set.Run(&media.Snapshot{})
	if len(got) != 1 || got[0].Kind != "Custom" {
		t.Errorf("Run() = %v", got)
	}
}

func TestOnField(t *testing.T) {
	all := []detect.Anomaly{
		{Field: media.FieldCreation, Kind: detect.InvalidHour},
		{Field: media.FieldOffset, Kind: detect.MissingOffset},
	}
	got := detect.OnField(all, media.FieldOffset)
	if len(got) != 1 || got[0].Kind != detect.MissingOffset {
		t.Errorf("OnField() = %v", got)
	}
}

func TestDefault_AnomalyTags(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]string
		kind    detect.Kind
		wantTag string
	}{
		{
			name:    "hour 24 names its source",
			raw:     map[string]string{"DateTimeOriginal": "2023:06:15 24:30:00"},
			kind:    detect.InvalidHour,
			wantTag: "DateTimeOriginal",
		},
		{
			name:    "zeroed modify date names the zeroed tag",
			raw:     map[string]string{"CreateDate": "2023:06:15 10:30:00", "ModifyDate": "0000:00:00 00:00:00"},
			kind:    detect.ZeroedTimestamp,
			wantTag: "ModifyDate",
		},
		{
			name:    "missing offset concerns the field",
			raw:     map[string]string{"CreateDate": "2023:06:15 10:30:00"},
			kind:    detect.MissingOffset,
			wantTag: "",
		},
	}

	set := detect.Default(media.DefaultTagTables())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, a := range set.Run(build(media.KindPhoto, tt.raw)) {
				if a.Kind != tt.kind {
					continue
				}
				if a.Tag != tt.wantTag {
					t.Errorf("Tag = %q, want %q", a.Tag, tt.wantTag)
				}
				return
			}
			t.Fatalf("Run() has no %s anomaly", tt.kind)
		})
	}
}

func TestAgainst(t *testing.T) {
	all := []detect.Anomaly{
		{Field: media.FieldCreation, Kind: detect.ZeroedTimestamp, Tag: "ModifyDate"},
		{Field: media.FieldCreation, Kind: detect.InvalidHour, Tag: "CreateDate"},
		{Field: media.FieldOffset, Kind: detect.MissingOffset},
	}

	if got := detect.Against(all, media.FieldCreation, "DateTimeOriginal"); len(got) != 0 {
		t.Errorf("Against(DateTimeOriginal) = %v, want none", kinds(got))
	}
	if got := detect.Against(all, media.FieldCreation, "CreateDate"); len(got) != 1 || got[0].Kind != detect.InvalidHour {
		t.Errorf("Against(CreateDate) = %v, want [InvalidHour]", kinds(got))
	}
	if got := detect.Against(all, media.FieldOffset, ""); len(got) != 1 {
		t.Errorf("Against(offset) = %v, want [MissingOffset]", kinds(got))
	}
}
