package media

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

// Kind is the media kind of a file. Tag conventions differ per kind.
type Kind string

const (
	KindPhoto Kind = "photo"
	KindVideo Kind = "video"
)

var extensionKinds = map[string]Kind{
	".jpg":  KindPhoto,
	".jpeg": KindPhoto,
	".heic": KindPhoto,
	".heif": KindPhoto,
	".png":  KindPhoto,
	".tif":  KindPhoto,
	".tiff": KindPhoto,
	".dng":  KindPhoto,
	".cr2":  KindPhoto,
	".cr3":  KindPhoto,
	".nef":  KindPhoto,
	".arw":  KindPhoto,
	".mp4":  KindVideo,
	".m4v":  KindVideo,
	".mov":  KindVideo,
	".avi":  KindVideo,
	".3gp":  KindVideo,
}

// KindForPath maps a file extension to a media kind.
func KindForPath(path string) (Kind, bool) {
	k, ok := extensionKinds[strings.ToLower(filepath.Ext(path))]
	return k, ok
}

// TagTable lists, per logical field, which extracted tags feed it and in
// which priority order. Tables are plain data so new kinds or camera quirks
// are configuration, not code.
type TagTable struct {
	Creation       []string `toml:"creation"`
	Modify         []string `toml:"modify"`
	GPSTime        []string `toml:"gps_time"`
	Offset         []string `toml:"offset"`
	OffsetFallback []string `toml:"offset_fallback"`
	Latitude       []string `toml:"latitude"`
	Longitude      []string `toml:"longitude"`
	LatitudeRef    string   `toml:"latitude_ref"`
	LongitudeRef   string   `toml:"longitude_ref"`
	Position       []string `toml:"position"`
	// Canonical tags are the creation tags expected for this kind.
	Canonical []string `toml:"canonical"`
	// Foreign tags are creation tags characteristic of another kind.
	Foreign        []string `toml:"foreign"`
	SupportsOffset bool     `toml:"supports_offset"`
}

// Tables maps each kind to its tag table.
type Tables map[Kind]TagTable

// DefaultTagTables returns the built-in tables.
func DefaultTagTables() Tables {
	return Tables{
		KindPhoto: {
			Creation:       []string{"CreateDate", "DateTimeOriginal"},
			Modify:         []string{"ModifyDate"},
			GPSTime:        []string{"GPSDateTime"},
			Offset:         []string{"OffsetTimeOriginal"},
			OffsetFallback: []string{"OffsetTime", "OffsetTimeDigitized"},
			Latitude:       []string{"GPSLatitude"},
			Longitude:      []string{"GPSLongitude"},
			LatitudeRef:    "GPSLatitudeRef",
			LongitudeRef:   "GPSLongitudeRef",
			Position:       []string{"GPSPosition"},
			Canonical:      []string{"DateTimeOriginal", "CreateDate"},
			Foreign:        []string{"MediaCreateDate", "TrackCreateDate"},
			SupportsOffset: true,
		},
		KindVideo: {
			Creation:     []string{"CreateDate"},
			Modify:       []string{"ModifyDate"},
			Latitude:     []string{"GPSLatitude"},
			Longitude:    []string{"GPSLongitude"},
			LatitudeRef:  "GPSLatitudeRef",
			LongitudeRef: "GPSLongitudeRef",
			Position:     []string{"GPSCoordinates", "GPSPosition"},
			Canonical:    []string{"CreateDate"},
			Foreign:      []string{"DateTimeOriginal"},
		},
	}
}

// For returns the table for kind, falling back to the photo table.
func (t Tables) For(kind Kind) TagTable {
	if tt, ok := t[kind]; ok {
		return tt
	}
	return t[KindPhoto]
}

// Merge returns a copy of t with the non-empty tables of overrides applied.
func (t Tables) Merge(overrides map[string]TagTable) Tables {
	out := make(Tables, len(t))
	for k, v := range t {
		out[k] = v
	}
	for name, tt := range overrides {
		if len(tt.Creation) == 0 {
			continue
		}
		out[Kind(name)] = tt
	}
	return out
}

// TagWrite is a single tag assignment handed to the write-back tool.
type TagWrite struct {
	Tag   string
	Value string
}

// WritesFor returns the tag assignments that store v in the canonical tags
// of table. A nil v yields no writes.
func WritesFor(table TagTable, v Value) ([]TagWrite, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case Instant:
		if len(table.Creation) == 0 {
			return nil, fmt.Errorf("no creation tag configured")
		}
		if val.UTC {
			// Creation tags hold local time; a UTC instant goes with a zero offset.
			writes := []TagWrite{{Tag: table.Creation[0], Value: val.Wall.Format("2006:01:02 15:04:05")}}
			if table.SupportsOffset && len(table.Offset) > 0 {
				writes = append(writes, TagWrite{Tag: table.Offset[0], Value: Offset{}.String()})
			}
			return writes, nil
		}
		return []TagWrite{{Tag: table.Creation[0], Value: val.ExifString()}}, nil
	case Offset:
		if !table.SupportsOffset || len(table.Offset) == 0 {
			return nil, fmt.Errorf("kind does not support offset tags")
		}
		return []TagWrite{{Tag: table.Offset[0], Value: val.String()}}, nil
	case Coordinate:
		if len(table.Latitude) == 0 || len(table.Longitude) == 0 {
			return nil, fmt.Errorf("no coordinate tags configured")
		}
		latRef, lonRef := "N", "E"
		if val.Lat < 0 {
			latRef = "S"
		}
		if val.Lon < 0 {
			lonRef = "W"
		}
		writes := []TagWrite{
			{Tag: table.Latitude[0], Value: strconv.FormatFloat(math.Abs(val.Lat), 'f', 6, 64)},
			{Tag: table.Longitude[0], Value: strconv.FormatFloat(math.Abs(val.Lon), 'f', 6, 64)},
		}
		if table.LatitudeRef != "" {
			writes = append(writes, TagWrite{Tag: table.LatitudeRef, Value: latRef})
		}
		if table.LongitudeRef != "" {
			writes = append(writes, TagWrite{Tag: table.LongitudeRef, Value: lonRef})
		}
		return writes, nil
	default:
		return nil, fmt.Errorf("unsupported value %T", v)
	}
}
