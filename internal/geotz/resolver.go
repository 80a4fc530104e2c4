// Package geotz derives a UTC offset from a coordinate and an instant.
package geotz

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	_ "time/tzdata" // identical zone rules on every host

	"github.com/ringsaturn/tzf"

	"exifrec-go/internal/media"
)

// ErrNotResolvable is returned for coordinates outside every known time
// zone polygon, such as open ocean.
var ErrNotResolvable = errors.New("coordinate not resolvable to a time zone")

// Finder locates the IANA zone name containing a point. An empty name means
// no polygon contains it.
type Finder interface {
	GetTimezoneName(lng float64, lat float64) string
}

// Resolver maps coordinates to zones and offsets. It holds the zone polygon
// data read-only after construction and is safe for concurrent use.
type Resolver struct {
	finder Finder
	zones  sync.Map // name -> *time.Location
}

// NewResolver loads the bundled zone boundary dataset.
func NewResolver() (*Resolver, error) {
	f, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, fmt.Errorf("loading time zone boundaries: %w", err)
	}
	return NewResolverWithFinder(f), nil
}

// NewResolverWithFinder wraps an existing Finder.
func NewResolverWithFinder(f Finder) *Resolver {
	return &Resolver{finder: f}
}

// Zone returns the IANA zone name containing c.
func (r *Resolver) Zone(c media.Coordinate) (string, error) {
	name := r.finder.GetTimezoneName(c.Lon, c.Lat)
	// Etc/GMT±N zones only cover the nautical bands between land polygons.
	if name == "" || strings.HasPrefix(name, "Etc/") {
		return "", fmt.Errorf("%w: %s", ErrNotResolvable, c)
	}
	return name, nil
}

// Resolve returns the UTC offset in effect at hint in the zone containing c.
// Local hints are read as wall clock time in that zone.
func (r *Resolver) Resolve(c media.Coordinate, hint media.Instant) (media.Offset, error) {
	name, err := r.Zone(c)
	if err != nil {
		return media.Offset{}, err
	}
	loc, err := r.location(name)
	if err != nil {
		return media.Offset{}, err
	}
	return media.OffsetOf(hint.In(loc)), nil
}

func (r *Resolver) location(name string) (*time.Location, error) {
	if loc, ok := r.zones.Load(name); ok {
		return loc.(*time.Location), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: loading zone %s: %v", ErrNotResolvable, name, err)
	}
	r.zones.Store(name, loc)
	return loc, nil
}
