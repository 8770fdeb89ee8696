// Package common holds the geometry and cell-arithmetic primitives shared by
// every other package: coordinates, bounding boxes, tile ids and the cell
// index math the spatial indices build on.
// Coordinates and boxes are plain float64 structs that convert to
// paulmach/orb's Point and Bound; the multipolygon ring checks are
// hand-written and do not use orb's planar helpers.
package common

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// GeoCoord is an immutable WGS84 coordinate. Latitude must be in [-90, 90]
// and longitude in [-180, 180].
type GeoCoord struct {
	Lat float64
	Lon float64
}

// NewGeoCoord validates and constructs a GeoCoord.
func NewGeoCoord(lat, lon float64) (GeoCoord, error) {
	if lat < -90 || lat > 90 {
		return GeoCoord{}, errors.Errorf("latitude %f out of range [-90,90]", lat)
	}
	if lon < -180 || lon > 180 {
		return GeoCoord{}, errors.Errorf("longitude %f out of range [-180,180]", lon)
	}
	return GeoCoord{Lat: lat, Lon: lon}, nil
}

func (c GeoCoord) Point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

func (c GeoCoord) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// earthRadiusMeters is the mean earth radius used for great-circle distance.
const earthRadiusMeters = 6371000.0

// SphericalDistance returns the great-circle distance between two
// coordinates in meters (haversine formula).
func SphericalDistance(a, b GeoCoord) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Point is a GeoCoord plus a stable serial id, used for node-identity
// equality during ring assembly.
type Point struct {
	Id    int64
	Coord GeoCoord
}

// GeoBox is an axis-aligned bounding box. MinCoord must be <= MaxCoord in
// both axes.
type GeoBox struct {
	MinCoord GeoCoord
	MaxCoord GeoCoord
}

// NewGeoBox builds a GeoBox from two corners in any order.
func NewGeoBox(a, b GeoCoord) GeoBox {
	box := GeoBox{
		MinCoord: GeoCoord{Lat: math.Min(a.Lat, b.Lat), Lon: math.Min(a.Lon, b.Lon)},
		MaxCoord: GeoCoord{Lat: math.Max(a.Lat, b.Lat), Lon: math.Max(a.Lon, b.Lon)},
	}
	return box
}

// BoundingBoxOf computes the minimal GeoBox enclosing the given coordinates.
// It panics if coords is empty, mirroring the invariant that a box always
// requires at least one point.
func BoundingBoxOf(coords []GeoCoord) GeoBox {
	if len(coords) == 0 {
		panic("common: BoundingBoxOf called with no coordinates")
	}
	box := GeoBox{MinCoord: coords[0], MaxCoord: coords[0]}
	for _, c := range coords[1:] {
		box = box.Extend(c)
	}
	return box
}

func (b GeoBox) Extend(c GeoCoord) GeoBox {
	return GeoBox{
		MinCoord: GeoCoord{Lat: math.Min(b.MinCoord.Lat, c.Lat), Lon: math.Min(b.MinCoord.Lon, c.Lon)},
		MaxCoord: GeoCoord{Lat: math.Max(b.MaxCoord.Lat, c.Lat), Lon: math.Max(b.MaxCoord.Lon, c.Lon)},
	}
}

func (b GeoBox) Union(other GeoBox) GeoBox {
	return b.Extend(other.MinCoord).Extend(other.MaxCoord)
}

func (b GeoBox) Intersects(other GeoBox) bool {
	return b.ToOrbBound().Intersects(other.ToOrbBound())
}

func (b GeoBox) Contains(c GeoCoord) bool {
	return c.Lat >= b.MinCoord.Lat && c.Lat <= b.MaxCoord.Lat &&
		c.Lon >= b.MinCoord.Lon && c.Lon <= b.MaxCoord.Lon
}

func (b GeoBox) ToOrbBound() orb.Bound {
	return orb.Bound{Min: b.MinCoord.Point(), Max: b.MaxCoord.Point()}
}

func (b GeoBox) String() string {
	return fmt.Sprintf("[%s - %s]", b.MinCoord, b.MaxCoord)
}

// CellWidthAndHeightForLevel estimates the cell dimensions (in degrees) for
// the given zoom level: width and height halve with every level, starting
// from a full 360x180 degree world cell at level 0. Mirrors the cell-level
// halving convention used by AreaIndex and OptimizedWaysLowZoom.
func CellWidthAndHeightForLevel(level uint) (width, height float64) {
	divisor := math.Pow(2, float64(level))
	return 360.0 / divisor, 180.0 / divisor
}
