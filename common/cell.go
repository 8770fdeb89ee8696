package common

import "math"

// CellIndex is a tile address in a regular grid of cellWidth x cellHeight
// degree cells.
type CellIndex [2]int

func GetCellIndexForCoordinate(lon, lat, cellWidth, cellHeight float64) CellIndex {
	return CellIndex{int(lon / cellWidth), int(lat / cellHeight)}
}

func (c CellIndex) X() int { return c[0] }
func (c CellIndex) Y() int { return c[1] }

// CellExtent is an inclusive min/max range of cells, used to describe the
// rectangular set of cells a GeoBox query touches.
type CellExtent struct {
	Min CellIndex
	Max CellIndex
}

func NewCellExtent(box GeoBox, cellWidth, cellHeight float64) CellExtent {
	return CellExtent{
		Min: GetCellIndexForCoordinate(box.MinCoord.Lon, box.MinCoord.Lat, cellWidth, cellHeight),
		Max: GetCellIndexForCoordinate(box.MaxCoord.Lon, box.MaxCoord.Lat, cellWidth, cellHeight),
	}
}

func (e CellExtent) Contains(cell CellIndex) bool {
	return cell.X() >= e.Min.X() && cell.X() <= e.Max.X() &&
		cell.Y() >= e.Min.Y() && cell.Y() <= e.Max.Y()
}

// ClampTo restricts this extent to lie within the given bounds, as AreaIndex
// does when a query box extends past the index's persisted cell range.
func (e CellExtent) ClampTo(bounds CellExtent) CellExtent {
	clamped := e
	if clamped.Min.X() < bounds.Min.X() {
		clamped.Min[0] = bounds.Min.X()
	}
	if clamped.Min.Y() < bounds.Min.Y() {
		clamped.Min[1] = bounds.Min.Y()
	}
	if clamped.Max.X() > bounds.Max.X() {
		clamped.Max[0] = bounds.Max.X()
	}
	if clamped.Max.Y() > bounds.Max.Y() {
		clamped.Max[1] = bounds.Max.Y()
	}
	return clamped
}

// Width and Height return the number of cells this extent spans in each
// dimension. A degenerate (single point) extent spans exactly one cell per
// axis, matching AreaIndex's "box reduced to a single point" boundary case.
func (e CellExtent) Width() int  { return e.Max.X() - e.Min.X() + 1 }
func (e CellExtent) Height() int { return e.Max.Y() - e.Min.Y() + 1 }

// OSMTileId is an integer tile address at a fixed OSM slippy-map
// magnification level.
type OSMTileId struct {
	Level uint
	X, Y  int
}

// Magnification expresses a zoom level as the number of tiles per axis at
// that level (2^level)
// referenced by the low-zoom index's getWays(Magnification, ...) contract.
type Magnification struct {
	Level uint
}

func (m Magnification) TilesPerAxis() int {
	tiles := 1
	for i := uint(0); i < m.Level; i++ {
		tiles *= 2
	}
	return tiles
}

// TileIdForCoord converts a coordinate to its Web Mercator slippy-map tile
// address at the given zoom level.
func TileIdForCoord(c GeoCoord, level uint) OSMTileId {
	n := float64(Magnification{Level: level}.TilesPerAxis())
	x := int((c.Lon + 180.0) / 360.0 * n)
	latRad := c.Lat * math.Pi / 180.0
	y := int((1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n)
	return OSMTileId{Level: level, X: x, Y: y}
}
