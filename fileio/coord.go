package fileio

import (
	"math"

	"osmscout/common"
)

// Coordinates are packed as two 32-bit unsigned fixed-point values spanning
// the full geographic range: longitude over [-180, 180) and latitude over
// [-90, 90), each scaled to the full uint32 range. This gives a
// resolution of roughly 360/2^32 degrees (~8.4e-8 degrees, sub-centimeter at
// the equator), comfortably below OSM's own coordinate precision.
const (
	lonRange = 360.0
	latRange = 180.0
)

func EncodeCoord(c common.GeoCoord) (lonBits, latBits uint32) {
	lonBits = uint32(((c.Lon + 180.0) / lonRange) * math.MaxUint32)
	latBits = uint32(((c.Lat + 90.0) / latRange) * math.MaxUint32)
	return
}

func DecodeCoord(lonBits, latBits uint32) common.GeoCoord {
	lon := float64(lonBits)/math.MaxUint32*lonRange - 180.0
	lat := float64(latBits)/math.MaxUint32*latRange - 90.0
	return common.GeoCoord{Lat: lat, Lon: lon}
}
