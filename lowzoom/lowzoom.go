// Package lowzoom implements the Optimised Low-Zoom Ways Index: a
// level-keyed secondary index of pre-simplified way geometry, used to avoid
// full-detail geometry loads when rendering or querying at overview scales.
// Geometry is simplified per level with orb/simplify's Douglas-Peucker
// pass before being persisted.
package lowzoom

import (
	"path/filepath"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"

	"osmscout/common"
	"osmscout/fileio"
)

// WayEntry is one way's contribution to the index at build time.
type WayEntry struct {
	TypeId uint32
	Offset uint64
	Points []common.GeoCoord
}

// SimplifiedWay is one simplified geometry returned by GetWays, still
// addressable back to its full-detail record via Offset.
type SimplifiedWay struct {
	Offset uint64
	Points []common.GeoCoord
}

type level struct {
	magnification uint
	tolerance     float64
	byType        map[uint32][]SimplifiedWay
}

// Builder accumulates way entries for one or more overview levels and then
// simplifies and writes them in one pass.
type Builder struct {
	levels []buildLevel
}

type buildLevel struct {
	magnification uint
	tolerance     float64 // Douglas-Peucker threshold, in degrees
	entries       []WayEntry
}

func NewBuilder() *Builder {
	return &Builder{}
}

// AddLevel registers an overview level (identified by its magnification /
// zoom) with the simplification tolerance to apply and the ways to include.
func (b *Builder) AddLevel(magnification uint, tolerance float64, entries []WayEntry) {
	b.levels = append(b.levels, buildLevel{magnification: magnification, tolerance: tolerance, entries: entries})
}

// StoreToFile simplifies every level's geometry with Douglas-Peucker at its
// configured tolerance and writes the result to filename.
func (b *Builder) StoreToFile(dir, filename string) error {
	w := &fileio.Writer{}
	if err := w.Open(filepath.Join(dir, filename)); err != nil {
		return err
	}

	sort.Slice(b.levels, func(i, j int) bool { return b.levels[i].magnification < b.levels[j].magnification })

	if err := w.WriteUvarint(uint64(len(b.levels))); err != nil {
		return err
	}

	for _, lv := range b.levels {
		if err := w.WriteUvarint(uint64(lv.magnification)); err != nil {
			return err
		}

		byType := map[uint32][]WayEntry{}
		for _, e := range lv.entries {
			byType[e.TypeId] = append(byType[e.TypeId], e)
		}
		typeIds := make([]uint32, 0, len(byType))
		for id := range byType {
			typeIds = append(typeIds, id)
		}
		sort.Slice(typeIds, func(i, j int) bool { return typeIds[i] < typeIds[j] })

		if err := w.WriteUvarint(uint64(len(typeIds))); err != nil {
			return err
		}
		for _, typeId := range typeIds {
			if err := w.WriteUint32(typeId); err != nil {
				return err
			}
			entries := byType[typeId]
			if err := w.WriteUvarint(uint64(len(entries))); err != nil {
				return err
			}
			for _, e := range entries {
				simplified := simplifyPoints(lv.tolerance, e.Points)
				if err := w.WriteFileOffset(e.Offset, 5); err != nil {
					return err
				}
				if err := writeGeoCoords(w, simplified); err != nil {
					return err
				}
			}
		}
	}

	return w.Close()
}

func simplifyPoints(tolerance float64, points []common.GeoCoord) []common.GeoCoord {
	if len(points) < 3 {
		return points
	}
	ls := make(orb.LineString, len(points))
	for i, p := range points {
		ls[i] = p.Point()
	}
	reduced := simplify.DouglasPeucker(tolerance).Simplify(ls)
	result := make([]common.GeoCoord, 0, len(reduced.(orb.LineString)))
	for _, pt := range reduced.(orb.LineString) {
		result = append(result, common.GeoCoord{Lat: pt[1], Lon: pt[0]})
	}
	return result
}

func writeGeoCoords(w *fileio.Writer, points []common.GeoCoord) error {
	if err := w.WriteUvarint(uint64(len(points))); err != nil {
		return err
	}
	for _, p := range points {
		if err := w.WriteCoord(p); err != nil {
			return err
		}
	}
	return nil
}

func readGeoCoords(s *fileio.Scanner) ([]common.GeoCoord, error) {
	n, err := s.ReadUvarint()
	if err != nil {
		return nil, err
	}
	points := make([]common.GeoCoord, 0, n)
	for i := uint64(0); i < n; i++ {
		c, err := s.ReadCoord()
		if err != nil {
			return nil, err
		}
		points = append(points, c)
	}
	return points, nil
}

// Index is a loaded, query-ready low-zoom ways index.
type Index struct {
	levels []level // ascending by magnification
}

func LoadFromFile(dir, filename string) (*Index, error) {
	s := &fileio.Scanner{}
	if err := s.Open(filepath.Join(dir, filename), fileio.Sequential, false); err != nil {
		return nil, err
	}
	defer s.Close()

	levelCount, err := s.ReadUvarint()
	if err != nil {
		return nil, err
	}

	idx := &Index{}
	for i := uint64(0); i < levelCount; i++ {
		mag, err := s.ReadUvarint()
		if err != nil {
			return nil, err
		}
		lv := level{magnification: uint(mag), byType: map[uint32][]SimplifiedWay{}}

		typeCount, err := s.ReadUvarint()
		if err != nil {
			return nil, err
		}
		for j := uint64(0); j < typeCount; j++ {
			typeId, err := s.ReadUint32()
			if err != nil {
				return nil, err
			}
			wayCount, err := s.ReadUvarint()
			if err != nil {
				return nil, err
			}
			ways := make([]SimplifiedWay, 0, wayCount)
			for k := uint64(0); k < wayCount; k++ {
				offset, err := s.ReadFileOffset(5)
				if err != nil {
					return nil, err
				}
				points, err := readGeoCoords(s)
				if err != nil {
					return nil, err
				}
				ways = append(ways, SimplifiedWay{Offset: offset, Points: points})
			}
			lv.byType[uint32(typeId)] = ways
		}
		idx.levels = append(idx.levels, lv)
	}

	return idx, nil
}

// GetWays selects the persisted level closest below magnification and
// returns the simplified ways for every requested type found there.
// loadedTypes marks which of typeIds were actually satisfied from this
// index, so the caller knows which remaining types need the full-detail
// AreaIndex fallback.
func (idx *Index) GetWays(magnification common.Magnification, typeIds map[uint32]bool) (ways map[uint32][]SimplifiedWay, loadedTypes map[uint32]bool, err error) {
	lv := idx.closestLevelBelow(magnification.Level)
	if lv == nil {
		return nil, map[uint32]bool{}, nil
	}

	ways = map[uint32][]SimplifiedWay{}
	loadedTypes = map[uint32]bool{}
	for typeId := range typeIds {
		if list, ok := lv.byType[typeId]; ok {
			ways[typeId] = list
			loadedTypes[typeId] = true
		}
	}
	return ways, loadedTypes, nil
}

func (idx *Index) closestLevelBelow(maxLevel uint) *level {
	var best *level
	for i := range idx.levels {
		lv := &idx.levels[i]
		if lv.magnification <= maxLevel {
			if best == nil || lv.magnification > best.magnification {
				best = lv
			}
		}
	}
	return best
}
