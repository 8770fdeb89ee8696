// Package areaindex implements the quadtree-tiled bitmap spatial index:
// for each indexed type at a given zoom level, a dense bitmap of cells
// whose non-empty entries point into a packed, delta-encoded list of
// object file-offsets.
package areaindex

import (
	"path/filepath"
	"sort"
	"sync"

	"osmscout/common"
	"osmscout/fileio"
)

// dataOffsetBytes is this index's declared FileOffset width; 5 bytes
// covers databases up to 1 TiB.
const dataOffsetBytes = 5

// Entry is one object's placement for indexing: its registered type id, its
// FileOffset in the owning objects store, and its bounding box.
type Entry struct {
	TypeId uint32
	Offset uint64
	Box    common.GeoBox
}

type typeBitmap struct {
	typeId   uint32
	extent   common.CellExtent
	hasBound bool
	pending  []pendingEntry
}

// Index is a single-zoom-level bitmap index covering a set of types; the
// import pipeline constructs one Index per zoom level it wants indexed.
type Index struct {
	level           uint
	cellWidth       float64
	cellHeight      float64
	byType          map[uint32]*typeBitmap

	mu       sync.Mutex
	scanner  *fileio.Scanner
	sections map[uint32]sectionHeader // type id -> where its section starts
}

type sectionHeader struct {
	bitmapOffset int64
	dataOffset   int64
	extent       common.CellExtent
}

func NewIndex(level uint) *Index {
	w, h := common.CellWidthAndHeightForLevel(level)
	return &Index{
		level:      level,
		cellWidth:  w,
		cellHeight: h,
		byType:     map[uint32]*typeBitmap{},
	}
}

// Add places one entry into its type's bitmap, once per cell its bounding
// box touches, so a later GetOffsets finds it from any covered cell;
// StoreToFile finalises the bitmap layout once all entries have been added.
func (idx *Index) Add(e Entry) {
	tb, ok := idx.byType[e.TypeId]
	if !ok {
		tb = &typeBitmap{typeId: e.TypeId}
		idx.byType[e.TypeId] = tb
	}
	extent := common.NewCellExtent(e.Box, idx.cellWidth, idx.cellHeight)
	for y := extent.Min.Y(); y <= extent.Max.Y(); y++ {
		for x := extent.Min.X(); x <= extent.Max.X(); x++ {
			cell := common.CellIndex{x, y}
			tb.pending = append(tb.pending, pendingEntry{cell: cell, offset: e.Offset})
			tb.extendBound(cell)
		}
	}
}

type pendingEntry struct {
	cell   common.CellIndex
	offset uint64
}

func (tb *typeBitmap) extendBound(cell common.CellIndex) {
	if !tb.hasBound {
		tb.extent = common.CellExtent{Min: cell, Max: cell}
		tb.hasBound = true
		return
	}
	if cell.X() < tb.extent.Min.X() {
		tb.extent.Min[0] = cell.X()
	}
	if cell.X() > tb.extent.Max.X() {
		tb.extent.Max[0] = cell.X()
	}
	if cell.Y() < tb.extent.Min.Y() {
		tb.extent.Min[1] = cell.Y()
	}
	if cell.Y() > tb.extent.Max.Y() {
		tb.extent.Max[1] = cell.Y()
	}
}

// StoreToFile builds the final bitmap/data layout for every type added via
// Add and writes it to filename.
func (idx *Index) StoreToFile(dir, filename string) error {
	w := &fileio.Writer{}
	if err := w.Open(filepath.Join(dir, filename)); err != nil {
		return err
	}

	typeIds := make([]uint32, 0, len(idx.byType))
	for id := range idx.byType {
		typeIds = append(typeIds, id)
	}
	sort.Slice(typeIds, func(i, j int) bool { return typeIds[i] < typeIds[j] })

	if err := w.WriteUvarint(uint64(idx.level)); err != nil {
		return err
	}
	if err := w.WriteUvarint(uint64(len(typeIds))); err != nil {
		return err
	}

	for _, id := range typeIds {
		tb := idx.byType[id]
		if err := writeTypeBitmap(w, tb); err != nil {
			return err
		}
	}

	return w.Close()
}

func writeTypeBitmap(w *fileio.Writer, tb *typeBitmap) error {
	cellsByCoord := map[common.CellIndex][]uint64{}
	for _, p := range tb.pending {
		cellsByCoord[p.cell] = append(cellsByCoord[p.cell], p.offset)
	}

	width := tb.extent.Width()
	height := tb.extent.Height()
	if len(tb.pending) == 0 {
		width, height = 0, 0
	}

	if err := w.WriteUint32(tb.typeId); err != nil {
		return err
	}
	if err := w.WriteVarint(int64(tb.extent.Min.X())); err != nil {
		return err
	}
	if err := w.WriteVarint(int64(tb.extent.Max.X())); err != nil {
		return err
	}
	if err := w.WriteVarint(int64(tb.extent.Min.Y())); err != nil {
		return err
	}
	if err := w.WriteVarint(int64(tb.extent.Max.Y())); err != nil {
		return err
	}

	// Build the packed data region first so each bitmap word can carry the
	// data-relative offset at which its cell's entries begin.
	var dataBuf []byte
	cellWordOffset := make([]uint64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			cell := common.CellIndex{tb.extent.Min.X() + x, tb.extent.Min.Y() + y}
			offsets, ok := cellsByCoord[cell]
			if !ok || len(offsets) == 0 {
				continue
			}
			sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
			cellWordOffset[y*width+x] = uint64(len(dataBuf)) + 1 // +1 so 0 stays "empty"
			dataBuf = appendUvarint(dataBuf, uint64(len(offsets)))
			var prev uint64
			for _, off := range offsets {
				delta := off - prev
				dataBuf = appendUvarint(dataBuf, delta)
				prev = off
			}
		}
	}

	if err := w.WriteUvarint(uint64(width)); err != nil {
		return err
	}
	if err := w.WriteUvarint(uint64(height)); err != nil {
		return err
	}
	for _, word := range cellWordOffset {
		if err := w.WriteFileOffset(word, dataOffsetBytes); err != nil {
			return err
		}
	}
	if err := w.WriteUvarint(uint64(len(dataBuf))); err != nil {
		return err
	}
	for _, b := range dataBuf {
		if err := w.WriteUint8(b); err != nil {
			return err
		}
	}
	return nil
}

func appendUvarint(buf []byte, v uint64) []byte {
	var tmp [fileio.MaxVarintLen64]byte
	n := fileio.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

// LoadFromFile opens filename for random-access querying. The returned
// Index must be closed when no longer needed.
func LoadFromFile(dir, filename string) (*Index, error) {
	s := &fileio.Scanner{}
	if err := s.Open(filepath.Join(dir, filename), fileio.Random, false); err != nil {
		return nil, err
	}

	level, err := s.ReadUvarint()
	if err != nil {
		return nil, err
	}
	typeCount, err := s.ReadUvarint()
	if err != nil {
		return nil, err
	}

	w, h := common.CellWidthAndHeightForLevel(uint(level))
	idx := &Index{
		level:      uint(level),
		cellWidth:  w,
		cellHeight: h,
		scanner:    s,
		sections:   map[uint32]sectionHeader{},
	}

	for i := uint64(0); i < typeCount; i++ {
		typeId, err := s.ReadUint32()
		if err != nil {
			return nil, err
		}
		minX, err := s.ReadVarint()
		if err != nil {
			return nil, err
		}
		maxX, err := s.ReadVarint()
		if err != nil {
			return nil, err
		}
		minY, err := s.ReadVarint()
		if err != nil {
			return nil, err
		}
		maxY, err := s.ReadVarint()
		if err != nil {
			return nil, err
		}
		extent := common.CellExtent{Min: common.CellIndex{int(minX), int(minY)}, Max: common.CellIndex{int(maxX), int(maxY)}}

		width, err := s.ReadUvarint()
		if err != nil {
			return nil, err
		}
		height, err := s.ReadUvarint()
		if err != nil {
			return nil, err
		}

		bitmapOffset := s.Pos()
		wordBytes := int64(width * height * dataOffsetBytes)
		if err := s.SetPos(bitmapOffset + wordBytes); err != nil {
			return nil, err
		}

		dataLen, err := s.ReadUvarint()
		if err != nil {
			return nil, err
		}
		dataOffset := s.Pos()
		if err := s.SetPos(dataOffset + int64(dataLen)); err != nil {
			return nil, err
		}

		idx.sections[uint32(typeId)] = sectionHeader{
			bitmapOffset: bitmapOffset,
			dataOffset:   dataOffset,
			extent:       extent,
		}
	}

	return idx, nil
}

func (idx *Index) Close() error {
	if idx.scanner == nil {
		return nil
	}
	return idx.scanner.Close()
}

// GetOffsets derives the cell range
// covered by box, clamp it to each matching type's persisted extent, and
// for each cell decode its (possibly empty) offset list. The result set is
// deduplicated across types and cells. Reads are serialised with an
// index-scoped mutex.
func (idx *Index) GetOffsets(typeIds map[uint32]bool, box common.GeoBox) (map[uint64]struct{}, error) {
	result := map[uint64]struct{}{}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	queryExtent := common.NewCellExtent(box, idx.cellWidth, idx.cellHeight)

	for typeId := range typeIds {
		section, ok := idx.sections[typeId]
		if !ok {
			continue
		}
		extent := queryExtent.ClampTo(section.extent)
		if extent.Width() <= 0 || extent.Height() <= 0 {
			continue
		}
		sectionWidth := section.extent.Width()

		for y := extent.Min.Y(); y <= extent.Max.Y(); y++ {
			for x := extent.Min.X(); x <= extent.Max.X(); x++ {
				localX := x - section.extent.Min.X()
				localY := y - section.extent.Min.Y()
				wordIndex := int64(localY*sectionWidth + localX)

				if err := idx.scanner.SetPos(section.bitmapOffset + wordIndex*dataOffsetBytes); err != nil {
					return nil, err
				}
				word, err := idx.scanner.ReadFileOffset(dataOffsetBytes)
				if err != nil {
					return nil, err
				}
				if word == 0 {
					continue
				}

				if err := idx.scanner.SetPos(section.dataOffset + int64(word-1)); err != nil {
					return nil, err
				}
				count, err := idx.scanner.ReadUvarint()
				if err != nil {
					return nil, err
				}
				var prev uint64
				for i := uint64(0); i < count; i++ {
					delta, err := idx.scanner.ReadUvarint()
					if err != nil {
						return nil, err
					}
					prev += delta
					result[prev] = struct{}{}
				}
			}
		}
	}

	return result, nil
}
