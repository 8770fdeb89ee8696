// Package routenode implements the persistent routing-graph adjacency
// record and its two on-disk files: a sequential `route.dat`
// store of RouteNode records, and a fully-loaded sorted `route.idx` mapping
// stable route-node ids to their `route.dat` offset.
// The index is loaded wholesale into memory and binary-searched rather
// than random-access-queried like the area index, since the route-node
// count is small (one entry per routable junction).
package routenode

import (
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"osmscout/common"
	"osmscout/feature"
	"osmscout/fileio"
	"osmscout/objects"
)

// pathOffsetBytes is route.dat's declared FileOffset width for path targets.
const pathOffsetBytes = 5

// Path is one directed traversal choice out of a RouteNode.
type Path struct {
	TargetOffset uint64             // route.dat offset of the destination RouteNode
	Distance     float64            // meters
	Access       feature.AccessMask // which modes/directions may use this path
	Restricted   bool               // true when the backing object limits access (private/destination-only)
	ObjectIndex  int                // index into RouteNode.Objects: which incident object this path traverses
}

// Exclude forbids a turn from a specific incident object onto a specific
// path index (e.g. a no-left-turn restriction).
type Exclude struct {
	SourceObjectIndex int
	TargetPathIndex   int
}

// RouteNode is one junction in the routing graph.
type RouteNode struct {
	Id      int64
	Coord   common.GeoCoord
	Objects []objects.FileRef // incident ways/areas supplying geometric attributes
	Paths   []Path
	Excludes []Exclude
}

// Writer appends RouteNode records to route.dat.
type Writer struct {
	w *fileio.Writer
}

func NewWriter(dir string) (*Writer, error) {
	w := &fileio.Writer{}
	if err := w.Open(filepath.Join(dir, "route.dat")); err != nil {
		return nil, errors.Wrap(err, "routenode: opening route.dat")
	}
	return &Writer{w: w}, nil
}

// Write appends rn and returns the offset it was written at.
func (rw *Writer) Write(rn RouteNode) (uint64, error) {
	offset := uint64(rw.w.GetPos())
	if err := rw.writeRecord(rn); err != nil {
		return 0, err
	}
	return offset, nil
}

// Patch overwrites the record previously written at offset with rn's
// current contents. It is the import pipeline's second pass over the
// route-node graph (osmscout/importing.buildRouteGraph): paths reference
// sibling route nodes by file offset, but those offsets are only known
// once every node has been written once, so the graph is written twice —
// first with placeholder path targets to learn each node's offset, then
// patched in place now that every target offset is known. This only works
// because the on-disk layout's path-offset field is a fixed
// pathOffsetBytes width regardless of the value it carries, so patching
// never changes a record's size.
func (rw *Writer) Patch(offset uint64, rn RouteNode) error {
	if err := rw.w.SetPos(int64(offset)); err != nil {
		return err
	}
	return rw.writeRecord(rn)
}

func (rw *Writer) writeRecord(rn RouteNode) error {
	if err := rw.w.WriteVarint(rn.Id); err != nil {
		return err
	}
	if err := rw.w.WriteCoord(rn.Coord); err != nil {
		return err
	}

	if err := rw.w.WriteUvarint(uint64(len(rn.Objects))); err != nil {
		return err
	}
	for _, obj := range rn.Objects {
		if err := rw.w.WriteUint8(uint8(obj.Kind)); err != nil {
			return err
		}
		if err := rw.w.WriteFileOffset(obj.Offset, pathOffsetBytes); err != nil {
			return err
		}
	}

	if err := rw.w.WriteUvarint(uint64(len(rn.Paths))); err != nil {
		return err
	}
	for _, p := range rn.Paths {
		if err := rw.w.WriteFileOffset(p.TargetOffset, pathOffsetBytes); err != nil {
			return err
		}
		if err := rw.w.WriteDouble(p.Distance); err != nil {
			return err
		}
		if err := rw.w.WriteUint8(uint8(p.Access)); err != nil {
			return err
		}
		if err := rw.w.WriteBool(p.Restricted); err != nil {
			return err
		}
		if err := rw.w.WriteUvarint(uint64(p.ObjectIndex)); err != nil {
			return err
		}
	}

	if err := rw.w.WriteUvarint(uint64(len(rn.Excludes))); err != nil {
		return err
	}
	for _, ex := range rn.Excludes {
		if err := rw.w.WriteUvarint(uint64(ex.SourceObjectIndex)); err != nil {
			return err
		}
		if err := rw.w.WriteUvarint(uint64(ex.TargetPathIndex)); err != nil {
			return err
		}
	}

	return nil
}

func (rw *Writer) Close() error { return rw.w.Close() }

// defaultRouteNodeCacheSize bounds the in-memory RouteNode LRU a Reader
// keeps by default.
const defaultRouteNodeCacheSize = 4096

// Reader provides random-access loads of RouteNode records from route.dat,
// backed by an LRU cache of recently-loaded records.
type Reader struct {
	s     *fileio.Scanner
	mu    sync.Mutex
	cache *common.LRUCache[uint64, *RouteNode]
}

func NewReader(dir string) (*Reader, error) {
	return NewReaderWithCacheSize(dir, defaultRouteNodeCacheSize)
}

// NewReaderWithCacheSize opens route.dat with an explicit LRU capacity.
func NewReaderWithCacheSize(dir string, cacheSize int) (*Reader, error) {
	s := &fileio.Scanner{}
	if err := s.Open(filepath.Join(dir, "route.dat"), fileio.Random, false); err != nil {
		return nil, errors.Wrap(err, "routenode: opening route.dat")
	}
	return &Reader{s: s, cache: common.NewLRUCache[uint64, *RouteNode](cacheSize)}, nil
}

func (rr *Reader) Close() error { return rr.s.Close() }

// ReadAt loads the RouteNode record at offset, consulting the LRU cache
// first. The scanner itself is guarded by a component-local mutex so
// concurrent callers may not interleave seek+read sequences.
func (rr *Reader) ReadAt(offset uint64) (*RouteNode, error) {
	if rn, ok := rr.cache.Get(offset); ok {
		return rn, nil
	}

	rr.mu.Lock()
	defer rr.mu.Unlock()

	// Another goroutine may have populated the cache while we waited on
	// the lock.
	if rn, ok := rr.cache.Get(offset); ok {
		return rn, nil
	}

	rn, err := rr.readAtLocked(offset)
	if err != nil {
		return nil, err
	}
	rr.cache.Put(offset, rn)
	return rn, nil
}

func (rr *Reader) readAtLocked(offset uint64) (*RouteNode, error) {
	if err := rr.s.SetPos(int64(offset)); err != nil {
		return nil, err
	}

	id, err := rr.s.ReadVarint()
	if err != nil {
		return nil, err
	}
	coord, err := rr.s.ReadCoord()
	if err != nil {
		return nil, err
	}

	rn := &RouteNode{Id: id, Coord: coord}

	objCount, err := rr.s.ReadUvarint()
	if err != nil {
		return nil, err
	}
	rn.Objects = make([]objects.FileRef, 0, objCount)
	for i := uint64(0); i < objCount; i++ {
		kind, err := rr.s.ReadUint8()
		if err != nil {
			return nil, err
		}
		off, err := rr.s.ReadFileOffset(pathOffsetBytes)
		if err != nil {
			return nil, err
		}
		rn.Objects = append(rn.Objects, objects.FileRef{Offset: off, Kind: objects.Kind(kind)})
	}

	pathCount, err := rr.s.ReadUvarint()
	if err != nil {
		return nil, err
	}
	rn.Paths = make([]Path, 0, pathCount)
	for i := uint64(0); i < pathCount; i++ {
		target, err := rr.s.ReadFileOffset(pathOffsetBytes)
		if err != nil {
			return nil, err
		}
		distance, err := rr.s.ReadDouble()
		if err != nil {
			return nil, err
		}
		access, err := rr.s.ReadUint8()
		if err != nil {
			return nil, err
		}
		restricted, err := rr.s.ReadBool()
		if err != nil {
			return nil, err
		}
		objIdx, err := rr.s.ReadUvarint()
		if err != nil {
			return nil, err
		}
		rn.Paths = append(rn.Paths, Path{
			TargetOffset: target,
			Distance:     distance,
			Access:       feature.AccessMask(access),
			Restricted:   restricted,
			ObjectIndex:  int(objIdx),
		})
	}

	excludeCount, err := rr.s.ReadUvarint()
	if err != nil {
		return nil, err
	}
	rn.Excludes = make([]Exclude, 0, excludeCount)
	for i := uint64(0); i < excludeCount; i++ {
		src, err := rr.s.ReadUvarint()
		if err != nil {
			return nil, err
		}
		target, err := rr.s.ReadUvarint()
		if err != nil {
			return nil, err
		}
		rn.Excludes = append(rn.Excludes, Exclude{SourceObjectIndex: int(src), TargetPathIndex: int(target)})
	}

	return rn, nil
}

// indexEntry is one route.idx record: a stable node id and its route.dat
// offset.
type indexEntry struct {
	id     int64
	offset uint64
}

// Index is the fully-loaded id -> offset mapping for route.dat, sorted by
// id and binary-searched at query time.
type Index struct {
	entries []indexEntry
}

// BuildIndex sorts id/offset pairs collected during import and writes them
// to route.idx.
func BuildIndex(dir string, pairs map[int64]uint64) error {
	entries := make([]indexEntry, 0, len(pairs))
	for id, offset := range pairs {
		entries = append(entries, indexEntry{id: id, offset: offset})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })

	w := &fileio.Writer{}
	if err := w.Open(filepath.Join(dir, "route.idx")); err != nil {
		return errors.Wrap(err, "routenode: opening route.idx")
	}

	if err := w.WriteUvarint(uint64(len(entries))); err != nil {
		return err
	}
	var prevId int64
	for _, e := range entries {
		if err := w.WriteVarint(e.id - prevId); err != nil {
			return err
		}
		prevId = e.id
		if err := w.WriteFileOffset(e.offset, pathOffsetBytes); err != nil {
			return err
		}
	}

	return w.Close()
}

// LoadIndex reads route.idx wholesale into memory.
func LoadIndex(dir string) (*Index, error) {
	s := &fileio.Scanner{}
	if err := s.Open(filepath.Join(dir, "route.idx"), fileio.Sequential, false); err != nil {
		return nil, errors.Wrap(err, "routenode: opening route.idx")
	}
	defer s.Close()

	count, err := s.ReadUvarint()
	if err != nil {
		return nil, err
	}

	idx := &Index{entries: make([]indexEntry, 0, count)}
	var id int64
	for i := uint64(0); i < count; i++ {
		delta, err := s.ReadVarint()
		if err != nil {
			return nil, err
		}
		id += delta
		offset, err := s.ReadFileOffset(pathOffsetBytes)
		if err != nil {
			return nil, err
		}
		idx.entries = append(idx.entries, indexEntry{id: id, offset: offset})
	}

	return idx, nil
}

// OffsetForId binary-searches the loaded index for id's route.dat offset.
func (idx *Index) OffsetForId(id int64) (uint64, bool) {
	i := sort.Search(len(idx.entries), func(i int) bool { return idx.entries[i].id >= id })
	if i < len(idx.entries) && idx.entries[i].id == id {
		return idx.entries[i].offset, true
	}
	return 0, false
}

func (idx *Index) Len() int { return len(idx.entries) }
