package objects

import (
	"path/filepath"

	"github.com/pkg/errors"

	"osmscout/common"
	"osmscout/feature"
	"osmscout/fileio"
	"osmscout/types"
)

// NodeWriter appends sequential records to nodes.dat.
type NodeWriter struct {
	w *fileio.Writer
}

func NewNodeWriter(dir string) (*NodeWriter, error) {
	w := &fileio.Writer{}
	if err := w.Open(filepath.Join(dir, "nodes.dat")); err != nil {
		return nil, err
	}
	return &NodeWriter{w: w}, nil
}

// Write appends n and returns the FileOffset it was written at.
func (nw *NodeWriter) Write(n *Node) (uint64, error) {
	offset := uint64(nw.w.GetPos())
	if err := nw.w.WriteUint32(n.Buffer.Type().NodeId); err != nil {
		return 0, err
	}
	if err := nw.w.WriteCoord(n.Coord); err != nil {
		return 0, err
	}
	if err := n.Buffer.Write(nw.w, nil); err != nil {
		return 0, err
	}
	return offset, nil
}

func (nw *NodeWriter) Close() error { return nw.w.Close() }

// NodeReader supports random-access reads of nodes.dat by FileOffset.
type NodeReader struct {
	s          *fileio.Scanner
	typeConfig *types.TypeConfig
}

func NewNodeReader(dir string, typeConfig *types.TypeConfig) (*NodeReader, error) {
	s := &fileio.Scanner{}
	if err := s.Open(filepath.Join(dir, "nodes.dat"), fileio.Random, false); err != nil {
		return nil, err
	}
	return &NodeReader{s: s, typeConfig: typeConfig}, nil
}

func (nr *NodeReader) ReadAt(offset uint64) (*Node, error) {
	if err := nr.s.SetPos(int64(offset)); err != nil {
		return nil, err
	}
	nodeId, err := nr.s.ReadUint32()
	if err != nil {
		return nil, err
	}
	t, ok := nr.typeConfig.TypeByNodeId(nodeId)
	if !ok {
		return nil, errors.Errorf("objects: unknown node type id %d at offset %d", nodeId, offset)
	}
	coord, err := nr.s.ReadCoord()
	if err != nil {
		return nil, err
	}
	buf := feature.NewValueBuffer()
	if err := buf.Read(nr.s, t); err != nil {
		return nil, err
	}
	return &Node{Ref: FileRef{Offset: offset, Kind: KindNode}, Buffer: buf, Coord: coord}, nil
}

func (nr *NodeReader) Close() error { return nr.s.Close() }

// WayWriter appends sequential records to ways.dat.
type WayWriter struct{ w *fileio.Writer }

func NewWayWriter(dir string) (*WayWriter, error) {
	w := &fileio.Writer{}
	if err := w.Open(filepath.Join(dir, "ways.dat")); err != nil {
		return nil, err
	}
	return &WayWriter{w: w}, nil
}

func (ww *WayWriter) Write(way *Way) (uint64, error) {
	if len(way.Nodes) < 2 {
		return 0, errors.Errorf("objects: way needs at least 2 nodes, got %d", len(way.Nodes))
	}
	offset := uint64(ww.w.GetPos())
	if err := ww.w.WriteUint32(way.Buffer.Type().WayId); err != nil {
		return 0, err
	}
	if err := writePoints(ww.w, way.Nodes); err != nil {
		return 0, err
	}
	if err := way.Buffer.Write(ww.w, nil); err != nil {
		return 0, err
	}
	return offset, nil
}

func (ww *WayWriter) Close() error { return ww.w.Close() }

type WayReader struct {
	s          *fileio.Scanner
	typeConfig *types.TypeConfig
}

func NewWayReader(dir string, typeConfig *types.TypeConfig) (*WayReader, error) {
	s := &fileio.Scanner{}
	if err := s.Open(filepath.Join(dir, "ways.dat"), fileio.Random, false); err != nil {
		return nil, err
	}
	return &WayReader{s: s, typeConfig: typeConfig}, nil
}

func (wr *WayReader) ReadAt(offset uint64) (*Way, error) {
	if err := wr.s.SetPos(int64(offset)); err != nil {
		return nil, err
	}
	wayId, err := wr.s.ReadUint32()
	if err != nil {
		return nil, err
	}
	t, ok := wr.typeConfig.TypeByWayId(wayId)
	if !ok {
		return nil, errors.Errorf("objects: unknown way type id %d at offset %d", wayId, offset)
	}
	points, err := readPoints(wr.s)
	if err != nil {
		return nil, err
	}
	buf := feature.NewValueBuffer()
	if err := buf.Read(wr.s, t); err != nil {
		return nil, err
	}
	return &Way{Ref: FileRef{Offset: offset, Kind: KindWay}, Buffer: buf, Nodes: points}, nil
}

func (wr *WayReader) Close() error { return wr.s.Close() }

// AreaWriter appends sequential records to areas.dat.
type AreaWriter struct{ w *fileio.Writer }

func NewAreaWriter(dir string) (*AreaWriter, error) {
	w := &fileio.Writer{}
	if err := w.Open(filepath.Join(dir, "areas.dat")); err != nil {
		return nil, err
	}
	return &AreaWriter{w: w}, nil
}

func (aw *AreaWriter) Write(area *Area) (uint64, error) {
	offset := uint64(aw.w.GetPos())
	if err := aw.w.WriteUint32(area.Buffer.Type().AreaId); err != nil {
		return 0, err
	}
	if err := aw.w.WriteUvarint(uint64(len(area.Rings))); err != nil {
		return 0, err
	}
	for _, ring := range area.Rings {
		if err := aw.writeRing(ring); err != nil {
			return 0, err
		}
	}
	if err := area.Buffer.Write(aw.w, nil); err != nil {
		return 0, err
	}
	return offset, nil
}

func (aw *AreaWriter) writeRing(ring Ring) error {
	if err := aw.w.WriteUint8(ring.Depth); err != nil {
		return err
	}
	if err := writePoints(aw.w, ring.Nodes); err != nil {
		return err
	}
	hasBuffer := ring.Buffer != nil
	if err := aw.w.WriteBool(hasBuffer); err != nil {
		return err
	}
	if hasBuffer {
		if err := aw.w.WriteUint32(ring.Buffer.Type().AreaId); err != nil {
			return err
		}
		if err := ring.Buffer.Write(aw.w, nil); err != nil {
			return err
		}
	}
	return nil
}

func (aw *AreaWriter) Close() error { return aw.w.Close() }

type AreaReader struct {
	s          *fileio.Scanner
	typeConfig *types.TypeConfig
}

func NewAreaReader(dir string, typeConfig *types.TypeConfig) (*AreaReader, error) {
	s := &fileio.Scanner{}
	if err := s.Open(filepath.Join(dir, "areas.dat"), fileio.Random, false); err != nil {
		return nil, err
	}
	return &AreaReader{s: s, typeConfig: typeConfig}, nil
}

func (ar *AreaReader) ReadAt(offset uint64) (*Area, error) {
	if err := ar.s.SetPos(int64(offset)); err != nil {
		return nil, err
	}
	areaId, err := ar.s.ReadUint32()
	if err != nil {
		return nil, err
	}
	t, ok := ar.typeConfig.TypeByAreaId(areaId)
	if !ok {
		return nil, errors.Errorf("objects: unknown area type id %d at offset %d", areaId, offset)
	}
	ringCount, err := ar.s.ReadUvarint()
	if err != nil {
		return nil, err
	}
	rings := make([]Ring, 0, ringCount)
	for i := uint64(0); i < ringCount; i++ {
		ring, err := ar.readRing()
		if err != nil {
			return nil, err
		}
		rings = append(rings, ring)
	}
	buf := feature.NewValueBuffer()
	if err := buf.Read(ar.s, t); err != nil {
		return nil, err
	}
	return &Area{Ref: FileRef{Offset: offset, Kind: KindArea}, Buffer: buf, Rings: rings}, nil
}

func (ar *AreaReader) readRing() (Ring, error) {
	var ring Ring
	depth, err := ar.s.ReadUint8()
	if err != nil {
		return ring, err
	}
	ring.Depth = depth

	points, err := readPoints(ar.s)
	if err != nil {
		return ring, err
	}
	ring.Nodes = points

	hasBuffer, err := ar.s.ReadBool()
	if err != nil {
		return ring, err
	}
	if hasBuffer {
		areaId, err := ar.s.ReadUint32()
		if err != nil {
			return ring, err
		}
		t, ok := ar.typeConfig.TypeByAreaId(areaId)
		if !ok {
			return ring, errors.Errorf("objects: unknown ring type id %d", areaId)
		}
		buf := feature.NewValueBuffer()
		if err := buf.Read(ar.s, t); err != nil {
			return ring, err
		}
		ring.Buffer = buf
	}
	return ring, nil
}

func (ar *AreaReader) Close() error { return ar.s.Close() }

func writePoints(w *fileio.Writer, points []common.Point) error {
	if err := w.WriteUvarint(uint64(len(points))); err != nil {
		return err
	}
	for _, p := range points {
		if err := w.WriteVarint(p.Id); err != nil {
			return err
		}
		if err := w.WriteCoord(p.Coord); err != nil {
			return err
		}
	}
	return nil
}

func readPoints(s *fileio.Scanner) ([]common.Point, error) {
	n, err := s.ReadUvarint()
	if err != nil {
		return nil, err
	}
	points := make([]common.Point, 0, n)
	for i := uint64(0); i < n; i++ {
		id, err := s.ReadVarint()
		if err != nil {
			return nil, err
		}
		coord, err := s.ReadCoord()
		if err != nil {
			return nil, err
		}
		points = append(points, common.Point{Id: id, Coord: coord})
	}
	return points, nil
}
