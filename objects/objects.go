// Package objects implements the Node/Way/Area/Ring data model and the
// sequential nodes.dat/ways.dat/areas.dat stores built on fileio.
// Each store is one flat, offset-addressed file of self-describing
// records (type id, feature buffer, geometry).
package objects

import (
	"osmscout/common"
	"osmscout/feature"
	"osmscout/types"
)

// Kind distinguishes which store an ObjectFileRef's offset lives in.
type Kind uint8

const (
	KindNode Kind = iota
	KindWay
	KindArea
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindWay:
		return "way"
	case KindArea:
		return "area"
	}
	return "unknown"
}

// FileRef is the stable, tagged cross-file pointer used throughout the
// routing graph, area indices and location service.
type FileRef struct {
	Offset uint64
	Kind   Kind
}

// Node is (ObjectFileRef, FeatureValueBuffer, GeoCoord).
type Node struct {
	Ref    FileRef
	Buffer *feature.ValueBuffer
	Coord  common.GeoCoord
}

// Way is (ObjectFileRef, FeatureValueBuffer, ordered Points >= 2). A Way
// closes iff the first and last point share an id, so a closed Way stores
// its start point again as its last point.
type Way struct {
	Ref    FileRef
	Buffer *feature.ValueBuffer
	Nodes  []common.Point
}

// IsClosed reports whether w's first and last node share the same stable id.
func (w *Way) IsClosed() bool {
	if len(w.Nodes) < 2 {
		return false
	}
	return w.Nodes[0].Id == w.Nodes[len(w.Nodes)-1].Id
}

// Ring is one closed boundary of an Area. Depth 0 is reserved
// "master", outer rings are depth 1, inner rings depth 2, and deeper rings
// alternate. Nodes never repeat the start point.
type Ring struct {
	Depth  uint8
	Buffer *feature.ValueBuffer // nil if this ring has no type of its own
	Nodes  []common.Point

	// OriginalType preserves the ring's type before any clip-region
	// override.
	OriginalType *types.TypeInfo
}

// Area is (ObjectFileRef, master FeatureValueBuffer, ordered Rings).
type Area struct {
	Ref    FileRef
	Buffer *feature.ValueBuffer
	Rings  []Ring
}

func (a *Area) OuterRings() []Ring {
	var outer []Ring
	for _, r := range a.Rings {
		if r.Depth == 1 {
			outer = append(outer, r)
		}
	}
	return outer
}
