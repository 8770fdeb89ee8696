// Package routedesc implements the route post-processing pipeline:
// an ordered chain of small processors that walk a calculated route and
// attach human-readable descriptions (way names, turn directions, crossing
// ways, motorway junctions, speed limits) to each node, finishing with an
// Instruction processor that synthesises the high-level navigation events a
// downstream formatter turns into spoken/written directions.
// No per-language formatter lives here, only the attachment pipeline.
package routedesc

import (
	"osmscout/common"
	"osmscout/objects"
	"osmscout/router"
)

// Description is one attached piece of information on a Node, keyed by a
// stable description id.
type Description interface {
	DescriptionId() string
}

// Node is one addressable point along a calculated route.
type Node struct {
	Distance float64 // meters from the route's start
	Time     float64 // seconds from the route's start, filled in by DistanceAndTime
	Coord    common.GeoCoord

	// Object is the path object traversed FROM this node TO the next one;
	// the zero value at the last node.
	Object objects.FileRef

	// IsRouteNode and RouteNodeOffset identify this node as a settled
	// route-node junction (as opposed to an intermediate way-geometry
	// point), letting CrossingWays/MotorwayJunction look up its incident
	// objects.
	IsRouteNode     bool
	RouteNodeOffset uint64

	descriptions map[string]Description
}

// AddDescription attaches d under its own DescriptionId, overwriting any
// prior attachment with the same id.
func (n *Node) AddDescription(d Description) {
	if n.descriptions == nil {
		n.descriptions = map[string]Description{}
	}
	n.descriptions[d.DescriptionId()] = d
}

// Description looks up a prior attachment by id.
func (n *Node) Description(id string) (Description, bool) {
	d, ok := n.descriptions[id]
	return d, ok
}

// RouteDescription is the full, addressable node sequence of a calculated
// route, built once from a router.Result and then enriched in place by
// successive Processors.
type RouteDescription struct {
	Nodes []*Node
}

// NewRouteDescription builds the initial, unenriched description directly
// from a resolved route's coordinate-level entries. The last entry's Object is always
// the zero FileRef (nothing is traversed after the final node).
func NewRouteDescription(route router.RouteData) *RouteDescription {
	nodes := make([]*Node, len(route.Entries))
	for i, e := range route.Entries {
		n := &Node{
			Distance:        e.DistanceFromStart,
			Coord:           e.Coord,
			IsRouteNode:     e.IsRouteNode,
			RouteNodeOffset: e.RouteNodeOffset,
		}
		// router.RouteEntry.Object names the object used to REACH this
		// entry from the previous one; routedesc.Node.Object instead names
		// the object taken FROM this node TO the next, so it is the
		// following entry's Object shifted back by one index.
		if i+1 < len(route.Entries) {
			n.Object = route.Entries[i+1].Object
		}
		nodes[i] = n
	}
	return &RouteDescription{Nodes: nodes}
}
