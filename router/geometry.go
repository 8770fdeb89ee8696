// geometry.go resolves a settled RNode chain into coordinate-level
// geometry.
package router

import (
	"github.com/pkg/errors"

	"osmscout/common"
	"osmscout/objects"
)

func indexOfId(nodes []common.Point, id int64) int {
	for i, n := range nodes {
		if n.Id == id {
			return i
		}
	}
	return -1
}

// isClosedObject reports whether ref's geometry should be walked as a
// cyclic sequence when the from/to indices run "backwards" through it.
// Area rings are always cyclic by construction; ways close iff their
// first and last node share an id.
func isClosedObject(ref objects.FileRef, store *Store) bool {
	if ref.Kind == objects.KindArea {
		return true
	}
	nodes, err := store.Geometry.Nodes(ref)
	if err != nil || len(nodes) < 2 {
		return false
	}
	return nodes[0].Id == nodes[len(nodes)-1].Id
}

// sliceBetween returns the ordered run of nodes from fromIndex to toIndex
// inclusive. If fromIndex > toIndex it walks backwards (the oneway/reverse
// traversal case) unless closed is set, in which case it wraps forward
// through the end of the slice back to index 0 (ring wraparound).
func sliceBetween(nodes []common.Point, fromIndex, toIndex int, closed bool) []common.Point {
	if fromIndex == toIndex {
		return nodes[fromIndex : fromIndex+1]
	}
	if fromIndex < toIndex {
		return nodes[fromIndex : toIndex+1]
	}
	if !closed {
		result := make([]common.Point, 0, fromIndex-toIndex+1)
		for i := fromIndex; i >= toIndex; i-- {
			result = append(result, nodes[i])
		}
		return result
	}
	result := make([]common.Point, 0, len(nodes)-fromIndex+toIndex+1)
	for i := fromIndex; i < len(nodes); i++ {
		result = append(result, nodes[i])
	}
	for i := 0; i <= toIndex; i++ {
		result = append(result, nodes[i])
	}
	return result
}

// resolveGeometry walks the settled chain of arenaNodes, turning each
// route-node-to-route-node hop into the underlying object's node-level
// geometry, and appends the final leg into the target position.
func resolveGeometry(store *Store, start, target Position, chain []arenaNode) (RouteData, error) {
	startCoord, err := coordAt(store, start)
	if err != nil {
		return RouteData{}, err
	}
	entries := []RouteEntry{{Coord: startCoord, DistanceFromStart: 0}}
	totalDist := 0.0

	startNodes, err := store.Geometry.Nodes(start.Object)
	if err != nil {
		return RouteData{}, err
	}
	prevNodeId := startNodes[start.NodeIndex].Id

	for i, step := range chain {
		nodes, err := store.Geometry.Nodes(step.incomingObject)
		if err != nil {
			return RouteData{}, err
		}

		rn, err := store.Nodes.ReadAt(step.routeNodeOffset)
		if err != nil {
			return RouteData{}, err
		}
		toIndex := indexOfId(nodes, rn.Id)
		if toIndex < 0 {
			return RouteData{}, errors.Errorf("router: route node %d not found on its incident object", rn.Id)
		}

		fromIndex := indexOfId(nodes, prevNodeId)
		if i == 0 || fromIndex < 0 {
			fromIndex = toIndex
			if i == 0 {
				fromIndex = start.NodeIndex
			}
		}

		segment := sliceBetween(nodes, fromIndex, toIndex, isClosedObject(step.incomingObject, store))
		for j := 1; j < len(segment); j++ {
			totalDist += common.SphericalDistance(segment[j-1].Coord, segment[j].Coord)
			entry := RouteEntry{Coord: segment[j].Coord, Object: step.incomingObject, DistanceFromStart: totalDist}
			if j == len(segment)-1 {
				// This is the route node settled at step.routeNodeOffset
				// (toIndex resolves to rn.Id, the last node of the segment).
				entry.IsRouteNode = true
				entry.RouteNodeOffset = step.routeNodeOffset
			}
			entries = append(entries, entry)
		}

		prevNodeId = rn.Id
	}

	// Trailing leg: from the last settled route node to the target
	// position within target.Object.
	targetNodes, err := store.Geometry.Nodes(target.Object)
	if err != nil {
		return RouteData{}, err
	}
	lastRn, err := store.Nodes.ReadAt(chain[len(chain)-1].routeNodeOffset)
	if err != nil {
		return RouteData{}, err
	}
	fromIndex := indexOfId(targetNodes, lastRn.Id)
	if fromIndex < 0 {
		fromIndex = target.NodeIndex
	}
	segment := sliceBetween(targetNodes, fromIndex, target.NodeIndex, isClosedObject(target.Object, store))
	if len(segment) > 1 {
		for j := 1; j < len(segment); j++ {
			totalDist += common.SphericalDistance(segment[j-1].Coord, segment[j].Coord)
			entries = append(entries, RouteEntry{Coord: segment[j].Coord, Object: target.Object, DistanceFromStart: totalDist})
		}
	} else if lastRn.Id != targetNodes[target.NodeIndex].Id {
		// The target position is not the last settled route node itself
		// (e.g. mid-segment); the loop above never walked it, so append
		// it as the terminal entry.
		entries = append(entries, RouteEntry{Coord: targetNodes[target.NodeIndex].Coord, Object: target.Object, DistanceFromStart: totalDist})
	}

	return RouteData{Entries: entries, TotalDistance: totalDist}, nil
}
