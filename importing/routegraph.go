package importing

import (
	"sort"

	"github.com/pkg/errors"

	"osmscout/common"
	"osmscout/feature"
	"osmscout/objects"
	"osmscout/routenode"
)

// accessMaskForWay returns way's per-mode, per-direction travel permission
// mask, falling back to the type's static CanRoute{Foot,
// Bicycle,Car} flags treated as bidirectional when the way carries no
// parsed Access feature value (e.g. a highway=residential with no access/
// oneway tags at all still routes both ways on foot/bicycle/car).
func accessMaskForWay(way *objects.Way) uint8 {
	t := way.Buffer.Type()
	if inst, ok := t.FeatureInstanceByName("Access"); ok {
		if v, ok := way.Buffer.GetValue(inst).(*feature.AccessValue); ok {
			return v.Mask
		}
	}
	var mask uint8
	if t.CanRouteFoot {
		mask |= feature.AccessFootForward | feature.AccessFootBackward
	}
	if t.CanRouteBicycle {
		mask |= feature.AccessBicycleForward | feature.AccessBicycleBackward
	}
	if t.CanRouteCar {
		mask |= feature.AccessCarForward | feature.AccessCarBackward
	}
	return mask
}

// directedAccess projects origMask's per-direction bits onto the "forward"
// bit of each mode, since a persisted routenode.Path is already directional
// (router.canUseMode only ever tests the Forward constants, see
// router/profile.go) — a path built for the backward direction of a way
// carries its mode bits under the Forward names too, meaning "this
// directed edge permits this mode", not "the underlying way's forward
// side permits it".
func directedAccess(origMask uint8, forward bool) uint8 {
	var out uint8
	if forward {
		if origMask&feature.AccessFootForward != 0 {
			out |= feature.AccessFootForward
		}
		if origMask&feature.AccessBicycleForward != 0 {
			out |= feature.AccessBicycleForward
		}
		if origMask&feature.AccessCarForward != 0 {
			out |= feature.AccessCarForward
		}
	} else {
		if origMask&feature.AccessFootBackward != 0 {
			out |= feature.AccessFootForward
		}
		if origMask&feature.AccessBicycleBackward != 0 {
			out |= feature.AccessBicycleForward
		}
		if origMask&feature.AccessCarBackward != 0 {
			out |= feature.AccessCarForward
		}
	}
	return out
}

// wayRestricted reads the way's AccessRestricted feature value: true for
// ways tagged private/destination-only, which the router may end a route
// on but not pass through.
func wayRestricted(way *objects.Way) bool {
	t := way.Buffer.Type()
	if inst, ok := t.FeatureInstanceByName("AccessRestricted"); ok {
		if v, ok := way.Buffer.GetValue(inst).(*feature.AccessRestrictedValue); ok {
			return v.Restricted
		}
	}
	return false
}

// routeEdge is one directed traversal choice discovered while walking a
// way's node sequence, before route-node offsets are known.
type routeEdge struct {
	toId       int64
	distance   float64
	wayId      int64
	access     uint8
	restricted bool
}

// junctionBuild accumulates everything buildRouteGraph knows about one
// route-node point before it is written: its coordinate, the incident ways
// touching it (in first-seen order, becoming RouteNode.Objects), and its
// outgoing edges (becoming RouteNode.Paths once sibling offsets exist).
type junctionBuild struct {
	id         int64
	coord      common.GeoCoord
	wayOrder   []int64
	wayIndex   map[int64]int
	edges      []routeEdge
}

func (j *junctionBuild) objectIndex(wayId int64) int {
	if idx, ok := j.wayIndex[wayId]; ok {
		return idx
	}
	idx := len(j.wayOrder)
	j.wayIndex[wayId] = idx
	j.wayOrder = append(j.wayOrder, wayId)
	return idx
}

// buildRouteGraph assembles the persistent routing graph from the
// routable ways a single Import run wrote. A point is a route node iff it
// is a way endpoint or it is shared by more than one routable way; every
// other point is pure intermediate geometry folded into the distance of
// the segment it sits on.
//
// Because a Path's TargetOffset is the sibling RouteNode's route.dat
// offset, and offsets are only known once a node has been written, the
// graph is written twice: once to learn every junction's offset, then
// patched in place via routenode.Writer.Patch now that all targets resolve.
func buildRouteGraph(dir string, routableWays map[int64]*objects.Way) (int, error) {
	wayIds := make([]int64, 0, len(routableWays))
	for id := range routableWays {
		wayIds = append(wayIds, id)
	}
	sort.Slice(wayIds, func(i, j int) bool { return wayIds[i] < wayIds[j] })

	pointWays := map[int64]map[int64]bool{}
	for _, wayId := range wayIds {
		way := routableWays[wayId]
		for _, p := range way.Nodes {
			set, ok := pointWays[p.Id]
			if !ok {
				set = map[int64]bool{}
				pointWays[p.Id] = set
			}
			set[wayId] = true
		}
	}

	junctions := map[int64]*junctionBuild{}
	getJunction := func(id int64, coord common.GeoCoord) *junctionBuild {
		j, ok := junctions[id]
		if !ok {
			j = &junctionBuild{id: id, coord: coord, wayIndex: map[int64]int{}}
			junctions[id] = j
		}
		return j
	}

	isJunctionPoint := func(idx int, nodeCount int, id int64) bool {
		if idx == 0 || idx == nodeCount-1 {
			return true
		}
		return len(pointWays[id]) > 1
	}

	for _, wayId := range wayIds {
		way := routableWays[wayId]
		if len(way.Nodes) < 2 {
			continue
		}
		access := accessMaskForWay(way)
		fwdAccess := directedAccess(access, true)
		backAccess := directedAccess(access, false)
		restricted := wayRestricted(way)

		segStart := 0
		segDist := 0.0
		for i := 1; i < len(way.Nodes); i++ {
			segDist += common.SphericalDistance(way.Nodes[i-1].Coord, way.Nodes[i].Coord)
			if !isJunctionPoint(i, len(way.Nodes), way.Nodes[i].Id) {
				continue
			}
			from := way.Nodes[segStart]
			to := way.Nodes[i]

			fromJ := getJunction(from.Id, from.Coord)
			toJ := getJunction(to.Id, to.Coord)
			fromJ.objectIndex(wayId)
			toJ.objectIndex(wayId)

			if fwdAccess != 0 {
				fromJ.edges = append(fromJ.edges, routeEdge{toId: to.Id, distance: segDist, wayId: wayId, access: fwdAccess, restricted: restricted})
			}
			if backAccess != 0 {
				toJ.edges = append(toJ.edges, routeEdge{toId: from.Id, distance: segDist, wayId: wayId, access: backAccess, restricted: restricted})
			}

			segStart = i
			segDist = 0
		}
	}

	rw, err := routenode.NewWriter(dir)
	if err != nil {
		return 0, errors.Wrap(err, "importing: opening route.dat")
	}

	junctionIds := make([]int64, 0, len(junctions))
	for id := range junctions {
		junctionIds = append(junctionIds, id)
	}
	sort.Slice(junctionIds, func(i, j int) bool { return junctionIds[i] < junctionIds[j] })

	offsets := make(map[int64]uint64, len(junctionIds))
	for _, id := range junctionIds {
		j := junctions[id]
		offset, err := rw.Write(routeNodeOf(j, routableWays, nil))
		if err != nil {
			return 0, errors.Wrapf(err, "importing: writing route node %d", id)
		}
		offsets[id] = offset
	}

	for _, id := range junctionIds {
		j := junctions[id]
		if err := rw.Patch(offsets[id], routeNodeOf(j, routableWays, offsets)); err != nil {
			return 0, errors.Wrapf(err, "importing: patching route node %d", id)
		}
	}

	if err := rw.Close(); err != nil {
		return 0, errors.Wrap(err, "importing: closing route.dat")
	}

	if err := routenode.BuildIndex(dir, offsets); err != nil {
		return 0, errors.Wrap(err, "importing: writing route.idx")
	}

	return len(junctionIds), nil
}

// routeNodeOf materialises j's RouteNode record. offsets is nil on the
// first pass (path target offsets are written as 0 placeholders, which
// occupy the same fixed-width field as any real offset) and populated on
// the patch pass.
func routeNodeOf(j *junctionBuild, routableWays map[int64]*objects.Way, offsets map[int64]uint64) routenode.RouteNode {
	rn := routenode.RouteNode{Id: j.id, Coord: j.coord}
	rn.Objects = make([]objects.FileRef, len(j.wayOrder))
	for i, wayId := range j.wayOrder {
		rn.Objects[i] = routableWays[wayId].Ref
	}
	rn.Paths = make([]routenode.Path, len(j.edges))
	for i, e := range j.edges {
		var target uint64
		if offsets != nil {
			target = offsets[e.toId]
		}
		rn.Paths[i] = routenode.Path{
			TargetOffset: target,
			Distance:     e.distance,
			Access:       feature.AccessMask(e.access),
			Restricted:   e.restricted,
			ObjectIndex:  j.wayIndex[e.wayId],
		}
	}
	return rn
}
