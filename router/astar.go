// astar.go implements the A* search itself: RNode/arena state, the
// open/closed sets, endpoint handling and the main loop. RNodes live in a
// per-call slice arena keyed by a dense arena index, the open set is a
// binary heap of arena indices, and openIndex/closedSet are
// route-node-offset -> arena-index maps, so no pointer cycles exist on
// the hot path.
package router

import (
	"container/heap"

	"github.com/pkg/errors"

	"osmscout/common"
	"osmscout/objects"
	"osmscout/routenode"
)

// ErrNoRoute is returned when the open set is exhausted without reaching
// either target route node.
var ErrNoRoute = errors.New("router: no route found")

// ErrNoRouteNode is returned when no route node can be reached at all from
// a start or target position.
var ErrNoRouteNode = errors.New("router: no route node reachable from position")

// Position names a place to start or end a route: an object (way or area)
// and the index of a node within that object's geometry.
type Position struct {
	Object    objects.FileRef
	NodeIndex int
}

// arenaNode is the per-call RNode state.
type arenaNode struct {
	routeNodeOffset uint64
	incomingObject  objects.FileRef
	incomingPath    int // index into the RouteNode at previous's offset; -1 for seed nodes
	previous        int // arena index, -1 for seed nodes
	currentCost     float64
	estimateCost    float64
	overallCost     float64
	// access is true when arrival happened on an unrestricted path (or
	// the start object itself is unrestricted). Once false, only
	// restricted paths may be taken: a route may end inside a
	// private/destination-only region but never pass through one.
	access bool
}

// RNode is the public, read-only view of one settled or open search node,
// exposed so callers (and routedesc) can inspect the raw path before it is
// resolved into geometry.
type RNode struct {
	RouteNodeOffset uint64
	IncomingObject  objects.FileRef
	CurrentCost     float64
}

// Result is CalculateRoute's output: the raw route-node path plus its
// resolution into walkable geometry.
type Result struct {
	Nodes []RNode
	Route RouteData
}

// RouteEntry is one coordinate-level step of a resolved route.
type RouteEntry struct {
	Coord             common.GeoCoord
	Object            objects.FileRef // object traversed to reach this entry from the previous one; zero value at index 0
	DistanceFromStart float64
	IsRouteNode       bool   // true if Coord is a settled route-node, not just intermediate way geometry
	RouteNodeOffset   uint64 // valid only when IsRouteNode
}

// RouteData is the coordinate-level geometry of a calculated route,
// walked out of each RNode's underlying object between the chosen
// incoming and outgoing node indices.
type RouteData struct {
	Entries      []RouteEntry
	TotalDistance float64
}

// endpoint is one candidate route node reachable from a query Position by
// scanning its object's geometry in one direction.
type endpoint struct {
	offset   uint64
	distance float64
}

// CalculateRoute runs A* from start to target using profile's cost
// functions over store's persistent routing graph.
func CalculateRoute(profile RoutingProfile, store *Store, start, target Position) (*Result, error) {
	startForward, startBackward, err := findEndpoints(store, start)
	if err != nil {
		return nil, err
	}
	if startForward == nil && startBackward == nil {
		return nil, errors.Wrap(ErrNoRouteNode, "start")
	}

	targetForward, targetBackward, err := findEndpoints(store, target)
	if err != nil {
		return nil, err
	}
	if targetForward == nil && targetBackward == nil {
		return nil, errors.Wrap(ErrNoRouteNode, "target")
	}

	targetOffsets := map[uint64]bool{}
	if targetForward != nil {
		targetOffsets[targetForward.offset] = true
	}
	if targetBackward != nil {
		targetOffsets[targetBackward.offset] = true
	}

	startTypeOrdinal, err := store.ObjectTypes.TypeOrdinal(start.Object)
	if err != nil {
		return nil, err
	}
	startRestricted, err := store.ObjectTypes.Restricted(start.Object)
	if err != nil {
		return nil, err
	}
	targetCoord, err := coordAt(store, target)
	if err != nil {
		return nil, err
	}

	s := newSearch(profile, store)

	// A target that coincides with a start seed needs no search at all.
	for _, seed := range []*endpoint{startForward, startBackward} {
		if seed != nil && targetOffsets[seed.offset] {
			return zeroLengthResult(store, start, target)
		}
	}

	for _, seed := range []*endpoint{startForward, startBackward} {
		if seed == nil {
			continue
		}
		current := profile.SegmentCost(seed.distance, startTypeOrdinal)
		estimate := profile.EstimateCost(common.SphericalDistance(coordOrZero(store, seed.offset), targetCoord))
		idx := s.push(arenaNode{
			routeNodeOffset: seed.offset,
			incomingObject:  start.Object,
			incomingPath:    -1,
			previous:        -1,
			currentCost:     current,
			estimateCost:    estimate,
			overallCost:     current + estimate,
			access:          !startRestricted,
		})
		s.openIndex[seed.offset] = idx
	}

	finalIdx, err := s.run(targetOffsets, targetCoord)
	if err != nil {
		return nil, err
	}

	return s.buildResult(store, start, target, finalIdx)
}

// search holds the mutable state of one CalculateRoute call.
type search struct {
	profile   RoutingProfile
	store     *Store
	arena     []arenaNode
	openIndex map[uint64]int // routeNodeOffset -> arena index, only while open
	closed    map[uint64]int // routeNodeOffset -> arena index, once settled
	heap      *openHeap
}

func newSearch(profile RoutingProfile, store *Store) *search {
	s := &search{
		profile:   profile,
		store:     store,
		openIndex: map[uint64]int{},
		closed:    map[uint64]int{},
	}
	s.heap = newOpenHeap(&s.arena)
	return s
}

func (s *search) push(n arenaNode) int {
	idx := len(s.arena)
	s.arena = append(s.arena, n)
	heap.Push(s.heap, idx)
	return idx
}

// run executes the A* loop and returns the arena index of the
// settled node that reached target.
func (s *search) run(targetOffsets map[uint64]bool, targetCoord common.GeoCoord) (int, error) {
	for s.heap.Len() > 0 {
		currentIdx := heap.Pop(s.heap).(int)
		current := s.arena[currentIdx]
		delete(s.openIndex, current.routeNodeOffset)

		if targetOffsets[current.routeNodeOffset] {
			s.closed[current.routeNodeOffset] = currentIdx
			return currentIdx, nil
		}

		rn, err := s.store.Nodes.ReadAt(current.routeNodeOffset)
		if err != nil {
			return -1, err
		}

		for pathIdx, path := range rn.Paths {
			if current.previous >= 0 && path.TargetOffset == s.arena[current.previous].routeNodeOffset {
				continue // no immediate back-track
			}
			if !current.access && !path.Restricted {
				continue // cannot re-enter the accessible network once outside it
			}
			if !s.profile.CanUse(rn, pathIdx) {
				continue
			}
			if _, isClosed := s.closed[path.TargetOffset]; isClosed {
				continue
			}
			if s.forbidden(rn, current.incomingObject, pathIdx) {
				continue
			}

			incidentRef := objects.FileRef{}
			if path.ObjectIndex >= 0 && path.ObjectIndex < len(rn.Objects) {
				incidentRef = rn.Objects[path.ObjectIndex]
			}
			typeOrdinal, err := s.store.ObjectTypes.TypeOrdinal(incidentRef)
			if err != nil {
				return -1, err
			}

			tentative := current.currentCost + s.profile.PathCost(rn, pathIdx, typeOrdinal)

			if existingIdx, isOpen := s.openIndex[path.TargetOffset]; isOpen {
				if s.arena[existingIdx].currentCost <= tentative {
					continue
				}
				targetGeoCoord, err := coordForOffset(s.store, path.TargetOffset)
				if err != nil {
					return -1, err
				}
				h := s.profile.EstimateCost(common.SphericalDistance(targetGeoCoord, targetCoord))
				s.arena[existingIdx].currentCost = tentative
				s.arena[existingIdx].estimateCost = h
				s.arena[existingIdx].overallCost = tentative + h
				s.arena[existingIdx].previous = currentIdx
				s.arena[existingIdx].incomingObject = incidentRef
				s.arena[existingIdx].incomingPath = pathIdx
				s.arena[existingIdx].access = !path.Restricted
				heap.Fix(s.heap, s.heap.heapPos[existingIdx])
				continue
			}

			targetGeoCoord, err := coordForOffset(s.store, path.TargetOffset)
			if err != nil {
				return -1, err
			}
			h := s.profile.EstimateCost(common.SphericalDistance(targetGeoCoord, targetCoord))
			newIdx := s.push(arenaNode{
				routeNodeOffset: path.TargetOffset,
				incomingObject:  incidentRef,
				incomingPath:    pathIdx,
				previous:        currentIdx,
				currentCost:     tentative,
				estimateCost:    h,
				overallCost:     tentative + h,
				access:          !path.Restricted,
			})
			s.openIndex[path.TargetOffset] = newIdx
		}

		s.closed[current.routeNodeOffset] = currentIdx
	}

	return -1, ErrNoRoute
}

// forbidden checks rn's Excludes for a turn matching (fromObject -> pathIdx).
func (s *search) forbidden(rn *routenode.RouteNode, fromObject objects.FileRef, pathIdx int) bool {
	sourceIdx := -1
	for i, obj := range rn.Objects {
		if obj == fromObject {
			sourceIdx = i
			break
		}
	}
	if sourceIdx < 0 {
		return false
	}
	for _, ex := range rn.Excludes {
		if ex.SourceObjectIndex == sourceIdx && ex.TargetPathIndex == pathIdx {
			return true
		}
	}
	return false
}

// buildResult walks the settled chain back from finalIdx to a seed, then
// resolves the RNode sequence into coordinate-level geometry.
func (s *search) buildResult(store *Store, start, target Position, finalIdx int) (*Result, error) {
	var chain []arenaNode
	for idx := finalIdx; idx >= 0; idx = s.arena[idx].previous {
		chain = append([]arenaNode{s.arena[idx]}, chain...)
	}

	nodes := make([]RNode, len(chain))
	for i, n := range chain {
		nodes[i] = RNode{RouteNodeOffset: n.routeNodeOffset, IncomingObject: n.incomingObject, CurrentCost: n.currentCost}
	}

	route, err := resolveGeometry(store, start, target, chain)
	if err != nil {
		return nil, err
	}

	return &Result{Nodes: nodes, Route: route}, nil
}

// findEndpoints scans pos's object geometry forward and backward from
// pos.NodeIndex for the nearest node id present in store's route-node
// index.
func findEndpoints(store *Store, pos Position) (forward, backward *endpoint, err error) {
	nodes, err := store.Geometry.Nodes(pos.Object)
	if err != nil {
		return nil, nil, err
	}
	if pos.NodeIndex < 0 || pos.NodeIndex >= len(nodes) {
		return nil, nil, errors.Errorf("router: node index %d out of range for object", pos.NodeIndex)
	}

	// The position may already sit on a route node (e.g. a query that
	// starts exactly at a junction); in that case it is its own single
	// zero-distance endpoint and there is no need to scan further.
	if off, ok := store.Index.OffsetForId(nodes[pos.NodeIndex].Id); ok {
		return &endpoint{offset: off, distance: 0}, nil, nil
	}

	dist := 0.0
	for i := pos.NodeIndex; i < len(nodes)-1; i++ {
		dist += common.SphericalDistance(nodes[i].Coord, nodes[i+1].Coord)
		if off, ok := store.Index.OffsetForId(nodes[i+1].Id); ok {
			forward = &endpoint{offset: off, distance: dist}
			break
		}
	}

	dist = 0.0
	for i := pos.NodeIndex; i > 0; i-- {
		dist += common.SphericalDistance(nodes[i].Coord, nodes[i-1].Coord)
		if off, ok := store.Index.OffsetForId(nodes[i-1].Id); ok {
			backward = &endpoint{offset: off, distance: dist}
			break
		}
	}

	return forward, backward, nil
}

func coordAt(store *Store, pos Position) (common.GeoCoord, error) {
	nodes, err := store.Geometry.Nodes(pos.Object)
	if err != nil {
		return common.GeoCoord{}, err
	}
	if pos.NodeIndex < 0 || pos.NodeIndex >= len(nodes) {
		return common.GeoCoord{}, errors.Errorf("router: node index %d out of range for object", pos.NodeIndex)
	}
	return nodes[pos.NodeIndex].Coord, nil
}

func coordForOffset(store *Store, offset uint64) (common.GeoCoord, error) {
	rn, err := store.Nodes.ReadAt(offset)
	if err != nil {
		return common.GeoCoord{}, err
	}
	return rn.Coord, nil
}

func coordOrZero(store *Store, offset uint64) common.GeoCoord {
	c, err := coordForOffset(store, offset)
	if err != nil {
		return common.GeoCoord{}
	}
	return c
}

// zeroLengthResult builds the result for a route whose start and target
// coincide: a zero-length path with a single terminal entry.
func zeroLengthResult(store *Store, start, target Position) (*Result, error) {
	coord, err := coordAt(store, target)
	if err != nil {
		return nil, err
	}
	return &Result{
		Route: RouteData{
			Entries: []RouteEntry{{Coord: coord, DistanceFromStart: 0}},
		},
	}, nil
}
