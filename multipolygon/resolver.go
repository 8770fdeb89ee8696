// Package multipolygon implements the OSM multipolygon assembly
// algorithm: resolving a relation's members, chaining open ways into
// closed rings, grouping rings by containment into a depth hierarchy,
// inferring each ring's effective type, and blacklisting consumed ways.
package multipolygon

import (
	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"

	"osmscout/common"
	"osmscout/types"
)

type MemberKind uint8

const (
	MemberWay MemberKind = iota
	MemberNode
	MemberRelation
)

type Role string

const (
	RoleOuter Role = "outer"
	RoleInner Role = "inner"
	RoleNone  Role = ""
)

// Member is one relation member reference, before resolution.
type Member struct {
	Kind MemberKind
	Ref  int64
	Role Role
}

// WayResolver looks up a way's node-id/coordinate sequence and tags.
type WayResolver interface {
	ResolveWay(wayId int64) (points []common.Point, tags map[string]string, ok bool)
}

// RelationResolver looks up a child relation's own members and tags, used
// only for nested administrative-boundary relations.
type RelationResolver interface {
	ResolveRelation(relId int64) (tags map[string]string, members []Member, ok bool)
}

// Input is one relation's multipolygon assembly request.
type Input struct {
	RelationId int64
	Tags       map[string]string
	Members    []Member
}

// Result is the resolved, typed ring list a relation produced, plus the way
// ids it consumed.
type Result struct {
	RelationId   int64
	MasterType   *types.TypeInfo
	Rings        []ResolvedRing
	ConsumedWays map[int64]bool
}

type ResolvedRing struct {
	Depth        uint8
	Points       []common.Point
	Type         *types.TypeInfo // nil if no distinguishing type (e.g. a clip-region inner ring)
	OriginalType *types.TypeInfo // preserved pre-clip-region type
}

// wayTagSegment is one resolved way member carried through phases 1-2.
type wayTagSegment struct {
	wayId  int64
	role   Role
	points []common.Point
	tags   map[string]string
}

// Resolver runs the five-phase algorithm over one relation at a time.
type Resolver struct {
	Ways           WayResolver
	Relations      RelationResolver
	TypeConfig     *types.TypeConfig
	StrictAreas    bool
	// RelationTypeOf resolves the relation's own tags to a master type
	// (relation-capable types only, e.g. boundary/route masters).
	RelationTypeOf func(tags map[string]string) *types.TypeInfo
	// WayAreaTypeOf resolves a contributing way's tags to the type each
	// individual ring should carry (way/area-capable types).
	WayAreaTypeOf   func(tags map[string]string) *types.TypeInfo
	IsAdminBoundary func(tags map[string]string) bool

	// DebugVerifyContainment re-checks Phase 3's "any vertex" containment
	// shortcut with a full point-in-polygon test on every vertex; off by
	// default since the shortcut is only unsound for inputs that already
	// violate the non-crossing precondition.
	DebugVerifyContainment bool
}

// Resolve runs all five phases. A phase failure drops the relation with a
// warning and returns (nil, nil) — callers should treat a nil result as
// "skip this relation", not as an error.
func (r *Resolver) Resolve(in Input) (*Result, error) {
	segments, err := r.resolveMembers(in, map[int64]bool{in.RelationId: true})
	if err != nil {
		sigolo.Warnf("multipolygon: relation %d: %s", in.RelationId, err)
		return nil, nil
	}

	rings, err := r.buildRings(segments)
	if err != nil {
		sigolo.Warnf("multipolygon: relation %d: ring assembly failed: %s", in.RelationId, err)
		return nil, nil
	}

	grouped := r.groupByContainment(rings)

	result := r.inferTypes(in, grouped)
	result.RelationId = in.RelationId

	result.ConsumedWays = map[int64]bool{}
	for _, seg := range segments {
		result.ConsumedWays[seg.wayId] = true
	}

	return result, nil
}

// resolveMembers is phase 1: recursively walk child relations (only for
// administrative boundaries) and resolve way members. Node members are
// skipped; they are not resolved to coordinates.
func (r *Resolver) resolveMembers(in Input, visiting map[int64]bool) ([]wayTagSegment, error) {
	var segments []wayTagSegment

	for _, m := range in.Members {
		switch m.Kind {
		case MemberWay:
			points, tags, ok := r.Ways.ResolveWay(m.Ref)
			if !ok {
				return nil, errors.Errorf("unresolvable way member %d", m.Ref)
			}
			segments = append(segments, wayTagSegment{wayId: m.Ref, role: m.Role, points: points, tags: tags})

		case MemberRelation:
			if !r.IsAdminBoundary(in.Tags) {
				sigolo.Warnf("multipolygon: relation %d: skipping non-administrative child relation %d", in.RelationId, m.Ref)
				continue
			}
			if visiting[m.Ref] {
				return nil, errors.Errorf("self-referential relation chain at %d", m.Ref)
			}
			childTags, childMembers, ok := r.Relations.ResolveRelation(m.Ref)
			if !ok {
				return nil, errors.Errorf("unresolvable child relation %d", m.Ref)
			}
			visiting[m.Ref] = true
			childSegments, err := r.resolveMembers(Input{RelationId: m.Ref, Tags: childTags, Members: childMembers}, visiting)
			delete(visiting, m.Ref)
			if err != nil {
				return nil, err
			}
			segments = append(segments, childSegments...)

		case MemberNode:
			// Node members (e.g. admin_centre) carry no ring geometry.
		}
	}

	return segments, nil
}

// ringCandidate is a fully chained, closed ring awaiting grouping.
type ringCandidate struct {
	points []common.Point
	tags   map[string]string // tags of the way(s) contributing this ring's type inference
}

// buildRings is phase 2.
func (r *Resolver) buildRings(segments []wayTagSegment) ([]ringCandidate, error) {
	var rings []ringCandidate
	var open []wayTagSegment

	for _, seg := range segments {
		if len(seg.points) >= 2 && seg.points[0].Id == seg.points[len(seg.points)-1].Id {
			rings = append(rings, ringCandidate{points: seg.points[:len(seg.points)-1], tags: seg.tags})
		} else {
			open = append(open, seg)
		}
	}

	if len(open) > 0 {
		degree := map[int64]int{}
		for _, seg := range open {
			degree[seg.points[0].Id]++
			degree[seg.points[len(seg.points)-1].Id]++
		}
		for node, d := range degree {
			if d%2 != 0 {
				return nil, errors.Errorf("node %d has odd degree %d among open ways", node, d)
			}
		}
	}

	used := make([]bool, len(open))
	for startIdx := range open {
		if used[startIdx] {
			continue
		}
		used[startIdx] = true
		chain := append([]common.Point{}, open[startIdx].points...)
		tags := open[startIdx].tags

		for chain[0].Id != chain[len(chain)-1].Id {
			extended := false
			for j, seg := range open {
				if used[j] {
					continue
				}
				tailId := chain[len(chain)-1].Id
				if seg.points[0].Id == tailId {
					chain = append(chain, seg.points[1:]...)
					used[j] = true
					extended = true
					break
				}
				if seg.points[len(seg.points)-1].Id == tailId {
					reversed := reversePoints(seg.points)
					chain = append(chain, reversed[1:]...)
					used[j] = true
					extended = true
					break
				}
			}
			if !extended {
				return nil, errors.New("unable to close ring: no matching way end found")
			}
		}

		ring := ringCandidate{points: chain[:len(chain)-1], tags: tags}
		if r.StrictAreas && isSelfIntersecting(ring.points) {
			return nil, errors.New("ring is self-intersecting under strictAreas")
		}
		rings = append(rings, ring)
	}

	return rings, nil
}

func reversePoints(points []common.Point) []common.Point {
	out := make([]common.Point, len(points))
	for i, p := range points {
		out[len(points)-1-i] = p
	}
	return out
}

// groupedRing carries a ringCandidate plus its assigned depth.
type groupedRing struct {
	ringCandidate
	depth uint8
}

// groupByContainment is phase 3.
func (r *Resolver) groupByContainment(rings []ringCandidate) []groupedRing {
	n := len(rings)
	contains := make([][]bool, n)
	for i := range contains {
		contains[i] = make([]bool, n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j || len(rings[i].points) == 0 {
				continue
			}
			contains[i][j] = isAreaSubOfArea(rings[i], rings[j], r.DebugVerifyContainment)
		}
	}

	used := make([]bool, n)
	depths := make([]uint8, n)

	var assign func(ring int, depth uint8)
	assign = func(ring int, depth uint8) {
		used[ring] = true
		depths[ring] = depth
		for j := 0; j < n; j++ {
			if used[j] || j == ring || !contains[j][ring] {
				continue
			}
			direct := true
			for k := 0; k < n; k++ {
				if k == ring || k == j || used[k] {
					continue
				}
				if contains[j][k] {
					direct = false
					break
				}
			}
			if direct {
				assign(j, depth+1)
			}
		}
	}

	for {
		top := -1
		for i := 0; i < n; i++ {
			if used[i] {
				continue
			}
			containedInOther := false
			for j := 0; j < n; j++ {
				if j == i || used[j] {
					continue
				}
				if contains[i][j] {
					containedInOther = true
					break
				}
			}
			if !containedInOther {
				top = i
				break
			}
		}
		if top == -1 {
			break
		}
		assign(top, 1)
	}

	grouped := make([]groupedRing, n)
	for i, ring := range rings {
		grouped[i] = groupedRing{ringCandidate: ring, depth: depths[i]}
	}
	return grouped
}

// inferTypes is phase 4.
func (r *Resolver) inferTypes(in Input, rings []groupedRing) *Result {
	master := r.RelationTypeOf(in.Tags)
	if master == nil || master.Ignore {
		for _, ring := range rings {
			if ring.depth == 1 {
				if t := r.WayAreaTypeOf(ring.tags); t != nil && !t.Ignore {
					master = t
					break
				}
			}
		}
	}

	resolved := make([]ResolvedRing, 0, len(rings))
	for _, ring := range rings {
		ringType := r.WayAreaTypeOf(ring.tags)
		resolved = append(resolved, ResolvedRing{
			Depth:        ring.depth,
			Points:       ring.points,
			Type:         ringType,
			OriginalType: ringType,
		})
	}

	// Clip-region idiom: an inner ring with the same type as its immediate
	// outer parent is a cutout, not a real feature — reset its effective
	// type to nil while OriginalType keeps the pre-override value.
	for i := range resolved {
		if resolved[i].Depth < 2 || resolved[i].Type == nil {
			continue
		}
		parentDepth := resolved[i].Depth - 1
		for j := range resolved {
			if resolved[j].Depth != parentDepth {
				continue
			}
			if resolved[j].Type != nil && resolved[i].Type != nil && resolved[j].Type.Name == resolved[i].Type.Name &&
				pointInRing(resolved[i].Points[0].Coord, resolved[j].Points) {
				resolved[i].Type = nil
			}
		}
	}

	return &Result{MasterType: master, Rings: resolved}
}

// isAreaSubOfArea is the "any vertex relation" monotone containment test:
// it only checks whether candidate's first vertex lies
// inside container, relying on the precondition that rings never cross.
// When verify is set, every vertex is checked and a mismatch is logged.
func isAreaSubOfArea(candidate, container ringCandidate, verify bool) bool {
	if len(candidate.points) == 0 || len(container.points) < 3 {
		return false
	}
	first := pointInRing(candidate.points[0].Coord, container.points)
	if verify {
		for _, p := range candidate.points[1:] {
			if pointInRing(p.Coord, container.points) != first {
				sigolo.Debugf("multipolygon: containment verify mismatch between rings")
				break
			}
		}
	}
	return first
}

// pointInRing is a standard ray-casting point-in-polygon test.
func pointInRing(p common.GeoCoord, ring []common.Point) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		yi, xi := ring[i].Coord.Lat, ring[i].Coord.Lon
		yj, xj := ring[j].Coord.Lat, ring[j].Coord.Lon
		intersects := ((yi > p.Lat) != (yj > p.Lat)) &&
			(p.Lon < (xj-xi)*(p.Lat-yi)/(yj-yi)+xi)
		if intersects {
			inside = !inside
		}
	}
	return inside
}

// isSelfIntersecting checks every pair of non-adjacent ring edges for a
// crossing using a standard orientation test.
func isSelfIntersecting(points []common.Point) bool {
	n := len(points)
	if n < 4 {
		return false
	}
	for i := 0; i < n; i++ {
		a1, a2 := points[i].Coord, points[(i+1)%n].Coord
		for j := i + 1; j < n; j++ {
			if j == i || j == (i+1)%n || (j+1)%n == i {
				continue // skip the edge itself and its two neighbours, which share an endpoint
			}
			b1, b2 := points[j].Coord, points[(j+1)%n].Coord
			if segmentsIntersect(a1, a2, b1, b2) {
				return true
			}
		}
	}
	return false
}

func segmentsIntersect(p1, p2, p3, p4 common.GeoCoord) bool {
	d1 := orientation(p3, p4, p1)
	d2 := orientation(p3, p4, p2)
	d3 := orientation(p1, p2, p3)
	d4 := orientation(p1, p2, p4)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func orientation(a, b, c common.GeoCoord) float64 {
	return (b.Lon-a.Lon)*(c.Lat-a.Lat) - (b.Lat-a.Lat)*(c.Lon-a.Lon)
}

func (r Role) String() string { return string(r) }
