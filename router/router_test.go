package router

import (
	"testing"

	"osmscout/assert"
	"osmscout/common"
	"osmscout/feature"
	"osmscout/objects"
	"osmscout/routenode"
	"osmscout/types"
)

// buildStraightLineGraph constructs a small routing fixture: a way
// with three nodes 1km apart in a straight line, and a route-node chain
// over it written N3, N2, N1 (each only ever needs the offset of the node
// it already wrote) so every hop N1->N2->N3 is traversable forward. When
// connected is false the N2->N3 hop is omitted, leaving two disconnected
// components (Scenario F).
type straightLineFixture struct {
	store             *Store
	wayRef            objects.FileRef
	n1Offset, n3Offset uint64
}

func buildStraightLineGraph(t *testing.T, connected bool) straightLineFixture {
	t.Helper()
	dir := t.TempDir()

	c := types.NewTypeConfig()
	road := types.NewTypeInfo("highway_residential", nil)
	road.CanBeWay = true
	road.CanRouteFoot = true
	roadSealed := c.RegisterType(road)

	ww, err := objects.NewWayWriter(dir)
	assert.NoError(t, err)
	buf := feature.NewValueBuffer()
	buf.SetType(roadSealed)
	way := &objects.Way{
		Buffer: buf,
		Nodes: []common.Point{
			{Id: 1, Coord: common.GeoCoord{Lat: 0.0000, Lon: 0.0}},
			{Id: 2, Coord: common.GeoCoord{Lat: 0.0090, Lon: 0.0}}, // ~1km north
			{Id: 3, Coord: common.GeoCoord{Lat: 0.0180, Lon: 0.0}}, // ~1km further north
		},
	}
	wayOffset, err := ww.Write(way)
	assert.NoError(t, err)
	assert.NoError(t, ww.Close())
	wayRef := objects.FileRef{Offset: wayOffset, Kind: objects.KindWay}

	access := feature.AccessMask(feature.AccessFootForward | feature.AccessFootBackward)

	rw, err := routenode.NewWriter(dir)
	assert.NoError(t, err)

	n3Offset, err := rw.Write(routenode.RouteNode{
		Id:      3,
		Coord:   way.Nodes[2].Coord,
		Objects: []objects.FileRef{wayRef},
	})
	assert.NoError(t, err)

	n2 := routenode.RouteNode{
		Id:      2,
		Coord:   way.Nodes[1].Coord,
		Objects: []objects.FileRef{wayRef},
	}
	if connected {
		n2.Paths = []routenode.Path{
			{TargetOffset: n3Offset, Distance: 1000, Access: access, ObjectIndex: 0},
		}
	}
	n2Offset, err := rw.Write(n2)
	assert.NoError(t, err)

	n1Offset, err := rw.Write(routenode.RouteNode{
		Id:      1,
		Coord:   way.Nodes[0].Coord,
		Objects: []objects.FileRef{wayRef},
		Paths: []routenode.Path{
			{TargetOffset: n2Offset, Distance: 1000, Access: access, ObjectIndex: 0},
		},
	})
	assert.NoError(t, err)
	assert.NoError(t, rw.Close())

	assert.NoError(t, routenode.BuildIndex(dir, map[int64]uint64{1: n1Offset, 2: n2Offset, 3: n3Offset}))

	reader, err := routenode.NewReader(dir)
	assert.NoError(t, err)
	idx, err := routenode.LoadIndex(dir)
	assert.NoError(t, err)

	wayReader, err := objects.NewWayReader(dir, c)
	assert.NoError(t, err)

	geomSource := NewObjectStores(wayReader, nil, 16)

	store := &Store{
		Nodes:       reader,
		Index:       idx,
		Geometry:    geomSource,
		ObjectTypes: geomSource,
	}

	return straightLineFixture{store: store, wayRef: wayRef, n1Offset: n1Offset, n3Offset: n3Offset}
}

func TestCalculateRoute_StraightLineThreeNodes(t *testing.T) {
	fixture := buildStraightLineGraph(t, true)

	profile := NewFootProfile()
	start := Position{Object: fixture.wayRef, NodeIndex: 0}
	target := Position{Object: fixture.wayRef, NodeIndex: 2}

	result, err := CalculateRoute(profile, fixture.store, start, target)
	assert.NoError(t, err)

	assert.Equal(t, 3, len(result.Nodes))
	assert.Equal(t, fixture.n1Offset, result.Nodes[0].RouteNodeOffset)
	assert.Equal(t, fixture.n3Offset, result.Nodes[2].RouteNodeOffset)

	// ~1km per leg, two legs: total distance should land close to 2000m.
	if result.Route.TotalDistance < 1900 || result.Route.TotalDistance > 2100 {
		t.Fatalf("expected ~2000m total distance, got %f", result.Route.TotalDistance)
	}
}

func TestCalculateRoute_NoRoute(t *testing.T) {
	fixture := buildStraightLineGraph(t, false)

	profile := NewFootProfile()
	start := Position{Object: fixture.wayRef, NodeIndex: 0}
	target := Position{Object: fixture.wayRef, NodeIndex: 2}

	_, err := CalculateRoute(profile, fixture.store, start, target)
	assert.Error(t, err)
}

// buildRestrictedGraph is the straight-line fixture with access
// restriction control: the way carries the given access tag, the N1->N2
// path's Restricted flag is firstRestricted and the N2->N3 path's is
// secondRestricted.
func buildRestrictedGraph(t *testing.T, wayTags feature.TagMap, firstRestricted, secondRestricted bool) straightLineFixture {
	t.Helper()
	dir := t.TempDir()

	c := types.NewTypeConfig()
	road := types.NewTypeInfo("highway_service", nil)
	road.CanBeWay = true
	road.CanRouteFoot = true
	road.AddFeature(feature.NewAccessRestrictedFeature(), true)
	roadSealed := c.RegisterType(road)

	ww, err := objects.NewWayWriter(dir)
	assert.NoError(t, err)
	buf := feature.NewValueBuffer()
	buf.SetType(roadSealed)
	buf.Parse(feature.NopReporter{}, "w/1", wayTags)
	way := &objects.Way{
		Buffer: buf,
		Nodes: []common.Point{
			{Id: 1, Coord: common.GeoCoord{Lat: 0.0000, Lon: 0.0}},
			{Id: 2, Coord: common.GeoCoord{Lat: 0.0090, Lon: 0.0}},
			{Id: 3, Coord: common.GeoCoord{Lat: 0.0180, Lon: 0.0}},
		},
	}
	wayOffset, err := ww.Write(way)
	assert.NoError(t, err)
	assert.NoError(t, ww.Close())
	wayRef := objects.FileRef{Offset: wayOffset, Kind: objects.KindWay}

	access := feature.AccessMask(feature.AccessFootForward | feature.AccessFootBackward)

	rw, err := routenode.NewWriter(dir)
	assert.NoError(t, err)

	n3Offset, err := rw.Write(routenode.RouteNode{
		Id:      3,
		Coord:   way.Nodes[2].Coord,
		Objects: []objects.FileRef{wayRef},
	})
	assert.NoError(t, err)

	n2Offset, err := rw.Write(routenode.RouteNode{
		Id:      2,
		Coord:   way.Nodes[1].Coord,
		Objects: []objects.FileRef{wayRef},
		Paths: []routenode.Path{
			{TargetOffset: n3Offset, Distance: 1000, Access: access, Restricted: secondRestricted, ObjectIndex: 0},
		},
	})
	assert.NoError(t, err)

	n1Offset, err := rw.Write(routenode.RouteNode{
		Id:      1,
		Coord:   way.Nodes[0].Coord,
		Objects: []objects.FileRef{wayRef},
		Paths: []routenode.Path{
			{TargetOffset: n2Offset, Distance: 1000, Access: access, Restricted: firstRestricted, ObjectIndex: 0},
		},
	})
	assert.NoError(t, err)
	assert.NoError(t, rw.Close())

	assert.NoError(t, routenode.BuildIndex(dir, map[int64]uint64{1: n1Offset, 2: n2Offset, 3: n3Offset}))

	reader, err := routenode.NewReader(dir)
	assert.NoError(t, err)
	idx, err := routenode.LoadIndex(dir)
	assert.NoError(t, err)

	wayReader, err := objects.NewWayReader(dir, c)
	assert.NoError(t, err)

	geomSource := NewObjectStores(wayReader, nil, 16)

	store := &Store{
		Nodes:       reader,
		Index:       idx,
		Geometry:    geomSource,
		ObjectTypes: geomSource,
	}

	return straightLineFixture{store: store, wayRef: wayRef, n1Offset: n1Offset, n3Offset: n3Offset}
}

// A search that starts on a private way may move along further restricted
// paths but may not enter the unrestricted network.
func TestCalculateRoute_CannotEscapeRestrictedStart(t *testing.T) {
	fixture := buildRestrictedGraph(t, feature.TagMap{"access": "private"}, true, false)

	profile := NewFootProfile()
	start := Position{Object: fixture.wayRef, NodeIndex: 0}
	target := Position{Object: fixture.wayRef, NodeIndex: 2}

	_, err := CalculateRoute(profile, fixture.store, start, target)
	assert.Error(t, err)
}

// A route may end inside a restricted region: only passing through is
// forbidden.
func TestCalculateRoute_MayEndInRestrictedRegion(t *testing.T) {
	fixture := buildRestrictedGraph(t, feature.TagMap{}, false, true)

	profile := NewFootProfile()
	start := Position{Object: fixture.wayRef, NodeIndex: 0}
	target := Position{Object: fixture.wayRef, NodeIndex: 2}

	result, err := CalculateRoute(profile, fixture.store, start, target)
	assert.NoError(t, err)
	assert.Equal(t, fixture.n3Offset, result.Nodes[len(result.Nodes)-1].RouteNodeOffset)
}

func TestCalculateRoute_SameStartAndTarget(t *testing.T) {
	fixture := buildStraightLineGraph(t, true)

	profile := NewFootProfile()
	pos := Position{Object: fixture.wayRef, NodeIndex: 0}

	result, err := CalculateRoute(profile, fixture.store, pos, pos)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(result.Route.Entries))
	assert.Equal(t, float64(0), result.Route.Entries[0].DistanceFromStart)
}
