package routedesc

import (
	"testing"

	"osmscout/assert"
	"osmscout/common"
	"osmscout/feature"
	"osmscout/objects"
	"osmscout/router"
	"osmscout/routenode"
	"osmscout/types"
)

func buildTestContext(t *testing.T) (*Context, objects.FileRef, objects.FileRef, uint64) {
	t.Helper()
	dir := t.TempDir()

	c := types.NewTypeConfig()
	road := types.NewTypeInfo("highway_primary", nil)
	road.CanBeWay = true
	road.AddFeature(feature.NewNameFeature(), true)
	road.AddFeature(feature.NewRefFeature(), true)
	road.AddFeature(feature.NewMaxSpeedFeature(), true)
	road.AddFeature(feature.NewDestinationFeature(), true)
	roadSealed := c.RegisterType(road)

	crossing := types.NewTypeInfo("highway_secondary", nil)
	crossing.CanBeWay = true
	crossing.AddFeature(feature.NewNameFeature(), true)
	crossingSealed := c.RegisterType(crossing)

	ww, err := objects.NewWayWriter(dir)
	assert.NoError(t, err)

	mainBuf := feature.NewValueBuffer()
	mainBuf.SetType(roadSealed)
	mainBuf.Parse(feature.NopReporter{}, "w/1", feature.TagMap{
		"name":        "Main Street",
		"ref":         "B1",
		"maxspeed":    "50",
		"destination": "Downtown",
	})
	mainWay := &objects.Way{
		Buffer: mainBuf,
		Nodes: []common.Point{
			{Id: 1, Coord: common.GeoCoord{Lat: 0, Lon: 0}},
			{Id: 2, Coord: common.GeoCoord{Lat: 0.01, Lon: 0}},
		},
	}
	mainOffset, err := ww.Write(mainWay)
	assert.NoError(t, err)
	mainRef := objects.FileRef{Offset: mainOffset, Kind: objects.KindWay}

	crossBuf := feature.NewValueBuffer()
	crossBuf.SetType(crossingSealed)
	crossBuf.Parse(feature.NopReporter{}, "w/2", feature.TagMap{"name": "Side Avenue"})
	crossWay := &objects.Way{
		Buffer: crossBuf,
		Nodes: []common.Point{
			{Id: 3, Coord: common.GeoCoord{Lat: 0.01, Lon: -0.01}},
			{Id: 4, Coord: common.GeoCoord{Lat: 0.01, Lon: 0.01}},
		},
	}
	crossOffset, err := ww.Write(crossWay)
	assert.NoError(t, err)
	crossRef := objects.FileRef{Offset: crossOffset, Kind: objects.KindWay}

	assert.NoError(t, ww.Close())

	rw, err := routenode.NewWriter(dir)
	assert.NoError(t, err)
	junctionOffset, err := rw.Write(routenode.RouteNode{
		Id:      2,
		Coord:   mainWay.Nodes[1].Coord,
		Objects: []objects.FileRef{mainRef, crossRef},
	})
	assert.NoError(t, err)
	assert.NoError(t, rw.Close())

	wayReader, err := objects.NewWayReader(dir, c)
	assert.NoError(t, err)
	routeNodeReader, err := routenode.NewReader(dir)
	assert.NoError(t, err)

	ctx := &Context{
		Profile:    router.NewFootProfile(),
		Features:   &ObjectFeatures{Ways: wayReader},
		RouteNodes: routeNodeReader,
		TypeConfig: c,
	}

	return ctx, mainRef, crossRef, junctionOffset
}

func buildTestDescription(mainRef objects.FileRef, junctionOffset uint64) *RouteDescription {
	return &RouteDescription{
		Nodes: []*Node{
			{Distance: 0, Coord: common.GeoCoord{Lat: 0, Lon: 0}, Object: mainRef},
			{Distance: 1113, Coord: common.GeoCoord{Lat: 0.01, Lon: 0}, Object: objects.FileRef{}, IsRouteNode: true, RouteNodeOffset: junctionOffset},
		},
	}
}

func TestPipeline_DependencyValidation(t *testing.T) {
	_, err := NewPipeline(&Instruction{})
	assert.Error(t, err)

	_, err = NewPipeline(&CrossingWays{}, &Direction{}, &WayName{}, &MotorwayJunction{}, &Destination{}, &Instruction{})
	assert.NoError(t, err)
}

func TestDefaultOrder_RunsAllProcessors(t *testing.T) {
	ctx, mainRef, _, junctionOffset := buildTestContext(t)
	desc := buildTestDescription(mainRef, junctionOffset)

	pipeline, err := DefaultOrder(ctx)
	assert.NoError(t, err)
	assert.NoError(t, pipeline.Run(ctx, desc))

	_, ok := desc.Nodes[0].Description(descriptionStart)
	assert.True(t, ok)
	_, ok = desc.Nodes[1].Description(descriptionTarget)
	assert.True(t, ok)

	name, ok := desc.Nodes[0].Description(descriptionName)
	assert.True(t, ok)
	assert.Equal(t, "Main Street", name.(NameDescriptionEntry).Name)
	assert.Equal(t, "B1", name.(NameDescriptionEntry).Ref)

	maxSpeed, ok := desc.Nodes[0].Description(descriptionMaxSpeed)
	assert.True(t, ok)
	assert.Equal(t, uint8(50), maxSpeed.(MaxSpeedDescriptionEntry).KmH)

	dest, ok := desc.Nodes[0].Description(descriptionDestination)
	assert.True(t, ok)
	assert.Equal(t, "Downtown", dest.(DestinationDescriptionEntry).Destination)

	crossing, ok := desc.Nodes[1].Description(descriptionCrossingWays)
	assert.True(t, ok)
	assert.Equal(t, []string{"Side Avenue"}, crossing.(CrossingWaysDescriptionEntry).Names)

	// DistanceAndTime should have produced a positive elapsed time for the
	// ~1.1km leg at foot speed.
	if desc.Nodes[1].Time <= 0 {
		t.Fatalf("expected positive elapsed time, got %f", desc.Nodes[1].Time)
	}
}

func TestBinTurn(t *testing.T) {
	assert.Equal(t, TurnStraightOn, binTurn(0))
	assert.Equal(t, TurnLeft, binTurn(-60))
	assert.Equal(t, TurnRight, binTurn(60))
	assert.Equal(t, TurnSharpLeft, binTurn(-150))
	assert.Equal(t, TurnSharpRight, binTurn(150))
}
