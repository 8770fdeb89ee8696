package objects

import (
	"testing"

	"osmscout/assert"
	"osmscout/common"
	"osmscout/feature"
	"osmscout/types"
)

func buildTestTypes() (*types.TypeConfig, *types.TypeInfo, *types.TypeInfo, *types.TypeInfo) {
	c := types.NewTypeConfig()

	poi := types.NewTypeInfo("amenity_cafe", nil)
	poi.CanBeNode = true
	poi.AddFeature(feature.NewNameFeature(), true)
	poiSealed := c.RegisterType(poi)

	road := types.NewTypeInfo("highway_residential", nil)
	road.CanBeWay = true
	road.AddFeature(feature.NewNameFeature(), true)
	roadSealed := c.RegisterType(road)

	building := types.NewTypeInfo("building", nil)
	building.CanBeArea = true
	building.AddFeature(feature.NewNameFeature(), true)
	buildingSealed := c.RegisterType(building)

	return c, poiSealed, roadSealed, buildingSealed
}

func TestNodeStore_RoundTrip(t *testing.T) {
	c, poi, _, _ := buildTestTypes()
	dir := t.TempDir()

	nw, err := NewNodeWriter(dir)
	assert.NoError(t, err)

	buf := feature.NewValueBuffer()
	buf.SetType(poi)
	buf.Parse(feature.NopReporter{}, "n/1", feature.TagMap{"name": "Cafe Central"})

	n := &Node{Buffer: buf, Coord: common.GeoCoord{Lat: 52.5, Lon: 13.4}}
	offset, err := nw.Write(n)
	assert.NoError(t, err)
	assert.NoError(t, nw.Close())

	nr, err := NewNodeReader(dir, c)
	assert.NoError(t, err)
	readBack, err := nr.ReadAt(offset)
	assert.NoError(t, err)
	assert.NoError(t, nr.Close())

	assert.Equal(t, "amenity_cafe", readBack.Buffer.Type().Name)
	nameInst, _ := poi.FeatureInstanceByName("Name")
	assert.Equal(t, "Cafe Central", readBack.Buffer.GetValue(nameInst).(*feature.StringValue).Text)
}

func TestWayStore_RoundTrip(t *testing.T) {
	c, _, road, _ := buildTestTypes()
	dir := t.TempDir()

	ww, err := NewWayWriter(dir)
	assert.NoError(t, err)

	buf := feature.NewValueBuffer()
	buf.SetType(road)
	buf.Parse(feature.NopReporter{}, "w/1", feature.TagMap{"name": "Elm Street"})

	way := &Way{
		Buffer: buf,
		Nodes: []common.Point{
			{Id: 1, Coord: common.GeoCoord{Lat: 52.0, Lon: 13.0}},
			{Id: 2, Coord: common.GeoCoord{Lat: 52.1, Lon: 13.1}},
		},
	}
	offset, err := ww.Write(way)
	assert.NoError(t, err)
	assert.NoError(t, ww.Close())

	wr, err := NewWayReader(dir, c)
	assert.NoError(t, err)
	readBack, err := wr.ReadAt(offset)
	assert.NoError(t, err)
	assert.NoError(t, wr.Close())

	assert.Equal(t, 2, len(readBack.Nodes))
	assert.False(t, readBack.IsClosed())
	assert.Equal(t, int64(1), readBack.Nodes[0].Id)
}

func TestAreaStore_RoundTrip(t *testing.T) {
	c, _, _, building := buildTestTypes()
	dir := t.TempDir()

	aw, err := NewAreaWriter(dir)
	assert.NoError(t, err)

	buf := feature.NewValueBuffer()
	buf.SetType(building)
	buf.Parse(feature.NopReporter{}, "a/1", feature.TagMap{"name": "Town Hall"})

	outer := Ring{
		Depth: 1,
		Nodes: []common.Point{
			{Id: 1, Coord: common.GeoCoord{Lat: 0, Lon: 0}},
			{Id: 2, Coord: common.GeoCoord{Lat: 0, Lon: 1}},
			{Id: 3, Coord: common.GeoCoord{Lat: 1, Lon: 1}},
		},
	}
	area := &Area{Buffer: buf, Rings: []Ring{outer}}
	offset, err := aw.Write(area)
	assert.NoError(t, err)
	assert.NoError(t, aw.Close())

	ar, err := NewAreaReader(dir, c)
	assert.NoError(t, err)
	readBack, err := ar.ReadAt(offset)
	assert.NoError(t, err)
	assert.NoError(t, ar.Close())

	assert.Equal(t, 1, len(readBack.Rings))
	assert.Equal(t, uint8(1), readBack.Rings[0].Depth)
	assert.Equal(t, 3, len(readBack.Rings[0].Nodes))
	assert.Equal(t, 1, len(readBack.OuterRings()))
}
