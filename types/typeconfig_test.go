package types

import (
	"path/filepath"
	"testing"

	"osmscout/assert"
	"osmscout/fileio"
)

type stubFeature struct {
	name string
	size int
}

func (f stubFeature) Name() string    { return f.name }
func (f stubFeature) ValueSize() int  { return f.size }

func buildSampleConfig() *TypeConfig {
	c := NewTypeConfig()
	c.Tags.RegisterTag("highway")
	c.Tags.RegisterTag("name")

	highway := NewTypeInfo("highway_residential", func(tags map[string]string) bool {
		return tags["highway"] == "residential"
	})
	highway.CanBeWay = true
	highway.CanRouteCar = true
	highway.CanRouteFoot = true
	highway.CanRouteBicycle = true
	highway.Lanes = 2
	highway.AddFeature(stubFeature{"Name", 0}, false)
	highway.AddFeature(stubFeature{"MaxSpeed", 1}, true)
	c.RegisterType(highway)

	amenity := NewTypeInfo("amenity_cafe", func(tags map[string]string) bool {
		return tags["amenity"] == "cafe"
	})
	amenity.CanBeNode = true
	amenity.CanBeArea = true
	amenity.IndexAsPOI = true
	c.RegisterType(amenity)

	return c
}

func TestTypeConfig_RegisterAndMatch(t *testing.T) {
	c := buildSampleConfig()

	matched := c.GetWayAreaType(map[string]string{"highway": "residential"})
	assert.Equal(t, "highway_residential", matched.Name)
	assert.Equal(t, 1, matched.Ordinal())
	assert.Equal(t, uint32(1), matched.WayId)

	none := c.GetWayAreaType(map[string]string{"highway": "motorway"})
	assert.True(t, none.Ignore)
}

func TestTypeConfig_RegisterTypeIdempotent(t *testing.T) {
	c := buildSampleConfig()
	again := NewTypeInfo("highway_residential", nil)
	sealed := c.RegisterType(again)
	assert.Equal(t, 2, len(c.Types()))
	assert.True(t, sealed.Sealed())
	assert.Equal(t, uint8(2), sealed.Lanes)
}

func TestTypeConfig_DataFileRoundTrip(t *testing.T) {
	c := buildSampleConfig()
	dir := t.TempDir()

	assert.NoError(t, c.StoreToDataFile(dir))

	tagNames, storedTypes, err := LoadHeader(dir)
	assert.NoError(t, err)
	assert.Equal(t, []string{"highway", "name"}, tagNames)
	assert.Equal(t, 2, len(storedTypes))

	assert.Equal(t, "highway_residential", storedTypes[0].Name)
	assert.True(t, storedTypes[0].CanBeWay)
	assert.True(t, storedTypes[0].CanRouteCar)
	assert.Equal(t, uint8(2), storedTypes[0].Lanes)
	assert.Equal(t, 2, len(storedTypes[0].Features))
	assert.Equal(t, "Name", storedTypes[0].Features[0].Name)
	assert.False(t, storedTypes[0].Features[0].HasValue)
	assert.Equal(t, "MaxSpeed", storedTypes[0].Features[1].Name)
	assert.True(t, storedTypes[0].Features[1].HasValue)

	assert.Equal(t, "amenity_cafe", storedTypes[1].Name)
	assert.True(t, storedTypes[1].CanBeNode)
	assert.True(t, storedTypes[1].IndexAsPOI)
}

func TestTypeConfig_LoadFromDataFile(t *testing.T) {
	c := buildSampleConfig()
	dir := t.TempDir()
	assert.NoError(t, c.StoreToDataFile(dir))

	loaded := NewTypeConfig()
	loaded.RegisterFeature(stubFeature{"Name", 0})
	loaded.RegisterFeature(stubFeature{"MaxSpeed", 1})
	assert.NoError(t, loaded.LoadFromDataFile(dir))

	assert.Equal(t, 2, len(loaded.Types()))
	orig, _ := c.TypeByName("highway_residential")
	got, ok := loaded.TypeByName("highway_residential")
	assert.True(t, ok)
	assert.Equal(t, orig.WayId, got.WayId)
	assert.Equal(t, orig.Lanes, got.Lanes)
	assert.Equal(t, orig.CanRouteCar, got.CanRouteCar)
	assert.Equal(t, orig.FeatureMaskBytes(), got.FeatureMaskBytes())
	assert.Equal(t, orig.ValueBufferSize(), got.ValueBufferSize())
	inst, ok := got.FeatureInstanceByName("MaxSpeed")
	assert.True(t, ok)
	assert.True(t, inst.HasValue)
}

func TestTypeConfig_LoadFromDataFileUnknownFeature(t *testing.T) {
	c := buildSampleConfig()
	dir := t.TempDir()
	assert.NoError(t, c.StoreToDataFile(dir))

	empty := NewTypeConfig()
	assert.Error(t, empty.LoadFromDataFile(dir))
}

func TestTypeConfig_VersionMismatchFailsOpen(t *testing.T) {
	dir := t.TempDir()

	w := &fileio.Writer{}
	assert.NoError(t, w.Open(filepath.Join(dir, "types.dat")))
	assert.NoError(t, w.WriteUint32(FormatVersion+1))
	assert.NoError(t, w.WriteUvarint(0))
	assert.NoError(t, w.WriteUvarint(0))
	assert.NoError(t, w.Close())

	_, _, err := LoadHeader(dir)
	assert.Error(t, err)
}
