package lowzoom

import (
	"testing"

	"osmscout/assert"
	"osmscout/common"
)

func TestLowZoom_BuildAndQuery(t *testing.T) {
	b := NewBuilder()
	points := []common.GeoCoord{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 0.001},
		{Lat: 0, Lon: 0.002},
		{Lat: 0, Lon: 1},
	}
	b.AddLevel(10, 0.01, []WayEntry{
		{TypeId: 1, Offset: 42, Points: points},
	})

	dir := t.TempDir()
	assert.NoError(t, b.StoreToFile(dir, "waysopt.dat"))

	idx, err := LoadFromFile(dir, "waysopt.dat")
	assert.NoError(t, err)

	ways, loaded, err := idx.GetWays(common.Magnification{Level: 12}, map[uint32]bool{1: true, 2: true})
	assert.NoError(t, err)
	assert.True(t, loaded[1])
	assert.False(t, loaded[2])
	assert.Equal(t, 1, len(ways[1]))
	assert.Equal(t, uint64(42), ways[1][0].Offset)
	if len(ways[1][0].Points) >= len(points) {
		t.Fatalf("expected simplification to reduce point count, got %d from %d", len(ways[1][0].Points), len(points))
	}
}

func TestLowZoom_NoMatchingLevel(t *testing.T) {
	b := NewBuilder()
	b.AddLevel(10, 0.01, []WayEntry{{TypeId: 1, Offset: 1, Points: []common.GeoCoord{{Lat: 0, Lon: 0}}}})

	dir := t.TempDir()
	assert.NoError(t, b.StoreToFile(dir, "waysopt.dat"))
	idx, err := LoadFromFile(dir, "waysopt.dat")
	assert.NoError(t, err)

	_, loaded, err := idx.GetWays(common.Magnification{Level: 5}, map[uint32]bool{1: true})
	assert.NoError(t, err)
	assert.Equal(t, 0, len(loaded))
}
