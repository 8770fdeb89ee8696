package areaindex

import (
	"testing"

	"osmscout/assert"
	"osmscout/common"
)

func TestIndex_BuildAndQuery(t *testing.T) {
	idx := NewIndex(14)

	idx.Add(Entry{TypeId: 1, Offset: 100, Box: common.GeoBox{
		MinCoord: common.GeoCoord{Lat: 52.50, Lon: 13.40},
		MaxCoord: common.GeoCoord{Lat: 52.50, Lon: 13.40},
	}})
	idx.Add(Entry{TypeId: 1, Offset: 200, Box: common.GeoBox{
		MinCoord: common.GeoCoord{Lat: 52.51, Lon: 13.41},
		MaxCoord: common.GeoCoord{Lat: 52.51, Lon: 13.41},
	}})
	idx.Add(Entry{TypeId: 2, Offset: 999, Box: common.GeoBox{
		MinCoord: common.GeoCoord{Lat: 10, Lon: 10},
		MaxCoord: common.GeoCoord{Lat: 10, Lon: 10},
	}})

	dir := t.TempDir()
	assert.NoError(t, idx.StoreToFile(dir, "areanode.idx"))

	loaded, err := LoadFromFile(dir, "areanode.idx")
	assert.NoError(t, err)
	defer loaded.Close()

	box := common.GeoBox{
		MinCoord: common.GeoCoord{Lat: 52.49, Lon: 13.39},
		MaxCoord: common.GeoCoord{Lat: 52.52, Lon: 13.42},
	}
	offsets, err := loaded.GetOffsets(map[uint32]bool{1: true}, box)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(offsets))
	_, has100 := offsets[100]
	_, has200 := offsets[200]
	assert.True(t, has100)
	assert.True(t, has200)

	farAway, err := loaded.GetOffsets(map[uint32]bool{2: true}, box)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(farAway))
}

func TestIndex_MultiCellObjectFoundFromAnyCoveredCell(t *testing.T) {
	idx := NewIndex(14)
	// spans many cells at level 14
	idx.Add(Entry{TypeId: 1, Offset: 7, Box: common.GeoBox{
		MinCoord: common.GeoCoord{Lat: 52.50, Lon: 13.40},
		MaxCoord: common.GeoCoord{Lat: 52.60, Lon: 13.55},
	}})

	dir := t.TempDir()
	assert.NoError(t, idx.StoreToFile(dir, "areaway.idx"))
	loaded, err := LoadFromFile(dir, "areaway.idx")
	assert.NoError(t, err)
	defer loaded.Close()

	// A query box overlapping only the object's far corner must still
	// find it, not just one that covers the min corner.
	farCorner := common.GeoBox{
		MinCoord: common.GeoCoord{Lat: 52.59, Lon: 13.54},
		MaxCoord: common.GeoCoord{Lat: 52.61, Lon: 13.56},
	}
	offsets, err := loaded.GetOffsets(map[uint32]bool{1: true}, farCorner)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(offsets))
	_, has := offsets[7]
	assert.True(t, has)

	middle := common.GeoBox{
		MinCoord: common.GeoCoord{Lat: 52.55, Lon: 13.47},
		MaxCoord: common.GeoCoord{Lat: 52.55, Lon: 13.47},
	}
	offsets, err = loaded.GetOffsets(map[uint32]bool{1: true}, middle)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(offsets))
}

func TestIndex_SinglePointBox(t *testing.T) {
	idx := NewIndex(14)
	coord := common.GeoCoord{Lat: 52.50, Lon: 13.40}
	idx.Add(Entry{TypeId: 1, Offset: 42, Box: common.GeoBox{MinCoord: coord, MaxCoord: coord}})

	dir := t.TempDir()
	assert.NoError(t, idx.StoreToFile(dir, "areanode.idx"))
	loaded, err := LoadFromFile(dir, "areanode.idx")
	assert.NoError(t, err)
	defer loaded.Close()

	offsets, err := loaded.GetOffsets(map[uint32]bool{1: true}, common.GeoBox{MinCoord: coord, MaxCoord: coord})
	assert.NoError(t, err)
	assert.Equal(t, 1, len(offsets))
	_, has := offsets[42]
	assert.True(t, has)
}
