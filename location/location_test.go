package location

import (
	"testing"

	"osmscout/assert"
	"osmscout/common"
	"osmscout/objects"
)

func mustCoord(t *testing.T, lat, lon float64) common.GeoCoord {
	t.Helper()
	c, err := common.NewGeoCoord(lat, lon)
	assert.NoError(t, err)
	return c
}

func buildFixture(t *testing.T) *Index {
	t.Helper()
	idx := NewIndex()

	country := &AdminRegion{
		Ref:  objects.FileRef{Offset: 1, Kind: objects.KindArea},
		Name: "Testland",
		Box:  common.GeoBox{MinCoord: mustCoord(t, 0, 0), MaxCoord: mustCoord(t, 10, 10)},
	}
	idx.AddRegion(country)

	city := &AdminRegion{
		Ref:     objects.FileRef{Offset: 2, Kind: objects.KindArea},
		Name:    "Springfield",
		Aliases: []string{"The Big Spring"},
		Box:     common.GeoBox{MinCoord: mustCoord(t, 1, 1), MaxCoord: mustCoord(t, 2, 2)},
	}
	idx.AddRegion(city)

	street := &Location{Name: "Main Street", Objects: []objects.FileRef{{Offset: 10, Kind: objects.KindWay}}}
	idx.AddLocation(city, street)
	idx.AddAddress(street, &Address{Number: "42", Ref: objects.FileRef{Offset: 20, Kind: objects.KindNode}, Coord: mustCoord(t, 1.5, 1.5)})

	idx.AddPOI(city, &POI{Name: "Central Park", Ref: objects.FileRef{Offset: 30, Kind: objects.KindArea}, Coord: mustCoord(t, 1.4, 1.4)})

	return idx
}

func TestAddRegionNestsByContainment(t *testing.T) {
	idx := buildFixture(t)

	var seen []string
	idx.VisitRegions(func(r *AdminRegion) bool {
		seen = append(seen, r.Name)
		return true
	})
	assert.Equal(t, []string{"Testland", "Springfield"}, seen)

	city := idx.byRef[objects.FileRef{Offset: 2, Kind: objects.KindArea}]
	assert.Equal(t, "Testland", city.Parent.Name)
}

func TestRegionsAtOrdersMostSpecificFirst(t *testing.T) {
	idx := buildFixture(t)
	regions := idx.RegionsAt(mustCoord(t, 1.5, 1.5))
	assert.Equal(t, 2, len(regions))
	assert.Equal(t, "Springfield", regions[0].Name)
	assert.Equal(t, "Testland", regions[1].Name)
}

func TestReverseLookup(t *testing.T) {
	idx := buildFixture(t)

	region, loc, addr, poi, ok := idx.ReverseLookup(objects.FileRef{Offset: 20, Kind: objects.KindNode})
	assert.True(t, ok)
	assert.Equal(t, "Springfield", region.Name)
	assert.Equal(t, "Main Street", loc.Name)
	assert.Equal(t, "42", addr.Number)
	assert.Nil(t, poi)

	_, _, _, _, ok = idx.ReverseLookup(objects.FileRef{Offset: 999, Kind: objects.KindNode})
	assert.False(t, ok)
}

func TestSearchAliasAndSubstring(t *testing.T) {
	idx := buildFixture(t)

	results := idx.Search([]string{"big", "spring"})
	assert.True(t, len(results) > 0)
	assert.Equal(t, "Springfield", results[0].Region.Name)
	assert.Equal(t, QualityMatch, results[0].RegionQuality)

	results = idx.Search([]string{"main"})
	foundLocation := false
	for _, r := range results {
		if r.Location != nil && r.Location.Name == "Main Street" {
			foundLocation = true
		}
	}
	assert.True(t, foundLocation)
}

func TestStoreAndLoadRoundTrip(t *testing.T) {
	idx := buildFixture(t)
	dir := t.TempDir()

	assert.NoError(t, idx.StoreToDataFile(dir))

	loaded, err := LoadFromDataFile(dir)
	assert.NoError(t, err)

	var names []string
	loaded.VisitRegions(func(r *AdminRegion) bool {
		names = append(names, r.Name)
		return true
	})
	assert.Equal(t, []string{"Testland", "Springfield"}, names)

	region, loc, addr, _, ok := loaded.ReverseLookup(objects.FileRef{Offset: 20, Kind: objects.KindNode})
	assert.True(t, ok)
	assert.Equal(t, "Springfield", region.Name)
	assert.Equal(t, "Main Street", loc.Name)
	assert.Equal(t, "42", addr.Number)
}
