package multipolygon

import (
	"testing"

	"osmscout/assert"
	"osmscout/common"
	"osmscout/types"
)

type fakeWays struct {
	ways map[int64]struct {
		points []common.Point
		tags   map[string]string
	}
}

func (f *fakeWays) ResolveWay(wayId int64) ([]common.Point, map[string]string, bool) {
	w, ok := f.ways[wayId]
	return w.points, w.tags, ok
}

type fakeRelations struct{}

func (fakeRelations) ResolveRelation(int64) (map[string]string, []Member, bool) { return nil, nil, false }

func pt(id int64, lat, lon float64) common.Point {
	return common.Point{Id: id, Coord: common.GeoCoord{Lat: lat, Lon: lon}}
}

func isWaterTag(tags map[string]string) bool { return tags["natural"] == "water" }

func buildTypes() *types.TypeConfig {
	tc := types.NewTypeConfig()
	water := types.NewTypeInfo("water", isWaterTag)
	water.CanBeArea = true
	tc.RegisterType(water)
	return tc
}

func TestResolver_SquareOuterTriangleInnerSameType(t *testing.T) {
	tc := buildTypes()

	outer := []common.Point{pt(1, 0, 0), pt(2, 0, 10), pt(3, 10, 10), pt(4, 10, 0), pt(1, 0, 0)}
	inner := []common.Point{pt(5, 2, 2), pt(6, 2, 4), pt(7, 4, 2), pt(5, 2, 2)}

	ways := &fakeWays{ways: map[int64]struct {
		points []common.Point
		tags   map[string]string
	}{
		100: {points: outer, tags: map[string]string{"natural": "water"}},
		200: {points: inner, tags: map[string]string{"natural": "water"}},
	}}

	r := &Resolver{
		Ways:      ways,
		Relations: fakeRelations{},
		TypeConfig: tc,
		RelationTypeOf: func(tags map[string]string) *types.TypeInfo { return tc.GetRelationType(tags) },
		WayAreaTypeOf:  func(tags map[string]string) *types.TypeInfo { return tc.GetWayAreaType(tags) },
		IsAdminBoundary: func(map[string]string) bool { return false },
	}

	in := Input{
		RelationId: 1,
		Tags:       map[string]string{"natural": "water", "type": "multipolygon"},
		Members: []Member{
			{Kind: MemberWay, Ref: 100, Role: RoleOuter},
			{Kind: MemberWay, Ref: 200, Role: RoleInner},
		},
	}

	result, err := r.Resolve(in)
	assert.NoError(t, err)
	if result == nil {
		t.Fatal("expected a result")
	}
	assert.Equal(t, 2, len(result.Rings))
	assert.True(t, result.ConsumedWays[100])
	assert.True(t, result.ConsumedWays[200])

	var outerDepth, innerDepth uint8
	for _, ring := range result.Rings {
		if len(ring.Points) == 4 {
			outerDepth = ring.Depth
		} else {
			innerDepth = ring.Depth
		}
	}
	assert.Equal(t, uint8(1), outerDepth)
	assert.Equal(t, uint8(2), innerDepth)
}

func TestResolver_OpenWaysChainIntoClosedRing(t *testing.T) {
	tc := types.NewTypeConfig()
	park := types.NewTypeInfo("leisure_park", func(tags map[string]string) bool { return tags["leisure"] == "park" })
	park.CanBeArea = true
	tc.RegisterType(park)

	half1 := []common.Point{pt(1, 0, 0), pt(2, 0, 10)}
	half2 := []common.Point{pt(2, 0, 10), pt(3, 10, 10)}
	half3 := []common.Point{pt(3, 10, 10), pt(1, 0, 0)}

	ways := &fakeWays{ways: map[int64]struct {
		points []common.Point
		tags   map[string]string
	}{
		10: {points: half1, tags: map[string]string{"leisure": "park"}},
		11: {points: half2, tags: nil},
		12: {points: half3, tags: nil},
	}}

	r := &Resolver{
		Ways:      ways,
		Relations: fakeRelations{},
		TypeConfig: tc,
		RelationTypeOf: func(tags map[string]string) *types.TypeInfo { return tc.GetRelationType(tags) },
		WayAreaTypeOf:  func(tags map[string]string) *types.TypeInfo { return tc.GetWayAreaType(tags) },
		IsAdminBoundary: func(map[string]string) bool { return false },
	}

	in := Input{
		RelationId: 2,
		Tags:       map[string]string{"leisure": "park", "type": "multipolygon"},
		Members: []Member{
			{Kind: MemberWay, Ref: 10, Role: RoleOuter},
			{Kind: MemberWay, Ref: 11, Role: RoleOuter},
			{Kind: MemberWay, Ref: 12, Role: RoleOuter},
		},
	}

	result, err := r.Resolve(in)
	assert.NoError(t, err)
	if result == nil {
		t.Fatal("expected a result")
	}
	assert.Equal(t, 1, len(result.Rings))
	assert.Equal(t, 3, len(result.Rings[0].Points))
}

func TestResolver_ThreeLevelNesting(t *testing.T) {
	tc := buildTypes()

	outer := []common.Point{pt(1, 0, 0), pt(2, 0, 12), pt(3, 12, 12), pt(4, 12, 0), pt(1, 0, 0)}
	middle := []common.Point{pt(5, 2, 2), pt(6, 2, 10), pt(7, 10, 10), pt(8, 10, 2), pt(5, 2, 2)}
	island := []common.Point{pt(9, 4, 4), pt(10, 4, 8), pt(11, 8, 8), pt(12, 8, 4), pt(9, 4, 4)}

	ways := &fakeWays{ways: map[int64]struct {
		points []common.Point
		tags   map[string]string
	}{
		100: {points: outer, tags: map[string]string{"natural": "water"}},
		200: {points: middle, tags: nil},
		300: {points: island, tags: nil},
	}}

	r := &Resolver{
		Ways:            ways,
		Relations:       fakeRelations{},
		TypeConfig:      tc,
		RelationTypeOf:  func(tags map[string]string) *types.TypeInfo { return tc.GetRelationType(tags) },
		WayAreaTypeOf:   func(tags map[string]string) *types.TypeInfo { return tc.GetWayAreaType(tags) },
		IsAdminBoundary: func(map[string]string) bool { return false },
	}

	in := Input{
		RelationId: 4,
		Tags:       map[string]string{"natural": "water", "type": "multipolygon"},
		Members: []Member{
			{Kind: MemberWay, Ref: 100, Role: RoleOuter},
			{Kind: MemberWay, Ref: 200, Role: RoleInner},
			{Kind: MemberWay, Ref: 300, Role: RoleOuter},
		},
	}

	result, err := r.Resolve(in)
	assert.NoError(t, err)
	if result == nil {
		t.Fatal("expected a result")
	}
	assert.Equal(t, 3, len(result.Rings))

	depthByFirstId := map[int64]uint8{}
	for _, ring := range result.Rings {
		depthByFirstId[ring.Points[0].Id] = ring.Depth
	}
	assert.Equal(t, uint8(1), depthByFirstId[1])
	assert.Equal(t, uint8(2), depthByFirstId[5])
	assert.Equal(t, uint8(3), depthByFirstId[9])
}

func TestResolver_UnresolvableWayFails(t *testing.T) {
	tc := types.NewTypeConfig()
	ways := &fakeWays{ways: map[int64]struct {
		points []common.Point
		tags   map[string]string
	}{}}

	r := &Resolver{
		Ways:      ways,
		Relations: fakeRelations{},
		TypeConfig: tc,
		RelationTypeOf: func(tags map[string]string) *types.TypeInfo { return tc.GetRelationType(tags) },
		WayAreaTypeOf:  func(tags map[string]string) *types.TypeInfo { return tc.GetWayAreaType(tags) },
		IsAdminBoundary: func(map[string]string) bool { return false },
	}

	result, err := r.Resolve(Input{RelationId: 3, Members: []Member{{Kind: MemberWay, Ref: 999, Role: RoleOuter}}})
	assert.NoError(t, err) // Resolve swallows phase errors into a nil result
	if result != nil {
		t.Fatal("expected nil result for an unresolvable relation")
	}
}
