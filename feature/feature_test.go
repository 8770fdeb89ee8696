package feature

import (
	"path/filepath"
	"testing"

	"osmscout/assert"
	"osmscout/fileio"
	"osmscout/types"
)

func buildRoadType() (*types.TypeConfig, *types.TypeInfo) {
	c := types.NewTypeConfig()
	road := types.NewTypeInfo("highway_primary", func(tags map[string]string) bool {
		return tags["highway"] == "primary"
	})
	road.CanBeWay = true
	road.AddFeature(NewNameFeature(), true)
	road.AddFeature(NewAccessFeature(), true)
	road.AddFeature(NewMaxSpeedFeature(), true)
	road.AddFeature(NewGradeFeature(), true)
	road.AddFeature(NewWidthFeature(), true)
	road.AddFeature(NewLanesFeature(), true)
	road.AddFeature(NewBridgeFeature(), false)
	sealed := c.RegisterType(road)
	return c, sealed
}

func TestValueBuffer_ParseWriteReadRoundTrip(t *testing.T) {
	_, road := buildRoadType()

	tags := TagMap{
		"highway":  "primary",
		"name":     "Main Street",
		"maxspeed": "50",
		"surface":  "asphalt",
		"width":    "4,5 m",
		"lanes":    "2",
		"bridge":   "yes",
	}

	buf := NewValueBuffer()
	buf.SetType(road)
	buf.Parse(NopReporter{}, "w/1", tags)

	assert.True(t, buf.HasFeature(0)) // Name
	assert.True(t, buf.HasFeature(2)) // MaxSpeed
	assert.True(t, buf.HasFeature(6)) // Bridge flag, no value

	dir := t.TempDir()
	w := &fileio.Writer{}
	assert.NoError(t, w.Open(filepath.Join(dir, "buf.dat")))
	assert.NoError(t, buf.Write(w, nil))
	assert.NoError(t, w.Close())

	s := &fileio.Scanner{}
	assert.NoError(t, s.Open(filepath.Join(dir, "buf.dat"), fileio.Sequential, false))
	readBuf := NewValueBuffer()
	assert.NoError(t, readBuf.Read(s, road))
	assert.NoError(t, s.Close())

	nameInst, _ := road.FeatureInstanceByName("Name")
	nameValue := readBuf.GetValue(nameInst).(*StringValue)
	assert.Equal(t, "Main Street", nameValue.Text)

	speedInst, _ := road.FeatureInstanceByName("MaxSpeed")
	speedValue := readBuf.GetValue(speedInst).(*MaxSpeedValue)
	assert.Equal(t, uint8(50), speedValue.KmH)

	gradeInst, _ := road.FeatureInstanceByName("Grade")
	gradeValue := readBuf.GetValue(gradeInst).(*GradeValue)
	assert.Equal(t, uint8(1), gradeValue.Grade) // asphalt -> grade 1

	widthInst, _ := road.FeatureInstanceByName("Width")
	widthValue := readBuf.GetValue(widthInst).(*WidthValue)
	assert.Equal(t, uint8(5), widthValue.Meters) // 4.5 rounds to 5

	lanesInst, _ := road.FeatureInstanceByName("Lanes")
	lanesValue := readBuf.GetValue(lanesInst).(*LanesValue)
	assert.Equal(t, uint8(1), lanesValue.Forward)
	assert.Equal(t, uint8(1), lanesValue.Backward)

	assert.True(t, readBuf.HasFeature(6)) // Bridge flag survives
}

func TestValueBuffer_SpecialFlagsRoundTrip(t *testing.T) {
	_, road := buildRoadType() // 7 features, so one spare bit in the mask byte

	for _, flags := range [][]bool{
		{true},                    // fits the spare bit
		{true, false, true},       // needs the appended byte
		{false, true, true, false, true, false, false, true},
	} {
		buf := NewValueBuffer()
		buf.SetType(road)
		buf.Parse(NopReporter{}, "w/1", TagMap{"name": "Main Street"})

		dir := t.TempDir()
		w := &fileio.Writer{}
		assert.NoError(t, w.Open(filepath.Join(dir, "buf.dat")))
		assert.NoError(t, buf.Write(w, flags))
		assert.NoError(t, w.Close())

		s := &fileio.Scanner{}
		assert.NoError(t, s.Open(filepath.Join(dir, "buf.dat"), fileio.Sequential, false))
		readBuf := NewValueBuffer()
		gotFlags, err := readBuf.ReadWithFlags(s, road, len(flags))
		assert.NoError(t, err)
		assert.NoError(t, s.Close())

		assert.DeepEqual(t, flags, gotFlags)
		assert.True(t, readBuf.HasFeature(0))
		nameInst, _ := road.FeatureInstanceByName("Name")
		assert.Equal(t, "Main Street", readBuf.GetValue(nameInst).(*StringValue).Text)
	}
}

func TestAccessFeature_OnewayRoundabout(t *testing.T) {
	f := NewAccessFeature()
	v, ok := f.Parse(NopReporter{}, "w/2", TagMap{"junction": "roundabout"})
	assert.True(t, ok)
	mask := v.(*AccessValue).Mask
	assert.True(t, mask&AccessOnewayForward != 0)
	assert.True(t, mask&AccessCarBackward == 0)
	assert.True(t, mask&AccessCarForward != 0)
}

func TestAccessFeature_OnewayClearsBackward(t *testing.T) {
	f := NewAccessFeature()
	v, ok := f.Parse(NopReporter{}, "w/7", TagMap{"oneway": "yes"})
	assert.True(t, ok)
	mask := v.(*AccessValue).Mask
	assert.True(t, mask&AccessCarBackward == 0)
	assert.True(t, mask&AccessBicycleBackward == 0)
	assert.True(t, mask&AccessFootBackward != 0)
	assert.True(t, mask&AccessOnewayForward != 0)
}

func TestMaxSpeedFeature_MphConversion(t *testing.T) {
	f := NewMaxSpeedFeature()
	v, ok := f.Parse(NopReporter{}, "w/3", TagMap{"maxspeed": "30 mph"})
	assert.True(t, ok)
	assert.Equal(t, uint8(48), v.(*MaxSpeedValue).KmH) // 30 * 1.609 = 48.27 -> 48

	_, ok = f.Parse(NopReporter{}, "w/4", TagMap{"maxspeed": "signals"})
	assert.False(t, ok)
}

func TestWidthFeature_ClampsAndNormalises(t *testing.T) {
	f := NewWidthFeature()
	v, ok := f.Parse(NopReporter{}, "w/5", TagMap{"width": "300"})
	assert.True(t, ok)
	assert.Equal(t, uint8(255), v.(*WidthValue).Meters)
}

func TestSidewayFeature_TrackOverridesLane(t *testing.T) {
	f := NewSidewayFeature()
	v, ok := f.Parse(NopReporter{}, "w/6", TagMap{"cycleway": "track", "sidewalk": "both"})
	assert.True(t, ok)
	mask := v.(*SidewayValue).Mask
	assert.True(t, mask&SidewayCycleTrackForward != 0)
	assert.True(t, mask&SidewayCycleLaneForward == 0)
	assert.True(t, mask&SidewayWalkLaneForward != 0)

	_, ok = f.Parse(NopReporter{}, "w/7", TagMap{"cycleway": "no"})
	assert.False(t, ok)
}
