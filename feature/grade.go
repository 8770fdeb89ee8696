package feature

import (
	"strconv"
	"strings"

	"osmscout/fileio"
)

// surfaceToGrade maps common OSM surface values to the 1..5 tracktype
// grade scale used when tracktype itself is absent.
var surfaceToGrade = map[string]uint8{
	"paved":         1,
	"asphalt":       1,
	"concrete":      1,
	"paving_stones": 1,
	"compacted":     2,
	"fine_gravel":   2,
	"gravel":        3,
	"pebblestone":   3,
	"ground":        4,
	"dirt":          4,
	"earth":         4,
	"grass":         4,
	"mud":           5,
	"sand":          5,
}

type GradeValue struct {
	Grade uint8 // 1..5
}

func (v *GradeValue) Write(w *fileio.Writer) error { return w.WriteUint8(v.Grade) }
func (v *GradeValue) Read(s *fileio.Scanner) error {
	b, err := s.ReadUint8()
	v.Grade = b
	return err
}
func (v *GradeValue) Label(name string) (string, bool) {
	if name != "grade" {
		return "", false
	}
	return strconv.Itoa(int(v.Grade)), true
}

type GradeFeature struct{ baseFeature }

func NewGradeFeature() *GradeFeature {
	return &GradeFeature{baseFeature{name: "Grade", valueSize: 1, labels: []string{"grade"}}}
}

func (f *GradeFeature) AllocateValue() Value { return &GradeValue{} }

func (f *GradeFeature) Parse(reporter ErrorReporter, osmRef string, tags TagMap) (Value, bool) {
	if tt, ok := tags["tracktype"]; ok && strings.HasPrefix(tt, "grade") {
		n, err := strconv.Atoi(strings.TrimPrefix(tt, "grade"))
		if err == nil && n >= 1 && n <= 5 {
			return &GradeValue{Grade: uint8(n)}, true
		}
		reporter.ReportTag(osmRef, "tracktype", tt, "not one of grade1..grade5")
	}

	if surface, ok := tags["surface"]; ok {
		if g, ok := surfaceToGrade[surface]; ok {
			return &GradeValue{Grade: g}, true
		}
	}

	return nil, false
}
