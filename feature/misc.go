package feature

import (
	"strconv"
	"strings"

	"osmscout/fileio"
)

// Int8Value is the shared payload of small signed-numeric features
// (AdminLevel, Layer).
type Int8Value struct {
	N int8
}

func (v *Int8Value) Write(w *fileio.Writer) error { return w.WriteInt8(v.N) }
func (v *Int8Value) Read(s *fileio.Scanner) error {
	n, err := s.ReadInt8()
	v.N = n
	return err
}
func (v *Int8Value) Label(name string) (string, bool) { return strconv.Itoa(int(v.N)), true }

type int8Feature struct {
	baseFeature
	tagKey string
}

func (f *int8Feature) AllocateValue() Value { return &Int8Value{} }
func (f *int8Feature) Parse(reporter ErrorReporter, osmRef string, tags TagMap) (Value, bool) {
	raw, ok := tags[f.tagKey]
	if !ok {
		return nil, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < -128 || n > 127 {
		reporter.ReportTag(osmRef, f.tagKey, raw, "not a small integer")
		return nil, false
	}
	return &Int8Value{N: int8(n)}, true
}

func NewAdminLevelFeature() Feature {
	return &int8Feature{baseFeature{name: "AdminLevel", valueSize: 1, labels: []string{"admin_level"}}, "admin_level"}
}
func NewLayerFeature() Feature {
	return &int8Feature{baseFeature{name: "Layer", valueSize: 1, labels: []string{"layer"}}, "layer"}
}

// Uint16Value backs ConstructionYear (calendar year), which does not fit
// int8/uint8.
type Uint16Value struct {
	N uint16
}

func (v *Uint16Value) Write(w *fileio.Writer) error { return w.WriteUint16(v.N) }
func (v *Uint16Value) Read(s *fileio.Scanner) error {
	n, err := s.ReadUint16()
	v.N = n
	return err
}
func (v *Uint16Value) Label(name string) (string, bool) { return strconv.Itoa(int(v.N)), true }

type ConstructionYearFeature struct{ baseFeature }

func NewConstructionYearFeature() Feature {
	return &ConstructionYearFeature{baseFeature{name: "ConstructionYear", valueSize: 2, labels: []string{"construction_year"}}}
}
func (f *ConstructionYearFeature) AllocateValue() Value { return &Uint16Value{} }
func (f *ConstructionYearFeature) Parse(reporter ErrorReporter, osmRef string, tags TagMap) (Value, bool) {
	raw, ok := firstNonEmpty(tags, "construction_year", "start_date")
	if !ok {
		return nil, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw[:minInt(4, len(raw))]))
	if err != nil {
		reporter.ReportTag(osmRef, "construction_year", raw, "not a recognised year")
		return nil, false
	}
	return &Uint16Value{N: uint16(n)}, true
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// MaxStayFeature stores the free-text maxstay value (durations like "2 h",
// "30 min" are too varied to fully normalise here; downstream consumers
// parse the label string as needed).
func NewMaxStayFeature() Feature { return newStringFeature("MaxStay", "maxstay") }

// ChargingStationValue lists the declared socket types.
type ChargingStationValue struct {
	Sockets []string
}

func (v *ChargingStationValue) Write(w *fileio.Writer) error {
	if err := w.WriteUvarint(uint64(len(v.Sockets))); err != nil {
		return err
	}
	for _, s := range v.Sockets {
		if err := w.WriteString(s); err != nil {
			return err
		}
	}
	return nil
}

func (v *ChargingStationValue) Read(s *fileio.Scanner) error {
	n, err := s.ReadUvarint()
	if err != nil {
		return err
	}
	v.Sockets = make([]string, 0, n)
	for i := uint64(0); i < n; i++ {
		socket, err := s.ReadString()
		if err != nil {
			return err
		}
		v.Sockets = append(v.Sockets, socket)
	}
	return nil
}

func (v *ChargingStationValue) Label(name string) (string, bool) {
	if name != "sockets" {
		return "", false
	}
	return strings.Join(v.Sockets, ","), true
}

type ChargingStationFeature struct{ baseFeature }

func NewChargingStationFeature() Feature {
	return &ChargingStationFeature{baseFeature{name: "ChargingStation", valueSize: 0, labels: []string{"sockets"}}}
}
func (f *ChargingStationFeature) AllocateValue() Value { return &ChargingStationValue{} }
func (f *ChargingStationFeature) Parse(reporter ErrorReporter, osmRef string, tags TagMap) (Value, bool) {
	var sockets []string
	for k, v := range tags {
		if strings.HasPrefix(k, "socket:") && (v != "no" && v != "0") {
			sockets = append(sockets, strings.TrimPrefix(k, "socket:"))
		}
	}
	if len(sockets) == 0 {
		return nil, false
	}
	return &ChargingStationValue{Sockets: sockets}, true
}

// IsInFeature carries the free-text is_in containment hint used as a
// fallback during location resolution when no admin boundary covers a POI.
func NewIsInFeature() Feature { return newStringFeature("IsIn", "is_in") }
