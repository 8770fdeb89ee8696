package feature

import (
	"strings"

	"osmscout/fileio"
)

// AccessMask is the 8-bit per-mode, per-direction travel permission mask:
// footForward, footBackward, bicycleForward, bicycleBackward,
// carForward, carBackward, onewayForward, onewayBackward.
type AccessMask = uint8

const (
	AccessFootForward uint8 = 1 << iota
	AccessFootBackward
	AccessBicycleForward
	AccessBicycleBackward
	AccessCarForward
	AccessCarBackward
	AccessOnewayForward
	AccessOnewayBackward
)

// AccessValue holds the 8-bit per-mode, per-direction access mask.
type AccessValue struct {
	Mask uint8
}

func (v *AccessValue) Write(w *fileio.Writer) error { return w.WriteUint8(v.Mask) }

func (v *AccessValue) Read(s *fileio.Scanner) error {
	m, err := s.ReadUint8()
	if err != nil {
		return err
	}
	v.Mask = m
	return nil
}

func (v *AccessValue) Label(name string) (string, bool) {
	if name != "access" {
		return "", false
	}
	var parts []string
	if v.Mask&AccessFootForward != 0 || v.Mask&AccessFootBackward != 0 {
		parts = append(parts, "foot")
	}
	if v.Mask&AccessBicycleForward != 0 || v.Mask&AccessBicycleBackward != 0 {
		parts = append(parts, "bicycle")
	}
	if v.Mask&AccessCarForward != 0 || v.Mask&AccessCarBackward != 0 {
		parts = append(parts, "car")
	}
	return strings.Join(parts, ","), true
}

// AccessFeature evaluates access tags with fixed precedence: class-level
// access=no clears everything, then direction-qualified overrides apply,
// then mode-specific keys tighten, and junction=roundabout forces
// forward-only travel.
type AccessFeature struct{ baseFeature }

func NewAccessFeature() *AccessFeature {
	return &AccessFeature{baseFeature{name: "Access", valueSize: 1, labels: []string{"access"}}}
}

func (f *AccessFeature) AllocateValue() Value { return &AccessValue{} }

func (f *AccessFeature) Parse(reporter ErrorReporter, osmRef string, tags TagMap) (Value, bool) {
	_, hasAnyRelevantTag := tags["access"]
	for _, k := range []string{"oneway", "junction", "foot", "bicycle", "motor_vehicle", "motorcar"} {
		if _, ok := tags[k]; ok {
			hasAnyRelevantTag = true
		}
	}
	if !hasAnyRelevantTag {
		return nil, false
	}

	mask := uint8(
		AccessFootForward | AccessFootBackward |
			AccessBicycleForward | AccessBicycleBackward |
			AccessCarForward | AccessCarBackward,
	)

	if v, ok := tags["access"]; ok && (v == "no" || v == "private") {
		mask = 0
	}

	isRoundabout := tags["junction"] == "roundabout"
	oneway := tags["oneway"]
	if isRoundabout || oneway == "yes" || oneway == "1" || oneway == "true" {
		mask &^= AccessCarBackward | AccessBicycleBackward
		mask |= AccessOnewayForward
	} else if oneway == "-1" || oneway == "reverse" {
		mask &^= AccessCarForward | AccessBicycleForward
		mask |= AccessOnewayBackward
	}

	applyMode(tags, "foot", &mask, AccessFootForward, AccessFootBackward)
	applyMode(tags, "bicycle", &mask, AccessBicycleForward, AccessBicycleBackward)
	if v, ok := firstNonEmpty(tags, "motor_vehicle", "motorcar"); ok {
		applyModeValue(v, &mask, AccessCarForward, AccessCarBackward)
	}

	return &AccessValue{Mask: mask}, true
}

func applyMode(tags TagMap, key string, mask *uint8, fwd, back uint8) {
	if v, ok := tags[key]; ok {
		applyModeValue(v, mask, fwd, back)
	}
}

func applyModeValue(v string, mask *uint8, fwd, back uint8) {
	switch v {
	case "no", "private":
		*mask &^= fwd | back
	case "yes", "designated", "permissive":
		*mask |= fwd | back
	}
}

func firstNonEmpty(tags TagMap, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := tags[k]; ok {
			return v, true
		}
	}
	return "", false
}

// AccessRestrictedValue is a single boolean: whether any access restriction
// tag was present at all, independent of which directions it affects.
type AccessRestrictedValue struct{ Restricted bool }

func (v *AccessRestrictedValue) Write(w *fileio.Writer) error { return w.WriteBool(v.Restricted) }
func (v *AccessRestrictedValue) Read(s *fileio.Scanner) error {
	b, err := s.ReadBool()
	v.Restricted = b
	return err
}
func (v *AccessRestrictedValue) Label(name string) (string, bool) {
	if name != "restricted" {
		return "", false
	}
	if v.Restricted {
		return "yes", true
	}
	return "no", true
}

type AccessRestrictedFeature struct{ baseFeature }

func NewAccessRestrictedFeature() *AccessRestrictedFeature {
	return &AccessRestrictedFeature{baseFeature{name: "AccessRestricted", valueSize: 1, labels: []string{"restricted"}}}
}
func (f *AccessRestrictedFeature) AllocateValue() Value { return &AccessRestrictedValue{} }
func (f *AccessRestrictedFeature) Parse(reporter ErrorReporter, osmRef string, tags TagMap) (Value, bool) {
	v, ok := tags["access"]
	restricted := ok && v != "yes" && v != "permissive"
	if !ok {
		return &AccessRestrictedValue{Restricted: false}, false
	}
	return &AccessRestrictedValue{Restricted: restricted}, true
}
