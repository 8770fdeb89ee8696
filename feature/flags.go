package feature

// flagFeature is a boolean-only feature: its presence bit in the
// ValueBuffer mask carries the entire meaning, HasValue is always false.
type flagFeature struct {
	baseFeature
	tagKey   string
	tagValue string // "" means "any truthy value"
}

func (f *flagFeature) AllocateValue() Value { return nil }

func (f *flagFeature) Parse(reporter ErrorReporter, osmRef string, tags TagMap) (Value, bool) {
	v, ok := tags[f.tagKey]
	if !ok {
		return nil, false
	}
	if f.tagValue != "" {
		return nil, v == f.tagValue
	}
	return nil, v == "yes" || v == "1" || v == "true"
}

func newFlagFeature(name, tagKey, tagValue string) *flagFeature {
	return &flagFeature{baseFeature: baseFeature{name: name, valueSize: 0, labels: nil}, tagKey: tagKey, tagValue: tagValue}
}

func NewBridgeFeature() Feature     { return newFlagFeature("Bridge", "bridge", "") }
func NewTunnelFeature() Feature     { return newFlagFeature("Tunnel", "tunnel", "") }
func NewRoundaboutFeature() Feature { return newFlagFeature("Roundabout", "junction", "roundabout") }
func NewEmbankmentFeature() Feature { return newFlagFeature("Embankment", "embankment", "") }
func NewFeeFeature() Feature        { return newFlagFeature("Fee", "fee", "") }
func NewClockwiseFeature() Feature  { return newFlagFeature("Clockwise", "direction", "clockwise") }
