package types

// SpecialType distinguishes the handful of relation shapes that need
// dedicated resolver behaviour instead of generic area/way treatment.
type SpecialType uint8

const (
	SpecialNone SpecialType = iota
	SpecialMultipolygon
	SpecialRouteMaster
	SpecialRoute
)

// Condition evaluates a tag map during getNodeType/getWayAreaType/
// getRelationType resolution; the first TypeInfo whose Condition matches
// wins. Implementations close over whatever tags they require.
type Condition func(tags map[string]string) bool

// FeatureInstance binds a Feature to a TypeInfo: which bit flags its
// presence, where its value lives in the value-buffer, and whether it
// carries a value at all (some features are boolean-only, e.g. Roundabout).
type FeatureInstance struct {
	Feature     FeatureDescriptor
	Index       int // bit index into the type's feature mask
	BufferOffset int // byte offset into the value-buffer region
	HasValue    bool
}

// FeatureDescriptor is the subset of feature.Feature that types needs to
// lay out a TypeInfo's value buffer, without types importing the feature
// package (which in turn imports types for TypeInfo references). Concrete
// Feature implementations in package feature satisfy this implicitly.
type FeatureDescriptor interface {
	Name() string
	ValueSize() int
}

// TypeInfo is a registered, sealed type record. Once returned from
// TypeConfig.RegisterType its feature list, masks and value-buffer size
// never change; every FeatureValueBuffer of this type shares that layout.
type TypeInfo struct {
	Name string

	NodeId  uint32
	WayId   uint32
	AreaId  uint32
	RouteId uint32

	CanBeNode     bool
	CanBeWay      bool
	CanBeArea     bool
	CanBeRelation bool
	IsPath        bool

	CanRouteFoot    bool
	CanRouteBicycle bool
	CanRouteCar     bool

	IndexAsAddress  bool
	IndexAsLocation bool
	IndexAsRegion   bool
	IndexAsPOI      bool

	OptimizeLowZoom bool
	PinWay          bool
	MergeAreas      bool
	IgnoreSeaLand   bool
	Ignore          bool

	Special SpecialType

	Lanes       uint8
	OnewayLanes uint8

	Groups      []string
	Description map[string]string // language code -> description

	condition Condition

	// sealed layout, fixed by TypeConfig.RegisterType
	sealed          bool
	ordinal         int
	features        []FeatureInstance
	featureIndex    map[string]int
	featureMaskBits int
	valueBufferSize int
}

// TypeIgnore is the sentinel returned when no registered type's condition
// matches a tag map.
var TypeIgnore = &TypeInfo{Name: "", Ignore: true, sealed: true}

func NewTypeInfo(name string, condition Condition) *TypeInfo {
	return &TypeInfo{
		Name:        name,
		condition:   condition,
		Description: map[string]string{},
		featureIndex: map[string]int{},
	}
}

func (t *TypeInfo) Sealed() bool            { return t.sealed }
func (t *TypeInfo) Ordinal() int            { return t.ordinal }
func (t *TypeInfo) FeatureMaskBytes() int   { return (t.featureMaskBits + 7) / 8 }
func (t *TypeInfo) FeatureCount() int       { return len(t.features) }
func (t *TypeInfo) ValueBufferSize() int    { return t.valueBufferSize }
func (t *TypeInfo) Features() []FeatureInstance { return t.features }

// FeatureInstanceByName looks up a sealed type's feature binding.
func (t *TypeInfo) FeatureInstanceByName(name string) (FeatureInstance, bool) {
	idx, ok := t.featureIndex[name]
	if !ok {
		return FeatureInstance{}, false
	}
	return t.features[idx], true
}

// matches evaluates the type's registration condition against a tag map.
func (t *TypeInfo) matches(tags map[string]string) bool {
	if t.condition == nil {
		return false
	}
	return t.condition(tags)
}

// AddFeature registers name as a feature this type may carry, assigning it
// the next mask bit and value-buffer offset. Must be called before
// TypeConfig.RegisterType seals the type; it panics on a sealed TypeInfo.
func (t *TypeInfo) AddFeature(f FeatureDescriptor, hasValue bool) {
	if t.sealed {
		panic("types: cannot add feature to sealed TypeInfo " + t.Name)
	}
	if _, exists := t.featureIndex[f.Name()]; exists {
		return
	}
	inst := FeatureInstance{
		Feature:      f,
		Index:        t.featureMaskBits,
		BufferOffset: t.valueBufferSize,
		HasValue:     hasValue,
	}
	t.featureIndex[f.Name()] = len(t.features)
	t.features = append(t.features, inst)
	t.featureMaskBits++
	if hasValue {
		t.valueBufferSize += f.ValueSize()
	}
}

func (t *TypeInfo) seal(ordinal int) {
	t.sealed = true
	t.ordinal = ordinal
}
