package types

import (
	"path/filepath"

	"github.com/pkg/errors"

	"osmscout/fileio"
)

// FormatVersion is written into types.dat's header; LoadFromDataFile rejects
// any other value.
const FormatVersion uint32 = 1

// TypeConfig is the sealed registry of tags, features and types a database
// is built against. Construct one with NewTypeConfig, register
// tags/features/types, then treat it as read-only.
type TypeConfig struct {
	Tags *TagRegistry

	types    []*TypeInfo
	byName   map[string]*TypeInfo
	byNodeId map[uint32]*TypeInfo
	byWayId  map[uint32]*TypeInfo
	byAreaId map[uint32]*TypeInfo
	features map[string]FeatureDescriptor
	nextNode uint32
	nextWay  uint32
	nextArea uint32
	nextRoute uint32
}

func NewTypeConfig() *TypeConfig {
	return &TypeConfig{
		Tags:     NewTagRegistry(),
		byName:   map[string]*TypeInfo{},
		byNodeId: map[uint32]*TypeInfo{},
		byWayId:  map[uint32]*TypeInfo{},
		byAreaId: map[uint32]*TypeInfo{},
		features: map[string]FeatureDescriptor{},
	}
}

// RegisterFeature records f as a known feature definition, resolvable by
// name when types.dat is loaded. Idempotent.
func (c *TypeConfig) RegisterFeature(f FeatureDescriptor) {
	if _, ok := c.features[f.Name()]; ok {
		return
	}
	c.features[f.Name()] = f
}

func (c *TypeConfig) FeatureByName(name string) (FeatureDescriptor, bool) {
	f, ok := c.features[name]
	return f, ok
}

// RegisterType seals t (assigning per-kind numeric ids and an ordinal) and
// indexes it by name. Idempotent: registering the same name twice returns
// the already-sealed TypeInfo unchanged.
func (c *TypeConfig) RegisterType(t *TypeInfo) *TypeInfo {
	if existing, ok := c.byName[t.Name]; ok {
		return existing
	}

	if t.CanBeNode {
		c.nextNode++
		t.NodeId = c.nextNode
		c.byNodeId[t.NodeId] = t
	}
	if t.CanBeWay {
		c.nextWay++
		t.WayId = c.nextWay
		c.byWayId[t.WayId] = t
	}
	if t.CanBeArea {
		c.nextArea++
		t.AreaId = c.nextArea
		c.byAreaId[t.AreaId] = t
	}
	if t.Special == SpecialRoute || t.Special == SpecialRouteMaster {
		c.nextRoute++
		t.RouteId = c.nextRoute
	}

	// ordinal 0 stays reserved for TypeIgnore
	t.seal(len(c.types) + 1)
	c.types = append(c.types, t)
	c.byName[t.Name] = t
	return t
}

func (c *TypeConfig) TypeByName(name string) (*TypeInfo, bool) {
	t, ok := c.byName[name]
	return t, ok
}

func (c *TypeConfig) Types() []*TypeInfo { return c.types }

func (c *TypeConfig) TypeByNodeId(id uint32) (*TypeInfo, bool) { t, ok := c.byNodeId[id]; return t, ok }
func (c *TypeConfig) TypeByWayId(id uint32) (*TypeInfo, bool)  { t, ok := c.byWayId[id]; return t, ok }
func (c *TypeConfig) TypeByAreaId(id uint32) (*TypeInfo, bool) { t, ok := c.byAreaId[id]; return t, ok }

// GetNodeType evaluates registered node-capable types in declaration order.
func (c *TypeConfig) GetNodeType(tags map[string]string) *TypeInfo {
	for _, t := range c.types {
		if t.CanBeNode && t.matches(tags) {
			return t
		}
	}
	return TypeIgnore
}

// GetWayAreaType evaluates registered way/area-capable types in
// declaration order; ways and areas share one type namespace.
func (c *TypeConfig) GetWayAreaType(tags map[string]string) *TypeInfo {
	for _, t := range c.types {
		if (t.CanBeWay || t.CanBeArea) && t.matches(tags) {
			return t
		}
	}
	return TypeIgnore
}

// GetRelationType evaluates registered relation-capable types, including
// the special multipolygon/route/routeMaster shapes.
func (c *TypeConfig) GetRelationType(tags map[string]string) *TypeInfo {
	for _, t := range c.types {
		if t.CanBeRelation && t.matches(tags) {
			return t
		}
	}
	return TypeIgnore
}

// StoreToDataFile writes types.dat into dir: format version, tag names,
// then each sealed type's descriptor and feature-name list (feature layout
// itself is recomputed by AddFeature calls at load time — only names and
// hasValue flags round-trip, since FeatureDescriptor implementations live
// in the feature package and aren't constructible generically here).
func (c *TypeConfig) StoreToDataFile(dir string) error {
	w := &fileio.Writer{}
	if err := w.Open(filepath.Join(dir, "types.dat")); err != nil {
		return err
	}

	if err := w.WriteUint32(FormatVersion); err != nil {
		return err
	}

	if err := w.WriteUvarint(uint64(c.Tags.Len() - 1)); err != nil {
		return err
	}
	for i := 1; i < c.Tags.Len(); i++ {
		if err := w.WriteString(c.Tags.idToName[i]); err != nil {
			return err
		}
	}

	if err := w.WriteUvarint(uint64(len(c.types))); err != nil {
		return err
	}
	for _, t := range c.types {
		if err := writeTypeInfo(w, t); err != nil {
			return err
		}
	}

	return w.Close()
}

func writeTypeInfo(w *fileio.Writer, t *TypeInfo) error {
	if err := w.WriteString(t.Name); err != nil {
		return err
	}
	flags := boolsToByte(
		t.CanBeNode, t.CanBeWay, t.CanBeArea, t.CanBeRelation,
		t.IsPath, t.CanRouteFoot, t.CanRouteBicycle, t.CanRouteCar,
	)
	if err := w.WriteUint8(flags); err != nil {
		return err
	}
	flags2 := boolsToByte(
		t.IndexAsAddress, t.IndexAsLocation, t.IndexAsRegion, t.IndexAsPOI,
		t.OptimizeLowZoom, t.PinWay, t.MergeAreas, t.IgnoreSeaLand,
	)
	if err := w.WriteUint8(flags2); err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(t.Special)); err != nil {
		return err
	}
	if err := w.WriteUint8(t.Lanes); err != nil {
		return err
	}
	if err := w.WriteUint8(t.OnewayLanes); err != nil {
		return err
	}
	if err := w.WriteUint32(t.NodeId); err != nil {
		return err
	}
	if err := w.WriteUint32(t.WayId); err != nil {
		return err
	}
	if err := w.WriteUint32(t.AreaId); err != nil {
		return err
	}
	if err := w.WriteUint32(t.RouteId); err != nil {
		return err
	}
	if err := w.WriteUvarint(uint64(len(t.features))); err != nil {
		return err
	}
	for _, fi := range t.features {
		if err := w.WriteString(fi.Feature.Name()); err != nil {
			return err
		}
		if err := w.WriteBool(fi.HasValue); err != nil {
			return err
		}
	}
	return nil
}

// StoredType is the header-only record LoadFromDataFile reconstructs: type
// flags and feature names, without the feature value-size layout (which the
// caller must re-derive by calling TypeInfo.AddFeature with resolved
// FeatureDescriptor implementations from package feature, since types.dat
// does not itself carry executable parse logic).
type StoredType struct {
	Name          string
	CanBeNode     bool
	CanBeWay      bool
	CanBeArea     bool
	CanBeRelation bool
	IsPath        bool
	CanRouteFoot  bool
	CanRouteBicycle bool
	CanRouteCar   bool

	IndexAsAddress  bool
	IndexAsLocation bool
	IndexAsRegion   bool
	IndexAsPOI      bool
	OptimizeLowZoom bool
	PinWay          bool
	MergeAreas      bool
	IgnoreSeaLand   bool

	Special SpecialType
	Lanes   uint8
	OnewayLanes uint8

	NodeId, WayId, AreaId, RouteId uint32

	Features []StoredFeatureRef
}

type StoredFeatureRef struct {
	Name     string
	HasValue bool
}

// LoadHeader reads types.dat's tag names and per-type headers. It does not
// reconstruct a sealed TypeConfig on its own: LoadFromDataFile re-registers
// its result through RegisterType/AddFeature using the config's registered
// FeatureDescriptor table, mirroring how OBJECTS stores resolve type ids
// against an already-open TypeConfig rather than reparsing it per object.
func LoadHeader(dir string) (tagNames []string, storedTypes []StoredType, err error) {
	s := &fileio.Scanner{}
	if err = s.Open(filepath.Join(dir, "types.dat"), fileio.Sequential, false); err != nil {
		return nil, nil, err
	}
	defer s.Close()

	version, err := s.ReadUint32()
	if err != nil {
		return nil, nil, err
	}
	if version != FormatVersion {
		return nil, nil, errors.Errorf("types: unsupported types.dat version %d (want %d)", version, FormatVersion)
	}

	tagCount, err := s.ReadUvarint()
	if err != nil {
		return nil, nil, err
	}
	tagNames = make([]string, 0, tagCount)
	for i := uint64(0); i < tagCount; i++ {
		name, err := s.ReadString()
		if err != nil {
			return nil, nil, err
		}
		tagNames = append(tagNames, name)
	}

	typeCount, err := s.ReadUvarint()
	if err != nil {
		return nil, nil, err
	}
	storedTypes = make([]StoredType, 0, typeCount)
	for i := uint64(0); i < typeCount; i++ {
		st, err := readStoredType(s)
		if err != nil {
			return nil, nil, err
		}
		storedTypes = append(storedTypes, st)
	}

	if s.HasError() {
		return nil, nil, s.Error()
	}
	return tagNames, storedTypes, nil
}

func readStoredType(s *fileio.Scanner) (StoredType, error) {
	var st StoredType
	var err error

	if st.Name, err = s.ReadString(); err != nil {
		return st, err
	}
	flags, err := s.ReadUint8()
	if err != nil {
		return st, err
	}
	st.CanBeNode, st.CanBeWay, st.CanBeArea, st.CanBeRelation,
		st.IsPath, st.CanRouteFoot, st.CanRouteBicycle, st.CanRouteCar = byteToBools(flags)

	flags2, err := s.ReadUint8()
	if err != nil {
		return st, err
	}
	st.IndexAsAddress, st.IndexAsLocation, st.IndexAsRegion, st.IndexAsPOI,
		st.OptimizeLowZoom, st.PinWay, st.MergeAreas, st.IgnoreSeaLand = byteToBools(flags2)

	special, err := s.ReadUint8()
	if err != nil {
		return st, err
	}
	st.Special = SpecialType(special)

	if st.Lanes, err = s.ReadUint8(); err != nil {
		return st, err
	}
	if st.OnewayLanes, err = s.ReadUint8(); err != nil {
		return st, err
	}
	if st.NodeId, err = s.ReadUint32(); err != nil {
		return st, err
	}
	if st.WayId, err = s.ReadUint32(); err != nil {
		return st, err
	}
	if st.AreaId, err = s.ReadUint32(); err != nil {
		return st, err
	}
	if st.RouteId, err = s.ReadUint32(); err != nil {
		return st, err
	}

	featureCount, err := s.ReadUvarint()
	if err != nil {
		return st, err
	}
	st.Features = make([]StoredFeatureRef, 0, featureCount)
	for i := uint64(0); i < featureCount; i++ {
		name, err := s.ReadString()
		if err != nil {
			return st, err
		}
		hasValue, err := s.ReadBool()
		if err != nil {
			return st, err
		}
		st.Features = append(st.Features, StoredFeatureRef{Name: name, HasValue: hasValue})
	}

	return st, nil
}

// LoadFromDataFile reads types.dat into c, resolving each stored feature
// name against the features previously passed to RegisterFeature. An
// unknown feature name fails the load, as does a stored per-kind id that
// does not match what re-registration assigns (which happens when c
// already carried registered types). Loaded types carry no tag condition:
// tag-to-type resolution is an import-time concern, and a loaded config
// serves query-time id and feature-layout lookups only.
func (c *TypeConfig) LoadFromDataFile(dir string) error {
	tagNames, storedTypes, err := LoadHeader(dir)
	if err != nil {
		return err
	}

	for _, name := range tagNames {
		c.Tags.RegisterTag(name)
	}

	for _, st := range storedTypes {
		t := NewTypeInfo(st.Name, nil)
		t.CanBeNode = st.CanBeNode
		t.CanBeWay = st.CanBeWay
		t.CanBeArea = st.CanBeArea
		t.CanBeRelation = st.CanBeRelation
		t.IsPath = st.IsPath
		t.CanRouteFoot = st.CanRouteFoot
		t.CanRouteBicycle = st.CanRouteBicycle
		t.CanRouteCar = st.CanRouteCar
		t.IndexAsAddress = st.IndexAsAddress
		t.IndexAsLocation = st.IndexAsLocation
		t.IndexAsRegion = st.IndexAsRegion
		t.IndexAsPOI = st.IndexAsPOI
		t.OptimizeLowZoom = st.OptimizeLowZoom
		t.PinWay = st.PinWay
		t.MergeAreas = st.MergeAreas
		t.IgnoreSeaLand = st.IgnoreSeaLand
		t.Special = st.Special
		t.Lanes = st.Lanes
		t.OnewayLanes = st.OnewayLanes

		for _, fr := range st.Features {
			f, ok := c.features[fr.Name]
			if !ok {
				return errors.Errorf("types: types.dat names unregistered feature %q on type %q", fr.Name, st.Name)
			}
			t.AddFeature(f, fr.HasValue)
		}

		sealed := c.RegisterType(t)
		if sealed.NodeId != st.NodeId || sealed.WayId != st.WayId || sealed.AreaId != st.AreaId || sealed.RouteId != st.RouteId {
			return errors.Errorf("types: type %q id mismatch against types.dat (config not empty at load?)", st.Name)
		}
	}

	return nil
}

func boolsToByte(bits ...bool) uint8 {
	var b uint8
	for i, bit := range bits {
		if bit {
			b |= 1 << uint(i)
		}
	}
	return b
}

func byteToBools(b uint8) (a, c, d, e, f, g, h, i bool) {
	bits := [8]bool{}
	for idx := range bits {
		bits[idx] = b&(1<<uint(idx)) != 0
	}
	return bits[0], bits[1], bits[2], bits[3], bits[4], bits[5], bits[6], bits[7]
}
