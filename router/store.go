package router

import (
	"github.com/pkg/errors"

	"osmscout/common"
	"osmscout/feature"
	"osmscout/objects"
	"osmscout/routenode"
)

// GeometrySource resolves the node sequence backing a routable object
// (way or area) so the router can locate route nodes along it during
// endpoint handling and walk the exact geometry during result resolution.
type GeometrySource interface {
	Nodes(ref objects.FileRef) ([]common.Point, error)
}

// ObjectTypeSource resolves per-object attributes the search needs beyond
// geometry: the TypeInfo.Ordinal() (used by CarProfile to select a
// per-type speed) and whether the object is access-restricted (used to
// seed the search's access state).
type ObjectTypeSource interface {
	TypeOrdinal(ref objects.FileRef) (int, error)
	Restricted(ref objects.FileRef) (bool, error)
}

// Store bundles everything CalculateRoute needs to read from disk: the
// route-node graph and id index,
// plus accessors for the geometry and type of the objects routes
// traverse.
type Store struct {
	Nodes       *routenode.Reader
	Index       *routenode.Index
	Geometry    GeometrySource
	ObjectTypes ObjectTypeSource
}

// ObjectStores adapts objects.WayReader/objects.AreaReader into a
// GeometrySource + ObjectTypeSource pair, caching each loaded object's
// node sequence and type ordinal in a small LRU
// since the A* hot path may revisit the same incident object across
// several route nodes.
type ObjectStores struct {
	Ways  *objects.WayReader
	Areas *objects.AreaReader

	nodesCache      *common.LRUCache[objects.FileRef, []common.Point]
	typeCache       *common.LRUCache[objects.FileRef, int]
	restrictedCache *common.LRUCache[objects.FileRef, bool]
}

// NewObjectStores wraps way/area readers with a geometry+type cache of the
// given capacity.
func NewObjectStores(ways *objects.WayReader, areas *objects.AreaReader, cacheSize int) *ObjectStores {
	return &ObjectStores{
		Ways:            ways,
		Areas:           areas,
		nodesCache:      common.NewLRUCache[objects.FileRef, []common.Point](cacheSize),
		typeCache:       common.NewLRUCache[objects.FileRef, int](cacheSize),
		restrictedCache: common.NewLRUCache[objects.FileRef, bool](cacheSize),
	}
}

func (s *ObjectStores) Nodes(ref objects.FileRef) ([]common.Point, error) {
	if nodes, ok := s.nodesCache.Get(ref); ok {
		return nodes, nil
	}

	var nodes []common.Point
	switch ref.Kind {
	case objects.KindWay:
		way, err := s.Ways.ReadAt(ref.Offset)
		if err != nil {
			return nil, errors.Wrap(err, "router: loading way geometry")
		}
		nodes = way.Nodes
	case objects.KindArea:
		area, err := s.Areas.ReadAt(ref.Offset)
		if err != nil {
			return nil, errors.Wrap(err, "router: loading area geometry")
		}
		outer := area.OuterRings()
		if len(outer) == 0 {
			return nil, errors.Errorf("router: area at offset %d has no outer ring", ref.Offset)
		}
		// Routing over an area traverses its outer boundary; inner
		// rings (holes) are never part of the routable graph.
		nodes = outer[0].Nodes
	default:
		return nil, errors.Errorf("router: object kind %v is not routable geometry", ref.Kind)
	}

	s.nodesCache.Put(ref, nodes)
	return nodes, nil
}

func (s *ObjectStores) TypeOrdinal(ref objects.FileRef) (int, error) {
	if ord, ok := s.typeCache.Get(ref); ok {
		return ord, nil
	}

	var ord int
	switch ref.Kind {
	case objects.KindWay:
		way, err := s.Ways.ReadAt(ref.Offset)
		if err != nil {
			return 0, errors.Wrap(err, "router: loading way type")
		}
		ord = way.Buffer.Type().Ordinal()
	case objects.KindArea:
		area, err := s.Areas.ReadAt(ref.Offset)
		if err != nil {
			return 0, errors.Wrap(err, "router: loading area type")
		}
		ord = area.Buffer.Type().Ordinal()
	default:
		return 0, errors.Errorf("router: object kind %v has no type", ref.Kind)
	}

	s.typeCache.Put(ref, ord)
	return ord, nil
}

// Restricted reads the object's AccessRestricted feature value: true for
// objects tagged private/destination-only.
func (s *ObjectStores) Restricted(ref objects.FileRef) (bool, error) {
	if restricted, ok := s.restrictedCache.Get(ref); ok {
		return restricted, nil
	}

	var buf *feature.ValueBuffer
	switch ref.Kind {
	case objects.KindWay:
		way, err := s.Ways.ReadAt(ref.Offset)
		if err != nil {
			return false, errors.Wrap(err, "router: loading way access")
		}
		buf = way.Buffer
	case objects.KindArea:
		area, err := s.Areas.ReadAt(ref.Offset)
		if err != nil {
			return false, errors.Wrap(err, "router: loading area access")
		}
		buf = area.Buffer
	default:
		return false, errors.Errorf("router: object kind %v has no access state", ref.Kind)
	}

	restricted := false
	if inst, ok := buf.Type().FeatureInstanceByName("AccessRestricted"); ok {
		if v, ok := buf.GetValue(inst).(*feature.AccessRestrictedValue); ok {
			restricted = v.Restricted
		}
	}
	s.restrictedCache.Put(ref, restricted)
	return restricted, nil
}
