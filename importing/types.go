package importing

import (
	"osmscout/feature"
	"osmscout/types"
)

// condition helpers express the small set of tag tests the standard type
// set needs; BuildStandardTypeConfig uses them to register every type
// programmatically.
func hasTag(key string) types.Condition {
	return func(tags map[string]string) bool {
		_, ok := tags[key]
		return ok
	}
}

func tagIn(key string, values ...string) types.Condition {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return func(tags map[string]string) bool {
		return set[tags[key]]
	}
}

func anyOf(conds ...types.Condition) types.Condition {
	return func(tags map[string]string) bool {
		for _, c := range conds {
			if c(tags) {
				return true
			}
		}
		return false
	}
}

// bindAll registers every feature in fs onto t, with the same hasValue flag.
func bindAll(t *types.TypeInfo, hasValue bool, fs ...feature.Feature) {
	for _, f := range fs {
		t.AddFeature(f, hasValue)
	}
}

// BuildStandardTypeConfig constructs a TypeConfig covering the common
// highway/building/POI/admin-boundary/multipolygon/route shapes, binding
// each to the subset of feature.StandardFeatures() it carries. Types are
// registered in precedence order: the most specific
// boundary/multipolygon conditions before the generic special-relation
// fallbacks, matching
// GetWayAreaType/GetRelationType's first-match evaluation.
func BuildStandardTypeConfig() *types.TypeConfig {
	c := types.NewTypeConfig()

	for _, key := range []string{
		"highway", "building", "amenity", "shop", "boundary", "admin_level",
		"type", "name", "addr:housenumber", "addr:street", "addr:postcode",
		"maxspeed", "oneway", "access", "junction", "bridge", "tunnel",
		"layer", "width", "lanes", "surface",
	} {
		c.Tags.RegisterTag(key)
	}

	all := feature.StandardFeatures()
	byName := map[string]feature.Feature{}
	for _, f := range all {
		byName[f.Name()] = f
		c.RegisterFeature(f)
	}
	pick := func(names ...string) []feature.Feature {
		out := make([]feature.Feature, 0, len(names))
		for _, n := range names {
			if f, ok := byName[n]; ok {
				out = append(out, f)
			}
		}
		return out
	}

	wayCommon := pick("Name", "NameAlt", "Ref", "Access", "AccessRestricted", "Layer", "Bridge", "Tunnel")

	roadType := func(name string, speedPath bool, foot, bicycle, car bool) *types.TypeInfo {
		t := types.NewTypeInfo(name, tagIn("highway", name))
		t.CanBeWay = true
		t.IsPath = !car
		t.CanRouteFoot = foot
		t.CanRouteBicycle = bicycle
		t.CanRouteCar = car
		t.OptimizeLowZoom = car || name == "residential"
		t.IndexAsLocation = true
		bindAll(t, true, wayCommon...)
		if speedPath {
			bindAll(t, true, pick("MaxSpeed", "Lanes")...)
		}
		return t
	}

	c.RegisterType(roadType("motorway", true, false, false, true))
	c.RegisterType(roadType("primary", true, true, true, true))
	c.RegisterType(roadType("secondary", true, true, true, true))
	c.RegisterType(roadType("residential", true, true, true, true))
	c.RegisterType(roadType("service", false, true, true, true))
	c.RegisterType(roadType("track", false, true, true, false))
	c.RegisterType(roadType("footway", false, true, false, false))
	c.RegisterType(roadType("cycleway", false, true, true, false))

	building := types.NewTypeInfo("building", hasTag("building"))
	building.CanBeWay = true
	building.CanBeArea = true
	building.IndexAsAddress = true
	bindAll(building, true, pick("Name", "Address", "Location", "PostalCode")...)
	c.RegisterType(building)

	poi := types.NewTypeInfo("poi", anyOf(hasTag("amenity"), hasTag("shop")))
	poi.CanBeNode = true
	poi.CanBeArea = true
	poi.IndexAsPOI = true
	bindAll(poi, true, pick("Name", "Brand", "Operator", "OpeningHours", "Phone", "Website", "Fee")...)
	c.RegisterType(poi)

	adminBoundary := types.NewTypeInfo("boundaryAdministrative", func(tags map[string]string) bool {
		return tags["boundary"] == "administrative"
	})
	adminBoundary.CanBeArea = true
	adminBoundary.CanBeRelation = true
	adminBoundary.IndexAsRegion = true
	adminBoundary.MergeAreas = true
	bindAll(adminBoundary, true, pick("Name", "AdminLevel", "IsIn")...)
	c.RegisterType(adminBoundary)

	multipolygon := types.NewTypeInfo("multipolygon", tagIn("type", "multipolygon"))
	multipolygon.CanBeRelation = true
	multipolygon.Special = types.SpecialMultipolygon
	c.RegisterType(multipolygon)

	route := types.NewTypeInfo("route", tagIn("type", "route"))
	route.CanBeRelation = true
	route.Special = types.SpecialRoute
	bindAll(route, true, pick("Name", "Ref", "Network", "From", "To")...)
	c.RegisterType(route)

	routeMaster := types.NewTypeInfo("routeMaster", tagIn("type", "route_master"))
	routeMaster.CanBeRelation = true
	routeMaster.Special = types.SpecialRouteMaster
	bindAll(routeMaster, true, pick("Name", "Ref", "Network")...)
	c.RegisterType(routeMaster)

	return c
}

// roadHighwayNames returns the highway=* value set registered above as one
// slice.
func roadHighwayNames() []string {
	return []string{"motorway", "primary", "secondary", "residential", "service", "track", "footway", "cycleway"}
}
