// Package importing orchestrates the end-to-end import pipeline: read an
// OSM input file, resolve multipolygons, write the typed object stores,
// build the spatial/low-zoom/location indices, and construct the
// persistent routing graph. A failure on one object is logged and skipped
// rather than aborting the whole import.
package importing

import (
	"sort"
	"strconv"
	"time"

	"github.com/gotidy/ptr"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"

	"osmscout/areaindex"
	"osmscout/common"
	"osmscout/feature"
	"osmscout/location"
	"osmscout/lowzoom"
	"osmscout/multipolygon"
	"osmscout/objects"
	"osmscout/osmsource"
	"osmscout/types"
)

// Options configures one Import run.
type Options struct {
	OutputDir   string
	TypeConfig  *types.TypeConfig
	StrictAreas bool

	// AreaIndexLevel is the zoom level areaindex.Index is built at.
	AreaIndexLevel uint
	// LowZoomMagnifications are the overview levels lowzoom.Builder
	// simplifies geometry for; each entry's tolerance is in degrees.
	LowZoomMagnifications []LowZoomLevel

	// Progress observes the running import; nil falls back to LogProgress.
	Progress Progress
}

type LowZoomLevel struct {
	Magnification uint
	ToleranceDeg  float64
}

// DefaultOptions returns Options with a single area-index level and a
// single low-zoom overview level, sufficient for a small-to-medium extract.
func DefaultOptions(outputDir string, typeConfig *types.TypeConfig) Options {
	return Options{
		OutputDir:      outputDir,
		TypeConfig:     typeConfig,
		AreaIndexLevel: 10,
		LowZoomMagnifications: []LowZoomLevel{
			{Magnification: 6, ToleranceDeg: 0.01},
		},
	}
}

// Result summarises one Import run for the caller/CLI to report.
type Result struct {
	NodesWritten, WaysWritten, AreasWritten int
	RouteNodesWritten                       int
	ObjectsSkipped                          int
	Duration                                time.Duration
}

// rawNode/rawWay/rawRelation are the in-memory scratch records the single
// osmsource.Reader pass collects. Nothing at query time reads them, so
// they are kept as in-memory maps rather than written out as intermediate
// files.
type rawNode struct {
	coord common.GeoCoord
	tags  osmsource.TagMap
}

type rawWay struct {
	nodeIds []int64
	tags    osmsource.TagMap
}

type rawRelation struct {
	tags    osmsource.TagMap
	members []multipolygon.Member
}

// rawCollector implements osmsource.DataHandler, buffering every primitive
// of a single streaming pass into memory for the later resolution stages.
type rawCollector struct {
	nodes     map[int64]rawNode
	ways      map[int64]rawWay
	relations map[int64]rawRelation
}

func newRawCollector() *rawCollector {
	return &rawCollector{
		nodes:     map[int64]rawNode{},
		ways:      map[int64]rawWay{},
		relations: map[int64]rawRelation{},
	}
}

func (c *rawCollector) Name() string { return "rawCollector" }
func (c *rawCollector) Init() error  { return nil }
func (c *rawCollector) Done() error  { return nil }

func (c *rawCollector) HandleNode(n *osm.Node) error {
	c.nodes[int64(n.ID)] = rawNode{
		coord: common.GeoCoord{Lat: n.Lat, Lon: n.Lon},
		tags:  osmsource.TagsToMap(n.Tags),
	}
	return nil
}

func (c *rawCollector) HandleWay(w *osm.Way) error {
	ids := make([]int64, len(w.Nodes))
	for i, wn := range w.Nodes {
		ids[i] = int64(wn.ID)
	}
	c.ways[int64(w.ID)] = rawWay{nodeIds: ids, tags: osmsource.TagsToMap(w.Tags)}
	return nil
}

func (c *rawCollector) HandleRelation(r *osm.Relation) error {
	members := make([]multipolygon.Member, 0, len(r.Members))
	for _, m := range r.Members {
		var kind multipolygon.MemberKind
		switch m.Type {
		case osm.TypeWay:
			kind = multipolygon.MemberWay
		case osm.TypeRelation:
			kind = multipolygon.MemberRelation
		default:
			kind = multipolygon.MemberNode
		}
		members = append(members, multipolygon.Member{Kind: kind, Ref: m.Ref, Role: multipolygon.Role(m.Role)})
	}
	c.relations[int64(r.ID)] = rawRelation{tags: osmsource.TagsToMap(r.Tags), members: members}
	return nil
}

// resolvePoints converts a raw way's node-id list to common.Point. It
// returns (nil, false) at the first node id the collector never saw and
// reports nothing itself.
func (c *rawCollector) resolvePoints(nodeIds []int64) ([]common.Point, bool) {
	points := make([]common.Point, 0, len(nodeIds))
	for _, id := range nodeIds {
		n, ok := c.nodes[id]
		if !ok {
			return nil, false
		}
		points = append(points, common.Point{Id: id, Coord: n.coord})
	}
	return points, true
}

// ResolveWay implements multipolygon.WayResolver.
func (c *rawCollector) ResolveWay(wayId int64) ([]common.Point, map[string]string, bool) {
	w, ok := c.ways[wayId]
	if !ok {
		return nil, nil, false
	}
	points, ok := c.resolvePoints(w.nodeIds)
	if !ok {
		return nil, nil, false
	}
	return points, w.tags, true
}

// ResolveRelation implements multipolygon.RelationResolver.
func (c *rawCollector) ResolveRelation(relId int64) (map[string]string, []multipolygon.Member, bool) {
	r, ok := c.relations[relId]
	if !ok {
		return nil, nil, false
	}
	return r.tags, r.members, true
}

func isAdminBoundary(tags map[string]string) bool {
	return tags["type"] == "boundary" || tags["boundary"] == "administrative"
}

// Import runs the full pipeline against inputFile, writing every store and
// index into opts.OutputDir.
func Import(inputFile string, opts Options) (*Result, error) {
	start := time.Now()
	progress := opts.Progress
	if progress == nil {
		progress = &LogProgress{}
	}
	sigolo.Infof("importing: starting import of %s into %s", inputFile, opts.OutputDir)

	progress.SetAction("reading input file")
	collector := newRawCollector()
	reader := osmsource.NewReader()
	if err := reader.Read(inputFile, collector); err != nil {
		return nil, errors.Wrap(err, "importing: reading input file")
	}
	sigolo.Infof("importing: collected %d nodes, %d ways, %d relations", len(collector.nodes), len(collector.ways), len(collector.relations))

	result := &Result{}
	locIndex := location.NewIndex()

	resolver := &multipolygon.Resolver{
		Ways:            collector,
		Relations:       collector,
		TypeConfig:      opts.TypeConfig,
		StrictAreas:     opts.StrictAreas,
		RelationTypeOf:  opts.TypeConfig.GetRelationType,
		WayAreaTypeOf:   opts.TypeConfig.GetWayAreaType,
		IsAdminBoundary: isAdminBoundary,
	}

	areaWriter, err := objects.NewAreaWriter(opts.OutputDir)
	if err != nil {
		return nil, errors.Wrap(err, "importing: opening areas.dat")
	}
	wayWriter, err := objects.NewWayWriter(opts.OutputDir)
	if err != nil {
		return nil, errors.Wrap(err, "importing: opening ways.dat")
	}
	nodeWriter, err := objects.NewNodeWriter(opts.OutputDir)
	if err != nil {
		return nil, errors.Wrap(err, "importing: opening nodes.dat")
	}

	areaIdx := areaindex.NewIndex(opts.AreaIndexLevel)
	wayIdx := areaindex.NewIndex(opts.AreaIndexLevel)
	nodeIdx := areaindex.NewIndex(opts.AreaIndexLevel)
	lowZoomBuilder := lowzoom.NewBuilder()
	var lowZoomEntries []lowzoom.WayEntry

	consumedWays := map[int64]bool{}
	relationIds := make([]int64, 0, len(collector.relations))
	for id := range collector.relations {
		relationIds = append(relationIds, id)
	}
	sort.Slice(relationIds, func(i, j int) bool { return relationIds[i] < relationIds[j] })

	progress.SetAction("resolving multipolygon relations")
	for relNo, relId := range relationIds {
		progress.SetProgress(uint64(relNo), uint64(len(relationIds)))
		rel := collector.relations[relId]
		masterType := opts.TypeConfig.GetRelationType(rel.tags)
		if masterType.Ignore {
			continue
		}
		res, err := resolver.Resolve(multipolygon.Input{RelationId: relId, Tags: rel.tags, Members: rel.members})
		if err != nil {
			sigolo.Warnf("importing: relation %d: %s", relId, err)
			result.ObjectsSkipped++
			continue
		}
		if res == nil || len(res.Rings) == 0 {
			result.ObjectsSkipped++
			continue
		}
		for wayId := range res.ConsumedWays {
			consumedWays[wayId] = true
		}

		area := &objects.Area{Buffer: feature.NewValueBuffer()}
		effectiveMaster := res.MasterType
		if effectiveMaster == nil || effectiveMaster.Ignore {
			effectiveMaster = masterType
		}
		area.Buffer.SetType(effectiveMaster)
		area.Buffer.Parse(feature.NopReporter{}, "", feature.TagMap(rel.tags))

		var coords []common.GeoCoord
		for _, rr := range res.Rings {
			ring := objects.Ring{Depth: rr.Depth, Nodes: rr.Points, OriginalType: rr.OriginalType}
			if rr.Type != nil && !rr.Type.Ignore {
				ring.Buffer = feature.NewValueBuffer()
				ring.Buffer.SetType(rr.Type)
				ring.Buffer.Parse(feature.NopReporter{}, "", feature.TagMap(rel.tags))
			}
			area.Rings = append(area.Rings, ring)
			for _, p := range rr.Points {
				coords = append(coords, p.Coord)
			}
		}

		offset, err := areaWriter.Write(area)
		if err != nil {
			sigolo.Warnf("importing: writing area for relation %d: %s", relId, err)
			result.ObjectsSkipped++
			continue
		}
		area.Ref = objects.FileRef{Offset: offset, Kind: objects.KindArea}
		result.AreasWritten++

		if len(coords) > 0 {
			box := common.BoundingBoxOf(coords)
			areaIdx.Add(areaindex.Entry{TypeId: effectiveMaster.AreaId, Offset: offset, Box: box})
			if effectiveMaster.IndexAsRegion {
				locIndex.AddRegion(&location.AdminRegion{
					Ref:   area.Ref,
					Name:  nameOf(rel.tags),
					Box:   box,
					Level: adminLevelOf(rel.tags),
				})
			}
		}
	}

	wayIds := make([]int64, 0, len(collector.ways))
	for id := range collector.ways {
		wayIds = append(wayIds, id)
	}
	sort.Slice(wayIds, func(i, j int) bool { return wayIds[i] < wayIds[j] })

	progress.SetAction("writing ways")
	routableWays := map[int64]*objects.Way{}
	for wayNo, wayId := range wayIds {
		progress.SetProgress(uint64(wayNo), uint64(len(wayIds)))
		if consumedWays[wayId] {
			continue
		}
		raw := collector.ways[wayId]
		t := opts.TypeConfig.GetWayAreaType(raw.tags)
		if t.Ignore {
			continue
		}
		points, ok := collector.resolvePoints(raw.nodeIds)
		if !ok {
			sigolo.Warnf("importing: way %d references an unresolved node, skipping", wayId)
			result.ObjectsSkipped++
			continue
		}

		buf := feature.NewValueBuffer()
		buf.SetType(t)
		buf.Parse(feature.NopReporter{}, "", feature.TagMap(raw.tags))

		closed := len(points) >= 2 && points[0].Id == points[len(points)-1].Id
		var offset uint64
		var ref objects.FileRef
		var err error
		if closed && t.CanBeArea {
			area := &objects.Area{
				Buffer: buf,
				Rings:  []objects.Ring{{Depth: 1, Nodes: points[:len(points)-1]}},
			}
			offset, err = areaWriter.Write(area)
			ref = objects.FileRef{Offset: offset, Kind: objects.KindArea}
		} else {
			way := &objects.Way{Buffer: buf, Nodes: points}
			offset, err = wayWriter.Write(way)
			ref = objects.FileRef{Offset: offset, Kind: objects.KindWay}
			if err == nil {
				routableWays[wayId] = way
				way.Ref = ref
			}
		}
		if err != nil {
			sigolo.Warnf("importing: writing way %d: %s", wayId, err)
			result.ObjectsSkipped++
			continue
		}
		if ref.Kind == objects.KindArea {
			result.AreasWritten++
		} else {
			result.WaysWritten++
		}

		coords := make([]common.GeoCoord, len(points))
		for i, p := range points {
			coords[i] = p.Coord
		}
		box := common.BoundingBoxOf(coords)
		if ref.Kind == objects.KindArea {
			areaIdx.Add(areaindex.Entry{TypeId: t.AreaId, Offset: offset, Box: box})
		} else {
			wayIdx.Add(areaindex.Entry{TypeId: t.WayId, Offset: offset, Box: box})
		}

		if t.OptimizeLowZoom && ref.Kind == objects.KindWay {
			lowZoomEntries = append(lowZoomEntries, lowzoom.WayEntry{TypeId: t.WayId, Offset: offset, Points: coords})
		}
		if t.IndexAsLocation && ref.Kind == objects.KindWay {
			if name := nameOf(raw.tags); name != "" {
				if regions := locIndex.RegionsAt(points[0].Coord); len(regions) > 0 {
					loc := &location.Location{Name: name, Objects: []objects.FileRef{ref}}
					locIndex.AddLocation(regions[0], loc)
				}
			}
		}
	}

	nodeIds := make([]int64, 0, len(collector.nodes))
	for id := range collector.nodes {
		nodeIds = append(nodeIds, id)
	}
	sort.Slice(nodeIds, func(i, j int) bool { return nodeIds[i] < nodeIds[j] })

	progress.SetAction("writing nodes")
	for nodeNo, nodeId := range nodeIds {
		progress.SetProgress(uint64(nodeNo), uint64(len(nodeIds)))
		raw := collector.nodes[nodeId]
		t := opts.TypeConfig.GetNodeType(raw.tags)
		if t.Ignore {
			continue
		}
		buf := feature.NewValueBuffer()
		buf.SetType(t)
		buf.Parse(feature.NopReporter{}, "", feature.TagMap(raw.tags))

		coord := raw.coord
		node := &objects.Node{Buffer: buf, Coord: coord}
		offset, err := nodeWriter.Write(node)
		if err != nil {
			sigolo.Warnf("importing: writing node %d: %s", nodeId, err)
			result.ObjectsSkipped++
			continue
		}
		node.Ref = objects.FileRef{Offset: offset, Kind: objects.KindNode}
		result.NodesWritten++

		nodeIdx.Add(areaindex.Entry{TypeId: t.NodeId, Offset: offset, Box: common.GeoBox{MinCoord: coord, MaxCoord: coord}})

		regions := locIndex.RegionsAt(coord)
		var region *location.AdminRegion
		if len(regions) > 0 {
			region = regions[0]
		}
		if t.IndexAsPOI {
			locIndex.AddPOI(region, &location.POI{Name: nameOf(raw.tags), Ref: node.Ref, Coord: coord})
		}
		if t.IndexAsAddress {
			if num, ok := raw.tags["addr:housenumber"]; ok {
				street := raw.tags["addr:street"]
				loc := &location.Location{Name: street}
				locIndex.AddLocation(region, loc)
				locIndex.AddAddress(loc, &location.Address{Number: num, Ref: node.Ref, Coord: coord})
			}
		}
	}

	if err := areaWriter.Close(); err != nil {
		return nil, errors.Wrap(err, "importing: closing areas.dat")
	}
	if err := wayWriter.Close(); err != nil {
		return nil, errors.Wrap(err, "importing: closing ways.dat")
	}
	if err := nodeWriter.Close(); err != nil {
		return nil, errors.Wrap(err, "importing: closing nodes.dat")
	}

	progress.SetAction("writing indices")
	if err := areaIdx.StoreToFile(opts.OutputDir, "areaarea.idx"); err != nil {
		return nil, errors.Wrap(err, "importing: writing areaarea.idx")
	}
	if err := wayIdx.StoreToFile(opts.OutputDir, "areaway.idx"); err != nil {
		return nil, errors.Wrap(err, "importing: writing areaway.idx")
	}
	if err := nodeIdx.StoreToFile(opts.OutputDir, "areanode.idx"); err != nil {
		return nil, errors.Wrap(err, "importing: writing areanode.idx")
	}
	for _, lv := range opts.LowZoomMagnifications {
		lowZoomBuilder.AddLevel(lv.Magnification, lv.ToleranceDeg, lowZoomEntries)
	}
	if err := lowZoomBuilder.StoreToFile(opts.OutputDir, "waysopt.dat"); err != nil {
		return nil, errors.Wrap(err, "importing: writing waysopt.dat")
	}
	if err := locIndex.StoreToDataFile(opts.OutputDir); err != nil {
		return nil, errors.Wrap(err, "importing: writing location index")
	}
	if err := opts.TypeConfig.StoreToDataFile(opts.OutputDir); err != nil {
		return nil, errors.Wrap(err, "importing: writing types.dat")
	}

	progress.SetAction("building route graph")
	routeNodeCount, err := buildRouteGraph(opts.OutputDir, routableWays)
	if err != nil {
		return nil, errors.Wrap(err, "importing: building route graph")
	}
	result.RouteNodesWritten = routeNodeCount

	result.Duration = time.Since(start)
	sigolo.Infof("importing: finished %s in %s (%d nodes, %d ways, %d areas, %d route nodes, %d skipped)",
		inputFile, result.Duration, result.NodesWritten, result.WaysWritten, result.AreasWritten, result.RouteNodesWritten, result.ObjectsSkipped)
	return result, nil
}

// nameOf reads the name tag, falling back to an empty string rather than
// failing the object.
func nameOf(tags map[string]string) string {
	return tags["name"]
}

// adminLevelOf parses the admin_level tag, returning nil when absent or
// malformed so boundaries without one still index fine.
func adminLevelOf(tags map[string]string) *int8 {
	raw, ok := tags["admin_level"]
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > 127 {
		return nil
	}
	return ptr.Of(int8(n))
}
