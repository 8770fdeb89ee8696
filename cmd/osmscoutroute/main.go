// Command osmscoutroute is the routing demo binary:
// given a previously imported database directory, a travel mode, a start
// and target coordinate, and a coordinate to reverse-lookup into the admin
// region hierarchy, it calculates a route and prints its distance and the
// containing region.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	json "github.com/goccy/go-json"
	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"

	"osmscout/areaindex"
	"osmscout/common"
	"osmscout/feature"
	"osmscout/location"
	"osmscout/objects"
	"osmscout/routedesc"
	"osmscout/routenode"
	"osmscout/router"
	"osmscout/types"
)

const version = "v0.1.0"

var cli struct {
	Logging string      `help:"Logging verbosity." enum:"info,debug,trace" short:"l" default:"info"`
	Version VersionFlag `help:"Print version information and quit." name:"version" short:"v"`

	Router  string `help:"Database directory to route in." placeholder:"<base>" required:""`
	Foot    bool   `help:"Route on foot." xor:"mode"`
	Bicycle bool   `help:"Route by bicycle." xor:"mode"`
	Car     bool   `help:"Route by car." xor:"mode"`

	StartLat  float64 `arg:""`
	StartLon  float64 `arg:""`
	TargetLat float64 `arg:""`
	TargetLon float64 `arg:""`
	LocLat    float64 `arg:""`
	LocLon    float64 `arg:""`
}

type VersionFlag string

func (v VersionFlag) Decode(ctx *kong.DecodeContext) error { return nil }
func (v VersionFlag) IsBool() bool                         { return true }
func (v VersionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	fmt.Println(vars["version"])
	app.Exit(0)
	return nil
}

func main() {
	kong.Parse(
		&cli,
		kong.Name("osmscoutroute"),
		kong.Description("Calculates a route between two coordinates in an osmscout database."),
		kong.Vars{"version": version},
	)

	switch strings.ToLower(cli.Logging) {
	case "debug":
		sigolo.SetDefaultLogLevel(sigolo.LOG_DEBUG)
	case "trace":
		sigolo.SetDefaultLogLevel(sigolo.LOG_TRACE)
	default:
		sigolo.SetDefaultLogLevel(sigolo.LOG_INFO)
		sigolo.SetDefaultFormatFunctionAll(sigolo.LogPlain)
	}

	if err := run(); err != nil {
		sigolo.Errorf("route failed: %+v", err)
		os.Exit(1)
	}
	os.Exit(0)
}

func run() error {
	typeConfig := types.NewTypeConfig()
	for _, f := range feature.StandardFeatures() {
		typeConfig.RegisterFeature(f)
	}
	if err := typeConfig.LoadFromDataFile(cli.Router); err != nil {
		return errors.Wrap(err, "loading types.dat")
	}

	ways, err := objects.NewWayReader(cli.Router, typeConfig)
	if err != nil {
		return errors.Wrap(err, "opening way store")
	}
	defer ways.Close()

	areas, err := objects.NewAreaReader(cli.Router, typeConfig)
	if err != nil {
		return errors.Wrap(err, "opening area store")
	}
	defer areas.Close()

	nodes, err := routenode.NewReader(cli.Router)
	if err != nil {
		return errors.Wrap(err, "opening route node store")
	}
	defer nodes.Close()

	routeIndex, err := routenode.LoadIndex(cli.Router)
	if err != nil {
		return errors.Wrap(err, "loading route node index")
	}

	spatialIndex, err := areaindex.LoadFromFile(cli.Router, "areaway.idx")
	if err != nil {
		return errors.Wrap(err, "loading way area index")
	}
	defer spatialIndex.Close()

	locIndex, err := location.LoadFromDataFile(cli.Router)
	if err != nil {
		return errors.Wrap(err, "loading location index")
	}

	objectStores := router.NewObjectStores(ways, areas, 1024)
	store := &router.Store{
		Nodes:       nodes,
		Index:       routeIndex,
		Geometry:    objectStores,
		ObjectTypes: objectStores,
	}

	profile, err := selectProfile()
	if err != nil {
		return err
	}

	startCoord, err := common.NewGeoCoord(cli.StartLat, cli.StartLon)
	if err != nil {
		return errors.Wrap(err, "start coordinate")
	}
	targetCoord, err := common.NewGeoCoord(cli.TargetLat, cli.TargetLon)
	if err != nil {
		return errors.Wrap(err, "target coordinate")
	}
	locCoord, err := common.NewGeoCoord(cli.LocLat, cli.LocLon)
	if err != nil {
		return errors.Wrap(err, "location coordinate")
	}

	routableTypeIds := routableWayTypeIds(typeConfig, profile.Vehicle())

	startPos, err := nearestPosition(objectStores, spatialIndex, routableTypeIds, startCoord)
	if err != nil {
		return errors.Wrap(err, "resolving start position")
	}
	targetPos, err := nearestPosition(objectStores, spatialIndex, routableTypeIds, targetCoord)
	if err != nil {
		return errors.Wrap(err, "resolving target position")
	}

	result, err := router.CalculateRoute(profile, store, startPos, targetPos)
	if err != nil {
		return errors.Wrap(err, "calculating route")
	}

	sigolo.Infof("route found: %d steps, %.1f meters total", len(result.Route.Entries), result.Route.TotalDistance)
	fmt.Printf("distance: %.1fm\n", result.Route.TotalDistance)

	if err := printInstructions(result, profile, typeConfig, ways, areas, nodes); err != nil {
		return errors.Wrap(err, "describing route")
	}

	regions := locIndex.RegionsAt(locCoord)
	if len(regions) == 0 {
		fmt.Println("location: no containing region found")
	} else {
		names := make([]string, len(regions))
		for i, r := range regions {
			names[i] = r.Name
		}
		fmt.Printf("location: %s\n", strings.Join(names, ", "))
	}

	return nil
}

// instructionStep is one line of the JSON instruction listing: a node that
// carries at least one synthesised navigation event.
type instructionStep struct {
	DistanceMeters float64  `json:"distanceMeters"`
	TimeSeconds    float64  `json:"timeSeconds"`
	Lat            float64  `json:"lat"`
	Lon            float64  `json:"lon"`
	Way            string   `json:"way,omitempty"`
	Turn           string   `json:"turn,omitempty"`
	Events         []string `json:"events"`
}

// printInstructions runs the post-processing pipeline over the calculated
// route and prints the synthesised navigation events as a JSON array.
func printInstructions(result *router.Result, profile router.RoutingProfile, typeConfig *types.TypeConfig, ways *objects.WayReader, areas *objects.AreaReader, nodes *routenode.Reader) error {
	desc := routedesc.NewRouteDescription(result.Route)
	descCtx := &routedesc.Context{
		Profile:           profile,
		Features:          &routedesc.ObjectFeatures{Ways: ways, Areas: areas},
		RouteNodes:        nodes,
		TypeConfig:        typeConfig,
		MotorwayTypeNames: []string{"motorway"},
	}

	pipeline, err := routedesc.DefaultOrder(descCtx)
	if err != nil {
		return err
	}
	if err := pipeline.Run(descCtx, desc); err != nil {
		return err
	}

	var steps []instructionStep
	for _, n := range desc.Nodes {
		d, ok := n.Description("Instruction")
		if !ok {
			continue
		}
		entry, ok := d.(routedesc.InstructionDescriptionEntry)
		if !ok || len(entry.Events) == 0 {
			continue
		}

		step := instructionStep{
			DistanceMeters: n.Distance,
			TimeSeconds:    n.Time,
			Lat:            n.Coord.Lat,
			Lon:            n.Coord.Lon,
		}
		for _, ev := range entry.Events {
			step.Events = append(step.Events, ev.Kind.String())
			if ev.Kind == routedesc.InstructionTurn {
				step.Turn = ev.Turn.String()
			}
		}
		if nd, ok := n.Description("Name"); ok {
			if name, ok := nd.(routedesc.NameDescriptionEntry); ok {
				step.Way = name.Name
			}
		}
		steps = append(steps, step)
	}

	out, err := json.MarshalIndent(steps, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func selectProfile() (router.RoutingProfile, error) {
	switch {
	case cli.Foot:
		return router.NewFootProfile(), nil
	case cli.Bicycle:
		return router.NewBicycleProfile(), nil
	case cli.Car:
		return router.NewCarProfile(router.CostFastest), nil
	default:
		return nil, errors.New("exactly one of --foot, --bicycle, --car must be given")
	}
}

// routableWayTypeIds returns the set of registered way type ids that permit
// vehicle, used to restrict the spatial-index query that locates a route's
// start/target endpoints to types the chosen profile could ever traverse.
func routableWayTypeIds(typeConfig *types.TypeConfig, vehicle router.Vehicle) map[uint32]bool {
	ids := map[uint32]bool{}
	for _, t := range typeConfig.Types() {
		if !t.CanBeWay || t.WayId == 0 {
			continue
		}
		switch vehicle {
		case router.VehicleFoot:
			if t.CanRouteFoot {
				ids[t.WayId] = true
			}
		case router.VehicleBicycle:
			if t.CanRouteBicycle {
				ids[t.WayId] = true
			}
		case router.VehicleCar:
			if t.CanRouteCar {
				ids[t.WayId] = true
			}
		}
	}
	return ids
}

// searchRadiiDeg is tried in increasing order until the spatial index
// yields at least one candidate way, since a fixed small box can miss in
// sparsely-mapped areas.
var searchRadiiDeg = []float64{0.002, 0.01, 0.05, 0.2}

// clampCoord builds a search-box corner, clamping to valid WGS84 ranges so
// a query near a pole or the antimeridian never fails coordinate
// validation.
func clampCoord(lat, lon float64) common.GeoCoord {
	if lat < -90 {
		lat = -90
	} else if lat > 90 {
		lat = 90
	}
	if lon < -180 {
		lon = -180
	} else if lon > 180 {
		lon = 180
	}
	return common.GeoCoord{Lat: lat, Lon: lon}
}

// nearestPosition locates the routable way and node index closest to coord,
// by querying the spatial index for nearby ways of typeIds and scanning
// each candidate's geometry directly.
func nearestPosition(stores *router.ObjectStores, idx *areaindex.Index, typeIds map[uint32]bool, coord common.GeoCoord) (router.Position, error) {
	var offsets map[uint64]struct{}
	for _, radius := range searchRadiiDeg {
		box := common.NewGeoBox(clampCoord(coord.Lat-radius, coord.Lon-radius), clampCoord(coord.Lat+radius, coord.Lon+radius))
		found, err := idx.GetOffsets(typeIds, box)
		if err != nil {
			return router.Position{}, err
		}
		if len(found) > 0 {
			offsets = found
			break
		}
	}
	if len(offsets) == 0 {
		return router.Position{}, errors.Errorf("no routable way found near %.6f,%.6f", coord.Lat, coord.Lon)
	}

	var best router.Position
	bestDist := -1.0
	for offset := range offsets {
		ref := objects.FileRef{Offset: offset, Kind: objects.KindWay}
		points, err := stores.Nodes(ref)
		if err != nil {
			return router.Position{}, err
		}
		for i, p := range points {
			d := common.SphericalDistance(coord, p.Coord)
			if bestDist < 0 || d < bestDist {
				bestDist = d
				best = router.Position{Object: ref, NodeIndex: i}
			}
		}
	}
	if bestDist < 0 {
		return router.Position{}, errors.Errorf("no routable geometry found near %.6f,%.6f", coord.Lat, coord.Lon)
	}
	return best, nil
}
