// Package router implements the A* shortest-path engine over the
// persistent routing graph: the RoutingProfile abstraction in this file,
// and the search itself in astar.go.
package router

import (
	"osmscout/feature"
	"osmscout/routenode"
	"osmscout/types"
)

// Vehicle enumerates the travel modes the router supports.
type Vehicle uint8

const (
	VehicleFoot Vehicle = iota
	VehicleBicycle
	VehicleCar
)

func (v Vehicle) String() string {
	switch v {
	case VehicleFoot:
		return "foot"
	case VehicleBicycle:
		return "bicycle"
	case VehicleCar:
		return "car"
	}
	return "unknown"
}

// RoutingProfile is the pure-function bundle the A* loop consults for
// cost and admissibility. Implementations
// must keep EstimateCost optimistic (never overestimating true remaining
// cost) for A* admissibility.
type RoutingProfile interface {
	Vehicle() Vehicle

	// CanUse reports whether this profile's mode/access requirements
	// permit traversing rn's path at pathIndex at all.
	CanUse(rn *routenode.RouteNode, pathIndex int) bool

	// PathCost returns the traversal cost of rn's path at pathIndex.
	// objectTypeOrdinal is the TypeInfo.Ordinal() of the incident object
	// the path traverses (resolved by the caller, which has access to
	// the object stores); profiles that don't vary cost by type ignore
	// it.
	PathCost(rn *routenode.RouteNode, pathIndex int, objectTypeOrdinal int) float64

	// SegmentCost costs a raw distance along a typed object directly,
	// without an on-disk Path record — used to seed the initial RNode
	// when walking from the start position to its nearest route node.
	SegmentCost(distanceMeters float64, objectTypeOrdinal int) float64

	// EstimateCost returns the heuristic h() for a straight-line
	// remaining distance, used to seed and extend the A* estimate.
	EstimateCost(distanceMeters float64) float64
}

// accessBitsFor returns the forward access bits for vehicle.
func accessBitsFor(v Vehicle) uint8 {
	switch v {
	case VehicleFoot:
		return feature.AccessFootForward
	case VehicleBicycle:
		return feature.AccessBicycleForward
	case VehicleCar:
		return feature.AccessCarForward
	}
	return 0
}

func canUseMode(rn *routenode.RouteNode, pathIndex int, v Vehicle) bool {
	if pathIndex < 0 || pathIndex >= len(rn.Paths) {
		return false
	}
	bits := accessBitsFor(v)
	return uint8(rn.Paths[pathIndex].Access)&bits != 0
}

// kmhToMps converts a km/h speed to meters/second.
func kmhToMps(speedKmh float64) float64 {
	return speedKmh * 1000.0 / 3600.0
}

// timeCostSeconds is the canonical distance/speed cost function shared by
// every profile below: travel time in seconds at a constant speed.
func timeCostSeconds(distanceMeters, speedKmh float64) float64 {
	if speedKmh <= 0 {
		return distanceMeters * 3.6 // degrades to "1 km/h" rather than dividing by zero
	}
	return distanceMeters / kmhToMps(speedKmh)
}

// FootProfile routes on foot at a single constant speed.
type FootProfile struct {
	SpeedKmh float64
}

func NewFootProfile() *FootProfile { return &FootProfile{SpeedKmh: 5} }

func (p *FootProfile) Vehicle() Vehicle { return VehicleFoot }
func (p *FootProfile) CanUse(rn *routenode.RouteNode, pathIndex int) bool {
	return canUseMode(rn, pathIndex, VehicleFoot)
}
func (p *FootProfile) PathCost(rn *routenode.RouteNode, pathIndex int, _ int) float64 {
	return timeCostSeconds(rn.Paths[pathIndex].Distance, p.SpeedKmh)
}
func (p *FootProfile) SegmentCost(distanceMeters float64, _ int) float64 {
	return timeCostSeconds(distanceMeters, p.SpeedKmh)
}
func (p *FootProfile) EstimateCost(distanceMeters float64) float64 {
	return timeCostSeconds(distanceMeters, p.SpeedKmh)
}

// BicycleProfile routes by bicycle at a single constant speed.
type BicycleProfile struct {
	SpeedKmh float64
}

func NewBicycleProfile() *BicycleProfile { return &BicycleProfile{SpeedKmh: 15} }

func (p *BicycleProfile) Vehicle() Vehicle { return VehicleBicycle }
func (p *BicycleProfile) CanUse(rn *routenode.RouteNode, pathIndex int) bool {
	return canUseMode(rn, pathIndex, VehicleBicycle)
}
func (p *BicycleProfile) PathCost(rn *routenode.RouteNode, pathIndex int, _ int) float64 {
	return timeCostSeconds(rn.Paths[pathIndex].Distance, p.SpeedKmh)
}
func (p *BicycleProfile) SegmentCost(distanceMeters float64, _ int) float64 {
	return timeCostSeconds(distanceMeters, p.SpeedKmh)
}
func (p *BicycleProfile) EstimateCost(distanceMeters float64) float64 {
	return timeCostSeconds(distanceMeters, p.SpeedKmh)
}

// CostMode selects which cost strategy CarProfile.Parametrize
// configures: fastest (time, per-type speed table) or shortest (plain
// distance, ignoring speed).
type CostMode uint8

const (
	CostFastest CostMode = iota
	CostShortest
)

// CarProfile routes by car, either minimising travel time using a
// per-type speed table (CostFastest) or minimising raw distance
// (CostShortest).
type CarProfile struct {
	Mode        CostMode
	typeSpeeds  map[int]float64 // TypeInfo.Ordinal() -> km/h
	maxSpeedKmh float64
}

func NewCarProfile(mode CostMode) *CarProfile {
	return &CarProfile{Mode: mode, typeSpeeds: map[int]float64{}, maxSpeedKmh: 50}
}

// Parametrize sets per-type traversal speeds for the car profile from a
// name -> km/h table, resolved against typeConfig's registered types.
func (p *CarProfile) Parametrize(typeConfig *types.TypeConfig, typeSpeedTable map[string]float64, maxSpeedKmh float64) {
	p.maxSpeedKmh = maxSpeedKmh
	for name, speed := range typeSpeedTable {
		t, ok := typeConfig.TypeByName(name)
		if !ok {
			continue
		}
		p.typeSpeeds[t.Ordinal()] = speed
		if speed > p.maxSpeedKmh {
			p.maxSpeedKmh = speed
		}
	}
}

func (p *CarProfile) Vehicle() Vehicle { return VehicleCar }
func (p *CarProfile) CanUse(rn *routenode.RouteNode, pathIndex int) bool {
	return canUseMode(rn, pathIndex, VehicleCar)
}

// speedForObjectType returns the configured speed for the type id carried
// by the incident object the path traverses, or maxSpeedKmh if unknown.
func (p *CarProfile) speedForObjectType(typeOrdinal int) float64 {
	if speed, ok := p.typeSpeeds[typeOrdinal]; ok {
		return speed
	}
	return p.maxSpeedKmh
}

func (p *CarProfile) PathCost(rn *routenode.RouteNode, pathIndex int, objectTypeOrdinal int) float64 {
	path := rn.Paths[pathIndex]
	if p.Mode == CostShortest {
		return path.Distance
	}
	return timeCostSeconds(path.Distance, p.speedForObjectType(objectTypeOrdinal))
}

func (p *CarProfile) SegmentCost(distanceMeters float64, objectTypeOrdinal int) float64 {
	if p.Mode == CostShortest {
		return distanceMeters
	}
	return timeCostSeconds(distanceMeters, p.speedForObjectType(objectTypeOrdinal))
}

func (p *CarProfile) EstimateCost(distanceMeters float64) float64 {
	if p.Mode == CostShortest {
		return distanceMeters
	}
	// Admissibility requires h to never
	// overestimate true remaining cost: use the fastest speed any type
	// is allowed, which yields the lowest possible time estimate.
	best := p.maxSpeedKmh
	for _, speed := range p.typeSpeeds {
		if speed > best {
			best = speed
		}
	}
	if best <= 0 {
		best = p.maxSpeedKmh
	}
	return timeCostSeconds(distanceMeters, best)
}
