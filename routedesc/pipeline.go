package routedesc

import (
	"github.com/pkg/errors"

	"osmscout/feature"
	"osmscout/objects"
	"osmscout/router"
	"osmscout/routenode"
	"osmscout/types"
)

// FeatureSource resolves the typed attribute buffer of a routable object, so
// processors can read Name/Ref/Destination/MaxSpeed/... off the way or area
// a route segment traverses.
type FeatureSource interface {
	Buffer(ref objects.FileRef) (*feature.ValueBuffer, error)
}

// RouteNodeSource resolves the persisted adjacency record backing a settled
// route-node entry, so CrossingWays/MotorwayJunction can enumerate its
// incident objects.
type RouteNodeSource interface {
	ReadAt(offset uint64) (*routenode.RouteNode, error)
}

// Context bundles everything a Processor needs beyond the RouteDescription
// itself.
type Context struct {
	Profile    router.RoutingProfile
	Features   FeatureSource
	RouteNodes RouteNodeSource
	TypeConfig *types.TypeConfig

	MotorwayTypeNames     []string
	MotorwayLinkTypeNames []string
	JunctionTypeNames     []string
}

// isMotorway reports whether t's name appears in the context's motorway (or
// motorway-link) type name lists.
func (c *Context) isMotorway(t *types.TypeInfo) bool {
	return stringInSlice(t.Name, c.MotorwayTypeNames) || stringInSlice(t.Name, c.MotorwayLinkTypeNames)
}

func (c *Context) isMotorwayLink(t *types.TypeInfo) bool {
	return stringInSlice(t.Name, c.MotorwayLinkTypeNames)
}

func (c *Context) isJunction(t *types.TypeInfo) bool {
	return stringInSlice(t.Name, c.JunctionTypeNames)
}

func stringInSlice(s string, list []string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Processor is one step of the route post-processing pipeline.
type Processor interface {
	// Name identifies the processor for dependency validation.
	Name() string
	// Process enriches desc in place.
	Process(ctx *Context, desc *RouteDescription) error
}

// requires declares each processor's hard dependency on another processor
// having already run.
var requires = map[string][]string{
	"Instruction": {"CrossingWays", "Direction", "WayName", "MotorwayJunction", "Destination"},
}

// Pipeline is an ordered, dependency-validated chain of Processors.
type Pipeline struct {
	processors []Processor
}

// NewPipeline validates that every processor's declared dependencies
// (requires) appear earlier in the given order, then returns a Pipeline
// ready to run. An undeclared-dependency violation is a construction-time
// error, not a silent skip.
func NewPipeline(processors ...Processor) (*Pipeline, error) {
	seen := map[string]bool{}
	for _, p := range processors {
		for _, dep := range requires[p.Name()] {
			if !seen[dep] {
				return nil, errors.Errorf("routedesc: processor %q requires %q to run first", p.Name(), dep)
			}
		}
		seen[p.Name()] = true
	}
	return &Pipeline{processors: processors}, nil
}

// DefaultOrder returns the canonical processor order. ctx is not consulted
// here; each processor receives its Context from Run.
func DefaultOrder(ctx *Context) (*Pipeline, error) {
	return NewPipeline(
		&DistanceAndTime{},
		&Start{},
		&Target{},
		&WayName{},
		&WayType{},
		&CrossingWays{},
		&Direction{},
		&MotorwayJunction{},
		&Destination{},
		&MaxSpeed{},
		&Instruction{},
	)
}

// Run executes every processor in order over desc.
func (p *Pipeline) Run(ctx *Context, desc *RouteDescription) error {
	for _, proc := range p.processors {
		if err := proc.Process(ctx, desc); err != nil {
			return errors.Wrapf(err, "routedesc: processor %q", proc.Name())
		}
	}
	return nil
}
