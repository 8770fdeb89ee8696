package routedesc

import (
	"math"

	"osmscout/common"
	"osmscout/feature"
	"osmscout/objects"
)

// stringFeatureValue reads a plain-string feature's text off buf, if
// present (Name, NameAlt, Ref, Destination, ...).
func stringFeatureValue(buf *feature.ValueBuffer, featureName string) (string, bool) {
	if buf == nil || buf.Type() == nil {
		return "", false
	}
	inst, ok := buf.Type().FeatureInstanceByName(featureName)
	if !ok || !buf.HasFeature(inst.Index) {
		return "", false
	}
	sv, ok := buf.GetValue(inst).(*feature.StringValue)
	if !ok {
		return "", false
	}
	return sv.Text, sv.Text != ""
}

func maxSpeedFeatureValue(buf *feature.ValueBuffer) (uint8, bool) {
	if buf == nil || buf.Type() == nil {
		return 0, false
	}
	inst, ok := buf.Type().FeatureInstanceByName("MaxSpeed")
	if !ok || !buf.HasFeature(inst.Index) {
		return 0, false
	}
	v, ok := buf.GetValue(inst).(*feature.MaxSpeedValue)
	if !ok {
		return 0, false
	}
	return v.KmH, true
}

// isZeroRef reports whether ref names no object (the description's last
// node, which traverses nothing further).
func isZeroRef(ref objects.FileRef) bool {
	return ref == objects.FileRef{}
}

// DistanceAndTime fills in each node's cumulative travel time from ctx's
// profile, on top of the cumulative distance already carried on every Node
// by NewRouteDescription.
type DistanceAndTime struct{}

func (p *DistanceAndTime) Name() string { return "DistanceAndTime" }

func (p *DistanceAndTime) Process(ctx *Context, desc *RouteDescription) error {
	var elapsed float64
	for i, n := range desc.Nodes {
		if i == 0 {
			n.Time = 0
			continue
		}
		prev := desc.Nodes[i-1]
		segmentDist := n.Distance - prev.Distance

		typeOrdinal := 0
		if !isZeroRef(prev.Object) {
			if buf, err := ctx.Features.Buffer(prev.Object); err == nil && buf != nil && buf.Type() != nil {
				typeOrdinal = buf.Type().Ordinal()
			}
		}
		elapsed += ctx.Profile.SegmentCost(segmentDist, typeOrdinal)
		n.Time = elapsed
	}
	return nil
}

const (
	descriptionStart        = "Start"
	descriptionTarget       = "Target"
	descriptionName         = "Name"
	descriptionType         = "Type"
	descriptionCrossingWays = "CrossingWays"
	descriptionDirection    = "Direction"
	descriptionJunction     = "MotorwayJunction"
	descriptionDestination  = "Destination"
	descriptionMaxSpeed     = "MaxSpeed"
	descriptionInstruction  = "Instruction"
)

// StartDescriptionEntry marks the route's first node.
type StartDescriptionEntry struct{}

func (StartDescriptionEntry) DescriptionId() string { return descriptionStart }

// Start attaches a start marker at node 0.
type Start struct{}

func (p *Start) Name() string { return "Start" }
func (p *Start) Process(_ *Context, desc *RouteDescription) error {
	if len(desc.Nodes) == 0 {
		return nil
	}
	desc.Nodes[0].AddDescription(StartDescriptionEntry{})
	return nil
}

// TargetDescriptionEntry marks the route's last node.
type TargetDescriptionEntry struct{}

func (TargetDescriptionEntry) DescriptionId() string { return descriptionTarget }

// Target attaches a target marker at the last node.
type Target struct{}

func (p *Target) Name() string { return "Target" }
func (p *Target) Process(_ *Context, desc *RouteDescription) error {
	if len(desc.Nodes) == 0 {
		return nil
	}
	desc.Nodes[len(desc.Nodes)-1].AddDescription(TargetDescriptionEntry{})
	return nil
}

// NameDescriptionEntry carries the traversed way's name and/or ref.
type NameDescriptionEntry struct {
	Name string
	Ref  string
}

func (NameDescriptionEntry) DescriptionId() string { return descriptionName }

// WayName attaches the name (+ ref) of the way each node is about to
// traverse.
type WayName struct{}

func (p *WayName) Name() string { return "WayName" }
func (p *WayName) Process(ctx *Context, desc *RouteDescription) error {
	for _, n := range desc.Nodes {
		if isZeroRef(n.Object) {
			continue
		}
		buf, err := ctx.Features.Buffer(n.Object)
		if err != nil {
			return err
		}
		name, hasName := stringFeatureValue(buf, "Name")
		ref, hasRef := stringFeatureValue(buf, "Ref")
		if !hasName && !hasRef {
			continue
		}
		n.AddDescription(NameDescriptionEntry{Name: name, Ref: ref})
	}
	return nil
}

// TypeDescriptionEntry carries the registered TypeInfo name of the
// traversed object (e.g. "highway_motorway").
type TypeDescriptionEntry struct {
	TypeName string
}

func (TypeDescriptionEntry) DescriptionId() string { return descriptionType }

// WayType attaches the traversed object's type name.
type WayType struct{}

func (p *WayType) Name() string { return "WayType" }
func (p *WayType) Process(ctx *Context, desc *RouteDescription) error {
	for _, n := range desc.Nodes {
		if isZeroRef(n.Object) {
			continue
		}
		buf, err := ctx.Features.Buffer(n.Object)
		if err != nil {
			return err
		}
		if buf == nil || buf.Type() == nil {
			continue
		}
		n.AddDescription(TypeDescriptionEntry{TypeName: buf.Type().Name})
	}
	return nil
}

// CrossingWaysDescriptionEntry lists the names of other named ways meeting
// a route-node junction.
type CrossingWaysDescriptionEntry struct {
	Names []string
}

func (CrossingWaysDescriptionEntry) DescriptionId() string { return descriptionCrossingWays }

// CrossingWays attaches, at each route-node, the set of other named ways
// meeting it.
type CrossingWays struct{}

func (p *CrossingWays) Name() string { return "CrossingWays" }
func (p *CrossingWays) Process(ctx *Context, desc *RouteDescription) error {
	for i, n := range desc.Nodes {
		if !n.IsRouteNode {
			continue
		}
		rn, err := ctx.RouteNodes.ReadAt(n.RouteNodeOffset)
		if err != nil {
			return err
		}

		// The route itself occupies up to two of rn's incident objects:
		// the one it arrived on (the previous node's outgoing Object) and
		// the one it continues onto (n.Object). Neither is a "crossing".
		var incoming objects.FileRef
		if i > 0 {
			incoming = desc.Nodes[i-1].Object
		}

		var names []string
		seen := map[string]bool{}
		for _, obj := range rn.Objects {
			if obj == n.Object || (!isZeroRef(incoming) && obj == incoming) {
				continue
			}
			buf, err := ctx.Features.Buffer(obj)
			if err != nil {
				continue // incident object unreadable; skip rather than fail the whole route
			}
			name, ok := stringFeatureValue(buf, "Name")
			if !ok || seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
		if len(names) > 0 {
			n.AddDescription(CrossingWaysDescriptionEntry{Names: names})
		}
	}
	return nil
}

// TurnBin is one of the seven signed-bearing-change bins.
type TurnBin int

const (
	TurnSharpLeft TurnBin = iota
	TurnLeft
	TurnSlightlyLeft
	TurnStraightOn
	TurnSlightlyRight
	TurnRight
	TurnSharpRight
)

func (t TurnBin) String() string {
	switch t {
	case TurnSharpLeft:
		return "sharp left"
	case TurnLeft:
		return "left"
	case TurnSlightlyLeft:
		return "slightly left"
	case TurnStraightOn:
		return "straight on"
	case TurnSlightlyRight:
		return "slightly right"
	case TurnRight:
		return "right"
	case TurnSharpRight:
		return "sharp right"
	}
	return "unknown"
}

// binTurn maps a signed bearing change in degrees, positive clockwise
// (right), to one of the seven bins.
func binTurn(deltaDegrees float64) TurnBin {
	switch {
	case deltaDegrees <= -120:
		return TurnSharpLeft
	case deltaDegrees <= -45:
		return TurnLeft
	case deltaDegrees <= -10:
		return TurnSlightlyLeft
	case deltaDegrees < 10:
		return TurnStraightOn
	case deltaDegrees < 45:
		return TurnSlightlyRight
	case deltaDegrees < 120:
		return TurnRight
	default:
		return TurnSharpRight
	}
}

// bearingDegrees returns the initial great-circle bearing from a to b, in
// degrees clockwise from north.
func bearingDegrees(a, b common.GeoCoord) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	theta := math.Atan2(y, x)
	return math.Mod(theta*180/math.Pi+360, 360)
}

// DirectionDescriptionEntry carries the signed bearing change at a node and
// its binned turn direction.
type DirectionDescriptionEntry struct {
	BearingChange float64
	Turn          TurnBin
}

func (DirectionDescriptionEntry) DescriptionId() string { return descriptionDirection }

// Direction computes the signed bearing change at each interior node from
// its neighbouring coordinates. Requires coordinates,
// already present on every Node from construction, so it carries no
// pipeline dependency of its own.
type Direction struct{}

func (p *Direction) Name() string { return "Direction" }
func (p *Direction) Process(_ *Context, desc *RouteDescription) error {
	for i := 1; i < len(desc.Nodes)-1; i++ {
		prev := desc.Nodes[i-1]
		cur := desc.Nodes[i]
		next := desc.Nodes[i+1]

		inBearing := bearingDegrees(prev.Coord, cur.Coord)
		outBearing := bearingDegrees(cur.Coord, next.Coord)

		delta := outBearing - inBearing
		for delta > 180 {
			delta -= 360
		}
		for delta < -180 {
			delta += 360
		}

		cur.AddDescription(DirectionDescriptionEntry{BearingChange: delta, Turn: binTurn(delta)})
	}
	return nil
}

// MotorwayJunctionDescriptionEntry tags a node coinciding with a highway
// junction node, carrying its name/ref if known.
type MotorwayJunctionDescriptionEntry struct {
	Name string
	Ref  string
}

func (MotorwayJunctionDescriptionEntry) DescriptionId() string { return descriptionJunction }

// MotorwayJunction tags route-nodes whose incident objects include a type
// registered in ctx.JunctionTypeNames.
type MotorwayJunction struct{}

func (p *MotorwayJunction) Name() string { return "MotorwayJunction" }
func (p *MotorwayJunction) Process(ctx *Context, desc *RouteDescription) error {
	for _, n := range desc.Nodes {
		if !n.IsRouteNode {
			continue
		}
		rn, err := ctx.RouteNodes.ReadAt(n.RouteNodeOffset)
		if err != nil {
			return err
		}
		for _, obj := range rn.Objects {
			buf, err := ctx.Features.Buffer(obj)
			if err != nil || buf == nil || buf.Type() == nil {
				continue
			}
			if !ctx.isJunction(buf.Type()) {
				continue
			}
			name, _ := stringFeatureValue(buf, "Name")
			ref, _ := stringFeatureValue(buf, "Ref")
			n.AddDescription(MotorwayJunctionDescriptionEntry{Name: name, Ref: ref})
			break
		}
	}
	return nil
}

// DestinationDescriptionEntry propagates a way's Destination feature.
type DestinationDescriptionEntry struct {
	Destination string
}

func (DestinationDescriptionEntry) DescriptionId() string { return descriptionDestination }

// Destination propagates the Destination feature from the way each node
// traverses.
type Destination struct{}

func (p *Destination) Name() string { return "Destination" }
func (p *Destination) Process(ctx *Context, desc *RouteDescription) error {
	for _, n := range desc.Nodes {
		if isZeroRef(n.Object) {
			continue
		}
		buf, err := ctx.Features.Buffer(n.Object)
		if err != nil {
			return err
		}
		if dest, ok := stringFeatureValue(buf, "Destination"); ok {
			n.AddDescription(DestinationDescriptionEntry{Destination: dest})
		}
	}
	return nil
}

// MaxSpeedDescriptionEntry propagates a segment's speed limit in km/h.
type MaxSpeedDescriptionEntry struct {
	KmH uint8
}

func (MaxSpeedDescriptionEntry) DescriptionId() string { return descriptionMaxSpeed }

// MaxSpeed propagates per-segment speed limits.
type MaxSpeed struct{}

func (p *MaxSpeed) Name() string { return "MaxSpeed" }
func (p *MaxSpeed) Process(ctx *Context, desc *RouteDescription) error {
	for _, n := range desc.Nodes {
		if isZeroRef(n.Object) {
			continue
		}
		buf, err := ctx.Features.Buffer(n.Object)
		if err != nil {
			return err
		}
		if kmh, ok := maxSpeedFeatureValue(buf); ok {
			n.AddDescription(MaxSpeedDescriptionEntry{KmH: kmh})
		}
	}
	return nil
}

// InstructionKind enumerates the high-level navigation events.
type InstructionKind int

const (
	InstructionStart InstructionKind = iota
	InstructionTarget
	InstructionTurn
	InstructionNameChanged
	InstructionMotorwayEnter
	InstructionMotorwayChange
	InstructionMotorwayLeave
	InstructionRoundaboutEnter
	InstructionRoundaboutLeave
)

func (k InstructionKind) String() string {
	switch k {
	case InstructionStart:
		return "start"
	case InstructionTarget:
		return "target"
	case InstructionTurn:
		return "turn"
	case InstructionNameChanged:
		return "name changed"
	case InstructionMotorwayEnter:
		return "motorway enter"
	case InstructionMotorwayChange:
		return "motorway change"
	case InstructionMotorwayLeave:
		return "motorway leave"
	case InstructionRoundaboutEnter:
		return "roundabout enter"
	case InstructionRoundaboutLeave:
		return "roundabout leave"
	}
	return "unknown"
}

// InstructionEvent is one synthesised navigation event at a node.
type InstructionEvent struct {
	Kind InstructionKind

	// Turn is valid for InstructionTurn.
	Turn TurnBin
	// FromName/ToName are valid for InstructionNameChanged.
	FromName, ToName string
	// ExitCount is valid for InstructionRoundaboutLeave.
	ExitCount int
}

// InstructionDescriptionEntry wraps the events synthesised at one node;
// usually zero or one, occasionally more (e.g. a motorway exit that is also
// the target).
type InstructionDescriptionEntry struct {
	Events []InstructionEvent
}

func (InstructionDescriptionEntry) DescriptionId() string { return descriptionInstruction }

// Instruction synthesises high-level navigation events from everything the
// earlier processors attached: RoundaboutEnter/Leave
// (with exit counter), MotorwayEnter/Change/Leave, Turn, NameChanged, Start,
// Target. It requires CrossingWays, Direction, WayName, MotorwayJunction and
// Destination to have already run (declared in the package's requires map
// and enforced at NewPipeline time).
type Instruction struct{}

func (p *Instruction) Name() string { return "Instruction" }

func (p *Instruction) Process(ctx *Context, desc *RouteDescription) error {
	roundaboutExit := 0
	inRoundabout := false
	inMotorway := false

	for i, n := range desc.Nodes {
		var events []InstructionEvent

		if _, ok := n.Description(descriptionStart); ok {
			events = append(events, InstructionEvent{Kind: InstructionStart})
		}
		if _, ok := n.Description(descriptionTarget); ok {
			events = append(events, InstructionEvent{Kind: InstructionTarget})
		}

		var wayType *feature.ValueBuffer
		if !isZeroRef(n.Object) {
			buf, err := ctx.Features.Buffer(n.Object)
			if err != nil {
				return err
			}
			wayType = buf
		}

		isRoundabout := false
		isMotorway := false
		if wayType != nil && wayType.Type() != nil {
			if inst, ok := wayType.Type().FeatureInstanceByName("Roundabout"); ok {
				isRoundabout = wayType.HasFeature(inst.Index)
			}
			isMotorway = ctx.isMotorway(wayType.Type()) && !ctx.isMotorwayLink(wayType.Type())
		}

		if isRoundabout && !inRoundabout {
			inRoundabout = true
			roundaboutExit = 0
			events = append(events, InstructionEvent{Kind: InstructionRoundaboutEnter})
		} else if !isRoundabout && inRoundabout {
			inRoundabout = false
			events = append(events, InstructionEvent{Kind: InstructionRoundaboutLeave, ExitCount: roundaboutExit})
		} else if inRoundabout {
			if _, ok := n.Description(descriptionCrossingWays); ok {
				roundaboutExit++
			}
		}

		if isMotorway && !inMotorway {
			inMotorway = true
			events = append(events, InstructionEvent{Kind: InstructionMotorwayEnter})
		} else if !isMotorway && inMotorway {
			inMotorway = false
			events = append(events, InstructionEvent{Kind: InstructionMotorwayLeave})
		} else if isMotorway && inMotorway && i > 0 {
			if nameChanged(desc.Nodes[i-1], n) {
				events = append(events, InstructionEvent{Kind: InstructionMotorwayChange})
			}
		}

		if !inRoundabout && !isMotorway && i > 0 && i < len(desc.Nodes)-1 {
			if d, ok := n.Description(descriptionDirection); ok {
				dir := d.(DirectionDescriptionEntry)
				if dir.Turn != TurnStraightOn {
					events = append(events, InstructionEvent{Kind: InstructionTurn, Turn: dir.Turn})
				}
			}
			if i > 0 && nameChanged(desc.Nodes[i-1], n) {
				from, to := namesOf(desc.Nodes[i-1]), namesOf(n)
				events = append(events, InstructionEvent{Kind: InstructionNameChanged, FromName: from, ToName: to})
			}
		}

		if len(events) > 0 {
			n.AddDescription(InstructionDescriptionEntry{Events: events})
		}
	}
	return nil
}

// nameChanged reports whether b's WayName description differs from a's.
func nameChanged(a, b *Node) bool {
	return namesOf(a) != namesOf(b)
}

func namesOf(n *Node) string {
	d, ok := n.Description(descriptionName)
	if !ok {
		return ""
	}
	nd := d.(NameDescriptionEntry)
	if nd.Name != "" {
		return nd.Name
	}
	return nd.Ref
}
