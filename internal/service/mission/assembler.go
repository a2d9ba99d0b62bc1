package mission

import (
	"context"
	"fmt"
	"log"

	"skyplan/internal/model"
	"skyplan/internal/plan"
	"skyplan/internal/service/altitude"
	"skyplan/internal/service/geofence"
	"skyplan/internal/service/terrain"
)

// Default mission speeds written to the plan envelope when the scenario
// leaves them unset.
const (
	defaultCruiseSpeed = 15.0
	defaultHoverSpeed  = 5.0

	globalAltModeRelative = 1

	// Payload release via servo: channel 9, full-throw PWM.
	payloadServoChannel = 9
	payloadServoPWM     = 2000

	loiterBeforeDropSec = 10
)

// GenerateResult is one finished generation run. The plan document goes to
// the external file writer; warnings and the terrain flag go to the UI.
type GenerateResult struct {
	Plan              *plan.Document
	Waypoints         []model.Waypoint
	Warnings          []model.Warning
	TerrainIncomplete bool
}

// Assembler orchestrates the pipeline: interpolation, terrain resolution,
// altitude composition, geofence construction, document assembly. It holds
// no per-run state; every Generate call is a fresh pipeline execution.
type Assembler struct {
	terrain  *terrain.Service
	composer *altitude.Composer
}

func NewAssembler(t *terrain.Service) *Assembler {
	return &Assembler{
		terrain:  t,
		composer: altitude.NewComposer(t),
	}
}

// Generate validates the scenario and produces a complete mission plan.
// Configuration errors (ErrMissingLocation, ErrInvalidParameter) abort
// before any network or geometry work; terrain and geometry degradation
// are reported as warnings on a successful result.
func (a *Assembler) Generate(ctx context.Context, sc *model.Scenario) (*GenerateResult, error) {
	profile, err := validate(sc)
	if err != nil {
		return nil, err
	}

	rt, err := realizeRoute(sc)
	if err != nil {
		return nil, err
	}
	if len(rt.path) < 2 {
		return nil, fmt.Errorf("%w: realized path has %d points", model.ErrInvalidParameter, len(rt.path))
	}

	degradedBefore := a.terrain.DegradedCount()
	samples := a.composer.ComposePath(ctx, rt.path, sc.AltitudeAGL)

	result := &GenerateResult{Warnings: rt.warnings}
	items, waypoints := a.emitItems(profile, sc, rt, samples)
	result.Waypoints = waypoints

	fence, fenceWarnings := geofence.Build(rt.path, sc.BufferM, rt.protected, sc.LoiterRadius)
	result.Warnings = append(result.Warnings, fenceWarnings...)

	result.Warnings = append(result.Warnings,
		altitude.CheckProximity(rt.path, samples, 0)...)

	if a.terrain.DegradedCount() > degradedBefore {
		result.TerrainIncomplete = true
		result.Warnings = append(result.Warnings, model.Warning{
			Kind:    model.WarnTerrainDefaulted,
			Message: "one or more terrain lookups failed; default elevation used, re-verify clearance",
		})
		log.Printf("mission: terrain data incomplete for this plan")
	}

	home := rt.path[0]
	result.Plan = &plan.Document{
		FileType:      plan.FileType,
		GroundStation: "skyplan",
		Version:       plan.FileVersion,
		GeoFence:      fenceDocument(fence),
		RallyPoints:   plan.RallyPoints{Points: [][3]float64{}, Version: plan.RallyVersion},
		Mission: plan.Mission{
			CruiseSpeed:            speedOrDefault(sc.CruiseSpeed, defaultCruiseSpeed),
			HoverSpeed:             speedOrDefault(sc.HoverSpeed, defaultHoverSpeed),
			FirmwareType:           profile.FirmwareType(),
			VehicleType:            profile.VehicleType(),
			GlobalPlanAltitudeMode: globalAltModeRelative,
			Items:                  items,
			PlannedHomePosition:    [3]float64{home.Lat, home.Lng, samples[0].Terrain},
			Version:                plan.MissionVersion,
		},
	}
	return result, nil
}

// emitItems walks the realized path: takeoff at the first point, one
// navigation item per following point, action items at payload stops, and
// the aircraft's terminal sequence replacing the plain landing.
func (a *Assembler) emitItems(profile Profile, sc *model.Scenario, rt *route, samples []altitude.Altitude) ([]plan.Item, []model.Waypoint) {
	var items []plan.Item
	var waypoints []model.Waypoint
	seq := 1

	// The document carries the composed absolute altitude on every simple
	// item so a GCS can display AMSL next to the relative altitude.
	withAMSL := func(it plan.Item, v float64) plan.Item {
		it.AMSLAltAboveTerrain = &v
		return it
	}

	record := func(i int, kind model.CommandKind) {
		waypoints = append(waypoints, model.Waypoint{
			Coordinate: rt.path[i],
			Seq:        len(waypoints),
			AGL:        samples[i].AGL,
			AMSL:       samples[i].AMSL,
			Command:    kind,
		})
	}

	start := rt.path[0]
	items = append(items, withAMSL(plan.NewSimpleItem(
		profile.TakeoffCommand(), seq, start.Lat, start.Lng, sc.AltitudeAGL, 15, 0, 0, 0), samples[0].AMSL))
	seq++
	record(0, model.CommandTakeoff)

	last := len(rt.path) - 1
	for i := 1; i <= last; i++ {
		c := rt.path[i]

		items = append(items, withAMSL(plan.NewSimpleItem(
			plan.CmdNavWaypoint, seq, c.Lat, c.Lng, sc.AltitudeAGL, 0, 0, 0, 0), samples[i].AMSL))
		seq++
		record(i, model.CommandWaypoint)

		if rt.payloadAt[i] || (i == last && sc.Terminal == model.TerminalPayloadRelease) {
			items = append(items, withAMSL(plan.NewSimpleItem(
				plan.CmdNavLoiterTime, seq, c.Lat, c.Lng, sc.AltitudeAGL, loiterBeforeDropSec, 0, 0, 0), samples[i].AMSL))
			seq++
			record(i, model.CommandLoiter)

			items = append(items, withAMSL(plan.NewSimpleItem(
				plan.CmdDoSetServo, seq, c.Lat, c.Lng, sc.AltitudeAGL, payloadServoChannel, payloadServoPWM, 0, 0), samples[i].AMSL))
			seq++
			record(i, model.CommandPayload)
		}
	}

	end := rt.path[last]
	prev := rt.path[last-1]
	terminal := profile.TerminalItems(&seq, prev, end, sc.AltitudeAGL)
	for ti := range terminal {
		if terminal[ti].Type == plan.SimpleItemType {
			// Land items sit at 0 m relative, so their absolute altitude
			// is the ground elevation under the pad.
			terminal[ti] = withAMSL(terminal[ti], samples[last].Terrain)
		}
	}
	items = append(items, terminal...)
	record(last, model.CommandLand)

	return items, waypoints
}

func validate(sc *model.Scenario) (Profile, error) {
	profile := ProfileFor(sc.Aircraft)
	if profile == nil {
		return nil, fmt.Errorf("%w: unknown aircraft kind %q", model.ErrInvalidParameter, sc.Aircraft)
	}
	if sc.IntervalM <= 0 {
		return nil, fmt.Errorf("%w: waypoint interval must be positive, got %v", model.ErrInvalidParameter, sc.IntervalM)
	}
	if sc.AltitudeAGL <= 0 {
		return nil, fmt.Errorf("%w: AGL altitude must be positive, got %v", model.ErrInvalidParameter, sc.AltitudeAGL)
	}
	if sc.BufferM <= 0 {
		return nil, fmt.Errorf("%w: geofence buffer must be positive, got %v", model.ErrInvalidParameter, sc.BufferM)
	}

	for _, c := range requiredLocations(sc) {
		if c == nil {
			return nil, fmt.Errorf("%w (variant %s)", model.ErrMissingLocation, sc.Variant)
		}
		if !c.Valid() {
			return nil, fmt.Errorf("%w: coordinate %s out of range", model.ErrInvalidParameter, c)
		}
	}
	return profile, nil
}

// requiredLocations lists the positions each variant cannot run without; a
// nil entry means the scenario left one unset.
func requiredLocations(sc *model.Scenario) []*model.Coordinate {
	var req []*model.Coordinate

	addAll := func(coords []model.Coordinate, minCount int) {
		if len(coords) < minCount {
			req = append(req, nil)
			return
		}
		for i := range coords {
			req = append(req, &coords[i])
		}
	}

	switch sc.Variant {
	case model.VariantAToB:
		req = append(req, sc.Start, sc.End)
	case model.VariantDelivery:
		req = append(req, sc.Start)
		addAll(sc.Points, 1)
	case model.VariantMultiDelivery:
		req = append(req, sc.Start)
		addAll(sc.Points, 2)
	case model.VariantLinear:
		addAll(sc.Points, 2)
	case model.VariantPatrol, model.VariantSurvey:
		addAll(sc.Polygon, 3)
	case model.VariantTowerOrbit:
		req = append(req, sc.Tower)
	}
	return req
}

func fenceDocument(fence model.Geofence) plan.GeoFence {
	doc := plan.GeoFence{
		Polygons: []plan.FencePolygon{},
		Circles:  []plan.FenceCircle{},
		Version:  plan.FenceVersion,
	}
	if len(fence) == 0 {
		return doc
	}

	// The ring arrives closed; the document format implies closure.
	verts := fence
	if verts[0] == verts[len(verts)-1] {
		verts = verts[:len(verts)-1]
	}
	poly := plan.FencePolygon{
		Polygon:   make([][2]float64, 0, len(verts)),
		Inclusion: true,
		Version:   plan.PolygonVersion,
	}
	for _, v := range verts {
		poly.Polygon = append(poly.Polygon, [2]float64{v.Lat, v.Lng})
	}
	doc.Polygons = append(doc.Polygons, poly)
	return doc
}

func speedOrDefault(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}
