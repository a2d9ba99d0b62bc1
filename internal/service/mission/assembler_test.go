package mission

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"skyplan/internal/model"
	"skyplan/internal/plan"
	"skyplan/internal/service/terrain"
	"skyplan/internal/util"
)

func testAssembler(t *testing.T, elevation float64) *Assembler {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"results":[{"elevation":%f}]}`, elevation)
	}))
	t.Cleanup(srv.Close)

	return NewAssembler(terrain.New(terrain.Options{
		APIURL:       srv.URL,
		RateInterval: time.Millisecond,
		BackoffBase:  time.Millisecond,
	}))
}

func baseScenario() *model.Scenario {
	return &model.Scenario{
		Variant:     model.VariantAToB,
		Aircraft:    model.AircraftMulticopter,
		Start:       &model.Coordinate{Lat: 40.0, Lng: -75.0},
		End:         &model.Coordinate{Lat: 40.01, Lng: -75.0},
		AltitudeAGL: 100,
		IntervalM:   50,
		BufferM:     50,
		Terminal:    model.TerminalLand,
	}
}

func TestGenerateAToBEndToEnd(t *testing.T) {
	a := testAssembler(t, 0)
	sc := baseScenario()

	res, err := a.Generate(context.Background(), sc)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	items := res.Plan.Mission.Items
	if len(items) < 3 {
		t.Fatalf("item count = %d, want takeoff + waypoints + land", len(items))
	}

	first := items[0]
	if *first.Command != plan.CmdNavTakeoff {
		t.Fatalf("first command = %d, want takeoff %d", *first.Command, plan.CmdNavTakeoff)
	}
	if *first.Params[4] != 40.0 || *first.Params[5] != -75.0 {
		t.Fatalf("takeoff at (%v,%v), want (40,-75)", *first.Params[4], *first.Params[5])
	}

	lastItem := items[len(items)-1]
	if *lastItem.Command != plan.CmdNavLand {
		t.Fatalf("last command = %d, want land %d", *lastItem.Command, plan.CmdNavLand)
	}
	if *lastItem.Params[4] != 40.01 || *lastItem.Params[5] != -75.0 {
		t.Fatalf("land at (%v,%v), want (40.01,-75)", *lastItem.Params[4], *lastItem.Params[5])
	}

	dist := util.HaversineDistance(*sc.Start, *sc.End)
	wantWaypoints := int(math.Ceil(dist / sc.IntervalM))
	gotWaypoints := 0
	prevLat := 40.0 - 1
	for _, it := range items {
		if it.Command != nil && *it.Command == plan.CmdNavWaypoint {
			gotWaypoints++
			if *it.Params[4] <= prevLat {
				t.Fatalf("waypoint latitudes not monotonically increasing: %v after %v", *it.Params[4], prevLat)
			}
			prevLat = *it.Params[4]
		}
	}
	if gotWaypoints != wantWaypoints {
		t.Fatalf("waypoint commands = %d, want %d", gotWaypoints, wantWaypoints)
	}

	for i, it := range items {
		if it.Type == plan.SimpleItemType && it.AMSLAltAboveTerrain == nil {
			t.Fatalf("item %d: AMSLAltAboveTerrain omitted, want populated AMSL value", i)
		}
	}

	if res.TerrainIncomplete {
		t.Fatalf("terrain marked incomplete with healthy elevation service")
	}
	if len(res.Plan.GeoFence.Polygons) != 1 {
		t.Fatalf("geofence polygons = %d, want 1", len(res.Plan.GeoFence.Polygons))
	}
}

func TestGenerateComposesAMSL(t *testing.T) {
	a := testAssembler(t, 250)
	res, err := a.Generate(context.Background(), baseScenario())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, wp := range res.Waypoints {
		if wp.AMSL != 350 {
			t.Fatalf("waypoint %d AMSL = %v, want 350 (250 terrain + 100 AGL)", wp.Seq, wp.AMSL)
		}
	}
	if home := res.Plan.Mission.PlannedHomePosition; home[2] != 250 {
		t.Fatalf("home elevation = %v, want 250", home[2])
	}

	// The composed AMSL must reach the serialized items: 350 m in flight,
	// ground elevation on the terminal land item.
	items := res.Plan.Mission.Items
	for i, it := range items[:len(items)-1] {
		if it.AMSLAltAboveTerrain == nil || *it.AMSLAltAboveTerrain != 350 {
			t.Fatalf("item %d AMSLAltAboveTerrain = %v, want 350", i, it.AMSLAltAboveTerrain)
		}
	}
	land := items[len(items)-1]
	if land.AMSLAltAboveTerrain == nil || *land.AMSLAltAboveTerrain != 250 {
		t.Fatalf("land AMSLAltAboveTerrain = %v, want ground elevation 250", land.AMSLAltAboveTerrain)
	}
}

func TestGenerateMissingLocation(t *testing.T) {
	a := testAssembler(t, 0)
	sc := baseScenario()
	sc.End = nil

	if _, err := a.Generate(context.Background(), sc); !errors.Is(err, model.ErrMissingLocation) {
		t.Fatalf("err = %v, want ErrMissingLocation", err)
	}
}

func TestGenerateInvalidParameters(t *testing.T) {
	a := testAssembler(t, 0)

	cases := []func(*model.Scenario){
		func(sc *model.Scenario) { sc.IntervalM = 0 },
		func(sc *model.Scenario) { sc.AltitudeAGL = -10 },
		func(sc *model.Scenario) { sc.BufferM = -1 },
		func(sc *model.Scenario) { sc.Aircraft = "blimp" },
		func(sc *model.Scenario) { sc.Start = &model.Coordinate{Lat: 95, Lng: 0} },
	}
	for i, mutate := range cases {
		sc := baseScenario()
		mutate(sc)
		if _, err := a.Generate(context.Background(), sc); !errors.Is(err, model.ErrInvalidParameter) {
			t.Fatalf("case %d: err = %v, want ErrInvalidParameter", i, err)
		}
	}
}

func TestGenerateTerrainOutageDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()
	a := NewAssembler(terrain.New(terrain.Options{
		APIURL:       srv.URL,
		RateInterval: time.Millisecond,
		BackoffBase:  time.Millisecond,
	}))

	res, err := a.Generate(context.Background(), baseScenario())
	if err != nil {
		t.Fatalf("Generate must succeed on terrain outage, got %v", err)
	}
	if !res.TerrainIncomplete {
		t.Fatalf("TerrainIncomplete = false, want true after outage")
	}
	for _, wp := range res.Waypoints {
		if wp.AMSL != wp.AGL {
			t.Fatalf("waypoint AMSL %v != AGL %v with default elevation", wp.AMSL, wp.AGL)
		}
	}
}

func TestGenerateProximityWarnings(t *testing.T) {
	a := testAssembler(t, 0)

	sc := baseScenario()
	sc.AltitudeAGL = 10 // below the 15.24 m threshold
	res, err := a.Generate(context.Background(), sc)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	low := 0
	for _, w := range res.Warnings {
		if w.Kind == model.WarnLowClearance {
			low++
		}
	}
	nav := 0
	for _, wp := range res.Waypoints {
		if wp.Command == model.CommandWaypoint {
			nav++
		}
	}
	// Every realized path point (nav waypoints plus the takeoff point)
	// must be flagged at 10 m AGL.
	if want := nav + 1; low != want {
		t.Fatalf("low-clearance warnings = %d, want %d", low, want)
	}
}

func TestGenerateFixedWingLandingPattern(t *testing.T) {
	a := testAssembler(t, 0)
	sc := baseScenario()
	sc.Aircraft = model.AircraftFixedWing

	res, err := a.Generate(context.Background(), sc)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	last := res.Plan.Mission.Items[len(res.Plan.Mission.Items)-1]
	if last.Type != plan.ComplexItemType || last.ComplexItemType != plan.ComplexItemLandingPattern {
		t.Fatalf("terminal item = %+v, want fixed-wing landing pattern", last)
	}

	wantStandoff := LandingStandoff(sc.AltitudeAGL)
	if last.LandingDistance != wantStandoff {
		t.Fatalf("standoff = %v, want %v", last.LandingDistance, wantStandoff)
	}
	if last.LandCoordinate[0] != 40.01 || last.LandCoordinate[1] != -75.0 {
		t.Fatalf("land coordinate = %v, want (40.01,-75)", last.LandCoordinate)
	}
}

func TestLandingStandoffFormula(t *testing.T) {
	// offset = max(base + (alt-baseAlt)*15/3.048, 50)
	if got, want := LandingStandoff(50), 300.0; got != want {
		t.Fatalf("standoff(50) = %v, want %v", got, want)
	}
	if got, want := LandingStandoff(100), 300.0+50*15/3.048; math.Abs(got-want) > 1e-9 {
		t.Fatalf("standoff(100) = %v, want %v", got, want)
	}
	if got := LandingStandoff(-100); got != 50 {
		t.Fatalf("standoff floor = %v, want 50", got)
	}
}

func TestGenerateVTOLCommands(t *testing.T) {
	a := testAssembler(t, 0)
	sc := baseScenario()
	sc.Aircraft = model.AircraftVTOL

	res, err := a.Generate(context.Background(), sc)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	items := res.Plan.Mission.Items
	if *items[0].Command != plan.CmdNavVTOLTakeoff {
		t.Fatalf("takeoff command = %d, want VTOL takeoff %d", *items[0].Command, plan.CmdNavVTOLTakeoff)
	}
	if *items[len(items)-1].Command != plan.CmdNavVTOLLand {
		t.Fatalf("land command = %d, want VTOL land %d", *items[len(items)-1].Command, plan.CmdNavVTOLLand)
	}
}

func TestGenerateDeliveryPayloadActions(t *testing.T) {
	a := testAssembler(t, 0)
	sc := baseScenario()
	sc.Variant = model.VariantDelivery
	sc.End = nil
	sc.Points = []model.Coordinate{{Lat: 40.005, Lng: -75.0}}

	res, err := a.Generate(context.Background(), sc)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	servo := 0
	for _, it := range res.Plan.Mission.Items {
		if it.Command != nil && *it.Command == plan.CmdDoSetServo {
			servo++
		}
	}
	if servo != 1 {
		t.Fatalf("payload actions = %d, want 1", servo)
	}
}

func TestGenerateMultiDeliveryVisitsStopsInOrder(t *testing.T) {
	a := testAssembler(t, 0)
	sc := baseScenario()
	sc.Variant = model.VariantMultiDelivery
	sc.End = nil
	sc.Points = []model.Coordinate{
		{Lat: 40.005, Lng: -75.0},
		{Lat: 40.01, Lng: -75.0},
	}

	res, err := a.Generate(context.Background(), sc)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// One payload action per stop, released in route order.
	var drops []model.Coordinate
	for _, wp := range res.Waypoints {
		if wp.Command == model.CommandPayload {
			drops = append(drops, wp.Coordinate)
		}
	}
	if len(drops) != len(sc.Points) {
		t.Fatalf("payload actions = %d, want %d", len(drops), len(sc.Points))
	}
	for i, stop := range sc.Points {
		if drops[i] != stop {
			t.Fatalf("drop %d at %v, want stop %v", i, drops[i], stop)
		}
	}

	items := res.Plan.Mission.Items
	last := items[len(items)-1]
	if *last.Params[4] != 40.01 || *last.Params[5] != -75.0 {
		t.Fatalf("land at (%v,%v), want final stop (40.01,-75)", *last.Params[4], *last.Params[5])
	}
}

func TestGenerateLinearChainsLegs(t *testing.T) {
	a := testAssembler(t, 0)
	sc := baseScenario()
	sc.Variant = model.VariantLinear
	sc.Start, sc.End = nil, nil
	sc.Points = []model.Coordinate{
		{Lat: 40.0, Lng: -75.0},
		{Lat: 40.005, Lng: -75.0},
		{Lat: 40.005, Lng: -74.995},
	}

	res, err := a.Generate(context.Background(), sc)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	items := res.Plan.Mission.Items
	if *items[0].Params[4] != 40.0 || *items[0].Params[5] != -75.0 {
		t.Fatalf("takeoff at (%v,%v), want first polyline point", *items[0].Params[4], *items[0].Params[5])
	}
	last := items[len(items)-1]
	if *last.Params[4] != 40.005 || *last.Params[5] != -74.995 {
		t.Fatalf("land at (%v,%v), want last polyline point", *last.Params[4], *last.Params[5])
	}

	// The shared vertex between the two legs appears exactly once.
	corners := 0
	for _, wp := range res.Waypoints {
		if wp.Coordinate == sc.Points[1] {
			corners++
		}
	}
	if corners != 1 {
		t.Fatalf("corner vertex emitted %d times, want 1", corners)
	}
}

func TestGenerateReturnToStartLandsHome(t *testing.T) {
	a := testAssembler(t, 0)
	sc := baseScenario()
	sc.Terminal = model.TerminalReturnToStart

	res, err := a.Generate(context.Background(), sc)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	items := res.Plan.Mission.Items
	last := items[len(items)-1]
	if *last.Params[4] != sc.Start.Lat || *last.Params[5] != sc.Start.Lng {
		t.Fatalf("return-to-start lands at (%v,%v), want start (%v,%v)",
			*last.Params[4], *last.Params[5], sc.Start.Lat, sc.Start.Lng)
	}
}

func TestGeneratePatrolStaysInsideBoundary(t *testing.T) {
	a := testAssembler(t, 0)
	center := model.Coordinate{Lat: 40.0, Lng: -75.0}
	boundary := []model.Coordinate{
		util.Destination(util.Destination(center, 0, 400), 270, 400),
		util.Destination(util.Destination(center, 0, 400), 90, 400),
		util.Destination(util.Destination(center, 180, 400), 90, 400),
		util.Destination(util.Destination(center, 180, 400), 270, 400),
	}

	sc := baseScenario()
	sc.Variant = model.VariantPatrol
	sc.Start, sc.End = nil, nil
	sc.Polygon = boundary

	res, err := a.Generate(context.Background(), sc)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, wp := range res.Waypoints {
		if d := util.HaversineDistance(wp.Coordinate, center); d > 580 {
			t.Fatalf("patrol waypoint %.0f m from center, outside the inset boundary", d)
		}
	}
}

func TestGenerateSurveyCoversPolygon(t *testing.T) {
	a := testAssembler(t, 0)
	center := model.Coordinate{Lat: 40.0, Lng: -75.0}
	sc := baseScenario()
	sc.Variant = model.VariantSurvey
	sc.Start, sc.End = nil, nil
	sc.Polygon = []model.Coordinate{
		util.Destination(util.Destination(center, 0, 300), 270, 300),
		util.Destination(util.Destination(center, 0, 300), 90, 300),
		util.Destination(util.Destination(center, 180, 300), 90, 300),
		util.Destination(util.Destination(center, 180, 300), 270, 300),
	}
	sc.IntervalM = 100

	res, err := a.Generate(context.Background(), sc)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	// 600 m tall polygon at 100 m row spacing: several transects.
	if len(res.Waypoints) < 10 {
		t.Fatalf("survey produced %d waypoints, want a transect grid", len(res.Waypoints))
	}
}

func TestGenerateTowerOrbit(t *testing.T) {
	a := testAssembler(t, 0)
	tower := model.Coordinate{Lat: 40.0, Lng: -75.0}
	sc := baseScenario()
	sc.Variant = model.VariantTowerOrbit
	sc.Start = &model.Coordinate{Lat: 39.995, Lng: -75.0}
	sc.End = nil
	sc.Tower = &tower
	sc.OrbitRadius = 80

	res, err := a.Generate(context.Background(), sc)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// Orbit points keep the stand-off radius from the tower.
	onOrbit := 0
	for _, wp := range res.Waypoints {
		d := util.HaversineDistance(wp.Coordinate, tower)
		if math.Abs(d-80) < 5 {
			onOrbit++
		}
	}
	if onOrbit < 8 {
		t.Fatalf("orbit waypoints at stand-off radius = %d, want >= 8", onOrbit)
	}
}
