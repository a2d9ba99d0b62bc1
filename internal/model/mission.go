package model

// AircraftKind selects the command set and landing behavior for a plan.
type AircraftKind string

const (
	AircraftMulticopter AircraftKind = "multicopter"
	AircraftFixedWing   AircraftKind = "fixedwing"
	AircraftVTOL        AircraftKind = "vtol"
)

// ScenarioVariant names one of the planning tools sharing the pipeline.
type ScenarioVariant string

const (
	VariantAToB          ScenarioVariant = "a_to_b"
	VariantDelivery      ScenarioVariant = "delivery"
	VariantMultiDelivery ScenarioVariant = "multi_delivery"
	VariantPatrol        ScenarioVariant = "patrol"
	VariantLinear        ScenarioVariant = "linear"
	VariantSurvey        ScenarioVariant = "survey"
	VariantTowerOrbit    ScenarioVariant = "tower_orbit"
)

// TerminalAction is what the aircraft does after the last planned point.
type TerminalAction string

const (
	TerminalLand           TerminalAction = "land"
	TerminalReturnToStart  TerminalAction = "return_to_start"
	TerminalPayloadRelease TerminalAction = "payload_release"
)

// CommandKind classifies a waypoint inside the realized mission.
type CommandKind string

const (
	CommandTakeoff  CommandKind = "takeoff"
	CommandWaypoint CommandKind = "waypoint"
	CommandLoiter   CommandKind = "loiter"
	CommandLand     CommandKind = "land"
	CommandPayload  CommandKind = "payload"
)

// Waypoint is one realized mission point. Immutable once emitted into the
// plan document.
type Waypoint struct {
	Coordinate
	Seq     int         `json:"seq"`
	AGL     float64     `json:"agl_m"`
	AMSL    float64     `json:"amsl_m"`
	Command CommandKind `json:"command"`
}

// Scenario is the full configuration for one generation run. The UI (or the
// plangen CLI) fills it in; the assembler validates and consumes it.
type Scenario struct {
	Variant      ScenarioVariant `json:"variant"`
	Aircraft     AircraftKind    `json:"aircraft"`
	Start        *Coordinate     `json:"start,omitempty"`
	End          *Coordinate     `json:"end,omitempty"`
	Points       []Coordinate    `json:"points,omitempty"`
	Polygon      []Coordinate    `json:"polygon,omitempty"`
	Tower        *Coordinate     `json:"tower,omitempty"`
	AltitudeAGL  float64         `json:"altitude_agl_m"`
	IntervalM    float64         `json:"interval_m"`
	BufferM      float64         `json:"geofence_buffer_m"`
	Terminal     TerminalAction  `json:"terminal_action"`
	LoiterRadius float64         `json:"loiter_radius_m,omitempty"`
	OrbitRadius  float64         `json:"orbit_radius_m,omitempty"`
	PatrolLaps   int             `json:"patrol_laps,omitempty"`
	CruiseSpeed  float64         `json:"cruise_speed,omitempty"`
	HoverSpeed   float64         `json:"hover_speed,omitempty"`
}

// WarningKind tags a non-fatal degradation recorded during generation.
type WarningKind string

const (
	WarnTerrainDefaulted WarningKind = "terrain_defaulted"
	WarnLowClearance     WarningKind = "low_clearance"
	WarnFenceWidened     WarningKind = "fence_widened"
	WarnFenceFallback    WarningKind = "fence_fallback"
	WarnShrinkCollapsed  WarningKind = "shrink_collapsed"
)

// Warning is surfaced to the caller alongside a successful plan; none of
// these abort generation.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
	At      *Coordinate `json:"at,omitempty"`
}
