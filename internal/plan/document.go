// Package plan defines the ground-control-station mission file ("Plan"
// JSON document) the assembler emits and a GCS application opens.
package plan

import (
	"encoding/json"
	"fmt"
)

const (
	FileType        = "Plan"
	FileVersion     = 1
	MissionVersion  = 2
	FenceVersion    = 2
	PolygonVersion  = 1
	RallyVersion    = 2
	SimpleItemType  = "SimpleItem"
	ComplexItemType = "ComplexItem"

	// ComplexItemLandingPattern is the fixed-wing landing pattern
	// complex-item discriminator.
	ComplexItemLandingPattern = "fwLandingPattern"
)

// Frames and altitude modes used by emitted items.
const (
	FrameGlobalRelativeAlt = 3
	AltitudeModeRelative   = 1
)

// MAV_CMD command codes the planner emits.
const (
	CmdNavWaypoint    = 16
	CmdNavLoiterTime  = 19
	CmdNavLand        = 21
	CmdNavTakeoff     = 22
	CmdNavVTOLTakeoff = 84
	CmdNavVTOLLand    = 85
	CmdDoSetServo     = 183
)

// Document is the root of the emitted mission file.
type Document struct {
	FileType      string      `json:"fileType"`
	GroundStation string      `json:"groundStation"`
	GeoFence      GeoFence    `json:"geoFence"`
	Mission       Mission     `json:"mission"`
	RallyPoints   RallyPoints `json:"rallyPoints"`
	Version       int         `json:"version"`
}

type GeoFence struct {
	Polygons []FencePolygon `json:"polygons"`
	Circles  []FenceCircle  `json:"circles"`
	Version  int            `json:"version"`
}

type FencePolygon struct {
	Polygon   [][2]float64 `json:"polygon"` // [lat, lon] pairs
	Inclusion bool         `json:"inclusion"`
	Version   int          `json:"version"`
}

type FenceCircle struct {
	Circle struct {
		Center [2]float64 `json:"center"`
		Radius float64    `json:"radius"`
	} `json:"circle"`
	Inclusion bool `json:"inclusion"`
	Version   int  `json:"version"`
}

type Mission struct {
	CruiseSpeed            float64    `json:"cruiseSpeed"`
	FirmwareType           int        `json:"firmwareType"`
	GlobalPlanAltitudeMode int        `json:"globalPlanAltitudeMode"`
	HoverSpeed             float64    `json:"hoverSpeed"`
	Items                  []Item     `json:"items"`
	PlannedHomePosition    [3]float64 `json:"plannedHomePosition"` // [lat, lon, elevation]
	VehicleType            int        `json:"vehicleType"`
	Version                int        `json:"version"`
}

type RallyPoints struct {
	Points  [][3]float64 `json:"points"`
	Version int          `json:"version"`
}

// Item is either a SimpleItem or a ComplexItem; exactly one field set
// beyond Type distinguishes them in the emitted JSON, so both live in one
// struct with omitted zero values kept explicit where QGC requires them.
type Item struct {
	Type string `json:"type"`

	// SimpleItem fields
	AMSLAltAboveTerrain *float64   `json:"AMSLAltAboveTerrain,omitempty"`
	Altitude            *float64   `json:"Altitude,omitempty"`
	AltitudeMode        *int       `json:"AltitudeMode,omitempty"`
	AutoContinue        *bool      `json:"autoContinue,omitempty"`
	Command             *int       `json:"command,omitempty"`
	DoJumpID            *int       `json:"doJumpId,omitempty"`
	Frame               *int       `json:"frame,omitempty"`
	Params              []*float64 `json:"params,omitempty"`

	// ComplexItem fields (fixed-wing landing pattern)
	ComplexItemType  string     `json:"complexItemType,omitempty"`
	LandCoordinate   [3]float64 `json:"landCoordinate,omitempty"`
	LoiterCoordinate [3]float64 `json:"loiterToAltCoordinate,omitempty"`
	LandingDistance  float64    `json:"landingDistance,omitempty"`
	LoiterRadius     float64    `json:"loiterRadius,omitempty"`
	LoiterClockwise  bool       `json:"loiterClockwise,omitempty"`
	Version          int        `json:"version,omitempty"`
}

// NewSimpleItem builds a 7-param simple item. The first four params are
// mode specific; the last three are lat, lon, alt.
func NewSimpleItem(command, seq int, lat, lng, alt float64, p1, p2, p3, p4 float64) Item {
	frame := FrameGlobalRelativeAlt
	mode := AltitudeModeRelative
	auto := true
	a := alt
	params := []*float64{f(p1), f(p2), f(p3), f(p4), f(lat), f(lng), f(alt)}
	return Item{
		Type:         SimpleItemType,
		Altitude:     &a,
		AltitudeMode: &mode,
		AutoContinue: &auto,
		Command:      &command,
		DoJumpID:     &seq,
		Frame:        &frame,
		Params:       params,
	}
}

// NewLandingPattern builds the fixed-wing landing pattern complex item.
func NewLandingPattern(loiter, land [3]float64, standoffM, loiterRadiusM float64) Item {
	return Item{
		Type:             ComplexItemType,
		ComplexItemType:  ComplexItemLandingPattern,
		LoiterCoordinate: loiter,
		LandCoordinate:   land,
		LandingDistance:  standoffM,
		LoiterRadius:     loiterRadiusM,
		LoiterClockwise:  true,
		Version:          1,
	}
}

func f(v float64) *float64 { return &v }

// Marshal serializes the document for the file-writer collaborator.
func Marshal(d *Document) ([]byte, error) {
	return json.MarshalIndent(d, "", "    ")
}

// Parse reads a document back, verifying the envelope.
func Parse(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	if d.FileType != FileType {
		return nil, fmt.Errorf("parse plan: fileType %q, want %q", d.FileType, FileType)
	}
	return &d, nil
}
