package mission

import (
	"skyplan/internal/model"
	"skyplan/internal/plan"
	"skyplan/internal/util"
)

// Firmware/vehicle metadata written into the plan envelope.
const (
	firmwarePX4 = 12

	vehicleFixedWing   = 1
	vehicleMulticopter = 2
	vehicleVTOL        = 20
)

// Fixed-wing landing pattern stand-off. The approach point sits
// landingBaseOffsetM out at landingBaseAltM cruise altitude and grows with
// altitude on a 15 ft per meter-over-base slope, never under 50 m.
const (
	landingBaseOffsetM = 300.0
	landingBaseAltM    = 50.0
	landingMinOffsetM  = 50.0
)

// Profile captures the per-aircraft command differences the seven planning
// tools used to duplicate inline.
type Profile interface {
	Kind() model.AircraftKind
	FirmwareType() int
	VehicleType() int
	TakeoffCommand() int

	// TerminalItems emits the landing sequence at the end of the path.
	// prev is the point flown before the terminal point, used to derive
	// the approach direction.
	TerminalItems(seq *int, prev, end model.Coordinate, aglM float64) []plan.Item
}

// ProfileFor returns the profile for kind, or nil for an unknown kind.
func ProfileFor(kind model.AircraftKind) Profile {
	switch kind {
	case model.AircraftMulticopter:
		return multicopterProfile{}
	case model.AircraftFixedWing:
		return fixedWingProfile{}
	case model.AircraftVTOL:
		return vtolProfile{}
	}
	return nil
}

type multicopterProfile struct{}

func (multicopterProfile) Kind() model.AircraftKind { return model.AircraftMulticopter }
func (multicopterProfile) FirmwareType() int        { return firmwarePX4 }
func (multicopterProfile) VehicleType() int         { return vehicleMulticopter }
func (multicopterProfile) TakeoffCommand() int      { return plan.CmdNavTakeoff }

func (multicopterProfile) TerminalItems(seq *int, prev, end model.Coordinate, aglM float64) []plan.Item {
	item := plan.NewSimpleItem(plan.CmdNavLand, *seq, end.Lat, end.Lng, 0, 0, 0, 0, 0)
	*seq++
	return []plan.Item{item}
}

type vtolProfile struct{}

func (vtolProfile) Kind() model.AircraftKind { return model.AircraftVTOL }
func (vtolProfile) FirmwareType() int        { return firmwarePX4 }
func (vtolProfile) VehicleType() int         { return vehicleVTOL }
func (vtolProfile) TakeoffCommand() int      { return plan.CmdNavVTOLTakeoff }

func (vtolProfile) TerminalItems(seq *int, prev, end model.Coordinate, aglM float64) []plan.Item {
	item := plan.NewSimpleItem(plan.CmdNavVTOLLand, *seq, end.Lat, end.Lng, 0, 0, 0, 0, 0)
	*seq++
	return []plan.Item{item}
}

type fixedWingProfile struct{}

func (fixedWingProfile) Kind() model.AircraftKind { return model.AircraftFixedWing }
func (fixedWingProfile) FirmwareType() int        { return firmwarePX4 }
func (fixedWingProfile) VehicleType() int         { return vehicleFixedWing }
func (fixedWingProfile) TakeoffCommand() int      { return plan.CmdNavTakeoff }

// LandingStandoff computes the landing-pattern approach distance for a
// cruise altitude.
func LandingStandoff(aglM float64) float64 {
	offset := landingBaseOffsetM + (aglM-landingBaseAltM)*15/3.048
	if offset < landingMinOffsetM {
		offset = landingMinOffsetM
	}
	return offset
}

func (fixedWingProfile) TerminalItems(seq *int, prev, end model.Coordinate, aglM float64) []plan.Item {
	standoff := LandingStandoff(aglM)

	// Loiter-to-altitude point sits on the extended approach line, so the
	// aircraft overflies the last waypoint and descends toward the pad.
	approach := util.InitialBearing(prev, end)
	loiterAt := util.Destination(end, approach+180, standoff)

	item := plan.NewLandingPattern(
		[3]float64{loiterAt.Lat, loiterAt.Lng, aglM},
		[3]float64{end.Lat, end.Lng, 0},
		standoff,
		75,
	)
	*seq += 2 // landing pattern consumes loiter + land sequence slots
	return []plan.Item{item}
}
