package altitude

import (
	"context"
	"fmt"

	"skyplan/internal/config"
	"skyplan/internal/model"
	"skyplan/internal/service/terrain"
)

// Altitude pairs the user-specified above-ground altitude with the
// composed absolute altitude for one coordinate.
type Altitude struct {
	AGL     float64 `json:"agl_m"`
	AMSL    float64 `json:"amsl_m"`
	Terrain float64 `json:"terrain_m"`
}

// Composer turns AGL altitudes into AMSL altitudes using a terrain service
// and checks terrain clearance along realized paths.
type Composer struct {
	terrain *terrain.Service
}

func NewComposer(t *terrain.Service) *Composer {
	return &Composer{terrain: t}
}

// Compose resolves terrain under c and adds the AGL altitude. Negative AGL
// is accepted here; scenario validation rejects it before generation.
func (cp *Composer) Compose(ctx context.Context, c model.Coordinate, aglM float64) Altitude {
	elev := cp.terrain.GetElevation(ctx, c)
	return Altitude{AGL: aglM, AMSL: elev + aglM, Terrain: elev}
}

// ComposePath composes every coordinate of a realized path with one batch
// terrain query.
func (cp *Composer) ComposePath(ctx context.Context, path model.FlightPath, aglM float64) []Altitude {
	elevations := cp.terrain.GetElevationBatch(ctx, path)
	out := make([]Altitude, len(path))
	for i, elev := range elevations {
		out[i] = Altitude{AGL: aglM, AMSL: elev + aglM, Terrain: elev}
	}
	return out
}

// CheckProximity flags every sample whose clearance above terrain falls
// below thresholdM (pass 0 for the 15.24 m / 50 ft default). It returns
// warnings only, never an error.
func CheckProximity(path model.FlightPath, samples []Altitude, thresholdM float64) []model.Warning {
	if thresholdM <= 0 {
		thresholdM = config.ProximityThresholdM
	}

	var warnings []model.Warning
	for i, a := range samples {
		clearance := a.AMSL - a.Terrain
		if clearance < thresholdM {
			at := path[i]
			warnings = append(warnings, model.Warning{
				Kind: model.WarnLowClearance,
				Message: fmt.Sprintf("waypoint %d clearance %.1f m below threshold %.2f m",
					i, clearance, thresholdM),
				At: &at,
			})
		}
	}
	return warnings
}
