package mission

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"skyplan/internal/config"
	"skyplan/internal/model"
	"skyplan/internal/service/geofence"
	"skyplan/internal/util"
)

// route is a realized flight path plus the metadata the assembler needs to
// decorate it: indices of payload stops and off-path points the geofence
// must protect.
type route struct {
	path      model.FlightPath
	payloadAt map[int]bool
	protected []model.Coordinate
	warnings  []model.Warning
}

// realizeRoute builds the ordered path for a validated scenario. All seven
// planning variants reduce to interpolated legs over differently sourced
// location lists.
func realizeRoute(sc *model.Scenario) (*route, error) {
	r := &route{payloadAt: make(map[int]bool)}

	var err error
	switch sc.Variant {
	case model.VariantAToB:
		err = r.legs(sc.IntervalM, *sc.Start, *sc.End)
	case model.VariantDelivery, model.VariantMultiDelivery:
		err = r.delivery(sc)
	case model.VariantLinear:
		err = r.legs(sc.IntervalM, sc.Points...)
	case model.VariantPatrol:
		err = r.patrol(sc)
	case model.VariantSurvey:
		err = r.survey(sc)
	case model.VariantTowerOrbit:
		err = r.towerOrbit(sc)
	default:
		err = fmt.Errorf("%w: unknown variant %q", model.ErrInvalidParameter, sc.Variant)
	}
	if err != nil {
		return nil, err
	}

	if sc.Terminal == model.TerminalReturnToStart && len(r.path) > 1 {
		if err := r.appendLeg(sc.IntervalM, r.path[len(r.path)-1], r.path[0]); err != nil {
			return nil, err
		}
	}

	// Takeoff and landing pads are protected even when off the main path.
	if len(r.path) > 0 {
		r.protected = append(r.protected, r.path[0], r.path[len(r.path)-1])
	}

	return r, nil
}

// legs interpolates between successive locations.
func (r *route) legs(intervalM float64, points ...model.Coordinate) error {
	for i := 1; i < len(points); i++ {
		if err := r.appendLeg(intervalM, points[i-1], points[i]); err != nil {
			return err
		}
	}
	return nil
}

// appendLeg extends the path with the interpolated a->b leg, deduplicating
// the shared endpoint.
func (r *route) appendLeg(intervalM float64, a, b model.Coordinate) error {
	leg, err := util.Interpolate(a, b, intervalM)
	if err != nil {
		return err
	}
	if len(r.path) > 0 && len(leg) > 0 && r.path[len(r.path)-1] == leg[0] {
		leg = leg[1:]
	}
	r.path = append(r.path, leg...)
	return nil
}

// delivery chains start -> stop1 -> ... -> stopN with a payload action at
// every stop.
func (r *route) delivery(sc *model.Scenario) error {
	prev := *sc.Start
	r.path = append(r.path, prev)
	for _, stop := range sc.Points {
		if err := r.appendLeg(sc.IntervalM, prev, stop); err != nil {
			return err
		}
		r.payloadAt[len(r.path)-1] = true
		r.protected = append(r.protected, stop)
		prev = stop
	}
	return nil
}

// patrol flies the perimeter of a drawn boundary, inset by a safety margin
// so waypoints stay strictly inside it, for the configured number of laps.
func (r *route) patrol(sc *model.Scenario) error {
	inner, warnings := geofence.ShrinkPolygon(sc.Polygon, config.PatrolInsetM)
	r.warnings = append(r.warnings, warnings...)

	laps := sc.PatrolLaps
	if laps < 1 {
		laps = 1
	}

	if sc.Start != nil {
		if err := r.appendLeg(sc.IntervalM, *sc.Start, inner[0]); err != nil {
			return err
		}
	}
	for lap := 0; lap < laps; lap++ {
		for i := 0; i < len(inner); i++ {
			next := inner[(i+1)%len(inner)]
			if err := r.appendLeg(sc.IntervalM, inner[i], next); err != nil {
				return err
			}
		}
	}
	return nil
}

// survey generates east-west lawnmower transects across the polygon,
// spaced at the waypoint interval, keeping rows whose midpoint falls
// inside the drawn area.
func (r *route) survey(sc *model.Scenario) error {
	ring := make(orb.Ring, 0, len(sc.Polygon)+1)
	for _, c := range sc.Polygon {
		ring = append(ring, orb.Point{c.Lng, c.Lat})
	}
	ring = append(ring, ring[0])
	poly := orb.Polygon{ring}
	bound := poly.Bound()

	rowStep := sc.IntervalM / util.MetersPerDegree
	westLng, eastLng := bound.Min[0], bound.Max[0]

	eastward := true
	for lat := bound.Min[1]; lat <= bound.Max[1]+1e-12; lat += rowStep {
		mid := orb.Point{(westLng + eastLng) / 2, lat}
		if !planar.PolygonContains(poly, mid) {
			continue
		}

		from := model.Coordinate{Lat: lat, Lng: westLng}
		to := model.Coordinate{Lat: lat, Lng: eastLng}
		if !eastward {
			from, to = to, from
		}

		if len(r.path) > 0 {
			// Connector from the previous transect end.
			if err := r.appendLeg(sc.IntervalM, r.path[len(r.path)-1], from); err != nil {
				return err
			}
		}
		if err := r.appendLeg(sc.IntervalM, from, to); err != nil {
			return err
		}
		eastward = !eastward
	}

	if len(r.path) == 0 {
		return fmt.Errorf("%w: survey polygon contains no flyable rows at %.0f m spacing",
			model.ErrInvalidParameter, sc.IntervalM)
	}

	if sc.Start != nil {
		entry, err := util.Interpolate(*sc.Start, r.path[0], sc.IntervalM)
		if err != nil {
			return err
		}
		r.path = append(model.FlightPath(entry[:len(entry)-1]), r.path...)
	}
	return nil
}

// towerOrbit rings the tower at the stand-off radius with waypoints spaced
// at most intervalM apart.
func (r *route) towerOrbit(sc *model.Scenario) error {
	radius := sc.OrbitRadius
	if radius <= 0 {
		radius = 100
	}

	circumference := 2 * math.Pi * radius
	n := int(math.Ceil(circumference / sc.IntervalM))
	if n < 8 {
		n = 8
	}

	orbit := make([]model.Coordinate, 0, n+1)
	for i := 0; i <= n; i++ {
		bearing := float64(i) * 360.0 / float64(n)
		orbit = append(orbit, util.Destination(*sc.Tower, bearing, radius))
	}

	if sc.Start != nil {
		if err := r.appendLeg(sc.IntervalM, *sc.Start, orbit[0]); err != nil {
			return err
		}
	} else {
		r.path = append(r.path, orbit[0])
	}
	for i := 1; i < len(orbit); i++ {
		if len(r.path) > 0 && r.path[len(r.path)-1] == orbit[i] {
			continue
		}
		r.path = append(r.path, orbit[i])
	}

	r.protected = append(r.protected, *sc.Tower)
	return nil
}
