package geofence

import (
	"fmt"
	"log"
	"math"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"skyplan/internal/config"
	"skyplan/internal/model"
	"skyplan/internal/util"
)

// circleSegments is the number of buffer points generated around each
// buffered center. 16 keeps fences small while staying within a meter or
// two of the true circle at typical buffer sizes.
const circleSegments = 16

// widenedFactor: a protected point farther than this many buffers from the
// path forces the hull to stretch out to reach it, which is worth telling
// the operator about instead of silently guessing.
const widenedFactor = 4.0

// Build produces the inclusion polygon for a realized flight path: every
// path vertex buffered by bufferM, protected points (takeoff/landing pads)
// buffered by the fixed pad margin, and an optional loiter circle around
// the terminal point, all unioned via their convex hull. The returned ring
// is closed (first vertex repeated last).
//
// Degenerate geometry never aborts generation; the fallback is a minimal
// fence plus a warning.
func Build(path model.FlightPath, bufferM float64, extraPoints []model.Coordinate, loiterRadiusM float64) (model.Geofence, []model.Warning) {
	var warnings []model.Warning

	if bufferM <= 0 {
		warnings = append(warnings, model.Warning{
			Kind:    model.WarnFenceFallback,
			Message: fmt.Sprintf("non-positive buffer %.1f m, using minimal 10 m fence", bufferM),
		})
		bufferM = 10
	}

	if len(path) == 0 && len(extraPoints) == 0 {
		log.Printf("geofence: nothing to fence, returning empty polygon")
		warnings = append(warnings, model.Warning{
			Kind:    model.WarnFenceFallback,
			Message: "no path or protected points, geofence omitted",
		})
		return nil, warnings
	}

	query := s2.NewConvexHullQuery()
	addCircle := func(center model.Coordinate, radiusM float64) {
		for i := 0; i < circleSegments; i++ {
			bearing := float64(i) * 360.0 / circleSegments
			p := util.Destination(center, bearing, radiusM)
			query.AddPoint(s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lng)))
		}
	}

	for _, c := range path {
		addCircle(c, bufferM)
	}
	for _, c := range extraPoints {
		addCircle(c, config.ProtectedPointBufferM)
		if d := minDistanceToPath(c, path); d > widenedFactor*bufferM {
			warnings = append(warnings, model.Warning{
				Kind:    model.WarnFenceWidened,
				Message: fmt.Sprintf("protected point %.0f m from path, fence widened to include it", d),
				At:      &c,
			})
		}
	}
	if loiterRadiusM > 0 && len(path) > 0 {
		addCircle(path[len(path)-1], loiterRadiusM)
	}

	hull := query.ConvexHull()
	if hull == nil || hull.NumVertices() < 3 {
		warnings = append(warnings, model.Warning{
			Kind:    model.WarnFenceFallback,
			Message: "degenerate hull, falling back to unbuffered outline",
		})
		return closeRing(append(model.Geofence{}, path...)), warnings
	}

	fence := make(model.Geofence, 0, hull.NumVertices()+1)
	for _, v := range hull.Vertices() {
		ll := s2.LatLngFromPoint(v)
		fence = append(fence, model.Coordinate{Lat: ll.Lat.Degrees(), Lng: ll.Lng.Degrees()})
	}
	return closeRing(fence), warnings
}

// ShrinkPolygon buffers a user-drawn boundary inward by marginM so that
// generated waypoints stay strictly inside a no-fly perimeter. If the
// shrink collapses the polygon the margin is halved once; if that also
// collapses, the original boundary is returned with a warning.
func ShrinkPolygon(poly []model.Coordinate, marginM float64) ([]model.Coordinate, []model.Warning) {
	if len(poly) < 3 || marginM <= 0 {
		return poly, nil
	}

	original := toRing(poly)
	origArea := math.Abs(planar.Area(original))

	for _, margin := range []float64{marginM, marginM / 2} {
		shrunk := shrinkOnce(poly, margin)
		if shrunk == nil {
			continue
		}
		// Collapse check: an inward buffer that eats most of the area
		// means the boundary was too small for this margin.
		if area := math.Abs(planar.Area(toRing(shrunk))); area > 0.25*origArea {
			return shrunk, nil
		}
	}

	w := model.Warning{
		Kind:    model.WarnShrinkCollapsed,
		Message: fmt.Sprintf("boundary too small for %.0f m inset, using original outline", marginM),
	}
	log.Printf("geofence: %s", w.Message)
	return poly, []model.Warning{w}
}

// shrinkOnce pulls every vertex toward the centroid by marginM. Returns
// nil when any vertex is closer to the centroid than the margin.
func shrinkOnce(poly []model.Coordinate, marginM float64) []model.Coordinate {
	centroid, _ := planar.CentroidArea(toRing(poly))
	center := model.Coordinate{Lat: centroid[1], Lng: centroid[0]}

	out := make([]model.Coordinate, len(poly))
	for i, v := range poly {
		d := util.HaversineDistance(v, center)
		if d <= marginM {
			return nil
		}
		f := marginM / d
		out[i] = model.Coordinate{
			Lat: v.Lat + (center.Lat-v.Lat)*f,
			Lng: v.Lng + (center.Lng-v.Lng)*f,
		}
	}
	return out
}

func minDistanceToPath(c model.Coordinate, path model.FlightPath) float64 {
	if len(path) == 0 {
		return 0
	}
	min := util.HaversineDistance(c, path[0])
	for _, p := range path[1:] {
		if d := util.HaversineDistance(c, p); d < min {
			min = d
		}
	}
	return min
}

func toRing(coords []model.Coordinate) orb.Ring {
	ring := make(orb.Ring, 0, len(coords)+1)
	for _, c := range coords {
		ring = append(ring, orb.Point{c.Lng, c.Lat})
	}
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring
}

func closeRing(fence model.Geofence) model.Geofence {
	if len(fence) > 0 && fence[0] != fence[len(fence)-1] {
		fence = append(fence, fence[0])
	}
	return fence
}
