package util

import (
	"fmt"
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"skyplan/internal/model"
)

const earthRadiusMeters = 6371000.0

// MetersPerDegree is the flat-earth conversion used when buffering in
// degree space. Good enough for localized missions, degrades at high
// latitude or extent.
const MetersPerDegree = 111320.0

// HaversineDistance returns the great-circle distance in meters between two
// coordinates.
func HaversineDistance(a, b model.Coordinate) float64 {
	p1 := s2.PointFromLatLng(s2.LatLngFromDegrees(a.Lat, a.Lng))
	p2 := s2.PointFromLatLng(s2.LatLngFromDegrees(b.Lat, b.Lng))

	angle := s1.Angle(s2.ChordAngleBetweenPoints(p1, p2).Angle())
	return angle.Radians() * earthRadiusMeters
}

// Interpolate returns a, then intermediate points spaced approximately
// intervalM apart, then b. Interpolation is linear in latitude/longitude
// space rather than geodesic; the error is negligible at mission scales
// (<50 km) and keeping it linear keeps generated waypoints numerically
// stable across tools.
func Interpolate(a, b model.Coordinate, intervalM float64) ([]model.Coordinate, error) {
	if intervalM <= 0 || math.IsNaN(intervalM) {
		return nil, fmt.Errorf("%w: interval must be positive, got %v", model.ErrInvalidParameter, intervalM)
	}

	dist := HaversineDistance(a, b)
	if dist == 0 {
		return []model.Coordinate{a, b}, nil
	}

	n := int(math.Floor(dist / intervalM))
	if n < 1 {
		n = 1
	}

	points := make([]model.Coordinate, 0, n+2)
	points = append(points, a)
	for i := 1; i <= n; i++ {
		f := float64(i) / float64(n+1)
		points = append(points, model.Coordinate{
			Lat: a.Lat + (b.Lat-a.Lat)*f,
			Lng: a.Lng + (b.Lng-a.Lng)*f,
		})
	}
	points = append(points, b)

	return points, nil
}

// InitialBearing returns the bearing in degrees [0, 360) from a toward b.
func InitialBearing(a, b model.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)
	deg := math.Atan2(y, x) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Destination offsets c by distM meters along bearingDeg (0 = north,
// 90 = east) using the flat approximation. Used for geofence circle points.
func Destination(c model.Coordinate, bearingDeg, distM float64) model.Coordinate {
	rad := bearingDeg * math.Pi / 180.0
	dNorth := math.Cos(rad) * distM
	dEast := math.Sin(rad) * distM

	lat := c.Lat + dNorth/MetersPerDegree
	lngScale := MetersPerDegree * math.Cos(c.Lat*math.Pi/180.0)
	if lngScale < 1 {
		lngScale = 1
	}
	return model.Coordinate{Lat: lat, Lng: c.Lng + dEast/lngScale}
}
