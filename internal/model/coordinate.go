package model

import (
	"fmt"
	"math"
)

// Coordinate is a WGS84 position in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate lies inside the WGS84 domain.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// RoundedKey returns the coordinate rounded to the given number of decimal
// places in "lat,lng" form. The terrain cache keys on 4 decimals to bound
// cache cardinality (~11 m grid).
func (c Coordinate) RoundedKey(decimals int) string {
	f := math.Pow10(decimals)
	lat := math.Round(c.Lat*f) / f
	lng := math.Round(c.Lng*f) / f
	return fmt.Sprintf("%.*f,%.*f", decimals, lat, decimals, lng)
}

// FlightPath is an ordered sequence of coordinates in flight order.
// Built once per generation run and read-only afterwards.
type FlightPath []Coordinate

// Geofence is a closed inclusion polygon around a planned flight path.
type Geofence []Coordinate
