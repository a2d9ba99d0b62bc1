package util

import (
	"errors"
	"math"
	"testing"

	"skyplan/internal/model"
)

func TestHaversineZeroAndSymmetry(t *testing.T) {
	a := model.Coordinate{Lat: 40.0, Lng: -75.0}
	b := model.Coordinate{Lat: 40.01, Lng: -75.02}

	if d := HaversineDistance(a, a); d != 0 {
		t.Fatalf("distance to self = %v, want 0", d)
	}
	ab := HaversineDistance(a, b)
	ba := HaversineDistance(b, a)
	if math.Abs(ab-ba) > 1e-9 {
		t.Fatalf("asymmetric distance: %v vs %v", ab, ba)
	}
	if ab <= 0 {
		t.Fatalf("distance = %v, want > 0", ab)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// One degree of latitude is close to 111.2 km.
	a := model.Coordinate{Lat: 40.0, Lng: -75.0}
	b := model.Coordinate{Lat: 41.0, Lng: -75.0}
	d := HaversineDistance(a, b)
	if d < 110000 || d > 112500 {
		t.Fatalf("1 degree latitude = %v m, want ~111200", d)
	}
}

func TestInterpolateEndpointsAndSpacing(t *testing.T) {
	a := model.Coordinate{Lat: 40.0, Lng: -75.0}
	b := model.Coordinate{Lat: 40.01, Lng: -75.0}
	const interval = 50.0

	pts, err := Interpolate(a, b, interval)
	if err != nil {
		t.Fatalf("Interpolate error: %v", err)
	}
	if pts[0] != a {
		t.Fatalf("first point = %v, want %v", pts[0], a)
	}
	if pts[len(pts)-1] != b {
		t.Fatalf("last point = %v, want %v", pts[len(pts)-1], b)
	}

	dist := HaversineDistance(a, b)
	wantIntermediate := int(math.Floor(dist / interval))
	if got := len(pts) - 2; got != wantIntermediate {
		t.Fatalf("intermediate count = %d, want %d", got, wantIntermediate)
	}

	for i := 1; i < len(pts); i++ {
		step := HaversineDistance(pts[i-1], pts[i])
		if step > interval+1e-6 {
			t.Fatalf("segment %d spacing %v exceeds interval %v", i, step, interval)
		}
	}
}

func TestInterpolateShortLeg(t *testing.T) {
	// Distance below the interval still yields one intermediate point.
	a := model.Coordinate{Lat: 40.0, Lng: -75.0}
	b := model.Coordinate{Lat: 40.0001, Lng: -75.0}

	pts, err := Interpolate(a, b, 500)
	if err != nil {
		t.Fatalf("Interpolate error: %v", err)
	}
	if len(pts) != 3 {
		t.Fatalf("point count = %d, want 3", len(pts))
	}
}

func TestInterpolateSamePoint(t *testing.T) {
	a := model.Coordinate{Lat: 40.0, Lng: -75.0}
	pts, err := Interpolate(a, a, 50)
	if err != nil {
		t.Fatalf("Interpolate error: %v", err)
	}
	if len(pts) != 2 || pts[0] != a || pts[1] != a {
		t.Fatalf("same-point interpolation = %v, want [a a]", pts)
	}
}

func TestInterpolateInvalidInterval(t *testing.T) {
	a := model.Coordinate{Lat: 40.0, Lng: -75.0}
	b := model.Coordinate{Lat: 41.0, Lng: -75.0}

	for _, interval := range []float64{0, -10} {
		if _, err := Interpolate(a, b, interval); !errors.Is(err, model.ErrInvalidParameter) {
			t.Fatalf("interval %v: err = %v, want ErrInvalidParameter", interval, err)
		}
	}
}

func TestDestinationRoundTripDistance(t *testing.T) {
	c := model.Coordinate{Lat: 40.0, Lng: -75.0}
	for _, bearing := range []float64{0, 90, 180, 270, 45} {
		p := Destination(c, bearing, 100)
		d := HaversineDistance(c, p)
		if math.Abs(d-100) > 2 {
			t.Fatalf("bearing %v: offset distance %v, want ~100", bearing, d)
		}
	}
}
