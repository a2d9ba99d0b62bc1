package terrain

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"skyplan/internal/model"
)

func newTestService(t *testing.T, handler http.Handler) (*Service, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s := New(Options{
		APIURL:       srv.URL,
		RateInterval: time.Millisecond,
		BackoffBase:  time.Millisecond,
	})
	return s, srv
}

func elevationHandler(elev float64, calls *atomic.Int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		fmt.Fprintf(w, `{"results":[{"elevation":%f}]}`, elev)
	})
}

func TestGetElevationCachesByRoundedKey(t *testing.T) {
	var calls atomic.Int64
	s, _ := newTestService(t, elevationHandler(120.5, &calls))

	ctx := context.Background()
	c := model.Coordinate{Lat: 40.00001, Lng: -75.00001}

	if got := s.GetElevation(ctx, c); got != 120.5 {
		t.Fatalf("elevation = %v, want 120.5", got)
	}
	// Same point and a point within rounding distance: no new calls.
	s.GetElevation(ctx, c)
	s.GetElevation(ctx, model.Coordinate{Lat: 40.00004, Lng: -75.00003})

	if n := calls.Load(); n != 1 {
		t.Fatalf("outbound calls = %d, want 1", n)
	}
}

func TestGetElevationDegradesOnServerError(t *testing.T) {
	s, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	c := model.Coordinate{Lat: 40, Lng: -75}
	if got := s.GetElevation(context.Background(), c); got != DefaultElevation {
		t.Fatalf("elevation = %v, want default %v", got, DefaultElevation)
	}
	if s.DegradedCount() != 1 {
		t.Fatalf("degraded count = %d, want 1", s.DegradedCount())
	}
}

func TestGetElevationDegradesOnNullElevation(t *testing.T) {
	s, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[{"elevation":null}]}`)
	}))

	if got := s.GetElevation(context.Background(), model.Coordinate{Lat: 40, Lng: -75}); got != DefaultElevation {
		t.Fatalf("elevation = %v, want default", got)
	}
}

func TestGetElevationRetriesAndExhausts429(t *testing.T) {
	var calls atomic.Int64
	s, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	if got := s.GetElevation(context.Background(), model.Coordinate{Lat: 40, Lng: -75}); got != DefaultElevation {
		t.Fatalf("elevation = %v, want default", got)
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("attempts = %d, want 3", n)
	}
}

func TestGetElevationRecoversAfter429(t *testing.T) {
	var calls atomic.Int64
	s, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"results":[{"elevation":42}]}`)
	}))

	if got := s.GetElevation(context.Background(), model.Coordinate{Lat: 40, Lng: -75}); got != 42 {
		t.Fatalf("elevation = %v, want 42", got)
	}
}

func TestGetElevationBatchPreservesOrder(t *testing.T) {
	// Elevation derived from the requested latitude so order is checkable.
	s, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var lat, lng float64
		fmt.Sscanf(r.URL.Query().Get("locations"), "%f,%f", &lat, &lng)
		fmt.Fprintf(w, `{"results":[{"elevation":%f}]}`, lat*10)
	}))

	coords := []model.Coordinate{
		{Lat: 10, Lng: 0},
		{Lat: 20, Lng: 0},
		{Lat: 30, Lng: 0},
		{Lat: 40, Lng: 0},
	}
	got := s.GetElevationBatch(context.Background(), coords)
	want := []float64{100, 200, 300, 400}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("batch[%d] = %v, want %v (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestGetElevationWithTimeout(t *testing.T) {
	block := make(chan struct{})
	s, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
		fmt.Fprint(w, `{"results":[{"elevation":99}]}`)
	}))
	defer close(block)

	c := model.Coordinate{Lat: 40, Lng: -75}
	if got := s.GetElevationWithTimeout(c, 50*time.Millisecond); got != DefaultElevation {
		t.Fatalf("timed-out elevation = %v, want default", got)
	}
}

func TestSingleFlightSharesOneRequest(t *testing.T) {
	var calls atomic.Int64
	release := make(chan struct{})
	s, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		fmt.Fprint(w, `{"results":[{"elevation":7}]}`)
	}))

	c := model.Coordinate{Lat: 40, Lng: -75}
	var wg sync.WaitGroup
	results := make([]float64, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.GetElevation(context.Background(), c)
		}(i)
	}

	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("outbound calls = %d, want 1 (single flight)", n)
	}
	for i, v := range results {
		if v != 7 {
			t.Fatalf("caller %d got %v, want 7", i, v)
		}
	}
}

func TestTileStoreServesAcrossServices(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(elevationHandler(55, &calls))
	defer srv.Close()

	store, err := NewDiskTileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskTileStore: %v", err)
	}

	opts := Options{
		APIURL:       srv.URL,
		Store:        store,
		RateInterval: time.Millisecond,
		BackoffBase:  time.Millisecond,
	}

	c := model.Coordinate{Lat: 40.05, Lng: -75.05}

	first := New(opts)
	if got := first.GetElevation(context.Background(), c); got != 55 {
		t.Fatalf("first lookup = %v, want 55", got)
	}
	if saved := first.FlushDirtySamples(); saved != 1 {
		t.Fatalf("flushed tiles = %d, want 1", saved)
	}

	// A fresh service with the same store must answer from the tile,
	// including a nearby (not identical) point.
	second := New(opts)
	if got := second.GetElevation(context.Background(), model.Coordinate{Lat: 40.0502, Lng: -75.0502}); got != 55 {
		t.Fatalf("tile-served lookup = %v, want 55", got)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("outbound calls = %d, want 1 (second service should hit the tile)", n)
	}
}

func TestTileKeyGrid(t *testing.T) {
	a := model.Coordinate{Lat: 40.01, Lng: -75.01}
	b := model.Coordinate{Lat: 40.09, Lng: -75.09}
	cc := model.Coordinate{Lat: 40.11, Lng: -75.01}

	if TileKey(a) != TileKey(b) {
		t.Fatalf("same 0.1-degree cell produced different keys: %s vs %s", TileKey(a), TileKey(b))
	}
	if TileKey(a) == TileKey(cc) {
		t.Fatalf("different cells produced the same key: %s", TileKey(a))
	}
}
