package terrain

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"skyplan/internal/config"
	"skyplan/internal/model"
	"skyplan/internal/service/storage"
)

// DefaultElevation is returned whenever a lookup cannot be completed. The
// planner must stay usable offline, so terrain unavailability degrades to
// sea level instead of aborting generation.
const DefaultElevation = 0.0

// Options configures a Service. Zero values fall back to the tuning
// constants in internal/config.
type Options struct {
	APIURL       string
	Client       *http.Client
	Store        TileStore
	RateInterval time.Duration
	BackoffBase  time.Duration
	MaxAttempts  int
}

// Service resolves ground elevation for coordinates, shielding callers from
// remote-API flakiness. It owns its cache; construct one per planning
// context and inject it where needed.
type Service struct {
	apiURL string
	client *http.Client
	cache  storage.Storage[string, float64]
	tiles  *tileIndex

	flightMu sync.Mutex
	inflight map[string]chan struct{}

	rateMu       sync.Mutex
	lastCall     time.Time
	rateInterval time.Duration

	backoffBase time.Duration
	maxAttempts int

	degraded atomic.Int64
}

// New constructs a Service. A nil Options.Store disables the tile cache
// (network-only mode).
func New(opts Options) *Service {
	s := &Service{
		apiURL:       opts.APIURL,
		client:       opts.Client,
		cache:        storage.NewMemoryStorage[string, float64](),
		inflight:     make(map[string]chan struct{}),
		rateInterval: opts.RateInterval,
		backoffBase:  opts.BackoffBase,
		maxAttempts:  opts.MaxAttempts,
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: 15 * time.Second}
	}
	if s.rateInterval == 0 {
		s.rateInterval = config.ElevationRateInterval
	}
	if s.backoffBase == 0 {
		s.backoffBase = config.ElevationBackoffBase
	}
	if s.maxAttempts == 0 {
		s.maxAttempts = config.ElevationMaxAttempts
	}
	if opts.Store != nil {
		s.tiles = newTileIndex(opts.Store)
	}
	return s
}

// GetElevation returns the ground elevation for c in meters. It never
// fails: cache hit, tile-store hit, remote query with retry, then the
// default of 0 m, in that order. Concurrent callers for the same rounded
// coordinate share one outbound request.
func (s *Service) GetElevation(ctx context.Context, c model.Coordinate) float64 {
	key := c.RoundedKey(config.CacheKeyDecimals)

	if v, ok := s.cache.Get(key); ok {
		return v
	}

	s.flightMu.Lock()
	if ch, ok := s.inflight[key]; ok {
		s.flightMu.Unlock()
		<-ch
		if v, ok := s.cache.Get(key); ok {
			return v
		}
		return DefaultElevation
	}
	ch := make(chan struct{})
	s.inflight[key] = ch
	s.flightMu.Unlock()

	defer func() {
		s.flightMu.Lock()
		delete(s.inflight, key)
		s.flightMu.Unlock()
		close(ch)
	}()

	// A racing caller may have populated the cache before we registered.
	if v, ok := s.cache.Get(key); ok {
		return v
	}

	elev, err := s.lookupElevation(ctx, c)
	if err != nil {
		s.degraded.Add(1)
		log.Printf("terrain: lookup %s failed, using default elevation: %v", key, err)
		elev = DefaultElevation
	}
	s.cache.Set(key, elev)
	return elev
}

// GetElevationBatch resolves elevations for coords in order. Lookups run on
// a bounded worker pool; the shared rate limiter keeps aggregate outbound
// traffic within limits.
func (s *Service) GetElevationBatch(ctx context.Context, coords []model.Coordinate) []float64 {
	results := make([]float64, len(coords))
	sem := make(chan struct{}, config.ElevationBatchWorkers)
	var wg sync.WaitGroup

	for i, c := range coords {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, c model.Coordinate) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = s.GetElevation(ctx, c)
		}(i, c)
	}
	wg.Wait()
	return results
}

// GetElevationWithTimeout bounds a lookup for interactive callers. On
// timeout it returns the default; the abandoned lookup keeps running and
// may populate the cache for the next query.
func (s *Service) GetElevationWithTimeout(c model.Coordinate, timeout time.Duration) float64 {
	done := make(chan float64, 1)
	go func() {
		done <- s.GetElevation(context.Background(), c)
	}()

	select {
	case v := <-done:
		return v
	case <-time.After(timeout):
		s.degraded.Add(1)
		log.Printf("terrain: lookup %s timed out after %v, using default elevation", c, timeout)
		return DefaultElevation
	}
}

// DegradedCount reports how many lookups fell back to the default
// elevation since construction. Callers snapshot it around a generation
// run to surface a "terrain data incomplete" indicator.
func (s *Service) DegradedCount() int64 {
	return s.degraded.Load()
}

// CacheSize reports resident cache entries.
func (s *Service) CacheSize() int {
	return s.cache.Count()
}

// lookupElevation is the error-returning core: tile store first, then the
// remote API. The public surface maps any error to the default.
func (s *Service) lookupElevation(ctx context.Context, c model.Coordinate) (float64, error) {
	if s.tiles != nil {
		if v, ok := s.tiles.Lookup(c); ok {
			return v, nil
		}
	}
	return s.fetchRemote(ctx, c)
}

type elevationResponse struct {
	Results []struct {
		Elevation *float64 `json:"elevation"`
	} `json:"results"`
}

// fetchRemote queries the elevation API. HTTP 429 retries with exponential
// backoff up to maxAttempts; other failures are returned immediately.
func (s *Service) fetchRemote(ctx context.Context, c model.Coordinate) (float64, error) {
	u := fmt.Sprintf("%s?locations=%s", s.apiURL, url.QueryEscape(fmt.Sprintf("%f,%f", c.Lat, c.Lng)))

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		s.awaitRateSlot()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return 0, err
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return 0, err
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			delay := s.backoffBase * (1 << attempt)
			log.Printf("terrain: rate limited by elevation API, retrying in %v (attempt %d/%d)", delay, attempt+1, s.maxAttempts)
			time.Sleep(delay)
			continue
		}

		var parsed elevationResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&parsed)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return 0, fmt.Errorf("elevation API status %d", resp.StatusCode)
		}
		if decodeErr != nil {
			return 0, fmt.Errorf("decode elevation response: %w", decodeErr)
		}
		if len(parsed.Results) == 0 || parsed.Results[0].Elevation == nil {
			return 0, fmt.Errorf("elevation missing from response")
		}
		return *parsed.Results[0].Elevation, nil
	}

	return 0, fmt.Errorf("elevation API rate limit persisted after %d attempts", s.maxAttempts)
}

// awaitRateSlot enforces the minimum interval between outbound requests by
// sleeping the calling goroutine. Holding the mutex through the sleep
// serializes concurrent callers into spaced slots.
func (s *Service) awaitRateSlot() {
	s.rateMu.Lock()
	defer s.rateMu.Unlock()

	if wait := s.rateInterval - time.Since(s.lastCall); wait > 0 {
		time.Sleep(wait)
	}
	s.lastCall = time.Now()
}

// FlushDirtySamples moves freshly cached elevations into the tile store.
// Invoked by the tile-flush worker; a no-op without a configured store.
func (s *Service) FlushDirtySamples() int {
	if s.tiles == nil {
		return 0
	}

	dirty := s.cache.GetDirty()
	if len(dirty) == 0 {
		return 0
	}

	keys := make([]string, 0, len(dirty))
	for key, elev := range dirty {
		c, err := parseCacheKey(key)
		if err != nil {
			// Unparseable keys should not wedge the flush cycle.
			keys = append(keys, key)
			continue
		}
		s.tiles.Insert(c, elev)
		keys = append(keys, key)
	}

	saved := s.tiles.FlushDirty()
	s.cache.ClearDirty(keys)
	return saved
}

func parseCacheKey(key string) (model.Coordinate, error) {
	parts := strings.Split(key, ",")
	if len(parts) != 2 {
		return model.Coordinate{}, fmt.Errorf("malformed cache key %q", key)
	}
	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return model.Coordinate{}, err
	}
	lng, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return model.Coordinate{}, err
	}
	return model.Coordinate{Lat: lat, Lng: lng}, nil
}
