package config

import "time"

// Terrain lookup tuning
const (
	// ElevationRateInterval is the minimum spacing between outbound
	// elevation API requests.
	ElevationRateInterval = 1100 * time.Millisecond

	// ElevationBackoffBase is the first retry delay after an HTTP 429;
	// doubles per attempt.
	ElevationBackoffBase = 2 * time.Second

	// ElevationMaxAttempts bounds retries per lookup.
	ElevationMaxAttempts = 3

	// ElevationBatchWorkers bounds concurrent lookups in a batch query.
	ElevationBatchWorkers = 4

	// CacheKeyDecimals is the coordinate rounding for cache keys (~11 m).
	CacheKeyDecimals = 4

	// TileGridDegrees is the terrain tile size (0.1 degree grid).
	TileGridDegrees = 0.1

	// TileSampleRadiusM is how far a cached tile sample may sit from a
	// queried point and still answer it.
	TileSampleRadiusM = 150.0
)

// Worker intervals
const (
	// TileFlushInterval defines how often dirty terrain samples are
	// persisted to the tile store.
	TileFlushInterval = 30 * time.Second
)

// Geofence defaults
const (
	// ProtectedPointBufferM is the fixed margin around takeoff/landing
	// pads (200 ft).
	ProtectedPointBufferM = 60.96

	// PatrolInsetM keeps patrol waypoints inside a drawn boundary.
	PatrolInsetM = 50.0
)

// Altitude safety
const (
	// ProximityThresholdM is the default terrain clearance warning
	// threshold (50 ft).
	ProximityThresholdM = 15.24
)
