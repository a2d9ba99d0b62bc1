package terrain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"skyplan/internal/config"
	"skyplan/internal/model"
	rediswrap "skyplan/internal/redis"
)

// Sample is one cached elevation reading.
type Sample struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Elevation float64 `json:"elevation"`
}

// Tile is a 0.1-degree bucket of samples persisted across sessions.
type Tile struct {
	Key     string   `json:"key"`
	Samples []Sample `json:"samples"`
}

// TileKey buckets a coordinate onto the coarse tile grid.
func TileKey(c model.Coordinate) string {
	g := config.TileGridDegrees
	latIdx := int(math.Floor(c.Lat / g))
	lngIdx := int(math.Floor(c.Lng / g))
	return fmt.Sprintf("%d_%d", latIdx, lngIdx)
}

// TileStore persists terrain tiles. Load returns (nil, nil) on a miss; any
// error degrades the caller to network-only mode, never to a hard failure.
type TileStore interface {
	Load(key string) (*Tile, error)
	Save(t *Tile) error
}

// DiskTileStore keeps one JSON file per tile under a cache directory.
type DiskTileStore struct {
	Dir string
}

func NewDiskTileStore(dir string) (*DiskTileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskTileStore{Dir: dir}, nil
}

func (d *DiskTileStore) path(key string) string {
	return filepath.Join(d.Dir, "tile_"+key+".json")
}

func (d *DiskTileStore) Load(key string) (*Tile, error) {
	data, err := os.ReadFile(d.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var t Tile
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (d *DiskTileStore) Save(t *Tile) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return os.WriteFile(d.path(t.Key), data, 0o644)
}

// RedisTileStore keeps tiles as JSON blobs in Redis, sharing the process
// connection from internal/redis.
type RedisTileStore struct {
	TTL time.Duration
}

const redisTilePrefix = "terrain:tile:"

func (r *RedisTileStore) Load(key string) (*Tile, error) {
	raw, err := rediswrap.Get(redisTilePrefix + key)
	if err != nil {
		if errors.Is(err, goredis.Nil) || errors.Is(err, rediswrap.ErrNotConfigured) {
			return nil, nil
		}
		return nil, err
	}
	var t Tile
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *RedisTileStore) Save(t *Tile) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return rediswrap.Set(redisTilePrefix+t.Key, string(data), r.TTL)
}
