package terrain

import (
	"log"
	"sync"

	"github.com/dhconnelly/rtreego"

	"skyplan/internal/config"
	"skyplan/internal/model"
	"skyplan/internal/util"
)

// sampleSpatial wraps a Sample for R-tree indexing.
type sampleSpatial struct {
	sample Sample
	rect   rtreego.Rect
}

// Bounds implements the rtreego.Spatial interface
func (p *sampleSpatial) Bounds() rtreego.Rect {
	return p.rect
}

func newSampleSpatial(s Sample) *sampleSpatial {
	// Point-sized rectangle in [lng, lat] order, matching the tree axes.
	rect, _ := rtreego.NewRect(
		rtreego.Point{s.Lng, s.Lat},
		[]float64{1e-9, 1e-9},
	)
	return &sampleSpatial{sample: s, rect: rect}
}

// tileIndex keeps loaded tiles in memory with an R-tree per tile so point
// queries resolve by nearest sample. Store failures are logged once per
// tile and treated as a miss.
type tileIndex struct {
	store TileStore

	mu    sync.Mutex
	trees map[string]*rtreego.Rtree
	tiles map[string]*Tile
	seen  map[string]map[string]bool // tile key -> rounded sample keys
	dirty map[string]bool
}

func newTileIndex(store TileStore) *tileIndex {
	return &tileIndex{
		store: store,
		trees: make(map[string]*rtreego.Rtree),
		tiles: make(map[string]*Tile),
		seen:  make(map[string]map[string]bool),
		dirty: make(map[string]bool),
	}
}

// load ensures the tile for key is resident. Caller holds i.mu.
func (i *tileIndex) load(key string) *rtreego.Rtree {
	if tree, ok := i.trees[key]; ok {
		return tree
	}

	tile, err := i.store.Load(key)
	if err != nil {
		log.Printf("terrain: tile %s load failed, continuing without it: %v", key, err)
		tile = nil
	}
	if tile == nil {
		tile = &Tile{Key: key}
	}

	tree := rtreego.NewTree(2, 25, 50)
	seen := make(map[string]bool, len(tile.Samples))
	for _, s := range tile.Samples {
		tree.Insert(newSampleSpatial(s))
		seen[model.Coordinate{Lat: s.Lat, Lng: s.Lng}.RoundedKey(config.CacheKeyDecimals)] = true
	}

	i.trees[key] = tree
	i.tiles[key] = tile
	i.seen[key] = seen
	return tree
}

// Lookup returns the elevation of the nearest persisted sample within
// TileSampleRadiusM of c, if any.
func (i *tileIndex) Lookup(c model.Coordinate) (float64, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	tree := i.load(TileKey(c))
	if tree.Size() == 0 {
		return 0, false
	}

	nearest := tree.NearestNeighbor(rtreego.Point{c.Lng, c.Lat})
	if nearest == nil {
		return 0, false
	}
	s := nearest.(*sampleSpatial).sample

	d := util.HaversineDistance(c, model.Coordinate{Lat: s.Lat, Lng: s.Lng})
	if d > config.TileSampleRadiusM {
		return 0, false
	}
	return s.Elevation, true
}

// Insert adds a sample and marks its tile dirty. Duplicate samples (same
// rounded coordinate) are dropped so store flushes stay idempotent.
func (i *tileIndex) Insert(c model.Coordinate, elevation float64) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	key := TileKey(c)
	tree := i.load(key)

	sampleKey := c.RoundedKey(config.CacheKeyDecimals)
	if i.seen[key][sampleKey] {
		return false
	}

	s := Sample{Lat: c.Lat, Lng: c.Lng, Elevation: elevation}
	tree.Insert(newSampleSpatial(s))
	i.tiles[key].Samples = append(i.tiles[key].Samples, s)
	i.seen[key][sampleKey] = true
	i.dirty[key] = true
	return true
}

// FlushDirty persists every dirty tile. Returns how many tiles were saved;
// a failed save stays dirty for the next cycle.
func (i *tileIndex) FlushDirty() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	saved := 0
	for key := range i.dirty {
		if err := i.store.Save(i.tiles[key]); err != nil {
			log.Printf("terrain: tile %s save failed, will retry: %v", key, err)
			continue
		}
		delete(i.dirty, key)
		saved++
	}
	return saved
}
