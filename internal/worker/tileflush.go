package worker

import (
	"log"
	"time"

	"skyplan/internal/config"
	"skyplan/internal/service/terrain"
)

// StartTileFlushWorker starts the worker that persists freshly cached
// terrain samples into the tile store.
func StartTileFlushWorker(terrainService *terrain.Service) {
	ticker := time.NewTicker(config.TileFlushInterval)
	go func() {
		for range ticker.C {
			if saved := terrainService.FlushDirtySamples(); saved > 0 {
				log.Printf("Tile flush worker: persisted %d terrain tiles", saved)
			}
		}
	}()

	log.Println("Tile flush worker started with interval:", config.TileFlushInterval)
}
