package worker

import (
	"log"

	"skyplan/internal/service/terrain"
)

// StartAllWorkers initializes and starts all background workers
func StartAllWorkers(terrainService *terrain.Service) {
	log.Println("Starting all workers...")

	StartTileFlushWorker(terrainService)

	log.Println("All workers started")
}
