package main

import (
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"skyplan/internal/api"
	routes "skyplan/internal/api/handlers"
	"skyplan/internal/config"
	"skyplan/internal/postgres"
	"skyplan/internal/redis"
	"skyplan/internal/service/mission"
	"skyplan/internal/service/terrain"
	"skyplan/internal/worker"
)

func main() {
	setupLogging()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	archiveEnabled := initializeDatabaseAndCache(cfg)
	defer closeConnections()

	setupSignalHandler()

	terrainService := initializeTerrain(cfg)
	assembler := mission.NewAssembler(terrainService)

	if cfg.TileCacheMode != "off" {
		worker.StartAllWorkers(terrainService)
	}

	runAPIServer(cfg, routes.Deps{
		Assembler:      assembler,
		Terrain:        terrainService,
		ArchiveEnabled: archiveEnabled,
	})
}

func setupLogging() {
	// Set up logging to file and terminal
	logFile, err := os.OpenFile("skyplan.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	// The file stays open for the application lifetime.

	// Use MultiWriter to output logs to both terminal and file
	multiWriter := io.MultiWriter(os.Stdout, logFile)
	log.SetOutput(multiWriter)
}

// initializeDatabaseAndCache brings up the optional collaborators. Either
// one failing leaves the planner running in a degraded but usable mode.
func initializeDatabaseAndCache(cfg config.Config) bool {
	archiveEnabled := false
	if cfg.DBUrl != "" {
		if _, err := postgres.Init(cfg.DBUrl); err != nil {
			log.Printf("Plan archive disabled, PostgreSQL unavailable: %v", err)
		} else {
			archiveEnabled = true
		}
	}

	if cfg.RedisUrl != "" && cfg.TileCacheMode == "redis" {
		if _, err := redis.Init(cfg.RedisUrl); err != nil {
			log.Printf("Redis tile cache unavailable, falling back to disk: %v", err)
		}
	}
	return archiveEnabled
}

// initializeTerrain wires the tile store selected by configuration.
func initializeTerrain(cfg config.Config) *terrain.Service {
	var store terrain.TileStore

	switch cfg.TileCacheMode {
	case "redis":
		if redis.GetClient() != nil {
			store = &terrain.RedisTileStore{}
		}
	case "off":
	default: // disk
		diskStore, err := terrain.NewDiskTileStore(cfg.TileCacheDir)
		if err != nil {
			log.Printf("Tile cache dir %s unusable, running network-only: %v", cfg.TileCacheDir, err)
		} else {
			store = diskStore
		}
	}

	return terrain.New(terrain.Options{
		APIURL: cfg.ElevationAPIUrl,
		Store:  store,
	})
}

func runAPIServer(cfg config.Config, deps routes.Deps) {
	// Initialize Gin router
	r := gin.Default()

	// Configure API routes
	api.SetupRouter(r, deps)

	// Start the server
	r.Run(cfg.Port)
}

func closeConnections() {
	if err := postgres.Close(); err != nil {
		log.Printf("Error closing PostgreSQL connection: %v", err)
	}

	if err := redis.Close(); err != nil {
		log.Printf("Error closing Redis connection: %v", err)
	}
}

func setupSignalHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Println("Shutdown signal received, closing connections...")
		closeConnections()
		os.Exit(0)
	}()
}
