package routes

import (
	"github.com/gin-gonic/gin"

	"skyplan/internal/service/mission"
	"skyplan/internal/service/terrain"
)

// Deps carries the constructed services the handlers need.
type Deps struct {
	Assembler *mission.Assembler
	Terrain   *terrain.Service
	// ArchiveEnabled gates the plan-archive endpoints on a configured DB.
	ArchiveEnabled bool
}

// SetupMainHandlers registers the main application endpoints
func SetupMainHandlers(router *gin.RouterGroup, deps Deps) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":          "ok",
			"terrainCache":    deps.Terrain.CacheSize(),
			"terrainDegraded": deps.Terrain.DegradedCount(),
			"archiveEnabled":  deps.ArchiveEnabled,
		})
	})
}
