package api

import (
	routes "skyplan/internal/api/handlers"

	"github.com/gin-gonic/gin"
)

// SetupRouter initializes all application routes
func SetupRouter(r *gin.Engine, deps routes.Deps) {
	// API group
	api := r.Group("/api")

	// Setup main handlers
	routes.SetupMainHandlers(r.Group(""), deps)

	// Setup plan generation, archive and terrain handlers
	routes.SetupPlanHandlers(api, deps)
	routes.SetupTerrainHandlers(api, deps)
}
