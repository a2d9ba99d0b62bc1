package routes

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"skyplan/internal/model"
)

// elevationTimeout bounds interactive lookups so the UI stays responsive;
// a timed-out lookup still completes in the background and warms the cache.
const elevationTimeout = 5 * time.Second

// SetupTerrainHandlers registers the elevation endpoints
func SetupTerrainHandlers(router *gin.RouterGroup, deps Deps) {
	terrainGroup := router.Group("/terrain")

	terrainGroup.GET("/elevation", func(c *gin.Context) {
		lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
		lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
		if errLat != nil || errLng != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "lat and lng query parameters required"})
			return
		}

		coord := model.Coordinate{Lat: lat, Lng: lng}
		if !coord.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "coordinate out of range"})
			return
		}

		elev := deps.Terrain.GetElevationWithTimeout(coord, elevationTimeout)
		c.JSON(http.StatusOK, gin.H{
			"status":    "success",
			"lat":       lat,
			"lng":       lng,
			"elevation": elev,
		})
	})
}
