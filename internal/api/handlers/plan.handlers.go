package routes

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"skyplan/internal/model"
	"skyplan/internal/plan"
	"skyplan/internal/postgres"
)

// SetupPlanHandlers registers plan generation and archive endpoints
func SetupPlanHandlers(router *gin.RouterGroup, deps Deps) {
	planGroup := router.Group("/plan")

	planGroup.POST("/generate", generatePlan(deps))

	if deps.ArchiveEnabled {
		planGroup.POST("/archive", archivePlan(deps))
		planGroup.GET("/archive", listArchive)
		planGroup.GET("/archive/:id", getArchived)
	}
}

// generatePlan runs the full pipeline for a posted scenario.
func generatePlan(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var sc model.Scenario
		if err := c.ShouldBindJSON(&sc); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
			return
		}

		res, err := deps.Assembler.Generate(c.Request.Context(), &sc)
		if err != nil {
			// Precondition errors are the user's to fix; everything else
			// would be a bug, but surfaces the same way.
			status := http.StatusInternalServerError
			if errors.Is(err, model.ErrInvalidParameter) || errors.Is(err, model.ErrMissingLocation) {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"status": "error", "message": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":            "success",
			"plan":              res.Plan,
			"warnings":          res.Warnings,
			"terrainIncomplete": res.TerrainIncomplete,
		})
	}
}

type archiveRequest struct {
	Name     string         `json:"name" binding:"required"`
	Scenario model.Scenario `json:"scenario" binding:"required"`
}

// archivePlan generates and persists a plan in one step.
func archivePlan(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req archiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
			return
		}

		res, err := deps.Assembler.Generate(c.Request.Context(), &req.Scenario)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, model.ErrInvalidParameter) || errors.Is(err, model.ErrMissingLocation) {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"status": "error", "message": err.Error()})
			return
		}

		doc, err := plan.Marshal(res.Plan)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
			return
		}

		rec := &model.PlanPG{
			ID:       newPlanID(),
			Name:     req.Name,
			Variant:  string(req.Scenario.Variant),
			Aircraft: string(req.Scenario.Aircraft),
			HomeLat:  res.Plan.Mission.PlannedHomePosition[0],
			HomeLng:  res.Plan.Mission.PlannedHomePosition[1],
			Document: string(doc),
		}
		if err := postgres.SavePlan(rec); err != nil {
			log.Printf("archive: failed to save plan %s: %v", rec.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "failed to archive plan"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":   "success",
			"id":       rec.ID,
			"warnings": res.Warnings,
		})
	}
}

func listArchive(c *gin.Context) {
	recs, err := postgres.ListPlans(100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "plans": recs})
}

func getArchived(c *gin.Context) {
	rec, err := postgres.GetPlan(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "plan not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "plan": rec})
}

func newPlanID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// No entropy means no usable archive IDs at all.
		panic(err)
	}
	return hex.EncodeToString(b)
}
