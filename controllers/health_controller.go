package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// LiveStats reports how many sessions and room states are held in memory.
type LiveStats interface {
	Stats() (sessions, rooms int)
}

type HealthController struct {
	db    *gorm.DB
	stats LiveStats
}

func NewHealthController(db *gorm.DB, stats LiveStats) *HealthController {
	return &HealthController{db: db, stats: stats}
}

// Health godoc
// @Summary Service health
// @Description Reports database reachability and live connection counts
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{} "Healthy"
// @Failure 503 {object} map[string]interface{} "Database unreachable"
// @Router /healthz [get]
func (hc *HealthController) Health(c *gin.Context) {
	sessions, rooms := hc.stats.Stats()
	body := gin.H{
		"status":   "ok",
		"sessions": sessions,
		"rooms":    rooms,
	}

	sqlDB, err := hc.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		body["status"] = "unavailable"
		body["error"] = "Database unreachable"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}

	c.JSON(http.StatusOK, body)
}
