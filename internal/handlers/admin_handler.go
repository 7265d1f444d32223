package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/transitwatch/journey-alert-backend/internal/services"
)

// AdminHandler exposes the operational job surface: manual triggers and
// status for the scheduled jobs
type AdminHandler struct {
	cron         *services.CronService
	graphBuilder *services.GraphBuilder
	index        *services.SubscriptionIndex
	logger       *logrus.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	cron *services.CronService,
	graphBuilder *services.GraphBuilder,
	index *services.SubscriptionIndex,
	logger *logrus.Logger,
) *AdminHandler {
	return &AdminHandler{
		cron:         cron,
		graphBuilder: graphBuilder,
		index:        index,
		logger:       logger,
	}
}

// RebuildGraph handles POST /admin/jobs/rebuild
func (h *AdminHandler) RebuildGraph(c *gin.Context) {
	result, err := h.graphBuilder.RebuildGraph(c.Request.Context())
	if err != nil {
		if errors.Is(err, services.ErrNoStations) {
			c.JSON(http.StatusBadGateway, gin.H{
				"status":  "error",
				"message": "Upstream feed returned no stations, rebuild aborted",
			})
			return
		}
		h.logger.WithError(err).Error("Manual graph rebuild failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "Rebuild failed, prior graph left intact",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"result": result,
	})
}

// RunMatching handles POST /admin/jobs/match
func (h *AdminHandler) RunMatching(c *gin.Context) {
	h.cron.RunMatchingNow()
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Matching pass triggered"})
}

// RebuildIndex handles POST /admin/jobs/reindex
func (h *AdminHandler) RebuildIndex(c *gin.Context) {
	report, err := h.index.RebuildAll()
	if err != nil {
		h.logger.WithError(err).Error("Bulk index rebuild failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "Index rebuild failed",
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

// JobStatus handles GET /admin/jobs/status
func (h *AdminHandler) JobStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.cron.JobStatus())
}
