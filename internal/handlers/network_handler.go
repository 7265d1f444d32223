package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/transitwatch/journey-alert-backend/internal/models"
)

// LineSource provides the stored lines and their adjacency edges
type LineSource interface {
	GetAll() ([]models.Line, error)
	GetConnectionsForLine(lineID string) ([]models.StationConnection, error)
}

// StationCensus provides station-level aggregate counts
type StationCensus interface {
	Count() (int64, error)
	CountHubs() (int64, error)
}

// NetworkHandler reports the stored network topology: per-line edge counts
// and station totals, for operational inspection after rebuilds
type NetworkHandler struct {
	lines    LineSource
	stations StationCensus
	logger   *logrus.Logger
}

// NewNetworkHandler creates a new network handler
func NewNetworkHandler(lines LineSource, stations StationCensus, logger *logrus.Logger) *NetworkHandler {
	return &NetworkHandler{
		lines:    lines,
		stations: stations,
		logger:   logger,
	}
}

type lineStatus struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Mode            string `json:"mode"`
	TopologyVersion int    `json:"topology_version"`
	Connections     int    `json:"connections"`
}

// NetworkStatus handles GET /api/v1/network/status
func (h *NetworkHandler) NetworkStatus(c *gin.Context) {
	lines, err := h.lines.GetAll()
	if err != nil {
		h.logger.WithError(err).Error("Failed to list lines")
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "Failed to load network status",
		})
		return
	}

	statuses := make([]lineStatus, 0, len(lines))
	for _, line := range lines {
		connections, err := h.lines.GetConnectionsForLine(line.ID)
		if err != nil {
			h.logger.WithError(err).WithField("line", line.ID).Error("Failed to list connections")
			c.JSON(http.StatusInternalServerError, gin.H{
				"status":  "error",
				"message": "Failed to load network status",
			})
			return
		}
		statuses = append(statuses, lineStatus{
			ID:              line.ID,
			Name:            line.Name,
			Mode:            line.Mode,
			TopologyVersion: line.TopologyVersion,
			Connections:     len(connections),
		})
	}

	stationCount, err := h.stations.Count()
	if err != nil {
		h.logger.WithError(err).Error("Failed to count stations")
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "Failed to load network status",
		})
		return
	}

	hubCount, err := h.stations.CountHubs()
	if err != nil {
		h.logger.WithError(err).Error("Failed to count hubs")
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "Failed to load network status",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"lines":    statuses,
		"stations": stationCount,
		"hubs":     hubCount,
	})
}
