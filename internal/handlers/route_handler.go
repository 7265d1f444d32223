package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/transitwatch/journey-alert-backend/internal/database"
	"github.com/transitwatch/journey-alert-backend/internal/models"
	"github.com/transitwatch/journey-alert-backend/internal/services"
)

// RouteHandler handles HTTP requests for route validation
type RouteHandler struct {
	validator *services.RouteValidator
	logger    *logrus.Logger
}

// NewRouteHandler creates a new route handler
func NewRouteHandler(validator *services.RouteValidator, logger *logrus.Logger) *RouteHandler {
	return &RouteHandler{
		validator: validator,
		logger:    logger,
	}
}

// ValidateRoute handles POST /api/v1/routes/validate
func (h *RouteHandler) ValidateRoute(c *gin.Context) {
	var req struct {
		Legs models.LegList `json:"legs"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Warn("Invalid route validation request")
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid request format",
		})
		return
	}

	result, err := h.validator.ValidateRoute(req.Legs)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"status":  "error",
				"message": "Unknown station or line in journey",
			})
			return
		}
		h.logger.WithError(err).Error("Route validation failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "Internal error",
		})
		return
	}

	c.JSON(http.StatusOK, result)
}
