package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/transitwatch/journey-alert-backend/internal/models"
)

// Dispatcher delivers alert-intents to subscribers. Delivery mechanism and
// retry policy live behind this interface; the matching engine only decides
// that an alert is due.
type Dispatcher interface {
	SendAlert(ctx context.Context, subscriptionID uuid.UUID, disruptions []models.Disruption) error
}

// LogDispatcher writes alert-intents to the log. It stands in for a real
// delivery transport in development and tests.
type LogDispatcher struct {
	logger *logrus.Logger
}

// NewLogDispatcher creates a new LogDispatcher
func NewLogDispatcher(logger *logrus.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// SendAlert logs the alert-intent
func (d *LogDispatcher) SendAlert(ctx context.Context, subscriptionID uuid.UUID, disruptions []models.Disruption) error {
	lines := make([]string, 0, len(disruptions))
	for _, disruption := range disruptions {
		lines = append(lines, disruption.LineID)
	}

	d.logger.WithFields(logrus.Fields{
		"subscription": subscriptionID,
		"disruptions":  len(disruptions),
		"lines":        lines,
	}).Info("Alert intent")

	return nil
}
