package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/transitwatch/journey-alert-backend/internal/database"
	"github.com/transitwatch/journey-alert-backend/internal/models"
)

// Rebuild batch statuses
const (
	RebuildStatusSuccess        = "success"
	RebuildStatusPartialFailure = "partial_failure"
	RebuildStatusFailure        = "failure"
)

// SubscriptionSource provides the subscriptions to index
type SubscriptionSource interface {
	GetByID(subscriptionID uuid.UUID) (*models.Subscription, error)
	GetAll() ([]models.Subscription, error)
}

// IndexStore persists and queries the inverted index
type IndexStore interface {
	ReplaceForSubscription(subscriptionID uuid.UUID, entries []models.IndexEntry) error
	Query(pairs []models.LinePair) ([]uuid.UUID, error)
	ListStaleSubscriptionIDs() ([]uuid.UUID, error)
}

// LineVersionSource provides lines' current topology versions
type LineVersionSource interface {
	GetByID(lineID string) (*models.Line, error)
}

// RebuildReport summarizes a bulk index rebuild
type RebuildReport struct {
	Status  string   `json:"status"`
	Rebuilt int      `json:"rebuilt"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// SubscriptionIndex maintains the inverted (line, station) → subscription
// index that turns disruption matching into an O(matching rows) lookup
type SubscriptionIndex struct {
	subscriptions SubscriptionSource
	store         IndexStore
	lines         LineVersionSource
	logger        *logrus.Logger
}

// NewSubscriptionIndex creates a new SubscriptionIndex
func NewSubscriptionIndex(
	subscriptions SubscriptionSource,
	store IndexStore,
	lines LineVersionSource,
	logger *logrus.Logger,
) *SubscriptionIndex {
	return &SubscriptionIndex{
		subscriptions: subscriptions,
		store:         store,
		lines:         lines,
		logger:        logger,
	}
}

// Rebuild derives a subscription's index rows from its current legs and swaps
// them in atomically, stamping each row with its line's current topology
// version
func (s *SubscriptionIndex) Rebuild(subscriptionID uuid.UUID) error {
	sub, err := s.subscriptions.GetByID(subscriptionID)
	if err != nil {
		return fmt.Errorf("failed to load subscription %s: %w", subscriptionID, err)
	}

	versions := make(map[string]int)
	entries := []models.IndexEntry{}
	for _, pair := range sub.TraversedPairs() {
		version, ok := versions[pair.LineID]
		if !ok {
			line, err := s.lines.GetByID(pair.LineID)
			switch {
			case err == nil:
				version = line.TopologyVersion
			case errors.Is(err, database.ErrNotFound):
				// Line not yet in the topology store; index it anyway so a
				// future rebuild picks it up as stale.
				version = 0
			default:
				return fmt.Errorf("failed to load line %s: %w", pair.LineID, err)
			}
			versions[pair.LineID] = version
		}
		entries = append(entries, models.IndexEntry{
			SubscriptionID:  subscriptionID,
			LineID:          pair.LineID,
			StationID:       pair.StationID,
			TopologyVersion: version,
		})
	}

	if err := s.store.ReplaceForSubscription(subscriptionID, entries); err != nil {
		return fmt.Errorf("failed to replace index entries for %s: %w", subscriptionID, err)
	}

	return nil
}

// RebuildAll rebuilds every subscription's index rows, collecting failures
// without aborting the batch
func (s *SubscriptionIndex) RebuildAll() (*RebuildReport, error) {
	subs, err := s.subscriptions.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	report := &RebuildReport{}
	for _, sub := range subs {
		if err := s.Rebuild(sub.ID); err != nil {
			s.logger.WithError(err).WithField("subscription", sub.ID).Error("Index rebuild failed")
			report.Failed++
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		report.Rebuilt++
	}

	switch {
	case report.Failed == 0:
		report.Status = RebuildStatusSuccess
	case report.Rebuilt > 0:
		report.Status = RebuildStatusPartialFailure
	default:
		report.Status = RebuildStatusFailure
	}

	return report, nil
}

// Query returns the distinct subscription ids whose index rows intersect the
// supplied (line, station) pairs
func (s *SubscriptionIndex) Query(pairs []models.LinePair) ([]uuid.UUID, error) {
	return s.store.Query(pairs)
}

// SweepStale finds subscriptions indexed against an outdated line topology
// and rebuilds them. Individual failures are logged and left for the next
// sweep; the sweep itself never aborts on them.
func (s *SubscriptionIndex) SweepStale() (int, error) {
	stale, err := s.store.ListStaleSubscriptionIDs()
	if err != nil {
		return 0, fmt.Errorf("failed to find stale index entries: %w", err)
	}

	rebuilt := 0
	for _, id := range stale {
		if err := s.Rebuild(id); err != nil {
			s.logger.WithError(err).WithField("subscription", id).Warn("Stale index rebuild failed, will retry next sweep")
			continue
		}
		rebuilt++
	}

	if len(stale) > 0 {
		s.logger.WithFields(logrus.Fields{
			"stale":   len(stale),
			"rebuilt": rebuilt,
		}).Info("Stale index sweep finished")
	}

	return rebuilt, nil
}
