package database

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/transitwatch/journey-alert-backend/internal/models"
)

// IndexRepository handles database operations for the subscription_index table
type IndexRepository struct {
	db DB
}

// NewIndexRepository creates a new IndexRepository
func NewIndexRepository(db DB) *IndexRepository {
	return &IndexRepository{db: db}
}

// ReplaceForSubscription atomically swaps a subscription's index rows: the
// prior entries are deleted and the new set inserted inside one transaction,
// so a concurrent Query never observes a half-rebuilt subscription.
func (r *IndexRepository) ReplaceForSubscription(subscriptionID uuid.UUID, entries []models.IndexEntry) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin index replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM subscription_index WHERE subscription_id = $1`, subscriptionID); err != nil {
		return fmt.Errorf("failed to clear index entries for %s: %w", subscriptionID, err)
	}

	insert := `
		INSERT INTO subscription_index (subscription_id, line_id, station_id, topology_version)
		VALUES ($1, $2, $3, $4)
	`
	for _, entry := range entries {
		if _, err := tx.Exec(insert, entry.SubscriptionID, entry.LineID, entry.StationID, entry.TopologyVersion); err != nil {
			return fmt.Errorf("failed to insert index entry (%s, %s) for %s: %w",
				entry.LineID, entry.StationID, subscriptionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index replace: %w", err)
	}

	return nil
}

// Query returns the distinct subscription ids whose index rows intersect the
// supplied (line, station) pairs
func (r *IndexRepository) Query(pairs []models.LinePair) ([]uuid.UUID, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, 0, len(pairs))
	args := make([]interface{}, 0, len(pairs)*2)
	for i, pair := range pairs {
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d)", i*2+1, i*2+2))
		args = append(args, pair.LineID, pair.StationID)
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT subscription_id
		FROM subscription_index
		WHERE (line_id, station_id) IN (%s)
	`, strings.Join(placeholders, ", "))

	ids := []uuid.UUID{}
	if err := r.db.Select(&ids, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query subscription index: %w", err)
	}

	return ids, nil
}

// ListStaleSubscriptionIDs returns subscriptions whose index rows were built
// against an older topology version than their line currently carries
func (r *IndexRepository) ListStaleSubscriptionIDs() ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT si.subscription_id
		FROM subscription_index si
		JOIN lines l ON l.id = si.line_id
		WHERE si.topology_version < l.topology_version
	`

	ids := []uuid.UUID{}
	if err := r.db.Select(&ids, query); err != nil {
		return nil, fmt.Errorf("failed to list stale index entries: %w", err)
	}

	return ids, nil
}
