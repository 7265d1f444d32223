package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/transitwatch/journey-alert-backend/internal/models"
)

// SubscriptionRepository handles database operations for the subscriptions table
type SubscriptionRepository struct {
	db DB
}

// NewSubscriptionRepository creates a new SubscriptionRepository
func NewSubscriptionRepository(db DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Create inserts a new subscription
func (r *SubscriptionRepository) Create(legs models.LegList, windows models.WindowList) (*models.Subscription, error) {
	sub := &models.Subscription{
		ID:        uuid.New(),
		Legs:      legs,
		Windows:   windows,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO subscriptions (id, legs, windows, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.Exec(query, sub.ID, sub.Legs, sub.Windows, sub.CreatedAt, sub.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	return sub, nil
}

// Update replaces a subscription's legs and windows
func (r *SubscriptionRepository) Update(sub *models.Subscription) error {
	query := `
		UPDATE subscriptions
		SET legs = $2, windows = $3, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.Exec(query, sub.ID, sub.Legs, sub.Windows)
	if err != nil {
		return fmt.Errorf("failed to update subscription %s: %w", sub.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update subscription %s: %w", sub.ID, err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// GetByID retrieves a subscription by id
func (r *SubscriptionRepository) GetByID(subscriptionID uuid.UUID) (*models.Subscription, error) {
	query := `
		SELECT id, legs, windows, created_at, updated_at
		FROM subscriptions
		WHERE id = $1
	`

	sub := &models.Subscription{}
	if err := r.db.Get(sub, query, subscriptionID); err != nil {
		return nil, notFoundOr(err)
	}

	return sub, nil
}

// GetAll retrieves every subscription
func (r *SubscriptionRepository) GetAll() ([]models.Subscription, error) {
	query := `
		SELECT id, legs, windows, created_at, updated_at
		FROM subscriptions
		ORDER BY created_at
	`

	subs := []models.Subscription{}
	if err := r.db.Select(&subs, query); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return subs, nil
}

// GetMonitorable retrieves subscriptions with at least one active window
// configured. Subscriptions without windows are never matched, so the
// matching engine never needs to load them.
func (r *SubscriptionRepository) GetMonitorable() ([]models.Subscription, error) {
	query := `
		SELECT id, legs, windows, created_at, updated_at
		FROM subscriptions
		WHERE windows IS NOT NULL AND jsonb_array_length(windows) > 0
		ORDER BY created_at
	`

	subs := []models.Subscription{}
	if err := r.db.Select(&subs, query); err != nil {
		return nil, fmt.Errorf("failed to list monitorable subscriptions: %w", err)
	}

	return subs, nil
}

// Delete removes a subscription
func (r *SubscriptionRepository) Delete(subscriptionID uuid.UUID) error {
	result, err := r.db.Exec(`DELETE FROM subscriptions WHERE id = $1`, subscriptionID)
	if err != nil {
		return fmt.Errorf("failed to delete subscription %s: %w", subscriptionID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete subscription %s: %w", subscriptionID, err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
