package database

import (
	"fmt"

	"github.com/transitwatch/journey-alert-backend/internal/models"
)

// StationRepository handles database operations for the stations table
type StationRepository struct {
	db DB
}

// NewStationRepository creates a new StationRepository
func NewStationRepository(db DB) *StationRepository {
	return &StationRepository{db: db}
}

// Upsert creates or updates a station. The station's line-set only ever
// grows: the supplied lines are merged into the stored set, never replacing
// it, so one line's rebuild cannot narrow another line's membership.
func (r *StationRepository) Upsert(station *models.Station) error {
	query := `
		INSERT INTO stations (id, name, latitude, longitude, lines, hub_code, hub_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			lines = ARRAY(SELECT DISTINCT unnest(stations.lines || EXCLUDED.lines) ORDER BY 1),
			hub_code = COALESCE(EXCLUDED.hub_code, stations.hub_code),
			hub_name = COALESCE(EXCLUDED.hub_name, stations.hub_name),
			updated_at = NOW()
	`

	_, err := r.db.Exec(query,
		station.ID, station.Name, station.Latitude, station.Longitude,
		station.Lines, station.HubCode, station.HubName,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert station %s: %w", station.ID, err)
	}

	return nil
}

// GetByID retrieves a station by its external id
func (r *StationRepository) GetByID(stationID string) (*models.Station, error) {
	query := `
		SELECT id, name, latitude, longitude, lines, hub_code, hub_name, created_at, updated_at
		FROM stations
		WHERE id = $1
	`

	station := &models.Station{}
	if err := r.db.Get(station, query, stationID); err != nil {
		return nil, notFoundOr(err)
	}

	return station, nil
}

// Count returns the number of stored stations
func (r *StationRepository) Count() (int64, error) {
	var count int64
	if err := r.db.Get(&count, `SELECT COUNT(*) FROM stations`); err != nil {
		return 0, fmt.Errorf("failed to count stations: %w", err)
	}
	return count, nil
}

// CountHubs returns the number of distinct hub interchange codes
func (r *StationRepository) CountHubs() (int64, error) {
	var count int64
	query := `SELECT COUNT(DISTINCT hub_code) FROM stations WHERE hub_code IS NOT NULL AND hub_code <> ''`
	if err := r.db.Get(&count, query); err != nil {
		return 0, fmt.Errorf("failed to count hubs: %w", err)
	}
	return count, nil
}
