package database

import (
	"fmt"

	"github.com/transitwatch/journey-alert-backend/internal/models"
)

// LineRepository handles database operations for the lines table
type LineRepository struct {
	db DB
}

// NewLineRepository creates a new LineRepository
func NewLineRepository(db DB) *LineRepository {
	return &LineRepository{db: db}
}

// GetByID retrieves a line by its external id
func (r *LineRepository) GetByID(lineID string) (*models.Line, error) {
	query := `
		SELECT id, name, mode, topology_version, created_at, updated_at
		FROM lines
		WHERE id = $1
	`

	line := &models.Line{}
	if err := r.db.Get(line, query, lineID); err != nil {
		return nil, notFoundOr(err)
	}

	return line, nil
}

// GetAll retrieves all lines ordered by id
func (r *LineRepository) GetAll() ([]models.Line, error) {
	query := `
		SELECT id, name, mode, topology_version, created_at, updated_at
		FROM lines
		ORDER BY id
	`

	lines := []models.Line{}
	if err := r.db.Select(&lines, query); err != nil {
		return nil, fmt.Errorf("failed to list lines: %w", err)
	}

	return lines, nil
}

// GetVariants retrieves the stored route variants for a line
func (r *LineRepository) GetVariants(lineID string) ([]models.RouteVariant, error) {
	query := `
		SELECT id, line_id, name, direction, stations
		FROM route_variants
		WHERE line_id = $1
		ORDER BY id
	`

	variants := []models.RouteVariant{}
	if err := r.db.Select(&variants, query, lineID); err != nil {
		return nil, fmt.Errorf("failed to list route variants for line %s: %w", lineID, err)
	}

	return variants, nil
}

// GetConnectionsForLine retrieves the directed adjacency edges of a line
func (r *LineRepository) GetConnectionsForLine(lineID string) ([]models.StationConnection, error) {
	query := `
		SELECT id, from_station_id, to_station_id, line_id
		FROM station_connections
		WHERE line_id = $1
		ORDER BY from_station_id, to_station_id
	`

	connections := []models.StationConnection{}
	if err := r.db.Select(&connections, query, lineID); err != nil {
		return nil, fmt.Errorf("failed to list connections for line %s: %w", lineID, err)
	}

	return connections, nil
}
