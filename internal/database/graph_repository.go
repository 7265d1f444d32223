package database

import (
	"fmt"

	"github.com/lib/pq"
	"github.com/transitwatch/journey-alert-backend/internal/models"
)

// StagedGraph is a fully derived topology for a set of lines, built in memory
// before anything is written. Committing it replaces those lines' edges and
// variants in a single transaction, so readers either see the previous graph
// or the new one, never an intermediate state.
type StagedGraph struct {
	Lines       []models.Line
	Connections []models.StationConnection
	Variants    []models.RouteVariant
}

// GraphRepository handles the atomic whole-graph replace for rebuilds
type GraphRepository struct {
	db DB
}

// NewGraphRepository creates a new GraphRepository
func NewGraphRepository(db DB) *GraphRepository {
	return &GraphRepository{db: db}
}

// Replace commits a staged graph: upserts the lines with a topology version
// bump, clears their previous connections and variants, and inserts the new
// set, all inside one transaction. Any failure rolls back to the prior graph.
func (r *GraphRepository) Replace(staged *StagedGraph) error {
	if len(staged.Lines) == 0 {
		return fmt.Errorf("staged graph has no lines")
	}

	lineIDs := make([]string, 0, len(staged.Lines))
	for _, line := range staged.Lines {
		lineIDs = append(lineIDs, line.ID)
	}

	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin graph replace: %w", err)
	}
	defer tx.Rollback()

	upsertLine := `
		INSERT INTO lines (id, name, mode, topology_version, created_at, updated_at)
		VALUES ($1, $2, $3, 1, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			mode = EXCLUDED.mode,
			topology_version = lines.topology_version + 1,
			updated_at = NOW()
	`
	for _, line := range staged.Lines {
		if _, err := tx.Exec(upsertLine, line.ID, line.Name, line.Mode); err != nil {
			return fmt.Errorf("failed to upsert line %s: %w", line.ID, err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM station_connections WHERE line_id = ANY($1)`, pq.Array(lineIDs)); err != nil {
		return fmt.Errorf("failed to clear station connections: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM route_variants WHERE line_id = ANY($1)`, pq.Array(lineIDs)); err != nil {
		return fmt.Errorf("failed to clear route variants: %w", err)
	}

	insertConnection := `
		INSERT INTO station_connections (from_station_id, to_station_id, line_id)
		VALUES ($1, $2, $3)
	`
	for _, conn := range staged.Connections {
		if _, err := tx.Exec(insertConnection, conn.FromStationID, conn.ToStationID, conn.LineID); err != nil {
			return fmt.Errorf("failed to insert connection %s->%s on %s: %w",
				conn.FromStationID, conn.ToStationID, conn.LineID, err)
		}
	}

	insertVariant := `
		INSERT INTO route_variants (line_id, name, direction, stations)
		VALUES ($1, $2, $3, $4)
	`
	for _, variant := range staged.Variants {
		if _, err := tx.Exec(insertVariant, variant.LineID, variant.Name, variant.Direction, variant.Stations); err != nil {
			return fmt.Errorf("failed to insert route variant %q on %s: %w", variant.Name, variant.LineID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit graph replace: %w", err)
	}

	return nil
}
