package models

import (
	"time"
)

// Station represents a transit station
type Station struct {
	ID        string      `json:"id" db:"id"`
	Name      string      `json:"name" db:"name"`
	Latitude  float64     `json:"latitude" db:"latitude"`
	Longitude float64     `json:"longitude" db:"longitude"`
	Lines     StringArray `json:"lines" db:"lines"`
	HubCode   *string     `json:"hub_code,omitempty" db:"hub_code"`
	HubName   *string     `json:"hub_name,omitempty" db:"hub_name"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// ServesLine reports whether the station is currently served by the line
func (s *Station) ServesLine(lineID string) bool {
	return s.Lines.Contains(lineID)
}

// IsHub reports whether the station belongs to a hub interchange group
func (s *Station) IsHub() bool {
	return s.HubCode != nil && *s.HubCode != ""
}

// StationConnection is a directed adjacency edge between two stations for a
// specific line. At most one edge exists per (from, to, line) triple.
type StationConnection struct {
	ID            int64  `json:"id" db:"id"`
	FromStationID string `json:"from_station_id" db:"from_station_id"`
	ToStationID   string `json:"to_station_id" db:"to_station_id"`
	LineID        string `json:"line_id" db:"line_id"`
}
