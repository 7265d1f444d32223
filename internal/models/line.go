package models

import (
	"time"
)

// Line represents a transit line (e.g. one underground line)
type Line struct {
	ID              string    `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Mode            string    `json:"mode" db:"mode"`
	TopologyVersion int       `json:"topology_version" db:"topology_version"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// RouteVariant is one named, directional, ordered list of stations served
// together as one continuous service on a line. Variants are replaced
// wholesale each time the line's topology is rebuilt.
type RouteVariant struct {
	ID        int64       `json:"id" db:"id"`
	LineID    string      `json:"line_id" db:"line_id"`
	Name      string      `json:"name" db:"name"`
	Direction string      `json:"direction" db:"direction"`
	Stations  StringArray `json:"stations" db:"stations"`
}

// ContainsBoth reports whether both station ids appear in this variant's
// ordered station list. Co-occurrence in one variant is the branch-aware
// connectivity test: adjacency edges alone cannot tell two branches of a
// forked line apart.
func (v *RouteVariant) ContainsBoth(stationA, stationB string) bool {
	return v.Stations.Contains(stationA) && v.Stations.Contains(stationB)
}
