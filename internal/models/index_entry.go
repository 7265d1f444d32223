package models

import (
	"github.com/google/uuid"
)

// IndexEntry is a denormalized (subscription, line, station) row enabling
// O(matches) disruption-to-subscription lookup. TopologyVersion records the
// line's version at index time; entries older than the line's current version
// are stale and trigger a rebuild of their subscription.
type IndexEntry struct {
	ID              int64     `json:"id" db:"id"`
	SubscriptionID  uuid.UUID `json:"subscription_id" db:"subscription_id"`
	LineID          string    `json:"line_id" db:"line_id"`
	StationID       string    `json:"station_id" db:"station_id"`
	TopologyVersion int       `json:"topology_version" db:"topology_version"`
}
