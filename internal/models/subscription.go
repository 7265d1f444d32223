package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Leg is one step of a subscribed journey: a station plus the line ridden
// onward from it. The line is nil only on the final leg (arrival, no onward
// travel).
type Leg struct {
	StationID string  `json:"station_id"`
	LineID    *string `json:"line_id,omitempty"`
}

// LegList is an ordered leg sequence stored as a JSONB column
type LegList []Leg

// Value implements the driver.Valuer interface
func (l LegList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements the sql.Scanner interface
func (l *LegList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into LegList", src)
	}
	return json.Unmarshal(b, l)
}

// ActiveWindow is a day-of-week + local time-of-day range (with timezone)
// during which a subscription should be monitored. Days hold weekday names as
// produced by time.Weekday.String() ("Monday", ...). Start and End are local
// times in "15:04" form; both boundaries are inclusive.
type ActiveWindow struct {
	Days     []string `json:"days"`
	Start    string   `json:"start"`
	End      string   `json:"end"`
	Timezone string   `json:"timezone"`
}

// WindowList is a set of active windows stored as a JSONB column
type WindowList []ActiveWindow

// Value implements the driver.Valuer interface
func (w WindowList) Value() (driver.Value, error) {
	if w == nil {
		return nil, nil
	}
	return json.Marshal(w)
}

// Scan implements the sql.Scanner interface
func (w *WindowList) Scan(src interface{}) error {
	if src == nil {
		*w = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into WindowList", src)
	}
	return json.Unmarshal(b, w)
}

// Subscription is a user-defined multi-leg journey monitored for disruptions
type Subscription struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Legs      LegList    `json:"legs" db:"legs"`
	Windows   WindowList `json:"windows" db:"windows"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// LinePair identifies a (line, station) pair traversed by a journey
type LinePair struct {
	LineID    string
	StationID string
}

// LineIDs returns the distinct line ids the journey rides, in leg order
func (s *Subscription) LineIDs() []string {
	seen := make(map[string]bool)
	var lines []string
	for _, leg := range s.Legs {
		if leg.LineID == nil {
			continue
		}
		if !seen[*leg.LineID] {
			seen[*leg.LineID] = true
			lines = append(lines, *leg.LineID)
		}
	}
	return lines
}

// TraversedPairs returns one (line, station) pair per station the journey
// actually visits: each non-nil-line leg pairs its own station with its line,
// and a nil-line terminal leg pairs its station with the previous leg's line
// (the line ridden to arrive there).
func (s *Subscription) TraversedPairs() []LinePair {
	var pairs []LinePair
	for i, leg := range s.Legs {
		switch {
		case leg.LineID != nil:
			pairs = append(pairs, LinePair{LineID: *leg.LineID, StationID: leg.StationID})
		case i > 0 && s.Legs[i-1].LineID != nil:
			pairs = append(pairs, LinePair{LineID: *s.Legs[i-1].LineID, StationID: leg.StationID})
		}
	}
	return pairs
}
