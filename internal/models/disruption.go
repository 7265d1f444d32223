package models

// Disruption is a live service disruption on one line, as reported by the
// upstream feed. AffectedStationIDs is empty when the feed only reports
// line-level severity without station detail.
type Disruption struct {
	LineID              string   `json:"line_id"`
	SeverityCode        int      `json:"severity_code"`
	SeverityDescription string   `json:"severity_description"`
	Reason              string   `json:"reason,omitempty"`
	AffectedStationIDs  []string `json:"affected_station_ids,omitempty"`
}

// HasStationDetail reports whether the feed supplied a fine-grained
// affected-station list for this disruption
func (d *Disruption) HasStationDetail() bool {
	return len(d.AffectedStationIDs) > 0
}
