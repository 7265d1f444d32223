package feed

// Wire types for the upstream transit feed. Every field the feed may omit is
// a pointer or slice; extraction fails closed (skips) instead of erroring.

type lineResource struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ModeName string `json:"modeName"`
}

type stopPointResource struct {
	NaptanID      string   `json:"naptanId"`
	ID            string   `json:"id"`
	CommonName    string   `json:"commonName"`
	Lat           float64  `json:"lat"`
	Lon           float64  `json:"lon"`
	Modes         []string `json:"modes"`
	HubNaptanCode *string  `json:"hubNaptanCode"`
	HubName       *string  `json:"hubName"`
}

func (s *stopPointResource) externalID() string {
	if s.NaptanID != "" {
		return s.NaptanID
	}
	return s.ID
}

type routeSequenceResource struct {
	LineID            string                 `json:"lineId"`
	Direction         string                 `json:"direction"`
	OrderedLineRoutes []orderedRouteResource `json:"orderedLineRoutes"`
}

type orderedRouteResource struct {
	Name        string   `json:"name"`
	ServiceType *string  `json:"serviceType"`
	NaptanIDs   []string `json:"naptanIds"`
}

type lineStatusResource struct {
	ID           string           `json:"id"`
	LineStatuses []statusResource `json:"lineStatuses"`
}

type statusResource struct {
	StatusSeverity            int                     `json:"statusSeverity"`
	StatusSeverityDescription string                  `json:"statusSeverityDescription"`
	Reason                    *string                 `json:"reason"`
	AffectedRoutes            []affectedRouteResource `json:"affectedRoutes"`
}

type affectedRouteResource struct {
	RouteSectionNaptanEntrySequence []naptanEntryResource `json:"routeSectionNaptanEntrySequence"`
}

type naptanEntryResource struct {
	StopPoint *stopPointResource `json:"stopPoint"`
}

// Line is a transit line as reported by the feed
type Line struct {
	ID   string
	Name string
	Mode string
}

// Station is a stop point as reported by the feed
type Station struct {
	ID        string
	Name      string
	Latitude  float64
	Longitude float64
	Modes     []string
	HubCode   *string
	HubName   *string
}

// RouteVariant is one ordered service pattern within a route sequence
type RouteVariant struct {
	Name        string
	ServiceType string
	StationIDs  []string
}

// RouteSequence is a line's ordered route data for one direction
type RouteSequence struct {
	LineID    string
	Direction string
	Variants  []RouteVariant
}
