package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/transitwatch/journey-alert-backend/internal/config"
	"github.com/transitwatch/journey-alert-backend/internal/models"
)

// Statuses at or above this severity code mean normal service and are not
// reported as disruptions.
const goodServiceSeverity = 10

// Client talks to the upstream transit feed. It is read-only from this
// service's perspective and caches responses per URL with a TTL taken from
// the feed's Cache-Control hints, falling back to configured defaults.
type Client struct {
	baseURL            string
	httpClient         *http.Client
	cache              *responseCache
	topologyCacheTTL   time.Duration
	disruptionCacheTTL time.Duration
	logger             *logrus.Logger
	now                func() time.Time
}

// NewClient creates a new feed client
func NewClient(cfg config.FeedConfig, logger *logrus.Logger) *Client {
	return &Client{
		baseURL:            strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:         &http.Client{Timeout: cfg.Timeout},
		cache:              newResponseCache(),
		topologyCacheTTL:   cfg.TopologyCacheTTL,
		disruptionCacheTTL: cfg.DisruptionCacheTTL,
		logger:             logger,
		now:                time.Now,
	}
}

// ListLines fetches all lines for the given transport modes
func (c *Client) ListLines(ctx context.Context, modes []string) ([]Line, error) {
	endpoint := fmt.Sprintf("/Line/Mode/%s", url.PathEscape(strings.Join(modes, ",")))

	var resources []lineResource
	if err := c.getJSON(ctx, endpoint, c.topologyCacheTTL, &resources); err != nil {
		return nil, fmt.Errorf("failed to list lines for modes %v: %w", modes, err)
	}

	lines := make([]Line, 0, len(resources))
	for _, res := range resources {
		if res.ID == "" {
			continue
		}
		lines = append(lines, Line{ID: res.ID, Name: res.Name, Mode: res.ModeName})
	}
	return lines, nil
}

// ListStations fetches the full stop list of a line. With includeAllOperators
// set, stations served by non-primary operators are included as well.
func (c *Client) ListStations(ctx context.Context, lineID string, includeAllOperators bool) ([]Station, error) {
	endpoint := fmt.Sprintf("/Line/%s/StopPoints", url.PathEscape(lineID))
	if includeAllOperators {
		endpoint += "?tflOperatedNationalRailStationsOnly=false"
	}

	var resources []stopPointResource
	if err := c.getJSON(ctx, endpoint, c.topologyCacheTTL, &resources); err != nil {
		return nil, fmt.Errorf("failed to list stations for line %s: %w", lineID, err)
	}

	stations := make([]Station, 0, len(resources))
	for _, res := range resources {
		id := res.externalID()
		if id == "" {
			continue
		}
		stations = append(stations, Station{
			ID:        id,
			Name:      res.CommonName,
			Latitude:  res.Lat,
			Longitude: res.Lon,
			Modes:     res.Modes,
			HubCode:   res.HubNaptanCode,
			HubName:   res.HubName,
		})
	}
	return stations, nil
}

// GetRouteSequence fetches a line's ordered route data for one direction
// ("inbound" or "outbound")
func (c *Client) GetRouteSequence(ctx context.Context, lineID, direction string) (*RouteSequence, error) {
	endpoint := fmt.Sprintf("/Line/%s/Route/Sequence/%s", url.PathEscape(lineID), url.PathEscape(direction))

	var resource routeSequenceResource
	if err := c.getJSON(ctx, endpoint, c.topologyCacheTTL, &resource); err != nil {
		return nil, fmt.Errorf("failed to get route sequence for line %s %s: %w", lineID, direction, err)
	}

	sequence := &RouteSequence{LineID: lineID, Direction: direction}
	for _, route := range resource.OrderedLineRoutes {
		if len(route.NaptanIDs) == 0 {
			continue
		}
		serviceType := ""
		if route.ServiceType != nil {
			serviceType = *route.ServiceType
		}
		sequence.Variants = append(sequence.Variants, RouteVariant{
			Name:        route.Name,
			ServiceType: serviceType,
			StationIDs:  route.NaptanIDs,
		})
	}
	return sequence, nil
}

// ListDisruptions fetches the current disruptions for a set of lines. Only
// statuses below good-service severity are reported. Affected-station detail
// is flattened from the status's route sections when the feed provides it.
func (c *Client) ListDisruptions(ctx context.Context, lineIDs []string) ([]models.Disruption, error) {
	if len(lineIDs) == 0 {
		return nil, nil
	}
	endpoint := fmt.Sprintf("/Line/%s/Status?detail=true", url.PathEscape(strings.Join(lineIDs, ",")))

	var resources []lineStatusResource
	if err := c.getJSON(ctx, endpoint, c.disruptionCacheTTL, &resources); err != nil {
		return nil, fmt.Errorf("failed to list disruptions for lines %v: %w", lineIDs, err)
	}

	var disruptions []models.Disruption
	for _, res := range resources {
		for _, status := range res.LineStatuses {
			if status.StatusSeverity >= goodServiceSeverity {
				continue
			}
			disruption := models.Disruption{
				LineID:              res.ID,
				SeverityCode:        status.StatusSeverity,
				SeverityDescription: status.StatusSeverityDescription,
			}
			if status.Reason != nil {
				disruption.Reason = *status.Reason
			}
			disruption.AffectedStationIDs = affectedStationIDs(status.AffectedRoutes)
			disruptions = append(disruptions, disruption)
		}
	}
	return disruptions, nil
}

// affectedStationIDs flattens route sections into a de-duplicated station id
// list, skipping entries without a resolvable stop point
func affectedStationIDs(routes []affectedRouteResource) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, route := range routes {
		for _, entry := range route.RouteSectionNaptanEntrySequence {
			if entry.StopPoint == nil {
				continue
			}
			id := entry.StopPoint.externalID()
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// getJSON performs a cached GET against the feed and decodes the body
func (c *Client) getJSON(ctx context.Context, endpoint string, defaultTTL time.Duration, dest interface{}) error {
	fullURL := c.baseURL + endpoint
	now := c.now()

	if body, ok := c.cache.get(fullURL, now); ok {
		return json.Unmarshal(body, dest)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feed returned status %d for %s", resp.StatusCode, endpoint)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read feed response: %w", err)
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to decode feed response: %w", err)
	}

	ttl := cacheTTL(resp.Header, defaultTTL)
	c.cache.set(fullURL, body, ttl, now)

	c.logger.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"ttl":      ttl.String(),
	}).Debug("Cached feed response")

	return nil
}
