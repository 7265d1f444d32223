package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/transitwatch/journey-alert-backend/internal/database"
	"github.com/transitwatch/journey-alert-backend/internal/feed"
	"github.com/transitwatch/journey-alert-backend/internal/models"
)

// ErrNoStations is returned when a rebuild fetches zero stations. That is an
// upstream-data problem, not partial success, and the rebuild aborts before
// touching connections.
var ErrNoStations = errors.New("rebuild fetched zero stations")

// Only variants of the regular (non-exceptional) service type are retained
const regularServiceType = "Regular"

var routeDirections = []string{"inbound", "outbound"}

// TopologyFeed is the upstream feed surface the graph builder consumes
type TopologyFeed interface {
	ListLines(ctx context.Context, modes []string) ([]feed.Line, error)
	ListStations(ctx context.Context, lineID string, includeAllOperators bool) ([]feed.Station, error)
	GetRouteSequence(ctx context.Context, lineID, direction string) (*feed.RouteSequence, error)
}

// StationStore is the station persistence surface the graph builder mutates
type StationStore interface {
	Upsert(station *models.Station) error
	GetByID(stationID string) (*models.Station, error)
	CountHubs() (int64, error)
}

// GraphStore commits a staged graph atomically
type GraphStore interface {
	Replace(staged *database.StagedGraph) error
}

// RebuildResult summarizes one graph rebuild
type RebuildResult struct {
	Lines       int   `json:"lines"`
	Stations    int   `json:"stations"`
	Connections int   `json:"connections"`
	Variants    int   `json:"variants"`
	Hubs        int64 `json:"hubs"`
	Errors      int   `json:"errors"`
}

// GraphBuilder turns the upstream feed's per-line route sequences into the
// station adjacency graph and per-line route variant lists
type GraphBuilder struct {
	feed     TopologyFeed
	stations StationStore
	graph    GraphStore
	modes    []string
	logger   *logrus.Logger
}

// NewGraphBuilder creates a new GraphBuilder
func NewGraphBuilder(
	topologyFeed TopologyFeed,
	stations StationStore,
	graph GraphStore,
	modes []string,
	logger *logrus.Logger,
) *GraphBuilder {
	return &GraphBuilder{
		feed:     topologyFeed,
		stations: stations,
		graph:    graph,
		modes:    modes,
		logger:   logger,
	}
}

// RebuildGraph fetches the configured modes' lines, upserts their stations,
// derives bidirectional adjacency edges and regular-service route variants,
// and commits everything as one atomic replace. Failures local to one line
// exclude that line from the replace set entirely, so its prior edges and
// variants stay intact until a later rebuild fetches it cleanly; a fetch
// yielding zero stations aborts with ErrNoStations before any connection is
// mutated.
func (b *GraphBuilder) RebuildGraph(ctx context.Context) (*RebuildResult, error) {
	lines, err := b.feed.ListLines(ctx, b.modes)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lines: %w", err)
	}

	result := &RebuildResult{Lines: len(lines)}
	modeSet := make(map[string]bool, len(b.modes))
	for _, mode := range b.modes {
		modeSet[mode] = true
	}

	// Stations upserted (or confirmed present) during this pass
	known := make(map[string]bool)

	// Lines whose upstream fetches failed. They must not reach the staged
	// replace: committing a line with none of its data would wipe its prior
	// topology instead of degrading it.
	failed := make(map[string]bool)

	for _, line := range lines {
		stations, err := b.feed.ListStations(ctx, line.ID, true)
		if err != nil {
			b.logger.WithError(err).WithField("line", line.ID).Error("Failed to fetch stations, keeping line's prior topology")
			failed[line.ID] = true
			result.Errors++
			continue
		}

		for _, st := range stations {
			if !servesConfiguredMode(st.Modes, modeSet) {
				continue
			}
			station := &models.Station{
				ID:        st.ID,
				Name:      st.Name,
				Latitude:  st.Latitude,
				Longitude: st.Longitude,
				Lines:     models.StringArray{line.ID},
				HubCode:   st.HubCode,
				HubName:   st.HubName,
			}
			if err := b.stations.Upsert(station); err != nil {
				b.logger.WithError(err).WithField("station", st.ID).Error("Failed to upsert station")
				result.Errors++
				continue
			}
			if !known[st.ID] {
				known[st.ID] = true
				result.Stations++
			}
		}
	}

	if len(known) == 0 {
		return nil, ErrNoStations
	}

	staged := &database.StagedGraph{}

	// Pending-set keyed by (from, to, line); inbound and outbound sequences
	// overlap, so the same directed edge is derived more than once per pass.
	pending := make(map[string]bool)

	for _, line := range lines {
		if failed[line.ID] {
			continue
		}

		var connections []models.StationConnection
		var variants []models.RouteVariant

		for _, direction := range routeDirections {
			sequence, err := b.feed.GetRouteSequence(ctx, line.ID, direction)
			if err != nil {
				b.logger.WithError(err).WithFields(logrus.Fields{
					"line":      line.ID,
					"direction": direction,
				}).Error("Failed to fetch route sequence, keeping line's prior topology")
				failed[line.ID] = true
				result.Errors++
				break
			}

			for _, variant := range sequence.Variants {
				for i := 0; i+1 < len(variant.StationIDs); i++ {
					from, to := variant.StationIDs[i], variant.StationIDs[i+1]
					if !b.stationKnown(known, from) || !b.stationKnown(known, to) {
						b.logger.WithFields(logrus.Fields{
							"line": line.ID,
							"from": from,
							"to":   to,
						}).Warn("Skipping connection with unknown station")
						continue
					}
					connections = appendEdge(connections, pending, from, to, line.ID)
					connections = appendEdge(connections, pending, to, from, line.ID)
				}

				if variant.ServiceType == regularServiceType {
					variants = append(variants, models.RouteVariant{
						LineID:    line.ID,
						Name:      variant.Name,
						Direction: direction,
						Stations:  models.StringArray(variant.StationIDs),
					})
				}
			}
		}

		if failed[line.ID] {
			continue
		}

		staged.Lines = append(staged.Lines, models.Line{ID: line.ID, Name: line.Name, Mode: line.Mode})
		staged.Connections = append(staged.Connections, connections...)
		staged.Variants = append(staged.Variants, variants...)
	}

	if len(staged.Lines) == 0 {
		b.logger.Warn("No line fetched cleanly, keeping prior graph")
		return result, nil
	}

	if err := b.graph.Replace(staged); err != nil {
		return nil, fmt.Errorf("failed to commit graph: %w", err)
	}

	result.Connections = len(staged.Connections)
	result.Variants = len(staged.Variants)

	hubs, err := b.stations.CountHubs()
	if err != nil {
		b.logger.WithError(err).Error("Failed to count hubs")
		result.Errors++
	} else {
		result.Hubs = hubs
	}

	b.logger.WithFields(logrus.Fields{
		"lines":       result.Lines,
		"stations":    result.Stations,
		"connections": result.Connections,
		"variants":    result.Variants,
		"hubs":        result.Hubs,
		"errors":      result.Errors,
	}).Info("Graph rebuild committed")

	return result, nil
}

// stationKnown checks the in-pass set first, then the store. A station can be
// absent from this pass (its line's stop fetch failed) yet exist from an
// earlier rebuild.
func (b *GraphBuilder) stationKnown(known map[string]bool, stationID string) bool {
	if known[stationID] {
		return true
	}
	if _, err := b.stations.GetByID(stationID); err == nil {
		known[stationID] = true
		return true
	}
	return false
}

func servesConfiguredMode(modes []string, configured map[string]bool) bool {
	for _, mode := range modes {
		if configured[mode] {
			return true
		}
	}
	return false
}

func appendEdge(
	connections []models.StationConnection,
	pending map[string]bool,
	from, to, lineID string,
) []models.StationConnection {
	key := from + "|" + to + "|" + lineID
	if pending[key] {
		return connections
	}
	pending[key] = true
	return append(connections, models.StationConnection{
		FromStationID: from,
		ToStationID:   to,
		LineID:        lineID,
	})
}
