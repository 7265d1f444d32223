package services

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/transitwatch/journey-alert-backend/internal/models"
)

// StationGetter looks up stations by external id
type StationGetter interface {
	GetByID(stationID string) (*models.Station, error)
}

// LineGetter looks up lines and their stored route variants
type LineGetter interface {
	GetByID(lineID string) (*models.Line, error)
	GetVariants(lineID string) ([]models.RouteVariant, error)
}

// ValidationResult is the outcome of validating a proposed journey. A
// rejection is a result, not an error; errors are reserved for lookups that
// fail (unknown ids, storage problems).
type ValidationResult struct {
	OK          bool   `json:"ok"`
	Message     string `json:"message"`
	BadLegIndex *int   `json:"bad_leg_index,omitempty"`
}

// RouteValidator checks that a proposed ordered sequence of (station, line)
// legs is actually traversable on the real network
type RouteValidator struct {
	stations StationGetter
	lines    LineGetter
	minLegs  int
	maxLegs  int
	logger   *logrus.Logger
}

// NewRouteValidator creates a new RouteValidator
func NewRouteValidator(
	stations StationGetter,
	lines LineGetter,
	minLegs, maxLegs int,
	logger *logrus.Logger,
) *RouteValidator {
	return &RouteValidator{
		stations: stations,
		lines:    lines,
		minLegs:  minLegs,
		maxLegs:  maxLegs,
		logger:   logger,
	}
}

// ValidateRoute runs the route checks in order; the first failing check wins.
// Connectivity of a leg pair means both stations appear together in at least
// one stored route variant of the earlier leg's line — plain adjacency cannot
// tell apart the branches of a forked line, variant membership can.
func (v *RouteValidator) ValidateRoute(legs models.LegList) (*ValidationResult, error) {
	if len(legs) < v.minLegs {
		return reject(fmt.Sprintf("a journey needs at least %d legs", v.minLegs), nil), nil
	}

	if len(legs) > v.maxLegs {
		return reject(fmt.Sprintf("a journey may have at most %d legs, got %d", v.maxLegs, len(legs)), nil), nil
	}

	seen := make(map[string]bool, len(legs))
	for i, leg := range legs {
		if seen[leg.StationID] {
			station, err := v.stations.GetByID(leg.StationID)
			if err != nil {
				return nil, fmt.Errorf("failed to look up station %s: %w", leg.StationID, err)
			}
			return reject(fmt.Sprintf("station %q appears more than once in the journey", station.Name), &i), nil
		}
		seen[leg.StationID] = true
	}

	for i, leg := range legs {
		if i == len(legs)-1 {
			continue
		}
		if leg.LineID == nil {
			return reject(fmt.Sprintf("leg %d has no line; only the final leg may omit one", i), &i), nil
		}
	}

	variantCache := make(map[string][]models.RouteVariant)

	for i := 0; i+1 < len(legs); i++ {
		lineID := *legs[i].LineID

		line, err := v.lines.GetByID(lineID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up line %s: %w", lineID, err)
		}

		from, err := v.stations.GetByID(legs[i].StationID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up station %s: %w", legs[i].StationID, err)
		}
		to, err := v.stations.GetByID(legs[i+1].StationID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up station %s: %w", legs[i+1].StationID, err)
		}

		variants, ok := variantCache[line.ID]
		if !ok {
			variants, err = v.lines.GetVariants(line.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to load route variants for line %s: %w", line.ID, err)
			}
			variantCache[line.ID] = variants
		}

		if rideTogether(variants, from.ID, to.ID) {
			continue
		}

		if from.ServesLine(line.ID) && to.ServesLine(line.ID) {
			return reject(fmt.Sprintf(
				"%s and %s are on different branches of the %s line; no single service calls at both",
				from.Name, to.Name, line.Name), &i), nil
		}
		return reject(fmt.Sprintf(
			"no connection from %s to %s on the %s line",
			from.Name, to.Name, line.Name), &i), nil
	}

	return &ValidationResult{OK: true, Message: "route is valid"}, nil
}

func rideTogether(variants []models.RouteVariant, stationA, stationB string) bool {
	for i := range variants {
		if variants[i].ContainsBoth(stationA, stationB) {
			return true
		}
	}
	return false
}

func reject(message string, badLegIndex *int) *ValidationResult {
	return &ValidationResult{OK: false, Message: message, BadLegIndex: badLegIndex}
}
