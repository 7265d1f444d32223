package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/transitwatch/journey-alert-backend/internal/models"
	"github.com/transitwatch/journey-alert-backend/pkg/notify"
)

// MonitorableSource provides the subscriptions that carry active windows
type MonitorableSource interface {
	GetMonitorable() ([]models.Subscription, error)
}

// DisruptionFeed provides the current disruptions for a set of lines
type DisruptionFeed interface {
	ListDisruptions(ctx context.Context, lineIDs []string) ([]models.Disruption, error)
}

// ProcessReport summarizes one matching pass
type ProcessReport struct {
	Checked    int `json:"checked"`
	AlertsSent int `json:"alerts_sent"`
	Errors     int `json:"errors"`
}

// MatchResult is one subscription's match against the live disruptions
type MatchResult struct {
	Disruptions      []models.Disruption
	AffectedStations []string
}

// MatchingEngine evaluates every monitorable subscription against the live
// disruption feed once per polling tick
type MatchingEngine struct {
	subscriptions MonitorableSource
	feed          DisruptionFeed
	dedup         *DedupStore
	dispatcher    notify.Dispatcher
	workers       int
	logger        *logrus.Logger
}

// NewMatchingEngine creates a new MatchingEngine
func NewMatchingEngine(
	subscriptions MonitorableSource,
	disruptionFeed DisruptionFeed,
	dedup *DedupStore,
	dispatcher notify.Dispatcher,
	workers int,
	logger *logrus.Logger,
) *MatchingEngine {
	if workers < 1 {
		workers = 1
	}
	return &MatchingEngine{
		subscriptions: subscriptions,
		feed:          disruptionFeed,
		dedup:         dedup,
		dispatcher:    dispatcher,
		workers:       workers,
		logger:        logger,
	}
}

// ProcessAll runs one matching pass. Subscriptions are processed on a bounded
// worker pool; the only shared mutable state per subscription is its own
// dedup record, so no cross-subscription locking is needed. Per-subscription
// failures are counted and never abort the batch.
func (e *MatchingEngine) ProcessAll(ctx context.Context, nowUTC time.Time) (*ProcessReport, error) {
	subs, err := e.subscriptions.GetMonitorable()
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	var checked, alertsSent, errCount atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i := range subs {
		sub := subs[i]
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					errCount.Add(1)
					e.logger.WithField("subscription", sub.ID).Errorf("Panic while matching: %v", r)
				}
			}()

			checked.Add(1)
			sent, err := e.processOne(ctx, &sub, nowUTC)
			if err != nil {
				errCount.Add(1)
				e.logger.WithError(err).WithField("subscription", sub.ID).Error("Matching failed")
				return nil
			}
			if sent {
				alertsSent.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &ProcessReport{
		Checked:    int(checked.Load()),
		AlertsSent: int(alertsSent.Load()),
		Errors:     int(errCount.Load()),
	}

	e.logger.WithFields(logrus.Fields{
		"checked":     report.Checked,
		"alerts_sent": report.AlertsSent,
		"errors":      report.Errors,
	}).Info("Matching pass finished")

	return report, nil
}

// processOne evaluates a single subscription; returns whether an alert was
// dispatched
func (e *MatchingEngine) processOne(ctx context.Context, sub *models.Subscription, nowUTC time.Time) (bool, error) {
	window := ActiveWindowAt(sub, nowUTC)
	if window == nil {
		// Outside every window: no disruption fetch at all, the upstream
		// call is the expensive part of the tick.
		return false, nil
	}

	disruptions, err := e.feed.ListDisruptions(ctx, sub.LineIDs())
	if err != nil {
		return false, fmt.Errorf("failed to fetch disruptions: %w", err)
	}

	match := Match(sub, disruptions)
	if len(match.Disruptions) == 0 {
		return false, nil
	}

	hash := contentHash(match.Disruptions)
	if prior, ok := e.dedup.Get(sub.ID); ok && prior == hash {
		return false, nil
	}

	if err := e.dispatcher.SendAlert(ctx, sub.ID, match.Disruptions); err != nil {
		// Leave the dedup record alone so the alert is retried next tick
		return false, fmt.Errorf("failed to dispatch alert: %w", err)
	}

	e.dedup.Set(sub.ID, hash, WindowRemaining(window, nowUTC))

	e.logger.WithFields(logrus.Fields{
		"subscription":      sub.ID,
		"disruptions":       len(match.Disruptions),
		"affected_stations": match.AffectedStations,
	}).Info("Alert dispatched")

	return true, nil
}

// Match intersects a subscription's traversed (line, station) pairs with the
// disruptions' affected stations. A disruption carrying station detail
// matches only if one of its stations is traversed on that line; a
// line-level disruption without detail matches every subscription riding the
// line.
func Match(sub *models.Subscription, disruptions []models.Disruption) *MatchResult {
	pairSet := make(map[models.LinePair]bool)
	lineSet := make(map[string]bool)
	for _, pair := range sub.TraversedPairs() {
		pairSet[pair] = true
		lineSet[pair.LineID] = true
	}

	result := &MatchResult{}
	seenStations := make(map[string]bool)

	for _, disruption := range disruptions {
		if !lineSet[disruption.LineID] {
			continue
		}

		if !disruption.HasStationDetail() {
			result.Disruptions = append(result.Disruptions, disruption)
			continue
		}

		matched := false
		for _, stationID := range disruption.AffectedStationIDs {
			if !pairSet[models.LinePair{LineID: disruption.LineID, StationID: stationID}] {
				continue
			}
			matched = true
			if !seenStations[stationID] {
				seenStations[stationID] = true
				result.AffectedStations = append(result.AffectedStations, stationID)
			}
		}
		if matched {
			result.Disruptions = append(result.Disruptions, disruption)
		}
	}

	sort.Strings(result.AffectedStations)
	return result
}

// contentHash computes a stable hash over the matched disruption set so an
// unchanged set within one active window is alerted exactly once
func contentHash(disruptions []models.Disruption) string {
	tuples := make([]string, 0, len(disruptions))
	for _, d := range disruptions {
		tuples = append(tuples, d.LineID+"|"+d.SeverityDescription+"|"+d.Reason)
	}
	sort.Strings(tuples)

	sum := sha256.Sum256([]byte(strings.Join(tuples, "\n")))
	return hex.EncodeToString(sum[:])
}
