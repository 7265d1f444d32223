package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CronService manages the scheduled background jobs: the daily topology
// rebuild, the disruption matching tick and the stale-index sweep. Each job
// invocation runs to completion or fails atomically; a failed rebuild leaves
// the prior graph in place.
type CronService struct {
	cron         *cron.Cron
	graphBuilder *GraphBuilder
	matcher      *MatchingEngine
	index        *SubscriptionIndex
	dedup        *DedupStore
	pollInterval time.Duration
	jobTimeout   time.Duration
	logger       *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(
	graphBuilder *GraphBuilder,
	matcher *MatchingEngine,
	index *SubscriptionIndex,
	dedup *DedupStore,
	pollInterval time.Duration,
	logger *logrus.Logger,
) *CronService {
	return &CronService{
		cron:         cron.New(cron.WithSeconds()),
		graphBuilder: graphBuilder,
		matcher:      matcher,
		index:        index,
		dedup:        dedup,
		pollInterval: pollInterval,
		jobTimeout:   10 * time.Minute,
		logger:       logger,
	}
}

// Start schedules and starts all jobs
func (s *CronService) Start() error {
	s.logger.Info("Starting cron service")

	// Matching tick at the configured polling interval
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.pollInterval), s.matchingJob); err != nil {
		return fmt.Errorf("failed to schedule matching job: %w", err)
	}
	s.logger.Infof("Scheduled: disruption matching (every %s)", s.pollInterval)

	// Topology rebuild daily at 3 AM (second minute hour day month weekday)
	if _, err := s.cron.AddFunc("0 0 3 * * *", s.rebuildJob); err != nil {
		return fmt.Errorf("failed to schedule rebuild job: %w", err)
	}
	s.logger.Info("Scheduled: topology rebuild (daily at 3:00 AM)")

	// Stale index sweep hourly
	if _, err := s.cron.AddFunc("0 30 * * * *", s.sweepJob); err != nil {
		return fmt.Errorf("failed to schedule sweep job: %w", err)
	}
	s.logger.Info("Scheduled: stale index sweep (hourly)")

	s.cron.Start()
	s.logger.Info("Cron service started")

	return nil
}

// Stop stops all jobs and waits for running ones to finish
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) matchingJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	start := time.Now()
	report, err := s.matcher.ProcessAll(ctx, start.UTC())
	if err != nil {
		s.logger.WithError(err).Error("Matching pass failed")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"checked":     report.Checked,
		"alerts_sent": report.AlertsSent,
		"errors":      report.Errors,
		"duration":    time.Since(start).String(),
	}).Info("Matching tick done")

	s.dedup.Purge()
}

func (s *CronService) rebuildJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.graphBuilder.RebuildGraph(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Topology rebuild failed, prior graph left intact")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"lines":       result.Lines,
		"stations":    result.Stations,
		"connections": result.Connections,
		"duration":    time.Since(start).String(),
	}).Info("Topology rebuild done")

	// Topology versions advanced; re-index affected subscriptions now rather
	// than waiting for the hourly sweep.
	if _, err := s.index.SweepStale(); err != nil {
		s.logger.WithError(err).Error("Post-rebuild index sweep failed")
	}
}

func (s *CronService) sweepJob() {
	if _, err := s.index.SweepStale(); err != nil {
		s.logger.WithError(err).Error("Stale index sweep failed")
	}
}

// RunMatchingNow runs the matching job immediately
func (s *CronService) RunMatchingNow() {
	s.logger.Info("Running matching pass now")
	s.matchingJob()
}

// JobStatus returns the scheduled jobs' next and previous run times
func (s *CronService) JobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
