package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/vgnt/transport-portal/internal/config"
)

const cronJobTimeout = 30 * time.Second

// TripStopper ends a running trip
type TripStopper interface {
	Stop(ctx context.Context, driver string) (TrackerSnapshot, error)
}

// CronService manages scheduled background jobs
type CronService struct {
	cron   *cron.Cron
	cfg    config.CronConfig
	trip   TripStopper
	roster *AttendanceRoster
	logger *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(cfg config.CronConfig, trip TripStopper, roster *AttendanceRoster, logger *logrus.Logger) *CronService {
	// Specs carry a seconds field: second minute hour day month weekday
	return &CronService{
		cron:   cron.New(cron.WithSeconds()),
		cfg:    cfg,
		trip:   trip,
		roster: roster,
		logger: logger,
	}
}

// Start schedules the daily jobs and starts the scheduler
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.RosterResetSpec, s.resetRosterJob); err != nil {
		return fmt.Errorf("failed to schedule roster reset job: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.TripCutoffSpec, s.stopForgottenTripJob); err != nil {
		return fmt.Errorf("failed to schedule trip cutoff job: %w", err)
	}

	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"roster_reset": s.cfg.RosterResetSpec,
		"trip_cutoff":  s.cfg.TripCutoffSpec,
	}).Info("Cron service started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Cron service stopped")
}

// resetRosterJob restores the boarding list before the morning run
func (s *CronService) resetRosterJob() {
	s.roster.Reset(DefaultRoster())
	s.logger.WithField("job", "roster_reset").Info("[CRON] Attendance roster reset")
}

// stopForgottenTripJob releases the GPS watch of a trip left running
func (s *CronService) stopForgottenTripJob() {
	ctx, cancel := context.WithTimeout(context.Background(), cronJobTimeout)
	defer cancel()

	start := time.Now()
	snap, err := s.trip.Stop(ctx, "cron")
	if errors.Is(err, ErrNoActiveTrip) {
		return
	}
	if err != nil {
		s.logger.WithError(err).WithField("job", "trip_cutoff").Error("[CRON] Failed to stop trip")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"job":        "trip_cutoff",
		"gps_status": snap.Status,
		"duration":   time.Since(start).String(),
	}).Warn("[CRON] Stopped a trip left running")
}

// JobStatus returns the next and previous run of every scheduled job
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
