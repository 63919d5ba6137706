package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"rental-ledger-backend/internal/jobs"
	"rental-ledger-backend/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a scheduler firing in loc with seconds precision.
// A nil loc means UTC.
func NewScheduler(jobRunner *jobs.JobRunner, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	s.registerJobs()
	return s
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() {
	cfg := s.jobs.Config().Scheduler

	registered := 0
	for _, job := range []struct {
		name     string
		schedule string
		fn       func()
	}{
		{"DailyLedgerSummary", cfg.DailySummary, s.jobs.DailyLedgerSummary},
		{"StaleRentalReport", cfg.StaleRentals, s.jobs.StaleRentalReport},
	} {
		if _, err := s.cron.AddFunc(job.schedule, job.fn); err != nil {
			logger.Error("Failed to register job", "job", job.name, "schedule", job.schedule, "error", err)
			continue
		}
		registered++
	}

	logger.Info("Cron jobs registered", "count", registered)
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler, waiting for running jobs
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// JobCount returns how many jobs were registered
func (s *Scheduler) JobCount() int {
	return len(s.cron.Entries())
}
