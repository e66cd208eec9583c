package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"rentbill-backend/internal/jobs"
	"rentbill-backend/internal/logger"
)

// Scheduler runs the billing jobs on their cron schedules.
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a scheduler and registers every configured job.
// An invalid cron expression is returned rather than logged so a
// misconfigured deployment fails at startup.
func NewScheduler(jobRunner *jobs.JobRunner) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) registerJobs() error {
	cfg := s.jobs.Config().Scheduler

	// Nightly: pick up timesheets verified since the last calculation
	if _, err := s.cron.AddFunc(cfg.RecalculateOpenPeriods, s.jobs.RecalculateOpenPeriods); err != nil {
		logger.Error("Failed to register RecalculateOpenPeriods job", "schedule", cfg.RecalculateOpenPeriods, "error", err)
		return err
	}

	logger.Info("All cron jobs registered successfully", "count", len(s.cron.Entries()))
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// Entries reports the registered jobs and their next run times.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}
