package jobs

import (
	"rentbill-backend/internal/config"
	"rentbill-backend/internal/logger"
	"rentbill-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	billing service.BillingService
	config  *config.Config
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(billing service.BillingService, cfg *config.Config) *JobRunner {
	return &JobRunner{
		billing: billing,
		config:  cfg,
	}
}

// Config exposes the configuration the runner was built with.
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// RunAllNightlyJobs runs all nightly jobs (for manual execution)
func (jr *JobRunner) RunAllNightlyJobs() {
	jr.RecalculateOpenPeriods()
}
