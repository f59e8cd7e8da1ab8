package usecase

import (
	"context"
	"log/slog"
	"time"

	"QuestionScanner/internal/logging"
	"QuestionScanner/internal/ports"
)

// Scheduler wires the cron driver with the ingestion pipeline.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	opts     RunOptions
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring ingestion runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, opts RunOptions, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scheduler{driver: driver, pipeline: pipeline, opts: opts, logger: logger}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}
	return s.driver.Start(ctx, func(trigger time.Time) {
		s.runOnce(ctx, trigger)
	})
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}

func (s *Scheduler) runOnce(ctx context.Context, trigger time.Time) {
	if ctx.Err() != nil {
		return
	}
	report, err := s.pipeline.Run(ctx, s.opts)
	if err != nil {
		s.logger.Error("scheduled run failed", "trigger", trigger, "run_id", report.RunID, "error", err)
		return
	}
	s.logger.Info("scheduled run done", "trigger", trigger, "run_id", report.RunID, "created", report.Created)
}
