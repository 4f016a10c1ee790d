package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"NewsLens/internal/ports"
)

// Scheduler wires the interval driver with the enrichment use case.
type Scheduler struct {
	driver     ports.Scheduler
	enrichment *Enrichment
	logger     *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring enrichment passes.
func NewScheduler(driver ports.Scheduler, enrichment *Enrichment, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, enrichment: enrichment, logger: logger}
}

// Start registers the enrichment pass with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.enrichment == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if _, err := s.enrichment.RunPass(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("scheduled enrichment failed", "trigger", trigger, "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
