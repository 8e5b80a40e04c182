package usecase

import (
	"context"
	"log/slog"
	"time"

	"OCRPortal/internal/logging"
	"OCRPortal/internal/ports"
)

// Scheduler wires the interval driver with the janitor use case.
type Scheduler struct {
	driver  ports.Scheduler
	janitor *Janitor
	logger  *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring sweeps.
func NewScheduler(driver ports.Scheduler, janitor *Janitor, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scheduler{driver: driver, janitor: janitor, logger: logger}
}

// Start registers the janitor with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.janitor == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if _, err := s.janitor.Sweep(ctx, trigger); err != nil && ctx.Err() == nil {
			s.logger.Error("upload sweep failed", "error", err)
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
