package workflow

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically runs the suspension deadline sweep.
type Sweeper struct {
	controller *Controller
	interval   time.Duration
	logger     *slog.Logger
}

// NewSweeper creates a Sweeper over the controller.
func NewSweeper(controller *Controller, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		controller: controller,
		interval:   interval,
		logger:     logger.With("system", "sweeper"),
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("sweeper started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			if err := s.controller.Sweep(ctx); err != nil {
				s.logger.Error("sweep pass failed", "error", err)
			}
		}
	}
}
