// Package worker runs the pool that drains the durable work queue. Workers
// are interchangeable: a unit of work carries its tenant, and the worker
// activates that tenant for exactly the duration of the item.
package worker

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/inkwellhq/inkwell/internal/queue"
)

// Driver executes one claimed unit of work. Implemented by the workflow
// controller.
type Driver interface {
	Drive(ctx context.Context, item *queue.Item) error
}

// Pool polls the queue with a fixed number of workers.
type Pool struct {
	queue             queue.System
	driver            Driver
	count             int
	pollInterval      time.Duration
	visibilityTimeout time.Duration
	logger            *slog.Logger
}

// New creates a Pool. count must be at least 1.
func New(
	q queue.System,
	driver Driver,
	count int,
	pollInterval, visibilityTimeout time.Duration,
	logger *slog.Logger,
) *Pool {
	if count < 1 {
		count = 1
	}
	return &Pool{
		queue:             q,
		driver:            driver,
		count:             count,
		pollInterval:      pollInterval,
		visibilityTimeout: visibilityTimeout,
		logger:            logger.With("system", "worker"),
	}
}

// Run starts the workers and blocks until ctx is cancelled and all workers
// have drained their in-flight items.
func (p *Pool) Run(ctx context.Context) error {
	p.logger.Info("worker pool started", "workers", p.count)

	g, ctx := errgroup.WithContext(ctx)
	for i := range p.count {
		g.Go(func() error {
			p.work(ctx, i)
			return nil
		})
	}

	err := g.Wait()
	p.logger.Info("worker pool stopped")
	return err
}

func (p *Pool) work(ctx context.Context, id int) {
	logger := p.logger.With("worker", id)

	for {
		if ctx.Err() != nil {
			return
		}

		item, err := p.queue.Claim(ctx, p.visibilityTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("claim failed", "error", err)
			p.sleep(ctx)
			continue
		}

		if item == nil {
			p.sleep(ctx)
			continue
		}

		p.process(ctx, logger, item)
	}
}

// process runs one item. On driver failure the item is left claimed; the
// visibility timeout returns it to the queue and the instance resumes from
// its last checkpoint.
func (p *Pool) process(ctx context.Context, logger *slog.Logger, item *queue.Item) {
	logger.Debug("processing", "kind", item.Kind, "instance", item.InstanceID, "attempt", item.Attempts)

	if err := p.driver.Drive(ctx, item); err != nil {
		logger.Error(
			"unit of work failed",
			"kind", item.Kind,
			"instance", item.InstanceID,
			"attempt", item.Attempts,
			"error", err,
		)
		return
	}

	if err := p.queue.Complete(ctx, item.ID, item.Attempts); err != nil {
		logger.Error("complete failed", "instance", item.InstanceID, "error", err)
	}
}

func (p *Pool) sleep(ctx context.Context) {
	timer := time.NewTimer(p.pollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
