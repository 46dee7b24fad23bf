package engine

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds transient-failure retries for a step type.
type RetryPolicy struct {
	MaxAttempts     int           `json:"max_attempts"`
	InitialInterval time.Duration `json:"initial_interval"`
	MaxInterval     time.Duration `json:"max_interval"`
	Multiplier      float64       `json:"multiplier"`
}

// DefaultRetryPolicy applies to step types without an override.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOffContext {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialInterval
	bo.MaxInterval = p.MaxInterval
	bo.Multiplier = p.Multiplier
	bo.MaxElapsedTime = 0
	bo.Reset()
	return backoff.WithContext(bo, ctx)
}

// wait sleeps for the next backoff interval, honoring context cancellation.
// Returns false when retrying should stop.
func wait(bo backoff.BackOffContext) bool {
	d := bo.NextBackOff()
	if d == backoff.Stop {
		return false
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-bo.Context().Done():
		return false
	}
}
