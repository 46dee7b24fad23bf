package processors

import (
	"context"
	"time"

	"github.com/inkwellhq/inkwell/internal/engine"
)

// defaultApprovalTimeout applies when the step config sets no timeout.
const defaultApprovalTimeout = 72 * time.Hour

// Approval suspends the workflow until an external party signals a decision.
// The signal payload becomes this step's output, so a pipeline can reference
// <label.approved> or any other field the signaller provides.
//
// Config:
//
//	timeout_seconds (number, optional) — suspension deadline override.
type Approval struct{}

func (p *Approval) Execute(ctx context.Context, in engine.Input) (*engine.Result, error) {
	timeout := defaultApprovalTimeout
	if v, ok := in.Config["timeout_seconds"]; ok {
		if secs, ok := asSeconds(v); ok && secs > 0 {
			timeout = secs
		}
	}

	return &engine.Result{
		Suspend: &engine.Suspension{Timeout: timeout},
	}, nil
}

func (p *Approval) OutputSchema() engine.Schema {
	// The output is whatever the signal payload carries.
	return engine.Schema{}
}

func (p *Approval) SupportedMediaTypes() []string {
	return nil
}

func asSeconds(v any) (time.Duration, bool) {
	switch n := v.(type) {
	case float64:
		return time.Duration(n * float64(time.Second)), true
	case int:
		return time.Duration(n) * time.Second, true
	case int64:
		return time.Duration(n) * time.Second, true
	default:
		return 0, false
	}
}
