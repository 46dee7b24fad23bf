// Package workflow implements the durable workflow controller: submission,
// checkpointed step-by-step execution, suspension and signalling, and the
// deadline sweep. Instance state lives in the owning tenant's database; the
// control plane holds only the work queue and the token routing rows needed
// to find a suspended instance without knowing its tenant.
package workflow

import (
	"time"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell/internal/engine"
)

// Instance lifecycle states. Suspended instances hold no goroutine, no
// connection, and no queue item; they are rows waiting for a signal or the
// sweep.
const (
	StatusRunning   = "running"
	StatusSuspended = "suspended"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Failure kinds recorded on failed instances. Configuration covers bad
// wiring caught at execution time (unknown type, unresolved reference);
// contract covers a processor breaking its own declared output schema or
// media support at runtime; step covers exhausted transient retries.
const (
	FailureConfiguration     = "configuration"
	FailureContract          = "contract"
	FailureStep              = "step"
	FailureSuspensionTimeout = "suspension timeout"
)

// Failure captures why an instance failed. Step execution records retain
// the full attempt history independently.
type Failure struct {
	Kind     string `json:"kind"`
	Step     string `json:"step,omitempty"`
	Error    string `json:"error"`
	Attempts int    `json:"attempts,omitempty"`
}

// Instance is one document's run through a campaign pipeline. Pipeline is an
// immutable snapshot taken at submission; later campaign edits never affect
// a running instance.
type Instance struct {
	ID              uuid.UUID                 `json:"id"`
	DocumentID      uuid.UUID                 `json:"document_id"`
	CampaignID      uuid.UUID                 `json:"campaign_id"`
	Pipeline        engine.Pipeline           `json:"pipeline"`
	StepIndex       int                       `json:"step_index"`
	Outputs         map[string]map[string]any `json:"outputs"`
	Status          string                    `json:"status"`
	SuspendToken    *string                   `json:"suspend_token,omitempty"`
	SuspendStep     *string                   `json:"suspend_step,omitempty"`
	SuspendDeadline *time.Time                `json:"suspend_deadline,omitempty"`
	Failure         *Failure                  `json:"failure,omitempty"`
	CreatedAt       time.Time                 `json:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at"`
	CompletedAt     *time.Time                `json:"completed_at,omitempty"`
}

// Terminal reports whether the instance has reached a final state.
func (i *Instance) Terminal() bool {
	switch i.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Suspension is a control-plane routing row: it maps an opaque token to the
// tenant and instance that must be resumed when the token is signalled.
type Suspension struct {
	Token       string    `json:"token"`
	TenantID    uuid.UUID `json:"tenant_id"`
	InstanceID  uuid.UUID `json:"instance_id"`
	StepLabel   string    `json:"step_label"`
	Deadline    time.Time `json:"deadline"`
	SuspendedAt time.Time `json:"suspended_at"`
}
