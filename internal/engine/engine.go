package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell/internal/credentials"
	"github.com/inkwellhq/inkwell/internal/documents"
	"github.com/inkwellhq/inkwell/internal/tenants"
	"github.com/inkwellhq/inkwell/pkg/storage"
)

// Outcome classifies a step run.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeSuspend Outcome = "suspend"
)

// StepResult is the engine's verdict on one RunStep call. A failure result
// is terminal for the step: retries have already been exhausted inside the
// engine. Retryable records whether the underlying error class was
// transient, for the failure taxonomy.
type StepResult struct {
	Outcome   Outcome
	Output    map[string]any
	Err       error
	Retryable bool
	Token     string
	Timeout   time.Duration
	Attempts  int
}

// StepRequest identifies the step to run and supplies its execution context.
type StepRequest struct {
	Tenant     *tenants.Context
	InstanceID uuid.UUID
	CampaignID uuid.UUID
	Document   *documents.Document
	Pipeline   Pipeline
	StepIndex  int
	Outputs    map[string]map[string]any
}

// Engine executes single pipeline steps against registered processors.
type Engine struct {
	registry    *Registry
	credentials credentials.System
	blobs       storage.System
	records     RecordStore
	policies    map[string]RetryPolicy
	logger      *slog.Logger
}

// New creates an Engine. policies overrides the default retry policy per
// step type and may be nil.
func New(
	registry *Registry,
	creds credentials.System,
	blobs storage.System,
	records RecordStore,
	policies map[string]RetryPolicy,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		registry:    registry,
		credentials: creds,
		blobs:       blobs,
		records:     records,
		policies:    policies,
		logger:      logger.With("system", "engine"),
	}
}

// Registry exposes the processor registry for campaign validation.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Records exposes the step execution store for audit queries.
func (e *Engine) Records() RecordStore {
	return e.records
}

// RunStep executes exactly one step: resolves deferred references, gates on
// media type, invokes the processor with retries, validates output, and
// appends one execution record per attempt.
func (e *Engine) RunStep(ctx context.Context, req StepRequest) StepResult {
	if req.StepIndex < 0 || req.StepIndex >= len(req.Pipeline) {
		return failure(fmt.Errorf("%w: %d", ErrStepIndexOutOfRange, req.StepIndex), false, 0)
	}

	step := req.Pipeline[req.StepIndex]

	proc, ok := e.registry.Lookup(step.Type)
	if !ok {
		return failure(ConfigError(step.Label, fmt.Errorf("%w: %s", ErrUnknownStepType, step.Type)), false, 0)
	}

	config, err := ResolveRefs(step.Config, req.Outputs)
	if err != nil {
		return failure(ConfigError(step.Label, err), false, 0)
	}

	if !mediaTypeSupported(proc, req.Document.ContentType) {
		return failure(
			ConfigError(step.Label, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, req.Document.ContentType)),
			false, 0,
		)
	}

	in := Input{
		Document: req.Document,
		Config:   config,
		Outputs:  req.Outputs,
		Blobs:    e.blobs,
		Credentials: &scopedCredentials{
			system: e.credentials,
			scope: credentials.Scope{
				Tenant:   req.Tenant.ID(),
				Campaign: req.CampaignID,
				Step:     step.Label,
			},
		},
	}

	policy := e.policy(step.Type)
	bo := policy.backOff(ctx)

	for attempt := 1; ; attempt++ {
		result := e.executeOnce(ctx, req, step, proc, in, attempt)
		result.Attempts = attempt

		if result.Outcome != OutcomeFailure || !result.Retryable {
			return result
		}

		if attempt >= policy.MaxAttempts || !wait(bo) {
			e.logger.Warn(
				"step retries exhausted",
				"instance", req.InstanceID,
				"step", step.Label,
				"attempts", attempt,
				"error", result.Err,
			)
			return result
		}

		e.logger.Info(
			"retrying step",
			"instance", req.InstanceID,
			"step", step.Label,
			"attempt", attempt+1,
		)
	}
}

func (e *Engine) executeOnce(
	ctx context.Context,
	req StepRequest,
	step Step,
	proc Processor,
	in Input,
	attempt int,
) StepResult {
	started := time.Now()
	res, err := proc.Execute(ctx, in)
	finished := time.Now()

	rec := &StepExecution{
		InstanceID: req.InstanceID,
		StepLabel:  step.Label,
		StepType:   step.Type,
		Attempt:    attempt,
		StartedAt:  started,
		FinishedAt: finished,
		DurationMS: finished.Sub(started).Milliseconds(),
	}

	var result StepResult
	switch {
	case err != nil:
		rec.Status = ExecutionFailed
		rec.Error = errString(err)
		result = failure(err, !IsPermanent(err), attempt)

	case res != nil && res.Suspend != nil:
		rec.Status = ExecutionSuspended
		result = StepResult{
			Outcome: OutcomeSuspend,
			Token:   res.Suspend.Token,
			Timeout: res.Suspend.Timeout,
		}

	default:
		output := map[string]any{}
		if res != nil && res.Output != nil {
			output = res.Output
		}

		if verr := proc.OutputSchema().Validate(output); verr != nil {
			rec.Status = ExecutionFailed
			rec.Error = errString(verr)
			result = failure(ConfigError(step.Label, verr), false, attempt)
		} else {
			rec.Status = ExecutionSuccess
			rec.Output = output
			result = StepResult{Outcome: OutcomeSuccess, Output: output}
		}
	}

	if recErr := e.records.Append(ctx, req.Tenant, rec); recErr != nil {
		e.logger.Error(
			"step execution record append failed",
			"instance", req.InstanceID,
			"step", step.Label,
			"attempt", attempt,
			"error", recErr,
		)
	}

	return result
}

func (e *Engine) policy(stepType string) RetryPolicy {
	if p, ok := e.policies[stepType]; ok {
		return p
	}
	return DefaultRetryPolicy()
}

func mediaTypeSupported(proc Processor, contentType string) bool {
	supported := proc.SupportedMediaTypes()
	return len(supported) == 0 || slices.Contains(supported, contentType)
}

func failure(err error, retryable bool, attempts int) StepResult {
	return StepResult{
		Outcome:   OutcomeFailure,
		Err:       err,
		Retryable: retryable,
		Attempts:  attempts,
	}
}

func errString(err error) *string {
	s := err.Error()
	return &s
}

type scopedCredentials struct {
	system credentials.System
	scope  credentials.Scope
}

func (c *scopedCredentials) Get(ctx context.Context, key string) (string, error) {
	return c.system.Resolve(ctx, key, c.scope)
}
