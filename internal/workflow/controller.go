package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell/internal/campaigns"
	"github.com/inkwellhq/inkwell/internal/documents"
	"github.com/inkwellhq/inkwell/internal/engine"
	"github.com/inkwellhq/inkwell/internal/queue"
	"github.com/inkwellhq/inkwell/internal/tenants"
	"github.com/inkwellhq/inkwell/pkg/pagination"
)

// defaultSuspendTTL bounds suspensions whose processor declared no timeout.
const defaultSuspendTTL = 24 * time.Hour

// System defines the public contract of the workflow controller.
type System interface {
	Handler(manager *tenants.Manager) *Handler

	// Submit accepts a document for processing: snapshot the campaign
	// pipeline, mark the document queued, enqueue the first unit of work.
	// Acceptance is synchronous; execution is not.
	Submit(ctx context.Context, tc *tenants.Context, campaignID, documentID uuid.UUID) (*Instance, error)

	// Signal resolves a suspension token. Unknown, spent, and swept tokens
	// are safe no-ops; at most one signal per token takes effect.
	Signal(ctx context.Context, token string, payload map[string]any) error

	// Drive runs one claimed unit of work to its next suspension or
	// terminal state.
	Drive(ctx context.Context, item *queue.Item) error

	// Sweep fails instances whose suspension deadline has passed.
	Sweep(ctx context.Context) error

	Cancel(ctx context.Context, tc *tenants.Context, id uuid.UUID) error
	Find(ctx context.Context, tc *tenants.Context, id uuid.UUID) (*Instance, error)
	List(ctx context.Context, tc *tenants.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Instance], error)
	Records(ctx context.Context, tc *tenants.Context, id uuid.UUID) ([]engine.StepExecution, error)
}

// Controller coordinates submissions, the drive loop, signalling, and the
// deadline sweep.
type Controller struct {
	manager     *tenants.Manager
	engine      *engine.Engine
	campaigns   campaigns.System
	documents   documents.System
	instances   InstanceStore
	suspensions SuspensionStore
	queue       queue.System
	pagination  pagination.Config
	logger      *slog.Logger
}

// New creates the workflow controller.
func New(
	manager *tenants.Manager,
	eng *engine.Engine,
	camps campaigns.System,
	docs documents.System,
	instances InstanceStore,
	suspensions SuspensionStore,
	q queue.System,
	pagination pagination.Config,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		manager:     manager,
		engine:      eng,
		campaigns:   camps,
		documents:   docs,
		instances:   instances,
		suspensions: suspensions,
		queue:       q,
		pagination:  pagination,
		logger:      logger.With("system", "workflow"),
	}
}

func (c *Controller) Handler(manager *tenants.Manager) *Handler {
	return NewHandler(c, manager, c.logger, c.pagination)
}

func (c *Controller) Submit(
	ctx context.Context,
	tc *tenants.Context,
	campaignID, documentID uuid.UUID,
) (*Instance, error) {
	campaign, err := c.campaigns.Find(ctx, tc, campaignID)
	if err != nil {
		return nil, err
	}

	if err := campaign.Steps.Validate(c.engine.Registry()); err != nil {
		return nil, err
	}

	doc, err := c.documents.Find(ctx, tc, documentID)
	if err != nil {
		return nil, err
	}
	if doc.CampaignID != campaignID {
		return nil, ErrDocumentMismatch
	}

	inst, err := c.instances.Create(ctx, tc, documentID, campaignID, campaign.Steps)
	if err != nil {
		return nil, err
	}

	if err := c.documents.SetStatus(ctx, tc, documentID, documents.StatusQueued); err != nil {
		return nil, err
	}

	if err := c.queue.Enqueue(ctx, tc.ID(), inst.ID, queue.KindStart, 0); err != nil {
		return nil, err
	}

	c.logger.Info(
		"workflow submitted",
		"tenant", tc.ID(),
		"instance", inst.ID,
		"campaign", campaignID,
		"document", documentID,
	)
	return inst, nil
}

// Drive executes steps from the instance's checkpoint until it suspends,
// finishes, or fails. Every successful step persists outputs and index
// before the next one runs, so a crashed worker loses at most the step in
// flight; redelivery resumes from the checkpoint.
func (c *Controller) Drive(ctx context.Context, item *queue.Item) error {
	tc, err := c.manager.Activate(ctx, item.TenantID)
	if err != nil {
		return err
	}
	defer tc.Release()

	inst, err := c.instances.Find(ctx, tc, item.InstanceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.logger.Warn("queue item for missing instance", "instance", item.InstanceID)
			return nil
		}
		return err
	}

	// Suspended and terminal instances own no unit of work; a stale item
	// is dropped by completing it.
	if inst.Status != StatusRunning {
		return nil
	}

	doc, err := c.documents.Find(ctx, tc, inst.DocumentID)
	if err != nil {
		return err
	}

	if doc.Status == documents.StatusQueued {
		if err := c.documents.SetStatus(ctx, tc, doc.ID, documents.StatusProcessing); err != nil {
			return err
		}
	}

	for inst.StepIndex < len(inst.Pipeline) {
		result := c.engine.RunStep(ctx, engine.StepRequest{
			Tenant:     tc,
			InstanceID: inst.ID,
			CampaignID: inst.CampaignID,
			Document:   doc,
			Pipeline:   inst.Pipeline,
			StepIndex:  inst.StepIndex,
			Outputs:    inst.Outputs,
		})

		step := inst.Pipeline[inst.StepIndex]

		switch result.Outcome {
		case engine.OutcomeSuccess:
			if inst.Outputs == nil {
				inst.Outputs = map[string]map[string]any{}
			}
			inst.Outputs[step.Label] = result.Output
			inst.StepIndex++

			if err := c.instances.Checkpoint(ctx, tc, inst.ID, inst.StepIndex, inst.Outputs); err != nil {
				return err
			}

		case engine.OutcomeSuspend:
			return c.suspend(ctx, tc, inst, step.Label, result)

		default:
			return c.fail(ctx, tc, inst, step.Label, result)
		}
	}

	return c.complete(ctx, tc, inst)
}

func (c *Controller) suspend(
	ctx context.Context,
	tc *tenants.Context,
	inst *Instance,
	stepLabel string,
	result engine.StepResult,
) error {
	token := result.Token
	if token == "" {
		token = uuid.NewString()
	}

	ttl := result.Timeout
	if ttl <= 0 {
		ttl = defaultSuspendTTL
	}
	deadline := time.Now().Add(ttl)

	ok, err := c.instances.Suspend(ctx, tc, inst.ID, token, stepLabel, deadline, inst.Outputs)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("instance %s: %w", inst.ID, ErrNotCancellable)
	}

	if err := c.suspensions.Put(ctx, Suspension{
		Token:      token,
		TenantID:   tc.ID(),
		InstanceID: inst.ID,
		StepLabel:  stepLabel,
		Deadline:   deadline,
	}); err != nil {
		return err
	}

	c.logger.Info(
		"workflow suspended",
		"tenant", tc.ID(),
		"instance", inst.ID,
		"step", stepLabel,
		"deadline", deadline,
	)
	return nil
}

func (c *Controller) fail(
	ctx context.Context,
	tc *tenants.Context,
	inst *Instance,
	stepLabel string,
	result engine.StepResult,
) error {
	kind := FailureStep
	switch {
	case errors.Is(result.Err, engine.ErrSchemaViolation),
		errors.Is(result.Err, engine.ErrUnsupportedMediaType):
		kind = FailureContract
	case !result.Retryable && result.Attempts <= 1:
		kind = FailureConfiguration
	}

	failure := Failure{
		Kind:     kind,
		Step:     stepLabel,
		Error:    result.Err.Error(),
		Attempts: result.Attempts,
	}

	if err := c.instances.Fail(ctx, tc, inst.ID, failure); err != nil {
		return err
	}

	if err := c.documents.SetStatus(ctx, tc, inst.DocumentID, documents.StatusFailed); err != nil {
		return err
	}

	c.logger.Warn(
		"workflow failed",
		"tenant", tc.ID(),
		"instance", inst.ID,
		"step", stepLabel,
		"kind", kind,
		"attempts", result.Attempts,
		"error", result.Err,
	)
	return nil
}

func (c *Controller) complete(ctx context.Context, tc *tenants.Context, inst *Instance) error {
	if err := c.instances.Complete(ctx, tc, inst.ID); err != nil {
		return err
	}

	// The document row carries the final outputs so retention and audit
	// reads never need the instance.
	if err := c.documents.SetOutputs(ctx, tc, inst.DocumentID, inst.Outputs); err != nil {
		return err
	}
	if err := c.documents.SetStatus(ctx, tc, inst.DocumentID, documents.StatusCompleted); err != nil {
		return err
	}

	c.logger.Info("workflow completed", "tenant", tc.ID(), "instance", inst.ID)
	return nil
}

func (c *Controller) Signal(ctx context.Context, token string, payload map[string]any) error {
	susp, err := c.suspensions.Find(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.logger.Info("signal for unknown token ignored")
			return nil
		}
		return err
	}

	tc, err := c.manager.Activate(ctx, susp.TenantID)
	if err != nil {
		return err
	}
	defer tc.Release()

	resumed, err := c.instances.Resume(ctx, tc, token, payload)
	if err != nil {
		return err
	}
	if !resumed {
		// Lost the race with another signal or the sweep.
		c.logger.Info("signal for spent token ignored", "instance", susp.InstanceID)
		return nil
	}

	// Requeue, not Enqueue: the worker that suspended this instance may not
	// have completed its claimed item yet, and that item must be re-armed
	// rather than silently colliding with it.
	if err := c.queue.Requeue(ctx, susp.TenantID, susp.InstanceID, queue.KindResume); err != nil {
		return err
	}

	if err := c.suspensions.Delete(ctx, token); err != nil {
		c.logger.Warn("suspension cleanup failed", "instance", susp.InstanceID, "error", err)
	}

	c.logger.Info("workflow signalled", "tenant", susp.TenantID, "instance", susp.InstanceID)
	return nil
}

// Sweep fails every instance whose suspension deadline has passed. Lateness
// is bounded by the sweep interval.
func (c *Controller) Sweep(ctx context.Context) error {
	expired, err := c.suspensions.Expired(ctx, time.Now(), 100)
	if err != nil {
		return err
	}

	for _, susp := range expired {
		if err := c.sweepOne(ctx, susp); err != nil {
			c.logger.Error(
				"sweep failed for suspension",
				"tenant", susp.TenantID,
				"instance", susp.InstanceID,
				"error", err,
			)
		}
	}

	return nil
}

func (c *Controller) sweepOne(ctx context.Context, susp Suspension) error {
	tc, err := c.manager.Activate(ctx, susp.TenantID)
	if err != nil {
		return err
	}
	defer tc.Release()

	failure := Failure{
		Kind:  FailureSuspensionTimeout,
		Step:  susp.StepLabel,
		Error: fmt.Sprintf("suspension expired after %s", time.Since(susp.SuspendedAt).Round(time.Second)),
	}

	failed, err := c.instances.FailSuspended(ctx, tc, susp.Token, failure)
	if err != nil {
		return err
	}

	if failed {
		inst, err := c.instances.Find(ctx, tc, susp.InstanceID)
		if err != nil {
			return err
		}
		if err := c.documents.SetStatus(ctx, tc, inst.DocumentID, documents.StatusFailed); err != nil {
			return err
		}

		c.logger.Warn(
			"suspension expired",
			"tenant", susp.TenantID,
			"instance", susp.InstanceID,
			"step", susp.StepLabel,
		)
	}

	return c.suspensions.Delete(ctx, susp.Token)
}

func (c *Controller) Cancel(ctx context.Context, tc *tenants.Context, id uuid.UUID) error {
	inst, err := c.instances.Find(ctx, tc, id)
	if err != nil {
		return err
	}

	cancelled, err := c.instances.Cancel(ctx, tc, id)
	if err != nil {
		return err
	}
	if !cancelled {
		return ErrNotCancellable
	}

	if inst.SuspendToken != nil {
		if err := c.suspensions.Delete(ctx, *inst.SuspendToken); err != nil {
			c.logger.Warn("suspension cleanup failed", "instance", id, "error", err)
		}
	}

	if err := c.documents.SetStatus(ctx, tc, inst.DocumentID, documents.StatusCancelled); err != nil {
		return err
	}

	c.logger.Info("workflow cancelled", "tenant", tc.ID(), "instance", id)
	return nil
}

func (c *Controller) Find(ctx context.Context, tc *tenants.Context, id uuid.UUID) (*Instance, error) {
	return c.instances.Find(ctx, tc, id)
}

func (c *Controller) List(
	ctx context.Context,
	tc *tenants.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Instance], error) {
	return c.instances.List(ctx, tc, page, filters)
}

func (c *Controller) Records(
	ctx context.Context,
	tc *tenants.Context,
	id uuid.UUID,
) ([]engine.StepExecution, error) {
	if _, err := c.instances.Find(ctx, tc, id); err != nil {
		return nil, err
	}
	return c.engine.Records().List(ctx, tc, id)
}
