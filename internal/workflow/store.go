package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell/internal/engine"
	"github.com/inkwellhq/inkwell/internal/tenants"
	"github.com/inkwellhq/inkwell/pkg/pagination"
	"github.com/inkwellhq/inkwell/pkg/query"
	"github.com/inkwellhq/inkwell/pkg/repository"
)

// InstanceStore persists workflow instances in tenant databases. State
// transitions are compare-and-swap updates keyed on the current status, so
// a stale caller changes nothing and learns it from the swapped return.
type InstanceStore interface {
	Create(ctx context.Context, tc *tenants.Context, documentID, campaignID uuid.UUID, pipeline engine.Pipeline) (*Instance, error)
	Find(ctx context.Context, tc *tenants.Context, id uuid.UUID) (*Instance, error)
	List(ctx context.Context, tc *tenants.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Instance], error)

	Checkpoint(ctx context.Context, tc *tenants.Context, id uuid.UUID, stepIndex int, outputs map[string]map[string]any) error
	Suspend(ctx context.Context, tc *tenants.Context, id uuid.UUID, token, step string, deadline time.Time, outputs map[string]map[string]any) (bool, error)
	Resume(ctx context.Context, tc *tenants.Context, token string, payload map[string]any) (bool, error)
	Complete(ctx context.Context, tc *tenants.Context, id uuid.UUID) error
	Fail(ctx context.Context, tc *tenants.Context, id uuid.UUID, failure Failure) error
	FailSuspended(ctx context.Context, tc *tenants.Context, token string, failure Failure) (bool, error)
	Cancel(ctx context.Context, tc *tenants.Context, id uuid.UUID) (bool, error)
}

type pgInstances struct {
	pagination pagination.Config
}

// NewInstanceStore creates the PostgreSQL-backed instance store.
func NewInstanceStore(pagination pagination.Config) InstanceStore {
	return &pgInstances{pagination: pagination}
}

const instanceColumns = `id, document_id, campaign_id, pipeline, step_index, outputs, status,
	suspend_token, suspend_step, suspend_deadline, failure, created_at, updated_at, completed_at`

func (s *pgInstances) Create(
	ctx context.Context,
	tc *tenants.Context,
	documentID, campaignID uuid.UUID,
	pipeline engine.Pipeline,
) (*Instance, error) {
	snapshot, err := json.Marshal(pipeline)
	if err != nil {
		return nil, fmt.Errorf("marshal pipeline snapshot: %w", err)
	}

	q := fmt.Sprintf(`
		INSERT INTO workflow_instances (id, document_id, campaign_id, pipeline)
		VALUES ($1, $2, $3, $4)
		RETURNING %s`, instanceColumns)

	inst, err := repository.QueryOne(
		ctx, tc.DB(), q,
		[]any{uuid.New(), documentID, campaignID, snapshot},
		scanInstance,
	)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return &inst, nil
}

func (s *pgInstances) Find(ctx context.Context, tc *tenants.Context, id uuid.UUID) (*Instance, error) {
	q := fmt.Sprintf("SELECT %s FROM workflow_instances WHERE id = $1", instanceColumns)

	inst, err := repository.QueryOne(ctx, tc.DB(), q, []any{id}, scanInstance)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &inst, nil
}

func (s *pgInstances) List(
	ctx context.Context,
	tc *tenants.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Instance], error) {
	page.Normalize(s.pagination)

	qb := query.NewBuilder(projection, defaultSort)
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := tc.DB().QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count workflow instances: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	list, err := repository.QueryMany(ctx, tc.DB(), pageSQL, pageArgs, scanInstance)
	if err != nil {
		return nil, fmt.Errorf("query workflow instances: %w", err)
	}

	result := pagination.NewPageResult(list, total, page.Page, page.PageSize)
	return &result, nil
}

func (s *pgInstances) Checkpoint(
	ctx context.Context,
	tc *tenants.Context,
	id uuid.UUID,
	stepIndex int,
	outputs map[string]map[string]any,
) error {
	data, err := json.Marshal(outputs)
	if err != nil {
		return fmt.Errorf("marshal instance outputs: %w", err)
	}

	err = repository.ExecExpectOne(
		ctx, tc.DB(),
		`UPDATE workflow_instances
		 SET step_index = $2, outputs = $3, updated_at = now()
		 WHERE id = $1 AND status = $4`,
		id, stepIndex, data, StatusRunning,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}

func (s *pgInstances) Suspend(
	ctx context.Context,
	tc *tenants.Context,
	id uuid.UUID,
	token, step string,
	deadline time.Time,
	outputs map[string]map[string]any,
) (bool, error) {
	data, err := json.Marshal(outputs)
	if err != nil {
		return false, fmt.Errorf("marshal instance outputs: %w", err)
	}

	res, err := tc.DB().ExecContext(
		ctx,
		`UPDATE workflow_instances
		 SET status = $2, suspend_token = $3, suspend_step = $4, suspend_deadline = $5,
		     outputs = $6, updated_at = now()
		 WHERE id = $1 AND status = $7`,
		id, StatusSuspended, token, step, deadline, data, StatusRunning,
	)
	if err != nil {
		return false, fmt.Errorf("suspend instance %s: %w", id, err)
	}

	return swapped(res)
}

// Resume swaps a suspended instance back to running: the signal payload is
// recorded as the suspending step's output and execution moves past it. The
// step is not re-executed on resumption.
func (s *pgInstances) Resume(
	ctx context.Context,
	tc *tenants.Context,
	token string,
	payload map[string]any,
) (bool, error) {
	if payload == nil {
		payload = map[string]any{}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("marshal signal payload: %w", err)
	}

	res, err := tc.DB().ExecContext(
		ctx,
		`UPDATE workflow_instances
		 SET status = $2,
		     outputs = outputs || jsonb_build_object(suspend_step, $3::jsonb),
		     step_index = step_index + 1,
		     suspend_token = NULL, suspend_step = NULL, suspend_deadline = NULL,
		     updated_at = now()
		 WHERE suspend_token = $1 AND status = $4`,
		token, StatusRunning, data, StatusSuspended,
	)
	if err != nil {
		return false, fmt.Errorf("resume instance for token: %w", err)
	}

	return swapped(res)
}

func (s *pgInstances) Complete(ctx context.Context, tc *tenants.Context, id uuid.UUID) error {
	err := repository.ExecExpectOne(
		ctx, tc.DB(),
		`UPDATE workflow_instances
		 SET status = $2, completed_at = now(), updated_at = now()
		 WHERE id = $1 AND status = $3`,
		id, StatusCompleted, StatusRunning,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}

func (s *pgInstances) Fail(
	ctx context.Context,
	tc *tenants.Context,
	id uuid.UUID,
	failure Failure,
) error {
	data, err := json.Marshal(failure)
	if err != nil {
		return fmt.Errorf("marshal instance failure: %w", err)
	}

	err = repository.ExecExpectOne(
		ctx, tc.DB(),
		`UPDATE workflow_instances
		 SET status = $2, failure = $3, completed_at = now(), updated_at = now()
		 WHERE id = $1 AND status = $4`,
		id, StatusFailed, data, StatusRunning,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}

// FailSuspended fails an instance still suspended on the given token. Used
// by the deadline sweep; an instance already resumed or swept is untouched.
func (s *pgInstances) FailSuspended(
	ctx context.Context,
	tc *tenants.Context,
	token string,
	failure Failure,
) (bool, error) {
	data, err := json.Marshal(failure)
	if err != nil {
		return false, fmt.Errorf("marshal instance failure: %w", err)
	}

	res, err := tc.DB().ExecContext(
		ctx,
		`UPDATE workflow_instances
		 SET status = $2, failure = $3,
		     suspend_token = NULL, suspend_step = NULL, suspend_deadline = NULL,
		     completed_at = now(), updated_at = now()
		 WHERE suspend_token = $1 AND status = $4`,
		token, StatusFailed, data, StatusSuspended,
	)
	if err != nil {
		return false, fmt.Errorf("fail suspended instance: %w", err)
	}

	return swapped(res)
}

func (s *pgInstances) Cancel(ctx context.Context, tc *tenants.Context, id uuid.UUID) (bool, error) {
	res, err := tc.DB().ExecContext(
		ctx,
		`UPDATE workflow_instances
		 SET status = $2,
		     suspend_token = NULL, suspend_step = NULL, suspend_deadline = NULL,
		     completed_at = now(), updated_at = now()
		 WHERE id = $1 AND status IN ($3, $4)`,
		id, StatusCancelled, StatusRunning, StatusSuspended,
	)
	if err != nil {
		return false, fmt.Errorf("cancel instance %s: %w", id, err)
	}

	return swapped(res)
}

func swapped(res interface{ RowsAffected() (int64, error) }) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
