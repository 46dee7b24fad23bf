package campaigns

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell/internal/engine"
	"github.com/inkwellhq/inkwell/internal/tenants"
	"github.com/inkwellhq/inkwell/pkg/pagination"
	"github.com/inkwellhq/inkwell/pkg/query"
	"github.com/inkwellhq/inkwell/pkg/repository"
)

type repo struct {
	registry   *engine.Registry
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a campaign repository implementing the System interface.
// Pipelines are validated against the registry before any row is written.
func New(
	registry *engine.Registry,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		registry:   registry,
		logger:     logger.With("system", "campaigns"),
		pagination: pagination,
	}
}

func (r *repo) Handler(manager *tenants.Manager) *Handler {
	return NewHandler(r, manager, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	tc *tenants.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Campaign], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Name", "Description")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := tc.DB().QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count campaigns: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	list, err := repository.QueryMany(ctx, tc.DB(), pageSQL, pageArgs, scanCampaign)
	if err != nil {
		return nil, fmt.Errorf("query campaigns: %w", err)
	}

	result := pagination.NewPageResult(list, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, tc *tenants.Context, id uuid.UUID) (*Campaign, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	c, err := repository.QueryOne(ctx, tc.DB(), q, args, scanCampaign)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &c, nil
}

func (r *repo) Create(ctx context.Context, tc *tenants.Context, cmd CreateCommand) (*Campaign, error) {
	if err := cmd.Validate(r.registry); err != nil {
		return nil, err
	}

	steps, err := json.Marshal(cmd.Steps)
	if err != nil {
		return nil, fmt.Errorf("marshal campaign steps: %w", err)
	}

	q := `
		INSERT INTO campaigns(id, name, description, steps)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, description, steps, created_at, updated_at`

	insertArgs := []any{uuid.New(), cmd.Name, cmd.Description, steps}

	c, err := repository.WithTx(ctx, tc.DB(), func(tx *sql.Tx) (Campaign, error) {
		return repository.QueryOne(ctx, tx, q, insertArgs, scanCampaign)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("campaign created", "tenant", tc.ID(), "id", c.ID, "name", c.Name)
	return &c, nil
}

func (r *repo) Update(
	ctx context.Context,
	tc *tenants.Context,
	id uuid.UUID,
	cmd UpdateCommand,
) (*Campaign, error) {
	if err := cmd.Validate(r.registry); err != nil {
		return nil, err
	}

	current, err := r.Find(ctx, tc, id)
	if err != nil {
		return nil, err
	}

	if cmd.Name != nil {
		current.Name = *cmd.Name
	}
	if cmd.Description != nil {
		current.Description = *cmd.Description
	}
	if cmd.Steps != nil {
		current.Steps = *cmd.Steps
	}

	steps, err := json.Marshal(current.Steps)
	if err != nil {
		return nil, fmt.Errorf("marshal campaign steps: %w", err)
	}

	q := `
		UPDATE campaigns
		SET name = $2, description = $3, steps = $4, updated_at = now()
		WHERE id = $1
		RETURNING id, name, description, steps, created_at, updated_at`

	updateArgs := []any{id, current.Name, current.Description, steps}

	c, err := repository.WithTx(ctx, tc.DB(), func(tx *sql.Tx) (Campaign, error) {
		return repository.QueryOne(ctx, tx, q, updateArgs, scanCampaign)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("campaign updated", "tenant", tc.ID(), "id", c.ID)
	return &c, nil
}

func (r *repo) Delete(ctx context.Context, tc *tenants.Context, id uuid.UUID) error {
	var inUse bool
	err := tc.DB().QueryRowContext(
		ctx,
		"SELECT EXISTS (SELECT 1 FROM documents WHERE campaign_id = $1)",
		id,
	).Scan(&inUse)
	if err != nil {
		return fmt.Errorf("check campaign documents: %w", err)
	}
	if inUse {
		return ErrInUse
	}

	_, err = repository.WithTx(ctx, tc.DB(), func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM campaigns WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("campaign deleted", "tenant", tc.ID(), "id", id)
	return nil
}
