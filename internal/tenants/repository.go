package tenants

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell/pkg/pagination"
	"github.com/inkwellhq/inkwell/pkg/query"
	"github.com/inkwellhq/inkwell/pkg/repository"
)

type repo struct {
	db          *sql.DB
	provisioner Provisioner
	logger      *slog.Logger
	pagination  pagination.Config
}

// New creates a tenant registry implementing the System interface.
// db is the control-plane database; provisioner creates and repairs tenant
// logical databases.
func New(
	db *sql.DB,
	provisioner Provisioner,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:          db,
		provisioner: provisioner,
		logger:      logger.With("system", "tenants"),
		pagination:  pagination,
	}
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Tenant, error) {
	if cmd.Name == "" {
		return nil, ErrInvalidName
	}
	if cmd.Tier == "" {
		cmd.Tier = "standard"
	}

	id := uuid.New()

	q := `
		INSERT INTO tenants (id, name, status, tier, database_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, status, tier, database_name, created_at, updated_at, deleted_at`

	args := []any{id, cmd.Name, StatusActive, cmd.Tier, DatabaseName(id)}

	t, err := repository.QueryOne(ctx, r.db, q, args, scanTenant)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	// Synchronous provisioning: the tenant is unusable until its logical
	// database exists, so creation fails if provisioning does.
	if _, err := r.provisioner.Ensure(ctx, &t); err != nil {
		if delErr := r.hardDelete(ctx, t.ID); delErr != nil {
			r.logger.Warn("compensating registry delete failed", "id", t.ID, "error", delErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrProvisioning, err)
	}

	r.logger.Info("tenant created", "id", t.ID, "name", t.Name, "database", t.DatabaseName)
	return &t, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	t, err := repository.QueryOne(ctx, r.db, q, args, scanTenant)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &t, nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
) (*pagination.PageResult[Tenant], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Name", "Tier")

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count tenants: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanTenant)
	if err != nil {
		return nil, fmt.Errorf("query tenants: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) Suspend(ctx context.Context, id uuid.UUID) error {
	return r.setStatus(ctx, id, StatusSuspended)
}

func (r *repo) Resume(ctx context.Context, id uuid.UUID) error {
	return r.setStatus(ctx, id, StatusActive)
}

func (r *repo) Cancel(ctx context.Context, id uuid.UUID) error {
	err := repository.ExecExpectOne(
		ctx, r.db,
		`UPDATE tenants
		 SET status = $2, deleted_at = now(), updated_at = now()
		 WHERE id = $1 AND deleted_at IS NULL`,
		id, StatusCancelled,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("tenant cancelled", "id", id)
	return nil
}

func (r *repo) setStatus(ctx context.Context, id uuid.UUID, status string) error {
	err := repository.ExecExpectOne(
		ctx, r.db,
		"UPDATE tenants SET status = $2, updated_at = now() WHERE id = $1 AND deleted_at IS NULL",
		id, status,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("tenant status changed", "id", id, "status", status)
	return nil
}

func (r *repo) hardDelete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM tenants WHERE id = $1", id)
	return err
}
