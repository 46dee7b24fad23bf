package documents

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell/internal/tenants"
	"github.com/inkwellhq/inkwell/pkg/pagination"
	"github.com/inkwellhq/inkwell/pkg/query"
	"github.com/inkwellhq/inkwell/pkg/repository"
	"github.com/inkwellhq/inkwell/pkg/storage"
)

type repo struct {
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a document repository implementing the System interface.
// Rows are written to whichever tenant database the caller's handle points
// at; the repository itself holds no connection.
func New(
	store storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		storage:    store,
		logger:     logger.With("system", "documents"),
		pagination: pagination,
	}
}

func (r *repo) Handler(manager *tenants.Manager, maxUploadSize int64) *Handler {
	return NewHandler(r, manager, r.logger, r.pagination, maxUploadSize)
}

func (r *repo) List(
	ctx context.Context,
	tc *tenants.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Document], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Filename", "ContentType")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := tc.DB().QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	docs, err := repository.QueryMany(ctx, tc.DB(), pageSQL, pageArgs, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	result := pagination.NewPageResult(docs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, tc *tenants.Context, id uuid.UUID) (*Document, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	d, err := repository.QueryOne(ctx, tc.DB(), q, args, scanDocument)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &d, nil
}

func (r *repo) Content(
	ctx context.Context,
	tc *tenants.Context,
	id uuid.UUID,
) (io.ReadCloser, string, error) {
	doc, err := r.Find(ctx, tc, id)
	if err != nil {
		return nil, "", err
	}

	reader, err := r.storage.Download(ctx, doc.StorageKey)
	if err != nil {
		return nil, "", fmt.Errorf("download document blob: %w", err)
	}

	return reader, doc.ContentType, nil
}

func (r *repo) Create(ctx context.Context, tc *tenants.Context, cmd CreateCommand) (*Document, error) {
	if err := r.campaignExists(ctx, tc, cmd.CampaignID); err != nil {
		return nil, err
	}

	id := uuid.New()
	key := storage.DocumentKey(tc.ID(), cmd.Data, cmd.Filename)

	if err := r.storage.Upload(ctx, key, bytes.NewReader(cmd.Data), cmd.ContentType); err != nil {
		return nil, fmt.Errorf("upload document blob: %w", err)
	}

	q := `
		INSERT INTO documents(id, campaign_id, filename, content_type, size_bytes, content_hash, page_count, storage_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, campaign_id, filename, content_type, size_bytes, content_hash, page_count, storage_key, status, outputs, uploaded_at, updated_at`

	insertArgs := []any{
		id,
		cmd.CampaignID,
		cmd.Filename,
		cmd.ContentType,
		int64(len(cmd.Data)),
		storage.ContentHash(cmd.Data),
		cmd.PageCount,
		key,
	}

	d, err := repository.WithTx(ctx, tc.DB(), func(tx *sql.Tx) (Document, error) {
		return repository.QueryOne(ctx, tx, q, insertArgs, scanDocument)
	})

	if err != nil {
		if delErr := r.storage.Delete(ctx, key); delErr != nil {
			r.logger.Warn("compensating blob delete failed", "key", key, "error", delErr)
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("document created", "tenant", tc.ID(), "id", d.ID, "filename", d.Filename)
	return &d, nil
}

func (r *repo) Delete(ctx context.Context, tc *tenants.Context, id uuid.UUID) error {
	doc, err := r.Find(ctx, tc, id)
	if err != nil {
		return err
	}

	_, err = repository.WithTx(ctx, tc.DB(), func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM documents WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if delErr := r.storage.Delete(ctx, doc.StorageKey); delErr != nil {
		r.logger.Warn(
			"blob delete failed after DB delete",
			"key", doc.StorageKey,
			"error", delErr,
		)
	}

	r.logger.Info("document deleted", "tenant", tc.ID(), "id", id)
	return nil
}

func (r *repo) SetStatus(ctx context.Context, tc *tenants.Context, id uuid.UUID, status string) error {
	err := repository.ExecExpectOne(
		ctx, tc.DB(),
		"UPDATE documents SET status = $2, updated_at = now() WHERE id = $1",
		id, status,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}

func (r *repo) SetOutputs(
	ctx context.Context,
	tc *tenants.Context,
	id uuid.UUID,
	outputs map[string]map[string]any,
) error {
	data, err := json.Marshal(outputs)
	if err != nil {
		return fmt.Errorf("marshal document outputs: %w", err)
	}

	err = repository.ExecExpectOne(
		ctx, tc.DB(),
		"UPDATE documents SET outputs = $2, updated_at = now() WHERE id = $1",
		id, data,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}

func (r *repo) campaignExists(ctx context.Context, tc *tenants.Context, campaignID uuid.UUID) error {
	var exists bool
	err := tc.DB().QueryRowContext(
		ctx,
		"SELECT EXISTS (SELECT 1 FROM campaigns WHERE id = $1)",
		campaignID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check campaign: %w", err)
	}
	if !exists {
		return ErrCampaignNotFound
	}
	return nil
}
