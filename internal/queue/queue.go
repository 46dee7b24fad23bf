// Package queue implements the durable work queue on the control-plane
// database. One item represents one unit of work: driving one workflow
// instance from its current step to its next suspension or terminal state.
//
// At most one item per instance exists at any time, which is what serializes
// execution per instance without any in-process locking. Claimed items stay
// in the table with a bumped visibility horizon; a worker crash simply lets
// the item become visible again.
package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell/pkg/repository"
)

// Item kinds. Start drives a freshly submitted instance; resume drives an
// instance whose suspension was signalled.
const (
	KindStart  = "start"
	KindResume = "resume"
)

// ErrDuplicate is returned when an item for the instance already exists.
var ErrDuplicate = errors.New("queue item for instance already exists")

// Item is one claimed or pending unit of work.
type Item struct {
	ID         int64     `json:"id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	InstanceID uuid.UUID `json:"instance_id"`
	Kind       string    `json:"kind"`
	Attempts   int       `json:"attempts"`
}

// System defines the durable queue contract.
type System interface {
	// Enqueue adds a unit of work for an instance, optionally delayed.
	// Returns ErrDuplicate if an item for the instance already exists.
	Enqueue(ctx context.Context, tenantID, instanceID uuid.UUID, kind string, delay time.Duration) error

	// Requeue re-arms the instance's item: if one exists (even mid-claim)
	// its kind is replaced and it becomes immediately visible again;
	// otherwise a new item is inserted. Used by signal delivery, where the
	// wakeup must survive a race with a worker finishing the suspending
	// unit of work.
	Requeue(ctx context.Context, tenantID, instanceID uuid.UUID, kind string) error

	// Claim atomically takes the oldest visible item and pushes its
	// visibility horizon out by the visibility timeout. Returns nil when
	// the queue is empty.
	Claim(ctx context.Context, visibilityTimeout time.Duration) (*Item, error)

	// Complete removes a finished item, but only if it still carries the
	// claim generation the worker took it at. attempts is the value from
	// the claimed Item; a re-armed item has moved on and survives.
	Complete(ctx context.Context, id int64, attempts int) error

	// Depth reports the number of pending items, for health reporting.
	Depth(ctx context.Context) (int, error)
}

type pgQueue struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates the PostgreSQL-backed queue over the control-plane database.
func New(db *sql.DB, logger *slog.Logger) System {
	return &pgQueue{
		db:     db,
		logger: logger.With("system", "queue"),
	}
}

func (q *pgQueue) Enqueue(
	ctx context.Context,
	tenantID, instanceID uuid.UUID,
	kind string,
	delay time.Duration,
) error {
	res, err := q.db.ExecContext(
		ctx,
		`INSERT INTO work_queue (tenant_id, instance_id, kind, visible_after)
		 VALUES ($1, $2, $3, now() + $4 * interval '1 second')
		 ON CONFLICT (instance_id) DO NOTHING`,
		tenantID, instanceID, kind, delay.Seconds(),
	)
	if err != nil {
		return fmt.Errorf("enqueue %s for instance %s: %w", kind, instanceID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("enqueue %s for instance %s: %w", kind, instanceID, err)
	}
	if n == 0 {
		return ErrDuplicate
	}

	q.logger.Debug("enqueued", "kind", kind, "tenant", tenantID, "instance", instanceID)
	return nil
}

func (q *pgQueue) Requeue(
	ctx context.Context,
	tenantID, instanceID uuid.UUID,
	kind string,
) error {
	// Bumping attempts on the conflict path moves the claim generation
	// forward, so a worker completing the old claim deletes nothing.
	_, err := q.db.ExecContext(
		ctx,
		`INSERT INTO work_queue (tenant_id, instance_id, kind, visible_after)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (instance_id) DO UPDATE
		 SET kind = EXCLUDED.kind,
		     visible_after = now(),
		     attempts = work_queue.attempts + 1`,
		tenantID, instanceID, kind,
	)
	if err != nil {
		return fmt.Errorf("requeue %s for instance %s: %w", kind, instanceID, err)
	}

	q.logger.Debug("requeued", "kind", kind, "tenant", tenantID, "instance", instanceID)
	return nil
}

func (q *pgQueue) Claim(ctx context.Context, visibilityTimeout time.Duration) (*Item, error) {
	item, err := repository.WithTx(ctx, q.db, func(tx *sql.Tx) (*Item, error) {
		row := tx.QueryRowContext(
			ctx,
			`SELECT id, tenant_id, instance_id, kind, attempts
			 FROM work_queue
			 WHERE visible_after <= now()
			 ORDER BY id
			 LIMIT 1
			 FOR UPDATE SKIP LOCKED`,
		)

		var it Item
		if err := row.Scan(&it.ID, &it.TenantID, &it.InstanceID, &it.Kind, &it.Attempts); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, err
		}

		_, err := tx.ExecContext(
			ctx,
			`UPDATE work_queue
			 SET attempts = attempts + 1,
			     visible_after = now() + $2 * interval '1 second'
			 WHERE id = $1`,
			it.ID, visibilityTimeout.Seconds(),
		)
		if err != nil {
			return nil, err
		}

		it.Attempts++
		return &it, nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim queue item: %w", err)
	}

	return item, nil
}

func (q *pgQueue) Complete(ctx context.Context, id int64, attempts int) error {
	_, err := q.db.ExecContext(
		ctx,
		"DELETE FROM work_queue WHERE id = $1 AND attempts = $2",
		id, attempts,
	)
	if err != nil {
		return fmt.Errorf("complete queue item %d: %w", id, err)
	}
	return nil
}

func (q *pgQueue) Depth(ctx context.Context) (int, error) {
	var depth int
	err := q.db.QueryRowContext(ctx, "SELECT count(*) FROM work_queue").Scan(&depth)
	if err != nil {
		return 0, fmt.Errorf("queue depth: %w", err)
	}
	return depth, nil
}
