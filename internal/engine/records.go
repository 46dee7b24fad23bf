package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell/internal/tenants"
	"github.com/inkwellhq/inkwell/pkg/repository"
)

// Step execution record statuses.
const (
	ExecutionSuccess   = "success"
	ExecutionFailed    = "failed"
	ExecutionSuspended = "suspended"
)

// StepExecution is one attempt of one step within one workflow instance.
// Records are append-only: the full attempt history survives later failure.
type StepExecution struct {
	ID         int64          `json:"id"`
	InstanceID uuid.UUID      `json:"instance_id"`
	StepLabel  string         `json:"step_label"`
	StepType   string         `json:"step_type"`
	Attempt    int            `json:"attempt"`
	Status     string         `json:"status"`
	Output     map[string]any `json:"output,omitempty"`
	Error      *string        `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	DurationMS int64          `json:"duration_ms"`
}

// RecordStore persists step execution records in the tenant's database.
type RecordStore interface {
	// Append writes one attempt record. Idempotent per
	// (instance, step, attempt): a redelivered attempt replaces its record.
	Append(ctx context.Context, tc *tenants.Context, rec *StepExecution) error
	List(ctx context.Context, tc *tenants.Context, instanceID uuid.UUID) ([]StepExecution, error)
}

type pgRecords struct{}

// NewRecordStore creates the PostgreSQL-backed record store.
func NewRecordStore() RecordStore {
	return &pgRecords{}
}

func (s *pgRecords) Append(ctx context.Context, tc *tenants.Context, rec *StepExecution) error {
	var output []byte
	if rec.Output != nil {
		var err error
		if output, err = json.Marshal(rec.Output); err != nil {
			return fmt.Errorf("marshal step output: %w", err)
		}
	}

	// A redelivered unit of work can re-run an attempt number that was
	// already recorded before the crash; the re-run's record replaces the
	// stale one so each (instance, step, attempt) keeps exactly one row.
	err := tc.DB().QueryRowContext(
		ctx,
		`INSERT INTO step_executions
			(instance_id, step_label, step_type, attempt, status, output, error, started_at, finished_at, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT ON CONSTRAINT step_executions_attempt_unique DO UPDATE
		 SET status = EXCLUDED.status,
		     output = EXCLUDED.output,
		     error = EXCLUDED.error,
		     started_at = EXCLUDED.started_at,
		     finished_at = EXCLUDED.finished_at,
		     duration_ms = EXCLUDED.duration_ms
		 RETURNING id`,
		rec.InstanceID,
		rec.StepLabel,
		rec.StepType,
		rec.Attempt,
		rec.Status,
		output,
		rec.Error,
		rec.StartedAt,
		rec.FinishedAt,
		rec.DurationMS,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("append step execution: %w", err)
	}

	return nil
}

func (s *pgRecords) List(
	ctx context.Context,
	tc *tenants.Context,
	instanceID uuid.UUID,
) ([]StepExecution, error) {
	q := `
		SELECT id, instance_id, step_label, step_type, attempt, status, output, error, started_at, finished_at, duration_ms
		FROM step_executions
		WHERE instance_id = $1
		ORDER BY id ASC`

	return repository.QueryMany(ctx, tc.DB(), q, []any{instanceID}, scanExecution)
}

func scanExecution(s repository.Scanner) (StepExecution, error) {
	var (
		rec    StepExecution
		output sql.Null[[]byte]
	)

	err := s.Scan(
		&rec.ID,
		&rec.InstanceID,
		&rec.StepLabel,
		&rec.StepType,
		&rec.Attempt,
		&rec.Status,
		&output,
		&rec.Error,
		&rec.StartedAt,
		&rec.FinishedAt,
		&rec.DurationMS,
	)
	if err != nil {
		return rec, err
	}

	if output.Valid && len(output.V) > 0 {
		if err := json.Unmarshal(output.V, &rec.Output); err != nil {
			return rec, fmt.Errorf("unmarshal step output: %w", err)
		}
	}

	return rec, nil
}
