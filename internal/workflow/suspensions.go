package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/inkwellhq/inkwell/pkg/repository"
)

// SuspensionStore maintains the control-plane token routing rows. Rows exist
// only while their instance is suspended; Signal and the sweep both delete
// them once the token is spent.
type SuspensionStore interface {
	Put(ctx context.Context, s Suspension) error
	Find(ctx context.Context, token string) (*Suspension, error)
	Delete(ctx context.Context, token string) error
	Expired(ctx context.Context, now time.Time, limit int) ([]Suspension, error)
}

type pgSuspensions struct {
	db *sql.DB
}

// NewSuspensionStore creates the PostgreSQL-backed suspension store over the
// control-plane database.
func NewSuspensionStore(db *sql.DB) SuspensionStore {
	return &pgSuspensions{db: db}
}

func (s *pgSuspensions) Put(ctx context.Context, susp Suspension) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO suspensions (token, tenant_id, instance_id, step_label, deadline)
		 VALUES ($1, $2, $3, $4, $5)`,
		susp.Token, susp.TenantID, susp.InstanceID, susp.StepLabel, susp.Deadline,
	)
	if err != nil {
		return fmt.Errorf("put suspension: %w", err)
	}
	return nil
}

func (s *pgSuspensions) Find(ctx context.Context, token string) (*Suspension, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT token, tenant_id, instance_id, step_label, deadline, suspended_at
		 FROM suspensions WHERE token = $1`,
		token,
	)

	var susp Suspension
	err := row.Scan(
		&susp.Token,
		&susp.TenantID,
		&susp.InstanceID,
		&susp.StepLabel,
		&susp.Deadline,
		&susp.SuspendedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find suspension: %w", err)
	}

	return &susp, nil
}

func (s *pgSuspensions) Delete(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM suspensions WHERE token = $1", token); err != nil {
		return fmt.Errorf("delete suspension: %w", err)
	}
	return nil
}

func (s *pgSuspensions) Expired(ctx context.Context, now time.Time, limit int) ([]Suspension, error) {
	q := `
		SELECT token, tenant_id, instance_id, step_label, deadline, suspended_at
		FROM suspensions
		WHERE deadline < $1
		ORDER BY deadline
		LIMIT $2`

	return repository.QueryMany(ctx, s.db, q, []any{now, limit}, scanSuspension)
}

func scanSuspension(s repository.Scanner) (Suspension, error) {
	var susp Suspension
	err := s.Scan(
		&susp.Token,
		&susp.TenantID,
		&susp.InstanceID,
		&susp.StepLabel,
		&susp.Deadline,
		&susp.SuspendedAt,
	)
	return susp, err
}
