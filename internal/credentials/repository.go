package credentials

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell/pkg/repository"
)

type repo struct {
	db     *sql.DB
	cipher *Cipher
	logger *slog.Logger
}

// New creates a credential repository implementing the System interface.
// Credentials live in the control-plane database regardless of scope; rows
// are operator-managed secrets, not tenant documents.
func New(db *sql.DB, cipher *Cipher, logger *slog.Logger) System {
	return &repo{
		db:     db,
		cipher: cipher,
		logger: logger.With("system", "credentials"),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

const credentialColumns = `id, scope_type, scope_owner, scope_qualifier, key, value, expires_at, last_used, created_at, updated_at`

func (r *repo) Resolve(ctx context.Context, key string, scope Scope) (string, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM credentials
		WHERE key = $1
		  AND (
			scope_type = 'system'
			OR (scope_type = 'tenant' AND scope_owner = $2)
			OR (scope_type = 'campaign' AND scope_owner = $3)
			OR (scope_type = 'step' AND scope_owner = $3 AND scope_qualifier = $4)
		  )`, credentialColumns)

	args := []any{key, scope.Tenant, scope.Campaign, scope.Step}

	candidates, err := repository.QueryMany(ctx, r.db, q, args, scanCredential)
	if err != nil {
		return "", fmt.Errorf("query credentials: %w", err)
	}

	match, ok := MostSpecific(candidates, scope, time.Now())
	if !ok {
		return "", ErrNotFound
	}

	value, err := r.cipher.Decrypt(match.Value)
	if err != nil {
		return "", err
	}

	r.touch(match.ID)
	return value, nil
}

func (r *repo) Put(ctx context.Context, cmd PutCommand) (*Credential, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	encrypted, err := r.cipher.Encrypt(cmd.Value)
	if err != nil {
		return nil, fmt.Errorf("encrypt credential: %w", err)
	}

	q := fmt.Sprintf(`
		INSERT INTO credentials (id, scope_type, scope_owner, scope_qualifier, key, value, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (scope_type, coalesce(scope_owner, '00000000-0000-0000-0000-000000000000'), coalesce(scope_qualifier, ''), key)
		DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = now()
		RETURNING %s`, credentialColumns)

	args := []any{uuid.New(), cmd.ScopeType, cmd.Owner, cmd.Qualifier, cmd.Key, encrypted, cmd.ExpiresAt}

	c, err := repository.QueryOne(ctx, r.db, q, args, scanCredential)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("credential stored", "scope", c.ScopeType, "key", c.Key)
	return &c, nil
}

func (r *repo) Delete(ctx context.Context, cmd DeleteCommand) error {
	err := repository.ExecExpectOne(
		ctx, r.db,
		`DELETE FROM credentials
		 WHERE scope_type = $1
		   AND scope_owner IS NOT DISTINCT FROM $2
		   AND scope_qualifier IS NOT DISTINCT FROM $3
		   AND key = $4`,
		cmd.ScopeType, cmd.Owner, cmd.Qualifier, cmd.Key,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("credential deleted", "scope", cmd.ScopeType, "key", cmd.Key)
	return nil
}

// touch records resolution time without blocking the caller. Failures are
// logged and dropped; last_used is advisory.
func (r *repo) touch(id uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, err := r.db.ExecContext(
			ctx,
			"UPDATE credentials SET last_used = now() WHERE id = $1",
			id,
		); err != nil {
			r.logger.Warn("last-used update failed", "id", id, "error", err)
		}
	}()
}

func scanCredential(s repository.Scanner) (Credential, error) {
	var c Credential
	err := s.Scan(
		&c.ID,
		&c.ScopeType,
		&c.Owner,
		&c.Qualifier,
		&c.Key,
		&c.Value,
		&c.ExpiresAt,
		&c.LastUsed,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}
