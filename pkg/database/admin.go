package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgDuplicateDatabaseCode = "42P04"

// identPattern restricts logical database names to safe identifiers,
// since CREATE DATABASE cannot take the name as a bind parameter.
var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Admin performs data-definition operations against the server's maintenance
// database. CREATE DATABASE is rejected inside a transaction block by
// PostgreSQL, so Admin issues statements directly on the pool, never via
// repository.WithTx.
type Admin struct {
	conn *sql.DB
}

// NewAdmin wraps an established maintenance-database connection.
func NewAdmin(conn *sql.DB) *Admin {
	return &Admin{conn: conn}
}

// Exists reports whether a logical database with the given name exists.
func (a *Admin) Exists(ctx context.Context, name string) (bool, error) {
	if err := validateIdent(name); err != nil {
		return false, err
	}

	var found bool
	err := a.conn.QueryRowContext(
		ctx,
		"SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)",
		name,
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("check database %s: %w", name, err)
	}

	return found, nil
}

// Create creates a logical database. A duplicate_database error is treated
// as success so that two activations racing the same uninitialized tenant
// both converge.
func (a *Admin) Create(ctx context.Context, name string) error {
	if err := validateIdent(name); err != nil {
		return err
	}

	_, err := a.conn.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %s", name))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgDuplicateDatabaseCode {
			return nil
		}
		return fmt.Errorf("create database %s: %w", name, err)
	}

	return nil
}

// Drop removes a logical database, severing active connections first.
func (a *Admin) Drop(ctx context.Context, name string) error {
	if err := validateIdent(name); err != nil {
		return err
	}

	_, err := a.conn.ExecContext(
		ctx,
		fmt.Sprintf("DROP DATABASE IF EXISTS %s WITH (FORCE)", name),
	)
	if err != nil {
		return fmt.Errorf("drop database %s: %w", name, err)
	}

	return nil
}

func validateIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidDatabaseName, name)
	}
	return nil
}
