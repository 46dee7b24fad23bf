package database

import "errors"

var (
	// ErrNotReady indicates the database connection has not been established.
	ErrNotReady = errors.New("database not ready")
	// ErrInvalidDatabaseName indicates a logical database name that is not a
	// safe PostgreSQL identifier.
	ErrInvalidDatabaseName = errors.New("invalid database name")
)
