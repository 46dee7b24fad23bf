package tenants

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"golang.org/x/sync/singleflight"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/inkwellhq/inkwell/pkg/database"
)

//go:embed migrations/*.sql
var tenantMigrations embed.FS

// canonicalTable is the probe target for schema completeness. If the tenant
// database exists but this table is absent, the schema setup never finished
// and the full migration set runs before activation returns.
const canonicalTable = "campaigns"

// SeedFunc populates a freshly provisioned tenant database with default
// rows. It runs exactly once per provisioning, after migrations.
type SeedFunc func(ctx context.Context, db *sql.DB) error

// Provisioner guarantees a schema-complete logical database for a tenant,
// returning its connection pool.
type Provisioner interface {
	Ensure(ctx context.Context, t *Tenant) (*sql.DB, error)
}

type pgProvisioner struct {
	admin  *database.Admin
	cfg    *database.Config
	seed   SeedFunc
	logger *slog.Logger

	mu    sync.Mutex
	pools map[string]*sql.DB
	group singleflight.Group
}

// NewProvisioner creates a Provisioner backed by the PostgreSQL server that
// cfg points at. admin must be connected to a maintenance database on the
// same server. seed may be nil.
func NewProvisioner(
	admin *database.Admin,
	cfg *database.Config,
	seed SeedFunc,
	logger *slog.Logger,
) Provisioner {
	return &pgProvisioner{
		admin:  admin,
		cfg:    cfg,
		seed:   seed,
		logger: logger.With("system", "provisioner"),
		pools:  make(map[string]*sql.DB),
	}
}

// Ensure runs the self-healing activation check: database present, canonical
// table present, otherwise create and migrate. The check is cheap and runs
// on every activation; concurrent activations racing the same uninitialized
// tenant collapse onto one provisioning flight.
func (p *pgProvisioner) Ensure(ctx context.Context, t *Tenant) (*sql.DB, error) {
	pool, err := p.pool(t.DatabaseName)
	if err != nil {
		return nil, err
	}

	ok, err := p.schemaComplete(ctx, pool)
	if err == nil && ok {
		return pool, nil
	}

	_, provErr, _ := p.group.Do(t.DatabaseName, func() (any, error) {
		return nil, p.provision(ctx, t, pool)
	})
	if provErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvisioning, provErr)
	}

	return pool, nil
}

func (p *pgProvisioner) provision(ctx context.Context, t *Tenant, pool *sql.DB) error {
	exists, err := p.admin.Exists(ctx, t.DatabaseName)
	if err != nil {
		return err
	}

	if !exists {
		p.logger.Info("creating tenant database", "tenant", t.ID, "database", t.DatabaseName)
		// CREATE DATABASE must run outside any transaction block.
		if err := p.admin.Create(ctx, t.DatabaseName); err != nil {
			return err
		}
	}

	ok, err := p.schemaComplete(ctx, pool)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	p.logger.Info("running tenant schema setup", "tenant", t.ID, "database", t.DatabaseName)
	if err := p.migrate(t.DatabaseName); err != nil {
		return err
	}

	if p.seed != nil {
		if err := p.seed(ctx, pool); err != nil {
			return fmt.Errorf("seed tenant defaults: %w", err)
		}
	}

	return nil
}

func (p *pgProvisioner) migrate(name string) error {
	source, err := iofs.New(tenantMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, p.cfg.URLFor(name))
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply tenant schema: %w", err)
	}

	return nil
}

func (p *pgProvisioner) schemaComplete(ctx context.Context, pool *sql.DB) (bool, error) {
	var reg sql.NullString
	err := pool.QueryRowContext(
		ctx,
		"SELECT to_regclass($1)::text",
		"public."+canonicalTable,
	).Scan(&reg)
	if err != nil {
		return false, err
	}
	return reg.Valid, nil
}

// pool returns the cached connection pool for a logical database, opening it
// on first use. Pools are process-wide shared plumbing, not tenant state;
// activation still re-verifies the schema on every unit of work.
func (p *pgProvisioner) pool(name string) (*sql.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pool, ok := p.pools[name]; ok {
		return pool, nil
	}

	pool, err := sql.Open("pgx", p.cfg.DsnFor(name))
	if err != nil {
		return nil, fmt.Errorf("open tenant database %s: %w", name, err)
	}

	pool.SetMaxOpenConns(p.cfg.MaxOpenConns)
	pool.SetMaxIdleConns(p.cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(p.cfg.ConnMaxLifetimeDuration())

	p.pools[name] = pool
	return pool, nil
}
