package tenants

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Finder looks up tenants by identifier. Implemented by System.
type Finder interface {
	Find(ctx context.Context, id uuid.UUID) (*Tenant, error)
}

// Manager activates tenants for units of work. Each Activate call performs
// the full verification sequence; the manager itself holds no notion of a
// currently active tenant.
type Manager struct {
	store       Finder
	provisioner Provisioner
	logger      *slog.Logger
}

// NewManager creates a Manager over the given registry and provisioner.
func NewManager(store Finder, provisioner Provisioner, logger *slog.Logger) *Manager {
	return &Manager{
		store:       store,
		provisioner: provisioner,
		logger:      logger.With("system", "tenant-manager"),
	}
}

// Activate makes tenantID's logical database the target of the current unit
// of work and returns the handle to thread through data-access calls.
//
// Activation verifies the tenant is active, then ensures its database exists
// and is schema-complete, repairing partial provisioning if found. If repair
// fails, activation fails rather than handing out a broken handle.
func (m *Manager) Activate(ctx context.Context, tenantID uuid.UUID) (*Context, error) {
	t, err := m.store.Find(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if t.Status != StatusActive {
		return nil, ErrNotActive
	}

	db, err := m.provisioner.Ensure(ctx, t)
	if err != nil {
		return nil, err
	}

	return &Context{tenant: *t, db: db}, nil
}
