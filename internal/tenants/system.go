package tenants

import (
	"context"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell/pkg/pagination"
)

// System defines the public contract for tenant registry operations.
type System interface {
	Handler() *Handler

	// Create registers a tenant and synchronously provisions its logical
	// database. The tenant is not visible until provisioning succeeds.
	Create(ctx context.Context, cmd CreateCommand) (*Tenant, error)

	Find(ctx context.Context, id uuid.UUID) (*Tenant, error)
	List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Tenant], error)

	// Suspend pauses a tenant; suspended tenants cannot be activated.
	Suspend(ctx context.Context, id uuid.UUID) error

	// Resume returns a suspended tenant to active.
	Resume(ctx context.Context, id uuid.UUID) error

	// Cancel soft-deletes a tenant. Its logical database is retained per
	// retention policy; only the registry row is marked.
	Cancel(ctx context.Context, id uuid.UUID) error
}
