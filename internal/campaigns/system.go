package campaigns

import (
	"context"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell/internal/tenants"
	"github.com/inkwellhq/inkwell/pkg/pagination"
)

// System defines the public contract for campaign domain operations. Every
// data operation takes the tenant handle for the current unit of work.
type System interface {
	Handler(manager *tenants.Manager) *Handler

	List(
		ctx context.Context,
		tc *tenants.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Campaign], error)

	Find(ctx context.Context, tc *tenants.Context, id uuid.UUID) (*Campaign, error)
	Create(ctx context.Context, tc *tenants.Context, cmd CreateCommand) (*Campaign, error)
	Update(ctx context.Context, tc *tenants.Context, id uuid.UUID, cmd UpdateCommand) (*Campaign, error)
	Delete(ctx context.Context, tc *tenants.Context, id uuid.UUID) error
}
