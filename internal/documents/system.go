package documents

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell/internal/tenants"
	"github.com/inkwellhq/inkwell/pkg/pagination"
)

// System defines the public contract for document domain operations. Every
// data operation takes the tenant handle for the current unit of work.
type System interface {
	Handler(manager *tenants.Manager, maxUploadSize int64) *Handler

	List(
		ctx context.Context,
		tc *tenants.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Document], error)

	Find(ctx context.Context, tc *tenants.Context, id uuid.UUID) (*Document, error)

	// Content streams the stored blob for a document along with its
	// recorded content type.
	Content(ctx context.Context, tc *tenants.Context, id uuid.UUID) (io.ReadCloser, string, error)

	Create(ctx context.Context, tc *tenants.Context, cmd CreateCommand) (*Document, error)
	Delete(ctx context.Context, tc *tenants.Context, id uuid.UUID) error

	SetStatus(ctx context.Context, tc *tenants.Context, id uuid.UUID, status string) error
	SetOutputs(ctx context.Context, tc *tenants.Context, id uuid.UUID, outputs map[string]map[string]any) error
}
