// Package tenants implements the tenant domain: the control-plane registry,
// logical-database provisioning, and per-unit-of-work activation.
//
// Every tenant owns a dedicated logical database holding its campaigns,
// documents, workflow instances, and step execution records. Activation
// hands out an explicit Context that data-access code threads through all
// calls; there is no ambient "current tenant".
package tenants

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is a tenant lifecycle state.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusCancelled = "cancelled"
)

// Tenant represents a customer account in the control-plane registry.
type Tenant struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Status       string     `json:"status"`
	Tier         string     `json:"tier"`
	DatabaseName string     `json:"database_name"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// CreateCommand carries the data needed to register a new tenant.
// Creation provisions the tenant's logical database synchronously.
type CreateCommand struct {
	Name string `json:"name"`
	Tier string `json:"tier"`
}

// DatabaseName derives the logical database name for a tenant identifier.
// The name must be a safe PostgreSQL identifier, so the UUID is flattened.
func DatabaseName(id uuid.UUID) string {
	return "inkwell_t_" + strings.ReplaceAll(id.String(), "-", "")
}
