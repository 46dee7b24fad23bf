package tenants

import (
	"github.com/inkwellhq/inkwell/pkg/query"
	"github.com/inkwellhq/inkwell/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "tenants", "t").
	Project("id", "ID").
	Project("name", "Name").
	Project("status", "Status").
	Project("tier", "Tier").
	Project("database_name", "DatabaseName").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt").
	Project("deleted_at", "DeletedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

func scanTenant(s repository.Scanner) (Tenant, error) {
	var t Tenant
	err := s.Scan(
		&t.ID,
		&t.Name,
		&t.Status,
		&t.Tier,
		&t.DatabaseName,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.DeletedAt,
	)
	return t, err
}
