package campaigns

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/inkwellhq/inkwell/pkg/query"
	"github.com/inkwellhq/inkwell/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "campaigns", "c").
	Project("id", "ID").
	Project("name", "Name").
	Project("description", "Description").
	Project("steps", "Steps").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{Field: "Name"}

// Filters contains optional filtering criteria for campaign queries.
type Filters struct {
	Name *string `json:"name,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.WhereContains("Name", f.Name)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters
	if n := values.Get("name"); n != "" {
		f.Name = &n
	}
	return f
}

func scanCampaign(s repository.Scanner) (Campaign, error) {
	var (
		c     Campaign
		steps []byte
	)

	err := s.Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&steps,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return c, err
	}

	if len(steps) > 0 {
		if err := json.Unmarshal(steps, &c.Steps); err != nil {
			return c, fmt.Errorf("unmarshal campaign steps: %w", err)
		}
	}

	return c, nil
}
