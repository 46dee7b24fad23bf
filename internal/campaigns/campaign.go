// Package campaigns implements the campaign domain: named processing
// pipelines that documents are submitted against. Campaign rows live in the
// owning tenant's logical database; the pipeline definition is validated
// against the processor registry at save time so workflow submission never
// encounters a structurally invalid pipeline.
package campaigns

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell/internal/engine"
)

// Campaign is a named pipeline definition owned by one tenant.
type Campaign struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Steps       engine.Pipeline `json:"steps"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CreateCommand carries the data needed to create a campaign.
type CreateCommand struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Steps       engine.Pipeline `json:"steps"`
}

// Validate checks the command's shape and the pipeline's structure against
// the registry.
func (c CreateCommand) Validate(reg *engine.Registry) error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrInvalidName
	}
	if err := c.Steps.Validate(reg); err != nil {
		return err
	}
	return nil
}

// UpdateCommand carries the data needed to update a campaign. Nil fields
// are left unchanged.
type UpdateCommand struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Steps       *engine.Pipeline `json:"steps,omitempty"`
}

// Validate checks whichever fields the update carries.
func (c UpdateCommand) Validate(reg *engine.Registry) error {
	if c.Name != nil && strings.TrimSpace(*c.Name) == "" {
		return ErrInvalidName
	}
	if c.Steps != nil {
		if err := c.Steps.Validate(reg); err != nil {
			return err
		}
	}
	return nil
}
