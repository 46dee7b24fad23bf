package campaigns

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell/internal/engine"
)

// SeedDefaults writes the default campaign into a freshly provisioned
// tenant database. Matches the tenants.SeedFunc signature.
func SeedDefaults(ctx context.Context, db *sql.DB) error {
	steps, err := json.Marshal(engine.Pipeline{
		{Type: "metadata", Label: "metadata"},
	})
	if err != nil {
		return fmt.Errorf("marshal default pipeline: %w", err)
	}

	_, err = db.ExecContext(
		ctx,
		`INSERT INTO campaigns (id, name, description, steps)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (name) DO NOTHING`,
		uuid.New(),
		"intake",
		"Default intake campaign: records document metadata.",
		steps,
	)
	if err != nil {
		return fmt.Errorf("seed default campaign: %w", err)
	}

	return nil
}
