package workflow

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell/pkg/query"
	"github.com/inkwellhq/inkwell/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "workflow_instances", "w").
	Project("id", "ID").
	Project("document_id", "DocumentID").
	Project("campaign_id", "CampaignID").
	Project("pipeline", "Pipeline").
	Project("step_index", "StepIndex").
	Project("outputs", "Outputs").
	Project("status", "Status").
	Project("suspend_token", "SuspendToken").
	Project("suspend_step", "SuspendStep").
	Project("suspend_deadline", "SuspendDeadline").
	Project("failure", "Failure").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt").
	Project("completed_at", "CompletedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for instance queries.
type Filters struct {
	Status     *string    `json:"status,omitempty"`
	CampaignID *uuid.UUID `json:"campaign_id,omitempty"`
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereEquals("CampaignID", f.CampaignID).
		WhereEquals("DocumentID", f.DocumentID)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if c := values.Get("campaign_id"); c != "" {
		if id, err := uuid.Parse(c); err == nil {
			f.CampaignID = &id
		}
	}

	if d := values.Get("document_id"); d != "" {
		if id, err := uuid.Parse(d); err == nil {
			f.DocumentID = &id
		}
	}

	return f
}

func scanInstance(s repository.Scanner) (Instance, error) {
	var (
		inst     Instance
		pipeline []byte
		outputs  []byte
		failure  []byte
	)

	err := s.Scan(
		&inst.ID,
		&inst.DocumentID,
		&inst.CampaignID,
		&pipeline,
		&inst.StepIndex,
		&outputs,
		&inst.Status,
		&inst.SuspendToken,
		&inst.SuspendStep,
		&inst.SuspendDeadline,
		&failure,
		&inst.CreatedAt,
		&inst.UpdatedAt,
		&inst.CompletedAt,
	)
	if err != nil {
		return inst, err
	}

	if err := json.Unmarshal(pipeline, &inst.Pipeline); err != nil {
		return inst, fmt.Errorf("unmarshal instance pipeline: %w", err)
	}

	inst.Outputs = map[string]map[string]any{}
	if len(outputs) > 0 {
		if err := json.Unmarshal(outputs, &inst.Outputs); err != nil {
			return inst, fmt.Errorf("unmarshal instance outputs: %w", err)
		}
	}

	if len(failure) > 0 {
		inst.Failure = &Failure{}
		if err := json.Unmarshal(failure, inst.Failure); err != nil {
			return inst, fmt.Errorf("unmarshal instance failure: %w", err)
		}
	}

	return inst, nil
}
