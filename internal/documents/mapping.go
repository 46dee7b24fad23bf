package documents

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell/pkg/query"
	"github.com/inkwellhq/inkwell/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "documents", "d").
	Project("id", "ID").
	Project("campaign_id", "CampaignID").
	Project("filename", "Filename").
	Project("content_type", "ContentType").
	Project("size_bytes", "SizeBytes").
	Project("content_hash", "ContentHash").
	Project("page_count", "PageCount").
	Project("storage_key", "StorageKey").
	Project("status", "Status").
	Project("outputs", "Outputs").
	Project("uploaded_at", "UploadedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "UploadedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for document queries.
// Nil fields are ignored. Status, CampaignID, ContentType, and ContentHash
// use exact matching; Filename uses case-insensitive contains matching.
type Filters struct {
	Status      *string    `json:"status,omitempty"`
	CampaignID  *uuid.UUID `json:"campaign_id,omitempty"`
	Filename    *string    `json:"filename,omitempty"`
	ContentType *string    `json:"content_type,omitempty"`
	ContentHash *string    `json:"content_hash,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereEquals("CampaignID", f.CampaignID).
		WhereContains("Filename", f.Filename).
		WhereEquals("ContentType", f.ContentType).
		WhereEquals("ContentHash", f.ContentHash)
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

	if fn := values.Get("filename"); fn != "" {
		f.Filename = &fn
	}

	if ct := values.Get("content_type"); ct != "" {
		f.ContentType = &ct
	}

	if ch := values.Get("content_hash"); ch != "" {
		f.ContentHash = &ch
	}

	return f
}

func scanDocument(s repository.Scanner) (Document, error) {
	var (
		d       Document
		outputs []byte
	)

	err := s.Scan(
		&d.ID,
		&d.CampaignID,
		&d.Filename,
		&d.ContentType,
		&d.SizeBytes,
		&d.ContentHash,
		&d.PageCount,
		&d.StorageKey,
		&d.Status,
		&outputs,
		&d.UploadedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return d, err
	}

	if len(outputs) > 0 {
		if err := json.Unmarshal(outputs, &d.Outputs); err != nil {
			return d, fmt.Errorf("unmarshal document outputs: %w", err)
		}
	}

	return d, nil
}
