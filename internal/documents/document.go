// Package documents implements the document domain: upload, registration,
// lifecycle status, accumulated step outputs, and blob storage integration.
// All rows live in the owning tenant's logical database.
package documents

import (
	"time"

	"github.com/google/uuid"
)

// Document lifecycle statuses. Transitions are driven by the workflow
// controller only: received → queued → processing → completed|failed|cancelled.
const (
	StatusReceived   = "received"
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// Document represents an uploaded artifact belonging to one campaign.
// Outputs accumulates step outputs keyed by step label; it is copied from
// the workflow instance at terminal success so the document row is
// self-contained for retention and audit.
type Document struct {
	ID          uuid.UUID                 `json:"id"`
	CampaignID  uuid.UUID                 `json:"campaign_id"`
	Filename    string                    `json:"filename"`
	ContentType string                    `json:"content_type"`
	SizeBytes   int64                     `json:"size_bytes"`
	ContentHash string                    `json:"content_hash"`
	PageCount   *int                      `json:"page_count,omitempty"`
	StorageKey  string                    `json:"storage_key"`
	Status      string                    `json:"status"`
	Outputs     map[string]map[string]any `json:"outputs,omitempty"`
	UploadedAt  time.Time                 `json:"uploaded_at"`
	UpdatedAt   time.Time                 `json:"updated_at"`
}

// CreateCommand carries the data needed to upload and register a document.
// Data holds the raw file bytes. PageCount is optional and may be extracted
// by the caller via pdfcpu; nil values are stored as NULL.
type CreateCommand struct {
	CampaignID  uuid.UUID
	Data        []byte
	Filename    string
	ContentType string
	PageCount   *int
}
