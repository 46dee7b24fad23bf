package processors

import (
	"context"

	"github.com/inkwellhq/inkwell/internal/engine"
)

// Metadata emits the document's registration metadata as a step output, so
// later steps can reference filename, media type, size, and hash through
// the ordinary <label.field> mechanism.
type Metadata struct{}

func (p *Metadata) Execute(ctx context.Context, in engine.Input) (*engine.Result, error) {
	output := map[string]any{
		"filename":     in.Document.Filename,
		"content_type": in.Document.ContentType,
		"size_bytes":   in.Document.SizeBytes,
		"content_hash": in.Document.ContentHash,
	}

	if in.Document.PageCount != nil {
		output["page_count"] = *in.Document.PageCount
	}

	return &engine.Result{Output: output}, nil
}

func (p *Metadata) OutputSchema() engine.Schema {
	return engine.Schema{
		Fields: []engine.Field{
			{Name: "filename", Type: engine.FieldString, Required: true},
			{Name: "content_type", Type: engine.FieldString, Required: true},
			{Name: "size_bytes", Type: engine.FieldNumber, Required: true},
			{Name: "content_hash", Type: engine.FieldString, Required: true},
			{Name: "page_count", Type: engine.FieldNumber},
		},
	}
}

func (p *Metadata) SupportedMediaTypes() []string {
	return nil
}
