package processors

import (
	"context"
	"fmt"
	"path"

	"github.com/inkwellhq/inkwell/internal/engine"
)

// Archive copies the document blob to an archive location in the blob store
// and reports the destination key. Destination keys stay inside the
// document's tenant namespace.
//
// Config:
//
//	prefix (string, optional) — path segment under the document's directory,
//	default "archive".
type Archive struct{}

func (p *Archive) Execute(ctx context.Context, in engine.Input) (*engine.Result, error) {
	prefix := "archive"
	if v, ok := in.Config["prefix"].(string); ok && v != "" {
		prefix = v
	}

	src := in.Document.StorageKey
	dst := path.Join(path.Dir(src), prefix, path.Base(src))

	reader, err := in.Blobs.Download(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("download source blob: %w", err)
	}
	defer reader.Close()

	if err := in.Blobs.Upload(ctx, dst, reader, in.Document.ContentType); err != nil {
		return nil, fmt.Errorf("upload archive blob: %w", err)
	}

	return &engine.Result{
		Output: map[string]any{
			"archive_key": dst,
			"source_key":  src,
		},
	}, nil
}

func (p *Archive) OutputSchema() engine.Schema {
	return engine.Schema{
		Fields: []engine.Field{
			{Name: "archive_key", Type: engine.FieldString, Required: true},
			{Name: "source_key", Type: engine.FieldString, Required: true},
		},
	}
}

func (p *Archive) SupportedMediaTypes() []string {
	return nil
}
