// Package engine executes single pipeline steps against a uniform processor
// contract. It owns the step definition, the processor registry, deferred
// reference resolution, output schema validation, and the append-only step
// execution audit trail.
package engine

import (
	"context"
	"time"

	"github.com/inkwellhq/inkwell/internal/documents"
	"github.com/inkwellhq/inkwell/pkg/storage"
)

// Processor is the closed interface implemented once per step type.
// Concrete integrations (OCR engines, classifiers, identity-verification
// vendors, signers, notifiers) live behind this contract and are registered
// by type identifier.
type Processor interface {
	// Execute runs the step. A nil error with a Suspension in the result
	// pauses the workflow until an external signal arrives.
	Execute(ctx context.Context, in Input) (*Result, error)

	// OutputSchema declares the shape of a successful output. The engine
	// validates every success against it before the output becomes visible
	// to later steps.
	OutputSchema() Schema

	// SupportedMediaTypes lists the document media types the processor
	// accepts. Empty means any.
	SupportedMediaTypes() []string
}

// Input carries everything a processor may need for one execution.
type Input struct {
	// Document is the artifact being processed.
	Document *documents.Document

	// Config is the step configuration with all deferred references
	// already resolved.
	Config map[string]any

	// Outputs holds prior steps' outputs keyed by step label.
	Outputs map[string]map[string]any

	// Blobs reads and writes document content; keys are already
	// tenant-namespaced by the caller.
	Blobs storage.System

	// Credentials resolves secrets at this step's scope.
	Credentials CredentialSource
}

// CredentialSource resolves a named secret visible from the executing step.
type CredentialSource interface {
	Get(ctx context.Context, key string) (string, error)
}

// Result is a processor's successful return value.
type Result struct {
	// Output is the step's output object, validated against OutputSchema.
	// Ignored when Suspend is set.
	Output map[string]any

	// Suspend, when non-nil, requests workflow suspension until an external
	// signal carrying the token arrives.
	Suspend *Suspension
}

// Suspension describes a requested wait on an external signal.
type Suspension struct {
	Token   string
	Timeout time.Duration
}
