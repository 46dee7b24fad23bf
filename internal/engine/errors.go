package engine

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors for engine operations.
var (
	ErrEmptyPipeline        = errors.New("pipeline must contain at least one step")
	ErrUnknownStepType      = errors.New("step type is not registered")
	ErrDuplicateStepType    = errors.New("step type already registered")
	ErrDuplicateLabel       = errors.New("step label is not unique within pipeline")
	ErrUnresolvedReference  = errors.New("unresolved step output reference")
	ErrForwardReference     = errors.New("reference to a step that does not precede it")
	ErrSchemaViolation      = errors.New("step output violates declared schema")
	ErrUnsupportedMediaType = errors.New("document media type not supported by processor")
	ErrStepIndexOutOfRange  = errors.New("step index out of range")
)

// MapHTTPStatus maps engine domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnknownStepType),
		errors.Is(err, ErrDuplicateLabel),
		errors.Is(err, ErrUnresolvedReference),
		errors.Is(err, ErrForwardReference):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// permanentError marks a processor failure that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps a processor error to mark it non-retryable. Unwrapped
// errors are treated as transient and retried with backoff.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err carries the non-retryable marker.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// ConfigError wraps a validation failure with the offending step label.
func ConfigError(label string, err error) error {
	return fmt.Errorf("step %q: %w", label, err)
}
