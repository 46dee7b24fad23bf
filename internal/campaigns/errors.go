package campaigns

import (
	"errors"
	"net/http"

	"github.com/inkwellhq/inkwell/internal/engine"
)

// Domain errors for campaign operations.
var (
	ErrNotFound    = errors.New("campaign not found")
	ErrDuplicate   = errors.New("campaign already exists")
	ErrInvalidName = errors.New("campaign name must not be empty")
	ErrInUse       = errors.New("campaign has documents and cannot be deleted")
)

// MapHTTPStatus maps campaign domain errors to appropriate HTTP status codes.
// Pipeline validation failures from the engine surface as bad requests.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, ErrInUse) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidName) || isPipelineError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func isPipelineError(err error) bool {
	return errors.Is(err, engine.ErrUnknownStepType) ||
		errors.Is(err, engine.ErrDuplicateLabel) ||
		errors.Is(err, engine.ErrForwardReference) ||
		errors.Is(err, engine.ErrEmptyPipeline)
}
