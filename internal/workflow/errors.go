package workflow

import (
	"errors"
	"net/http"
)

// Domain errors for workflow operations.
var (
	ErrNotFound          = errors.New("workflow instance not found")
	ErrDuplicate         = errors.New("document already has a workflow instance")
	ErrNotCancellable    = errors.New("workflow instance is not running or suspended")
	ErrDocumentMismatch  = errors.New("document does not belong to campaign")
	ErrInvalidSubmission = errors.New("invalid submission")
)

// MapHTTPStatus maps workflow domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, ErrNotCancellable) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrDocumentMismatch) || errors.Is(err, ErrInvalidSubmission) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
