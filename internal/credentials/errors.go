package credentials

import (
	"errors"
	"net/http"
)

// Domain errors for credential operations.
var (
	ErrNotFound     = errors.New("credential not found")
	ErrDuplicate    = errors.New("credential already exists")
	ErrInvalidScope = errors.New("invalid credential scope")
	ErrEmptyKey     = errors.New("credential key must not be empty")
	ErrCorruptValue = errors.New("credential value cannot be decrypted")
)

// MapHTTPStatus maps credential domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidScope) || errors.Is(err, ErrEmptyKey) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
