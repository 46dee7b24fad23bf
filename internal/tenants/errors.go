package tenants

import (
	"errors"
	"net/http"
)

// Domain errors for tenant operations.
var (
	ErrNotFound     = errors.New("tenant not found")
	ErrDuplicate    = errors.New("tenant already exists")
	ErrNotActive    = errors.New("tenant is not active")
	ErrInvalidName  = errors.New("tenant name must not be empty")
	ErrProvisioning = errors.New("tenant database provisioning failed")
)

// MapHTTPStatus maps tenant domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrNotActive) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrInvalidName) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
