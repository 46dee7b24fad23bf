package tenants

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell/pkg/handlers"
)

// ErrInvalidID is returned when a tenant path parameter is not a UUID.
var ErrInvalidID = errors.New("invalid tenant id")

// Activate resolves the {tenant} path parameter and activates that tenant
// for the duration of the request. On failure it writes the error response
// and returns ok = false. Callers must Release the returned handle.
func Activate(
	w http.ResponseWriter,
	r *http.Request,
	manager *Manager,
	logger *slog.Logger,
) (*Context, bool) {
	id, err := uuid.Parse(r.PathValue("tenant"))
	if err != nil {
		handlers.RespondError(w, logger, http.StatusBadRequest, ErrInvalidID)
		return nil, false
	}

	tc, err := manager.Activate(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, logger, MapHTTPStatus(err), err)
		return nil, false
	}

	return tc, true
}
