package credentials

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/inkwellhq/inkwell/pkg/handlers"
	"github.com/inkwellhq/inkwell/pkg/routes"
)

var errInvalidBody = errors.New("invalid request body")

// Handler provides administrative HTTP endpoints for credential management.
// There is no read endpoint: stored values leave the database only through
// Resolve, inside a processor invocation.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "credentials"),
	}
}

// Routes returns the route group definition for credential endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/credentials",
		Routes: []routes.Route{
			{Method: "PUT", Pattern: "", Handler: h.Put},
			{Method: "DELETE", Pattern: "", Handler: h.Delete},
		},
	}
}

// Put creates or replaces a credential.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	var cmd PutCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidBody)
		return
	}

	cred, err := h.sys.Put(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, cred)
}

// Delete removes a credential identified by scope and key.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	var cmd DeleteCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidBody)
		return
	}

	if err := h.sys.Delete(r.Context(), cmd); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
