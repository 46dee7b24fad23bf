package campaigns

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell/internal/tenants"
	"github.com/inkwellhq/inkwell/pkg/handlers"
	"github.com/inkwellhq/inkwell/pkg/pagination"
	"github.com/inkwellhq/inkwell/pkg/routes"
)

var errInvalidID = errors.New("invalid campaign id")
var errInvalidBody = errors.New("invalid request body")

// Handler provides HTTP endpoints for campaign operations.
type Handler struct {
	sys        System
	manager    *tenants.Manager
	logger     *slog.Logger
	pagination pagination.Config
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// NewHandler creates a Handler with the given system, tenant manager, logger,
// and pagination config.
func NewHandler(
	sys System,
	manager *tenants.Manager,
	logger *slog.Logger,
	pagination pagination.Config,
) *Handler {
	return &Handler{
		sys:        sys,
		manager:    manager,
		logger:     logger.With("handler", "campaigns"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for campaign endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/tenants/{tenant}/campaigns",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "POST", Pattern: "", Handler: h.Create},
			{Method: "POST", Pattern: "/search", Handler: h.Search},
			{Method: "PUT", Pattern: "/{id}", Handler: h.Update},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete},
		},
	}
}

// List returns a paginated list of campaigns with optional query parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenants.Activate(w, r, h.manager, h.logger)
	if !ok {
		return
	}
	defer tc.Release()

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), tc, page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a single campaign by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenants.Activate(w, r, h.manager, h.logger)
	if !ok {
		return
	}
	defer tc.Release()

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidID)
		return
	}

	c, err := h.sys.Find(r.Context(), tc, id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, c)
}

// Search accepts a JSON body with pagination and filter criteria and returns matching campaigns.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenants.Activate(w, r, h.manager, h.logger)
	if !ok {
		return
	}
	defer tc.Release()

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidBody)
		return
	}

	req.PageRequest.Normalize(h.pagination)

	result, err := h.sys.List(r.Context(), tc, req.PageRequest, req.Filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Create accepts a JSON campaign definition and persists it after pipeline
// validation.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenants.Activate(w, r, h.manager, h.logger)
	if !ok {
		return
	}
	defer tc.Release()

	var cmd CreateCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidBody)
		return
	}

	c, err := h.sys.Create(r.Context(), tc, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, c)
}

// Update applies a partial update to a campaign by its UUID path parameter.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenants.Activate(w, r, h.manager, h.logger)
	if !ok {
		return
	}
	defer tc.Release()

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidID)
		return
	}

	var cmd UpdateCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidBody)
		return
	}

	c, err := h.sys.Update(r.Context(), tc, id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, c)
}

// Delete removes a campaign by its UUID path parameter. Campaigns with
// documents cannot be deleted.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenants.Activate(w, r, h.manager, h.logger)
	if !ok {
		return
	}
	defer tc.Release()

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidID)
		return
	}

	if err := h.sys.Delete(r.Context(), tc, id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
