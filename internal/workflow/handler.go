package workflow

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell/internal/campaigns"
	"github.com/inkwellhq/inkwell/internal/documents"
	"github.com/inkwellhq/inkwell/internal/tenants"
	"github.com/inkwellhq/inkwell/pkg/handlers"
	"github.com/inkwellhq/inkwell/pkg/pagination"
	"github.com/inkwellhq/inkwell/pkg/routes"
)

var errInvalidID = errors.New("invalid instance id")
var errInvalidBody = errors.New("invalid request body")

// Handler provides HTTP endpoints for workflow operations. Signals arrive on
// a token-only route with no tenant segment: the token routing row locates
// the tenant.
type Handler struct {
	sys        System
	manager    *tenants.Manager
	logger     *slog.Logger
	pagination pagination.Config
}

// SubmitRequest is the JSON body of a submission.
type SubmitRequest struct {
	CampaignID uuid.UUID `json:"campaign_id"`
	DocumentID uuid.UUID `json:"document_id"`
}

// NewHandler creates a Handler with the given system, tenant manager,
// logger, and pagination config.
func NewHandler(
	sys System,
	manager *tenants.Manager,
	logger *slog.Logger,
	pagination pagination.Config,
) *Handler {
	return &Handler{
		sys:        sys,
		manager:    manager,
		logger:     logger.With("handler", "workflow"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for tenant-scoped workflow
// endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/tenants/{tenant}/workflows",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Submit},
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "GET", Pattern: "/{id}/records", Handler: h.ListRecords},
			{Method: "POST", Pattern: "/{id}/cancel", Handler: h.Cancel},
		},
	}
}

// SignalRoutes returns the unscoped signal endpoint.
func (h *Handler) SignalRoutes() routes.Group {
	return routes.Group{
		Prefix: "/signals",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/{token}", Handler: h.Signal},
		},
	}
}

// Submit accepts a document for asynchronous processing against a campaign.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenants.Activate(w, r, h.manager, h.logger)
	if !ok {
		return
	}
	defer tc.Release()

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidBody)
		return
	}
	if req.CampaignID == uuid.Nil || req.DocumentID == uuid.Nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidSubmission)
		return
	}

	inst, err := h.sys.Submit(r.Context(), tc, req.CampaignID, req.DocumentID)
	if err != nil {
		handlers.RespondError(w, h.logger, submitStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, inst)
}

// Signal resolves a suspension token. Always 204: unknown and spent tokens
// are indistinguishable from delivered ones by design of the contract.
func (h *Handler) Signal(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidBody)
		return
	}

	// The payload is optional; an empty body signals with no data.
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidBody)
		return
	}

	if err := h.sys.Signal(r.Context(), token, payload); err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List returns a paginated list of workflow instances.
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

// Find returns a single workflow instance by its UUID path parameter.
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

	inst, err := h.sys.Find(r.Context(), tc, id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, inst)
}

// ListRecords returns the step execution history of an instance.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
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

	records, err := h.sys.Records(r.Context(), tc, id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, records)
}

// Cancel stops a running or suspended instance.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
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

	if err := h.sys.Cancel(r.Context(), tc, id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// submitStatus maps submission errors, which may originate in the campaign,
// document, or engine domains.
func submitStatus(err error) int {
	if status := MapHTTPStatus(err); status != http.StatusInternalServerError {
		return status
	}
	if status := campaigns.MapHTTPStatus(err); status != http.StatusInternalServerError {
		return status
	}
	if status := documents.MapHTTPStatus(err); status != http.StatusInternalServerError {
		return status
	}
	return http.StatusInternalServerError
}
