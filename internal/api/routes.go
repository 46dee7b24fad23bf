package api

import (
	"net/http"

	"github.com/inkwellhq/inkwell/internal/config"
	"github.com/inkwellhq/inkwell/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
) {
	workflowHandler := domain.Workflow.Handler(domain.Manager)

	routes.Register(
		mux,
		domain.Tenants.Handler().Routes(),
		domain.Credentials.Handler().Routes(),
		domain.Campaigns.Handler(domain.Manager).Routes(),
		domain.Documents.Handler(domain.Manager, cfg.API.MaxUploadSizeBytes()).Routes(),
		workflowHandler.Routes(),
		workflowHandler.SignalRoutes(),
	)
}
