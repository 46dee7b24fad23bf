// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/inkwellhq/inkwell/internal/config"
	"github.com/inkwellhq/inkwell/internal/infrastructure"
	"github.com/inkwellhq/inkwell/pkg/middleware"
	"github.com/inkwellhq/inkwell/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// The returned Domain backs the background worker pool as well as HTTP.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, *Domain, error) {
	runtime := NewRuntime(cfg, infra)

	domain, err := NewDomain(cfg, runtime)
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))

	return m, domain, nil
}
