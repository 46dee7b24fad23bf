package api

import (
	"fmt"

	"github.com/inkwellhq/inkwell/internal/campaigns"
	"github.com/inkwellhq/inkwell/internal/config"
	"github.com/inkwellhq/inkwell/internal/credentials"
	"github.com/inkwellhq/inkwell/internal/documents"
	"github.com/inkwellhq/inkwell/internal/engine"
	"github.com/inkwellhq/inkwell/internal/processors"
	"github.com/inkwellhq/inkwell/internal/queue"
	"github.com/inkwellhq/inkwell/internal/tenants"
	"github.com/inkwellhq/inkwell/internal/workflow"
)

// Domain holds all domain systems that comprise the platform. The same
// Domain backs the HTTP module and the background worker pool.
type Domain struct {
	Tenants     tenants.System
	Manager     *tenants.Manager
	Credentials credentials.System
	Campaigns   campaigns.System
	Documents   documents.System
	Registry    *engine.Registry
	Engine      *engine.Engine
	Queue       queue.System
	Workflow    *workflow.Controller
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(cfg *config.Config, runtime *Runtime) (*Domain, error) {
	logger := runtime.Logger
	controlDB := runtime.Database.Connection()

	cipher, err := credentials.NewCipher(cfg.Credentials.MasterKeyBytes())
	if err != nil {
		return nil, fmt.Errorf("credentials cipher: %w", err)
	}

	credsSystem := credentials.New(controlDB, cipher, logger)

	registry := engine.NewRegistry()
	if err := processors.RegisterBuiltins(registry); err != nil {
		return nil, fmt.Errorf("register processors: %w", err)
	}

	provisioner := tenants.NewProvisioner(
		runtime.Admin,
		&cfg.Database,
		campaigns.SeedDefaults,
		logger,
	)

	tenantsSystem := tenants.New(controlDB, provisioner, logger, runtime.Pagination)
	manager := tenants.NewManager(tenantsSystem, provisioner, logger)

	eng := engine.New(
		registry,
		credsSystem,
		runtime.Storage,
		engine.NewRecordStore(),
		nil,
		logger,
	)

	docsSystem := documents.New(runtime.Storage, logger, runtime.Pagination)
	campsSystem := campaigns.New(registry, logger, runtime.Pagination)

	q := queue.New(controlDB, logger)

	controller := workflow.New(
		manager,
		eng,
		campsSystem,
		docsSystem,
		workflow.NewInstanceStore(runtime.Pagination),
		workflow.NewSuspensionStore(controlDB),
		q,
		runtime.Pagination,
		logger,
	)

	return &Domain{
		Tenants:     tenantsSystem,
		Manager:     manager,
		Credentials: credsSystem,
		Campaigns:   campsSystem,
		Documents:   docsSystem,
		Registry:    registry,
		Engine:      eng,
		Queue:       q,
		Workflow:    controller,
	}, nil
}
