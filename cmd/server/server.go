package main

import (
	"time"

	"github.com/inkwellhq/inkwell/internal/config"
	"github.com/inkwellhq/inkwell/internal/infrastructure"
	"github.com/inkwellhq/inkwell/internal/worker"
	"github.com/inkwellhq/inkwell/internal/workflow"
)

type Server struct {
	infra   *infrastructure.Infrastructure
	modules *Modules
	http    *httpServer
	pool    *worker.Pool
	sweeper *workflow.Sweeper
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra)
	modules.Mount(router)

	pool := worker.New(
		modules.Domain.Queue,
		modules.Domain.Workflow,
		cfg.Worker.Count,
		cfg.Worker.PollIntervalDuration(),
		cfg.Worker.VisibilityTimeoutDuration(),
		infra.Logger,
	)

	sweeper := workflow.NewSweeper(
		modules.Domain.Workflow,
		cfg.Worker.SweepIntervalDuration(),
		infra.Logger,
	)

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
		"workers", cfg.Worker.Count,
	)

	return &Server{
		infra:   infra,
		modules: modules,
		http:    newHTTPServer(&cfg.Server, router, infra.Logger),
		pool:    pool,
		sweeper: sweeper,
	}, nil
}

func (s *Server) Start() error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}

	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	// The pool and sweeper stop when the lifecycle context is cancelled;
	// registering them as shutdown hooks makes Shutdown wait for drain.
	lc := s.infra.Lifecycle
	lc.OnShutdown(func() {
		s.pool.Run(lc.Context())
	})
	lc.OnShutdown(func() {
		s.sweeper.Run(lc.Context())
	})

	go func() {
		s.infra.Lifecycle.WaitForStartup()
		s.infra.Logger.Info("all subsystems ready")
	}()

	return nil
}

func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}
