package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	"github.com/searchktools/lean-server/config"
	"github.com/searchktools/lean-server/core"
	"github.com/searchktools/lean-server/core/middleware"
	"github.com/searchktools/lean-server/core/observability"
)

// App wires a configured engine with the default middleware stack
type App struct {
	cfg    *config.Config
	engine *core.Engine
}

// New creates an application instance. The engine gets recovery and request
// IDs, plus compression and access logging when the config enables them.
func New(cfg *config.Config) (*App, error) {
	opts := []core.Option{
		core.WithReadChunkSize(cfg.ReadChunkSize),
		core.WithMaxRequestBytes(cfg.MaxRequestBytes),
	}
	if cfg.Metrics {
		opts = append(opts, core.WithMonitor(observability.NewMonitor()))
	}

	engine := core.NewEngine(opts...)

	if err := configure(engine, cfg); err != nil {
		return nil, err
	}

	return &App{
		cfg:    cfg,
		engine: engine,
	}, nil
}

// NewWithEngine creates an application instance with a pre-configured engine
func NewWithEngine(cfg *config.Config, engine *core.Engine) *App {
	return &App{
		cfg:    cfg,
		engine: engine,
	}
}

func configure(engine *core.Engine, cfg *config.Config) error {
	engine.Use(
		middleware.Recovery(middleware.RecoveryConfig{}),
		middleware.RequestID(middleware.RequestIDConfig{
			HeaderName:    cfg.RequestID.Header,
			TrustIncoming: cfg.RequestID.TrustIncoming,
		}),
	)

	if cfg.Compression.Enabled {
		compression, err := middleware.Compression(middleware.CompressionConfig{
			Level:     cfg.Compression.Level,
			MinLength: cfg.Compression.MinLength,
		})
		if err != nil {
			return errors.Wrap(err, "configure compression")
		}
		engine.Use(compression)
	}

	if cfg.LogRequests {
		engine.Use(middleware.Logger(log.Default()))
	}

	return nil
}

// Engine returns the underlying engine for route registration
func (a *App) Engine() *core.Engine {
	return a.engine
}

// Config returns the configuration the app was built with
func (a *App) Config() *config.Config {
	return a.cfg
}

// Run serves on the configured address until ctx is done or the process
// receives SIGINT or SIGTERM. In-flight connections finish before Run
// returns.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("🚀 Lean HTTP server starting on %s [%s]", a.cfg.Addr, a.cfg.Env)

	if err := a.engine.Run(ctx, a.cfg.Addr); err != nil {
		return errors.Wrap(err, "server")
	}

	log.Printf("👋 Server stopped")
	return nil
}
