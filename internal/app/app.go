package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/pipegrid/internal/config"
	"github.com/vk/pipegrid/internal/ctxlog"
	"github.com/vk/pipegrid/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	model    *config.Model
	cfg      *Config
}

// NewApp is the constructor for the main application. It loads and
// validates the pipeline document eagerly: a failure to load is a fatal
// startup error and panics, to be recovered at the entrypoint.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, cfg.PipelinePath)
	if err != nil {
		panic(fmt.Errorf("failed to load pipeline: %w", err))
	}
	logger.Debug("Pipeline loaded and translated into unified model.", "jobs", len(model.Jobs))

	reg := registry.New()
	registry.RegisterBuiltins(reg)
	logger.Debug("Builtin actions registered.", "actions", reg.Names())

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		model:    model,
		cfg:      cfg,
	}
}

// Model returns the loaded pipeline model. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}

// Registry returns the application's action registry. This is primarily
// for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}
