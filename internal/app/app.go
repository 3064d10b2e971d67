package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/memogrid/internal/config"
	"github.com/vk/memogrid/internal/ctxlog"
	"github.com/vk/memogrid/internal/registry"
)

// Version is stamped into completion markers so a store records which
// binary produced it.
const Version = "0.1.0"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ExperimentPath string
	ModulesPath    string
	StoreRoot      string
	Mode           string
	LogFormat      string
	LogLevel       string
	StatusPort     int
	WorkerCount    int
	ListCache      bool
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	registry  *registry.Registry
	model     *config.Model
	converter config.Converter
	cfg       *Config
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	// Merge all configuration paths into a single collection for the loader.
	var configPaths []string
	if cfg.ExperimentPath != "" {
		configPaths = append(configPaths, cfg.ExperimentPath)
	}
	if cfg.ModulesPath != "" {
		configPaths = append(configPaths, cfg.ModulesPath)
	}

	// Load all configuration into the format-agnostic model first.
	model, converter, err := loader.Load(ctx, configPaths...)
	if err != nil {
		// A failure to load config is a fatal startup error.
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Configuration loaded and translated into unified model.")

	// Create and populate the registry with Go handlers.
	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	// Populate the registry's definitions from the loaded config model.
	reg.PopulateDefinitionsFromModel(model)
	logger.Debug("Registry definitions populated from config model.")

	// Validate manifest/handler parity and derive the parameter classes.
	if err := reg.Validate(ctx); err != nil {
		// This is a programmer error (mismatch between code and config), so we panic.
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	return &App{
		outW:      outW,
		logger:    logger,
		registry:  reg,
		model:     model,
		converter: converter,
		cfg:       cfg,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Model returns the loaded configuration model. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}
