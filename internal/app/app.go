package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/specialistvlad/ioclient/internal/config"
	"github.com/specialistvlad/ioclient/internal/connection"
	"github.com/specialistvlad/ioclient/internal/ctxlog"
	"github.com/specialistvlad/ioclient/internal/handlers"
	"github.com/specialistvlad/ioclient/internal/lifecycle"
	"github.com/specialistvlad/ioclient/internal/metrics"
	"github.com/specialistvlad/ioclient/internal/registry"
	"github.com/specialistvlad/ioclient/internal/transport"
	"github.com/specialistvlad/ioclient/modules/status"
)

// loaderComponent is the registry name the configuration loader is
// provided under, so the async config factory can inject it.
const loaderComponent = "configLoader"

// readiness is implemented by components that gate the health check.
type readiness interface {
	Ready() bool
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx    context.Context
	outW   io.Writer
	logger *slog.Logger
	config *Config

	promRegistry *prometheus.Registry
	registry     *registry.Registry
	handlers     *handlers.Handlers
	client       *registry.Module
	coordinator  *lifecycle.Coordinator

	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own logger, metrics and registry. The
// client configuration is not read until Run.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, dialer transport.Dialer, modules ...Module) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	promRegistry := prometheus.NewRegistry()
	m, err := metrics.New(promRegistry)
	if err != nil {
		// Collectors are registered on a fresh registry, so this is a programmer error.
		panic(err)
	}

	a := &App{
		ctx:          ctxlog.WithLogger(context.Background(), logger),
		outW:         outW,
		logger:       logger,
		config:       appConfig,
		promRegistry: promRegistry,
		registry:     registry.New(connection.NewFactory(dialer, connection.WithMetrics(m))),
		handlers:     handlers.New(),
	}

	if len(modules) == 0 {
		modules = a.coreModules()
	}
	for _, mod := range modules {
		mod.Register(a.registry, a.handlers)
	}
	logger.Debug("All Go modules registered.", "count", len(modules), "handlers", a.handlers.Len())

	a.client = a.registry.RegisterAsync(registry.AsyncOptions{
		Inject:     []string{loaderComponent},
		Providers:  []registry.Component{{Name: loaderComponent, Instance: loader, Kind: registry.KindProvider}},
		UseFactory: a.loadClientConfig,
	})
	a.coordinator = lifecycle.New(a.registry, a.client, a.handlers, lifecycle.WithMetrics(m))
	logger.Debug("Client module registered.", "token", a.client.Token().String())

	return a
}

// loadClientConfig is the async config factory of the client module.
func (a *App) loadClientConfig(ctx context.Context, deps ...any) (config.ConnectionConfig, error) {
	loader, ok := deps[0].(config.Loader)
	if !ok {
		return config.ConnectionConfig{}, fmt.Errorf("component '%s' is %T, not a config.Loader", loaderComponent, deps[0])
	}
	cfg, err := loader.Load(ctx, a.config.ConfigPath)
	if err != nil {
		return config.ConnectionConfig{}, err
	}
	if a.config.ConnectTimeout > 0 {
		cfg = cfg.Clone()
		if cfg.Options == nil {
			cfg.Options = config.Options{}
		}
		cfg.Options[config.OptionTimeout] = a.config.ConnectTimeout.Milliseconds()
	}
	return cfg, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Client returns the module owning the shared connection.
func (a *App) Client() *registry.Module {
	return a.client
}

// Coordinator returns the lifecycle coordinator. This is primarily for testing.
func (a *App) Coordinator() *lifecycle.Coordinator {
	return a.coordinator
}

// ready reports whether the health check should pass.
func (a *App) ready() bool {
	inst, ok := a.registry.Lookup(status.ComponentName)
	if !ok {
		return a.coordinator.Phase() == lifecycle.PhaseRunning
	}
	r, ok := inst.(readiness)
	return ok && r.Ready()
}
