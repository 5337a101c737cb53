package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/ioclient/internal/config"
	"github.com/specialistvlad/ioclient/internal/ctxlog"
	"github.com/specialistvlad/ioclient/internal/ioerr"
)

// ConfigFactory produces a client configuration from its injected
// dependencies, in the order they were named in AsyncOptions.Inject. It may
// block; it should return when ctx is done.
type ConfigFactory func(ctx context.Context, deps ...any) (config.ConnectionConfig, error)

// AsyncOptions configures RegisterAsync.
type AsyncOptions struct {
	// Inject names the components passed to UseFactory.
	Inject []string
	// Providers are components registered together with the module.
	Providers  []Component
	UseFactory ConfigFactory
}

// resolver yields the configuration of one module.
type resolver func(ctx context.Context) (config.ConnectionConfig, error)

func staticResolver(cfg config.ConnectionConfig) resolver {
	cfg = cfg.Clone()
	return func(context.Context) (config.ConnectionConfig, error) {
		return cfg.Clone(), nil
	}
}

func asyncResolver(r *Registry, opts AsyncOptions) resolver {
	inject := append([]string(nil), opts.Inject...)
	factory := opts.UseFactory

	return func(ctx context.Context) (cfg config.ConnectionConfig, err error) {
		logger := ctxlog.FromContext(ctx)
		if factory == nil {
			return config.ConnectionConfig{}, ioerr.NewConfigurationError("useFactory", errors.New("must not be nil"))
		}

		deps := make([]any, 0, len(inject))
		for _, name := range inject {
			dep, ok := r.Lookup(name)
			if !ok {
				return config.ConnectionConfig{}, ioerr.NewConfigurationError("inject", fmt.Errorf("dependency '%s' is not provided", name))
			}
			deps = append(deps, dep)
		}

		defer func() {
			if p := recover(); p != nil {
				err = ioerr.NewConfigurationError("useFactory", fmt.Errorf("config factory panicked: %v", p))
			}
		}()

		logger.Debug("Resolving client configuration asynchronously...", "inject", inject)
		cfg, err = factory(ctx, deps...)
		if err != nil {
			var cfgErr *ioerr.ConfigurationError
			if errors.As(err, &cfgErr) {
				return config.ConnectionConfig{}, err
			}
			return config.ConnectionConfig{}, ioerr.NewConfigurationError("useFactory", fmt.Errorf("config factory failed: %w", err))
		}
		return cfg.Clone(), nil
	}
}
