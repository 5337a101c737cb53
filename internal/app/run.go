package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/ioclient/internal/ctxlog"
)

// Run starts the health check server, bootstraps the shared connection and
// blocks until ctx is done. The connection is closed before Run returns.
func (a *App) Run(ctx context.Context) error {
	// a.ctx is fixed at construction; the health handler reads it concurrently.
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	a.healthCheckServer()
	defer func() {
		_ = a.closeHealthCheckServer()
	}()

	// Shutdown must run even though ctx is already cancelled at that point.
	stopCtx := context.WithoutCancel(ctx)
	defer a.coordinator.OnStop(stopCtx)

	a.logger.Info("🚀 Starting client...", "config", a.config.ConfigPath)
	if err := a.coordinator.OnStart(ctx); err != nil {
		return fmt.Errorf("failed to start client: %w", err)
	}
	a.logger.Info("Client running.", "handlers", len(a.coordinator.Bindings()))

	<-ctx.Done()
	a.logger.Info("🏁 Shutdown requested.", "cause", context.Cause(ctx))

	a.logger.Debug("App.Run method finished.")
	return nil
}
