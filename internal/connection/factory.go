package connection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/ioclient/internal/config"
	"github.com/specialistvlad/ioclient/internal/ctxlog"
	"github.com/specialistvlad/ioclient/internal/ioerr"
	"github.com/specialistvlad/ioclient/internal/metrics"
	"github.com/specialistvlad/ioclient/internal/transport"
)

// Factory creates shared connections from resolved configuration.
//
// Connections are created with the confirmed connect policy: when
// autoConnect is on, Create returns only after the transport reported
// "connect" or "connect_error", the connect timeout elapsed, or ctx was
// cancelled. Initial connection failures are therefore visible to whoever
// awaits registration instead of only to later event listeners.
type Factory struct {
	dialer  transport.Dialer
	metrics *metrics.Metrics
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithMetrics reports connection state and events to m.
func WithMetrics(m *metrics.Metrics) FactoryOption {
	return func(f *Factory) { f.metrics = m }
}

// NewFactory returns a factory dialing through dialer.
func NewFactory(dialer transport.Dialer, opts ...FactoryOption) *Factory {
	f := &Factory{dialer: dialer}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create builds the connection for cfg and applies its auto-connect policy.
// name labels the connection in logs and metrics.
//
// Invalid configuration fails with *ioerr.ConfigurationError and no
// connection. A failed initial connect returns the connection together with
// *ioerr.ConnectionError; the caller owns it and must Close it eventually.
func (f *Factory) Create(ctx context.Context, cfg config.ConnectionConfig, name string) (*Connection, error) {
	cfg = cfg.Clone()
	logger := ctxlog.FromContext(ctx).With("client", name, "uri", cfg.URI)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := f.dialer.Dial(ctx, cfg)
	if err != nil {
		var cfgErr *ioerr.ConfigurationError
		if errors.As(err, &cfgErr) {
			return nil, err
		}
		return nil, ioerr.NewConfigurationError("", fmt.Errorf("failed to create transport client: %w", err))
	}
	conn := newConnection(client, cfg.URI, name, logger, f.metrics)

	if !cfg.AutoConnect() {
		logger.Info("Auto-connect disabled, returning unconnected client.")
		f.metrics.ConnectAttempt(name, "skipped")
		return conn, nil
	}

	timeout := cfg.ConnectTimeout()
	result := conn.await()
	if err := conn.Connect(); err != nil {
		return conn, &ioerr.ConnectionError{URI: cfg.URI, Err: err}
	}
	logger.Debug("Waiting for connection to be confirmed...", "timeout", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-result:
		if err != nil {
			f.metrics.ConnectAttempt(name, "error")
			return conn, &ioerr.ConnectionError{URI: cfg.URI, Err: err}
		}
		f.metrics.ConnectAttempt(name, "connected")
		return conn, nil
	case <-ctx.Done():
		f.metrics.ConnectAttempt(name, "cancelled")
		return conn, &ioerr.ConnectionError{URI: cfg.URI, Err: fmt.Errorf("context cancelled while waiting for connection: %w", ctx.Err())}
	case <-timer.C:
		f.metrics.ConnectAttempt(name, "timeout")
		return conn, &ioerr.ConnectionError{URI: cfg.URI, Err: fmt.Errorf("timed out after %s waiting for connection: %w", timeout, context.DeadlineExceeded)}
	}
}
