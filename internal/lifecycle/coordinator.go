package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/specialistvlad/ioclient/internal/connection"
	"github.com/specialistvlad/ioclient/internal/ctxlog"
	"github.com/specialistvlad/ioclient/internal/handlers"
	"github.com/specialistvlad/ioclient/internal/ioerr"
	"github.com/specialistvlad/ioclient/internal/metrics"
	"github.com/specialistvlad/ioclient/internal/registry"
)

const tracerName = "ioclient-lifecycle"

// Coordinator wires one registration scope into the application lifecycle.
type Coordinator struct {
	registry *registry.Registry
	module   *registry.Module
	handlers *handlers.Handlers
	metrics  *metrics.Metrics
	tracer   trace.Tracer

	// startMu serializes OnStart so concurrent callers see one scan.
	startMu  sync.Mutex
	started  bool
	startErr error

	mu       sync.Mutex
	phase    Phase
	bindings []handlers.Binding
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithMetrics reports bound handlers and binding errors to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithTracerProvider creates spans from tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Coordinator) { c.tracer = tp.Tracer(tracerName) }
}

// New creates a coordinator for module. Components come from reg and their
// tags from hs.
func New(reg *registry.Registry, module *registry.Module, hs *handlers.Handlers, opts ...Option) *Coordinator {
	c := &Coordinator{
		registry: reg,
		module:   module,
		handlers: hs,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Phase returns the current lifecycle phase.
func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Bindings returns the handlers bound by OnStart, in binding order.
func (c *Coordinator) Bindings() []handlers.Binding {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]handlers.Binding(nil), c.bindings...)
}

// OnStart obtains the shared connection and binds every tagged method of
// every static component to it. It runs once; later calls return the
// first call's result.
//
// A *ioerr.ConfigurationError aborts before anything is bound. A
// *ioerr.ConnectionError still binds, so connect_error handlers observe
// the failure, and is returned afterwards. Handlers that cannot be bound
// are logged and skipped.
func (c *Coordinator) OnStart(ctx context.Context) error {
	c.startMu.Lock()
	defer c.startMu.Unlock()

	logger := ctxlog.FromContext(ctx).With("token", c.module.Token().String())
	if c.started {
		logger.Debug("Lifecycle already started, skipping bootstrap.")
		return c.startErr
	}
	c.started = true
	c.startErr = c.start(ctx, logger)
	return c.startErr
}

func (c *Coordinator) start(ctx context.Context, logger *slog.Logger) error {
	if !c.transition(PhaseIdle, PhaseBootstrapping) {
		logger.Warn("Lifecycle stopped before bootstrap, nothing to bind.")
		return ioerr.ErrClosed
	}

	ctx, span := c.tracer.Start(ctx, "lifecycle.bootstrap",
		trace.WithAttributes(attribute.String("ioclient.token", c.module.Token().String())))
	defer span.End()

	logger.Info("Bootstrapping shared connection...")
	conn, err := c.module.Get(ctx)
	if conn == nil {
		if err == nil {
			err = errors.New("client module returned no connection")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "connection unavailable")
		logger.Error("Shared connection unavailable, no handlers bound", "error", err)
		c.transition(PhaseBootstrapping, PhaseIdle)
		return err
	}
	span.SetAttributes(attribute.String("ioclient.uri", conn.URI()))

	bound := c.bind(ctx, logger, conn)
	span.SetAttributes(attribute.Int("ioclient.handlers_bound", bound))
	c.metrics.SetHandlersBound(conn.Name(), bound)

	if !c.transition(PhaseBootstrapping, PhaseRunning) {
		logger.Warn("Lifecycle stopped during bootstrap.")
		return ioerr.ErrClosed
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "initial connect failed")
		logger.Error("Handlers bound, but the initial connect failed", "handlers", bound, "error", err)
		return err
	}
	logger.Info("Lifecycle running.", "handlers", bound, "state", conn.State().String())
	return nil
}

// bind scans the components and subscribes their tagged methods. It
// returns how many handlers were bound.
func (c *Coordinator) bind(ctx context.Context, logger *slog.Logger, conn *connection.Connection) int {
	var bound []handlers.Binding
	for _, comp := range c.registry.Components() {
		if comp.Transient {
			logger.Debug("Skipping transient component.", "component", comp.Name)
			continue
		}
		if comp.Instance == nil {
			continue
		}

		c.checkValueReceiver(logger, conn, comp)
		for _, md := range c.tagsFor(comp.Instance) {
			invoke, err := handlers.Bind(comp.Instance, md)
			if err != nil {
				c.bindingFailed(logger, conn, &ioerr.BindingError{
					Component: comp.Name, Method: md.Method, Event: md.Event, Err: err,
				})
				continue
			}
			conn.On(md.Event, c.listener(ctx, comp.Name, md, invoke))
			bound = append(bound, handlers.Binding{Component: comp.Name, Method: md.Method, Event: md.Event})
			logger.Debug("Bound handler.", "component", comp.Name, "method", md.Method, "event", md.Event)
		}
	}

	c.mu.Lock()
	c.bindings = bound
	c.mu.Unlock()
	return len(bound)
}

// tagsFor returns the tags of instance's dynamic type. For a pointer the
// tags of its element type follow, since value-receiver methods are in the
// pointer's method set and run on the shared instance.
func (c *Coordinator) tagsFor(instance any) []handlers.Metadata {
	tags := c.handlers.Lookup(instance)
	typ := reflect.TypeOf(instance)
	if typ.Kind() != reflect.Pointer {
		return tags
	}

	seen := make(map[handlers.Metadata]struct{}, len(tags))
	for _, md := range tags {
		seen[md] = struct{}{}
	}
	for _, md := range c.handlers.Lookup(reflect.Zero(typ.Elem()).Interface()) {
		if _, dup := seen[md]; dup {
			continue
		}
		seen[md] = struct{}{}
		tags = append(tags, md)
	}
	return tags
}

// checkValueReceiver reports components provided by value whose pointer
// type carries tags: their handlers would run on a copy.
func (c *Coordinator) checkValueReceiver(logger *slog.Logger, conn *connection.Connection, comp registry.Component) {
	typ := reflect.TypeOf(comp.Instance)
	if typ.Kind() == reflect.Pointer {
		return
	}
	for _, md := range c.handlers.Lookup(reflect.New(typ).Interface()) {
		c.bindingFailed(logger, conn, &ioerr.BindingError{
			Component: comp.Name, Method: md.Method, Event: md.Event,
			Err: errors.New("component is provided by value, handlers are tagged on its pointer type"),
		})
	}
}

func (c *Coordinator) bindingFailed(logger *slog.Logger, conn *connection.Connection, err *ioerr.BindingError) {
	c.metrics.BindingError(conn.Name())
	logger.Error("Skipping handler", "component", err.Component, "method", err.Method, "event", err.Event, "error", err)
}

func (c *Coordinator) listener(ctx context.Context, component string, md handlers.Metadata, invoke handlers.Invoker) func(args ...any) {
	logger := ctxlog.FromContext(ctx).With("component", component, "method", md.Method, "event", md.Event)
	return func(args ...any) {
		if err := invoke(args...); err != nil {
			logger.Error("Handler failed", "error", err)
		}
	}
}

// OnStop closes the shared connection. It is safe before, during, or after
// OnStart and does nothing after the first call. Close failures are logged.
func (c *Coordinator) OnStop(ctx context.Context) {
	logger := ctxlog.FromContext(ctx).With("token", c.module.Token().String())

	c.mu.Lock()
	if c.phase == PhaseShuttingDown || c.phase == PhaseStopped {
		c.mu.Unlock()
		logger.Debug("Lifecycle already stopped.")
		return
	}
	prev := c.phase
	c.phase = PhaseShuttingDown
	c.mu.Unlock()

	_, span := c.tracer.Start(ctx, "lifecycle.shutdown", trace.WithAttributes(
		attribute.String("ioclient.token", c.module.Token().String()),
		attribute.String("ioclient.previous_phase", prev.String()),
	))
	defer span.End()

	logger.Info("Shutting down shared connection...", "phase", prev.String())
	c.module.Close(ctx)

	c.mu.Lock()
	c.phase = PhaseStopped
	c.mu.Unlock()
	logger.Info("Lifecycle stopped.")
}

// transition moves from one phase to another and reports whether the
// coordinator was in from.
func (c *Coordinator) transition(from, to Phase) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != from {
		return false
	}
	c.phase = to
	return true
}
