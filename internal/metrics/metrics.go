// Package metrics holds the Prometheus collectors for shared connections
// and handler binding. A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ioclient"

// Metrics groups every collector the client registry reports.
type Metrics struct {
	eventsReceived  *prometheus.CounterVec // Events delivered by the transport, by event
	connectAttempts *prometheus.CounterVec // Initial connect outcomes
	connectionState *prometheus.GaugeVec   // Current State as its numeric value
	handlersBound   *prometheus.GaugeVec   // Handlers bound at bootstrap
	bindingErrors   *prometheus.CounterVec // Tagged handlers skipped at bootstrap
	handlerPanics   *prometheus.CounterVec // Panics recovered from bound handlers
}

// New creates the collectors and registers them with reg. A nil reg
// disables metrics and returns a nil *Metrics.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil // Metrics disabled
	}

	m := &Metrics{
		eventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "events_received_total",
			Help:      "Total events received from the transport",
		}, []string{"client", "event"}),

		connectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "connect_attempts_total",
			Help:      "Initial connect attempts by result (connected, error, timeout, cancelled, skipped)",
		}, []string{"client", "result"}),

		connectionState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "state",
			Help:      "Connection state (0=unconnected, 1=connecting, 2=connected, 3=disconnected, 4=closed)",
		}, []string{"client"}),

		handlersBound: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "handlers_bound",
			Help:      "Number of tagged handlers bound at bootstrap",
		}, []string{"client"}),

		bindingErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "binding_errors_total",
			Help:      "Tagged handlers that could not be bound",
		}, []string{"client"}),

		handlerPanics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "handler_panics_total",
			Help:      "Panics recovered from event listeners",
		}, []string{"client", "event"}),
	}

	collectors := []prometheus.Collector{
		m.eventsReceived,
		m.connectAttempts,
		m.connectionState,
		m.handlersBound,
		m.bindingErrors,
		m.handlerPanics,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register ioclient metrics: %w", err)
		}
	}
	return m, nil
}

// EventReceived counts one event delivered by the transport.
func (m *Metrics) EventReceived(client, event string) {
	if m == nil {
		return
	}
	m.eventsReceived.WithLabelValues(client, event).Inc()
}

// ConnectAttempt counts one initial connect outcome.
func (m *Metrics) ConnectAttempt(client, result string) {
	if m == nil {
		return
	}
	m.connectAttempts.WithLabelValues(client, result).Inc()
}

// SetState records the numeric connection state.
func (m *Metrics) SetState(client string, state int) {
	if m == nil {
		return
	}
	m.connectionState.WithLabelValues(client).Set(float64(state))
}

// SetHandlersBound records how many handlers the bootstrap scan bound.
func (m *Metrics) SetHandlersBound(client string, n int) {
	if m == nil {
		return
	}
	m.handlersBound.WithLabelValues(client).Set(float64(n))
}

// BindingError counts one skipped handler.
func (m *Metrics) BindingError(client string) {
	if m == nil {
		return
	}
	m.bindingErrors.WithLabelValues(client).Inc()
}

// HandlerPanic counts one recovered listener panic.
func (m *Metrics) HandlerPanic(client, event string) {
	if m == nil {
		return
	}
	m.handlerPanics.WithLabelValues(client, event).Inc()
}
