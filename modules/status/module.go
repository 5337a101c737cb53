// Package status tracks the shared connection through its lifecycle
// handlers and reports readiness to the health check.
package status

import (
	"sync"
	"time"

	"github.com/specialistvlad/ioclient/internal/handlers"
	"github.com/specialistvlad/ioclient/internal/registry"
)

// ComponentName is the registry name of the Monitor.
const ComponentName = "status"

// Module implements the app.Module interface for this package.
type Module struct{}

// Snapshot is a point-in-time view of the connection as seen by its
// handlers.
type Snapshot struct {
	Connected bool
	Reason    string // Last disconnect reason
	LastError string // Last connect error
	Since     time.Time
}

// Monitor records connect, disconnect and connect_error events.
type Monitor struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewMonitor returns a monitor that considers the connection down.
func NewMonitor() *Monitor {
	return &Monitor{now: time.Now}
}

// OnConnect is the handler for the "connect" event.
func (m *Monitor) OnConnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = Snapshot{Connected: true, Since: m.now()}
}

// OnDisconnect is the handler for the "disconnect" event.
func (m *Monitor) OnDisconnect(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Connected = false
	m.snap.Reason = reason
	m.snap.Since = m.now()
}

// OnConnectError is the handler for the "connect_error" event.
func (m *Monitor) OnConnectError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Connected = false
	if err != nil {
		m.snap.LastError = err.Error()
	}
	m.snap.Since = m.now()
}

// Ready reports whether the connection is currently up.
func (m *Monitor) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.Connected
}

// Snapshot returns the last recorded view of the connection.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

// Register provides the monitor and tags its lifecycle handlers.
func (m *Module) Register(r *registry.Registry, hs *handlers.Handlers) {
	r.ProvideValue(ComponentName, NewMonitor())
	hs.OnConnect((*Monitor)(nil), "OnConnect")
	hs.OnDisconnect((*Monitor)(nil), "OnDisconnect")
	hs.OnConnectError((*Monitor)(nil), "OnConnectError")
}
