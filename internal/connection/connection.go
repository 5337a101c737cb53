package connection

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/specialistvlad/ioclient/internal/ioerr"
	"github.com/specialistvlad/ioclient/internal/metrics"
	"github.com/specialistvlad/ioclient/internal/transport"
)

// ReasonClientDisconnect is passed to disconnect listeners when the
// connection is closed locally.
const ReasonClientDisconnect = "io client disconnect"

// reserved events cannot be emitted to the server.
var reserved = map[string]struct{}{
	transport.EventConnect:      {},
	transport.EventDisconnect:   {},
	transport.EventConnectError: {},
	"disconnecting":             {},
	"newListener":               {},
	"removeListener":            {},
}

// Connection is the single shared socket of a registration scope.
type Connection struct {
	client  transport.Client
	uri     string
	name    string
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu         sync.RWMutex
	state      State
	lastErr    error
	closing    bool
	listeners  map[string][]transport.Listener
	subscribed map[string]struct{}
	waiters    []chan error
}

func newConnection(client transport.Client, uri, name string, logger *slog.Logger, m *metrics.Metrics) *Connection {
	c := &Connection{
		client:     client,
		uri:        uri,
		name:       name,
		logger:     logger,
		metrics:    m,
		state:      StateUnconnected,
		listeners:  make(map[string][]transport.Listener),
		subscribed: make(map[string]struct{}),
	}
	// Lifecycle subscriptions go first so state is current before any
	// listener runs.
	for event, handle := range map[string]transport.Listener{
		transport.EventConnect:      c.handleConnect,
		transport.EventDisconnect:   c.handleDisconnect,
		transport.EventConnectError: c.handleConnectError,
	} {
		c.subscribed[event] = struct{}{}
		client.On(event, handle)
	}
	m.SetState(name, int(StateUnconnected))
	return c
}

// URI returns the endpoint this connection targets.
func (c *Connection) URI() string { return c.uri }

// Name returns the label the connection is registered under, usually its token.
func (c *Connection) Name() string { return c.name }

// ID returns the server-assigned session id, or "" when not connected.
func (c *Connection) ID() string { return c.client.ID() }

// State returns the current lifecycle state.
func (c *Connection) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Connected reports whether the connection is in StateConnected.
func (c *Connection) Connected() bool {
	return c.State() == StateConnected
}

// LastError returns the most recent connect error, cleared on connect.
func (c *Connection) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Connect starts the handshake. It is a no-op while connecting or
// connected and fails with ioerr.ErrClosed after Close.
func (c *Connection) Connect() error {
	c.mu.Lock()
	switch c.state {
	case StateClosed:
		c.mu.Unlock()
		return ioerr.ErrClosed
	case StateConnecting, StateConnected:
		c.mu.Unlock()
		return nil
	}
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	c.logger.Debug("Initiating connection...")
	c.client.Connect()
	return nil
}

// On adds listener for event. Listeners of one event run in the order they
// were added, on the transport's goroutine.
func (c *Connection) On(event string, listener transport.Listener) {
	var replay []any
	shouldReplay := false

	c.mu.Lock()
	c.listeners[event] = append(c.listeners[event], listener)
	_, alreadySubscribed := c.subscribed[event]
	c.subscribed[event] = struct{}{}
	switch event {
	case transport.EventConnect:
		shouldReplay = c.state == StateConnected
	case transport.EventConnectError:
		if c.lastErr != nil && c.state != StateConnected && c.state != StateClosed {
			shouldReplay = true
			replay = []any{c.lastErr}
		}
	}
	c.mu.Unlock()

	if !alreadySubscribed {
		c.client.On(event, func(args ...any) { c.dispatch(event, args) })
	}
	if shouldReplay {
		c.logger.Debug("Replaying lifecycle event to late listener.", "event", event)
		c.invoke(event, listener, replay)
	}
}

// Emit sends event to the server.
func (c *Connection) Emit(event string, args ...any) error {
	if _, ok := reserved[event]; ok {
		return fmt.Errorf("'%s' is a reserved event name", event)
	}
	if c.State() == StateClosed {
		return ioerr.ErrClosed
	}
	if err := c.client.Emit(event, args...); err != nil {
		return fmt.Errorf("failed to emit '%s': %w", event, err)
	}
	return nil
}

// Close disconnects the transport and moves to StateClosed. It is safe to
// call on a connection that never connected, and more than once. If the
// connection was connected, disconnect listeners observe
// ReasonClientDisconnect exactly once.
func (c *Connection) Close() (err error) {
	c.mu.Lock()
	if c.closing || c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	c.mu.Unlock()

	c.logger.Debug("Closing shared connection.", "sid", c.client.ID())
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transport panicked during disconnect: %v", r)
		}
		c.finishClose()
	}()
	c.client.Disconnect()
	return nil
}

func (c *Connection) finishClose() {
	c.mu.Lock()
	stillConnected := c.state == StateConnected
	c.setStateLocked(StateClosed)
	waiters := c.takeWaitersLocked()
	c.mu.Unlock()

	for _, w := range waiters {
		w <- ioerr.ErrClosed
	}
	// The transport did not report the disconnect synchronously.
	if stillConnected {
		c.dispatch(transport.EventDisconnect, []any{ReasonClientDisconnect})
	}
}

// await registers a channel that receives nil on the next connect or the
// error of the next connect_error.
func (c *Connection) await() <-chan error {
	ch := make(chan error, 1)
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateConnected:
		ch <- nil
	case StateClosed:
		ch <- ioerr.ErrClosed
	default:
		c.waiters = append(c.waiters, ch)
	}
	return ch
}

func (c *Connection) handleConnect(args ...any) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.setStateLocked(StateConnected)
	c.lastErr = nil
	waiters := c.takeWaitersLocked()
	listeners := c.snapshotLocked(transport.EventConnect)
	c.mu.Unlock()

	c.logger.Info("Successfully connected", "sid", c.client.ID())
	for _, w := range waiters {
		w <- nil
	}
	c.deliver(transport.EventConnect, listeners, args)
}

func (c *Connection) handleDisconnect(args ...any) {
	c.mu.Lock()
	wasConnected := c.state == StateConnected
	if c.state != StateClosed {
		c.setStateLocked(StateDisconnected)
	}
	listeners := c.snapshotLocked(transport.EventDisconnect)
	c.mu.Unlock()

	if !wasConnected {
		c.logger.Debug("Ignoring disconnect for a connection that never connected.")
		return
	}
	c.logger.Info("Disconnected", "reason", firstArg(args))
	c.deliver(transport.EventDisconnect, listeners, args)
}

func (c *Connection) handleConnectError(args ...any) {
	err := connectError(args)

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	if c.state != StateConnected {
		c.setStateLocked(StateDisconnected)
	}
	c.lastErr = err
	waiters := c.takeWaitersLocked()
	listeners := c.snapshotLocked(transport.EventConnectError)
	c.mu.Unlock()

	c.logger.Warn("Connect error", "error", err)
	for _, w := range waiters {
		w <- err
	}
	rest := []any{err}
	if len(args) > 1 {
		rest = append(rest, args[1:]...)
	}
	c.deliver(transport.EventConnectError, listeners, rest)
}

func (c *Connection) dispatch(event string, args []any) {
	c.mu.RLock()
	listeners := c.snapshotLocked(event)
	c.mu.RUnlock()

	c.deliver(event, listeners, args)
}

// deliver runs a snapshot of listeners. Lifecycle handlers take the snapshot
// under the same lock as the state change, so a listener added concurrently
// is either in the snapshot or replayed by On, never both.
func (c *Connection) deliver(event string, listeners []transport.Listener, args []any) {
	c.metrics.EventReceived(c.name, event)
	for _, l := range listeners {
		c.invoke(event, l, args)
	}
}

func (c *Connection) snapshotLocked(event string) []transport.Listener {
	return append([]transport.Listener(nil), c.listeners[event]...)
}

// invoke runs one listener and recovers its panic so that the remaining
// listeners and the transport goroutine keep running.
func (c *Connection) invoke(event string, l transport.Listener, args []any) {
	defer func() {
		if r := recover(); r != nil {
			c.metrics.HandlerPanic(c.name, event)
			c.logger.Error("Event listener panicked", "event", event, "panic", r)
		}
	}()
	l(args...)
}

func (c *Connection) setStateLocked(s State) {
	c.state = s
	c.metrics.SetState(c.name, int(s))
}

func (c *Connection) takeWaitersLocked() []chan error {
	w := c.waiters
	c.waiters = nil
	return w
}

func connectError(args []any) error {
	if len(args) == 0 {
		return errors.New("connect_error")
	}
	if err, ok := args[0].(error); ok {
		return err
	}
	return fmt.Errorf("%v", args[0])
}

func firstArg(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}
