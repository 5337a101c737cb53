package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/ioclient/internal/config"
	"github.com/specialistvlad/ioclient/internal/transport"
)

// ConnectBehavior decides what a FakeClient does when Connect is called.
// It runs on its own goroutine, like a real handshake.
type ConnectBehavior func(c *FakeClient)

// Accept completes the handshake with the given session id.
func Accept(sid string) ConnectBehavior {
	return func(c *FakeClient) { c.ServerAccept(sid) }
}

// Reject fails the handshake with err.
func Reject(err error) ConnectBehavior {
	return func(c *FakeClient) { c.Fire(transport.EventConnectError, err) }
}

// Hang never answers the handshake.
func Hang() ConnectBehavior {
	return func(*FakeClient) {}
}

// Emitted records one Emit call.
type Emitted struct {
	Event string
	Args  []any
}

// FakeClient is an in-memory transport.Client. Events are delivered
// synchronously to listeners in subscription order.
type FakeClient struct {
	behavior ConnectBehavior

	mu              sync.Mutex
	listeners       map[string][]transport.Listener
	connected       bool
	id              string
	connectCalls    int
	disconnectCalls int
	emitted         []Emitted
}

var _ transport.Client = (*FakeClient)(nil)

// NewFakeClient creates a client that runs behavior on Connect. A nil
// behavior behaves like Hang.
func NewFakeClient(behavior ConnectBehavior) *FakeClient {
	if behavior == nil {
		behavior = Hang()
	}
	return &FakeClient{behavior: behavior, listeners: make(map[string][]transport.Listener)}
}

func (c *FakeClient) Connect() {
	c.mu.Lock()
	c.connectCalls++
	c.mu.Unlock()
	go c.behavior(c)
}

// Disconnect mimics socket.io: a connected socket reports "io client
// disconnect" to its listeners before returning.
func (c *FakeClient) Disconnect() {
	c.mu.Lock()
	c.disconnectCalls++
	wasConnected := c.connected
	c.connected = false
	c.id = ""
	c.mu.Unlock()

	if wasConnected {
		c.Fire(transport.EventDisconnect, "io client disconnect")
	}
}

func (c *FakeClient) On(event string, listener transport.Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners[event] = append(c.listeners[event], listener)
}

func (c *FakeClient) Emit(event string, args ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return errors.New("fake client: not connected")
	}
	c.emitted = append(c.emitted, Emitted{Event: event, Args: args})
	return nil
}

func (c *FakeClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *FakeClient) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Fire delivers event to every listener as if the server had sent it.
func (c *FakeClient) Fire(event string, args ...any) {
	c.mu.Lock()
	listeners := append([]transport.Listener(nil), c.listeners[event]...)
	c.mu.Unlock()

	for _, l := range listeners {
		l(args...)
	}
}

// ServerAccept marks the socket connected and fires "connect".
func (c *FakeClient) ServerAccept(sid string) {
	c.mu.Lock()
	c.connected = true
	c.id = sid
	c.mu.Unlock()
	c.Fire(transport.EventConnect)
}

// ServerDisconnect drops the connection from the server side.
func (c *FakeClient) ServerDisconnect(reason string) {
	c.mu.Lock()
	c.connected = false
	c.id = ""
	c.mu.Unlock()
	c.Fire(transport.EventDisconnect, reason)
}

// ConnectCalls returns how many times Connect was called.
func (c *FakeClient) ConnectCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectCalls
}

// DisconnectCalls returns how many times Disconnect was called.
func (c *FakeClient) DisconnectCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnectCalls
}

// Emitted returns a copy of every recorded Emit call.
func (c *FakeClient) Emitted() []Emitted {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Emitted(nil), c.emitted...)
}

// ListenerCount returns how many listeners are subscribed to event.
func (c *FakeClient) ListenerCount(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners[event])
}

// FakeDialer hands out FakeClients and counts dials.
type FakeDialer struct {
	behavior ConnectBehavior
	err      error
	dials    atomic.Int32

	mu      sync.Mutex
	clients []*FakeClient
	configs []config.ConnectionConfig
}

var _ transport.Dialer = (*FakeDialer)(nil)

// NewFakeDialer returns a dialer whose clients use behavior.
func NewFakeDialer(behavior ConnectBehavior) *FakeDialer {
	return &FakeDialer{behavior: behavior}
}

// FailingDialer returns a dialer that rejects every Dial with err.
func FailingDialer(err error) *FakeDialer {
	return &FakeDialer{err: err}
}

func (d *FakeDialer) Dial(_ context.Context, cfg config.ConnectionConfig) (transport.Client, error) {
	d.dials.Add(1)
	if d.err != nil {
		return nil, d.err
	}
	client := NewFakeClient(d.behavior)
	d.mu.Lock()
	d.clients = append(d.clients, client)
	d.configs = append(d.configs, cfg)
	d.mu.Unlock()
	return client, nil
}

// Dials returns how many times Dial was called.
func (d *FakeDialer) Dials() int {
	return int(d.dials.Load())
}

// Client returns the i-th dialed client.
func (d *FakeDialer) Client(i int) *FakeClient {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.clients) {
		panic(fmt.Sprintf("fake dialer: client %d not dialed (have %d)", i, len(d.clients)))
	}
	return d.clients[i]
}

// Config returns the configuration passed to the i-th Dial.
func (d *FakeDialer) Config(i int) config.ConnectionConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.configs[i]
}
