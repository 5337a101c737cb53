// Package transport defines the boundary between the client registry and
// the socket implementation that actually speaks the wire protocol.
//
// The registry only ever subscribes, emits, connects and disconnects. The
// handshake, heartbeats and reconnection backoff belong to the Client
// implementation.
package transport

import (
	"context"

	"github.com/specialistvlad/ioclient/internal/config"
)

// Reserved lifecycle events every Client must emit.
const (
	EventConnect      = "connect"
	EventDisconnect   = "disconnect"
	EventConnectError = "connect_error"
)

// Listener receives the arguments of one event.
type Listener func(args ...any)

// Client is an event-based, bidirectional socket. Implementations must be
// safe for concurrent On and Emit calls.
type Client interface {
	// Connect starts the handshake and returns without waiting for it.
	Connect()
	// Disconnect closes the socket. Calling it more than once is allowed.
	Disconnect()
	On(event string, listener Listener)
	Emit(event string, args ...any) error
	Connected() bool
	// ID returns the session id assigned by the server, or "" when not connected.
	ID() string
}

// Dialer constructs a Client for the given configuration without connecting
// it. It must fail only on invalid input, never on network errors.
type Dialer interface {
	Dial(ctx context.Context, cfg config.ConnectionConfig) (Client, error)
}

// DialFunc adapts a function to the Dialer interface.
type DialFunc func(ctx context.Context, cfg config.ConnectionConfig) (Client, error)

// Dial calls f(ctx, cfg).
func (f DialFunc) Dial(ctx context.Context, cfg config.ConnectionConfig) (Client, error) {
	return f(ctx, cfg)
}
