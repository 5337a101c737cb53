// Package socketio adapts github.com/zishang520/socket.io-client-go to the
// transport.Client interface.
package socketio

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"

	"github.com/specialistvlad/ioclient/internal/config"
	"github.com/specialistvlad/ioclient/internal/ctxlog"
	"github.com/specialistvlad/ioclient/internal/transport"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Client wraps a single socket.io namespace socket.
type Client struct {
	io     *socket.Socket
	logger *slog.Logger
}

var _ transport.Client = (*Client)(nil)

// Dialer is the transport.Dialer backed by socket.io.
var Dialer = transport.DialFunc(Dial)

// Dial builds a socket for cfg. The manager is created with auto-connect
// disabled; the caller decides when to call Connect.
func Dial(ctx context.Context, cfg config.ConnectionConfig) (transport.Client, error) {
	s, err := parseSettings(cfg)
	if err != nil {
		return nil, err
	}
	logger := ctxlog.FromContext(ctx).With("transport", "socketio", "url", s.baseURL, "namespace", s.namespace)

	opts := socket.DefaultOptions()
	opts.SetAutoConnect(false)
	if s.path != "" {
		opts.SetPath(s.path)
	}
	if s.reconnection != nil {
		opts.SetReconnection(*s.reconnection)
	}
	if s.reconnectionAttempts != nil {
		opts.SetReconnectionAttempts(*s.reconnectionAttempts)
	}
	if s.reconnectionDelay != nil {
		opts.SetReconnectionDelay(*s.reconnectionDelay)
	}
	if s.reconnectionDelayMax != nil {
		opts.SetReconnectionDelayMax(*s.reconnectionDelayMax)
	}
	if s.timeout > 0 {
		opts.SetTimeout(s.timeout)
	}
	if s.forceNew != nil {
		opts.SetForceNew(*s.forceNew)
	}
	if s.insecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	if s.websocketOnly {
		opts.SetTransports(types.NewSet(transports.WebSocket))
	}

	manager := socket.NewManager(s.baseURL, opts)
	io := manager.Socket(s.namespace, opts)
	logger.Debug("Socket.io client instance created.")

	return &Client{io: io, logger: logger}, nil
}

// Connect starts the handshake.
func (c *Client) Connect() {
	c.logger.Debug("Initiating connection...")
	c.io.Connect()
}

// Disconnect closes the namespace socket.
func (c *Client) Disconnect() {
	c.logger.Debug("Disconnecting socket client", "sid", c.ID())
	c.io.Disconnect()
}

// On subscribes listener to event.
func (c *Client) On(event string, listener transport.Listener) {
	c.io.On(types.EventName(event), func(args ...any) {
		listener(args...)
	})
}

// Emit sends event with args to the server.
func (c *Client) Emit(event string, args ...any) error {
	if event == "" {
		return fmt.Errorf("event name must not be empty")
	}
	c.io.Emit(event, args...)
	return nil
}

// Connected reports whether the namespace handshake has completed.
func (c *Client) Connected() bool {
	return c.io.Connected()
}

// ID returns the socket id.
func (c *Client) ID() string {
	return string(c.io.Id())
}
