package registry

import (
	"context"
	"sync"

	"github.com/specialistvlad/ioclient/internal/connection"
	"github.com/specialistvlad/ioclient/internal/ctxlog"
	"github.com/specialistvlad/ioclient/internal/ioerr"
	"github.com/specialistvlad/ioclient/internal/token"
)

// Module is one registration scope: a token, a configuration resolver and
// the connection built from it.
type Module struct {
	token   token.Token
	resolve resolver
	factory *connection.Factory

	once   sync.Once
	mu     sync.Mutex
	built  bool
	closed bool
	conn   *connection.Connection
	err    error
}

func newModule(tok token.Token, resolve resolver, factory *connection.Factory) *Module {
	return &Module{token: tok, resolve: resolve, factory: factory}
}

// Token returns the canonical token of this scope.
func (m *Module) Token() token.Token {
	return m.token
}

// Get returns the shared connection, resolving the configuration and
// invoking the connection factory on the first call only. Later calls
// return the same connection and error.
//
// On *ioerr.ConnectionError the connection is returned as well: it exists
// and is owned by the module, it just failed its initial connect.
func (m *Module) Get(ctx context.Context) (*connection.Connection, error) {
	m.once.Do(func() { m.build(ctx) })

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn, m.err
}

// Built reports whether the connection factory has run.
func (m *Module) Built() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.built
}

func (m *Module) build(ctx context.Context) {
	logger := ctxlog.FromContext(ctx).With("token", m.token.String())

	m.mu.Lock()
	if m.closed {
		m.err = ioerr.ErrClosed
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	cfg, err := m.resolve(ctx)
	if err != nil {
		logger.Error("Client configuration could not be resolved", "error", err)
		m.mu.Lock()
		m.err = err
		m.mu.Unlock()
		return
	}

	logger.Debug("Creating shared connection.", "uri", cfg.URI, "autoConnect", cfg.AutoConnect())
	conn, err := m.factory.Create(ctx, cfg, m.token.String())

	m.mu.Lock()
	m.built = true
	m.conn, m.err = conn, err
	closedMeanwhile := m.closed
	m.mu.Unlock()

	if closedMeanwhile && conn != nil {
		logger.Debug("Module closed while connecting, closing new connection.")
		_ = conn.Close()
	}
}

// Close closes the connection if it was built and prevents any later
// build. It never fails and may be called any number of times.
func (m *Module) Close(ctx context.Context) {
	logger := ctxlog.FromContext(ctx).With("token", m.token.String())

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		logger.Debug("No connection was built, nothing to close.")
		return
	}
	if err := conn.Close(); err != nil {
		logger.Error("Failed to close shared connection", "error", err)
		return
	}
	logger.Info("Shared connection closed.")
}
