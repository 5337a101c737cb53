package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/ioclient/internal/config"
	"github.com/specialistvlad/ioclient/internal/connection"
	"github.com/specialistvlad/ioclient/internal/handlers"
	"github.com/specialistvlad/ioclient/internal/ioerr"
	"github.com/specialistvlad/ioclient/internal/lifecycle"
	"github.com/specialistvlad/ioclient/internal/registry"
	"github.com/specialistvlad/ioclient/internal/testutil"
)

type fakeLoader struct {
	cfg   config.ConnectionConfig
	err   error
	calls atomic.Int32
	path  atomic.Value
}

func (l *fakeLoader) Load(_ context.Context, path string) (config.ConnectionConfig, error) {
	l.calls.Add(1)
	l.path.Store(path)
	return l.cfg, l.err
}

func newTestApp(t *testing.T, cfg Config, loader config.Loader, behavior testutil.ConnectBehavior, modules ...Module) (*App, *testutil.FakeDialer, *testutil.SafeBuffer) {
	t.Helper()
	cfg.LogLevel = "debug"
	cfg.LogFormat = "text"
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = "client.hcl"
	}
	out := &testutil.SafeBuffer{}
	dialer := testutil.NewFakeDialer(behavior)
	a := NewApp(out, &cfg, loader, dialer, modules...)
	return a, dialer, out
}

func health(a *App) int {
	rec := httptest.NewRecorder()
	a.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	return rec.Code
}

// startApp runs a in the background and returns a stop function that
// cancels it and returns Run's error.
func startApp(t *testing.T, a *App) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	return func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("app did not stop")
			return nil
		}
	}
}

func TestNewConfig(t *testing.T) {
	t.Parallel()

	_, err := NewConfig(Config{})
	require.ErrorContains(t, err, "ConfigPath is a required")

	_, err = NewConfig(Config{ConfigPath: "a.hcl", ConnectTimeout: -time.Second})
	require.ErrorContains(t, err, "ConnectTimeout must not be negative")

	cfg, err := NewConfig(Config{ConfigPath: "a.hcl", HealthcheckPort: 8080})
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.HealthcheckPort)
}

func TestApp_Run_Lifecycle(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	loader := &fakeLoader{cfg: config.ConnectionConfig{URI: "ws://localhost:3000"}}
	a, dialer, _ := newTestApp(t, Config{ConfigPath: "grid/client.hcl"}, loader, testutil.Accept("sid-1"))
	require.Equal(t, http.StatusServiceUnavailable, health(a))

	// --- Act ---
	stop := startApp(t, a)
	require.Eventually(t, func() bool {
		return a.Coordinator().Phase() == lifecycle.PhaseRunning
	}, 5*time.Second, 5*time.Millisecond)

	// --- Assert ---
	require.Equal(t, http.StatusOK, health(a))
	require.Equal(t, int32(1), loader.calls.Load())
	require.Equal(t, "grid/client.hcl", loader.path.Load())

	rec := httptest.NewRecorder()
	a.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ioclient_connection_connect_attempts_total")
	require.Contains(t, rec.Body.String(), "ioclient_lifecycle_handlers_bound")

	dialer.Client(0).ServerDisconnect("transport close")
	require.Equal(t, http.StatusServiceUnavailable, health(a))

	require.NoError(t, stop())
	require.Equal(t, lifecycle.PhaseStopped, a.Coordinator().Phase())
	require.Equal(t, 1, dialer.Client(0).DisconnectCalls())
	conn, _ := a.Client().Get(context.Background())
	require.Equal(t, connection.StateClosed, conn.State())
}

func TestApp_Run_ConfigurationError(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{err: ioerr.NewConfigurationError("", errors.New("failed to parse HCL file"))}
	a, dialer, _ := newTestApp(t, Config{}, loader, testutil.Accept("sid-1"))

	err := a.Run(context.Background())

	var cfgErr *ioerr.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	require.ErrorContains(t, err, "invalid client configuration")
	require.Equal(t, 0, dialer.Dials())
	require.Equal(t, lifecycle.PhaseStopped, a.Coordinator().Phase())
}

func TestApp_Run_ConnectionError(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{cfg: config.ConnectionConfig{URI: "ws://localhost:1"}}
	a, dialer, out := newTestApp(t, Config{}, loader, testutil.Reject(errors.New("ECONNREFUSED")))

	err := a.Run(context.Background())

	var connErr *ioerr.ConnectionError
	require.True(t, errors.As(err, &connErr))
	require.ErrorContains(t, err, "failed to start client")
	require.Equal(t, 1, dialer.Client(0).DisconnectCalls())
	require.Contains(t, out.String(), "ECONNREFUSED")
}

func TestApp_ConnectTimeoutOverride(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{cfg: config.ConnectionConfig{URI: "ws://localhost:3000"}}
	a, dialer, _ := newTestApp(t, Config{ConnectTimeout: 250 * time.Millisecond}, loader, testutil.Accept("sid-1"))

	stop := startApp(t, a)
	require.Eventually(t, func() bool {
		return a.Coordinator().Phase() == lifecycle.PhaseRunning
	}, 5*time.Second, 5*time.Millisecond)
	require.NoError(t, stop())

	require.Equal(t, int64(250), dialer.Config(0).Options[config.OptionTimeout])
	require.Nil(t, loader.cfg.Options, "the loaded configuration is not mutated")
}

func TestApp_PrintEvents(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{cfg: config.ConnectionConfig{URI: "ws://localhost:3000"}}
	a, dialer, out := newTestApp(t, Config{PrintEvents: []string{"chat"}}, loader, testutil.Accept("sid-1"))

	stop := startApp(t, a)
	require.Eventually(t, func() bool {
		return a.Coordinator().Phase() == lifecycle.PhaseRunning
	}, 5*time.Second, 5*time.Millisecond)
	dialer.Client(0).Fire("chat", map[string]any{"text": "hi"})
	require.NoError(t, stop())

	require.Contains(t, out.String(), `[{"text":"hi"}]`)
}

type noopModule struct{}

func (noopModule) Register(*registry.Registry, *handlers.Handlers) {}

func TestApp_HealthWithoutStatusModule(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{cfg: config.ConnectionConfig{URI: "ws://localhost:3000"}}
	a, _, _ := newTestApp(t, Config{}, loader, testutil.Accept("sid-1"), noopModule{})

	stop := startApp(t, a)
	require.Eventually(t, func() bool { return health(a) == http.StatusOK }, 5*time.Second, 5*time.Millisecond)
	require.NoError(t, stop())

	require.Equal(t, http.StatusServiceUnavailable, health(a))
}

func TestApp_HealthPolledWhileStartingAndStopping(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	loader := &fakeLoader{cfg: config.ConnectionConfig{URI: "ws://localhost:3000"}}
	a, _, _ := newTestApp(t, Config{}, loader, testutil.Accept("sid-1"))

	done := make(chan struct{})
	var sawOK atomic.Bool
	polled := make(chan struct{})
	go func() {
		defer close(polled)
		for {
			select {
			case <-done:
				return
			default:
				if health(a) == http.StatusOK {
					sawOK.Store(true)
				}
			}
		}
	}()

	// --- Act ---
	stop := startApp(t, a)
	require.Eventually(t, sawOK.Load, 5*time.Second, 5*time.Millisecond)
	err := stop()
	close(done)
	<-polled

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, http.StatusServiceUnavailable, health(a))
}
