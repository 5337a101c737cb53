package registry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/specialistvlad/ioclient/internal/config"
	"github.com/specialistvlad/ioclient/internal/connection"
	"github.com/specialistvlad/ioclient/internal/ctxlog"
	"github.com/specialistvlad/ioclient/internal/ioerr"
	"github.com/specialistvlad/ioclient/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	logger, _ := testutil.NewLogger(t)
	return ctxlog.WithLogger(context.Background(), logger)
}

func newTestRegistry(behavior testutil.ConnectBehavior) (*Registry, *testutil.FakeDialer) {
	dialer := testutil.NewFakeDialer(behavior)
	return New(connection.NewFactory(dialer)), dialer
}

type settings struct {
	URI string
}

func TestRegister_StaticBuildsOnceAndShares(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	reg, dialer := newTestRegistry(testutil.Accept("sid"))
	mod := reg.Register(config.ConnectionConfig{URI: "ws://localhost:3000"})
	ctx := testContext(t)
	require.False(t, mod.Built())

	// --- Act ---
	var wg sync.WaitGroup
	conns := make([]*connection.Connection, 8)
	for i := range conns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, err := reg.Get(ctx, mod.Token())
			assert.NoError(t, err)
			conns[i] = conn
		}()
	}
	wg.Wait()

	// --- Assert ---
	require.Equal(t, 1, dialer.Dials(), "the connection factory must run at most once")
	for _, c := range conns {
		require.Same(t, conns[0], c)
	}
	require.Equal(t, connection.StateConnected, conns[0].State())
	require.True(t, mod.Built())
}

func TestRegister_AutoConnectDisabled(t *testing.T) {
	t.Parallel()

	reg, dialer := newTestRegistry(testutil.Accept("sid"))
	mod := reg.Register(config.ConnectionConfig{URI: "ws://localhost:3000", Options: config.Options{"autoConnect": false}})

	conn, err := mod.Get(testContext(t))

	require.NoError(t, err)
	require.Equal(t, connection.StateUnconnected, conn.State())
	require.Equal(t, 0, dialer.Client(0).ConnectCalls())
}

func TestRegister_StaticConfigIsCopied(t *testing.T) {
	t.Parallel()

	reg, dialer := newTestRegistry(testutil.Accept("sid"))
	cfg := config.ConnectionConfig{URI: "ws://localhost:3000", Options: config.Options{"forceNew": true}}
	mod := reg.Register(cfg)
	cfg.Options["forceNew"] = false

	_, err := mod.Get(testContext(t))

	require.NoError(t, err)
	require.Equal(t, true, dialer.Config(0).Options["forceNew"])
}

func TestRegisterAsync_LazyAndInjected(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	reg, dialer := newTestRegistry(testutil.Accept("sid"))
	reg.ProvideValue("settings", &settings{URI: "ws://localhost:4000"})
	var calls atomic.Int32
	release := make(chan struct{})

	mod := reg.RegisterAsync(AsyncOptions{
		Inject:    []string{"settings", "extra"},
		Providers: []Component{{Name: "extra", Instance: "payload", Kind: KindProvider}},
		UseFactory: func(ctx context.Context, deps ...any) (config.ConnectionConfig, error) {
			calls.Add(1)
			<-release
			s := deps[0].(*settings)
			assert.Equal(t, "payload", deps[1])
			return config.ConnectionConfig{URI: s.URI}, nil
		},
	})

	// --- Act ---
	done := make(chan error, 1)
	go func() {
		_, err := mod.Get(testContext(t))
		done <- err
	}()

	// --- Assert ---
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	require.Equal(t, 0, dialer.Dials(), "the connection must not be built before the factory resolves")

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, 1, dialer.Dials())
	require.Equal(t, "ws://localhost:4000", dialer.Config(0).URI)

	_, err := mod.Get(testContext(t))
	require.NoError(t, err)
	require.Equal(t, int32(1), calls.Load())
	_, provided := reg.Lookup("extra")
	require.True(t, provided)
}

func TestRegisterAsync_Failures(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		opts AsyncOptions
	}{
		{
			name: "missing dependency",
			opts: AsyncOptions{
				Inject: []string{"nope"},
				UseFactory: func(context.Context, ...any) (config.ConnectionConfig, error) {
					return config.ConnectionConfig{URI: "ws://localhost"}, nil
				},
			},
		},
		{
			name: "factory error",
			opts: AsyncOptions{
				UseFactory: func(context.Context, ...any) (config.ConnectionConfig, error) {
					return config.ConnectionConfig{}, errors.New("vault unreachable")
				},
			},
		},
		{
			name: "factory panic",
			opts: AsyncOptions{
				UseFactory: func(context.Context, ...any) (config.ConnectionConfig, error) {
					panic("boom")
				},
			},
		},
		{
			name: "nil factory",
			opts: AsyncOptions{},
		},
		{
			name: "invalid resolved config",
			opts: AsyncOptions{
				UseFactory: func(context.Context, ...any) (config.ConnectionConfig, error) {
					return config.ConnectionConfig{URI: "ftp://localhost"}, nil
				},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			reg, dialer := newTestRegistry(testutil.Accept("sid"))
			mod := reg.RegisterAsync(tc.opts)

			conn, err := mod.Get(testContext(t))
			conn2, err2 := mod.Get(testContext(t))

			var cfgErr *ioerr.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %v", err)
			require.Nil(t, conn)
			require.Nil(t, conn2)
			require.Equal(t, err, err2, "the failure is cached, never retried")
			require.Equal(t, 0, dialer.Dials())
		})
	}
}

func TestGet_ConnectionErrorReturnsConnection(t *testing.T) {
	t.Parallel()

	cause := errors.New("ECONNREFUSED")
	reg, dialer := newTestRegistry(testutil.Reject(cause))
	mod := reg.Register(config.ConnectionConfig{URI: "ws://localhost:1"})

	conn, err := mod.Get(testContext(t))

	var connErr *ioerr.ConnectionError
	require.True(t, errors.As(err, &connErr))
	require.ErrorIs(t, err, cause)
	require.NotNil(t, conn)
	require.Equal(t, 1, dialer.Dials())
}

func TestRegistry_TokensAreDistinct(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(testutil.Accept("sid"))
	a := reg.Register(config.ConnectionConfig{URI: "ws://a.example"})
	b := reg.Register(config.ConnectionConfig{URI: "ws://b.example"})

	require.NotEqual(t, a.Token(), b.Token())
	got, ok := reg.Module(b.Token())
	require.True(t, ok)
	require.Same(t, b, got)
	require.Equal(t, []*Module{a, b}, reg.Modules())

	_, err := reg.Get(testContext(t), "ioclient:unknown")
	require.ErrorContains(t, err, "no client registered")
}

func TestModule_Close(t *testing.T) {
	t.Parallel()

	t.Run("before build", func(t *testing.T) {
		t.Parallel()

		reg, dialer := newTestRegistry(testutil.Accept("sid"))
		mod := reg.Register(config.ConnectionConfig{URI: "ws://localhost"})

		mod.Close(testContext(t))
		mod.Close(testContext(t))
		conn, err := mod.Get(testContext(t))

		require.ErrorIs(t, err, ioerr.ErrClosed)
		require.Nil(t, conn)
		require.Equal(t, 0, dialer.Dials())
	})

	t.Run("after build", func(t *testing.T) {
		t.Parallel()

		reg, dialer := newTestRegistry(testutil.Accept("sid"))
		mod := reg.Register(config.ConnectionConfig{URI: "ws://localhost"})
		conn, err := mod.Get(testContext(t))
		require.NoError(t, err)

		mod.Close(testContext(t))
		mod.Close(testContext(t))

		require.Equal(t, connection.StateClosed, conn.State())
		require.Equal(t, 1, dialer.Client(0).DisconnectCalls())
	})
}

func TestComponents_ProvidersBeforeControllers(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(nil)
	reg.Provide(Component{Name: "ctrlA", Instance: 1, Kind: KindController})
	reg.ProvideValue("svcA", 2)
	reg.Provide(Component{Name: "ctrlB", Instance: 3, Kind: KindController})
	reg.ProvideValue("svcB", 4)

	var names []string
	for _, c := range reg.Components() {
		names = append(names, c.Name)
	}

	require.Equal(t, []string{"svcA", "svcB", "ctrlA", "ctrlB"}, names)
	require.Panics(t, func() { reg.ProvideValue("svcA", 5) })
	require.Panics(t, func() { reg.ProvideValue("", 5) })
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "provider", KindProvider.String())
	require.Equal(t, "controller", KindController.String())
	require.Equal(t, "kind(7)", Kind(7).String())
}
