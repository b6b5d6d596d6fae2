package server_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/frobware/go-pfq"
	"github.com/frobware/go-pfq/devmap"
	"github.com/frobware/go-pfq/engine"
	"github.com/frobware/go-pfq/factory"
	"github.com/frobware/go-pfq/functions"
	"github.com/frobware/go-pfq/group"
	"github.com/frobware/go-pfq/server"
	"github.com/frobware/go-pfq/server/api"
	"github.com/frobware/go-pfq/store/sqlite"
)

// testLogger returns a logger for tests. By default it discards all output.
// Set PFQ_TEST_VERBOSE=1 to enable logging.
func testLogger() *slog.Logger {
	if os.Getenv("PFQ_TEST_VERBOSE") != "" {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testFixture runs a Server on a unix socket and connects a client.
type testFixture struct {
	Factory *factory.Factory
	Groups  *group.Manager
	DevMap  *devmap.Table
	Store   *sqlite.Store
	Client  *api.ControlClient
	Socket  string
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	withStore bool
}

func withStore() fixtureOption {
	return func(c *fixtureConfig) { c.withStore = true }
}

func newTestFixture(t *testing.T, opts ...fixtureOption) *testFixture {
	t.Helper()
	var cfg fixtureConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	// t.TempDir can exceed the sun_path limit for long test names.
	dir, err := os.MkdirTemp("", "pfq-srv")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	fx := &testFixture{DevMap: devmap.NewTable(), Socket: filepath.Join(dir, "pfq.sock")}
	fx.Factory = factory.New(
		factory.WithLogger(testLogger()),
		factory.WithDismiss(func(name string, fn pfq.Func) { fx.Groups.Dismiss(name, fn) }),
	)
	fx.Groups = group.New(fx.DevMap, fx.Factory, testLogger())
	require.NoError(t, fx.Factory.Init(functions.Builtin()...))

	if cfg.withStore {
		st, err := sqlite.NewInMemory(context.Background(), testLogger())
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() })
		fx.Store = st
	}

	srv := server.New(fx.Factory, fx.Groups, engine.New(fx.DevMap, fx.Groups, testLogger()), fx.Store, testLogger())
	lis, err := server.Listen(fx.Socket)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	conn, err := grpc.NewClient("unix://"+fx.Socket, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	fx.Client = api.NewControlClient(conn)
	return fx
}
