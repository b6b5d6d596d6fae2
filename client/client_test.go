package client_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frobware/go-pfq"
	"github.com/frobware/go-pfq/client"
	"github.com/frobware/go-pfq/devmap"
	"github.com/frobware/go-pfq/engine"
	"github.com/frobware/go-pfq/factory"
	"github.com/frobware/go-pfq/functions"
	"github.com/frobware/go-pfq/group"
	"github.com/frobware/go-pfq/server"
)

func testLogger() *slog.Logger {
	if os.Getenv("PFQ_TEST_VERBOSE") != "" {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startDaemon serves a fresh group table on a temporary socket and
// returns a client connected to it.
func startDaemon(t *testing.T) (client.Client, *group.Manager) {
	t.Helper()
	dir, err := os.MkdirTemp("", "pfq-cli")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	sock := filepath.Join(dir, "pfq.sock")

	dm := devmap.NewTable()
	var groups *group.Manager
	fac := factory.New(
		factory.WithLogger(testLogger()),
		factory.WithDismiss(func(name string, fn pfq.Func) { groups.Dismiss(name, fn) }),
	)
	groups = group.New(dm, fac, testLogger())
	require.NoError(t, fac.Init(functions.Builtin()...))

	lis, err := server.Listen(sock)
	require.NoError(t, err)
	srv := server.New(fac, groups, engine.New(dm, groups, testLogger()), nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	c, err := client.Dial(sock, client.WithLogger(testLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, groups
}

func TestClientRoundTrip(t *testing.T) {
	c, groups := startDaemon(t)
	ctx := context.Background()

	fns, err := c.ListFunctions(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, fns)

	gid, err := c.JoinFree(ctx, 1, pfq.ClassDefault|1<<3, pfq.PolicyRestricted)
	require.NoError(t, err)
	assert.Equal(t, pfq.GroupID(0), gid)

	require.NoError(t, c.Join(ctx, gid, 2, pfq.ClassDefault, pfq.PolicyRestricted), "the owner may join again")

	mask, err := c.GroupMask(ctx, gid)
	require.NoError(t, err)
	assert.Equal(t, pfq.SocketMask(0b110), mask)

	gm, err := c.Groups(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, pfq.GroupMask(1), gm)

	require.NoError(t, c.SetSteering(ctx, gid, "steer_ip"))
	require.NoError(t, c.Bind(ctx, gid, 1, 0))

	infos, err := c.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "steer_ip", infos[0].Steering)
	assert.Equal(t, []group.ClassMembers{{Class: 0, Sockets: 0b110}, {Class: 3, Sockets: 0b010}}, infos[0].Classes)

	// Not an IP frame: steer_ip drops it for the group.
	deliveries, err := c.Inject(ctx, 1, 0, make([]byte, 64))
	require.NoError(t, err)
	assert.Empty(t, deliveries)

	stats, err := c.Stats(ctx, gid)
	require.NoError(t, err)
	assert.Equal(t, group.Stats{Recv: 1, Drop: 1}, stats)

	require.NoError(t, c.Unbind(ctx, gid, 1, 0))
	require.NoError(t, c.Leave(ctx, gid, 1))
	require.NoError(t, c.LeaveAll(ctx, 2))
	assert.Zero(t, groups.AllGroupsMask(gid))
}

func TestClientErrorsWrapSentinels(t *testing.T) {
	c, groups := startDaemon(t)
	ctx := context.Background()

	require.NoError(t, groups.Join(5, 0, pfq.ClassDefault, pfq.PolicyRestricted, pfq.TaskID(os.Getpid()+1)))

	assert.ErrorIs(t, c.Join(ctx, 5, 1, pfq.ClassDefault, pfq.PolicyShared), pfq.ErrRejected)
	assert.ErrorIs(t, c.Leave(ctx, 6, 0), pfq.ErrNotFound)
	assert.ErrorIs(t, c.SetSteering(ctx, 5, "nope"), pfq.ErrNotFound)
	assert.NoError(t, c.LeaveAll(ctx, 99))

	_, err := c.History(ctx, 5, 10)
	assert.ErrorIs(t, err, client.ErrNotSupported)
}
