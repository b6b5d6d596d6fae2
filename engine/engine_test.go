package engine_test

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frobware/go-pfq"
	"github.com/frobware/go-pfq/devmap"
	"github.com/frobware/go-pfq/engine"
	"github.com/frobware/go-pfq/factory"
	"github.com/frobware/go-pfq/functions"
	"github.com/frobware/go-pfq/group"
)

func testLogger() *slog.Logger {
	if os.Getenv("PFQ_TEST_VERBOSE") != "" {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	devmap  *devmap.Table
	factory *factory.Factory
	groups  *group.Manager
	engine  *engine.Engine
}

func newFixture(t *testing.T, logger *slog.Logger) *fixture {
	t.Helper()
	fx := &fixture{devmap: devmap.NewTable()}
	fx.factory = factory.New(
		factory.WithLogger(testLogger()),
		factory.WithDismiss(func(name string, fn pfq.Func) { fx.groups.Dismiss(name, fn) }),
	)
	require.NoError(t, fx.factory.Init(functions.Builtin()...))
	fx.groups = group.New(fx.devmap, fx.factory, testLogger())
	fx.engine = engine.New(fx.devmap, fx.groups, logger)
	return fx
}

// udpFrame is a minimal Ethernet/IPv4/UDP frame.
func udpFrame(srcPort byte) []byte {
	b := make([]byte, 14+20+8)
	b[12], b[13] = 0x08, 0x00
	b[14] = 0x45
	b[14+9] = 17
	copy(b[14+12:], []byte{10, 0, 0, 1, 10, 0, 0, 2})
	b[34+1] = srcPort
	b[34+3] = 80
	return b
}

func pkt(dev, queue int) pfq.RawPacket {
	return pfq.RawPacket{Frame: udpFrame(1), Interface: dev, HWQueue: queue}
}

func TestReceiveWithoutSteeringUsesDefaultClass(t *testing.T) {
	fx := newFixture(t, testLogger())
	require.NoError(t, fx.groups.Join(0, 1, pfq.ClassDefault, pfq.PolicyShared, 1))
	require.NoError(t, fx.groups.Join(0, 2, 0b10, pfq.PolicyShared, 1))
	require.NoError(t, fx.devmap.Update(pfq.MapSet, 3, 0, 0))

	got := fx.engine.Receive(pkt(3, 0))
	assert.Equal(t, []engine.Delivery{{GID: 0, Sockets: 1 << 1}}, got)
	assert.Equal(t, group.Stats{Recv: 1}, fx.groups.Stats(0))

	assert.Empty(t, fx.engine.Receive(pkt(3, 1)), "queue not bound")
}

func TestReceiveBroadcastAcrossGroups(t *testing.T) {
	fx := newFixture(t, testLogger())
	require.NoError(t, fx.groups.Join(0, 1, pfq.ClassDefault, pfq.PolicyShared, 1))
	require.NoError(t, fx.groups.Join(0, 2, 0b10, pfq.PolicyShared, 1))
	require.NoError(t, fx.groups.Join(5, 3, pfq.ClassDefault, pfq.PolicyShared, 1))
	require.NoError(t, fx.groups.SetSteering(0, "forward_broadcast"))
	require.NoError(t, fx.devmap.Update(pfq.MapSet, 1, pfq.AnyQueue, 0))
	require.NoError(t, fx.devmap.Update(pfq.MapSet, 1, pfq.AnyQueue, 5))

	got := fx.engine.Receive(pkt(1, 7))
	assert.Equal(t, []engine.Delivery{
		{GID: 0, Sockets: 1<<1 | 1<<2},
		{GID: 5, Sockets: 1 << 3},
	}, got)
}

func TestReceiveDispatchPicksOneMember(t *testing.T) {
	fx := newFixture(t, testLogger())
	for id := range pfq.SocketID(4) {
		require.NoError(t, fx.groups.Join(0, id, pfq.ClassDefault, pfq.PolicyShared, 1))
	}
	require.NoError(t, fx.groups.SetSteering(0, "steer_flow"))
	require.NoError(t, fx.devmap.Update(pfq.MapSet, 0, 0, 0))

	seen := pfq.SocketMask(0)
	for port := range byte(64) {
		p := pfq.RawPacket{Frame: udpFrame(port)}
		got := fx.engine.Receive(p)
		require.Len(t, got, 1)
		assert.Equal(t, 1, got[0].Sockets.Count())
		seen |= got[0].Sockets

		// The same flow always lands on the same socket.
		assert.Equal(t, got, fx.engine.Receive(p))
	}
	assert.Equal(t, pfq.SocketMask(0b1111), seen)
}

func TestReceiveDropCountsAndKernel(t *testing.T) {
	fx := newFixture(t, testLogger())
	require.NoError(t, fx.groups.Join(0, 1, pfq.ClassDefault, pfq.PolicyShared, 1))
	require.NoError(t, fx.groups.Join(1, 1, pfq.ClassDefault, pfq.PolicyShared, 1))
	require.NoError(t, fx.groups.SetSteering(0, "forward_drop"))
	require.NoError(t, fx.groups.SetSteering(1, "forward_kernel"))
	require.NoError(t, fx.devmap.Update(pfq.MapSet, 0, 0, 0))
	require.NoError(t, fx.devmap.Update(pfq.MapSet, 0, 0, 1))

	got := fx.engine.Receive(pkt(0, 0))
	assert.Equal(t, []engine.Delivery{{GID: 1, ToKernel: true}}, got)
	assert.Equal(t, group.Stats{Recv: 1, Drop: 1}, fx.groups.Stats(0))
	assert.Equal(t, group.Stats{Recv: 1, Drop: 1}, fx.groups.Stats(1))
}

func TestReceiveEmptyTargetIsLost(t *testing.T) {
	var buf bytes.Buffer
	fx := newFixture(t, slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, fx.groups.Join(0, 1, 0b10, pfq.PolicyShared, 1))
	require.NoError(t, fx.devmap.Update(pfq.MapSet, 0, 0, 0))

	for range 10 {
		assert.Empty(t, fx.engine.Receive(pkt(0, 0)))
	}
	assert.Equal(t, group.Stats{Recv: 10, Lost: 10}, fx.groups.Stats(0))
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("no socket for packet")), "warning is rate limited")
}

func TestReceiveStolen(t *testing.T) {
	var buf bytes.Buffer
	fx := newFixture(t, slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, fx.factory.Register("test", "steal", func(pfq.Packet, any) pfq.Result {
		return pfq.Result{Type: pfq.ActionSteal | pfq.ActionToKernel}
	}))
	require.NoError(t, fx.groups.Join(0, 1, pfq.ClassDefault, pfq.PolicyShared, 1))
	require.NoError(t, fx.groups.SetSteering(0, "steal"))
	require.NoError(t, fx.devmap.Update(pfq.MapSet, 0, 0, 0))

	assert.Empty(t, fx.engine.Receive(pkt(0, 0)))
	assert.Equal(t, group.Stats{Recv: 1}, fx.groups.Stats(0))
	assert.Contains(t, buf.String(), "stolen packet cannot be passed to the kernel")
}

func TestReceiveAfterUnregisterFallsBackToDefault(t *testing.T) {
	fx := newFixture(t, testLogger())
	require.NoError(t, fx.factory.Register("test", "none", func(pfq.Packet, any) pfq.Result { return pfq.None() }))
	require.NoError(t, fx.groups.Join(0, 1, pfq.ClassDefault, pfq.PolicyShared, 1))
	require.NoError(t, fx.groups.SetSteering(0, "none"))
	require.NoError(t, fx.devmap.Update(pfq.MapSet, 0, 0, 0))

	assert.Empty(t, fx.engine.Receive(pkt(0, 0)))
	require.NoError(t, fx.factory.Unregister("test", "none"))
	assert.Equal(t, []engine.Delivery{{GID: 0, Sockets: 1 << 1}}, fx.engine.Receive(pkt(0, 0)))
}

func TestDestroyedGroupStopsReceiving(t *testing.T) {
	fx := newFixture(t, testLogger())
	require.NoError(t, fx.groups.Join(2, 1, pfq.ClassDefault, pfq.PolicyShared, 1))
	require.NoError(t, fx.devmap.Update(pfq.MapSet, 0, 0, 2))
	require.Len(t, fx.engine.Receive(pkt(0, 0)), 1)

	require.NoError(t, fx.groups.Leave(2, 1))
	assert.Empty(t, fx.engine.Receive(pkt(0, 0)))
}
