package group_test

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/frobware/go-pfq"
	"github.com/frobware/go-pfq/devmap"
	"github.com/frobware/go-pfq/factory"
	"github.com/frobware/go-pfq/group"
)

func testLogger() *slog.Logger {
	if os.Getenv("PFQ_TEST_VERBOSE") != "" {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixture wires a manager to a device table and a factory whose
// dismiss hook detaches steering, as the daemon does.
type fixture struct {
	t       *testing.T
	devmap  *devmap.Table
	factory *factory.Factory
	groups  *group.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{t: t, devmap: devmap.NewTable()}
	fx.factory = factory.New(
		factory.WithLogger(testLogger()),
		factory.WithDismiss(func(name string, fn pfq.Func) { fx.groups.Dismiss(name, fn) }),
	)
	fx.groups = group.New(fx.devmap, fx.factory, testLogger())
	return fx
}

func steerTo(class pfq.ClassMask) pfq.Func {
	return func(pfq.Packet, any) pfq.Result { return pfq.Broadcast(class) }
}
