// Package client talks to a running pfq daemon over its control socket.
//
//	c, err := client.Dial(client.DefaultSocketPath())
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//	gid, err := c.JoinFree(ctx, 0, pfq.ClassDefault, pfq.PolicyShared)
//
// Errors returned by the daemon are translated back to the pfq
// sentinels, so errors.Is(err, pfq.ErrRejected) works across the wire.
package client

import (
	"context"
	"errors"
	"io"

	"github.com/frobware/go-pfq"
	"github.com/frobware/go-pfq/group"
	"github.com/frobware/go-pfq/server/api"
	"github.com/frobware/go-pfq/store/sqlite"
)

// ErrNotSupported is returned when the daemon does not offer an
// operation, for example statistics history with recording disabled.
var ErrNotSupported = errors.New("operation not supported by daemon")

// Client is the control interface of the pfq daemon. Group joins are
// made on behalf of the calling process.
type Client interface {
	io.Closer

	// Function factory
	ListFunctions(ctx context.Context) ([]api.Function, error)

	// Group membership
	Join(ctx context.Context, gid pfq.GroupID, socket pfq.SocketID, classes pfq.ClassMask, policy pfq.Policy) error
	JoinFree(ctx context.Context, socket pfq.SocketID, classes pfq.ClassMask, policy pfq.Policy) (pfq.GroupID, error)
	Leave(ctx context.Context, gid pfq.GroupID, socket pfq.SocketID) error
	LeaveAll(ctx context.Context, socket pfq.SocketID) error

	// Group queries
	Groups(ctx context.Context, socket pfq.SocketID) (pfq.GroupMask, error)
	GroupMask(ctx context.Context, gid pfq.GroupID) (pfq.SocketMask, error)
	Stats(ctx context.Context, gid pfq.GroupID) (group.Stats, error)
	ListGroups(ctx context.Context) ([]group.Info, error)
	History(ctx context.Context, gid pfq.GroupID, limit int) ([]sqlite.Sample, error)

	// Steering and routing
	SetSteering(ctx context.Context, gid pfq.GroupID, function string) error
	Bind(ctx context.Context, gid pfq.GroupID, device, queue int) error
	Unbind(ctx context.Context, gid pfq.GroupID, device, queue int) error
	Inject(ctx context.Context, device, queue int, frame []byte) ([]api.Delivery, error)
}
