package client

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/frobware/go-pfq"
	"github.com/frobware/go-pfq/group"
	"github.com/frobware/go-pfq/server/api"
	"github.com/frobware/go-pfq/store/sqlite"
)

// controlClient is the method set of *api.ControlClient used here.
type controlClient interface {
	ListFunctions(ctx context.Context, in *api.ListFunctionsRequest, opts ...grpc.CallOption) (*api.ListFunctionsResponse, error)
	JoinGroup(ctx context.Context, in *api.JoinGroupRequest, opts ...grpc.CallOption) (*api.Empty, error)
	JoinFreeGroup(ctx context.Context, in *api.JoinFreeGroupRequest, opts ...grpc.CallOption) (*api.JoinFreeGroupResponse, error)
	LeaveGroup(ctx context.Context, in *api.LeaveGroupRequest, opts ...grpc.CallOption) (*api.Empty, error)
	LeaveAllGroups(ctx context.Context, in *api.LeaveAllGroupsRequest, opts ...grpc.CallOption) (*api.Empty, error)
	GetGroups(ctx context.Context, in *api.GetGroupsRequest, opts ...grpc.CallOption) (*api.GetGroupsResponse, error)
	GroupMask(ctx context.Context, in *api.GroupMaskRequest, opts ...grpc.CallOption) (*api.GroupMaskResponse, error)
	GroupStats(ctx context.Context, in *api.GroupStatsRequest, opts ...grpc.CallOption) (*api.GroupStatsResponse, error)
	ListGroups(ctx context.Context, in *api.ListGroupsRequest, opts ...grpc.CallOption) (*api.ListGroupsResponse, error)
	SetSteering(ctx context.Context, in *api.SetSteeringRequest, opts ...grpc.CallOption) (*api.Empty, error)
	StatsHistory(ctx context.Context, in *api.StatsHistoryRequest, opts ...grpc.CallOption) (*api.StatsHistoryResponse, error)
	BindDevice(ctx context.Context, in *api.BindDeviceRequest, opts ...grpc.CallOption) (*api.Empty, error)
	UnbindDevice(ctx context.Context, in *api.BindDeviceRequest, opts ...grpc.CallOption) (*api.Empty, error)
	Inject(ctx context.Context, in *api.InjectRequest, opts ...grpc.CallOption) (*api.InjectResponse, error)
}

var _ controlClient = (*api.ControlClient)(nil)

// remoteClient implements Client over gRPC.
type remoteClient struct {
	client controlClient
	conn   *grpc.ClientConn
	logger *slog.Logger
}

func newRemote(address string, logger *slog.Logger) (Client, error) {
	target := parseAddress(address)

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", target, err)
	}
	logger.Debug("client created", "target", target)

	return &remoteClient{
		client: api.NewControlClient(conn),
		conn:   conn,
		logger: logger,
	}, nil
}

// parseAddress normalises a socket path into a gRPC target.
func parseAddress(address string) string {
	if strings.HasPrefix(address, "unix:") {
		return address
	}
	return "unix://" + address
}

// Close releases the gRPC connection.
func (c *remoteClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *remoteClient) ListFunctions(ctx context.Context) ([]api.Function, error) {
	resp, err := c.client.ListFunctions(ctx, &api.ListFunctionsRequest{})
	if err != nil {
		return nil, translateGRPCError(err)
	}
	return resp.Functions, nil
}

func (c *remoteClient) Join(ctx context.Context, gid pfq.GroupID, socket pfq.SocketID, classes pfq.ClassMask, policy pfq.Policy) error {
	_, err := c.client.JoinGroup(ctx, &api.JoinGroupRequest{GID: gid, Socket: socket, Classes: classes, Policy: policy})
	return translateGRPCError(err)
}

func (c *remoteClient) JoinFree(ctx context.Context, socket pfq.SocketID, classes pfq.ClassMask, policy pfq.Policy) (pfq.GroupID, error) {
	resp, err := c.client.JoinFreeGroup(ctx, &api.JoinFreeGroupRequest{Socket: socket, Classes: classes, Policy: policy})
	if err != nil {
		return -1, translateGRPCError(err)
	}
	return resp.GID, nil
}

func (c *remoteClient) Leave(ctx context.Context, gid pfq.GroupID, socket pfq.SocketID) error {
	_, err := c.client.LeaveGroup(ctx, &api.LeaveGroupRequest{GID: gid, Socket: socket})
	return translateGRPCError(err)
}

func (c *remoteClient) LeaveAll(ctx context.Context, socket pfq.SocketID) error {
	_, err := c.client.LeaveAllGroups(ctx, &api.LeaveAllGroupsRequest{Socket: socket})
	return translateGRPCError(err)
}

func (c *remoteClient) Groups(ctx context.Context, socket pfq.SocketID) (pfq.GroupMask, error) {
	resp, err := c.client.GetGroups(ctx, &api.GetGroupsRequest{Socket: socket})
	if err != nil {
		return 0, translateGRPCError(err)
	}
	return resp.Groups, nil
}

func (c *remoteClient) GroupMask(ctx context.Context, gid pfq.GroupID) (pfq.SocketMask, error) {
	resp, err := c.client.GroupMask(ctx, &api.GroupMaskRequest{GID: gid})
	if err != nil {
		return 0, translateGRPCError(err)
	}
	return resp.Sockets, nil
}

func (c *remoteClient) Stats(ctx context.Context, gid pfq.GroupID) (group.Stats, error) {
	resp, err := c.client.GroupStats(ctx, &api.GroupStatsRequest{GID: gid})
	if err != nil {
		return group.Stats{}, translateGRPCError(err)
	}
	return resp.Stats, nil
}

func (c *remoteClient) ListGroups(ctx context.Context) ([]group.Info, error) {
	resp, err := c.client.ListGroups(ctx, &api.ListGroupsRequest{})
	if err != nil {
		return nil, translateGRPCError(err)
	}
	return resp.Groups, nil
}

func (c *remoteClient) History(ctx context.Context, gid pfq.GroupID, limit int) ([]sqlite.Sample, error) {
	resp, err := c.client.StatsHistory(ctx, &api.StatsHistoryRequest{GID: gid, Limit: limit})
	if err != nil {
		return nil, translateGRPCError(err)
	}
	return resp.Samples, nil
}

func (c *remoteClient) SetSteering(ctx context.Context, gid pfq.GroupID, function string) error {
	_, err := c.client.SetSteering(ctx, &api.SetSteeringRequest{GID: gid, Function: function})
	return translateGRPCError(err)
}

func (c *remoteClient) Bind(ctx context.Context, gid pfq.GroupID, device, queue int) error {
	_, err := c.client.BindDevice(ctx, &api.BindDeviceRequest{GID: gid, Device: device, Queue: queue})
	return translateGRPCError(err)
}

func (c *remoteClient) Unbind(ctx context.Context, gid pfq.GroupID, device, queue int) error {
	_, err := c.client.UnbindDevice(ctx, &api.BindDeviceRequest{GID: gid, Device: device, Queue: queue})
	return translateGRPCError(err)
}

func (c *remoteClient) Inject(ctx context.Context, device, queue int, frame []byte) ([]api.Delivery, error) {
	resp, err := c.client.Inject(ctx, &api.InjectRequest{Device: device, Queue: queue, Frame: frame})
	if err != nil {
		return nil, translateGRPCError(err)
	}
	return resp.Deliveries, nil
}

// translateGRPCError converts a gRPC status back into an error that
// wraps the matching pfq sentinel.
func translateGRPCError(err error) error {
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	var kind error
	switch st.Code() {
	case codes.NotFound:
		kind = pfq.ErrNotFound
	case codes.AlreadyExists:
		kind = pfq.ErrExists
	case codes.PermissionDenied:
		kind = pfq.ErrRejected
	case codes.ResourceExhausted:
		kind = pfq.ErrExhausted
	case codes.InvalidArgument:
		kind = pfq.ErrInvalid
	case codes.Unimplemented, codes.FailedPrecondition:
		kind = ErrNotSupported
	default:
		return err
	}
	return &remoteError{msg: st.Message(), kind: kind}
}

// remoteError keeps the daemon's message and unwraps to the sentinel.
type remoteError struct {
	msg  string
	kind error
}

func (e *remoteError) Error() string { return e.msg }

func (e *remoteError) Unwrap() error { return e.kind }
