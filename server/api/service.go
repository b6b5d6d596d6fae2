// Package api defines the pfq control service: its messages, the JSON
// codec they travel with, and the gRPC service descriptor shared by
// the server and the client.
package api

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "pfq.v1.Control"

// ControlServer is implemented by the daemon.
type ControlServer interface {
	ListFunctions(context.Context, *ListFunctionsRequest) (*ListFunctionsResponse, error)
	JoinGroup(context.Context, *JoinGroupRequest) (*Empty, error)
	JoinFreeGroup(context.Context, *JoinFreeGroupRequest) (*JoinFreeGroupResponse, error)
	LeaveGroup(context.Context, *LeaveGroupRequest) (*Empty, error)
	LeaveAllGroups(context.Context, *LeaveAllGroupsRequest) (*Empty, error)
	GetGroups(context.Context, *GetGroupsRequest) (*GetGroupsResponse, error)
	GroupMask(context.Context, *GroupMaskRequest) (*GroupMaskResponse, error)
	GroupStats(context.Context, *GroupStatsRequest) (*GroupStatsResponse, error)
	ListGroups(context.Context, *ListGroupsRequest) (*ListGroupsResponse, error)
	SetSteering(context.Context, *SetSteeringRequest) (*Empty, error)
	StatsHistory(context.Context, *StatsHistoryRequest) (*StatsHistoryResponse, error)
	BindDevice(context.Context, *BindDeviceRequest) (*Empty, error)
	UnbindDevice(context.Context, *BindDeviceRequest) (*Empty, error)
	Inject(context.Context, *InjectRequest) (*InjectResponse, error)
}

// FullMethod returns the gRPC method path of name.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unary[Req, Resp any](name string, call func(ControlServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ControlServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(ControlServer), ctx, req.(*Req))
			})
		},
	}
}

// ServiceDesc describes the control service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListFunctions", ControlServer.ListFunctions),
		unary("JoinGroup", ControlServer.JoinGroup),
		unary("JoinFreeGroup", ControlServer.JoinFreeGroup),
		unary("LeaveGroup", ControlServer.LeaveGroup),
		unary("LeaveAllGroups", ControlServer.LeaveAllGroups),
		unary("GetGroups", ControlServer.GetGroups),
		unary("GroupMask", ControlServer.GroupMask),
		unary("GroupStats", ControlServer.GroupStats),
		unary("ListGroups", ControlServer.ListGroups),
		unary("SetSteering", ControlServer.SetSteering),
		unary("StatsHistory", ControlServer.StatsHistory),
		unary("BindDevice", ControlServer.BindDevice),
		unary("UnbindDevice", ControlServer.UnbindDevice),
		unary("Inject", ControlServer.Inject),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pfq/v1/control",
}

// RegisterControlServer registers srv with s.
func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ControlClient is the client side of the control service.
type ControlClient struct {
	cc grpc.ClientConnInterface
}

// NewControlClient returns a client using cc.
func NewControlClient(cc grpc.ClientConnInterface) *ControlClient {
	return &ControlClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, name string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(name), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ControlClient) ListFunctions(ctx context.Context, in *ListFunctionsRequest, opts ...grpc.CallOption) (*ListFunctionsResponse, error) {
	return invoke[ListFunctionsResponse](ctx, c.cc, "ListFunctions", in, opts)
}

func (c *ControlClient) JoinGroup(ctx context.Context, in *JoinGroupRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "JoinGroup", in, opts)
}

func (c *ControlClient) JoinFreeGroup(ctx context.Context, in *JoinFreeGroupRequest, opts ...grpc.CallOption) (*JoinFreeGroupResponse, error) {
	return invoke[JoinFreeGroupResponse](ctx, c.cc, "JoinFreeGroup", in, opts)
}

func (c *ControlClient) LeaveGroup(ctx context.Context, in *LeaveGroupRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "LeaveGroup", in, opts)
}

func (c *ControlClient) LeaveAllGroups(ctx context.Context, in *LeaveAllGroupsRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "LeaveAllGroups", in, opts)
}

func (c *ControlClient) GetGroups(ctx context.Context, in *GetGroupsRequest, opts ...grpc.CallOption) (*GetGroupsResponse, error) {
	return invoke[GetGroupsResponse](ctx, c.cc, "GetGroups", in, opts)
}

func (c *ControlClient) GroupMask(ctx context.Context, in *GroupMaskRequest, opts ...grpc.CallOption) (*GroupMaskResponse, error) {
	return invoke[GroupMaskResponse](ctx, c.cc, "GroupMask", in, opts)
}

func (c *ControlClient) GroupStats(ctx context.Context, in *GroupStatsRequest, opts ...grpc.CallOption) (*GroupStatsResponse, error) {
	return invoke[GroupStatsResponse](ctx, c.cc, "GroupStats", in, opts)
}

func (c *ControlClient) ListGroups(ctx context.Context, in *ListGroupsRequest, opts ...grpc.CallOption) (*ListGroupsResponse, error) {
	return invoke[ListGroupsResponse](ctx, c.cc, "ListGroups", in, opts)
}

func (c *ControlClient) SetSteering(ctx context.Context, in *SetSteeringRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "SetSteering", in, opts)
}

func (c *ControlClient) StatsHistory(ctx context.Context, in *StatsHistoryRequest, opts ...grpc.CallOption) (*StatsHistoryResponse, error) {
	return invoke[StatsHistoryResponse](ctx, c.cc, "StatsHistory", in, opts)
}

func (c *ControlClient) BindDevice(ctx context.Context, in *BindDeviceRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "BindDevice", in, opts)
}

func (c *ControlClient) UnbindDevice(ctx context.Context, in *BindDeviceRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "UnbindDevice", in, opts)
}

func (c *ControlClient) Inject(ctx context.Context, in *InjectRequest, opts ...grpc.CallOption) (*InjectResponse, error) {
	return invoke[InjectResponse](ctx, c.cc, "Inject", in, opts)
}
