package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/frobware/go-pfq"
	"github.com/frobware/go-pfq/server/api"
)

var errNoHistory = errors.New("statistics recording is disabled")

var _ api.ControlServer = (*Server)(nil)

func (s *Server) ListFunctions(_ context.Context, _ *api.ListFunctionsRequest) (*api.ListFunctionsResponse, error) {
	entries := s.factory.List()
	out := &api.ListFunctionsResponse{Functions: make([]api.Function, 0, len(entries))}
	for _, e := range entries {
		out.Functions = append(out.Functions, api.Function{
			Name:       e.Name,
			Module:     e.Module,
			Registered: e.Registered,
		})
	}
	return out, nil
}

func (s *Server) JoinGroup(ctx context.Context, req *api.JoinGroupRequest) (*api.Empty, error) {
	task, err := taskFromContext(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := s.groups.Join(req.GID, req.Socket, req.Classes, req.Policy, task); err != nil {
		return nil, toStatus(err)
	}
	s.logger.InfoContext(ctx, "socket joined group", "gid", req.GID, "socket", req.Socket, "policy", req.Policy, "task", task)
	return &api.Empty{}, nil
}

func (s *Server) JoinFreeGroup(ctx context.Context, req *api.JoinFreeGroupRequest) (*api.JoinFreeGroupResponse, error) {
	task, err := taskFromContext(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	gid, err := s.groups.JoinFree(req.Socket, req.Classes, req.Policy, task)
	if err != nil {
		return nil, toStatus(err)
	}
	s.logger.InfoContext(ctx, "socket joined group", "gid", gid, "socket", req.Socket, "policy", req.Policy, "task", task)
	return &api.JoinFreeGroupResponse{GID: gid}, nil
}

func (s *Server) LeaveGroup(ctx context.Context, req *api.LeaveGroupRequest) (*api.Empty, error) {
	if err := s.groups.Leave(req.GID, req.Socket); err != nil {
		return nil, toStatus(err)
	}
	s.logger.InfoContext(ctx, "socket left group", "gid", req.GID, "socket", req.Socket)
	return &api.Empty{}, nil
}

func (s *Server) LeaveAllGroups(ctx context.Context, req *api.LeaveAllGroupsRequest) (*api.Empty, error) {
	before := s.groups.Groups(req.Socket)
	s.groups.LeaveAll(req.Socket)
	s.logger.InfoContext(ctx, "socket left all groups", "socket", req.Socket, "groups", len(before.Groups()))
	return &api.Empty{}, nil
}

func (s *Server) GetGroups(_ context.Context, req *api.GetGroupsRequest) (*api.GetGroupsResponse, error) {
	if !req.Socket.Valid() {
		return nil, toStatus(pfq.ErrInvalidSocket{ID: req.Socket})
	}
	return &api.GetGroupsResponse{Groups: s.groups.Groups(req.Socket)}, nil
}

func (s *Server) GroupMask(_ context.Context, req *api.GroupMaskRequest) (*api.GroupMaskResponse, error) {
	if !req.GID.Valid() {
		return nil, toStatus(pfq.ErrInvalidGroup{GID: req.GID})
	}
	return &api.GroupMaskResponse{Sockets: s.groups.AllGroupsMask(req.GID)}, nil
}

func (s *Server) GroupStats(_ context.Context, req *api.GroupStatsRequest) (*api.GroupStatsResponse, error) {
	if !req.GID.Valid() {
		return nil, toStatus(pfq.ErrInvalidGroup{GID: req.GID})
	}
	return &api.GroupStatsResponse{Stats: s.groups.Stats(req.GID)}, nil
}

func (s *Server) ListGroups(_ context.Context, _ *api.ListGroupsRequest) (*api.ListGroupsResponse, error) {
	return &api.ListGroupsResponse{Groups: s.groups.Snapshot()}, nil
}

func (s *Server) SetSteering(ctx context.Context, req *api.SetSteeringRequest) (*api.Empty, error) {
	if err := s.groups.SetSteering(req.GID, req.Function); err != nil {
		return nil, toStatus(err)
	}
	s.logger.InfoContext(ctx, "steering changed", "gid", req.GID, "function", req.Function)
	return &api.Empty{}, nil
}

func (s *Server) StatsHistory(ctx context.Context, req *api.StatsHistoryRequest) (*api.StatsHistoryResponse, error) {
	if s.store == nil {
		return nil, toStatus(errNoHistory)
	}
	samples, err := s.store.History(ctx, req.GID, req.Limit)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.StatsHistoryResponse{Samples: samples}, nil
}

func (s *Server) BindDevice(ctx context.Context, req *api.BindDeviceRequest) (*api.Empty, error) {
	if err := s.groups.Bind(req.GID, req.Device, req.Queue); err != nil {
		return nil, toStatus(err)
	}
	s.logger.InfoContext(ctx, "device bound", "gid", req.GID, "device", req.Device, "queue", req.Queue)
	return &api.Empty{}, nil
}

func (s *Server) UnbindDevice(ctx context.Context, req *api.BindDeviceRequest) (*api.Empty, error) {
	if err := s.groups.Unbind(req.GID, req.Device, req.Queue); err != nil {
		return nil, toStatus(err)
	}
	s.logger.InfoContext(ctx, "device unbound", "gid", req.GID, "device", req.Device, "queue", req.Queue)
	return &api.Empty{}, nil
}

func (s *Server) Inject(_ context.Context, req *api.InjectRequest) (*api.InjectResponse, error) {
	if len(req.Frame) == 0 {
		return nil, toStatus(fmt.Errorf("inject: empty frame: %w", pfq.ErrInvalid))
	}
	pkt := pfq.RawPacket{Frame: req.Frame, Interface: req.Device, HWQueue: req.Queue}
	deliveries := s.engine.Receive(pkt)
	out := &api.InjectResponse{Deliveries: make([]api.Delivery, 0, len(deliveries))}
	for _, d := range deliveries {
		out.Deliveries = append(out.Deliveries, api.Delivery{GID: d.GID, Sockets: d.Sockets, ToKernel: d.ToKernel})
	}
	return out, nil
}
