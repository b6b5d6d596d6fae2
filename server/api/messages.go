package api

import (
	"time"

	"github.com/frobware/go-pfq"
	"github.com/frobware/go-pfq/group"
	"github.com/frobware/go-pfq/store/sqlite"
)

// Empty is the response of operations that return nothing.
type Empty struct{}

type Function struct {
	Name       string    `json:"name"`
	Module     string    `json:"module,omitempty"`
	Registered time.Time `json:"registered"`
}

type ListFunctionsRequest struct{}

type ListFunctionsResponse struct {
	Functions []Function `json:"functions"`
}

type JoinGroupRequest struct {
	GID     pfq.GroupID   `json:"gid"`
	Socket  pfq.SocketID  `json:"socket"`
	Classes pfq.ClassMask `json:"classes"`
	Policy  pfq.Policy    `json:"policy"`
}

type JoinFreeGroupRequest struct {
	Socket  pfq.SocketID  `json:"socket"`
	Classes pfq.ClassMask `json:"classes"`
	Policy  pfq.Policy    `json:"policy"`
}

type JoinFreeGroupResponse struct {
	GID pfq.GroupID `json:"gid"`
}

type LeaveGroupRequest struct {
	GID    pfq.GroupID  `json:"gid"`
	Socket pfq.SocketID `json:"socket"`
}

type LeaveAllGroupsRequest struct {
	Socket pfq.SocketID `json:"socket"`
}

type GetGroupsRequest struct {
	Socket pfq.SocketID `json:"socket"`
}

type GetGroupsResponse struct {
	Groups pfq.GroupMask `json:"groups"`
}

type GroupMaskRequest struct {
	GID pfq.GroupID `json:"gid"`
}

type GroupMaskResponse struct {
	Sockets pfq.SocketMask `json:"sockets"`
}

type GroupStatsRequest struct {
	GID pfq.GroupID `json:"gid"`
}

type GroupStatsResponse struct {
	Stats group.Stats `json:"stats"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []group.Info `json:"groups"`
}

type SetSteeringRequest struct {
	GID pfq.GroupID `json:"gid"`
	// Function is the registered name; empty clears the steering.
	Function string `json:"function"`
}

type StatsHistoryRequest struct {
	GID   pfq.GroupID `json:"gid"`
	Limit int         `json:"limit"`
}

type StatsHistoryResponse struct {
	Samples []sqlite.Sample `json:"samples"`
}

// BindDeviceRequest routes packets received on (Device, Queue) to GID.
// AnyDevice and AnyQueue select every device or queue.
type BindDeviceRequest struct {
	GID    pfq.GroupID `json:"gid"`
	Device int         `json:"device"`
	Queue  int         `json:"queue"`
}

// InjectRequest runs a frame through the receive path as if it had
// arrived on (Device, Queue).
type InjectRequest struct {
	Device int    `json:"device"`
	Queue  int    `json:"queue"`
	Frame  []byte `json:"frame"`
}

type Delivery struct {
	GID      pfq.GroupID    `json:"gid"`
	Sockets  pfq.SocketMask `json:"sockets"`
	ToKernel bool           `json:"to_kernel,omitempty"`
}

type InjectResponse struct {
	Deliveries []Delivery `json:"deliveries"`
}
