package group

import "github.com/frobware/go-pfq"

// ClassMembers lists the sockets of one class.
type ClassMembers struct {
	Class   int            `json:"class"`
	Sockets pfq.SocketMask `json:"sockets"`
}

// Info describes an active group.
type Info struct {
	GID      pfq.GroupID    `json:"gid"`
	Policy   pfq.Policy     `json:"policy"`
	Owner    pfq.TaskID     `json:"owner,omitempty"`
	Sockets  pfq.SocketMask `json:"sockets"`
	Classes  []ClassMembers `json:"classes,omitempty"`
	Steering string         `json:"steering,omitempty"`
	Stats    Stats          `json:"stats"`
}

// Snapshot describes every active group in gid order.
func (m *Manager) Snapshot() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Info
	for gid := range m.groups {
		g := &m.groups[gid]
		if !g.state.active() {
			continue
		}
		info := Info{
			GID:     pfq.GroupID(gid),
			Policy:  g.state.policy(),
			Owner:   g.state.task,
			Sockets: g.allMask(),
			Stats:   g.counters.Load(),
		}
		for class := range g.masks {
			if sm := g.masks[class].Load(); sm != 0 {
				info.Classes = append(info.Classes, ClassMembers{Class: class, Sockets: pfq.SocketMask(sm)})
			}
		}
		if s := g.steering.Load(); s != nil {
			info.Steering = s.Name
		}
		out = append(out, info)
	}
	return out
}

// Describe returns the description of gid if it is active.
func (m *Manager) Describe(gid pfq.GroupID) (Info, bool) {
	if !gid.Valid() {
		return Info{}, false
	}
	for _, info := range m.Snapshot() {
		if info.GID == gid {
			return info, true
		}
	}
	return Info{}, false
}
