// Package engine runs the receive path: it demultiplexes a packet to
// groups through the device map, applies each group's steering function
// and computes the sockets that receive a copy.
//
// Receive never takes the group lock. It reads the device map, class
// masks, steering slots and counters with atomic loads only.
package engine

import (
	"log/slog"
	"math/bits"
	"time"

	"github.com/frobware/go-pfq"
	"github.com/frobware/go-pfq/devmap"
	"github.com/frobware/go-pfq/group"
	"github.com/frobware/go-pfq/logging"
)

// Delivery is the outcome of a packet for one group.
type Delivery struct {
	GID      pfq.GroupID
	Sockets  pfq.SocketMask
	ToKernel bool
}

// Engine is the receive path for one device map and group table.
type Engine struct {
	devmap devmap.Matrix
	groups *group.Manager
	warn   *logging.RateLimited
}

// New returns an Engine. Warnings raised per packet are limited to one
// per second.
func New(dm devmap.Matrix, groups *group.Manager, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		devmap: dm,
		groups: groups,
		warn:   logging.NewRateLimited(logger.With("component", "engine"), time.Second, 1),
	}
}

// Receive processes one packet and returns a delivery for every group
// that takes it, in gid order.
func (e *Engine) Receive(pkt pfq.Packet) []Delivery {
	var out []Delivery
	for _, gid := range e.devmap.Groups(pkt.Ifindex(), pkt.Queue()).Groups() {
		if d, ok := e.deliver(gid, pkt); ok {
			out = append(out, d)
		}
	}
	return out
}

func (e *Engine) deliver(gid pfq.GroupID, pkt pfq.Packet) (Delivery, bool) {
	c := e.groups.Counters(gid)
	c.IncRecv()

	res := pfq.Broadcast(pfq.ClassDefault)
	if s := e.groups.Steering(gid); s != nil {
		res = s.Func(pkt, nil)
	}

	if res.Type&pfq.ActionSteal != 0 {
		if res.Type&pfq.ActionToKernel != 0 {
			e.warn.Warn("stolen packet cannot be passed to the kernel", "gid", gid)
		}
		return Delivery{}, false
	}

	d := Delivery{GID: gid, ToKernel: res.Type&pfq.ActionToKernel != 0}
	switch {
	case res.Type&pfq.ActionClone != 0:
		d.Sockets = e.members(gid, res.Class)
	case res.Type&pfq.ActionDispatch != 0:
		d.Sockets = pick(e.members(gid, res.Class), res.Hash)
	case res.Type&pfq.ActionDrop != 0:
		c.IncDrop()
		return d, d.ToKernel
	default:
		// A pipeline that never decided delivers to the default class.
		d.Sockets = e.members(gid, pfq.ClassDefault)
	}

	if d.Sockets == 0 {
		c.IncLost()
		e.warn.Warn("no socket for packet", "gid", gid, "classes", res.Class, "action", res.Type)
		return d, d.ToKernel
	}
	return d, true
}

func (e *Engine) members(gid pfq.GroupID, classes pfq.ClassMask) pfq.SocketMask {
	var m pfq.SocketMask
	for _, class := range classes.Classes() {
		m |= e.groups.ClassMask(gid, class)
	}
	return m
}

// pick selects one socket of m by hash.
func pick(m pfq.SocketMask, hash uint32) pfq.SocketMask {
	n := m.Count()
	if n == 0 {
		return 0
	}
	w := uint64(m)
	for i := int(hash % uint32(n)); i > 0; i-- {
		w &= w - 1
	}
	return pfq.SocketMask(1) << uint(bits.TrailingZeros64(w))
}
