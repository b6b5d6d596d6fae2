package group

import "sync/atomic"

// Stats is a point-in-time copy of a group's counters.
type Stats struct {
	Recv uint64 `json:"recv"`
	Lost uint64 `json:"lost"`
	Drop uint64 `json:"drop"`
}

// Counters are the per-group packet counters. They are updated on the
// packet path without the group lock.
type Counters struct {
	recv atomic.Uint64
	lost atomic.Uint64
	drop atomic.Uint64
}

func (c *Counters) IncRecv() { c.recv.Add(1) }
func (c *Counters) IncLost() { c.lost.Add(1) }
func (c *Counters) IncDrop() { c.drop.Add(1) }

// Load returns the current values.
func (c *Counters) Load() Stats {
	return Stats{Recv: c.recv.Load(), Lost: c.lost.Load(), Drop: c.drop.Load()}
}

func (c *Counters) reset() {
	c.recv.Store(0)
	c.lost.Store(0)
	c.drop.Store(0)
}
