// Package devmap implements the demultiplexing matrix that routes a
// packet received on (device, queue) to the groups listening there.
//
// Entries are group masks. The packet path reads them without locking;
// Update uses atomic OR/AND so concurrent updates of different groups
// on the same entry do not lose bits.
package devmap

import (
	"fmt"
	"sync/atomic"

	"github.com/frobware/go-pfq"
)

const (
	// MaxDevice bounds the interface indexes the matrix holds.
	MaxDevice = 256
	// MaxQueue bounds the hardware queue indexes per device.
	MaxQueue = 64
)

// Matrix is a routing matrix the packet engine can read.
type Matrix interface {
	pfq.DevMap
	Groups(dev, queue int) pfq.GroupMask
}

// Table is an in-memory matrix. The zero value is empty and ready to use.
type Table struct {
	matrix [MaxDevice][MaxQueue]atomic.Uint64
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{}
}

// span returns the half-open range selected by v, where wildcard
// selects [0, limit).
func span(v, wildcard, limit int) (lo, hi int, ok bool) {
	if v == wildcard {
		return 0, limit, true
	}
	if v < 0 || v >= limit {
		return 0, 0, false
	}
	return v, v + 1, true
}

func checkUpdate(op pfq.DevMapOp, gid pfq.GroupID) error {
	if !gid.Valid() {
		return pfq.ErrInvalidGroup{GID: gid}
	}
	if op != pfq.MapSet && op != pfq.MapReset {
		return fmt.Errorf("devmap op %d: %w", op, pfq.ErrInvalid)
	}
	return nil
}

// Update adds (MapSet) or removes (MapReset) gid on the selected entries.
// dev and queue accept pfq.AnyDevice and pfq.AnyQueue.
func (t *Table) Update(op pfq.DevMapOp, dev, queue int, gid pfq.GroupID) error {
	if err := checkUpdate(op, gid); err != nil {
		return err
	}
	d0, d1, ok := span(dev, pfq.AnyDevice, MaxDevice)
	if !ok {
		return fmt.Errorf("device %d out of range [0, %d): %w", dev, MaxDevice, pfq.ErrInvalid)
	}
	q0, q1, ok := span(queue, pfq.AnyQueue, MaxQueue)
	if !ok {
		return fmt.Errorf("queue %d out of range [0, %d): %w", queue, MaxQueue, pfq.ErrInvalid)
	}

	bit := uint64(1) << uint(gid)
	for d := d0; d < d1; d++ {
		for q := q0; q < q1; q++ {
			if op == pfq.MapSet {
				t.matrix[d][q].Or(bit)
			} else {
				t.matrix[d][q].And(^bit)
			}
		}
	}
	return nil
}

// Groups returns the groups bound to (dev, queue). Out of range
// coordinates have no groups.
func (t *Table) Groups(dev, queue int) pfq.GroupMask {
	if dev < 0 || dev >= MaxDevice || queue < 0 || queue >= MaxQueue {
		return 0
	}
	return pfq.GroupMask(t.matrix[dev][queue].Load())
}

// Binding is one non-empty matrix entry.
type Binding struct {
	Device int           `json:"device"`
	Queue  int           `json:"queue"`
	Groups pfq.GroupMask `json:"groups"`
}

// Bindings lists the non-empty entries in device, queue order.
func (t *Table) Bindings() []Binding {
	var out []Binding
	for d := range MaxDevice {
		for q := range MaxQueue {
			if m := t.matrix[d][q].Load(); m != 0 {
				out = append(out, Binding{Device: d, Queue: q, Groups: pfq.GroupMask(m)})
			}
		}
	}
	return out
}
