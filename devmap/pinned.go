package devmap

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/cilium/ebpf"

	"github.com/frobware/go-pfq"
)

// Key is the pinned map key. It must match the layout used by the
// XDP/TC programs that read the map.
type Key struct {
	Ifindex uint32
	Queue   uint32
}

// MapName is the kernel name of the pinned map.
const MapName = "pfq_devmap"

// Spec describes the pinned map: a hash of Key to a uint64 group mask.
func Spec() *ebpf.MapSpec {
	return &ebpf.MapSpec{
		Name:       MapName,
		Type:       ebpf.Hash,
		KeySize:    8,
		ValueSize:  8,
		MaxEntries: MaxDevice * MaxQueue,
	}
}

// Pinned is a matrix held in a pinned eBPF map so that programs
// running in the kernel see the same routing as the packet engine.
// Writers are serialised by a mutex; kernel readers are not.
type Pinned struct {
	mu  sync.Mutex
	m   *ebpf.Map
	pin string
}

// OpenPinned opens the map pinned at path, creating and pinning it
// first if it does not exist.
func OpenPinned(path string) (*Pinned, error) {
	m, err := ebpf.LoadPinnedMap(path, nil)
	switch {
	case err == nil:
		if err := Spec().Compatible(m); err != nil {
			m.Close()
			return nil, fmt.Errorf("pinned map %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		m, err = ebpf.NewMap(Spec())
		if err != nil {
			return nil, fmt.Errorf("create devmap: %w", err)
		}
		if err := m.Pin(path); err != nil {
			m.Close()
			return nil, fmt.Errorf("pin devmap at %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("load pinned devmap %s: %w", path, err)
	}
	return &Pinned{m: m, pin: path}, nil
}

// Update implements pfq.DevMap. Wildcard resets only visit existing
// entries; wildcard sets populate the whole selected range.
func (p *Pinned) Update(op pfq.DevMapOp, dev, queue int, gid pfq.GroupID) error {
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

	p.mu.Lock()
	defer p.mu.Unlock()

	var keys []Key
	if op == pfq.MapReset {
		var k Key
		var v uint64
		it := p.m.Iterate()
		for it.Next(&k, &v) {
			if int(k.Ifindex) >= d0 && int(k.Ifindex) < d1 && int(k.Queue) >= q0 && int(k.Queue) < q1 && v&bit != 0 {
				keys = append(keys, k)
			}
		}
		if err := it.Err(); err != nil {
			return fmt.Errorf("iterate devmap: %w", err)
		}
	} else {
		for d := d0; d < d1; d++ {
			for q := q0; q < q1; q++ {
				keys = append(keys, Key{Ifindex: uint32(d), Queue: uint32(q)})
			}
		}
	}

	for _, k := range keys {
		if err := p.apply(op, k, bit); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pinned) apply(op pfq.DevMapOp, k Key, bit uint64) error {
	var v uint64
	if err := p.m.Lookup(&k, &v); err != nil && !errors.Is(err, ebpf.ErrKeyNotExist) {
		return fmt.Errorf("lookup devmap %+v: %w", k, err)
	}
	if op == pfq.MapSet {
		v |= bit
	} else {
		v &^= bit
	}
	if v == 0 {
		if err := p.m.Delete(&k); err != nil && !errors.Is(err, ebpf.ErrKeyNotExist) {
			return fmt.Errorf("delete devmap %+v: %w", k, err)
		}
		return nil
	}
	if err := p.m.Put(&k, &v); err != nil {
		return fmt.Errorf("update devmap %+v: %w", k, err)
	}
	return nil
}

// Groups returns the groups bound to (dev, queue).
func (p *Pinned) Groups(dev, queue int) pfq.GroupMask {
	if dev < 0 || dev >= MaxDevice || queue < 0 || queue >= MaxQueue {
		return 0
	}
	k := Key{Ifindex: uint32(dev), Queue: uint32(queue)}
	var v uint64
	if err := p.m.Lookup(&k, &v); err != nil {
		return 0
	}
	return pfq.GroupMask(v)
}

// Path returns where the map is pinned.
func (p *Pinned) Path() string {
	return p.pin
}

// Close releases the map. The pin stays in place.
func (p *Pinned) Close() error {
	return p.m.Close()
}

// Remove unpins and closes the map.
func (p *Pinned) Remove() error {
	return errors.Join(p.m.Unpin(), p.m.Close())
}
