// Package group manages the fixed set of socket groups.
//
// A group is unused until the first socket joins it. The join that
// brings it into use resets its masks, steering and counters; the leave
// that empties it removes the group from the device map and returns the
// slot to unused. Each socket occupies one bit in the per-class masks of
// every group it joined.
//
// # Locking
//
// One mutex serialises every control operation across all groups. The
// packet path never takes it: class masks, the steering slot and the
// counters are atomic and are read with single loads. Mask updates are
// a load followed by a store under the mutex, so readers see either the
// old or the new mask, never a torn value.
//
// The group mutex and the function factory mutex are never held
// together. Dismiss runs under the factory mutex and therefore touches
// only the atomic steering slots.
package group

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/frobware/go-pfq"
)

// Resolver looks up packet functions by name. *factory.Factory
// satisfies it.
type Resolver interface {
	Lookup(name string) (pfq.Func, bool)
}

// Steer is the steering function installed on a group.
type Steer struct {
	Name string
	Func pfq.Func
}

type group struct {
	state    state
	masks    [pfq.MaxClass]atomic.Uint64
	steering atomic.Pointer[Steer]
	counters Counters
}

// allMask returns the union of every class mask.
func (g *group) allMask() pfq.SocketMask {
	var m uint64
	for i := range g.masks {
		m |= g.masks[i].Load()
	}
	return pfq.SocketMask(m)
}

// Manager owns the group table.
type Manager struct {
	mu       sync.Mutex
	groups   [pfq.MaxGroup]group
	devmap   pfq.DevMap
	resolver Resolver
	logger   *slog.Logger
}

// New returns a Manager with every group unused. devmap is reset for a
// group when the group is destroyed and may be nil. resolver serves
// SetSteering and may be nil if steering is never set by name.
func New(devmap pfq.DevMap, resolver Resolver, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		devmap:   devmap,
		resolver: resolver,
		logger:   logger.With("component", "group"),
	}
}

func checkGroup(gid pfq.GroupID) error {
	if !gid.Valid() {
		return pfq.ErrInvalidGroup{GID: gid}
	}
	return nil
}

func checkSocket(id pfq.SocketID) error {
	if !id.Valid() {
		return pfq.ErrInvalidSocket{ID: id}
	}
	return nil
}

// joinable reports whether task may join g with policy. Caller holds mu.
func (g *group) joinable(policy pfq.Policy, task pfq.TaskID) bool {
	switch g.state.kind {
	case unused:
		return true
	case restricted:
		return g.state.task == task
	default:
		if policy == pfq.PolicyRestricted {
			return g.allMask() == 0
		}
		return true
	}
}

// checkClasses rejects a class mask that selects no class. Such a join
// would leave an active group with every mask empty.
func checkClasses(classMask pfq.ClassMask) error {
	if classMask&pfq.ClassAny == 0 {
		return fmt.Errorf("class mask %s selects no class: %w", classMask, pfq.ErrInvalid)
	}
	return nil
}

// construct brings an unused group into use as an empty shared group.
func (g *group) construct() {
	g.state = state{kind: shared}
	for i := range g.masks {
		g.masks[i].Store(0)
	}
	g.steering.Store(nil)
	g.counters.reset()
}

// IsJoinable reports whether task could join gid with policy right now.
func (m *Manager) IsJoinable(gid pfq.GroupID, policy pfq.Policy, task pfq.TaskID) bool {
	if !gid.Valid() {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.groups[gid].joinable(policy, task)
}

// Join adds socket id to every class in classMask of group gid on
// behalf of task. An unused group is constructed first. A restricted
// policy makes task the owner; any other policy leaves the group shared.
func (m *Manager) Join(gid pfq.GroupID, id pfq.SocketID, classMask pfq.ClassMask, policy pfq.Policy, task pfq.TaskID) error {
	if err := checkGroup(gid); err != nil {
		return err
	}
	if err := checkSocket(id); err != nil {
		return err
	}
	if err := checkClasses(classMask); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.join(gid, id, classMask, policy, task)
}

func (m *Manager) join(gid pfq.GroupID, id pfq.SocketID, classMask pfq.ClassMask, policy pfq.Policy, task pfq.TaskID) error {
	g := &m.groups[gid]
	if !g.state.active() {
		g.construct()
	}
	if !g.joinable(policy, task) {
		m.logger.Info("group not joinable", "gid", gid, "policy", policy, "task", task, "state", g.state)
		return pfq.ErrGroupRejected{GID: gid, Policy: policy, Task: task}
	}
	for _, class := range classMask.Classes() {
		w := &g.masks[class]
		w.Store(w.Load() | uint64(id.Bit()))
	}
	g.state = ownerFor(policy, task)
	m.logger.Debug("group joined", "gid", gid, "socket", id, "classes", classMask, "state", g.state)
	return nil
}

// JoinFree joins the lowest-numbered unused group and returns its id.
func (m *Manager) JoinFree(id pfq.SocketID, classMask pfq.ClassMask, policy pfq.Policy, task pfq.TaskID) (pfq.GroupID, error) {
	if err := checkSocket(id); err != nil {
		return -1, err
	}
	if err := checkClasses(classMask); err != nil {
		return -1, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for gid := range pfq.GroupID(pfq.MaxGroup) {
		if m.groups[gid].state.active() {
			continue
		}
		if err := m.join(gid, id, classMask, policy, task); err != nil {
			return -1, err
		}
		return gid, nil
	}
	return -1, pfq.ErrNoFreeGroup{}
}

// Leave removes socket id from every class of group gid. The group is
// destroyed when no socket remains.
func (m *Manager) Leave(gid pfq.GroupID, id pfq.SocketID) error {
	if err := checkGroup(gid); err != nil {
		return err
	}
	if err := checkSocket(id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leave(gid, id)
}

func (m *Manager) leave(gid pfq.GroupID, id pfq.SocketID) error {
	g := &m.groups[gid]
	if !g.state.active() {
		return pfq.ErrGroupNotFound{GID: gid}
	}
	for i := range g.masks {
		w := &g.masks[i]
		w.Store(w.Load() &^ uint64(id.Bit()))
	}
	if g.allMask() == 0 {
		m.destroy(gid)
	}
	return nil
}

func (m *Manager) destroy(gid pfq.GroupID) {
	g := &m.groups[gid]
	if m.devmap != nil {
		if err := m.devmap.Update(pfq.MapReset, pfq.AnyDevice, pfq.AnyQueue, gid); err != nil {
			m.logger.Error("devmap reset failed", "gid", gid, "error", err)
		}
	}
	g.steering.Store(nil)
	g.state = state{kind: unused}
	m.logger.Debug("group destroyed", "gid", gid)
}

// LeaveAll removes socket id from every group it belongs to. Groups
// that are unused or do not hold the socket are skipped silently.
func (m *Manager) LeaveAll(id pfq.SocketID) {
	if !id.Valid() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for gid := range pfq.GroupID(pfq.MaxGroup) {
		_ = m.leave(gid, id)
	}
}

// AllGroupsMask returns the union of every class mask of gid.
func (m *Manager) AllGroupsMask(gid pfq.GroupID) pfq.SocketMask {
	if !gid.Valid() {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.groups[gid].allMask()
}

// Groups returns the set of groups whose masks contain socket id.
func (m *Manager) Groups(id pfq.SocketID) pfq.GroupMask {
	if !id.Valid() {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out pfq.GroupMask
	for gid := range m.groups {
		if m.groups[gid].allMask().Has(id) {
			out |= 1 << uint(gid)
		}
	}
	return out
}

// SetSteering installs the function registered as name as the steering
// function of the active group gid. An empty name removes it.
func (m *Manager) SetSteering(gid pfq.GroupID, name string) error {
	if err := checkGroup(gid); err != nil {
		return err
	}
	var s *Steer
	if name != "" {
		if m.resolver == nil {
			return fmt.Errorf("set steering %q: no resolver: %w", name, pfq.ErrInvalid)
		}
		// Resolve before taking mu; the factory lock is never taken
		// while mu is held.
		fn, ok := m.resolver.Lookup(name)
		if !ok {
			return pfq.ErrFunctionNotFound{Name: name}
		}
		s = &Steer{Name: name, Func: fn}
	}

	m.mu.Lock()
	g := &m.groups[gid]
	if !g.state.active() {
		m.mu.Unlock()
		return pfq.ErrGroupNotFound{GID: gid}
	}
	g.steering.Store(s)
	m.mu.Unlock()

	if s == nil {
		m.logger.Debug("steering cleared", "gid", gid)
		return nil
	}
	// An Unregister that ran between the lookup and the store has
	// already dismissed its function; drop what was just installed,
	// including when the name was registered again with another body.
	if cur, ok := m.resolver.Lookup(name); !ok || !sameFunc(cur, s.Func) {
		g.steering.CompareAndSwap(s, nil)
		return pfq.ErrFunctionNotFound{Name: name}
	}
	m.logger.Debug("steering set", "gid", gid, "function", name)
	return nil
}

// Dismiss detaches the function name from every group that steers with
// it. It is the factory's dismiss hook and does not take the group lock.
func (m *Manager) Dismiss(name string, _ pfq.Func) {
	for gid := range m.groups {
		slot := &m.groups[gid].steering
		if s := slot.Load(); s != nil && s.Name == name {
			if slot.CompareAndSwap(s, nil) {
				m.logger.Debug("steering dismissed", "gid", gid, "function", name)
			}
		}
	}
}

// Steering returns the steering function of gid, or nil.
func (m *Manager) Steering(gid pfq.GroupID) *Steer {
	if !gid.Valid() {
		return nil
	}
	return m.groups[gid].steering.Load()
}

// ClassMask returns the sockets in one class of gid without locking.
func (m *Manager) ClassMask(gid pfq.GroupID, class int) pfq.SocketMask {
	if !gid.Valid() || class < 0 || class >= pfq.MaxClass {
		return 0
	}
	return pfq.SocketMask(m.groups[gid].masks[class].Load())
}

// Counters returns the counters of gid for the packet path.
func (m *Manager) Counters(gid pfq.GroupID) *Counters {
	if !gid.Valid() {
		return nil
	}
	return &m.groups[gid].counters
}

// Stats returns a copy of the counters of gid.
func (m *Manager) Stats(gid pfq.GroupID) Stats {
	if !gid.Valid() {
		return Stats{}
	}
	return m.groups[gid].counters.Load()
}

// Bind routes packets received on (dev, queue) to the active group gid.
// It runs under the group lock so a concurrent destroy cannot leave a
// stale entry behind.
func (m *Manager) Bind(gid pfq.GroupID, dev, queue int) error {
	return m.bind(pfq.MapSet, gid, dev, queue)
}

// Unbind removes gid from (dev, queue).
func (m *Manager) Unbind(gid pfq.GroupID, dev, queue int) error {
	return m.bind(pfq.MapReset, gid, dev, queue)
}

func (m *Manager) bind(op pfq.DevMapOp, gid pfq.GroupID, dev, queue int) error {
	if err := checkGroup(gid); err != nil {
		return err
	}
	if m.devmap == nil {
		return fmt.Errorf("group %d: no device map: %w", gid, pfq.ErrInvalid)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.groups[gid].state.active() {
		return pfq.ErrGroupNotFound{GID: gid}
	}
	if err := m.devmap.Update(op, dev, queue, gid); err != nil {
		return err
	}
	m.logger.Debug("device binding changed", "gid", gid, "device", dev, "queue", queue, "bind", op == pfq.MapSet)
	return nil
}

func sameFunc(a, b pfq.Func) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}
