// Package pfq holds the domain types shared by the function factory,
// the group manager and the packet engine.
//
// A socket joins one or more groups. Within a group it occupies a single
// bit position that is shared across every class mask it joined. Packets
// are demultiplexed to groups and then fanned out to member sockets
// according to the group's steering function.
package pfq

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

const (
	// MaxGroup is the number of group slots.
	MaxGroup = 64
	// MaxSocket is the number of socket ids a mask can represent.
	MaxSocket = 64
	// MaxClass is the number of classes per group.
	MaxClass = 16
)

// GroupID identifies a group slot in [0, MaxGroup).
type GroupID int

// Valid reports whether the id addresses a group slot.
func (g GroupID) Valid() bool {
	return g >= 0 && g < MaxGroup
}

// SocketID identifies a socket in [0, MaxSocket).
type SocketID int

// Valid reports whether the id fits in a socket mask.
func (s SocketID) Valid() bool {
	return s >= 0 && s < MaxSocket
}

// Bit returns the mask bit for the socket.
func (s SocketID) Bit() SocketMask {
	return SocketMask(1) << uint(s)
}

// TaskID is the identity of the process on whose behalf a control
// operation runs. Zero means "unknown".
type TaskID int

// SocketMask has one bit per socket id.
type SocketMask uint64

// Has reports whether the socket's bit is set.
func (m SocketMask) Has(id SocketID) bool {
	return id.Valid() && m&id.Bit() != 0
}

// Count returns the number of sockets in the mask.
func (m SocketMask) Count() int {
	return bits.OnesCount64(uint64(m))
}

// Sockets returns the socket ids in ascending order.
func (m SocketMask) Sockets() []SocketID {
	var ids []SocketID
	for w := uint64(m); w != 0; w &= w - 1 {
		ids = append(ids, SocketID(bits.TrailingZeros64(w)))
	}
	return ids
}

// GroupMask has one bit per group id.
type GroupMask uint64

// Has reports whether the group's bit is set.
func (m GroupMask) Has(gid GroupID) bool {
	return gid.Valid() && m&(GroupMask(1)<<uint(gid)) != 0
}

// Groups returns the group ids in ascending order.
func (m GroupMask) Groups() []GroupID {
	var ids []GroupID
	for w := uint64(m); w != 0; w &= w - 1 {
		ids = append(ids, GroupID(bits.TrailingZeros64(w)))
	}
	return ids
}

// ClassMask selects classes within a group. Only the low MaxClass bits
// are meaningful.
type ClassMask uint64

const (
	// ClassDefault is the class sockets join when none is given.
	ClassDefault ClassMask = 1 << 0
	// ClassAny selects every class.
	ClassAny ClassMask = 1<<MaxClass - 1
)

// Classes returns the class indexes set in the mask, ignoring bits
// beyond MaxClass.
func (m ClassMask) Classes() []int {
	var out []int
	for w := uint64(m & ClassAny); w != 0; w &= w - 1 {
		out = append(out, bits.TrailingZeros64(w))
	}
	return out
}

// String renders the mask in hex.
func (m ClassMask) String() string {
	return fmt.Sprintf("%#x", uint64(m))
}

// ParseClassMask accepts decimal, 0x-prefixed hex or 0b-prefixed binary.
func ParseClassMask(s string) (ClassMask, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid class mask %q: %w", s, err)
	}
	if v&^uint64(ClassAny) != 0 {
		return 0, fmt.Errorf("class mask %q exceeds %d classes", s, MaxClass)
	}
	return ClassMask(v), nil
}
