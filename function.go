package pfq

import "strings"

// Action is the set of delivery decisions a function can return.
type Action uint8

const (
	ActionDrop     Action = 0x01
	ActionClone    Action = 0x02
	ActionDispatch Action = 0x04
	ActionSteal    Action = 0x08
	ActionContinue Action = 0x10
	ActionToKernel Action = 0x80
)

// String lists the set flags, e.g. "clone|to_kernel".
func (a Action) String() string {
	if a == 0 {
		return "none"
	}
	names := []struct {
		flag Action
		name string
	}{
		{ActionDrop, "drop"},
		{ActionClone, "clone"},
		{ActionDispatch, "dispatch"},
		{ActionSteal, "steal"},
		{ActionContinue, "continue"},
		{ActionToKernel, "to_kernel"},
	}
	var parts []string
	for _, n := range names {
		if a&n.flag != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// hashBits is the width of Result.Hash.
const hashBits = 24

// Result is what a packet function returns for one packet.
type Result struct {
	// Hash selects a socket within the target classes when Type has
	// ActionDispatch. Only the low 24 bits are used.
	Hash uint32
	// Type is the delivery decision.
	Type Action
	// Class selects the classes the decision applies to.
	Class ClassMask
}

// None ignores the packet for the current group.
func None() Result {
	return Result{Type: ActionDrop}
}

// Pass hands the packet to the next function in the pipeline.
func Pass() Result {
	return Result{Type: ActionContinue}
}

// Broadcast delivers a copy to every socket of the given classes.
func Broadcast(cl ClassMask) Result {
	return Result{Type: ActionClone, Class: cl}
}

// Steering delivers the packet to one socket of the given classes,
// chosen by hash.
func Steering(cl ClassMask, hash uint32) Result {
	return Result{
		Hash:  (hash ^ hash>>8) & (1<<hashBits - 1),
		Type:  ActionDispatch,
		Class: cl,
	}
}

// Stolen marks the packet as consumed by the function itself.
func Stolen() Result {
	return Result{Type: ActionSteal}
}

// ToKernel additionally passes the packet to the kernel stack. A stolen
// packet cannot be passed on and is returned unchanged.
func ToKernel(r Result) Result {
	if r.Type&ActionSteal != 0 {
		return r
	}
	r.Type |= ActionToKernel
	return r
}

// Func is a packet function. The second argument is the per-call
// context the pipeline was built with; it may be nil.
type Func func(pkt Packet, arg any) Result

// FunctionDescr names a Func for registration.
type FunctionDescr struct {
	Name string
	Func Func
}

// FunctionTable is an ordered list of functions registered together by
// one module.
type FunctionTable []FunctionDescr

// Names returns the names in table order.
func (t FunctionTable) Names() []string {
	names := make([]string, 0, len(t))
	for _, d := range t {
		names = append(names, d.Name)
	}
	return names
}
