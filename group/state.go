package group

import (
	"fmt"

	"github.com/frobware/go-pfq"
)

type stateKind uint8

const (
	unused stateKind = iota
	shared
	restricted
)

// state is the ownership of one group slot. A restricted group records
// the task that owns it; a shared group has no owner.
type state struct {
	kind stateKind
	task pfq.TaskID
}

func (s state) active() bool { return s.kind != unused }

func (s state) policy() pfq.Policy {
	switch s.kind {
	case restricted:
		return pfq.PolicyRestricted
	case shared:
		return pfq.PolicyShared
	}
	return pfq.PolicyUndefined
}

func (s state) String() string {
	switch s.kind {
	case unused:
		return "unused"
	case shared:
		return "shared"
	case restricted:
		return fmt.Sprintf("restricted(%d)", s.task)
	}
	return fmt.Sprintf("state(%d)", s.kind)
}

// ownerFor is the state a successful join leaves behind.
func ownerFor(policy pfq.Policy, task pfq.TaskID) state {
	if policy == pfq.PolicyRestricted {
		return state{kind: restricted, task: task}
	}
	return state{kind: shared}
}
