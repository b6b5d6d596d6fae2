package pfq

import (
	"errors"
	"fmt"
)

// Sentinel kinds matched with errors.Is against the typed errors below.
var (
	ErrNotFound  = errors.New("not found")
	ErrExists    = errors.New("already exists")
	ErrRejected  = errors.New("rejected")
	ErrExhausted = errors.New("exhausted")
	ErrInvalid   = errors.New("invalid argument")
)

// ErrFunctionExists is returned when registering a name that is already
// present in the function factory.
type ErrFunctionExists struct {
	Name string
}

func (e ErrFunctionExists) Error() string {
	return fmt.Sprintf("function %q already registered", e.Name)
}

func (e ErrFunctionExists) Is(target error) bool { return target == ErrExists }

// ErrFunctionNotFound is returned when unregistering a name the
// function factory does not hold.
type ErrFunctionNotFound struct {
	Name string
}

func (e ErrFunctionNotFound) Error() string {
	return fmt.Sprintf("function %q not registered", e.Name)
}

func (e ErrFunctionNotFound) Is(target error) bool { return target == ErrNotFound }

// ErrOutOfMemory is returned when the function factory has no room for
// another entry.
type ErrOutOfMemory struct {
	Name     string
	Capacity int
}

func (e ErrOutOfMemory) Error() string {
	return fmt.Sprintf("function %q: factory full (capacity %d)", e.Name, e.Capacity)
}

func (e ErrOutOfMemory) Is(target error) bool { return target == ErrExhausted }

// ErrGroupRejected is returned when a join violates the group's
// ownership policy.
type ErrGroupRejected struct {
	GID    GroupID
	Policy Policy
	Task   TaskID
}

func (e ErrGroupRejected) Error() string {
	return fmt.Sprintf("group %d is not joinable with policy %s by task %d", e.GID, e.Policy, e.Task)
}

func (e ErrGroupRejected) Is(target error) bool { return target == ErrRejected }

// ErrGroupNotFound is returned when leaving a group that is unused.
type ErrGroupNotFound struct {
	GID GroupID
}

func (e ErrGroupNotFound) Error() string {
	return fmt.Sprintf("group %d is not in use", e.GID)
}

func (e ErrGroupNotFound) Is(target error) bool { return target == ErrNotFound }

// ErrNoFreeGroup is returned when every group slot is in use.
type ErrNoFreeGroup struct{}

func (ErrNoFreeGroup) Error() string {
	return fmt.Sprintf("no free group among %d slots", MaxGroup)
}

func (ErrNoFreeGroup) Is(target error) bool { return target == ErrExhausted }

// ErrInvalidGroup is returned for a group id outside [0, MaxGroup).
type ErrInvalidGroup struct {
	GID GroupID
}

func (e ErrInvalidGroup) Error() string {
	return fmt.Sprintf("group id %d out of range [0, %d)", e.GID, MaxGroup)
}

func (e ErrInvalidGroup) Is(target error) bool { return target == ErrInvalid }

// ErrInvalidSocket is returned for a socket id that does not fit in a
// socket mask.
type ErrInvalidSocket struct {
	ID SocketID
}

func (e ErrInvalidSocket) Error() string {
	return fmt.Sprintf("socket id %d out of range [0, %d)", e.ID, MaxSocket)
}

func (e ErrInvalidSocket) Is(target error) bool { return target == ErrInvalid }
