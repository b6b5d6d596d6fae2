package pfq

import (
	"fmt"
	"strings"
)

// Policy is the ownership mode requested when joining a group.
type Policy int

const (
	// PolicyUndefined behaves like PolicyShared.
	PolicyUndefined Policy = iota
	// PolicyRestricted asks for a group owned exclusively by the caller.
	PolicyRestricted
	// PolicyShared opens the group to any caller.
	PolicyShared
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case PolicyRestricted:
		return "restricted"
	case PolicyShared:
		return "shared"
	case PolicyUndefined:
		return "undefined"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy parses "restricted" or "shared" (case-insensitive).
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "restricted", "private":
		return PolicyRestricted, nil
	case "shared", "":
		return PolicyShared, nil
	default:
		return PolicyUndefined, fmt.Errorf("unknown group policy: %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(b []byte) error {
	if string(b) == "undefined" {
		*p = PolicyUndefined
		return nil
	}
	v, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
