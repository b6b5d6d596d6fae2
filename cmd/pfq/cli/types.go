package cli

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/frobware/go-pfq"
)

// Index is a device or queue index where "any" selects all of them.
type Index int

// Any is the wildcard Index.
const Any Index = -1

// ParseIndex parses a non-negative index or "any".
func ParseIndex(s string) (Index, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("index cannot be empty")
	}
	if strings.EqualFold(s, "any") {
		return Any, nil
	}
	v, err := strconv.ParseUint(s, 0, 31)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q: expected a non-negative integer or \"any\"", s)
	}
	return Index(v), nil
}

func (i Index) String() string {
	if i == Any {
		return "any"
	}
	return strconv.Itoa(int(i))
}

// ParseFrame decodes a frame given in hex. Colons, dashes and
// whitespace between bytes are ignored, as is a leading 0x.
func ParseFrame(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ':', '-', ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return nil, fmt.Errorf("frame cannot be empty")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid frame hex: %w", err)
	}
	return b, nil
}

// formatSockets renders a socket mask as "0x6 [1 2]".
func formatSockets(m pfq.SocketMask) string {
	return fmt.Sprintf("%#x %v", uint64(m), m.Sockets())
}

// formatGroups renders a group mask as "0x3 [0 1]".
func formatGroups(m pfq.GroupMask) string {
	return fmt.Sprintf("%#x %v", uint64(m), m.Groups())
}
