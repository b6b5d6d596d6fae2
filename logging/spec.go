package logging

import (
	"fmt"
	"sort"
	"strings"
)

// Spec is a parsed log spec: a base level plus per-component overrides.
//
//	"warn"                       base level only
//	"info,factory=debug"         factory at debug, everything else info
//	"warn,group=trace,server=info"
type Spec struct {
	Base       Level
	Components map[string]Level
}

// ParseSpec parses "<level>[,<component>=<level>]...". The base level,
// if present, must come first. The empty string means info.
func ParseSpec(s string) (Spec, error) {
	spec := Spec{Base: LevelInfo, Components: map[string]Level{}}

	for i, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		component, value, isOverride := strings.Cut(part, "=")
		if !isOverride {
			if i != 0 {
				return spec, fmt.Errorf("base level %q must be first in spec", part)
			}
			level, err := ParseLevel(part)
			if err != nil {
				return spec, err
			}
			spec.Base = level
			continue
		}

		component = strings.TrimSpace(component)
		if component == "" {
			return spec, fmt.Errorf("empty component name in %q", part)
		}
		level, err := ParseLevel(value)
		if err != nil {
			return spec, fmt.Errorf("invalid level for component %q: %w", component, err)
		}
		spec.Components[component] = level
	}

	return spec, nil
}

// LevelFor returns the level in force for component.
func (s *Spec) LevelFor(component string) Level {
	if l, ok := s.Components[component]; ok {
		return l
	}
	return s.Base
}

// String renders the spec so that ParseSpec(s.String()) round-trips.
// Components are sorted by name.
func (s *Spec) String() string {
	names := make([]string, 0, len(s.Components))
	for name := range s.Components {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := []string{s.Base.String()}
	for _, name := range names {
		parts = append(parts, name+"="+s.Components[name].String())
	}
	return strings.Join(parts, ",")
}
