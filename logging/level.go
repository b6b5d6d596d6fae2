// Package logging configures structured logging for pfq.
//
// Loggers are plain *slog.Logger values. Verbosity is controlled per
// component with a spec string such as "info,factory=debug": a base
// level followed by component overrides. Components are selected by the
// "component" attribute that each subsystem attaches with logger.With.
package logging

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level extends slog's levels with a trace level below debug.
type Level int

const (
	LevelTrace Level = Level(slog.LevelDebug) - 4
	LevelDebug Level = Level(slog.LevelDebug)
	LevelInfo  Level = Level(slog.LevelInfo)
	LevelWarn  Level = Level(slog.LevelWarn)
	LevelError Level = Level(slog.LevelError)
)

var levelNames = map[Level]string{
	LevelTrace: "trace",
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

// ParseLevel accepts trace, debug, info, warn (warning) and error (err),
// ignoring case and surrounding space.
func ParseLevel(s string) (Level, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "warning":
		return LevelWarn, nil
	case "err":
		return LevelError, nil
	default:
		for l, name := range levelNames {
			if name == v {
				return l, nil
			}
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level: %q", s)
}

// Slog returns the equivalent slog.Level.
func (l Level) Slog() slog.Level {
	return slog.Level(l)
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Level(%d)", int(l))
}
