package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvVar names the environment variable holding a log spec.
const EnvVar = "PFQ_LOG"

// Format is the log output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat accepts "text" (or empty) and "json".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown log format: %q", s)
	}
}

// Options selects the spec and output of a logger. When several specs
// are set, CLISpec wins over EnvSpec, which wins over ConfigSpec.
type Options struct {
	CLISpec    string
	EnvSpec    string
	ConfigSpec string
	Format     Format
	// Output defaults to os.Stderr.
	Output io.Writer
}

func (o Options) spec() string {
	for _, s := range []string{o.CLISpec, o.EnvSpec, o.ConfigSpec} {
		if s != "" {
			return s
		}
	}
	return ""
}

// New builds a logger with per-component filtering.
func New(opts Options) (*slog.Logger, error) {
	spec, err := ParseSpec(opts.spec())
	if err != nil {
		return nil, fmt.Errorf("invalid log spec: %w", err)
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	// The inner handler accepts everything; filtering is done by the
	// component handler.
	ho := &slog.HandlerOptions{Level: LevelTrace.Slog()}
	var inner slog.Handler
	if opts.Format == FormatJSON {
		inner = slog.NewJSONHandler(out, ho)
	} else {
		inner = slog.NewTextHandler(out, ho)
	}

	return slog.New(NewComponentHandler(inner, &spec)), nil
}

// FromEnv builds a text logger from $PFQ_LOG.
func FromEnv() (*slog.Logger, error) {
	return New(Options{EnvSpec: os.Getenv(EnvVar)})
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: LevelError.Slog() + 1}))
}
