package client

import (
	"io"
	"log/slog"

	"github.com/frobware/go-pfq/config"
)

// DefaultSocketPath returns the control socket of a daemon running on
// the default runtime directory.
func DefaultSocketPath() string {
	return config.DefaultRuntimeDirs().SocketPath()
}

// Option configures Dial.
type Option func(*dialOptions)

type dialOptions struct {
	logger *slog.Logger
}

// WithLogger sets the logger for client operations.
// If not specified, a no-op logger is used.
func WithLogger(l *slog.Logger) Option {
	return func(o *dialOptions) { o.logger = l }
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Dial connects to the daemon at address, which is either a socket
// path or a "unix://" URL:
//
//	c, err := client.Dial("/run/pfq-sock/pfq.sock")
//	c, err := client.Dial("unix:///run/pfq-sock/pfq.sock")
//
// No connection is made until the first call. The returned client must
// be closed when no longer needed.
func Dial(address string, opts ...Option) (Client, error) {
	o := &dialOptions{logger: discardLogger()}
	for _, opt := range opts {
		opt(o)
	}
	return newRemote(address, o.logger)
}
