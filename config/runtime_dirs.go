package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// RuntimeDirs holds the runtime paths of the pfq daemon.
//
//	{base}/          - runtime root
//	{base}/db/       - statistics database
//	{base}/.lock     - single-instance lock
//	{base}-sock/     - control socket directory
//
// RuntimeDirs is immutable after construction. Use NewRuntimeDirs to create.
type RuntimeDirs struct {
	base string
	db   string
	sock string
	lock string
}

// DefaultRuntimeBase is the production runtime root.
const DefaultRuntimeBase = "/run/pfq"

// DefaultRuntimeDirs returns RuntimeDirs rooted at DefaultRuntimeBase.
func DefaultRuntimeDirs() RuntimeDirs {
	dirs, err := NewRuntimeDirs(DefaultRuntimeBase)
	if err != nil {
		panic(fmt.Sprintf("DefaultRuntimeDirs: %v", err))
	}
	return dirs
}

// NewRuntimeDirs derives every runtime path from base, which must be
// absolute.
func NewRuntimeDirs(base string) (RuntimeDirs, error) {
	if base == "" {
		return RuntimeDirs{}, fmt.Errorf("base path cannot be empty")
	}
	if !filepath.IsAbs(base) {
		return RuntimeDirs{}, fmt.Errorf("base path must be absolute, got %q", base)
	}
	base = filepath.Clean(base)
	return RuntimeDirs{
		base: base,
		db:   filepath.Join(base, "db"),
		sock: base + "-sock",
		lock: filepath.Join(base, ".lock"),
	}, nil
}

// Base returns the runtime root.
func (d RuntimeDirs) Base() string { return d.base }

// DB returns the database directory.
func (d RuntimeDirs) DB() string { return d.db }

// Sock returns the control socket directory.
func (d RuntimeDirs) Sock() string { return d.sock }

// Lock returns the instance lock file path.
func (d RuntimeDirs) Lock() string { return d.lock }

// SocketPath returns the control socket path.
func (d RuntimeDirs) SocketPath() string {
	return filepath.Join(d.sock, "pfq.sock")
}

// DBPath returns the statistics database path.
func (d RuntimeDirs) DBPath() string {
	return filepath.Join(d.db, "stats.db")
}

// EnsureDirectories creates the runtime root, database and socket
// directories. Call it at startup to fail fast on permission errors.
func (d RuntimeDirs) EnsureDirectories() error {
	for _, dir := range []string{d.base, d.db, d.sock} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
