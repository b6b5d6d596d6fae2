// Package lock provides the single-instance lock of the pfq daemon
// using flock(2).
//
// The group table and function factory live in one daemon process; a
// second daemon on the same runtime directory would bind a fresh
// control socket over the first one's. Run holds the lock for the
// lifetime of the daemon and hands the body a Scope, a capability that
// proves the lock is held. Scope cannot be implemented outside this
// package.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Scope represents the dynamic execution region in which the instance
// lock is held.
type Scope interface {
	// Path returns the lock file path.
	Path() string
	// FD returns the raw lock file descriptor (for logging/diagnostics).
	FD() int

	scopeMarker()
}

type scope struct {
	f *os.File
}

func (*scope) scopeMarker() {}

func (s *scope) Path() string { return s.f.Name() }

func (s *scope) FD() int { return int(s.f.Fd()) }

// Run acquires the instance lock, executes fn, then releases it.
// Uses LOCK_EX|LOCK_NB with exponential backoff, respects ctx cancellation.
func Run(ctx context.Context, lockPath string, fn func(context.Context, Scope) error) error {
	f, err := acquire(ctx, lockPath)
	if err != nil {
		return err
	}
	defer f.Close()

	return fn(ctx, &scope{f: f})
}

// TryRun is Run without waiting: it fails at once with ErrHeld if
// another process holds the lock.
func TryRun(ctx context.Context, lockPath string, fn func(context.Context, Scope) error) error {
	f, err := open(lockPath)
	if err != nil {
		return err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return ErrHeld
		}
		return fmt.Errorf("flock: %w", err)
	}
	defer f.Close()

	return fn(ctx, &scope{f: f})
}

// ErrHeld is returned by TryRun when the lock is taken.
var ErrHeld = errors.New("instance lock held by another process")

func open(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	return f, nil
}

func acquire(ctx context.Context, path string) (*os.File, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}

	backoff := 25 * time.Millisecond
	const maxBackoff = 500 * time.Millisecond

	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) {
			f.Close()
			return nil, fmt.Errorf("flock: %w", err)
		}

		select {
		case <-ctx.Done():
			f.Close()
			return nil, ctx.Err()
		case <-time.After(backoff):
		}

		if backoff < maxBackoff {
			backoff *= 2
		}
	}
}
