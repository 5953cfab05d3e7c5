// Package lock provides a cross-process single-instance guard using
// flock(2). Two daemons sharing a runtime directory would race on the
// policy database and double-issue swap instructions; the guard makes
// the second instance wait or give up.
package lock

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"
)

// Guard holds the exclusive runtime-directory lock until closed.
type Guard struct {
	f *os.File
}

// Acquire opens the lock file and takes the exclusive lock. It polls
// with LOCK_EX|LOCK_NB under exponential backoff and respects ctx
// cancellation.
func Acquire(ctx context.Context, path string) (*Guard, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	backoff := 25 * time.Millisecond
	const maxBackoff = 500 * time.Millisecond

	for {
		err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			return &Guard{f: f}, nil
		}
		if err != syscall.EWOULDBLOCK {
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

// Close releases the lock.
func (g *Guard) Close() error {
	if g == nil || g.f == nil {
		return nil
	}
	return g.f.Close()
}

// FD returns the raw lock file descriptor, for diagnostics.
func (g *Guard) FD() int {
	return int(g.f.Fd())
}
