// Package lock provides file-system locks for serializing access to local
// shared resources (tmux windows, per-issue processing). Locks are plain
// files containing the holder PID; a lock whose file is older than the
// staleness threshold is treated as abandoned and taken over.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// ErrTimeout is returned when a lock cannot be acquired within the budget.
var ErrTimeout = errors.New("lock acquisition timed out")

// Default policy values.
const (
	DefaultTimeout    = 5 * time.Second
	DefaultStaleAfter = 300 * time.Second

	pollInterval = 100 * time.Millisecond
)

// FileLock is a held file-system lock.
type FileLock struct {
	path string
}

// Options configures lock acquisition.
type Options struct {
	// Timeout bounds the total wait; zero means DefaultTimeout.
	Timeout time.Duration
	// StaleAfter is the age past which an existing lock file is treated
	// as abandoned; zero means DefaultStaleAfter.
	StaleAfter time.Duration
}

// Acquire takes the lock named key in dir, waiting up to the configured
// timeout. The key is sanitized into a file name, so any string (session
// names, "owner/repo#42") is acceptable.
func Acquire(dir, key string, opts Options) (*FileLock, error) {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.StaleAfter == 0 {
		opts.StaleAfter = DefaultStaleAfter
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	path := filepath.Join(dir, sanitize(key)+".lock")
	deadline := time.Now().Add(opts.Timeout)

	for {
		ok, err := tryAcquire(path, opts.StaleAfter)
		if err != nil {
			return nil, err
		}
		if ok {
			return &FileLock{path: path}, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, key)
		}
		time.Sleep(pollInterval)
	}
}

// tryAcquire attempts a single O_EXCL create, reclaiming stale locks.
func tryAcquire(path string, staleAfter time.Duration) (bool, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(f, "%d", os.Getpid())
		_ = f.Close()
		return true, nil
	}
	if !os.IsExist(err) {
		return false, fmt.Errorf("failed to create lock file: %w", err)
	}

	// Lock exists. Reclaim it if the holder is gone or the file is stale.
	if isAbandoned(path, staleAfter) {
		_ = os.Remove(path)
	}
	return false, nil
}

// isAbandoned reports whether an existing lock file can be taken over:
// either its holder PID is no longer alive, or the file exceeds staleAfter.
func isAbandoned(path string, staleAfter time.Duration) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false // vanished; next create attempt will settle it
	}
	if time.Since(info.ModTime()) > staleAfter {
		return true
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return true // unreadable holder
	}
	// Signal 0 probes process existence without delivering anything.
	if err := syscall.Kill(pid, 0); err != nil {
		return !errors.Is(err, syscall.EPERM)
	}
	return false
}

// Release removes the lock file. Safe to call more than once.
func (l *FileLock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}
	err := os.Remove(l.path)
	l.path = ""
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// WithLock runs fn while holding the named lock, releasing on all exit paths.
func WithLock(dir, key string, opts Options, fn func() error) error {
	l, err := Acquire(dir, key, opts)
	if err != nil {
		return err
	}
	defer func() { _ = l.Release() }()
	return fn()
}

// sanitize maps a lock key to a safe file name.
func sanitize(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '.':
			return r
		default:
			return '_'
		}
	}, key)
}
