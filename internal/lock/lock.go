// Package lock serializes container launches within a project directory.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Dir is the lock directory under the project root.
const Dir = ".fspcompose/locks"

// ErrLocked indicates another process holds the lock.
var ErrLocked = errors.New("lock held by another process")

// Lock is an advisory flock on a file under the project root.
type Lock struct {
	name string
	path string
	file *os.File
}

// New creates a lock named name for the project at root.
func New(root, name string) *Lock {
	return &Lock{
		name: name,
		path: filepath.Join(root, filepath.FromSlash(Dir), name+".lock"),
	}
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Acquire takes the lock without blocking. If another process holds it the
// error wraps ErrLocked and names the holder's PID when known.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			if pid := holder(l.path); pid > 0 {
				return fmt.Errorf("%s: %w (pid %d)", l.name, ErrLocked, pid)
			}
			return fmt.Errorf("%s: %w", l.name, ErrLocked)
		}
		return fmt.Errorf("acquire lock: %w", err)
	}

	if err := f.Truncate(0); err == nil {
		fmt.Fprintf(f, "%d\n", os.Getpid())
	}

	l.file = f
	return nil
}

// Release drops the lock. The lock file stays in place so every process
// contends on the same inode. Releasing a lock that is not held is a no-op.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}
	defer func() { l.file = nil }()

	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		l.file.Close()
		return fmt.Errorf("release lock: %w", err)
	}
	return l.file.Close()
}

// WithLock runs fn while holding the named lock for root.
func WithLock(root, name string, fn func() error) error {
	l := New(root, name)
	if err := l.Acquire(); err != nil {
		return err
	}
	defer l.Release()

	return fn()
}

// holder reads the PID recorded in a lock file, or 0.
func holder(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
