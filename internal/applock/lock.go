// Package applock enforces single-instance execution so two daemons never
// share one workspace namespace.
package applock

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrAlreadyLocked is returned when another instance holds the lock.
var ErrAlreadyLocked = errors.New("another remuxd instance is already running")

// Lock is a file-based single-instance lock.
type Lock struct {
	path  string
	flock *flock.Flock
}

// New creates a lock at path. The lock is not held until Acquire.
func New(path string) *Lock {
	return &Lock{
		path:  path,
		flock: flock.New(path),
	}
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Acquire takes the lock without blocking.
func (l *Lock) Acquire() error {
	ok, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", l.path, err)
	}
	if !ok {
		return ErrAlreadyLocked
	}
	return nil
}

// Release gives the lock up.
func (l *Lock) Release() error {
	return l.flock.Unlock()
}
