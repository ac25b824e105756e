// Package runlock enforces a single active batch run per data directory.
// Two runs pacing independently against the same provider would jointly
// exceed the request ceiling, so the batch command refuses to start while
// another holds the lock. Single-review calls are user-paced and skip it.
package runlock

import (
	"fmt"

	"github.com/gofrs/flock"

	"sentimark/internal/config"
)

// Lock is a non-blocking file lock under the data directory.
type Lock struct {
	path string
	lock *flock.Flock
}

// New builds the lock, creating the data directory if needed.
func New(cfg *config.Config) (*Lock, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	path := cfg.LockFile()
	return &Lock{path: path, lock: flock.New(path)}, nil
}

// Acquire takes the lock without blocking and fails when another process
// already holds it.
func (l *Lock) Acquire() error {
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire batch lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another batch run is already active (lock %s)", l.path)
	}
	return nil
}

// Release drops the lock.
func (l *Lock) Release() error {
	return l.lock.Unlock()
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}
