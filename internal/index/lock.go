package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	berrors "github.com/Aman-CERP/buscador/internal/errors"
)

// lockRetryDelay is how often a waiting build polls the lock file.
const lockRetryDelay = 100 * time.Millisecond

// BuildLock is an exclusive cross-process lock on an index location.
// The lock file lives next to the index at <index>.lock.
type BuildLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewBuildLock returns the lock guarding indexDir.
func NewBuildLock(indexDir string) *BuildLock {
	path := filepath.Clean(indexDir) + ".lock"
	return &BuildLock{path: path, flock: flock.New(path)}
}

// Acquire waits up to timeout for the lock. A non-positive timeout waits
// until ctx is done. Failure to acquire in time is ERR_207_INDEX_LOCKED.
func (l *BuildLock) Acquire(ctx context.Context, timeout time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return berrors.IOError("failed to create lock directory", err).
			WithDetail("path", l.path)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ok, err := l.flock.TryLockContext(ctx, lockRetryDelay)
	if ok {
		l.locked = true
		return nil
	}
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return berrors.IOError("failed to acquire build lock", err).WithDetail("path", l.path)
	}
	return berrors.New(berrors.ErrCodeIndexLocked,
		fmt.Sprintf("another build holds the index lock (waited %s)", timeout), err).
		WithDetail("path", l.path).
		WithSuggestion("Wait for the running build to finish and retry")
}

// Release drops the lock. Safe to call when not held.
func (l *BuildLock) Release() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *BuildLock) Path() string {
	return l.path
}
