// Package lock serializes the check-availability-then-mutate sequence around
// a booking slot. The scheduling service wraps its critical sections in a
// Locker so single-process and multi-process deployments share one code path.
package lock

import (
	"context"
	"errors"
	"sync"
)

var ErrLockNotAcquired = errors.New("slot lock not acquired")

// Locker guards a critical section keyed by a slot identifier.
type Locker interface {
	WithSlotLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// MutexLocker is a single coarse process-wide lock. It is the default for
// file-backed deployments, where one process owns the store.
type MutexLocker struct {
	mu sync.Mutex
}

func NewMutexLocker() *MutexLocker {
	return &MutexLocker{}
}

func (l *MutexLocker) WithSlotLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
