// Package lock guards the allocation critical section. The duplicate check,
// capacity check and ticket numbering are a read-then-write sequence; two
// concurrent bookings for the same family and day would otherwise compute the
// same ticket number.
package lock

import (
	"context"
	"errors"
	"sync"
)

var ErrLockNotAcquired = errors.New("allocation lock not acquired")

// Locker serializes allocation per key. Keys are one per ticket family and
// day, so bookings for different days never contend.
type Locker interface {
	WithAllocationLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// ProcessLocker is the single-process implementation used with the in-memory
// store, and the fallback when no Redis is configured.
type ProcessLocker struct {
	mu   sync.Mutex
	keys map[string]*sync.Mutex
}

func NewProcessLocker() *ProcessLocker {
	return &ProcessLocker{keys: make(map[string]*sync.Mutex)}
}

func (l *ProcessLocker) WithAllocationLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	km, ok := l.keys[key]
	if !ok {
		km = &sync.Mutex{}
		l.keys[key] = km
	}
	l.mu.Unlock()

	km.Lock()
	defer km.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
