// Package lock provides the per-entity mutual exclusion used by the workflows.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/garyjia/procurement-engine/internal/application/port"
	"github.com/garyjia/procurement-engine/internal/domain/entity"
)

// MemoryLocker serializes operations on the same key inside one process.
// Each key owns a one-slot channel; holding the slot means holding the lock.
// A key is forgotten once nobody holds or waits for it.
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[string]*memorySlot
}

type memorySlot struct {
	ch   chan struct{}
	refs int
}

// NewMemoryLocker creates a new in-process locker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{slots: make(map[string]*memorySlot)}
}

// Lock waits for the key until ctx ends
func (l *MemoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	slot := l.acquire(key)

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key)
		return nil, fmt.Errorf("%w: %s", entity.ErrEntityBusy, key)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			l.release(key)
		})
	}, nil
}

func (l *MemoryLocker) acquire(key string) *memorySlot {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.slots[key]
	if !ok {
		slot = &memorySlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	return slot
}

func (l *MemoryLocker) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.slots[key]
	if !ok {
		return
	}
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
}

// keys reports how many keys are currently tracked
func (l *MemoryLocker) keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

var _ port.EntityLocker = (*MemoryLocker)(nil)

// Bounded caps how long Lock waits for a busy key
type Bounded struct {
	inner port.EntityLocker
	wait  time.Duration
}

// NewBounded wraps a locker so waits end after wait
func NewBounded(inner port.EntityLocker, wait time.Duration) *Bounded {
	return &Bounded{inner: inner, wait: wait}
}

// Lock waits at most the configured duration
func (b *Bounded) Lock(ctx context.Context, key string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, b.wait)
	defer cancel()
	return b.inner.Lock(ctx, key)
}

var _ port.EntityLocker = (*Bounded)(nil)
