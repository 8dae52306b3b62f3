package domain

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// PoolUnlimited is the capacity of a pool that never blocks.
const PoolUnlimited = -1

// ResourcePool is a counting semaphore bounding access to a scarce resource
// shared by commands, such as heavy linker slots. Waiters are served in
// FIFO order; a waiter released by cancellation does not consume a slot.
type ResourcePool struct {
	name     string
	capacity int
	sem      *semaphore.Weighted
}

// NewResourcePool creates a pool with the given capacity. A capacity of
// PoolUnlimited (or any non-positive value) makes Acquire and Release
// no-ops.
func NewResourcePool(name string, capacity int) *ResourcePool {
	p := &ResourcePool{name: name, capacity: capacity}
	if capacity > 0 {
		p.sem = semaphore.NewWeighted(int64(capacity))
	}
	return p
}

// Name returns the pool's name.
func (p *ResourcePool) Name() string { return p.name }

// Capacity returns the configured capacity, PoolUnlimited when unbounded.
func (p *ResourcePool) Capacity() int {
	if p.sem == nil {
		return PoolUnlimited
	}
	return p.capacity
}

// Acquire blocks until a slot is available or ctx is done.
func (p *ResourcePool) Acquire(ctx context.Context) error {
	if p.sem == nil {
		return nil
	}
	return p.sem.Acquire(ctx, 1)
}

// TryAcquire takes a slot without blocking, reporting success.
func (p *ResourcePool) TryAcquire() bool {
	if p.sem == nil {
		return true
	}
	return p.sem.TryAcquire(1)
}

// Release returns a slot and wakes the longest waiter.
func (p *ResourcePool) Release() {
	if p.sem == nil {
		return
	}
	p.sem.Release(1)
}
