// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package pool implements the resource pool layer that sits beneath
// the render graph: it caches retired GPU resources and satisfies
// lease requests by reuse-or-create, under one of several caching
// policies (FIFO, lazy, hash, and an aliasing wrapper over any of the
// three).
package pool

import "vkgraph/driver"

// Lease wraps a resource borrowed from a Pool. Calling Close returns
// the resource to the pool it was leased from, unless that pool has
// itself been closed in the meantime, in which case the resource is
// destroyed instead. A Lease must be closed exactly once; closing more
// than once is a no-op.
type Lease[T driver.Destroyer] struct {
	res     T
	done    bool
	release func(T)
}

// newLease constructs a Lease around res. release, if non-nil, is
// called on Close instead of res.Destroy — pools use it to return res
// to their free list (or to destroy it anyway, if the pool has since
// been closed).
func newLease[T driver.Destroyer](res T, release func(T)) *Lease[T] {
	return &Lease[T]{res: res, release: release}
}

// Get returns the leased resource.
func (l *Lease[T]) Get() T { return l.res }

// Close returns the resource to its originating pool, or destroys it
// if that pool no longer exists.
func (l *Lease[T]) Close() {
	if l.done {
		return
	}
	l.done = true
	if l.release != nil {
		l.release(l.res)
		return
	}
	l.res.Destroy()
}

// Destroy implements driver.Destroyer by closing the lease, so a
// Lease can itself be handed to code that only knows about
// driver.Destroyer (e.g., stored alongside other resources awaiting
// fence signal).
func (l *Lease[T]) Destroy() { l.Close() }
