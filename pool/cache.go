// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package pool

import (
	"sync"

	"golang.org/x/exp/slices"

	"vkgraph/driver"
)

// entry pairs a retired resource with the descriptor it was created
// from, so a later lease request can test compatibility against it.
type entry[I any, T driver.Destroyer] struct {
	info I
	res  T
}

// cache is a free list shared between a pool and every Lease it has
// handed out. alive tracks whether the owning pool still exists: once
// it is false (set by the pool's Close), leases returned afterward are
// destroyed instead of being appended back to items.
//
// The default pool implementations (FifoPool, LazyPool, HashPool) do
// not lock this structure themselves — they assume single-threaded
// ownership. AliasPool's table has its own mutex since it is
// documented as safely shared.
type cache[I any, T driver.Destroyer] struct {
	mu    sync.Mutex
	alive bool
	cap   int // 0 means unbounded
	items []entry[I, T]
}

func newCache[I any, T driver.Destroyer](cap int) *cache[I, T] {
	return &cache[I, T]{alive: true, cap: cap}
}

// take removes and returns the first entry for which compat reports
// true, scanning in insertion (FIFO) order. It also returns that
// entry's own descriptor, which may describe a resource strictly
// larger or otherwise more capable than what compat was asked to
// match — callers must release the resource under this descriptor,
// not the request's, or the free list will forget the resource's
// actual capability on the next release.
func (c *cache[I, T]) take(compat func(cached I) bool) (T, I, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := slices.IndexFunc(c.items, func(e entry[I, T]) bool { return compat(e.info) })
	if idx < 0 {
		var zeroT T
		var zeroI I
		return zeroT, zeroI, false
	}
	e := c.items[idx]
	c.items = slices.Delete(c.items, idx, idx+1)
	return e.res, e.info, true
}

// takeFront removes and returns the oldest entry unconditionally, used
// by resource kinds whose compatibility is already guaranteed by the
// caller having picked the right bucket key (render passes).
func (c *cache[I, T]) takeFront() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		var zero T
		return zero, false
	}
	e := c.items[0]
	c.items = c.items[1:]
	return e.res, true
}

// takeMatch removes and returns the first entry for which pred reports
// true, scanning in FIFO order. Used by command-buffer leasing, which
// must additionally check Fenced() on the resource itself rather than
// only on its descriptor, which take's compat signature does not
// expose.
func (c *cache[I, T]) takeMatch(pred func(info I, res T) bool) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range c.items {
		if pred(e.info, e.res) {
			c.items = slices.Delete(c.items, i, i+1)
			return e.res, true
		}
	}
	var zero T
	return zero, false
}

// release is the shared implementation behind every pool variant's
// Lease.Close callback: it appends the resource back to the free list
// unless the pool has been closed, evicting the oldest entry first if
// doing so would exceed the configured capacity.
func (c *cache[I, T]) release(info I, res T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.alive {
		res.Destroy()
		return
	}
	if c.cap > 0 && len(c.items) >= c.cap {
		oldest := c.items[0]
		c.items = c.items[1:]
		oldest.res.Destroy()
	}
	c.items = append(c.items, entry[I, T]{info, res})
}

// close marks the cache as belonging to a dropped pool and destroys
// every resource still held in its free list.
func (c *cache[I, T]) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alive = false
	for _, e := range c.items {
		e.res.Destroy()
	}
	c.items = nil
}
