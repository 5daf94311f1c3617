// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package pool

import (
	"sync"

	"vkgraph/driver"
)

// aliasEntry tracks one resource shared by alias lookups under the
// same descriptor, along with how many outstanding Leases refer to it.
type aliasEntry[T driver.Destroyer] struct {
	lease *Lease[T]
	refs  int
}

// aliasGroup hands out the same underlying Lease to every caller that
// asks for an equal key while at least one other caller still holds
// it, only returning it to the wrapped pool once the last alias
// closes. Grounded on the source pool's alias.rs, which keeps a
// Vec<(Info, Weak<Lease<T>>)> per resource kind and upgrades the weak
// pointer on a matching request; Go has no stable analogue to
// Arc/Weak, so this tracks liveness with an explicit refcount instead.
type aliasGroup[I comparable, T driver.Destroyer] struct {
	mu      sync.Mutex
	entries map[I]*aliasEntry[T]
}

func newAliasGroup[I comparable, T driver.Destroyer]() *aliasGroup[I, T] {
	return &aliasGroup[I, T]{entries: make(map[I]*aliasEntry[T])}
}

// lease returns a Lease sharing the entry for key, calling acquire to
// obtain one from the wrapped pool if no alias for key is currently
// outstanding.
func (g *aliasGroup[I, T]) lease(key I, acquire func() (*Lease[T], error)) (*Lease[T], error) {
	g.mu.Lock()
	if e, ok := g.entries[key]; ok {
		e.refs++
		res := e.lease.Get()
		g.mu.Unlock()
		return newLease(res, func(T) { g.release(key) }), nil
	}
	g.mu.Unlock()

	l, err := acquire()
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	if e, ok := g.entries[key]; ok {
		// Lost a race with a concurrent lease for the same key: share
		// its entry and give back the one we just acquired.
		e.refs++
		res := e.lease.Get()
		g.mu.Unlock()
		l.Close()
		return newLease(res, func(T) { g.release(key) }), nil
	}
	g.entries[key] = &aliasEntry[T]{lease: l, refs: 1}
	g.mu.Unlock()
	return newLease(l.Get(), func(T) { g.release(key) }), nil
}

func (g *aliasGroup[I, T]) release(key I) {
	g.mu.Lock()
	e, ok := g.entries[key]
	if !ok {
		g.mu.Unlock()
		return
	}
	e.refs--
	if e.refs > 0 {
		g.mu.Unlock()
		return
	}
	delete(g.entries, key)
	g.mu.Unlock()
	e.lease.Close()
}

func (g *aliasGroup[I, T]) close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for k, e := range g.entries {
		e.lease.Close()
		delete(g.entries, k)
	}
}

// AliasPool wraps another Pool and lets callers requesting an equal
// descriptor share one underlying resource instead of each getting a
// distinct lease from the wrapped pool. This is for the render graph's
// own use: two passes that never execute concurrently, accessing what
// is conceptually the same transient resource, can both bind it
// through this wrapper without the resolver having to reason about
// identity across call sites.
//
// A resource handed out through AliasPool is only returned to the
// wrapped pool once every alias of it has been closed.
type AliasPool struct {
	inner Pool

	buffers   *aliasGroup[driver.BufferInfo, driver.Buffer]
	images    *aliasGroup[driver.ImageInfo, driver.Image]
	accel     *aliasGroup[driver.AccelStructInfo, driver.AccelStruct]
	descPools *aliasGroup[driver.DescriptorPoolInfo, driver.DescriptorPool]
	cmdBufs   *aliasGroup[driver.CommandBufferInfo, driver.CommandBuffer]
	passes    *aliasGroup[string, driver.RenderPass]
}

// NewAliasPool wraps inner so that equal-descriptor lease requests
// share one resource for as long as any of them are outstanding.
func NewAliasPool(inner Pool) *AliasPool {
	return &AliasPool{
		inner:     inner,
		buffers:   newAliasGroup[driver.BufferInfo, driver.Buffer](),
		images:    newAliasGroup[driver.ImageInfo, driver.Image](),
		accel:     newAliasGroup[driver.AccelStructInfo, driver.AccelStruct](),
		descPools: newAliasGroup[driver.DescriptorPoolInfo, driver.DescriptorPool](),
		cmdBufs:   newAliasGroup[driver.CommandBufferInfo, driver.CommandBuffer](),
		passes:    newAliasGroup[string, driver.RenderPass](),
	}
}

func (p *AliasPool) LeaseBuffer(info driver.BufferInfo) (*Lease[driver.Buffer], error) {
	return p.buffers.lease(info, func() (*Lease[driver.Buffer], error) { return p.inner.LeaseBuffer(info) })
}

func (p *AliasPool) LeaseImage(info driver.ImageInfo) (*Lease[driver.Image], error) {
	return p.images.lease(info, func() (*Lease[driver.Image], error) { return p.inner.LeaseImage(info) })
}

func (p *AliasPool) LeaseAccelStruct(info driver.AccelStructInfo) (*Lease[driver.AccelStruct], error) {
	return p.accel.lease(info, func() (*Lease[driver.AccelStruct], error) { return p.inner.LeaseAccelStruct(info) })
}

func (p *AliasPool) LeaseDescPool(info driver.DescriptorPoolInfo) (*Lease[driver.DescriptorPool], error) {
	return p.descPools.lease(info, func() (*Lease[driver.DescriptorPool], error) { return p.inner.LeaseDescPool(info) })
}

func (p *AliasPool) LeaseCommandBuffer(info driver.CommandBufferInfo) (*Lease[driver.CommandBuffer], error) {
	return p.cmdBufs.lease(info, func() (*Lease[driver.CommandBuffer], error) { return p.inner.LeaseCommandBuffer(info) })
}

func (p *AliasPool) LeaseRenderPass(info driver.RenderPassInfo) (*Lease[driver.RenderPass], error) {
	key := info.Key()
	return p.passes.lease(key, func() (*Lease[driver.RenderPass], error) { return p.inner.LeaseRenderPass(info) })
}

// Close closes every outstanding alias and then the wrapped pool.
func (p *AliasPool) Close() {
	p.buffers.close()
	p.images.close()
	p.accel.close()
	p.descPools.close()
	p.cmdBufs.close()
	p.passes.close()
	p.inner.Close()
}
