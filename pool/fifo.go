// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package pool

import "vkgraph/driver"

// FifoPool is the default Pool implementation. Each resource kind that
// can be reused under a compatibility relation (each descriptor's own
// IsCompatibleWith method) is kept in a single free list and served in
// FIFO order: the oldest compatible entry is returned first, which
// spreads reuse evenly across the cached set instead of always handing
// back the same resource. Kinds that require an exact match
// (command buffers, render passes, which are keyed by queue family and
// by the render-pass descriptor respectively) are partitioned into one
// free list per key, since a mismatched entry in those lists is never
// usable.
//
// Grounded on the source pool's fifo.rs: one Vec-backed cache per
// buffer/image/acceleration-structure kind, linear-scanned for the
// first compatible entry, plus a HashMap of caches keyed by an exact
// descriptor for command pools and render passes.
type FifoPool struct {
	gpu driver.GPU

	buffers      *cache[driver.BufferInfo, driver.Buffer]
	images       *cache[driver.ImageInfo, driver.Image]
	accelStructs *cache[driver.AccelStructInfo, driver.AccelStruct]
	descPools    *cache[driver.DescriptorPoolInfo, driver.DescriptorPool]

	cmdBufs map[int]*cache[driver.CommandBufferInfo, driver.CommandBuffer]
	passes  map[string]*cache[driver.RenderPassInfo, driver.RenderPass]
}

// NewFifoPool returns a Pool that creates resources from gpu and caches
// retired ones under FIFO reuse, bounded by limits (a zero Limits field
// means unbounded).
func NewFifoPool(gpu driver.GPU, limits Limits) *FifoPool {
	return &FifoPool{
		gpu:          gpu,
		buffers:      newCache[driver.BufferInfo, driver.Buffer](limits.BufferCap),
		images:       newCache[driver.ImageInfo, driver.Image](limits.ImageCap),
		accelStructs: newCache[driver.AccelStructInfo, driver.AccelStruct](limits.AccelStructCap),
		descPools:    newCache[driver.DescriptorPoolInfo, driver.DescriptorPool](0),
		cmdBufs:      make(map[int]*cache[driver.CommandBufferInfo, driver.CommandBuffer]),
		passes:       make(map[string]*cache[driver.RenderPassInfo, driver.RenderPass]),
	}
}

func (p *FifoPool) LeaseBuffer(info driver.BufferInfo) (*Lease[driver.Buffer], error) {
	if res, cached, ok := p.buffers.take(func(cached driver.BufferInfo) bool { return cached.IsCompatibleWith(info) }); ok {
		return newLease(res, func(r driver.Buffer) { p.buffers.release(cached, r) }), nil
	}
	res, err := p.gpu.NewBuffer(info)
	if err != nil {
		return nil, err
	}
	return newLease(res, func(r driver.Buffer) { p.buffers.release(info, r) }), nil
}

func (p *FifoPool) LeaseImage(info driver.ImageInfo) (*Lease[driver.Image], error) {
	if res, cached, ok := p.images.take(func(cached driver.ImageInfo) bool { return cached.IsCompatibleWith(info) }); ok {
		return newLease(res, func(r driver.Image) { p.images.release(cached, r) }), nil
	}
	res, err := p.gpu.NewImage(info)
	if err != nil {
		return nil, err
	}
	return newLease(res, func(r driver.Image) { p.images.release(info, r) }), nil
}

func (p *FifoPool) LeaseAccelStruct(info driver.AccelStructInfo) (*Lease[driver.AccelStruct], error) {
	if res, cached, ok := p.accelStructs.take(func(cached driver.AccelStructInfo) bool { return cached.IsCompatibleWith(info) }); ok {
		return newLease(res, func(r driver.AccelStruct) { p.accelStructs.release(cached, r) }), nil
	}
	res, err := p.gpu.NewAccelStruct(info)
	if err != nil {
		return nil, err
	}
	return newLease(res, func(r driver.AccelStruct) { p.accelStructs.release(info, r) }), nil
}

func (p *FifoPool) LeaseDescPool(info driver.DescriptorPoolInfo) (*Lease[driver.DescriptorPool], error) {
	if res, cached, ok := p.descPools.take(func(cached driver.DescriptorPoolInfo) bool { return cached.IsCompatibleWith(info) }); ok {
		return newLease(res, func(r driver.DescriptorPool) { p.descPools.release(cached, r) }), nil
	}
	res, err := p.gpu.NewDescriptorPool(info)
	if err != nil {
		return nil, err
	}
	return newLease(res, func(r driver.DescriptorPool) { p.descPools.release(info, r) }), nil
}

func (p *FifoPool) LeaseCommandBuffer(info driver.CommandBufferInfo) (*Lease[driver.CommandBuffer], error) {
	c := p.cmdBufs[info.QueueFamilyIndex]
	if c == nil {
		c = newCache[driver.CommandBufferInfo, driver.CommandBuffer](0)
		p.cmdBufs[info.QueueFamilyIndex] = c
	}
	if res, ok := c.takeMatch(func(_ driver.CommandBufferInfo, res driver.CommandBuffer) bool { return !res.Fenced() }); ok {
		if err := res.Reset(); err != nil {
			res.Destroy()
		} else {
			return newLease(res, func(r driver.CommandBuffer) { c.release(info, r) }), nil
		}
	}
	res, err := p.gpu.NewCommandBuffer(info)
	if err != nil {
		return nil, err
	}
	return newLease(res, func(r driver.CommandBuffer) { c.release(info, r) }), nil
}

func (p *FifoPool) LeaseRenderPass(info driver.RenderPassInfo) (*Lease[driver.RenderPass], error) {
	key := info.Key()
	c := p.passes[key]
	if c == nil {
		c = newCache[driver.RenderPassInfo, driver.RenderPass](0)
		p.passes[key] = c
	}
	if res, ok := c.takeFront(); ok {
		return newLease(res, func(r driver.RenderPass) { c.release(info, r) }), nil
	}
	res, err := p.gpu.NewRenderPass(info)
	if err != nil {
		return nil, err
	}
	return newLease(res, func(r driver.RenderPass) { c.release(info, r) }), nil
}

// Close destroys every cached resource across all kinds and buckets.
func (p *FifoPool) Close() {
	p.buffers.close()
	p.images.close()
	p.accelStructs.close()
	p.descPools.close()
	for _, c := range p.cmdBufs {
		c.close()
	}
	for _, c := range p.passes {
		c.close()
	}
}
