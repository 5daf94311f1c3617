// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package pool

import "vkgraph/driver"

// HashPool is a reuse policy that never substitutes a "close enough"
// resource: a lease is only satisfied by a cached resource whose
// descriptor is exactly equal. This is the right choice when
// over-allocation is unacceptable (e.g. a tight VRAM budget) at the
// cost of lower reuse than Fifo/Lazy's compatibility-based matching.
//
// The source pool has no equivalent module: fifo.rs and lazy.rs both
// reuse under a compatibility relation. Hash keys every bucket
// directly on the resource descriptor, which for every resource kind
// here is a plain comparable struct (or RenderPassInfo.Key(), since
// RenderPassInfo itself holds slices and is not comparable).
type HashPool struct {
	gpu driver.GPU

	buffers map[driver.BufferInfo]*cache[driver.BufferInfo, driver.Buffer]
	images  map[driver.ImageInfo]*cache[driver.ImageInfo, driver.Image]
	accel   map[driver.AccelStructInfo]*cache[driver.AccelStructInfo, driver.AccelStruct]
	descs   map[driver.DescriptorPoolInfo]*cache[driver.DescriptorPoolInfo, driver.DescriptorPool]
	cmdBufs map[driver.CommandBufferInfo]*cache[driver.CommandBufferInfo, driver.CommandBuffer]
	passes  map[string]*cache[driver.RenderPassInfo, driver.RenderPass]
}

// NewHashPool returns a Pool that only reuses resources whose
// descriptor is exactly equal to the one requested.
func NewHashPool(gpu driver.GPU) *HashPool {
	return &HashPool{
		gpu:     gpu,
		buffers: make(map[driver.BufferInfo]*cache[driver.BufferInfo, driver.Buffer]),
		images:  make(map[driver.ImageInfo]*cache[driver.ImageInfo, driver.Image]),
		accel:   make(map[driver.AccelStructInfo]*cache[driver.AccelStructInfo, driver.AccelStruct]),
		descs:   make(map[driver.DescriptorPoolInfo]*cache[driver.DescriptorPoolInfo, driver.DescriptorPool]),
		cmdBufs: make(map[driver.CommandBufferInfo]*cache[driver.CommandBufferInfo, driver.CommandBuffer]),
		passes:  make(map[string]*cache[driver.RenderPassInfo, driver.RenderPass]),
	}
}

func (p *HashPool) LeaseBuffer(info driver.BufferInfo) (*Lease[driver.Buffer], error) {
	c := p.buffers[info]
	if c == nil {
		c = newCache[driver.BufferInfo, driver.Buffer](0)
		p.buffers[info] = c
	}
	if res, ok := c.takeFront(); ok {
		return newLease(res, func(r driver.Buffer) { c.release(info, r) }), nil
	}
	res, err := p.gpu.NewBuffer(info)
	if err != nil {
		return nil, err
	}
	return newLease(res, func(r driver.Buffer) { c.release(info, r) }), nil
}

func (p *HashPool) LeaseImage(info driver.ImageInfo) (*Lease[driver.Image], error) {
	c := p.images[info]
	if c == nil {
		c = newCache[driver.ImageInfo, driver.Image](0)
		p.images[info] = c
	}
	if res, ok := c.takeFront(); ok {
		return newLease(res, func(r driver.Image) { c.release(info, r) }), nil
	}
	res, err := p.gpu.NewImage(info)
	if err != nil {
		return nil, err
	}
	return newLease(res, func(r driver.Image) { c.release(info, r) }), nil
}

func (p *HashPool) LeaseAccelStruct(info driver.AccelStructInfo) (*Lease[driver.AccelStruct], error) {
	c := p.accel[info]
	if c == nil {
		c = newCache[driver.AccelStructInfo, driver.AccelStruct](0)
		p.accel[info] = c
	}
	if res, ok := c.takeFront(); ok {
		return newLease(res, func(r driver.AccelStruct) { c.release(info, r) }), nil
	}
	res, err := p.gpu.NewAccelStruct(info)
	if err != nil {
		return nil, err
	}
	return newLease(res, func(r driver.AccelStruct) { c.release(info, r) }), nil
}

func (p *HashPool) LeaseDescPool(info driver.DescriptorPoolInfo) (*Lease[driver.DescriptorPool], error) {
	c := p.descs[info]
	if c == nil {
		c = newCache[driver.DescriptorPoolInfo, driver.DescriptorPool](0)
		p.descs[info] = c
	}
	if res, ok := c.takeFront(); ok {
		return newLease(res, func(r driver.DescriptorPool) { c.release(info, r) }), nil
	}
	res, err := p.gpu.NewDescriptorPool(info)
	if err != nil {
		return nil, err
	}
	return newLease(res, func(r driver.DescriptorPool) { c.release(info, r) }), nil
}

func (p *HashPool) LeaseCommandBuffer(info driver.CommandBufferInfo) (*Lease[driver.CommandBuffer], error) {
	c := p.cmdBufs[info]
	if c == nil {
		c = newCache[driver.CommandBufferInfo, driver.CommandBuffer](0)
		p.cmdBufs[info] = c
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

func (p *HashPool) LeaseRenderPass(info driver.RenderPassInfo) (*Lease[driver.RenderPass], error) {
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

// Close destroys every cached resource across all exact-key buckets.
func (p *HashPool) Close() {
	for _, c := range p.buffers {
		c.close()
	}
	for _, c := range p.images {
		c.close()
	}
	for _, c := range p.accel {
		c.close()
	}
	for _, c := range p.descs {
		c.close()
	}
	for _, c := range p.cmdBufs {
		c.close()
	}
	for _, c := range p.passes {
		c.close()
	}
}
