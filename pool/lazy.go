// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package pool

import "vkgraph/driver"

// bufferKey groups buffers by the fields that matter for reuse but are
// cheap to use as a map key, leaving only size/alignment to a linear
// scan within the bucket.
type bufferKey struct {
	usage    driver.Usage
	mappable bool
}

func bufferKeyOf(info driver.BufferInfo) bufferKey {
	return bufferKey{usage: info.Usage, mappable: info.Mappable}
}

// imageKey groups images by their discrete, rarely-varying fields,
// leaving dimensions, layer count, level count, and sample count to a
// linear scan within the bucket.
//
// Grounded on the source pool's lazy.rs ImageKey, which buckets on
// format/type/tiling/usage/flags and scans the bucket for a dimension
// fit.
type imageKey struct {
	typ    driver.ImageType
	format driver.PixelFmt
	tiling driver.Tiling
	usage  driver.Usage
	flags  driver.ImageFlags
}

func imageKeyOf(info driver.ImageInfo) imageKey {
	return imageKey{typ: info.Type, format: info.Format, tiling: info.Tiling, usage: info.Usage, flags: info.Flags}
}

// LazyPool is a reuse policy that buckets resources by a cheap,
// discrete key before doing any compatibility scan, trading a little
// bucketing overhead for a shorter scan when many resources of the
// same rough shape are in flight (e.g. a frame graph that allocates
// many same-format intermediate images per frame).
type LazyPool struct {
	gpu driver.GPU
	cap Limits

	buffers map[bufferKey]*cache[driver.BufferInfo, driver.Buffer]
	images  map[imageKey]*cache[driver.ImageInfo, driver.Image]
	accel   map[driver.AccelStructType]*cache[driver.AccelStructInfo, driver.AccelStruct]

	descPools *cache[driver.DescriptorPoolInfo, driver.DescriptorPool]
	cmdBufs   map[int]*cache[driver.CommandBufferInfo, driver.CommandBuffer]
	passes    map[string]*cache[driver.RenderPassInfo, driver.RenderPass]
}

// NewLazyPool returns a Pool that buckets retired resources by a
// discrete shape key before scanning for a compatible one.
func NewLazyPool(gpu driver.GPU, limits Limits) *LazyPool {
	return &LazyPool{
		gpu:       gpu,
		cap:       limits,
		buffers:   make(map[bufferKey]*cache[driver.BufferInfo, driver.Buffer]),
		images:    make(map[imageKey]*cache[driver.ImageInfo, driver.Image]),
		accel:     make(map[driver.AccelStructType]*cache[driver.AccelStructInfo, driver.AccelStruct]),
		descPools: newCache[driver.DescriptorPoolInfo, driver.DescriptorPool](0),
		cmdBufs:   make(map[int]*cache[driver.CommandBufferInfo, driver.CommandBuffer]),
		passes:    make(map[string]*cache[driver.RenderPassInfo, driver.RenderPass]),
	}
}

func (p *LazyPool) LeaseBuffer(info driver.BufferInfo) (*Lease[driver.Buffer], error) {
	k := bufferKeyOf(info)
	c := p.buffers[k]
	if c == nil {
		c = newCache[driver.BufferInfo, driver.Buffer](p.cap.BufferCap)
		p.buffers[k] = c
	}
	if res, cached, ok := c.take(func(cached driver.BufferInfo) bool { return cached.IsCompatibleWith(info) }); ok {
		return newLease(res, func(r driver.Buffer) { c.release(cached, r) }), nil
	}
	res, err := p.gpu.NewBuffer(info)
	if err != nil {
		return nil, err
	}
	return newLease(res, func(r driver.Buffer) { c.release(info, r) }), nil
}

func (p *LazyPool) LeaseImage(info driver.ImageInfo) (*Lease[driver.Image], error) {
	k := imageKeyOf(info)
	c := p.images[k]
	if c == nil {
		c = newCache[driver.ImageInfo, driver.Image](p.cap.ImageCap)
		p.images[k] = c
	}
	if res, cached, ok := c.take(func(cached driver.ImageInfo) bool { return cached.IsCompatibleWith(info) }); ok {
		return newLease(res, func(r driver.Image) { c.release(cached, r) }), nil
	}
	res, err := p.gpu.NewImage(info)
	if err != nil {
		return nil, err
	}
	return newLease(res, func(r driver.Image) { c.release(info, r) }), nil
}

func (p *LazyPool) LeaseAccelStruct(info driver.AccelStructInfo) (*Lease[driver.AccelStruct], error) {
	c := p.accel[info.Type]
	if c == nil {
		c = newCache[driver.AccelStructInfo, driver.AccelStruct](p.cap.AccelStructCap)
		p.accel[info.Type] = c
	}
	if res, cached, ok := c.take(func(cached driver.AccelStructInfo) bool { return cached.IsCompatibleWith(info) }); ok {
		return newLease(res, func(r driver.AccelStruct) { c.release(cached, r) }), nil
	}
	res, err := p.gpu.NewAccelStruct(info)
	if err != nil {
		return nil, err
	}
	return newLease(res, func(r driver.AccelStruct) { c.release(info, r) }), nil
}

func (p *LazyPool) LeaseDescPool(info driver.DescriptorPoolInfo) (*Lease[driver.DescriptorPool], error) {
	if res, cached, ok := p.descPools.take(func(cached driver.DescriptorPoolInfo) bool { return cached.IsCompatibleWith(info) }); ok {
		return newLease(res, func(r driver.DescriptorPool) { p.descPools.release(cached, r) }), nil
	}
	res, err := p.gpu.NewDescriptorPool(info)
	if err != nil {
		return nil, err
	}
	return newLease(res, func(r driver.DescriptorPool) { p.descPools.release(info, r) }), nil
}

func (p *LazyPool) LeaseCommandBuffer(info driver.CommandBufferInfo) (*Lease[driver.CommandBuffer], error) {
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

func (p *LazyPool) LeaseRenderPass(info driver.RenderPassInfo) (*Lease[driver.RenderPass], error) {
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

// Close destroys every cached resource across all buckets.
func (p *LazyPool) Close() {
	for _, c := range p.buffers {
		c.close()
	}
	for _, c := range p.images {
		c.close()
	}
	for _, c := range p.accel {
		c.close()
	}
	p.descPools.close()
	for _, c := range p.cmdBufs {
		c.close()
	}
	for _, c := range p.passes {
		c.close()
	}
}
