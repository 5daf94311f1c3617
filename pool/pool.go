// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package pool

import "vkgraph/driver"

// Each resource kind wants a `lease(descriptor) -> Lease<Resource>`
// operation. Go has no trait-like generic method that differs only in
// its type parameters, so each kind gets its own method name instead
// of one generic Lease method instantiated six ways.

// BufferLeaser leases buffers.
type BufferLeaser interface {
	LeaseBuffer(info driver.BufferInfo) (*Lease[driver.Buffer], error)
}

// ImageLeaser leases images.
type ImageLeaser interface {
	LeaseImage(info driver.ImageInfo) (*Lease[driver.Image], error)
}

// AccelStructLeaser leases acceleration structures.
type AccelStructLeaser interface {
	LeaseAccelStruct(info driver.AccelStructInfo) (*Lease[driver.AccelStruct], error)
}

// DescPoolLeaser leases descriptor pools.
type DescPoolLeaser interface {
	LeaseDescPool(info driver.DescriptorPoolInfo) (*Lease[driver.DescriptorPool], error)
}

// RenderPassLeaser leases render passes.
type RenderPassLeaser interface {
	LeaseRenderPass(info driver.RenderPassInfo) (*Lease[driver.RenderPass], error)
}

// CommandBufferLeaser leases command buffers.
type CommandBufferLeaser interface {
	LeaseCommandBuffer(info driver.CommandBufferInfo) (*Lease[driver.CommandBuffer], error)
}

// Pool is the full resource pool surface the render graph's resolver
// consumes.
type Pool interface {
	BufferLeaser
	ImageLeaser
	AccelStructLeaser
	DescPoolLeaser
	RenderPassLeaser
	CommandBufferLeaser

	// Close destroys every resource currently held in the pool's
	// free lists and marks outstanding leases so that returning them
	// destroys the resource instead of re-caching it.
	Close()
}

// Limits bounds the number of retired resources a pool keeps around
// for linear-scan kinds (buffers, images, acceleration structures).
// Zero means unbounded. Descriptor pools, render passes, and command
// buffers are never capped, mirroring the source pool's
// PoolInfo/explicit_cache split. Render passes and command buffers
// are partitioned by an exact key (render-pass descriptor, queue
// family); FifoPool and LazyPool keep descriptor pools in a single
// free list matched by IsCompatibleWith.
type Limits struct {
	BufferCap      int
	ImageCap       int
	AccelStructCap int
}
