// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package memgpu implements driver.Driver and driver.GPU entirely in
// host memory, for use in tests that need a working device without a
// real Vulkan/WebGPU/Metal backend. Unlike a no-op mock, it actually
// executes copy and fill commands against backing byte slices and runs
// compute dispatches through a small named-kernel registry, so tests
// can assert on real data instead of only on call counts.
//
// Grounded on the source project's own gfx-mock device, which registers
// a Device implementation that every creation method returns a
// zero-cost placeholder from; this package keeps that shape (one
// GPU-wide struct that creates every resource) but backs every
// resource with real storage, since the render graph's testable
// properties need observable results. Creation can still fail on an
// invalid descriptor: NewBuffer rejects a non-positive size with
// driver.ErrInvalidData.
package memgpu

import (
	"log"
	"sync"

	"vkgraph/driver"
)

// driverImpl is the driver.Driver this package registers. Open always
// returns the same GPU, matching the contract that repeat calls on an
// already-open driver return the same instance.
type driverImpl struct {
	mu  sync.Mutex
	gpu *GPU
}

func (d *driverImpl) Name() string { return "memgpu" }

func (d *driverImpl) Open() (driver.GPU, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gpu == nil {
		d.gpu = newGPU(d)
	}
	return d.gpu, nil
}

func (d *driverImpl) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gpu = nil
}

func init() {
	driver.Register(&driverImpl{})
}

// New returns a fresh, unregistered GPU instance. Most callers should
// use driver.Drivers to find the registered "memgpu" driver instead;
// New exists for tests that want an isolated instance not shared with
// other tests running in the same process.
func New() *GPU { return newGPU(nil) }

// GPU is the in-memory driver.GPU implementation. Every New* method
// allocates backing storage immediately rather than deferring to a
// separate commit step, since there is no real device memory to
// conserve.
type GPU struct {
	drv *driverImpl

	queueFamilies []driver.QueueFamily
	limits        driver.Limits
}

func newGPU(drv *driverImpl) *GPU {
	return &GPU{
		drv: drv,
		queueFamilies: []driver.QueueFamily{
			{Index: 0, Count: 1, Graphics: true, Compute: true, Transfer: true},
		},
		limits: driver.Limits{
			MaxImage1D: 16384, MaxImage2D: 16384, MaxImageCube: 16384, MaxImage3D: 2048,
			MaxLayers: 2048, MaxDescriptorSets: 32, MaxPerStageDescriptors: 1 << 20,
			MaxColorTargets: 8, MaxFBSize: [2]int{16384, 16384}, MaxFBLayers: 2048,
			MaxViewports: 16, MaxVertexIn: 32, MaxFragmentIn: 32,
			MaxDispatch: [3]int{1 << 20, 1 << 20, 1 << 20}, SubgroupSize: 32,
			SamplerFilterMinmax: true,
		},
	}
}

func (g *GPU) Driver() driver.Driver { return g.drv }

func (g *GPU) QueueFamilies() []driver.QueueFamily { return g.queueFamilies }
func (g *GPU) Limits() driver.Limits               { return g.limits }

func (g *GPU) NewBuffer(info driver.BufferInfo) (driver.Buffer, error) {
	if info.Size <= 0 {
		return nil, driver.ErrInvalidData
	}
	return &Buffer{info: info, data: make([]byte, info.Size)}, nil
}

func (g *GPU) NewImage(info driver.ImageInfo) (driver.Image, error) {
	if info.Levels <= 0 {
		info.Levels = 1
	}
	if info.Layers <= 0 {
		info.Layers = 1
	}
	img := &Image{info: info, texelSize: formatSize(info.Format)}
	img.levels = make([]levelData, info.Levels)
	for l := range img.levels {
		d := mipDim(info.Dim, l)
		img.levels[l] = levelData{
			dim:  d,
			data: make([]byte, d.Width*d.Height*d.Depth*info.Layers*img.texelSize),
		}
	}
	return img, nil
}

func (g *GPU) NewSampler(info driver.SamplerInfo) (driver.Sampler, error) {
	return &sampler{info: info}, nil
}

func (g *GPU) NewAccelStruct(info driver.AccelStructInfo) (driver.AccelStruct, error) {
	return &AccelStruct{info: info, data: make([]byte, info.Size)}, nil
}

func (g *GPU) NewRenderPass(info driver.RenderPassInfo) (driver.RenderPass, error) {
	return &RenderPass{info: info}, nil
}

func (g *GPU) NewDescriptorPool(info driver.DescriptorPoolInfo) (driver.DescriptorPool, error) {
	return &DescriptorPool{info: info, writes: map[int][]driver.DescriptorWrite{}}, nil
}

func (g *GPU) NewCommandBuffer(info driver.CommandBufferInfo) (driver.CommandBuffer, error) {
	return &CommandBuffer{info: info}, nil
}

func (g *GPU) NewGraphicsPipeline(info driver.GraphicsPipelineInfo) (driver.Pipeline, error) {
	return &pipeline{}, nil
}

func (g *GPU) NewComputePipeline(info driver.ComputePipelineInfo) (driver.Pipeline, error) {
	k, ok := lookupKernel(info.Stage.EntryPoint)
	if !ok {
		log.Printf("memgpu: no kernel registered for entry point %q, dispatch will be a no-op", info.Stage.EntryPoint)
	}
	return &pipeline{kernel: k}, nil
}

func (g *GPU) NewRayTracePipeline(info driver.RayTracePipelineInfo) (driver.Pipeline, error) {
	return &pipeline{}, nil
}

// Commit executes every command buffer in work immediately (recording
// already applied every copy/fill/dispatch against backing storage)
// and returns an already-signaled fence, since memgpu has no separate
// device timeline to wait on.
func (g *GPU) Commit(work []driver.CommandBuffer, queueFamily, queueIndex int) (*driver.Fence, error) {
	ch := make(chan error, 1)
	ch <- nil
	f := driver.NewFence(ch)
	for _, w := range work {
		if cb, ok := w.(*CommandBuffer); ok {
			cb.fence = f
		}
	}
	return f, nil
}
