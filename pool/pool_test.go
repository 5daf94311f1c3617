// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package pool

import (
	"testing"

	"vkgraph/driver"
)

// fakeGPU counts how many times each New* method is called, so tests
// can assert that a pool actually reused a retired resource instead of
// creating a new one.
type fakeGPU struct {
	bufferCreates      int
	imageCreates       int
	accelCreates       int
	descPoolCreates    int
	cmdBufCreates      int
	renderPassCreates  int
}

func (g *fakeGPU) Driver() driver.Driver { return nil }

func (g *fakeGPU) NewBuffer(info driver.BufferInfo) (driver.Buffer, error) {
	g.bufferCreates++
	return &fakeBuffer{info: info, data: make([]byte, info.Size)}, nil
}

func (g *fakeGPU) NewImage(info driver.ImageInfo) (driver.Image, error) {
	g.imageCreates++
	return &fakeImage{info: info}, nil
}

func (g *fakeGPU) NewSampler(info driver.SamplerInfo) (driver.Sampler, error) {
	return &fakeDestroyer{}, nil
}

func (g *fakeGPU) NewAccelStruct(info driver.AccelStructInfo) (driver.AccelStruct, error) {
	g.accelCreates++
	return &fakeAccelStruct{info: info}, nil
}

func (g *fakeGPU) NewRenderPass(info driver.RenderPassInfo) (driver.RenderPass, error) {
	g.renderPassCreates++
	return &fakeRenderPass{info: info}, nil
}

func (g *fakeGPU) NewDescriptorPool(info driver.DescriptorPoolInfo) (driver.DescriptorPool, error) {
	g.descPoolCreates++
	return &fakeDescPool{info: info}, nil
}

func (g *fakeGPU) NewCommandBuffer(info driver.CommandBufferInfo) (driver.CommandBuffer, error) {
	g.cmdBufCreates++
	return &fakeCmdBuf{info: info}, nil
}

func (g *fakeGPU) NewGraphicsPipeline(info driver.GraphicsPipelineInfo) (driver.Pipeline, error) {
	return &fakeDestroyer{}, nil
}

func (g *fakeGPU) NewComputePipeline(info driver.ComputePipelineInfo) (driver.Pipeline, error) {
	return &fakeDestroyer{}, nil
}

func (g *fakeGPU) NewRayTracePipeline(info driver.RayTracePipelineInfo) (driver.Pipeline, error) {
	return &fakeDestroyer{}, nil
}

func (g *fakeGPU) QueueFamilies() []driver.QueueFamily { return nil }
func (g *fakeGPU) Limits() driver.Limits               { return driver.Limits{} }

func (g *fakeGPU) Commit(work []driver.CommandBuffer, queueFamily, queueIndex int) (*driver.Fence, error) {
	ch := make(chan error, 1)
	ch <- nil
	return driver.NewFence(ch), nil
}

type fakeDestroyer struct{ destroyed bool }

func (d *fakeDestroyer) Destroy() { d.destroyed = true }

type fakeBuffer struct {
	fakeDestroyer
	info driver.BufferInfo
	data []byte
}

func (b *fakeBuffer) Info() driver.BufferInfo { return b.info }
func (b *fakeBuffer) Bytes() []byte           { return b.data }

type fakeImage struct {
	fakeDestroyer
	info driver.ImageInfo
}

func (i *fakeImage) Info() driver.ImageInfo { return i.info }
func (i *fakeImage) NewView(vi driver.ImageViewInfo) (driver.ImageView, error) {
	return &fakeImageView{info: vi}, nil
}

type fakeImageView struct {
	fakeDestroyer
	info driver.ImageViewInfo
}

func (v *fakeImageView) Info() driver.ImageViewInfo { return v.info }

type fakeAccelStruct struct {
	fakeDestroyer
	info driver.AccelStructInfo
}

func (a *fakeAccelStruct) Info() driver.AccelStructInfo { return a.info }

type fakeDescPool struct {
	fakeDestroyer
	info driver.DescriptorPoolInfo
}

func (d *fakeDescPool) Info() driver.DescriptorPoolInfo { return d.info }
func (d *fakeDescPool) Write(set int, binding driver.DescriptorBinding, writes []driver.DescriptorWrite) {
}

type fakeRenderPass struct {
	fakeDestroyer
	info driver.RenderPassInfo
}

func (r *fakeRenderPass) Info() driver.RenderPassInfo { return r.info }
func (r *fakeRenderPass) NewFramebuffer(views []driver.ImageView, width, height, layers int) (driver.Framebuffer, error) {
	return &fakeDestroyer{}, nil
}

type fakeCmdBuf struct {
	fakeDestroyer
	info   driver.CommandBufferInfo
	fenced bool
}

func (c *fakeCmdBuf) Info() driver.CommandBufferInfo { return c.info }
func (c *fakeCmdBuf) Begin() error                   { return nil }
func (c *fakeCmdBuf) End() error                     { return nil }
func (c *fakeCmdBuf) Reset() error                   { return nil }
func (c *fakeCmdBuf) Fenced() bool                   { return c.fenced }

func (c *fakeCmdBuf) BeginPass(pass driver.RenderPass, fb driver.Framebuffer, clear []driver.ClearValue) {}
func (c *fakeCmdBuf) NextSubpass()                                                                        {}
func (c *fakeCmdBuf) EndPass()                                                                            {}
func (c *fakeCmdBuf) BeginWork()                                                                          {}
func (c *fakeCmdBuf) EndWork()                                                                            {}
func (c *fakeCmdBuf) BeginBlit()                                                                          {}
func (c *fakeCmdBuf) EndBlit()                                                                            {}
func (c *fakeCmdBuf) SetPipeline(pl driver.Pipeline)                                                      {}
func (c *fakeCmdBuf) SetViewport(vp []driver.Viewport)                                                    {}
func (c *fakeCmdBuf) SetScissor(s []driver.Scissor)                                                       {}
func (c *fakeCmdBuf) SetDescriptorPool(dp driver.DescriptorPool, sets []int)                              {}
func (c *fakeCmdBuf) SetVertexBuf(start int, buf []driver.Buffer, off []int64)                            {}
func (c *fakeCmdBuf) SetIndexBuf(format driver.IndexFmt, buf driver.Buffer, off int64)                    {}
func (c *fakeCmdBuf) PushConstants(stages driver.Stage, offset int, data []byte)                          {}
func (c *fakeCmdBuf) Draw(vertCount, instCount, baseVert, baseInst int)                                   {}
func (c *fakeCmdBuf) DrawIndexed(idxCount, instCount, baseIdx, vertOff, baseInst int)                     {}
func (c *fakeCmdBuf) Dispatch(groupsX, groupsY, groupsZ int)                                              {}
func (c *fakeCmdBuf) CopyBuffer(p *driver.BufferCopy)                                                     {}
func (c *fakeCmdBuf) CopyImage(p *driver.ImageCopy)                                                       {}
func (c *fakeCmdBuf) CopyBufToImg(p *driver.BufImgCopy)                                                   {}
func (c *fakeCmdBuf) CopyImgToBuf(p *driver.BufImgCopy)                                                   {}
func (c *fakeCmdBuf) Fill(buf driver.Buffer, off int64, value byte, size int64)                           {}
func (c *fakeCmdBuf) Barrier(b []driver.Barrier)                                                          {}
func (c *fakeCmdBuf) Transition(t []driver.Transition)                                                    {}

func testBufferInfo(size int64) driver.BufferInfo {
	return driver.BufferInfo{Size: size, Usage: driver.UVertexData, Alignment: 4}
}

// TestFifoPoolReusesCompatibleBuffer checks that a buffer released to
// a FifoPool is handed back out for a compatible, smaller request
// instead of allocating a new one.
func TestFifoPoolReusesCompatibleBuffer(t *testing.T) {
	gpu := &fakeGPU{}
	p := NewFifoPool(gpu, Limits{})
	defer p.Close()

	l1, err := p.LeaseBuffer(testBufferInfo(4096))
	if err != nil {
		t.Fatal(err)
	}
	l1.Close()

	if gpu.bufferCreates != 1 {
		t.Fatalf("want 1 create, got %d", gpu.bufferCreates)
	}

	l2, err := p.LeaseBuffer(testBufferInfo(1024))
	if err != nil {
		t.Fatal(err)
	}
	defer l2.Close()

	if gpu.bufferCreates != 1 {
		t.Fatalf("want reuse (1 create), got %d creates", gpu.bufferCreates)
	}
}

// TestFifoPoolReuseTracksCachedCapacityAcrossGenerations checks that
// reusing a buffer for a smaller request does not shrink the free
// list's record of what that physical buffer can actually serve: a
// third lease between the two sizes must still reuse it rather than
// allocating a new buffer.
func TestFifoPoolReuseTracksCachedCapacityAcrossGenerations(t *testing.T) {
	gpu := &fakeGPU{}
	p := NewFifoPool(gpu, Limits{})
	defer p.Close()

	l1, err := p.LeaseBuffer(testBufferInfo(4096))
	if err != nil {
		t.Fatal(err)
	}
	l1.Close()

	l2, err := p.LeaseBuffer(testBufferInfo(1024))
	if err != nil {
		t.Fatal(err)
	}
	l2.Close()

	if gpu.bufferCreates != 1 {
		t.Fatalf("want 1 create after first reuse, got %d", gpu.bufferCreates)
	}

	l3, err := p.LeaseBuffer(testBufferInfo(1536))
	if err != nil {
		t.Fatal(err)
	}
	defer l3.Close()

	if gpu.bufferCreates != 1 {
		t.Fatalf("want the still-4096-byte buffer reused for a 1536-byte request (1 create), got %d creates", gpu.bufferCreates)
	}
}

// TestFifoPoolRejectsIncompatibleBuffer checks that a request that
// cannot be satisfied by the cached entry falls through to creation.
func TestFifoPoolRejectsIncompatibleBuffer(t *testing.T) {
	gpu := &fakeGPU{}
	p := NewFifoPool(gpu, Limits{})
	defer p.Close()

	l1, _ := p.LeaseBuffer(testBufferInfo(1024))
	l1.Close()

	l2, err := p.LeaseBuffer(testBufferInfo(8192))
	if err != nil {
		t.Fatal(err)
	}
	defer l2.Close()

	if gpu.bufferCreates != 2 {
		t.Fatalf("want 2 creates (incompatible size), got %d", gpu.bufferCreates)
	}
}

// TestFifoPoolCapEvictsOldest checks that exceeding BufferCap destroys
// the oldest cached entry rather than growing without bound.
func TestFifoPoolCapEvictsOldest(t *testing.T) {
	gpu := &fakeGPU{}
	p := NewFifoPool(gpu, Limits{BufferCap: 1})
	defer p.Close()

	l1, _ := p.LeaseBuffer(testBufferInfo(1024))
	b1 := l1.Get().(*fakeBuffer)
	l1.Close()

	l2, _ := p.LeaseBuffer(testBufferInfo(2048))
	l2.Close()

	if !b1.destroyed {
		t.Fatal("oldest entry should have been evicted and destroyed")
	}
}

// TestFifoPoolCloseDestroysCachedAndLateReturns checks that closing
// the pool destroys cached resources, and that a lease returned after
// Close is destroyed instead of re-cached.
func TestFifoPoolCloseDestroysCachedAndLateReturns(t *testing.T) {
	gpu := &fakeGPU{}
	p := NewFifoPool(gpu, Limits{})

	l1, _ := p.LeaseBuffer(testBufferInfo(1024))
	b1 := l1.Get().(*fakeBuffer)
	l1.Close()

	l2, _ := p.LeaseBuffer(testBufferInfo(8192))
	b2 := l2.Get().(*fakeBuffer)

	p.Close()
	if !b1.destroyed {
		t.Fatal("resource cached at pool Close should be destroyed")
	}

	l2.Close()
	if !b2.destroyed {
		t.Fatal("resource returned after pool Close should be destroyed")
	}
}

// TestFifoPoolCommandBufferQueueFamilyBucketing checks that command
// buffers are only reused within the same queue family.
func TestFifoPoolCommandBufferQueueFamilyBucketing(t *testing.T) {
	gpu := &fakeGPU{}
	p := NewFifoPool(gpu, Limits{})
	defer p.Close()

	l1, _ := p.LeaseCommandBuffer(driver.CommandBufferInfo{QueueFamilyIndex: 0})
	l1.Close()

	if _, err := p.LeaseCommandBuffer(driver.CommandBufferInfo{QueueFamilyIndex: 1}); err != nil {
		t.Fatal(err)
	}
	if gpu.cmdBufCreates != 2 {
		t.Fatalf("want 2 creates (distinct queue families), got %d", gpu.cmdBufCreates)
	}

	l3, err := p.LeaseCommandBuffer(driver.CommandBufferInfo{QueueFamilyIndex: 0})
	if err != nil {
		t.Fatal(err)
	}
	defer l3.Close()
	if gpu.cmdBufCreates != 2 {
		t.Fatalf("want reuse for queue family 0, got %d creates", gpu.cmdBufCreates)
	}
}

// TestFifoPoolSkipsFencedCommandBuffer checks that a cached command
// buffer still awaiting fence signal is left in the cache rather than
// handed out, and that a signaled one is reused and reset.
func TestFifoPoolSkipsFencedCommandBuffer(t *testing.T) {
	gpu := &fakeGPU{}
	p := NewFifoPool(gpu, Limits{})
	defer p.Close()

	l1, _ := p.LeaseCommandBuffer(driver.CommandBufferInfo{QueueFamilyIndex: 0})
	cb1 := l1.Get().(*fakeCmdBuf)
	cb1.fenced = true
	l1.Close()

	l2, err := p.LeaseCommandBuffer(driver.CommandBufferInfo{QueueFamilyIndex: 0})
	if err != nil {
		t.Fatal(err)
	}
	if gpu.cmdBufCreates != 2 {
		t.Fatalf("want a new command buffer while the cached one is still fenced, got %d creates", gpu.cmdBufCreates)
	}
	cb2 := l2.Get().(*fakeCmdBuf)
	l2.Close()

	cb1.fenced = false
	l3, err := p.LeaseCommandBuffer(driver.CommandBufferInfo{QueueFamilyIndex: 0})
	if err != nil {
		t.Fatal(err)
	}
	defer l3.Close()
	if gpu.cmdBufCreates != 2 {
		t.Fatalf("want reuse once a fenced entry becomes signaled, got %d creates", gpu.cmdBufCreates)
	}
	if got := l3.Get().(*fakeCmdBuf); got != cb1 && got != cb2 {
		t.Fatal("expected one of the two previously cached buffers to be reused")
	}
}

func testImageInfo() driver.ImageInfo {
	return driver.ImageInfo{
		Type: driver.Image2D, Dim: driver.Dim3D{Width: 256, Height: 256, Depth: 1},
		Layers: 1, Levels: 1, Samples: 1, Format: driver.RGBA8Unorm,
		Usage: driver.URenderTarget,
	}
}

// TestLazyPoolBucketsByDiscreteKey checks that images with the same
// discrete shape reuse across requests, while a different format
// forces a new allocation despite identical dimensions.
func TestLazyPoolBucketsByDiscreteKey(t *testing.T) {
	gpu := &fakeGPU{}
	p := NewLazyPool(gpu, Limits{})
	defer p.Close()

	l1, _ := p.LeaseImage(testImageInfo())
	l1.Close()

	l2, err := p.LeaseImage(testImageInfo())
	if err != nil {
		t.Fatal(err)
	}
	l2.Close()
	if gpu.imageCreates != 1 {
		t.Fatalf("want reuse, got %d creates", gpu.imageCreates)
	}

	other := testImageInfo()
	other.Format = driver.RGBA8SRGB
	l3, err := p.LeaseImage(other)
	if err != nil {
		t.Fatal(err)
	}
	defer l3.Close()
	if gpu.imageCreates != 2 {
		t.Fatalf("want new bucket for different format, got %d creates", gpu.imageCreates)
	}
}

// TestHashPoolRequiresExactMatch checks that HashPool refuses to reuse
// a cached buffer for a request with a smaller, strictly compatible
// size, unlike Fifo/Lazy.
func TestHashPoolRequiresExactMatch(t *testing.T) {
	gpu := &fakeGPU{}
	p := NewHashPool(gpu)
	defer p.Close()

	l1, _ := p.LeaseBuffer(testBufferInfo(4096))
	l1.Close()

	l2, err := p.LeaseBuffer(testBufferInfo(1024))
	if err != nil {
		t.Fatal(err)
	}
	defer l2.Close()
	if gpu.bufferCreates != 2 {
		t.Fatalf("want no reuse across unequal descriptors, got %d creates", gpu.bufferCreates)
	}

	l3, err := p.LeaseBuffer(testBufferInfo(4096))
	if err != nil {
		t.Fatal(err)
	}
	defer l3.Close()
	if gpu.bufferCreates != 2 {
		t.Fatalf("want reuse for an exactly equal descriptor, got %d creates", gpu.bufferCreates)
	}
}

// TestAliasPoolSharesWhileOutstanding checks that two alias leases for
// the same descriptor share one underlying resource, and that the
// wrapped pool only sees it returned once the last alias closes.
func TestAliasPoolSharesWhileOutstanding(t *testing.T) {
	gpu := &fakeGPU{}
	p := NewAliasPool(NewFifoPool(gpu, Limits{}))
	defer p.Close()

	info := testBufferInfo(1024)
	l1, err := p.LeaseBuffer(info)
	if err != nil {
		t.Fatal(err)
	}
	l2, err := p.LeaseBuffer(info)
	if err != nil {
		t.Fatal(err)
	}

	if gpu.bufferCreates != 1 {
		t.Fatalf("want a single shared allocation, got %d creates", gpu.bufferCreates)
	}
	if l1.Get() != l2.Get() {
		t.Fatal("aliased leases should share the same underlying resource")
	}

	l1.Close()
	// Wrapped pool must not see the buffer back yet: a third, distinct
	// request for the same descriptor should still share l2's resource
	// rather than allocating a new one or reusing a freed slot.
	l3, err := p.LeaseBuffer(info)
	if err != nil {
		t.Fatal(err)
	}
	if l3.Get() != l2.Get() {
		t.Fatal("a lease requested while an alias is outstanding should still share it")
	}

	l2.Close()
	l3.Close()
	if gpu.bufferCreates != 1 {
		t.Fatalf("still want a single allocation after all aliases closed, got %d creates", gpu.bufferCreates)
	}
}
