// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package memgpu

import "vkgraph/driver"

// CommandBuffer is a driver.CommandBuffer that executes every transfer
// and compute command against backing storage as soon as it is
// recorded, rather than deferring to submission. There is no separate
// device timeline in a software backend, so this is observationally
// equivalent to deferred execution for any caller that only inspects
// results after Recording.Submit, while making the implementation far
// simpler.
//
// Barriers and layout transitions are recorded into Barriers/
// Transitions instead of being applied to anything, so tests can
// assert directly on the sequence and masks the resolver emitted.
type CommandBuffer struct {
	info      driver.CommandBufferInfo
	destroyed bool
	recording bool
	fence     *driver.Fence

	curPool *DescriptorPool
	curSets []int
	curPipe *pipeline
	curPass *RenderPass
	curFB   *Framebuffer

	// Barriers and Transitions accumulate every call to Barrier and
	// Transition in order, for the lifetime of the command buffer
	// between Begin and the next Reset.
	Barriers    []driver.Barrier
	Transitions []driver.Transition

	// Dispatches counts how many Dispatch calls were recorded, for
	// tests that only need to check that a compute pass ran.
	Dispatches int

	// BeginPassCalls, NextSubpassCalls, and EndPassCalls count calls to
	// the matching render-pass methods, for tests asserting that the
	// resolver merged a run of graphics passes into a single
	// begin/end pair with one NextSubpass per extra subpass rather
	// than one render pass per source pass.
	BeginPassCalls   int
	NextSubpassCalls int
	EndPassCalls     int
}

func (c *CommandBuffer) Destroy()                     { c.destroyed = true }
func (c *CommandBuffer) Info() driver.CommandBufferInfo { return c.info }

func (c *CommandBuffer) Begin() error {
	c.recording = true
	return nil
}

func (c *CommandBuffer) End() error {
	c.recording = false
	return nil
}

func (c *CommandBuffer) Reset() error {
	c.Barriers = nil
	c.Transitions = nil
	c.Dispatches = 0
	c.BeginPassCalls = 0
	c.NextSubpassCalls = 0
	c.EndPassCalls = 0
	c.fence = nil
	return nil
}

// Fenced reports whether this command buffer's last submission has not
// yet signaled. Since GPU.Commit executes synchronously and signals
// its fence before returning, this reports false once Commit has
// returned.
func (c *CommandBuffer) Fenced() bool {
	return c.fence != nil && !c.fence.Signaled()
}

func (c *CommandBuffer) BeginPass(pass driver.RenderPass, fb driver.Framebuffer, clear []driver.ClearValue) {
	rp, _ := pass.(*RenderPass)
	fbuf, _ := fb.(*Framebuffer)
	c.curPass, c.curFB = rp, fbuf
	c.BeginPassCalls++
	if rp == nil || fbuf == nil {
		return
	}
	applyClears(rp, fbuf, clear)
}

func (c *CommandBuffer) NextSubpass() { c.NextSubpassCalls++ }

func (c *CommandBuffer) EndPass() {
	c.curPass, c.curFB = nil, nil
	c.EndPassCalls++
}

func (c *CommandBuffer) BeginWork() {}
func (c *CommandBuffer) EndWork()   {}
func (c *CommandBuffer) BeginBlit() {}
func (c *CommandBuffer) EndBlit()   {}

func (c *CommandBuffer) SetPipeline(pl driver.Pipeline) {
	p, _ := pl.(*pipeline)
	c.curPipe = p
}

func (c *CommandBuffer) SetViewport(vp []driver.Viewport) {}
func (c *CommandBuffer) SetScissor(s []driver.Scissor)     {}

func (c *CommandBuffer) SetDescriptorPool(dp driver.DescriptorPool, sets []int) {
	p, _ := dp.(*DescriptorPool)
	c.curPool = p
	c.curSets = sets
}

func (c *CommandBuffer) SetVertexBuf(start int, buf []driver.Buffer, off []int64) {}
func (c *CommandBuffer) SetIndexBuf(format driver.IndexFmt, buf driver.Buffer, off int64) {}
func (c *CommandBuffer) PushConstants(stages driver.Stage, offset int, data []byte) {}

// Draw and DrawIndexed are no-ops: memgpu does not rasterize. Render
// graph scenarios that exercise a graphics pass check barrier/pool
// behavior, not pixel output, since that requires a real
// rasterizer the render graph deliberately leaves to a collaborator.
func (c *CommandBuffer) Draw(vertCount, instCount, baseVert, baseInst int)                {}
func (c *CommandBuffer) DrawIndexed(idxCount, instCount, baseIdx, vertOff, baseInst int) {}

func (c *CommandBuffer) Dispatch(groupsX, groupsY, groupsZ int) {
	c.Dispatches++
	if c.curPipe == nil || c.curPipe.kernel == nil {
		return
	}
	c.curPipe.kernel(c.curPool, groupsX, groupsY, groupsZ)
}

func (c *CommandBuffer) CopyBuffer(p *driver.BufferCopy) {
	from, ok1 := p.From.(*Buffer)
	to, ok2 := p.To.(*Buffer)
	if !ok1 || !ok2 {
		return
	}
	copy(to.data[p.ToOff:p.ToOff+p.Size], from.data[p.FromOff:p.FromOff+p.Size])
}

func (c *CommandBuffer) CopyImage(p *driver.ImageCopy) {
	from, ok1 := p.From.(*Image)
	to, ok2 := p.To.(*Image)
	if !ok1 || !ok2 {
		return
	}
	layers := p.Layers
	if layers <= 0 {
		layers = 1
	}
	rowBytes := p.Size.Width * from.texelSize
	for l := 0; l < layers; l++ {
		srcLayer := from.LayerBytes(p.FromLevel, p.FromLayer+l)
		dstLayer := to.LayerBytes(p.ToLevel, p.ToLayer+l)
		for z := 0; z < p.Size.Depth; z++ {
			for y := 0; y < p.Size.Height; y++ {
				srcOff := from.TexelOffset(p.FromLevel, p.FromOff.X, p.FromOff.Y+y, p.FromOff.Z+z)
				dstOff := to.TexelOffset(p.ToLevel, p.ToOff.X, p.ToOff.Y+y, p.ToOff.Z+z)
				copy(dstLayer[dstOff:dstOff+rowBytes], srcLayer[srcOff:srcOff+rowBytes])
			}
		}
	}
}

func (c *CommandBuffer) CopyBufToImg(p *driver.BufImgCopy) {
	buf, ok1 := p.Buf.(*Buffer)
	img, ok2 := p.Img.(*Image)
	if !ok1 || !ok2 {
		return
	}
	rowBytes := p.Size.Width * img.texelSize
	strideBytes := p.Stride[0] * int64(img.texelSize)
	if strideBytes == 0 {
		strideBytes = int64(rowBytes)
	}
	dstLayer := img.LayerBytes(p.Level, p.Layer)
	for z := 0; z < p.Size.Depth; z++ {
		for y := 0; y < p.Size.Height; y++ {
			srcOff := p.BufOff + int64(z)*strideBytes*int64(p.Size.Height) + int64(y)*strideBytes
			dstOff := img.TexelOffset(p.Level, p.ImgOff.X, p.ImgOff.Y+y, p.ImgOff.Z+z)
			copy(dstLayer[dstOff:dstOff+rowBytes], buf.data[srcOff:srcOff+int64(rowBytes)])
		}
	}
}

func (c *CommandBuffer) CopyImgToBuf(p *driver.BufImgCopy) {
	buf, ok1 := p.Buf.(*Buffer)
	img, ok2 := p.Img.(*Image)
	if !ok1 || !ok2 {
		return
	}
	rowBytes := p.Size.Width * img.texelSize
	strideBytes := p.Stride[0] * int64(img.texelSize)
	if strideBytes == 0 {
		strideBytes = int64(rowBytes)
	}
	srcLayer := img.LayerBytes(p.Level, p.Layer)
	for z := 0; z < p.Size.Depth; z++ {
		for y := 0; y < p.Size.Height; y++ {
			srcOff := img.TexelOffset(p.Level, p.ImgOff.X, p.ImgOff.Y+y, p.ImgOff.Z+z)
			dstOff := p.BufOff + int64(z)*strideBytes*int64(p.Size.Height) + int64(y)*strideBytes
			copy(buf.data[dstOff:dstOff+int64(rowBytes)], srcLayer[srcOff:srcOff+rowBytes])
		}
	}
}

func (c *CommandBuffer) Fill(buf driver.Buffer, off int64, value byte, size int64) {
	b, ok := buf.(*Buffer)
	if !ok {
		return
	}
	region := b.data[off : off+size]
	for i := range region {
		region[i] = value
	}
}

func (c *CommandBuffer) Barrier(b []driver.Barrier) {
	c.Barriers = append(c.Barriers, b...)
}

func (c *CommandBuffer) Transition(t []driver.Transition) {
	c.Transitions = append(c.Transitions, t...)
}

// applyClears writes each attachment's clear value across every layer
// and the base mip level of the view bound to it in fb, for every
// attachment whose load op is LClear.
func applyClears(rp *RenderPass, fb *Framebuffer, clear []driver.ClearValue) {
	att := append(append([]driver.AttachmentInfo{}, rp.info.Color...), depthAttachmentSlice(rp)...)
	for i, a := range att {
		if a.Load != driver.LClear || i >= len(fb.views) || i >= len(clear) {
			continue
		}
		v, ok := fb.views[i].(*ImageView)
		if !ok {
			continue
		}
		clearView(v, clear[i], a.Format.IsDepthStencil())
	}
}

func depthAttachmentSlice(rp *RenderPass) []driver.AttachmentInfo {
	if rp.info.Depth == nil {
		return nil
	}
	return []driver.AttachmentInfo{*rp.info.Depth}
}

func clearView(v *ImageView, cv driver.ClearValue, depthStencil bool) {
	img := v.img
	for layer := v.info.BaseLayer; layer < v.info.BaseLayer+max(1, v.info.Layers); layer++ {
		if layer >= img.info.Layers {
			break
		}
		data := img.LayerBytes(v.info.BaseLevel, layer)
		if depthStencil {
			fillF32(data, img.texelSize, cv.Depth)
		} else {
			fillRGBA8(data, img.texelSize, cv.Color)
		}
	}
}

func fillF32(data []byte, texelSize int, v float32) {
	bits := f32bits(v)
	for off := 0; off+texelSize <= len(data); off += texelSize {
		putU32(data[off:], bits)
	}
}

func fillRGBA8(data []byte, texelSize int, c [4]float32) {
	if texelSize != 4 {
		return
	}
	r := byte(clamp01(c[0]) * 255)
	g := byte(clamp01(c[1]) * 255)
	b := byte(clamp01(c[2]) * 255)
	a := byte(clamp01(c[3]) * 255)
	for off := 0; off+4 <= len(data); off += 4 {
		data[off], data[off+1], data[off+2], data[off+3] = r, g, b, a
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
