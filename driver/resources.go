// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package driver

// Destroyer is the interface that wraps the Destroy method. Types that
// implement this interface hold GPU memory outside of Go's garbage
// collector, so Destroy must be called explicitly.
type Destroyer interface {
	Destroy()
}

// Buffer is the interface that defines a GPU buffer. Its size is fixed
// at creation; a larger buffer requires creating a new one and copying
// the data across explicitly.
type Buffer interface {
	Destroyer

	// Info returns the descriptor this buffer was created from.
	Info() BufferInfo

	// Bytes returns a slice of length Info().Size referring to the
	// underlying storage. It returns nil if the buffer is not
	// mappable.
	Bytes() []byte
}

// Image is the interface that defines a GPU image. Direct CPU access
// is never provided; copying data to or from an image requires a
// staging buffer and a transfer command.
type Image interface {
	Destroyer

	// Info returns the descriptor this image was created from.
	Info() ImageInfo

	// NewView creates a new view into a subresource range of the
	// image. All views created from an image must be destroyed
	// before the image itself is.
	NewView(vi ImageViewInfo) (ImageView, error)
}

// ImageView is the interface that defines a typed view of an Image.
type ImageView interface {
	Destroyer

	// Info returns the descriptor this view was created from.
	Info() ImageViewInfo
}

// Sampler is the interface that defines an image sampler.
type Sampler interface {
	Destroyer
}

// AccelStruct is the interface that defines a ray-tracing acceleration
// structure.
type AccelStruct interface {
	Destroyer

	// Info returns the descriptor this acceleration structure was
	// created from.
	Info() AccelStructInfo
}

// Pipeline is the interface that defines a GPU pipeline (graphics,
// compute, or ray-trace).
type Pipeline interface {
	Destroyer
}

// DescriptorPool is the interface that defines storage for descriptor
// sets.
type DescriptorPool interface {
	Destroyer

	// Info returns the descriptor this pool was created from.
	Info() DescriptorPoolInfo

	// Write updates the descriptors named by a binding to refer to
	// the given resources. set selects which descriptor set within
	// the pool is updated.
	Write(set int, binding DescriptorBinding, writes []DescriptorWrite)
}

// DescriptorWrite is a single (buffer|image|sampler) value bound to
// an array element of a descriptor.
type DescriptorWrite struct {
	ArrayIndex int
	Buffer     Buffer
	BufferOff  int64
	BufferSize int64
	View       ImageView
	Sampler    Sampler
	AccelStruct AccelStruct
}

// RenderPass is the interface that defines a render pass into which
// draw commands operate.
type RenderPass interface {
	Destroyer

	// Info returns the descriptor this render pass was created from.
	Info() RenderPassInfo

	// NewFramebuffer binds a concrete set of image views to the
	// render pass' attachment slots for one execution.
	NewFramebuffer(views []ImageView, width, height, layers int) (Framebuffer, error)
}

// Framebuffer is the interface that defines the concrete render
// targets bound to a render pass for one execution.
type Framebuffer interface {
	Destroyer
}

// CommandBuffer is the interface that defines a command buffer: a
// sequence of rendering, compute, or transfer commands recorded for
// later submission.
type CommandBuffer interface {
	Destroyer

	// Info returns the descriptor this command buffer was created
	// from.
	Info() CommandBufferInfo

	// Begin prepares the command buffer for recording. It must be
	// called before any other recording method, and again after the
	// command buffer executes or is reset.
	Begin() error

	// End ends recording and prepares the command buffer for
	// submission.
	End() error

	// Reset discards every command recorded so far.
	Reset() error

	// Fenced reports whether the command buffer is still associated
	// with an outstanding submission (i.e., its fence has not yet
	// signaled). A pool must not hand out a command buffer for which
	// this is true.
	Fenced() bool

	BeginPass(pass RenderPass, fb Framebuffer, clear []ClearValue)
	NextSubpass()
	EndPass()

	BeginWork()
	EndWork()

	BeginBlit()
	EndBlit()

	SetPipeline(pl Pipeline)
	SetViewport(vp []Viewport)
	SetScissor(s []Scissor)
	SetDescriptorPool(dp DescriptorPool, sets []int)
	SetVertexBuf(start int, buf []Buffer, off []int64)
	SetIndexBuf(format IndexFmt, buf Buffer, off int64)
	PushConstants(stages Stage, offset int, data []byte)

	Draw(vertCount, instCount, baseVert, baseInst int)
	DrawIndexed(idxCount, instCount, baseIdx, vertOff, baseInst int)
	Dispatch(groupsX, groupsY, groupsZ int)

	CopyBuffer(p *BufferCopy)
	CopyImage(p *ImageCopy)
	CopyBufToImg(p *BufImgCopy)
	CopyImgToBuf(p *BufImgCopy)
	Fill(buf Buffer, off int64, value byte, size int64)

	Barrier(b []Barrier)
	Transition(t []Transition)
}
