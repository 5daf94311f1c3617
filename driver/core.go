// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package driver

import "errors"

// Sentinel errors for the driver/resource layer. Pool and GPU
// operations return these directly, possibly wrapped with additional
// context via fmt.Errorf's %w.
var (
	// ErrOutOfMemory means that host or device memory could not be
	// allocated.
	ErrOutOfMemory = errors.New("driver: out of memory")

	// ErrDeviceLost means that the device is in an unrecoverable
	// state. Every resource created from it, and the GPU itself,
	// must be discarded.
	ErrDeviceLost = errors.New("driver: device lost")

	// ErrUnsupported means that a requested feature or format is not
	// supported by this device.
	ErrUnsupported = errors.New("driver: unsupported")

	// ErrInvalidData means that caller-supplied data (shader bytes,
	// a descriptor, a command parameter) failed validation.
	ErrInvalidData = errors.New("driver: invalid data")

	// ErrShaderCompile means that a shader module failed to build
	// from the bytes given to it.
	ErrShaderCompile = errors.New("driver: shader compile error")

	// ErrPipelineCreate means that pipeline creation failed for a
	// reason other than a shader compile error.
	ErrPipelineCreate = errors.New("driver: pipeline create error")
)

// QueueFamily describes one queue family exposed by a GPU.
type QueueFamily struct {
	Index      int
	Count      int
	Graphics   bool
	Compute    bool
	Transfer   bool
	SparseBind bool
}

// Limits describes implementation limits, immutable for the lifetime
// of a GPU.
type Limits struct {
	MaxImage1D   int
	MaxImage2D   int
	MaxImageCube int
	MaxImage3D   int
	MaxLayers    int

	MaxDescriptorSets      int
	MaxPerStageDescriptors int

	MaxColorTargets int
	MaxFBSize       [2]int
	MaxFBLayers     int
	MaxViewports    int

	MaxVertexIn   int
	MaxFragmentIn int

	MaxDispatch [3]int

	// SubgroupSize is the number of invocations in a subgroup, used
	// by compute passes that rely on subgroup operations (e.g., a
	// reduction pass). Zero means the device did not report one.
	SubgroupSize int

	// SamplerFilterMinmax reports whether the device supports
	// min/max sampler reduction modes.
	SamplerFilterMinmax bool
}

// GPU is the main interface to an underlying driver implementation.
// It creates resources and executes recorded command buffers. A GPU
// is obtained from a call to Driver.Open.
type GPU interface {
	Driver() Driver

	NewBuffer(info BufferInfo) (Buffer, error)
	NewImage(info ImageInfo) (Image, error)
	NewSampler(info SamplerInfo) (Sampler, error)
	NewAccelStruct(info AccelStructInfo) (AccelStruct, error)
	NewRenderPass(info RenderPassInfo) (RenderPass, error)
	NewDescriptorPool(info DescriptorPoolInfo) (DescriptorPool, error)
	NewCommandBuffer(info CommandBufferInfo) (CommandBuffer, error)
	NewGraphicsPipeline(info GraphicsPipelineInfo) (Pipeline, error)
	NewComputePipeline(info ComputePipelineInfo) (Pipeline, error)
	NewRayTracePipeline(info RayTracePipelineInfo) (Pipeline, error)

	// QueueFamilies enumerates the queue families this GPU exposes.
	QueueFamilies() []QueueFamily

	// Limits returns the implementation limits.
	Limits() Limits

	// Commit submits work (in order) to the named queue for
	// execution and returns a Fence that signals once every command
	// buffer in work has finished executing. Command buffers in work
	// cannot be recorded into again until the fence signals.
	Commit(work []CommandBuffer, queueFamily, queueIndex int) (*Fence, error)
}

// Fence lets a caller wait for a Commit's work to finish executing.
type Fence struct {
	done chan error
	err  error
	recv bool
}

// NewFence returns a Fence that will be signaled by a single send on
// ch. GPU implementations use this to build the return value of
// Commit.
func NewFence(ch chan error) *Fence { return &Fence{done: ch} }

// Wait blocks until the fence signals, returning any error the
// submitted work failed with. Calling Wait more than once returns the
// same result without blocking again.
func (f *Fence) Wait() error {
	if !f.recv {
		f.err = <-f.done
		f.recv = true
	}
	return f.err
}

// Signaled reports whether the fence has already been signaled,
// without blocking. Pools use this to decide whether a command buffer
// gated by this fence is safe to reset and reuse.
func (f *Fence) Signaled() bool {
	if f.recv {
		return true
	}
	select {
	case err := <-f.done:
		f.err = err
		f.recv = true
		return true
	default:
		return false
	}
}
