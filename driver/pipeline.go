// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package driver

// ShaderStageInfo describes a single programmable stage of a pipeline.
// Code is the SPIR-V binary; EntryPoint names the function within it.
// Bindings and PushConstants are normally filled in by reflecting over
// the compiled SPIR-V rather than authored by hand.
type ShaderStageInfo struct {
	Stage        Stage
	Code         []byte
	EntryPoint   string
	Spec         []SpecConstant
	Bindings     []DescriptorBinding
	PushConstants []PushConstantRange
	// BindlessFallback is the number of descriptors to allocate for
	// this stage's unbounded-array bindings when the device does not
	// support bindless indexing.
	BindlessFallback int
}

// SpecConstant is a single specialization constant override applied
// at pipeline-creation time.
type SpecConstant struct {
	ID    uint32
	Value uint32
}

// DescriptorBinding names one (set, binding) slot a shader stage
// expects to find populated, as derived by shader reflection.
type DescriptorBinding struct {
	Set     int
	Binding int
	Type    DescType
	Count   int
}

// PushConstantRange describes a byte range of push-constant storage
// visible to one or more stages.
type PushConstantRange struct {
	Stages Stage
	Offset int
	Size   int
}

// VertexIn describes a single vertex input binding. Interleaved
// vertex inputs are not supported; each VertexIn is its own buffer
// binding.
type VertexIn struct {
	Format VertexFmt
	Stride int
	Nr     int
	Name   string
}

// RasterState defines the rasterization state of a graphics pipeline.
type RasterState struct {
	Clockwise bool
	Cull      CullMode
	Fill      FillMode
	DepthBias bool
	BiasValue float32
	BiasSlope float32
	BiasClamp float32
}

// StencilT defines stencil test parameters for one face.
type StencilT struct {
	DSFail    [2]StencilOp
	Pass      StencilOp
	ReadMask  uint32
	WriteMask uint32
	Cmp       CmpFunc
}

// DSState defines the depth/stencil state of a graphics pipeline.
type DSState struct {
	DepthTest   bool
	DepthWrite  bool
	DepthCmp    CmpFunc
	StencilTest bool
	Front       StencilT
	Back        StencilT
}

// ColorBlend defines a render target's blend parameters.
type ColorBlend struct {
	Blend     bool
	WriteMask ColorMask
	Op        [2]BlendOp
	SrcFac    [2]BlendFac
	DstFac    [2]BlendFac
}

// BlendState defines the color blend state of a graphics pipeline.
type BlendState struct {
	IndependentBlend bool
	Color            []ColorBlend
}

// GraphicsPipelineInfo defines the combination of programmable and
// fixed-function state that makes up a graphics pipeline. A pipeline
// built from this descriptor is only valid for use within the
// (Pass, Subpass) it names.
type GraphicsPipelineInfo struct {
	Vert, Frag ShaderStageInfo
	Input      []VertexIn
	Topology   Topology
	Raster     RasterState
	Samples    int
	DS         DSState
	Blend      BlendState
	Pass       RenderPassInfo
	Subpass    int
}

// ComputePipelineInfo defines the state of a compute pipeline.
type ComputePipelineInfo struct {
	Stage ShaderStageInfo
}

// RayTracePipelineInfo defines the state of a ray-tracing pipeline.
type RayTracePipelineInfo struct {
	RayGen       ShaderStageInfo
	ClosestHit   []ShaderStageInfo
	Miss         []ShaderStageInfo
	MaxRecursion int
}
