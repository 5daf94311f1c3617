// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package graph implements the render graph: a declarative list of
// passes that access named resources, resolved into a recorded
// command buffer with automatically inserted barriers.
package graph

import "vkgraph/driver"

// AccessType names every way a node can be touched by a pass. Each
// value maps to a fixed pipeline-stage scope, memory-access mask, and
// image layout (layout is meaningless for buffers and left as
// driver.LUndefined).
type AccessType int

const (
	AccessNone AccessType = iota

	IndexBuffer
	VertexBuffer
	IndirectBuffer

	UniformBufferReadVertex
	UniformBufferReadFragment
	UniformBufferReadCompute

	StorageBufferReadVertex
	StorageBufferReadFragment
	StorageBufferReadCompute

	StorageBufferWriteVertex
	StorageBufferWriteFragment
	StorageBufferWriteCompute

	SampledImageReadVertex
	SampledImageReadFragment
	SampledImageReadCompute

	StorageImageReadVertex
	StorageImageReadFragment
	StorageImageReadCompute

	StorageImageWriteVertex
	StorageImageWriteFragment
	StorageImageWriteCompute

	ColorAttachmentWrite
	DepthStencilAttachmentWrite
	DepthStencilAttachmentRead

	TransferRead
	TransferWrite

	Present

	AccelerationStructureBuildRead
	AccelerationStructureBuildWrite
	RayTracingRead
)

// accessSpec is the fixed (stage, access, layout) triple an AccessType
// maps to, plus whether it only reads the resource.
type accessSpec struct {
	sync     driver.Sync
	access   driver.Access
	layout   driver.Layout
	readOnly bool
}

var accessTable = map[AccessType]accessSpec{
	AccessNone: {driver.SNone, driver.ANone, driver.LUndefined, true},

	IndexBuffer:    {driver.SVertexInput, driver.AIndexBufRead, driver.LUndefined, true},
	VertexBuffer:   {driver.SVertexInput, driver.AVertexBufRead, driver.LUndefined, true},
	IndirectBuffer: {driver.SDraw, driver.AIndirectRead, driver.LUndefined, true},

	UniformBufferReadVertex:   {driver.SVertexShading, driver.AShaderRead, driver.LUndefined, true},
	UniformBufferReadFragment: {driver.SFragmentShading, driver.AShaderRead, driver.LUndefined, true},
	UniformBufferReadCompute:  {driver.SComputeShading, driver.AShaderRead, driver.LUndefined, true},

	StorageBufferReadVertex:   {driver.SVertexShading, driver.AShaderRead, driver.LUndefined, true},
	StorageBufferReadFragment: {driver.SFragmentShading, driver.AShaderRead, driver.LUndefined, true},
	StorageBufferReadCompute:  {driver.SComputeShading, driver.AShaderRead, driver.LUndefined, true},

	StorageBufferWriteVertex:   {driver.SVertexShading, driver.AShaderWrite, driver.LUndefined, false},
	StorageBufferWriteFragment: {driver.SFragmentShading, driver.AShaderWrite, driver.LUndefined, false},
	StorageBufferWriteCompute:  {driver.SComputeShading, driver.AShaderWrite, driver.LUndefined, false},

	SampledImageReadVertex:   {driver.SVertexShading, driver.AShaderRead, driver.LShaderRead, true},
	SampledImageReadFragment: {driver.SFragmentShading, driver.AShaderRead, driver.LShaderRead, true},
	SampledImageReadCompute:  {driver.SComputeShading, driver.AShaderRead, driver.LShaderRead, true},

	StorageImageReadVertex:   {driver.SVertexShading, driver.AShaderRead, driver.LCommon, true},
	StorageImageReadFragment: {driver.SFragmentShading, driver.AShaderRead, driver.LCommon, true},
	StorageImageReadCompute:  {driver.SComputeShading, driver.AShaderRead, driver.LCommon, true},

	StorageImageWriteVertex:   {driver.SVertexShading, driver.AShaderWrite, driver.LCommon, false},
	StorageImageWriteFragment: {driver.SFragmentShading, driver.AShaderWrite, driver.LCommon, false},
	StorageImageWriteCompute:  {driver.SComputeShading, driver.AShaderWrite, driver.LCommon, false},

	ColorAttachmentWrite:        {driver.SColorOutput, driver.AColorWrite, driver.LColorTarget, false},
	DepthStencilAttachmentWrite: {driver.SDSOutput, driver.ADSWrite, driver.LDSTarget, false},
	DepthStencilAttachmentRead:  {driver.SDSOutput, driver.ADSRead, driver.LDSRead, true},

	TransferRead:  {driver.SCopy, driver.ACopyRead, driver.LCopySrc, true},
	TransferWrite: {driver.SCopy, driver.ACopyWrite, driver.LCopyDst, false},

	Present: {driver.SNone, driver.ANone, driver.LPresent, true},

	AccelerationStructureBuildRead:  {driver.SRayTracing, driver.AAccelStructRead, driver.LUndefined, true},
	AccelerationStructureBuildWrite: {driver.SRayTracing, driver.AAccelStructWrite, driver.LUndefined, false},
	RayTracingRead:                  {driver.SRayTracing, driver.AShaderRead, driver.LShaderRead, true},
}

func (a AccessType) spec() accessSpec {
	if s, ok := accessTable[a]; ok {
		return s
	}
	return accessTable[AccessNone]
}

// Sync returns the pipeline stage scope a is performed in.
func (a AccessType) Sync() driver.Sync { return a.spec().sync }

// Access returns the memory-access mask a performs.
func (a AccessType) Access() driver.Access { return a.spec().access }

// Layout returns the image layout a requires, meaningless for
// buffer-only access types.
func (a AccessType) Layout() driver.Layout { return a.spec().layout }

// ReadOnly reports whether a only reads the resource it is applied to.
func (a AccessType) ReadOnly() bool { return a.spec().readOnly }

// stageOf returns the driver.Stage a's shader-stage-scoped variant
// runs in, used by the descriptor-write helpers to pick the Vertex/
// Fragment/Compute member of a family of AccessType constants.
func stageOf(stage driver.Stage) func(vertex, fragment, compute AccessType) AccessType {
	return func(vertex, fragment, compute AccessType) AccessType {
		switch stage {
		case driver.SFragment:
			return fragment
		case driver.SCompute:
			return compute
		default:
			return vertex
		}
	}
}
