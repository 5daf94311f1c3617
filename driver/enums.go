// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package driver

// Usage is a mask indicating valid uses for a buffer or image.
type Usage int

// Usage flags for Buffer and Image.
const (
	UShaderRead Usage = 1 << iota
	UShaderWrite
	UShaderConst
	UShaderSample
	UVertexData
	UIndexData
	UIndirectData
	URenderTarget
	UCopySrc
	UCopyDst
	UGeneric Usage = 1<<iota - 1
)

// Contains reports whether u has every bit set in req.
func (u Usage) Contains(req Usage) bool { return u&req == req }

// ImageType is the type of an image resource.
type ImageType int

// Image types.
const (
	Image1D ImageType = iota
	Image2D
	Image3D
	ImageCube
)

// Tiling is the memory layout of an image's texels.
type Tiling int

// Tilings.
const (
	TilingOptimal Tiling = iota
	TilingLinear
)

// ImageFlags is a mask of image creation flags.
type ImageFlags int

// Image creation flags.
const (
	FCubeCompatible ImageFlags = 1 << iota
	FMutableFormat
	FSparse
)

// Contains reports whether f has every bit set in req.
func (f ImageFlags) Contains(req ImageFlags) bool { return f&req == req }

// PixelFmt describes the format of a pixel.
type PixelFmt int

// Pixel formats.
const (
	RGBA8Unorm PixelFmt = iota
	RGBA8Norm
	RGBA8SRGB
	BGRA8Unorm
	BGRA8SRGB
	RG8Unorm
	R8Unorm
	RGBA16Float
	RG16Float
	R16Float
	RGBA32Float
	RG32Float
	R32Float
	D16Unorm
	D32Float
	S8Uint
	D24UnormS8Uint
	D32FloatS8Uint
)

// IsDepthStencil reports whether f carries a depth and/or stencil aspect.
func (f PixelFmt) IsDepthStencil() bool {
	switch f {
	case D16Unorm, D32Float, S8Uint, D24UnormS8Uint, D32FloatS8Uint:
		return true
	}
	return false
}

// Aspect is a mask of image aspects.
type Aspect int

// Aspects.
const (
	AspectColor Aspect = 1 << iota
	AspectDepth
	AspectStencil
)

// ViewType is the type of a resource view.
type ViewType int

// View types.
const (
	View1D ViewType = iota
	View2D
	View3D
	ViewCube
	View1DArray
	View2DArray
	ViewCubeArray
)

// Swizzle describes a per-component remapping applied when sampling
// an image view.
type Swizzle [4]SwizzleChan

// SwizzleChan identifies a source channel (or a constant) for a
// single component of a Swizzle.
type SwizzleChan int

// Swizzle channels.
const (
	SwizzleIdentity SwizzleChan = iota
	SwizzleR
	SwizzleG
	SwizzleB
	SwizzleA
	SwizzleZero
	SwizzleOne
)

// AccelStructType is the type of an acceleration structure.
type AccelStructType int

// Acceleration structure types.
const (
	AccelStructTopLevel AccelStructType = iota
	AccelStructBottomLevel
)

// Sync is the type of a synchronization scope.
type Sync int

// Synchronization scopes.
const (
	SVertexInput Sync = 1 << iota
	SVertexShading
	SFragmentShading
	SComputeShading
	SColorOutput
	SDSOutput
	SDraw
	SResolve
	SCopy
	SRayTracing
	SAll
	SNone Sync = 0
)

// Access is the type of a memory access scope.
type Access int

// Memory access scopes.
const (
	AVertexBufRead Access = 1 << iota
	AIndexBufRead
	AIndirectRead
	AColorRead
	AColorWrite
	ADSRead
	ADSWrite
	AResolveRead
	AResolveWrite
	ACopyRead
	ACopyWrite
	AShaderRead
	AShaderWrite
	AAccelStructRead
	AAccelStructWrite
	AAnyRead
	AAnyWrite
	ANone Access = 0
)

// Layout is the type of an image layout.
type Layout int

// Image layouts.
const (
	LUndefined Layout = iota
	LCommon
	LColorTarget
	LDSTarget
	LDSRead
	LResolveSrc
	LResolveDst
	LCopySrc
	LCopyDst
	LShaderRead
	LPresent
)

// LoadOp is the type of an attachment's load operation.
type LoadOp int

// Load operations.
const (
	LDontCare LoadOp = iota
	LClear
	LLoad
)

// StoreOp is the type of an attachment's store operation.
type StoreOp int

// Store operations.
const (
	SDontCare StoreOp = iota
	SStore
)

// Stage is a mask of programmable shader stages.
type Stage int

// Stages.
const (
	SVertex Stage = 1 << iota
	SFragment
	SCompute
	SRayGen
)

// DescType is the type of a descriptor binding.
type DescType int

// Descriptor types.
const (
	DBuffer DescType = iota
	DImage
	DConstant
	DTexture
	DSampler
	DAccelStruct
)

// VertexFmt describes the format of a vertex input.
type VertexFmt int

// Vertex formats.
const (
	Int8 VertexFmt = iota
	Int8x2
	Int8x3
	Int8x4
	Int16
	Int16x2
	Int16x3
	Int16x4
	Int32
	Int32x2
	Int32x3
	Int32x4
	UInt8
	UInt8x2
	UInt8x3
	UInt8x4
	UInt16
	UInt16x2
	UInt16x3
	UInt16x4
	UInt32
	UInt32x2
	UInt32x3
	UInt32x4
	Float32
	Float32x2
	Float32x3
	Float32x4
)

// Topology is the type of primitive topology.
type Topology int

// Primitive topologies.
const (
	TPoint Topology = iota
	TLine
	TLnStrip
	TTriangle
	TTriStrip
)

// IndexFmt describes the format of index buffer data.
type IndexFmt int

// Index formats.
const (
	Index16 IndexFmt = 2
	Index32 IndexFmt = 4
)

// CullMode is the type of cull mode.
type CullMode int

// Cull modes.
const (
	CNone CullMode = iota
	CFront
	CBack
)

// FillMode is the type of triangle fill mode.
type FillMode int

// Triangle fill modes.
const (
	FFill FillMode = iota
	FLines
)

// CmpFunc is the type of comparison function.
type CmpFunc int

// Comparison functions.
const (
	CNever CmpFunc = iota
	CLess
	CEqual
	CLessEqual
	CGreater
	CNotEqual
	CGreaterEqual
	CAlways
)

// StencilOp is the type of stencil operation.
type StencilOp int

// Stencil operations.
const (
	SKeep StencilOp = iota
	SZero
	SReplace
	SIncClamp
	SDecClamp
	SInvert
	SIncWrap
	SDecWrap
)

// BlendOp is the type of a blend operation.
type BlendOp int

// Blend operations.
const (
	BAdd BlendOp = iota
	BSubtract
	BRevSubtract
	BMin
	BMax
)

// BlendFac is the type of a blend factor.
type BlendFac int

// Blend factors.
const (
	BZero BlendFac = iota
	BOne
	BSrcColor
	BInvSrcColor
	BSrcAlpha
	BInvSrcAlpha
	BDstColor
	BInvDstColor
	BDstAlpha
	BInvDstAlpha
	BSrcAlphaSaturated
	BBlendColor
	BInvBlendColor
)

// ColorMask is the type of a color write mask.
type ColorMask int

// Color write masks.
const (
	CRed ColorMask = 1 << iota
	CGreen
	CBlue
	CAlpha
	CAll ColorMask = 1<<iota - 1
)

// Filter is the type of a sampler filter.
type Filter int

// Filters.
const (
	FNearest Filter = iota
	FLinear
)

// MipFilter is the type of a sampler mipmap filter.
type MipFilter int

// Mipmap filters.
const (
	MipNearest MipFilter = iota
	MipLinear
	MipNoMipmap
)

// ReductionMode is the type of a sampler reduction mode.
type ReductionMode int

// Reduction modes.
const (
	RWeightedAvg ReductionMode = iota
	RMin
	RMax
)

// AddrMode is the type of a sampler address mode.
type AddrMode int

// Address modes.
const (
	AWrap AddrMode = iota
	AMirror
	AClamp
)
