// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package driver

// Dim3D is a three-dimensional size.
type Dim3D struct{ Width, Height, Depth int }

// Off3D is a three-dimensional offset.
type Off3D struct{ X, Y, Z int }

// BufferInfo describes a buffer resource.
//
// Two BufferInfo values are compatible, per IsCompatibleWith, when the
// receiver (a retired, cached buffer) can serve a lease request
// described by the argument.
type BufferInfo struct {
	Size      int64
	Usage     Usage
	Alignment int64
	Mappable  bool
}

// IsCompatibleWith reports whether a cached buffer described by bi can
// satisfy a lease request described by req.
func (bi BufferInfo) IsCompatibleWith(req BufferInfo) bool {
	return bi.Size >= req.Size &&
		bi.Alignment >= req.Alignment &&
		bi.Mappable == req.Mappable &&
		bi.Usage.Contains(req.Usage)
}

// ImageInfo describes an image resource.
type ImageInfo struct {
	Type        ImageType
	Dim         Dim3D
	Layers      int
	Levels      int
	Samples     int
	Format      PixelFmt
	Tiling      Tiling
	Usage       Usage
	Flags       ImageFlags
}

// IsCompatibleWith reports whether a cached image described by ii can
// satisfy a lease request described by req. Every discrete field must
// match exactly; usage and flags need only be supersets.
func (ii ImageInfo) IsCompatibleWith(req ImageInfo) bool {
	return ii.Type == req.Type &&
		ii.Dim == req.Dim &&
		ii.Layers == req.Layers &&
		ii.Levels == req.Levels &&
		ii.Samples == req.Samples &&
		ii.Format == req.Format &&
		ii.Tiling == req.Tiling &&
		ii.Usage.Contains(req.Usage) &&
		ii.Flags.Contains(req.Flags)
}

// DefaultView returns the ImageViewInfo that covers every mip level and
// array layer of an image described by ii, picking the color or
// depth/stencil aspect from its format.
func (ii ImageInfo) DefaultView() ImageViewInfo {
	aspect := AspectColor
	if ii.Format.IsDepthStencil() {
		aspect = AspectDepth
		if ii.Format == S8Uint || ii.Format == D24UnormS8Uint || ii.Format == D32FloatS8Uint {
			aspect |= AspectStencil
		}
	}
	typ := View2D
	switch {
	case ii.Type == Image1D && ii.Layers > 1:
		typ = View1DArray
	case ii.Type == Image1D:
		typ = View1D
	case ii.Type == Image3D:
		typ = View3D
	case ii.Type == ImageCube && ii.Layers > 6:
		typ = ViewCubeArray
	case ii.Type == ImageCube:
		typ = ViewCube
	case ii.Layers > 1:
		typ = View2DArray
	}
	return ImageViewInfo{
		BaseLevel: 0,
		Levels:    ii.Levels,
		BaseLayer: 0,
		Layers:    ii.Layers,
		Type:      typ,
		Aspect:    aspect,
		Format:    ii.Format,
	}
}

// ImageViewInfo describes a typed view into a subrange of an image.
type ImageViewInfo struct {
	BaseLevel int
	Levels    int
	BaseLayer int
	Layers    int
	Type      ViewType
	Aspect    Aspect
	Format    PixelFmt
	Swizzle   Swizzle
}

// SamplerInfo describes a sampler's filtering and addressing state.
type SamplerInfo struct {
	Min, Mag   Filter
	Mipmap     MipFilter
	Reduction  ReductionMode
	AddrU      AddrMode
	AddrV      AddrMode
	AddrW      AddrMode
	MaxAniso   int
	Cmp        CmpFunc
	UseCompare bool
	MinLOD     float32
	MaxLOD     float32
	LODBias    float32
}

// AccelStructInfo describes an acceleration structure.
type AccelStructInfo struct {
	Type AccelStructType
	Size int64
}

// IsCompatibleWith reports whether a cached acceleration structure
// described by ai can satisfy a lease request described by req.
func (ai AccelStructInfo) IsCompatibleWith(req AccelStructInfo) bool {
	return ai.Type == req.Type && ai.Size >= req.Size
}

// DescriptorPoolInfo describes the storage capacity of a descriptor
// pool: the maximum number of descriptor sets it can allocate plus a
// per-DescType counter of how many descriptors of that type it can
// hold across every set allocated from it.
type DescriptorPoolInfo struct {
	MaxSets int
	Counts  [6]int // indexed by DescType
}

// IsCompatibleWith reports whether a cached descriptor pool described
// by dpi can satisfy a lease request described by req: every counter,
// and MaxSets, must be at least as large as requested.
func (dpi DescriptorPoolInfo) IsCompatibleWith(req DescriptorPoolInfo) bool {
	if dpi.MaxSets < req.MaxSets {
		return false
	}
	for i := range dpi.Counts {
		if dpi.Counts[i] < req.Counts[i] {
			return false
		}
	}
	return true
}

// AttachmentInfo describes one color or depth/stencil attachment of a
// render pass.
type AttachmentInfo struct {
	Format  PixelFmt
	Samples int
	Load    LoadOp
	Store   StoreOp
	// StencilLoad/StencilStore apply only to combined depth/stencil
	// attachments; they are ignored otherwise.
	StencilLoad  LoadOp
	StencilStore StoreOp
	InitialLayout Layout
	FinalLayout   Layout
}

// SubpassInfo describes one subpass of a render pass in terms of
// indices into RenderPassInfo.Color (Depth, if >= 0, indexes a
// combined color+depth attachment list where depth always follows the
// color entries).
type SubpassInfo struct {
	Color   []int
	Depth   int // -1 if unused
	Inputs  []int
	Resolve []int
}

// SubpassDependency describes an explicit ordering constraint between
// two subpasses of the same render pass (or between external work and
// the first/last subpass, using SubpassExternal).
type SubpassDependency struct {
	Src, Dst           int
	SrcSync, DstSync   Sync
	SrcAccess, DstAccess Access
}

// SubpassExternal denotes work outside of the render pass in a
// SubpassDependency.
const SubpassExternal = -1

// RenderPassInfo describes the attachment and subpass layout of a
// render pass. Unlike the other descriptors, render passes are reused
// only when the descriptor is exactly equal, so RenderPassInfo
// additionally exposes Key, a string suitable for use as a map key,
// since its slice fields keep it from being a comparable Go type.
type RenderPassInfo struct {
	Color []AttachmentInfo
	Depth *AttachmentInfo
	Subpasses []SubpassInfo
	Deps      []SubpassDependency
}

// Key returns a canonical string encoding of rpi suitable for use as a
// map key or for equality comparison.
func (rpi RenderPassInfo) Key() string {
	var b []byte
	appendInt := func(n int) { b = append(b, []byte{byte(n), byte(n >> 8), byte(n >> 16), byte(n >> 24)}...) }
	appendInt(len(rpi.Color))
	for _, a := range rpi.Color {
		appendInt(int(a.Format))
		appendInt(a.Samples)
		appendInt(int(a.Load))
		appendInt(int(a.Store))
		appendInt(int(a.StencilLoad))
		appendInt(int(a.StencilStore))
		appendInt(int(a.InitialLayout))
		appendInt(int(a.FinalLayout))
	}
	if rpi.Depth != nil {
		b = append(b, 1)
		appendInt(int(rpi.Depth.Format))
		appendInt(rpi.Depth.Samples)
		appendInt(int(rpi.Depth.Load))
		appendInt(int(rpi.Depth.Store))
		appendInt(int(rpi.Depth.StencilLoad))
		appendInt(int(rpi.Depth.StencilStore))
		appendInt(int(rpi.Depth.InitialLayout))
		appendInt(int(rpi.Depth.FinalLayout))
	} else {
		b = append(b, 0)
	}
	appendInt(len(rpi.Subpasses))
	for _, s := range rpi.Subpasses {
		appendInt(len(s.Color))
		for _, c := range s.Color {
			appendInt(c)
		}
		appendInt(s.Depth)
		appendInt(len(s.Inputs))
		for _, c := range s.Inputs {
			appendInt(c)
		}
		appendInt(len(s.Resolve))
		for _, c := range s.Resolve {
			appendInt(c)
		}
	}
	appendInt(len(rpi.Deps))
	for _, d := range rpi.Deps {
		appendInt(d.Src)
		appendInt(d.Dst)
		appendInt(int(d.SrcSync))
		appendInt(int(d.DstSync))
		appendInt(int(d.SrcAccess))
		appendInt(int(d.DstAccess))
	}
	return string(b)
}

// CommandBufferInfo identifies the queue family a command buffer is
// meant to be submitted on.
type CommandBufferInfo struct {
	QueueFamilyIndex int
}
