// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package memgpu

import "vkgraph/driver"

// Buffer is a driver.Buffer backed directly by a Go byte slice. Bytes
// exposes that slice only for a buffer created with Mappable set and
// returns nil otherwise.
type Buffer struct {
	info      driver.BufferInfo
	data      []byte
	destroyed bool
}

func (b *Buffer) Destroy()                  { b.destroyed = true }
func (b *Buffer) Info() driver.BufferInfo   { return b.info }
func (b *Buffer) Bytes() []byte {
	if !b.info.Mappable {
		return nil
	}
	return b.data
}

// mipDim returns the extent of mip level l of an image whose base
// extent is dim, halving (and flooring to 1) each dimension per level.
func mipDim(dim driver.Dim3D, l int) driver.Dim3D {
	for i := 0; i < l; i++ {
		dim.Width = max(1, dim.Width/2)
		dim.Height = max(1, dim.Height/2)
		dim.Depth = max(1, dim.Depth/2)
	}
	return dim
}

// formatSize returns the size in bytes of one texel of f. memgpu does
// not implement block-compressed formats, so every format here is a
// plain uncompressed layout.
func formatSize(f driver.PixelFmt) int {
	switch f {
	case driver.R8Unorm, driver.S8Uint:
		return 1
	case driver.RG8Unorm, driver.R16Float, driver.D16Unorm:
		return 2
	case driver.RGBA8Unorm, driver.RGBA8Norm, driver.RGBA8SRGB,
		driver.BGRA8Unorm, driver.BGRA8SRGB,
		driver.RG16Float, driver.R32Float, driver.D32Float, driver.D24UnormS8Uint:
		return 4
	case driver.RGBA16Float, driver.RG32Float, driver.D32FloatS8Uint:
		return 8
	case driver.RGBA32Float:
		return 16
	}
	return 4
}

// levelData holds the backing storage for one mip level, across every
// array layer of the image (layers are concatenated contiguously).
type levelData struct {
	dim  driver.Dim3D
	data []byte
}

// Image is a driver.Image backed by one byte slice per mip level.
type Image struct {
	info      driver.ImageInfo
	levels    []levelData
	texelSize int
	destroyed bool
}

func (img *Image) Destroy()                   { img.destroyed = true }
func (img *Image) Info() driver.ImageInfo     { return img.info }

func (img *Image) NewView(vi driver.ImageViewInfo) (driver.ImageView, error) {
	return &ImageView{img: img, info: vi}, nil
}

// layerOffset returns the byte offset and length of layer within level
// l's backing slice.
func (img *Image) layerOffset(l, layer int) (off, size int) {
	d := img.levels[l].dim
	size = d.Width * d.Height * d.Depth * img.texelSize
	return layer * size, size
}

// LayerBytes exposes the raw bytes for one (level, layer) subresource,
// for use by transfer commands and compute kernels that read or write
// image data directly. It is not part of driver.Image; callers must
// type-assert a driver.Image to *memgpu.Image to reach it.
func (img *Image) LayerBytes(level, layer int) []byte {
	off, size := img.layerOffset(level, layer)
	return img.levels[level].data[off : off+size]
}

// TexelOffset returns the byte offset of the texel at (x, y, z) within
// LayerBytes(level, layer).
func (img *Image) TexelOffset(level, x, y, z int) int {
	d := img.levels[level].dim
	return (z*d.Height*d.Width + y*d.Width + x) * img.texelSize
}

// LevelDim returns the extent of mip level l.
func (img *Image) LevelDim(l int) driver.Dim3D { return img.levels[l].dim }

// ImageView is a driver.ImageView referring back to its source Image,
// so command recording can reach the backing storage through a view
// alone, matching how descriptor writes and framebuffer attachments
// only ever carry views.
type ImageView struct {
	img       *Image
	info      driver.ImageViewInfo
	destroyed bool
}

func (v *ImageView) Destroy()                      { v.destroyed = true }
func (v *ImageView) Info() driver.ImageViewInfo    { return v.info }

type sampler struct {
	info      driver.SamplerInfo
	destroyed bool
}

func (s *sampler) Destroy() { s.destroyed = true }

// AccelStruct is a driver.AccelStruct backed by an opaque byte slice;
// memgpu does not simulate ray tracing, it only tracks the resource's
// lifetime for pool reuse tests.
type AccelStruct struct {
	info      driver.AccelStructInfo
	data      []byte
	destroyed bool
}

func (a *AccelStruct) Destroy()                      { a.destroyed = true }
func (a *AccelStruct) Info() driver.AccelStructInfo  { return a.info }

type pipeline struct {
	kernel    Kernel
	destroyed bool
}

func (p *pipeline) Destroy() { p.destroyed = true }

// DescriptorPool is a driver.DescriptorPool that keeps every write it
// receives in memory, keyed by (set, binding), so a compute kernel can
// read back exactly what a pass bound.
type DescriptorPool struct {
	info      driver.DescriptorPoolInfo
	writes    map[int][]driver.DescriptorWrite
	destroyed bool
}

func (d *DescriptorPool) Destroy()                       { d.destroyed = true }
func (d *DescriptorPool) Info() driver.DescriptorPoolInfo { return d.info }

func (d *DescriptorPool) Write(set int, binding driver.DescriptorBinding, writes []driver.DescriptorWrite) {
	d.writes[set*1000+binding.Binding] = writes
}

// Reads returns the writes last bound to (set, binding), or nil if
// nothing was ever written there.
func (d *DescriptorPool) Reads(set, binding int) []driver.DescriptorWrite {
	return d.writes[set*1000+binding]
}

// RenderPass is a driver.RenderPass that remembers its attachment load
// ops, so BeginPass can apply clears to the framebuffer it is given.
type RenderPass struct {
	info      driver.RenderPassInfo
	destroyed bool
}

func (r *RenderPass) Destroy()                      { r.destroyed = true }
func (r *RenderPass) Info() driver.RenderPassInfo   { return r.info }

func (r *RenderPass) NewFramebuffer(views []driver.ImageView, width, height, layers int) (driver.Framebuffer, error) {
	return &Framebuffer{pass: r, views: views, width: width, height: height, layers: layers}, nil
}

// Framebuffer binds concrete image views to a RenderPass's attachment
// slots for one execution.
type Framebuffer struct {
	pass      *RenderPass
	views     []driver.ImageView
	width, height, layers int
	destroyed bool
}

func (f *Framebuffer) Destroy() { f.destroyed = true }
