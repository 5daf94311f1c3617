// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package driver

// Barrier represents a global synchronization barrier with no layout
// transition.
type Barrier struct {
	SyncBefore   Sync
	SyncAfter    Sync
	AccessBefore Access
	AccessAfter  Access
}

// Transition represents a layout transition on a specific image
// subresource, combined with the synchronization scopes that must
// surround it.
type Transition struct {
	Barrier
	LayoutBefore Layout
	LayoutAfter  Layout
	View         ImageView
}

// ClearValue defines clear values for the color or depth/stencil
// aspect of a render target.
type ClearValue struct {
	Color   [4]float32
	Depth   float32
	Stencil uint32
}

// Viewport defines the bounds of a single viewport.
type Viewport struct {
	X, Y, Width, Height, ZNear, ZFar float32
}

// Scissor defines a single scissor rectangle.
type Scissor struct {
	X, Y, Width, Height int
}

// BufferCopy describes a copy between two buffer ranges.
type BufferCopy struct {
	From, To         Buffer
	FromOff, ToOff   int64
	Size             int64
}

// ImageCopy describes a copy between two image subresources.
type ImageCopy struct {
	From       Image
	FromOff    Off3D
	FromLayer  int
	FromLevel  int
	To         Image
	ToOff      Off3D
	ToLayer    int
	ToLevel    int
	Size       Dim3D
	Layers     int
}

// BufImgCopy describes a copy between a buffer range and an image
// subresource.
type BufImgCopy struct {
	Buf    Buffer
	BufOff int64
	// Stride[0] is the row length and Stride[1] is the image height,
	// both given in pixels, used to address image data in the
	// buffer.
	Stride [2]int64
	Img    Image
	ImgOff Off3D
	Layer  int
	Level  int
	Size   Dim3D
	// DepthCopy selects the depth aspect (rather than stencil) of a
	// combined depth/stencil image.
	DepthCopy bool
}
