// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package memgpu

import (
	"encoding/binary"
	"math"
)

func f32bits(v float32) uint32 { return math.Float32bits(v) }

func putU32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }

func getU32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

// GetF32 reads the 32-bit float texel at (x, y, z) of mip level level,
// array layer layer. The image's format is not checked: the first 4
// bytes of the texel are read as a float32, and a read past the end of
// the layer panics.
func (img *Image) GetF32(level, layer, x, y, z int) float32 {
	data := img.LayerBytes(level, layer)
	off := img.TexelOffset(level, x, y, z)
	return math.Float32frombits(getU32(data[off : off+4]))
}

// SetF32 writes a 32-bit float texel at (x, y, z) of mip level level,
// array layer layer.
func (img *Image) SetF32(level, layer, x, y, z int, v float32) {
	data := img.LayerBytes(level, layer)
	off := img.TexelOffset(level, x, y, z)
	putU32(data[off:off+4], f32bits(v))
}
