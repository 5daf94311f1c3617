// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package graph

import (
	"encoding/binary"
	"testing"

	"vkgraph/driver"
	"vkgraph/driver/memgpu"
	"vkgraph/pool"
)

func newEnv() (driver.GPU, pool.Pool) {
	gpu := memgpu.New()
	return gpu, pool.NewFifoPool(gpu, pool.Limits{})
}

// TestBarrierBetweenComputeWriteAndFragmentSample exercises a compute
// pass that writes a storage image followed by a pass that samples the
// same image from the fragment stage, and checks that the resolver
// records exactly one transition moving the node directly from the
// write access to the read access.
func TestBarrierBetweenComputeWriteAndFragmentSample(t *testing.T) {
	gpu, p := newEnv()
	img, err := gpu.NewImage(driver.ImageInfo{
		Type: driver.Image2D, Dim: driver.Dim3D{Width: 4, Height: 4, Depth: 1},
		Layers: 1, Levels: 1, Samples: 1, Format: driver.RGBA8Unorm,
		Usage: driver.UShaderWrite | driver.UShaderSample,
	})
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}

	g := New(gpu, p, Options{})
	node := g.BindImage(img, AccessNone)

	if err := g.RecordPass("write").RecordCompute(nil).
		AccessNode(node.Node, StorageImageWriteCompute, nil).Submit(); err != nil {
		t.Fatalf("write pass Submit: %v", err)
	}
	if err := g.RecordPass("read").RecordCompute(nil).
		AccessNode(node.Node, SampledImageReadFragment, nil).Submit(); err != nil {
		t.Fatalf("read pass Submit: %v", err)
	}

	rec, err := g.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	cb, ok := rec.cmdLease.Get().(*memgpu.CommandBuffer)
	if !ok {
		t.Fatalf("command buffer is not *memgpu.CommandBuffer")
	}

	if len(cb.Transitions) != 2 {
		t.Fatalf("got %d transitions, want 2 (bind->write, write->read)", len(cb.Transitions))
	}
	last := cb.Transitions[1]
	if last.SyncBefore != StorageImageWriteCompute.Sync() || last.SyncAfter != SampledImageReadFragment.Sync() {
		t.Errorf("sync scopes: got before=%v after=%v", last.SyncBefore, last.SyncAfter)
	}
	if last.AccessBefore != StorageImageWriteCompute.Access() || last.AccessAfter != SampledImageReadFragment.Access() {
		t.Errorf("access masks: got before=%v after=%v", last.AccessBefore, last.AccessAfter)
	}
	if last.LayoutBefore != StorageImageWriteCompute.Layout() || last.LayoutAfter != SampledImageReadFragment.Layout() {
		t.Errorf("layouts: got before=%v after=%v", last.LayoutBefore, last.LayoutAfter)
	}
}

// TestNoBarrierAcrossReadOnlySequenceSameLayout checks that a run of
// read-only accesses that all require the same layout produces no
// transitions at all.
func TestNoBarrierAcrossReadOnlySequenceSameLayout(t *testing.T) {
	gpu, p := newEnv()
	img, err := gpu.NewImage(driver.ImageInfo{
		Type: driver.Image2D, Dim: driver.Dim3D{Width: 4, Height: 4, Depth: 1},
		Layers: 1, Levels: 1, Samples: 1, Format: driver.RGBA8Unorm,
		Usage: driver.UShaderSample,
	})
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}

	g := New(gpu, p, Options{})
	node := g.BindImage(img, SampledImageReadCompute)

	reads := []AccessType{SampledImageReadVertex, SampledImageReadFragment, SampledImageReadCompute}
	for i, a := range reads {
		if err := g.RecordPass("read").RecordExecute(nil).
			AccessNode(node.Node, a, nil).Submit(); err != nil {
			t.Fatalf("read pass %d Submit: %v", i, err)
		}
	}

	rec, err := g.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	cb := rec.cmdLease.Get().(*memgpu.CommandBuffer)
	if len(cb.Transitions) != 0 {
		t.Fatalf("got %d transitions, want 0 for a read-only sequence at a stable layout", len(cb.Transitions))
	}
}

// TestMergedGraphicsPassesEmitOneBeginEndPair checks that a run of
// compatible graphics passes materializes as a single render pass:
// one BeginPass/EndPass pair with one NextSubpass per extra subpass.
func TestMergedGraphicsPassesEmitOneBeginEndPair(t *testing.T) {
	gpu, p := newEnv()
	img, err := gpu.NewImage(driver.ImageInfo{
		Type: driver.Image2D, Dim: driver.Dim3D{Width: 4, Height: 4, Depth: 1},
		Layers: 1, Levels: 1, Samples: 1, Format: driver.RGBA8Unorm,
		Usage: driver.URenderTarget,
	})
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}

	g := New(gpu, p, Options{DisablePassCulling: true})
	node := g.BindImage(img, AccessNone)

	if err := g.RecordPass("clear").RecordSubpass(nil).
		ClearColorValue(0, node, [4]float32{0, 0, 0, 1}).Submit(); err != nil {
		t.Fatalf("clear pass Submit: %v", err)
	}
	if err := g.RecordPass("draw1").RecordSubpass(nil).
		LoadColor(0, node).Submit(); err != nil {
		t.Fatalf("draw1 pass Submit: %v", err)
	}
	if err := g.RecordPass("draw2").RecordSubpass(nil).
		LoadColor(0, node).Submit(); err != nil {
		t.Fatalf("draw2 pass Submit: %v", err)
	}

	rec, err := g.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	cb := rec.cmdLease.Get().(*memgpu.CommandBuffer)

	if cb.BeginPassCalls != 1 || cb.EndPassCalls != 1 {
		t.Errorf("got BeginPassCalls=%d EndPassCalls=%d, want 1 and 1", cb.BeginPassCalls, cb.EndPassCalls)
	}
	if cb.NextSubpassCalls != 2 {
		t.Errorf("got NextSubpassCalls=%d, want 2 (3 subpasses merged into one pass)", cb.NextSubpassCalls)
	}
}

// TestMergeSplitsGroupOnWriteThenReadDependency checks that a graphics
// pass is not folded into the current group as a subpass if it reads
// (here, samples via a descriptor) a node the group already wrote as a
// color attachment: that dependency has no subpass boundary to be
// ordered against within a single render pass, so it must force a new
// group and an ordinary cross-group barrier instead.
func TestMergeSplitsGroupOnWriteThenReadDependency(t *testing.T) {
	gpu, p := newEnv()
	imgX, err := gpu.NewImage(driver.ImageInfo{
		Type: driver.Image2D, Dim: driver.Dim3D{Width: 4, Height: 4, Depth: 1},
		Layers: 1, Levels: 1, Samples: 1, Format: driver.RGBA8Unorm,
		Usage: driver.URenderTarget | driver.UShaderSample,
	})
	if err != nil {
		t.Fatalf("NewImage X: %v", err)
	}
	imgY, err := gpu.NewImage(driver.ImageInfo{
		Type: driver.Image2D, Dim: driver.Dim3D{Width: 4, Height: 4, Depth: 1},
		Layers: 1, Levels: 1, Samples: 1, Format: driver.RGBA8Unorm,
		Usage: driver.URenderTarget,
	})
	if err != nil {
		t.Fatalf("NewImage Y: %v", err)
	}

	g := New(gpu, p, Options{DisablePassCulling: true})
	nodeX := g.BindImage(imgX, AccessNone)
	nodeY := g.BindImage(imgY, AccessNone)

	if err := g.RecordPass("writeX").RecordSubpass(nil).
		ClearColorValue(0, nodeX, [4]float32{1, 0, 0, 1}).Submit(); err != nil {
		t.Fatalf("writeX Submit: %v", err)
	}
	if err := g.RecordPass("readXWriteY").RecordSubpass(nil).
		ClearColorValue(0, nodeY, [4]float32{0, 0, 0, 1}).
		ReadDescriptor(0, 0, 0, nodeX, driver.SFragment, driver.DTexture, nil).
		Submit(); err != nil {
		t.Fatalf("readXWriteY Submit: %v", err)
	}

	rec, err := g.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	cb := rec.cmdLease.Get().(*memgpu.CommandBuffer)

	if cb.BeginPassCalls != 2 || cb.EndPassCalls != 2 {
		t.Errorf("got BeginPassCalls=%d EndPassCalls=%d, want 2 and 2 (write->read dependency must split the group)", cb.BeginPassCalls, cb.EndPassCalls)
	}
	if cb.NextSubpassCalls != 0 {
		t.Errorf("got NextSubpassCalls=%d, want 0 (neither group merges a second subpass)", cb.NextSubpassCalls)
	}
}

// TestUnbindAfterResolveReflectsLastAccess checks that unbinding a node
// after Resolve reports the access type recorded by the last pass that
// touched it.
func TestUnbindAfterResolveReflectsLastAccess(t *testing.T) {
	gpu, p := newEnv()
	buf, err := gpu.NewBuffer(driver.BufferInfo{Size: 64, Usage: driver.UShaderWrite, Mappable: true})
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}

	g := New(gpu, p, Options{DisablePassCulling: true})
	node := g.BindBuffer(buf, AccessNone)

	if err := g.RecordPass("write").RecordExecute(nil).
		AccessNode(node.Node, StorageBufferWriteCompute, nil).Submit(); err != nil {
		t.Fatalf("write pass Submit: %v", err)
	}

	if _, err := g.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	_, access, err := g.UnbindBuffer(node)
	if err != nil {
		t.Fatalf("UnbindBuffer: %v", err)
	}
	if access != StorageBufferWriteCompute {
		t.Errorf("got last access %v, want %v", access, StorageBufferWriteCompute)
	}
}

// TestResolveCalledTwiceFails checks that a graph cannot be resolved
// more than once.
func TestResolveCalledTwiceFails(t *testing.T) {
	gpu, p := newEnv()
	g := New(gpu, p, Options{})
	if _, err := g.Resolve(); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	if _, err := g.Resolve(); err == nil {
		t.Fatal("second Resolve: got nil error, want one")
	}
}

// TestClearBlitReadback clears a 2x2 image to a solid color, tiles it
// four times into a 4x4 image via CopyImage, then reads the 4x4 image
// back into a buffer via CopyImgToBuf, checking that every one of the
// 16 resulting texels carries the cleared color.
func TestClearBlitReadback(t *testing.T) {
	gpu, p := newEnv()

	small, err := gpu.NewImage(driver.ImageInfo{
		Type: driver.Image2D, Dim: driver.Dim3D{Width: 2, Height: 2, Depth: 1},
		Layers: 1, Levels: 1, Samples: 1, Format: driver.RGBA8Unorm,
		Usage: driver.URenderTarget | driver.UCopySrc,
	})
	if err != nil {
		t.Fatalf("NewImage(small): %v", err)
	}
	tiled, err := gpu.NewImage(driver.ImageInfo{
		Type: driver.Image2D, Dim: driver.Dim3D{Width: 4, Height: 4, Depth: 1},
		Layers: 1, Levels: 1, Samples: 1, Format: driver.RGBA8Unorm,
		Usage: driver.UCopyDst | driver.UCopySrc,
	})
	if err != nil {
		t.Fatalf("NewImage(tiled): %v", err)
	}
	readback, err := gpu.NewBuffer(driver.BufferInfo{Size: 64, Usage: driver.UCopyDst, Mappable: true})
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}

	g := New(gpu, p, Options{DisablePassCulling: true})
	smallNode := g.BindImage(small, AccessNone)
	tiledNode := g.BindImage(tiled, AccessNone)
	bufNode := g.BindBuffer(readback, AccessNone)

	if err := g.RecordPass("clear").RecordSubpass(nil).
		ClearColorValue(0, smallNode, [4]float32{1, 1, 0, 1}).Submit(); err != nil {
		t.Fatalf("clear pass Submit: %v", err)
	}

	blit := g.RecordPass("blit").RecordExecute(func(cb driver.CommandBuffer, r *Resolved) {
		src := r.Image(smallNode)
		dst := r.Image(tiledNode)
		offsets := [][2]int{{0, 0}, {2, 0}, {0, 2}, {2, 2}}
		for _, o := range offsets {
			cb.CopyImage(&driver.ImageCopy{
				From: src, To: dst, Layers: 1,
				Size:  driver.Dim3D{Width: 2, Height: 2, Depth: 1},
				ToOff: driver.Off3D{X: o[0], Y: o[1]},
			})
		}
	})
	if err := blit.
		AccessNode(smallNode.Node, TransferRead, nil).
		AccessNode(tiledNode.Node, TransferWrite, nil).Submit(); err != nil {
		t.Fatalf("blit pass Submit: %v", err)
	}

	readPass := g.RecordPass("readback").RecordExecute(func(cb driver.CommandBuffer, r *Resolved) {
		cb.CopyImgToBuf(&driver.BufImgCopy{
			Buf: r.Buffer(bufNode), Img: r.Image(tiledNode),
			Stride: [2]int64{4, 4},
			Size:   driver.Dim3D{Width: 4, Height: 4, Depth: 1},
		})
	})
	if err := readPass.
		AccessNode(tiledNode.Node, TransferRead, nil).
		AccessNode(bufNode.Node, TransferWrite, nil).Submit(); err != nil {
		t.Fatalf("readback pass Submit: %v", err)
	}

	if _, err := g.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	got := readback.(*memgpu.Buffer).Bytes()
	if len(got) != 64 {
		t.Fatalf("got %d readback bytes, want 64", len(got))
	}
	want := [4]byte{255, 255, 0, 255}
	for i := 0; i < 16; i++ {
		texel := [4]byte{got[i*4], got[i*4+1], got[i*4+2], got[i*4+3]}
		if texel != want {
			t.Fatalf("texel %d: got %v, want %v", i, texel, want)
		}
	}
}

// TestExclusivePrefixSum runs a two-pass hierarchical exclusive scan
// (per-workgroup reduce, then scan using the reduced sums) over a
// 16-element buffer split into workgroups of 8, through the render
// graph's descriptor and barrier machinery.
func TestExclusivePrefixSum(t *testing.T) {
	const n = 16
	const wgSize = 8
	const groups = n / wgSize

	memgpu.RegisterKernel("prefix_sum_reduce", func(dp *memgpu.DescriptorPool, gx, gy, gz int) {
		in := dp.Reads(0, 0)[0].Buffer.(*memgpu.Buffer).Bytes()
		out := dp.Reads(0, 1)[0].Buffer.(*memgpu.Buffer).Bytes()
		for g := 0; g < gx; g++ {
			var sum int32
			for i := 0; i < wgSize; i++ {
				sum += int32(binary.LittleEndian.Uint32(in[(g*wgSize+i)*4:]))
			}
			binary.LittleEndian.PutUint32(out[g*4:], uint32(sum))
		}
	})
	memgpu.RegisterKernel("prefix_sum_scan", func(dp *memgpu.DescriptorPool, gx, gy, gz int) {
		in := dp.Reads(0, 0)[0].Buffer.(*memgpu.Buffer).Bytes()
		partials := dp.Reads(0, 1)[0].Buffer.(*memgpu.Buffer).Bytes()
		out := dp.Reads(0, 2)[0].Buffer.(*memgpu.Buffer).Bytes()
		var groupOffset int32
		for g := 0; g < gx; g++ {
			if g > 0 {
				groupOffset += int32(binary.LittleEndian.Uint32(partials[(g-1)*4:]))
			}
			var running int32
			for i := 0; i < wgSize; i++ {
				idx := g*wgSize + i
				v := int32(binary.LittleEndian.Uint32(in[idx*4:]))
				binary.LittleEndian.PutUint32(out[idx*4:], uint32(groupOffset+running))
				running += v
			}
		}
	})

	gpu, p := newEnv()

	inputData := make([]byte, n*4)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(inputData[i*4:], uint32(i))
	}
	input, err := gpu.NewBuffer(driver.BufferInfo{Size: n * 4, Usage: driver.UShaderRead, Mappable: true})
	if err != nil {
		t.Fatalf("NewBuffer(input): %v", err)
	}
	copy(input.(*memgpu.Buffer).Bytes(), inputData)

	partials, err := gpu.NewBuffer(driver.BufferInfo{Size: groups * 4, Usage: driver.UShaderWrite, Mappable: true})
	if err != nil {
		t.Fatalf("NewBuffer(partials): %v", err)
	}
	output, err := gpu.NewBuffer(driver.BufferInfo{Size: n * 4, Usage: driver.UShaderWrite, Mappable: true})
	if err != nil {
		t.Fatalf("NewBuffer(output): %v", err)
	}

	reducePipe, err := gpu.NewComputePipeline(driver.ComputePipelineInfo{
		Stage: driver.ShaderStageInfo{Stage: driver.SCompute, EntryPoint: "prefix_sum_reduce"},
	})
	if err != nil {
		t.Fatalf("NewComputePipeline(reduce): %v", err)
	}
	scanPipe, err := gpu.NewComputePipeline(driver.ComputePipelineInfo{
		Stage: driver.ShaderStageInfo{Stage: driver.SCompute, EntryPoint: "prefix_sum_scan"},
	})
	if err != nil {
		t.Fatalf("NewComputePipeline(scan): %v", err)
	}

	g := New(gpu, p, Options{DisablePassCulling: true})
	inputNode := g.BindBuffer(input, AccessNone)
	partialsNode := g.BindBuffer(partials, AccessNone)
	outputNode := g.BindBuffer(output, AccessNone)

	reduce := g.RecordPass("reduce").BindPipeline(reducePipe).
		RecordCompute(func(cb driver.CommandBuffer, r *Resolved) { cb.Dispatch(groups, 1, 1) })
	if err := reduce.
		ReadBufferDescriptor(0, 0, 0, inputNode, driver.SCompute).
		WriteBufferDescriptor(0, 1, 0, partialsNode, driver.SCompute).Submit(); err != nil {
		t.Fatalf("reduce pass Submit: %v", err)
	}

	scan := g.RecordPass("scan").BindPipeline(scanPipe).
		RecordCompute(func(cb driver.CommandBuffer, r *Resolved) { cb.Dispatch(groups, 1, 1) })
	if err := scan.
		ReadBufferDescriptor(0, 0, 0, inputNode, driver.SCompute).
		ReadBufferDescriptor(0, 1, 0, partialsNode, driver.SCompute).
		WriteBufferDescriptor(0, 2, 0, outputNode, driver.SCompute).Submit(); err != nil {
		t.Fatalf("scan pass Submit: %v", err)
	}

	if _, err := g.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	want := []int32{0, 0, 1, 3, 6, 10, 15, 21, 28, 36, 45, 55, 66, 78, 91, 105}
	got := output.(*memgpu.Buffer).Bytes()
	for i, w := range want {
		v := int32(binary.LittleEndian.Uint32(got[i*4:]))
		if v != w {
			t.Errorf("output[%d] = %d, want %d", i, v, w)
		}
	}
}

// TestMinMaxMipReduction fills a 4x4 depth image with values 0..15 in
// row-major order and reduces each 2x2 block into mip level 1 using a
// max reduction recorded directly against the bound image's storage.
func TestMinMaxMipReduction(t *testing.T) {
	gpu, p := newEnv()
	img, err := gpu.NewImage(driver.ImageInfo{
		Type: driver.Image2D, Dim: driver.Dim3D{Width: 4, Height: 4, Depth: 1},
		Layers: 1, Levels: 2, Samples: 1, Format: driver.D32Float,
		Usage: driver.UShaderWrite,
	})
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}

	g := New(gpu, p, Options{DisablePassCulling: true})
	node := g.BindImage(img, AccessNone)

	reduce := g.RecordPass("mip-reduce").RecordCompute(func(cb driver.CommandBuffer, r *Resolved) {
		mi := r.Image(node).(*memgpu.Image)
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				mi.SetF32(0, 0, x, y, 0, float32(y*4+x))
			}
		}
		for by := 0; by < 2; by++ {
			for bx := 0; bx < 2; bx++ {
				max := float32(-1)
				for dy := 0; dy < 2; dy++ {
					for dx := 0; dx < 2; dx++ {
						if v := mi.GetF32(0, 0, bx*2+dx, by*2+dy, 0); v > max {
							max = v
						}
					}
				}
				mi.SetF32(1, 0, bx, by, 0, max)
			}
		}
	})
	if err := reduce.AccessNode(node.Node, StorageImageWriteCompute, nil).Submit(); err != nil {
		t.Fatalf("mip-reduce pass Submit: %v", err)
	}

	if _, err := g.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	mi := img.(*memgpu.Image)
	want := [2][2]float32{{5, 7}, {13, 15}}
	for by := 0; by < 2; by++ {
		for bx := 0; bx < 2; bx++ {
			if got := mi.GetF32(1, 0, bx, by, 0); got != want[by][bx] {
				t.Errorf("mip1[%d][%d] = %v, want %v", by, bx, got, want[by][bx])
			}
		}
	}
}
