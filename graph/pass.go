// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package graph

import "vkgraph/driver"

// passKind distinguishes how a Pass is materialized: graphics passes
// merge into render-pass subpasses; ray-trace, compute, and transfer
// passes never merge with each other or with graphics passes.
type passKind uint8

const (
	passGraphics passKind = iota
	passCompute
	passTransfer
	passRayTrace
)

// nodeAccess is one `(node, access_type, optional view)` triple
// recorded against a pass.
type nodeAccess struct {
	node   Node
	access AccessType
	view   *driver.ImageViewInfo
}

// descriptorWrite is one binding-level access recorded through
// ReadDescriptor/WriteDescriptor. descType is kept alongside access so
// the resolver can size a shared descriptor pool's per-DescType
// counters correctly instead of assuming every write is image-backed.
type descriptorWrite struct {
	set, binding, arrayIndex int
	node                     Node
	access                   AccessType
	descType                 driver.DescType
	view                     *driver.ImageViewInfo
}

// colorAttachment describes one color attachment slot of a graphics
// pass.
type colorAttachment struct {
	node       ImageNode
	load       driver.LoadOp
	store      driver.StoreOp
	clear      [4]float32
	resolveOf  int // index of the source attachment this one resolves, or -1
}

// depthAttachment describes the depth/stencil attachment of a
// graphics pass.
type depthAttachment struct {
	node         ImageNode
	write        bool
	clear        bool
	clearDepth   float32
	clearStencil uint32
}

// pushConstant is one `push_constants`/`push_constants_offset` call.
type pushConstant struct {
	offset int
	data   []byte
}

// Pass is the immutable record a PassBuilder produces. Once appended
// to a graph it is never mutated again.
type Pass struct {
	name string
	kind passKind

	accesses   []nodeAccess
	pipeline   driver.Pipeline
	descWrites []descriptorWrite

	color map[int]colorAttachment
	depth *depthAttachment

	areaX, areaY, areaW, areaH int
	hasArea                    bool

	record func(driver.CommandBuffer, *Resolved)

	pushConstants []pushConstant
	pushStages    driver.Stage
}

// Resolved is handed to a pass's recording closure at playback time:
// it resolves a Node back to its concrete driver resource.
type Resolved struct {
	g *RenderGraph
}

// Image returns the driver.Image bound to n.
func (r *Resolved) Image(n ImageNode) driver.Image {
	e, ok := r.g.nodes.get(n.Node)
	if !ok {
		return nil
	}
	return e.resource.(driver.Image)
}

// Buffer returns the driver.Buffer bound to n.
func (r *Resolved) Buffer(n BufferNode) driver.Buffer {
	e, ok := r.g.nodes.get(n.Node)
	if !ok {
		return nil
	}
	return e.resource.(driver.Buffer)
}

// AccelStruct returns the driver.AccelStruct bound to n.
func (r *Resolved) AccelStruct(n AccelStructNode) driver.AccelStruct {
	e, ok := r.g.nodes.get(n.Node)
	if !ok {
		return nil
	}
	return e.resource.(driver.AccelStruct)
}

// View returns the driver.ImageView bound to n.
func (r *Resolved) View(n ViewNode) driver.ImageView {
	e, ok := r.g.nodes.get(n.Node)
	if !ok {
		return nil
	}
	return e.resource.(driver.ImageView)
}

// PassBuilder builds a single Pass against the graph that created it.
// Every method returns the builder itself so calls can be chained; a
// validation failure is recorded and returned once, by Submit.
type PassBuilder struct {
	g   *RenderGraph
	p   Pass
	err error
}

// newPassBuilder starts a pass of kind passTransfer; whichever of
// RecordSubpass/RecordCompute/RecordExecute is called then sets the
// kind, since graphics, compute, and general transfer passes are
// distinguished by which record_* method is used.
func newPassBuilder(g *RenderGraph, name string) *PassBuilder {
	return &PassBuilder{g: g, p: Pass{name: name, kind: passTransfer, color: make(map[int]colorAttachment)}}
}

func (b *PassBuilder) fail(err error) *PassBuilder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// AccessNode records a general access of node at access, where node is
// one of ImageNode, BufferNode, AccelStructNode, or ViewNode.
func (b *PassBuilder) AccessNode(node Node, access AccessType, view *driver.ImageViewInfo) *PassBuilder {
	if b.err != nil {
		return b
	}
	if _, ok := b.g.nodes.get(node); !ok {
		return b.fail(newGraphErr("access_node: node not bound to this graph"))
	}
	b.p.accesses = append(b.p.accesses, nodeAccess{node: node, access: access, view: view})
	return b
}

// BindPipeline records the pipeline this pass executes with.
func (b *PassBuilder) BindPipeline(pl driver.Pipeline) *PassBuilder {
	b.p.pipeline = pl
	return b
}

// ReadDescriptor records a descriptor read of node at (set, binding,
// arrayIndex), implying access on the underlying image node given
// stage and descType.
func (b *PassBuilder) ReadDescriptor(set, binding, arrayIndex int, node ImageNode, stage driver.Stage, descType driver.DescType, view *driver.ImageViewInfo) *PassBuilder {
	if b.err != nil {
		return b
	}
	access, err := inferImageDescriptorAccess(descType, stage, false)
	if err != nil {
		return b.fail(err)
	}
	return b.writeDescriptor(set, binding, arrayIndex, node.Node, access, descType, view)
}

// WriteDescriptor records a descriptor write of node at (set, binding,
// arrayIndex).
func (b *PassBuilder) WriteDescriptor(set, binding, arrayIndex int, node ImageNode, stage driver.Stage, descType driver.DescType, view *driver.ImageViewInfo) *PassBuilder {
	if b.err != nil {
		return b
	}
	access, err := inferImageDescriptorAccess(descType, stage, true)
	if err != nil {
		return b.fail(err)
	}
	return b.writeDescriptor(set, binding, arrayIndex, node.Node, access, descType, view)
}

// ReadBufferDescriptor is ReadDescriptor for a buffer-backed binding.
func (b *PassBuilder) ReadBufferDescriptor(set, binding, arrayIndex int, node BufferNode, stage driver.Stage) *PassBuilder {
	return b.writeDescriptor(set, binding, arrayIndex, node.Node, inferBufferDescriptorAccess(stage, false), driver.DBuffer, nil)
}

// WriteBufferDescriptor is WriteDescriptor for a buffer-backed binding.
func (b *PassBuilder) WriteBufferDescriptor(set, binding, arrayIndex int, node BufferNode, stage driver.Stage) *PassBuilder {
	return b.writeDescriptor(set, binding, arrayIndex, node.Node, inferBufferDescriptorAccess(stage, true), driver.DBuffer, nil)
}

func (b *PassBuilder) writeDescriptor(set, binding, arrayIndex int, node Node, access AccessType, descType driver.DescType, view *driver.ImageViewInfo) *PassBuilder {
	if b.err != nil {
		return b
	}
	if _, ok := b.g.nodes.get(node); !ok {
		return b.fail(newGraphErr("descriptor write: node not bound to this graph"))
	}
	for _, d := range b.p.descWrites {
		if d.set == set && d.binding == binding && d.arrayIndex == arrayIndex && d.access != access {
			return b.fail(newGraphErr("descriptor write: contradictory access declared for the same binding"))
		}
	}
	b.p.accesses = append(b.p.accesses, nodeAccess{node: node, access: access, view: view})
	b.p.descWrites = append(b.p.descWrites, descriptorWrite{set: set, binding: binding, arrayIndex: arrayIndex, node: node, access: access, descType: descType, view: view})
	return b
}

func inferImageDescriptorAccess(descType driver.DescType, stage driver.Stage, write bool) (AccessType, error) {
	pick := stageOf(stage)
	switch descType {
	case driver.DTexture:
		if write {
			return AccessNone, newGraphErr("a sampled texture binding cannot be written")
		}
		return pick(SampledImageReadVertex, SampledImageReadFragment, SampledImageReadCompute), nil
	case driver.DImage:
		if write {
			return pick(StorageImageWriteVertex, StorageImageWriteFragment, StorageImageWriteCompute), nil
		}
		return pick(StorageImageReadVertex, StorageImageReadFragment, StorageImageReadCompute), nil
	default:
		return AccessNone, newGraphErr("descriptor type is not image-backed")
	}
}

func inferBufferDescriptorAccess(stage driver.Stage, write bool) AccessType {
	pick := stageOf(stage)
	if write {
		return pick(StorageBufferWriteVertex, StorageBufferWriteFragment, StorageBufferWriteCompute)
	}
	return pick(UniformBufferReadVertex, UniformBufferReadFragment, UniformBufferReadCompute)
}

// LoadColor declares that color attachment idx, bound to node, is
// loaded (preserving its previous contents) rather than cleared.
func (b *PassBuilder) LoadColor(idx int, node ImageNode) *PassBuilder {
	return b.colorAttach(idx, node, driver.LLoad, driver.SStore, [4]float32{}, false)
}

// StoreColor declares that color attachment idx's contents, bound to
// node, are stored after the pass (as opposed to discarded).
func (b *PassBuilder) StoreColor(idx int, node ImageNode) *PassBuilder {
	return b.colorAttach(idx, node, driver.LDontCare, driver.SStore, [4]float32{}, false)
}

// ClearColorValue declares that color attachment idx is cleared to
// rgba at the start of the pass.
func (b *PassBuilder) ClearColorValue(idx int, node ImageNode, rgba [4]float32) *PassBuilder {
	return b.colorAttach(idx, node, driver.LClear, driver.SStore, rgba, true)
}

func (b *PassBuilder) colorAttach(idx int, node ImageNode, load driver.LoadOp, store driver.StoreOp, clear [4]float32, hasClear bool) *PassBuilder {
	if b.err != nil {
		return b
	}
	if _, ok := b.g.nodes.get(node.Node); !ok {
		return b.fail(newGraphErr("color attachment: node not bound to this graph"))
	}
	c, exists := b.p.color[idx]
	if !exists {
		c.resolveOf = -1
	}
	c.node = node
	c.store = store
	c.load = load
	if hasClear {
		c.clear = clear
	}
	b.p.color[idx] = c
	b.p.accesses = append(b.p.accesses, nodeAccess{node: node.Node, access: ColorAttachmentWrite})
	return b
}

// ResolveColor declares that attachment dstIdx, bound to node,
// receives a multisample resolve of attachment srcIdx at the end of
// the pass.
func (b *PassBuilder) ResolveColor(srcIdx, dstIdx int, node ImageNode) *PassBuilder {
	if b.err != nil {
		return b
	}
	c := b.p.color[dstIdx]
	c.node = node
	c.store = driver.SStore
	c.resolveOf = srcIdx
	b.p.color[dstIdx] = c
	b.p.accesses = append(b.p.accesses, nodeAccess{node: node.Node, access: ColorAttachmentWrite})
	return b
}

// ClearDepthStencil declares the depth/stencil attachment, bound to
// node, cleared to (depth, stencil) at the start of the pass.
func (b *PassBuilder) ClearDepthStencil(node ImageNode, depth float32, stencil uint32) *PassBuilder {
	if b.err != nil {
		return b
	}
	if _, ok := b.g.nodes.get(node.Node); !ok {
		return b.fail(newGraphErr("clear_depth_stencil: node not bound to this graph"))
	}
	b.p.depth = &depthAttachment{node: node, write: true, clear: true, clearDepth: depth, clearStencil: stencil}
	b.p.accesses = append(b.p.accesses, nodeAccess{node: node.Node, access: DepthStencilAttachmentWrite})
	return b
}

// SetDepthStencil declares the depth/stencil attachment, bound to
// node, used by this pass without a clear. write selects whether the
// pass writes depth (DepthStencilAttachmentWrite) or only reads it
// (DepthStencilAttachmentRead).
func (b *PassBuilder) SetDepthStencil(node ImageNode, write bool) *PassBuilder {
	if b.err != nil {
		return b
	}
	if _, ok := b.g.nodes.get(node.Node); !ok {
		return b.fail(newGraphErr("set_depth_stencil: node not bound to this graph"))
	}
	b.p.depth = &depthAttachment{node: node, write: write}
	access := DepthStencilAttachmentRead
	if write {
		access = DepthStencilAttachmentWrite
	}
	b.p.accesses = append(b.p.accesses, nodeAccess{node: node.Node, access: access})
	return b
}

// SetRenderArea restricts the viewport/scissor of a graphics pass to
// the given rectangle; the default is the full target size.
func (b *PassBuilder) SetRenderArea(x, y, w, h int) *PassBuilder {
	b.p.areaX, b.p.areaY, b.p.areaW, b.p.areaH = x, y, w, h
	b.p.hasArea = true
	return b
}

// RecordSubpass attaches the closure invoked during playback of a
// graphics pass and marks this pass as eligible for subpass merging.
func (b *PassBuilder) RecordSubpass(fn func(driver.CommandBuffer, *Resolved)) *PassBuilder {
	b.p.kind = passGraphics
	b.p.record = fn
	return b
}

// RecordCompute attaches the closure invoked during playback of a
// compute pass.
func (b *PassBuilder) RecordCompute(fn func(driver.CommandBuffer, *Resolved)) *PassBuilder {
	b.p.kind = passCompute
	b.p.record = fn
	return b
}

// RecordExecute attaches the closure invoked during playback of a
// general transfer pass.
func (b *PassBuilder) RecordExecute(fn func(driver.CommandBuffer, *Resolved)) *PassBuilder {
	b.p.kind = passTransfer
	b.p.record = fn
	return b
}

// PushConstants appends data at offset 0, replacing any previous
// payload at that offset.
func (b *PassBuilder) PushConstants(stages driver.Stage, data []byte) *PassBuilder {
	return b.PushConstantsOffset(stages, 0, data)
}

// PushConstantsOffset appends data at offset.
func (b *PassBuilder) PushConstantsOffset(stages driver.Stage, offset int, data []byte) *PassBuilder {
	b.p.pushStages |= stages
	b.p.pushConstants = append(b.p.pushConstants, pushConstant{offset: offset, data: data})
	return b
}

// Submit finalizes the pass and appends it to the graph it was
// created from. A PassBuilder must not be used again after Submit.
func (b *PassBuilder) Submit() error {
	if b.err != nil {
		return b.err
	}
	b.g.passes = append(b.g.passes, &b.p)
	passIdx := len(b.g.passes) - 1
	for _, a := range b.p.accesses {
		e, ok := b.g.nodes.get(a.node)
		if !ok {
			continue
		}
		// lastAccess is advanced by the resolver as it actually
		// traverses kept passes in execution order, not here at
		// record time, since culling or reordering could otherwise
		// leave it reflecting a pass that never runs.
		e.markTouch(passIdx, a.access.ReadOnly())
	}
	return nil
}
