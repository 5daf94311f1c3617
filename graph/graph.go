// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package graph

import (
	"vkgraph/driver"
	"vkgraph/pool"
)

// Options configures a graph's behavior, the Go struct-literal
// equivalent of the source's constructor parameters: no config file,
// no CLI, no environment.
type Options struct {
	// QueueFamily selects which queue family's command buffers Resolve
	// leases from.
	QueueFamily int
	// QueueIndex is not read by Resolve or Recording.Submit;
	// Recording.Submit takes the queue family and queue index it
	// commits to as arguments.
	QueueIndex int
	// DisablePassCulling keeps every recorded pass even if it would
	// otherwise be culled as unreachable. Exists for debugging;
	// production graphs should leave this false.
	DisablePassCulling bool
}

// RenderGraph is a single-use builder: bind resources, record passes,
// then Resolve exactly once. A graph must not be reused afterward; it
// is consumed by Resolve.
type RenderGraph struct {
	gpu  driver.GPU
	pool pool.Pool
	opts Options

	nodes    nodeTable
	passes   []*Pass
	resolved bool
}

// New creates an empty graph that leases transient resources from p
// and creates GPU objects through gpu.
func New(gpu driver.GPU, p pool.Pool, opts Options) *RenderGraph {
	return &RenderGraph{gpu: gpu, pool: p, opts: opts}
}

// BindImage binds img to the graph, returning a handle statically
// distinct from every other node kind. initial is the access type the
// image is assumed to already be in (e.g. AccessNone for a
// freshly-created transient image, or whatever the previous frame's
// graph last recorded it as).
func (g *RenderGraph) BindImage(img driver.Image, initial AccessType) ImageNode {
	return ImageNode{g.nodes.bind(nodeImage, img, initial, true)}
}

// BindBorrowedImage binds img without taking ownership: UnbindImage
// still returns it, but the graph never destroys it outright — it is
// only ever returned to the caller or handed to a pool lease's own
// Close.
func (g *RenderGraph) BindBorrowedImage(img driver.Image, initial AccessType) ImageNode {
	return ImageNode{g.nodes.bind(nodeImage, img, initial, false)}
}

// BindBuffer binds buf to the graph.
func (g *RenderGraph) BindBuffer(buf driver.Buffer, initial AccessType) BufferNode {
	return BufferNode{g.nodes.bind(nodeBuffer, buf, initial, true)}
}

// BindAccelStruct binds as to the graph.
func (g *RenderGraph) BindAccelStruct(as driver.AccelStruct, initial AccessType) AccelStructNode {
	return AccelStructNode{g.nodes.bind(nodeAccelStruct, as, initial, true)}
}

// BindView binds an already-constructed image view directly, for
// resources a collaborator manages the view lifetime of: a swapchain
// image arrives as an externally-bound image node, and its view, if
// the collaborator already built one, is bound the same way.
func (g *RenderGraph) BindView(v driver.ImageView, initial AccessType) ViewNode {
	return ViewNode{g.nodes.bind(nodeView, v, initial, false)}
}

// UnbindImage removes n from the graph, returning ownership of the
// bound image and the access type the last pass touching it recorded.
// Only legal to call after Resolve.
func (g *RenderGraph) UnbindImage(n ImageNode) (driver.Image, AccessType, error) {
	e, ok := g.nodes.get(n.Node)
	if !ok {
		return nil, AccessNone, newGraphErr("unbind_node: invalid or already-unbound node")
	}
	e.unbound = true
	return e.resource.(driver.Image), e.lastAccess, nil
}

// UnbindBuffer removes n from the graph, returning ownership of the
// bound buffer and its last recorded access type.
func (g *RenderGraph) UnbindBuffer(n BufferNode) (driver.Buffer, AccessType, error) {
	e, ok := g.nodes.get(n.Node)
	if !ok {
		return nil, AccessNone, newGraphErr("unbind_node: invalid or already-unbound node")
	}
	e.unbound = true
	return e.resource.(driver.Buffer), e.lastAccess, nil
}

// UnbindAccelStruct removes n from the graph, returning ownership of
// the bound acceleration structure and its last recorded access type.
func (g *RenderGraph) UnbindAccelStruct(n AccelStructNode) (driver.AccelStruct, AccessType, error) {
	e, ok := g.nodes.get(n.Node)
	if !ok {
		return nil, AccessNone, newGraphErr("unbind_node: invalid or already-unbound node")
	}
	e.unbound = true
	return e.resource.(driver.AccelStruct), e.lastAccess, nil
}

// RecordPass starts building a new pass named name. Its kind (graphics,
// compute, or transfer) is committed by whichever of
// RecordSubpass/RecordCompute/RecordExecute the caller invokes.
func (g *RenderGraph) RecordPass(name string) *PassBuilder {
	return newPassBuilder(g, name)
}

// Resolve consumes the graph: it culls unreachable passes, merges
// compatible graphics passes into render-pass groups, materializes
// framebuffers/descriptor pools/command buffers, emits barriers, and
// records every pass's closure. The graph must not be used again
// afterward.
func (g *RenderGraph) Resolve() (*Recording, error) {
	if g.resolved {
		return nil, invalidErr("resolve called more than once on the same graph")
	}
	g.resolved = true
	r := newResolver(g)
	return r.run()
}
