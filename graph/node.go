// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package graph

import (
	"vkgraph/internal/bitvec"
)

// nodeKind discriminates the resource stored behind a Node without
// requiring a type switch at every lookup.
type nodeKind uint8

const (
	nodeImage nodeKind = iota
	nodeBuffer
	nodeAccelStruct
	nodeView
)

// Node is the untyped arena handle shared by every bindable resource
// kind. Graph-facing code never uses it directly; it always goes
// through one of the statically distinct wrapper types below, which
// keeps a caller from passing an ImageNode where a BufferNode is
// expected even though both are backed by the same arena.
type Node struct {
	kind  nodeKind
	index int32
}

func (n Node) valid() bool { return n.index >= 0 }

// ImageNode names an Image bound to a graph.
type ImageNode struct{ Node }

// BufferNode names a Buffer bound to a graph.
type BufferNode struct{ Node }

// AccelStructNode names an AccelStruct bound to a graph.
type AccelStructNode struct{ Node }

// ViewNode names an ImageView bound to a graph directly, used for
// resources a collaborator already created a view for (e.g. a
// swapchain image view) rather than letting the graph derive one.
type ViewNode struct{ Node }

// nodeEntry is the arena slot backing a Node. resource holds the
// concrete driver.Image/driver.Buffer/driver.AccelStruct/driver.ImageView,
// kept as `any` since the slot's static type varies by kind.
type nodeEntry struct {
	kind       nodeKind
	resource   any
	lastAccess AccessType
	owned      bool
	unbound    bool

	// writtenBy and readBy track, per recorded pass index, whether that
	// pass writes or reads this node. Adapted from internal/bitvec's
	// free-list bit vector: here "set" means "this pass index touches
	// the node this way" rather than "this slot is allocated". cull
	// consults these directly instead of rebuilding a node->passes map
	// from scratch on every resolve.
	writtenBy bitvec.V[uint64]
	readBy    bitvec.V[uint64]
}

func (e *nodeEntry) markTouch(passIndex int, readOnly bool) {
	bv := &e.writtenBy
	if readOnly {
		bv = &e.readBy
	}
	for bv.Len() <= passIndex {
		bv.Grow(1)
	}
	bv.Set(passIndex)
}

func (e *nodeEntry) writtenAt(passIndex int) bool {
	return passIndex < e.writtenBy.Len() && e.writtenBy.IsSet(passIndex)
}

func (e *nodeEntry) readAt(passIndex int) bool {
	return passIndex < e.readBy.Len() && e.readBy.IsSet(passIndex)
}

// nodeTable is the per-graph arena of bound resources.
type nodeTable struct {
	entries []nodeEntry
}

func (t *nodeTable) bind(kind nodeKind, resource any, initial AccessType, owned bool) Node {
	t.entries = append(t.entries, nodeEntry{kind: kind, resource: resource, lastAccess: initial, owned: owned})
	return Node{kind: kind, index: int32(len(t.entries) - 1)}
}

func (t *nodeTable) get(n Node) (*nodeEntry, bool) {
	if n.index < 0 || int(n.index) >= len(t.entries) {
		return nil, false
	}
	e := &t.entries[n.index]
	if e.kind != n.kind || e.unbound {
		return nil, false
	}
	return e, true
}
