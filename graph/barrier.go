// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package graph

import "vkgraph/driver"

// barrierPlanner computes the minimal barrier needed between two
// observed accesses of the same node. It carries no state of its own;
// the node's last-known access lives in nodeEntry.
type barrierPlanner struct{}

// needsBarrier reports whether moving from prev to next requires any
// synchronization at all: two read-only accesses that agree on layout
// require none, but a read followed by another read at a different
// layout still needs one; anything else does too.
func (barrierPlanner) needsBarrier(prev, next AccessType) bool {
	if prev == AccessNone {
		return next != AccessNone
	}
	return !(prev.ReadOnly() && next.ReadOnly() && prev.Layout() == next.Layout())
}

// bufferBarrier builds the driver.Barrier for a buffer node moving
// from prev to next. The caller should first check needsBarrier.
func (barrierPlanner) bufferBarrier(prev, next AccessType) driver.Barrier {
	return driver.Barrier{
		SyncBefore:   prev.Sync(),
		SyncAfter:    next.Sync(),
		AccessBefore: prev.Access(),
		AccessAfter:  next.Access(),
	}
}

// imageTransition builds the driver.Transition for an image node
// moving from prev to next, for the subresource named by view. The
// caller should first check needsBarrier.
func (barrierPlanner) imageTransition(prev, next AccessType, view driver.ImageView) driver.Transition {
	return driver.Transition{
		Barrier: driver.Barrier{
			SyncBefore:   prev.Sync(),
			SyncAfter:    next.Sync(),
			AccessBefore: prev.Access(),
			AccessAfter:  next.Access(),
		},
		LayoutBefore: prev.Layout(),
		LayoutAfter:  next.Layout(),
		View:         view,
	}
}
