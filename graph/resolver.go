// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package graph

import (
	"sort"

	"vkgraph/driver"
	"vkgraph/internal/bitm"
	"vkgraph/pool"
)

// resolver implements RenderGraph.Resolve: it culls unreachable passes,
// merges adjacent compatible graphics passes into groups, materializes
// pool-leased resources per group, emits barriers, and records every
// surviving pass's closure.
type resolver struct {
	g   *RenderGraph
	bp  barrierPlanner
	rec *Recording
}

func newResolver(g *RenderGraph) *resolver {
	return &resolver{g: g}
}

// mergeGroup is one materialization unit: a run of compatible graphics
// passes sharing a render pass, or a singleton non-graphics pass.
type mergeGroup struct {
	kind    passKind
	indices []int
	samples int
	areaSet bool
	x, y, w, h int
}

func (r *resolver) run() (*Recording, error) {
	order, err := r.cull()
	if err != nil {
		return nil, err
	}

	cbLease, err := r.g.pool.LeaseCommandBuffer(driver.CommandBufferInfo{QueueFamilyIndex: r.g.opts.QueueFamily})
	if err != nil {
		return nil, driverErr(err)
	}
	cb := cbLease.Get()
	if err := cb.Begin(); err != nil {
		cbLease.Close()
		return nil, driverErr(err)
	}

	rec := &Recording{g: r.g, cmdLease: cbLease}
	r.rec = rec

	groups := r.merge(order)
	for _, gr := range groups {
		if err := r.materialize(cb, gr); err != nil {
			cbLease.Close()
			rec.closeRetained()
			return nil, err
		}
	}

	if err := cb.End(); err != nil {
		cbLease.Close()
		rec.closeRetained()
		return nil, driverErr(err)
	}
	return rec, nil
}

// cull discards passes that cannot affect anything the graph cares
// about. A pass is a sink if it has an access that targets the
// swapchain (AccessType Present) or performs a write access that is
// read by a later pass; a pass with no write access at all is always kept, since
// nothing proves it is safe to drop. Reachability is then computed by
// walking backward from the sink set through read->write dependencies
// on the same node.
func (r *resolver) cull() ([]int, error) {
	passes := r.g.passes
	n := len(passes)
	if r.g.opts.DisablePassCulling {
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		return order, nil
	}

	entryOf := func(node Node) *nodeEntry {
		e, _ := r.g.nodes.get(node)
		return e
	}

	// A pass whose bound resource is unbound after resolve is also a
	// sink; RenderGraph has no way to know this during cull, since
	// UnbindImage/UnbindBuffer/UnbindAccelStruct are only
	// legal to call after Resolve returns, so nodes the caller intends
	// to carry into the next frame must instead be kept reachable via
	// Options.DisablePassCulling or a later read the caller records.
	sinks := map[int]bool{}
	for i, p := range passes {
		hasWrite := false
		for _, a := range p.accesses {
			if a.access == Present {
				sinks[i] = true
			}
			if a.access.ReadOnly() {
				continue
			}
			hasWrite = true
			if e := entryOf(a.node); e != nil {
				for ri := i + 1; ri < n; ri++ {
					if e.readAt(ri) {
						sinks[i] = true
						break
					}
				}
			}
		}
		if !hasWrite {
			sinks[i] = true
		}
	}

	visited := make([]bool, n)
	var stack []int
	for i := range sinks {
		stack = append(stack, i)
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[i] {
			continue
		}
		visited[i] = true
		for _, a := range passes[i].accesses {
			if !a.access.ReadOnly() {
				continue
			}
			e := entryOf(a.node)
			if e == nil {
				continue
			}
			for wi := 0; wi < i; wi++ {
				if e.writtenAt(wi) && !visited[wi] {
					stack = append(stack, wi)
				}
			}
		}
	}

	var order []int
	for i := 0; i < n; i++ {
		if visited[i] {
			order = append(order, i)
		}
	}
	sort.Ints(order)
	return order, nil
}

func (r *resolver) passSamples(p *Pass) int {
	for _, c := range p.color {
		if e, ok := r.g.nodes.get(c.node.Node); ok {
			if img, ok := e.resource.(driver.Image); ok {
				if s := img.Info().Samples; s > 0 {
					return s
				}
			}
		}
	}
	if p.depth != nil {
		if e, ok := r.g.nodes.get(p.depth.node.Node); ok {
			if img, ok := e.resource.(driver.Image); ok {
				if s := img.Info().Samples; s > 0 {
					return s
				}
			}
		}
	}
	return 1
}

// merge groups adjacent compatible graphics passes so they materialize
// as subpasses of one render pass instead of one each. Non-graphics
// passes always start a new singleton group; graphics passes join the
// current group when render area and sample count match and the
// candidate does not read any node the current group has already
// written. That last condition matters because a write->read
// dependency within one render pass is a subpass dependency, which
// this module does not emit; the only barrier primitive it has is a
// plain Barrier/Transition recorded outside any render pass, so a
// pass with such a dependency must start a new group and rely on the
// ordinary cross-group barrier in materialize instead of being merged
// into one it has no way to order correctly against.
func (r *resolver) merge(order []int) []*mergeGroup {
	var groups []*mergeGroup
	var cur *mergeGroup
	written := map[Node]bool{}
	for _, idx := range order {
		p := r.g.passes[idx]
		if p.kind != passGraphics {
			groups = append(groups, &mergeGroup{kind: p.kind, indices: []int{idx}})
			cur = nil
			written = map[Node]bool{}
			continue
		}
		samples := r.passSamples(p)
		compatible := cur != nil &&
			cur.samples == samples &&
			cur.areaSet == p.hasArea &&
			(!p.hasArea || (cur.x == p.areaX && cur.y == p.areaY && cur.w == p.areaW && cur.h == p.areaH)) &&
			!readsAnyOf(p, written)
		if !compatible {
			cur = &mergeGroup{kind: passGraphics, samples: samples, areaSet: p.hasArea, x: p.areaX, y: p.areaY, w: p.areaW, h: p.areaH}
			groups = append(groups, cur)
			written = map[Node]bool{}
		}
		cur.indices = append(cur.indices, idx)
		for _, a := range p.accesses {
			if !a.access.ReadOnly() {
				written[a.node] = true
			}
		}
	}
	return groups
}

// readsAnyOf reports whether p reads any node in written.
func readsAnyOf(p *Pass, written map[Node]bool) bool {
	if len(written) == 0 {
		return false
	}
	for _, a := range p.accesses {
		if a.access.ReadOnly() && written[a.node] {
			return true
		}
	}
	return false
}

// barrierFor emits (if needed) the barrier/transition moving node from
// its currently tracked access to next, then advances that tracked
// access. Buffers and acceleration structures get a plain Barrier;
// images get a Transition with a view derived from the node's image
// via ImageInfo.DefaultView when no explicit view was supplied.
func (r *resolver) barrierFor(cb driver.CommandBuffer, node Node, next AccessType, view *driver.ImageViewInfo) error {
	e, ok := r.g.nodes.get(node)
	if !ok {
		return newGraphErr("barrier: node not bound to this graph")
	}
	prev := e.lastAccess
	if !r.bp.needsBarrier(prev, next) {
		e.lastAccess = next
		return nil
	}
	switch e.kind {
	case nodeImage:
		img := e.resource.(driver.Image)
		vi := img.Info().DefaultView()
		if view != nil {
			vi = *view
		}
		iv, err := img.NewView(vi)
		if err != nil {
			return driverErr(err)
		}
		r.rec.retain(destroyOnClose{iv})
		cb.Transition([]driver.Transition{r.bp.imageTransition(prev, next, iv)})
	case nodeView:
		iv := e.resource.(driver.ImageView)
		cb.Transition([]driver.Transition{r.bp.imageTransition(prev, next, iv)})
	default:
		cb.Barrier([]driver.Barrier{r.bp.bufferBarrier(prev, next)})
	}
	e.lastAccess = next
	return nil
}

func (r *resolver) materialize(cb driver.CommandBuffer, gr *mergeGroup) error {
	switch gr.kind {
	case passGraphics:
		return r.materializeGraphics(cb, gr)
	default:
		return r.materializeGeneral(cb, gr)
	}
}

func (r *resolver) materializeGeneral(cb driver.CommandBuffer, gr *mergeGroup) error {
	idx := gr.indices[0]
	p := r.g.passes[idx]

	// A general-purpose group is always a single pass, so its barriers
	// are simply emitted immediately before that pass's own work.
	for _, a := range p.accesses {
		if err := r.barrierFor(cb, a.node, a.access, a.view); err != nil {
			return err
		}
	}

	dpLease, slotOf, err := r.leaseGroupDescPool(gr.indices)
	if err != nil {
		return err
	}
	var dp driver.DescriptorPool
	if dpLease != nil {
		r.rec.retain(dpLease)
		dp = dpLease.Get()
	}

	if p.pipeline != nil {
		cb.SetPipeline(p.pipeline)
	}
	if err := r.writeDescriptors(cb, p, idx, dp, slotOf); err != nil {
		return err
	}
	for _, pc := range p.pushConstants {
		cb.PushConstants(p.pushStages, pc.offset, pc.data)
	}

	cb.BeginWork()
	if p.record != nil {
		p.record(cb, &Resolved{g: r.g})
	}
	cb.EndWork()
	return nil
}

func (r *resolver) materializeGraphics(cb driver.CommandBuffer, gr *mergeGroup) error {
	type attach struct {
		node  ImageNode
		info  driver.AttachmentInfo
		depth bool
	}
	var attachments []attach
	attachIndex := map[Node]int{}

	addAttachment := func(node ImageNode, load driver.LoadOp, store driver.StoreOp, depth bool) int {
		if i, ok := attachIndex[node.Node]; ok {
			return i
		}
		e, _ := r.g.nodes.get(node.Node)
		img := e.resource.(driver.Image)
		info := driver.AttachmentInfo{
			Format:        img.Info().Format,
			Samples:       gr.samples,
			Load:          load,
			Store:         store,
			InitialLayout: driver.LUndefined,
			FinalLayout:   driver.LShaderRead,
		}
		if depth {
			info.FinalLayout = driver.LDSTarget
		} else {
			info.FinalLayout = driver.LColorTarget
		}
		attachments = append(attachments, attach{node: node, info: info, depth: depth})
		i := len(attachments) - 1
		attachIndex[node.Node] = i
		return i
	}

	subpasses := make([]driver.SubpassInfo, len(gr.indices))
	var depthInfo *driver.AttachmentInfo
	for si, idx := range gr.indices {
		p := r.g.passes[idx]
		sub := driver.SubpassInfo{Depth: -1}
		maxIdx := -1
		for ci := range p.color {
			if ci > maxIdx {
				maxIdx = ci
			}
		}
		sub.Color = make([]int, maxIdx+1)
		for i := range sub.Color {
			sub.Color[i] = -1
		}
		for ci, c := range p.color {
			ai := addAttachment(c.node, c.load, c.store, false)
			sub.Color[ci] = ai
			if c.resolveOf >= 0 && c.resolveOf < len(sub.Color) {
				sub.Resolve = append(sub.Resolve, ai)
			}
		}
		if p.depth != nil {
			load := driver.LLoad
			if p.depth.clear {
				load = driver.LClear
			}
			ai := addAttachment(p.depth.node, load, driver.SStore, true)
			sub.Depth = ai
			depthInfo = &attachments[ai].info
		}
		subpasses[si] = sub
	}

	rpInfo := driver.RenderPassInfo{Subpasses: subpasses}
	for _, a := range attachments {
		if !a.depth {
			rpInfo.Color = append(rpInfo.Color, a.info)
		}
	}
	rpInfo.Depth = depthInfo

	rpLease, err := r.g.pool.LeaseRenderPass(rpInfo)
	if err != nil {
		return driverErr(err)
	}
	r.rec.retain(rpLease)
	rp := rpLease.Get()

	views := make([]driver.ImageView, 0, len(attachments))
	width, height, layers := 0, 0, 1
	for _, a := range attachments {
		e, _ := r.g.nodes.get(a.node.Node)
		img := e.resource.(driver.Image)
		v, err := img.NewView(img.Info().DefaultView())
		if err != nil {
			return driverErr(err)
		}
		r.rec.retain(destroyOnClose{v})
		views = append(views, v)
		if w := img.Info().Dim.Width; w > width {
			width = w
		}
		if h := img.Info().Dim.Height; h > height {
			height = h
		}
	}
	if gr.areaSet {
		width, height = gr.w, gr.h
	}

	fbLease, err := rp.NewFramebuffer(views, width, height, layers)
	if err != nil {
		return driverErr(err)
	}
	r.rec.retain(destroyOnClose{fbLease})

	var clears []driver.ClearValue
	for _, a := range attachments {
		cv := driver.ClearValue{}
		for _, idx := range gr.indices {
			p := r.g.passes[idx]
			if c, ok := p.color[attachIndex[a.node.Node]]; ok && c.node.Node == a.node.Node {
				cv.Color = c.clear
			}
			if p.depth != nil && p.depth.node.Node == a.node.Node && p.depth.clear {
				cv.Depth, cv.Stencil = p.depth.clearDepth, p.depth.clearStencil
			}
		}
		clears = append(clears, cv)
	}

	dpLease, slotOf, err := r.leaseGroupDescPool(gr.indices)
	if err != nil {
		return err
	}
	var dp driver.DescriptorPool
	if dpLease != nil {
		r.rec.retain(dpLease)
		dp = dpLease.Get()
	}

	cb.BeginPass(rp, fbLease, clears)
	for si, idx := range gr.indices {
		p := r.g.passes[idx]
		// Each subpass's own accesses are transitioned immediately
		// before its work is recorded, not once for the whole group:
		// merge already refuses to put a pass that reads a node this
		// group wrote earlier into the same group, so no subpass here
		// depends on another subpass's write completing first.
		for _, a := range p.accesses {
			if err := r.barrierFor(cb, a.node, a.access, a.view); err != nil {
				return err
			}
		}
		if p.pipeline != nil {
			cb.SetPipeline(p.pipeline)
		}
		if gr.areaSet {
			cb.SetViewport([]driver.Viewport{{X: float32(gr.x), Y: float32(gr.y), Width: float32(gr.w), Height: float32(gr.h), ZFar: 1}})
			cb.SetScissor([]driver.Scissor{{X: gr.x, Y: gr.y, Width: gr.w, Height: gr.h}})
		} else {
			cb.SetViewport([]driver.Viewport{{Width: float32(width), Height: float32(height), ZFar: 1}})
			cb.SetScissor([]driver.Scissor{{Width: width, Height: height}})
		}
		if err := r.writeDescriptors(cb, p, idx, dp, slotOf); err != nil {
			return err
		}
		for _, pc := range p.pushConstants {
			cb.PushConstants(p.pushStages, pc.offset, pc.data)
		}
		if p.record != nil {
			p.record(cb, &Resolved{g: r.g})
		}
		if si != len(gr.indices)-1 {
			cb.NextSubpass()
		}
	}
	cb.EndPass()
	return nil
}

// descSlot names one pass's logical (set) number, which leaseGroupDescPool
// remaps to a physical set index within a single shared descriptor pool:
// one pool per merged group, sized to satisfy every descriptor write
// across its subpasses, rather than one pool per pass.
type descSlot struct {
	passIdx int
	set     int
}

// leaseGroupDescPool leases a single descriptor pool sized for every
// descriptor write recorded by any pass in indices, and assigns each
// distinct (pass, logical set) pair a physical set slot within it using
// a bitm allocator, the same free-slot scheme internal/bitm provides for
// arena-style resource management elsewhere in the module. Returns a nil
// lease and map if no pass in the group writes any descriptor.
func (r *resolver) leaseGroupDescPool(indices []int) (*pool.Lease[driver.DescriptorPool], map[descSlot]int, error) {
	counts := [6]int{}
	var order []descSlot
	seen := map[descSlot]bool{}
	for _, idx := range indices {
		for _, dw := range r.g.passes[idx].descWrites {
			counts[dw.descType]++
			key := descSlot{idx, dw.set}
			if !seen[key] {
				seen[key] = true
				order = append(order, key)
			}
		}
	}
	if len(order) == 0 {
		return nil, nil, nil
	}

	lease, err := r.g.pool.LeaseDescPool(driver.DescriptorPoolInfo{MaxSets: len(order), Counts: counts})
	if err != nil {
		return nil, nil, driverErr(err)
	}

	var alloc bitm.Bitm[uint32]
	alloc.Grow((len(order) + 31) / 32)
	slotOf := make(map[descSlot]int, len(order))
	for _, key := range order {
		i, ok := alloc.Search()
		if !ok {
			i = alloc.Grow(1)
		}
		alloc.Set(i)
		slotOf[key] = i
	}
	return lease, slotOf, nil
}

// writeDescriptors batches p's descriptor writes into dp, the pool
// leaseGroupDescPool returned for the whole group p belongs to, using
// slotOf to find p's physical set index for each logical set it wrote.
func (r *resolver) writeDescriptors(cb driver.CommandBuffer, p *Pass, passIdx int, dp driver.DescriptorPool, slotOf map[descSlot]int) error {
	if len(p.descWrites) == 0 {
		return nil
	}

	bySet := map[int][]driver.DescriptorWrite{}
	bindingOf := map[int]driver.DescriptorBinding{}
	physSets := map[int]bool{}
	for _, dw := range p.descWrites {
		e, ok := r.g.nodes.get(dw.node)
		if !ok {
			continue
		}
		w := driver.DescriptorWrite{ArrayIndex: dw.arrayIndex}
		switch res := e.resource.(type) {
		case driver.Image:
			vi := res.Info().DefaultView()
			if dw.view != nil {
				vi = *dw.view
			}
			iv, err := res.NewView(vi)
			if err != nil {
				return driverErr(err)
			}
			r.rec.retain(destroyOnClose{iv})
			w.View = iv
		case driver.Buffer:
			w.Buffer = res
			w.BufferSize = res.Info().Size
		}
		phys := slotOf[descSlot{passIdx, dw.set}]
		physSets[phys] = true
		key := phys*1000 + dw.binding
		bySet[key] = append(bySet[key], w)
		bindingOf[key] = driver.DescriptorBinding{Set: dw.set, Binding: dw.binding, Type: dw.descType}
	}

	sets := make([]int, 0, len(physSets))
	for s := range physSets {
		sets = append(sets, s)
	}
	sort.Ints(sets)
	cb.SetDescriptorPool(dp, sets)

	for key, writes := range bySet {
		dp.Write(key/1000, bindingOf[key], writes)
	}
	return nil
}

type closer interface{ Close() }

// destroyOnClose lets a driver object that is released with Destroy
// (an image view or a framebuffer) be retained alongside leases.
type destroyOnClose struct{ d driver.Destroyer }

func (c destroyOnClose) Close() { c.d.Destroy() }

// Recording is the populated command buffer Resolve produces, still
// holding every lease it used (render passes, framebuffers, descriptor
// pools, image views, the command buffer itself) so they stay alive
// until the work finishes executing.
type Recording struct {
	g        *RenderGraph
	cmdLease *pool.Lease[driver.CommandBuffer]
	retained []closer
}

func (r *Recording) retain(c closer) { r.retained = append(r.retained, c) }

func (r *Recording) closeRetained() {
	for _, c := range r.retained {
		c.Close()
	}
	r.retained = nil
}

// Submission lets the caller wait for a Recording's work to finish
// executing. The retained leases return to their pools only through
// WaitUntilExecuted: Signaled does not release them, and a Submission
// that is dropped without calling WaitUntilExecuted never returns them.
type Submission struct {
	fence    *driver.Fence
	retained []closer
	done     bool
}

// WaitUntilExecuted blocks until the submitted work finishes, then
// returns every retained lease to its pool.
func (s *Submission) WaitUntilExecuted() error {
	err := s.fence.Wait()
	s.release()
	return err
}

// Signaled reports whether the work has finished without blocking.
func (s *Submission) Signaled() bool { return s.fence.Signaled() }

func (s *Submission) release() {
	if s.done {
		return
	}
	s.done = true
	for _, c := range s.retained {
		c.Close()
	}
}

// Submit hands the recording's command buffer to gpu.Commit on the
// given queue and returns a Submission tracking its fence.
func (r *Recording) Submit(queueFamily, queueIndex int) (*Submission, error) {
	cb := r.cmdLease.Get()
	fence, err := r.g.gpu.Commit([]driver.CommandBuffer{cb}, queueFamily, queueIndex)
	if err != nil {
		r.closeRetained()
		r.cmdLease.Close()
		return nil, driverErr(err)
	}
	retained := append(r.retained, r.cmdLease)
	r.retained = nil
	return &Submission{fence: fence, retained: retained}, nil
}
