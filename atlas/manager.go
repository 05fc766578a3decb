package atlas

import (
	"github.com/gogpu/ggraph/canvas"
	"github.com/gogpu/ggraph/geom"
	"github.com/gogpu/ggraph/graph"
)

type typeEntry struct {
	name string
	rt   RenderType
	coll *Collection
}

// Manager owns one Collection per render type and the pages bound to
// texture slots for the current draw batch. The slot budget is shared by
// all render types.
type Manager struct {
	opts        Options
	maxPerBatch int

	types   []*typeEntry
	byName  map[string]*typeEntry
	batch   []*Atlas
	scratch scratchCache
}

// NewManager creates a manager whose batches bind at most maxPerBatch
// pages.
func NewManager(opts Options, maxPerBatch int) *Manager {
	return &Manager{
		opts:        opts,
		maxPerBatch: maxPerBatch,
		byName:      make(map[string]*typeEntry),
	}
}

// Options returns the page options.
func (m *Manager) Options() Options { return m.opts }

// MaxAtlasesPerBatch returns the texture slot budget of a batch.
func (m *Manager) MaxAtlasesPerBatch() int { return m.maxPerBatch }

// AddRenderType registers rt under name. Registering a name twice replaces
// the render type and releases its pages.
func (m *Manager) AddRenderType(name string, rt RenderType) {
	e := &typeEntry{name: name, rt: rt, coll: NewCollection(m.opts, m.scratch.get)}
	if old, ok := m.byName[name]; ok {
		old.coll.Dispose()
		*old = *e
		return
	}
	m.types = append(m.types, e)
	m.byName[name] = e
}

// RenderTypes returns the registered names in registration order.
func (m *Manager) RenderTypes() []string {
	names := make([]string, len(m.types))
	for i, e := range m.types {
		names[i] = e.name
	}
	return names
}

// RenderType returns the render type registered under name.
func (m *Manager) RenderType(name string) (RenderType, bool) {
	e, ok := m.byName[name]
	if !ok {
		return nil, false
	}
	return e.rt, true
}

// Collection returns the pages of the named render type.
func (m *Manager) Collection(name string) *Collection {
	if e, ok := m.byName[name]; ok {
		return e.coll
	}
	return nil
}

// InvalidateOptions selects what Invalidate acts on.
type InvalidateOptions struct {
	// ForceRedraw redraws the current key even if it did not change.
	ForceRedraw bool
	// FilterElement, if set, limits the elements considered.
	FilterElement func(graph.Element) bool
	// FilterType, if set, limits the render types considered.
	FilterType func(name string) bool
}

// Invalidate drops stale key references of eles. With ForceRedraw the
// current keys are flagged for redraw instead. It reports whether a GC
// may reclaim space.
func (m *Manager) Invalidate(eles []graph.Element, opts InvalidateOptions) bool {
	gcNeeded := false
	for _, ele := range eles {
		if opts.FilterElement != nil && !opts.FilterElement(ele) {
			continue
		}
		id := ele.ID()
		for _, e := range m.types {
			if opts.FilterType != nil && !opts.FilterType(e.name) {
				continue
			}
			key := e.rt.Key(ele)
			if opts.ForceRedraw {
				e.coll.DeleteKey(id, key)
				// Keys never placed have nothing to redraw.
				if e.coll.HasAtlas(key) {
					e.coll.MarkNeedsRedraw(key)
					gcNeeded = true
				}
			} else if e.coll.CheckKeyIsInvalid(id, key) {
				gcNeeded = true
			}
		}
	}
	return gcNeeded
}

// Dispose releases the GPU textures of every page of every render type.
func (m *Manager) Dispose() {
	for _, e := range m.types {
		e.coll.Dispose()
	}
	m.batch = m.batch[:0]
}

// GC collects every render type.
func (m *Manager) GC() {
	for _, e := range m.types {
		e.coll.GC()
	}
}

// IsRenderable reports whether the named layer draws anything for ele.
func (m *Manager) IsRenderable(ele graph.Element, name string) bool {
	e, ok := m.byName[name]
	if !ok || !e.rt.Visible(ele) {
		return false
	}
	return !e.rt.BoundingBox(ele).Empty()
}

// StartBatch releases all texture slots.
func (m *Manager) StartBatch() {
	m.batch = m.batch[:0]
}

// BatchAtlases returns the pages of the current batch in slot order.
func (m *Manager) BatchAtlases() []*Atlas {
	return m.batch
}

// AtlasIndexForBatch returns the texture slot of a, assigning the next free
// one if needed. It returns false when the batch has no free slot.
func (m *Manager) AtlasIndexForBatch(a *Atlas) (int, bool) {
	for i, b := range m.batch {
		if b == a {
			return i, true
		}
	}
	if len(m.batch) >= m.maxPerBatch {
		return 0, false
	}
	m.batch = append(m.batch, a)
	return len(m.batch) - 1, true
}

// CanAddToCurrentBatch reports whether ele can be drawn in the current
// batch without needing a slot that is not available.
func (m *Manager) CanAddToCurrentBatch(ele graph.Element, name string) bool {
	if len(m.batch) < m.maxPerBatch {
		return true
	}
	e, ok := m.byName[name]
	if !ok {
		return false
	}
	a := e.coll.Atlas(e.rt.Key(ele))
	if a == nil {
		return false
	}
	for _, b := range m.batch {
		if b == a {
			return true
		}
	}
	return false
}

// Info is the placement of an element's texture in the current batch.
type Info struct {
	Slot int
	Page *Atlas
	Tex1 Location
	Tex2 Location
	BBox geom.BBox
	Type string
	Key  string
}

// Wrapped reports whether the texture is split over two rows.
func (i Info) Wrapped() bool {
	return i.Tex2.W > 0
}

// AtlasInfo draws the texture of ele if needed and binds its page to a
// slot. It returns false when the batch is full.
func (m *Manager) AtlasInfo(ele graph.Element, name string) (Info, bool) {
	e, ok := m.byName[name]
	if !ok {
		return Info{}, false
	}
	bb := e.rt.BoundingBox(ele)
	key := e.rt.Key(ele)
	a := e.coll.Draw(ele.ID(), key, bb, func(ctx *canvas.Context, bb geom.BBox) {
		e.rt.Draw(ctx, ele, bb)
	})
	slot, ok := m.AtlasIndexForBatch(a)
	if !ok {
		return Info{}, false
	}
	locs, _ := a.Offsets(key)
	return Info{
		Slot: slot,
		Page: a,
		Tex1: locs[0],
		Tex2: locs[1],
		BBox: bb,
		Type: name,
		Key:  key,
	}, true
}

// AdjustedBox is a bounding box adjusted for padding and for the part of a
// wrapped texture it shows.
type AdjustedBox struct {
	geom.BBox
	// XOffset is how far the part starts from the left of the full box.
	XOffset float64
}

// AdjustedBB grows bb by padding and, for a wrapped texture, narrows it to
// the ratio of the width covered by one part.
func AdjustedBB(bb geom.BBox, padding float64, first bool, ratio float64) AdjustedBox {
	if padding != 0 {
		bb = bb.Expand(padding)
	}
	adj := AdjustedBox{BBox: bb}
	if ratio < 1 {
		adjW := bb.W * ratio
		if !first {
			adj.XOffset = bb.W - adjW
			adj.X1 += adj.XOffset
		}
		adj.W = adjW
	}
	return adj
}

// TransformMatrix maps the unit square onto the part of the element's box
// covered by the first or second part of its texture.
func (m *Manager) TransformMatrix(info Info, ele graph.Element, first bool) geom.Matrix {
	e, ok := m.byName[info.Type]
	if !ok {
		return geom.Identity()
	}

	ratio := 1.0
	if total := info.Tex1.W + info.Tex2.W; total > 0 {
		ratio = float64(info.Tex1.W) / float64(total)
	}
	if !first {
		ratio = 1 - ratio
	}
	adj := AdjustedBB(info.BBox, padding(e.rt, ele), first, ratio)

	mat := geom.Identity()
	x, y := adj.X1, adj.Y1
	if r, ok := e.rt.(Rotator); ok {
		if theta := r.Rotation(ele); theta != 0 {
			p := r.RotationPoint(ele)
			mat = mat.Translate(p.X, p.Y).Rotate(theta)
			off := r.RotationOffset(ele)
			x = off.X + adj.XOffset
			y = off.Y
		}
	}
	return mat.Translate(x, y).Scale(adj.W, adj.H)
}

// TypeDebugInfo summarizes one render type.
type TypeDebugInfo struct {
	Type       string
	KeyCount   int
	AtlasCount int
}

// DebugInfo returns key and page counts per render type.
func (m *Manager) DebugInfo() []TypeDebugInfo {
	info := make([]TypeDebugInfo, 0, len(m.types))
	for _, e := range m.types {
		keys, pages := e.coll.Counts()
		info = append(info, TypeDebugInfo{Type: e.name, KeyCount: keys, AtlasCount: pages})
	}
	return info
}
