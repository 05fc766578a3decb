// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"image/color"
	"log/slog"
	"math"

	"github.com/gogpu/ggraph"
	"github.com/gogpu/ggraph/atlas"
	"github.com/gogpu/ggraph/geom"
	"github.com/gogpu/ggraph/graph"
)

// Options configures a Drawing.
type Options struct {
	// BatchSize is the instance capacity of one batch.
	BatchSize int
	// Background is the color arrowheads are composited against.
	Background color.Color
}

// Drawing batches element draws into instanced GPU draws.
//
// Draw methods never fail. The first backend error of a frame is kept and
// returned by EndFrame, and later batches of that frame are dropped.
type Drawing struct {
	backend      Backend
	atlases      *atlas.Manager
	maxInstances int
	background   [4]float32

	instances []Instance
	count     int

	inFrame bool
	target  Target
	panZoom [9]float32
	debug   *DebugLog
	err     error
}

// NewDrawing creates a Drawing that flushes to b and takes textures from m.
func NewDrawing(b Backend, m *atlas.Manager, opts Options) (*Drawing, error) {
	if b == nil {
		return nil, ErrNilBackend
	}
	if m == nil {
		return nil, ErrNilManager
	}
	if opts.BatchSize < 1 {
		return nil, fmt.Errorf("render: batch size %d must be positive", opts.BatchSize)
	}
	d := &Drawing{
		backend:      b,
		atlases:      m,
		maxInstances: opts.BatchSize,
		instances:    make([]Instance, opts.BatchSize),
	}
	d.SetBackground(opts.Background)
	return d, nil
}

// Atlases returns the atlas manager.
func (d *Drawing) Atlases() *atlas.Manager { return d.atlases }

// MaxInstances returns the instance capacity of a batch.
func (d *Drawing) MaxInstances() int { return d.maxInstances }

// SetBackground sets the color arrowheads are composited against. A nil
// color means white.
func (d *Drawing) SetBackground(c color.Color) {
	if c == nil {
		c = color.White
	}
	d.background = Premultiplied(c, 1)
}

// AddTextureRenderType registers a render type with the atlas manager.
func (d *Drawing) AddTextureRenderType(name string, rt atlas.RenderType) {
	d.atlases.AddRenderType(name, rt)
}

// Invalidate drops stale textures of eles. With a render type name, the
// textures of that type are redrawn even if their keys did not change. It
// reports whether a GC may reclaim space.
func (d *Drawing) Invalidate(eles []graph.Element, renderType string) bool {
	if renderType == "" {
		return d.atlases.Invalidate(eles, atlas.InvalidateOptions{})
	}
	return d.atlases.Invalidate(eles, atlas.InvalidateOptions{
		ForceRedraw: true,
		FilterType:  func(name string) bool { return name == renderType },
	})
}

// GC garbage collects the atlases.
func (d *Drawing) GC() {
	d.atlases.GC()
}

// AtlasDebugInfo returns key and page counts per render type.
func (d *Drawing) AtlasDebugInfo() []atlas.TypeDebugInfo {
	return d.atlases.DebugInfo()
}

// StartFrame begins a frame for target. debug, if not nil, receives one
// entry per flushed batch.
func (d *Drawing) StartFrame(panZoom geom.Matrix, debug *DebugLog, target Target) {
	d.panZoom = panZoom.Mat3()
	d.debug = debug
	d.target = target
	d.inFrame = true
	d.err = nil
	if err := d.backend.BeginFrame(target); err != nil {
		d.fail(fmt.Errorf("begin %s frame: %w", target, err))
	}
	d.startBatch()
}

// EndFrame flushes the last batch and finishes the frame. It returns the
// first error of the frame.
func (d *Drawing) EndFrame() error {
	if !d.inFrame {
		return ErrNotInFrame
	}
	d.endBatch()
	d.inFrame = false
	if d.err == nil {
		if err := d.backend.EndFrame(d.target); err != nil {
			d.fail(fmt.Errorf("end %s frame: %w", d.target, err))
		}
	}
	err := d.err
	d.err = nil
	return err
}

func (d *Drawing) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *Drawing) startBatch() {
	d.count = 0
	d.atlases.StartBatch()
}

// next returns the next free instance slot, cleared.
func (d *Drawing) next() *Instance {
	inst := &d.instances[d.count]
	*inst = Instance{}
	return inst
}

// commit counts the instance written by next and flushes a full batch.
func (d *Drawing) commit() {
	d.count++
	if d.count >= d.maxInstances {
		d.endBatch()
	}
}

// endBatch draws the queued instances and starts a new batch.
func (d *Drawing) endBatch() {
	count := d.count
	if count == 0 {
		return
	}
	pages := d.atlases.BatchAtlases()

	if d.err == nil {
		textures := make([]atlas.Texture, len(pages))
		for i, p := range pages {
			tex, err := p.BufferIfNeeded(d.backend.NewTexture)
			if err != nil {
				d.fail(fmt.Errorf("upload atlas page %d: %w", p.ID(), err))
				break
			}
			textures[i] = tex
		}
		if d.err == nil {
			err := d.backend.DrawBatch(&Batch{
				Target:     d.target,
				Instances:  d.instances[:count],
				Textures:   textures,
				PanZoom:    d.panZoom,
				AtlasSize:  float32(d.atlases.Options().Size),
				Background: d.background,
			})
			if err != nil {
				d.fail(fmt.Errorf("draw batch: %w", err))
			}
		}
	}

	if d.debug != nil {
		d.debug.Batches = append(d.debug.Batches, BatchInfo{Count: count, AtlasCount: len(pages)})
	}
	d.startBatch()
}

// DrawTexture draws the texture of ele for the named render type.
func (d *Drawing) DrawTexture(ele graph.Element, index int, renderType string) {
	m := d.atlases
	if !m.IsRenderable(ele, renderType) {
		return
	}
	if !m.CanAddToCurrentBatch(ele, renderType) {
		d.endBatch()
	}
	info, ok := m.AtlasInfo(ele, renderType)
	if !ok {
		d.endBatch()
		if info, ok = m.AtlasInfo(ele, renderType); !ok {
			return
		}
	}

	inst := d.next()
	inst.VertType = VertexTexture
	inst.Index = EncodeIndex(index)
	inst.AtlasID = int32(info.Slot)
	inst.Tex1 = location(info.Tex1)
	inst.Tex2 = location(info.Tex2)

	m1 := m.TransformMatrix(info, ele, true)
	inst.ScaleRot1, inst.Translate1 = m1.ScaleRotate(), m1.Offset()
	m2 := m.TransformMatrix(info, ele, false)
	inst.ScaleRot2, inst.Translate2 = m2.ScaleRotate(), m2.Offset()

	d.commit()
}

func location(l atlas.Location) [4]float32 {
	return [4]float32{float32(l.X), float32(l.Y), float32(l.W), float32(l.H)}
}

// DrawEdgeArrow draws the arrowhead at one end of edge. Arrows with a
// missing shape or a NaN position are skipped.
func (d *Drawing) DrawEdgeArrow(edge graph.Edge, index int, end graph.ArrowEnd) {
	ar := edge.Arrow(end)
	if geom.Pt(ar.X, ar.Y).IsNaN() || math.IsNaN(ar.Angle) {
		ggraph.Logger().Debug("render: skipping arrow with NaN geometry",
			slog.String("edge", edge.ID()), slog.String("end", end.String()))
		return
	}
	if ar.Shape == "" || ar.Shape == graph.ArrowShapeNone {
		return
	}

	ls := edge.LineStyle()
	size := ArrowWidth(ls.Width, ar.Scale)
	m := geom.Identity().Translate(ar.X, ar.Y).Scale(size, size).Rotate(ar.Angle)

	inst := d.next()
	inst.VertType = VertexEdgeArrow
	inst.Index = EncodeIndex(index)
	inst.Color = Premultiplied(ar.Color, ls.Opacity*ls.LineOpacity)
	inst.ScaleRot1, inst.Translate1 = m.ScaleRotate(), m.Offset()

	d.commit()
}

// DrawEdgeLine draws edge as one straight instance or as a chain of curve
// segments. A curve is never split across batches unless it is longer
// than a whole batch.
func (d *Drawing) DrawEdgeLine(edge graph.Edge, index int) {
	cps := edge.Points()
	if len(cps) < 4 || len(cps)%2 != 0 || hasNaN(cps...) {
		ggraph.Logger().Debug("render: skipping edge with invalid points",
			slog.String("edge", edge.ID()), slog.Int("values", len(cps)))
		return
	}

	ls := edge.LineStyle()
	col := Premultiplied(ls.Color, ls.Opacity*ls.LineOpacity)
	width := float32(ls.Width)
	idx := EncodeIndex(index)

	pts := cps
	if len(cps) != 4 {
		pts = CurveSegmentPoints(cps, d.NumSegments())
	}
	if len(pts)/2-1+d.count > d.maxInstances {
		d.endBatch()
	}

	if len(pts) == 4 {
		inst := d.next()
		inst.VertType = VertexEdgeStraight
		inst.Index = idx
		inst.Color = col
		inst.LineWidth = width
		inst.PointAB = [4]float32{float32(pts[0]), float32(pts[1]), float32(pts[2]), float32(pts[3])}
		d.commit()
		return
	}

	last := len(pts) - 4
	for i := 0; i < len(pts)-2; i += 2 {
		bx, by := pts[i], pts[i+1]
		cx, cy := pts[i+2], pts[i+3]

		// The first and last segments get phantom neighbours continuing
		// the curve straight. The offset keeps them from coinciding.
		var ax, ay, dx, dy float64
		if i == 0 {
			ax, ay = 2*bx-cx+0.001, 2*by-cy+0.001
		} else {
			ax, ay = pts[i-2], pts[i-1]
		}
		if i == last {
			dx, dy = 2*cx-bx+0.001, 2*cy-by+0.001
		} else {
			dx, dy = pts[i+4], pts[i+5]
		}

		inst := d.next()
		inst.VertType = VertexEdgeCurveSegment
		inst.Index = idx
		inst.Color = col
		inst.LineWidth = width
		inst.PointAB = [4]float32{float32(ax), float32(ay), float32(bx), float32(by)}
		inst.PointCD = [4]float32{float32(cx), float32(cy), float32(dx), float32(dy)}
		d.commit()
	}
}
