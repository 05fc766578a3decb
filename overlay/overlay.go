// Package overlay draws node overlays and underlays.
//
// An overlay is a translucent shape over a node, usually shown while the
// node is active. An underlay is the same shape drawn beneath the body.
// Both extend past the node box by their padding.
package overlay

import (
	"fmt"
	"image/color"

	"github.com/gogpu/ggraph/canvas"
	"github.com/gogpu/ggraph/geom"
	"github.com/gogpu/ggraph/graph"
	"github.com/lucasb-eyer/go-colorful"
)

// Kind selects overlay or underlay styling.
type Kind int

const (
	Overlay Kind = iota
	Underlay
)

func (k Kind) String() string {
	if k == Underlay {
		return "underlay"
	}
	return "overlay"
}

// Shape names.
const (
	ShapeRectangle      = "rectangle"
	ShapeRoundRectangle = "round-rectangle"
	ShapeEllipse        = "ellipse"
	ShapeDiamond        = "diamond"
	ShapeTriangle       = "triangle"
)

// Style is the resolved overlay or underlay style of a node.
type Style struct {
	Color   color.Color
	Opacity float64
	Padding float64
	Shape   string
	// Radius is the corner radius of round rectangles. Zero picks a
	// radius from the node size.
	Radius float64
}

// StyleFunc resolves the style of kind for a node.
type StyleFunc func(e graph.Element, kind Kind) Style

// BoxFunc returns the model space box of a node body.
type BoxFunc func(e graph.Element) geom.BBox

// Renderer is the render type of one overlay kind. It implements
// atlas.RenderType and atlas.Padder.
type Renderer struct {
	kind  Kind
	style StyleFunc
	box   BoxFunc
}

// New returns the render type for kind.
func New(kind Kind, style StyleFunc, box BoxFunc) *Renderer {
	return &Renderer{kind: kind, style: style, box: box}
}

// Kind returns the overlay kind.
func (r *Renderer) Kind() Kind { return r.kind }

// Key identifies the texture. The box size is part of it because the
// corner shape depends on the aspect ratio.
func (r *Renderer) Key(e graph.Element) string {
	s := r.style(e, r.kind)
	bb := r.box(e)
	return fmt.Sprintf("%s:%s:%s:%.3g:%.3g:%.3g:%gx%g",
		r.kind, shape(s.Shape), hex(s.Color), s.Opacity, s.Padding, s.Radius, bb.W, bb.H)
}

// BoundingBox returns the node box. Padding is applied when the texture
// is placed.
func (r *Renderer) BoundingBox(e graph.Element) geom.BBox { return r.box(e) }

// Padding returns the style padding.
func (r *Renderer) Padding(e graph.Element) float64 { return r.style(e, r.kind).Padding }

// Visible reports whether the node shows the overlay at all.
func (r *Renderer) Visible(e graph.Element) bool {
	if !e.IsNode() || !e.Visible() {
		return false
	}
	s := r.style(e, r.kind)
	return s.Color != nil && s.Opacity > 0
}

// Draw fills the shape over the whole texture. The texture is stretched
// over the padded box, so the shape covers the padding too.
func (r *Renderer) Draw(ctx *canvas.Context, e graph.Element, bb geom.BBox) {
	s := r.style(e, r.kind)
	if s.Color == nil || s.Opacity <= 0 {
		return
	}
	ctx.Save()
	defer ctx.Restore()
	ctx.SetGlobalAlpha(s.Opacity)
	ctx.SetFillColor(s.Color)

	var p canvas.Path
	switch shape(s.Shape) {
	case ShapeRectangle:
		p.Rect(bb.X1, bb.Y1, bb.W, bb.H)
	case ShapeEllipse:
		p.Ellipse(bb.X1+bb.W/2, bb.Y1+bb.H/2, bb.W/2, bb.H/2)
	case ShapeDiamond:
		cx, cy := bb.X1+bb.W/2, bb.Y1+bb.H/2
		p.Polygon([]geom.Point{
			geom.Pt(cx, bb.Y1), geom.Pt(bb.X2(), cy),
			geom.Pt(cx, bb.Y2()), geom.Pt(bb.X1, cy),
		})
	case ShapeTriangle:
		p.Polygon([]geom.Point{
			geom.Pt(bb.X1+bb.W/2, bb.Y1), geom.Pt(bb.X2(), bb.Y2()), geom.Pt(bb.X1, bb.Y2()),
		})
	default:
		p.RoundRect(bb.X1, bb.Y1, bb.W, bb.H, radius(s.Radius, bb))
	}
	ctx.FillPath(&p)
}

func shape(name string) string {
	switch name {
	case ShapeRectangle, ShapeEllipse, ShapeDiamond, ShapeTriangle:
		return name
	}
	return ShapeRoundRectangle
}

// radius follows the usual round rectangle rule: a quarter of the
// shorter side, at most 8 model units.
func radius(r float64, bb geom.BBox) float64 {
	if r > 0 {
		return r
	}
	return min(min(bb.W, bb.H)/4, 8)
}

func hex(c color.Color) string {
	if c == nil {
		return "none"
	}
	col, ok := colorful.MakeColor(c)
	if !ok {
		return "transparent"
	}
	return col.Hex()
}
