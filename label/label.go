// Package label draws element labels into atlas textures.
//
// Text is shaped with the HarfBuzz shaper of go-text/typesetting and
// filled from the glyph outlines, so a label texture looks the same on
// every platform. A label is placed by its centre and may be rotated
// about it, as edge labels that follow their edge are.
package label

import (
	"fmt"
	"image/color"
	"math"

	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/font/opentype"
	"github.com/go-text/typesetting/shaping"
	"github.com/gogpu/ggraph/canvas"
	"github.com/gogpu/ggraph/geom"
	"github.com/gogpu/ggraph/graph"
	"github.com/gogpu/ggraph/internal/cache"
	"github.com/lucasb-eyer/go-colorful"
)

// Spec is the label of an element as resolved by the host.
type Spec struct {
	Text string
	// Size is the font size in model units.
	Size  float64
	Color color.Color
	// Pos is the centre of the label in model space.
	Pos geom.Point
	// Angle rotates the label about Pos, in radians.
	Angle float64
}

// SpecFunc returns the label of e, or false when e has none.
type SpecFunc func(e graph.Element) (Spec, bool)

// layoutCacheSize bounds the shaped lines kept between frames.
const layoutCacheSize = 4096

type layoutKey struct {
	text string
	size float64
}

// Renderer is the render type of a label layer. It implements
// atlas.RenderType and atlas.Rotator.
type Renderer struct {
	font    *Font
	spec    SpecFunc
	shaper  shaping.HarfbuzzShaper
	layouts *cache.Cache[layoutKey, Layout]
	path    canvas.Path
}

// New returns a label render type. A nil font uses DefaultFont.
func New(f *Font, spec SpecFunc) *Renderer {
	if f == nil {
		f = DefaultFont()
	}
	return &Renderer{
		font:    f,
		spec:    spec,
		layouts: cache.New[layoutKey, Layout](layoutCacheSize),
	}
}

// Layout returns the shaped line for text at size.
func (r *Renderer) Layout(text string, size float64) Layout {
	return r.layouts.GetOrCreate(layoutKey{text, size}, func() Layout {
		return r.font.Shape(&r.shaper, text, size)
	})
}

// CacheStats returns the layout cache counters.
func (r *Renderer) CacheStats() cache.Stats { return r.layouts.Stats() }

func (r *Renderer) resolve(e graph.Element) (Spec, Layout, bool) {
	s, ok := r.spec(e)
	if !ok || s.Text == "" || s.Size <= 0 || s.Pos.IsNaN() || math.IsNaN(s.Angle) {
		return Spec{}, Layout{}, false
	}
	return s, r.Layout(s.Text, s.Size), true
}

// Key identifies the texture by text, size, color and font.
func (r *Renderer) Key(e graph.Element) string {
	s, ok := r.spec(e)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s:%g:%s:%q", r.font.name, s.Size, hex(s.Color), s.Text)
}

// BoundingBox returns the unrotated label box centred on the label
// position.
func (r *Renderer) BoundingBox(e graph.Element) geom.BBox {
	s, l, ok := r.resolve(e)
	if !ok {
		return geom.BBox{}
	}
	w, h := l.Width, l.Height()
	return geom.Box(s.Pos.X-w/2, s.Pos.Y-h/2, w, h)
}

// Visible reports whether e has a non-empty label.
func (r *Renderer) Visible(e graph.Element) bool {
	if !e.Visible() {
		return false
	}
	_, _, ok := r.resolve(e)
	return ok
}

// Rotation returns the label angle.
func (r *Renderer) Rotation(e graph.Element) float64 {
	s, _ := r.spec(e)
	return s.Angle
}

// RotationPoint returns the label centre.
func (r *Renderer) RotationPoint(e graph.Element) geom.Point {
	s, _ := r.spec(e)
	return s.Pos
}

// RotationOffset places the box so its centre is on the pivot.
func (r *Renderer) RotationOffset(e graph.Element) geom.Point {
	_, l, ok := r.resolve(e)
	if !ok {
		return geom.Point{}
	}
	return geom.Pt(-l.Width/2, -l.Height()/2)
}

// Draw fills the glyph outlines of the label so the line fills bb.
func (r *Renderer) Draw(ctx *canvas.Context, e graph.Element, bb geom.BBox) {
	s, l, ok := r.resolve(e)
	if !ok {
		return
	}
	ctx.Save()
	defer ctx.Restore()
	ctx.SetFillColor(s.Color)
	r.path = canvas.Path{}
	r.font.appendOutlines(&r.path, l, bb.X1, bb.Y1+l.Ascent)
	ctx.FillPath(&r.path)
}

// appendOutlines adds the outlines of every glyph of l to p, with the
// baseline starting at (x, y). Outlines are y-up in font units.
func (f *Font) appendOutlines(p *canvas.Path, l Layout, x, y float64) {
	s := f.scale(l.size)
	for _, g := range l.Glyphs {
		outline, ok := f.face.GlyphData(g.ID).(font.GlyphOutline)
		if !ok {
			continue
		}
		ox, oy := x+g.X, y+g.Y
		pt := func(sp opentype.SegmentPoint) (float64, float64) {
			return ox + float64(sp.X)*s, oy - float64(sp.Y)*s
		}
		open := false
		for _, seg := range outline.Segments {
			switch seg.Op {
			case opentype.SegmentOpMoveTo:
				if open {
					p.Close()
				}
				p.MoveTo(pt(seg.Args[0]))
				open = true
			case opentype.SegmentOpLineTo:
				p.LineTo(pt(seg.Args[0]))
			case opentype.SegmentOpQuadTo:
				cx, cy := pt(seg.Args[0])
				ex, ey := pt(seg.Args[1])
				p.QuadTo(cx, cy, ex, ey)
			case opentype.SegmentOpCubeTo:
				c1x, c1y := pt(seg.Args[0])
				c2x, c2y := pt(seg.Args[1])
				ex, ey := pt(seg.Args[2])
				p.CubeTo(c1x, c1y, c2x, c2y, ex, ey)
			}
		}
		if open {
			p.Close()
		}
	}
}

func hex(c color.Color) string {
	if c == nil {
		return "none"
	}
	col, ok := colorful.MakeColor(c)
	if !ok {
		return "transparent"
	}
	_, _, _, a := c.RGBA()
	return fmt.Sprintf("%s/%d", col.Hex(), a>>8)
}
