package canvas

import (
	"image"
	"image/color"
	"math"

	"github.com/gogpu/ggraph/geom"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/vector"
)

// state is the saved portion of a Context.
type state struct {
	m     geom.Matrix
	fill  color.Color
	alpha float64
}

// Context draws into a Canvas through a current transform.
// Its methods mirror the HTML canvas 2D API closely enough that element
// drawing code reads the same way.
type Context struct {
	dst   *Canvas
	cur   state
	stack []state
	z     *vector.Rasterizer
}

func newContext(c *Canvas) *Context {
	return &Context{
		dst: c,
		cur: state{m: geom.Identity(), fill: color.Black, alpha: 1},
	}
}

// Canvas returns the target canvas.
func (ctx *Context) Canvas() *Canvas {
	return ctx.dst
}

// Save pushes the current transform, fill color and alpha.
func (ctx *Context) Save() {
	ctx.stack = append(ctx.stack, ctx.cur)
}

// Restore pops the state saved by the matching Save.
func (ctx *Context) Restore() {
	if n := len(ctx.stack); n > 0 {
		ctx.cur = ctx.stack[n-1]
		ctx.stack = ctx.stack[:n-1]
	}
}

// Translate moves the origin.
func (ctx *Context) Translate(x, y float64) {
	ctx.cur.m = ctx.cur.m.Translate(x, y)
}

// Scale scales subsequent drawing.
func (ctx *Context) Scale(sx, sy float64) {
	ctx.cur.m = ctx.cur.m.Scale(sx, sy)
}

// Rotate rotates subsequent drawing by angle radians.
func (ctx *Context) Rotate(angle float64) {
	ctx.cur.m = ctx.cur.m.Rotate(angle)
}

// Transform returns the current user-to-device transform.
func (ctx *Context) Transform() geom.Matrix {
	return ctx.cur.m
}

// SetTransform replaces the current transform.
func (ctx *Context) SetTransform(m geom.Matrix) {
	ctx.cur.m = m
}

// SetFillColor sets the color used by the Fill methods.
func (ctx *Context) SetFillColor(c color.Color) {
	ctx.cur.fill = c
}

// SetGlobalAlpha sets a multiplier applied to everything drawn.
func (ctx *Context) SetGlobalAlpha(a float64) {
	ctx.cur.alpha = math.Max(0, math.Min(1, a))
}

// FillPath fills p with the current fill color using the nonzero rule.
func (ctx *Context) FillPath(p *Path) {
	if p.Empty() {
		return
	}
	w, h := ctx.dst.Width(), ctx.dst.Height()
	if ctx.z == nil {
		ctx.z = vector.NewRasterizer(w, h)
	} else {
		ctx.z.Reset(w, h)
	}
	p.walk(ctx.cur.m, ctx.z)
	ctx.z.Draw(ctx.dst.img, ctx.dst.img.Bounds(), image.NewUniform(ctx.fillColor()), image.Point{})
}

// FillRect fills an axis-aligned rectangle in user coordinates.
func (ctx *Context) FillRect(x, y, w, h float64) {
	var p Path
	p.Rect(x, y, w, h)
	ctx.FillPath(&p)
}

// FillEllipse fills an ellipse centred at (cx, cy).
func (ctx *Context) FillEllipse(cx, cy, rx, ry float64) {
	var p Path
	p.Ellipse(cx, cy, rx, ry)
	ctx.FillPath(&p)
}

// FillRoundRect fills a rectangle with rounded corners.
func (ctx *Context) FillRoundRect(x, y, w, h, r float64) {
	var p Path
	p.RoundRect(x, y, w, h, r)
	ctx.FillPath(&p)
}

// DrawImage draws the sr region of src into the user-space rectangle
// (dx, dy, dw, dh). Integer-aligned unscaled draws are exact pixel copies
// composited with source-over; anything else is resampled bilinearly.
func (ctx *Context) DrawImage(src image.Image, sr image.Rectangle, dx, dy, dw, dh float64) {
	if sr.Empty() || dw <= 0 || dh <= 0 {
		return
	}
	s2d := ctx.cur.m.
		Translate(dx, dy).
		Scale(dw/float64(sr.Dx()), dh/float64(sr.Dy())).
		Translate(-float64(sr.Min.X), -float64(sr.Min.Y))

	var mask image.Image
	if ctx.cur.alpha < 1 {
		mask = image.NewUniform(color.Alpha{A: uint8(math.Round(ctx.cur.alpha * 255))})
	}

	if s2d.IsTranslation() && isInt(s2d.C) && isInt(s2d.F) {
		dp := image.Pt(int(s2d.C), int(s2d.F)).Add(sr.Min)
		dr := image.Rectangle{Min: dp, Max: dp.Add(sr.Size())}
		if mask == nil {
			draw.Draw(ctx.dst.img, dr, src, sr.Min, draw.Over)
		} else {
			draw.DrawMask(ctx.dst.img, dr, src, sr.Min, mask, image.Point{}, draw.Over)
		}
		return
	}

	aff := f64.Aff3{s2d.A, s2d.B, s2d.C, s2d.D, s2d.E, s2d.F}
	var opts *draw.Options
	if mask != nil {
		opts = &draw.Options{SrcMask: mask}
	}
	draw.BiLinear.Transform(ctx.dst.img, aff, src, sr, draw.Over, opts)
}

func (ctx *Context) fillColor() color.Color {
	c := color.RGBA64Model.Convert(ctx.cur.fill).(color.RGBA64)
	if ctx.cur.alpha >= 1 {
		return c
	}
	a := ctx.cur.alpha
	return color.RGBA64{
		R: uint16(float64(c.R) * a),
		G: uint16(float64(c.G) * a),
		B: uint16(float64(c.B) * a),
		A: uint16(float64(c.A) * a),
	}
}

func isInt(v float64) bool {
	return v == math.Trunc(v)
}
