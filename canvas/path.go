package canvas

import (
	"math"

	"github.com/gogpu/ggraph/geom"
)

// kappa is the cubic Bezier control distance for a quarter circle.
const kappa = 0.5522847498307936

type verb uint8

const (
	verbMove verb = iota
	verbLine
	verbQuad
	verbCube
	verbClose
)

// Path is a sequence of subpaths in user coordinates.
type Path struct {
	verbs []verb
	pts   []geom.Point
}

// MoveTo starts a new subpath.
func (p *Path) MoveTo(x, y float64) {
	p.verbs = append(p.verbs, verbMove)
	p.pts = append(p.pts, geom.Pt(x, y))
}

// LineTo adds a straight segment.
func (p *Path) LineTo(x, y float64) {
	p.verbs = append(p.verbs, verbLine)
	p.pts = append(p.pts, geom.Pt(x, y))
}

// QuadTo adds a quadratic Bezier segment.
func (p *Path) QuadTo(cx, cy, x, y float64) {
	p.verbs = append(p.verbs, verbQuad)
	p.pts = append(p.pts, geom.Pt(cx, cy), geom.Pt(x, y))
}

// CubeTo adds a cubic Bezier segment.
func (p *Path) CubeTo(c1x, c1y, c2x, c2y, x, y float64) {
	p.verbs = append(p.verbs, verbCube)
	p.pts = append(p.pts, geom.Pt(c1x, c1y), geom.Pt(c2x, c2y), geom.Pt(x, y))
}

// Close closes the current subpath.
func (p *Path) Close() {
	p.verbs = append(p.verbs, verbClose)
}

// Empty reports whether the path has no segments.
func (p *Path) Empty() bool {
	return len(p.verbs) == 0
}

// Rect appends a closed rectangle.
func (p *Path) Rect(x, y, w, h float64) {
	p.MoveTo(x, y)
	p.LineTo(x+w, y)
	p.LineTo(x+w, y+h)
	p.LineTo(x, y+h)
	p.Close()
}

// Ellipse appends a closed ellipse made of four cubic arcs.
func (p *Path) Ellipse(cx, cy, rx, ry float64) {
	kx, ky := rx*kappa, ry*kappa
	p.MoveTo(cx+rx, cy)
	p.CubeTo(cx+rx, cy+ky, cx+kx, cy+ry, cx, cy+ry)
	p.CubeTo(cx-kx, cy+ry, cx-rx, cy+ky, cx-rx, cy)
	p.CubeTo(cx-rx, cy-ky, cx-kx, cy-ry, cx, cy-ry)
	p.CubeTo(cx+kx, cy-ry, cx+rx, cy-ky, cx+rx, cy)
	p.Close()
}

// RoundRect appends a closed rectangle with circular corners of radius r.
func (p *Path) RoundRect(x, y, w, h, r float64) {
	r = math.Min(r, math.Min(w, h)/2)
	if r <= 0 {
		p.Rect(x, y, w, h)
		return
	}
	k := r * kappa
	p.MoveTo(x+r, y)
	p.LineTo(x+w-r, y)
	p.CubeTo(x+w-r+k, y, x+w, y+r-k, x+w, y+r)
	p.LineTo(x+w, y+h-r)
	p.CubeTo(x+w, y+h-r+k, x+w-r+k, y+h, x+w-r, y+h)
	p.LineTo(x+r, y+h)
	p.CubeTo(x+r-k, y+h, x, y+h-r+k, x, y+h-r)
	p.LineTo(x, y+r)
	p.CubeTo(x, y+r-k, x+r-k, y, x+r, y)
	p.Close()
}

// Polygon appends a closed polygon through pts.
func (p *Path) Polygon(pts []geom.Point) {
	if len(pts) < 3 {
		return
	}
	p.MoveTo(pts[0].X, pts[0].Y)
	for _, q := range pts[1:] {
		p.LineTo(q.X, q.Y)
	}
	p.Close()
}

// walk replays the path through m.
func (p *Path) walk(m geom.Matrix, s sink) {
	i := 0
	for _, v := range p.verbs {
		switch v {
		case verbMove:
			a := m.TransformPoint(p.pts[i])
			s.MoveTo(float32(a.X), float32(a.Y))
			i++
		case verbLine:
			a := m.TransformPoint(p.pts[i])
			s.LineTo(float32(a.X), float32(a.Y))
			i++
		case verbQuad:
			a, b := m.TransformPoint(p.pts[i]), m.TransformPoint(p.pts[i+1])
			s.QuadTo(float32(a.X), float32(a.Y), float32(b.X), float32(b.Y))
			i += 2
		case verbCube:
			a, b, c := m.TransformPoint(p.pts[i]), m.TransformPoint(p.pts[i+1]), m.TransformPoint(p.pts[i+2])
			s.CubeTo(float32(a.X), float32(a.Y), float32(b.X), float32(b.Y), float32(c.X), float32(c.Y))
			i += 3
		case verbClose:
			s.ClosePath()
		}
	}
}

// sink receives device-space path segments.
type sink interface {
	MoveTo(x, y float32)
	LineTo(x, y float32)
	QuadTo(bx, by, cx, cy float32)
	CubeTo(bx, by, cx, cy, dx, dy float32)
	ClosePath()
}
