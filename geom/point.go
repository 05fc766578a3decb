package geom

import "math"

// Point represents a 2D point or vector.
type Point struct {
	X, Y float64
}

// Pt is a convenience function to create a Point.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// IsNaN reports whether either coordinate is NaN.
func (p Point) IsNaN() bool {
	return math.IsNaN(p.X) || math.IsNaN(p.Y)
}

// BBox is an axis-aligned box given by its top-left corner and size.
type BBox struct {
	X1, Y1 float64
	W, H   float64
}

// Box is a convenience function to create a BBox.
func Box(x1, y1, w, h float64) BBox {
	return BBox{X1: x1, Y1: y1, W: w, H: h}
}

// X2 returns the right edge.
func (b BBox) X2() float64 { return b.X1 + b.W }

// Y2 returns the bottom edge.
func (b BBox) Y2() float64 { return b.Y1 + b.H }

// Empty reports whether the box has no area.
func (b BBox) Empty() bool {
	return !(b.W > 0 && b.H > 0)
}

// Expand grows the box by pad on every side. A negative pad shrinks it.
func (b BBox) Expand(pad float64) BBox {
	return BBox{X1: b.X1 - pad, Y1: b.Y1 - pad, W: b.W + 2*pad, H: b.H + 2*pad}
}
