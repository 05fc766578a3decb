package geom

import "math"

// Matrix represents a 2D affine transformation matrix.
// It uses a 2x3 matrix in row-major order:
//
//	| a  b  c |
//	| d  e  f |
//
// This represents the transformation:
//
//	x' = a*x + b*y + c
//	y' = d*x + e*y + f
//
// The builder methods (Translate, Scale, Rotate) post-multiply, so
// Identity().Translate(x, y).Scale(s, s) scales first and translates last
// when applied to a point.
type Matrix struct {
	A, B, C float64
	D, E, F float64
}

// Identity returns the identity transformation matrix.
func Identity() Matrix {
	return Matrix{
		A: 1, B: 0, C: 0,
		D: 0, E: 1, F: 0,
	}
}

// Translation creates a translation matrix.
func Translation(x, y float64) Matrix {
	return Matrix{
		A: 1, B: 0, C: x,
		D: 0, E: 1, F: y,
	}
}

// Scaling creates a scaling matrix.
func Scaling(x, y float64) Matrix {
	return Matrix{
		A: x, B: 0, C: 0,
		D: 0, E: y, F: 0,
	}
}

// Rotation creates a rotation matrix (angle in radians).
func Rotation(angle float64) Matrix {
	cos := math.Cos(angle)
	sin := math.Sin(angle)
	return Matrix{
		A: cos, B: -sin, C: 0,
		D: sin, E: cos, F: 0,
	}
}

// Projection maps a width x height pixel space with Y down onto clip
// space [-1, 1] with Y up.
func Projection(width, height float64) Matrix {
	return Matrix{
		A: 2 / width, B: 0, C: -1,
		D: 0, E: -2 / height, F: 1,
	}
}

// Multiply multiplies two matrices (m * other).
func (m Matrix) Multiply(other Matrix) Matrix {
	return Matrix{
		A: m.A*other.A + m.B*other.D,
		B: m.A*other.B + m.B*other.E,
		C: m.A*other.C + m.B*other.F + m.C,
		D: m.D*other.A + m.E*other.D,
		E: m.D*other.B + m.E*other.E,
		F: m.D*other.C + m.E*other.F + m.F,
	}
}

// Translate returns m * Translation(x, y).
func (m Matrix) Translate(x, y float64) Matrix {
	return m.Multiply(Translation(x, y))
}

// Scale returns m * Scaling(x, y).
func (m Matrix) Scale(x, y float64) Matrix {
	return m.Multiply(Scaling(x, y))
}

// Rotate returns m * Rotation(angle).
func (m Matrix) Rotate(angle float64) Matrix {
	return m.Multiply(Rotation(angle))
}

// TransformPoint applies the transformation to a point.
func (m Matrix) TransformPoint(p Point) Point {
	return Point{
		X: m.A*p.X + m.B*p.Y + m.C,
		Y: m.D*p.X + m.E*p.Y + m.F,
	}
}

// IsTranslation returns true if the matrix is only a translation.
func (m Matrix) IsTranslation() bool {
	return m.A == 1 && m.B == 0 && m.D == 0 && m.E == 1
}

// Mat3 returns the matrix as a column-major 3x3, the layout shaders expect.
func (m Matrix) Mat3() [9]float32 {
	return [9]float32{
		float32(m.A), float32(m.D), 0,
		float32(m.B), float32(m.E), 0,
		float32(m.C), float32(m.F), 1,
	}
}

// ScaleRotate returns the linear part as the (a, d, b, e) column pair
// packed into an instance attribute.
func (m Matrix) ScaleRotate() [4]float32 {
	return [4]float32{float32(m.A), float32(m.D), float32(m.B), float32(m.E)}
}

// Offset returns the translation part.
func (m Matrix) Offset() [2]float32 {
	return [2]float32{float32(m.C), float32(m.F)}
}
