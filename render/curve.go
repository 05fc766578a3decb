// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import "math"

// defaultSegments is the number of segments a curved edge is split into.
const defaultSegments = 15

// minSegments is the lower bound of the segment count.
const minSegments = 5

// NumSegments returns the number of segments per curved edge, bounded by
// the instance capacity.
func (d *Drawing) NumSegments() int {
	return min(max(defaultSegments, minSegments), d.maxInstances)
}

// CurveSegmentPoints flattens a control polygon into segments+1 points of a
// Bezier curve at equal parameter steps. The first and last points are the
// first and last control points exactly. Four values describe a straight
// line and are returned as is.
func CurveSegmentPoints(cps []float64, segments int) []float64 {
	if len(cps) == 4 {
		return cps
	}
	pts := make([]float64, (segments+1)*2)
	tmp := make([]float64, len(cps))
	for i := 0; i <= segments; i++ {
		switch i {
		case 0:
			pts[0], pts[1] = cps[0], cps[1]
		case segments:
			pts[i*2], pts[i*2+1] = cps[len(cps)-2], cps[len(cps)-1]
		default:
			pts[i*2], pts[i*2+1] = curvePoint(cps, float64(i)/float64(segments), tmp)
		}
	}
	return pts
}

// curvePoint evaluates the curve at t by repeated linear interpolation.
// tmp must be at least as long as cps.
func curvePoint(cps []float64, t float64, tmp []float64) (x, y float64) {
	n := copy(tmp, cps)
	for ; n > 2; n -= 2 {
		for i := 0; i+3 < n; i += 2 {
			tmp[i] = (1-t)*tmp[i] + t*tmp[i+2]
			tmp[i+1] = (1-t)*tmp[i+1] + t*tmp[i+3]
		}
	}
	return tmp[0], tmp[1]
}

// ArrowWidth returns the arrowhead size for a line width and arrow scale.
func ArrowWidth(lineWidth, scale float64) float64 {
	return math.Max(math.Pow(lineWidth*13.37, 0.9), 29) * scale
}

func hasNaN(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
