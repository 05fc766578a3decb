// Package graph defines the element model the renderer consumes.
//
// Style resolution, geometry and dirty tracking belong to the host scene
// graph. The renderer only reads what these interfaces expose.
package graph

import "image/color"

// Element is a node or an edge.
type Element interface {
	// ID returns a stable unique identifier.
	ID() string

	// IsNode reports whether the element is a node. Otherwise it is an edge.
	IsNode() bool

	// Visible reports whether the element is displayed at all.
	Visible() bool
}

// ArrowEnd selects an edge endpoint.
type ArrowEnd int

const (
	// Source is the arrow at the start of the edge.
	Source ArrowEnd = iota
	// Target is the arrow at the end of the edge.
	Target
)

func (e ArrowEnd) String() string {
	if e == Source {
		return "source"
	}
	return "target"
}

// ArrowShapeNone disables an arrowhead.
const ArrowShapeNone = "none"

// Arrow describes an arrowhead as computed by the host.
type Arrow struct {
	// X, Y is the arrow tip position in model coordinates.
	X, Y float64
	// Angle is the arrow direction in radians.
	Angle float64
	// Shape is the arrow shape name; ArrowShapeNone or "" hides it.
	Shape string
	// Color is the fill color.
	Color color.Color
	// Scale multiplies the width-derived arrow size.
	Scale float64
}

// LineStyle is the resolved line style of an edge.
type LineStyle struct {
	Color       color.Color
	Width       float64
	Opacity     float64
	LineOpacity float64
}

// Edge is an element drawn as a line with optional arrowheads.
type Edge interface {
	Element

	// Points returns the flattened control points x0, y0, x1, y1, ...
	// Four values describe a straight line.
	Points() []float64

	// LineStyle returns the resolved line style.
	LineStyle() LineStyle

	// Arrow returns the arrowhead at the given end.
	Arrow(end ArrowEnd) Arrow
}

// ZOrder holds the elements of a frame sorted back to front.
type ZOrder struct {
	// All is every element in z-order. Picking indexes refer to it.
	All []Element
	// NonDrag is All without the elements being dragged.
	NonDrag []Element
	// Drag holds the dragged elements, drawn last.
	Drag []Element
}

// SplitDragged builds a ZOrder from a sorted list and a drag predicate.
// A nil predicate treats every element as not dragged.
func SplitDragged(all []Element, dragged func(Element) bool) ZOrder {
	z := ZOrder{All: all}
	if dragged == nil {
		z.NonDrag = all
		return z
	}
	for _, e := range all {
		if dragged(e) {
			z.Drag = append(z.Drag, e)
		} else {
			z.NonDrag = append(z.NonDrag, e)
		}
	}
	return z
}
