package atlas

import (
	"github.com/gogpu/ggraph/canvas"
	"github.com/gogpu/ggraph/geom"
	"github.com/gogpu/ggraph/graph"
)

// RenderType draws one visual layer of elements, such as node bodies or
// labels, into atlas textures.
type RenderType interface {
	// Key returns the style key of e. Elements with equal keys look the
	// same and share a texture.
	Key(e graph.Element) string

	// BoundingBox returns the model space box the texture is mapped onto.
	BoundingBox(e graph.Element) geom.BBox

	// Draw renders the appearance of e. See DrawFunc.
	Draw(ctx *canvas.Context, e graph.Element, bb geom.BBox)

	// Visible reports whether the layer draws anything for e.
	Visible(e graph.Element) bool
}

// Padder is implemented by render types whose texture extends past the
// bounding box.
type Padder interface {
	Padding(e graph.Element) float64
}

// Rotator is implemented by render types whose texture can be rotated,
// such as labels that follow an edge.
type Rotator interface {
	// Rotation returns the angle in radians. Zero disables rotation.
	Rotation(e graph.Element) float64

	// RotationPoint returns the pivot in model space.
	RotationPoint(e graph.Element) geom.Point

	// RotationOffset returns the position of the texture relative to the
	// pivot, before rotation.
	RotationOffset(e graph.Element) geom.Point
}

func padding(rt RenderType, e graph.Element) float64 {
	if p, ok := rt.(Padder); ok {
		return p.Padding(e)
	}
	return 0
}
