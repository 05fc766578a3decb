package renderer

import (
	"github.com/gogpu/ggraph/canvas"
	"github.com/gogpu/ggraph/geom"
	"github.com/gogpu/ggraph/graph"
	"github.com/gogpu/ggraph/label"
	"github.com/gogpu/ggraph/overlay"
)

// Render type names.
const (
	NodeBody     = "node-body"
	NodeLabel    = "node-label"
	NodeOverlay  = "node-overlay"
	NodeUnderlay = "node-underlay"
	EdgeLabel    = "edge-label"
)

// Host supplies the element appearance the renderer cannot compute.
type Host interface {
	// BodyKey returns the style key of a node body. Nodes with equal keys
	// share a texture.
	BodyKey(e graph.Element) string
	// BodyBox returns the model space box of a node body.
	BodyBox(e graph.Element) geom.BBox
	// DrawBody draws a node body so that it fills bb.
	DrawBody(ctx *canvas.Context, e graph.Element, bb geom.BBox)
	// Label returns the label of a node or edge.
	Label(e graph.Element) (label.Spec, bool)
	// OverlayStyle returns the overlay or underlay style of a node.
	OverlayStyle(e graph.Element, kind overlay.Kind) overlay.Style
}

// bodyType adapts Host to atlas.RenderType for node bodies.
type bodyType struct {
	host Host
}

func (b bodyType) Key(e graph.Element) string            { return b.host.BodyKey(e) }
func (b bodyType) BoundingBox(e graph.Element) geom.BBox { return b.host.BodyBox(e) }
func (b bodyType) Visible(e graph.Element) bool          { return e.IsNode() && e.Visible() }

func (b bodyType) Draw(ctx *canvas.Context, e graph.Element, bb geom.BBox) {
	b.host.DrawBody(ctx, e, bb)
}

// labelsOf restricts the host labels to nodes or to edges.
func labelsOf(host Host, nodes bool) label.SpecFunc {
	return func(e graph.Element) (label.Spec, bool) {
		if e.IsNode() != nodes {
			return label.Spec{}, false
		}
		return host.Label(e)
	}
}
