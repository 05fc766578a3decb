// Package picking resolves screen positions to elements.
//
// Elements are rendered to an offscreen target with their z-order index
// encoded as the pixel color. A query reads a block of that target back
// and decodes the indexes it finds.
package picking

import (
	"image"
	"log/slog"
	"math"

	"github.com/gogpu/ggraph"
	"github.com/gogpu/ggraph/graph"
	"github.com/gogpu/ggraph/render"
)

// PointSize is the side of the block read around a point query. It is
// even so the block is centred on the point.
const PointSize = 6

// Source renders and reads the picking target.
type Source interface {
	// RenderPicking draws every element into the picking target.
	RenderPicking() error
	// ReadPicking returns the pixels of r, clipped to the target.
	ReadPicking(r image.Rectangle) (*image.RGBA, error)
}

// Picker reads element indexes from the picking target, redrawing it
// first when it is stale.
type Picker struct {
	src       Source
	needsDraw bool
}

// New returns a Picker over src. The target starts stale.
func New(src Source) *Picker {
	return &Picker{src: src, needsDraw: true}
}

// Invalidate marks the picking target stale.
func (p *Picker) Invalidate() { p.needsDraw = true }

// NeedsDraw reports whether the next query redraws the target.
func (p *Picker) NeedsDraw() bool { return p.needsDraw }

// PointRegion returns the block read for a point query at rendered
// position (x, y).
func PointRegion(x, y float64) image.Rectangle {
	x0 := int(math.Floor(x)) - PointSize/2
	y0 := int(math.Floor(y)) - PointSize/2
	return image.Rect(x0, y0, x0+PointSize, y0+PointSize)
}

// BoxRegion returns the block read for a box query between two rendered
// corners in any order.
func BoxRegion(x1, y1, x2, y2 float64) image.Rectangle {
	return image.Rect(
		int(math.Floor(x1)), int(math.Floor(y1)),
		int(math.Floor(x2)), int(math.Floor(y2)),
	).Canon()
}

// Indexes returns the unique element indexes found in r, in scan order.
// Background pixels are ignored. An empty region yields no indexes and
// does not touch the target.
func (p *Picker) Indexes(r image.Rectangle) ([]int, error) {
	if r.Dx() == 0 || r.Dy() == 0 {
		return nil, nil
	}
	if p.needsDraw {
		ggraph.Logger().Debug("picking: redrawing target")
		if err := p.src.RenderPicking(); err != nil {
			return nil, err
		}
		p.needsDraw = false
	}
	img, err := p.src.ReadPicking(r)
	if err != nil {
		return nil, err
	}
	return decode(img), nil
}

func decode(img *image.RGBA) []int {
	var out []int
	seen := make(map[int]bool)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			px := row[x*4 : x*4+4]
			idx := render.DecodeIndex(px[0], px[1], px[2], px[3])
			if idx < 0 || seen[idx] {
				continue
			}
			seen[idx] = true
			out = append(out, idx)
		}
	}
	return out
}

// Nearest returns the first node and the first edge among indexes, in
// that order. Indexes outside eles are skipped.
func Nearest(indexes []int, eles []graph.Element) []graph.Element {
	var node, edge graph.Element
	for _, i := range indexes {
		e, ok := element(eles, i)
		if !ok {
			continue
		}
		if node == nil && e.IsNode() {
			node = e
		}
		if edge == nil && !e.IsNode() {
			edge = e
		}
		if node != nil && edge != nil {
			break
		}
	}
	var out []graph.Element
	if node != nil {
		out = append(out, node)
	}
	if edge != nil {
		out = append(out, edge)
	}
	return out
}

// Unique returns the elements for indexes, each ID once.
func Unique(indexes []int, eles []graph.Element) []graph.Element {
	var out []graph.Element
	seen := make(map[string]bool)
	for _, i := range indexes {
		e, ok := element(eles, i)
		if !ok || seen[e.ID()] {
			continue
		}
		seen[e.ID()] = true
		out = append(out, e)
	}
	return out
}

func element(eles []graph.Element, i int) (graph.Element, bool) {
	if i < 0 || i >= len(eles) {
		ggraph.Logger().Debug("picking: index out of range",
			slog.Int("index", i), slog.Int("elements", len(eles)))
		return nil, false
	}
	return eles[i], true
}

// FindNearest returns the nearest node and edge at rendered position
// (x, y).
func (p *Picker) FindNearest(x, y float64, eles []graph.Element) ([]graph.Element, error) {
	indexes, err := p.Indexes(PointRegion(x, y))
	if err != nil {
		return nil, err
	}
	return Nearest(indexes, eles), nil
}

// AllInBox returns every element drawn inside the rendered box.
func (p *Picker) AllInBox(x1, y1, x2, y2 float64, eles []graph.Element) ([]graph.Element, error) {
	indexes, err := p.Indexes(BoxRegion(x1, y1, x2, y2))
	if err != nil {
		return nil, err
	}
	return Unique(indexes, eles), nil
}
