// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image/color"

	"github.com/gogpu/ggraph/atlas"
	"github.com/lucasb-eyer/go-colorful"
)

// VertexType tags what an instance draws. The vertex shader branches on it.
type VertexType int32

const (
	// VertexTexture is an atlas texture mapped onto a box, in up to two parts.
	VertexTexture VertexType = iota
	// VertexEdgeStraight is a straight edge from point A to point B.
	VertexEdgeStraight
	// VertexEdgeCurveSegment is the B-C segment of a curve polyline, with
	// neighbours A and D used for the joins.
	VertexEdgeCurveSegment
	// VertexEdgeArrow is an arrowhead triangle.
	VertexEdgeArrow
)

// String returns the vertex type name.
func (v VertexType) String() string {
	switch v {
	case VertexTexture:
		return "Texture"
	case VertexEdgeStraight:
		return "EdgeStraight"
	case VertexEdgeCurveSegment:
		return "EdgeCurveSegment"
	case VertexEdgeArrow:
		return "EdgeArrow"
	default:
		return "Unknown"
	}
}

// Target selects what a frame renders.
type Target int

const (
	// Screen renders element appearance.
	Screen Target = iota
	// Picking renders encoded element indexes for hit testing.
	Picking
)

// String returns the target name.
func (t Target) String() string {
	if t == Picking {
		return "picking"
	}
	return "screen"
}

// VerticesPerInstance is the size of the instance geometry: two quads of
// two triangles each. The second quad draws the wrapped part of a texture.
const VerticesPerInstance = 12

// InstanceStride is the size of Instance in bytes.
const InstanceStride = 156

// Instance holds the attributes of one instanced draw. Fields are laid out
// in shader attribute order with no padding.
type Instance struct {
	Index      [4]float32
	VertType   VertexType
	AtlasID    int32
	Tex1       [4]float32
	Tex2       [4]float32
	ScaleRot1  [4]float32
	Translate1 [2]float32
	ScaleRot2  [4]float32
	Translate2 [2]float32
	PointAB    [4]float32
	PointCD    [4]float32
	LineWidth  float32
	Color      [4]float32
}

// Batch is one instanced draw. Textures[i] is the atlas page bound to
// texture slot i.
type Batch struct {
	Target     Target
	Instances  []Instance
	Textures   []atlas.Texture
	PanZoom    [9]float32
	AtlasSize  float32
	Background [4]float32
}

// Backend executes batches on a GPU. Instances and Textures are only valid
// during DrawBatch.
type Backend interface {
	// NewTexture creates the texture for an atlas page.
	NewTexture(a *atlas.Atlas) (atlas.Texture, error)
	// BeginFrame starts rendering to target. The first batch of a frame
	// clears it.
	BeginFrame(target Target) error
	// DrawBatch records and submits one instanced draw.
	DrawBatch(b *Batch) error
	// EndFrame finishes the frame.
	EndFrame(target Target) error
}

// BatchInfo describes one flushed batch.
type BatchInfo struct {
	Count      int
	AtlasCount int
}

// DebugLog collects per-batch statistics of a frame.
type DebugLog struct {
	Batches []BatchInfo
}

// Instances returns the number of instances drawn.
func (l *DebugLog) Instances() int {
	n := 0
	for _, b := range l.Batches {
		n += b.Count
	}
	return n
}

// Reset clears the log for reuse.
func (l *DebugLog) Reset() {
	l.Batches = l.Batches[:0]
}

// EncodeIndex encodes an element index as a picking color. index+1 is
// split into little-endian bytes so that zero stays the background.
func EncodeIndex(index int) [4]float32 {
	v := uint32(index + 1)
	return [4]float32{
		float32(v&0xff) / 255,
		float32(v>>8&0xff) / 255,
		float32(v>>16&0xff) / 255,
		float32(v>>24&0xff) / 255,
	}
}

// DecodeIndex decodes a picking pixel. The background decodes to -1.
func DecodeIndex(r, g, b, a uint8) int {
	v := uint32(r) | uint32(g)<<8 | uint32(b)<<16 | uint32(a)<<24
	return int(v) - 1
}

// Premultiplied converts c to a premultiplied RGBA vector, multiplying its
// alpha by opacity.
func Premultiplied(c color.Color, opacity float64) [4]float32 {
	if c == nil {
		return [4]float32{}
	}
	col, ok := colorful.MakeColor(c)
	if !ok {
		return [4]float32{}
	}
	_, _, _, a := c.RGBA()
	alpha := opacity * float64(a) / 0xffff
	return [4]float32{
		float32(col.R * alpha),
		float32(col.G * alpha),
		float32(col.B * alpha),
		float32(alpha),
	}
}
