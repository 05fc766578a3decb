package atlas

import (
	"math"
	"testing"

	"github.com/gogpu/ggraph/canvas"
	"github.com/gogpu/ggraph/geom"
	"github.com/gogpu/ggraph/graph"
)

type testNode struct {
	id    string
	key   string
	bb    geom.BBox
	shown bool
}

func (n *testNode) ID() string    { return n.id }
func (n *testNode) IsNode() bool  { return true }
func (n *testNode) Visible() bool { return n.shown }

// bodyType draws testNode elements as opaque boxes.
type bodyType struct {
	draws int
}

func (b *bodyType) Key(e graph.Element) string            { return e.(*testNode).key }
func (b *bodyType) BoundingBox(e graph.Element) geom.BBox { return e.(*testNode).bb }
func (b *bodyType) Visible(e graph.Element) bool          { return e.Visible() }

func (b *bodyType) Draw(ctx *canvas.Context, _ graph.Element, bb geom.BBox) {
	b.draws++
	ctx.FillRect(bb.X1, bb.Y1, bb.W, bb.H)
}

type paddedType struct {
	bodyType
	pad float64
}

func (p *paddedType) Padding(graph.Element) float64 { return p.pad }

type rotatedType struct {
	bodyType
	theta float64
	pivot geom.Point
	off   geom.Point
}

func (r *rotatedType) Rotation(graph.Element) float64          { return r.theta }
func (r *rotatedType) RotationPoint(graph.Element) geom.Point  { return r.pivot }
func (r *rotatedType) RotationOffset(graph.Element) geom.Point { return r.off }

func node(id, key string, w, h float64) *testNode {
	return &testNode{id: id, key: key, bb: geom.Box(100, 200, w, h), shown: true}
}

func nearPoint(p geom.Point, x, y float64) bool {
	return math.Abs(p.X-x) < 1e-9 && math.Abs(p.Y-y) < 1e-9
}

func TestAtlasIndexForBatch(t *testing.T) {
	m := NewManager(Options{Size: 64, Rows: 4}, 2)
	p1 := New(m.Options(), nil)
	p2 := New(m.Options(), nil)
	p3 := New(m.Options(), nil)

	if i, ok := m.AtlasIndexForBatch(p1); !ok || i != 0 {
		t.Errorf("p1 slot = %d, %v, want 0, true", i, ok)
	}
	if i, ok := m.AtlasIndexForBatch(p2); !ok || i != 1 {
		t.Errorf("p2 slot = %d, %v, want 1, true", i, ok)
	}
	if i, ok := m.AtlasIndexForBatch(p1); !ok || i != 0 {
		t.Errorf("p1 again = %d, %v, want 0, true", i, ok)
	}
	if _, ok := m.AtlasIndexForBatch(p3); ok {
		t.Error("third page got a slot in a two-slot batch")
	}
	if len(m.BatchAtlases()) != 2 {
		t.Errorf("BatchAtlases() = %d, want 2", len(m.BatchAtlases()))
	}

	m.StartBatch()
	if i, ok := m.AtlasIndexForBatch(p3); !ok || i != 0 {
		t.Errorf("p3 after StartBatch = %d, %v, want 0, true", i, ok)
	}
}

func TestCanAddToCurrentBatch(t *testing.T) {
	m := NewManager(Options{Size: 64, Rows: 1}, 1)
	m.AddRenderType("body", &bodyType{})

	a := node("a", "ka", 64, 64)
	b := node("b", "kb", 64, 64)
	if !m.CanAddToCurrentBatch(a, "body") {
		t.Fatal("empty batch refused an element")
	}
	if _, ok := m.AtlasInfo(a, "body"); !ok {
		t.Fatal("AtlasInfo(a) failed")
	}
	if !m.CanAddToCurrentBatch(a, "body") {
		t.Error("element on a bound page refused")
	}
	if m.CanAddToCurrentBatch(b, "body") {
		t.Error("element needing a new slot accepted by a full batch")
	}
	if _, ok := m.AtlasInfo(b, "body"); ok {
		t.Error("AtlasInfo(b) succeeded in a full batch")
	}
}

func TestAtlasInfo(t *testing.T) {
	m := NewManager(Options{Size: 256, Rows: 8, Wrap: true}, 4)
	body := &bodyType{}
	m.AddRenderType("body", body)

	n := node("a", "k", 64, 32)
	info, ok := m.AtlasInfo(n, "body")
	if !ok {
		t.Fatal("AtlasInfo() failed")
	}
	if info.Slot != 0 || info.Key != "k" || info.Type != "body" || info.BBox != n.bb {
		t.Errorf("info = %+v", info)
	}
	if info.Tex1 != (Location{X: 0, Y: 0, W: 64, H: 32}) || info.Wrapped() {
		t.Errorf("Tex1 = %+v, Tex2 = %+v", info.Tex1, info.Tex2)
	}

	m.AtlasInfo(node("b", "k", 64, 32), "body")
	if body.draws != 1 {
		t.Errorf("shared key drawn %d times", body.draws)
	}
}

func TestIsRenderable(t *testing.T) {
	m := NewManager(Options{Size: 64, Rows: 4}, 2)
	m.AddRenderType("body", &bodyType{})

	n := node("a", "k", 10, 10)
	if !m.IsRenderable(n, "body") {
		t.Error("visible node not renderable")
	}
	if m.IsRenderable(n, "label") {
		t.Error("unknown render type renderable")
	}
	n.shown = false
	if m.IsRenderable(n, "body") {
		t.Error("hidden node renderable")
	}
	n.shown = true
	n.bb.W = 0
	if m.IsRenderable(n, "body") {
		t.Error("empty box renderable")
	}
}

func TestAdjustedBB(t *testing.T) {
	bb := geom.Box(10, 20, 100, 50)

	got := AdjustedBB(bb, 5, true, 1)
	if got.BBox != geom.Box(5, 15, 110, 60) || got.XOffset != 0 {
		t.Errorf("padded = %+v", got)
	}

	got = AdjustedBB(bb, 0, true, 0.25)
	if got.BBox != geom.Box(10, 20, 25, 50) || got.XOffset != 0 {
		t.Errorf("first part = %+v", got)
	}

	got = AdjustedBB(bb, 0, false, 0.75)
	if got.BBox != geom.Box(35, 20, 75, 50) || got.XOffset != 25 {
		t.Errorf("second part = %+v", got)
	}
}

func TestTransformMatrixWrapped(t *testing.T) {
	m := NewManager(Options{Size: 100, Rows: 4, Wrap: true}, 4)
	m.AddRenderType("body", &bodyType{})

	m.AtlasInfo(node("pad", "pad", 70, 25), "body")
	n := node("a", "k", 60, 25)
	info, _ := m.AtlasInfo(n, "body")
	if !info.Wrapped() {
		t.Fatal("texture did not wrap")
	}

	first := m.TransformMatrix(info, n, true)
	second := m.TransformMatrix(info, n, false)

	if p := first.TransformPoint(geom.Pt(0, 0)); !nearPoint(p, 100, 200) {
		t.Errorf("first part origin = %+v", p)
	}
	// Tex1 is 30 of 60 pixels wide, so the split is in the middle.
	if p := first.TransformPoint(geom.Pt(1, 1)); !nearPoint(p, 130, 225) {
		t.Errorf("first part corner = %+v", p)
	}
	if p := second.TransformPoint(geom.Pt(0, 0)); !nearPoint(p, 130, 200) {
		t.Errorf("second part origin = %+v", p)
	}
	if p := second.TransformPoint(geom.Pt(1, 1)); !nearPoint(p, 160, 225) {
		t.Errorf("second part corner = %+v", p)
	}
}

func TestTransformMatrixPadding(t *testing.T) {
	m := NewManager(Options{Size: 64, Rows: 4}, 4)
	m.AddRenderType("overlay", &paddedType{pad: 10})
	n := node("a", "k", 20, 10)
	info, _ := m.AtlasInfo(n, "overlay")

	mat := m.TransformMatrix(info, n, true)
	if p := mat.TransformPoint(geom.Pt(0, 0)); !nearPoint(p, 90, 190) {
		t.Errorf("origin = %+v, want (90, 190)", p)
	}
	if p := mat.TransformPoint(geom.Pt(1, 1)); !nearPoint(p, 130, 220) {
		t.Errorf("corner = %+v, want (130, 220)", p)
	}
}

func TestTransformMatrixRotation(t *testing.T) {
	m := NewManager(Options{Size: 64, Rows: 4}, 4)
	m.AddRenderType("label", &rotatedType{
		theta: math.Pi / 2,
		pivot: geom.Pt(50, 50),
		off:   geom.Pt(-10, -5),
	})
	n := node("a", "k", 20, 10)
	info, _ := m.AtlasInfo(n, "label")

	mat := m.TransformMatrix(info, n, true)
	// (0,0) -> offset (-10,-5) -> rotated a quarter turn -> (5,-10) about the pivot.
	if p := mat.TransformPoint(geom.Pt(0, 0)); !nearPoint(p, 55, 40) {
		t.Errorf("origin = %+v, want (55, 40)", p)
	}
	// (1,0) -> (10,-5) -> (5,10).
	if p := mat.TransformPoint(geom.Pt(1, 0)); !nearPoint(p, 55, 60) {
		t.Errorf("right = %+v, want (55, 60)", p)
	}
}

func TestInvalidate(t *testing.T) {
	m := NewManager(Options{Size: 64, Rows: 4}, 4)
	body := &bodyType{}
	m.AddRenderType("body", body)

	n := node("a", "k1", 10, 10)
	m.AtlasInfo(n, "body")

	if m.Invalidate([]graph.Element{n}, InvalidateOptions{}) {
		t.Error("unchanged element needs GC")
	}

	n.key = "k2"
	if !m.Invalidate([]graph.Element{n}, InvalidateOptions{}) {
		t.Error("changed key does not need GC")
	}
	if got := m.Collection("body").RefCount("k1"); got != 0 {
		t.Errorf("RefCount(k1) = %d, want 0", got)
	}

	m.AtlasInfo(n, "body")
	skip := InvalidateOptions{ForceRedraw: true, FilterType: func(string) bool { return false }}
	if m.Invalidate([]graph.Element{n}, skip) {
		t.Error("filtered invalidate needs GC")
	}

	if !m.Invalidate([]graph.Element{n}, InvalidateOptions{ForceRedraw: true}) {
		t.Error("forced redraw does not need GC")
	}
	draws := body.draws
	m.StartBatch()
	m.AtlasInfo(n, "body")
	if body.draws != draws+1 {
		t.Error("forced redraw did not draw again")
	}

	m.GC()
	info := m.DebugInfo()
	if len(info) != 1 || info[0].Type != "body" || info[0].KeyCount != 1 || info[0].AtlasCount != 1 {
		t.Errorf("DebugInfo() = %+v", info)
	}
}

func TestInvalidateForcedUnplacedKey(t *testing.T) {
	m := NewManager(Options{Size: 64, Rows: 4}, 4)
	m.AddRenderType("body", &bodyType{})

	n := node("a", "k", 10, 10)
	if m.Invalidate([]graph.Element{n}, InvalidateOptions{ForceRedraw: true}) {
		t.Error("forced redraw of a key never drawn needs GC")
	}
	c := m.Collection("body")
	if len(c.needsRedraw) != 0 || len(c.keyToIDs) != 0 {
		t.Errorf("needsRedraw = %v, keyToIDs = %v, want both empty", c.needsRedraw, c.keyToIDs)
	}
}

func TestManagerDispose(t *testing.T) {
	m := NewManager(Options{Size: 64, Rows: 4}, 4)
	m.AddRenderType("body", &bodyType{})
	m.AddRenderType("label", &bodyType{})

	var texs []*fakeTexture
	factory := func(*Atlas) (Texture, error) {
		tex := &fakeTexture{}
		texs = append(texs, tex)
		return tex, nil
	}
	for _, name := range m.RenderTypes() {
		m.AtlasInfo(node("a", "k", 10, 10), name)
	}
	for _, p := range m.BatchAtlases() {
		p.BufferIfNeeded(factory)
	}
	if len(texs) != 2 {
		t.Fatalf("created %d textures, want 2", len(texs))
	}

	m.Dispose()
	for i, tex := range texs {
		if !tex.destroyed {
			t.Errorf("texture %d not destroyed", i)
		}
	}
	if len(m.BatchAtlases()) != 0 {
		t.Error("disposed pages still bound to the batch")
	}
}

func TestAddRenderTypeReplaceDisposes(t *testing.T) {
	m := NewManager(Options{Size: 64, Rows: 4}, 4)
	m.AddRenderType("body", &bodyType{})
	info, _ := m.AtlasInfo(node("a", "k", 10, 10), "body")
	tex := &fakeTexture{}
	m.BatchAtlases()[info.Slot].BufferIfNeeded(func(*Atlas) (Texture, error) { return tex, nil })

	m.AddRenderType("body", &bodyType{})
	if !tex.destroyed {
		t.Error("replaced render type kept its page textures")
	}
	if m.Collection("body").HasAtlas("k") {
		t.Error("replaced render type kept its keys")
	}
}
