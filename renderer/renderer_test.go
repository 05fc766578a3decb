package renderer

import (
	"errors"
	"image"
	"image/color"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/ggraph"
	"github.com/gogpu/ggraph/atlas"
	"github.com/gogpu/ggraph/canvas"
	"github.com/gogpu/ggraph/geom"
	"github.com/gogpu/ggraph/graph"
	"github.com/gogpu/ggraph/label"
	"github.com/gogpu/ggraph/overlay"
	"github.com/gogpu/ggraph/render"
)

type testNode struct {
	id    string
	key   string
	bb    geom.BBox
	label string
	ring  bool
}

func (n *testNode) ID() string    { return n.id }
func (n *testNode) IsNode() bool  { return true }
func (n *testNode) Visible() bool { return true }

type testEdge struct {
	id     string
	points []float64
	label  string
}

func (e *testEdge) ID() string        { return e.id }
func (e *testEdge) IsNode() bool      { return false }
func (e *testEdge) Visible() bool     { return true }
func (e *testEdge) Points() []float64 { return e.points }

func (e *testEdge) LineStyle() graph.LineStyle {
	return graph.LineStyle{Color: color.Black, Width: 2, Opacity: 1, LineOpacity: 1}
}

func (e *testEdge) Arrow(end graph.ArrowEnd) graph.Arrow {
	x := e.points[0]
	if end == graph.Target {
		x = e.points[len(e.points)-2]
	}
	return graph.Arrow{X: x, Y: 0, Shape: "triangle", Color: color.Black, Scale: 1}
}

type testHost struct {
	bodies int
}

func (h *testHost) BodyKey(e graph.Element) string    { return e.(*testNode).key }
func (h *testHost) BodyBox(e graph.Element) geom.BBox { return e.(*testNode).bb }

func (h *testHost) DrawBody(ctx *canvas.Context, _ graph.Element, bb geom.BBox) {
	h.bodies++
	ctx.FillRect(bb.X1, bb.Y1, bb.W, bb.H)
}

func (h *testHost) Label(e graph.Element) (label.Spec, bool) {
	var text string
	var pos geom.Point
	switch e := e.(type) {
	case *testNode:
		text, pos = e.label, geom.Pt(e.bb.X1+e.bb.W/2, e.bb.Y2()+10)
	case *testEdge:
		text, pos = e.label, geom.Pt(e.points[0], e.points[1])
	}
	return label.Spec{Text: text, Size: 12, Color: color.Black, Pos: pos}, text != ""
}

func (h *testHost) OverlayStyle(e graph.Element, _ overlay.Kind) overlay.Style {
	if !e.(*testNode).ring {
		return overlay.Style{}
	}
	return overlay.Style{Color: color.Black, Opacity: 0.3, Padding: 4}
}

type batchRecord struct {
	target    render.Target
	instances []render.Instance
}

type fakeTexture struct {
	destroyed int
}

func (t *fakeTexture) Upload(*image.RGBA) error { return nil }
func (t *fakeTexture) Destroy()                 { t.destroyed++ }

type fakeBackend struct {
	frames   []render.Target
	batches  []batchRecord
	textures []*fakeTexture
	pick     *image.RGBA
	reads    []image.Rectangle
	size     image.Point
	closed   bool
}

func (f *fakeBackend) NewTexture(*atlas.Atlas) (atlas.Texture, error) {
	tex := &fakeTexture{}
	f.textures = append(f.textures, tex)
	return tex, nil
}

func (f *fakeBackend) BeginFrame(t render.Target) error {
	f.frames = append(f.frames, t)
	return nil
}

func (f *fakeBackend) DrawBatch(b *render.Batch) error {
	f.batches = append(f.batches, batchRecord{target: b.Target, instances: slices.Clone(b.Instances)})
	return nil
}

func (f *fakeBackend) EndFrame(render.Target) error { return nil }

func (f *fakeBackend) Resize(w, h int) error {
	f.size = image.Pt(w, h)
	return nil
}

func (f *fakeBackend) ReadPixels(_ render.Target, r image.Rectangle) (*image.RGBA, error) {
	f.reads = append(f.reads, r)
	if f.pick == nil {
		return image.NewRGBA(r), nil
	}
	return f.pick.SubImage(r.Intersect(f.pick.Bounds())).(*image.RGBA), nil
}

func (f *fakeBackend) Close() { f.closed = true }

func (f *fakeBackend) count(t render.Target) int {
	n := 0
	for _, ft := range f.frames {
		if ft == t {
			n++
		}
	}
	return n
}

func testConfig() ggraph.Config {
	cfg := ggraph.DefaultConfig()
	cfg.TexSize = 256
	cfg.TexRows = 8
	cfg.BatchSize = 64
	cfg.TexPerBatch = 8
	return cfg
}

func newTestRenderer(t *testing.T, cfg ggraph.Config) (*Renderer, *fakeBackend, *testHost) {
	t.Helper()
	fb := &fakeBackend{}
	host := &testHost{}
	o := defaultOptions()
	r, err := newRenderer(fb, host, cfg, o)
	if err != nil {
		t.Fatalf("newRenderer: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r, fb, host
}

func sampleGraph() (*testNode, *testEdge) {
	n := &testNode{id: "n", key: "blue", bb: geom.Box(0, 0, 30, 30), label: "node", ring: true}
	e := &testEdge{id: "e", points: []float64{0, 0, 100, 0}, label: "edge"}
	return n, e
}

func vertTypes(insts []render.Instance) []render.VertexType {
	out := make([]render.VertexType, len(insts))
	for i, inst := range insts {
		out[i] = inst.VertType
	}
	return out
}

func TestDrawOrder(t *testing.T) {
	r, fb, _ := newTestRenderer(t, testConfig())
	n, e := sampleGraph()
	r.SetElements(graph.SplitDragged([]graph.Element{n, e}, nil))

	if err := r.Render(View{Zoom: 1}); err != nil {
		t.Fatal(err)
	}
	if len(fb.batches) != 1 {
		t.Fatalf("batches = %d, want 1", len(fb.batches))
	}
	insts := fb.batches[0].instances
	want := []render.VertexType{
		render.VertexTexture, render.VertexTexture, render.VertexTexture, render.VertexTexture,
		render.VertexEdgeStraight, render.VertexEdgeArrow, render.VertexEdgeArrow, render.VertexTexture,
	}
	if got := vertTypes(insts); !slices.Equal(got, want) {
		t.Fatalf("vertex types = %v, want %v", got, want)
	}
	if insts[0].Index != render.EncodeIndex(0) || insts[4].Index != render.EncodeIndex(1) {
		t.Error("instances do not carry their z-order index")
	}
	if got := r.DebugReport(); got != "2 elements, 8 rectangles, 1 batches" {
		t.Errorf("DebugReport() = %q", got)
	}
}

func TestDraggedElements(t *testing.T) {
	r, fb, _ := newTestRenderer(t, testConfig())
	n, e := sampleGraph()
	r.SetElements(graph.SplitDragged([]graph.Element{n, e}, func(el graph.Element) bool { return el == n }))

	if err := r.Render(View{Zoom: 1}); err != nil {
		t.Fatal(err)
	}
	insts := fb.batches[0].instances
	// The edge is drawn first with index 0, the dragged node last.
	if insts[0].VertType != render.VertexEdgeStraight || insts[0].Index != render.EncodeIndex(0) {
		t.Errorf("first instance = %v %v", insts[0].VertType, insts[0].Index)
	}
	if last := insts[len(insts)-1]; last.Index != [4]float32{} {
		t.Errorf("dragged node index = %v, want background", last.Index)
	}

	if _, err := r.FindNearestElements(0, 0); err != nil {
		t.Fatal(err)
	}
	pick := fb.batches[len(fb.batches)-1]
	if pick.target != render.Picking || pick.instances[0].Index != render.EncodeIndex(0) {
		t.Error("picking pass does not draw every element by z-order")
	}
}

func TestZoomFallback(t *testing.T) {
	cfg := testConfig()
	cfg.MaxZoom = 2
	fb := &fakeBackend{}
	var got []View
	o := defaultOptions()
	WithFallback(func(v View) { got = append(got, v) })(&o)
	r, err := newRenderer(fb, &testHost{}, cfg, o)
	if err != nil {
		t.Fatal(err)
	}

	if err := r.Render(View{Zoom: 3}); !errors.Is(err, ErrZoomFallback) {
		t.Errorf("err = %v, want ErrZoomFallback", err)
	}
	if len(got) != 1 {
		t.Errorf("fallback calls = %d, want 1", len(got))
	}
	// The screen target is cleared by one empty frame.
	if !slices.Equal(fb.frames, []render.Target{render.Screen}) || len(fb.batches) != 0 {
		t.Errorf("frames = %v with %d batches, want one empty screen frame", fb.frames, len(fb.batches))
	}
	if err := r.Render(View{Zoom: 2}); err != nil {
		t.Errorf("zoom at the maximum: %v", err)
	}
}

func TestPickingInvalidation(t *testing.T) {
	r, fb, _ := newTestRenderer(t, testConfig())
	n, e := sampleGraph()
	r.SetElements(graph.SplitDragged([]graph.Element{n, e}, nil))
	r.Render(View{Zoom: 1})

	pick := func() int {
		t.Helper()
		if _, err := r.FindNearestElements(1, 1); err != nil {
			t.Fatal(err)
		}
		return fb.count(render.Picking)
	}

	if got := pick(); got != 1 {
		t.Fatalf("picking frames = %d, want 1", got)
	}
	if got := pick(); got != 1 {
		t.Errorf("clean target redrawn: %d frames", got)
	}

	steps := []struct {
		name string
		fn   func()
	}{
		{"viewport event", func() { r.Notify(EventViewport, nil) }},
		{"bounds event", func() { r.Notify(EventBounds, nil) }},
		{"resize", func() { r.Resize(640, 480) }},
		{"z-order", func() { r.SetElements(graph.SplitDragged([]graph.Element{e, n}, nil)) }},
		{"new view", func() { r.Render(View{Zoom: 1.5}) }},
	}
	want := 1
	for _, s := range steps {
		s.fn()
		want++
		if got := pick(); got != want {
			t.Errorf("after %s: picking frames = %d, want %d", s.name, got, want)
		}
	}

	r.Render(View{Zoom: 1.5})
	if got := pick(); got != want {
		t.Errorf("same view redrew picking: %d frames", got)
	}
	if fb.size != image.Pt(640, 480) {
		t.Errorf("backend size = %v", fb.size)
	}
}

func TestFindNearestElements(t *testing.T) {
	r, fb, _ := newTestRenderer(t, testConfig())
	n, e := sampleGraph()
	r.SetElements(graph.SplitDragged([]graph.Element{n, e}, nil))
	v := View{Pan: geom.Pt(10, 20), Zoom: 2}
	r.Render(v)

	fb.pick = image.NewRGBA(image.Rect(0, 0, 100, 100))
	set := func(x, y, index int) {
		c := render.EncodeIndex(index)
		for i := range c {
			fb.pick.Pix[fb.pick.PixOffset(x, y)+i] = uint8(c[i]*255 + 0.5)
		}
	}
	// Model (5, 5) is rendered at (20, 30).
	set(20, 29, 1)
	set(21, 30, 0)

	got, err := r.FindNearestElements(5, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != graph.Element(n) || got[1] != graph.Element(e) {
		t.Errorf("FindNearestElements = %v", got)
	}
	if last := fb.reads[len(fb.reads)-1]; last != image.Rect(17, 27, 23, 33) {
		t.Errorf("read %v, want the 6x6 block around (20, 30)", last)
	}

	box, err := r.AllInBox(20, 20, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(box) != 2 {
		t.Errorf("AllInBox = %d elements, want 2", len(box))
	}
	if last := fb.reads[len(fb.reads)-1]; last != image.Rect(10, 20, 50, 60) {
		t.Errorf("box read %v", last)
	}
	if got, _ := r.AllInBox(3, 3, 3, 9); got != nil {
		t.Errorf("zero-width box = %v", got)
	}
}

func TestDebouncedGC(t *testing.T) {
	cfg := testConfig()
	cfg.GCDelay = ggraph.Duration(10 * time.Millisecond)
	r, _, host := newTestRenderer(t, cfg)
	n, _ := sampleGraph()
	r.SetElements(graph.SplitDragged([]graph.Element{n}, nil))
	r.Render(View{Zoom: 1})

	r.UpdateElements([]graph.Element{n})
	if r.GCPending() {
		t.Fatal("unchanged element scheduled GC")
	}

	n.key = "red"
	r.UpdateElements([]graph.Element{n})
	deadline := time.Now().Add(2 * time.Second)
	for !r.GCPending() {
		if time.Now().After(deadline) {
			t.Fatal("GC flag never set")
		}
		time.Sleep(5 * time.Millisecond)
	}

	r.Render(View{Zoom: 1})
	if r.GCPending() {
		t.Error("GC flag not consumed by the frame")
	}
	if host.bodies != 2 {
		t.Errorf("bodies drawn %d times, want 2", host.bodies)
	}
	for _, info := range r.drawing.AtlasDebugInfo() {
		if info.Type == NodeBody && info.KeyCount != 1 {
			t.Errorf("node bodies hold %d keys after GC, want 1", info.KeyCount)
		}
	}
}

func TestBackgroundEventRedrawsBodies(t *testing.T) {
	r, _, host := newTestRenderer(t, testConfig())
	n, _ := sampleGraph()
	r.SetElements(graph.SplitDragged([]graph.Element{n}, nil))
	r.Render(View{Zoom: 1})
	r.Notify(EventBackground, []graph.Element{n})
	r.Render(View{Zoom: 1})
	if host.bodies != 2 {
		t.Errorf("bodies drawn %d times, want 2", host.bodies)
	}
}

func TestDebugOutput(t *testing.T) {
	cfg := testConfig()
	cfg.Debug = true
	cfg.DebugShowAtlases = true
	r, _, _ := newTestRenderer(t, cfg)
	n, e := sampleGraph()
	r.SetElements(graph.SplitDragged([]graph.Element{n, e}, nil))
	r.Render(View{Zoom: 1})

	if report := r.DebugReport(); !strings.Contains(report, "node-body: 1 keys, 1 atlases") {
		t.Errorf("DebugReport() = %q", report)
	}
	shown := r.ShownAtlases()
	if len(shown) != 5 {
		t.Fatalf("ShownAtlases() = %d pages, want one per render type", len(shown))
	}
	if shown[0].Type != NodeBody || shown[0].Image.Bounds().Dx() != 256 {
		t.Errorf("first page = %s %v", shown[0].Type, shown[0].Image.Bounds())
	}
}

func TestClose(t *testing.T) {
	r, fb, _ := newTestRenderer(t, testConfig())
	r.Close()
	if !fb.closed {
		t.Error("backend not closed")
	}
	if err := r.Render(View{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Render after Close: %v", err)
	}
	if _, err := r.FindNearestElements(0, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("FindNearestElements after Close: %v", err)
	}
}

func TestCloseDisposesAtlasTextures(t *testing.T) {
	r, fb, _ := newTestRenderer(t, testConfig())
	n, e := sampleGraph()
	r.SetElements(graph.SplitDragged([]graph.Element{n, e}, nil))
	if err := r.Render(View{Zoom: 1}); err != nil {
		t.Fatal(err)
	}
	n.key = "red"
	r.UpdateElements([]graph.Element{n})
	r.drawing.GC()
	if err := r.Render(View{Zoom: 1}); err != nil {
		t.Fatal(err)
	}
	if len(fb.textures) < 5 {
		t.Fatalf("created %d textures, want one per render type at least", len(fb.textures))
	}

	r.Close()
	for i, tex := range fb.textures {
		if tex.destroyed != 1 {
			t.Errorf("texture %d destroyed %d times, want 1", i, tex.destroyed)
		}
	}
}

func TestNilHost(t *testing.T) {
	if _, err := newRenderer(&fakeBackend{}, nil, testConfig(), defaultOptions()); !errors.Is(err, ErrNilHost) {
		t.Errorf("err = %v", err)
	}
}

func TestViewTransforms(t *testing.T) {
	v := View{Pan: geom.Pt(400, 300), Zoom: 2}
	if p := v.ToRendered(geom.Pt(10, -5)); p != geom.Pt(420, 290) {
		t.Errorf("ToRendered = %+v", p)
	}
	clip := v.PanZoom(800, 600).TransformPoint(geom.Pt(0, 0))
	if clip.X != 0 || clip.Y != 0 {
		t.Errorf("model origin at clip %+v, want the centre", clip)
	}
	if (View{}).ToRendered(geom.Pt(3, 4)) != geom.Pt(3, 4) {
		t.Error("zero view is not the identity")
	}
}
