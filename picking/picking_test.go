package picking

import (
	"errors"
	"image"
	"slices"
	"testing"

	"github.com/gogpu/ggraph/graph"
	"github.com/gogpu/ggraph/render"
)

type fakeElement struct {
	id   string
	node bool
}

func (e *fakeElement) ID() string    { return e.id }
func (e *fakeElement) IsNode() bool  { return e.node }
func (e *fakeElement) Visible() bool { return true }

// fakeSource serves a fixed picking image.
type fakeSource struct {
	img     *image.RGBA
	renders int
	reads   []image.Rectangle
	err     error
}

func (s *fakeSource) RenderPicking() error {
	s.renders++
	return s.err
}

func (s *fakeSource) ReadPicking(r image.Rectangle) (*image.RGBA, error) {
	s.reads = append(s.reads, r)
	return s.img.SubImage(r.Intersect(s.img.Bounds())).(*image.RGBA), nil
}

func setIndex(img *image.RGBA, x, y, index int) {
	c := render.EncodeIndex(index)
	off := img.PixOffset(x, y)
	for i, v := range c {
		img.Pix[off+i] = uint8(v*255 + 0.5)
	}
}

func TestRegions(t *testing.T) {
	if got := PointRegion(10.7, 20); got != image.Rect(7, 17, 13, 23) {
		t.Errorf("PointRegion = %v", got)
	}
	if got := BoxRegion(30, 40, 10, 5); got != image.Rect(10, 5, 30, 40) {
		t.Errorf("BoxRegion = %v", got)
	}
}

func TestIndexesScanOrder(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	setIndex(img, 3, 1, 7)
	setIndex(img, 1, 2, 2)
	setIndex(img, 4, 2, 7)
	setIndex(img, 0, 3, 0)
	src := &fakeSource{img: img}
	p := New(src)

	got, err := p.Indexes(image.Rect(0, 0, 8, 8))
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{7, 2, 0}; !slices.Equal(got, want) {
		t.Errorf("Indexes = %v, want %v", got, want)
	}
	if src.renders != 1 || p.NeedsDraw() {
		t.Errorf("renders = %d, needsDraw = %v", src.renders, p.NeedsDraw())
	}

	p.Indexes(image.Rect(0, 0, 2, 2))
	if src.renders != 1 {
		t.Error("clean target redrawn")
	}
	p.Invalidate()
	p.Indexes(image.Rect(0, 0, 2, 2))
	if src.renders != 2 {
		t.Error("stale target not redrawn")
	}
}

func TestIndexesEmptyRegion(t *testing.T) {
	src := &fakeSource{img: image.NewRGBA(image.Rect(0, 0, 4, 4))}
	p := New(src)
	got, err := p.Indexes(image.Rect(2, 0, 2, 4))
	if err != nil || got != nil {
		t.Errorf("Indexes = %v, %v", got, err)
	}
	if src.renders != 0 || len(src.reads) != 0 {
		t.Error("empty region touched the target")
	}
	if !p.NeedsDraw() {
		t.Error("empty region cleared the dirty flag")
	}
}

func TestIndexesRenderError(t *testing.T) {
	boom := errors.New("boom")
	p := New(&fakeSource{img: image.NewRGBA(image.Rect(0, 0, 4, 4)), err: boom})
	if _, err := p.Indexes(image.Rect(0, 0, 4, 4)); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	if !p.NeedsDraw() {
		t.Error("failed redraw cleared the dirty flag")
	}
}

func TestFindNearest(t *testing.T) {
	eles := []graph.Element{
		&fakeElement{id: "e0"},
		&fakeElement{id: "n1", node: true},
		&fakeElement{id: "e2"},
		&fakeElement{id: "n3", node: true},
	}
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	setIndex(img, 8, 8, 3)
	setIndex(img, 9, 8, 2)
	setIndex(img, 10, 9, 1)
	setIndex(img, 19, 19, 0)

	p := New(&fakeSource{img: img})
	got, err := p.FindNearest(10, 10, eles)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID() != "n3" || got[1].ID() != "e2" {
		t.Errorf("FindNearest = %v", ids(got))
	}
}

func TestAllInBox(t *testing.T) {
	a := &fakeElement{id: "a", node: true}
	eles := []graph.Element{a, &fakeElement{id: "b"}, a}
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	setIndex(img, 1, 1, 0)
	setIndex(img, 2, 1, 2)
	setIndex(img, 3, 1, 1)
	setIndex(img, 4, 1, 9)

	p := New(&fakeSource{img: img})
	got, err := p.AllInBox(5, 5, 0, 0, eles)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"a", "b"}; !slices.Equal(ids(got), want) {
		t.Errorf("AllInBox = %v, want %v", ids(got), want)
	}
}

func ids(eles []graph.Element) []string {
	out := make([]string, len(eles))
	for i, e := range eles {
		out[i] = e.ID()
	}
	return out
}
