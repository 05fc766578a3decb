// Package atlas packs per-element textures into fixed-size pages.
//
// An Atlas is one square page split into equal-height rows and filled left
// to right by a free pointer. A texture that does not fit at the end of a row
// may wrap: its left part goes to the end of the current row and the rest to
// the start of the next one, so every texture occupies at most two
// rectangles. A Collection owns the pages of one render type and reclaims
// space by reference counting and compaction. A Manager owns one Collection
// per render type and assigns pages to texture slots for each draw batch.
package atlas

import (
	"image"
	"math"
	"sync/atomic"

	"github.com/gogpu/ggraph/canvas"
	"github.com/gogpu/ggraph/geom"
)

// Location is a rectangle of a page in integer pixels.
type Location struct {
	X, Y, W, H int
}

// Rect returns the location as an image rectangle.
func (l Location) Rect() image.Rectangle {
	return image.Rect(l.X, l.Y, l.X+l.W, l.Y+l.H)
}

// FreePointer is the next writable position of a page.
type FreePointer struct {
	X   int
	Row int
}

// PageID identifies a page for the lifetime of the process.
type PageID uint64

var lastPageID atomic.Uint64

// DrawFunc renders an element's appearance. The context maps the model
// space box bb onto the texture, so the element is drawn at its model
// coordinates.
type DrawFunc func(ctx *canvas.Context, bb geom.BBox)

// Texture is the GPU copy of a page.
type Texture interface {
	// Upload replaces the texture contents with img.
	Upload(img *image.RGBA) error
	// Destroy releases the GPU resources.
	Destroy()
}

// TextureFactory creates the GPU texture for a page.
type TextureFactory func(a *Atlas) (Texture, error)

// Options configures the pages of a Collection.
type Options struct {
	// Size is the page side in pixels.
	Size int
	// Rows is the number of equal-height rows per page.
	Rows int
	// Wrap lets a texture continue on the next row instead of wasting the
	// end of the current one.
	Wrap bool
}

// Atlas is a single page.
type Atlas struct {
	id        PageID
	size      int
	rows      int
	texHeight int
	wrap      bool

	free      FreePointer
	locations map[string][2]Location
	keys      []string

	page    *canvas.Canvas
	scratch func(w, h int) *canvas.Canvas

	tex     Texture
	dirty   bool
	forceGC bool
}

// New creates an empty page. scratch supplies the canvas textures are
// rendered into before being copied to the page; nil allocates a private one.
func New(opts Options, scratch func(w, h int) *canvas.Canvas) *Atlas {
	if scratch == nil {
		var sc scratchCache
		scratch = sc.get
	}
	return &Atlas{
		id:        PageID(lastPageID.Add(1)),
		size:      opts.Size,
		rows:      opts.Rows,
		texHeight: opts.Size / opts.Rows,
		wrap:      opts.Wrap,
		locations: make(map[string][2]Location),
		page:      canvas.New(opts.Size, opts.Size),
		scratch:   scratch,
		dirty:     true,
	}
}

// ID returns the page identifier.
func (a *Atlas) ID() PageID { return a.id }

// Size returns the page side in pixels.
func (a *Atlas) Size() int { return a.size }

// Rows returns the number of rows.
func (a *Atlas) Rows() int { return a.rows }

// TexHeight returns the row height in pixels.
func (a *Atlas) TexHeight() int { return a.texHeight }

// FreePointer returns the next writable position.
func (a *Atlas) FreePointer() FreePointer { return a.free }

// Page returns the page pixels.
func (a *Atlas) Page() *canvas.Canvas { return a.page }

// Dirty reports whether the pixels changed since the last upload.
func (a *Atlas) Dirty() bool { return a.dirty }

// IsEmpty reports whether nothing has been placed on the page.
func (a *Atlas) IsEmpty() bool {
	return a.free.X == 0 && a.free.Row == 0
}

// Keys returns the keys placed on the page in placement order.
func (a *Atlas) Keys() []string {
	keys := make([]string, len(a.keys))
	copy(keys, a.keys)
	return keys
}

// Has reports whether key is placed on the page.
func (a *Atlas) Has(key string) bool {
	_, ok := a.locations[key]
	return ok
}

// Offsets returns the two locations of key. The second one has zero width
// unless the texture wraps.
func (a *Atlas) Offsets(key string) ([2]Location, bool) {
	locs, ok := a.locations[key]
	return locs, ok
}

// Scale returns the factor that maps bb onto a texture and the resulting
// texture size. The texture is as tall as a row unless that would make it
// wider than the page, in which case it is as wide as the page.
func (a *Atlas) Scale(bb geom.BBox) (scale float64, texW, texH int) {
	w, h := bb.W, bb.H
	if bb.Empty() {
		w, h = 1, 1
	}
	scale = float64(a.texHeight) / h
	if w*scale > float64(a.size) {
		scale = float64(a.size) / w
	}
	texW = clampInt(int(math.Round(w*scale)), 1, a.size)
	texH = clampInt(int(math.Round(h*scale)), 1, a.texHeight)
	return scale, texW, texH
}

// CanFit reports whether a texture for bb can be placed without mutating
// the page.
func (a *Atlas) CanFit(bb geom.BBox) bool {
	_, texW, _ := a.Scale(bb)
	return a.fits(texW)
}

func (a *Atlas) fits(texW int) bool {
	if a.free.Row >= a.rows {
		return false
	}
	if a.free.X+texW > a.size {
		return a.free.Row < a.rows-1
	}
	return true
}

// Draw places the texture for key and renders it with fn. It returns false
// when the page is full. Drawing a key that is already placed returns its
// existing locations without rendering again.
func (a *Atlas) Draw(key string, bb geom.BBox, fn DrawFunc) ([2]Location, bool) {
	if locs, ok := a.locations[key]; ok {
		return locs, true
	}
	scale, texW, texH := a.Scale(bb)
	locs, ok := a.reserve(texW, texH)
	if !ok {
		return locs, false
	}

	src := a.scratch(a.size, a.texHeight)
	src.ClearRect(image.Rect(0, 0, texW, a.texHeight))
	if fn != nil {
		ctx := src.Context()
		ctx.Scale(scale, scale)
		ctx.Translate(-bb.X1, -bb.Y1)
		fn(ctx, bb)
	}
	a.blit(src, locs)
	a.record(key, locs)
	return locs, true
}

// place copies a texW x texH image from the origin of src onto the page.
// Compaction uses it to move textures between pages without resampling.
func (a *Atlas) place(key string, src *canvas.Canvas, texW, texH int) bool {
	if _, ok := a.locations[key]; ok {
		return true
	}
	locs, ok := a.reserve(texW, texH)
	if !ok {
		return false
	}
	a.blit(src, locs)
	a.record(key, locs)
	return true
}

// reserve advances the free pointer past a texW x texH texture and returns
// where its two parts go.
func (a *Atlas) reserve(texW, texH int) ([2]Location, bool) {
	switch {
	case a.free.Row >= a.rows:
		return [2]Location{}, false
	case a.free.X+texW <= a.size:
		return a.reserveNormal(texW, texH), true
	case a.free.Row >= a.rows-1:
		return [2]Location{}, false
	case a.free.X == a.size:
		a.nextRow()
		return a.reserveNormal(texW, texH), true
	case a.wrap:
		return a.reserveWrapped(texW, texH), true
	default:
		a.nextRow()
		return a.reserveNormal(texW, texH), true
	}
}

func (a *Atlas) reserveNormal(texW, texH int) [2]Location {
	x, y := a.free.X, a.free.Row*a.texHeight
	locs := [2]Location{
		{X: x, Y: y, W: texW, H: texH},
		{X: x + texW, Y: y, W: 0, H: texH},
	}
	a.free.X += texW
	if a.free.X == a.size {
		a.nextRow()
	}
	return locs
}

func (a *Atlas) reserveWrapped(texW, texH int) [2]Location {
	x, y := a.free.X, a.free.Row*a.texHeight
	firstW := a.size - x
	secondW := texW - firstW
	locs := [2]Location{
		{X: x, Y: y, W: firstW, H: texH},
		{X: 0, Y: y + a.texHeight, W: secondW, H: texH},
	}
	a.free = FreePointer{X: secondW, Row: a.free.Row + 1}
	return locs
}

func (a *Atlas) nextRow() {
	a.free.X = 0
	a.free.Row++
}

// blit copies the texture at the origin of src into its locations. The
// second part continues where the first one ends.
func (a *Atlas) blit(src *canvas.Canvas, locs [2]Location) {
	first, second := locs[0], locs[1]
	a.page.Copy(src, image.Rect(0, 0, first.W, first.H), image.Pt(first.X, first.Y))
	if second.W > 0 {
		a.page.Copy(src, image.Rect(first.W, 0, first.W+second.W, second.H), image.Pt(second.X, second.Y))
	}
}

func (a *Atlas) record(key string, locs [2]Location) {
	a.locations[key] = locs
	a.keys = append(a.keys, key)
	a.dirty = true
}

// forget drops key from the page. Its pixels stay until the page is
// compacted.
func (a *Atlas) forget(key string) {
	if _, ok := a.locations[key]; !ok {
		return
	}
	delete(a.locations, key)
	for i, k := range a.keys {
		if k == key {
			a.keys = append(a.keys[:i], a.keys[i+1:]...)
			break
		}
	}
}

// assemble copies the texture of key into the origin of dst, joining the
// two parts of a wrapped texture. It returns the texture size.
func (a *Atlas) assemble(key string, dst *canvas.Canvas) (w, h int) {
	locs := a.locations[key]
	first, second := locs[0], locs[1]
	w, h = first.W+second.W, first.H
	dst.ClearRect(image.Rect(0, 0, w, h))
	dst.Copy(a.page, first.Rect(), image.Point{})
	if second.W > 0 {
		dst.Copy(a.page, second.Rect(), image.Pt(first.W, 0))
	}
	return w, h
}

// BufferIfNeeded creates the GPU texture on first use and uploads the page
// when it changed since the last upload.
func (a *Atlas) BufferIfNeeded(factory TextureFactory) (Texture, error) {
	if a.tex == nil {
		tex, err := factory(a)
		if err != nil {
			return nil, err
		}
		a.tex = tex
		a.dirty = true
	}
	if a.dirty {
		if err := a.tex.Upload(a.page.Image()); err != nil {
			return nil, err
		}
		a.dirty = false
	}
	return a.tex, nil
}

// Texture returns the GPU texture, or nil before the first BufferIfNeeded.
func (a *Atlas) Texture() Texture { return a.tex }

// Dispose releases the GPU texture. The page pixels are kept.
func (a *Atlas) Dispose() {
	if a.tex != nil {
		a.tex.Destroy()
		a.tex = nil
	}
	a.dirty = true
}

// scratchCache hands out one canvas, reallocated only when the requested
// size changes.
type scratchCache struct {
	c *canvas.Canvas
}

func (s *scratchCache) get(w, h int) *canvas.Canvas {
	if s.c == nil || s.c.Width() != w || s.c.Height() != h {
		s.c = canvas.New(w, h)
	}
	return s.c
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
