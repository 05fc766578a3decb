// Package canvas provides RGBA pixel pages and a small 2D drawing context.
//
// Pixels are stored premultiplied (image.RGBA), which is the layout the GPU
// blends with. A Canvas is used both as atlas page storage and as the
// surface render types draw element appearance into.
package canvas

import (
	"image"
	"image/png"
	"os"

	"golang.org/x/image/draw"
)

// Canvas is a rectangular premultiplied RGBA pixel buffer.
type Canvas struct {
	img *image.RGBA
}

// New creates a transparent canvas with the given dimensions.
func New(width, height int) *Canvas {
	return &Canvas{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// Width returns the width of the canvas.
func (c *Canvas) Width() int {
	return c.img.Rect.Dx()
}

// Height returns the height of the canvas.
func (c *Canvas) Height() int {
	return c.img.Rect.Dy()
}

// Image returns the backing image. Writes through it are visible to the canvas.
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

// Pix returns the raw premultiplied RGBA bytes.
func (c *Canvas) Pix() []byte {
	return c.img.Pix
}

// Clear resets every pixel to transparent.
func (c *Canvas) Clear() {
	clear(c.img.Pix)
}

// ClearRect resets the pixels in r to transparent.
func (c *Canvas) ClearRect(r image.Rectangle) {
	draw.Draw(c.img, r, image.Transparent, image.Point{}, draw.Src)
}

// Copy copies the r region of src to dp without blending.
func (c *Canvas) Copy(src *Canvas, r image.Rectangle, dp image.Point) {
	dr := image.Rectangle{Min: dp, Max: dp.Add(r.Size())}
	draw.Draw(c.img, dr, src.img, r.Min, draw.Src)
}

// Region returns a copy of the pixels in r.
func (c *Canvas) Region(r image.Rectangle) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), c.img, r.Min, draw.Src)
	return out
}

// Context returns a fresh drawing context targeting the canvas.
func (c *Canvas) Context() *Context {
	return newContext(c)
}

// SavePNG writes the canvas to a PNG file.
func (c *Canvas) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, c.img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
