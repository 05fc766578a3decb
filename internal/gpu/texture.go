package gpu

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Texture is a sampled RGBA texture holding an atlas page. It implements
// atlas.Texture.
type Texture struct {
	device hal.Device
	queue  hal.Queue
	tex    hal.Texture
	view   hal.TextureView
	width  uint32
	height uint32

	// retire, if set, defers the release to the owner of the texture.
	retire func(*Texture)
}

func newTexture(device hal.Device, queue hal.Queue, label string, w, h uint32) (*Texture, error) {
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s texture: %w", label, err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: label + "_view"})
	if err != nil {
		device.DestroyTexture(tex)
		return nil, fmt.Errorf("create %s view: %w", label, err)
	}
	return &Texture{device: device, queue: queue, tex: tex, view: view, width: w, height: h}, nil
}

// Size returns the texture size in pixels.
func (t *Texture) Size() (w, h int) { return int(t.width), int(t.height) }

// Upload replaces the texture contents with img. Pixels outside the
// texture are ignored.
func (t *Texture) Upload(img *image.RGBA) error {
	if t.tex == nil {
		return ErrClosed
	}
	b := img.Bounds()
	w := min(uint32(b.Dx()), t.width)
	h := min(uint32(b.Dy()), t.height)
	if w == 0 || h == 0 {
		return nil
	}
	err := t.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.tex, MipLevel: 0},
		img.Pix[img.PixOffset(b.Min.X, b.Min.Y):],
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: uint32(img.Stride), RowsPerImage: h},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("write texture: %w", err)
	}
	return nil
}

// Destroy releases the texture. Textures of a Backend are released once
// the GPU work submitted before the call has finished. It is safe to call
// more than once.
func (t *Texture) Destroy() {
	if retire := t.retire; retire != nil {
		t.retire = nil
		retire(t)
		return
	}
	t.release()
}

func (t *Texture) release() {
	if t.view != nil {
		t.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		t.device.DestroyTexture(t.tex)
		t.tex = nil
	}
}
