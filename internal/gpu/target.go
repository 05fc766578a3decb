// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// copyPitchAlignment is the required BytesPerRow alignment of texture to
// buffer copies.
const copyPitchAlignment = 256

// renderTarget is an offscreen color attachment that can be read back.
type renderTarget struct {
	label  string
	format gputypes.TextureFormat
	tex    hal.Texture
	view   hal.TextureView
	width  uint32
	height uint32
}

// ensure creates or recreates the target textures when the requested
// dimensions differ from the current size.
func (rt *renderTarget) ensure(device hal.Device, w, h uint32) error {
	if rt.width == w && rt.height == h && rt.tex != nil {
		return nil
	}
	rt.destroy(device)

	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         rt.label,
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        rt.format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create %s target: %w", rt.label, err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: rt.label + "_view"})
	if err != nil {
		device.DestroyTexture(tex)
		return fmt.Errorf("create %s target view: %w", rt.label, err)
	}
	rt.tex, rt.view = tex, view
	rt.width, rt.height = w, h
	return nil
}

func (rt *renderTarget) destroy(device hal.Device) {
	if rt.view != nil {
		device.DestroyTextureView(rt.view)
		rt.view = nil
	}
	if rt.tex != nil {
		device.DestroyTexture(rt.tex)
		rt.tex = nil
	}
	rt.width, rt.height = 0, 0
}

// readPixels copies r of the target into a new image. The GPU must be idle
// before the staging buffer is mapped, so this call blocks.
func (rt *renderTarget) readPixels(device hal.Device, queue hal.Queue, r image.Rectangle) (*image.RGBA, error) {
	r = r.Intersect(image.Rect(0, 0, int(rt.width), int(rt.height)))
	if r.Empty() {
		return image.NewRGBA(image.Rectangle{}), nil
	}
	w, h := uint32(r.Dx()), uint32(r.Dy())

	// WebGPU (and DX12) requires BytesPerRow aligned to 256 bytes.
	bytesPerRow := w * 4
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	staging, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: rt.label + "_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer device.DestroyBuffer(staging)

	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: rt.label + "_readback"})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(rt.label + "_readback"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: rt.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(rt.tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase: hal.ImageCopyTexture{
			Texture: rt.tex,
			Origin:  hal.Origin3D{X: uint32(r.Min.X), Y: uint32(r.Min.Y)},
		},
		Size: hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: rt.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	defer device.FreeCommandBuffer(cmdBuf)

	if _, err := queue.Submit([]hal.CommandBuffer{cmdBuf}); err != nil {
		return nil, fmt.Errorf("submit readback: %w", err)
	}
	if err := device.WaitIdle(); err != nil {
		return nil, fmt.Errorf("wait for GPU: %w", err)
	}

	mapping, err := device.MapBuffer(staging, 0, stagingSize)
	if err != nil {
		return nil, fmt.Errorf("map staging buffer: %w", err)
	}
	data := unsafe.Slice((*byte)(mapping.Ptr), stagingSize)

	img := image.NewRGBA(r)
	for row := range int(h) {
		src := data[row*int(alignedBytesPerRow):][:bytesPerRow]
		copy(img.Pix[row*img.Stride:], src)
	}
	if rt.format == gputypes.TextureFormatBGRA8Unorm {
		swapRedBlue(img.Pix)
	}
	if err := device.UnmapBuffer(staging); err != nil {
		return nil, fmt.Errorf("unmap staging buffer: %w", err)
	}
	return img, nil
}

// swapRedBlue converts BGRA pixels to RGBA in place.
func swapRedBlue(pix []byte) {
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+2] = pix[i+2], pix[i]
	}
}
