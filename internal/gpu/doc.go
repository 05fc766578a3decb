// Package gpu draws render batches with gogpu/wgpu/hal.
//
// A Backend owns two render pipelines generated from one WGSL template:
// the screen variant writes premultiplied element colors, the picking
// variant writes encoded element indexes. Each batch becomes one instanced
// draw of twelve vertices per instance, recorded in its own render pass
// and submitted without waiting. Per-draw instance and uniform buffers are
// pooled and reused after BeginFrame has waited for the previous frame.
//
// Both targets are offscreen textures. ReadPixels copies a region back to
// the CPU for hit testing or export.
//
// Devices come from OpenDevice, which opens a standalone hal device, or
// from FromProvider, which wraps the device of a host application.
//
//	dev, err := gpu.OpenDefaultDevice()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Close()
//	b, err := gpu.New(dev, gpu.Options{Slots: 14, BatchSize: 2048, Width: 800, Height: 600})
package gpu
