package gpu

import (
	"encoding/binary"
	"fmt"
	"image"
	"log/slog"
	"math"
	"unsafe"

	"github.com/gogpu/ggraph/atlas"
	"github.com/gogpu/ggraph/render"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Options configures a Backend.
type Options struct {
	// Slots is the number of atlas textures bound per draw.
	Slots int
	// BatchSize is the instance capacity of one draw.
	BatchSize int
	// Width and Height are the initial render target size.
	Width, Height int
	// ScreenFormat is the screen target format. The zero value means
	// RGBA8Unorm.
	ScreenFormat gputypes.TextureFormat
}

// flushResources are the per-draw buffers and bind group. They are reused
// from frame to frame once the GPU is idle.
type flushResources struct {
	instanceBuf hal.Buffer
	uniformBuf  hal.Buffer
	bindGroup   hal.BindGroup
}

// Backend draws render batches with wgpu/hal into offscreen targets. It
// implements render.Backend.
type Backend struct {
	dev    *Device
	device hal.Device
	queue  hal.Queue
	opts   Options

	pipelines   *elementPipelines
	quadBuf     hal.Buffer
	placeholder *Texture
	targets     [2]renderTarget

	pool    []*flushResources
	used    int
	cmdBufs []hal.CommandBuffer
	retired []*Texture

	inFrame bool
	target  render.Target
	drawn   bool
	closed  bool
}

var _ render.Backend = (*Backend)(nil)

// New creates a backend on dev. It compiles both shader variants, so a
// shader error fails here.
func New(dev *Device, opts Options) (*Backend, error) {
	if dev == nil || dev.device == nil {
		return nil, ErrNotHALDevice
	}
	if opts.Slots < 1 || opts.BatchSize < 1 {
		return nil, fmt.Errorf("gpu: invalid options: %d slots, batch size %d", opts.Slots, opts.BatchSize)
	}
	if opts.ScreenFormat == gputypes.TextureFormatUndefined {
		opts.ScreenFormat = gputypes.TextureFormatRGBA8Unorm
	}
	opts.Width, opts.Height = max(opts.Width, 1), max(opts.Height, 1)

	b := &Backend{
		dev:    dev,
		device: dev.device,
		queue:  dev.queue,
		opts:   opts,
	}
	b.targets[render.Screen] = renderTarget{label: "screen", format: opts.ScreenFormat}
	b.targets[render.Picking] = renderTarget{label: "picking", format: gputypes.TextureFormatRGBA8Unorm}

	if err := b.init(); err != nil {
		b.Close()
		return nil, err
	}
	slogger().Debug("gpu: backend created",
		slog.Int("slots", opts.Slots),
		slog.Int("batchSize", opts.BatchSize),
		slog.String("screenFormat", opts.ScreenFormat.String()),
	)
	return b, nil
}

func (b *Backend) init() error {
	pipelines, err := createPipelines(b.device, b.dev.variant, b.opts.Slots, b.opts.ScreenFormat)
	if err != nil {
		return err
	}
	b.pipelines = pipelines

	quad := unsafe.Slice((*byte)(unsafe.Pointer(&quadVertices[0])), len(quadVertices)*4)
	b.quadBuf, err = b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "elements_quad",
		Size:  uint64(len(quad)),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create quad buffer: %w", err)
	}
	if err := b.queue.WriteBuffer(b.quadBuf, 0, quad); err != nil {
		return fmt.Errorf("write quad buffer: %w", err)
	}

	// Unused texture slots are bound to a transparent placeholder.
	b.placeholder, err = newTexture(b.device, b.queue, "atlas_placeholder", 1, 1)
	if err != nil {
		return err
	}
	if err := b.placeholder.Upload(image.NewRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		return err
	}

	return b.Resize(b.opts.Width, b.opts.Height)
}

// Device returns the device the backend draws on.
func (b *Backend) Device() *Device { return b.dev }

// Size returns the render target size.
func (b *Backend) Size() (w, h int) { return b.opts.Width, b.opts.Height }

// Resize recreates the render targets at w x h.
func (b *Backend) Resize(w, h int) error {
	if b.closed {
		return ErrClosed
	}
	w, h = max(w, 1), max(h, 1)
	if err := b.device.WaitIdle(); err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	for i := range b.targets {
		if err := b.targets[i].ensure(b.device, uint32(w), uint32(h)); err != nil {
			return err
		}
	}
	b.opts.Width, b.opts.Height = w, h
	return nil
}

// NewTexture creates the texture of an atlas page.
func (b *Backend) NewTexture(a *atlas.Atlas) (atlas.Texture, error) {
	if b.closed {
		return nil, ErrClosed
	}
	size := uint32(a.Size())
	tex, err := newTexture(b.device, b.queue, fmt.Sprintf("atlas_%d", a.ID()), size, size)
	if err != nil {
		return nil, err
	}
	tex.retire = b.retireTexture
	return tex, nil
}

// retireTexture queues t for release by the next recycle. Submitted
// command buffers and bind groups may still reference it.
func (b *Backend) retireTexture(t *Texture) {
	if b.closed {
		t.release()
		return
	}
	b.retired = append(b.retired, t)
}

// BeginFrame waits for the previous frame and starts rendering to target.
func (b *Backend) BeginFrame(target render.Target) error {
	if b.closed {
		return ErrClosed
	}
	if err := b.device.WaitIdle(); err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	b.recycle()
	b.inFrame = true
	b.target = target
	b.drawn = false
	return nil
}

// recycle frees the command buffers, bind groups and retired textures of
// the previous frame. The GPU must be idle.
func (b *Backend) recycle() {
	for _, cb := range b.cmdBufs {
		b.device.FreeCommandBuffer(cb)
	}
	b.cmdBufs = b.cmdBufs[:0]
	for _, res := range b.pool[:b.used] {
		if res.bindGroup != nil {
			b.device.DestroyBindGroup(res.bindGroup)
			res.bindGroup = nil
		}
	}
	b.used = 0
	for _, t := range b.retired {
		t.release()
	}
	clear(b.retired)
	b.retired = b.retired[:0]
}

// DrawBatch records and submits one instanced draw of the batch.
func (b *Backend) DrawBatch(batch *render.Batch) error {
	if b.closed {
		return ErrClosed
	}
	if !b.inFrame {
		return fmt.Errorf("gpu: draw outside a frame")
	}
	n := len(batch.Instances)
	if n == 0 {
		return nil
	}
	if n > b.opts.BatchSize {
		return fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, n, b.opts.BatchSize)
	}
	if len(batch.Textures) > b.opts.Slots {
		return fmt.Errorf("%w: %d > %d", ErrTooManyTextures, len(batch.Textures), b.opts.Slots)
	}

	views, err := b.atlasViews(batch.Textures)
	if err != nil {
		return err
	}
	res, err := b.nextResources()
	if err != nil {
		return err
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(&batch.Instances[0])), n*instanceStride)
	if err := b.queue.WriteBuffer(res.instanceBuf, 0, data); err != nil {
		return fmt.Errorf("write instance buffer: %w", err)
	}
	if err := b.queue.WriteBuffer(res.uniformBuf, 0, makeUniforms(batch)); err != nil {
		return fmt.Errorf("write uniform buffer: %w", err)
	}
	if res.bindGroup, err = b.createBindGroup(res.uniformBuf, views); err != nil {
		return err
	}

	pipeline := b.pipelines.screen
	if batch.Target == render.Picking {
		pipeline = b.pipelines.picking
	}
	return b.submitPass(batch.Target, func(rp hal.RenderPassEncoder) {
		rp.SetPipeline(pipeline)
		rp.SetBindGroup(0, res.bindGroup, nil)
		rp.SetVertexBuffer(0, b.quadBuf, 0)
		rp.SetVertexBuffer(1, res.instanceBuf, 0)
		rp.Draw(render.VerticesPerInstance, uint32(n), 0, 0)
	})
}

// EndFrame finishes the frame. A frame without draws still clears the
// target.
func (b *Backend) EndFrame(target render.Target) error {
	if b.closed {
		return ErrClosed
	}
	defer func() { b.inFrame = false }()
	if b.drawn {
		return nil
	}
	return b.submitPass(target, func(hal.RenderPassEncoder) {})
}

// submitPass encodes one render pass on target and submits it without
// waiting. The first pass of a frame clears the target.
func (b *Backend) submitPass(target render.Target, record func(hal.RenderPassEncoder)) error {
	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "elements_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("elements_" + target.String()); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	loadOp := gputypes.LoadOpLoad
	if !b.drawn {
		loadOp = gputypes.LoadOpClear
	}
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "elements_" + target.String() + "_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       b.targets[target].view,
			LoadOp:     loadOp,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
		}},
	})
	record(rp)
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	if _, err := b.queue.Submit([]hal.CommandBuffer{cmdBuf}); err != nil {
		b.device.FreeCommandBuffer(cmdBuf)
		return fmt.Errorf("submit %s pass: %w", target, err)
	}
	b.cmdBufs = append(b.cmdBufs, cmdBuf)
	b.drawn = true
	return nil
}

// nextResources returns the next pooled flush resources, growing the pool
// on first use.
func (b *Backend) nextResources() (*flushResources, error) {
	if b.used < len(b.pool) {
		res := b.pool[b.used]
		b.used++
		return res, nil
	}

	instanceBuf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: fmt.Sprintf("elements_instances_%d", len(b.pool)),
		Size:  uint64(b.opts.BatchSize) * instanceStride,
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create instance buffer: %w", err)
	}
	uniformBuf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: fmt.Sprintf("elements_uniforms_%d", len(b.pool)),
		Size:  uniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		b.device.DestroyBuffer(instanceBuf)
		return nil, fmt.Errorf("create uniform buffer: %w", err)
	}

	res := &flushResources{instanceBuf: instanceBuf, uniformBuf: uniformBuf}
	b.pool = append(b.pool, res)
	b.used++
	return res, nil
}

// atlasViews returns one texture view per atlas slot. Unused slots get the
// placeholder.
func (b *Backend) atlasViews(textures []atlas.Texture) ([]hal.TextureView, error) {
	views := make([]hal.TextureView, b.opts.Slots)
	for i := range views {
		views[i] = b.placeholder.view
		if i >= len(textures) {
			continue
		}
		tex, ok := textures[i].(*Texture)
		if !ok || tex.view == nil {
			return nil, fmt.Errorf("gpu: atlas slot %d holds %T, not a live gpu texture", i, textures[i])
		}
		views[i] = tex.view
	}
	return views, nil
}

func (b *Backend) createBindGroup(uniformBuf hal.Buffer, views []hal.TextureView) (hal.BindGroup, error) {
	entries := []gputypes.BindGroupEntry{
		{Binding: 0, Resource: gputypes.BufferBinding{Buffer: uniformBuf.NativeHandle(), Offset: 0, Size: uniformSize}},
		{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: b.pipelines.sampler.NativeHandle()}},
	}
	for i, view := range views {
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  uint32(firstAtlasBinding + i),
			Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()},
		})
	}
	bg, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "elements_bind_group",
		Layout:  b.pipelines.bindLayout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create elements bind group: %w", err)
	}
	return bg, nil
}

// makeUniforms packs the batch uniforms in the WGSL uniform layout.
func makeUniforms(batch *render.Batch) []byte {
	buf := make([]byte, uniformSize)
	put := func(off int, v float32) {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
	}
	// mat3x3 columns are padded to 16 bytes.
	for col := range 3 {
		for row := range 3 {
			put(col*16+row*4, batch.PanZoom[col*3+row])
		}
	}
	for i, v := range batch.Background {
		put(48+i*4, v)
	}
	put(64, batch.AtlasSize)
	return buf
}

// ReadPixels reads r of the last frame rendered to target. It waits for
// the GPU.
func (b *Backend) ReadPixels(target render.Target, r image.Rectangle) (*image.RGBA, error) {
	if b.closed {
		return nil, ErrClosed
	}
	img, err := b.targets[target].readPixels(b.device, b.queue, r)
	if err != nil {
		return nil, fmt.Errorf("read %s pixels: %w", target, err)
	}
	return img, nil
}

// Close releases all GPU resources of the backend. The device is not
// closed.
func (b *Backend) Close() {
	if b.closed {
		return
	}
	b.closed = true
	if err := b.device.WaitIdle(); err != nil {
		slogger().Warn("gpu: wait idle on close", slog.String("err", err.Error()))
	}
	b.recycle()
	for _, res := range b.pool {
		b.device.DestroyBuffer(res.instanceBuf)
		b.device.DestroyBuffer(res.uniformBuf)
	}
	b.pool = nil
	for i := range b.targets {
		b.targets[i].destroy(b.device)
	}
	if b.placeholder != nil {
		b.placeholder.Destroy()
		b.placeholder = nil
	}
	if b.quadBuf != nil {
		b.device.DestroyBuffer(b.quadBuf)
		b.quadBuf = nil
	}
	if b.pipelines != nil {
		b.pipelines.destroy()
		b.pipelines = nil
	}
}
