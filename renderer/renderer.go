package renderer

import (
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/ggraph"
	"github.com/gogpu/ggraph/atlas"
	"github.com/gogpu/ggraph/geom"
	"github.com/gogpu/ggraph/graph"
	"github.com/gogpu/ggraph/internal/gpu"
	"github.com/gogpu/ggraph/label"
	"github.com/gogpu/ggraph/overlay"
	"github.com/gogpu/ggraph/picking"
	"github.com/gogpu/ggraph/render"
	"github.com/gogpu/gpucontext"
)

// View is the pan and zoom of a frame. Rendered position = model
// position * Zoom + Pan.
type View struct {
	Pan  geom.Point
	Zoom float64
}

func (v View) zoom() float64 {
	if v.Zoom <= 0 {
		return 1
	}
	return v.Zoom
}

// PanZoom returns the model to clip space matrix for a width x height
// target.
func (v View) PanZoom(width, height int) geom.Matrix {
	z := v.zoom()
	return geom.Projection(float64(width), float64(height)).
		Translate(v.Pan.X, v.Pan.Y).
		Scale(z, z)
}

// ToRendered converts a model position to target pixels.
func (v View) ToRendered(p geom.Point) geom.Point {
	z := v.zoom()
	return geom.Pt(p.X*z+v.Pan.X, p.Y*z+v.Pan.Y)
}

// Event is a host notification that may stale the picking target.
type Event string

const (
	// EventViewport reports a pan or zoom change.
	EventViewport Event = "viewport"
	// EventBounds reports moved or resized elements.
	EventBounds Event = "bounds"
	// EventBackground reports that node body images finished loading.
	EventBackground Event = "background"
)

// backend is the part of gpu.Backend the renderer drives.
type backend interface {
	render.Backend
	Resize(width, height int) error
	ReadPixels(target render.Target, r image.Rectangle) (*image.RGBA, error)
	Close()
}

// Renderer draws a graph into offscreen GPU targets. Its methods must be
// called from one goroutine.
type Renderer struct {
	cfg     ggraph.Config
	backend backend
	drawing *render.Drawing
	picker  *picking.Picker
	opts    options

	width, height int
	eles          graph.ZOrder
	view          View

	gcMu    sync.Mutex
	gcTimer *time.Timer
	gcFlag  atomic.Bool

	debug  render.DebugLog
	report string
	shown  []AtlasPage
	closed bool
}

// New creates a Renderer on the device of provider. cfg is validated and
// clamped to the device limits.
func New(provider gpucontext.DeviceProvider, host Host, cfg ggraph.Config, opts ...Option) (*Renderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dev, err := gpu.FromProvider(provider)
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}
	gpu.SetLogger(ggraph.Logger())

	cfg = cfg.Clamp(dev.Limits())
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	info := dev.AdapterInfo()
	limits := dev.Limits()
	ggraph.Logger().Info("renderer: device",
		slog.String("adapter", info.Name),
		slog.Uint64("max_texture_2d", uint64(limits.MaxTextureDimension2D)),
		slog.Uint64("max_sampled_textures", uint64(limits.MaxSampledTexturesPerShaderStage)))
	ggraph.Logger().Info("renderer: config",
		slog.Int("tex_size", cfg.TexSize),
		slog.Int("tex_rows", cfg.TexRows),
		slog.Int("batch_size", cfg.BatchSize),
		slog.Int("tex_per_batch", cfg.TexPerBatch))

	b, err := gpu.New(dev, gpu.Options{
		Slots:     cfg.TexPerBatch,
		BatchSize: cfg.BatchSize,
		Width:     o.width,
		Height:    o.height,
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}
	r, err := newRenderer(b, host, cfg, o)
	if err != nil {
		b.Close()
		return nil, err
	}
	return r, nil
}

func newRenderer(b backend, host Host, cfg ggraph.Config, o options) (*Renderer, error) {
	if host == nil {
		return nil, ErrNilHost
	}
	bg, err := cfg.BackgroundColor()
	if err != nil {
		return nil, err
	}
	m := atlas.NewManager(atlas.Options{Size: cfg.TexSize, Rows: cfg.TexRows, Wrap: true}, cfg.TexPerBatch)
	d, err := render.NewDrawing(b, m, render.Options{BatchSize: cfg.BatchSize, Background: bg})
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}

	d.AddTextureRenderType(NodeBody, bodyType{host: host})
	d.AddTextureRenderType(NodeLabel, label.New(o.font, labelsOf(host, true)))
	d.AddTextureRenderType(NodeOverlay, overlay.New(overlay.Overlay, host.OverlayStyle, host.BodyBox))
	d.AddTextureRenderType(NodeUnderlay, overlay.New(overlay.Underlay, host.OverlayStyle, host.BodyBox))
	d.AddTextureRenderType(EdgeLabel, label.New(o.font, labelsOf(host, false)))

	r := &Renderer{
		cfg:     cfg,
		backend: b,
		drawing: d,
		opts:    o,
		width:   max(o.width, 1),
		height:  max(o.height, 1),
		view:    View{Zoom: 1},
	}
	r.picker = picking.New(pickSource{r})
	return r, nil
}

// Config returns the effective configuration after clamping.
func (r *Renderer) Config() ggraph.Config { return r.cfg }

// Size returns the size of the render targets.
func (r *Renderer) Size() (width, height int) { return r.width, r.height }

// SetElements replaces the z-ordered elements drawn by every frame.
func (r *Renderer) SetElements(z graph.ZOrder) {
	r.eles = z
	r.picker.Invalidate()
}

// Render draws a frame to the screen target. Above Config.MaxZoom the
// frame is handed to the fallback and ErrZoomFallback is returned.
func (r *Renderer) Render(v View) error {
	if r.closed {
		return ErrClosed
	}
	if v.zoom() > r.cfg.MaxZoom {
		ggraph.Logger().Warn("renderer: zoom above GPU maximum, falling back",
			slog.Float64("zoom", v.zoom()), slog.Float64("max_zoom", r.cfg.MaxZoom))
		if r.opts.fallback != nil {
			r.opts.fallback(v)
		}
		// An empty frame clears the last GPU frame from the screen target.
		if err := r.backend.BeginFrame(render.Screen); err != nil {
			return fmt.Errorf("%w: clear screen: %w", ErrZoomFallback, err)
		}
		if err := r.backend.EndFrame(render.Screen); err != nil {
			return fmt.Errorf("%w: clear screen: %w", ErrZoomFallback, err)
		}
		return ErrZoomFallback
	}
	if v != r.view {
		r.view = v
		r.picker.Invalidate()
	}
	return r.renderFrame(render.Screen)
}

func (r *Renderer) renderFrame(target render.Target) error {
	start := time.Now()
	r.debug.Reset()
	r.drawing.StartFrame(r.view.PanZoom(r.width, r.height), &r.debug, target)

	if target == render.Screen {
		for i, e := range r.eles.NonDrag {
			r.drawElement(e, i)
		}
		// Dragged elements encode as background.
		for _, e := range r.eles.Drag {
			r.drawElement(e, -1)
		}
	} else {
		for i, e := range r.eles.All {
			r.drawElement(e, i)
		}
	}
	err := r.drawing.EndFrame()

	if r.gcFlag.CompareAndSwap(true, false) {
		ggraph.Logger().Debug("renderer: garbage collecting atlases")
		r.drawing.GC()
	}
	r.report = r.frameReport(target, time.Since(start))
	if target == render.Screen && r.cfg.DebugShowAtlases {
		r.shown = r.AtlasPages()
	}
	if err != nil {
		return fmt.Errorf("renderer: %s frame: %w", target, err)
	}
	return nil
}

func (r *Renderer) drawElement(e graph.Element, index int) {
	d := r.drawing
	if e.IsNode() {
		d.DrawTexture(e, index, NodeUnderlay)
		d.DrawTexture(e, index, NodeBody)
		d.DrawTexture(e, index, NodeLabel)
		d.DrawTexture(e, index, NodeOverlay)
		return
	}
	if edge, ok := e.(graph.Edge); ok && e.Visible() {
		d.DrawEdgeLine(edge, index)
		d.DrawEdgeArrow(edge, index, graph.Source)
		d.DrawEdgeArrow(edge, index, graph.Target)
	}
	d.DrawTexture(e, index, EdgeLabel)
}

// UpdateElements drops the stale textures of changed elements. Space is
// reclaimed after Config.GCDelay without further changes.
func (r *Renderer) UpdateElements(eles []graph.Element) {
	if r.closed || len(eles) == 0 {
		return
	}
	if r.drawing.Invalidate(eles, "") {
		r.scheduleGC()
	}
}

// scheduleGC sets the GC flag once the delay passes without another call.
func (r *Renderer) scheduleGC() {
	r.gcMu.Lock()
	defer r.gcMu.Unlock()
	delay := time.Duration(r.cfg.GCDelay)
	if r.gcTimer != nil {
		r.gcTimer.Reset(delay)
		return
	}
	r.gcTimer = time.AfterFunc(delay, func() {
		ggraph.Logger().Debug("renderer: garbage collect flag set")
		r.gcFlag.Store(true)
	})
}

// GCPending reports whether the next frame collects the atlases.
func (r *Renderer) GCPending() bool { return r.gcFlag.Load() }

// Notify handles a host event.
func (r *Renderer) Notify(ev Event, eles []graph.Element) {
	switch ev {
	case EventViewport, EventBounds:
		r.picker.Invalidate()
	case EventBackground:
		if r.drawing.Invalidate(eles, NodeBody) {
			r.scheduleGC()
		}
	}
}

// Resize resizes both render targets.
func (r *Renderer) Resize(width, height int) error {
	if r.closed {
		return ErrClosed
	}
	if err := r.backend.Resize(width, height); err != nil {
		return fmt.Errorf("renderer: resize: %w", err)
	}
	r.width, r.height = max(width, 1), max(height, 1)
	r.picker.Invalidate()
	return nil
}

// FindNearestElements returns the first node and the first edge found
// within a few pixels of the model position (x, y), scanning the picking
// target row by row. It uses the view of the last frame.
func (r *Renderer) FindNearestElements(x, y float64) ([]graph.Element, error) {
	if r.closed {
		return nil, ErrClosed
	}
	p := r.view.ToRendered(geom.Pt(x, y))
	return r.picker.FindNearest(p.X, p.Y, r.eles.All)
}

// AllInBox returns every element drawn inside the model space box with
// corners (x1, y1) and (x2, y2).
func (r *Renderer) AllInBox(x1, y1, x2, y2 float64) ([]graph.Element, error) {
	if r.closed {
		return nil, ErrClosed
	}
	p1 := r.view.ToRendered(geom.Pt(x1, y1))
	p2 := r.view.ToRendered(geom.Pt(x2, y2))
	return r.picker.AllInBox(p1.X, p1.Y, p2.X, p2.Y, r.eles.All)
}

// ReadScreen reads back the last screen frame.
func (r *Renderer) ReadScreen() (*image.RGBA, error) {
	if r.closed {
		return nil, ErrClosed
	}
	return r.backend.ReadPixels(render.Screen, image.Rect(0, 0, r.width, r.height))
}

// pickSource renders and reads the picking target for the Picker.
type pickSource struct {
	r *Renderer
}

func (s pickSource) RenderPicking() error {
	return s.r.renderFrame(render.Picking)
}

func (s pickSource) ReadPicking(rect image.Rectangle) (*image.RGBA, error) {
	return s.r.backend.ReadPixels(render.Picking, rect)
}

// Close stops the GC timer and releases the GPU resources of the
// renderer, atlas textures included. The device is left open.
func (r *Renderer) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.gcMu.Lock()
	if r.gcTimer != nil {
		r.gcTimer.Stop()
	}
	r.gcMu.Unlock()
	r.drawing.Atlases().Dispose()
	r.backend.Close()
	return nil
}
