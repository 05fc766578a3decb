package renderer

import "github.com/gogpu/ggraph/label"

// Option configures a Renderer during creation.
type Option func(*options)

type options struct {
	width, height int
	fallback      func(View)
	font          *label.Font
}

func defaultOptions() options {
	return options{width: 800, height: 600}
}

// WithSize sets the initial size of the render targets in pixels.
func WithSize(width, height int) Option {
	return func(o *options) {
		o.width, o.height = width, height
	}
}

// WithFallback sets the function that draws frames whose zoom is above
// Config.MaxZoom, typically a canvas renderer.
func WithFallback(fn func(View)) Option {
	return func(o *options) {
		o.fallback = fn
	}
}

// WithLabelFont sets the label font. The default is Go Regular.
func WithLabelFont(f *label.Font) Option {
	return func(o *options) {
		o.font = f
	}
}
