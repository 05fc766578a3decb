package renderer

import "errors"

var (
	// ErrZoomFallback is returned by Render when the zoom is above
	// Config.MaxZoom. The GPU frame is skipped and the fallback, if any,
	// draws instead.
	ErrZoomFallback = errors.New("renderer: zoom above GPU maximum")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("renderer: closed")

	// ErrNilHost is returned by New without a Host.
	ErrNilHost = errors.New("renderer: nil host")
)
