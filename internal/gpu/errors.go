package gpu

import "errors"

// Sentinel errors for the GPU backend.
var (
	// ErrNotHALDevice is returned when a device provider does not expose
	// wgpu/hal device and queue handles.
	ErrNotHALDevice = errors.New("gpu: provider does not expose a hal device")

	// ErrNoAdapters is returned when a backend reports no adapters.
	ErrNoAdapters = errors.New("gpu: no adapters available")

	// ErrBackendUnavailable is returned when the requested hal backend is
	// not registered.
	ErrBackendUnavailable = errors.New("gpu: backend unavailable")

	// ErrShaderCompile wraps WGSL compilation failures.
	ErrShaderCompile = errors.New("gpu: shader compilation failed")

	// ErrTooManyTextures is returned when a batch binds more atlas pages
	// than the pipeline has slots.
	ErrTooManyTextures = errors.New("gpu: too many atlas textures in batch")

	// ErrBatchTooLarge is returned when a batch holds more instances than
	// the instance buffers can.
	ErrBatchTooLarge = errors.New("gpu: batch exceeds instance capacity")

	// ErrClosed is returned by operations on a closed backend.
	ErrClosed = errors.New("gpu: backend closed")
)
