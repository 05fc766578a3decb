// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Device is a hal device and queue pair. It implements
// gpucontext.DeviceProvider, so a Device opened here can be passed
// wherever a host application would pass its own provider.
type Device struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	variant  gputypes.Backend
	info     gputypes.AdapterInfo
	limits   gputypes.Limits
	owned    bool
}

// OpenDevice opens a standalone device on the given hal backend.
// Discrete and integrated GPUs are preferred over other adapters.
func OpenDevice(variant gputypes.Backend) (*Device, error) {
	backend, ok := hal.GetBackend(variant)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBackendUnavailable, variant)
	}
	return openDevice(backend)
}

// OpenDefaultDevice opens a standalone device on the most capable
// registered backend.
func OpenDefaultDevice() (*Device, error) {
	backend, err := hal.SelectBestBackend()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	return openDevice(backend)
}

func openDevice(backend hal.Backend) (*Device, error) {
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create %s instance: %w", backend.Variant(), err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: %s", ErrNoAdapters, backend.Variant())
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	limits := selected.Capabilities.Limits
	if limits.MaxTextureDimension2D == 0 {
		limits = gputypes.DefaultLimits()
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device on %s: %w", selected.Info.Name, err)
	}

	slogger().Debug("gpu: device opened",
		slog.String("backend", backend.Variant().String()),
		slog.String("adapter", selected.Info.Name),
		slog.String("type", selected.Info.DeviceType.String()),
	)
	return &Device{
		instance: instance,
		device:   openDev.Device,
		queue:    openDev.Queue,
		variant:  backend.Variant(),
		info:     selected.Info,
		limits:   limits,
		owned:    true,
	}, nil
}

// FromProvider wraps the hal device of an external provider. The provider
// must expose HalDevice() and HalQueue() returning hal.Device and
// hal.Queue. The returned Device does not own them.
func FromProvider(provider any) (*Device, error) {
	if d, ok := provider.(*Device); ok {
		return d, nil
	}
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNotHALDevice
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is %T", ErrNotHALDevice, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is %T", ErrNotHALDevice, hp.HalQueue())
	}

	d := &Device{device: device, queue: queue, limits: gputypes.DefaultLimits()}
	if dp, ok := provider.(gpucontext.DeviceProvider); ok {
		info := dp.AdapterInfo()
		d.info.Name = info.Name
	}
	return d, nil
}

// HalDevice returns the hal.Device.
func (d *Device) HalDevice() any { return d.device }

// HalQueue returns the hal.Queue.
func (d *Device) HalQueue() any { return d.queue }

// Device returns the hal device as a gpucontext token.
func (d *Device) Device() gpucontext.Device { return d.device }

// Queue returns the hal queue as a gpucontext token.
func (d *Device) Queue() gpucontext.Queue { return d.queue }

// SurfaceFormat returns TextureFormatUndefined. Devices opened here are
// headless.
func (d *Device) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// Adapter returns nil. The adapter is not exposed.
func (d *Device) Adapter() gpucontext.Adapter { return nil }

// AdapterInfo returns the adapter name and type.
func (d *Device) AdapterInfo() gpucontext.AdapterInfo {
	t := gpucontext.AdapterTypeUnknown
	switch d.info.DeviceType {
	case gputypes.DeviceTypeDiscreteGPU:
		t = gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		t = gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		t = gpucontext.AdapterTypeSoftware
	}
	return gpucontext.AdapterInfo{Name: d.info.Name, Type: t}
}

// Limits returns the limits of the adapter.
func (d *Device) Limits() gputypes.Limits { return d.limits }

// Variant returns the hal backend of the device. It is BackendEmpty for
// devices wrapped with FromProvider.
func (d *Device) Variant() gputypes.Backend { return d.variant }

// Close destroys the device if it was opened by OpenDevice.
func (d *Device) Close() {
	if !d.owned {
		return
	}
	if d.device != nil {
		if err := d.device.WaitIdle(); err != nil {
			slogger().Warn("gpu: wait idle on close", slog.String("err", err.Error()))
		}
		d.device.Destroy()
		d.device = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
	d.queue = nil
}

var _ gpucontext.DeviceProvider = (*Device)(nil)
