// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/frame/gpu"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"
)

// Info describes the selected GPU.
type Info struct {
	// Name is the GPU name (e.g., "NVIDIA GeForce RTX 3080").
	Name       string
	Vendor     string
	DeviceType gputypes.DeviceType
	Backend    gputypes.Backend
	Driver     string
}

// String returns a human-readable description of the GPU.
func (i Info) String() string {
	return fmt.Sprintf("%s (%s, %s)", i.Name, i.DeviceType, i.Backend)
}

func describe(a wgpu.AdapterInfo) Info {
	return Info{
		Name:       a.Name,
		Vendor:     a.Vendor,
		DeviceType: a.DeviceType,
		Backend:    a.Backend,
		Driver:     a.Driver,
	}
}

// Device is a wgpu device and its queue.
type Device struct {
	mu      sync.Mutex
	inst    *wgpu.Instance
	adapter *wgpu.Adapter
	dev     *wgpu.Device
	queue   *wgpu.Queue
	info    Info
	format  gputypes.TextureFormat
	log     *slog.Logger
}

var _ gpu.Device = (*Device)(nil)

// SetLogger replaces the logger. Nil silences logging.
func (d *Device) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	d.mu.Lock()
	d.log = l
	d.mu.Unlock()
}

// Info returns the adapter description.
func (d *Device) Info() Info { return d.info }

// Raw returns the underlying wgpu device.
func (d *Device) Raw() *wgpu.Device { return d.dev }

func (d *Device) live() (*wgpu.Device, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev == nil {
		return nil, gpu.ErrDeviceLost
	}
	return d.dev, nil
}

// Capabilities implements gpu.Device.
func (d *Device) Capabilities(s gpu.Surface) (gputypes.SurfaceCapabilities, error) {
	surf, err := unwrapSurface(s)
	if err != nil {
		return gputypes.SurfaceCapabilities{}, err
	}
	caps := d.adapter.GetSurfaceCapabilities(surf)
	if caps == nil {
		return gputypes.SurfaceCapabilities{}, fmt.Errorf("wgpu: %w: surface not supported by adapter", gpu.ErrUnsupported)
	}
	return gputypes.SurfaceCapabilities{
		Formats:      caps.Formats,
		PresentModes: caps.PresentModes,
		AlphaModes:   caps.AlphaModes,
		Usages:       gputypes.TextureUsageRenderAttachment,
	}, nil
}

// Configure implements gpu.Device. The frame latency hint is not exposed by
// wgpu; it only sizes the reported image count.
func (d *Device) Configure(s gpu.Surface, cfg gputypes.SurfaceConfiguration) (gpu.Swapchain, error) {
	surf, err := unwrapSurface(s)
	if err != nil {
		return nil, err
	}
	dev, err := d.live()
	if err != nil {
		return nil, err
	}
	err = surf.Configure(dev, &wgpu.SurfaceConfiguration{
		Width:       cfg.Width,
		Height:      cfg.Height,
		Format:      cfg.Format,
		Usage:       cfg.Usage,
		PresentMode: cfg.PresentMode,
		AlphaMode:   cfg.AlphaMode,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: configure surface: %w", mapError(err))
	}
	d.mu.Lock()
	d.format = cfg.Format
	d.mu.Unlock()
	return &Swapchain{surf: surf, images: imageCount(cfg.DesiredMaximumFrameLatency)}, nil
}

// imageCount estimates the swapchain length: one image per frame in flight
// plus the one being displayed.
func imageCount(latency uint32) int {
	if latency == 0 {
		latency = 2
	}
	return int(latency) + 1
}

// CreateEncoder implements gpu.Device.
func (d *Device) CreateEncoder(label string) (gpu.Encoder, error) {
	dev, err := d.live()
	if err != nil {
		return nil, err
	}
	enc, err := dev.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, mapError(err)
	}
	return &Encoder{enc: enc}, nil
}

// Submit implements gpu.Device. The queue executes submissions in order and
// synchronizes with surface acquisition itself, so wait is satisfied by
// ordering alone.
func (d *Device) Submit(cb gpu.CommandBuffer, _ gpu.Token) (gpu.Token, error) {
	buf, ok := cb.(*CommandBuffer)
	if !ok || buf.buf == nil {
		return nil, fmt.Errorf("wgpu: %w: foreign command buffer %T", gpu.ErrUnsupported, cb)
	}
	if _, err := d.live(); err != nil {
		return nil, err
	}
	idx, err := d.queue.Submit(buf.buf)
	if err != nil {
		return nil, mapError(err)
	}
	return &submission{queue: d.queue, index: idx}, nil
}

// Poll implements gpu.Device.
func (d *Device) Poll() {
	if dev, err := d.live(); err == nil {
		dev.Poll(wgpu.PollPoll)
	}
}

// Provider implements gpu.Device.
func (d *Device) Provider() gpucontext.DeviceProvider { return provider{d} }

// Release implements gpu.Device. The device, adapter and instance are
// released in reverse creation order.
func (d *Device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev == nil {
		return
	}
	if err := d.dev.WaitIdle(); err != nil {
		d.log.Warn("wgpu: wait idle before release", "err", err)
	}
	d.dev.Release()
	d.dev = nil
	d.queue = nil
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.inst != nil {
		d.inst.Release()
		d.inst = nil
	}
	d.log.Debug("wgpu: device released")
}

type provider struct{ d *Device }

func (p provider) Device() gpucontext.Device   { return p.d.dev }
func (p provider) Queue() gpucontext.Queue     { return p.d.queue }
func (p provider) Adapter() gpucontext.Adapter { return p.d.adapter }

func (p provider) SurfaceFormat() gputypes.TextureFormat {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()
	return p.d.format
}

func (p provider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: p.d.info.Name, Type: gpu.AdapterType(p.d.info.DeviceType)}
}

// submission is done when the queue has completed its index.
type submission struct {
	queue *wgpu.Queue
	index uint64
}

func (s *submission) Done() bool { return s.queue.Poll() >= s.index }

func (s *submission) Wait(ctx context.Context) error { return gpu.WaitPolling(ctx, s.Done) }

func unwrapSurface(s gpu.Surface) (*wgpu.Surface, error) {
	surf, ok := s.(*Surface)
	if !ok {
		return nil, fmt.Errorf("wgpu: %w: foreign surface %T", gpu.ErrUnsupported, s)
	}
	if surf.s == nil {
		return nil, gpu.ErrSurfaceLost
	}
	return surf.s, nil
}

// mapError translates wgpu errors into the gpu sentinels, keeping the
// original in the chain.
func mapError(err error) error {
	var sentinel error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, wgpu.ErrSurfaceOutdated):
		sentinel = gpu.ErrStale
	case errors.Is(err, wgpu.ErrSurfaceLost):
		sentinel = gpu.ErrSurfaceLost
	case errors.Is(err, wgpu.ErrDeviceLost):
		sentinel = gpu.ErrDeviceLost
	case errors.Is(err, wgpu.ErrTimeout):
		sentinel = gpu.ErrTimeout
	case errors.Is(err, wgpu.ErrReleased):
		sentinel = gpu.ErrReleased
	default:
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
