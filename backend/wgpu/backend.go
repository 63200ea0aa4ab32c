// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/frame/gpu"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu"

	// Registers the platform HAL backends and the software fallback.
	_ "github.com/gogpu/wgpu/hal/allbackends"
)

func init() {
	gpu.Register(gpu.BackendWGPU, func() gpu.Backend { return New(Config{}) })
}

// Config tunes adapter and device selection.
type Config struct {
	// ForceFallback selects the software adapter.
	ForceFallback bool

	// Label names the device in driver tooling.
	Label string
}

// Backend opens wgpu devices.
type Backend struct {
	cfg Config
	log *slog.Logger
}

var _ gpu.Backend = (*Backend)(nil)

// New creates a backend.
func New(cfg Config) *Backend {
	if cfg.Label == "" {
		cfg.Label = "frame"
	}
	return &Backend{cfg: cfg, log: slog.New(slog.DiscardHandler)}
}

// Name implements gpu.Backend.
func (b *Backend) Name() string { return gpu.BackendWGPU }

// SetLogger sets the logger used for adapter reporting and handed to opened
// devices.
func (b *Backend) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	b.log = l
}

// Open implements gpu.Backend. The window must implement gpu.NativeWindow.
func (b *Backend) Open(ctx context.Context, window gpucontext.WindowProvider) (gpu.Device, gpu.Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	native, ok := window.(gpu.NativeWindow)
	if !ok {
		return nil, nil, fmt.Errorf("wgpu: %w: window exposes no native handles", gpu.ErrUnsupported)
	}

	inst, err := wgpu.CreateInstance(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("wgpu: create instance: %w", err)
	}

	display, handle := native.NativeHandles()
	surf, err := inst.CreateSurface(display, handle)
	if err != nil {
		inst.Release()
		return nil, nil, fmt.Errorf("wgpu: create surface: %w", mapError(err))
	}

	adapter, err := b.pickAdapter(inst, surf)
	if err != nil {
		surf.Release()
		inst.Release()
		return nil, nil, err
	}

	dev, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: b.cfg.Label})
	if err != nil {
		adapter.Release()
		surf.Release()
		inst.Release()
		return nil, nil, fmt.Errorf("wgpu: request device: %w", mapError(err))
	}

	info := describe(adapter.Info())
	b.log.Info("wgpu: device opened", "gpu", info.String(), "driver", info.Driver)

	d := &Device{
		inst:    inst,
		adapter: adapter,
		dev:     dev,
		queue:   dev.Queue(),
		info:    info,
		log:     b.log,
	}
	return d, &Surface{s: surf}, nil
}

// pickAdapter requests one adapter per power preference and keeps the best
// ranked. The other is released.
func (b *Backend) pickAdapter(inst *wgpu.Instance, surf *wgpu.Surface) (*wgpu.Adapter, error) {
	prefs := []wgpu.PowerPreference{wgpu.PowerPreferenceHighPerformance, wgpu.PowerPreferenceLowPower}

	var (
		best     *wgpu.Adapter
		bestRank = -1
		errs     []error
	)
	for _, pref := range prefs {
		a, err := inst.RequestAdapter(&wgpu.RequestAdapterOptions{
			PowerPreference:      pref,
			ForceFallbackAdapter: b.cfg.ForceFallback,
			CompatibleSurface:    surf,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if a == best {
			continue
		}
		rank := gpu.RankDeviceType(a.Info().DeviceType)
		b.log.Debug("wgpu: adapter candidate", "name", a.Info().Name, "rank", rank)
		if rank > bestRank {
			if best != nil {
				best.Release()
			}
			best, bestRank = a, rank
			continue
		}
		a.Release()
	}
	if best == nil {
		return nil, fmt.Errorf("wgpu: request adapter: %w", errors.Join(errs...))
	}
	return best, nil
}

// Surface wraps a window surface.
type Surface struct {
	s *wgpu.Surface
}

// Release implements gpu.Surface.
func (s *Surface) Release() {
	if s.s != nil {
		s.s.Release()
		s.s = nil
	}
}
