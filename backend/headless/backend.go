// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package headless

import (
	"context"
	"log/slog"

	"github.com/gogpu/frame/gpu"
	"github.com/gogpu/gpucontext"
)

func init() {
	gpu.Register(gpu.BackendHeadless, func() gpu.Backend { return New(Config{}) })
}

// Backend opens headless devices.
type Backend struct {
	cfg Config
	log *slog.Logger

	// Device and Surface are the most recently opened pair, for inspection.
	Device  *Device
	Surface *Surface
}

var _ gpu.Backend = (*Backend)(nil)

// New creates a backend that opens devices with cfg.
func New(cfg Config) *Backend { return &Backend{cfg: cfg} }

// Name implements gpu.Backend.
func (b *Backend) Name() string { return gpu.BackendHeadless }

// SetLogger sets the logger handed to opened devices.
func (b *Backend) SetLogger(l *slog.Logger) {
	b.log = l
	if b.Device != nil {
		b.Device.SetLogger(l)
	}
}

// Open implements gpu.Backend. The window is only consulted for its size
// by the caller; no native handles are needed.
func (b *Backend) Open(ctx context.Context, _ gpucontext.WindowProvider) (gpu.Device, gpu.Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	b.Device = NewDevice(b.cfg)
	if b.log != nil {
		b.Device.SetLogger(b.log)
	}
	b.Surface = NewSurface()
	return b.Device, b.Surface, nil
}
