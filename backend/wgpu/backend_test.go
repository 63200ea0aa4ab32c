// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gogpu/frame/gpu"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"
)

func TestRegistered(t *testing.T) {
	if !gpu.IsRegistered(gpu.BackendWGPU) {
		t.Fatalf("backend %q not registered", gpu.BackendWGPU)
	}
	b, err := gpu.Lookup(gpu.BackendWGPU)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if b.Name() != gpu.BackendWGPU {
		t.Errorf("Name() = %q", b.Name())
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"outdated", wgpu.ErrSurfaceOutdated, gpu.ErrStale},
		{"surface lost", wgpu.ErrSurfaceLost, gpu.ErrSurfaceLost},
		{"device lost", fmt.Errorf("submit: %w", wgpu.ErrDeviceLost), gpu.ErrDeviceLost},
		{"timeout", wgpu.ErrTimeout, gpu.ErrTimeout},
		{"released", wgpu.ErrReleased, gpu.ErrReleased},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.in)
			if !errors.Is(got, tt.want) {
				t.Errorf("mapError(%v) = %v, want %v", tt.in, got, tt.want)
			}
			if !errors.Is(got, tt.in) {
				t.Errorf("mapError(%v) dropped the original error", tt.in)
			}
		})
	}
}

func TestMapErrorPassthrough(t *testing.T) {
	if mapError(nil) != nil {
		t.Error("mapError(nil) != nil")
	}
	other := errors.New("boom")
	if got := mapError(other); got != other {
		t.Errorf("mapError(other) = %v, want unchanged", got)
	}
}

func TestImageCount(t *testing.T) {
	tests := []struct {
		latency uint32
		want    int
	}{
		{0, 3},
		{1, 2},
		{2, 3},
		{3, 4},
	}
	for _, tt := range tests {
		if got := imageCount(tt.latency); got != tt.want {
			t.Errorf("imageCount(%d) = %d, want %d", tt.latency, got, tt.want)
		}
	}
}

func TestOpenRequiresNativeWindow(t *testing.T) {
	b := New(Config{})
	_, _, err := b.Open(context.Background(), gpucontext.NullWindowProvider{})
	if !errors.Is(err, gpu.ErrUnsupported) {
		t.Fatalf("Open() error = %v, want ErrUnsupported", err)
	}
}

func TestOpenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := New(Config{}).Open(ctx, gpucontext.NullWindowProvider{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Open() error = %v, want context.Canceled", err)
	}
}

type otherSurface struct{}

func (otherSurface) Release() {}

func TestForeignHandles(t *testing.T) {
	d := &Device{}
	if _, err := d.Capabilities(otherSurface{}); !errors.Is(err, gpu.ErrUnsupported) {
		t.Errorf("Capabilities(foreign) error = %v", err)
	}
	if _, err := d.Configure(&Surface{}, gputypes.SurfaceConfiguration{}); !errors.Is(err, gpu.ErrSurfaceLost) {
		t.Errorf("Configure(released surface) error = %v", err)
	}
	if _, err := d.CreateEncoder("x"); !errors.Is(err, gpu.ErrDeviceLost) {
		t.Errorf("CreateEncoder on released device error = %v", err)
	}
	if _, err := (&Encoder{}).BeginPass(gpu.PassDescriptor{View: "not a view"}); !errors.Is(err, gpu.ErrUnsupported) {
		t.Errorf("BeginPass(foreign view) error = %v", err)
	}
}

func TestPresentWithoutAcquire(t *testing.T) {
	s := &Swapchain{images: 3}
	if _, err := s.Present(0, gpu.Completed()); !errors.Is(err, gpu.ErrStale) {
		t.Fatalf("Present() error = %v, want ErrStale", err)
	}
	if _, err := s.Acquire(context.Background()); !errors.Is(err, gpu.ErrReleased) {
		t.Fatalf("Acquire() on unconfigured chain error = %v, want ErrReleased", err)
	}
}

func TestInfoString(t *testing.T) {
	i := describe(wgpu.AdapterInfo{Name: "Test GPU", DeviceType: gputypes.DeviceTypeCPU})
	if got := i.String(); got == "" || got[:8] != "Test GPU" {
		t.Errorf("String() = %q", got)
	}
}
