// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package headless

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/frame/gpu"
	"github.com/gogpu/gputypes"
)

// Surface is an offscreen presentation target. It keeps the most recently
// presented image.
type Surface struct {
	mu         sync.Mutex
	presented  *image.RGBA
	presents   int
	configured int
	released   bool
}

var _ gpu.Surface = (*Surface)(nil)

// NewSurface creates a surface.
func NewSurface() *Surface { return &Surface{} }

// Release implements gpu.Surface.
func (s *Surface) Release() {
	s.mu.Lock()
	s.released = true
	s.mu.Unlock()
}

// LastFrame returns a copy of the most recently presented image, or nil.
func (s *Surface) LastFrame() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.presented == nil {
		return nil
	}
	out := image.NewRGBA(s.presented.Bounds())
	copy(out.Pix, s.presented.Pix)
	return out
}

// Presents returns the number of successful presentations.
func (s *Surface) Presents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presents
}

// Configurations returns how many swapchains were configured on s.
func (s *Surface) Configurations() int { return s.configured }

// Swapchain rotates through its images in order.
type Swapchain struct {
	dev      *Device
	surf     *Surface
	cfg      gputypes.SurfaceConfiguration
	images   []*Image
	next     uint32
	released bool
}

var _ gpu.Swapchain = (*Swapchain)(nil)

// ImageCount implements gpu.Swapchain.
func (sc *Swapchain) ImageCount() int { return len(sc.images) }

// Config returns the configuration the swapchain was created with.
func (sc *Swapchain) Config() gputypes.SurfaceConfiguration { return sc.cfg }

// Acquire implements gpu.Swapchain.
func (sc *Swapchain) Acquire(ctx context.Context) (gpu.Acquired, error) {
	if err := ctx.Err(); err != nil {
		return gpu.Acquired{}, err
	}
	if sc.released {
		return gpu.Acquired{}, gpu.ErrStale
	}
	if sc.dev.takeFault(&sc.dev.staleAcquires) {
		return gpu.Acquired{}, fmt.Errorf("headless: acquire: %w", gpu.ErrStale)
	}
	img := sc.images[sc.next]
	sc.next = (sc.next + 1) % uint32(len(sc.images))
	return gpu.Acquired{
		Index:      img.Index,
		View:       img,
		Suboptimal: sc.dev.takeFault(&sc.dev.suboptimalAcquires),
		Ready:      gpu.Completed(),
	}, nil
}

// Present implements gpu.Swapchain.
func (sc *Swapchain) Present(index uint32, wait gpu.Token) (gpu.Token, error) {
	if sc.released {
		return nil, gpu.ErrStale
	}
	if int(index) >= len(sc.images) {
		return nil, fmt.Errorf("headless: present image %d of %d: %w", index, len(sc.images), gpu.ErrUnsupported)
	}
	if sc.dev.takeFault(&sc.dev.stalePresents) {
		return nil, fmt.Errorf("headless: present: %w", gpu.ErrStale)
	}
	snap := sc.images[index].Snapshot()
	sc.surf.mu.Lock()
	sc.surf.presented = snap
	sc.surf.presents++
	sc.surf.mu.Unlock()
	return gpu.Join(wait), nil
}

// Release implements gpu.Swapchain.
func (sc *Swapchain) Release() { sc.released = true }
