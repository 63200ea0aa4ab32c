// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"context"
	"fmt"

	"github.com/gogpu/frame/gpu"
	"github.com/gogpu/wgpu"
)

// Swapchain is a configured wgpu surface. It holds at most one acquired
// texture at a time.
type Swapchain struct {
	surf   *wgpu.Surface
	images int
	next   uint32

	current *wgpu.SurfaceTexture
	view    *wgpu.TextureView
	index   uint32
}

var _ gpu.Swapchain = (*Swapchain)(nil)

// ImageCount implements gpu.Swapchain.
func (s *Swapchain) ImageCount() int { return s.images }

// Acquire implements gpu.Swapchain. Images are numbered round-robin; wgpu
// does not expose the native index.
func (s *Swapchain) Acquire(ctx context.Context) (gpu.Acquired, error) {
	if err := ctx.Err(); err != nil {
		return gpu.Acquired{}, err
	}
	if s.surf == nil {
		return gpu.Acquired{}, gpu.ErrReleased
	}
	s.discard()

	tex, suboptimal, err := s.surf.GetCurrentTexture()
	if err != nil {
		return gpu.Acquired{}, fmt.Errorf("wgpu: acquire: %w", mapError(err))
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		s.surf.DiscardTexture()
		return gpu.Acquired{}, fmt.Errorf("wgpu: acquire view: %w", mapError(err))
	}

	s.current, s.view = tex, view
	s.index = s.next % uint32(s.images)
	s.next++
	return gpu.Acquired{
		Index:      s.index,
		View:       view,
		Suboptimal: suboptimal,
		Ready:      gpu.Completed(),
	}, nil
}

// Present implements gpu.Swapchain. The present is queued behind wait by
// queue order; the returned token is wait itself.
func (s *Swapchain) Present(index uint32, wait gpu.Token) (gpu.Token, error) {
	if s.current == nil || index != s.index {
		return nil, gpu.ErrStale
	}
	tex := s.current
	s.current = nil
	s.releaseView()
	if err := s.surf.Present(tex); err != nil {
		return nil, fmt.Errorf("wgpu: present: %w", mapError(err))
	}
	if wait == nil {
		return gpu.Completed(), nil
	}
	return wait, nil
}

// Release implements gpu.Swapchain. An acquired but unpresented texture is
// handed back to the surface.
func (s *Swapchain) Release() {
	if s.surf == nil {
		return
	}
	s.discard()
	s.surf = nil
}

func (s *Swapchain) discard() {
	if s.current == nil {
		return
	}
	s.releaseView()
	s.surf.DiscardTexture()
	s.current = nil
}

func (s *Swapchain) releaseView() {
	if s.view != nil {
		s.view.Release()
		s.view = nil
	}
}
