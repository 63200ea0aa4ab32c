// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"fmt"

	"github.com/gogpu/frame/gpu"
	"github.com/gogpu/gputypes"
)

// TargetSet is one configured generation of presentable images.
// It is replaced wholesale on recreation and never patched in place.
type TargetSet struct {
	// Generation increases by one with every recreation, starting at 1.
	Generation uint64

	Extent      gpu.Extent
	Format      gputypes.TextureFormat
	PresentMode gputypes.PresentMode
	AlphaMode   gputypes.CompositeAlphaMode

	swapchain gpu.Swapchain
	retired   bool
}

// Len returns the number of images in the set.
func (s *TargetSet) Len() int {
	if s == nil || s.swapchain == nil {
		return 0
	}
	return s.swapchain.ImageCount()
}

// Retired reports whether the set has been replaced.
func (s *TargetSet) Retired() bool { return s.retired }

func (s *TargetSet) String() string {
	return fmt.Sprintf("gen=%d %v %v %v", s.Generation, s.Extent, s.Format, s.PresentMode)
}

func (s *TargetSet) retire() {
	if s.retired {
		return
	}
	s.retired = true
	if s.swapchain != nil {
		s.swapchain.Release()
	}
}

// Target is the image acquired for the current frame. It is valid only
// until it is presented or its set is retired.
type Target struct {
	Index uint32
	View  gpu.View

	// Ready is done when the presentation engine has released the image.
	Ready gpu.Token

	set *TargetSet
}

// Set returns the target set the image belongs to.
func (t Target) Set() *TargetSet { return t.set }

// Extent returns the size of the image.
func (t Target) Extent() gpu.Extent {
	if t.set == nil {
		return gpu.Extent{}
	}
	return t.set.Extent
}

// Valid reports whether the target belongs to a live set.
func (t Target) Valid() bool { return t.set != nil && !t.set.retired }

// Present queues the image for display once wait is done.
// Returns gpu.ErrStale if the set was retired in the meantime.
func (t Target) Present(wait gpu.Token) (gpu.Token, error) {
	if !t.Valid() {
		return nil, gpu.ErrStale
	}
	return t.set.swapchain.Present(t.Index, wait)
}
