// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package surface owns the presentable render-target set of a window.
//
// A Manager configures the swapchain once at startup, hands out one Target
// per frame, and rebuilds the whole TargetSet when the window is resized or
// the presentation engine reports the chain stale or suboptimal.
//
// Resize only records the new extent and raises a pending flag. The actual
// recreation runs at the start of the next Acquire, so a frame in flight
// never observes a half-rebuilt set, and any number of resizes between two
// frames collapse into one recreation at the latest extent.
//
//	m, err := surface.Initialize(dev, surf, gpu.Extent{Width: 800, Height: 600})
//	if err != nil {
//	    return err
//	}
//	target, status, err := m.Acquire(ctx)
//	switch {
//	case err != nil:
//	    return err
//	case status == surface.AcquireStale:
//	    // skip this frame
//	}
package surface
