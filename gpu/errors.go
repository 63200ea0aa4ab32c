// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import "errors"

// Sentinel errors reported by backends. Backends wrap their native errors so
// callers can match with errors.Is.
var (
	// ErrStale is returned by Acquire or Present when the swapchain no longer
	// matches the surface and must be recreated before anything can be presented.
	ErrStale = errors.New("gpu: swapchain out of date")

	// ErrSurfaceLost is returned when the window surface has been destroyed.
	ErrSurfaceLost = errors.New("gpu: surface lost")

	// ErrDeviceLost is returned when the GPU device is gone (driver reset, unplug).
	ErrDeviceLost = errors.New("gpu: device lost")

	// ErrTimeout is returned when acquisition or a wait timed out.
	ErrTimeout = errors.New("gpu: timeout")

	// ErrReleased is returned when operating on a released resource.
	ErrReleased = errors.New("gpu: resource released")

	// ErrUnsupported is returned when a backend cannot satisfy a request.
	ErrUnsupported = errors.New("gpu: unsupported")

	// ErrBackendNotAvailable is returned when a named backend is not registered.
	ErrBackendNotAvailable = errors.New("gpu: backend not available")
)
