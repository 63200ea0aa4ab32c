// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package headless provides an in-memory GPU backend.
//
// Swapchain images are *image.RGBA buffers. Commands recorded into a pass
// are typed values executed on the CPU with golang.org/x/image/draw when
// the command buffer is submitted. Completion tokens are submission
// indices that retire after a configurable number of device polls, which
// makes frame pacing and fence behavior fully deterministic.
//
// The backend registers itself as "headless" on import:
//
//	import _ "github.com/gogpu/frame/backend/headless"
//
// Faults can be injected to exercise recovery paths: stale or suboptimal
// acquisition, stale presentation, and failed submission.
//
//	dev := headless.NewDevice(headless.Config{})
//	dev.StaleAcquires(1) // next Acquire reports gpu.ErrStale
package headless
