// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpu defines the backend-neutral device contract the frame core runs on.
//
// The core never talks to a graphics API directly. A backend (see backend/headless
// and backend/wgpu) implements the small set of primitives the frame loop needs:
//
//   - Swapchain image acquisition with stale/suboptimal signaling
//   - Command recording into a single render pass per frame
//   - Submission and presentation
//   - Completion tokens that can be joined and polled
//
// # Completion Tokens
//
// A Token reports whether previously submitted GPU work has finished. Tokens
// compose with Join: the joined token is done only when every part is done.
// Completed returns the immediately satisfied sentinel used when a frame is
// abandoned before anything reached the queue.
//
// # Backend Selection
//
// Backends register themselves by name (database/sql driver style) and are
// selected explicitly with Lookup or by priority with Best:
//
//	import _ "github.com/gogpu/frame/backend/headless"
//
//	b, err := gpu.Lookup("headless")
//
// # Thread Safety
//
// Device, Swapchain and Encoder are driven from the frame loop goroutine only.
// The backend registry is safe for concurrent use.
package gpu
