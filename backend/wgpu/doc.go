// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu implements the frame GPU abstraction on gogpu/wgpu, the Pure
// Go WebGPU implementation (Vulkan, Metal, DX12, GLES and a software
// rasterizer).
//
// Importing the package registers the "wgpu" backend:
//
//	import _ "github.com/gogpu/frame/backend/wgpu"
//
//	e, err := frame.New(ctx, nil, window) // window implements gpu.NativeWindow
//
// # Adapter Selection
//
// Open asks the instance for a high-performance and a low-power adapter
// compatible with the window surface and keeps the higher ranked one
// (discrete > integrated > virtual > cpu).
//
// # Synchronization
//
// WebGPU orders submissions on a single queue and handles swapchain image
// availability internally, so the wait token passed to Submit and Present is
// satisfied by queue order. Tokens returned by Submit complete when the
// queue's completed submission index reaches theirs.
//
// Stages record into the pass through Recorder.Raw, which returns the
// *wgpu.RenderPassEncoder of the frame.
package wgpu
