// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package frame

import (
	"github.com/gogpu/frame/gpu"
	"github.com/gogpu/frame/surface"
	"github.com/gogpu/gpucontext"
)

// Recorder is the frame's shared recording context, handed to each
// stage's Bind in turn. It must not be retained after Bind returns.
type Recorder struct {
	pass   gpu.Pass
	target surface.Target
	info   FrameInfo
	device gpucontext.DeviceProvider
	stage  string
}

// Pass returns the frame's render pass.
func (r *Recorder) Pass() gpu.Pass { return r.pass }

// Raw returns the backend's native pass encoder, for example a
// *wgpu.RenderPassEncoder or a *headless.Pass.
func (r *Recorder) Raw() any { return r.pass.Raw() }

// Target returns the image being rendered.
func (r *Recorder) Target() surface.Target { return r.target }

// Frame describes the frame being recorded.
func (r *Recorder) Frame() FrameInfo { return r.info }

// Device returns the device provider for resource creation.
func (r *Recorder) Device() gpucontext.DeviceProvider { return r.device }

// Stage returns the name of the stage currently binding.
func (r *Recorder) Stage() string { return r.stage }
