// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"context"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// View is a backend-specific handle to a texture view a pass can render into.
// The core treats it as opaque, following the gpucontext type-token convention.
type View any

// Surface is the window or output a swapchain presents to. It is created once
// by Backend.Open and lives as long as the window.
type Surface interface {
	Release()
}

// Device is the GPU device and its submission queue.
type Device interface {
	// Capabilities returns what the surface supports on this device.
	Capabilities(s Surface) (gputypes.SurfaceCapabilities, error)

	// Configure creates a swapchain for s. Any swapchain previously configured
	// on s must be released by the caller first.
	Configure(s Surface, cfg gputypes.SurfaceConfiguration) (Swapchain, error)

	// CreateEncoder starts a command recording.
	CreateEncoder(label string) (Encoder, error)

	// Submit queues cb for execution once wait is done. The returned token is
	// done when the GPU has finished executing cb.
	Submit(cb CommandBuffer, wait Token) (Token, error)

	// Poll lets the device retire completed work. It never blocks.
	Poll()

	// Provider exposes the device to stages that create their own resources.
	Provider() gpucontext.DeviceProvider

	// Release destroys the device.
	Release()
}

// Acquired describes a swapchain image handed out for one frame.
type Acquired struct {
	// Index identifies the image in the swapchain. Valid only until the
	// image is presented or the swapchain is released.
	Index uint32

	// View is the render-attachment view of the image.
	View View

	// Suboptimal reports that the image can be used but the swapchain no
	// longer matches the surface exactly.
	Suboptimal bool

	// Ready is done when the presentation engine has released the image.
	Ready Token
}

// Swapchain is the configured set of presentable images.
type Swapchain interface {
	// ImageCount returns the number of images in the chain.
	ImageCount() int

	// Acquire returns the next image. It may block until the presentation
	// engine has an image available. Returns ErrStale if the chain must be
	// recreated.
	Acquire(ctx context.Context) (Acquired, error)

	// Present queues image index for display after wait is done.
	// Returns ErrStale if the chain went out of date.
	Present(index uint32, wait Token) (Token, error)

	Release()
}

// PassDescriptor configures the single render pass of a frame.
type PassDescriptor struct {
	Label string
	View  View
	Load  gputypes.LoadOp
	Clear gputypes.Color
}

// Encoder records commands for one submission.
type Encoder interface {
	BeginPass(desc PassDescriptor) (Pass, error)
	Finish() (CommandBuffer, error)

	// Discard drops everything recorded so far.
	Discard()
}

// Pass is an open render pass.
type Pass interface {
	// Raw returns the backend's native pass encoder, e.g. *wgpu.RenderPassEncoder.
	Raw() any
	End() error
}

// CommandBuffer is a finished recording ready for submission.
type CommandBuffer interface {
	Release()
}

// Marker is implemented by passes that can label the commands recorded
// after it, so captured frames can be attributed to the stage that
// produced them.
type Marker interface {
	Mark(label string)
}
