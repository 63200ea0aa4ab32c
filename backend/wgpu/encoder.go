// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"

	"github.com/gogpu/frame/gpu"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"
)

// Encoder records one frame.
type Encoder struct {
	enc  *wgpu.CommandEncoder
	pass *Pass
}

var _ gpu.Encoder = (*Encoder)(nil)

// BeginPass implements gpu.Encoder. desc.View must come from this backend's
// swapchain.
func (e *Encoder) BeginPass(desc gpu.PassDescriptor) (gpu.Pass, error) {
	view, ok := desc.View.(*wgpu.TextureView)
	if !ok || view == nil {
		return nil, fmt.Errorf("wgpu: %w: view %T", gpu.ErrUnsupported, desc.View)
	}
	rp, err := e.enc.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: desc.Label,
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     desc.Load,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: desc.Clear,
		}},
	})
	if err != nil {
		return nil, mapError(err)
	}
	e.pass = &Pass{rp: rp}
	return e.pass, nil
}

// Finish implements gpu.Encoder.
func (e *Encoder) Finish() (gpu.CommandBuffer, error) {
	buf, err := e.enc.Finish()
	if err != nil {
		return nil, mapError(err)
	}
	return &CommandBuffer{buf: buf}, nil
}

// Discard implements gpu.Encoder.
func (e *Encoder) Discard() {
	e.enc.DiscardEncoding()
}

// Pass wraps the frame's render pass.
type Pass struct {
	rp *wgpu.RenderPassEncoder
}

// Raw returns the *wgpu.RenderPassEncoder.
func (p *Pass) Raw() any { return p.rp }

// End implements gpu.Pass.
func (p *Pass) End() error { return mapError(p.rp.End()) }

// CommandBuffer is a finished wgpu command buffer.
type CommandBuffer struct {
	buf *wgpu.CommandBuffer
}

// Release implements gpu.CommandBuffer. It is safe after submission.
func (c *CommandBuffer) Release() {
	if c.buf != nil {
		c.buf.Release()
		c.buf = nil
	}
}
