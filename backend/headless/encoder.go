// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package headless

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/frame/gpu"
	"github.com/gogpu/gputypes"
)

var (
	errPassOpen     = errors.New("headless: render pass already open")
	errPassNotEnded = errors.New("headless: render pass not ended")
	errEncoderDone  = errors.New("headless: encoder finished")
)

// Encoder records at most one render pass at a time.
type Encoder struct {
	label    string
	target   *Image
	commands []Command
	open     *Pass
	done     bool
}

var _ gpu.Encoder = (*Encoder)(nil)

// BeginPass implements gpu.Encoder.
func (e *Encoder) BeginPass(desc gpu.PassDescriptor) (gpu.Pass, error) {
	if e.done {
		return nil, errEncoderDone
	}
	if e.open != nil {
		return nil, errPassOpen
	}
	img, ok := desc.View.(*Image)
	if !ok {
		return nil, fmt.Errorf("headless: view %T: %w", desc.View, gpu.ErrUnsupported)
	}
	e.target = img
	p := &Pass{enc: e, size: img.Pixels.Bounds().Size()}
	if desc.Load == gputypes.LoadOpClear {
		e.commands = append(e.commands, ClearCommand{Color: desc.Clear})
	}
	e.open = p
	return p, nil
}

// Finish implements gpu.Encoder.
func (e *Encoder) Finish() (gpu.CommandBuffer, error) {
	if e.done {
		return nil, errEncoderDone
	}
	if e.open != nil {
		return nil, errPassNotEnded
	}
	e.done = true
	return &CommandBuffer{label: e.label, target: e.target, commands: e.commands}, nil
}

// Discard implements gpu.Encoder.
func (e *Encoder) Discard() {
	e.done = true
	e.commands = nil
	e.open = nil
}

// Pass is the headless render pass. Stages reach it through gpu.Pass.Raw.
type Pass struct {
	enc   *Encoder
	size  image.Point
	ended bool
}

var (
	_ gpu.Pass   = (*Pass)(nil)
	_ gpu.Marker = (*Pass)(nil)
)

// Raw implements gpu.Pass.
func (p *Pass) Raw() any { return p }

// Size returns the attachment size in pixels.
func (p *Pass) Size() image.Point { return p.size }

// Fill composites c over r.
func (p *Pass) Fill(r image.Rectangle, c gputypes.Color) {
	p.record(FillCommand{Rect: r, Color: c})
}

// Blit scales src into r.
func (p *Pass) Blit(src image.Image, r image.Rectangle) {
	p.record(BlitCommand{Src: src, Rect: r})
}

// Record appends an opaque command.
func (p *Pass) Record(payload any) {
	p.record(RawCommand{Payload: payload})
}

// Mark implements gpu.Marker.
func (p *Pass) Mark(label string) {
	p.record(MarkCommand{Label: label})
}

func (p *Pass) record(c Command) {
	if p.ended {
		return
	}
	p.enc.commands = append(p.enc.commands, c)
}

// End implements gpu.Pass.
func (p *Pass) End() error {
	if p.ended {
		return nil
	}
	p.ended = true
	p.enc.open = nil
	return nil
}

// CommandBuffer is a finished headless recording.
type CommandBuffer struct {
	label    string
	target   *Image
	commands []Command
	released bool
}

// Len returns the number of recorded commands.
func (cb *CommandBuffer) Len() int { return len(cb.commands) }

// Released reports whether Release was called.
func (cb *CommandBuffer) Released() bool { return cb.released }

// Release implements gpu.CommandBuffer.
func (cb *CommandBuffer) Release() { cb.released = true }
