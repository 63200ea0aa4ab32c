// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package fullscreen provides a stage that paints a solid color over a
// rectangular region of the frame.
//
// On the wgpu backend the region is drawn with a generated WGSL pipeline: a
// single oversized triangle clipped by the viewport. On the headless backend
// the region is filled directly.
package fullscreen

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/gogpu/frame"
	"github.com/gogpu/frame/backend/headless"
	"github.com/gogpu/frame/shader"
	"github.com/gogpu/frame/surface"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"
)

// ErrUnsupportedPass is returned by Bind for passes of unknown backends.
var ErrUnsupportedPass = errors.New("fullscreen: unsupported pass")

// Region is a rectangle in normalized target coordinates, 0..1 on both axes
// with the origin at the top left.
type Region struct {
	X0, Y0, X1, Y1 float64
}

// Full covers the whole target.
var Full = Region{0, 0, 1, 1}

// Pixels maps r onto a w×h target.
func (r Region) Pixels(w, h uint32) image.Rectangle {
	px := func(v float64, size uint32) int {
		return int(math.Round(clamp01(v) * float64(size)))
	}
	return image.Rect(px(r.X0, w), px(r.Y0, h), px(r.X1, w), px(r.Y1, h))
}

func clamp01(v float64) float64 { return math.Max(0, math.Min(1, v)) }

// Source returns the WGSL program that writes c.
func Source(c gputypes.Color) string {
	return fmt.Sprintf(wgslTemplate, c.R, c.G, c.B, c.A)
}

const wgslTemplate = `@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4<f32> {
    let x = f32(i32(idx & 1u) * 4 - 1);
    let y = f32(i32(idx >> 1u) * 4 - 1);
    return vec4<f32>(x, y, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(%.6f, %.6f, %.6f, %.6f);
}
`

// Stage paints Color over Region.
type Stage struct {
	name   string
	color  gputypes.Color
	region Region
	module *shader.Module
	log    *slog.Logger

	format   gputypes.TextureFormat
	pipeline *wgpu.RenderPipeline
	shader   *wgpu.ShaderModule
	draws    int
}

var (
	_ frame.Stage          = (*Stage)(nil)
	_ frame.TargetObserver = (*Stage)(nil)
	_ frame.Closer         = (*Stage)(nil)
)

// New creates a stage. The generated program is parsed and validated up
// front so a bad color fails here rather than mid-frame.
func New(name string, c gputypes.Color, r Region) (*Stage, error) {
	mod, err := shader.Check(Source(c))
	if err != nil {
		return nil, fmt.Errorf("fullscreen %s: %w", name, err)
	}
	if _, err := mod.Require(shader.Vertex, "vs_main"); err != nil {
		return nil, fmt.Errorf("fullscreen %s: %w", name, err)
	}
	if _, err := mod.Require(shader.Fragment, "fs_main"); err != nil {
		return nil, fmt.Errorf("fullscreen %s: %w", name, err)
	}
	return &Stage{
		name:   name,
		color:  c,
		region: r,
		module: mod,
		log:    slog.New(slog.DiscardHandler),
	}, nil
}

// SetLogger replaces the logger. Nil silences logging.
func (s *Stage) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	s.log = l
}

// Name implements frame.Stage.
func (s *Stage) Name() string { return s.name }

// Color returns the paint color.
func (s *Stage) Color() gputypes.Color { return s.color }

// Region returns the painted region.
func (s *Stage) Region() Region { return s.region }

// SetRegion moves the painted region. It takes effect at the next Bind and
// must be called from the frame loop goroutine.
func (s *Stage) SetRegion(r Region) { s.region = r }

// Draws returns the number of frames the stage has recorded into.
func (s *Stage) Draws() int { return s.draws }

// Update implements frame.Stage.
func (s *Stage) Update(context.Context, frame.FrameInfo) error { return nil }

// Bind implements frame.Stage.
func (s *Stage) Bind(rec *frame.Recorder) error {
	ext := rec.Target().Extent()
	rect := s.region.Pixels(ext.Width, ext.Height)
	if rect.Empty() {
		return nil
	}

	switch pass := rec.Raw().(type) {
	case *headless.Pass:
		pass.Fill(rect, s.color)
	case *wgpu.RenderPassEncoder:
		if err := s.ensurePipeline(rec); err != nil {
			return err
		}
		pass.SetPipeline(s.pipeline)
		pass.SetViewport(float32(rect.Min.X), float32(rect.Min.Y), float32(rect.Dx()), float32(rect.Dy()), 0, 1)
		pass.Draw(3, 1, 0, 0)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedPass, pass)
	}
	s.draws++
	return nil
}

func (s *Stage) ensurePipeline(rec *frame.Recorder) error {
	format := rec.Target().Set().Format
	if s.pipeline != nil && s.format == format {
		return nil
	}
	s.release()

	dev, ok := rec.Device().Device().(*wgpu.Device)
	if !ok {
		return fmt.Errorf("%w: device %T", ErrUnsupportedPass, rec.Device().Device())
	}
	sm, err := dev.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: s.name,
		WGSL:  s.module.Source,
	})
	if err != nil {
		return fmt.Errorf("create shader module: %w", err)
	}
	pipeline, err := dev.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: s.name,
		Vertex: wgpu.VertexState{
			Module:     sm,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     sm,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    format,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		sm.Release()
		return fmt.Errorf("create render pipeline: %w", err)
	}
	s.shader, s.pipeline, s.format = sm, pipeline, format
	s.log.Debug("fullscreen: pipeline created", "stage", s.name, "format", format.String())
	return nil
}

// TargetsRecreated implements frame.TargetObserver. The pipeline is kept
// unless the surface format changed.
func (s *Stage) TargetsRecreated(set *surface.TargetSet) error {
	if s.pipeline != nil && set.Format != s.format {
		s.release()
	}
	return nil
}

// Close implements frame.Closer.
func (s *Stage) Close() error {
	s.release()
	return nil
}

func (s *Stage) release() {
	if s.pipeline != nil {
		s.pipeline.Release()
		s.pipeline = nil
	}
	if s.shader != nil {
		s.shader.Release()
		s.shader = nil
	}
}
