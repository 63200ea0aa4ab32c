// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package fullscreen

import (
	"context"
	"image"
	"strings"
	"testing"

	"github.com/gogpu/frame"
	"github.com/gogpu/frame/backend/headless"
	"github.com/gogpu/frame/shader"
	"github.com/gogpu/frame/surface"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

var (
	red   = gputypes.Color{R: 1, A: 1}
	green = gputypes.Color{G: 1, A: 1}
)

func TestRegionPixels(t *testing.T) {
	tests := []struct {
		name string
		r    Region
		want image.Rectangle
	}{
		{"full", Full, image.Rect(0, 0, 40, 20)},
		{"right half", Region{0.5, 0, 1, 1}, image.Rect(20, 0, 40, 20)},
		{"clamped", Region{-1, -1, 2, 0.5}, image.Rect(0, 0, 40, 10)},
		{"empty", Region{0.5, 0.5, 0.5, 0.5}, image.Rect(20, 10, 20, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Pixels(40, 20); got != tt.want {
				t.Errorf("Pixels() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSourceEntryPoints(t *testing.T) {
	src := Source(gputypes.Color{R: 0.25, G: 0.5, B: 0.75, A: 1})
	if !strings.Contains(src, "0.250000, 0.500000, 0.750000, 1.000000") {
		t.Errorf("Source() missing color constant:\n%s", src)
	}
	mod, err := shader.Check(src)
	if err != nil {
		t.Fatalf("Check() = %v", err)
	}
	if _, err := mod.Require(shader.Vertex, "vs_main"); err != nil {
		t.Error(err)
	}
	if _, err := mod.Require(shader.Fragment, "fs_main"); err != nil {
		t.Error(err)
	}
}

func TestStagesPaintHeadless(t *testing.T) {
	bg, err := New("background", red, Full)
	if err != nil {
		t.Fatal(err)
	}
	overlay, err := New("overlay", green, Region{0.5, 0.5, 1, 1})
	if err != nil {
		t.Fatal(err)
	}

	backend := headless.New(headless.Config{})
	window := gpucontext.NullWindowProvider{W: 40, H: 20}
	e, err := frame.New(context.Background(), backend, window, frame.WithStages(bg, overlay))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	defer e.Close()

	res, err := e.Step(context.Background())
	if err != nil || res != frame.StepSubmitted {
		t.Fatalf("Step() = %v, %v", res, err)
	}
	if bg.Draws() != 1 || overlay.Draws() != 1 {
		t.Errorf("draws = %d, %d, want 1, 1", bg.Draws(), overlay.Draws())
	}

	px := backend.Surface.LastFrame()
	if px == nil {
		t.Fatal("no frame presented")
	}
	if c := px.RGBAAt(5, 5); c.R != 255 || c.G != 0 {
		t.Errorf("background pixel = %v, want red", c)
	}
	if c := px.RGBAAt(30, 15); c.G != 255 || c.R != 0 {
		t.Errorf("overlay pixel = %v, want green", c)
	}
}

func TestTargetsRecreatedWithoutPipeline(t *testing.T) {
	s, err := New("bg", red, Full)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.TargetsRecreated(&surface.TargetSet{Format: gputypes.TextureFormatRGBA8Unorm}); err != nil {
		t.Errorf("TargetsRecreated() = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}
