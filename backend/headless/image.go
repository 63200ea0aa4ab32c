// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package headless

import (
	"image"

	"github.com/gogpu/gputypes"
)

// Image is a swapchain image. It is the gpu.View handed to passes.
type Image struct {
	Index  uint32
	Format gputypes.TextureFormat
	Pixels *image.RGBA
}

func newImage(index uint32, format gputypes.TextureFormat, width, height uint32) *Image {
	return &Image{
		Index:  index,
		Format: format,
		Pixels: image.NewRGBA(image.Rect(0, 0, int(width), int(height))),
	}
}

// Snapshot returns a copy of the pixels.
func (img *Image) Snapshot() *image.RGBA {
	out := image.NewRGBA(img.Pixels.Bounds())
	copy(out.Pix, img.Pixels.Pix)
	return out
}
