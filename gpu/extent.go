// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
)

// Extent is a two-dimensional size in physical pixels.
type Extent struct {
	Width  uint32
	Height uint32
}

// ExtentFromLogical converts a logical window size (points) to physical pixels
// using the window scale factor. Negative sizes clamp to zero.
func ExtentFromLogical(width, height int, scale float64) Extent {
	if scale <= 0 {
		scale = 1
	}
	return Extent{
		Width:  toPhysical(width, scale),
		Height: toPhysical(height, scale),
	}
}

func toPhysical(v int, scale float64) uint32 {
	if v <= 0 {
		return 0
	}
	p := math.Round(float64(v) * scale)
	if p > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(p)
}

// IsZero reports whether either dimension is zero.
// A minimized window reports a zero extent.
func (e Extent) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

// Extent3D converts to the WebGPU extent with a single layer.
func (e Extent) Extent3D() gputypes.Extent3D {
	return gputypes.NewExtent2D(e.Width, e.Height)
}

// String returns "WxH".
func (e Extent) String() string {
	return fmt.Sprintf("%dx%d", e.Width, e.Height)
}
