// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import "github.com/gogpu/gputypes"

// colorBits returns the combined bit width of the red, green and blue
// channels, or 0 for formats with fewer than three color channels.
func colorBits(f gputypes.TextureFormat) int {
	switch f {
	case gputypes.TextureFormatRGBA8Unorm,
		gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatRGBA8Snorm,
		gputypes.TextureFormatRGBA8Uint,
		gputypes.TextureFormatRGBA8Sint,
		gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatBGRA8UnormSrgb:
		return 24
	case gputypes.TextureFormatRGB9E5Ufloat:
		return 27
	case gputypes.TextureFormatRGB10A2Uint,
		gputypes.TextureFormatRGB10A2Unorm:
		return 30
	case gputypes.TextureFormatRG11B10Ufloat:
		return 32
	case gputypes.TextureFormatRGBA16Unorm,
		gputypes.TextureFormatRGBA16Snorm,
		gputypes.TextureFormatRGBA16Uint,
		gputypes.TextureFormatRGBA16Sint,
		gputypes.TextureFormatRGBA16Float:
		return 48
	case gputypes.TextureFormatRGBA32Float,
		gputypes.TextureFormatRGBA32Uint,
		gputypes.TextureFormatRGBA32Sint:
		return 96
	default:
		return 0
	}
}

// ScoreFormat rates a surface format for presentation.
// 8-bit RGB scores highest, wider color formats next, everything else 0.
// Scores are doubled so the sRGB preference can break ties without
// promoting a worse class.
func ScoreFormat(f gputypes.TextureFormat, preferSRGB bool) int {
	if f.IsDepthStencil() {
		return -1
	}
	var score int
	switch bits := colorBits(f); {
	case bits == 24:
		score = 4
	case bits > 24:
		score = 2
	}
	if preferSRGB && f.IsSrgb() {
		score++
	}
	return score
}

// ChooseFormat picks the highest-scoring format. Ties keep the order the
// surface reported. Reports false if formats holds no color format.
func ChooseFormat(formats []gputypes.TextureFormat, preferSRGB bool) (gputypes.TextureFormat, bool) {
	best := gputypes.TextureFormatUndefined
	bestScore := -1
	for _, f := range formats {
		if f == gputypes.TextureFormatUndefined {
			continue
		}
		if s := ScoreFormat(f, preferSRGB); s > bestScore {
			best, bestScore = f, s
		}
	}
	return best, bestScore >= 0
}

// ChoosePresentMode returns preferred if the surface supports it, Fifo
// otherwise. Fifo is the one mode every presentation engine must offer.
func ChoosePresentMode(modes []gputypes.PresentMode, preferred gputypes.PresentMode) gputypes.PresentMode {
	if preferred != gputypes.PresentModeUndefined {
		for _, m := range modes {
			if m == preferred {
				return m
			}
		}
	}
	return gputypes.PresentModeFifo
}

// ChooseAlphaMode returns the first supported composite alpha mode.
func ChooseAlphaMode(modes []gputypes.CompositeAlphaMode) gputypes.CompositeAlphaMode {
	if len(modes) == 0 {
		return gputypes.CompositeAlphaModeAuto
	}
	return modes[0]
}
