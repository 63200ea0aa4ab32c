// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package headless

import (
	"image"
	"image/color"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"
)

// CommandType identifies the type of a recorded command.
type CommandType uint8

const (
	CmdClear CommandType = iota // Clear the attachment
	CmdFill                     // Fill a rectangle
	CmdBlit                     // Scale an image into a rectangle
	CmdMark                     // Label subsequent commands
	CmdRaw                      // Opaque caller-defined command
)

var commandTypeNames = [...]string{
	CmdClear: "Clear",
	CmdFill:  "Fill",
	CmdBlit:  "Blit",
	CmdMark:  "Mark",
	CmdRaw:   "Raw",
}

// String returns the string representation of a CommandType.
func (c CommandType) String() string {
	if int(c) < len(commandTypeNames) {
		return commandTypeNames[c]
	}
	return "Unknown"
}

// Command is a recorded pass operation.
type Command interface {
	Type() CommandType
}

// ClearCommand fills the whole attachment with a color.
type ClearCommand struct {
	Color gputypes.Color
}

// Type implements Command.
func (ClearCommand) Type() CommandType { return CmdClear }

// FillCommand composites a solid color over a rectangle.
type FillCommand struct {
	Rect  image.Rectangle
	Color gputypes.Color
}

// Type implements Command.
func (FillCommand) Type() CommandType { return CmdFill }

// BlitCommand scales Src into Rect with bilinear filtering.
type BlitCommand struct {
	Src  image.Image
	Rect image.Rectangle
}

// Type implements Command.
func (BlitCommand) Type() CommandType { return CmdBlit }

// MarkCommand labels the commands that follow it.
type MarkCommand struct {
	Label string
}

// Type implements Command.
func (MarkCommand) Type() CommandType { return CmdMark }

// RawCommand carries an arbitrary payload. It has no effect on pixels;
// tests use it to observe recording order.
type RawCommand struct {
	Payload any
}

// Type implements Command.
func (RawCommand) Type() CommandType { return CmdRaw }

// toColor converts a linear float color to a non-premultiplied 16-bit color.
func toColor(c gputypes.Color) color.NRGBA64 {
	return color.NRGBA64{
		R: unit16(c.R),
		G: unit16(c.G),
		B: unit16(c.B),
		A: unit16(c.A),
	}
}

func unit16(v float64) uint16 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 0xffff
	default:
		return uint16(v*0xffff + 0.5)
	}
}

// execute applies cmd to dst.
func execute(dst *image.RGBA, cmd Command) {
	switch c := cmd.(type) {
	case ClearCommand:
		draw.Draw(dst, dst.Bounds(), image.NewUniform(toColor(c.Color)), image.Point{}, draw.Src)
	case FillCommand:
		r := c.Rect.Intersect(dst.Bounds())
		if r.Empty() {
			return
		}
		draw.Draw(dst, r, image.NewUniform(toColor(c.Color)), image.Point{}, draw.Over)
	case BlitCommand:
		if c.Src == nil || c.Rect.Empty() {
			return
		}
		draw.ApproxBiLinear.Scale(dst, c.Rect, c.Src, c.Src.Bounds(), draw.Over, nil)
	}
}
