// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package fence sequences CPU submission against GPU completion.
//
// A Tracker owns the single frame-end token. Every Submit joins that token
// with the acquire token of the frame's target, submits the command buffer,
// chains the present, and replaces the token with the new frame's. The CPU
// never waits in the steady state; the GPU orders each frame after the
// previous one, so at most one frame of work is ever unaccounted for.
//
// When the presentation engine reports the chain stale, the frame is
// abandoned, the surface is asked to recreate, and the token resets to
// gpu.Completed so the next frame never waits on work that never happened.
package fence
