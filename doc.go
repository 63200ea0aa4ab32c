// Package frame provides the per-frame execution core of a GPU renderer.
//
// # Overview
//
// frame owns the presentation surface lifecycle, sequences independently
// developed rendering stages into one submitted frame, and tracks CPU/GPU
// synchronization across frames. Externally triggered behavior, such as UI
// actions, reaches live state through the callback and action packages.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/frame"
//	    _ "github.com/gogpu/frame/backend/headless"
//	)
//
//	e, err := frame.New(ctx, nil, window, frame.WithStages(background, overlay))
//	if err != nil {
//	    return err
//	}
//	defer e.Close()
//	return e.Run(ctx)
//
// # Frame Loop
//
// Each Step delivers queued input events, runs pre-frame hooks, releases
// finished GPU work, and reads the window extent. A zero extent skips the
// frame. Otherwise a target is acquired (rebuilding the target set first
// when a resize or staleness is pending), every stage's Update runs in
// registration order, then every stage's Bind records into one shared
// render pass, and the command buffer is submitted after the previous
// frame's work and the target's acquisition, then presented.
//
// # Stages
//
// A Stage failure is logged, counted, and reported in the FrameReport; the
// remaining stages still run. Stages may implement Initializer,
// TargetObserver, EventHandler and Closer.
//
// # Architecture
//
//   - frame: Engine, Orchestrator, Stage, Recorder, Event
//   - gpu: backend-neutral device contract and backend registry
//   - surface: target set lifecycle and format selection
//   - fence: frame-end token tracking
//   - callback: runtime-invocable typed callables
//   - action: watermill action bus and key bindings
//   - backend/headless, backend/wgpu: device implementations
//   - shader, stage/fullscreen: WGSL inspection and a reusable color stage
//
// # Logging
//
// frame is silent by default. See SetLogger.
package frame
