// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package frame

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/frame/gpu"
	"github.com/gogpu/frame/surface"
	"github.com/gogpu/gpucontext"
)

// Phase names the stage callback that failed.
type Phase string

// Stage phases.
const (
	PhaseInit     Phase = "init"
	PhaseUpdate   Phase = "update"
	PhaseBind     Phase = "bind"
	PhaseRecreate Phase = "recreate"
	PhaseEvent    Phase = "event"
	PhaseClose    Phase = "close"
)

// ErrStagePanic is wrapped by StageError when a stage panicked.
var ErrStagePanic = errors.New("frame: stage panicked")

// FrameInfo describes the frame being built.
type FrameInfo struct {
	// Number counts frames handed to the orchestrator, starting at 1.
	Number uint64

	// Extent is the size of the target being rendered.
	Extent gpu.Extent

	// Generation is the target set generation.
	Generation uint64

	// Time is when the frame started; Delta is the time since the
	// previous frame (zero for the first).
	Time  time.Time
	Delta time.Duration
}

// Stage is one independently developed unit of per-frame work.
//
// Every frame the orchestrator calls Update on every stage in registration
// order, then Bind on every stage in the same order. Bind records commands
// into the frame's shared render pass through rec, which is valid only
// for the duration of the call.
type Stage interface {
	Name() string
	Update(ctx context.Context, info FrameInfo) error
	Bind(rec *Recorder) error
}

// Initializer is implemented by stages that create device resources.
// Init runs before the stage's first Update and is retried on the next
// frame if it fails.
type Initializer interface {
	Init(ctx context.Context, dev gpucontext.DeviceProvider, set *surface.TargetSet) error
}

// TargetObserver is implemented by stages holding size dependent resources.
type TargetObserver interface {
	TargetsRecreated(set *surface.TargetSet) error
}

// EventHandler is implemented by stages that consume input events.
type EventHandler interface {
	HandleEvent(ev Event)
}

// Closer is implemented by stages that own resources. Close is called once
// when the engine shuts down, in reverse registration order.
type Closer interface {
	Close() error
}

// StageError reports a stage failure. It never aborts the frame.
type StageError struct {
	Stage string
	Phase Phase
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("frame: stage %q %s: %v", e.Stage, e.Phase, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StageFunc adapts plain functions to Stage. Nil functions are no-ops.
type StageFunc struct {
	StageName string
	UpdateFn  func(ctx context.Context, info FrameInfo) error
	BindFn    func(rec *Recorder) error
}

var _ Stage = StageFunc{}

// Name implements Stage.
func (s StageFunc) Name() string { return s.StageName }

// Update implements Stage.
func (s StageFunc) Update(ctx context.Context, info FrameInfo) error {
	if s.UpdateFn == nil {
		return nil
	}
	return s.UpdateFn(ctx, info)
}

// Bind implements Stage.
func (s StageFunc) Bind(rec *Recorder) error {
	if s.BindFn == nil {
		return nil
	}
	return s.BindFn(rec)
}
