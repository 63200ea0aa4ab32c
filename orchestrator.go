// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package frame

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gogpu/frame/gpu"
	"github.com/gogpu/frame/metrics"
	"github.com/gogpu/frame/surface"
	"github.com/gogpu/gputypes"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrRegistrationClosed is returned by Register once the first frame
	// has been built.
	ErrRegistrationClosed = errors.New("frame: stage registration closed")

	// ErrDuplicateStage is returned by Register for a name already in use.
	ErrDuplicateStage = errors.New("frame: duplicate stage name")

	// ErrRecording wraps encoder and pass failures. It is fatal for the frame.
	ErrRecording = errors.New("frame: command recording failed")
)

// FrameReport summarizes one RunFrame call.
type FrameReport struct {
	Info FrameInfo

	// Bound lists the stages whose Bind completed, in order.
	Bound []string

	// Errors lists every stage failure of the frame.
	Errors []*StageError
}

type stageSlot struct {
	stage       Stage
	initialized bool
}

// Orchestrator sequences the registered stages into one command buffer
// per frame.
//
// Orchestrator is driven from the frame loop goroutine only.
type Orchestrator struct {
	dev     gpu.Device
	stages  []*stageSlot
	sealed  bool
	clear   gputypes.Color
	frames  uint64
	last    time.Time
	log     *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.Collectors
}

// NewOrchestrator creates an orchestrator recording on dev. Every frame's
// pass clears the target to clear.
func NewOrchestrator(dev gpu.Device, clear gputypes.Color) *Orchestrator {
	return &Orchestrator{
		dev:    dev,
		clear:  clear,
		log:    newNopLogger(),
		tracer: defaultTracer(),
	}
}

// SetLogger replaces the logger. Nil silences logging.
func (o *Orchestrator) SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	o.log = l
}

// SetTracer replaces the tracer. Nil restores the global tracer.
func (o *Orchestrator) SetTracer(t trace.Tracer) {
	if t == nil {
		t = defaultTracer()
	}
	o.tracer = t
}

// SetMetrics sets the collectors stage failures are counted on.
func (o *Orchestrator) SetMetrics(m *metrics.Collectors) { o.metrics = m }

// Register appends s to the stage list. Stages run in registration order
// and cannot be removed.
func (o *Orchestrator) Register(s Stage) error {
	if o.sealed {
		return ErrRegistrationClosed
	}
	if s == nil {
		return errors.New("frame: nil stage")
	}
	for _, slot := range o.stages {
		if slot.stage.Name() == s.Name() {
			return fmt.Errorf("%w: %q", ErrDuplicateStage, s.Name())
		}
	}
	o.stages = append(o.stages, &stageSlot{stage: s})
	return nil
}

// Stages returns the registered stage names in order.
func (o *Orchestrator) Stages() []string {
	names := make([]string, len(o.stages))
	for i, slot := range o.stages {
		names[i] = slot.stage.Name()
	}
	return names
}

// Frames returns the number of frames built so far.
func (o *Orchestrator) Frames() uint64 { return o.frames }

// RunFrame records every stage's commands for target into one command
// buffer. Stage failures are reported in the FrameReport; only encoder or
// pass failures return an error, in which case no command buffer is
// produced.
func (o *Orchestrator) RunFrame(ctx context.Context, target surface.Target) (gpu.CommandBuffer, FrameReport, error) {
	o.sealed = true
	o.frames++
	now := time.Now()
	info := FrameInfo{
		Number: o.frames,
		Extent: target.Extent(),
		Time:   now,
	}
	if set := target.Set(); set != nil {
		info.Generation = set.Generation
	}
	if !o.last.IsZero() {
		info.Delta = now.Sub(o.last)
	}
	o.last = now
	report := FrameReport{Info: info}

	ctx, span := o.tracer.Start(ctx, "frame.RunFrame",
		trace.WithAttributes(attribute.Int64("frame.number", int64(info.Number))))
	var err error
	defer func() { endSpan(span, err) }()

	provider := o.dev.Provider()
	for _, slot := range o.stages {
		if slot.initialized {
			continue
		}
		in, ok := slot.stage.(Initializer)
		if !ok {
			slot.initialized = true
			continue
		}
		if e := o.call(ctx, slot.stage.Name(), PhaseInit, func() error {
			return in.Init(ctx, provider, target.Set())
		}); e != nil {
			report.Errors = append(report.Errors, e)
			continue
		}
		slot.initialized = true
	}

	updated := make([]bool, len(o.stages))
	for i, slot := range o.stages {
		if !slot.initialized {
			continue
		}
		e := o.call(ctx, slot.stage.Name(), PhaseUpdate, func() error {
			return slot.stage.Update(ctx, info)
		})
		if e != nil {
			report.Errors = append(report.Errors, e)
			continue
		}
		updated[i] = true
	}

	enc, err := o.dev.CreateEncoder(fmt.Sprintf("frame %d", info.Number))
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrRecording, err)
		return nil, report, err
	}
	pass, err := enc.BeginPass(gpu.PassDescriptor{
		Label: "frame",
		View:  target.View,
		Load:  gputypes.LoadOpClear,
		Clear: o.clear,
	})
	if err != nil {
		enc.Discard()
		err = fmt.Errorf("%w: %w", ErrRecording, err)
		return nil, report, err
	}

	rec := &Recorder{pass: pass, target: target, info: info, device: provider}
	marker, _ := pass.(gpu.Marker)
	for i, slot := range o.stages {
		if !updated[i] {
			continue
		}
		name := slot.stage.Name()
		rec.stage = name
		if marker != nil {
			marker.Mark(name)
		}
		if e := o.call(ctx, name, PhaseBind, func() error {
			return slot.stage.Bind(rec)
		}); e != nil {
			report.Errors = append(report.Errors, e)
			continue
		}
		report.Bound = append(report.Bound, name)
	}
	rec.pass = nil

	if err = pass.End(); err != nil {
		enc.Discard()
		err = fmt.Errorf("%w: %w", ErrRecording, err)
		return nil, report, err
	}
	cmds, err := enc.Finish()
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrRecording, err)
		return nil, report, err
	}
	o.log.Debug("frame: recorded",
		"frame", info.Number,
		"extent", info.Extent.String(),
		"bound", len(report.Bound),
		"errors", len(report.Errors),
	)
	return cmds, report, nil
}

// TargetsRecreated notifies TargetObserver stages of a new target set.
func (o *Orchestrator) TargetsRecreated(set *surface.TargetSet) []*StageError {
	var errs []*StageError
	for _, slot := range o.stages {
		obs, ok := slot.stage.(TargetObserver)
		if !ok || !slot.initialized {
			continue
		}
		if e := o.call(context.Background(), slot.stage.Name(), PhaseRecreate, func() error {
			return obs.TargetsRecreated(set)
		}); e != nil {
			errs = append(errs, e)
		}
	}
	return errs
}

// Dispatch forwards ev to every EventHandler stage in registration order.
func (o *Orchestrator) Dispatch(ev Event) {
	for _, slot := range o.stages {
		h, ok := slot.stage.(EventHandler)
		if !ok {
			continue
		}
		_ = o.call(context.Background(), slot.stage.Name(), PhaseEvent, func() error {
			h.HandleEvent(ev)
			return nil
		})
	}
}

// Close closes Closer stages in reverse registration order.
func (o *Orchestrator) Close() error {
	var errs []error
	for i := len(o.stages) - 1; i >= 0; i-- {
		c, ok := o.stages[i].stage.(Closer)
		if !ok {
			continue
		}
		if e := o.call(context.Background(), o.stages[i].stage.Name(), PhaseClose, c.Close); e != nil {
			errs = append(errs, e)
		}
	}
	return errors.Join(errs...)
}

// call runs fn inside a span, converting errors and panics into a
// logged and counted StageError.
func (o *Orchestrator) call(ctx context.Context, stage string, phase Phase, fn func() error) (se *StageError) {
	_, span := o.tracer.Start(ctx, stage+"."+string(phase),
		trace.WithAttributes(
			attribute.String("stage.name", stage),
			attribute.String("stage.phase", string(phase)),
		))
	defer func() {
		if r := recover(); r != nil {
			se = &StageError{Stage: stage, Phase: phase, Err: fmt.Errorf("%w: %v", ErrStagePanic, r)}
		}
		if se != nil {
			o.log.Warn("frame: stage failed", "stage", stage, "phase", string(phase), "err", se.Err)
			o.metrics.StageError(stage, string(phase))
			endSpan(span, se)
			return
		}
		span.End()
	}()
	if err := fn(); err != nil {
		return &StageError{Stage: stage, Phase: phase, Err: err}
	}
	return nil
}
