// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package frame

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gogpu/frame/config"
	"github.com/gogpu/frame/fence"
	"github.com/gogpu/frame/gpu"
	"github.com/gogpu/frame/internal/ids"
	"github.com/gogpu/frame/metrics"
	"github.com/gogpu/frame/surface"
	"github.com/gogpu/gpucontext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrClosed is returned by Step after Close.
var ErrClosed = errors.New("frame: engine closed")

// StepResult reports what one Step did.
type StepResult uint8

const (
	// StepSubmitted means a frame was submitted and presented.
	StepSubmitted StepResult = iota

	// StepSkipped means no frame was submitted. The loop continues.
	StepSkipped
)

// String returns the name of the result.
func (r StepResult) String() string {
	switch r {
	case StepSubmitted:
		return "submitted"
	case StepSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Engine drives the frame loop: it owns the device, the surface manager,
// the synchronization tracker and the stage orchestrator.
//
// Step, Run and Close must be called from one goroutine. RequestClose,
// SetLogger and the event queue may be used from any goroutine.
type Engine struct {
	backend gpu.Backend
	window  gpucontext.WindowProvider
	dev     gpu.Device
	surf    gpu.Surface
	targets *surface.Manager
	tracker *fence.Tracker
	orch    *Orchestrator

	cfg      config.Config
	runID    string
	events   EventQueue
	handlers []EventHandler
	preFrame []PreFrameFunc
	tracer   trace.Tracer
	metrics  *metrics.Collectors

	log        *slog.Logger
	pendingLog atomic.Pointer[slog.Logger]
	closeReq   atomic.Bool
	closed     bool
}

// New opens backend for window and builds the frame loop. A nil backend
// selects one by the configured name through the gpu backend registry.
func New(ctx context.Context, backend gpu.Backend, window gpucontext.WindowProvider, opts ...EngineOption) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	if window == nil {
		return nil, errors.New("frame: nil window")
	}
	if backend == nil {
		b, err := gpu.Select(o.cfg.Backend)
		if err != nil {
			return nil, err
		}
		backend = b
	}
	mode, err := o.cfg.Surface.Mode()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		backend:  backend,
		window:   window,
		cfg:      o.cfg,
		runID:    ids.RunID(),
		handlers: o.handlers,
		preFrame: o.preFrame,
		tracer:   o.tracer,
		metrics:  o.metrics,
		log:      Logger(),
	}
	if e.metrics == nil && o.cfg.Metrics.Enabled {
		e.metrics = metrics.New(o.cfg.Metrics.Namespace, o.registerer)
		if err := e.metrics.Register(); err != nil {
			return nil, fmt.Errorf("frame: metrics: %w", err)
		}
	}

	propagateLogger(backend, e.log)
	dev, surf, err := backend.Open(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("frame: open %s backend: %w", backend.Name(), err)
	}
	e.dev, e.surf = dev, surf

	e.targets, err = surface.Initialize(dev, surf, e.windowExtent(),
		surface.WithPresentMode(mode),
		surface.WithSRGB(o.cfg.Surface.PreferSRGB),
		surface.WithFrameLatency(o.cfg.Surface.FrameLatency),
		surface.WithLogger(e.log),
		surface.WithRecreateHook(e.targetsRecreated),
	)
	if err != nil {
		surf.Release()
		dev.Release()
		return nil, err
	}
	e.tracker = fence.New(dev, e.targets)
	e.orch = NewOrchestrator(dev, o.cfg.Surface.Clear())
	e.orch.SetTracer(e.tracer)
	e.orch.SetMetrics(e.metrics)
	for _, s := range o.stages {
		if err := e.orch.Register(s); err != nil {
			e.Close()
			return nil, err
		}
	}
	if o.events != nil {
		e.events.Attach(o.events)
	}

	track(e)
	e.applyLogger()
	e.log.Info("frame: engine started",
		"backend", backend.Name(),
		"adapter", dev.Provider().AdapterInfo().Name,
		"targets", e.targets.Targets().String(),
	)
	return e, nil
}

// SetLogger replaces the engine's logger. It takes effect at the start of
// the next Step. Nil silences logging.
func (e *Engine) SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	e.pendingLog.Store(l)
}

func (e *Engine) applyLogger() {
	l := e.pendingLog.Swap(nil)
	if l == nil {
		return
	}
	e.log = l.With("run", e.runID)
	e.targets.SetLogger(e.log)
	e.tracker.SetLogger(e.log)
	e.orch.SetLogger(e.log)
	propagateLogger(e.backend, e.log)
	propagateLogger(e.dev, e.log)
}

// RunID returns the unique identifier of this engine run.
func (e *Engine) RunID() string { return e.runID }

// Device returns the opened device.
func (e *Engine) Device() gpu.Device { return e.dev }

// Targets returns the surface manager.
func (e *Engine) Targets() *surface.Manager { return e.targets }

// Tracker returns the synchronization tracker.
func (e *Engine) Tracker() *fence.Tracker { return e.tracker }

// Orchestrator returns the stage orchestrator.
func (e *Engine) Orchestrator() *Orchestrator { return e.orch }

// Events returns the queue input events are delivered from.
func (e *Engine) Events() *EventQueue { return &e.events }

// Config returns the engine configuration.
func (e *Engine) Config() config.Config { return e.cfg }

// Register appends a stage. It fails once the first frame has run.
func (e *Engine) Register(s Stage) error { return e.orch.Register(s) }

// RequestClose asks Run to stop after the current frame.
func (e *Engine) RequestClose() { e.closeReq.Store(true) }

// CloseRequested reports whether RequestClose was called or a close event
// was delivered.
func (e *Engine) CloseRequested() bool { return e.closeReq.Load() }

func (e *Engine) windowExtent() gpu.Extent {
	w, h := e.window.Size()
	return gpu.ExtentFromLogical(w, h, e.window.ScaleFactor())
}

func (e *Engine) targetsRecreated(set *surface.TargetSet) {
	e.metrics.Recreated()
	if e.orch != nil {
		e.orch.TargetsRecreated(set)
	}
}

// Step builds, submits and presents one frame.
//
// A frame that cannot be produced for a transient reason (zero extent,
// stale target, unsettled work before recreation, a close event delivered
// in this Step) yields StepSkipped with a nil error. Any returned error is
// fatal for the loop, including a target recreation the device rejects.
func (e *Engine) Step(ctx context.Context) (StepResult, error) {
	if e.closed {
		return StepSkipped, ErrClosed
	}
	e.applyLogger()
	ctx, span := e.tracer.Start(ctx, "frame.Step",
		trace.WithAttributes(attribute.String("frame.run", e.runID)))
	res, err := e.step(ctx)
	span.SetAttributes(attribute.String("frame.result", res.String()))
	endSpan(span, err)
	return res, err
}

func (e *Engine) step(ctx context.Context) (StepResult, error) {
	start := time.Now()
	if e.deliverEvents() {
		return e.skip(metrics.ReasonClose, "close event")
	}
	for _, fn := range e.preFrame {
		if err := fn(ctx); err != nil {
			e.log.Warn("frame: pre-frame hook failed", "err", err)
		}
	}

	e.tracker.BeginFrame()
	e.metrics.Outstanding(e.tracker.Outstanding())

	extent := e.windowExtent()
	if extent.IsZero() {
		return e.skip(metrics.ReasonZeroExtent, "zero extent")
	}
	e.targets.Resize(extent)
	if e.targets.Pending() {
		if err := e.settle(ctx); err != nil {
			if ctx.Err() != nil {
				return StepSkipped, ctx.Err()
			}
			if !errors.Is(err, errUnsettled) {
				e.log.Warn("frame: in-flight work did not settle before recreation", "err", err)
			}
			return e.skip(metrics.ReasonRecreation, "unsettled")
		}
	}

	target, status, err := e.targets.Acquire(ctx)
	switch {
	case err != nil && recoverable(err):
		e.log.Warn("frame: target recreation failed", "err", err)
		return e.skip(metrics.ReasonRecreation, "recreation failed")
	case err != nil:
		e.log.Error("frame: acquire failed", "err", err)
		return StepSkipped, err
	case status == surface.AcquireStale:
		e.tracker.Abandon()
		return e.skip(metrics.ReasonStale, "stale at acquire")
	}

	cmds, report, err := e.orch.RunFrame(ctx, target)
	if err != nil {
		e.log.Error("frame: recording failed", "err", err)
		return StepSkipped, err
	}

	tok, err := e.tracker.Submit(ctx, cmds, target)
	switch {
	case errors.Is(err, fence.ErrFrameSkipped):
		return e.skip(metrics.ReasonStale, "stale at present")
	case err != nil:
		return StepSkipped, err
	}

	e.metrics.FrameSubmitted(time.Since(start))
	e.metrics.Outstanding(e.tracker.Outstanding())
	e.log.Debug("frame: submitted",
		"frame", report.Info.Number,
		"image", target.Index,
		"status", status.String(),
		"stage_errors", len(report.Errors),
		"done", tok.Done(),
	)
	return StepSubmitted, nil
}

// recoverable reports whether an acquire error leaves the loop usable.
// Only a degenerate extent clears by itself once the window is resized;
// any other recreation failure would repeat on every frame.
func recoverable(err error) bool {
	return errors.Is(err, surface.ErrDegenerateExtent)
}

func (e *Engine) skip(reason, msg string) (StepResult, error) {
	e.metrics.FrameSkipped(reason)
	e.log.Debug("frame: skipped", "reason", reason, "detail", msg)
	return StepSkipped, nil
}

// errUnsettled reports in-flight work when waiting for it is disabled.
var errUnsettled = errors.New("frame: submitted work still in flight")

// settle waits for submitted frames before the target set is rebuilt so
// no image is destroyed while the GPU still uses it. The wait is bounded
// by DrainTimeout; with a zero timeout settle never blocks and reports
// errUnsettled until BeginFrame has retired the work.
func (e *Engine) settle(ctx context.Context) error {
	if e.tracker.Outstanding() == 0 && e.tracker.Retained() == 0 {
		return nil
	}
	d := e.cfg.Frame.DrainTimeout
	if d <= 0 {
		return errUnsettled
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return e.tracker.Drain(ctx)
}

// deliverEvents hands queued events to the handlers and stages. It
// reports whether one of them was a close event.
func (e *Engine) deliverEvents() (closing bool) {
	for _, ev := range e.events.Drain() {
		switch ev.Kind {
		case EventResize:
			e.targets.Resize(gpu.ExtentFromLogical(ev.Width, ev.Height, e.window.ScaleFactor()))
		case EventClose:
			e.closeReq.Store(true)
			closing = true
		}
		for _, h := range e.handlers {
			h.HandleEvent(ev)
		}
		e.orch.Dispatch(ev)
	}
	return closing
}

// Run steps frames until ctx is cancelled, a close is requested or a
// fatal error occurs, then waits for in-flight work. With a configured
// frame interval the loop is paced by a ticker.
//
// Run returns nil on a clean stop.
func (e *Engine) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if d := e.cfg.Frame.Interval; d > 0 {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		tick = ticker.C
	}
	e.log.Info("frame: loop started", "interval", e.cfg.Frame.Interval)

	var runErr error
	for ctx.Err() == nil && !e.closeReq.Load() {
		if _, err := e.Step(ctx); err != nil {
			if ctx.Err() == nil {
				runErr = err
			}
			break
		}
		if tick != nil {
			select {
			case <-ctx.Done():
			case <-tick:
			}
		}
	}

	if err := e.drain(); err != nil {
		e.log.Warn("frame: drain incomplete", "err", err)
		runErr = errors.Join(runErr, err)
	}
	e.log.Info("frame: loop stopped", "frames", e.orch.Frames())
	return runErr
}

func (e *Engine) drain() error {
	d := e.cfg.Frame.DrainTimeout
	if d <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return e.tracker.Drain(ctx)
}

// Close waits for in-flight work, closes the stages and releases the
// surface and device. It is safe to call more than once.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	untrack(e)

	var errs []error
	if e.tracker != nil {
		if err := e.drain(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.orch != nil {
		if err := e.orch.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.targets.Close()
	e.surf.Release()
	e.dev.Release()
	return errors.Join(errs...)
}
