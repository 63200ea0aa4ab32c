// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package frame

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/gogpu/frame/backend/headless"
	"github.com/gogpu/frame/config"
	"github.com/gogpu/frame/fence"
	"github.com/gogpu/frame/gpu"
	"github.com/gogpu/frame/metrics"
	"github.com/gogpu/frame/surface"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeWindow struct {
	mu    sync.Mutex
	w, h  int
	scale float64
}

func (w *fakeWindow) Size() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w, w.h
}

func (w *fakeWindow) ScaleFactor() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scale
}

func (w *fakeWindow) RequestRedraw() {}

func (w *fakeWindow) resize(width, height int) {
	w.mu.Lock()
	w.w, w.h = width, height
	w.mu.Unlock()
}

type engineRig struct {
	engine  *Engine
	backend *headless.Backend
	window  *fakeWindow
	reg     *prometheus.Registry
}

func (r *engineRig) dev() *headless.Device { return r.backend.Device }

func newEngineRig(t *testing.T, opts ...EngineOption) *engineRig {
	t.Helper()
	return newEngineRigWith(t, headless.Config{}, opts...)
}

func newEngineRigWith(t *testing.T, hcfg headless.Config, opts ...EngineOption) *engineRig {
	t.Helper()
	r := &engineRig{
		backend: headless.New(hcfg),
		window:  &fakeWindow{w: 64, h: 32, scale: 1},
		reg:     prometheus.NewRegistry(),
	}
	opts = append([]EngineOption{WithMetrics(metrics.New("test", r.reg))}, opts...)
	e, err := New(context.Background(), r.backend, r.window, opts...)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	if err := e.metrics.Register(); err != nil {
		t.Fatalf("Register() = %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	r.engine = e
	return r
}

func (r *engineRig) step(t *testing.T, want StepResult) {
	t.Helper()
	got, err := r.engine.Step(context.Background())
	if err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if got != want {
		t.Fatalf("Step() = %v, want %v", got, want)
	}
}

// counter returns the value of a counter series whose labels include all
// of labels.
func (r *engineRig) counter(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := r.reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	series:
		for _, m := range mf.GetMetric() {
			have := map[string]string{}
			for _, lp := range m.GetLabel() {
				have[lp.GetName()] = lp.GetValue()
			}
			for k, v := range labels {
				if have[k] != v {
					continue series
				}
			}
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestEngineThreeStages(t *testing.T) {
	var log []string
	stages := []Stage{
		&loggingStage{name: "Background", log: &log},
		&loggingStage{name: "Sprites", log: &log},
		&loggingStage{name: "UIOverlay", log: &log},
	}
	r := newEngineRig(t, WithStages(stages...))

	for range 3 {
		r.step(t, StepSubmitted)
	}

	subs := r.dev().Submissions()
	if len(subs) != 3 {
		t.Fatalf("submissions = %d, want 3", len(subs))
	}
	want := []string{"Background", "Sprites", "UIOverlay"}
	for i, sub := range subs {
		if !reflect.DeepEqual(sub.Marks, want) {
			t.Errorf("submission %d marks = %v, want %v", i, sub.Marks, want)
		}
		if sub.Index != uint64(i+1) {
			t.Errorf("submission %d index = %d", i, sub.Index)
		}
	}
	if got := r.backend.Surface.Presents(); got != 3 {
		t.Errorf("presents = %d, want 3", got)
	}
	if got := r.engine.Tracker().Outstanding(); got > 1 {
		t.Errorf("Outstanding() = %d, want at most 1", got)
	}
	if got := r.counter(t, "test_loop_frames_submitted_total", nil); got != 3 {
		t.Errorf("frames_submitted_total = %v, want 3", got)
	}
}

func TestEngineZeroExtentSkips(t *testing.T) {
	r := newEngineRig(t, WithStages(StageFunc{StageName: "A"}))
	r.step(t, StepSubmitted)

	r.window.resize(0, 0)
	for range 2 {
		r.step(t, StepSkipped)
	}
	if got := len(r.dev().Submissions()); got != 1 {
		t.Errorf("submissions while minimized = %d, want 1", got)
	}
	if got := r.counter(t, "test_loop_frames_skipped_total", map[string]string{"reason": metrics.ReasonZeroExtent}); got != 2 {
		t.Errorf("zero extent skips = %v, want 2", got)
	}

	r.window.resize(40, 20)
	r.step(t, StepSubmitted)
	set := r.engine.Targets().Targets()
	if set.Extent != (gpu.Extent{Width: 40, Height: 20}) {
		t.Errorf("target extent = %v, want 40x20", set.Extent)
	}
	if got := r.engine.Targets().Recreations(); got != 1 {
		t.Errorf("Recreations() = %d, want 1", got)
	}
}

func TestEngineResizeCoalesces(t *testing.T) {
	obs := &lifecycle{StageFunc: StageFunc{StageName: "obs"}, closed: new([]string)}
	r := newEngineRig(t, WithStages(obs))
	r.step(t, StepSubmitted)

	r.engine.Events().Push(Event{Kind: EventResize, Width: 100, Height: 50})
	r.engine.Events().Push(Event{Kind: EventResize, Width: 120, Height: 60})
	r.window.resize(120, 60)
	r.step(t, StepSubmitted)

	if !reflect.DeepEqual(obs.recreated, []uint64{2}) {
		t.Errorf("recreations observed = %v, want [2]", obs.recreated)
	}
	if got := r.engine.Targets().Targets().Extent; got != (gpu.Extent{Width: 120, Height: 60}) {
		t.Errorf("extent = %v, want 120x60", got)
	}
}

func TestEngineScaleFactor(t *testing.T) {
	r := newEngineRig(t)
	r.window.mu.Lock()
	r.window.scale = 2
	r.window.mu.Unlock()
	r.step(t, StepSubmitted)
	if got := r.engine.Targets().Extent(); got != (gpu.Extent{Width: 128, Height: 64}) {
		t.Errorf("extent = %v, want 128x64", got)
	}
}

func TestEngineStaleAtAcquire(t *testing.T) {
	r := newEngineRig(t)
	r.step(t, StepSubmitted)

	r.dev().StaleAcquires(1)
	r.step(t, StepSkipped)
	if !gpu.IsCompleted(r.engine.Tracker().Token()) {
		t.Error("token not reset after stale acquire")
	}
	r.step(t, StepSubmitted)

	if got := r.engine.Targets().Recreations(); got != 1 {
		t.Errorf("Recreations() = %d, want 1", got)
	}
	if got := r.counter(t, "test_loop_frames_skipped_total", map[string]string{"reason": metrics.ReasonStale}); got != 1 {
		t.Errorf("stale skips = %v, want 1", got)
	}
}

func TestEngineStaleAtPresent(t *testing.T) {
	r := newEngineRig(t)
	r.dev().StalePresents(1)
	r.step(t, StepSkipped)
	if !r.engine.Targets().Pending() {
		t.Error("stale present did not request recreation")
	}
	r.step(t, StepSubmitted)
	if got := r.backend.Surface.Presents(); got != 1 {
		t.Errorf("presents = %d, want 1", got)
	}
}

func TestEngineSuboptimalPresentsThenRecreates(t *testing.T) {
	r := newEngineRig(t)
	r.dev().SuboptimalAcquires(1)
	r.step(t, StepSubmitted)
	if !r.engine.Targets().Pending() {
		t.Fatal("suboptimal acquire did not schedule recreation")
	}
	r.step(t, StepSubmitted)
	if got := r.engine.Targets().Recreations(); got != 1 {
		t.Errorf("Recreations() = %d, want 1", got)
	}
}

func TestEngineSubmitFailureIsFatal(t *testing.T) {
	r := newEngineRig(t)
	injected := errors.New("queue exploded")
	r.dev().FailSubmit(injected)

	_, err := r.engine.Step(context.Background())
	if !errors.Is(err, fence.ErrFatal) || !errors.Is(err, injected) {
		t.Errorf("Step() error = %v, want ErrFatal wrapping the cause", err)
	}
}

func TestEngineStageFailureKeepsLoop(t *testing.T) {
	var log []string
	bad := &loggingStage{name: "bad", log: &log, bindErr: errors.New("boom")}
	r := newEngineRig(t, WithStages(bad, &loggingStage{name: "good", log: &log}))

	r.step(t, StepSubmitted)
	r.step(t, StepSubmitted)
	if got := r.counter(t, "test_loop_stage_errors_total", map[string]string{"stage": "bad", "phase": "bind"}); got != 2 {
		t.Errorf("stage errors = %v, want 2", got)
	}
}

type keyLog struct{ kinds []EventKind }

func (k *keyLog) HandleEvent(ev Event) { k.kinds = append(k.kinds, ev.Kind) }

func TestEngineEventsAndClose(t *testing.T) {
	h := &keyLog{}
	r := newEngineRig(t, WithEventHandler(h))
	r.step(t, StepSubmitted)

	r.engine.Events().Push(Event{Kind: EventKeyPress})
	r.engine.Events().Push(Event{Kind: EventClose})
	r.step(t, StepSkipped)

	if want := []EventKind{EventKeyPress, EventClose}; !reflect.DeepEqual(h.kinds, want) {
		t.Errorf("handled = %v, want %v", h.kinds, want)
	}
	if !r.engine.CloseRequested() {
		t.Fatal("close event did not request close")
	}
	if got := len(r.dev().Submissions()); got != 1 {
		t.Errorf("submissions after close event = %d, want 1", got)
	}
	if got := r.counter(t, "test_loop_frames_skipped_total", map[string]string{"reason": metrics.ReasonClose}); got != 1 {
		t.Errorf("close skips = %v, want 1", got)
	}
	if err := r.engine.Run(context.Background()); err != nil {
		t.Errorf("Run() after close request = %v", err)
	}
	if got := len(r.dev().Submissions()); got != 1 {
		t.Errorf("submissions after Run = %d, want 1", got)
	}
}

func TestEngineRunStopsOnCloseEvent(t *testing.T) {
	var calls int
	var r *engineRig
	r = newEngineRig(t, WithPreFrame(func(context.Context) error {
		calls++
		if calls == 2 {
			r.engine.Events().Push(Event{Kind: EventClose})
		}
		return nil
	}))

	if err := r.engine.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if calls != 2 {
		t.Errorf("pre-frame calls = %d, want 2", calls)
	}
	if got := len(r.dev().Submissions()); got != 2 {
		t.Errorf("submissions = %d, want 2", got)
	}
}

// rejectingDevice refuses every Configure once armed, as a device that
// lost support for the surface format would.
type rejectingDevice struct {
	*headless.Device
	armed bool
}

func (d *rejectingDevice) Configure(s gpu.Surface, cfg gputypes.SurfaceConfiguration) (gpu.Swapchain, error) {
	if d.armed {
		return nil, fmt.Errorf("test: configure %dx%d: %w", cfg.Width, cfg.Height, gpu.ErrUnsupported)
	}
	return d.Device.Configure(s, cfg)
}

type rejectingBackend struct {
	inner *headless.Backend
	dev   *rejectingDevice
}

func (b *rejectingBackend) Name() string { return gpu.BackendHeadless }

func (b *rejectingBackend) Open(ctx context.Context, w gpucontext.WindowProvider) (gpu.Device, gpu.Surface, error) {
	dev, surf, err := b.inner.Open(ctx, w)
	if err != nil {
		return nil, nil, err
	}
	b.dev = &rejectingDevice{Device: dev.(*headless.Device)}
	return b.dev, surf, nil
}

func TestEngineRejectedRecreationIsFatal(t *testing.T) {
	backend := &rejectingBackend{inner: headless.New(headless.Config{})}
	win := &fakeWindow{w: 64, h: 32, scale: 1}
	e, err := New(context.Background(), backend, win)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })

	if res, err := e.Step(context.Background()); err != nil || res != StepSubmitted {
		t.Fatalf("Step() = %v, %v, want submitted", res, err)
	}

	backend.dev.armed = true
	win.resize(100, 50)
	_, err = e.Step(context.Background())
	if !errors.Is(err, surface.ErrRecreation) || !errors.Is(err, gpu.ErrUnsupported) {
		t.Fatalf("Step() error = %v, want ErrRecreation wrapping ErrUnsupported", err)
	}
	if err := e.Run(context.Background()); !errors.Is(err, gpu.ErrUnsupported) {
		t.Errorf("Run() = %v, want the recreation error", err)
	}
	if got := len(backend.inner.Device.Submissions()); got != 1 {
		t.Errorf("submissions = %d, want 1", got)
	}
}

func TestEngineZeroDrainTimeoutPostponesRecreation(t *testing.T) {
	cfg := config.Default()
	cfg.Frame.DrainTimeout = 0
	r := newEngineRigWith(t, headless.Config{CompletionPolls: 3}, WithConfig(cfg))
	r.step(t, StepSubmitted)
	if r.dev().Pending() == 0 {
		t.Fatal("expected in-flight work after the first frame")
	}

	r.window.resize(100, 50)
	r.step(t, StepSkipped)
	if r.dev().Pending() == 0 {
		t.Fatal("skipped frame waited for in-flight work")
	}
	if r.engine.Targets().Recreations() != 0 {
		t.Fatal("targets rebuilt while work was in flight")
	}

	submitted := false
	for range 5 {
		res, err := r.engine.Step(context.Background())
		if err != nil {
			t.Fatalf("Step() error = %v", err)
		}
		if res == StepSubmitted {
			submitted = true
			break
		}
	}
	if !submitted {
		t.Fatal("recreation never happened once the work retired")
	}
	if got := r.engine.Targets().Targets().Extent; got != (gpu.Extent{Width: 100, Height: 50}) {
		t.Errorf("extent = %v, want 100x50", got)
	}
	if got := r.counter(t, "test_loop_frames_skipped_total", map[string]string{"reason": metrics.ReasonRecreation}); got < 1 {
		t.Errorf("recreation skips = %v, want at least 1", got)
	}
}

func TestEngineRunPreFrame(t *testing.T) {
	var calls int
	var r *engineRig
	r = newEngineRig(t, WithPreFrame(func(context.Context) error {
		calls++
		if calls == 3 {
			r.engine.RequestClose()
		}
		if calls == 2 {
			return errors.New("ignored")
		}
		return nil
	}))

	if err := r.engine.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if calls != 3 {
		t.Errorf("pre-frame calls = %d, want 3", calls)
	}
	if got := len(r.dev().Submissions()); got != 3 {
		t.Errorf("submissions = %d, want 3", got)
	}
}

func TestEngineRunCancelled(t *testing.T) {
	r := newEngineRig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.engine.Run(ctx); err != nil {
		t.Errorf("Run(cancelled) = %v, want nil", err)
	}
}

func TestEngineCloseDrainsAndReleases(t *testing.T) {
	backend := headless.New(headless.Config{CompletionPolls: 5})
	var closed []string
	st := &lifecycle{StageFunc: StageFunc{StageName: "res"}, closed: &closed}
	e, err := New(context.Background(), backend, &fakeWindow{w: 8, h: 8, scale: 1}, WithStages(st))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Step(context.Background()); err != nil {
		t.Fatal(err)
	}
	if backend.Device.Pending() == 0 {
		t.Fatal("expected in-flight work before Close")
	}

	if err := e.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("second Close() = %v", err)
	}
	if backend.Device.Pending() != 0 {
		t.Error("Close() left work in flight")
	}
	if !reflect.DeepEqual(closed, []string{"res"}) {
		t.Errorf("closed stages = %v", closed)
	}
	if _, err := e.Step(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Step() after Close = %v, want ErrClosed", err)
	}
}

func TestNewErrors(t *testing.T) {
	win := &fakeWindow{w: 8, h: 8, scale: 1}

	bad := config.Default()
	bad.Surface.PresentMode = "sometimes"
	if _, err := New(context.Background(), headless.New(headless.Config{}), win, WithConfig(bad)); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("New(invalid config) = %v, want ErrInvalid", err)
	}

	unknown := config.Default()
	unknown.Backend = "nope"
	if _, err := New(context.Background(), nil, win, WithConfig(unknown)); !errors.Is(err, gpu.ErrBackendNotAvailable) {
		t.Errorf("New(unknown backend) = %v, want ErrBackendNotAvailable", err)
	}

	if _, err := New(context.Background(), headless.New(headless.Config{}), &fakeWindow{}); !errors.Is(err, surface.ErrInitialization) {
		t.Errorf("New(zero window) = %v, want ErrInitialization", err)
	}

	if _, err := New(context.Background(), headless.New(headless.Config{}), win,
		WithStages(StageFunc{StageName: "x"}, StageFunc{StageName: "x"})); !errors.Is(err, ErrDuplicateStage) {
		t.Errorf("New(duplicate stages) = %v, want ErrDuplicateStage", err)
	}
}

func TestNewSelectsRegisteredBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = gpu.BackendHeadless
	e, err := New(context.Background(), nil, &fakeWindow{w: 4, h: 4, scale: 1}, WithConfig(cfg))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	defer e.Close()
	if name := e.Device().Provider().AdapterInfo().Name; name != "headless" {
		t.Errorf("adapter = %q, want headless", name)
	}
	if e.RunID() == "" {
		t.Error("RunID() is empty")
	}
}
