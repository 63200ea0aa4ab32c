// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package fence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gogpu/frame/backend/headless"
	"github.com/gogpu/frame/gpu"
	"github.com/gogpu/frame/surface"
	"github.com/gogpu/gputypes"
)

type rig struct {
	dev *headless.Device
	mgr *surface.Manager
	tr  *Tracker
}

func newRig(t *testing.T, polls int) *rig {
	t.Helper()
	dev := headless.NewDevice(headless.Config{CompletionPolls: polls})
	mgr, err := surface.Initialize(dev, headless.NewSurface(), gpu.Extent{Width: 16, Height: 16})
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(mgr.Close)
	return &rig{dev: dev, mgr: mgr, tr: New(dev, mgr)}
}

// frame runs one acquire/record/submit cycle.
func (r *rig) frame(t *testing.T) error {
	t.Helper()
	r.tr.BeginFrame()
	target, status, err := r.mgr.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if status == surface.AcquireStale {
		r.tr.Abandon()
		return ErrFrameSkipped
	}
	enc, err := r.dev.CreateEncoder("frame")
	if err != nil {
		t.Fatalf("CreateEncoder() error = %v", err)
	}
	pass, err := enc.BeginPass(gpu.PassDescriptor{View: target.View, Load: gputypes.LoadOpClear})
	if err != nil {
		t.Fatalf("BeginPass() error = %v", err)
	}
	if err := pass.End(); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	cb, err := enc.Finish()
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	_, err = r.tr.Submit(context.Background(), cb, target)
	return err
}

func TestSubmitKeepsOneToken(t *testing.T) {
	r := newRig(t, 3)

	var prev gpu.Token
	for i := range 10 {
		if err := r.frame(t); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if r.tr.Outstanding() > 1 {
			t.Fatalf("frame %d: Outstanding() = %d", i, r.tr.Outstanding())
		}
		if r.tr.Token() == prev {
			t.Fatalf("frame %d: token not replaced", i)
		}
		prev = r.tr.Token()
	}
	if got := len(r.dev.Submissions()); got != 10 {
		t.Errorf("submissions = %d, want 10", got)
	}
}

func TestBeginFrameReleasesCompleted(t *testing.T) {
	r := newRig(t, 1)

	if err := r.frame(t); err != nil {
		t.Fatal(err)
	}
	if r.tr.Retained() != 1 {
		t.Fatalf("Retained() = %d, want 1", r.tr.Retained())
	}
	if r.tr.Outstanding() != 1 {
		t.Fatalf("Outstanding() = %d, want 1", r.tr.Outstanding())
	}
	r.tr.BeginFrame()
	if r.tr.Retained() != 0 {
		t.Errorf("Retained() after completion = %d, want 0", r.tr.Retained())
	}
	if r.tr.Outstanding() != 0 {
		t.Errorf("Outstanding() after completion = %d, want 0", r.tr.Outstanding())
	}
}

func TestStaleAtPresentResetsToken(t *testing.T) {
	r := newRig(t, 1000)

	if err := r.frame(t); err != nil {
		t.Fatal(err)
	}
	r.dev.StalePresents(1)
	err := r.frame(t)
	if !errors.Is(err, ErrFrameSkipped) || !errors.Is(err, gpu.ErrStale) {
		t.Fatalf("frame error = %v, want ErrFrameSkipped wrapping ErrStale", err)
	}
	if !gpu.IsCompleted(r.tr.Token()) {
		t.Fatal("token should reset to the completed sentinel")
	}
	if !r.mgr.Pending() {
		t.Fatal("stale present should request recreation")
	}

	// The next frame must not block even though earlier work never retires.
	done := make(chan error, 1)
	go func() {
		r.tr.BeginFrame()
		done <- nil
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("BeginFrame blocked after a stale reset")
	}
	if err := r.frame(t); err != nil {
		t.Fatalf("frame after recovery: %v", err)
	}
	if r.mgr.Recreations() != 1 {
		t.Errorf("Recreations() = %d, want 1", r.mgr.Recreations())
	}
}

func TestStaleAtAcquireAbandons(t *testing.T) {
	r := newRig(t, 1000)
	if err := r.frame(t); err != nil {
		t.Fatal(err)
	}
	r.dev.StaleAcquires(1)
	if err := r.frame(t); !errors.Is(err, ErrFrameSkipped) {
		t.Fatalf("frame error = %v, want skipped", err)
	}
	if !gpu.IsCompleted(r.tr.Token()) {
		t.Error("Abandon should reset the token")
	}
	if got := len(r.dev.Submissions()); got != 1 {
		t.Errorf("submissions = %d, want 1 (nothing submitted for the stale frame)", got)
	}
}

func TestSubmitFailureIsFatal(t *testing.T) {
	r := newRig(t, 0)
	r.dev.FailSubmit(gpu.ErrDeviceLost)

	err := r.frame(t)
	if !errors.Is(err, ErrFatal) || !errors.Is(err, gpu.ErrDeviceLost) {
		t.Fatalf("frame error = %v, want ErrFatal wrapping ErrDeviceLost", err)
	}
	if errors.Is(err, ErrFrameSkipped) {
		t.Error("fatal error must not be reported as skipped")
	}
	if r.mgr.Pending() {
		t.Error("fatal error must not request recreation")
	}
}

func TestSubmitInvalidTarget(t *testing.T) {
	r := newRig(t, 0)
	enc, _ := r.dev.CreateEncoder("")
	cb, _ := enc.Finish()

	_, err := r.tr.Submit(context.Background(), cb, surface.Target{})
	if !errors.Is(err, ErrFrameSkipped) {
		t.Fatalf("Submit(zero target) error = %v, want skipped", err)
	}
	if !cb.(*headless.CommandBuffer).Released() {
		t.Error("unsubmitted command buffer should be released")
	}
}

func TestDrain(t *testing.T) {
	r := newRig(t, 1000)
	for range 3 {
		if err := r.frame(t); err != nil {
			t.Fatal(err)
		}
	}
	if r.tr.Retained() != 3 {
		t.Fatalf("Retained() = %d, want 3", r.tr.Retained())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.tr.Drain(ctx); err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if r.tr.Retained() != 0 || r.tr.Outstanding() != 0 {
		t.Errorf("after Drain: retained = %d outstanding = %d", r.tr.Retained(), r.tr.Outstanding())
	}
	if r.dev.Pending() != 0 {
		t.Errorf("device pending = %d, want 0", r.dev.Pending())
	}
}

type stuckToken struct{}

func (stuckToken) Done() bool { return false }

func (stuckToken) Wait(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestDrainTimeout(t *testing.T) {
	r := newRig(t, 0)
	r.tr.token = stuckToken{}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := r.tr.Drain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Drain() error = %v, want DeadlineExceeded", err)
	}
}
