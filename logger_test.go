// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package frame

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
)

// logEntry is one record seen by captureHandler, with the attributes added
// through With flattened in.
type logEntry struct {
	level slog.Level
	msg   string
	attrs map[string]string
}

type captureHandler struct {
	mu      *sync.Mutex
	entries *[]logEntry
	attrs   []slog.Attr
}

func newCapture() (*slog.Logger, func() []logEntry) {
	h := &captureHandler{mu: &sync.Mutex{}, entries: &[]logEntry{}}
	return slog.New(h), func() []logEntry {
		h.mu.Lock()
		defer h.mu.Unlock()
		return append([]logEntry(nil), *h.entries...)
	}
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	e := logEntry{level: r.Level, msg: r.Message, attrs: map[string]string{}}
	for _, a := range h.attrs {
		e.attrs[a.Key] = a.Value.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		e.attrs[a.Key] = a.Value.String()
		return true
	})
	h.mu.Lock()
	*h.entries = append(*h.entries, e)
	h.mu.Unlock()
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &c
}

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

// find returns the first entry with msg.
func find(entries []logEntry, msg string) (logEntry, bool) {
	for _, e := range entries {
		if e.msg == msg {
			return e, true
		}
	}
	return logEntry{}, false
}

func TestEngineSilentByDefault(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })
	SetLogger(nil)

	r := newEngineRig(t)
	r.step(t, StepSubmitted)

	ctx := context.Background()
	for _, l := range []*slog.Logger{Logger(), r.engine.log, r.engine.log.With("k", "v").WithGroup("g")} {
		if l.Enabled(ctx, slog.LevelError) {
			t.Error("default engine logger is enabled")
		}
	}
}

func TestEngineLogLevels(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })
	l, entries := newCapture()
	SetLogger(l)

	hookErr := errors.New("hook")
	failHook := false
	r := newEngineRig(t,
		WithStages(&loggingStage{name: "bad", log: new([]string), bindErr: errors.New("boom")}),
		WithPreFrame(func(context.Context) error {
			if failHook {
				return hookErr
			}
			return nil
		}),
	)
	r.step(t, StepSubmitted)
	failHook = true
	r.dev().FailSubmit(errors.New("queue exploded"))
	if _, err := r.engine.Step(context.Background()); err == nil {
		t.Fatal("Step() with failing submit returned nil")
	}

	tests := []struct {
		msg   string
		level slog.Level
	}{
		{"frame: engine started", slog.LevelInfo},
		{"frame: submitted", slog.LevelDebug},
		{"frame: stage failed", slog.LevelWarn},
		{"frame: pre-frame hook failed", slog.LevelWarn},
		{"fence: submission failed", slog.LevelError},
	}
	got := entries()
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			e, ok := find(got, tt.msg)
			if !ok {
				t.Fatalf("no %q record", tt.msg)
			}
			if e.level != tt.level {
				t.Errorf("level = %v, want %v", e.level, tt.level)
			}
			if e.attrs["run"] != r.engine.RunID() {
				t.Errorf("run = %q, want %q", e.attrs["run"], r.engine.RunID())
			}
		})
	}
	if e, _ := find(got, "frame: engine started"); e.attrs["backend"] != "headless" {
		t.Errorf("backend = %q, want headless", e.attrs["backend"])
	}
	if e, _ := find(got, "frame: stage failed"); e.attrs["stage"] != "bad" || e.attrs["phase"] != "bind" {
		t.Errorf("stage failure attrs = %v", e.attrs)
	}
}

func TestEngineSetLoggerAppliesAtNextStep(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })
	SetLogger(nil)

	r := newEngineRig(t)
	l, entries := newCapture()
	r.engine.SetLogger(l)
	if n := len(entries()); n != 0 {
		t.Fatalf("%d records before the next Step", n)
	}

	r.step(t, StepSubmitted)
	e, ok := find(entries(), "frame: submitted")
	if !ok {
		t.Fatal("no submitted record after Step")
	}
	if e.attrs["run"] != r.engine.RunID() || e.attrs["frame"] != "1" {
		t.Errorf("submitted attrs = %v", e.attrs)
	}

	r.engine.SetLogger(nil)
	before := len(entries())
	r.step(t, StepSubmitted)
	if got := len(entries()); got != before {
		t.Errorf("SetLogger(nil) still logged %d records", got-before)
	}
}

type recordingSetter struct {
	mu     sync.Mutex
	logger *slog.Logger
}

func (r *recordingSetter) SetLogger(l *slog.Logger) {
	r.mu.Lock()
	r.logger = l
	r.mu.Unlock()
}

func (r *recordingSetter) get() *slog.Logger {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logger
}

func TestSetLoggerPropagatesToTracked(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	rs := &recordingSetter{}
	track(rs)
	t.Cleanup(func() { untrack(rs) })

	custom := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	SetLogger(custom)

	if rs.get() != custom {
		t.Error("SetLogger did not propagate to tracked component via loggerSetter")
	}
}

func TestTrackPropagatesCurrentLogger(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	// Set a custom logger before tracking.
	custom := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	SetLogger(custom)

	rs := &recordingSetter{}
	track(rs)
	t.Cleanup(func() { untrack(rs) })

	if rs.get() != custom {
		t.Error("track did not hand over the current logger")
	}
}

func TestUntrackStopsPropagation(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	rs := &recordingSetter{}
	track(rs)
	untrack(rs)
	before := rs.get()

	SetLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	if rs.get() != before {
		t.Error("untracked component still receives SetLogger")
	}
}

func TestLoggerConcurrentAccess(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var wg sync.WaitGroup
	const goroutines = 100

	// Concurrent readers.
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := Logger()
			if l == nil {
				t.Error("Logger() returned nil during concurrent access")
			}
			// Exercise the logger; must not panic.
			l.Debug("concurrent read")
		}()
	}

	// Concurrent writers.
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			SetLogger(slog.Default())
			SetLogger(nil)
		}()
	}

	wg.Wait()
}

func BenchmarkSilentFrameLog(b *testing.B) {
	l := newNopLogger().With("run", "bench")
	b.ReportAllocs()
	for b.Loop() {
		l.Debug("frame: submitted", "frame", uint64(1), "image", uint32(0))
	}
}
