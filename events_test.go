// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package frame

import (
	"reflect"
	"sync"
	"testing"

	"github.com/gogpu/gpucontext"
)

// fakeSource captures the callbacks registered by Attach.
type fakeSource struct {
	gpucontext.NullEventSource

	resize func(int, int)
	key    func(gpucontext.Key, gpucontext.Modifiers)
	press  func(gpucontext.MouseButton, float64, float64)
	scroll func(float64, float64)
	focus  func(bool)
}

func (s *fakeSource) OnResize(fn func(int, int)) { s.resize = fn }

func (s *fakeSource) OnKeyPress(fn func(gpucontext.Key, gpucontext.Modifiers)) { s.key = fn }

func (s *fakeSource) OnMousePress(fn func(gpucontext.MouseButton, float64, float64)) { s.press = fn }

func (s *fakeSource) OnScroll(fn func(float64, float64)) { s.scroll = fn }

func (s *fakeSource) OnFocus(fn func(bool)) { s.focus = fn }

func TestEventKindString(t *testing.T) {
	tests := []struct {
		kind EventKind
		want string
	}{
		{EventResize, "Resize"},
		{EventClose, "Close"},
		{EventKeyPress, "KeyPress"},
		{EventScroll, "Scroll"},
		{EventFocus, "Focus"},
		{EventKind(200), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("EventKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestEventQueueAttach(t *testing.T) {
	var q EventQueue
	src := &fakeSource{}
	q.Attach(src)

	src.resize(800, 600)
	src.key(gpucontext.KeyEscape, gpucontext.ModControl)
	src.press(gpucontext.MouseButtonLeft, 3, 4)
	src.scroll(0, -1)
	src.focus(true)

	want := []Event{
		{Kind: EventResize, Width: 800, Height: 600},
		{Kind: EventKeyPress, Key: gpucontext.KeyEscape, Mods: gpucontext.ModControl},
		{Kind: EventMousePress, Button: gpucontext.MouseButtonLeft, X: 3, Y: 4},
		{Kind: EventScroll, X: 0, Y: -1},
		{Kind: EventFocus, Focused: true},
	}
	if q.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d", q.Len(), len(want))
	}
	if got := q.Drain(); !reflect.DeepEqual(got, want) {
		t.Errorf("Drain() = %+v, want %+v", got, want)
	}
	if q.Len() != 0 || q.Drain() != nil {
		t.Error("queue not empty after Drain")
	}
}

func TestEventQueueConcurrentPush(t *testing.T) {
	var (
		q  EventQueue
		wg sync.WaitGroup
	)
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				q.Push(Event{Kind: EventMouseMove, X: float64(i)})
			}
		}()
	}
	wg.Wait()
	if got := len(q.Drain()); got != 800 {
		t.Errorf("drained %d events, want 800", got)
	}
}
